package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSnapshot writes a small valid SQLite database with one marker row.
func createSnapshot(t *testing.T, path, body string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO notes (body) VALUES (?)`, body)
	require.NoError(t, err)
}

func readNote(t *testing.T, path string) string {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var body string
	require.NoError(t, db.QueryRow(`SELECT body FROM notes`).Scan(&body))
	return body
}

// stageFixture places staged snapshots and a pending marker under dataDir,
// as StageRestore would have left them.
func stageFixture(t *testing.T, dataDir string, files []string) {
	t.Helper()

	stagingDir := filepath.Join(dataDir, stagingDirName)
	require.NoError(t, os.MkdirAll(stagingDir, 0755))

	for _, name := range files {
		createSnapshot(t, filepath.Join(stagingDir, name), "staged")
	}

	marker := restoreMarker{
		Archive:  "argus-backup-2026-01-02-030405.tar.gz",
		StagedAt: time.Now().UTC(),
		Files:    files,
	}
	data, err := json.Marshal(marker)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(stagingDir, pendingMarkerName), data, 0644))
}

func TestCheckPendingRestore(t *testing.T) {
	dataDir := t.TempDir()
	svc := NewRestoreService(nil, dataDir, zerolog.Nop())

	pending, err := svc.CheckPendingRestore()
	require.NoError(t, err)
	assert.False(t, pending)

	stageFixture(t, dataDir, []string{"corpus.db"})

	pending, err = svc.CheckPendingRestore()
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestExecuteStagedRestoreSwapsLiveFiles(t *testing.T) {
	dataDir := t.TempDir()
	livePath := filepath.Join(dataDir, "corpus.db")
	createSnapshot(t, livePath, "live")
	require.NoError(t, os.WriteFile(livePath+"-wal", []byte("stale"), 0644))

	stageFixture(t, dataDir, []string{"corpus.db"})

	svc := NewRestoreService(nil, dataDir, zerolog.Nop())
	require.NoError(t, svc.ExecuteStagedRestore())

	assert.Equal(t, "staged", readNote(t, livePath))
	assert.Equal(t, "live", readNote(t, livePath+".pre-restore"))
	assert.NoFileExists(t, livePath+"-wal")
	assert.NoDirExists(t, filepath.Join(dataDir, stagingDirName))
}

func TestExecuteStagedRestoreWithoutLiveFile(t *testing.T) {
	dataDir := t.TempDir()
	stageFixture(t, dataDir, []string{"scans.db"})

	svc := NewRestoreService(nil, dataDir, zerolog.Nop())
	require.NoError(t, svc.ExecuteStagedRestore())

	assert.Equal(t, "staged", readNote(t, filepath.Join(dataDir, "scans.db")))
	assert.NoFileExists(t, filepath.Join(dataDir, "scans.db.pre-restore"))
}

func TestExecuteStagedRestoreWithoutMarker(t *testing.T) {
	svc := NewRestoreService(nil, t.TempDir(), zerolog.Nop())

	require.Error(t, svc.ExecuteStagedRestore())
}

func TestStageRestoreRequiresClient(t *testing.T) {
	svc := NewRestoreService(nil, t.TempDir(), zerolog.Nop())

	err := svc.StageRestore(context.Background(), "argus-backup-2026-01-02-030405.tar.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestStageRestoreRejectsUnsafeArchiveName(t *testing.T) {
	r2, err := NewR2Client("acct", "key", "secret", "bucket", zerolog.Nop())
	require.NoError(t, err)

	svc := NewRestoreService(r2, t.TempDir(), zerolog.Nop())
	err = svc.StageRestore(context.Background(), "../argus-backup-evil.tar.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid archive name")
}

func TestVerifyChecksumsAgainstManifest(t *testing.T) {
	dataDir := t.TempDir()
	stagingDir := filepath.Join(dataDir, stagingDirName)
	require.NoError(t, os.MkdirAll(stagingDir, 0755))
	createSnapshot(t, filepath.Join(stagingDir, "corpus.db"), "staged")

	checksum, err := calculateChecksum(filepath.Join(stagingDir, "corpus.db"))
	require.NoError(t, err)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Databases: []DatabaseMetadata{{Name: "corpus", Filename: "corpus.db", Checksum: checksum}},
	}
	require.NoError(t, writeMetadata(filepath.Join(stagingDir, "backup-metadata.json"), metadata))

	svc := NewRestoreService(nil, dataDir, zerolog.Nop())
	require.NoError(t, svc.verifyChecksums(stagingDir, []string{"corpus.db"}))

	// Tampering with the snapshot breaks the manifest match.
	require.NoError(t, os.WriteFile(filepath.Join(stagingDir, "corpus.db"), []byte("tampered"), 0644))
	err = svc.verifyChecksums(stagingDir, []string{"corpus.db"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestVerifyChecksumsWithoutManifest(t *testing.T) {
	dataDir := t.TempDir()
	stagingDir := filepath.Join(dataDir, stagingDirName)
	require.NoError(t, os.MkdirAll(stagingDir, 0755))
	createSnapshot(t, filepath.Join(stagingDir, "corpus.db"), "staged")

	svc := NewRestoreService(nil, dataDir, zerolog.Nop())
	require.NoError(t, svc.verifyChecksums(stagingDir, []string{"corpus.db"}))
}

func TestArchiveRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "corpus.db"), []byte("snapshot-bytes"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "backup-metadata.json"), []byte("{}"), 0644))

	archivePath := filepath.Join(t.TempDir(), "argus-backup-test.tar.gz")
	require.NoError(t, createArchive(archivePath, srcDir, []string{"corpus.db", "backup-metadata.json"}))

	destDir := t.TempDir()
	files, err := extractArchive(archivePath, destDir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"corpus.db", "backup-metadata.json"}, files)

	data, err := os.ReadFile(filepath.Join(destDir, "corpus.db"))
	require.NoError(t, err)
	assert.Equal(t, "snapshot-bytes", string(data))
}

func TestExtractArchiveRejectsUnsafePaths(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar.gz")
	f, err := os.Create(archivePath)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	payload := []byte("evil")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../evil.db",
		Size:     int64(len(payload)),
		Mode:     0644,
		Typeflag: tar.TypeReg,
	}))
	_, err = tw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	_, err = extractArchive(archivePath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsafe path")
}
