package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	stagingDirName    = "restore-staging"
	pendingMarkerName = "restore-pending.json"
)

// RestoreService stages database restores from R2 archives and applies them
// on the next startup, before any database connection is opened. A staged
// restore never touches live files; ExecuteStagedRestore swaps them in one
// pass while nothing else holds the databases.
type RestoreService struct {
	r2Client *R2Client // nil is allowed for startup-only marker checks
	dataDir  string
	log      zerolog.Logger
}

// restoreMarker records a staged restore awaiting execution.
type restoreMarker struct {
	Archive  string    `json:"archive"`
	StagedAt time.Time `json:"staged_at"`
	Files    []string  `json:"files"`
}

// NewRestoreService creates a new restore service.
func NewRestoreService(r2Client *R2Client, dataDir string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		r2Client: r2Client,
		dataDir:  dataDir,
		log:      log.With().Str("service", "restore").Logger(),
	}
}

// StageRestore downloads a backup archive from R2, extracts and verifies the
// database snapshots, and writes a pending marker. The restore is applied by
// ExecuteStagedRestore on the next startup.
func (s *RestoreService) StageRestore(ctx context.Context, archiveName string) error {
	if s.r2Client == nil {
		return fmt.Errorf("r2 client not configured")
	}

	// Archive names come from user requests; reject anything that could
	// escape the staging directory.
	if archiveName != filepath.Base(archiveName) || strings.Contains(archiveName, "..") {
		return fmt.Errorf("invalid archive name: %s", archiveName)
	}

	s.log.Info().Str("archive", archiveName).Msg("Staging restore")

	stagingDir := filepath.Join(s.dataDir, stagingDirName)
	if err := os.RemoveAll(stagingDir); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	archivePath := filepath.Join(stagingDir, archiveName)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	if _, err := s.r2Client.Download(ctx, archiveName, archiveFile); err != nil {
		archiveFile.Close()
		return fmt.Errorf("failed to download archive: %w", err)
	}
	archiveFile.Close()

	files, err := extractArchive(archivePath, stagingDir)
	if err != nil {
		return fmt.Errorf("failed to extract archive: %w", err)
	}
	os.Remove(archivePath)

	// Verify snapshots before committing to the restore.
	var dbFiles []string
	for _, name := range files {
		if !strings.HasSuffix(name, ".db") {
			continue
		}
		if err := verifySnapshot(filepath.Join(stagingDir, name)); err != nil {
			return fmt.Errorf("staged snapshot %s failed verification: %w", name, err)
		}
		dbFiles = append(dbFiles, name)
	}
	if len(dbFiles) == 0 {
		return fmt.Errorf("archive %s contains no database snapshots", archiveName)
	}

	if err := s.verifyChecksums(stagingDir, dbFiles); err != nil {
		return err
	}

	marker := restoreMarker{
		Archive:  archiveName,
		StagedAt: time.Now().UTC(),
		Files:    dbFiles,
	}
	markerData, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal restore marker: %w", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, pendingMarkerName), markerData, 0644); err != nil {
		return fmt.Errorf("failed to write restore marker: %w", err)
	}

	s.log.Info().
		Str("archive", archiveName).
		Int("databases", len(dbFiles)).
		Msg("Restore staged, restart to apply")

	return nil
}

// CheckPendingRestore reports whether a staged restore is waiting.
func (s *RestoreService) CheckPendingRestore() (bool, error) {
	markerPath := filepath.Join(s.dataDir, stagingDirName, pendingMarkerName)
	if _, err := os.Stat(markerPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check restore marker: %w", err)
	}
	return true, nil
}

// ExecuteStagedRestore swaps staged snapshots in place of the live database
// files. The previous live file is kept next to the new one with a
// .pre-restore suffix; WAL and SHM sidecars of the old file are removed so
// the restored snapshot starts clean.
func (s *RestoreService) ExecuteStagedRestore() error {
	stagingDir := filepath.Join(s.dataDir, stagingDirName)
	markerPath := filepath.Join(stagingDir, pendingMarkerName)

	markerData, err := os.ReadFile(markerPath)
	if err != nil {
		return fmt.Errorf("failed to read restore marker: %w", err)
	}

	var marker restoreMarker
	if err := json.Unmarshal(markerData, &marker); err != nil {
		return fmt.Errorf("failed to parse restore marker: %w", err)
	}

	s.log.Warn().
		Str("archive", marker.Archive).
		Int("databases", len(marker.Files)).
		Msg("Executing staged restore")

	for _, name := range marker.Files {
		stagedPath := filepath.Join(stagingDir, name)
		livePath := filepath.Join(s.dataDir, name)

		if _, err := os.Stat(livePath); err == nil {
			if err := os.Rename(livePath, livePath+".pre-restore"); err != nil {
				return fmt.Errorf("failed to set aside %s: %w", name, err)
			}
		}
		os.Remove(livePath + "-wal")
		os.Remove(livePath + "-shm")

		if err := CopyFile(stagedPath, livePath); err != nil {
			return fmt.Errorf("failed to restore %s: %w", name, err)
		}

		s.log.Info().Str("database", name).Msg("Database restored")
	}

	if err := os.RemoveAll(stagingDir); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove staging directory")
	}

	s.log.Info().Str("archive", marker.Archive).Msg("Staged restore completed")

	return nil
}

// verifyChecksums compares staged snapshots against the archive manifest.
// Archives without a manifest are accepted; the integrity check already ran.
func (s *RestoreService) verifyChecksums(stagingDir string, dbFiles []string) error {
	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	metadataData, err := os.ReadFile(metadataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup metadata: %w", err)
	}

	var metadata BackupMetadata
	if err := json.Unmarshal(metadataData, &metadata); err != nil {
		return fmt.Errorf("failed to parse backup metadata: %w", err)
	}

	expected := make(map[string]string, len(metadata.Databases))
	for _, db := range metadata.Databases {
		expected[db.Filename] = db.Checksum
	}

	for _, name := range dbFiles {
		want, ok := expected[name]
		if !ok {
			continue
		}
		got, err := calculateChecksum(filepath.Join(stagingDir, name))
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", name, err)
		}
		if got != want {
			return fmt.Errorf("checksum mismatch for %s", name)
		}
	}

	return nil
}

// verifySnapshot opens a staged snapshot and runs an integrity check.
func verifySnapshot(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// extractArchive unpacks a tar.gz archive into destDir and returns the
// extracted file names. Entries with path separators are rejected.
func extractArchive(archivePath, destDir string) ([]string, error) {
	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archiveFile.Close()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)

	var files []string
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := header.Name
		if name != filepath.Base(name) || strings.Contains(name, "..") {
			return nil, fmt.Errorf("archive entry has unsafe path: %s", name)
		}

		outPath := filepath.Join(destDir, name)
		outFile, err := os.Create(outPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", name, err)
		}

		if _, err := io.Copy(outFile, tarReader); err != nil {
			outFile.Close()
			return nil, fmt.Errorf("failed to extract %s: %w", name, err)
		}
		outFile.Close()

		files = append(files, name)
	}

	return files, nil
}

// CopyFile copies src to dst, truncating dst if it exists.
func CopyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	return dstFile.Sync()
}
