// Package embedded ships static reference data compiled into the binary.
package embedded

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed countries.json
var countriesJSON []byte

// Country is one row of the bundled country reference table, curated to
// the countries the ingestion feeds regularly report on. ID is the ISO
// 3166-1 alpha-2 code; aliases carry the common and official names, the
// alpha-3 code and frequent alternative spellings.
type Country struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// Countries decodes the bundled country table. The slice order follows
// the file (alphabetical by name) and is stable across calls.
func Countries() ([]Country, error) {
	var countries []Country
	if err := json.Unmarshal(countriesJSON, &countries); err != nil {
		return nil, fmt.Errorf("failed to parse embedded countries table: %w", err)
	}
	return countries, nil
}
