// Package deps reports the availability of the external conversion tools.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"cloudtile/internal/config"
)

// Requirement defines an external tool a conversion step invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// Requirements derives the tool requirements from the configured binaries.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "ogr2ogr", Command: cfg.Ogr2ogrBin, Description: "vector conversion (GDAL)"},
		{Name: "tippecanoe", Command: cfg.TippecanoeBin, Description: "tile generation"},
		{Name: "pmtiles", Command: cfg.PMTilesBin, Description: "archive packaging"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: req.Description,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
