package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/fluidpanel/config"
)

// OutputManager writes run artefacts into one directory: reports.csv, a config snapshot
// and whatever else callers place under Path.
type OutputManager struct {
	dir        string
	reportFile *os.File

	reportHeaderWritten bool
}

// NewOutputManager creates the output directory and opens reports.csv.
// Returns nil if dir is empty (output disabled); every method is a no-op on nil.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "reports.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating reports.csv: %w", err)
	}

	return &OutputManager{dir: dir, reportFile: f}, nil
}

// WriteConfig saves the configuration in effect as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteReport appends a report record to reports.csv.
func (om *OutputManager) WriteReport(r Report) error {
	if om == nil {
		return nil
	}

	records := []Report{r}
	if !om.reportHeaderWritten {
		if err := gocsv.Marshal(records, om.reportFile); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		om.reportHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.reportFile); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Path returns name inside the output directory, or "" when output is disabled.
func (om *OutputManager) Path(name string) string {
	if om == nil {
		return ""
	}
	return filepath.Join(om.dir, name)
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil || om.reportFile == nil {
		return nil
	}
	return om.reportFile.Close()
}
