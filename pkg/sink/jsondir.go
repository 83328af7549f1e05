package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/netzbremse/nb-speedtest/pkg/speedtest"
)

// JSONDir writes each measurement report into a directory as
// speedtest-<timestamp>.json, the format the dashboard consumes.
type JSONDir struct {
	dir           string
	keepArtifacts bool
}

func NewJSONDir(dir string, keepArtifacts bool) *JSONDir {
	return &JSONDir{
		dir:           dir,
		keepArtifacts: keepArtifacts,
	}
}

func (s *JSONDir) Name() string {
	return "jsondir"
}

func (s *JSONDir) Submit(_ context.Context, report speedtest.RunReport) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", s.dir, err)
	}

	data, err := json.Marshal(report.Report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	name := speedtest.FileName(report.Started)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write report %q: %w", name, err)
	}

	if !s.keepArtifacts {
		return nil
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	for _, artifact := range report.Artifacts {
		if artifact.Rel == "report" || artifact.Rel == "" {
			continue
		}

		artifactName := fmt.Sprintf("%s.%s", base, artifact.Rel)
		if err := os.WriteFile(filepath.Join(s.dir, artifactName), artifact.Content, 0644); err != nil {
			return fmt.Errorf("failed to write artifact %q: %w", artifactName, err)
		}
	}

	return nil
}
