package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinywars/warcore/pkg/core"
)

// ExportVersion is bumped when ReplayExport changes incompatibly.
const ExportVersion = 1

// ReplayExport is the root of an exported replay file.
type ReplayExport struct {
	Version     int                     `json:"version"`
	WarID       int64                   `json:"warId"`
	WarName     string                  `json:"warName,omitempty"`
	MapFileName string                  `json:"mapFileName"`
	StartedAt   time.Time               `json:"startedAt"`
	EndedAt     time.Time               `json:"endedAt"`
	Outcome     string                  `json:"outcome"`
	Replay      core.ReplayData         `json:"replay"`
	CheckPoints []core.ReplayCheckPoint `json:"checkPoints,omitempty"`
}

func (b *Backend) exportJSON(rec *WarRecord) error {
	export, err := buildExport(rec)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("war_%d_%s.json", rec.Snapshot.WarID, rec.StartedAt.UTC().Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	if err := WriteReplayFile(outputPath, export); err != nil {
		return err
	}
	rec.ExportPath = outputPath
	return nil
}

func buildExport(rec *WarRecord) (*ReplayExport, error) {
	data, err := core.NewReplayData(rec.Snapshot, rec.Actions)
	if err != nil {
		return nil, fmt.Errorf("export war %d: %w", rec.Snapshot.WarID, err)
	}
	export := &ReplayExport{
		Version:     ExportVersion,
		WarID:       rec.Snapshot.WarID,
		WarName:     rec.Snapshot.WarName,
		MapFileName: rec.Snapshot.MapFileName,
		StartedAt:   rec.StartedAt,
		Replay:      *data,
		CheckPoints: rec.CheckPoints,
	}
	if rec.Result != nil {
		export.EndedAt = rec.Result.EndedAt
		export.Outcome = rec.Result.Outcome
	}
	return export, nil
}

// WriteReplayFile writes export as JSON, gzipped when path ends in ".gz".
func WriteReplayFile(path string, export *ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".gz") {
		if err := json.NewEncoder(f).Encode(export); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(export); err != nil {
		gz.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return gz.Close()
}

// ReadReplayFile reads a file written by WriteReplayFile.
func ReadReplayFile(path string) (*ReplayExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var export ReplayExport
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if export.Version != ExportVersion {
		return nil, fmt.Errorf("read %s: unsupported replay version %d", path, export.Version)
	}
	return &export, nil
}
