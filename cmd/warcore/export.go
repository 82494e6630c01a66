package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/storage/memory"
)

func runExport(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	dbPath := fs.String("db", "", "SQLite file to read instead of the configured storage")
	output := fs.String("o", "", "output file, war_<id>.json.gz by default")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: warcore export [-config dir] [-db file] [-o file] <warId>")
	}
	warID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("bad war id %q: %w", fs.Arg(0), err)
	}

	a, err := setup(*configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	stored, err := loadStoredWar(ctx, config.GetStorageConfig(), *dbPath, warID)
	if err != nil {
		return err
	}
	a.logger.Debug("Loaded war", "warId", warID, "source", stored.source,
		"actions", len(stored.data.Actions), "checkPoints", len(stored.checkPoints))

	export := &memory.ReplayExport{
		Version:     memory.ExportVersion,
		WarID:       warID,
		WarName:     stored.data.Snapshot.WarName,
		MapFileName: stored.data.Snapshot.MapFileName,
		StartedAt:   stored.startedAt,
		EndedAt:     stored.endedAt,
		Outcome:     stored.outcome,
		Replay:      *stored.data,
		CheckPoints: stored.checkPoints,
	}
	path := *output
	if path == "" {
		path = fmt.Sprintf("war_%d.json.gz", warID)
	}
	if err := memory.WriteReplayFile(path, export); err != nil {
		return err
	}
	fmt.Fprintf(out, "exported war %d (%d actions) to %s\n", warID, len(stored.data.Actions), path)
	return nil
}
