package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const logFilePattern = "wikitree-*.log"

// SetupLogFile opens a fresh timestamped log file in dir and prunes the
// directory down to keep files. The caller closes the file.
func SetupLogFile(dir string, keep int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := "wikitree-" + time.Now().UTC().Format("2006-01-02T15-04-05") + ".log"
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	// A failed prune leaves extra files behind; logging still works.
	if err := pruneLogs(dir, keep); err != nil {
		fmt.Fprintf(os.Stderr, "warning: prune log directory: %v\n", err)
	}
	return f, nil
}

// pruneLogs removes the oldest log files beyond keep. Names sort
// chronologically.
func pruneLogs(dir string, keep int) error {
	files, err := filepath.Glob(filepath.Join(dir, logFilePattern))
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}
	slices.Sort(files)
	for _, old := range files[:len(files)-keep] {
		if err := os.Remove(old); err != nil {
			return fmt.Errorf("remove %s: %w", old, err)
		}
	}
	return nil
}
