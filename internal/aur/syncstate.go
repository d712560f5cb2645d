package aur

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// SyncState is the "new since" threshold derived from the meta sidecar.
type SyncState struct {
	// Threshold is the epoch seconds stored in the sidecar, 0 when unknown.
	Threshold int64
	// Known is false when the sidecar is missing or unreadable.
	Known bool
	// Age is how long before the catalog's current write time the
	// threshold lies.
	Age time.Duration
}

// Since returns the threshold as a time. The zero time when unknown.
func (s SyncState) Since() time.Time {
	if !s.Known {
		return time.Time{}
	}
	return time.Unix(s.Threshold, 0)
}

// LoadSyncState reads metaFile. A missing sidecar is not an error: every
// package counts as new and a warning is logged.
func LoadSyncState(dataFile, metaFile string) (SyncState, error) {
	now := time.Now()
	lastUpdate := now
	if info, err := os.Stat(dataFile); err == nil {
		lastUpdate = info.ModTime()
	}

	raw, err := os.ReadFile(metaFile)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Logger().Warnw("fetch time file not found", "path", metaFile)
		return SyncState{}, nil
	}
	if err != nil {
		return SyncState{}, fmt.Errorf("failed to read meta file: %w", err)
	}

	threshold, err := parseEpoch(string(raw))
	if err != nil {
		logger.Logger().Warnw("fetch time file unreadable", "path", metaFile, "error", err)
		return SyncState{}, nil
	}

	return SyncState{
		Threshold: threshold,
		Known:     true,
		Age:       lastUpdate.Sub(time.Unix(threshold, 0)),
	}, nil
}

// parseEpoch accepts integer or fractional epoch seconds.
func parseEpoch(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid epoch %q", s)
	}
	return int64(f), nil
}
