package aur

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// historyTimeout bounds the clone and log. It is longer than the lookup
// timeout because a clone transfers the whole repository.
var historyTimeout = 30 * time.Second

// HistoryEntry is one commit of a package's AUR git repository.
type HistoryEntry struct {
	Date    string
	Subject string
}

// History clones the package base's git repository without a checkout and
// returns its log, newest first. It needs git on PATH.
func (u *Upstream) History(ctx context.Context, base string) ([]HistoryEntry, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("git not found: %w", err)
	}

	dir, err := os.MkdirTemp("", "aurkonsult-git-")
	if err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}
	defer os.RemoveAll(dir)

	ctx, cancel := context.WithTimeout(ctx, historyTimeout)
	defer cancel()

	repo := u.baseURL + "/" + base + ".git"
	clone := exec.CommandContext(ctx, "git", "clone", "-qn", repo, dir)
	clone.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	clone.WaitDelay = time.Second
	if out, err := clone.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("git clone failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}

	log := exec.CommandContext(ctx, "git", "-C", dir, "log", "--pretty=format:%ad | %s", "--date=short")
	out, err := log.Output()
	if err != nil {
		return nil, fmt.Errorf("git log failed: %w", err)
	}

	return ParseHistory(string(out)), nil
}

// ParseHistory parses "date | subject" lines.
func ParseHistory(out string) []HistoryEntry {
	var entries []HistoryEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		date, subject, _ := strings.Cut(line, " | ")
		entries = append(entries, HistoryEntry{Date: date, Subject: subject})
	}
	return entries
}
