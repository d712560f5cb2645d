package scanner

import (
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
	"github.com/blackwell-systems/aurkonsult/internal/store"
)

// Scanner manages the foreign package inventory read from the pacman
// local database.
type Scanner struct {
	store  *store.Store
	dbPath string
}

// New creates a new Scanner instance with the given store. An empty dbPath
// means pacman.DefaultDBPath.
func New(store *store.Store, dbPath string) *Scanner {
	if dbPath == "" {
		dbPath = pacman.DefaultDBPath
	}
	return &Scanner{store: store, dbPath: dbPath}
}

// DBPath returns the pacman database root being scanned.
func (s *Scanner) DBPath() string {
	return s.dbPath
}
