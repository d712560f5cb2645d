package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/blackwell-systems/aurkonsult/internal/analyzer"
	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/output"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
	"github.com/blackwell-systems/aurkonsult/internal/scanner"
	"github.com/blackwell-systems/aurkonsult/internal/store"
)

// openStore opens the database and makes sure the schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get database path: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create database schema: %w", err)
	}
	return st, nil
}

// newSyncer builds the catalog syncer. Fetches are recorded in st when it
// is not nil. The returned Download must be finished after each sync.
func newSyncer(st *store.Store) (*aur.Syncer, *output.Download, error) {
	timeout, err := cfg.FetchTimeoutDuration()
	if err != nil {
		return nil, nil, err
	}

	download := output.NewDownload(os.Stderr, "catalog")
	fetcher := aur.NewFetcher(
		aur.WithHTTPClient(&http.Client{Timeout: timeout}),
		aur.WithProgress(download.Start),
	)

	var opts []aur.SyncerOption
	if st != nil {
		opts = append(opts, aur.WithRecorder(st))
	}
	return aur.NewSyncer(fetcher, opts...), download, nil
}

// syncCatalog fetches the configured catalog once.
func syncCatalog(ctx context.Context, st *store.Store) (aur.Result, error) {
	target, err := cfg.Target()
	if err != nil {
		return aur.Result{}, err
	}
	syncer, download, err := newSyncer(st)
	if err != nil {
		return aur.Result{}, err
	}
	defer download.Finish()

	res, _, err := syncer.Sync(ctx, target)
	return res, err
}

// ensureCatalog downloads the catalog when no local copy exists yet.
func ensureCatalog(ctx context.Context, st *store.Store) error {
	target, err := cfg.Target()
	if err != nil {
		return err
	}
	if _, err := os.Stat(target.DataFile); err == nil {
		return nil
	}

	fmt.Println("No local catalog, downloading", target.URL)
	res, err := syncCatalog(ctx, st)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("failed to download catalog: %w", res.Err)
	}
	return nil
}

// newUpstream builds the client for per-package lookups.
func newUpstream() (*aur.Upstream, error) {
	timeout, err := cfg.LookupTimeoutDuration()
	if err != nil {
		return nil, err
	}
	return aur.NewUpstream(
		aur.WithBaseURL(cfg.AURURL),
		aur.WithLookupTimeout(timeout),
	), nil
}

// scanInstalled re-reads the pacman local database, stores the result and
// returns it keyed by name.
func scanInstalled(st *store.Store) (map[string]pacman.LocalPackage, scanner.Changes, error) {
	packages, changes, err := scanner.New(st, cfg.PacmanDB).ScanPackages()
	if err != nil {
		return nil, scanner.Changes{}, err
	}
	return pacman.Index(packages), changes, nil
}

// loadCatalog reads the local catalog with installed versions injected.
func loadCatalog(installed map[string]pacman.LocalPackage, quiet bool) ([]*aur.Package, error) {
	target, err := cfg.Target()
	if err != nil {
		return nil, err
	}

	var opts []aur.ReaderOption
	if cfg.Mini > 0 {
		opts = append(opts, aur.WithLimit(cfg.Mini))
	}

	var spinner *output.Spinner
	if !quiet {
		spinner = output.NewSpinner("Loading catalog")
		spinner.Start()
	}
	packages, err := aur.LoadFile(target.DataFile, installed, opts...)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		var perr *aur.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("catalog %s is corrupt (run 'aurkonsult sync'): %w", target.DataFile, err)
		}
		return nil, err
	}
	return packages, nil
}

// newEngine wraps packages in an engine using the configured language.
func newEngine(packages []*aur.Package) (*analyzer.Engine, error) {
	tag, err := cfg.Language()
	if err != nil {
		return nil, err
	}
	return analyzer.New(packages, analyzer.WithLanguage(tag)), nil
}

// prepare opens the store, scans the local database, makes sure a catalog
// exists and loads it into an engine.
func prepare(ctx context.Context, quiet bool) (*store.Store, *analyzer.Engine, map[string]pacman.LocalPackage, error) {
	st, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}

	installed, _, err := scanInstalled(st)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	if err := ensureCatalog(ctx, st); err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	packages, err := loadCatalog(installed, quiet)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	engine, err := newEngine(packages)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return st, engine, installed, nil
}

// limitView returns the first n packages, or all when n <= 0.
func limitView(packages []*aur.Package, n int) []*aur.Package {
	if n > 0 && len(packages) > n {
		return packages[:n]
	}
	return packages
}
