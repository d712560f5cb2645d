package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/config"
	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

var (
	dbPath     string
	configPath string
	extFlag    bool
	homeCache  bool
	logLevel   string
	logFile    string
	miniFlag   int

	// cfg is the resolved configuration, set before any subcommand runs.
	cfg *config.Config

	logCleanup = func() {}

	// RootCmd is the root command for aurkonsult
	RootCmd = &cobra.Command{
		Use:   "aurkonsult",
		Short: "Browse the AUR catalog and check installed foreign packages",
		Long: `aurkonsult keeps a local copy of the AUR package catalog and compares it
with the foreign packages installed through pacman.

The catalog is downloaded once and revalidated with conditional requests,
so repeated runs cost a HEAD request at most. Installed packages that are
older than the AUR version, newer than it, or no longer in the AUR at all
are reported by 'check'.

Quick Start:
  1. aurkonsult sync
  2. aurkonsult check

Examples:
  # Refresh the catalog
  aurkonsult sync

  # Search names and descriptions
  aurkonsult list --search electron --desc

  # Packages that need gtk3 but not qt5-base
  aurkonsult list --deps "+gtk3 -qt5-base"

  # Packages submitted since the previous sync
  aurkonsult new

  # Installed packages with a newer AUR version
  aurkonsult check --outdated

  # Everything about one package
  aurkonsult info yay --pkgbuild --comments`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := cfg.Target()
			if err != nil {
				return err
			}
			fmt.Println("aurkonsult: AUR catalog browser and foreign package checker")
			fmt.Println()
			if _, err := os.Stat(target.DataFile); os.IsNotExist(err) {
				fmt.Println("No catalog downloaded yet. Run 'aurkonsult sync' to get started.")
			} else {
				fmt.Println("Tip: Run 'aurkonsult check' to compare installed packages with the AUR.")
				fmt.Println("     Run 'aurkonsult new' to see recently submitted packages.")
			}
			fmt.Println("Run 'aurkonsult --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", "", "database path (default: ~/.aurkonsult/aurkonsult.db)")
	flags.StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/aurkonsult/config.yaml)")
	flags.BoolVar(&extFlag, "ext", false, "use the extended catalog (dependencies, licenses, keywords)")
	flags.BoolVar(&homeCache, "home-cache", false, "keep the catalog in ~/.cache instead of the temp dir")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "also write logs to this file")
	flags.IntVar(&miniFlag, "mini", 0, "load only the first N catalog records (default 100 when given without a value)")
	flags.Lookup("mini").NoOptDefVal = strconv.Itoa(config.DefaultMini)

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(syncCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(newCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(doctorCmd)
	RootCmd.AddCommand(configCmd)
}

// SetVersion records the build version for --version and the User-Agent.
func SetVersion(v string) {
	aur.Version = v
	RootCmd.Version = v
}

// Execute runs the root command
func Execute() error {
	defer func() { logCleanup() }()
	return RootCmd.Execute()
}

// loadConfig resolves the configuration from the files, the environment
// and the global flags, then initialises logging.
func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("ext") {
		c.Extended = extFlag
	}
	if flags.Changed("home-cache") {
		c.HomeCache = homeCache
	}
	if flags.Changed("log-level") {
		c.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		c.Logging.File = logFile
	}
	if flags.Changed("mini") {
		c.Mini = resolveMini(miniFlag, os.Getenv("MINI"))
	}

	if err := c.Validate(); err != nil {
		return err
	}

	_, cleanup, err := logger.Init(logger.Config{Level: c.Logging.Level, FilePath: c.Logging.File})
	if err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	logCleanup = cleanup

	cfg = c
	return nil
}

// resolveMini returns the record limit for a --mini given on the command
// line. A bare --mini takes its size from MINI when that is a number.
// MINI alone never limits the catalog.
func resolveMini(flagValue int, env string) int {
	if flagValue != config.DefaultMini || env == "" {
		return flagValue
	}
	if n, err := strconv.Atoi(env); err == nil && n >= 0 {
		return n
	}
	return flagValue
}

// appDir returns ~/.aurkonsult, creating it if needed.
func appDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dir := filepath.Join(home, ".aurkonsult")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create aurkonsult directory: %w", err)
	}
	return dir, nil
}

// getDBPath returns the database path, using the flag value or default
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aurkonsult.db"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := appDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}
