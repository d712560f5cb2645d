package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the pacman database for foreign packages",
	Long: `Read the pacman local database and store the foreign packages it lists.

A foreign package is one whose desc file records no repository validation,
which is how pacman marks packages built locally, usually from the AUR.
Every command rescans automatically; run this to see what changed since
the previous scan.`,
	Example: `  # Rescan and show changes
  aurkonsult scan

  # Use a different database root
  aurkonsult scan --pacman-db /mnt/var/lib/pacman`,
	RunE: runScan,
}

var scanDBPath string

func init() {
	scanCmd.Flags().StringVar(&scanDBPath, "pacman-db", "", "pacman database root (default from config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanDBPath != "" {
		cfg.PacmanDB = scanDBPath
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	installed, changes, err := scanInstalled(st)
	if err != nil {
		return err
	}

	fmt.Printf("✓ %d foreign packages in %s\n", len(installed), cfg.PacmanDB)
	if changes.Empty() {
		fmt.Println("No changes since the previous scan.")
		return nil
	}

	for _, name := range changes.Added {
		fmt.Printf("  + %s %s\n", name, installed[name].Version)
	}
	for _, name := range changes.Changed {
		fmt.Printf("  ~ %s %s\n", name, installed[name].Version)
	}
	for _, name := range changes.Removed {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
