package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/output"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download or revalidate the AUR catalog",
	Long: `Fetch the AUR package catalog into the local cache.

When a local copy exists, a HEAD request decides whether it is still current;
if not, a conditional GET downloads the new catalog. The previous copy is only
replaced once the new one has been fully downloaded and decompressed, so a
failed sync never leaves a broken catalog behind.`,
	Example: `  # Refresh the default catalog
  aurkonsult sync

  # Refresh the extended catalog (with dependencies)
  aurkonsult sync --ext`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	target, err := cfg.Target()
	if err != nil {
		return err
	}

	res, err := syncCatalog(cmd.Context(), st)
	if err != nil {
		return err
	}

	switch res.Outcome {
	case aur.OutcomeFresh:
		fmt.Printf("✓ Catalog is up to date (%s)\n", target.DataFile)
	case aur.OutcomeUpdated:
		fmt.Printf("✓ Catalog updated: %s written to %s\n", output.FormatSize(res.Bytes), target.DataFile)
	case aur.OutcomeNotFound:
		return fmt.Errorf("catalog not found at %s", target.URL)
	default:
		if errors.Is(res.Err, aur.ErrNetwork) {
			fmt.Println("⚠ Network error, keeping the previous catalog:", res.Err)
		} else {
			fmt.Println("⚠ Server error, keeping the previous catalog:", res.Err)
		}
	}
	return nil
}
