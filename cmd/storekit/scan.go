package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/storekit/internal"
)

var scanCatalogPath string

var scanCmd = &cobra.Command{
	Use:   "scan <file>...",
	Short: "Catalog loaded objects in SQLite",
	Long:  "Load every object from the given files and record fingerprints, key identifiers, and trust flags in a SQLite catalog.",
	Example: `  storekit scan certs/*.pem
  storekit scan bundle.p12 --catalog objects.db -p changeit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanCatalogPath, "catalog", "", "SQLite catalog path (default: config value or in-memory)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return err
	}
	catalogPath := scanCatalogPath
	if catalogPath == "" {
		catalogPath = cfg.CatalogPath
	}

	pass, err := passphraseSource()
	if err != nil {
		return err
	}

	catalog, err := internal.OpenCatalog(catalogPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := catalog.Close(); cerr != nil {
			slog.Warn("closing catalog", "error", cerr)
		}
	}()

	total := 0
	for _, path := range args {
		n, err := internal.ScanFile(catalog, path, pass)
		total += n
		if err != nil {
			slog.Error("scanning file", "path", path, "error", err)
		}
	}

	count, err := catalog.Count()
	if err != nil {
		return err
	}
	fmt.Printf("stored %d objects (%d unique) in catalog\n", total, count)
	return nil
}
