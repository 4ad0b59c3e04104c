// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/store"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the backend's source document library",
}

var libraryImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import source documents into the backend store",
	Long: `Import reads a YAML list of source documents and upserts them into the
backend's SQLite store. An entry may carry its extracted text inline
(full_text) or point at a text file (full_text_file, relative to FILE);
the text is then served to synthesis runs through getFileContent.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryImport,
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.Store.Path = path
	}

	st, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	summary, err := st.ImportLibrary(context.Background(), args[0], os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d documents failed to import", summary.Failed)
	}
	return nil
}

func init() {
	libraryImportCmd.Flags().String("db", "", "SQLite database path (overrides store.path)")

	libraryCmd.AddCommand(libraryImportCmd)
	rootCmd.AddCommand(libraryCmd)
}
