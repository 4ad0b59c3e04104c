// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/backend"
	"github.com/pdiddy/deck-engine/internal/listview"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var presentationsCmd = &cobra.Command{
	Use:   "presentations",
	Short: "List and delete saved presentations",
}

// --- list subcommand ---

var presentationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presentations",
	Long: `List fetches one page of presentation records from the backend. With
--collection only decks synthesized from that collection are shown. Sort
keys: title, createdAt, updatedAt, slidesCount.`,
	RunE: runPresentationsList,
}

func runPresentationsList(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()
	bus, _, closeBus, err := newBus(ctx, cfg.Sync, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	q := listQueryFromFlags(cmd)
	var opts []listview.Option[types.PresentationRecord]
	if q.CollectionID != "" {
		opts = append(opts, listview.WithFilter(listview.InCollection(q.CollectionID)))
	}
	opts = append(opts, listview.WithLogger[types.PresentationRecord](logger))

	view, err := loadView(ctx, bus.Presentations, client.ListPresentations, q, opts...)
	if err != nil {
		return err
	}
	defer view.Close()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, types.Page[types.PresentationRecord]{Items: view.Items(), TotalCount: view.TotalCount()})
	}
	printPresentations(os.Stdout, view.Items(), view.TotalCount())
	return nil
}

func printPresentations(w io.Writer, recs []types.PresentationRecord, total int) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No presentations found.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-40s  %-6s  %s\n", "ID", "Title", "Slides", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range recs {
		fmt.Fprintf(w, "%-36s  %-40s  %-6d  %s\n",
			r.ID, truncate(r.Title, 40), r.SlideCount, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\n%d of %d presentations\n", len(recs), total)
}

// --- delete subcommand ---

var presentationsDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete presentations",
	Long: `Delete removes presentation records and their artifacts. The removal
is announced on the event bus before the backend confirms it; if the
backend rejects a record it is announced again so every view restores it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPresentationsDelete,
}

func runPresentationsDelete(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()
	bus, _, closeBus, err := newBus(ctx, cfg.Sync, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	victims, err := findByID[types.PresentationRecord](ctx, client.ListPresentations, splitIDs(args))
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	ctrl := mutation.NewController(bus.Presentations, failureNotifier(os.Stderr),
		mutation.WithConcurrency(concurrency), mutation.WithLogger(logger))
	return runDelete(ctx, os.Stdout, ctrl, victims, client.DeletePresentation)
}

func init() {
	addListFlags(presentationsListCmd)
	presentationsDeleteCmd.Flags().Int("concurrency", mutation.DefaultConcurrency, "parallel backend deletes")

	presentationsCmd.AddCommand(presentationsListCmd)
	presentationsCmd.AddCommand(presentationsDeleteCmd)
	rootCmd.AddCommand(presentationsCmd)
}
