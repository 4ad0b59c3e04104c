// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/listview"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().String("collection", "", "restrict to one collection id")
	cmd.Flags().String("search", "", "substring search")
	cmd.Flags().Int("page", 1, "page number (1-based)")
	cmd.Flags().Int("limit", store.DefaultLimit, "page size")
	cmd.Flags().String("sort", "", "sort key")
	cmd.Flags().String("dir", "desc", "sort direction: asc or desc")
	cmd.Flags().String("from", "", "created on or after YYYY-MM-DD")
	cmd.Flags().String("to", "", "created on or before YYYY-MM-DD")
	cmd.Flags().Bool("json", false, "output as JSON")
}

func listQueryFromFlags(cmd *cobra.Command) types.ListQuery {
	collection, _ := cmd.Flags().GetString("collection")
	search, _ := cmd.Flags().GetString("search")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	sortKey, _ := cmd.Flags().GetString("sort")
	sortDir, _ := cmd.Flags().GetString("dir")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return types.ListQuery{
		CollectionID: collection,
		Page:         page,
		Limit:        limit,
		Search:       search,
		SortKey:      sortKey,
		SortDir:      sortDir,
		StartDate:    from,
		EndDate:      to,
	}
}

// loadView fetches one page into a list view bound to topic. The caller
// closes the view.
func loadView[T syncbus.Record](ctx context.Context, topic *syncbus.Topic[T], fetch listview.Fetcher[T], q types.ListQuery, opts ...listview.Option[T]) (*listview.View[T], error) {
	view := listview.New(topic, fetch, opts...)
	if err := view.Load(ctx, q); err != nil {
		view.Close()
		return nil, err
	}
	return view, nil
}

// findByID pages through fetch until every id is found. The result keeps
// the order of ids.
func findByID[T syncbus.Record](ctx context.Context, fetch listview.Fetcher[T], ids []string) ([]T, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	found := make(map[string]T, len(ids))

	for page := 1; len(found) < len(want); page++ {
		p, err := fetch(ctx, types.ListQuery{Page: page, Limit: store.MaxLimit})
		if err != nil {
			return nil, err
		}
		for _, rec := range p.Items {
			if want[rec.RecordID()] {
				found[rec.RecordID()] = rec
			}
		}
		if len(p.Items) == 0 || page*store.MaxLimit >= p.TotalCount {
			break
		}
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
		}
		out = append(out, rec)
	}
	return out, nil
}

// runDelete removes victims optimistically and waits for the backend. A
// rolled-back mutation is reported as an error.
func runDelete[T syncbus.Record](ctx context.Context, w io.Writer, ctrl *mutation.Controller[T], victims []T, remove func(ctx context.Context, id string) error) error {
	m := ctrl.Delete(ctx, victims, remove)
	state, err := m.Wait(ctx)
	if state == mutation.RolledBack {
		return fmt.Errorf("delete rolled back: %w", err)
	}
	if err != nil {
		return err
	}
	for _, v := range victims {
		fmt.Fprintf(w, "deleted %s\n", v.RecordID())
	}
	fmt.Fprintf(w, "\n%d deleted\n", len(victims))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
