// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/syncbus"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print presentation and question events from other processes",
	Long: `Watch subscribes to the Redis mirror of the event bus and prints every
presentation and question event published by other deck-engine processes.
Requires sync.redis_url.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.Sync.RedisURL == "" {
		return fmt.Errorf("watch needs sync.redis_url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, mirror, closeBus, err := newBus(ctx, cfg.Sync, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	unsubscribe := subscribePrinter(os.Stdout, bus)
	defer unsubscribe()

	ready := make(chan struct{})
	go func() {
		select {
		case <-ready:
			fmt.Fprintf(os.Stderr, "Watching %s (Ctrl-C to stop)\n", mirror.Channel())
		case <-ctx.Done():
		}
	}()
	return mirror.Relay(ctx, bus.Receive, ready)
}

// subscribePrinter writes one line per event on bus to w.
func subscribePrinter(w io.Writer, bus *syncbus.Bus) func() {
	var mu sync.Mutex
	printf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	unsubPresentations := bus.Presentations.Subscribe(syncbus.Handler[types.PresentationRecord]{
		OnUpdated: func(rec types.PresentationRecord) {
			printf("%-20s  %s  %s (%d slides)\n",
				syncbus.UpdatedEvent(syncbus.EntityPresentation), rec.ID, rec.Title, rec.SlideCount)
		},
		OnDeleted: func(id string) {
			printf("%-20s  %s\n", syncbus.DeletedEvent(syncbus.EntityPresentation), id)
		},
	})
	unsubQuestions := bus.Questions.Subscribe(syncbus.Handler[types.QuestionRecord]{
		OnUpdated: func(rec types.QuestionRecord) {
			printf("%-20s  %s  %s\n",
				syncbus.UpdatedEvent(syncbus.EntityQuestion), rec.ID, truncate(rec.Question, 60))
		},
		OnDeleted: func(id string) {
			printf("%-20s  %s\n", syncbus.DeletedEvent(syncbus.EntityQuestion), id)
		},
	})
	return func() {
		unsubPresentations()
		unsubQuestions()
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
