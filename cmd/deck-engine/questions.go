// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deck-engine/internal/backend"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/listview"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/questions"
	"github.com/pdiddy/deck-engine/internal/workflow"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question bank",
}

// --- list subcommand ---

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List question-bank entries",
	Long: `List fetches one page of questions. --bloom restricts the listing to
one cognitive level (C1_REMEMBER ... C6_CREATE); "All" disables the filter.
Sort keys: createdAt, updatedAt, bloomLevel, questionText.`,
	RunE: runQuestionsList,
}

func runQuestionsList(cmd *cobra.Command, args []string) error {
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
	q.BloomFilter, _ = cmd.Flags().GetString("bloom")
	var opts []listview.Option[types.QuestionRecord]
	if q.CollectionID != "" {
		opts = append(opts, listview.WithFilter(listview.QuestionsInCollection(q.CollectionID)))
	}
	opts = append(opts, listview.WithLogger[types.QuestionRecord](logger))

	view, err := loadView(ctx, bus.Questions, client.ListQuestions, q, opts...)
	if err != nil {
		return err
	}
	defer view.Close()

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSON(os.Stdout, types.Page[types.QuestionRecord]{Items: view.Items(), TotalCount: view.TotalCount()})
	}
	printQuestions(os.Stdout, view.Items(), view.TotalCount())
	return nil
}

func printQuestions(w io.Writer, recs []types.QuestionRecord, total int) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No questions found.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-14s  %-50s  %s\n", "ID", "Bloom", "Question", "Collection")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range recs {
		fmt.Fprintf(w, "%-36s  %-14s  %-50s  %s\n",
			r.ID, r.BloomLevel, truncate(r.Question, 50), r.CollectionID)
	}
	fmt.Fprintf(w, "\n%d of %d questions\n", len(recs), total)
}

// --- add subcommand ---

var questionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a question to a collection",
	Long: `Add saves one question-bank entry. It is announced on the event bus
only after the backend confirms it.`,
	RunE: runQuestionsAdd,
}

func runQuestionsAdd(cmd *cobra.Command, args []string) error {
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

	collection, _ := cmd.Flags().GetString("collection")
	question, _ := cmd.Flags().GetString("question")
	answer, _ := cmd.Flags().GetString("answer")
	explanation, _ := cmd.Flags().GetString("explanation")
	bloom, _ := cmd.Flags().GetString("bloom")
	language, _ := cmd.Flags().GetString("language")
	draft := types.QuestionRecord{
		CollectionID: collection,
		BloomLevel:   types.BloomLevel(bloom),
		Question:     question,
		Answer:       answer,
		Explanation:  explanation,
		Language:     language,
	}

	ctrl := mutation.NewController(bus.Questions, failureNotifier(os.Stderr), mutation.WithLogger(logger))
	rec, err := ctrl.Save(ctx, func(ctx context.Context) (types.QuestionRecord, error) {
		return client.SaveQuestion(ctx, draft)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "saved question %s (%s)\n", rec.ID, rec.BloomLevel)
	return nil
}

// --- generate subcommand ---

var questionsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate questions from a library document",
	Long: `Generate asks the generation provider for questions about one library
document at the given Bloom level, then saves each question to the
collection. Every saved question is announced on the event bus as soon as
the backend confirms it. The document's extracted full text is used when
available, its abstract otherwise.`,
	RunE: runQuestionsGenerate,
}

func runQuestionsGenerate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return err
	}
	ctx := context.Background()

	docID, _ := cmd.Flags().GetString("document")
	docs, err := client.Documents(ctx, []string{docID})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("document %s not found", docID)
	}

	var gen llm.Generator = client
	if local, _ := cmd.Flags().GetBool("local-ai"); local {
		router, err := newRouter(ctx, cfg.AI, logger)
		if err != nil {
			return err
		}
		if router == nil {
			return fmt.Errorf("--local-ai needs at least one provider API key")
		}
		gen = router
	}

	bus, _, closeBus, err := newBus(ctx, cfg.Sync, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	req := questionRequestFromFlags(cmd, cfg.AI)
	req.Document = docs[0]

	ctrl := mutation.NewController(bus.Questions, failureNotifier(os.Stderr), mutation.WithLogger(logger))
	g := questions.New(gen,
		harvest.New(client, harvest.WithMaxChars(cfg.Harvest.MaxChars), harvest.WithLogger(logger)),
		ctrl, client.SaveQuestion, logger)

	var saved []types.QuestionRecord
	runner := workflow.New(cfg.Workflow.Timeout, logger)
	runErr := runner.Run(ctx, "generate questions", func(ctx context.Context) error {
		var err error
		saved, err = g.Generate(ctx, req)
		return err
	})
	// After a timeout fn may still be writing saved.
	if !errors.Is(runErr, workflow.ErrTimeout) && len(saved) > 0 {
		printQuestions(os.Stdout, saved, len(saved))
	}
	return runErr
}

func questionRequestFromFlags(cmd *cobra.Command, ai types.AIConfig) questions.Request {
	collection, _ := cmd.Flags().GetString("collection")
	bloom, _ := cmd.Flags().GetString("bloom")
	count, _ := cmd.Flags().GetInt("count")
	extra, _ := cmd.Flags().GetString("context")
	language, _ := cmd.Flags().GetString("language")
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = ai.Provider
	}
	return questions.Request{
		CollectionID: collection,
		BloomLevel:   types.BloomLevel(bloom),
		Count:        count,
		Context:      extra,
		Language:     language,
		Provider:     provider,
	}
}

// --- delete subcommand ---

var questionsDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete questions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuestionsDelete,
}

func runQuestionsDelete(cmd *cobra.Command, args []string) error {
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

	victims, err := findByID[types.QuestionRecord](ctx, client.ListQuestions, splitIDs(args))
	if err != nil {
		return err
	}

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	ctrl := mutation.NewController(bus.Questions, failureNotifier(os.Stderr),
		mutation.WithConcurrency(concurrency), mutation.WithLogger(logger))
	return runDelete(ctx, os.Stdout, ctrl, victims, client.DeleteQuestion)
}

func init() {
	addListFlags(questionsListCmd)
	questionsListCmd.Flags().String("bloom", "", "bloom level filter (e.g. C2_UNDERSTAND, All)")

	questionsAddCmd.Flags().String("collection", "", "collection id (required)")
	questionsAddCmd.Flags().String("question", "", "question text (required)")
	questionsAddCmd.Flags().String("answer", "", "correct answer")
	questionsAddCmd.Flags().String("explanation", "", "answer explanation")
	questionsAddCmd.Flags().String("bloom", string(types.BloomRemember), "bloom level")
	questionsAddCmd.Flags().String("language", "English", "question language")
	_ = questionsAddCmd.MarkFlagRequired("collection")
	_ = questionsAddCmd.MarkFlagRequired("question")

	questionsGenerateCmd.Flags().String("document", "", "library document id (required)")
	questionsGenerateCmd.Flags().String("collection", "", "collection id (default: the document id)")
	questionsGenerateCmd.Flags().String("bloom", string(types.BloomRemember), "bloom level")
	questionsGenerateCmd.Flags().Int("count", questions.DefaultCount, "number of questions")
	questionsGenerateCmd.Flags().String("context", "", "additional instructions for the provider")
	questionsGenerateCmd.Flags().String("language", "English", "question language")
	questionsGenerateCmd.Flags().String("provider", "", "generation provider (default: ai.provider)")
	questionsGenerateCmd.Flags().Bool("local-ai", false, "call providers directly instead of the backend proxy")
	_ = questionsGenerateCmd.MarkFlagRequired("document")

	questionsDeleteCmd.Flags().Int("concurrency", mutation.DefaultConcurrency, "parallel backend deletes")

	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsAddCmd)
	questionsCmd.AddCommand(questionsGenerateCmd)
	questionsCmd.AddCommand(questionsDeleteCmd)
	rootCmd.AddCommand(questionsCmd)
}
