// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deck-engine/internal/backend"
	"github.com/pdiddy/deck-engine/internal/blueprint"
	"github.com/pdiddy/deck-engine/internal/deck"
	"github.com/pdiddy/deck-engine/internal/harvest"
	"github.com/pdiddy/deck-engine/internal/llm"
	"github.com/pdiddy/deck-engine/internal/mutation"
	"github.com/pdiddy/deck-engine/internal/persist"
	"github.com/pdiddy/deck-engine/internal/synthesis"
	"github.com/pdiddy/deck-engine/internal/workflow"
	"github.com/pdiddy/deck-engine/pkg/types"
)

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Synthesize a presentation deck from source documents",
	Long: `Synthesize harvests the text of the selected documents, asks the
generation provider for a deck blueprint, renders the cover, body, and
references slides, and saves the deck through the backend.

Select documents by backend id with --documents, or supply them directly
in a YAML file with --sources. Generation goes through the backend's
aiProxy action unless --local-ai is set.`,
	RunE: runSynthesize,
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	sc, err := synthesisConfigFromFlags(cmd, cfg.AI)
	if err != nil {
		return err
	}
	format, err := exportFormat(cmd, cfg.Export)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		return err
	}

	docs, err := sourceDocuments(ctx, cmd, client)
	if err != nil {
		return err
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

	ctrl := mutation.NewController(bus.Presentations, failureNotifier(os.Stderr), mutation.WithLogger(logger))
	s := synthesis.New(
		harvest.New(client,
			harvest.WithMaxChars(cfg.Harvest.MaxChars),
			harvest.WithConcurrency(cfg.Harvest.Concurrency),
			harvest.WithLogger(logger)),
		blueprint.NewRequester(gen, cfg.AI.Provider, logger),
		persist.New(client, ctrl, logger),
		synthesis.WithFormat(format),
		synthesis.WithLogo(loadLogo(cmd, cfg.Export)),
		synthesis.WithLogger(logger),
	)

	progress := func(stage string) {
		fmt.Fprintf(os.Stderr, "... %s\n", stage)
	}

	var res *synthesis.Result
	runner := workflow.New(cfg.Workflow.Timeout, logger)
	err = runner.Run(ctx, "synthesize", func(ctx context.Context) error {
		var err error
		res, err = s.Synthesize(ctx, sc, docs, progress)
		return err
	})
	if err != nil {
		var f *blueprint.Failure
		if errors.As(err, &f) {
			fmt.Fprintf(os.Stderr, "%s\n", f.Label())
		}
		return err
	}

	if out, _ := cmd.Flags().GetString("output"); out != "" {
		if err := os.WriteFile(out, res.Deck.Data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", out)
	}
	printSynthesisResult(os.Stdout, res)
	return nil
}

func printSynthesisResult(w io.Writer, res *synthesis.Result) {
	rec := res.Record
	fmt.Fprintf(w, "Saved presentation %s\n", rec.ID)
	fmt.Fprintf(w, "  title:       %s\n", rec.Title)
	fmt.Fprintf(w, "  slides:      %d\n", rec.SlideCount)
	fmt.Fprintf(w, "  citations:   %d\n", len(res.Deck.Citations))
	fmt.Fprintf(w, "  collections: %v\n", rec.CollectionIDs)
	if rec.ArtifactKey != "" {
		fmt.Fprintf(w, "  artifact:    %s\n", rec.ArtifactKey)
	}
}

func synthesisConfigFromFlags(cmd *cobra.Command, ai types.AIConfig) (types.SynthesisConfig, error) {
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		return types.SynthesisConfig{}, fmt.Errorf("--title is required")
	}
	goal, _ := cmd.Flags().GetString("context")
	presenters, _ := cmd.Flags().GetStringSlice("presenters")
	slides, _ := cmd.Flags().GetInt("slides")
	language, _ := cmd.Flags().GetString("language")
	provider, _ := cmd.Flags().GetString("provider")
	if provider == "" {
		provider = ai.Provider
	}
	themeName, _ := cmd.Flags().GetString("theme")
	primary, _ := cmd.Flags().GetString("primary-color")
	secondary, _ := cmd.Flags().GetString("secondary-color")
	font, _ := cmd.Flags().GetString("font")

	return types.SynthesisConfig{
		Title:      title,
		Context:    goal,
		Presenters: presenters,
		Theme: types.Theme{
			Name:           themeName,
			PrimaryColor:   primary,
			SecondaryColor: secondary,
			FontFamily:     font,
		},
		SlideCount: slides,
		Language:   language,
		Provider:   provider,
	}, nil
}

func exportFormat(cmd *cobra.Command, cfg types.ExportConfig) (types.ExportFormat, error) {
	format := cfg.Format
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		format = types.ExportFormat(f)
	}
	switch format {
	case types.ExportHTML, "":
		return types.ExportHTML, nil
	case types.ExportPDF:
		if !deck.ChromeAvailable() {
			return "", fmt.Errorf("%w: install chromium or use --format html", deck.ErrPDFDependencyMissing)
		}
		return types.ExportPDF, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use html or pdf", format)
	}
}

// loadLogo reads the optional logo. A missing or unreadable file is logged
// and ignored.
func loadLogo(cmd *cobra.Command, cfg types.ExportConfig) *deck.Logo {
	path := cfg.LogoPath
	if p, _ := cmd.Flags().GetString("logo"); p != "" {
		path = p
	}
	logo, err := deck.LoadLogo(path)
	if err != nil {
		logger.Warn("logo ignored", zap.String("path", path), zap.Error(err))
		return nil
	}
	return logo
}

// sourceDocuments resolves the synthesis input from --sources or --documents.
func sourceDocuments(ctx context.Context, cmd *cobra.Command, client *backend.Client) ([]types.SourceDocument, error) {
	sourcesPath, _ := cmd.Flags().GetString("sources")
	idFlags, _ := cmd.Flags().GetStringSlice("documents")
	ids := splitIDs(idFlags)

	switch {
	case sourcesPath != "" && len(ids) > 0:
		return nil, fmt.Errorf("use either --sources or --documents, not both")
	case sourcesPath != "":
		return readSources(sourcesPath)
	case len(ids) > 0:
		return client.Documents(ctx, ids)
	default:
		return nil, fmt.Errorf("no source documents: pass --sources or --documents")
	}
}

// readSources loads a YAML list of source documents.
func readSources(path string) ([]types.SourceDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources %s: %w", path, err)
	}
	var docs []types.SourceDocument
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing sources %s: %w", path, err)
	}
	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("parsing sources %s: document %d has no id", path, i+1)
		}
	}
	return docs, nil
}

func init() {
	synthesizeCmd.Flags().String("sources", "", "YAML file listing source documents")
	synthesizeCmd.Flags().StringSlice("documents", nil, "backend document ids (comma-separated)")
	synthesizeCmd.Flags().String("title", "", "deck title")
	synthesizeCmd.Flags().String("context", "", "strategic goal for the deck")
	synthesizeCmd.Flags().StringSlice("presenters", nil, "presenter names shown on the cover")
	synthesizeCmd.Flags().Int("slides", 7, "requested total slides including cover and references")
	synthesizeCmd.Flags().String("language", "English", "output language")
	synthesizeCmd.Flags().String("provider", "", "generation provider: gemini, anthropic, or openai (default ai.provider)")
	synthesizeCmd.Flags().Bool("local-ai", false, "call providers directly instead of through the backend")
	synthesizeCmd.Flags().String("theme", "modern", "theme name")
	synthesizeCmd.Flags().String("primary-color", "#1f3a5f", "title and accent color")
	synthesizeCmd.Flags().String("secondary-color", "#333333", "body text color")
	synthesizeCmd.Flags().String("font", "Helvetica, Arial, sans-serif", "font family")
	synthesizeCmd.Flags().String("logo", "", "logo image drawn on every slide (overrides export.logo_path)")
	synthesizeCmd.Flags().String("format", "", "export format: html or pdf (default export.format)")
	synthesizeCmd.Flags().String("output", "", "also write the deck artifact to this file")

	rootCmd.AddCommand(synthesizeCmd)
}
