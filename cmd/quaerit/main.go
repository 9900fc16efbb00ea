// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/quaerit"
	"github.com/poiesic/quaerit/config"
	"github.com/poiesic/quaerit/core"
	"github.com/poiesic/quaerit/reindex"
	"github.com/poiesic/quaerit/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "quaerit",
		Usage: "Feedback-aware document retrieval engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the corpus database directory",
				Value:   "./corpus_db",
				EnvVars: []string{"QUAERIT_DB"},
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"QUAERIT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"QUAERIT_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index files or directories into the corpus",
				ArgsUsage: "PATH...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "include",
						Usage: "Glob pattern files must match (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "exclude",
						Usage: "Glob pattern for files to skip (repeatable)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Semantic search over the corpus",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return (0 means the configured default)",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Only chunks whose extracted author matches",
					},
					&cli.StringFlag{
						Name:  "location",
						Usage: "Only chunks whose extracted location matches",
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Only chunks whose extracted date matches",
					},
					&cli.StringFlag{
						Name:  "date-from",
						Usage: "Only chunks dated on or after this date",
					},
					&cli.StringFlag{
						Name:  "date-to",
						Usage: "Only chunks dated on or before this date",
					},
					&cli.Uint64Flag{
						Name:  "document",
						Usage: "Only chunks of this document ID",
					},
				},
			},
			{
				Name:      "keywords",
				Usage:     "Keyword search over chunk text",
				ArgsUsage: "TERM...",
				Action:    keywordsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of results to return (0 means the configured default)",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the corpus",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
			},
			{
				Name:   "feedback",
				Usage:  "Record relevance feedback for a chunk",
				Action: feedbackCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "chunk",
						Usage:    "Chunk ID the feedback applies to",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "score",
						Usage:    "Relevance score to add (positive promotes, negative demotes)",
						Required: true,
					},
				},
			},
			{
				Name:   "docs",
				Usage:  "List indexed documents",
				Action: docsCommand,
			},
			{
				Name:   "rm",
				Usage:  "Delete a document and everything derived from it",
				Action: rmCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "document",
						Usage:    "Document ID to delete",
						Required: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild all embeddings with the configured model",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show corpus statistics",
				Action: statsCommand,
			},
		},
	}
}

// loadConfig reads the configuration file named by --config. A missing file
// yields defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openEngine opens the corpus database with the loaded configuration. The
// --db flag overrides the file's database path when given explicitly.
func openEngine(c *cli.Context) (*quaerit.Engine, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	dbPath := cfg.Database.Path
	if c.IsSet("db") || dbPath == "" {
		dbPath = c.String("db")
	}

	engine, err := quaerit.Open(dbPath, quaerit.WithConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, cfg, nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file or directory is required")
	}

	engine, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Flags override the configured patterns
	includes := cfg.Index.Includes
	if c.IsSet("include") {
		includes = c.StringSlice("include")
	}
	excludes := cfg.Index.Excludes
	if c.IsSet("exclude") {
		excludes = c.StringSlice("exclude")
	}

	files, err := collectFiles(c.Args().Slice(), includes, excludes)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No files matched.")
		return nil
	}

	ctx := context.Background()
	bar := newBar(len(files), "Indexing")

	indexed, failed := 0, 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", file, "err", err)
			failed++
			bar.Add(1)
			continue
		}

		if _, err := engine.IndexDocument(ctx, file, string(data)); err != nil {
			slog.Warn("failed to index file", "path", file, "err", err)
			failed++
			bar.Add(1)
			continue
		}

		indexed++
		bar.Add(1)
	}

	fmt.Printf("Indexed %d documents", indexed)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	filters := &search.Filters{
		Date:       c.String("date"),
		DateFrom:   c.String("date-from"),
		DateTo:     c.String("date-to"),
		Author:     c.String("author"),
		Location:   c.String("location"),
		DocumentID: core.ID(c.Uint64("document")),
	}

	ctx := context.Background()
	results, err := engine.Search(ctx, query, c.Int("top-k"), filters)
	if err != nil {
		return err
	}

	printResults(ctx, engine, results, true)
	return nil
}

func keywordsCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one search term is required")
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	results, err := engine.KeywordSearch(ctx, c.Args().Slice(), c.Int("top-k"))
	if err != nil {
		return err
	}

	printResults(ctx, engine, results, false)
	return nil
}

func askCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()
	results, err := engine.Search(ctx, question, 0, nil)
	if err != nil {
		return err
	}

	answer, err := engine.AnswerQuestion(ctx, question, results)
	if err != nil {
		return err
	}

	fmt.Println(answer.Answer)
	fmt.Printf("\nConfidence: %.2f\n", answer.Confidence)

	if len(answer.Sources) > 0 {
		fmt.Println("Sources:")
		for _, source := range answer.Sources {
			fmt.Printf("  - %s", source.Source)
			if source.Author != "" {
				fmt.Printf(" (%s)", source.Author)
			}
			fmt.Printf(" [%.3f]\n", source.Similarity)
		}
	}
	return nil
}

func feedbackCommand(c *cli.Context) error {
	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	chunkID := core.ID(c.Uint64("chunk"))
	score := c.Float64("score")

	if err := engine.UpdateRelevanceScore(context.Background(), chunkID, score); err != nil {
		return err
	}

	fmt.Printf("Recorded feedback %+g for chunk %d\n", score, uint64(chunkID))
	return nil
}

func docsCommand(c *cli.Context) error {
	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := engine.GetDocuments(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return nil
	}

	for _, doc := range docs {
		fmt.Printf("%20d  %s  %s\n", uint64(doc.Id), doc.IngestedAt.Format("2006-01-02 15:04"), doc.Source)
	}
	return nil
}

func rmCommand(c *cli.Context) error {
	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	id := core.ID(c.Uint64("document"))
	if err := engine.DeleteDocument(context.Background(), id); err != nil {
		return err
	}

	fmt.Printf("Deleted document %d\n", uint64(id))
	return nil
}

func reindexCommand(c *cli.Context) error {
	reindexConfig := &reindex.Config{
		BatchSize:  c.Int("batch-size"),
		MaxRetries: c.Int("max-retries"),
		RetryDelay: c.Duration("retry-delay"),
	}

	if reindexConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reindexConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	reindexer := engine.NewReindexer(reindexConfig, &barProgress{})
	if err := reindexer.Run(context.Background()); err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Documents:  %d\n", stats.Documents)
	fmt.Printf("Chunks:     %d\n", stats.Chunks)
	fmt.Printf("Vectors:    %d\n", stats.Vectors)
	fmt.Printf("Dimension:  %d\n", stats.Dimension)
	fmt.Printf("Feedback:   %d\n", stats.Feedback)
	return nil
}

// printResults writes ranked results to stdout, resolving each chunk's
// parent document for its source name. Semantic results show similarity and
// adjusted scores; keyword results show the match count.
func printResults(ctx context.Context, engine *quaerit.Engine, results []*core.SearchResult, semantic bool) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	for _, result := range results {
		source := "?"
		if doc, err := engine.GetDocument(ctx, result.Chunk.DocumentId); err == nil {
			source = doc.Source
		}

		if semantic {
			fmt.Printf("%d. %s [similarity %.3f, adjusted %.3f]\n",
				result.Rank, source, result.Similarity, result.Adjusted)
		} else {
			fmt.Printf("%d. %s [%d matching]\n", result.Rank, source, int(result.Similarity))
		}

		meta := result.Chunk.Metadata
		if meta.Author != "" || meta.Date != "" || meta.Location != "" {
			fmt.Printf("   author=%q date=%q location=%q\n", meta.Author, meta.Date, meta.Location)
		}
		fmt.Printf("   chunk %d: %s\n", uint64(result.Chunk.Id), condense(result.Chunk.Text))
	}
}

// condense collapses whitespace and truncates long chunk text for terminal
// output.
func condense(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > 200 {
		return string(runes[:200]) + "..."
	}
	return text
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	// The config file's logging level applies when the flag is untouched
	if !c.IsSet("log-level") {
		if cfg, err := config.Load(c.String("config")); err == nil && cfg.Logging.Level != "" {
			levelStr = strings.ToLower(cfg.Logging.Level)
		}
	}

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
