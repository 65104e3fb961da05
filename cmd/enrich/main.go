package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"catalog/internal/cmdutil"
	"catalog/internal/config"
	"catalog/internal/enrich"
	"catalog/internal/enrich/openai"
	"catalog/internal/mapping"
	"catalog/internal/storage"
)

// main fills empty name/description/url_key fields of a catalog CSV with
// generated copy. OPENAI_API_KEY must be set (directly or via .env).
func main() {
	var (
		cfgPath        string
		limit          int
		metricsBackend string
	)
	flag.StringVar(&cfgPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	flag.IntVar(&limit, "limit", 0, "enrich only the first N rows and write <output>_test.csv")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend to use (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	cmdutil.LoadEnv()

	p, err := cmdutil.LoadPipeline(cfgPath, os.Stderr)
	if err != nil {
		fatalf("%v", err)
	}

	gen, err := openai.New(os.Getenv("OPENAI_API_KEY"), openai.Options{
		Model:        p.Enrich.Model,
		SystemPrompt: p.Enrich.SystemPrompt,
		MaxTokens:    p.Enrich.MaxTokens,
		Temperature:  p.Enrich.Temperature,
		Retries:      2,
		Backoff:      2 * p.EnrichDelay(),
	})
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := cmdutil.NewRunID()
	shutdown := cmdutil.SetupMetrics(ctx, cmdutil.MetricsOptions{
		Backend: metricsBackend,
		Job:     p.Job + "_enrich",
		RunID:   runID,
		Verbose: *verbose,
	})
	defer shutdown()

	if err := run(ctx, p, gen, limit, log.Default()); err != nil {
		log.Printf("enrich: %v", err)
		shutdown()
		os.Exit(1)
	}
}

// run reads the catalog, enriches it and writes the result, checkpointing
// through the same sink.
func run(ctx context.Context, p config.Pipeline, gen enrich.Generator, limit int, logger *log.Logger) error {
	mt, err := mapping.Load(p.Mapping.Path, p.Mapping.Encoding)
	if err != nil {
		return err
	}
	prompts := mt.Prompts()
	for field, tmpl := range p.Enrich.Prompts {
		prompts[field] = tmpl
	}

	in, err := storage.ReadCSV(p.Enrich.Input)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.Enrich.Input, err)
	}

	out := p.Enrich.Output
	if limit > 0 {
		out = enrich.TestOutputPath(out)
	}
	sink, err := storage.New(ctx, storage.Config{Kind: "csv", Path: out, Options: p.Output.Options})
	if err != nil {
		return err
	}
	defer sink.Close()

	e := enrich.New(gen, enrich.Options{
		Fields:          p.Enrich.Fields,
		Prompts:         prompts,
		Delay:           p.EnrichDelay(),
		CheckpointEvery: p.Enrich.CheckpointEvery,
		Limit:           limit,
		ContextColumn:   p.Output.ContextColumn,
		Logger:          logger,
	})
	table, st, err := e.Run(ctx, in, sink.Write)
	if err != nil {
		return err
	}
	if err := sink.Write(ctx, table); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Printf("stage=enrich_done output=%s rows=%d generated=%d failed=%d", out, st.Rows, st.Generated, st.Failed)
	return nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
