package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog/internal/assembler"
	"catalog/internal/catalogerr"
	"catalog/internal/cmdutil"
	"catalog/internal/config"
	"catalog/internal/mapping"
	"catalog/internal/productctx"
	"catalog/internal/sizes"
	"catalog/internal/storage"
	"catalog/internal/transformer"

	// register the non-default sinks with the storage factory.
	_ "catalog/internal/storage/mssql"
	_ "catalog/internal/storage/postgres"
	_ "catalog/internal/storage/sqlite"
	_ "catalog/internal/storage/xlsx"
)

// main builds the global catalog from the supplier directories named in the
// pipeline config and writes it to the configured sink.
func main() {
	var (
		cfgPath        string
		metricsBackend string
		ddTags         string
		validate       bool
	)
	flag.StringVar(&cfgPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend to use (datadog, none); defaults to $METRICS_BACKEND")
	flag.StringVar(&ddTags, "dd-tags", "", "extra comma-separated Datadog tags; defaults to $METRICS_TAGS")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	cmdutil.LoadEnv()

	p, err := cmdutil.LoadPipeline(cfgPath, os.Stderr)
	if err != nil {
		fatalf("%v", err)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	runID := cmdutil.NewRunID()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := cmdutil.SetupMetrics(ctx, cmdutil.MetricsOptions{
		Backend: metricsBackend,
		Job:     p.Job,
		RunID:   runID,
		Tags:    ddTags,
		Verbose: *verbose,
	})
	defer shutdown()

	if *verbose {
		log.Printf("pipeline: run=%s source=%s mapping=%s output=%s", runID, p.Source.Dir, p.Mapping.Path, p.Output.Kind)
	}

	start := time.Now()
	sum, err := run(ctx, p, runID, log.Default())
	if err != nil {
		if catalogerr.IsConfig(err) {
			log.Printf("config error: %v", err)
		} else {
			log.Printf("%v", err)
		}
		shutdown()
		os.Exit(1)
	}
	if *verbose {
		log.Printf("completed in %s rows=%d", time.Since(start).Truncate(time.Millisecond), sum.Rows)
	}
}

// run loads the mapping, size and context tables, assembles the catalog and
// writes it. Load failures come back as *catalogerr.ConfigError.
func run(ctx context.Context, p config.Pipeline, runID string, logger *log.Logger) (assembler.Summary, error) {
	mt, err := mapping.Load(p.Mapping.Path, p.Mapping.Encoding)
	if err != nil {
		return assembler.Summary{}, err
	}
	ct, err := mapping.LoadContext(p.Mapping.ContextPath, p.Mapping.Encoding)
	if err != nil {
		return assembler.Summary{}, err
	}
	scfg, err := sizes.LoadConfig(p.Sizes.Path)
	if err != nil {
		return assembler.Summary{}, err
	}

	sc := sizes.New(scfg)
	sc.Logger = logger
	ce := productctx.NewExtractor(ct)
	ce.Logger = logger

	tr := transformer.New(mt, sc, ce, transformer.Options{
		MultiSourceFields: p.Transform.MultiSourceFields,
		HintFields:        p.Transform.HintFields,
		SupplierColumn:    p.Output.SupplierColumn,
		ContextColumn:     p.Output.ContextColumn,
	})
	a := assembler.New(tr, mt, ce, assembler.Options{
		AllFiles:   p.Source.AllFiles,
		Workers:    p.Runtime.Workers,
		DedupeKeys: p.Output.DedupeKeys,
		CSV:        p.Source.Options,
		Logger:     logger,
	})
	a.RunID = runID

	sink, err := storage.New(ctx, storage.Config{
		Kind:    p.Output.Kind,
		Path:    p.Output.Path,
		DSN:     os.ExpandEnv(p.Output.DSN),
		Table:   p.Output.Table,
		Options: p.Output.Options,
	})
	if err != nil {
		return assembler.Summary{}, fmt.Errorf("open sink: %w", err)
	}
	defer sink.Close()

	return a.Run(ctx, p.Source.Dir, sink)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
