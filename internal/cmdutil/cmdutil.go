// Package cmdutil holds the start-up plumbing shared by the catalog binaries.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"catalog/internal/config"
	"catalog/internal/metrics"
	"catalog/internal/metrics/datadog"
)

// LoadEnv loads .env files into the process environment. Missing files are
// not an error; variables already set win.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("env: load %s: %v", f, err)
		}
	}
}

// NewRunID returns a fresh identifier for log and metric correlation.
func NewRunID() string { return uuid.NewString() }

// LoadPipeline reads the config and prints validation issues to w. It fails
// when any issue is an error.
func LoadPipeline(path string, w io.Writer) (config.Pipeline, error) {
	p, err := config.Load(path)
	if err != nil {
		return p, err
	}
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return p, fmt.Errorf("configuration is invalid: %s", path)
	}
	return p, nil
}

// MetricsOptions selects the metrics backend. Backend falls back to
// $METRICS_BACKEND, Tags to $METRICS_TAGS.
type MetricsOptions struct {
	Backend string
	Job     string
	RunID   string
	Tags    string
	Verbose bool
}

// SetupMetrics installs the selected backend and returns its shutdown
// function. Failures degrade to the nop backend.
func SetupMetrics(ctx context.Context, opt MetricsOptions) (shutdown func()) {
	name := opt.Backend
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	tagsCSV := opt.Tags
	if tagsCSV == "" {
		tagsCSV = os.Getenv("METRICS_TAGS")
	}

	switch strings.ToLower(name) {
	case "datadog":
		tags := datadog.ParseTagsCSV(tagsCSV)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    opt.Job,
			RunID:      opt.RunID,
			Tags:       tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		log.Printf("metrics: backend=datadog job_name=%s tags=%v", opt.Job, tags)
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}
	case "", "none":
		if opt.Verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
	return func() {}
}
