// Command report loads the mortality table and prints the year series, the
// donut summary and the feature matrix shape for one selection.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"mortality/internal/api"
	"mortality/internal/cache"
	"mortality/internal/config"
	"mortality/internal/engine"
	"mortality/internal/logger"
	"mortality/internal/report"
)

func main() {
	config.LoadEnvFile()
	cfg := config.Load()

	var (
		dataPath    = flag.String("data", cfg.DataPath, "path to the mortality CSV")
		year        = flag.String("year", "1999", "years, comma-separated or a-b ranges; empty for all")
		state       = flag.String("state", "6", "state codes; empty for all")
		county      = flag.String("county", "6073", "county codes; empty for all")
		age         = flag.String("age", "85+ years", "age groups, comma-separated; empty for all")
		cause       = flag.String("cause", "", "cause of death name; empty for all")
		causeCode   = flag.String("cause-code", "", "cause of death codes, comma-separated; empty for all")
		featState   = flag.String("feature-state", "6", "state codes for the feature matrix; empty for all")
		top         = flag.Int("top", cfg.DonutTopN, "named causes in the donut's inner ring")
		cacheFormat = flag.String("cache-format", cfg.CacheFormat, "write a cleaned copy: csv, arrow or sqlite")
		cachePath   = flag.String("cache-path", cfg.CachePath, "path of the cleaned copy")
		logLevel    = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger.InitGlobal(logger.Config{Level: *logLevel, Pretty: true, Output: os.Stderr})

	cfg.DataPath = *dataPath
	cfg.DonutTopN = *top
	cfg.CacheFormat = strings.ToLower(*cacheFormat)
	cfg.CachePath = *cachePath
	if err := cfg.Validate(); err != nil {
		fail(err)
	}

	q := url.Values{}
	for name, v := range map[string]string{
		"year": *year, "state": *state, "county": *county,
		"age": *age, "cause": *cause, "cause_code": *causeCode,
	} {
		if v != "" {
			q.Set(name, v)
		}
	}
	spec, err := api.ParseSpec(q)
	if err != nil {
		fail(err)
	}
	featureSpec, err := api.ParseSpec(url.Values{"state": {*featState}})
	if err != nil {
		fail(err)
	}

	if err := run(cfg, report.Options{Spec: spec, FeatureSpec: featureSpec, TopN: cfg.DonutTopN}); err != nil {
		fail(err)
	}
}

func run(cfg *config.Config, opts report.Options) error {
	cs, err := engine.LoadColumnar(cfg.DataPath)
	if err != nil {
		return err
	}

	w, err := cache.New(cfg.CacheFormat, cfg.CachePath)
	if err != nil {
		return err
	}
	if w != nil {
		if err := w.Write(context.Background(), cs); err != nil {
			return fmt.Errorf("write %s copy: %w", w.Format(), err)
		}
	}

	r, err := report.Build(cs, cs.Universe(), opts)
	if err != nil {
		return err
	}
	return report.Write(os.Stdout, r)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "report: %v\n", err)
	os.Exit(1)
}
