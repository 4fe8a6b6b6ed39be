package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/shahcompbio/genedb/internal/genemodel"
)

// defaultPromoterWindow returns the configured promoter window, or
// coordinate.DefaultPromoter when unset.
func defaultPromoterWindow() int64 {
	if w := viper.GetInt64("promoter_window"); w > 0 {
		return w
	}
	return 2000
}

// openStore builds a finalized Store from whichever of --snapshot,
// --duckdb, or --gtf is configured, in that order of precedence.
func openStore() (*genemodel.Store, error) {
	if path := viper.GetString("snapshot"); path != "" {
		color.Cyan("loading snapshot %s", path)
		store, err := genemodel.Load(path)
		if err != nil {
			return nil, fmt.Errorf("genedb: load snapshot: %w", err)
		}
		return store, nil
	}

	store := genemodel.New(logger)

	if path := viper.GetString("duckdb"); path != "" {
		color.Cyan("loading duckdb %s", path)
		loader, err := genemodel.NewDuckDBLoader(path)
		if err != nil {
			return nil, fmt.Errorf("genedb: open duckdb: %w", err)
		}
		defer loader.Close()
		if err := loader.LoadAll(store); err != nil {
			return nil, fmt.Errorf("genedb: load duckdb: %w", err)
		}
	} else if path := viper.GetString("gtf"); path != "" {
		color.Cyan("loading gtf %s", path)
		if err := loadGTFFile(store, path); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("genedb: one of --snapshot, --duckdb, or --gtf is required")
	}

	if err := store.Finalize(); err != nil {
		return nil, fmt.Errorf("genedb: finalize: %w", err)
	}
	stats := store.Stats()
	color.Green("loaded %d genes, %d transcripts, %d exons across %d chromosomes",
		stats.Genes, stats.Transcripts, stats.Exons, stats.Chromosomes)
	return store, nil
}

func loadGTFFile(store *genemodel.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("genedb: open gtf: %w", err)
	}
	defer f.Close()

	l := &genemodel.GTFLoader{Progress: func(n int) {
		if logger != nil {
			logger.Debug("gtf load progress", zap.Int("lines", n))
		}
	}}

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		return l.LoadGzip(store, func() (io.ReadCloser, error) {
			return os.Open(path)
		}, true)
	}
	return l.Load(store, r)
}
