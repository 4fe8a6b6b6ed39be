package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shahcompbio/genedb/internal/genemodel"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or load binary database snapshots, including s3:// paths",
	}
	cmd.AddCommand(newSnapshotSaveCmd())
	cmd.AddCommand(newSnapshotLoadCmd())
	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <path>",
		Short: "Write the currently configured store (--gtf/--duckdb) to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := genemodel.SaveTo(context.Background(), store, args[0]); err != nil {
				return fmt.Errorf("genedb: save: %w", err)
			}
			color.Green("wrote snapshot to %s", args[0])
			return nil
		},
	}
}

func newSnapshotLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <path>",
		Short: "Load a snapshot and print summary statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := genemodel.LoadFrom(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("genedb: load: %w", err)
			}
			stats := store.Stats()
			fmt.Printf("genes=%d transcripts=%d exons=%d chromosomes=%d\n",
				stats.Genes, stats.Transcripts, stats.Exons, stats.Chromosomes)
			return nil
		},
	}
}
