package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shahcompbio/genedb/internal/genemodel"
)

func newLoadCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load annotation from --gtf/--duckdb and write a binary snapshot",
		Example: `  genedb load --gtf gencode.v46.annotation.gtf.gz --out gencode.gndb
  genedb load --duckdb annotations.duckdb --out annotations.gndb`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if out == "" {
				return fmt.Errorf("genedb: --out is required")
			}
			if err := genemodel.Save(store, out); err != nil {
				return fmt.Errorf("genedb: save snapshot: %w", err)
			}
			color.Green("wrote snapshot to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "snapshot output path")
	return cmd
}
