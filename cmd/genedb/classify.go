package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahcompbio/genedb/internal/coordinate"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <gene_id> <position>",
		Short: "Classify a genome position relative to a gene's transcripts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			pos, err := parseCoord(args[1])
			if err != nil {
				return err
			}
			model := coordinate.NewModel(store, defaultPromoterWindow())
			loc, err := model.CalculateGeneLocation(args[0], pos)
			if err != nil {
				return fmt.Errorf("genedb: classify: %w", err)
			}
			fmt.Println(loc)
			return nil
		},
	}
}
