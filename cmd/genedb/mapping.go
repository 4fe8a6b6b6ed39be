package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahcompbio/genedb/internal/coordinate"
)

func newMapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "map <transcript_id> <tx_offset>",
		Short: "Map a transcript-local offset to a genome position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			offset, err := parseCoord(args[1])
			if err != nil {
				return err
			}
			model := coordinate.NewModel(store, defaultPromoterWindow())
			pos, err := model.CalculateGenomicPosition(args[0], offset)
			if err != nil {
				return fmt.Errorf("genedb: map: %w", err)
			}
			fmt.Println(pos)
			return nil
		},
	}
}

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions <transcript_id> <tx_start> <tx_end>",
		Short: "Map a transcript-local range to spliced genome regions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			start, err := parseCoord(args[1])
			if err != nil {
				return err
			}
			end, err := parseCoord(args[2])
			if err != nil {
				return err
			}
			model := coordinate.NewModel(store, defaultPromoterWindow())
			regions, err := model.CalculateGenomicRegions(args[0], start, end)
			if err != nil {
				return fmt.Errorf("genedb: regions: %w", err)
			}
			for _, r := range regions {
				fmt.Printf("%d\t%d\n", r.Start, r.End)
			}
			return nil
		},
	}
}
