package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shahcompbio/genedb/internal/genemodel"
	"github.com/shahcompbio/genedb/internal/query"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run overlap, containment, or nearest-point queries",
	}
	cmd.AddCommand(newQuerySubCmd("overlapping", "genes/transcripts overlapping [start,end]"))
	cmd.AddCommand(newQuerySubCmd("contained", "genes/transcripts contained in [start,end]"))
	cmd.AddCommand(newQuerySubCmd("nearest", "genes/transcripts nearest a point"))
	return cmd
}

func newQuerySubCmd(kind, short string) *cobra.Command {
	var kindFlag string // "genes" or "transcripts"

	cmd := &cobra.Command{
		Use:   kind + " <chrom> <start> [end]",
		Short: short,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			engine, err := query.NewEngine(store, logger)
			if err != nil {
				return fmt.Errorf("genedb: build query engine: %w", err)
			}

			chrom := args[0]
			start, err := parseCoord(args[1])
			if err != nil {
				return err
			}
			end := start
			if len(args) == 3 {
				end, err = parseCoord(args[2])
				if err != nil {
					return err
				}
			}

			switch kind {
			case "overlapping":
				return printQueryResult(kindFlag,
					engine.FindOverlappingGenes(chrom, start, end),
					engine.FindOverlappingTranscripts(chrom, start, end))
			case "contained":
				return printQueryResult(kindFlag,
					engine.FindContainedGenes(chrom, start, end),
					engine.FindContainedTranscripts(chrom, start, end))
			case "nearest":
				return printQueryResult(kindFlag,
					engine.FindNearestGenes(chrom, start),
					engine.FindNearestTranscripts(chrom, start))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kindFlag, "type", "genes", "genes or transcripts")
	return cmd
}

func printQueryResult(kindFlag string, genes []genemodel.Gene, transcripts []genemodel.Transcript) error {
	if kindFlag == "transcripts" {
		for _, t := range transcripts {
			fmt.Printf("%s\t%s\t%d\t%d\n", t.ID, t.GeneID, t.Start, t.End)
		}
		return nil
	}
	for _, g := range genes {
		fmt.Printf("%s\t%s\t%d\t%d\n", g.ID, g.Name, g.Start, g.End)
	}
	return nil
}

func parseCoord(s string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("genedb: invalid coordinate %q: %w", s, err)
	}
	return n, nil
}
