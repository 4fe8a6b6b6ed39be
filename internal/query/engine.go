// Package query builds per-chromosome interval trees over a finalized
// genemodel.Store and answers spatial queries against them.
package query

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shahcompbio/genedb/internal/genemodel"
	"github.com/shahcompbio/genedb/internal/interval"
)

// ErrNotFinalized is returned by NewEngine when given a store that has
// not been finalized.
var ErrNotFinalized = fmt.Errorf("query: store must be finalized before building an engine")

// Engine answers overlap/containment/nearest queries over a store's
// genes and transcripts, one interval.Tree per chromosome per kind.
type Engine struct {
	store *genemodel.Store

	geneTrees map[string]*interval.Tree
	txTrees   map[string]*interval.Tree
}

// NewEngine builds gene and transcript trees for every chromosome in
// store. store must already be finalized.
func NewEngine(store *genemodel.Store, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !store.Finalized() {
		return nil, ErrNotFinalized
	}

	e := &Engine{
		store:     store,
		geneTrees: make(map[string]*interval.Tree),
		txTrees:   make(map[string]*interval.Tree),
	}

	for _, chrom := range store.Chromosomes() {
		geneIdx := store.GenesByChromosome(chrom)
		ivs := make([]interval.Interval, len(geneIdx))
		for i, gi := range geneIdx {
			g := store.GeneAt(gi)
			ivs[i] = interval.Interval{ID: uint32(gi), Start: g.Start, End: g.End}
		}
		tree, err := interval.Build(ivs)
		if err != nil {
			return nil, fmt.Errorf("query: build gene tree for %s: %w", chrom, err)
		}
		e.geneTrees[chrom] = tree

		txIdx := store.TranscriptsByChromosome(chrom)
		tivs := make([]interval.Interval, len(txIdx))
		for i, ti := range txIdx {
			t := store.TranscriptAt(ti)
			tivs[i] = interval.Interval{ID: uint32(ti), Start: t.Start, End: t.End}
		}
		ttree, err := interval.Build(tivs)
		if err != nil {
			return nil, fmt.Errorf("query: build transcript tree for %s: %w", chrom, err)
		}
		e.txTrees[chrom] = ttree

		log.Debug("query: built chromosome trees",
			zap.String("chrom", chrom), zap.Int("genes", len(ivs)), zap.Int("transcripts", len(tivs)))
	}

	return e, nil
}

func (e *Engine) genesFromIDs(ids []uint32) []genemodel.Gene {
	if len(ids) == 0 {
		return nil
	}
	out := make([]genemodel.Gene, len(ids))
	for i, id := range ids {
		out[i] = e.store.GeneAt(int32(id))
	}
	return out
}

func (e *Engine) transcriptsFromIDs(ids []uint32) []genemodel.Transcript {
	if len(ids) == 0 {
		return nil
	}
	out := make([]genemodel.Transcript, len(ids))
	for i, id := range ids {
		out[i] = e.store.TranscriptAt(int32(id))
	}
	return out
}

// FindOverlappingGenes returns every gene on chrom overlapping [start, end].
// An unknown chromosome returns an empty result, not an error.
func (e *Engine) FindOverlappingGenes(chrom string, start, end int64) []genemodel.Gene {
	tree, ok := e.geneTrees[chrom]
	if !ok {
		return nil
	}
	return e.genesFromIDs(tree.FindOverlapping(start, end))
}

// FindContainedGenes returns every gene on chrom contained within [start, end].
func (e *Engine) FindContainedGenes(chrom string, start, end int64) []genemodel.Gene {
	tree, ok := e.geneTrees[chrom]
	if !ok {
		return nil
	}
	return e.genesFromIDs(tree.FindContained(start, end))
}

// FindNearestGenes returns the genes on chrom closest to pos, possibly
// more than one on a tie.
func (e *Engine) FindNearestGenes(chrom string, pos int64) []genemodel.Gene {
	tree, ok := e.geneTrees[chrom]
	if !ok {
		return nil
	}
	return e.genesFromIDs(tree.FindNearest(pos))
}

// FindOverlappingTranscripts returns every transcript on chrom overlapping [start, end].
func (e *Engine) FindOverlappingTranscripts(chrom string, start, end int64) []genemodel.Transcript {
	tree, ok := e.txTrees[chrom]
	if !ok {
		return nil
	}
	return e.transcriptsFromIDs(tree.FindOverlapping(start, end))
}

// FindContainedTranscripts returns every transcript on chrom contained within [start, end].
func (e *Engine) FindContainedTranscripts(chrom string, start, end int64) []genemodel.Transcript {
	tree, ok := e.txTrees[chrom]
	if !ok {
		return nil
	}
	return e.transcriptsFromIDs(tree.FindContained(start, end))
}

// FindNearestTranscripts returns the transcripts on chrom closest to pos.
func (e *Engine) FindNearestTranscripts(chrom string, pos int64) []genemodel.Transcript {
	tree, ok := e.txTrees[chrom]
	if !ok {
		return nil
	}
	return e.transcriptsFromIDs(tree.FindNearest(pos))
}
