package genemodel

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/shahcompbio/genedb/internal/interval"
)

// Error kinds surfaced by the store. ErrInvalidInterval is the same
// sentinel interval.Build returns, since both a malformed tree input
// and a malformed gene/transcript row are the same failure mode from a
// caller's point of view.
var (
	ErrInvalidInterval  = interval.ErrInvalidInterval
	ErrDuplicateID      = errors.New("genemodel: duplicate id")
	ErrUnknownParent    = errors.New("genemodel: unknown parent gene")
	ErrInconsistentGene = errors.New("genemodel: inconsistent gene attributes")
	ErrNotFound         = errors.New("genemodel: not found")

	errImmutable = errors.New("genemodel: store is immutable after Finalize")
)

// Stats summarizes a store's contents for logging and CLI reporting.
type Stats struct {
	Genes       int
	Transcripts int
	Exons       int
	Chromosomes int
}

// Store owns the columnar gene/transcript tables. It is append-only
// until Finalize is called, after which it is immutable: Finalize
// sorts exons, recomputes gene bounds, validates invariants, and
// builds the chromosome indices query.Engine reads. A store that
// fails to finalize is left unchanged and mutable: more rows can be
// added and Finalize retried. Rows already added cannot be removed or
// replaced.
type Store struct {
	genes       []Gene
	transcripts []Transcript

	geneIndex map[string]int32
	txIndex   map[string]int32

	geneChrom map[string][]int32 // chromosome -> gene indices, set by Finalize
	txChrom   map[string][]int32 // chromosome -> transcript indices, set by Finalize

	finalized bool
	log       *zap.Logger
}

// New creates an empty, mutable Store. A nil logger is replaced with
// a no-op logger.
func New(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		geneIndex: make(map[string]int32),
		txIndex:   make(map[string]int32),
		log:       log,
	}
}

// AddGene appends a gene row. It is used only by loaders; duplicate
// IDs are rejected.
func (s *Store) AddGene(g Gene) error {
	if s.finalized {
		return fmt.Errorf("genemodel: add gene %q: %w", g.ID, errImmutable)
	}
	if _, exists := s.geneIndex[g.ID]; exists {
		return fmt.Errorf("genemodel: gene %q: %w", g.ID, ErrDuplicateID)
	}
	s.geneIndex[g.ID] = int32(len(s.genes))
	s.genes = append(s.genes, g)
	return nil
}

// AddTranscript appends a transcript row and its exons under an
// already-added gene. Duplicate transcript IDs and unknown gene_ids
// are rejected.
func (s *Store) AddTranscript(t Transcript, exons []Exon) error {
	if s.finalized {
		return fmt.Errorf("genemodel: add transcript %q: %w", t.ID, errImmutable)
	}
	if _, exists := s.txIndex[t.ID]; exists {
		return fmt.Errorf("genemodel: transcript %q: %w", t.ID, ErrDuplicateID)
	}
	if _, ok := s.geneIndex[t.GeneID]; !ok {
		return fmt.Errorf("genemodel: transcript %q gene %q: %w", t.ID, t.GeneID, ErrUnknownParent)
	}
	t.Exons = append([]Exon(nil), exons...)
	s.txIndex[t.ID] = int32(len(s.transcripts))
	s.transcripts = append(s.transcripts, t)
	return nil
}

// Finalize validates the store and freezes it for querying. It is
// atomic: on error, none of the store's rows are modified and the
// store remains mutable. Calling Finalize twice on an already-final
// store is a no-op.
func (s *Store) Finalize() error {
	if s.finalized {
		return nil
	}

	sortedExons := make([][]Exon, len(s.transcripts))
	for i, t := range s.transcripts {
		sorted := append([]Exon(nil), t.Exons...)
		sort.Slice(sorted, func(a, b int) bool { return sorted[a].Start < sorted[b].Start })
		sortedExons[i] = sorted
	}

	geneHasTx := make([]bool, len(s.genes))
	geneStart := make([]int64, len(s.genes))
	geneEnd := make([]int64, len(s.genes))
	for i, t := range s.transcripts {
		gi, ok := s.geneIndex[t.GeneID]
		if !ok {
			return fmt.Errorf("genemodel: transcript %q gene %q: %w", t.ID, t.GeneID, ErrUnknownParent)
		}
		if !geneHasTx[gi] || t.Start < geneStart[gi] {
			geneStart[gi] = t.Start
		}
		if !geneHasTx[gi] || t.End > geneEnd[gi] {
			geneEnd[gi] = t.End
		}
		geneHasTx[gi] = true
	}

	for i, t := range s.transcripts {
		exons := sortedExons[i]
		if t.Start > t.End {
			return fmt.Errorf("genemodel: transcript %q: %w", t.ID, ErrInvalidInterval)
		}
		for _, e := range exons {
			if e.Start > e.End {
				return fmt.Errorf("genemodel: transcript %q exon: %w", t.ID, ErrInvalidInterval)
			}
			if e.Start < t.Start || e.End > t.End {
				return fmt.Errorf("genemodel: transcript %q exon [%d,%d] outside [%d,%d]: %w",
					t.ID, e.Start, e.End, t.Start, t.End, ErrInvalidInterval)
			}
		}
		if t.CDSStart != 0 || t.CDSEnd != 0 {
			if !(t.Start <= t.CDSStart && t.CDSStart <= t.CDSEnd && t.CDSEnd <= t.End) {
				return fmt.Errorf("genemodel: transcript %q CDS [%d,%d] outside [%d,%d]: %w",
					t.ID, t.CDSStart, t.CDSEnd, t.Start, t.End, ErrInvalidInterval)
			}
			intersects := false
			for _, e := range exons {
				if e.End >= t.CDSStart && e.Start <= t.CDSEnd {
					intersects = true
					break
				}
			}
			if !intersects {
				return fmt.Errorf("genemodel: transcript %q CDS intersects no exon: %w", t.ID, ErrInvalidInterval)
			}
		}
	}
	for i, g := range s.genes {
		start, end := g.Start, g.End
		if geneHasTx[i] {
			start, end = geneStart[i], geneEnd[i]
		}
		if start > end {
			return fmt.Errorf("genemodel: gene %q: %w", g.ID, ErrInvalidInterval)
		}
	}

	for i, exons := range sortedExons {
		s.transcripts[i].Exons = exons
	}
	for i := range s.genes {
		if geneHasTx[i] {
			s.genes[i].Start = geneStart[i]
			s.genes[i].End = geneEnd[i]
		}
	}

	s.geneChrom = make(map[string][]int32)
	for i, g := range s.genes {
		s.geneChrom[g.Chromosome] = append(s.geneChrom[g.Chromosome], int32(i))
	}
	s.txChrom = make(map[string][]int32)
	for i, t := range s.transcripts {
		s.txChrom[t.Chromosome] = append(s.txChrom[t.Chromosome], int32(i))
	}

	s.finalized = true
	s.log.Info("genemodel: finalized store",
		zap.Int("genes", len(s.genes)),
		zap.Int("transcripts", len(s.transcripts)),
		zap.Int("chromosomes", len(s.geneChrom)))
	return nil
}

// Finalized reports whether Finalize has completed successfully.
func (s *Store) Finalized() bool { return s.finalized }

// GetGene returns the gene with the given accession.
func (s *Store) GetGene(id string) (Gene, error) {
	idx, ok := s.geneIndex[id]
	if !ok {
		return Gene{}, fmt.Errorf("genemodel: gene %q: %w", id, ErrNotFound)
	}
	return s.genes[idx], nil
}

// GetTranscript returns the transcript with the given accession.
func (s *Store) GetTranscript(id string) (Transcript, error) {
	idx, ok := s.txIndex[id]
	if !ok {
		return Transcript{}, fmt.Errorf("genemodel: transcript %q: %w", id, ErrNotFound)
	}
	return s.transcripts[idx], nil
}

// GetTranscriptGene returns the gene accession owning a transcript.
func (s *Store) GetTranscriptGene(txID string) (string, error) {
	idx, ok := s.txIndex[txID]
	if !ok {
		return "", fmt.Errorf("genemodel: transcript %q: %w", txID, ErrNotFound)
	}
	return s.transcripts[idx].GeneID, nil
}

// TranscriptsOfGene returns all transcripts belonging to a gene.
func (s *Store) TranscriptsOfGene(geneID string) ([]Transcript, error) {
	if _, ok := s.geneIndex[geneID]; !ok {
		return nil, fmt.Errorf("genemodel: gene %q: %w", geneID, ErrNotFound)
	}
	var out []Transcript
	for _, t := range s.transcripts {
		if t.GeneID == geneID {
			out = append(out, t)
		}
	}
	return out, nil
}

// IndexOfGene returns the internal gene index for an accession.
func (s *Store) IndexOfGene(id string) (int32, bool) {
	idx, ok := s.geneIndex[id]
	return idx, ok
}

// IndexOfTranscript returns the internal transcript index for an accession.
func (s *Store) IndexOfTranscript(id string) (int32, bool) {
	idx, ok := s.txIndex[id]
	return idx, ok
}

// GeneAt returns the gene at an internal index, as used by query.Engine
// when translating tree results back to accessions.
func (s *Store) GeneAt(idx int32) Gene { return s.genes[idx] }

// TranscriptAt returns the transcript at an internal index.
func (s *Store) TranscriptAt(idx int32) Transcript { return s.transcripts[idx] }

// Chromosomes returns the sorted set of chromosomes present in the store.
func (s *Store) Chromosomes() []string {
	seen := make(map[string]bool)
	for _, g := range s.genes {
		seen[g.Chromosome] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// GenesByChromosome returns the internal gene indices for a chromosome.
// Unknown chromosomes return nil, not an error.
func (s *Store) GenesByChromosome(chrom string) []int32 { return s.geneChrom[chrom] }

// TranscriptsByChromosome returns the internal transcript indices for a chromosome.
func (s *Store) TranscriptsByChromosome(chrom string) []int32 { return s.txChrom[chrom] }

// Stats reports row counts for logging and CLI display.
func (s *Store) Stats() Stats {
	exons := 0
	for _, t := range s.transcripts {
		exons += len(t.Exons)
	}
	return Stats{
		Genes:       len(s.genes),
		Transcripts: len(s.transcripts),
		Exons:       exons,
		Chromosomes: len(s.Chromosomes()),
	}
}
