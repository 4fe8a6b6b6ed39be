// Package coordinate classifies genomic positions relative to a gene's
// transcripts and maps transcript-local offsets to genome coordinates.
package coordinate

import (
	"errors"
	"fmt"

	"github.com/shahcompbio/genedb/internal/genemodel"
)

// DefaultPromoter is the default upstream/downstream flank, in base
// pairs, used by NewModel when no override is given.
const DefaultPromoter = 2000

// ErrOutOfRange is returned when a transcript-local offset exceeds the
// transcript's total exonic length.
var ErrOutOfRange = errors.New("coordinate: offset exceeds transcript exonic length")

// Location is a coordinate classification tag.
type Location string

const (
	LocationUpstream   Location = "upstream"
	LocationDownstream Location = "downstream"
	LocationUTR5p      Location = "utr5p"
	LocationUTR3p      Location = "utr3p"
	LocationCoding     Location = "coding"
	LocationIntron     Location = "intron"
	LocationUTR        Location = "utr" // non-coding transcript, position within an exon
	LocationIntergenic Location = "intergenic"
)

// locationRank orders candidate tags from a gene's transcripts,
// most-specific first, per the combine step in calculate_gene_location.
var locationRank = map[Location]int{
	LocationCoding: 0,
	LocationUTR5p:  1,
	LocationUTR3p:  2,
	LocationUTR:    3,
	LocationIntron: 4,
}

// Region is a closed, inclusive genome interval.
type Region struct {
	Start, End int64
}

// Model classifies positions and maps transcript coordinates against a
// finalized genemodel.Store.
type Model struct {
	store    *genemodel.Store
	promoter int64
}

// NewModel builds a Model reading gene/transcript data from store.
// promoter is the upstream/downstream flank width in base pairs;
// pass DefaultPromoter for the system default.
func NewModel(store *genemodel.Store, promoter int64) *Model {
	return &Model{store: store, promoter: promoter}
}

// CalculateGeneLocation classifies position relative to gene geneID and
// its transcripts.
func (m *Model) CalculateGeneLocation(geneID string, position int64) (Location, error) {
	g, err := m.store.GetGene(geneID)
	if err != nil {
		return "", err
	}

	if position < g.Start-m.promoter || position > g.End+m.promoter {
		return LocationIntergenic, nil
	}
	if position < g.Start {
		if g.IsForwardStrand() {
			return LocationUpstream, nil
		}
		return LocationDownstream, nil
	}
	if position > g.End {
		if g.IsForwardStrand() {
			return LocationDownstream, nil
		}
		return LocationUpstream, nil
	}

	txs, err := m.store.TranscriptsOfGene(geneID)
	if err != nil {
		return "", err
	}

	best := Location("")
	bestRank := len(locationRank) + 1
	for _, t := range txs {
		if !t.Contains(position) {
			continue
		}
		tag := classifyWithinTranscript(&t, position)
		if rank := locationRank[tag]; rank < bestRank {
			bestRank = rank
			best = tag
		}
	}
	if best != "" {
		return best, nil
	}
	return LocationIntron, nil
}

// classifyWithinTranscript implements step 3 of calculate_gene_location
// for a single transcript known to contain position.
func classifyWithinTranscript(t *genemodel.Transcript, position int64) Location {
	exon := t.FindExon(position)
	if !t.IsCoding() {
		if exon != nil {
			return LocationUTR
		}
		return LocationIntron
	}
	if exon == nil {
		return LocationIntron
	}
	if position >= t.CDSStart && position <= t.CDSEnd {
		return LocationCoding
	}
	beforeCDS := position < t.CDSStart
	if beforeCDS == t.IsForwardStrand() {
		return LocationUTR5p
	}
	return LocationUTR3p
}

// CalculateGenomicPosition maps a 1-based transcript-local offset
// (in transcription direction) to a genome position.
func (m *Model) CalculateGenomicPosition(txID string, offset int64) (int64, error) {
	t, err := m.store.GetTranscript(txID)
	if err != nil {
		return 0, err
	}
	exons := orderedExons(&t)

	var consumed int64
	for _, e := range exons {
		length := e.Length()
		if consumed+length >= offset {
			r := offset - consumed
			if t.IsForwardStrand() {
				return e.Start + r - 1, nil
			}
			return e.End - r + 1, nil
		}
		consumed += length
	}
	return 0, fmt.Errorf("coordinate: transcript %q offset %d: %w", txID, offset, ErrOutOfRange)
}

// CalculateGenomicRegions maps the transcript-local range [txStart,
// txEnd] (inclusive, txStart <= txEnd) to the set of genome regions
// obtained by clipping the transcript's exons to that range, returned
// in ascending genome order.
func (m *Model) CalculateGenomicRegions(txID string, txStart, txEnd int64) ([]Region, error) {
	if txStart > txEnd {
		return nil, fmt.Errorf("coordinate: transcript %q: txStart %d > txEnd %d", txID, txStart, txEnd)
	}
	t, err := m.store.GetTranscript(txID)
	if err != nil {
		return nil, err
	}
	exons := orderedExons(&t)

	var regions []Region
	var consumed int64
	for _, e := range exons {
		length := e.Length()
		exonLo, exonHi := consumed+1, consumed+length
		consumed += length

		lo := max64(txStart, exonLo)
		hi := min64(txEnd, exonHi)
		if lo > hi {
			continue
		}

		var gs, ge int64
		if t.IsForwardStrand() {
			gs = e.Start + (lo - exonLo)
			ge = e.Start + (hi - exonLo)
		} else {
			gs = e.End - (hi - exonLo)
			ge = e.End - (lo - exonLo)
		}
		regions = append(regions, Region{Start: gs, End: ge})
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("coordinate: transcript %q range [%d,%d]: %w", txID, txStart, txEnd, ErrOutOfRange)
	}

	sortRegionsAscending(regions)
	return regions, nil
}

// orderedExons exposes the transcript's exons in transcription
// direction; genemodel keeps them genome-ascending internally.
func orderedExons(t *genemodel.Transcript) []genemodel.Exon {
	if t.IsForwardStrand() {
		return t.Exons
	}
	rev := make([]genemodel.Exon, len(t.Exons))
	for i, e := range t.Exons {
		rev[len(t.Exons)-1-i] = e
	}
	return rev
}

func sortRegionsAscending(r []Region) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j].Start < r[j-1].Start; j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
