package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahcompbio/genedb/internal/genemodel"
)

func buildLocationStore(t *testing.T) *genemodel.Store {
	t.Helper()
	s := genemodel.New(nil)

	require.NoError(t, s.AddGene(genemodel.Gene{ID: "g1", Name: "G1", Source: "protein_coding", Chromosome: "chr1", Strand: 1}))
	require.NoError(t, s.AddTranscript(genemodel.Transcript{
		ID: "t1", GeneID: "g1", Chromosome: "chr1", Strand: 1,
		Start: 10000, End: 20000, CDSStart: 15200, CDSEnd: 19500,
	}, []genemodel.Exon{
		{Start: 10000, End: 10999},
		{Start: 15000, End: 15999},
		{Start: 19000, End: 20000},
	}))

	require.NoError(t, s.AddGene(genemodel.Gene{ID: "g2", Name: "G2", Source: "lncRNA", Chromosome: "chr1", Strand: 1}))
	require.NoError(t, s.AddTranscript(genemodel.Transcript{
		ID: "t2", GeneID: "g2", Chromosome: "chr1", Strand: 1,
		Start: 30000, End: 31000,
	}, []genemodel.Exon{
		{Start: 30000, End: 30500},
		{Start: 30600, End: 31000},
	}))

	require.NoError(t, s.Finalize())
	return s
}

func TestCalculateGeneLocation(t *testing.T) {
	s := buildLocationStore(t)
	m := NewModel(s, DefaultPromoter)

	cases := []struct {
		gene string
		pos  int64
		want Location
	}{
		{"g1", 9500, LocationUpstream},
		{"g1", 20500, LocationDownstream},
		{"g1", 7000, LocationIntergenic},
		{"g1", 10500, LocationUTR5p},
		{"g1", 15300, LocationCoding},
		{"g1", 19600, LocationUTR3p},
		{"g1", 12000, LocationIntron},
		{"g2", 30200, LocationUTR},
		{"g2", 30550, LocationIntron},
	}
	for _, c := range cases {
		got, err := m.CalculateGeneLocation(c.gene, c.pos)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "gene=%s pos=%d", c.gene, c.pos)
	}
}

func TestCalculateGeneLocation_ReverseStrandFlipsUpstreamDownstream(t *testing.T) {
	s := genemodel.New(nil)
	require.NoError(t, s.AddGene(genemodel.Gene{ID: "g1", Chromosome: "chr1", Strand: -1}))
	require.NoError(t, s.AddTranscript(genemodel.Transcript{ID: "t1", GeneID: "g1", Chromosome: "chr1", Strand: -1, Start: 10000, End: 20000}, nil))
	require.NoError(t, s.Finalize())
	m := NewModel(s, DefaultPromoter)

	before, err := m.CalculateGeneLocation("g1", 9500)
	require.NoError(t, err)
	assert.Equal(t, LocationDownstream, before)

	after, err := m.CalculateGeneLocation("g1", 20500)
	require.NoError(t, err)
	assert.Equal(t, LocationUpstream, after)
}

func TestCalculateGeneLocation_PromoterBoundary(t *testing.T) {
	s := buildLocationStore(t)
	m := NewModel(s, DefaultPromoter)

	atBoundary, err := m.CalculateGeneLocation("g1", 10000-DefaultPromoter)
	require.NoError(t, err)
	assert.Equal(t, LocationUpstream, atBoundary)

	justOutside, err := m.CalculateGeneLocation("g1", 10000-DefaultPromoter-1)
	require.NoError(t, err)
	assert.Equal(t, LocationIntergenic, justOutside)
}

func TestCalculateGeneLocation_UnknownGene(t *testing.T) {
	s := buildLocationStore(t)
	m := NewModel(s, DefaultPromoter)
	_, err := m.CalculateGeneLocation("missing", 1)
	assert.ErrorIs(t, err, genemodel.ErrNotFound)
}

// buildMappingStore lays out a 796-base transcript split across four
// exons so that offset 461 lands at the start of a new exon.
func buildMappingStore(t *testing.T) *genemodel.Store {
	t.Helper()
	s := genemodel.New(nil)
	require.NoError(t, s.AddGene(genemodel.Gene{ID: "g1", Chromosome: "chr18", Strand: 1}))
	require.NoError(t, s.AddTranscript(genemodel.Transcript{
		ID: "ENST00000320876", GeneID: "g1", Chromosome: "chr18", Strand: 1,
		Start: 2656000, End: 2664113,
	}, []genemodel.Exon{
		{Start: 2656000, End: 2656459}, // 460 bases, offsets 1-460
		{Start: 2656878, End: 2657030}, // 153 bases, offsets 461-613
		{Start: 2663280, End: 2663362}, // 83 bases, offsets 614-696
		{Start: 2664014, End: 2664113}, // 100 bases, offsets 697-796
	}))
	require.NoError(t, s.Finalize())
	return s
}

func TestCalculateGenomicPosition(t *testing.T) {
	s := buildMappingStore(t)
	m := NewModel(s, DefaultPromoter)

	pos, err := m.CalculateGenomicPosition("ENST00000320876", 461)
	require.NoError(t, err)
	assert.Equal(t, int64(2656878), pos)
}

func TestCalculateGenomicPosition_OutOfRange(t *testing.T) {
	s := buildMappingStore(t)
	m := NewModel(s, DefaultPromoter)
	_, err := m.CalculateGenomicPosition("ENST00000320876", 797)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCalculateGenomicRegions(t *testing.T) {
	s := buildMappingStore(t)
	m := NewModel(s, DefaultPromoter)

	regions, err := m.CalculateGenomicRegions("ENST00000320876", 461, 796)
	require.NoError(t, err)
	assert.Equal(t, []Region{
		{Start: 2656878, End: 2657030},
		{Start: 2663280, End: 2663362},
		{Start: 2664014, End: 2664113},
	}, regions)
}

func TestCalculateGenomicRegions_RoundTripsWithPosition(t *testing.T) {
	s := buildMappingStore(t)
	m := NewModel(s, DefaultPromoter)

	for k := int64(1); k <= 796; k += 37 {
		pos, err := m.CalculateGenomicPosition("ENST00000320876", k)
		require.NoError(t, err)
		regions, err := m.CalculateGenomicRegions("ENST00000320876", k, k)
		require.NoError(t, err)
		require.Len(t, regions, 1)
		assert.Equal(t, Region{Start: pos, End: pos}, regions[0])
	}
}

func TestCalculateGenomicPosition_ReverseStrand(t *testing.T) {
	s := genemodel.New(nil)
	require.NoError(t, s.AddGene(genemodel.Gene{ID: "g1", Chromosome: "chr1", Strand: -1}))
	require.NoError(t, s.AddTranscript(genemodel.Transcript{
		ID: "t1", GeneID: "g1", Chromosome: "chr1", Strand: -1, Start: 100, End: 299,
	}, []genemodel.Exon{
		{Start: 100, End: 199},
		{Start: 200, End: 299},
	}))
	require.NoError(t, s.Finalize())
	m := NewModel(s, DefaultPromoter)

	// transcription order walks the reverse-strand transcript from the
	// genomic end backward: offset 1 is the last base of the last exon.
	pos, err := m.CalculateGenomicPosition("t1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(299), pos)

	pos, err = m.CalculateGenomicPosition("t1", 101)
	require.NoError(t, err)
	assert.Equal(t, int64(199), pos)
}
