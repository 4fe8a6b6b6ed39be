package genemodel

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

// ParseError reports a GTF line that could not be parsed, with enough
// context to find it again in the source file.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("genemodel: gtf line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// GTFLoader reads GENCODE-style GTF annotation into a Store via
// AddGene/AddTranscript/Finalize. Gene and transcript rows may arrive
// in any order and are accumulated before Finalize is called.
type GTFLoader struct {
	// Progress, if non-nil, is called with the number of lines consumed
	// so far. It is intended to drive a terminal progress bar and is
	// never required.
	Progress func(lines int)
}

// NewGTFLoader creates a GTFLoader with no progress reporting.
func NewGTFLoader() *GTFLoader { return &GTFLoader{} }

// geneAccum collects feature rows for one gene_id across the file,
// since GENCODE does not guarantee a gene's own "gene" line carries
// every attribute consistently across records.
type geneAccum struct {
	gene     Gene
	haveGene bool
}

type txAccum struct {
	tx          Transcript
	haveTx      bool
	exons       []Exon
	cdsMin      int64
	cdsMax      int64
	haveCDS     bool
}

// Load parses r as plain-text GTF and populates store; LoadGzip wraps
// it for gzip-compressed input. It does not call
// store.Finalize; callers finalize once all sources have been loaded.
func (l *GTFLoader) Load(store *Store, r io.Reader) error {
	genes := make(map[string]*geneAccum)
	geneOrder := make([]string, 0)
	txs := make(map[string]*txAccum)
	txOrder := make([]string, 0)

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if l.Progress != nil && lineNum%100000 == 0 {
			l.Progress(lineNum)
		}
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		feat, err := parseGTFLine(line)
		if err != nil {
			return &ParseError{Line: lineNum, Err: err}
		}

		geneID := stripVersion(feat.attrs["gene_id"])
		txID := stripVersion(feat.attrs["transcript_id"])

		switch feat.featureType {
		case "gene":
			if geneID == "" {
				continue
			}
			ga, ok := genes[geneID]
			if !ok {
				ga = &geneAccum{}
				genes[geneID] = ga
				geneOrder = append(geneOrder, geneID)
			}
			g := Gene{
				ID:         geneID,
				Name:       feat.attrs["gene_name"],
				Source:     feat.attrs["gene_biotype"],
				Chromosome: feat.chrom,
				Strand:     parseStrand(feat.strand),
				Start:      feat.start,
				End:        feat.end,
			}
			if g.Source == "" {
				g.Source = feat.attrs["gene_type"]
			}
			if ga.haveGene && ga.gene.Name != "" && g.Name != "" && ga.gene.Name != g.Name {
				return fmt.Errorf("genemodel: gene %q: name %q != %q: %w", geneID, ga.gene.Name, g.Name, ErrInconsistentGene)
			}
			ga.gene = g
			ga.haveGene = true

		case "transcript":
			if geneID == "" || txID == "" {
				continue
			}
			if _, ok := genes[geneID]; !ok {
				genes[geneID] = &geneAccum{gene: Gene{
					ID:         geneID,
					Name:       feat.attrs["gene_name"],
					Chromosome: feat.chrom,
					Strand:     parseStrand(feat.strand),
				}}
				geneOrder = append(geneOrder, geneID)
			}
			ta, ok := txs[txID]
			if !ok {
				ta = &txAccum{}
				txs[txID] = ta
				txOrder = append(txOrder, txID)
			}
			ta.tx = Transcript{
				ID:         txID,
				GeneID:     geneID,
				Chromosome: feat.chrom,
				Strand:     parseStrand(feat.strand),
				Start:      feat.start,
				End:        feat.end,
			}
			ta.haveTx = true

		case "exon":
			if txID == "" {
				continue
			}
			ta, ok := txs[txID]
			if !ok {
				ta = &txAccum{}
				txs[txID] = ta
				txOrder = append(txOrder, txID)
			}
			ta.exons = append(ta.exons, Exon{Start: feat.start, End: feat.end})

		case "CDS":
			if txID == "" {
				continue
			}
			ta, ok := txs[txID]
			if !ok {
				ta = &txAccum{}
				txs[txID] = ta
				txOrder = append(txOrder, txID)
			}
			if !ta.haveCDS || feat.start < ta.cdsMin {
				ta.cdsMin = feat.start
			}
			if !ta.haveCDS || feat.end > ta.cdsMax {
				ta.cdsMax = feat.end
			}
			ta.haveCDS = true

		case "start_codon", "stop_codon":
			if txID == "" {
				continue
			}
			ta, ok := txs[txID]
			if !ok {
				ta = &txAccum{}
				txs[txID] = ta
				txOrder = append(txOrder, txID)
			}
			if !ta.haveCDS || feat.start < ta.cdsMin {
				ta.cdsMin = feat.start
			}
			if !ta.haveCDS || feat.end > ta.cdsMax {
				ta.cdsMax = feat.end
			}
			ta.haveCDS = true
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "genemodel: scan gtf")
	}

	for _, id := range geneOrder {
		ga := genes[id]
		// a gene with no "gene" row keeps the name, chromosome, and
		// strand of its first transcript row; its bounds are recomputed
		// from its transcripts during Finalize.
		if err := store.AddGene(ga.gene); err != nil {
			return err
		}
	}
	for _, id := range txOrder {
		ta := txs[id]
		if !ta.haveTx {
			return fmt.Errorf("genemodel: transcript %q: exon/CDS with no transcript record", id)
		}
		if g := genes[ta.tx.GeneID].gene; g.Chromosome != ta.tx.Chromosome || g.Strand != ta.tx.Strand {
			return fmt.Errorf("genemodel: transcript %q: chromosome/strand differ from gene %q: %w", id, ta.tx.GeneID, ErrInconsistentGene)
		}
		if ta.haveCDS {
			ta.tx.CDSStart = ta.cdsMin
			ta.tx.CDSEnd = ta.cdsMax
		}
		if err := store.AddTranscript(ta.tx, ta.exons); err != nil {
			return err
		}
	}

	return nil
}

// LoadGzip opens the source returned by open and loads it into store,
// decompressing it via klauspost/pgzip when gzipped is true.
func (l *GTFLoader) LoadGzip(store *Store, open func() (io.ReadCloser, error), gzipped bool) error {
	rc, err := open()
	if err != nil {
		return errors.Wrap(err, "genemodel: open gtf source")
	}
	defer rc.Close()

	var r io.Reader = rc
	if gzipped {
		gz, err := pgzip.NewReader(rc)
		if err != nil {
			return errors.Wrap(err, "genemodel: open gzip reader")
		}
		defer gz.Close()
		r = gz
	}
	return l.Load(store, r)
}

type gtfFeature struct {
	chrom       string
	featureType string
	start, end  int64
	strand      string
	attrs       map[string]string
}

func parseGTFLine(line string) (gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return gtfFeature{}, fmt.Errorf("expected 9 tab-separated fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return gtfFeature{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return gtfFeature{}, fmt.Errorf("parse end: %w", err)
	}
	return gtfFeature{
		chrom:       fields[0],
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attrs:       parseGTFAttributes(fields[8]),
	}, nil
}

// parseGTFAttributes parses the GTF attribute column:
// `key "value"; key "value"; ...`.
func parseGTFAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}
		key := part[:idx]
		val := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		attrs[key] = val
	}
	return attrs
}

func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
