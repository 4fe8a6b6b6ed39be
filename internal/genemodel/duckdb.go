package genemodel

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
)

// DuckDBLoader bulk-loads genes, transcripts, and exons from a DuckDB
// database into a Store. The schema is:
//
//	genes(id, name, source, chrom, strand, start, end_)
//	transcripts(id, gene_id, chrom, strand, start, end_, cds_start, cds_end)
//	exons(transcript_id, ord, start, end_)
type DuckDBLoader struct {
	db   *sql.DB
	path string
}

// NewDuckDBLoader opens a DuckDB-backed loader. path may be a local
// file or an s3:// URL, in which case the httpfs extension is loaded.
func NewDuckDBLoader(path string) (*DuckDBLoader, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("genemodel: open duckdb: %w", err)
	}
	if strings.HasPrefix(path, "s3://") {
		if _, err := db.Exec("INSTALL httpfs; LOAD httpfs;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("genemodel: load httpfs extension: %w", err)
		}
	}
	return &DuckDBLoader{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (l *DuckDBLoader) Close() error { return l.db.Close() }

// CreateSchema creates the genes/transcripts/exons tables if absent.
func (l *DuckDBLoader) CreateSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS genes (
			id VARCHAR PRIMARY KEY,
			name VARCHAR,
			source VARCHAR,
			chrom VARCHAR,
			strand TINYINT,
			start BIGINT,
			end_ BIGINT
		);
		CREATE TABLE IF NOT EXISTS transcripts (
			id VARCHAR PRIMARY KEY,
			gene_id VARCHAR,
			chrom VARCHAR,
			strand TINYINT,
			start BIGINT,
			end_ BIGINT,
			cds_start BIGINT,
			cds_end BIGINT
		);
		CREATE TABLE IF NOT EXISTS exons (
			transcript_id VARCHAR,
			ord INTEGER,
			start BIGINT,
			end_ BIGINT,
			PRIMARY KEY (transcript_id, ord)
		);
		CREATE INDEX IF NOT EXISTS idx_genes_chrom ON genes(chrom);
		CREATE INDEX IF NOT EXISTS idx_transcripts_chrom ON transcripts(chrom);
		CREATE INDEX IF NOT EXISTS idx_transcripts_gene ON transcripts(gene_id);
		CREATE INDEX IF NOT EXISTS idx_exons_transcript ON exons(transcript_id);
	`)
	return err
}

// LoadAll reads every gene, transcript, and exon into store. It does
// not call store.Finalize; callers finalize once all sources are
// loaded.
func (l *DuckDBLoader) LoadAll(store *Store) error {
	geneRows, err := l.db.Query(`SELECT id, name, source, chrom, strand, start, end_ FROM genes`)
	if err != nil {
		return fmt.Errorf("genemodel: query genes: %w", err)
	}
	defer geneRows.Close()
	for geneRows.Next() {
		var g Gene
		if err := geneRows.Scan(&g.ID, &g.Name, &g.Source, &g.Chromosome, &g.Strand, &g.Start, &g.End); err != nil {
			return fmt.Errorf("genemodel: scan gene: %w", err)
		}
		if err := store.AddGene(g); err != nil {
			return err
		}
	}
	if err := geneRows.Err(); err != nil {
		return fmt.Errorf("genemodel: iterate genes: %w", err)
	}

	txRows, err := l.db.Query(`
		SELECT id, gene_id, chrom, strand, start, end_, cds_start, cds_end
		FROM transcripts ORDER BY chrom, start
	`)
	if err != nil {
		return fmt.Errorf("genemodel: query transcripts: %w", err)
	}
	defer txRows.Close()

	var pending []Transcript
	for txRows.Next() {
		var t Transcript
		var cdsStart, cdsEnd sql.NullInt64
		if err := txRows.Scan(&t.ID, &t.GeneID, &t.Chromosome, &t.Strand, &t.Start, &t.End, &cdsStart, &cdsEnd); err != nil {
			return fmt.Errorf("genemodel: scan transcript: %w", err)
		}
		t.CDSStart = cdsStart.Int64
		t.CDSEnd = cdsEnd.Int64
		pending = append(pending, t)
	}
	if err := txRows.Err(); err != nil {
		return fmt.Errorf("genemodel: iterate transcripts: %w", err)
	}

	for _, t := range pending {
		exons, err := l.loadExons(t.ID)
		if err != nil {
			return err
		}
		if err := store.AddTranscript(t, exons); err != nil {
			return err
		}
	}
	return nil
}

func (l *DuckDBLoader) loadExons(txID string) ([]Exon, error) {
	rows, err := l.db.Query(`SELECT start, end_ FROM exons WHERE transcript_id = ? ORDER BY ord`, txID)
	if err != nil {
		return nil, fmt.Errorf("genemodel: query exons for %s: %w", txID, err)
	}
	defer rows.Close()

	var exons []Exon
	for rows.Next() {
		var e Exon
		if err := rows.Scan(&e.Start, &e.End); err != nil {
			return nil, fmt.Errorf("genemodel: scan exon: %w", err)
		}
		exons = append(exons, e)
	}
	return exons, rows.Err()
}

// Write persists store's tables into the loader's DuckDB database,
// creating the schema first if needed.
func (l *DuckDBLoader) Write(store *Store) error {
	if err := l.CreateSchema(); err != nil {
		return fmt.Errorf("genemodel: create schema: %w", err)
	}
	for _, chrom := range store.Chromosomes() {
		for _, gi := range store.GenesByChromosome(chrom) {
			g := store.GeneAt(gi)
			if _, err := l.db.Exec(`
				INSERT OR REPLACE INTO genes (id, name, source, chrom, strand, start, end_)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, g.ID, g.Name, g.Source, g.Chromosome, g.Strand, g.Start, g.End); err != nil {
				return fmt.Errorf("genemodel: insert gene %s: %w", g.ID, err)
			}
		}
		for _, ti := range store.TranscriptsByChromosome(chrom) {
			t := store.TranscriptAt(ti)
			if _, err := l.db.Exec(`
				INSERT OR REPLACE INTO transcripts (id, gene_id, chrom, strand, start, end_, cds_start, cds_end)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, t.ID, t.GeneID, t.Chromosome, t.Strand, t.Start, t.End, nullInt64(t.CDSStart), nullInt64(t.CDSEnd)); err != nil {
				return fmt.Errorf("genemodel: insert transcript %s: %w", t.ID, err)
			}
			for i, e := range t.Exons {
				if _, err := l.db.Exec(`
					INSERT OR REPLACE INTO exons (transcript_id, ord, start, end_)
					VALUES (?, ?, ?, ?)
				`, t.ID, i, e.Start, e.End); err != nil {
					return fmt.Errorf("genemodel: insert exon for %s: %w", t.ID, err)
				}
			}
		}
	}
	return nil
}

func nullInt64(n int64) interface{} {
	if n == 0 {
		return nil
	}
	return n
}

// IsDuckDBPath reports whether path looks like a DuckDB database
// rather than a GTF annotation file.
func IsDuckDBPath(path string) bool {
	return strings.HasSuffix(path, ".duckdb") || strings.HasSuffix(path, ".db") || isS3Path(path)
}
