package genemodel

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// snapshotMagic identifies a genedb binary snapshot; snapshotVersion1
// is bumped whenever the encoded table shape changes incompatibly.
const (
	snapshotMagic    = "GNDB"
	snapshotVersion1 = 1
)

// ErrVersionMismatch is returned by Load when the snapshot's header
// does not match a version this build understands.
var ErrVersionMismatch = errors.New("genemodel: snapshot version mismatch")

// errChecksumMismatch indicates the trailing seahash checksum does not
// match the decompressed payload, meaning the file was corrupted or
// truncated in transit.
var errChecksumMismatch = errors.New("genemodel: snapshot checksum mismatch")

// snapshotTables is the gob-encoded payload: the store's columnar
// tables, minus any derived state (trees, chromosome indices) that
// Finalize rebuilds after Load.
type snapshotTables struct {
	Genes       []Gene
	Transcripts []Transcript
}

// Save writes a finalized store's tables to path as a gob-encoded,
// gzip-compressed, checksummed snapshot. store must be finalized.
func Save(store *Store, path string) error {
	if !store.finalized {
		return fmt.Errorf("genemodel: save: %w", errImmutable)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "genemodel: create snapshot")
	}
	defer f.Close()
	return writeSnapshot(f, store)
}

func writeSnapshot(w io.Writer, store *Store) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(snapshotTables{
		Genes:       store.genes,
		Transcripts: store.transcripts,
	}); err != nil {
		return errors.Wrap(err, "genemodel: encode snapshot")
	}

	checksum := seahash.Sum64(payload.Bytes())

	header := make([]byte, len(snapshotMagic)+4)
	copy(header, snapshotMagic)
	binary.BigEndian.PutUint32(header[len(snapshotMagic):], snapshotVersion1)
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "genemodel: write snapshot header")
	}

	gz, err := gzip.NewWriterLevel(w, gzip.BestSpeed)
	if err != nil {
		return errors.Wrap(err, "genemodel: open gzip writer")
	}
	if _, err := gz.Write(payload.Bytes()); err != nil {
		gz.Close()
		return errors.Wrap(err, "genemodel: write snapshot payload")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "genemodel: close gzip writer")
	}

	var trailer [8]byte
	binary.BigEndian.PutUint64(trailer[:], checksum)
	if _, err := w.Write(trailer[:]); err != nil {
		return errors.Wrap(err, "genemodel: write snapshot checksum")
	}
	return nil
}

// Load reads a snapshot written by Save and returns a finalized
// Store. Trees are not persisted; Finalize runs again as part of Load
// to rebuild per-chromosome indices.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: open snapshot")
	}
	defer f.Close()
	return readSnapshot(f)
}

func readSnapshot(r io.Reader) (*Store, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: read snapshot")
	}

	headerLen := len(snapshotMagic) + 4
	if len(body) < headerLen+8 {
		return nil, errors.New("genemodel: snapshot too short")
	}
	if string(body[:len(snapshotMagic)]) != snapshotMagic {
		return nil, fmt.Errorf("genemodel: snapshot: %w", ErrVersionMismatch)
	}
	version := binary.BigEndian.Uint32(body[len(snapshotMagic):headerLen])
	if version != snapshotVersion1 {
		return nil, fmt.Errorf("genemodel: snapshot version %d: %w", version, ErrVersionMismatch)
	}

	trailer := body[len(body)-8:]
	wantChecksum := binary.BigEndian.Uint64(trailer)
	compressed := body[headerLen : len(body)-8]

	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: open snapshot gzip reader")
	}
	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, errors.Wrap(err, "genemodel: decompress snapshot")
	}
	if err := gz.Close(); err != nil {
		return nil, errors.Wrap(err, "genemodel: close snapshot gzip reader")
	}

	if seahash.Sum64(payload) != wantChecksum {
		return nil, errChecksumMismatch
	}

	var tables snapshotTables
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&tables); err != nil {
		return nil, errors.Wrap(err, "genemodel: decode snapshot")
	}

	store := New(nil)
	for _, g := range tables.Genes {
		if err := store.AddGene(g); err != nil {
			return nil, errors.Wrap(err, "genemodel: rehydrate snapshot genes")
		}
	}
	for _, t := range tables.Transcripts {
		if err := store.AddTranscript(t, t.Exons); err != nil {
			return nil, errors.Wrap(err, "genemodel: rehydrate snapshot transcripts")
		}
	}
	if err := store.Finalize(); err != nil {
		return nil, errors.Wrap(err, "genemodel: finalize snapshot")
	}
	return store, nil
}

// isS3Path reports whether path names an S3 object rather than a
// local file.
func isS3Path(path string) bool {
	return strings.HasPrefix(path, "s3://")
}
