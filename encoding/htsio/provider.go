package htsio

import (
	"context"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"

	"github.com/Clarkvale/stitcher/encoding/gtf"
	"github.com/Clarkvale/stitcher/stitcher"
)

var (
	cellTag = sam.Tag{'B', 'C'}
	exonTag = sam.Tag{'G', 'E'}
	intrTag = sam.Tag{'G', 'I'}
)

// Provider reads gene-scoped read regions out of an indexed BAM file. Open
// may be called from several goroutines; a Handle is not safe for
// concurrent use, so each worker goroutine driven by stitcher.Run should
// hold its own Handle.
type Provider struct {
	ctx    context.Context
	path   string
	umiTag sam.Tag
	genes  map[string]gtf.Gene
}

// NewProvider returns a Provider that serves per-gene reads from the BAM at
// path (which must have a matching path+".bai" index), keyed by the gene
// spans in genes and reading the UMI from umiTag (e.g. sam.Tag{'U','B'}).
func NewProvider(ctx context.Context, path string, umiTag sam.Tag, genes []gtf.Gene) *Provider {
	byID := make(map[string]gtf.Gene, len(genes))
	for _, g := range genes {
		byID[g.ID] = g
	}
	return &Provider{ctx: ctx, path: path, umiTag: umiTag, genes: byID}
}

// Handle is a per-goroutine view onto a Provider's underlying BAM file and
// index. One Handle can serve several gene fetches in turn.
type Handle struct {
	p    *Provider
	f    file.File
	br   *bam.Reader
	idx  *bam.Index
	refs map[string]*sam.Reference
}

// Open opens the Handle's own file descriptors onto the Provider's BAM and
// its .bai index. The returned Handle must be closed by the caller.
func (p *Provider) Open() (*Handle, error) {
	f, err := file.Open(p.ctx, p.path)
	if err != nil {
		return nil, errors.Wrapf(err, "htsio: opening %s", p.path)
	}
	br, err := bam.NewReader(f.Reader(p.ctx), 1)
	if err != nil {
		f.Close(p.ctx)
		return nil, errors.Wrapf(err, "htsio: reading BAM header of %s", p.path)
	}

	idxFile, err := file.Open(p.ctx, p.path+".bai")
	if err != nil {
		f.Close(p.ctx)
		return nil, errors.Wrapf(err, "htsio: opening %s.bai", p.path)
	}
	defer idxFile.Close(p.ctx)
	idx, err := bam.ReadIndex(idxFile.Reader(p.ctx))
	if err != nil {
		f.Close(p.ctx)
		return nil, errors.Wrapf(err, "htsio: reading index for %s", p.path)
	}

	refs := make(map[string]*sam.Reference, len(br.Header().Refs()))
	for _, r := range br.Header().Refs() {
		refs[r.Name()] = r
	}
	return &Handle{p: p, f: f, br: br, idx: idx, refs: refs}, nil
}

// Close releases the Handle's underlying file descriptor.
func (h *Handle) Close() error {
	return h.f.Close(h.p.ctx)
}

// Header returns the BAM header read from the underlying file.
func (h *Handle) Header() *sam.Header { return h.br.Header() }

// Reference looks up a reference sequence by name, as recorded in the BAM
// header; it returns nil if the contig is absent.
func (h *Handle) Reference(name string) *sam.Reference { return h.refs[name] }

// Reads returns every RawRead overlapping the named gene's span, as recorded
// in the GTF annotation the Provider was built from. It implements
// stitcher.Fetcher.
func (h *Handle) Reads(geneID string) ([]stitcher.RawRead, error) {
	gene, ok := h.p.genes[geneID]
	if !ok {
		return nil, errors.Errorf("htsio: unknown gene %q", geneID)
	}
	ref := h.refs[gene.Seqid]
	if ref == nil {
		return nil, errors.Errorf("htsio: reference %q not in BAM header", gene.Seqid)
	}
	chunks, err := h.idx.Chunks(ref, gene.Start-1, gene.End)
	if err != nil {
		return nil, errors.Wrapf(err, "htsio: indexing %s:%d-%d", gene.Seqid, gene.Start, gene.End)
	}
	it, err := bam.NewIterator(h.br, chunks)
	if err != nil {
		return nil, errors.Wrapf(err, "htsio: iterating %s:%d-%d", gene.Seqid, gene.Start, gene.End)
	}
	defer it.Close()

	var out []stitcher.RawRead
	for it.Next() {
		rec := it.Record()
		rr, ok := toRawRead(rec, h.p.umiTag)
		if !ok {
			continue
		}
		out = append(out, rr)
	}
	if err := it.Error(); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "htsio: reading %s:%d-%d", gene.Seqid, gene.Start, gene.End)
	}
	return out, nil
}

// toRawRead converts one BAM record into a stitcher.RawRead, applying the
// read-level admission rules: a read with no barcode or no UMI cannot
// contribute to any group and is dropped here rather than downstream, and a
// read with neither a GE nor a GI tag carries no gene evidence at all.
func toRawRead(rec *sam.Record, umiTag sam.Tag) (stitcher.RawRead, bool) {
	cell, ok := auxString(rec, cellTag)
	if !ok || cell == "" {
		return stitcher.RawRead{}, false
	}
	umi, ok := auxString(rec, umiTag)
	if !ok || umi == "" {
		return stitcher.RawRead{}, false
	}
	exon, hasExon := auxString(rec, exonTag)
	intron, hasIntron := auxString(rec, intrTag)
	if !hasExon && !hasIntron {
		return stitcher.RawRead{}, false
	}
	if !hasExon {
		exon = stitcher.Unassigned
	}
	if !hasIntron {
		intron = stitcher.Unassigned
	}

	refName := ""
	if rec.Ref != nil {
		refName = rec.Ref.Name()
	}
	return stitcher.RawRead{
		Cell:         cell,
		UMI:          umi,
		GeneExon:     exon,
		GeneIntron:   intron,
		Unmapped:     rec.Flags&sam.Unmapped != 0,
		Paired:       rec.Flags&sam.Paired != 0,
		MateUnmapped: rec.Flags&sam.MateUnmapped != 0,
		ProperPair:   rec.Flags&sam.ProperPair != 0,
		Read: stitcher.ReadView{
			Ref:      refName,
			Pos:      rec.Pos,
			Cigar:    rec.Cigar,
			Seq:      rec.Seq.Expand(),
			Qual:     rec.Qual,
			Reverse:  rec.Flags&sam.Reverse != 0,
			Read1:    rec.Flags&sam.Read1 != 0,
			Exonic:   hasExon,
			Intronic: hasIntron,
		},
	}, true
}

func auxString(rec *sam.Record, tag sam.Tag) (string, bool) {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return "", false
	}
	s, ok := aux.Value().(string)
	return s, ok
}
