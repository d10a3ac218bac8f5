package htsio

import (
	"context"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Version is reported in the output BAM's PG line.
const Version = "0.1.0"

// Writer wraps a bam.Writer, satisfying stitcher.RecordWriter.
type Writer struct {
	ctx context.Context
	f   file.File
	bw  *bam.Writer
}

// NewWriter opens path for writing and emits a BAM header built from only
// inputHeader's HD and SQ lines, plus a PG line identifying this program;
// any RG, CO, or pre-existing PG lines on inputHeader are dropped.
func NewWriter(ctx context.Context, path string, inputHeader *sam.Header, wc int) (*Writer, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "htsio: creating %s", path)
	}

	refs := make([]*sam.Reference, len(inputHeader.Refs()))
	for i, r := range inputHeader.Refs() {
		refs[i] = r.Clone()
	}
	h, err := sam.NewHeader(nil, refs)
	if err != nil {
		f.Close(ctx)
		return nil, errors.Wrap(err, "htsio: building output header")
	}
	h.Version = inputHeader.Version
	h.SortOrder = inputHeader.SortOrder
	h.GroupOrder = inputHeader.GroupOrder

	prog := sam.NewProgram("stitcher", "stitcher", "stitcher", "", Version)
	if err := h.AddProgram(prog); err != nil {
		f.Close(ctx)
		return nil, errors.Wrap(err, "htsio: adding PG line")
	}

	bw, err := bam.NewWriter(f.Writer(ctx), h, wc)
	if err != nil {
		f.Close(ctx)
		return nil, errors.Wrapf(err, "htsio: writing BAM header to %s", path)
	}
	return &Writer{ctx: ctx, f: f, bw: bw}, nil
}

// Write appends r to the BAM stream.
func (w *Writer) Write(r *sam.Record) error {
	return w.bw.Write(r)
}

// Close flushes and closes the underlying BAM stream and file.
func (w *Writer) Close() error {
	closeErr := w.bw.Close()
	if err := w.f.Close(w.ctx); err != nil && closeErr == nil {
		closeErr = err
	}
	return closeErr
}
