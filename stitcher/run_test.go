package stitcher

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	reads map[string][]RawRead
}

func (f *fakeFetcher) Reads(gene string) ([]RawRead, error) { return f.reads[gene], nil }

type collectingWriter struct {
	mu   sync.Mutex
	recs []*sam.Record
}

func (w *collectingWriter) Write(r *sam.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.recs = append(w.recs, r)
	return nil
}

func TestRunStitchesAcrossGenes(t *testing.T) {
	mkRaw := func(gene, cell, umi string, read1 bool) RawRead {
		return RawRead{
			Cell: cell, UMI: umi, GeneExon: gene,
			Read: ReadView{
				Ref: "chr1", Pos: 100, Cigar: cig(m(10)),
				Seq: []byte("ACGTACGTAC"), Qual: q30(10), Read1: read1,
			},
		}
	}
	fetcher := &fakeFetcher{reads: map[string][]RawRead{
		"G1": {mkRaw("G1", "AAAA", "UUUU", true)},
		"G2": {mkRaw("G2", "BBBB", "VVVV", true)},
	}}
	r1, _ := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	resolveRef := func(name string) *sam.Reference { return r1 }

	writer := &collectingWriter{}
	var logBuf bytes.Buffer
	errLog := NewErrorLog(&logBuf)

	err := Run([]string{"G1", "G2"}, fetcher, resolveRef, nil, nil, Opts{
		Parallelism: 2, QueueLength: 4, SingleEnd: true, SkipIso: true, UMITag: "UB",
	}, writer, errLog)
	require.NoError(t, err)
	require.NoError(t, errLog.Flush())

	assert.Len(t, writer.recs, 2)
	// No group fails; each gene that produced a molecule gets its trailer,
	// in whatever order the batches reached the writer.
	assert.ElementsMatch(t, []string{"Gene:G1", "Gene:G2"}, strings.Split(strings.TrimSpace(logBuf.String()), "\n"))
}

func TestRunLogsGroupFailures(t *testing.T) {
	fetcher := &fakeFetcher{reads: map[string][]RawRead{
		"G1": {{
			Cell: "AAAA", UMI: "UUUU", GeneExon: "G1",
			Paired: true, ProperPair: true,
			Read: ReadView{Ref: "chr1", Pos: 0, Cigar: cig(m(1)), Seq: []byte("A"), Qual: []byte{30}, Read1: false},
		}},
	}}
	r1, _ := sam.NewReference("chr1", "", "", 1<<20, nil, nil)
	resolveRef := func(name string) *sam.Reference { return r1 }
	writer := &collectingWriter{}
	var logBuf bytes.Buffer
	errLog := NewErrorLog(&logBuf)

	// single_end=false and UMI non-empty but Read1=false means no read1
	// evidence, so Group itself drops this group before Stitch ever runs.
	err := Run([]string{"G1"}, fetcher, resolveRef, nil, nil, Opts{
		Parallelism: 1, QueueLength: 1, SingleEnd: false, SkipIso: true, UMITag: "UB",
	}, writer, errLog)
	require.NoError(t, err)
	require.NoError(t, errLog.Flush())
	assert.Empty(t, writer.recs)
	assert.Empty(t, logBuf.String())
}
