package stitcher

import (
	"sync"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"

	"github.com/Clarkvale/stitcher/isoformdb"
)

// Fetcher supplies the raw reads overlapping one gene's region. encoding/htsio
// implements this over a per-worker indexed BAM handle.
type Fetcher interface {
	Reads(geneID string) ([]RawRead, error)
}

// RecordWriter accepts one finished molecule record at a time. encoding/htsio
// implements this over a shared bam.Writer.
type RecordWriter interface {
	Write(*sam.Record) error
}

// Opts configures one Run over a set of genes.
type Opts struct {
	Parallelism int
	QueueLength int // bounded channel size between workers and the writer
	SingleEnd   bool
	SkipIso     bool
	UMITag      string
	Cells       map[string]bool // nil: no whitelist
}

// batch is one gene's worth of finished work, handed from a worker to the
// single writer goroutine.
type batch struct {
	gene       string
	records    []*sam.Record
	failures   []GroupKey
	hadSuccess bool
}

// Run stitches every gene in genes: one task per gene, Opts.Parallelism
// workers draining a shared job queue, each worker's finished batch handed
// to a single writer goroutine that is the sole mutator of out and errLog.
// The writer drains in queue-arrival order, not gene order. The first fatal
// write error stops new genes from being picked up; in-flight genes still
// finish and drain, and that first error is returned.
func Run(genes []string, fetcher Fetcher, ref func(name string) *sam.Reference, exonIdx, junctionIdx isoformdb.Dictionary, opts Opts, out RecordWriter, errLog *ErrorLog) error {
	jobs := make(chan string, len(genes))
	for _, g := range genes {
		jobs <- g
	}
	close(jobs)

	results := make(chan batch, opts.QueueLength)
	fatal := errors.Once{}

	var wg sync.WaitGroup
	workers := opts.Parallelism
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for gene := range jobs {
				if fatal.Err() != nil {
					continue // drain remaining jobs without doing new work
				}
				results <- processGene(gene, fetcher, ref, exonIdx, junctionIdx, opts)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for b := range results {
		for _, rec := range b.records {
			if err := out.Write(rec); err != nil {
				fatal.Set(err)
				break
			}
		}
		for _, k := range b.failures {
			errLog.Fail(k)
		}
		errLog.GeneDone(b.gene, b.hadSuccess)
	}
	return fatal.Err()
}

func processGene(gene string, fetcher Fetcher, ref func(name string) *sam.Reference, exonIdx, junctionIdx isoformdb.Dictionary, opts Opts) batch {
	b := batch{gene: gene}

	raws, err := fetcher.Reads(gene)
	if err != nil {
		// A per-gene fetch error is reported as if every potential group for
		// this gene failed; there is no group key to log, so the gene simply
		// produces nothing and no trailing marker.
		return b
	}

	groups := Group(raws, GroupFilter{GeneOfInterest: gene, SingleEnd: opts.SingleEnd, Cells: opts.Cells})
	for key, reads := range groups {
		mol, err := Stitch(reads, opts.SingleEnd, key)
		if err != nil {
			b.failures = append(b.failures, key)
			continue
		}
		rr, err := Reconstruct(mol)
		if err != nil {
			b.failures = append(b.failures, key)
			continue
		}
		rec, err := ToRecord(mol, rr, ref(mol.Ref), opts.UMITag)
		if err != nil {
			b.failures = append(b.failures, key)
			continue
		}
		if !opts.SkipIso && exonIdx != nil {
			// A resolver failure only drops the CT tag; it never turns a
			// successful molecule into a group-level failure.
			if compatible, ok := Resolve(mol, rr, exonIdx, junctionIdx); ok {
				_ = addCompatibleTag(rec, compatible)
			}
		}
		b.records = append(b.records, rec)
		b.hadSuccess = true
	}
	return b
}

func addCompatibleTag(rec *sam.Record, compatible []string) error {
	aux, err := sam.NewAux(sam.NewTag("CT"), JoinCompatible(compatible))
	if err != nil {
		return err
	}
	rec.AuxFields = append(rec.AuxFields, aux)
	return nil
}
