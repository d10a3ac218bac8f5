package main

/*
stitcher reconstructs one consensus alignment per (cell barcode, gene, UMI)
read group from a single-cell RNA-seq BAM, resolving each molecule's
compatible isoform set against per-gene exon and splice-junction indices.
*/

import (
	"context"
	"flag"
	"runtime"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"

	"github.com/Clarkvale/stitcher/encoding/gtf"
	"github.com/Clarkvale/stitcher/encoding/htsio"
	"github.com/Clarkvale/stitcher/isoformdb"
	"github.com/Clarkvale/stitcher/stitcher"
)

var (
	bamPath       = flag.String("input", "", "Input BAM path (must have a matching .bai index)")
	outputPath    = flag.String("output", "", "Output BAM path")
	gtfPath       = flag.String("gtf", "", "GTF annotation path; gene spans are read from its 'gene' feature rows")
	geneIdentAttr = flag.String("gene-identifier", "gene_id", "GTF attribute gene tasks are identified by: 'gene_id' or 'gene_name'")
	contig        = flag.String("contig", "", "Restrict to a single reference sequence; empty means every contig in the GTF")
	exonIndexPath = flag.String("isoform", "", "Path to the per-gene exonic-coverage isoform index (JSON)")
	juncIndexPath = flag.String("junction", "", "Path to the per-gene splice-junction isoform index (JSON)")
	skipIso       = flag.Bool("skip-iso", false, "Skip isoform resolution; output records carry no CT tag")
	cellListPath  = flag.String("cells", "", "Optional file of whitelisted cell barcodes, one per line")
	geneListPath  = flag.String("genes", "", "Optional file restricting which genes are processed, one ID per line")
	umiTag        = flag.String("UMI-tag", "UB", "Two-letter aux tag the corrected UMI is read from")
	singleEnd     = flag.Bool("single-end", false, "Treat input as single-end; skip the proper-pair eligibility filter")
	parallelism   = flag.Int("threads", runtime.NumCPU(), "Number of genes to stitch concurrently")
	queueLength   = flag.Int("queue-length", runtime.NumCPU()*4, "Number of finished gene batches to buffer ahead of the BAM writer")
	errorLogPath  = flag.String("error-log", "", "Path to write failed group keys and per-gene completion markers; empty disables the log")
)

func readLineSet(ctx context.Context, path string) map[string]bool {
	if path == "" {
		return nil
	}
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		log.Fatalf("reading %s: %v", path, err)
	}
	set := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			set[line] = true
		}
	}
	return set
}

func parseUMITag(s string) sam.Tag {
	if len(s) != 2 {
		log.Fatalf("-UMI-tag must be exactly two characters, got %q", s)
	}
	return sam.Tag{s[0], s[1]}
}

func main() {
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() > 0 {
		a := flag.Args()
		log.Fatalf("unparsed arguments, please check flag syntax: '%s'", strings.Join(a[len(a)-flag.NArg():], " "))
	}
	if *bamPath == "" || *outputPath == "" || *gtfPath == "" {
		log.Fatalf("-input, -output, and -gtf are required")
	}

	ctx := vcontext.Background()

	which := gtf.GeneID
	if *geneIdentAttr == string(gtf.GeneName) {
		which = gtf.GeneName
	}
	geneWhitelist := readLineSet(ctx, *geneListPath)
	genes, err := gtf.Load(ctx, *gtfPath, which, *contig, geneWhitelist)
	if err != nil {
		log.Fatalf("loading %s: %v", *gtfPath, err)
	}
	if len(genes) == 0 {
		log.Fatalf("no genes loaded from %s", *gtfPath)
	}
	geneIDs := make([]string, len(genes))
	for i, g := range genes {
		geneIDs[i] = g.ID
	}

	var exonIdx, juncIdx isoformdb.Dictionary
	if !*skipIso {
		if *exonIndexPath == "" {
			log.Fatalf("-isoform is required unless -skip-iso is set")
		}
		exonIdx, err = isoformdb.Load(ctx, *exonIndexPath)
		if err != nil {
			log.Fatalf("loading %s: %v", *exonIndexPath, err)
		}
		if *juncIndexPath != "" {
			juncIdx, err = isoformdb.Load(ctx, *juncIndexPath)
			if err != nil {
				log.Fatalf("loading %s: %v", *juncIndexPath, err)
			}
		}
	}

	cells := readLineSet(ctx, *cellListPath)

	provider := htsio.NewProvider(ctx, *bamPath, parseUMITag(*umiTag), genes)
	headerHandle, err := provider.Open()
	if err != nil {
		log.Fatalf("opening %s: %v", *bamPath, err)
	}
	header := headerHandle.Header()
	refsByName := make(map[string]*sam.Reference, len(header.Refs()))
	for _, r := range header.Refs() {
		refsByName[r.Name()] = r
	}
	headerHandle.Close()

	kept := geneIDs[:0]
	for _, g := range genes {
		if refsByName[g.Seqid] == nil {
			log.Error.Printf("gene %s: contig %s is not in the header of %s; skipping", g.ID, g.Seqid, *bamPath)
			continue
		}
		kept = append(kept, g.ID)
	}
	geneIDs = kept

	writer, err := htsio.NewWriter(ctx, *outputPath, header, *parallelism)
	if err != nil {
		log.Fatalf("creating %s: %v", *outputPath, err)
	}

	var errLog *stitcher.ErrorLog
	var errLogFile file.File
	if *errorLogPath != "" {
		errLogFile, err = file.Create(ctx, *errorLogPath)
		if err != nil {
			log.Fatalf("creating %s: %v", *errorLogPath, err)
		}
		errLog = stitcher.NewErrorLog(errLogFile.Writer(ctx))
	} else {
		errLog = stitcher.NewErrorLog(discard{})
	}

	opts := stitcher.Opts{
		Parallelism: *parallelism,
		QueueLength: *queueLength,
		SingleEnd:   *singleEnd,
		SkipIso:     *skipIso,
		UMITag:      *umiTag,
		Cells:       cells,
	}

	resolveRef := func(name string) *sam.Reference { return refsByName[name] }

	fetcher := &perGeneFetcher{provider: provider}
	runErr := stitcher.Run(geneIDs, fetcher, resolveRef, exonIdx, juncIdx, opts, writer, errLog)

	if err := errLog.Flush(); err != nil {
		log.Printf("flushing error log: %v", err)
	}
	if errLogFile != nil {
		if err := errLogFile.Close(ctx); err != nil {
			log.Printf("closing %s: %v", *errorLogPath, err)
		}
	}
	if err := writer.Close(); err != nil {
		log.Fatalf("closing %s: %v", *outputPath, err)
	}
	if runErr != nil {
		log.Fatalf("stitching: %v", runErr)
	}
	log.Debug.Printf("exiting")
}

// perGeneFetcher opens a fresh htsio.Handle per gene fetch so that
// stitcher.Run's concurrent workers never share BAM reader/iterator state,
// which biogo/hts does not support concurrently.
type perGeneFetcher struct {
	provider *htsio.Provider
}

func (f *perGeneFetcher) Reads(geneID string) ([]stitcher.RawRead, error) {
	h, err := f.provider.Open()
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.Reads(geneID)
}

// discard is an io.Writer that throws away everything written to it, used
// when no error log path is configured.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
