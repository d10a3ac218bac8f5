package gtf

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// GeneIdentifier selects which attribute a Gene's ID is read from.
type GeneIdentifier string

const (
	GeneID   GeneIdentifier = "gene_id"
	GeneName GeneIdentifier = "gene_name"
)

// Gene is one "gene" feature row of a GTF file.
type Gene struct {
	ID    string
	Seqid string
	Start int // 1-based, inclusive, as in the GTF file
	End   int // 1-based, inclusive
}

// gtfRecord mirrors the tab-separated columns of a GTF line, in column
// order; Fields holds the raw column-9 attribute string.
type gtfRecord struct {
	Seqid   string
	Source  string
	Feature string
	Start   int
	End     int
	Score   string
	Strand  string
	Frame   string
	Fields  string
}

var quotedAttr = map[GeneIdentifier]*regexp.Regexp{
	GeneID:   regexp.MustCompile(`gene_id\s+"([^"]+)"`),
	GeneName: regexp.MustCompile(`gene_name\s+"([^"]+)"`),
}

// extractID pulls the gene identifier out of a GTF attribute column. It
// first tries a direct regex match on the requested attribute; if that
// fails (malformed or missing attribute), it falls back to the second
// whitespace-separated token of the attribute string, stripped of the
// characters a trailing quoted value normally carries.
func extractID(attrs string, which GeneIdentifier) string {
	re := quotedAttr[which]
	if re == nil {
		re = quotedAttr[GeneID]
	}
	if m := re.FindStringSubmatch(attrs); m != nil {
		return m[1]
	}
	fields := strings.Split(attrs, " ")
	if len(fields) < 2 {
		return ""
	}
	return strings.Trim(fields[1], `";`+"\n")
}

// Load reads the gene rows of a GTF file, keeping only rows whose feature
// column is "gene". contig, if non-empty, restricts to that reference
// sequence. genes, if non-nil, restricts to gene IDs present in the set.
func Load(ctx context.Context, path string, which GeneIdentifier, contig string, genes map[string]bool) ([]Gene, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "gtf: opening %s", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil {
			log.Printf("gtf: closing %s: %v", path, cerr)
		}
	}()

	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}

	reader := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	reader.Comment = '#'
	reader.LazyQuotes = true

	var out []Gene
	var rec gtfRecord
	for {
		if err := reader.Read(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "gtf: reading %s", path)
		}
		if rec.Feature != "gene" {
			continue
		}
		if contig != "" && rec.Seqid != contig {
			continue
		}
		id := extractID(rec.Fields, which)
		if id == "" {
			continue
		}
		if genes != nil && !genes[id] {
			continue
		}
		out = append(out, Gene{ID: id, Seqid: rec.Seqid, Start: rec.Start, End: rec.End})
	}
	return out, nil
}
