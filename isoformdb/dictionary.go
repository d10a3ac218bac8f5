package isoformdb

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"

	"github.com/Clarkvale/stitcher/interval"
)

// IntronicSentinel is the isoform-set label applied to positions not
// covered by any named isoform footprint.
const IntronicSentinel = "intronic"

// Entry pairs one interval key of the index with its isoform set.
type Entry struct {
	Span     interval.Pair
	Isoforms map[string]struct{}
}

// Dictionary maps a gene_id to the interval->isoform-set entries loaded for
// it. The zero value is an empty dictionary.
type Dictionary map[string][]Entry

// Load reads one isoform or junction index file: a JSON object of
// gene_id -> {"[lo,hi]": "isoform_a,isoform_b"}.
func Load(ctx context.Context, path string) (Dictionary, error) {
	rc, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "isoformdb: opening %s", path)
	}
	defer rc.Close(ctx)

	var raw map[string]map[string]string
	if err := json.NewDecoder(rc.Reader(ctx)).Decode(&raw); err != nil {
		return nil, errors.Wrapf(err, "isoformdb: decoding %s", path)
	}

	dict := make(Dictionary, len(raw))
	for gene, spans := range raw {
		entries := make([]Entry, 0, len(spans))
		for spanStr, isoCSV := range spans {
			span, err := parseSpan(spanStr)
			if err != nil {
				return nil, errors.Wrapf(err, "isoformdb: gene %s", gene)
			}
			entries = append(entries, Entry{Span: span, Isoforms: splitSet(isoCSV)})
		}
		dict[gene] = entries
	}
	return dict, nil
}

func splitSet(csv string) map[string]struct{} {
	parts := strings.Split(csv, ",")
	set := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// parseSpan parses a closed-interval key of the form "[lo,hi]".
func parseSpan(s string) (interval.Pair, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return interval.Pair{}, errors.Errorf("isoformdb: malformed interval %q", s)
	}
	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return interval.Pair{}, errors.Wrapf(err, "isoformdb: interval %q", s)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return interval.Pair{}, errors.Wrapf(err, "isoformdb: interval %q", s)
	}
	return interval.Pair{Lo: lo, Hi: hi}, nil
}

// minOverlap is the minimum number of overlapping positions an index entry
// must share with the query before its isoform set is considered: an entry
// qualifies when its overlap, summed over all of the query's intervals, is
// longer than this.
const minOverlap = 4

// Query returns the isoform sets of every index entry for gene that overlaps
// q by more than minOverlap positions, plus the intronic sentinel set if any
// part of q is left uncovered by more than minOverlap positions. ok is false
// if gene has no entries at all in the dictionary.
func (d Dictionary) Query(gene string, q interval.Set) (sets []map[string]struct{}, ok bool) {
	entries, ok := d[gene]
	if !ok {
		return nil, false
	}

	covered := interval.Set{}
	for _, e := range entries {
		overlap := interval.Intersect(q, interval.FromPairs([]interval.Pair{e.Span}))
		if overlap.Len() > minOverlap {
			sets = append(sets, e.Isoforms)
			covered = interval.Union(covered, overlap)
		}
	}

	remainder := interval.Difference(q, covered)
	if remainder.Len() > minOverlap {
		sets = append(sets, map[string]struct{}{IntronicSentinel: {}})
	}
	return sets, true
}
