package stitcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clarkvale/stitcher/isoformdb"
)

func loadDict(t *testing.T, content string) isoformdb.Dictionary {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "idx.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	dict, err := isoformdb.Load(context.Background(), p)
	require.NoError(t, err)
	return dict
}

func TestResolveSingleIsoform(t *testing.T) {
	exon := loadDict(t, `{"G1": {"[100,109]": "ENST1"}}`)
	junction := loadDict(t, `{"G1": {}}`)

	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 100, Cigar: cig(m(10)), Seq: []byte("ACGTACGTAC"), Qual: q30(10), Read1: true, Exonic: true},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	rr, err := Reconstruct(mm)
	require.NoError(t, err)

	compat, ok := Resolve(mm, rr, exon, junction)
	require.True(t, ok)
	assert.Equal(t, []string{"ENST1"}, compat)
}

func TestResolveUnknownGeneFails(t *testing.T) {
	exon := loadDict(t, `{"OTHER": {"[100,109]": "ENST1"}}`)
	junction := loadDict(t, `{}`)

	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 100, Cigar: cig(m(10)), Seq: []byte("ACGTACGTAC"), Qual: q30(10), Read1: true},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	rr, err := Reconstruct(mm)
	require.NoError(t, err)

	_, ok := Resolve(mm, rr, exon, junction)
	assert.False(t, ok)
}

func TestResolveDisjointIsoformsYieldsNoCT(t *testing.T) {
	// Two distinct covered blocks land in non-overlapping isoforms, so
	// their intersection is empty and CT is dropped.
	exon := loadDict(t, `{"G1": {"[100,109]": "ENST1", "[120,129]": "ENST2"}}`)
	junction := loadDict(t, `{"G1": {}}`)

	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 100, Cigar: cig(m(10), n_(10), m(10)), Seq: []byte("ACGTACGTACACGTACGTAC"), Qual: q30(20), Read1: true},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	rr, err := Reconstruct(mm)
	require.NoError(t, err)

	_, ok := Resolve(mm, rr, exon, junction)
	assert.False(t, ok)
}
