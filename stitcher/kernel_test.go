package stitcher

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cig(ops ...sam.CigarOp) sam.Cigar { return sam.Cigar(ops) }

func m(n int) sam.CigarOp  { return sam.NewCigarOp(sam.CigarMatch, n) }
func n_(n int) sam.CigarOp { return sam.NewCigarOp(sam.CigarSkipped, n) }

func q30(n int) []byte {
	q := make([]byte, n)
	for i := range q {
		q[i] = 30
	}
	return q
}

func TestStitchSingleRead(t *testing.T) {
	// S1: one single-end read, 10M at ref pos 100 (0-based), all Q30.
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{
			Ref: "chr1", Pos: 100, Cigar: cig(m(10)),
			Seq: []byte("ACGTACGTAC"), Qual: q30(10),
			Reverse: false, Read1: true, Exonic: true,
		},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTAC", string(mm.Bases))
	hull, ok := mm.Footprints.Covered.Hull()
	require.True(t, ok)
	assert.Equal(t, 100, hull.Lo)
	assert.Equal(t, 109, hull.Hi)
	assert.Equal(t, 1, mm.NR)
	for _, q := range mm.Quals {
		assert.GreaterOrEqual(t, int(q), 20)
	}
}

func TestStitchSkippedRegionAgreement(t *testing.T) {
	// S3: two reads, 5M10N5M at the same reference position, agreeing bases.
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	seq := []byte("ACGTAACGTA")
	mkRead := func(read1 bool) ReadView {
		return ReadView{
			Ref: "chr1", Pos: 100, Cigar: cig(m(5), n_(10), m(5)),
			Seq: seq, Qual: q30(10),
			Reverse: false, Read1: read1, Exonic: true,
		}
	}
	reads := []ReadView{mkRead(true), mkRead(false)}
	mm, err := Stitch(reads, false, key)
	require.NoError(t, err)
	assert.Equal(t, seq, mm.Bases)
	skipPairs := mm.Footprints.Skipped.Pairs()
	require.Len(t, skipPairs, 1)
	assert.Equal(t, 105, skipPairs[0].Lo)
	assert.Equal(t, 114, skipPairs[0].Hi)
	covPairs := mm.Footprints.Covered.Pairs()
	require.Len(t, covPairs, 2)
}

func TestStitchDisagreementTie(t *testing.T) {
	// S4: two reads disagree at one column, A vs T, both Q30.
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 100, Cigar: cig(m(1)), Seq: []byte("A"), Qual: q30(1), Read1: true},
		{Ref: "chr1", Pos: 100, Cigar: cig(m(1)), Seq: []byte("T"), Qual: q30(1), Read1: false},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	require.Len(t, mm.Bases, 1)
	assert.Equal(t, byte('A'), mm.Bases[0])
	assert.Equal(t, byte(3), mm.Quals[0])
}

func TestStitchMajorityHighQuality(t *testing.T) {
	// Property 4: >=2 reads agree at Q>=20 with no disagreement => Phred>=20.
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 50, Cigar: cig(m(1)), Seq: []byte("G"), Qual: []byte{25}, Read1: true},
		{Ref: "chr1", Pos: 50, Cigar: cig(m(1)), Seq: []byte("G"), Qual: []byte{25}, Read1: false},
	}
	mm, err := Stitch(reads, true, key)
	require.NoError(t, err)
	assert.Equal(t, byte('G'), mm.Bases[0])
	assert.GreaterOrEqual(t, int(mm.Quals[0]), 20)
}

func TestStitchEmptyGroup(t *testing.T) {
	_, err := Stitch(nil, true, GroupKey{Cell: "c", Gene: "g", UMI: "u"})
	assert.ErrorIs(t, err, ErrEmptyGroup)
}

func TestStitchNoStrandEvidencePairedEmptyUMI(t *testing.T) {
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: ""}
	reads := []ReadView{
		{Ref: "chr1", Pos: 0, Cigar: cig(m(3)), Seq: []byte("ACG"), Qual: q30(3), Read1: true},
	}
	_, err := Stitch(reads, false, key)
	assert.ErrorIs(t, err, ErrNoStrandEvidence)
}

func TestStitchCrossReferenceRejected(t *testing.T) {
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 0, Cigar: cig(m(3)), Seq: []byte("ACG"), Qual: q30(3), Read1: true},
		{Ref: "chr2", Pos: 0, Cigar: cig(m(3)), Seq: []byte("ACG"), Qual: q30(3), Read1: true},
	}
	_, err := Stitch(reads, true, key)
	assert.Error(t, err)
}

func TestStitchDeletionFootprintFromGap(t *testing.T) {
	// S2-style: two non-overlapping covered blocks with a gap between them
	// become a deleted footprint once unioned with no skip evidence there.
	key := GroupKey{Cell: "AAAA", Gene: "G1", UMI: "UUUU"}
	reads := []ReadView{
		{Ref: "chr1", Pos: 100, Cigar: cig(m(10)), Seq: []byte("ACGTACGTAC"), Qual: q30(10), Read1: true},
		{Ref: "chr1", Pos: 120, Cigar: cig(m(10)), Seq: []byte("ACGTACGTAC"), Qual: q30(10), Read1: false},
	}
	mm, err := Stitch(reads, false, key)
	require.NoError(t, err)
	del := mm.Footprints.Deleted.Pairs()
	require.Len(t, del, 1)
	assert.Equal(t, 110, del[0].Lo)
	assert.Equal(t, 119, del[0].Hi)
}
