package interval

import "sort"

// Pair is a closed integer interval [Lo, Hi] on one reference sequence.
type Pair struct {
	Lo, Hi int
}

// Len returns the number of integers the Pair covers.
func (p Pair) Len() int { return p.Hi - p.Lo + 1 }

// Set is a disjoint, ascending, coalesced collection of closed intervals.
// The zero value is the empty set.
type Set struct {
	pairs []Pair
}

// Empty reports whether s contains no positions.
func (s Set) Empty() bool { return len(s.pairs) == 0 }

// Pairs returns the constituent closed intervals in ascending order. The
// caller must not modify the returned slice.
func (s Set) Pairs() []Pair { return s.pairs }

// Len returns the cardinality of s: the sum of the lengths of its Pairs.
func (s Set) Len() int {
	n := 0
	for _, p := range s.pairs {
		n += p.Len()
	}
	return n
}

// Hull returns the smallest Pair enclosing every position in s, and false
// if s is empty.
func (s Set) Hull() (Pair, bool) {
	if s.Empty() {
		return Pair{}, false
	}
	return Pair{s.pairs[0].Lo, s.pairs[len(s.pairs)-1].Hi}, true
}

// coalesce sorts and merges adjacent or overlapping pairs in place. Two
// pairs [a,b] and [c,d] with b+1 >= c coalesce into [a, max(b,d)].
func coalesce(pairs []Pair) []Pair {
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Lo < pairs[j].Lo })
	out := pairs[:1]
	for _, p := range pairs[1:] {
		last := &out[len(out)-1]
		if p.Lo <= last.Hi+1 {
			if p.Hi > last.Hi {
				last.Hi = p.Hi
			}
			continue
		}
		out = append(out, p)
	}
	return out
}

// FromPairs builds a Set from (possibly unsorted, possibly overlapping)
// closed intervals.
func FromPairs(pairs []Pair) Set {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return Set{pairs: coalesce(cp)}
}

// FromSorted builds a Set as the minimal collection of maximal runs of
// consecutive integers found in positions. positions need not be sorted or
// unique.
func FromSorted(positions []int) Set {
	if len(positions) == 0 {
		return Set{}
	}
	sorted := make([]int, len(positions))
	copy(sorted, positions)
	sort.Ints(sorted)

	pairs := make([]Pair, 0, len(sorted))
	runLo, runHi := sorted[0], sorted[0]
	for _, p := range sorted[1:] {
		if p == runHi {
			continue // duplicate
		}
		if p == runHi+1 {
			runHi = p
			continue
		}
		pairs = append(pairs, Pair{runLo, runHi})
		runLo, runHi = p, p
	}
	pairs = append(pairs, Pair{runLo, runHi})
	return Set{pairs: pairs}
}

// Union returns the disjoint union of a and b.
func Union(a, b Set) Set {
	merged := make([]Pair, 0, len(a.pairs)+len(b.pairs))
	merged = append(merged, a.pairs...)
	merged = append(merged, b.pairs...)
	return Set{pairs: coalesce(merged)}
}

// Intersect returns the positions common to a and b.
func Intersect(a, b Set) Set {
	var out []Pair
	i, j := 0, 0
	for i < len(a.pairs) && j < len(b.pairs) {
		p, q := a.pairs[i], b.pairs[j]
		lo := max(p.Lo, q.Lo)
		hi := min(p.Hi, q.Hi)
		if lo <= hi {
			out = append(out, Pair{lo, hi})
		}
		if p.Hi < q.Hi {
			i++
		} else {
			j++
		}
	}
	return Set{pairs: out}
}

// Difference returns the positions in a that are not in b.
func Difference(a, b Set) Set {
	var out []Pair
	j := 0
	for _, p := range a.pairs {
		lo := p.Lo
		for j < len(b.pairs) && b.pairs[j].Hi < lo {
			j++
		}
		k := j
		for k < len(b.pairs) && b.pairs[k].Lo <= p.Hi {
			if b.pairs[k].Lo > lo {
				out = append(out, Pair{lo, b.pairs[k].Lo - 1})
			}
			if b.pairs[k].Hi+1 > lo {
				lo = b.pairs[k].Hi + 1
			}
			k++
		}
		if lo <= p.Hi {
			out = append(out, Pair{lo, p.Hi})
		}
	}
	return Set{pairs: out}
}

// Complement returns the positions in hull that are not in s. hull must
// enclose every position of s; the caller (typically the hull of s itself
// or of some larger covered footprint) is responsible for that invariant.
func Complement(s Set, hull Pair) Set {
	return Difference(Set{pairs: []Pair{hull}}, s)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
