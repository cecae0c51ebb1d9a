package subtitle

import "sort"

// Resolve returns the first entry, in sequence order, whose closed interval
// [Start, End] contains pos.
func Resolve(entries []Entry, pos float64) (Entry, bool) {
	for _, e := range entries {
		if e.Contains(pos) {
			return e, true
		}
	}
	return Entry{}, false
}

// Index answers the same question as Resolve without scanning every entry.
// Entries are kept in their original order; lookups use a start-sorted view.
type Index struct {
	entries []Entry
	byStart []int     // positions into entries, ordered by Start
	maxEnd  []float64 // running max of End over byStart
}

func NewIndex(entries []Entry) *Index {
	idx := &Index{
		entries: entries,
		byStart: make([]int, len(entries)),
		maxEnd:  make([]float64, len(entries)),
	}
	for i := range entries {
		idx.byStart[i] = i
	}
	sort.SliceStable(idx.byStart, func(a, b int) bool {
		return entries[idx.byStart[a]].Start < entries[idx.byStart[b]].Start
	})
	for i, pos := range idx.byStart {
		end := entries[pos].End
		if i > 0 && idx.maxEnd[i-1] > end {
			end = idx.maxEnd[i-1]
		}
		idx.maxEnd[i] = end
	}
	return idx
}

func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

func (idx *Index) Entries() []Entry {
	if idx == nil {
		return nil
	}
	return idx.entries
}

// At returns the entry active at pos. Among overlapping candidates the one
// earliest in the original sequence wins, matching Resolve.
func (idx *Index) At(pos float64) (Entry, bool) {
	if idx.Len() == 0 {
		return Entry{}, false
	}

	// candidates all have Start <= pos
	k := sort.Search(len(idx.byStart), func(i int) bool {
		return idx.entries[idx.byStart[i]].Start > pos
	})

	best := -1
	for i := k - 1; i >= 0; i-- {
		if idx.maxEnd[i] < pos {
			break
		}
		orig := idx.byStart[i]
		if idx.entries[orig].End >= pos && (best < 0 || orig < best) {
			best = orig
		}
	}
	if best < 0 {
		return Entry{}, false
	}
	return idx.entries[best], true
}
