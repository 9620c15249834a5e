package region

import (
	"fmt"
	"sort"
)

// Table is an immutable, origin-sorted set of disjoint regions.
type Table struct {
	regions []Region
	byName  map[string]int
}

// NewTable validates the regions and builds a table. The first problem found
// is returned; no table is produced for an invalid set.
func NewTable(regions ...Region) (*Table, error) {
	sorted := make([]Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Origin < sorted[j].Origin
	})

	t := &Table{
		regions: sorted,
		byName:  make(map[string]int, len(sorted)),
	}
	for i, r := range sorted {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byName[r.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, r.Name)
		}
		t.byName[r.Name] = i
		if i > 0 && sorted[i-1].Overlaps(r) {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlap, sorted[i-1], r)
		}
	}
	return t, nil
}

// With returns a new table with r added, leaving t untouched.
func (t *Table) With(r Region) (*Table, error) {
	return NewTable(append(t.Regions(), r)...)
}

// Regions returns a copy of the regions in origin order.
func (t *Table) Regions() []Region {
	out := make([]Region, len(t.regions))
	copy(out, t.regions)
	return out
}

// Len returns the number of regions.
func (t *Table) Len() int {
	return len(t.regions)
}

// Get returns the region with the given name.
func (t *Table) Get(name string) (Region, error) {
	i, ok := t.byName[name]
	if !ok {
		return Region{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t.regions[i], nil
}

// Lookup returns the region containing the byte address.
func (t *Table) Lookup(byteAddr uint64) (Region, bool) {
	i := sort.Search(len(t.regions), func(i int) bool {
		return t.regions[i].End() > byteAddr
	})
	if i < len(t.regions) && t.regions[i].Contains(byteAddr) {
		return t.regions[i], true
	}
	return Region{}, false
}
