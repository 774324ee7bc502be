package chunk

import (
	"fmt"
	"math"
)

// Family groups grammars whose keys are comparable by value.
// Numeric families always order before alphabetic ones.
type Family uint8

const (
	FamilyNumeric Family = iota
	FamilyAlpha
)

func (f Family) String() string {
	switch f {
	case FamilyNumeric:
		return "numeric"
	case FamilyAlpha:
		return "alpha"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// AlphaKeyOffset is the flat integer offset applied to alphabetic keys by
// Key.Int. It sits above any realistic numeric chunk count so that a base
// name owning fragments of both families keeps the numeric ones first.
const AlphaKeyOffset = 1_000_000

// Key is the derived ordering key of a chunk suffix. Keys compare by family
// first, then by value.
type Key struct {
	Family Family
	Value  uint64
}

// Less reports whether k orders before o.
func (k Key) Less(o Key) bool {
	if k.Family != o.Family {
		return k.Family < o.Family
	}
	return k.Value < o.Value
}

// Compare returns -1, 0 or +1.
func (k Key) Compare(o Key) int {
	switch {
	case k.Less(o):
		return -1
	case o.Less(k):
		return 1
	default:
		return 0
	}
}

// Int flattens the key into one integer using AlphaKeyOffset. It reports
// false when a numeric value reaches the offset or an alphabetic value
// would overflow.
func (k Key) Int() (uint64, bool) {
	if k.Family == FamilyNumeric {
		return k.Value, k.Value < AlphaKeyOffset
	}
	if k.Value > math.MaxUint64-AlphaKeyOffset {
		return 0, false
	}
	return k.Value + AlphaKeyOffset, true
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Family, k.Value)
}

// Ref is one discovered chunk file.
type Ref struct {
	Path    string
	Name    string
	Size    int64
	Key     Key
	Grammar *Grammar
}

// Set is the ordered chunk sequence of one split archive.
type Set struct {
	Base   string
	Dir    string
	Chunks []Ref
	// Output is the derived output path inside Dir.
	Output string
}

// TotalSize sums the sizes of all chunks.
func (s *Set) TotalSize() int64 {
	var total int64
	for _, c := range s.Chunks {
		total += c.Size
	}
	return total
}

// Names lists chunk file names in order.
func (s *Set) Names() []string {
	names := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		names[i] = c.Name
	}
	return names
}

// DigestValue is a finalized digest.
type DigestValue struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Result is produced once, after the output has been closed successfully.
type Result struct {
	Output string
	// Size is read back from the filesystem after close.
	Size int64
	// Written is the running total observed while copying.
	Written int64
	Digests []DigestValue
}

// Digest returns the hex value of the named digest, or "" if absent.
func (r *Result) Digest(name string) string {
	for _, d := range r.Digests {
		if d.Name == name {
			return d.Hex
		}
	}
	return ""
}

// Progress is emitted after every block copied.
type Progress struct {
	Index        int
	Count        int
	Name         string
	ChunkSize    int64
	ChunkWritten int64
	Block        int
	Written      int64
	Total        int64
	// Percent is Written/Total*100 rounded to two decimals, or 100 when
	// Total is zero.
	Percent float64
}

func percent(written, total int64) float64 {
	if total <= 0 {
		return 100
	}
	return math.Round(float64(written)/float64(total)*100*100) / 100
}
