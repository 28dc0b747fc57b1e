package bitset

import "fmt"

// NewBitSet returns a zeroed set able to hold indices in [0, len).
func NewBitSet(len uint64) BitSet {
	words := (len + 63) / 64
	bits := make([]uint64, words)
	return bits
}

// BitSet is a fixed-size set of small non-negative integers. The cycle finder
// uses it to remember which token indices are already on a partial path.
type BitSet []uint64

func (b BitSet) IsSet(index uint64) bool {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	return (b[wordPosition] & mask) != 0
}

func (b BitSet) Set(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] |= mask
}

func (b BitSet) Unset(index uint64) {
	wordPosition := index / 64
	bitPosition := index % 64
	mask := uint64(1) << bitPosition

	b[wordPosition] = b[wordPosition] &^ mask
}

func (b BitSet) Clear() {
	for i := range b {
		b[i] = 0
	}
}

// Clone returns an independent copy. Each frontier entry of a breadth-first
// search owns its own set, so extending a path never leaks into siblings.
func (b BitSet) Clone() BitSet {
	c := make(BitSet, len(b))
	copy(c, b)
	return c
}

// With returns a copy of b with index set.
func (b BitSet) With(index uint64) BitSet {
	c := b.Clone()
	c.Set(index)
	return c
}

func (b BitSet) SetFrom(o BitSet) {
	if len(b) != len(o) {
		panic(fmt.Sprintf("bitsets must be same size: got %d vs %d", len(b), len(o)))
	}
	copy(b, o)
}
