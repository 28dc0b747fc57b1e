package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitSet_SetAndIsSet(t *testing.T) {
	bs := NewBitSet(100)

	bs.Set(0)
	bs.Set(63)
	bs.Set(64)
	bs.Set(99)

	for _, idx := range []uint64{0, 63, 64, 99} {
		assert.True(t, bs.IsSet(idx), "expected bit %d to be set", idx)
	}
	assert.False(t, bs.IsSet(1))
}

func TestBitSet_Unset(t *testing.T) {
	bs := NewBitSet(100)
	bs.Set(10)
	bs.Set(20)
	bs.Set(30)

	bs.Unset(20)

	assert.False(t, bs.IsSet(20))
	assert.True(t, bs.IsSet(10))
	assert.True(t, bs.IsSet(30))

	bs.Clear()
	assert.False(t, bs.IsSet(10))
	assert.False(t, bs.IsSet(30))
}

func TestBitSet_CloneIsIndependent(t *testing.T) {
	parent := NewBitSet(8)
	parent.Set(1)

	child := parent.With(5)

	assert.True(t, child.IsSet(1), "child should inherit parent bits")
	assert.True(t, child.IsSet(5))
	assert.False(t, parent.IsSet(5), "parent must not see bits set on the child")

	clone := parent.Clone()
	clone.Unset(1)
	assert.True(t, parent.IsSet(1))
}

func TestBitSet_SetFrom(t *testing.T) {
	src := BitSet{0b1010, 0b1111}
	dst := BitSet{0, 0}

	dst.SetFrom(src)
	assert.Equal(t, src, dst)

	assert.Panics(t, func() {
		shortDst := BitSet{0}
		shortDst.SetFrom(src)
	})
}
