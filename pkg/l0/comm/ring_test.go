package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRing(t *testing.T) *Ring {
	r, err := NewRing(MinRingCapacity)
	require.NoError(t, err)
	return r
}

func requireRingInvariant(t *testing.T, r *Ring) {
	require.True(t, r.head >= 0 && r.head < r.Cap(), "head in range")
	require.True(t, r.tail >= 0 && r.tail < r.Cap(), "tail in range")
	require.True(t, r.cursor >= 0 && r.cursor < r.Cap(), "cursor in range")
	require.True(t, r.Len() < r.Cap(), "occupied < capacity")
	require.True(t, r.distance(r.head, r.cursor) <= r.Len(), "cursor between head and tail")
}

func TestRingCapacity(t *testing.T) {
	_, err := NewRing(MinRingCapacity - 1)
	require.Error(t, err)
	require.IsType(t, &CapacityError{}, err)
	r, err := NewRing(MinRingCapacity)
	require.NoError(t, err)
	require.Equal(t, MinRingCapacity, r.Cap())
}

func TestRingFIFO(t *testing.T) {
	r := newTestRing(t)
	_, ok := r.Next()
	require.False(t, ok)
	for i := 0; i < 3*r.Cap(); i++ {
		require.True(t, r.Push(byte(i)))
		b, ok := r.Next()
		require.True(t, ok)
		require.Equalf(t, byte(i), b, "seq[%d] mismatch", i)
		r.Commit()
		requireRingInvariant(t, r)
	}
	require.Zero(t, r.Len())
	require.Zero(t, r.Overflows())
}

func TestRingRewind(t *testing.T) {
	r := newTestRing(t)
	for _, b := range []byte{1, 2, 3, 4} {
		r.Push(b)
	}
	b, _ := r.Next()
	require.Equal(t, byte(1), b)
	r.Commit()
	r.Next()
	r.Next()
	require.Equal(t, 3, r.Len())
	require.Equal(t, 1, r.Unread())
	r.Rewind()
	require.Equal(t, 3, r.Unread())
	b, _ = r.Next()
	require.Equal(t, byte(2), b)
}

func TestRingTake(t *testing.T) {
	r := newTestRing(t)
	// wrap the indices first
	for i := 0; i < r.Cap()-2; i++ {
		r.Push(0)
		r.Next()
		r.Commit()
	}
	for _, b := range []byte{1, 2, 3, 0xaa, 0xbb} {
		r.Push(b)
	}
	for i := 0; i < 5; i++ {
		r.Next()
	}
	dst := make([]byte, 3)
	require.True(t, r.Take(dst))
	require.Equal(t, []byte{1, 2, 3}, dst)
	require.Zero(t, r.Len())
	requireRingInvariant(t, r)

	require.False(t, r.Take(make([]byte, 1)), "nothing read ahead")
}

func TestRingOverflow(t *testing.T) {
	testCases := []struct {
		name  string
		extra int
	}{
		{"exactly full", 0},
		{"one over", 1},
		{"wrapped", 17},
		{"many times", 3 * MinRingCapacity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRing(t)
			var signaled int
			r.OnOverflow = func() { signaled++ }
			total := r.Cap() - 1 + tc.extra
			for i := 0; i < total; i++ {
				r.Push(byte(i))
				requireRingInvariant(t, r)
			}
			require.Equal(t, uint64(tc.extra), r.Overflows())
			require.Equal(t, tc.extra, signaled)
			require.Equal(t, r.Cap()-1, r.Len())
			b, ok := r.Next()
			require.True(t, ok)
			require.Equal(t, byte(tc.extra), b, "oldest bytes discarded")
		})
	}
}

func TestRingOverflowSpoilsReadAhead(t *testing.T) {
	r := newTestRing(t)
	r.Push(1)
	r.Push(2)
	r.Next()
	r.Next()
	for i := 0; i < r.Cap()-2; i++ {
		r.Push(0)
	}
	require.Equal(t, uint64(1), r.Overflows())
	require.False(t, r.Take(make([]byte, 1)))
	r.Rewind()
	b, ok := r.Next()
	require.True(t, ok)
	require.Equal(t, byte(2), b)
	requireRingInvariant(t, r)
}

func TestRingPop(t *testing.T) {
	r := newTestRing(t)
	_, ok := r.PopIfAvailable()
	require.False(t, ok)
	r.Push(5)
	r.Push(6)
	b, ok := r.PopIfAvailable()
	require.True(t, ok)
	require.Equal(t, byte(5), b)
	b, _ = r.Next()
	require.Equal(t, byte(6), b)
	r.Reset()
	require.Zero(t, r.Len())
	require.Zero(t, r.Unread())
}
