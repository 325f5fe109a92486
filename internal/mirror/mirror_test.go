package mirror

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	t.Run("local wins", func(t *testing.T) {
		remote := NewSet("A", "D")
		local := NewSet("A", "B", "C")

		d := Diff(remote, local)

		assert.Equal(t, []string{"B", "C"}, d.ToAdd.Sorted())
		assert.Equal(t, []string{"D"}, d.ToRemove.Sorted())
		assert.False(t, d.Empty())
	})

	t.Run("applied delta re-diffs empty", func(t *testing.T) {
		remote := NewSet("A", "B", "C")
		local := NewSet("B", "C", "D")

		after := Apply(remote, Diff(remote, local))

		assert.Equal(t, []string{"B", "C", "D"}, after.Sorted())
		assert.True(t, Diff(after, local).Empty())
	})

	t.Run("empty sides", func(t *testing.T) {
		assert.True(t, Diff(NewSet(), NewSet()).Empty())
		assert.Equal(t, []string{"x"}, Diff(NewSet(), NewSet("x")).ToAdd.Sorted())
		assert.Equal(t, []string{"x"}, Diff(NewSet("x"), NewSet()).ToRemove.Sorted())
	})

	t.Run("blank and duplicate ids", func(t *testing.T) {
		s := NewSet("a", "", "a")
		assert.Equal(t, 1, s.Len())
	})
}

func TestDiffIdempotence(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	randomSet := func() Set {
		s := NewSet()
		for range r.IntN(30) {
			s[fmt.Sprintf("t%d", r.IntN(40))] = struct{}{}
		}
		return s
	}

	for i := range 200 {
		remote, local := randomSet(), randomSet()
		d := Diff(remote, local)
		after := Apply(remote, d)

		assert.Equal(t, local.Sorted(), after.Sorted(), "case %d", i)
		assert.True(t, Diff(after, local).Empty(), "case %d", i)

		for id := range d.ToAdd {
			assert.False(t, d.ToRemove.Has(id), "case %d: %s both added and removed", i, id)
		}
	}
}

func TestOrderAdds(t *testing.T) {
	d := Diff(NewSet("b"), NewSet("c", "a", "b"))
	assert.Equal(t, []string{"c", "a"}, d.OrderAdds([]string{"c", "b", "a"}))
}
