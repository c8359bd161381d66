package classinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(vars []LocalVarInfo) []string {
	out := make([]string, 0, len(vars))
	for _, lv := range vars {
		out = append(out, lv.Name)
	}

	return out
}

func TestScopeTracker_KillThenGen(t *testing.T) {
	locals := []LocalVarInfo{
		{Name: "x", Desc: "I", Slot: 1, Start: 0, End: 2},
		{Name: "y", Desc: "I", Slot: 1, Start: 2, End: 3},
		{Name: "z", Desc: "I", Slot: 2, Start: 1, End: 3},
		{Name: "s", Desc: "Ljava/lang/String;", Slot: 3, Start: 0, End: 3},
	}

	s := NewScopeTracker(locals)
	assert.Empty(t, s.Visible())

	s.Transfer(0)
	assert.Equal(t, []string{"x", "s"}, names(s.Visible()))

	lv, ok := s.Find(1)
	require.True(t, ok)
	assert.Equal(t, "x", lv.Name)

	s.Transfer(-1)
	assert.Equal(t, []string{"x", "s"}, names(s.Visible()))

	s.Transfer(1)
	assert.Equal(t, []string{"x", "z", "s"}, names(s.Visible()))

	s.Transfer(2)
	assert.Equal(t, []string{"y", "z", "s"}, names(s.Visible()))

	lv, ok = s.Find(1)
	require.True(t, ok)
	assert.Equal(t, "y", lv.Name)

	s.Transfer(3)
	assert.Empty(t, s.Visible())

	_, ok = s.Find(3)
	assert.False(t, ok)
}

func TestScopeTracker_PickNth(t *testing.T) {
	locals := []LocalVarInfo{
		{Name: "a", Desc: "I", Slot: 0, Start: 0, End: 5},
		{Name: "f", Desc: "F", Slot: 1, Start: 0, End: 5},
		{Name: "b", Desc: "I", Slot: 2, Start: 0, End: 5},
		{Name: "c", Desc: "I", Slot: 3, Start: 0, End: 5},
		{Name: "late", Desc: "I", Slot: 4, Start: 4, End: 5},
	}

	s := NewScopeTracker(locals)
	s.Transfer(0)

	var picked []string
	for k := 0; k < 3; k++ {
		lv, ok := s.PickNth("I", 0, k)
		require.True(t, ok)
		picked = append(picked, lv.Name)
	}

	assert.Equal(t, []string{"a", "b", "c"}, picked)

	_, ok := s.PickNth("I", 0, 3)
	assert.False(t, ok)

	lv, ok := s.PickNth("I", 1, 1)
	require.True(t, ok)
	assert.Equal(t, "c", lv.Name)

	_, ok = s.PickNth("J", 0, 0)
	assert.False(t, ok)

	_, ok = s.PickNth("I", 0, -1)
	assert.False(t, ok)

	lv, ok = s.Pick(0, func(lv LocalVarInfo) bool { return lv.Desc == "I" && lv.Slot != 0 })
	require.True(t, ok)
	assert.Equal(t, "b", lv.Name)
}
