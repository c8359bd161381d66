package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string
	Tests []string
	Score float64
}

func newSpill[T any](t *testing.T) FileSpill[T] {
	t.Helper()

	spill, err := NewFileSpill[T](t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = spill.Close() })

	return spill
}

func TestFileSpill(t *testing.T) {
	t.Run("NewFileSpill in default directory", func(t *testing.T) {
		spill, err := NewFileSpill[int]("")
		require.NoError(t, err)
		defer spill.Close()

		assert.Contains(t, spill.Path(), filepath.Join(os.TempDir(), "mutafix-spill"))
	})

	t.Run("Append and Get", func(t *testing.T) {
		spill := newSpill[string](t)

		require.NoError(t, spill.Append("first"))
		require.NoError(t, spill.Append("second"))

		got, err := spill.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "first", got)

		got, err = spill.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "second", got)

		got, err = spill.Get(3)
		require.Error(t, err)
		assert.Empty(t, got)
	})

	t.Run("Len counts appended items", func(t *testing.T) {
		spill := newSpill[int](t)
		assert.Equal(t, uint64(0), spill.Len())

		require.NoError(t, spill.Append(1))
		require.NoError(t, spill.AppendBatch([]int{2, 3}))
		assert.Equal(t, uint64(3), spill.Len())
	})

	t.Run("Range keeps append order", func(t *testing.T) {
		spill := newSpill[int](t)
		require.NoError(t, spill.AppendBatch([]int{5, 6, 7}))

		var got []int
		require.NoError(t, spill.Range(func(_ uint64, item int) error {
			got = append(got, item)
			return nil
		}))
		assert.Equal(t, []int{5, 6, 7}, got)

		require.NoError(t, spill.Append(8))

		got = got[:0]
		require.NoError(t, spill.Range(func(_ uint64, item int) error {
			got = append(got, item)
			return nil
		}))
		assert.Equal(t, []int{5, 6, 7, 8}, got)
	})

	t.Run("Range stops on callback error", func(t *testing.T) {
		spill := newSpill[int](t)
		require.NoError(t, spill.AppendBatch([]int{1, 2, 3}))

		boom := errors.New("boom")
		visited := 0

		err := spill.Range(func(index uint64, _ int) error {
			visited++
			if index == 1 {
				return boom
			}

			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 2, visited)
	})

	t.Run("zero fields do not leak between items", func(t *testing.T) {
		spill := newSpill[record](t)
		require.NoError(t, spill.AppendBatch([]record{
			{Name: "a", Tests: []string{"t1"}, Score: 0.5},
			{Name: "b"},
		}))

		got, err := spill.Get(1)
		require.NoError(t, err)
		assert.Equal(t, record{Name: "b"}, got)
	})

	t.Run("concurrent batches stay whole", func(t *testing.T) {
		spill := newSpill[int](t)

		var wg sync.WaitGroup
		for w := range 4 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				assert.NoError(t, spill.AppendBatch([]int{w * 10, w*10 + 1}))
			}()
		}

		wg.Wait()

		var got []int
		require.NoError(t, spill.Range(func(_ uint64, item int) error {
			got = append(got, item)
			return nil
		}))
		require.Len(t, got, 8)

		for i := 0; i < len(got); i += 2 {
			assert.Equal(t, got[i]+1, got[i+1])
		}
	})

	t.Run("Close removes the file", func(t *testing.T) {
		spill, err := NewFileSpill[int](t.TempDir())
		require.NoError(t, err)
		require.NoError(t, spill.Append(1))

		require.NoError(t, spill.Close())
		require.NoError(t, spill.Close())

		_, err = os.Stat(spill.Path())
		require.ErrorIs(t, err, os.ErrNotExist)

		require.ErrorIs(t, spill.Append(2), ErrSpillClosed)
		require.ErrorIs(t, spill.Range(func(uint64, int) error { return nil }), ErrSpillClosed)
	})
}
