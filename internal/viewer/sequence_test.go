package viewer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceCompleteLoad(t *testing.T) {
	for _, total := range []int{1, 2, 7} {
		seq := NewSequence()
		require.NoError(t, seq.BeginLoad(total))
		for n := 1; n <= total; n++ {
			require.NoError(t, seq.AppendPage(RenderedPage{Number: n}))
		}
		require.NoError(t, seq.CompleteLoad())

		pages := seq.Pages()
		require.Len(t, pages, total)
		for k, page := range pages {
			assert.Equal(t, k+1, page.Number)
		}
		assert.Equal(t, StatusReady, seq.Snapshot().Status)
	}
}

func TestSequenceRejectsOutOfOrder(t *testing.T) {
	seq := NewSequence()
	require.NoError(t, seq.BeginLoad(3))
	require.NoError(t, seq.AppendPage(RenderedPage{Number: 1}))

	assert.True(t, errors.Is(seq.AppendPage(RenderedPage{Number: 3}), ErrOutOfOrder))
	assert.True(t, errors.Is(seq.AppendPage(RenderedPage{Number: 1}), ErrOutOfOrder))
	assert.Equal(t, 1, seq.Snapshot().Loaded)

	require.NoError(t, seq.AppendPage(RenderedPage{Number: 2}))
	require.NoError(t, seq.AppendPage(RenderedPage{Number: 3}))
	assert.True(t, errors.Is(seq.AppendPage(RenderedPage{Number: 4}), ErrOutOfOrder))
}

func TestSequenceCompleteRequiresAllPages(t *testing.T) {
	seq := NewSequence()
	require.NoError(t, seq.BeginLoad(2))
	require.NoError(t, seq.AppendPage(RenderedPage{Number: 1}))

	assert.True(t, errors.Is(seq.CompleteLoad(), ErrIncomplete))
	assert.Equal(t, StatusLoading, seq.Snapshot().Status)
	assert.Nil(t, seq.Pages())
	_, ok := seq.Page(1)
	assert.False(t, ok)
}

func TestSequenceFailDiscardsPages(t *testing.T) {
	seq := NewSequence()
	require.NoError(t, seq.BeginLoad(3))
	require.NoError(t, seq.AppendPage(RenderedPage{Number: 1}))

	cause := &DecodeError{Page: 2, Err: errors.New("bad page")}
	seq.FailLoad(cause)

	snap := seq.Snapshot()
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, 0, snap.Loaded)
	assert.Equal(t, cause, snap.Err)
	assert.True(t, errors.Is(seq.AppendPage(RenderedPage{Number: 2}), ErrNotLoading))
}

func TestSequenceRejectsEmptyDocumentAndUnstartedAppend(t *testing.T) {
	seq := NewSequence()
	assert.True(t, errors.Is(seq.BeginLoad(0), ErrEmptyDocument))
	assert.True(t, errors.Is(seq.AppendPage(RenderedPage{Number: 1}), ErrNotLoading))
	assert.True(t, errors.Is(seq.CompleteLoad(), ErrNotLoading))
}

func TestSequenceNotifiesEveryTransition(t *testing.T) {
	seq := NewSequence()
	var seen []SequenceSnapshot
	seq.OnChange(func(s SequenceSnapshot) { seen = append(seen, s) })

	require.NoError(t, seq.BeginLoad(1))
	require.NoError(t, seq.AppendPage(RenderedPage{Number: 1}))
	require.NoError(t, seq.CompleteLoad())
	seq.Reset()

	require.Len(t, seen, 4)
	assert.Equal(t, StatusLoading, seen[0].Status)
	assert.Equal(t, 1, seen[1].Loaded)
	assert.Equal(t, StatusReady, seen[2].Status)
	assert.Equal(t, 0, seen[3].Total)
}
