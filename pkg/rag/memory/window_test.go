package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillExchanges(w *Window, n int) {
	for i := 0; i < n; i++ {
		w.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
}

func TestWindow_KeepsAllWithinLimit(t *testing.T) {
	for n := 0; n <= 10; n++ {
		w := NewWindow(10)
		fillExchanges(w, n)

		turns := w.Turns()
		require.Len(t, turns, 2*n)
		for i := 0; i < n; i++ {
			assert.Equal(t, Turn{Role: RoleUser, Content: fmt.Sprintf("q%d", i)}, turns[2*i])
			assert.Equal(t, Turn{Role: RoleAssistant, Content: fmt.Sprintf("a%d", i)}, turns[2*i+1])
		}
	}
}

func TestWindow_EvictsOldestFirst(t *testing.T) {
	w := NewWindow(10)
	fillExchanges(w, 15)

	turns := w.Turns()
	require.Len(t, turns, 20)
	assert.Equal(t, 10, w.Exchanges())
	assert.Equal(t, "q5", turns[0].Content)
	assert.Equal(t, "a14", turns[19].Content)
}

func TestWindow_OddAppendDropsWholePair(t *testing.T) {
	w := NewWindow(2)
	fillExchanges(w, 2)

	w.Append(RoleUser, "q2")
	turns := w.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "q1", turns[0].Content)
	assert.Equal(t, RoleUser, turns[0].Role)

	w.Append(RoleAssistant, "a2")
	turns = w.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, contents(turns))
}

func TestWindow_TurnsIsACopy(t *testing.T) {
	w := NewWindow(3)
	w.AppendExchange("hello", "hi")

	turns := w.Turns()
	turns[0].Content = "mutated"

	assert.Equal(t, "hello", w.Turns()[0].Content)
}

func TestWindow_DefaultSize(t *testing.T) {
	assert.Equal(t, DefaultWindowSize, NewWindow(0).Size())
}

func contents(turns []Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}
