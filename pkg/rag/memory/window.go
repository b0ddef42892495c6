package memory

const DefaultWindowSize = 10

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role
	Content string
}

// Window keeps the most recent k exchanges (user + assistant pairs) of a
// conversation. It is not safe for concurrent use.
type Window struct {
	k     int
	turns []Turn
}

// NewWindow creates a window holding at most k exchanges.
func NewWindow(k int) *Window {
	if k <= 0 {
		k = DefaultWindowSize
	}
	return &Window{
		k:     k,
		turns: make([]Turn, 0, 2*k+2),
	}
}

// Append adds a turn and evicts the oldest exchange once more than k are held.
func (w *Window) Append(role Role, content string) {
	w.turns = append(w.turns, Turn{Role: role, Content: content})

	excess := len(w.turns) - 2*w.k
	if excess <= 0 {
		return
	}
	// drop whole pairs so the window never starts with an orphaned reply
	if excess%2 != 0 {
		excess++
	}
	if excess > len(w.turns) {
		excess = len(w.turns)
	}
	w.turns = append(w.turns[:0:0], w.turns[excess:]...)
}

// AppendExchange records a completed user/assistant exchange.
func (w *Window) AppendExchange(userText, assistantText string) {
	w.Append(RoleUser, userText)
	w.Append(RoleAssistant, assistantText)
}

// Turns returns the held turns oldest first. The slice is a copy.
func (w *Window) Turns() []Turn {
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out
}

// Exchanges reports how many complete pairs are held.
func (w *Window) Exchanges() int {
	return len(w.turns) / 2
}

func (w *Window) Size() int {
	return w.k
}

func (w *Window) Clear() {
	w.turns = w.turns[:0]
}
