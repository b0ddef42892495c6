package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat-be/internal/constant"
	"pdfchat-be/pkg/llm"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/rag/memory"
)

type scriptedLLM struct {
	calls   [][]llm.Message
	options []llm.Options
	err     error
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.calls = append(s.calls, history)
	s.options = append(s.options, llm.ApplyOptions(llm.Options{}, opts...))
	if s.err != nil {
		return "", s.err
	}

	for _, m := range history[:len(history)-1] {
		if m.Role == llm.RoleUser && strings.Contains(m.Content, "Ada") {
			return "Your name is Ada.", nil
		}
	}
	return fmt.Sprintf("reply %d", len(s.calls)), nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func TestSession_RemembersEarlierTurns(t *testing.T) {
	model := &scriptedLLM{}
	s := New("s1", model, DefaultConfig())

	_, err := s.Reply(context.Background(), "My name is Ada.")
	require.NoError(t, err)

	reply, err := s.Reply(context.Background(), "What is my name?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Ada")

	second := model.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: constant.ChatSystemPrompt}, second[0])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "My name is Ada."}, second[1])
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is my name?"}, second[3])
}

func TestSession_EmptyMessageNeverCallsModel(t *testing.T) {
	model := &scriptedLLM{}
	s := New("s1", model, DefaultConfig())

	for _, msg := range []string{"", "   ", "\n\t"} {
		_, err := s.Reply(context.Background(), msg)
		assert.ErrorIs(t, err, rag.ErrEmptyInput)
	}
	assert.Empty(t, model.calls)
	assert.Empty(t, s.History())
}

func TestSession_ModelFailureLeavesMemoryUnchanged(t *testing.T) {
	model := &scriptedLLM{}
	s := New("s1", model, DefaultConfig())
	_, err := s.Reply(context.Background(), "hello")
	require.NoError(t, err)

	model.err = errors.New("connection refused")
	_, err = s.Reply(context.Background(), "are you there?")

	assert.True(t, rag.IsUpstream(err))
	assert.Len(t, s.History(), 2)
}

func TestSession_WindowIsBounded(t *testing.T) {
	model := &scriptedLLM{}
	s := New("s1", model, DefaultConfig())

	for i := 1; i <= 12; i++ {
		_, err := s.Reply(context.Background(), fmt.Sprintf("message %d", i))
		require.NoError(t, err)
	}

	history := s.History()
	require.Len(t, history, 2*memory.DefaultWindowSize)
	assert.Equal(t, "message 3", history[0].Content)

	// system + 10 remembered exchanges + the new message
	last := model.calls[len(model.calls)-1]
	assert.Len(t, last, 2+2*memory.DefaultWindowSize)
	assert.Equal(t, "message 2", last[1].Content)
}

func TestSession_CallParameters(t *testing.T) {
	model := &scriptedLLM{}
	cfg := DefaultConfig()
	cfg.Model = "llama-3.3-70b-versatile"
	s := New("s1", model, cfg)

	reply, err := s.Respond(context.Background(), "hi")
	require.NoError(t, err)

	assert.Equal(t, rag.ModeChat, reply.Mode)
	assert.Empty(t, reply.Sources)
	require.Len(t, model.options, 1)
	assert.Equal(t, 0.7, model.options[0].Temperature)
	assert.Equal(t, 1000, model.options[0].MaxTokens)
	assert.Equal(t, "llama-3.3-70b-versatile", model.options[0].Model)
}

// stallingLLM never answers on its own; it returns once the call is cancelled.
type stallingLLM struct{}

func (stallingLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (m stallingLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return m.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func TestSession_UpstreamTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UpstreamTimeout = 50 * time.Millisecond
	s := New("s1", stallingLLM{}, cfg)

	start := time.Now()
	_, err := s.Reply(context.Background(), "are you there?")

	assert.True(t, rag.IsUpstream(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Empty(t, s.History())
}
