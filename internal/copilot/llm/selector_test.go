package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

type stubProvider struct {
	name      string
	available bool
	response  *Response
	err       error
	calls     int
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return s.available }

func (s *stubProvider) Complete(_ context.Context, _ Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func req() Request {
	return Request{Messages: []model.Message{model.UserMessage("oi")}}
}

func TestSelectorRequiresFallback(t *testing.T) {
	_, err := NewSelector(nil, nil)
	require.Error(t, err)
}

func TestSelectorUsesPrimary(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, response: &Response{Content: "primary"}}
	fallback := &stubProvider{name: "scripted", available: true, response: &Response{Content: "fallback"}}
	sel, err := NewSelector(primary, fallback)
	require.NoError(t, err)

	resp, err := sel.Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
	assert.Equal(t, "gemini", sel.Primary())
}

func TestSelectorFallsBackOnError(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: true, err: errors.New("upstream 500")}
	fallback := &stubProvider{name: "scripted", available: true, response: &Response{Content: "fallback"}}
	sel, err := NewSelector(primary, fallback)
	require.NoError(t, err)

	resp, err := sel.Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestSelectorSkipsUnavailablePrimary(t *testing.T) {
	primary := &stubProvider{name: "gemini", available: false, response: &Response{Content: "primary"}}
	fallback := &stubProvider{name: "scripted", available: true, response: &Response{Content: "fallback"}}
	sel, err := NewSelector(primary, fallback)
	require.NoError(t, err)

	resp, err := sel.Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)
	assert.Zero(t, primary.calls)
}

func TestSelectorWithoutPrimary(t *testing.T) {
	fallback := &stubProvider{name: "scripted", available: true, response: &Response{Content: "fallback"}}
	sel, err := NewSelector(nil, fallback)
	require.NoError(t, err)

	resp, err := sel.Complete(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, "fallback", resp.Content)
	assert.Equal(t, "scripted", sel.Primary())
}

func TestSelectorSurfacesFallbackFailure(t *testing.T) {
	fallback := &stubProvider{name: "scripted", available: true, err: errors.New("boom")}
	sel, err := NewSelector(nil, fallback)
	require.NoError(t, err)

	_, err = sel.Complete(context.Background(), req())
	require.Error(t, err)
}
