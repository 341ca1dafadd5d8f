package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	fail   map[string]error
	resp   map[string]string
	calls  []string
	search []bool
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, model string, prompt string, opts GenerateOptions) (string, error) {
	s.calls = append(s.calls, model)
	s.search = append(s.search, opts.WebSearch)
	if err := s.fail[model]; err != nil {
		return "", err
	}
	return s.resp[model], nil
}

func (s *stubProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func TestBuildGenerators_FallsBackInOrder(t *testing.T) {
	p := &stubProvider{
		fail: map[string]error{"primary": errors.New("quota")},
		resp: map[string]string{"backup": "  raw answer \n"},
	}
	plain, grounded := BuildGenerators(p, []string{"primary", "", "backup"})
	m := NewManager(plain, grounded, NewEmbedder(p, "embed"), ManagerConfig{Timeout: 5})

	out, err := m.Answer(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, "  raw answer \n", out)
	require.Equal(t, []string{"primary", "backup"}, p.calls)

	p.calls = nil
	p.search = nil
	_, err = m.AnswerWithWebSearch(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []bool{true, true}, p.search)
}

func TestManagerSummarize_TrimsAndRejectsEmpty(t *testing.T) {
	p := &stubProvider{resp: map[string]string{"m": "   "}}
	plain, grounded := BuildGenerators(p, []string{"m"})
	m := NewManager(plain, grounded, nil, ManagerConfig{})
	_, err := m.Summarize(context.Background(), "x")
	require.Error(t, err)

	p.resp["m"] = " - point\n"
	out, err := m.Summarize(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "- point", out)
}

func TestManager_Unconfigured(t *testing.T) {
	m := NewManager(nil, nil, nil, ManagerConfig{})
	_, err := m.Answer(context.Background(), "q")
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = m.Embed(context.Background(), "q", TaskRetrievalQuery)
	require.Error(t, err)
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider("nope", map[string]interface{}{})
	require.Error(t, err)
	p, err := NewProvider("Gemini", map[string]interface{}{"api_key": "k"})
	require.NoError(t, err)
	require.Equal(t, "gemini", p.Name())
}
