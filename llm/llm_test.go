package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pithomlabs/cb2docs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCompleter returns its responses in order and records prompts.
type scriptedCompleter struct {
	responses []string
	err       error
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, req Request) (string, error) {
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return "", s.err
	}
	if len(s.prompts) > len(s.responses) {
		return "", fmt.Errorf("unexpected call %d", len(s.prompts))
	}
	return s.responses[len(s.prompts)-1], nil
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []int
	}{
		{"plain json", `{"ordered_components": [2, 0, 1]}`, []int{2, 0, 1}},
		{"fenced json", "Here you go:\n```json\n{\"ordered_components\": [1, 0]}\n```\n", []int{1, 0}},
		{"bare array", `[3, 1, 2, 0]`, []int{3, 1, 2, 0}},
		{"trailing comma repaired", `{"ordered_components": [0, 1,]}`, []int{0, 1}},
		{"prose around json", `The order is {"ordered_components": [1, 0]} as requested.`, []int{1, 0}},
		{"yaml fence", "```yaml\nordered_components:\n  - 1\n  - 0\n```", []int{1, 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode[types.Ordering](tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.OrderedComponents)
		})
	}
}

func TestDecodeRejectsProse(t *testing.T) {
	_, err := Decode[types.ComponentList]("I could not find any components, sorry.")
	assert.Error(t, err)

	_, err = Decode[types.ComponentList]("   ")
	assert.Error(t, err)
}

func TestStructuredSuccess(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		`{"components": [{"name": "Core", "description": "the core", "files": [0]}]}`,
	}}
	res := Structured[types.ComponentList](context.Background(), c, Request{Prompt: "find components"})
	require.Equal(t, OutcomeOK, res.Outcome, res.Err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "Core", res.Value.Components[0].Name)

	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "find components")
	assert.Contains(t, c.prompts[0], `"components"`)
}

func TestStructuredRetriesInvalidOutput(t *testing.T) {
	c := &scriptedCompleter{responses: []string{
		"not json at all",
		`{"components": []}`,
		`{"components": [{"name": "Core", "description": "d", "files": []}]}`,
	}}
	res := Structured[types.ComponentList](context.Background(), c, Request{Prompt: "p"}, WithMaxAttempts(3))
	require.Equal(t, OutcomeOK, res.Outcome, res.Err)
	assert.Equal(t, 3, res.Attempts)
	assert.Contains(t, c.prompts[2], "no components returned")
}

func TestStructuredGivesUp(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"nope", "still nope"}}
	res := Structured[types.ComponentList](context.Background(), c, Request{Prompt: "p"}, WithMaxAttempts(2))
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrValidation)
	assert.Equal(t, "still nope", res.Raw)

	_, err := res.Unwrap()
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStructuredTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	c := &scriptedCompleter{err: boom}
	res := Structured[types.Ordering](context.Background(), c, Request{Prompt: "p"})
	assert.Equal(t, OutcomeTransport, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrTransport)
	assert.ErrorIs(t, res.Err, boom)
	assert.Len(t, c.prompts, 1)
}

func TestText(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"# Chapter 1: Core\n"}}
	text, err := Text(context.Background(), c, Request{Prompt: "write"})
	require.NoError(t, err)
	assert.Equal(t, "# Chapter 1: Core\n", text)

	_, err = Text(context.Background(), &scriptedCompleter{err: errors.New("down")}, Request{})
	assert.ErrorIs(t, err, ErrTransport)
}

func TestSchemaForWithHook(t *testing.T) {
	out, err := SchemaFor[types.ComponentList](func(schema map[string]any) {
		props := schema["properties"].(map[string]any)
		comps := props["components"].(map[string]any)
		comps["minItems"] = 4
		comps["maxItems"] = 7
	})
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	comps := schema["properties"].(map[string]any)["components"].(map[string]any)
	assert.EqualValues(t, 4, comps["minItems"])
	assert.EqualValues(t, 7, comps["maxItems"])
	assert.Equal(t, "array", comps["type"])
	assert.NotContains(t, schema, "$schema")
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < 8; attempt++ {
		d := Backoff(attempt)
		base := time.Duration(1<<uint(attempt)) * time.Second
		if base > 30*time.Second {
			base = 30 * time.Second
		}
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+base/2)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &RetryableError{Message: "429"})))
	assert.False(t, IsRetryable(errors.New("bad request")))
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4", c.Model())
}
