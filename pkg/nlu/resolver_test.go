package nlu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"patient-sim-be/pkg/llm"
)

type stubProvider struct {
	response string
	err      error
	lastChat []llm.Message
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.lastChat = history
	return s.response, s.err
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.response, s.err
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func TestResolveParsesStructuredOutput(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantFeature string
		wantValue   any
	}{
		{
			name:        "binary feature",
			response:    `{"feature":"E_53","value":null}`,
			wantFeature: "E_53",
			wantValue:   nil,
		},
		{
			name:        "categorical value",
			response:    `{"feature":"E_55","value":"V_167"}`,
			wantFeature: "E_55",
			wantValue:   "V_167",
		},
		{
			name:        "ordinal value decodes as number",
			response:    `{"feature":"E_56","value":6}`,
			wantFeature: "E_56",
			wantValue:   float64(6),
		},
		{
			name:        "json wrapped in code fences",
			response:    "```json\n{\"feature\":\"E_91\",\"value\":null}\n```",
			wantFeature: "E_91",
			wantValue:   nil,
		},
		{
			name:        "json embedded in prose",
			response:    `Sure! Here you go: {"feature":"PAIN_ANY","value":null} hope that helps`,
			wantFeature: FeaturePainAny,
			wantValue:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewLLMResolver(&stubProvider{response: tt.response}, nopLogger{})
			got := resolver.Resolve(context.Background(), "whatever")
			assert.Equal(t, tt.wantFeature, got.Feature)
			assert.Equal(t, tt.wantValue, got.Value)
		})
	}
}

func TestResolveFallsBackOnProviderError(t *testing.T) {
	resolver := NewLLMResolver(&stubProvider{err: errors.New("connection refused")}, nopLogger{})

	tests := []struct {
		text string
		want string
	}{
		{text: "Do you have a cough?", want: "E_53"},
		{text: "Any FEVER lately?", want: "E_91"},
		{text: "Is your throat sore throat-ish?", want: "E_97"},
		{text: "Does anything cause you pain?", want: FeaturePainAny},
		{text: "What is your favorite color?", want: FeatureUnknown},
	}

	for _, tt := range tests {
		got := resolver.Resolve(context.Background(), tt.text)
		assert.Equal(t, tt.want, got.Feature, "text %q", tt.text)
		assert.Nil(t, got.Value)
	}
}

func TestResolveFallsBackOnGarbageOutput(t *testing.T) {
	resolver := NewLLMResolver(&stubProvider{response: "I think the patient has a cold."}, nopLogger{})
	got := resolver.Resolve(context.Background(), "do you have a runny nose?")
	assert.Equal(t, "E_201", got.Feature)
}

func TestResolveEmptyFeatureBecomesUnknown(t *testing.T) {
	resolver := NewLLMResolver(&stubProvider{response: `{"feature":"","value":3}`}, nopLogger{})
	got := resolver.Resolve(context.Background(), "gibberish question")
	assert.Equal(t, FeatureUnknown, got.Feature)
	assert.Nil(t, got.Value)
}

func TestResolveSendsSystemPromptAndQuestion(t *testing.T) {
	stub := &stubProvider{response: `{"feature":"E_53","value":null}`}
	resolver := NewLLMResolver(stub, nopLogger{})
	resolver.Resolve(context.Background(), "Do you have a cough?")

	assert.GreaterOrEqual(t, len(stub.lastChat), 2)
	assert.Equal(t, "system", stub.lastChat[0].Role)
	assert.Equal(t, "Do you have a cough?", stub.lastChat[len(stub.lastChat)-1].Content)
}
