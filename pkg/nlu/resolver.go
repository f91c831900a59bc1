package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"patient-sim-be/internal/constant"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/pkg/llm"
)

// Sentinel features. UNKNOWN means no evidence head matched; downstream
// it behaves like a token with no matching head (decode echoes it,
// presence checks fail). PAIN_ANY is a pseudo-feature for generic pain
// questions, expanded over the pain facets by the patient service.
const (
	FeatureUnknown = "UNKNOWN"
	FeaturePainAny = "PAIN_ANY"
)

// Result is the mapped intent of a student question: an evidence head and
// an optional value (string V_* code, number, or nil), exactly as decoded
// from the model's JSON.
type Result struct {
	Feature string `json:"feature"`
	Value   any    `json:"value"`
}

// Resolver maps a natural-language question to an evidence head and
// optional value. Implementations must be total: mapping failures resolve
// to FeatureUnknown, never to an error the caller has to handle.
type Resolver interface {
	Resolve(ctx context.Context, text string) *Result
}

// keywordFallback guarantees the core intents keep working when the model
// is unreachable or returns garbage. Matched in insertion order.
var keywordFallback = []struct {
	keyword string
	feature string
}{
	{"cough", "E_53"},
	{"fever", "E_91"},
	{"sore throat", "E_97"},
	{"throat pain", "E_97"},
	{"runny nose", "E_201"},
	{"nasal discharge", "E_201"},
	{"pain", FeaturePainAny},
}

// LLMResolver is the model-backed implementation: a deterministic
// (temperature 0) call that must answer in strict JSON, with the keyword
// map as a silent fallback. Resolution failures never propagate to the
// student.
type LLMResolver struct {
	provider llm.LLMProvider
	log      logger.ILogger
}

var _ Resolver = &LLMResolver{}

func NewLLMResolver(provider llm.LLMProvider, log logger.ILogger) *LLMResolver {
	return &LLMResolver{provider: provider, log: log}
}

// Few-shots anchoring the mapping behavior, mirrored from the system
// prompt's examples.
var fewShots = []llm.Message{
	{Role: constant.ChatMessageRoleUser, Content: "Do you have a cough?"},
	{Role: constant.ChatMessageRoleAssistant, Content: `{"feature":"E_53","value":null}`},
	{Role: constant.ChatMessageRoleUser, Content: "Any fever recently?"},
	{Role: constant.ChatMessageRoleAssistant, Content: `{"feature":"E_91","value":null}`},
	{Role: constant.ChatMessageRoleUser, Content: "Do you have pain anywhere?"},
	{Role: constant.ChatMessageRoleAssistant, Content: `{"feature":"PAIN_ANY","value":null}`},
}

func (r *LLMResolver) Resolve(ctx context.Context, text string) *Result {
	history := make([]llm.Message, 0, len(fewShots)+2)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.NLUSystemPrompt})
	history = append(history, fewShots...)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: text})

	response, err := r.provider.Chat(ctx, history, llm.WithTemperature(0))
	if err != nil {
		r.log.Warn("nlu", "intent mapping failed, using keyword fallback", map[string]interface{}{"error": err.Error()})
		return fallbackResult(text)
	}

	result, err := parseResult(response)
	if err != nil {
		r.log.Warn("nlu", "intent parsing failed, using keyword fallback", map[string]interface{}{
			"error":    err.Error(),
			"response": response,
		})
		return fallbackResult(text)
	}

	return result
}

func parseResult(response string) (*Result, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	result.Feature = strings.TrimSpace(result.Feature)
	if result.Feature == "" {
		result.Feature = FeatureUnknown
	}
	if result.Feature == FeatureUnknown {
		result.Value = nil
	}
	return &result, nil
}

// fallbackResult scans for core-intent keywords so standard questions
// keep working without the model.
func fallbackResult(text string) *Result {
	lower := strings.ToLower(text)
	for _, kw := range keywordFallback {
		if strings.Contains(lower, kw.keyword) {
			return &Result{Feature: kw.feature}
		}
	}
	return &Result{Feature: FeatureUnknown}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
