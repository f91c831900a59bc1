package nlg

import (
	"context"
	"encoding/json"
	"strings"

	"patient-sim-be/internal/constant"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/pkg/llm"
	"patient-sim-be/pkg/token"
)

// PainHeads are the DDXPlus pain facets. A question about any of them (or
// the PAIN_ANY pseudo-feature) pulls in the full set so the patient can
// answer with location, character, and intensity together.
var PainHeads = map[string]bool{
	"E_54": true,
	"E_55": true,
	"E_56": true,
	"E_57": true,
	"E_58": true,
	"E_59": true,
}

// maxAnswerWords bounds patient replies; anything longer gets truncated.
const maxAnswerWords = 25

// Generator produces the patient's free-text answer for one question. It
// is not part of the grading contract: its output is opaque text, and it
// must always return something usable, so implementations carry their own
// fallback instead of returning errors.
type Generator interface {
	Answer(ctx context.Context, question, head string, present bool, caseEvidences []string, decode func(string) string) string
}

// LLMGenerator phrases answers with the model, grounded strictly in the
// decoded facts for the asked head. On any failure it degrades to a
// rule-based sentence built from the same facts.
type LLMGenerator struct {
	provider llm.LLMProvider
	log      logger.ILogger
}

var _ Generator = &LLMGenerator{}

func NewLLMGenerator(provider llm.LLMProvider, log logger.ILogger) *LLMGenerator {
	return &LLMGenerator{provider: provider, log: log}
}

// answerPayload is the grounding context handed to the model: only the
// facts for the asked symptom, never the whole case.
type answerPayload struct {
	Question    string   `json:"question"`
	SymptomHead string   `json:"symptom_head"`
	Present     bool     `json:"present"`
	Facts       []string `json:"facts"`
	DetailFacts []string `json:"detail_facts"`
}

var fewShots = []llm.Message{
	{Role: constant.ChatMessageRoleUser, Content: `{"question":"Do you have a cough?","symptom_head":"E_53","present":true,"facts":["Cough"],"detail_facts":[]}`},
	{Role: constant.ChatMessageRoleAssistant, Content: "Yes."},
	{Role: constant.ChatMessageRoleUser, Content: `{"question":"Any fever recently?","symptom_head":"E_91","present":false,"facts":[],"detail_facts":[]}`},
	{Role: constant.ChatMessageRoleAssistant, Content: "No."},
	{Role: constant.ChatMessageRoleUser, Content: `{"question":"Do you have pain?","symptom_head":"E_55","present":true,"facts":["Pain present"],"detail_facts":["Location → left arm","Character → sharp","Intensity → 6"]}`},
	{Role: constant.ChatMessageRoleAssistant, Content: "Yes, sharp pain in my left arm, about 6 out of 10."},
}

func (g *LLMGenerator) Answer(ctx context.Context, question, head string, present bool, caseEvidences []string, decode func(string) string) string {
	facts, detailFacts := collectRelatedFacts(head, caseEvidences, decode)

	payload, err := json.Marshal(answerPayload{
		Question:    question,
		SymptomHead: head,
		Present:     present,
		Facts:       facts,
		DetailFacts: detailFacts,
	})
	if err != nil {
		return ruleFallback(present, detailFacts)
	}

	history := make([]llm.Message, 0, len(fewShots)+2)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleSystem, Content: constant.NLGSystemPrompt})
	history = append(history, fewShots...)
	history = append(history, llm.Message{Role: constant.ChatMessageRoleUser, Content: string(payload)})

	answer, err := g.provider.Chat(ctx, history, llm.WithTemperature(0))
	if err != nil {
		g.log.Warn("nlg", "answer generation failed, using rule fallback", map[string]interface{}{"error": err.Error()})
		return ruleFallback(present, detailFacts)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ruleFallback(present, detailFacts)
	}
	if words := strings.Fields(answer); len(words) > maxAnswerWords {
		answer = strings.Join(words[:maxAnswerWords], " ")
	}
	return answer
}

// collectRelatedFacts selects and decodes the case tokens relevant to the
// asked head. Decoded strings with a value arrow become detail facts; the
// rest are plain facts.
func collectRelatedFacts(head string, caseEvidences []string, decode func(string) string) (facts, detailFacts []string) {
	needed := map[string]bool{head: true}
	if PainHeads[head] || head == "PAIN_ANY" {
		for h := range PainHeads {
			needed[h] = true
		}
	}

	for _, ev := range caseEvidences {
		if !needed[token.HeadOf(ev)] {
			continue
		}
		decoded := decode(ev)
		if strings.Contains(decoded, " → ") {
			detailFacts = append(detailFacts, decoded)
		} else {
			facts = append(facts, decoded)
		}
	}
	return facts, detailFacts
}

// ruleFallback builds a short, safe sentence when the model is
// unavailable: "No." for absent symptoms, otherwise "Yes" with whatever
// detail tails can be salvaged from the decoded facts.
func ruleFallback(present bool, detailFacts []string) string {
	if !present {
		return "No."
	}

	var bits []string
	for _, d := range detailFacts {
		if _, right, found := strings.Cut(d, "→"); found {
			bits = append(bits, strings.TrimSpace(right))
		} else {
			bits = append(bits, d)
		}
	}
	if len(bits) == 0 {
		return "Yes."
	}

	joined := strings.Join(bits, ", ")
	if len(joined) > 80 {
		joined = strings.TrimRight(joined[:80], ", ")
	}
	return "Yes, " + joined + "."
}
