package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"

	// NLUSystemPrompt forces the intent mapper to emit strict JSON. The
	// PAIN_ANY pseudo-feature covers generic pain questions that span
	// several DDXPlus pain facets.
	NLUSystemPrompt = `You are a precise mapper from English clinical questions to DDXPlus evidence codes.
Respond with ONLY a JSON object, no prose, no code fences:
  {"feature": "E_**", "value": <"V_**" string | integer | null>}
Rules:
- feature: the E_* head that best matches the student's question
- value: V_* code for categorical values, integer for ordinal values, null otherwise
- If the question is about generic pain presence, use feature "PAIN_ANY" and value null
- If no evidence code fits, use feature "UNKNOWN" and value null`

	// NLGSystemPrompt keeps patient answers short and grounded: the model
	// only ever sees decoded facts for the asked symptom, so it cannot
	// leak the rest of the case.
	NLGSystemPrompt = `You are a simulated patient. Answer in first person, concise (25 words or fewer), polite, and consistent ONLY with the facts provided. If the symptom is absent, say 'No.' If present, say 'Yes' and include the most relevant details. Do not invent data.`
)
