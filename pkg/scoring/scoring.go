package scoring

import (
	"math"
	"strings"

	"patient-sim-be/pkg/cases"
	"patient-sim-be/pkg/token"
)

// Composite score weights. Fixed in this design but named so they stay
// adjustable in one place.
const (
	WeightDiagnosis  = 0.6
	WeightRecall     = 0.3
	WeightEfficiency = 0.1
)

// MaxMissedFeedback caps how many missed-evidence hints a grade carries.
const MaxMissedFeedback = 3

// GoodCoverageMessage is returned when the student revealed every evidence
// head in the case.
const GoodCoverageMessage = "Good coverage."

// DiagnosisCredit scores the submitted diagnosis against the case
// differential: case-insensitive exact match, credit = round(100 * prob)
// of the first matching entry in differential order, 0 when nothing
// matches. Probabilities of multiple matches are not summed.
func DiagnosisCredit(differential []cases.DifferentialEntry, diagnosis string) int {
	for _, d := range differential {
		if strings.EqualFold(d.Disease, diagnosis) {
			return int(math.Round(100 * d.Prob))
		}
	}
	return 0
}

// PositiveEvidenceRecall measures how much of the case's evidence the
// student surfaced, by feature head: round(100 * |case ∩ revealed| /
// |case|). A case with zero distinct heads scores 0 rather than dividing
// by zero.
func PositiveEvidenceRecall(caseEvidences []string, revealed map[string]bool) int {
	caseHeads := headSet(caseEvidences)
	if len(caseHeads) == 0 {
		return 0
	}

	revealedHeads := make(map[string]bool, len(revealed))
	for tok := range revealed {
		revealedHeads[token.HeadOf(tok)] = true
	}

	hit := 0
	for head := range caseHeads {
		if revealedHeads[head] {
			hit++
		}
	}
	return int(math.Round(100 * float64(hit) / float64(len(caseHeads))))
}

// InteractionLength is the raw turn count, clamped at 0.
func InteractionLength(turns int) int {
	if turns < 0 {
		return 0
	}
	return turns
}

// Composite blends the three metrics into a single 0-100 score. Longer
// interactions erode the efficiency component down to nothing at 100
// turns.
func Composite(credit, recall, interactionLength int) int {
	efficiency := 100 - interactionLength
	if efficiency < 0 {
		efficiency = 0
	}
	return int(math.Round(
		WeightDiagnosis*float64(credit) +
			WeightRecall*float64(recall) +
			WeightEfficiency*float64(efficiency)))
}

// MissedEvidence returns up to MaxMissedFeedback hints for evidence heads
// present in the case but never revealed, decoded to readable text. Order
// follows map iteration and is deliberately arbitrary. When nothing was
// missed a single good-coverage message is returned instead of an empty
// list.
func MissedEvidence(caseEvidences []string, revealed map[string]bool, decode func(string) string) []string {
	revealedHeads := make(map[string]bool, len(revealed))
	for tok := range revealed {
		revealedHeads[token.HeadOf(tok)] = true
	}

	var feedback []string
	for head := range headSet(caseEvidences) {
		if revealedHeads[head] {
			continue
		}
		feedback = append(feedback, "Consider asking about: "+decode(head))
		if len(feedback) == MaxMissedFeedback {
			break
		}
	}

	if len(feedback) == 0 {
		return []string{GoodCoverageMessage}
	}
	return feedback
}

func headSet(tokens []string) map[string]bool {
	heads := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		heads[token.HeadOf(tok)] = true
	}
	return heads
}
