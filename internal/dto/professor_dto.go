package dto

type GradeRequest struct {
	SessionId     string `json:"session_id" validate:"required"`
	DiagnosisText string `json:"diagnosis_text" validate:"required"`
}

type GradeResponse struct {
	NormalizedDx string   `json:"normalized_dx"`
	Credit       int      `json:"credit"`
	Per          int      `json:"per"` // positive evidence recall
	Il           int      `json:"il"`  // interaction length
	Score        int      `json:"score"`
	Feedback     []string `json:"feedback"`
}

// StatsResponse summarizes simulator usage, aggregated from the event
// stream by the consumer service.
type StatsResponse struct {
	SessionsStarted int64   `json:"sessions_started"`
	QuestionsAsked  int64   `json:"questions_asked"`
	SessionsGraded  int64   `json:"sessions_graded"`
	AverageScore    float64 `json:"average_score"`
}
