package dto

// StartSessionRequest starts (or restarts) a simulation session. The
// session id is opaque and client-supplied; restarting an existing id
// discards all prior state.
type StartSessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type StartSessionResponse struct {
	Age             int    `json:"age"`
	Sex             string `json:"sex"`
	InitialEvidence string `json:"initial_evidence"` // decoded, human-readable
	CaseId          string `json:"case_id,omitempty"`
}

type AskRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Text      string `json:"text" validate:"required"`
}

type AskResponse struct {
	Answer   string   `json:"answer"`
	Revealed []string `json:"revealed"`
	Decoded  []string `json:"decoded"`
}
