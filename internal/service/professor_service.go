package service

import (
	"context"
	"strings"
	"time"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/internal/repository/memory"
	"patient-sim-be/pkg/codebook"
	"patient-sim-be/pkg/events"
	"patient-sim-be/pkg/scoring"
)

type IProfessorService interface {
	Grade(ctx context.Context, req *dto.GradeRequest) (*dto.GradeResponse, error)
	Stats(ctx context.Context) (*dto.StatsResponse, error)
}

type professorService struct {
	codebook    *codebook.Codebook
	sessionRepo *memory.SessionRepository
	consumer    IConsumerService
	publisher   IPublisherService
	log         logger.ILogger
}

func NewProfessorService(
	cb *codebook.Codebook,
	sessionRepo *memory.SessionRepository,
	consumer IConsumerService,
	publisher IPublisherService,
	log logger.ILogger,
) IProfessorService {
	return &professorService{
		codebook:    cb,
		sessionRepo: sessionRepo,
		consumer:    consumer,
		publisher:   publisher,
		log:         log,
	}
}

// Grade scores the session: diagnosis credit against the differential,
// positive evidence recall by head, interaction length, the weighted
// composite, and decoded feedback for missed evidence.
func (s *professorService) Grade(ctx context.Context, req *dto.GradeRequest) (*dto.GradeResponse, error) {
	session, found := s.sessionRepo.Get(req.SessionId)
	if !found {
		return nil, ErrSessionNotFound
	}
	c := session.Case

	normalized := strings.TrimSpace(req.DiagnosisText)
	revealed := session.RevealedSet()

	credit := scoring.DiagnosisCredit(c.Differential, normalized)
	per := scoring.PositiveEvidenceRecall(c.Evidences, revealed)
	il := scoring.InteractionLength(session.Turns())
	score := scoring.Composite(credit, per, il)
	feedback := scoring.MissedEvidence(c.Evidences, revealed, s.codebook.DecodeToken)

	if s.publisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeSessionGraded,
			Data: map[string]interface{}{
				"session_id": req.SessionId,
				"case_id":    c.Id,
				"credit":     credit,
				"per":        per,
				"il":         il,
				"score":      score,
			},
			OccurredAt: time.Now(),
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.log.Warn("professor", "failed to publish grade event", map[string]interface{}{"error": err.Error()})
		}
	}

	return &dto.GradeResponse{
		NormalizedDx: normalized,
		Credit:       credit,
		Per:          per,
		Il:           il,
		Score:        score,
		Feedback:     feedback,
	}, nil
}

func (s *professorService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	return s.consumer.Stats(), nil
}
