package service

import (
	"context"
	"errors"
	"time"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/internal/repository/memory"
	"patient-sim-be/pkg/codebook"
	"patient-sim-be/pkg/events"
	"patient-sim-be/pkg/nlg"
	"patient-sim-be/pkg/nlu"
	"patient-sim-be/pkg/token"
)

// ErrSessionNotFound signals a protocol-usage error: the caller asked or
// graded before starting a session (or after it expired). Controllers map
// it to 404; it is distinct from "evidence absent", which is a normal
// answer.
var ErrSessionNotFound = errors.New("session not found")

type IPatientService interface {
	StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error)
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
}

type patientService struct {
	codebook    *codebook.Codebook
	sessionRepo *memory.SessionRepository
	resolver    nlu.Resolver
	generator   nlg.Generator
	publisher   IPublisherService
	log         logger.ILogger
}

func NewPatientService(
	cb *codebook.Codebook,
	sessionRepo *memory.SessionRepository,
	resolver nlu.Resolver,
	generator nlg.Generator,
	publisher IPublisherService,
	log logger.ILogger,
) IPatientService {
	return &patientService{
		codebook:    cb,
		sessionRepo: sessionRepo,
		resolver:    resolver,
		generator:   generator,
		publisher:   publisher,
		log:         log,
	}
}

// StartSession assigns a random case and seeds the revealed set with its
// initial evidence. Restarting the same session id discards prior state.
func (s *patientService) StartSession(ctx context.Context, req *dto.StartSessionRequest) (*dto.StartSessionResponse, error) {
	session := s.sessionRepo.Start(req.SessionId)
	c := session.Case

	s.publishEvent(ctx, events.TypeSessionStarted, map[string]interface{}{
		"session_id": req.SessionId,
		"case_id":    c.Id,
	})

	return &dto.StartSessionResponse{
		Age:             c.Age,
		Sex:             c.Sex,
		InitialEvidence: s.codebook.DecodeToken(c.InitialEvidence),
		CaseId:          c.Id,
	}, nil
}

// Ask handles one student question:
//  1. NLU maps the text to (feature head, optional value)
//  2. the token algebra composes the structured token
//  3. presence is checked against the case evidence (exact token or head)
//  4. the turn is counted, present evidence is revealed
//  5. NLG phrases a first-person answer grounded only in facts for the
//     asked head
func (s *patientService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	session, found := s.sessionRepo.Get(req.SessionId)
	if !found {
		return nil, ErrSessionNotFound
	}
	c := session.Case

	result := s.resolver.Resolve(ctx, req.Text)

	// Generic pain questions aggregate the pain facets instead of mapping
	// to one head; reveal whatever pain tokens the case has so recall
	// captures them.
	if result.Feature == nlu.FeaturePainAny {
		present := false
		for _, ev := range c.Evidences {
			if nlg.PainHeads[token.HeadOf(ev)] {
				present = true
				session.Reveal(ev)
			}
		}
		return s.respond(ctx, req, session, nlu.FeaturePainAny, present)
	}

	composed := token.Compose(result.Feature, result.Value)
	present := false
	for _, ev := range c.Evidences {
		if composed == ev || result.Feature == token.HeadOf(ev) {
			present = true
			break
		}
	}

	if present {
		session.Reveal(composed)
	}
	return s.respond(ctx, req, session, result.Feature, present)
}

func (s *patientService) respond(ctx context.Context, req *dto.AskRequest, session *memory.Session, head string, present bool) (*dto.AskResponse, error) {
	session.IncrementTurn()

	revealed := session.RevealedTokens()
	decoded := make([]string, len(revealed))
	for i, tok := range revealed {
		decoded[i] = s.codebook.DecodeToken(tok)
	}

	answer := s.generator.Answer(ctx, req.Text, head, present, session.Case.Evidences, s.codebook.DecodeToken)

	s.publishEvent(ctx, events.TypeQuestionAsked, map[string]interface{}{
		"session_id": req.SessionId,
		"feature":    head,
		"present":    present,
		"turns":      session.Turns(),
	})

	return &dto.AskResponse{
		Answer:   answer,
		Revealed: revealed,
		Decoded:  decoded,
	}, nil
}

// publishEvent is fire-and-forget: the event stream must never fail a
// student-facing interaction.
func (s *patientService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	evt := events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn("patient", "failed to publish event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}
