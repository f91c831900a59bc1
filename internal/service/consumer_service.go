package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"patient-sim-be/internal/dto"
	"patient-sim-be/internal/pkg/logger"
	"patient-sim-be/pkg/events"
)

// IConsumerService drains the session event stream in the background,
// writes each event to the isolated event log, and keeps the usage
// counters behind the professor stats endpoint.
type IConsumerService interface {
	Consume(ctx context.Context) error
	Stats() *dto.StatsResponse
}

type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	eventLog  logger.ILogger

	mu              sync.Mutex
	sessionsStarted int64
	questionsAsked  int64
	sessionsGraded  int64
	scoreTotal      int64
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventLog logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		eventLog:  eventLog,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		log.Printf("[ERROR] Failed to unmarshal event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.eventLog.Info("events", envelope.Type, envelope.Data)

	cs.mu.Lock()
	switch envelope.Type {
	case events.TypeSessionStarted:
		cs.sessionsStarted++
	case events.TypeQuestionAsked:
		cs.questionsAsked++
	case events.TypeSessionGraded:
		cs.sessionsGraded++
		if score, ok := envelope.Data["score"].(float64); ok {
			cs.scoreTotal += int64(score)
		}
	}
	cs.mu.Unlock()

	msg.Ack()
}

func (cs *consumerService) Stats() *dto.StatsResponse {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	stats := &dto.StatsResponse{
		SessionsStarted: cs.sessionsStarted,
		QuestionsAsked:  cs.questionsAsked,
		SessionsGraded:  cs.sessionsGraded,
	}
	if cs.sessionsGraded > 0 {
		stats.AverageScore = float64(cs.scoreTotal) / float64(cs.sessionsGraded)
	}
	return stats
}
