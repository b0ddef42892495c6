// FILE: internal/service/event_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// IEventService moves session lifecycle events off the request path: Publish
// puts them on an in-process topic and Consume drains that topic into the
// activity log and, when configured, the external event bus.
type IEventService interface {
	events.Publisher
	Consume(ctx context.Context) error
}

type eventEnvelope struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type eventService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	activityLogger logger.ILogger
	sysLogger      logger.ILogger
	forwarder      events.Publisher
}

// NewEventService wires the topic. forwarder may be nil when no bus is reachable.
func NewEventService(
	pubSub *gochannel.GoChannel,
	topicName string,
	activityLogger logger.ILogger,
	sysLogger logger.ILogger,
	forwarder events.Publisher,
) IEventService {
	return &eventService{
		pubSub:         pubSub,
		topicName:      topicName,
		activityLogger: activityLogger,
		sysLogger:      sysLogger,
		forwarder:      forwarder,
	}
}

func (s *eventService) Publish(ctx context.Context, event events.Event) error {
	data, err := json.Marshal(eventEnvelope{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
	}
	return nil
}

func (s *eventService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *eventService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope eventEnvelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		s.sysLogger.Error("EVENT", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	s.activityLogger.Info("EVENT", envelope.Type, envelope.Payload)

	if s.forwarder != nil {
		fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.forwarder.Publish(fctx, events.BaseEvent{
			Type:       envelope.Type,
			Data:       envelope.Payload,
			OccurredAt: envelope.OccurredAt,
		})
		cancel()
		if err != nil {
			// the bus is best effort; the activity log already has the event
			s.sysLogger.Warn("EVENT", "Failed to forward event", map[string]interface{}{
				"type":  envelope.Type,
				"error": err.Error(),
			})
		}
	}

	msg.Ack()
}
