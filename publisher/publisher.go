package publisher

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"social-service/events"
)

// Bus is the transport events are written to.
type Bus interface {
	Publish(subject string, data []byte) error
}

// EventPublisher serializes domain events as JSON. A nil bus only logs,
// which is how the server runs without NATS.
type EventPublisher struct {
	bus Bus
	log logrus.FieldLogger
}

func NewEventPublisher(bus Bus, log logrus.FieldLogger) *EventPublisher {
	return &EventPublisher{bus: bus, log: log}
}

func (p *EventPublisher) PublishPostCreated(event events.PostCreatedEvent) error {
	return p.publish(events.PostCreated, event, logrus.Fields{"post_id": event.PostID})
}

func (p *EventPublisher) PublishPostLiked(event events.PostLikedEvent) error {
	return p.publish(events.PostLiked, event, logrus.Fields{"post_id": event.PostID, "liked": event.Liked})
}

func (p *EventPublisher) PublishPostReplied(event events.PostRepliedEvent) error {
	return p.publish(events.PostReplied, event, logrus.Fields{"post_id": event.PostID, "reply_id": event.ReplyID})
}

func (p *EventPublisher) PublishUserFollowed(event events.UserFollowedEvent) error {
	return p.publish(events.UserFollowed, event, logrus.Fields{"followee_id": event.FolloweeID, "followed": event.Followed})
}

func (p *EventPublisher) publish(subject string, event interface{}, fields logrus.Fields) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if p.bus != nil {
		if err := p.bus.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish %s: %w", subject, err)
		}
	}

	p.log.WithFields(fields).WithField("subject", subject).Debug("Published event")
	return nil
}
