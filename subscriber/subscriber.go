package subscriber

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"social-service/events"
)

// Source is the part of the NATS client the subscriber needs.
type Source interface {
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// EventLogger decodes every domain event and writes it to the log.
type EventLogger struct {
	source Source
	log    logrus.FieldLogger
	subs   []*nats.Subscription
}

func NewEventLogger(source Source, log logrus.FieldLogger) *EventLogger {
	return &EventLogger{source: source, log: log}
}

// Start subscribes to every subject in events.Subjects.
func (s *EventLogger) Start() error {
	for _, subject := range events.Subjects {
		sub, err := s.source.Subscribe(subject, s.Handle)
		if err != nil {
			s.Stop()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}

	s.log.WithField("subjects", events.Subjects).Info("Event subscriber started")
	return nil
}

// Handle decodes a single message. Unknown subjects and malformed payloads
// are logged and dropped.
func (s *EventLogger) Handle(msg *nats.Msg) {
	fields, err := decode(msg)
	if err != nil {
		s.log.WithError(err).WithField("subject", msg.Subject).Warn("Dropped event")
		return
	}
	s.log.WithFields(fields).WithField("subject", msg.Subject).Info("Event received")
}

func (s *EventLogger) Stop() {
	for _, sub := range s.subs {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}
	s.subs = nil
}

func decode(msg *nats.Msg) (logrus.Fields, error) {
	switch msg.Subject {
	case events.PostCreated:
		var e events.PostCreatedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		return logrus.Fields{"post_id": e.PostID, "user_id": e.UserID}, nil
	case events.PostLiked:
		var e events.PostLikedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		return logrus.Fields{"post_id": e.PostID, "user_id": e.UserID, "liked": e.Liked}, nil
	case events.PostReplied:
		var e events.PostRepliedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		return logrus.Fields{"post_id": e.PostID, "reply_id": e.ReplyID, "user_id": e.UserID}, nil
	case events.UserFollowed:
		var e events.UserFollowedEvent
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		return logrus.Fields{"follower_id": e.FollowerID, "followee_id": e.FolloweeID, "followed": e.Followed}, nil
	default:
		return nil, fmt.Errorf("unknown subject %q", msg.Subject)
	}
}
