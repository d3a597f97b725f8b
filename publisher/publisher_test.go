package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/events"
	"social-service/internal/logger"
)

type recordingBus struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (b *recordingBus) Publish(subject string, data []byte) error {
	if b.err != nil {
		return b.err
	}
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

func TestPublishesJSONOnSubject(t *testing.T) {
	bus := &recordingBus{}
	p := NewEventPublisher(bus, logger.Discard())

	require.NoError(t, p.PublishPostLiked(events.PostLikedEvent{PostID: "p1", UserID: "u1", Liked: true, OccurredAt: time.Now()}))
	require.NoError(t, p.PublishUserFollowed(events.UserFollowedEvent{FollowerID: "u1", FolloweeID: "u2", Followed: false}))

	assert.Equal(t, []string{events.PostLiked, events.UserFollowed}, bus.subjects)

	var liked events.PostLikedEvent
	require.NoError(t, json.Unmarshal(bus.payloads[0], &liked))
	assert.Equal(t, "p1", liked.PostID)
	assert.True(t, liked.Liked)
}

func TestPublishError(t *testing.T) {
	p := NewEventPublisher(&recordingBus{err: errors.New("no responders")}, logger.Discard())
	err := p.PublishPostCreated(events.PostCreatedEvent{PostID: "p1"})
	assert.ErrorContains(t, err, events.PostCreated)
}

func TestNilBusOnlyLogs(t *testing.T) {
	p := NewEventPublisher(nil, logger.Discard())
	assert.NoError(t, p.PublishPostReplied(events.PostRepliedEvent{PostID: "p1", ReplyID: "r1"}))
}
