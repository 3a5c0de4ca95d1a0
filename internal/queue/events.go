// Package queue carries feed events over a Redis stream from the API
// services to the feed workers.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventUserFollowed   = "user_followed"
	EventUserUnfollowed = "user_unfollowed"
	EventUserDeleted    = "user_deleted"
)

const (
	StreamFeed        = "stream:feed"
	ConsumerGroupFeed = "feed_workers"

	// StreamMaxLen bounds the stream; XADD trims it approximately.
	StreamMaxLen = 100_000
)

// stream entry fields
const (
	fieldType    = "type"
	fieldPayload = "data"
)

var errNoPayload = errors.New("stream entry has no payload")

// FeedEvent is one change the workers must mirror into cached feeds.
// All ids are ObjectID hex strings and all times are Unix milliseconds.
type FeedEvent struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	PostID   string `json:"post_id,omitempty"`
	AuthorID string `json:"author_id,omitempty"`
	Created  int64  `json:"created,omitempty"`

	FollowerID string `json:"follower_id,omitempty"`
	FolloweeID string `json:"followee_id,omitempty"`

	UserID string `json:"user_id,omitempty"`
	// Followers is captured before the account is removed; the worker can
	// no longer look it up afterwards.
	Followers []string `json:"followers,omitempty"`
}

func stamped(e FeedEvent) FeedEvent {
	e.Timestamp = time.Now().UnixMilli()
	return e
}

func NewPostCreatedEvent(postID, authorID string, created time.Time) FeedEvent {
	return stamped(FeedEvent{Type: EventPostCreated, PostID: postID, AuthorID: authorID, Created: created.UnixMilli()})
}

func NewPostDeletedEvent(postID, authorID string) FeedEvent {
	return stamped(FeedEvent{Type: EventPostDeleted, PostID: postID, AuthorID: authorID})
}

func NewUserFollowedEvent(followerID, followeeID string) FeedEvent {
	return stamped(FeedEvent{Type: EventUserFollowed, FollowerID: followerID, FolloweeID: followeeID})
}

func NewUserUnfollowedEvent(followerID, followeeID string) FeedEvent {
	return stamped(FeedEvent{Type: EventUserUnfollowed, FollowerID: followerID, FolloweeID: followeeID})
}

func NewUserDeletedEvent(userID string, followers []string) FeedEvent {
	return stamped(FeedEvent{Type: EventUserDeleted, UserID: userID, Followers: followers})
}

// encode flattens the event into XADD field-value pairs. The type is
// duplicated outside the JSON payload so entries are readable in redis-cli.
func (e FeedEvent) encode() (map[string]interface{}, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return map[string]interface{}{fieldType: e.Type, fieldPayload: string(payload)}, nil
}

func decodeEvent(values map[string]interface{}) (FeedEvent, error) {
	payload, ok := values[fieldPayload].(string)
	if !ok {
		return FeedEvent{}, errNoPayload
	}
	var e FeedEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return FeedEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return e, nil
}
