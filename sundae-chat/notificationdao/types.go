package notificationdao

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

const SenderIndex = "SenderIndex"

// Notification is one entry of a user's notification feed. ID is a ULID, so
// sorting by ID sorts by creation time. Type is encoded as notificationType
// in JSON since pushed events use "type" as their own tag.
type Notification struct {
	UserID     string                 `dynamodbav:"user_id" json:"userId" ddb:"hash"`
	ID         string                 `dynamodbav:"nid" json:"id" ddb:"range"`
	Type       string                 `dynamodbav:"type" json:"notificationType"`
	Body       string                 `dynamodbav:"body" json:"body"`
	SenderID   string                 `dynamodbav:"sender_id,omitempty" json:"senderId,omitempty" ddb:"gsi_hash:SenderIndex"`
	SenderName string                 `dynamodbav:"sender_name,omitempty" json:"senderName,omitempty"`
	RoomID     string                 `dynamodbav:"room_id,omitempty" json:"roomId,omitempty"`
	IsRead     bool                   `dynamodbav:"is_read" json:"isRead"`
	IsSaved    bool                   `dynamodbav:"is_saved" json:"isSaved"`
	CreatedAt  int64                  `dynamodbav:"created_at" json:"createdAt"`
	Data       map[string]interface{} `dynamodbav:"data,omitempty" json:"data,omitempty"`
}

// Update describes a field-level change. Nil fields are left untouched.
type Update struct {
	IsRead     *bool
	IsSaved    *bool
	SenderName *string
}

// FeedQuery selects a user's notifications newest first. Before is an
// exclusive ID cursor; empty starts at the newest entry.
type FeedQuery struct {
	UserID   string
	Before   string
	PageSize int64
}

// NewID returns a ULID for a notification created at now.
func NewID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
