package messagedao

const SenderIndex = "SenderIndex"

const (
	KindText   = "text"
	KindFile   = "file"
	KindSystem = "system"
)

// FileRef points at an uploaded attachment; the bytes live elsewhere.
type FileRef struct {
	Key          string `dynamodbav:"key" json:"key"`
	ContentType  string `dynamodbav:"content_type" json:"contentType"`
	OriginalName string `dynamodbav:"original_name" json:"originalName"`
}

// Message is a single chat message. Timestamp is unix milliseconds and is
// unique within a room.
type Message struct {
	RoomID     string   `dynamodbav:"room_id" json:"roomId" ddb:"hash"`
	Timestamp  int64    `dynamodbav:"ts" json:"timestamp" ddb:"range"`
	SenderID   string   `dynamodbav:"sender_id" json:"senderId" ddb:"gsi_hash:SenderIndex"`
	SenderName string   `dynamodbav:"sender_name" json:"senderName"`
	Body       string   `dynamodbav:"body" json:"body"`
	Kind       string   `dynamodbav:"kind" json:"kind"`
	File       *FileRef `dynamodbav:"file,omitempty" json:"file,omitempty"`
	EditedAt   int64    `dynamodbav:"edited_at,omitempty" json:"editedAt,omitempty"`
}

// Update describes a field-level change. Nil fields are left untouched.
type Update struct {
	Body       *string
	EditedAt   int64
	SenderName *string
}

// RoomQuery selects messages of one room. Since is exclusive: messages after
// it when ascending, before it when descending. Zero means unbounded.
type RoomQuery struct {
	RoomID     string
	Since      int64
	Descending bool
	PageSize   int64
}
