package connectiondao

import "time"

const (
	RecipientIndex = "RecipientIndex"
	UserIndex      = "UserIndex"
)

// Connection represents a WebSocket connection stored in DynamoDB.
// RecipientKey is the logical channel the connection listens on, either
// "room:{roomId}" or "user:{userId}".
type Connection struct {
	ConnectionID string `dynamodbav:"pk" json:"connectionId" ddb:"hash"`
	RecipientKey string `dynamodbav:"recipient_key" json:"recipientKey" ddb:"gsi_hash:RecipientIndex"`
	UserID       string `dynamodbav:"user_id,omitempty" json:"userId,omitempty" ddb:"gsi_hash:UserIndex"`
	Endpoint     string `dynamodbav:"endpoint" json:"endpoint,omitempty"`
	ConnectedAt  int64  `dynamodbav:"connected_at" json:"connectedAt"`
	TTL          int64  `dynamodbav:"ttl" json:"ttl"`
}

// Live reports whether the connection has not yet passed its expiry. Rows
// linger after their TTL until DynamoDB or the sweeper deletes them, so every
// read path checks this.
func (c Connection) Live(now time.Time) bool {
	return c.TTL == 0 || c.TTL > now.Unix()
}

func live(conns []Connection, now time.Time) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, conn := range conns {
		if conn.Live(now) {
			out = append(out, conn)
		}
	}
	return out
}
