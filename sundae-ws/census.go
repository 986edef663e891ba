package sundaews

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
)

// RecipientCount is the number of live connections on one recipient key.
type RecipientCount struct {
	RecipientKey string `json:"recipientKey"`
	Connections  int    `json:"connections"`
}

// Census is a point-in-time summary of the connection registry.
type Census struct {
	GeneratedAt   int64            `json:"generatedAt"`
	Total         int              `json:"total"`
	Live          int              `json:"live"`
	Expired       int              `json:"expired"`
	Users         int              `json:"users"`
	ByKind        map[string]int   `json:"byKind"`
	TopRecipients []RecipientCount `json:"topRecipients"`
}

// TakeCensus scans every connection and summarizes the live ones. At most top
// recipients are listed, busiest first.
func TakeCensus(ctx context.Context, scanner ConnectionScanner, now time.Time, top int) (Census, error) {
	census := Census{
		GeneratedAt:   now.UnixMilli(),
		ByKind:        map[string]int{},
		TopRecipients: []RecipientCount{},
	}
	recipients := map[string]int{}
	users := map[string]struct{}{}

	err := scanner.Scan(ctx, func(conn connectiondao.Connection) error {
		census.Total++
		if !conn.Live(now) {
			census.Expired++
			return nil
		}
		census.Live++
		recipients[conn.RecipientKey]++
		if conn.UserID != "" {
			users[conn.UserID] = struct{}{}
		}
		if kind, _, err := ParseRecipientKey(conn.RecipientKey); err == nil {
			census.ByKind[kind]++
		}
		return nil
	})
	if err != nil {
		return Census{}, fmt.Errorf("failed to scan connections: %w", err)
	}
	census.Users = len(users)

	for key, n := range recipients {
		census.TopRecipients = append(census.TopRecipients, RecipientCount{RecipientKey: key, Connections: n})
	}
	sort.Slice(census.TopRecipients, func(i, j int) bool {
		a, b := census.TopRecipients[i], census.TopRecipients[j]
		if a.Connections != b.Connections {
			return a.Connections > b.Connections
		}
		return a.RecipientKey < b.RecipientKey
	})
	if top >= 0 && len(census.TopRecipients) > top {
		census.TopRecipients = census.TopRecipients[:top]
	}
	return census, nil
}
