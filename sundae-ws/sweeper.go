package sundaews

import (
	"context"
	"fmt"
	"time"

	sundaecli "github.com/SundaeSwap-finance/sundae-chat/sundae-cli"
	"github.com/SundaeSwap-finance/sundae-chat/sundae-ws/connectiondao"
	"github.com/rs/zerolog"
)

// Sweeper deletes connection rows that are past their TTL but have not yet
// been reaped by DynamoDB.
type Sweeper struct {
	Connections interface {
		ConnectionScanner
		RemoveExpired(ctx context.Context, connectionID string, now time.Time) (bool, error)
	}
	Logger  zerolog.Logger
	Dry     bool
	Now     func() time.Time
	Metrics MetricsRecorder // optional
}

// SweepReport counts what a sweep saw and did.
type SweepReport struct {
	Scanned int      `json:"scanned"`
	Expired int      `json:"expired"`
	Removed []string `json:"removed"`
	Skipped []string `json:"skipped"`
	Failed  []string `json:"failed"`
}

// Sweep scans the registry and removes expired connections. Removal failures
// are logged and left for the next sweep.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	var expired []string
	report := SweepReport{Removed: []string{}, Skipped: []string{}, Failed: []string{}}
	err := s.Connections.Scan(ctx, func(conn connectiondao.Connection) error {
		report.Scanned++
		if !conn.Live(now) {
			expired = append(expired, conn.ConnectionID)
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to scan connections: %w", err)
	}
	report.Expired = len(expired)

	for _, id := range expired {
		if s.Dry {
			s.Logger.Info().Str("connection_id", id).Msg("dry run: would remove expired connection")
			continue
		}
		removed, err := s.Connections.RemoveExpired(ctx, id, now)
		if err != nil {
			s.Logger.Warn().Err(err).Str("connection_id", id).Msg("failed to remove expired connection")
			report.Failed = append(report.Failed, id)
			continue
		}
		if !removed {
			// reconnected or already gone since the scan
			report.Skipped = append(report.Skipped, id)
			continue
		}
		report.Removed = append(report.Removed, id)
	}

	if s.Metrics != nil {
		s.Metrics.Count(ctx, sundaecli.SweepRemovedMetric, len(report.Removed))
	}
	s.Logger.Info().
		Int("scanned", report.Scanned).
		Int("expired", report.Expired).
		Int("removed", len(report.Removed)).
		Msg("sweep complete")
	return report, nil
}
