// Per-user offense bookkeeping: warnings, suspensions, and false reports.
//
// Counters are monotonically non-decreasing and created lazily; a user with
// no entry has all-zero counts. Counts drive escalating moderator
// recommendations, never automatic action.
package ledger

import (
	"context"
	"fmt"
)

type Counts struct {
	Warnings     int
	Suspensions  int
	FalseReports int
}

type LedgerStore interface {
	// each Record method increments the counter and returns the new value
	RecordWarning(ctx context.Context, userID string) (int, error)
	RecordSuspension(ctx context.Context, userID string) (int, error)
	RecordFalseReport(ctx context.Context, userID string) (int, error)
	GetCounts(ctx context.Context, userID string) (Counts, error)
}

// Offense-count thresholds. These are policy, not business logic: hosts
// override them at construction.
type Policy struct {
	// warning count at which moderators should issue a final warning
	FinalWarningAt int
	// warning count at which moderators should consider a ban
	RecommendBanAt int
}

func DefaultPolicy() Policy {
	return Policy{
		FinalWarningAt: 2,
		RecommendBanAt: 3,
	}
}

// Renders the escalating recommendation for a user's warning count. The
// count is the value *after* the current offense was recorded.
func (p Policy) Recommendation(warnings int) string {
	switch {
	case warnings >= p.RecommendBanAt:
		return fmt.Sprintf("user has %d recorded offenses: recommend ban", warnings)
	case warnings >= p.FinalWarningAt:
		return fmt.Sprintf("user has %d recorded offenses: issue a final warning", warnings)
	case warnings == 1:
		return "first recorded offense for this user"
	default:
		return "no recorded offenses for this user"
	}
}
