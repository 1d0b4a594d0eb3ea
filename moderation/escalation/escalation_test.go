package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscalateIdempotent(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	created, err := tr.Escalate("case-1", "mod-alice")
	assert.NoError(err)
	assert.True(created)

	// re-escalating is a no-op, not a duplicate artifact
	created, err = tr.Escalate("case-1", "mod-bob")
	assert.NoError(err)
	assert.False(created)

	r := tr.Get("case-1")
	if assert.NotNil(r) {
		assert.Equal(StatusEscalated, r.Status)
		// exactly one open -> escalated transition in the audit trail
		n := 0
		for _, e := range r.Audit {
			if e.From == StatusOpen && e.To == StatusEscalated {
				n++
			}
		}
		assert.Equal(1, n)
	}
}

func TestLawEnforcementTrack(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	refID, created, err := tr.EscalateToLawEnforcement("case-1", "msg-77", "mod-alice")
	assert.NoError(err)
	assert.True(created)
	assert.Contains(refID, "LE-")
	assert.Contains(refID, "msg-77")

	// second call returns the same reference, creates nothing
	refID2, created, err := tr.EscalateToLawEnforcement("case-1", "msg-77", "mod-bob")
	assert.NoError(err)
	assert.False(created)
	assert.Equal(refID, refID2)

	assert.NoError(tr.BindLEMessage("case-1", "le-notice-1"))
	r := tr.ByLEMessage("le-notice-1")
	if assert.NotNil(r) {
		assert.Equal("case-1", r.CaseID)
		assert.Equal(StatusLEPendingContact, r.Status)
	}
	assert.Nil(tr.ByLEMessage("unrelated"))

	assert.NoError(tr.ConfirmContact("case-1", "mod-carol"))
	assert.Equal(StatusLEContacted, tr.Get("case-1").Status)

	// contact confirmation is single-shot
	assert.Error(tr.ConfirmContact("case-1", "mod-carol"))

	assert.NoError(tr.Resolve("case-1", "mod-carol"))
	assert.Equal(StatusResolved, tr.Get("case-1").Status)
}

func TestReferenceIDsDistinct(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()
	// freeze the clock so uniqueness must come from the monotonic floor
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	ref1, _, err := tr.EscalateToLawEnforcement("case-1", "msg-1", "mod")
	assert.NoError(err)
	// same content reported in a second case still gets a distinct reference
	ref2, _, err := tr.EscalateToLawEnforcement("case-2", "msg-1", "mod")
	assert.NoError(err)
	assert.NotEqual(ref1, ref2)
}

func TestDismissOnlyFromEscalated(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()

	// never-escalated case cannot be dismissed
	assert.Error(tr.Dismiss("case-1", "mod"))

	_, err := tr.Escalate("case-1", "mod")
	assert.NoError(err)
	assert.NoError(tr.Dismiss("case-1", "senior-mod"))
	assert.Equal(StatusDismissed, tr.Get("case-1").Status)

	// terminal states reject further transitions
	assert.Error(tr.Resolve("case-1", "mod"))
	assert.Error(tr.Cancel("case-1", "mod"))
	_, err = tr.Escalate("case-1", "mod")
	assert.Error(err)
}

func TestCancelLawEnforcement(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()
	_, _, err := tr.EscalateToLawEnforcement("case-1", "msg-1", "mod")
	assert.NoError(err)
	assert.NoError(tr.Cancel("case-1", "mod"))
	assert.Equal(StatusCancelled, tr.Get("case-1").Status)
}

func TestAuditTrailShape(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker()
	_, err := tr.Escalate("case-1", "mod-alice")
	assert.NoError(err)
	_, _, err = tr.EscalateToLawEnforcement("case-1", "msg-1", "mod-bob")
	assert.NoError(err)
	assert.NoError(tr.ConfirmContact("case-1", "mod-carol"))

	r := tr.Get("case-1")
	if assert.NotNil(r) && assert.Len(r.Audit, 3) {
		assert.Equal(StatusOpen, r.Audit[0].From)
		assert.Equal(StatusEscalated, r.Audit[0].To)
		assert.Equal("mod-alice", r.Audit[0].Actor)
		assert.Equal(StatusLEPendingContact, r.Audit[1].To)
		assert.Equal(StatusLEContacted, r.Audit[2].To)
		for _, e := range r.Audit {
			assert.False(e.At.IsZero())
		}
	}
}
