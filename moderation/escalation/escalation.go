// Escalation state tracking for moderation cases.
//
// Each case moves through a fixed sequence: open, optionally escalated to
// senior review, optionally on to the law-enforcement track (pending contact,
// contacted), and finally resolved. Cancellation and dismissal are terminal.
// Every transition is recorded in an append-only audit trail.
package escalation

import (
	"fmt"
	"sync"
	"time"
)

type Status string

const (
	StatusOpen             Status = "open"
	StatusEscalated        Status = "escalated"
	StatusLEPendingContact Status = "le-pending-contact"
	StatusLEContacted      Status = "le-contacted"
	StatusResolved         Status = "resolved"
	StatusDismissed        Status = "dismissed"
	StatusCancelled        Status = "cancelled"
)

// One audit trail entry per state transition. Entries are append-only and
// never edited.
type AuditEntry struct {
	Actor string
	At    time.Time
	From  Status
	To    Status
}

type Record struct {
	CaseID string
	// set once the case enters the law-enforcement track
	ReferenceID string
	// moderator-channel message carrying the law-enforcement notice
	LEMessageID string
	Status      Status
	Audit       []AuditEntry
}

// In-process escalation tracker. All methods are safe for concurrent use;
// records for independent cases never contend beyond the map access.
type Tracker struct {
	lk          sync.Mutex
	records     map[string]*Record
	byLEMessage map[string]string
	// monotonic floor for reference-id timestamps within this process
	lastRefUnix int64
	now         func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		records:     make(map[string]*Record),
		byLEMessage: make(map[string]string),
		now:         time.Now,
	}
}

func (t *Tracker) record(caseID string) *Record {
	r, ok := t.records[caseID]
	if !ok {
		r = &Record{CaseID: caseID, Status: StatusOpen}
		t.records[caseID] = r
	}
	return r
}

func (t *Tracker) transition(r *Record, actor string, to Status) {
	r.Audit = append(r.Audit, AuditEntry{
		Actor: actor,
		At:    t.now().UTC(),
		From:  r.Status,
		To:    to,
	})
	r.Status = to
}

// Returns a copy of the case's escalation record, or nil if the case has
// never seen an escalation-relevant transition.
func (t *Tracker) Get(caseID string) *Record {
	t.lk.Lock()
	defer t.lk.Unlock()
	r, ok := t.records[caseID]
	if !ok {
		return nil
	}
	cpy := *r
	cpy.Audit = append([]AuditEntry(nil), r.Audit...)
	return &cpy
}

// Standard escalation to senior review. Idempotent: escalating an
// already-escalated case reports created=false and changes nothing, so the
// escalation artifact is never duplicated.
func (t *Tracker) Escalate(caseID, actor string) (created bool, err error) {
	t.lk.Lock()
	defer t.lk.Unlock()
	r := t.record(caseID)
	switch r.Status {
	case StatusEscalated:
		return false, nil
	case StatusOpen:
		t.transition(r, actor, StatusEscalated)
		return true, nil
	default:
		return false, fmt.Errorf("cannot escalate case in state %q", r.Status)
	}
}

// Law-enforcement escalation. Generates a globally unique reference id from
// a monotonic timestamp and the reported content's identifier; no central
// counter or cross-process coordination needed. Exactly one reference id is
// ever issued per case.
func (t *Tracker) EscalateToLawEnforcement(caseID, contentMessageID, actor string) (refID string, created bool, err error) {
	t.lk.Lock()
	defer t.lk.Unlock()
	r := t.record(caseID)
	if r.ReferenceID != "" {
		return r.ReferenceID, false, nil
	}
	switch r.Status {
	case StatusOpen, StatusEscalated:
	default:
		return "", false, fmt.Errorf("cannot escalate case in state %q to law enforcement", r.Status)
	}

	ts := t.now().Unix()
	if ts <= t.lastRefUnix {
		ts = t.lastRefUnix + 1
	}
	t.lastRefUnix = ts
	r.ReferenceID = fmt.Sprintf("LE-%d-%s", ts, contentMessageID)
	t.transition(r, actor, StatusLEPendingContact)
	return r.ReferenceID, true, nil
}

// Binds the posted law-enforcement notice message to the case, for routing
// later moderator reactions.
func (t *Tracker) BindLEMessage(caseID, messageID string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	r, ok := t.records[caseID]
	if !ok || r.ReferenceID == "" {
		return fmt.Errorf("no law-enforcement escalation for case %s", caseID)
	}
	r.LEMessageID = messageID
	t.byLEMessage[messageID] = caseID
	return nil
}

// Resolves a law-enforcement notice message id back to its case's record,
// or nil when the message is not a tracked notice.
func (t *Tracker) ByLEMessage(messageID string) *Record {
	t.lk.Lock()
	caseID, ok := t.byLEMessage[messageID]
	t.lk.Unlock()
	if !ok {
		return nil
	}
	return t.Get(caseID)
}

// Confirms that law enforcement has been contacted for the case.
func (t *Tracker) ConfirmContact(caseID, actor string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	r, ok := t.records[caseID]
	if !ok || r.Status != StatusLEPendingContact {
		return fmt.Errorf("no pending law-enforcement contact for case %s", caseID)
	}
	t.transition(r, actor, StatusLEContacted)
	return nil
}

// Marks the case resolved. Valid from any non-terminal state.
func (t *Tracker) Resolve(caseID, actor string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	r := t.record(caseID)
	switch r.Status {
	case StatusResolved, StatusDismissed, StatusCancelled:
		return fmt.Errorf("case %s already in terminal state %q", caseID, r.Status)
	}
	t.transition(r, actor, StatusResolved)
	return nil
}

// Dismisses the case after senior review. Only valid while escalated.
func (t *Tracker) Dismiss(caseID, actor string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	r, ok := t.records[caseID]
	if !ok || r.Status != StatusEscalated {
		return fmt.Errorf("case %s is not under senior review", caseID)
	}
	t.transition(r, actor, StatusDismissed)
	return nil
}

// Cancels the case or its law-enforcement escalation.
func (t *Tracker) Cancel(caseID, actor string) error {
	t.lk.Lock()
	defer t.lk.Unlock()
	r := t.record(caseID)
	switch r.Status {
	case StatusResolved, StatusDismissed, StatusCancelled:
		return fmt.Errorf("case %s already in terminal state %q", caseID, r.Status)
	}
	t.transition(r, actor, StatusCancelled)
	return nil
}
