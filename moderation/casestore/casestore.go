// Registry of moderator-facing cases.
//
// A case's identifier is the identifier of the message posted to the
// moderator channel announcing it, so a moderator's reply-to or reaction on
// that message is an unambiguous case reference. The registry is the single
// source of truth for "which case does this moderator action refer to".
package casestore

import (
	"context"
	"errors"

	"github.com/jonathanwhen/chaperone/moderation/event"
)

type CaseStatus string

const (
	StatusOpen      CaseStatus = "open"
	StatusResolved  CaseStatus = "resolved"
	StatusDismissed CaseStatus = "dismissed"
	StatusCancelled CaseStatus = "cancelled"
)

const (
	EscalationNone           = ""
	EscalationSenior         = "escalated"
	EscalationLawEnforcement = "law-enforcement"
)

// Returned by mutating methods when the case identifier is not tracked.
// Callers treat this as a no-op signal, never a fatal condition: moderator
// actions can race with case expiry.
var ErrNotFound = errors.New("case not found")

type Case struct {
	// identifier of the moderator-channel message announcing this case
	ID string
	// snapshot of the reported content at case-open time
	Content  event.Content
	Reporter event.Reporter
	// composed free-form reason string from the report flow or classifier
	Reason      string
	ReportCount int
	// false when the case was opened by the automated scanner
	IsUserReport bool
	Escalation   string
	EscalatedBy  string
	Status       CaseStatus
}

type CaseStore interface {
	// Registers a new case. The caller assigns c.ID (the posted message id)
	// and c.ReportCount (>= 1).
	OpenCase(ctx context.Context, c *Case) error
	// Returns (nil, nil) for an untracked identifier: "not a case" is an
	// expected answer at this boundary, used to ignore unrelated replies.
	// Alias identifiers resolve to their canonical case.
	Lookup(ctx context.Context, caseID string) (*Case, error)
	// Registers an additional moderator-facing message (eg, an escalation
	// notice) as a reference to an existing case.
	AddAlias(ctx context.Context, aliasID, caseID string) error
	// Returns the latest open case for a reported content message, or
	// (nil, nil) when none exists. Drives report-count merging.
	OpenCaseForContent(ctx context.Context, contentMessageID string) (*Case, error)
	// Bumps the report count on an existing case, returning the new count.
	IncrementReportCount(ctx context.Context, caseID string) (int, error)
	SetStatus(ctx context.Context, caseID string, status CaseStatus) error
	SetEscalation(ctx context.Context, caseID, level, actor string) error
}
