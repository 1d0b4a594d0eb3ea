// Guided report interview: a per-user state machine that turns a
// conversation with the reporting user in to a structured case reason.
//
// Sessions are single-threaded per user: the host must serialize event
// delivery to a given session, but sessions for different users progress
// independently.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathanwhen/chaperone/moderation/classify"
	"github.com/jonathanwhen/chaperone/moderation/event"
)

type State string

const (
	StateStart                  State = "start"
	StateImmediateThreatCheck   State = "immediate-threat-check"
	StateAwaitingTarget         State = "awaiting-target"
	StateTargetIdentified       State = "target-identified"
	StateAwaitingConfirmation   State = "awaiting-confirmation"
	StateAwaitingReason         State = "awaiting-reason"
	StateAwaitingSubtype        State = "awaiting-subtype"
	StateAwaitingScope          State = "awaiting-scope"
	StateAwaitingContext        State = "awaiting-context"
	StateAwaitingFreeTextPrompt State = "awaiting-free-text-prompt"
	StateAwaitingFreeText       State = "awaiting-free-text"
	StateComplete               State = "complete"
)

const (
	StartKeyword  = "report"
	CancelKeyword = "cancel"
	HelpKeyword   = "help"
)

// Interview mode. The static-question flow and the LLM-assisted
// pre-classification flow are mutually exclusive; deployments pick one.
type Mode string

const (
	ModeStatic   Mode = "static"
	ModeAssisted Mode = "assisted"
)

type Config struct {
	Mode Mode
	// when true, the interview opens with an immediate-danger check
	AskImmediateThreat bool
	// when true, the interview offers an optional free-text context step
	CollectFreeText bool
	Resolver        ContentResolver
	// consulted in ModeAssisted to propose a reason for user confirmation
	Classifier *classify.Adapter
}

var messageLinkPattern = regexp.MustCompile(`/(\d+)/(\d+)/(\d+)`)

type Session struct {
	State       State
	InitiatorID string
	Target      *event.Content

	Reason            string
	Subtype           string
	Scope             string
	IncidentContext   string
	FreeTextContext   string
	IsImmediateThreat bool

	cancelled bool
	// reason proposed by the classifier in assisted mode, pending confirmation
	suggestedReason string
	cfg             Config
}

// Creates a session at the start of the interview, before any target is
// known.
func New(cfg Config, initiatorID string) *Session {
	if cfg.Mode == "" {
		cfg.Mode = ModeStatic
	}
	return &Session{
		State:       StateStart,
		InitiatorID: initiatorID,
		cfg:         cfg,
	}
}

// Creates a session from the reply-to-message shortcut: the target is
// already identified, so target resolution is skipped entirely.
func NewFromReference(cfg Config, initiatorID string, target *event.Content) *Session {
	s := New(cfg, initiatorID)
	s.State = StateTargetIdentified
	s.Target = target
	return s
}

func (s *Session) Complete() bool {
	return s.State == StateComplete
}

func (s *Session) Cancelled() bool {
	return s.cancelled
}

// The assembled case-reason summary. Empty until the session completes with
// a reason; a cancelled session never has one.
func (s *Session) Summary() string {
	if s.Reason == "" {
		return ""
	}
	summary := s.Reason
	if s.Subtype != "" {
		summary += " - " + s.Subtype
	}
	var qualifiers []string
	if s.Scope != "" {
		qualifiers = append(qualifiers, s.Scope)
	}
	if s.IncidentContext != "" {
		qualifiers = append(qualifiers, s.IncidentContext)
	}
	if len(qualifiers) > 0 {
		summary += " (" + strings.Join(qualifiers, "; ") + ")"
	}
	if s.FreeTextContext != "" {
		summary += fmt.Sprintf("; reporter context: %q", s.FreeTextContext)
	}
	if s.IsImmediateThreat {
		summary = "[URGENT] " + summary
	}
	return summary
}

// Advances the state machine with the next inbound message from the
// initiating user, returning the replies to send back. Invalid input leaves
// the state unchanged and returns guidance.
func (s *Session) HandleMessage(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(strings.ToLower(text)) == CancelKeyword {
		s.State = StateComplete
		s.cancelled = true
		return []string{"Report cancelled."}, nil
	}

	switch s.State {
	case StateStart:
		return s.handleStart()
	case StateImmediateThreatCheck:
		return s.handleImmediateThreat(text)
	case StateAwaitingTarget:
		return s.handleTarget(ctx, text)
	case StateTargetIdentified:
		return s.presentTarget(ctx)
	case StateAwaitingConfirmation:
		return s.handleConfirmation(text)
	case StateAwaitingReason:
		return s.handleReason(text)
	case StateAwaitingSubtype:
		return s.handleSubtype(text)
	case StateAwaitingScope:
		return s.handleScope(text)
	case StateAwaitingContext:
		return s.handleContext(text)
	case StateAwaitingFreeTextPrompt:
		return s.handleFreeTextPrompt(text)
	case StateAwaitingFreeText:
		return s.handleFreeText(text)
	case StateComplete:
		return nil, nil
	default:
		return nil, fmt.Errorf("report session in unknown state: %s", s.State)
	}
}

func (s *Session) handleStart() ([]string, error) {
	reply := "Thank you for starting the reporting process. "
	reply += "Say `help` at any time for more information.\n\n"
	if s.cfg.AskImmediateThreat {
		s.State = StateImmediateThreatCheck
		reply += "First: is anyone in immediate danger? Please reply `yes` or `no`."
		return []string{reply}, nil
	}
	s.State = StateAwaitingTarget
	reply += targetPrompt
	return []string{reply}, nil
}

const targetPrompt = "Please copy paste the link to the message you want to report.\n" +
	"You can obtain this link by right-clicking the message and clicking `Copy Message Link`."

func (s *Session) handleImmediateThreat(text string) ([]string, error) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes":
		s.IsImmediateThreat = true
		s.State = StateAwaitingTarget
		return []string{
			"If anyone is in immediate danger, please contact your local emergency services right away. Your report will be marked urgent.",
			targetPrompt,
		}, nil
	case "no":
		s.State = StateAwaitingTarget
		return []string{targetPrompt}, nil
	default:
		return []string{"Please reply `yes` or `no`: is anyone in immediate danger?"}, nil
	}
}

func (s *Session) handleTarget(ctx context.Context, text string) ([]string, error) {
	m := messageLinkPattern.FindStringSubmatch(text)
	if m == nil {
		return []string{"I'm sorry, I couldn't read that link. Please try again or say `cancel` to cancel."}, nil
	}
	content, err := s.cfg.Resolver.ResolveMessage(ctx, m[1], m[2], m[3])
	switch {
	case err == nil:
	case errors.Is(err, ErrServerNotJoined):
		return []string{"I cannot accept reports of messages from servers that I'm not in. Please have the server owner add me and try again."}, nil
	case errors.Is(err, ErrChannelNotFound):
		return []string{"It seems this channel was deleted or never existed. Please try again or say `cancel` to cancel."}, nil
	case errors.Is(err, ErrMessageNotFound):
		return []string{"It seems this message was deleted or never existed. Please try again or say `cancel` to cancel."}, nil
	default:
		return nil, fmt.Errorf("resolving reported message: %w", err)
	}
	s.Target = content
	s.State = StateTargetIdentified
	return s.presentTarget(ctx)
}

// Echoes the identified message and asks for (or proposes) a reason.
func (s *Session) presentTarget(ctx context.Context) ([]string, error) {
	replies := []string{
		"I found this message:",
		"```" + s.Target.AuthorName + ": " + s.Target.Text + "```",
	}

	if s.cfg.Mode == ModeAssisted && s.cfg.Classifier != nil {
		verdict := s.cfg.Classifier.Evaluate(ctx, s.Target.Text)
		if verdict.Flagged {
			s.suggestedReason = reasonForCategory(verdict.Category)
			s.State = StateAwaitingConfirmation
			replies = append(replies,
				fmt.Sprintf("Our automated scan suggests this message may contain %s (confidence %.0f%%).", s.suggestedReason, verdict.Confidence*100),
				"Reply `yes` to report it for that reason, or `no` to choose a reason yourself.")
			return replies, nil
		}
	}

	s.State = StateAwaitingReason
	replies = append(replies, "What is the reason for reporting this message? Please choose one of the following:")
	replies = append(replies, menuLines(ReportReasons)...)
	replies = append(replies, "\nPlease respond with the number or the exact text of your choice.")
	return replies, nil
}

func (s *Session) handleConfirmation(text string) ([]string, error) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes":
		s.Reason = s.suggestedReason
		return s.afterClassification()
	case "no":
		s.State = StateAwaitingReason
		replies := []string{"What is the reason for reporting this message? Please choose one of the following:"}
		replies = append(replies, menuLines(ReportReasons)...)
		replies = append(replies, "\nPlease respond with the number or the exact text of your choice.")
		return replies, nil
	default:
		return []string{"Please reply `yes` to accept the suggested reason or `no` to choose your own."}, nil
	}
}

func (s *Session) handleReason(text string) ([]string, error) {
	reason, ok := matchOption(text, ReportReasons)
	if !ok {
		return []string{fmt.Sprintf("Please choose a valid reason by entering either the number (1-%d) or the exact text of one of the options above.", len(ReportReasons))}, nil
	}
	s.Reason = reason
	if reason == "hate speech" {
		s.State = StateAwaitingSubtype
		replies := []string{"Please specify the type of hate speech. Choose one of the following:"}
		replies = append(replies, menuLines(HateSpeechTypes)...)
		replies = append(replies, "\nPlease respond with the number or the exact text of your choice.")
		return replies, nil
	}
	return s.afterClassification()
}

func (s *Session) handleSubtype(text string) ([]string, error) {
	subtype, ok := matchOption(text, HateSpeechTypes)
	if !ok {
		return []string{fmt.Sprintf("Please choose a valid hate speech type by entering either the number (1-%d) or the exact text of one of the options above.", len(HateSpeechTypes))}, nil
	}
	s.Subtype = subtype
	s.State = StateAwaitingScope
	replies := []string{"Who does this message target? Choose one of the following:"}
	replies = append(replies, menuLines(TargetScopes)...)
	replies = append(replies, "\nPlease respond with the number or the exact text of your choice.")
	return replies, nil
}

func (s *Session) handleScope(text string) ([]string, error) {
	scope, ok := matchOption(text, TargetScopes)
	if !ok {
		return []string{fmt.Sprintf("Please choose a valid option by entering either the number (1-%d) or the exact text of one of the options above.", len(TargetScopes))}, nil
	}
	s.Scope = scope
	s.State = StateAwaitingContext
	replies := []string{"Is this part of a pattern? Choose one of the following:"}
	replies = append(replies, menuLines(IncidentContexts)...)
	replies = append(replies, "\nPlease respond with the number or the exact text of your choice.")
	return replies, nil
}

func (s *Session) handleContext(text string) ([]string, error) {
	incident, ok := matchOption(text, IncidentContexts)
	if !ok {
		return []string{fmt.Sprintf("Please choose a valid option by entering either the number (1-%d) or the exact text of one of the options above.", len(IncidentContexts))}, nil
	}
	s.IncidentContext = incident
	return s.afterClassification()
}

// Entered once the reason (and any reason-dependent detail) is settled:
// either offer the optional free-text step or finish.
func (s *Session) afterClassification() ([]string, error) {
	if s.cfg.CollectFreeText {
		s.State = StateAwaitingFreeTextPrompt
		return []string{"Would you like to add any additional context for the moderators? Reply `yes` to add details or `no` to submit your report."}, nil
	}
	return s.complete(), nil
}

func (s *Session) handleFreeTextPrompt(text string) ([]string, error) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "yes":
		s.State = StateAwaitingFreeText
		return []string{"Please describe any additional context in a single message."}, nil
	case "no":
		return s.complete(), nil
	default:
		return []string{"Please reply `yes` to add details or `no` to submit your report."}, nil
	}
}

func (s *Session) handleFreeText(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{"Please describe any additional context in a single message, or say `cancel` to cancel."}, nil
	}
	s.FreeTextContext = trimmed
	return s.complete(), nil
}

func (s *Session) complete() []string {
	s.State = StateComplete
	return []string{
		fmt.Sprintf("Thank you for your report. The message has been reported for: %s", s.Summary()),
		"Thank you for your report and we appreciate you helping to make our platform better and safer! We will thoroughly investigate your report shortly. In the meantime, please consider muting or blocking the reported account.",
	}
}

// Maps a classifier category to the closest enumerated report reason.
func reasonForCategory(category string) string {
	switch strings.ToLower(category) {
	case "threat":
		return "violent speech"
	case "spam":
		return "spam"
	default:
		return "hate speech"
	}
}
