// Orchestration core for the moderation assistant.
//
// The host feeds inbound chat events (messages, reactions) to the engine one
// at a time per originating conversation; the engine advances report
// sessions, runs automated classification, tracks cases and escalations, and
// returns outbound instructions for the host to dispatch. No network I/O
// happens in this package except through the injected classifier backends.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/classify"
	"github.com/jonathanwhen/chaperone/moderation/escalation"
	"github.com/jonathanwhen/chaperone/moderation/event"
	"github.com/jonathanwhen/chaperone/moderation/infractions"
	"github.com/jonathanwhen/chaperone/moderation/ledger"
	"github.com/jonathanwhen/chaperone/moderation/session"
)

// Runtime for processing chat events, managing report sessions, and
// recording moderation actions.
//
// All fields should be populated; NewEngine applies defaults for optional
// collaborators.
type Engine struct {
	Logger      *slog.Logger
	Config      Config
	Classifier  *classify.Adapter
	Sessions    *session.Table
	Cases       casestore.CaseStore
	Ledger      ledger.LedgerStore
	Escalations *escalation.Tracker
	Infractions infractions.Store
	Resolver    session.ContentResolver
}

func NewEngine(logger *slog.Logger, cfg Config, classifier *classify.Adapter, cases casestore.CaseStore, lgr ledger.LedgerStore, resolver session.ContentResolver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Logger:      logger,
		Config:      cfg,
		Classifier:  classifier,
		Sessions:    session.NewTable(),
		Cases:       cases,
		Ledger:      lgr,
		Escalations: escalation.NewTracker(),
		Infractions: infractions.DisabledStore{},
		Resolver:    resolver,
	}
}

// Processes one inbound message event and returns the instructions to
// dispatch. Events from direct conversations drive the report interview;
// channel events drive moderator actions, reply-shortcut reports, and the
// automated scan.
func (eng *Engine) ProcessMessage(ctx context.Context, evt event.MessageEvent) (instructions []Instruction, err error) {
	start := time.Now()
	// similar to an HTTP server, we want to recover any panics from event handling
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("moderation event execution exception", "err", r, "author", evt.AuthorID)
			err = fmt.Errorf("panicked processing message event: %v", r)
		}
		eventProcessCount.WithLabelValues("message").Inc()
		eventProcessDuration.WithLabelValues("message").Observe(time.Since(start).Seconds())
	}()

	if evt.Direct {
		return eng.processDirectMessage(ctx, evt)
	}
	return eng.processChannelMessage(ctx, evt)
}

func (eng *Engine) processDirectMessage(ctx context.Context, evt event.MessageEvent) ([]Instruction, error) {
	text := strings.TrimSpace(strings.ToLower(evt.Text))

	if text == session.HelpKeyword {
		reply := "Use the `report` command to begin the reporting process.\n"
		reply += "Use the `cancel` command to cancel the report process.\n"
		return []Instruction{SendReply{ConversationID: evt.ConversationID, Text: reply}}, nil
	}

	sess, ok := eng.Sessions.Get(evt.AuthorID)
	if !ok {
		if text != session.StartKeyword {
			// not part of a reporting flow and not starting one
			return nil, nil
		}
		sess, _ = eng.Sessions.Start(evt.AuthorID, session.New(eng.sessionConfig(), evt.AuthorID))
	}

	return eng.advanceSession(ctx, sess, evt)
}

// Delivers one message to the user's session and converts the outcome in to
// instructions, opening a case when the interview completes with a reason.
func (eng *Engine) advanceSession(ctx context.Context, sess *session.Session, evt event.MessageEvent) ([]Instruction, error) {
	replies, err := sess.HandleMessage(ctx, evt.Text)
	if err != nil {
		return nil, fmt.Errorf("advancing report session: %w", err)
	}

	var out []Instruction
	for _, r := range replies {
		out = append(out, SendReply{ConversationID: evt.ConversationID, Text: r})
	}

	if !sess.Complete() {
		return out, nil
	}
	eng.Sessions.Remove(sess.InitiatorID)

	if sess.Cancelled() || sess.Summary() == "" || sess.Target == nil {
		return out, nil
	}

	caseInstructions, err := eng.openCase(ctx, casestore.Case{
		Content:      *sess.Target,
		Reporter:     event.HumanReporter(evt.AuthorID),
		Reason:       sess.Summary(),
		IsUserReport: true,
	}, "")
	if err != nil {
		return out, err
	}
	return append(out, caseInstructions...), nil
}

func (eng *Engine) processChannelMessage(ctx context.Context, evt event.MessageEvent) ([]Instruction, error) {
	moderatorChannel := evt.ChannelName == eng.Config.ModChannelName || evt.ChannelName == eng.Config.EscalationChannelName
	if moderatorChannel {
		if evt.ReplyToMessageID != "" {
			return eng.processModeratorReply(ctx, evt)
		}
		// chatter in the moderator channel is not scanned
		return nil, nil
	}

	if evt.ReplyToMessageID != "" && strings.TrimSpace(strings.ToLower(evt.Text)) == session.StartKeyword {
		return eng.processReplyShortcut(ctx, evt)
	}

	return eng.processAutomatedScan(ctx, evt)
}

// Handles the reply-to-message report shortcut: the replied-to message is
// the report target, so the interview skips target resolution.
func (eng *Engine) processReplyShortcut(ctx context.Context, evt event.MessageEvent) ([]Instruction, error) {
	content, err := eng.Resolver.ResolveMessage(ctx, evt.GuildID, evt.ConversationID, evt.ReplyToMessageID)
	if err != nil {
		eng.Logger.Info("reply-shortcut target unavailable", "err", err, "message", evt.ReplyToMessageID)
		return []Instruction{SendReply{
			ConversationID: evt.ConversationID,
			Text:           "I couldn't find the message you're trying to report. It may have been deleted.",
		}}, nil
	}

	sess, started := eng.Sessions.Start(evt.AuthorID, session.NewFromReference(eng.sessionConfig(), evt.AuthorID, content))
	if !started {
		return []Instruction{SendReply{
			ConversationID: evt.ConversationID,
			Text:           "You already have a report in progress. Say `cancel` there first to start a new one.",
		}}, nil
	}
	return eng.advanceSession(ctx, sess, evt)
}

// Runs the classifier over an ordinary channel message, opening an automated
// case when the verdict clears the configured confidence bar. A detection
// counts as an offense for the author, driving the recommendation tier shown
// to moderators.
func (eng *Engine) processAutomatedScan(ctx context.Context, evt event.MessageEvent) ([]Instruction, error) {
	if eng.Classifier == nil {
		return nil, nil
	}
	text := evt.Text
	if len(evt.AttachmentTexts) > 0 {
		text = strings.Join(append([]string{text}, evt.AttachmentTexts...), "\n")
	}

	verdict := eng.Classifier.Evaluate(ctx, text)
	if !verdict.Flagged || verdict.Confidence < eng.Config.AutoReportThreshold {
		return nil, nil
	}
	autoFlagCount.WithLabelValues(verdict.Method).Inc()

	warnings, err := eng.Ledger.RecordWarning(ctx, evt.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("recording automated offense: %w", err)
	}

	reason := fmt.Sprintf("automated detection (%s): %s", verdict.Method, verdict.Category)
	if len(verdict.DetectedTerms) > 0 {
		reason += fmt.Sprintf(" [terms: %s]", strings.Join(verdict.DetectedTerms, ", "))
	}

	// the scanned message itself is the reported content
	content := event.Content{
		Ref: event.ContentRef{
			GuildID:   evt.GuildID,
			ChannelID: evt.ConversationID,
			MessageID: evt.MessageID,
		},
		AuthorID:   evt.AuthorID,
		AuthorName: evt.AuthorName,
		Text:       evt.Text,
	}

	eng.recordInfraction(ctx, &infractions.Infraction{
		UserID:         evt.AuthorID,
		UserName:       evt.AuthorName,
		Type:           "auto-flag",
		Reason:         reason,
		MessageContent: evt.Text,
		ChannelID:      content.Ref.ChannelID,
		MessageID:      content.Ref.MessageID,
		GuildID:        evt.GuildID,
		DetectedBy:     verdict.Method,
		Confidence:     verdict.Confidence,
		Category:       verdict.Category,
	})

	return eng.openCase(ctx, casestore.Case{
		Content:      content,
		Reporter:     event.AutomatedReporter(),
		Reason:       reason,
		IsUserReport: false,
	}, eng.Config.Policy.Recommendation(warnings))
}

// Opens (or merges) a case for reported content. When an open case already
// exists for the same content the report count is incremented instead of a
// second case being created; otherwise a PostCase instruction carrying the
// registration draft is emitted.
func (eng *Engine) openCase(ctx context.Context, c casestore.Case, recommendation string) ([]Instruction, error) {
	modChannel, ok := eng.Config.ModChannels[c.Content.Ref.GuildID]
	if !ok {
		eng.Logger.Warn("no moderator channel configured for guild", "guild", c.Content.Ref.GuildID)
		return nil, nil
	}

	existing, err := eng.Cases.OpenCaseForContent(ctx, c.Content.Ref.MessageID)
	if err != nil {
		return nil, fmt.Errorf("checking for existing case: %w", err)
	}
	if existing != nil {
		count, err := eng.Cases.IncrementReportCount(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("merging repeat report: %w", err)
		}
		return []Instruction{PostNotice{
			ChannelID: modChannel,
			Text:      fmt.Sprintf("Previously reported message has been reported again (now %d time(s)). Reason: %s", count, c.Reason),
		}}, nil
	}

	reported, err := eng.Ledger.GetCounts(ctx, c.Content.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("reading offense counts: %w", err)
	}
	var reporter ledger.Counts
	if c.IsUserReport {
		reporter, err = eng.Ledger.GetCounts(ctx, c.Reporter.UserID)
		if err != nil {
			return nil, fmt.Errorf("reading reporter offense counts: %w", err)
		}
	}
	if recommendation == "" && reported.Warnings > 0 {
		recommendation = eng.Config.Policy.Recommendation(reported.Warnings)
	}

	c.ReportCount = 1
	draft := &CaseDraft{Kind: DraftCase, Case: c}
	return []Instruction{PostCase{
		ChannelID: modChannel,
		Text:      renderCaseText(&c, reported, reporter, recommendation),
		Draft:     draft,
	}}, nil
}

// Completes two-phase registration of a posted moderator-facing message.
// The host calls this with the message identifier it obtained from executing
// a PostCase instruction.
func (eng *Engine) HandleCasePosted(ctx context.Context, draft *CaseDraft, messageID string) ([]Instruction, error) {
	switch draft.Kind {
	case DraftCase:
		c := draft.Case
		c.ID = messageID
		if err := eng.Cases.OpenCase(ctx, &c); err != nil {
			return nil, fmt.Errorf("registering case: %w", err)
		}
		newCaseCount.WithLabelValues(reporterKind(c)).Inc()
		return []Instruction{AddReactions{MessageID: messageID, Emojis: caseReactions}}, nil
	case DraftEscalationNotice:
		if err := eng.Cases.AddAlias(ctx, messageID, draft.CaseID); err != nil {
			eng.Logger.Warn("escalation notice for unknown case", "case", draft.CaseID, "err", err)
			return nil, nil
		}
		return []Instruction{AddReactions{MessageID: messageID, Emojis: escalationReactions}}, nil
	case DraftLENotice:
		if err := eng.Cases.AddAlias(ctx, messageID, draft.CaseID); err != nil {
			eng.Logger.Warn("law-enforcement notice for unknown case", "case", draft.CaseID, "err", err)
			return nil, nil
		}
		if err := eng.Escalations.BindLEMessage(draft.CaseID, messageID); err != nil {
			eng.Logger.Warn("binding law-enforcement notice", "case", draft.CaseID, "err", err)
		}
		return []Instruction{AddReactions{MessageID: messageID, Emojis: leReactions}}, nil
	default:
		return nil, fmt.Errorf("unknown case draft kind: %s", draft.Kind)
	}
}

func (eng *Engine) sessionConfig() session.Config {
	cfg := eng.Config.Session
	if cfg.Resolver == nil {
		cfg.Resolver = eng.Resolver
	}
	if cfg.Classifier == nil {
		cfg.Classifier = eng.Classifier
	}
	return cfg
}

// Best-effort write to the external infraction store; unavailability is
// logged, never propagated.
func (eng *Engine) recordInfraction(ctx context.Context, inf *infractions.Infraction) {
	if eng.Infractions == nil {
		return
	}
	if err := eng.Infractions.AddInfraction(ctx, inf); err != nil {
		infractionStoreErrors.Inc()
		eng.Logger.Warn("infraction store unavailable, relying on in-memory ledger", "err", err, "user", inf.UserID)
	}
}

func reporterKind(c casestore.Case) string {
	if c.IsUserReport {
		return "user"
	}
	return "automated"
}
