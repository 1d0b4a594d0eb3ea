package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/event"
	"github.com/jonathanwhen/chaperone/moderation/infractions"
)

// Moderator commands recognized as replies to a case message.
const (
	actionBan             = "ban"
	actionWarn            = "warn"
	actionSuspend         = "suspend"
	actionDismiss         = "dismiss"
	actionBanReporter     = "ban reporter"
	actionWarnReporter    = "warn reporter"
	actionSuspendReporter = "suspend reporter"
)

// Handles a moderator reply in the moderator or escalation channel. The
// replied-to message identifies the case; the reply text is the command.
// Replies to untracked messages and unrecognized commands are ignored.
func (eng *Engine) processModeratorReply(ctx context.Context, evt event.MessageEvent) ([]Instruction, error) {
	c, err := eng.Cases.Lookup(ctx, evt.ReplyToMessageID)
	if err != nil {
		return nil, fmt.Errorf("looking up case for moderator reply: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	if c.Status != casestore.StatusOpen {
		eng.Logger.Info("moderator action on closed case ignored", "case", c.ID, "status", c.Status)
		return nil, nil
	}

	action := strings.TrimSpace(strings.ToLower(evt.Text))
	switch action {
	case actionBan, actionWarn, actionSuspend:
		return eng.applyOffenderAction(ctx, evt, c, action)
	case actionDismiss:
		return eng.dismissCase(ctx, evt, c)
	case actionBanReporter, actionWarnReporter, actionSuspendReporter:
		return eng.applyReporterAction(ctx, evt, c, strings.TrimSuffix(action, " reporter"))
	default:
		return nil, nil
	}
}

// Executes ban, warn, or suspend against the reported content's author:
// notify the offender, delete the content, close the case, and record the
// offense.
func (eng *Engine) applyOffenderAction(ctx context.Context, evt event.MessageEvent, c *casestore.Case, action string) ([]Instruction, error) {
	modActionCount.WithLabelValues(action).Inc()
	offender := c.Content.AuthorID
	offenderName := c.Content.AuthorName
	if offenderName == "" {
		offenderName = offender
	}

	var out []Instruction
	var recommendation string

	switch action {
	case actionBan:
		out = append(out, NotifyUser{
			UserID: offender,
			Text:   fmt.Sprintf("⛔ You have been banned from the server for the following violation: %s", c.Reason),
		})
	case actionWarn:
		n, err := eng.Ledger.RecordWarning(ctx, offender)
		if err != nil {
			return nil, fmt.Errorf("recording warning: %w", err)
		}
		recommendation = eng.Config.Policy.Recommendation(n)
		out = append(out, NotifyUser{
			UserID: offender,
			Text:   fmt.Sprintf("⚠️ You have received a warning for the following violation: %s\nFurther violations may result in suspension or a ban.", c.Reason),
		})
	case actionSuspend:
		if _, err := eng.Ledger.RecordSuspension(ctx, offender); err != nil {
			return nil, fmt.Errorf("recording suspension: %w", err)
		}
		out = append(out, NotifyUser{
			UserID: offender,
			Text:   fmt.Sprintf("⚠️ You have been suspended for the following violation: %s\nRepeated suspensions will result in a ban.", c.Reason),
		})
	}

	out = append(out, DeleteContent{Ref: c.Content.Ref})

	notice := fmt.Sprintf("%s %s notice sent to %s. The reported message has been deleted.", emojiResolve, titleAction(action), offenderName)
	if c.Escalation == casestore.EscalationSenior {
		notice = fmt.Sprintf("%s **ESCALATED REPORT RESOLVED** - %s executed on %s by senior moderator.", emojiResolve, titleAction(action), offenderName)
	}
	if recommendation != "" {
		notice += "\nRecommendation: " + recommendation
	}
	if modChannel, ok := eng.Config.ModChannels[evt.GuildID]; ok {
		out = append(out, PostNotice{ChannelID: modChannel, Text: notice})
	}

	if c.IsUserReport && !c.Reporter.Automated {
		out = append(out, NotifyUser{
			UserID: c.Reporter.UserID,
			Text:   "Thank you for your report. Our moderation team has reviewed it and taken action against the offending content.",
		})
	}

	if err := eng.Cases.SetStatus(ctx, c.ID, casestore.StatusResolved); err != nil {
		return nil, fmt.Errorf("closing case: %w", err)
	}
	if err := eng.Escalations.Resolve(c.ID, evt.AuthorID); err != nil {
		// no escalation record, or the escalation already reached a terminal
		// state; the case itself is what matters here
		eng.Logger.Debug("no escalation to resolve", "case", c.ID, "err", err)
	}

	eng.recordInfraction(ctx, &infractions.Infraction{
		UserID:         offender,
		UserName:       offenderName,
		Type:           action,
		Reason:         c.Reason,
		MessageContent: c.Content.Text,
		ChannelID:      c.Content.Ref.ChannelID,
		MessageID:      c.Content.Ref.MessageID,
		GuildID:        c.Content.Ref.GuildID,
		DetectedBy:     reporterKind(*c),
	})

	return out, nil
}

// Dismisses an escalated case after senior review. Only escalated cases can
// be dismissed; dismissal optionally counts a false report against the
// human reporter.
func (eng *Engine) dismissCase(ctx context.Context, evt event.MessageEvent, c *casestore.Case) ([]Instruction, error) {
	modChannel, hasModChannel := eng.Config.ModChannels[evt.GuildID]

	if err := eng.Escalations.Dismiss(c.ID, evt.AuthorID); err != nil {
		if !hasModChannel {
			return nil, nil
		}
		return []Instruction{PostNotice{
			ChannelID: modChannel,
			Text:      "Only escalated reports can be dismissed. Use `warn`, `suspend`, or `ban` to act on this report, or react with ⏫ to escalate it first.",
		}}, nil
	}
	modActionCount.WithLabelValues(actionDismiss).Inc()

	if err := eng.Cases.SetStatus(ctx, c.ID, casestore.StatusDismissed); err != nil {
		return nil, fmt.Errorf("closing case: %w", err)
	}

	var out []Instruction
	if hasModChannel {
		out = append(out, PostNotice{
			ChannelID: modChannel,
			Text:      fmt.Sprintf("%s **ESCALATED REPORT DISMISSED** - No action taken after senior review.", emojiResolve),
		})
	}

	if eng.Config.CountFalseReportOnDismissal && c.IsUserReport && !c.Reporter.Automated {
		if _, err := eng.Ledger.RecordFalseReport(ctx, c.Reporter.UserID); err != nil {
			return nil, fmt.Errorf("recording false report: %w", err)
		}
		out = append(out, NotifyUser{
			UserID: c.Reporter.UserID,
			Text:   "Thank you for your report. After review, our moderation team determined that no action was necessary.",
		})
	}
	return out, nil
}

// Actions against the reporter of a case (for abusive or bad-faith reports).
// The case itself stays open.
func (eng *Engine) applyReporterAction(ctx context.Context, evt event.MessageEvent, c *casestore.Case, action string) ([]Instruction, error) {
	modChannel, hasModChannel := eng.Config.ModChannels[evt.GuildID]

	if c.Reporter.Automated {
		if !hasModChannel {
			return nil, nil
		}
		return []Instruction{PostNotice{
			ChannelID: modChannel,
			Text:      "This report was filed by the automated scanner; there is no reporter to action.",
		}}, nil
	}
	modActionCount.WithLabelValues(action + "-reporter").Inc()

	reporter := c.Reporter.UserID
	var out []Instruction

	switch action {
	case actionBan:
		out = append(out, NotifyUser{
			UserID: reporter,
			Text:   "⛔ You have been banned from the server for abuse of the reporting system.",
		})
	case actionWarn:
		if _, err := eng.Ledger.RecordWarning(ctx, reporter); err != nil {
			return nil, fmt.Errorf("recording reporter warning: %w", err)
		}
		out = append(out, NotifyUser{
			UserID: reporter,
			Text:   "⚠️ You have received a warning for abuse of the reporting system.",
		})
	case actionSuspend:
		if _, err := eng.Ledger.RecordSuspension(ctx, reporter); err != nil {
			return nil, fmt.Errorf("recording reporter suspension: %w", err)
		}
		out = append(out, NotifyUser{
			UserID: reporter,
			Text:   "⚠️ You have been suspended for abuse of the reporting system.",
		})
	}

	if hasModChannel {
		out = append(out, PostNotice{
			ChannelID: modChannel,
			Text:      fmt.Sprintf("%s %s notice sent to the reporter of this case.", emojiResolve, titleAction(action)),
		})
	}
	return out, nil
}

func titleAction(action string) string {
	switch action {
	case actionBan:
		return "Ban"
	case actionWarn:
		return "Warning"
	case actionSuspend:
		return "Suspension"
	default:
		return action
	}
}
