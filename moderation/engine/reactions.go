package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/event"
)

// Processes an emoji reaction on a moderator-facing message. Reactions on
// law-enforcement notices drive the contact workflow; reactions on case
// messages (and their escalation notices) drive escalation.
func (eng *Engine) ProcessReaction(ctx context.Context, evt event.ReactionEvent) (instructions []Instruction, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("moderation event execution exception", "err", r, "actor", evt.ActorID)
			err = fmt.Errorf("panicked processing reaction event: %v", r)
		}
		eventProcessCount.WithLabelValues("reaction").Inc()
		eventProcessDuration.WithLabelValues("reaction").Observe(time.Since(start).Seconds())
	}()

	if rec := eng.Escalations.ByLEMessage(evt.MessageID); rec != nil {
		return eng.processLEReaction(ctx, evt, rec.CaseID)
	}

	c, err := eng.Cases.Lookup(ctx, evt.MessageID)
	if err != nil {
		return nil, fmt.Errorf("looking up case for reaction: %w", err)
	}
	if c == nil {
		// reaction on an unrelated message
		return nil, nil
	}

	switch evt.Emoji {
	case emojiEscalate:
		return eng.escalateCase(ctx, evt, c)
	case emojiLE:
		return eng.escalateToLawEnforcement(ctx, evt, c)
	default:
		return nil, nil
	}
}

// Standard escalation to senior moderators. Repeated escalations of the same
// case are idempotent: only the first produces an escalation notice.
func (eng *Engine) escalateCase(ctx context.Context, evt event.ReactionEvent, c *casestore.Case) ([]Instruction, error) {
	created, err := eng.Escalations.Escalate(c.ID, evt.ActorID)
	if err != nil {
		eng.Logger.Info("escalation rejected", "case", c.ID, "err", err)
		return nil, nil
	}
	if !created {
		return nil, nil
	}
	escalationCount.WithLabelValues("senior").Inc()

	actor := actorLabel(evt)
	if err := eng.Cases.SetEscalation(ctx, c.ID, casestore.EscalationSenior, actor); err != nil {
		return nil, fmt.Errorf("marking case escalated: %w", err)
	}

	text := renderEscalationText(c, actor)
	channel, ok := eng.Config.EscalationChannels[evt.GuildID]
	if !ok {
		// no dedicated senior channel; fall back to the moderator channel and
		// make the escalation hard to miss
		channel = eng.Config.ModChannels[evt.GuildID]
		text = "@here " + text
	}

	out := []Instruction{
		PostCase{ChannelID: channel, Text: text, Draft: &CaseDraft{Kind: DraftEscalationNotice, CaseID: c.ID}},
	}
	if modChannel, ok := eng.Config.ModChannels[evt.GuildID]; ok {
		out = append(out, PostNotice{
			ChannelID: modChannel,
			Text:      fmt.Sprintf("%s Report escalated to senior moderators by %s.", emojiResolve, actor),
		})
	}
	return out, nil
}

// Escalation to law enforcement, producing a reference identifier and a
// notice message whose reactions drive the contact workflow.
func (eng *Engine) escalateToLawEnforcement(ctx context.Context, evt event.ReactionEvent, c *casestore.Case) ([]Instruction, error) {
	actor := actorLabel(evt)
	refID, created, err := eng.Escalations.EscalateToLawEnforcement(c.ID, c.Content.Ref.MessageID, actor)
	if err != nil {
		eng.Logger.Info("law-enforcement escalation rejected", "case", c.ID, "err", err)
		return nil, nil
	}
	if !created {
		return nil, nil
	}
	escalationCount.WithLabelValues("law-enforcement").Inc()

	if err := eng.Cases.SetEscalation(ctx, c.ID, casestore.EscalationLawEnforcement, actor); err != nil {
		return nil, fmt.Errorf("marking case escalated: %w", err)
	}

	counts, err := eng.Ledger.GetCounts(ctx, c.Content.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("reading offense counts: %w", err)
	}

	channel, ok := eng.Config.ModChannels[evt.GuildID]
	if !ok {
		eng.Logger.Warn("no moderator channel configured for guild", "guild", evt.GuildID)
		return nil, nil
	}
	return []Instruction{
		PostCase{
			ChannelID: channel,
			Text:      renderLEText(c, refID, actor, counts.Warnings+counts.Suspensions, time.Now()),
			Draft:     &CaseDraft{Kind: DraftLENotice, CaseID: c.ID},
		},
	}, nil
}

// Reactions on a law-enforcement notice message: confirm contact, resolve,
// or cancel the escalation.
func (eng *Engine) processLEReaction(ctx context.Context, evt event.ReactionEvent, caseID string) ([]Instruction, error) {
	channel, ok := eng.Config.ModChannels[evt.GuildID]
	if !ok {
		return nil, nil
	}
	actor := actorLabel(evt)

	switch evt.Emoji {
	case emojiLE:
		if err := eng.Escalations.ConfirmContact(caseID, actor); err != nil {
			eng.Logger.Info("contact confirmation rejected", "case", caseID, "err", err)
			return nil, nil
		}
		modActionCount.WithLabelValues("le-contacted").Inc()
		return []Instruction{PostNotice{
			ChannelID: channel,
			Text:      fmt.Sprintf("%s Law enforcement contact confirmed by %s. Awaiting resolution.", emojiLE, actor),
		}}, nil
	case emojiResolve:
		if err := eng.Escalations.Resolve(caseID, actor); err != nil {
			eng.Logger.Info("resolution rejected", "case", caseID, "err", err)
			return nil, nil
		}
		if err := eng.Cases.SetStatus(ctx, caseID, casestore.StatusResolved); err != nil {
			return nil, fmt.Errorf("resolving case: %w", err)
		}
		modActionCount.WithLabelValues("le-resolved").Inc()
		return []Instruction{PostNotice{
			ChannelID: channel,
			Text:      fmt.Sprintf("%s Law enforcement case marked as resolved by %s.", emojiResolve, actor),
		}}, nil
	case emojiCancel:
		if err := eng.Escalations.Cancel(caseID, actor); err != nil {
			eng.Logger.Info("cancellation rejected", "case", caseID, "err", err)
			return nil, nil
		}
		modActionCount.WithLabelValues("le-cancelled").Inc()
		return []Instruction{PostNotice{
			ChannelID: channel,
			Text:      fmt.Sprintf("%s Law enforcement escalation cancelled by %s. The case remains open for standard handling.", emojiCancel, actor),
		}}, nil
	default:
		return nil, nil
	}
}

func actorLabel(evt event.ReactionEvent) string {
	if evt.ActorName != "" {
		return evt.ActorName
	}
	return evt.ActorID
}
