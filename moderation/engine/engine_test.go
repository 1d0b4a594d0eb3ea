package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/event"
)

func dmEvent(userID, text string) event.MessageEvent {
	return event.MessageEvent{
		AuthorID:       userID,
		AuthorName:     "name-" + userID,
		ConversationID: "dm-" + userID,
		Direct:         true,
		Text:           text,
	}
}

// Walks a full static-mode report interview over direct messages and returns
// the instructions from the final (completing) step.
func runReportFlow(t *testing.T, eng *Engine, userID, link string) []Instruction {
	t.Helper()
	ctx := context.Background()

	steps := []string{"report", link, "1", "1", "1", "1"}
	for _, text := range steps {
		out, err := eng.ProcessMessage(ctx, dmEvent(userID, text))
		require.NoError(t, err)
		require.NotEmpty(t, out)
	}
	// decline the optional free-text step, which completes the interview
	out, err := eng.ProcessMessage(ctx, dmEvent(userID, "no"))
	require.NoError(t, err)
	return out
}

func postedContent() event.Content {
	return event.Content{
		Ref:        event.ContentRef{GuildID: "101", ChannelID: "202", MessageID: "303"},
		AuthorID:   "offender",
		AuthorName: "Offender",
		Text:       "some nasty message",
	}
}

func TestReportFlowOpensCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, resolver := EngineTestFixture()
	resolver.Insert(postedContent())

	out := runReportFlow(t, eng, "reporter1", "https://discord.com/channels/101/202/303")
	require.NotEmpty(t, out)

	post, ok := out[len(out)-1].(PostCase)
	require.True(t, ok, "expected final instruction to post a case")
	assert.Equal("900", post.ChannelID)
	require.NotNil(t, post.Draft)
	assert.Equal(DraftCase, post.Draft.Kind)
	assert.Contains(post.Text, "Offender")
	assert.Contains(post.Text, "hate speech")

	followup, err := eng.HandleCasePosted(ctx, post.Draft, "case-1")
	require.NoError(t, err)
	require.Len(t, followup, 1)
	reactions, ok := followup[0].(AddReactions)
	require.True(t, ok)
	assert.Equal("case-1", reactions.MessageID)
	assert.Equal(caseReactions, reactions.Emojis)

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(1, c.ReportCount)
	assert.True(c.IsUserReport)
	assert.Equal("reporter1", c.Reporter.UserID)
	assert.Equal(casestore.StatusOpen, c.Status)

	// reporting the same message again merges in to the existing case
	out = runReportFlow(t, eng, "reporter2", "https://discord.com/channels/101/202/303")
	require.NotEmpty(t, out)
	notice, ok := out[len(out)-1].(PostNotice)
	require.True(t, ok, "expected a repeat-report notice, not a second case")
	assert.Equal("900", notice.ChannelID)
	assert.Contains(notice.Text, "reported again")
	assert.Contains(notice.Text, "2 time(s)")

	c, err = eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(2, c.ReportCount)
}

func TestReportFlowNeverTouchesLedger(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, resolver := EngineTestFixture()
	resolver.Insert(postedContent())

	runReportFlow(t, eng, "reporter1", "https://discord.com/channels/101/202/303")

	counts, err := eng.Ledger.GetCounts(ctx, "offender")
	assert.NoError(err)
	assert.Equal(0, counts.Warnings)
	assert.Equal(0, counts.Suspensions)
}

func TestAutomatedScanOpensCase(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()

	// clean message: no instructions at all
	out, err := eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:      "404",
		AuthorID:       "userB",
		AuthorName:     "UserB",
		ConversationID: "202",
		GuildID:        "101",
		ChannelName:    "general",
		Text:           "hello friends",
	})
	assert.NoError(err)
	assert.Empty(out)

	out, err = eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:      "405",
		AuthorID:       "userB",
		AuthorName:     "UserB",
		ConversationID: "202",
		GuildID:        "101",
		ChannelName:    "general",
		Text:           "you are a slur",
	})
	assert.NoError(err)
	require.Len(t, out, 1)

	post, ok := out[0].(PostCase)
	require.True(t, ok)
	assert.Equal("900", post.ChannelID)
	assert.Contains(post.Text, "AutoMod")
	assert.Contains(post.Text, "first recorded offense")

	// the detection itself counts as an offense for the author
	counts, err := eng.Ledger.GetCounts(ctx, "userB")
	assert.NoError(err)
	assert.Equal(1, counts.Warnings)
}

func TestAutomatedScanSkipsModeratorChannel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	out, err := eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:      "406",
		AuthorID:       "mod1",
		ConversationID: "900",
		GuildID:        "101",
		ChannelName:    eng.Config.ModChannelName,
		Text:           "discussing the slur report",
	})
	assert.NoError(err)
	assert.Empty(out)
}

// Registers a case directly and returns it, skipping the interview.
func seedCase(t *testing.T, eng *Engine, caseID string) *casestore.Case {
	t.Helper()
	ctx := context.Background()
	c := &casestore.Case{
		ID:           caseID,
		Content:      postedContent(),
		Reporter:     event.HumanReporter("reporter1"),
		Reason:       "hate speech - race or ethnicity (targets me; one-off incident)",
		ReportCount:  1,
		IsUserReport: true,
	}
	require.NoError(t, eng.Cases.OpenCase(ctx, c))
	return c
}

func modReply(replyTo, text string) event.MessageEvent {
	return event.MessageEvent{
		AuthorID:         "mod1",
		AuthorName:       "Mod One",
		ConversationID:   "900",
		GuildID:          "101",
		ChannelName:      "mod",
		ReplyToMessageID: replyTo,
		Text:             text,
	}
}

func TestModeratorWarnFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	out, err := eng.ProcessMessage(ctx, modReply("case-1", "warn"))
	require.NoError(t, err)

	var notified, deleted, noticed, thanked bool
	for _, inst := range out {
		switch v := inst.(type) {
		case NotifyUser:
			if v.UserID == "offender" {
				notified = true
				assert.Contains(v.Text, "warning")
			}
			if v.UserID == "reporter1" {
				thanked = true
			}
		case DeleteContent:
			deleted = true
			assert.Equal("303", v.Ref.MessageID)
		case PostNotice:
			noticed = true
			assert.Contains(v.Text, "Warning notice sent")
			assert.Contains(v.Text, "first recorded offense")
		}
	}
	assert.True(notified, "offender should be notified")
	assert.True(deleted, "reported content should be deleted")
	assert.True(noticed, "moderator channel should get a confirmation")
	assert.True(thanked, "reporter should be thanked")

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(casestore.StatusResolved, c.Status)

	counts, err := eng.Ledger.GetCounts(ctx, "offender")
	assert.NoError(err)
	assert.Equal(1, counts.Warnings)

	// further replies to a closed case are ignored
	out, err = eng.ProcessMessage(ctx, modReply("case-1", "ban"))
	assert.NoError(err)
	assert.Empty(out)
}

func TestModeratorSuspendAndBan(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	out, err := eng.ProcessMessage(ctx, modReply("case-1", "suspend"))
	require.NoError(t, err)
	require.NotEmpty(t, out)
	counts, err := eng.Ledger.GetCounts(ctx, "offender")
	assert.NoError(err)
	assert.Equal(1, counts.Suspensions)

	seedCase(t, eng, "case-2")
	out, err = eng.ProcessMessage(ctx, modReply("case-2", "ban"))
	require.NoError(t, err)
	notify, ok := out[0].(NotifyUser)
	require.True(t, ok)
	assert.Equal("offender", notify.UserID)
	assert.Contains(notify.Text, "banned")
	// a ban does not add to the warning/suspension tallies
	counts, err = eng.Ledger.GetCounts(ctx, "offender")
	assert.NoError(err)
	assert.Equal(0, counts.Warnings)
	assert.Equal(1, counts.Suspensions)
}

func TestUnknownCaseAndUnknownCommandIgnored(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	out, err := eng.ProcessMessage(ctx, modReply("untracked-msg", "warn"))
	assert.NoError(err)
	assert.Empty(out)

	out, err = eng.ProcessMessage(ctx, modReply("case-1", "what should we do here?"))
	assert.NoError(err)
	assert.Empty(out)
}

func TestEscalationIsIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	react := event.ReactionEvent{
		ActorID: "mod1", ActorName: "Mod One",
		GuildID: "101", MessageID: "case-1", Emoji: emojiEscalate,
	}
	out, err := eng.ProcessReaction(ctx, react)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	post, ok := out[0].(PostCase)
	require.True(t, ok)
	assert.Equal("901", post.ChannelID)
	assert.Equal(DraftEscalationNotice, post.Draft.Kind)
	assert.Equal("case-1", post.Draft.CaseID)
	assert.Contains(post.Text, "Mod One")

	// a second identical reaction produces nothing new
	out, err = eng.ProcessReaction(ctx, react)
	assert.NoError(err)
	assert.Empty(out)

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(casestore.EscalationSenior, c.Escalation)

	// the escalation notice is an alias of the canonical case
	followup, err := eng.HandleCasePosted(ctx, post.Draft, "esc-msg-1")
	require.NoError(t, err)
	require.Len(t, followup, 1)
	alias, err := eng.Cases.Lookup(ctx, "esc-msg-1")
	require.NoError(t, err)
	require.NotNil(t, alias)
	assert.Equal("case-1", alias.ID)
}

func TestDismissRequiresEscalation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	out, err := eng.ProcessMessage(ctx, modReply("case-1", "dismiss"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	notice, ok := out[0].(PostNotice)
	require.True(t, ok)
	assert.Contains(notice.Text, "Only escalated reports can be dismissed")

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(casestore.StatusOpen, c.Status)
}

func TestDismissEscalatedCountsFalseReport(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	_, err := eng.ProcessReaction(ctx, event.ReactionEvent{
		ActorID: "mod1", GuildID: "101", MessageID: "case-1", Emoji: emojiEscalate,
	})
	require.NoError(t, err)

	out, err := eng.ProcessMessage(ctx, modReply("case-1", "dismiss"))
	require.NoError(t, err)

	var dismissed, reporterNotified bool
	for _, inst := range out {
		switch v := inst.(type) {
		case PostNotice:
			dismissed = true
			assert.Contains(v.Text, "DISMISSED")
		case NotifyUser:
			reporterNotified = true
			assert.Equal("reporter1", v.UserID)
		}
	}
	assert.True(dismissed)
	assert.True(reporterNotified)

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(casestore.StatusDismissed, c.Status)

	counts, err := eng.Ledger.GetCounts(ctx, "reporter1")
	assert.NoError(err)
	assert.Equal(1, counts.FalseReports)
}

func TestLawEnforcementWorkflow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	seedCase(t, eng, "case-1")

	out, err := eng.ProcessReaction(ctx, event.ReactionEvent{
		ActorID: "mod1", ActorName: "Mod One",
		GuildID: "101", MessageID: "case-1", Emoji: emojiLE,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	post, ok := out[0].(PostCase)
	require.True(t, ok)
	assert.Equal(DraftLENotice, post.Draft.Kind)
	assert.Contains(post.Text, "LE-")

	_, err = eng.HandleCasePosted(ctx, post.Draft, "le-msg-1")
	require.NoError(t, err)

	// confirm contact, then resolve, via reactions on the notice message
	out, err = eng.ProcessReaction(ctx, event.ReactionEvent{
		ActorID: "mod1", GuildID: "101", MessageID: "le-msg-1", Emoji: emojiLE,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(out[0].(PostNotice).Text, "contact confirmed")

	out, err = eng.ProcessReaction(ctx, event.ReactionEvent{
		ActorID: "mod1", GuildID: "101", MessageID: "le-msg-1", Emoji: emojiResolve,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(out[0].(PostNotice).Text, "resolved")

	c, err := eng.Cases.Lookup(ctx, "case-1")
	require.NoError(t, err)
	assert.Equal(casestore.StatusResolved, c.Status)

	// repeating the trigger reaction on the original case stays idempotent
	out, err = eng.ProcessReaction(ctx, event.ReactionEvent{
		ActorID: "mod1", GuildID: "101", MessageID: "case-1", Emoji: emojiLE,
	})
	assert.NoError(err)
	assert.Empty(out)
}

func TestReplyShortcutStartsSession(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, resolver := EngineTestFixture()
	resolver.Insert(postedContent())

	out, err := eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:        "500",
		AuthorID:         "reporter1",
		AuthorName:       "Reporter",
		ConversationID:   "202",
		GuildID:          "101",
		ChannelName:      "general",
		ReplyToMessageID: "303",
		Text:             "report",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out)

	// the interview skips target resolution and echoes the message
	var echoed bool
	for _, inst := range out {
		if r, ok := inst.(SendReply); ok && r.Text == "```Offender: some nasty message```" {
			echoed = true
		}
	}
	assert.True(echoed, "shortcut should echo the replied-to message")

	// replying to a deleted message fails gracefully
	out, err = eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:        "501",
		AuthorID:         "reporter2",
		ConversationID:   "202",
		GuildID:          "101",
		ChannelName:      "general",
		ReplyToMessageID: "999",
		Text:             "report",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(out[0].(SendReply).Text, "may have been deleted")
}

func TestSecondConcurrentReportRejected(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, resolver := EngineTestFixture()
	resolver.Insert(postedContent())

	_, err := eng.ProcessMessage(ctx, dmEvent("reporter1", "report"))
	require.NoError(t, err)

	// a reply shortcut while a direct-message interview is live gets rejected
	out, err := eng.ProcessMessage(ctx, event.MessageEvent{
		MessageID:        "500",
		AuthorID:         "reporter1",
		ConversationID:   "202",
		GuildID:          "101",
		ChannelName:      "general",
		ReplyToMessageID: "303",
		Text:             "report",
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(out[0].(SendReply).Text, "already have a report in progress")
}
