package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/ledger"
)

const (
	emojiEscalate = "⏫"
	emojiLE       = "🚔"
	emojiResolve  = "✅"
	emojiCancel   = "❌"
)

var caseReactions = []string{emojiEscalate, emojiLE}
var escalationReactions = []string{emojiLE}
var leReactions = []string{emojiLE, emojiResolve, emojiCancel}

// Renders the moderator-channel case announcement: reporter provenance,
// reason, quoted content, offense-count block, and the action menu.
func renderCaseText(c *casestore.Case, reported, reporter ledger.Counts, recommendation string) string {
	var b strings.Builder

	reporterText := "from automatic detection"
	if c.IsUserReport {
		reporterText = fmt.Sprintf("from %s via DM", c.Reporter.Label())
	}
	fmt.Fprintf(&b, "New report %s:\n", reporterText)
	fmt.Fprintf(&b, "Reason: %s\n", c.Reason)
	fmt.Fprintf(&b, "Message: %s: %q\n", c.Content.AuthorName, c.Content.Text)
	fmt.Fprintf(&b, "This message has been reported %d time(s).\n\n", c.ReportCount)

	fmt.Fprintf(&b, "**Offense counts**:\n")
	fmt.Fprintf(&b, "• Reported User (%s): %d suspension(s)\n", c.Content.AuthorName, reported.Suspensions)
	fmt.Fprintf(&b, "• Reported User (%s): %d warning(s)\n\n", c.Content.AuthorName, reported.Warnings)
	fmt.Fprintf(&b, "• Reporter (%s): %d suspension(s)\n", c.Reporter.Label(), reporter.Suspensions)
	fmt.Fprintf(&b, "• Reporter (%s): %d warning(s)\n", c.Reporter.Label(), reporter.Warnings)
	fmt.Fprintf(&b, "• Reporter (%s): %d incorrect reports\n\n", c.Reporter.Label(), reporter.FalseReports)

	if recommendation != "" {
		fmt.Fprintf(&b, "**Recommendation**: %s\n\n", recommendation)
	}

	b.WriteString("**Moderation Options:**\n")
	b.WriteString("• Reply with \"Ban\" to ban the reported user\n")
	b.WriteString("• Reply with \"Suspend\" to suspend the reported user\n")
	b.WriteString("• Reply with \"Warn\" to warn the reported user\n")
	b.WriteString("• Reply with \"Ban Reporter\" to ban the reporter\n")
	b.WriteString("• Reply with \"Suspend Reporter\" to suspend the reporter\n")
	b.WriteString("• Reply with \"Warn Reporter\" to warn the reporter\n")
	fmt.Fprintf(&b, "• React with %s for standard escalation\n", emojiEscalate)
	fmt.Fprintf(&b, "• React with %s for law enforcement escalation\n", emojiLE)
	b.WriteString("• Reply with \"Dismiss\" to dismiss report\n")

	return b.String()
}

// Renders the senior-review escalation notice.
func renderEscalationText(c *casestore.Case, escalatedBy string) string {
	var b strings.Builder

	b.WriteString("🚨 **ESCALATED REPORT** 🚨\n")
	fmt.Fprintf(&b, "**Escalated by:** %s\n", escalatedBy)
	fmt.Fprintf(&b, "**Original reason:** %s\n", c.Reason)
	fmt.Fprintf(&b, "**Reported user:** %s\n", c.Content.AuthorName)
	fmt.Fprintf(&b, "**Message content:** %q\n", c.Content.Text)
	fmt.Fprintf(&b, "**Report count:** %d time(s)\n", c.ReportCount)
	b.WriteString("**Needs senior moderator attention**\n\n")
	b.WriteString("**Senior Moderator Options:**\n")
	b.WriteString("• Reply with 'Ban', 'Warn', or 'Dismiss' to resolve\n")
	b.WriteString("• Reply with 'Ban Reporter' or 'Warn Reporter' for malicious reporting\n")
	fmt.Fprintf(&b, "• React with %s to escalate to law enforcement", emojiLE)

	return b.String()
}

// Renders the law-enforcement escalation notice with its reference id.
func renderLEText(c *casestore.Case, refID, escalatedBy string, priorOffenses int, now time.Time) string {
	var b strings.Builder

	b.WriteString("🚨🚔 **LAW ENFORCEMENT ESCALATION** 🚔🚨\n")
	fmt.Fprintf(&b, "**Reference ID**: `%s`\n", refID)
	fmt.Fprintf(&b, "**Escalated by**: %s\n", escalatedBy)
	fmt.Fprintf(&b, "**Timestamp**: %s\n\n", now.UTC().Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("**INCIDENT DETAILS**:\n")
	fmt.Fprintf(&b, "• **Reported User**: %s (ID: `%s`)\n", c.Content.AuthorName, c.Content.AuthorID)
	fmt.Fprintf(&b, "• **Message Content**: %q\n", c.Content.Text)
	fmt.Fprintf(&b, "• **Channel**: `%s`\n", c.Content.Ref.ChannelID)
	fmt.Fprintf(&b, "• **Server**: `%s`\n", c.Content.Ref.GuildID)
	fmt.Fprintf(&b, "• **Original Report**: %s\n", c.Reason)
	fmt.Fprintf(&b, "• **User Offense History**: %d previous violations\n\n", priorOffenses)

	b.WriteString("**NEXT STEPS FOR MODERATORS**:\n")
	b.WriteString("1. **Contact local law enforcement** if this involves immediate danger\n")
	b.WriteString("2. **Use the platform's government request portal** for non-emergency reports\n")
	b.WriteString("3. **Preserve all evidence** - do not delete the message yet\n")
	b.WriteString("4. **Document any additional context** in this channel\n\n")

	b.WriteString("**REACTIONS**:\n")
	fmt.Fprintf(&b, "%s - Confirm law enforcement has been contacted\n", emojiLE)
	fmt.Fprintf(&b, "%s - Mark as resolved\n", emojiResolve)
	fmt.Fprintf(&b, "%s - Cancel escalation", emojiCancel)

	return b.String()
}
