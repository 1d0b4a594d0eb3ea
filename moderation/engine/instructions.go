package engine

import (
	"github.com/jonathanwhen/chaperone/moderation/casestore"
	"github.com/jonathanwhen/chaperone/moderation/event"
)

// Outbound instruction for the host to execute. The moderation core performs
// no network I/O of its own: event processing returns a list of these, and
// the host dispatches them against the chat platform.
type Instruction interface {
	isInstruction()
}

// Sends text back to a conversation (direct or channel).
type SendReply struct {
	ConversationID string
	Text           string
}

// Posts an informational message to a moderator-facing channel. The posted
// message is not tracked as a case.
type PostNotice struct {
	ChannelID string
	Text      string
}

// Posts a case announcement to a moderator-facing channel. The host must
// call Engine.HandleCasePosted with the resulting message identifier to
// complete case registration: the message id becomes the case id.
type PostCase struct {
	ChannelID string
	Text      string
	Draft     *CaseDraft
}

// Deletes a piece of content from the platform.
type DeleteContent struct {
	Ref event.ContentRef
}

// Sends a direct notification to a user.
type NotifyUser struct {
	UserID string
	Text   string
}

// Seeds reaction options on a posted message.
type AddReactions struct {
	MessageID string
	Emojis    []string
}

func (SendReply) isInstruction()     {}
func (PostNotice) isInstruction()    {}
func (PostCase) isInstruction()      {}
func (DeleteContent) isInstruction() {}
func (NotifyUser) isInstruction()    {}
func (AddReactions) isInstruction()  {}

type DraftKind string

const (
	DraftCase             DraftKind = "case"
	DraftEscalationNotice DraftKind = "escalation-notice"
	DraftLENotice         DraftKind = "le-notice"
)

// Pending registration for a posted moderator-facing message. Case identity
// is the posted message id, which only the host knows, so case creation is
// two-phase: the engine emits a PostCase instruction carrying the draft, and
// the host hands the message id back via HandleCasePosted.
type CaseDraft struct {
	Kind DraftKind
	// populated for DraftCase: the case to register, minus its id
	Case casestore.Case
	// populated for notice drafts: the canonical case being referenced
	CaseID string
}
