package event

// Opaque locator for a piece of reported content: the chat platform's
// server ("guild"), channel, and message identifiers.
type ContentRef struct {
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func (r ContentRef) IsZero() bool {
	return r.GuildID == "" && r.ChannelID == "" && r.MessageID == ""
}

// Who filed a report: a human account, or the automated scanner.
//
// The zero value is not valid; construct with HumanReporter or AutomatedReporter.
type Reporter struct {
	UserID    string `json:"user_id,omitempty"`
	Automated bool   `json:"automated,omitempty"`
}

func HumanReporter(userID string) Reporter {
	return Reporter{UserID: userID}
}

func AutomatedReporter() Reporter {
	return Reporter{Automated: true}
}

// Display name used in moderator-facing text.
func (r Reporter) Label() string {
	if r.Automated {
		return "AutoMod"
	}
	return r.UserID
}

// Resolved content for a ContentRef: the message body and its author, as
// fetched from the chat platform by the host.
type Content struct {
	Ref        ContentRef `json:"ref"`
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Text       string     `json:"text"`
}

// A single inbound chat message delivered by the host. One such event is fed
// to the engine at a time per originating conversation.
type MessageEvent struct {
	// platform identifier of this message itself
	MessageID  string `json:"message_id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	// the direct conversation or channel the message arrived in
	ConversationID string `json:"conversation_id"`
	// true when the message arrived over a direct conversation rather than a
	// shared channel
	Direct  bool   `json:"direct,omitempty"`
	Text    string `json:"text"`
	GuildID string `json:"guild_id,omitempty"`
	// channel name, used to recognize the moderator and escalation channels
	ChannelName string `json:"channel_name,omitempty"`
	// set when the message is a reply to another message in the same channel
	ReplyToMessageID string `json:"reply_to_message_id,omitempty"`
	// plain-text content extracted from attachments, if any
	AttachmentTexts []string `json:"attachment_texts,omitempty"`
}

// An emoji reaction added to a message, delivered by the host.
type ReactionEvent struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}
