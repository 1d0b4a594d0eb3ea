package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jonathanwhen/chaperone/moderation/engine"
	"github.com/jonathanwhen/chaperone/moderation/event"
)

// Wire envelope for inbound events, one JSON object per line on stdin. The
// platform adapter (the process talking to the actual chat service) produces
// these and consumes the instruction lines the daemon writes to stdout.
type inboundEvent struct {
	Kind     string               `json:"kind"`
	Message  *event.MessageEvent  `json:"message,omitempty"`
	Reaction *event.ReactionEvent `json:"reaction,omitempty"`
	// completes two-phase case registration: echoes a draft token from a
	// post_case instruction together with the posted message id
	Posted *postedEvent `json:"posted,omitempty"`
}

type postedEvent struct {
	DraftToken string `json:"draft_token"`
	MessageID  string `json:"message_id"`
}

// Wire form of an outbound instruction, one JSON object per line on stdout.
type outboundInstruction struct {
	Kind           string   `json:"kind"`
	ConversationID string   `json:"conversation_id,omitempty"`
	ChannelID      string   `json:"channel_id,omitempty"`
	UserID         string   `json:"user_id,omitempty"`
	MessageID      string   `json:"message_id,omitempty"`
	GuildID        string   `json:"guild_id,omitempty"`
	Text           string   `json:"text,omitempty"`
	Emojis         []string `json:"emojis,omitempty"`
	// set on post_case: the adapter must echo this back in a posted event
	DraftToken string `json:"draft_token,omitempty"`
}

// Consumes events from stdin until EOF or context cancellation, dispatching
// resulting instructions to stdout. Event processing is sequential, which
// satisfies the per-conversation ordering the engine requires.
func (s *Server) Run(ctx context.Context) error {
	return s.consume(ctx, os.Stdin, os.Stderr)
}

func (s *Server) consume(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			s.logger.Info("shutting down event consumer")
			return nil
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var evt inboundEvent
		if err := json.Unmarshal(line, &evt); err != nil {
			s.logger.Warn("skipping malformed event line", "err", err)
			continue
		}

		instructions, err := s.handleEvent(ctx, &evt)
		if err != nil {
			s.logger.Error("event processing failed", "kind", evt.Kind, "err", err)
			continue
		}
		for _, inst := range instructions {
			if err := enc.Encode(s.encodeInstruction(inst)); err != nil {
				return fmt.Errorf("writing instruction: %w", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading event stream: %w", err)
	}
	s.logger.Info("event stream closed")
	return nil
}

func (s *Server) handleEvent(ctx context.Context, evt *inboundEvent) ([]engine.Instruction, error) {
	switch evt.Kind {
	case "message":
		if evt.Message == nil {
			return nil, fmt.Errorf("message event missing payload")
		}
		if !evt.Message.Direct {
			// remember channel traffic so message links in reports resolve
			s.cache.Insert(event.Content{
				Ref: event.ContentRef{
					GuildID:   evt.Message.GuildID,
					ChannelID: evt.Message.ConversationID,
					MessageID: evt.Message.MessageID,
				},
				AuthorID:   evt.Message.AuthorID,
				AuthorName: evt.Message.AuthorName,
				Text:       evt.Message.Text,
			})
		}
		return s.engine.ProcessMessage(ctx, *evt.Message)
	case "reaction":
		if evt.Reaction == nil {
			return nil, fmt.Errorf("reaction event missing payload")
		}
		return s.engine.ProcessReaction(ctx, *evt.Reaction)
	case "posted":
		if evt.Posted == nil {
			return nil, fmt.Errorf("posted event missing payload")
		}
		draft := s.takeDraft(evt.Posted.DraftToken)
		if draft == nil {
			return nil, fmt.Errorf("unknown draft token: %s", evt.Posted.DraftToken)
		}
		return s.engine.HandleCasePosted(ctx, draft, evt.Posted.MessageID)
	default:
		return nil, fmt.Errorf("unknown event kind: %s", evt.Kind)
	}
}

func (s *Server) encodeInstruction(inst engine.Instruction) outboundInstruction {
	switch v := inst.(type) {
	case engine.SendReply:
		return outboundInstruction{Kind: "send_reply", ConversationID: v.ConversationID, Text: v.Text}
	case engine.PostNotice:
		return outboundInstruction{Kind: "post_notice", ChannelID: v.ChannelID, Text: v.Text}
	case engine.PostCase:
		return outboundInstruction{Kind: "post_case", ChannelID: v.ChannelID, Text: v.Text, DraftToken: s.storeDraft(v.Draft)}
	case engine.DeleteContent:
		return outboundInstruction{Kind: "delete_content", GuildID: v.Ref.GuildID, ChannelID: v.Ref.ChannelID, MessageID: v.Ref.MessageID}
	case engine.NotifyUser:
		return outboundInstruction{Kind: "notify_user", UserID: v.UserID, Text: v.Text}
	case engine.AddReactions:
		return outboundInstruction{Kind: "add_reactions", MessageID: v.MessageID, Emojis: v.Emojis}
	default:
		s.logger.Error("unhandled instruction type", "instruction", fmt.Sprintf("%T", inst))
		return outboundInstruction{Kind: "unknown"}
	}
}

func (s *Server) storeDraft(draft *engine.CaseDraft) string {
	s.draftsLk.Lock()
	defer s.draftsLk.Unlock()
	s.nextDraft++
	token := "draft-" + strconv.Itoa(s.nextDraft)
	s.drafts[token] = draft
	return token
}

func (s *Server) takeDraft(token string) *engine.CaseDraft {
	s.draftsLk.Lock()
	defer s.draftsLk.Unlock()
	draft := s.drafts[token]
	delete(s.drafts, token)
	return draft
}
