package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// conversationWire tolerates the field-name drift the backend has shipped:
// `title` vs `topic_title`, and `updated_at` being absent entirely.
type conversationWire struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	TopicTitle string `json:"topic_title"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (w conversationWire) toConversation(fallbackUserID string) Conversation {
	title := w.TopicTitle
	if title == "" {
		title = w.Title
	}
	if title == "" {
		title = "Untitled"
	}
	userID := w.UserID
	if userID == "" {
		userID = fallbackUserID
	}
	return Conversation{
		ID:        w.ID,
		UserID:    userID,
		Title:     title,
		CreatedAt: parseTimestamp(w.CreatedAt),
		UpdatedAt: parseTimestamp(w.UpdatedAt),
	}
}

// listBucketOrder fixes the flattening order of the grouped list shape.
var listBucketOrder = []string{"today", "yesterday", "previous_7_days", "older"}

// CreateConversation creates a conversation and returns its id.
func (c *Client) CreateConversation(ctx context.Context, userID, title string) (string, error) {
	out := struct {
		ConversationID string `json:"conversation_id"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"user_id": userID, "topic_title": title}).
		SetResult(&out).
		Post("/api/conversations/start")
	if err != nil {
		return "", errors.Wrap(err, "creating conversation")
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	if out.ConversationID == "" {
		return "", errors.New("backend returned no conversation id")
	}
	return out.ConversationID, nil
}

// ListConversations fetches every conversation of a user as one flat,
// canonical list. The backend has shipped both a grouped-by-bucket shape and
// a flat array; both are accepted.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		Get("/api/conversations/list")
	if err != nil {
		return nil, errors.Wrap(err, "listing conversations")
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return normalizeConversationList(resp.Body(), userID)
}

func normalizeConversationList(body []byte, userID string) ([]Conversation, error) {
	// Flat shape first.
	var flat []conversationWire
	if err := json.Unmarshal(body, &flat); err == nil {
		conversations := make([]Conversation, 0, len(flat))
		for _, w := range flat {
			conversations = append(conversations, w.toConversation(userID))
		}
		return conversations, nil
	}

	// Grouped-by-bucket shape.
	var grouped map[string][]conversationWire
	if err := json.Unmarshal(body, &grouped); err != nil {
		return nil, errors.Wrap(err, "unmarshaling conversation list")
	}
	var conversations []Conversation
	seen := map[string]struct{}{}
	appendBucket := func(bucket []conversationWire) {
		for _, w := range bucket {
			if _, ok := seen[w.ID]; ok {
				continue
			}
			seen[w.ID] = struct{}{}
			conversations = append(conversations, w.toConversation(userID))
		}
	}
	for _, key := range listBucketOrder {
		appendBucket(grouped[key])
		delete(grouped, key)
	}
	// Unknown buckets still contribute; the grouping is recomputed locally
	// anyway.
	for _, bucket := range grouped {
		appendBucket(bucket)
	}
	return conversations, nil
}

type messageWire struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversation_id"`
	Role           string       `json:"role"`
	Content        string       `json:"content"`
	Meta           *MessageMeta `json:"meta"`
	CreatedAt      string       `json:"created_at"`
}

func (w messageWire) toMessage(conversationID string) Message {
	role := Role(w.Role)
	if w.Role == wireRoleAgent {
		role = RoleAssistant
	}
	if w.ConversationID == "" {
		w.ConversationID = conversationID
	}
	return Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		Role:           role,
		Content:        w.Content,
		Meta:           w.Meta,
		CreatedAt:      parseTimestamp(w.CreatedAt),
	}
}

// maxTranscriptPages bounds pagination against a backend that ignores the
// offset parameter and keeps serving the same full page.
const maxTranscriptPages = 200

// GetConversation fetches a conversation and its full message history,
// following the backend's offset pagination until exhausted. Messages come
// back in server order.
func (c *Client) GetConversation(ctx context.Context, conversationID string, pageSize int) (*Conversation, []Message, error) {
	if pageSize <= 0 {
		pageSize = 50
	}
	var conversation *Conversation
	var messages []Message
	var lastFirstID string
	for offset, pages := 0, 0; ; offset, pages = offset+pageSize, pages+1 {
		if pages >= maxTranscriptPages {
			return nil, nil, errors.Errorf("transcript pagination did not terminate after %d pages", maxTranscriptPages)
		}
		out := struct {
			Conversation conversationWire `json:"conversation"`
			Messages     []messageWire    `json:"messages"`
		}{}
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("limit", fmt.Sprintf("%d", pageSize)).
			SetQueryParam("offset", fmt.Sprintf("%d", offset)).
			SetResult(&out).
			Get("/api/conversations/" + conversationID)
		if err != nil {
			return nil, nil, errors.Wrap(err, "fetching conversation")
		}
		if resp.IsError() {
			return nil, nil, statusError(resp)
		}
		if conversation == nil {
			normalized := out.Conversation.toConversation("")
			if normalized.ID == "" {
				normalized.ID = conversationID
			}
			conversation = &normalized
		}
		if len(out.Messages) > 0 {
			// A page opening with the id the previous page opened with is
			// the backend ignoring the offset parameter.
			if out.Messages[0].ID != "" && out.Messages[0].ID == lastFirstID {
				return nil, nil, errors.New("transcript pagination repeated a page")
			}
			lastFirstID = out.Messages[0].ID
		}
		for _, w := range out.Messages {
			messages = append(messages, w.toMessage(conversationID))
		}
		if len(out.Messages) < pageSize {
			break
		}
	}
	return conversation, messages, nil
}

// SendMessage persists a message and returns its id. The assistant role is
// written as "agent" on the wire.
func (c *Client) SendMessage(ctx context.Context, conversationID string, role Role, content string, meta *MessageMeta) (string, error) {
	wireRole := string(role)
	if role == RoleAssistant {
		wireRole = wireRoleAgent
	}
	out := struct {
		MessageID string `json:"message_id"`
	}{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"role": wireRole, "content": content, "meta": meta}).
		SetResult(&out).
		Post("/api/conversations/" + conversationID + "/message")
	if err != nil {
		return "", errors.Wrap(err, "sending message")
	}
	if resp.IsError() {
		return "", statusError(resp)
	}
	return out.MessageID, nil
}

// RenameConversation sets a new display title.
func (c *Client) RenameConversation(ctx context.Context, conversationID, newTitle string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"new_title": newTitle}).
		Post("/api/conversations/" + conversationID + "/rename")
	if err != nil {
		return errors.Wrap(err, "renaming conversation")
	}
	if resp.IsError() {
		return statusError(resp)
	}
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, conversationID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete("/api/conversations/" + conversationID)
	if err != nil {
		return errors.Wrap(err, "deleting conversation")
	}
	if resp.IsError() {
		return statusError(resp)
	}
	return nil
}
