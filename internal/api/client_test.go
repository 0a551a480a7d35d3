package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(Options{
		BaseURL: server.URL,
		Token:   "test-token",
		Logger:  zerolog.Nop(),
	})
}

func TestListConversationsFlatShape(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/list", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("user_id"))
		fmt.Fprint(w, `[
			{"id": "c1", "title": "Quantum", "created_at": "2026-08-30T10:00:00Z"},
			{"id": "c2", "topic_title": "Fusion", "created_at": "2026-08-29T10:00:00Z"},
			{"id": "c3", "created_at": "2026-08-28T10:00:00Z"}
		]`)
	}))

	conversations, err := client.ListConversations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 3)
	assert.Equal(t, "Quantum", conversations[0].Title)
	assert.Equal(t, "Fusion", conversations[1].Title)
	assert.Equal(t, "Untitled", conversations[2].Title)
	// The user id is filled in from the request when absent on the wire.
	assert.Equal(t, "alice", conversations[0].UserID)
}

func TestListConversationsGroupedShape(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"previous_7_days": [{"id": "c3", "title": "Older work"}],
			"today": [{"id": "c1", "title": "Fresh"}, {"id": "c3", "title": "Duplicate"}],
			"yesterday": [{"id": "c2", "topic_title": "Yesterday's"}],
			"someday": [{"id": "c4", "title": "Unknown bucket"}]
		}`)
	}))

	conversations, err := client.ListConversations(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, conversations, 4)
	// Buckets flatten in recency order, duplicates keep their first sighting.
	assert.Equal(t, "c1", conversations[0].ID)
	assert.Equal(t, "Duplicate", conversations[1].Title)
	assert.Equal(t, "c2", conversations[2].ID)
	assert.Equal(t, "c4", conversations[3].ID)
}

func TestGetConversationPaginatesAndMapsRoles(t *testing.T) {
	pages := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/c1", r.URL.Path)
		offset := r.URL.Query().Get("offset")
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		pages++
		if offset == "0" {
			fmt.Fprint(w, `{
				"conversation": {"id": "c1", "topic_title": "Quantum"},
				"messages": [
					{"id": "m1", "role": "user", "content": "hello"},
					{"id": "m2", "role": "agent", "content": "hi"}
				]
			}`)
			return
		}
		assert.Equal(t, "2", offset)
		fmt.Fprint(w, `{
			"conversation": {"id": "c1"},
			"messages": [{"id": "m3", "role": "agent", "content": "done"}]
		}`)
	}))

	conversation, messages, err := client.GetConversation(context.Background(), "c1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Equal(t, "Quantum", conversation.Title)
	require.Len(t, messages, 3)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, RoleAssistant, messages[2].Role)
	assert.Equal(t, "c1", messages[2].ConversationID)
}

func TestGetConversationStopsWhenOffsetIgnored(t *testing.T) {
	// A backend that serves the same full page regardless of offset.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"conversation": {"id": "c1"},
			"messages": [
				{"id": "m1", "role": "user", "content": "hello"},
				{"id": "m2", "role": "agent", "content": "hi"}
			]
		}`)
	}))

	_, _, err := client.GetConversation(context.Background(), "c1", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated a page")
}

func TestSendMessageWritesAgentRole(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/conversations/c1/message", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"message_id": "m9"}`)
	}))

	id, err := client.SendMessage(context.Background(), "c1", RoleAssistant, "answer", &MessageMeta{
		Results: []ResearchItem{{Title: "Paper"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "m9", id)
	assert.Equal(t, "agent", body["role"])
	assert.Equal(t, "answer", body["content"])
	assert.NotNil(t, body["meta"])
}

func TestCreateConversation(t *testing.T) {
	var body map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/conversations/start", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		fmt.Fprint(w, `{"conversation_id": "c42"}`)
	}))

	id, err := client.CreateConversation(context.Background(), "alice", "A topic")
	require.NoError(t, err)
	assert.Equal(t, "c42", id)
	assert.Equal(t, "alice", body["user_id"])
	assert.Equal(t, "A topic", body["topic_title"])
}

func TestRenameAndDelete(t *testing.T) {
	var renameBody map[string]string
	deleted := false
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/conversations/c1/rename":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&renameBody))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/conversations/c1":
			deleted = true
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{}`)
	}))

	require.NoError(t, client.RenameConversation(context.Background(), "c1", "New title"))
	assert.Equal(t, "New title", renameBody["new_title"])
	require.NoError(t, client.DeleteConversation(context.Background(), "c1"))
	assert.True(t, deleted)
}

func TestResearchQueryParams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/pipeline/research", r.URL.Path)
		assert.Equal(t, "dark matter", r.URL.Query().Get("topic"))
		assert.Equal(t, "alice", r.URL.Query().Get("user_id"))
		assert.Equal(t, "true", r.URL.Query().Get("deep"))
		fmt.Fprint(w, `{
			"results": [{"title": "Paper", "url": "https://example.com"}],
			"knowledge_graph": {"nodes": [{"data": {"id": "n1", "label": "Dark matter"}}], "edges": []}
		}`)
	}))

	result, err := client.Research(context.Background(), "dark matter", "alice", true)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	require.NotNil(t, result.KnowledgeGraph)
	assert.Len(t, result.KnowledgeGraph.Nodes, 1)
}

func TestStatusErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"message": "pipeline offline"}`)
	}))

	_, err := client.ListConversations(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline offline")
	assert.Contains(t, err.Error(), "502")
}

func TestKnowledgeGraphRejectsMissingCollections(t *testing.T) {
	var g KnowledgeGraph
	require.NoError(t, json.Unmarshal([]byte(`{"nodes": [{"data": {"id": "n1"}}]}`), &g))
	assert.Nil(t, g.Edges)

	require.NoError(t, json.Unmarshal([]byte(`{"nodes": [], "edges": []}`), &g))
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
}
