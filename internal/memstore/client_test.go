package memstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, zerolog.Nop())
}

func respondJSON(t *testing.T, w http.ResponseWriter, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(body))
	require.NoError(t, err)
}

func TestWriteSendsEnvelope(t *testing.T) {
	var got writeRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/memories", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondJSON(t, w, `{"status":"ok"}`)
	})

	err := g.Write(context.Background(), "alice", "went to the park", []string{"activity"})
	require.NoError(t, err)

	require.Equal(t, "alice", got.Session.GroupID)
	require.Equal(t, []string{"memorycare_app"}, got.Session.AgentID)
	require.Equal(t, []string{"alice"}, got.Session.UserID)
	require.Equal(t, "alice", got.Session.SessionID)
	require.Equal(t, "alice", got.Producer)
	require.Equal(t, "alice", got.ProducedFor)
	require.Equal(t, "went to the park", got.EpisodeContent)
	require.Equal(t, "memory_entry", got.EpisodeType)
	require.Equal(t, "alice", got.Metadata["actual_user_id"])
}

func TestWriteNon2xxIsError(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	err := g.Write(context.Background(), "alice", "text", nil)
	require.Error(t, err)
}

func TestSearchNestedSchemaMergesFirstTwoLists(t *testing.T) {
	body := `{"content":{"episodic_memory":[
		[{"content":"first","metadata":{"actual_user_id":"alice"}}],
		[{"content":"second","metadata":{"actual_user_id":"alice"}}],
		[{"content":"ignored third list","metadata":{"actual_user_id":"alice"}}]
	]}}`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, body)
	})

	recs := g.Search(context.Background(), "alice", "anything", 10)
	require.Len(t, recs, 2)
	require.Equal(t, "first", recs[0].Content)
	require.Equal(t, "second", recs[1].Content)
}

func TestSearchFlatSchema(t *testing.T) {
	body := `[
		{"episode_content":"fed the cat","user_metadata":{"actual_user_id":"alice","tags":["pets"]}},
		{"text":"watered plants","metadata":{"actual_user_id":"alice"}}
	]`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, body)
	})

	recs := g.Search(context.Background(), "alice", "chores", 10)
	require.Len(t, recs, 2)
	require.Equal(t, "fed the cat", recs[0].Content)
	require.Equal(t, []string{"pets"}, recs[0].Tags)
	require.Equal(t, "watered plants", recs[1].Content)
}

func TestSearchResultsSchema(t *testing.T) {
	body := `{"results":[{"content":"a walk","metadata":{"actual_user_id":"alice"}}]}`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, body)
	})

	recs := g.Search(context.Background(), "alice", "walk", 10)
	require.Len(t, recs, 1)
	require.Equal(t, "a walk", recs[0].Content)
}

func TestSearchUnrecognizedSchemaIsEmpty(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, `{"weird":{"layout":true}}`)
	})
	recs := g.Search(context.Background(), "alice", "q", 10)
	require.Empty(t, recs)
}

func TestSearchFiltersForeignOwners(t *testing.T) {
	body := `[
		{"content":"mine","metadata":{"actual_user_id":"alice"}},
		{"content":"not mine","metadata":{"actual_user_id":"bob"}},
		{"content":"no owner tag"},
		{"content":"also mine","metadata":{"actual_user_id":"alice"}}
	]`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, body)
	})

	recs := g.Search(context.Background(), "alice", "q", 10)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		require.Equal(t, "alice", rec.OwnerID)
	}
	require.Equal(t, "mine", recs[0].Content)
	require.Equal(t, "also mine", recs[1].Content)
}

func TestSearchTruncatesToTopK(t *testing.T) {
	body := `[
		{"content":"one","metadata":{"actual_user_id":"alice"}},
		{"content":"two","metadata":{"actual_user_id":"alice"}},
		{"content":"three","metadata":{"actual_user_id":"alice"}}
	]`
	var gotLimit int
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotLimit = req.Limit
		respondJSON(t, w, body)
	})

	recs := g.Search(context.Background(), "alice", "q", 2)
	require.Len(t, recs, 2)
	require.Equal(t, 6, gotLimit)
}

func TestSearchTransportFailureIsEmpty(t *testing.T) {
	g := New("http://127.0.0.1:1", zerolog.Nop())
	recs := g.Search(context.Background(), "alice", "q", 5)
	require.Empty(t, recs)
}

func TestSearchProfileAcceptsEitherOwnerField(t *testing.T) {
	body := `{"results":[
		{"content":"likes: gardening","produced_for_id":"alice","metadata":{"key":"likes","value":"gardening","category":"hobby"}},
		{"content":"born: 1950","metadata":{"actual_user_id":"alice","key":"born","value":"1950"}},
		{"content":"foreign: fact","produced_for_id":"bob"}
	]}`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/memories/profile/search", r.URL.Path)
		respondJSON(t, w, body)
	})

	facts := g.SearchProfile(context.Background(), "alice", "")
	require.Len(t, facts, 2)
	require.Equal(t, "likes", facts[0].Key)
	require.Equal(t, "gardening", facts[0].Value)
	require.Equal(t, "hobby", facts[0].Category)
	require.Equal(t, "born: 1950", facts[1].Content)
}

func TestSearchProfileNestedProfileMemorySchema(t *testing.T) {
	body := `{"content":{"profile_memory":[
		[],
		[{"content":"likes: tea","produced_for_id":"alice","metadata":{"key":"likes","value":"tea"}}],
		[""]
	]}}`
	var gotReq searchRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		respondJSON(t, w, body)
	})

	facts := g.SearchProfile(context.Background(), "alice", "")
	require.Len(t, facts, 1)
	require.Equal(t, "likes: tea", facts[0].Content)
	require.Equal(t, "tea", facts[0].Value)

	require.Equal(t, "memorycare_group", gotReq.Session.GroupID)
	require.Equal(t, "profile information", gotReq.Query)
	require.Equal(t, "alice", gotReq.Filter["produced_for_id"])
}

func TestSearchProfilePlainProfileMemoryList(t *testing.T) {
	body := `{"content":{"profile_memory":[
		{"content":"born: 1950","produced_for_id":"alice","metadata":{"key":"born","value":"1950"}}
	]}}`
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, body)
	})

	facts := g.SearchProfile(context.Background(), "alice", "")
	require.Len(t, facts, 1)
	require.Equal(t, "born", facts[0].Key)
}

func TestWriteProfileReportsSuccessFlag(t *testing.T) {
	ok := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/memories/profile", r.URL.Path)
		var req writeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "likes: tea", req.EpisodeContent)
		require.Equal(t, "profile", req.Metadata["type"])
		respondJSON(t, w, `{}`)
	})
	require.True(t, ok.WriteProfile(context.Background(), "alice", "likes", "tea", "preference"))

	bad := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	require.False(t, bad.WriteProfile(context.Background(), "alice", "likes", "tea", "preference"))
}

func TestWriteProfileEnvelopeAndDefaults(t *testing.T) {
	var got writeRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		respondJSON(t, w, `{}`)
	})

	require.True(t, g.WriteProfile(context.Background(), "alice", "likes", "tea", "preference"))
	require.Equal(t, "memorycare_group", got.Session.GroupID)
	require.Equal(t, []string{"alice"}, got.Session.UserID)
	require.Equal(t, "preference", got.EpisodeType)
	require.Equal(t, "preference", got.Metadata["category"])

	require.True(t, g.WriteProfile(context.Background(), "alice", "likes", "tea", ""))
	require.Equal(t, "profile_info", got.EpisodeType)
	require.Equal(t, "personal", got.Metadata["category"])
}

func TestStoreDualWritesEpisodicAndFacts(t *testing.T) {
	var episodic, profile int
	var lastProfile writeRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/memories":
			episodic++
		case "/v1/memories/profile":
			profile++
			require.NoError(t, json.NewDecoder(r.Body).Decode(&lastProfile))
		}
		respondJSON(t, w, `{}`)
	})

	err := g.StoreDual(context.Background(), "alice",
		"alice signed up",
		map[string]string{"full_name": "Alice Smith", "hobbies": "chess", "category": "personal", "empty": ""},
		[]string{"signup"})
	require.NoError(t, err)
	require.Equal(t, 1, episodic)
	require.Equal(t, 2, profile)
	require.Equal(t, "personal", lastProfile.Metadata["category"])
}

func TestStoreDualDefaultsCategory(t *testing.T) {
	var got writeRequest
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/memories/profile" {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		}
		respondJSON(t, w, `{}`)
	})

	err := g.StoreDual(context.Background(), "alice", "note",
		map[string]string{"full_name": "Alice Smith"}, nil)
	require.NoError(t, err)
	require.Equal(t, "personal", got.Metadata["category"])
	require.Equal(t, "personal", got.EpisodeType)
}

func TestHealthPassthrough(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		respondJSON(t, w, `{"status":"healthy","backend":"up"}`)
	})
	raw, err := g.Health(context.Background())
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"healthy","backend":"up"}`, string(raw))
}
