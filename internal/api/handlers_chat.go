package api

import (
	"encoding/json"
	"net/http"

	"github.com/memorycare/memorycare-backend/internal/api/respond"
	"github.com/memorycare/memorycare-backend/internal/chat"
)

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	svc *chat.Service
	mem Memory
}

func NewChatHandler(svc *chat.Service, mem Memory) *ChatHandler {
	return &ChatHandler{svc: svc, mem: mem}
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Chat POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.UserID == "" || req.Message == "" {
		respond.WriteBadRequest(w, "user_id and message are required")
		return
	}
	res := h.svc.Turn(r.Context(), req.UserID, req.Message)
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"ok":                      true,
		"reply":                   res.Reply,
		"episodic_memories_used":  res.EpisodicMemoriesUsed,
		"profile_facts_available": res.ProfileFactsAvailable,
		"goals":                   res.Goals,
	})
}

type rememberRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// Remember POST /remember stores one episodic memory directly.
func (h *ChatHandler) Remember(w http.ResponseWriter, r *http.Request) {
	var req rememberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.UserID == "" || req.Text == "" {
		respond.WriteBadRequest(w, "user_id and text are required")
		return
	}
	saved := true
	if err := h.mem.Write(r.Context(), req.UserID, req.Text, nil); err != nil {
		saved = false
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "saved": saved})
}
