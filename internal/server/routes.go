package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nsing-labs/ragbridge/internal/db"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/reply"
)

// handleConfig serves the widget bootstrap config. The API key is
// never included; widgets authenticate through the token endpoint.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"apiBase": s.appCfg.APIBase,
		"agentId": s.appCfg.AgentID,
		"model":   s.appCfg.Model,
	})
}

// handleToken hands same-origin widgets a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.tokens.Token(r.Context())
	if err != nil || token == "" {
		writeError(w, http.StatusServiceUnavailable, "Token is not configured on the server.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type chatRequest struct {
	Message   string `json:"message"`
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	SessionID  string                 `json:"session_id"`
	Content    string                 `json:"content"`
	References []reply.Reference      `json:"references"`
	Chunks     map[string]reply.Chunk `json:"chunks"`
	HTML       string                 `json:"html"`
}

// handleChat proxies one prompt to the agent and returns the parsed
// reply plus a rendered HTML fragment.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = strings.TrimSpace(req.Prompt)
	}
	if message == "" {
		writeError(w, http.StatusBadRequest, "Missing message")
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	s.appendTranscript(sessionID, "user", message, nil)

	rep, err := s.source.Send(r.Context(), sessionID, message)
	if err != nil {
		s.writeSourceError(w, err)
		return
	}

	s.appendTranscript(sessionID, "assistant", rep.Content, rep.References)

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:  sessionID,
		Content:    rep.Content,
		References: rep.References,
		Chunks:     rep.Chunks,
		HTML:       s.renderer.Render(rep),
	})
}

// handleHistory returns one session's transcript, or the conversation
// list when no session id is given.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotImplemented, "Transcript storage is not configured.")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID != "" {
		messages, err := s.store.GetSession(sessionID)
		if err != nil {
			log.Printf("server: reading transcript: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load history")
			return
		}
		if len(messages) == 0 {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"messages":   messages,
		})
		return
	}

	conversations, err := s.store.ListSessions()
	if err != nil {
		log.Printf("server: listing conversations: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if conversations == nil {
		conversations = []db.Conversation{}
	}
	writeJSON(w, http.StatusOK, conversations)
}

// appendTranscript stores one message, best effort.
func (s *Server) appendTranscript(sessionID, role, content string, references []reply.Reference) {
	if s.store == nil {
		return
	}
	var refs json.RawMessage
	if len(references) > 0 {
		encoded, err := json.Marshal(references)
		if err == nil {
			refs = encoded
		}
	}
	if err := s.store.AppendMessage(sessionID, role, content, refs); err != nil {
		log.Printf("server: storing transcript: %v", err)
	}
}

// writeSourceError maps agent failures onto gateway status codes.
func (s *Server) writeSourceError(w http.ResponseWriter, err error) {
	var transport *ragflow.TransportError
	if errors.As(err, &transport) {
		if transport.NotFound() {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("server: agent returned %d: %s", transport.StatusCode, transport.Body)
		writeError(w, http.StatusBadGateway, "Assistant request failed")
		return
	}
	var timeout *ragflow.TimeoutError
	if errors.As(err, &timeout) {
		writeError(w, http.StatusGatewayTimeout, "Assistant timed out")
		return
	}
	log.Printf("server: agent request failed: %v", err)
	writeError(w, http.StatusBadGateway, "Assistant request failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
