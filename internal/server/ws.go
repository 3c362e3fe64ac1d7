package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nsing-labs/ragbridge/internal/reply"
)

// wsRequest is the incoming WebSocket message format.
type wsRequest struct {
	Type      string `json:"type"`       // "message"
	SessionID string `json:"session_id"` // empty for new sessions
	Content   string `json:"content"`
}

// wsResponse is the outgoing WebSocket message format.
type wsResponse struct {
	Type       string                 `json:"type"` // "response" or "error"
	SessionID  string                 `json:"session_id"`
	Content    string                 `json:"content,omitempty"`
	References []reply.Reference      `json:"references,omitempty"`
	Chunks     map[string]reply.Chunk `json:"chunks,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

// checkOrigin enforces the allow-list on the handshake. There is no
// wildcard fallback: an unlisted origin is refused unless the dev
// allow-all flag is set.
func (s *Server) checkOrigin(r *http.Request) bool {
	if s.cfg.AllowAll {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("server: websocket read: %v", err)
			}
			return
		}

		var req wsRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendWSError(conn, "", "invalid message format")
			continue
		}
		if req.Type != "message" {
			s.sendWSError(conn, req.SessionID, "unknown message type: "+req.Type)
			continue
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			s.sendWSError(conn, req.SessionID, "content is required")
			continue
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		s.appendTranscript(sessionID, "user", content, nil)

		rep, err := s.source.Send(r.Context(), sessionID, content)
		if err != nil {
			log.Printf("server: websocket chat: %v", err)
			s.sendWSError(conn, sessionID, "assistant request failed")
			continue
		}

		s.appendTranscript(sessionID, "assistant", rep.Content, rep.References)

		if err := conn.WriteJSON(wsResponse{
			Type:       "response",
			SessionID:  sessionID,
			Content:    rep.Content,
			References: rep.References,
			Chunks:     rep.Chunks,
		}); err != nil {
			log.Printf("server: websocket write: %v", err)
			return
		}
	}
}

func (s *Server) sendWSError(conn *websocket.Conn, sessionID, message string) {
	if err := conn.WriteJSON(wsResponse{Type: "error", SessionID: sessionID, Error: message}); err != nil {
		log.Printf("server: websocket write: %v", err)
	}
}
