package gateway

import (
	"encoding/json"
	"errors"
	"strings"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"
	storesvc "voxgate/backend/store/service"
)

// SessionManager is the concrete C6+C7: it demultiplexes the mixed
// control/binary frame stream for one connection, enforces the turn
// guards of spec §4.6, and delegates turn-initiating frames to the Turn
// Pipeline (C8).
type SessionManager struct {
	conn        *Connection
	verifier    service.Verifier
	store       SessionStore
	pipeline    *Pipeline
	requireAuth bool
	log         *logger.Logger
}

// NewSessionManager wires a SessionManager around one connection.
func NewSessionManager(conn *Connection, verifier service.Verifier, store SessionStore, pipeline *Pipeline, requireAuth bool, log *logger.Logger) *SessionManager {
	return &SessionManager{
		conn:        conn,
		verifier:    verifier,
		store:       store,
		pipeline:    pipeline,
		requireAuth: requireAuth,
		log:         log,
	}
}

// onControl handles one inbound text frame (spec §4.7).
func (sm *SessionManager) onControl(data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		sm.conn.Enqueue(errorFrame("Invalid JSON message format"))
		return
	}

	switch env.Type {
	case typeAuth:
		sm.handleAuth(env.Token)
	case typeUserInfo:
		sm.conn.SetAnonymousUserID(env.UserID)
	case typeSetChatID:
		sm.conn.SetChatID(env.ChatID)
	case typeStartStream:
		sm.conn.MarkAwaitingAudio()
	case typeEndStream:
		// Advisory only; the turn begins when the binary frame arrives.
	case typeTextMessage:
		sm.beginTextTurn(env.Text)
	case typeClearContext:
		// Deprecated no-op (spec §4.7, §9 Open Question (c)): clients
		// should create a new session via the bootstrap endpoint instead.
	default:
		sm.conn.Enqueue(errorFrame("Unknown control type"))
	}
}

// onBinary handles one inbound binary audio frame (spec §4.7).
func (sm *SessionManager) onBinary(data []byte) {
	chatID, ok := sm.beginTurnGuarded()
	if !ok {
		return
	}
	userID, _ := sm.conn.Identity()
	go func() {
		defer sm.conn.EndTurn()
		sm.pipeline.RunAudioTurn(sm.conn.Context(), userID.UserID, chatID, data, sm.conn)
	}()
}

func (sm *SessionManager) beginTextTurn(text string) {
	if strings.TrimSpace(text) == "" {
		sm.conn.Enqueue(errorFrame("Empty text message"))
		return
	}
	chatID, ok := sm.beginTurnGuarded()
	if !ok {
		return
	}
	userID, _ := sm.conn.Identity()
	go func() {
		defer sm.conn.EndTurn()
		sm.pipeline.RunTextTurn(sm.conn.Context(), userID.UserID, chatID, text, sm.conn)
	}()
}

// beginTurnGuarded applies spec §4.6's three pre-turn guards plus the
// ownership check deferred from `set_chat_id` (spec §4.7: "validated by
// ownership on next persist"). On success it has already transitioned
// the connection into Processing; the caller must call conn.EndTurn()
// when the turn completes.
func (sm *SessionManager) beginTurnGuarded() (chatID string, ok bool) {
	identity, authenticated := sm.conn.Identity()
	if sm.requireAuth && !authenticated {
		sm.conn.Enqueue(errorFrame("Authentication required"))
		return "", false
	}

	chatID = sm.conn.ChatID()
	if chatID == "" {
		sm.conn.Enqueue(errorFrame("No active chat session"))
		return "", false
	}

	if !sm.conn.TryBeginTurn() {
		sm.conn.Enqueue(errorFrame("Busy"))
		return "", false
	}

	if _, err := sm.store.LoadSession(sm.conn.Context(), chatID, identity.UserID); err != nil {
		sm.conn.EndTurn()
		switch {
		case errors.Is(err, storesvc.ErrForbidden):
			sm.conn.Enqueue(errorFrame("forbidden"))
		case errors.Is(err, storesvc.ErrNotFound):
			sm.conn.Enqueue(errorFrame("No active chat session"))
		default:
			sm.conn.Enqueue(errorFrame("service_unavailable"))
		}
		return "", false
	}

	return chatID, true
}

func (sm *SessionManager) handleAuth(token string) {
	id, err := sm.verifier.Verify(sm.conn.Context(), token)
	if err != nil {
		sm.conn.Enqueue(authErrorFrame("invalid token"))
		return
	}
	sm.conn.SetIdentity(id)
	sm.conn.Enqueue(authSuccessFrame(id.UserID))
}

// onClose runs when the connection's read loop exits. Connection.Close
// (deferred by ReadPump alongside this call) already handles cancelling
// any in-flight turn and deregistering from the Registry.
func (sm *SessionManager) onClose() {}
