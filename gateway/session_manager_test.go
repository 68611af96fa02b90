package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"
	"voxgate/backend/query"
	storemodels "voxgate/backend/store/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	identities map[string]service.Identity
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (service.Identity, error) {
	id, ok := f.identities[token]
	if !ok {
		return service.Identity{}, service.ErrInvalidToken
	}
	return id, nil
}

func newTestConnection() *Connection {
	return NewConnection(nil, NewRegistry(), logger.New(logger.DefaultConfig()), 16)
}

func drainFrame(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case f := <-conn.send:
		return f
	case <-time.After(time.Second):
		t.Fatal("expected a frame but none was sent")
		return nil
	}
}

func newTestSessionManager(conn *Connection, verifier service.Verifier, store SessionStore, pipeline *Pipeline, requireAuth bool) *SessionManager {
	return NewSessionManager(conn, verifier, store, pipeline, requireAuth, logger.New(logger.DefaultConfig()))
}

func TestSessionManager_RequiresAuthWhenConfigured(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, nil, nil, store), true)

	conn.SetChatID("S1")
	sm.beginTextTurn("hello")

	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "Authentication required")
}

func TestSessionManager_RequiresActiveChat(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, nil, nil, store), false)

	sm.beginTextTurn("hello")

	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "No active chat session")
}

func TestSessionManager_ForbidsWrongOwner(t *testing.T) {
	conn := newTestConnection()
	conn.SetIdentity(service.Identity{UserID: "intruder", Role: service.RoleUser})
	conn.SetChatID("S1")

	store := newFakeStore()
	store.sessions["S1"] = storemodels.ChatSession{ID: "S1", UserID: "owner"}
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, &fakeResolver{answer: "x"}, &fakeTTS{}, store), false)

	sm.beginTextTurn("hello")

	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "forbidden")
	assert.Empty(t, store.messages)
	// the turn slot must be released after the rejected ownership check
	assert.True(t, conn.TryBeginTurn())
}

func TestSessionManager_BusyRejectsSecondTurn(t *testing.T) {
	conn := newTestConnection()
	conn.SetIdentity(service.Identity{UserID: "u1", Role: service.RoleUser})
	conn.SetChatID("S1")

	store := newFakeStore()
	store.sessions["S1"] = storemodels.ChatSession{ID: "S1", UserID: "u1"}
	blockResolve := make(chan struct{})
	resolver := &blockingResolver{release: blockResolve}
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, resolver, &fakeTTS{}, store), false)

	sm.beginTextTurn("first")
	// give the goroutine a moment to acquire the turn slot and block in Resolve
	time.Sleep(50 * time.Millisecond)

	sm.beginTextTurn("second")
	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "Busy")

	close(blockResolve)
}

type blockingResolver struct {
	release chan struct{}
}

func (b *blockingResolver) Resolve(ctx context.Context, userID, queryText string) (query.Result, error) {
	<-b.release
	return query.Result{}, errors.New("done")
}

func TestSessionManager_UnknownControlType(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, nil, nil, store), false)

	sm.onControl([]byte(`{"type":"frobnicate"}`))
	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "Unknown control type")
}

func TestSessionManager_InvalidJSON(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, nil, nil, store), false)

	sm.onControl([]byte(`not json`))
	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "Invalid JSON message format")
}

func TestSessionManager_AuthControlFrame(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	verifier := &fakeVerifier{identities: map[string]service.Identity{"good-token": {UserID: "u1", Role: service.RoleUser}}}
	sm := newTestSessionManager(conn, verifier, store, newTestPipeline(nil, nil, nil, store), false)

	sm.onControl([]byte(`{"type":"auth","token":"good-token"}`))
	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "auth_success")

	id, authenticated := conn.Identity()
	require.True(t, authenticated)
	assert.Equal(t, "u1", id.UserID)
}

func TestSessionManager_AuthControlFrame_Invalid(t *testing.T) {
	conn := newTestConnection()
	store := newFakeStore()
	sm := newTestSessionManager(conn, &fakeVerifier{}, store, newTestPipeline(nil, nil, nil, store), false)

	sm.onControl([]byte(`{"type":"auth","token":"bad"}`))
	frame := drainFrame(t, conn)
	assert.Contains(t, string(frame), "auth_error")
}
