package gateway

import (
	"net/http"
	"time"

	"voxgate/backend/identity/service"
	"voxgate/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Acceptor is the Connection Acceptor (C10): it authenticates the
// WebSocket upgrade request and instantiates a SessionManager per
// connection, grounded on internal/ws/handler.go's ServeWs.
type Acceptor struct {
	verifier      service.Verifier
	store         SessionStore
	pipeline      *Pipeline
	registry      *Registry
	requireAuth   bool
	sendHighWater int
	log           *logger.Logger
	upgrader      websocket.Upgrader
}

// NewAcceptor wires an Acceptor around the gateway's collaborators.
func NewAcceptor(verifier service.Verifier, store SessionStore, pipeline *Pipeline, registry *Registry, requireAuth bool, sendHighWaterMark int, log *logger.Logger) *Acceptor {
	return &Acceptor{
		verifier:      verifier,
		store:         store,
		pipeline:      pipeline,
		registry:      registry,
		requireAuth:   requireAuth,
		sendHighWater: sendHighWaterMark,
		log:           log,
		upgrader: websocket.Upgrader{
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	}
}

// ServeWs upgrades the request at the root path (spec §6) after resolving
// the `token` query parameter through the Token Verifier (C1).
func (a *Acceptor) ServeWs(c *gin.Context) {
	token := c.Query("token")

	var identity service.Identity
	var authenticated bool
	if token != "" {
		id, err := a.verifier.Verify(c.Request.Context(), token)
		if err == nil {
			identity = id
			authenticated = true
		} else if a.requireAuth {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	} else if a.requireAuth {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	connection := NewConnection(conn, a.registry, a.log, a.sendHighWater)
	if authenticated {
		connection.SetIdentity(identity)
	}

	sm := NewSessionManager(connection, a.verifier, a.store, a.pipeline, a.requireAuth, a.log)

	connection.Enqueue(connectionEstablishedFrame("connected", authenticated))

	go connection.WritePump()
	connection.ReadPump(sm)
}

// Health handles GET /api/health with the literal spec'd body (spec §6).
func Health(c *gin.Context) {
	c.String(http.StatusOK, "Healthy")
}
