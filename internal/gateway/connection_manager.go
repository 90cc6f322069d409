package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dropfour/arena/internal/events"
)

// App defines what the gateway needs from the game core. Handlers send
// their own gameplay error notifications; the returned error is only
// logged here.
type App interface {
	FindMatch(ctx context.Context, connID string, req events.FindMatchRequest) error
	MakeMove(ctx context.Context, connID string, req events.MakeMoveRequest) error
	RejoinGame(ctx context.Context, connID string, req events.RejoinGameRequest) error
	HandleDisconnect(ctx context.Context, connID string) error
}

// ConnectionManager manages WebSocket connections and their game rooms.
// Clients connect anonymously; a connection enters a game room once
// matchmaking or a rejoin binds it to a session.
type ConnectionManager struct {
	// Connection pools organized by game ID
	gameConnections map[uuid.UUID]map[*Connection]bool
	connsByID       map[string]*Connection
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Event delivery
	broadcastCh chan BroadcastMessage

	app App
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	GameID  uuid.UUID // uuid.Nil until the connection joins a game
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message routed to connections. ConnID
// set targets a single connection; otherwise every connection in the
// game's room receives it.
type BroadcastMessage struct {
	GameID uuid.UUID
	ConnID string
	Event  *events.GameEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024, // commands are tiny
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
// Bind the game core with SetApp before serving traffic.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	cm := &ConnectionManager{
		gameConnections: make(map[uuid.UUID]map[*Connection]bool),
		connsByID:       make(map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000), // Buffer for high throughput
	}

	return cm
}

// SetApp binds the inbound command handler. The game core holds the
// manager as its notifier, so the two are wired in separate steps.
// Must be called before the HTTP server accepts connections.
func (cm *ConnectionManager) SetApp(app App) {
	cm.app = app
}

// Start begins processing outbound messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	// Create connection object
	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	// Register the connection
	cm.registerConnection(connection)

	// Start connection handlers
	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connsByID[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connsByID)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager. Returns
// false when the connection was already gone, so the disconnect
// handler runs exactly once per connection.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()

	if _, exists := cm.connsByID[conn.ID]; !exists {
		cm.mu.Unlock()
		return false
	}
	delete(cm.connsByID, conn.ID)

	if room, exists := cm.gameConnections[conn.GameID]; exists {
		delete(room, conn)

		// Clean up empty game connection pools
		if len(room) == 0 {
			delete(cm.gameConnections, conn.GameID)
		}
	}
	close(conn.Send)
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", conn.ID).
		Msg("connection unregistered")
	return true
}

// JoinGame places the connection in a game's room so broadcasts for
// that game reach it. A connection belongs to at most one room.
func (cm *ConnectionManager) JoinGame(connID string, gameID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, ok := cm.connsByID[connID]
	if !ok {
		log.Warn().Str("connection_id", connID).Msg("join for unknown connection")
		return
	}

	if conn.GameID != uuid.Nil {
		if room, exists := cm.gameConnections[conn.GameID]; exists {
			delete(room, conn)
			if len(room) == 0 {
				delete(cm.gameConnections, conn.GameID)
			}
		}
	}

	conn.GameID = gameID
	if cm.gameConnections[gameID] == nil {
		cm.gameConnections[gameID] = make(map[*Connection]bool)
	}
	cm.gameConnections[gameID][conn] = true

	log.Debug().
		Str("connection_id", connID).
		Str("game_id", gameID.String()).
		Int("room_size", len(cm.gameConnections[gameID])).
		Msg("connection joined game room")
}

// BroadcastToGame sends an event to all connections in a game's room
func (cm *ConnectionManager) BroadcastToGame(gameID uuid.UUID, event *events.GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{GameID: gameID, Event: event}:
	default:
		log.Warn().Str("game_id", gameID.String()).Msg("broadcast channel full, dropping message")
	}
}

// SendToConn sends an event to a single connection, joined to a game
// room or not.
func (cm *ConnectionManager) SendToConn(connID string, event *events.GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{ConnID: connID, Event: event}:
	default:
		log.Warn().Str("connection_id", connID).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast processes one outbound message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	var targets []*Connection

	cm.mu.RLock()
	if message.ConnID != "" {
		if conn, ok := cm.connsByID[message.ConnID]; ok {
			targets = append(targets, conn)
		}
	} else if room, exists := cm.gameConnections[message.GameID]; exists {
		for conn := range room {
			targets = append(targets, conn)
		}
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	// Marshal the event once
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- eventData:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			if cm.unregisterConnection(conn) {
				go cm.notifyDisconnect(conn.ID)
			}
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Int("connections", len(targets)).
		Msg("event delivered")
}

// dispatch routes one inbound client frame to the game core.
func (cm *ConnectionManager) dispatch(ctx context.Context, connID string, raw []byte) error {
	var cmd events.ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		cm.sendCommandError(connID, "malformed command")
		return fmt.Errorf("parse command: %w", err)
	}

	switch cmd.Type {
	case events.CommandFindMatch:
		var req events.FindMatchRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			cm.sendCommandError(connID, "malformed find_match payload")
			return fmt.Errorf("parse find_match: %w", err)
		}
		return cm.app.FindMatch(ctx, connID, req)

	case events.CommandMakeMove:
		var req events.MakeMoveRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			cm.sendCommandError(connID, "malformed make_move payload")
			return fmt.Errorf("parse make_move: %w", err)
		}
		return cm.app.MakeMove(ctx, connID, req)

	case events.CommandRejoinGame:
		var req events.RejoinGameRequest
		if err := json.Unmarshal(cmd.Data, &req); err != nil {
			cm.sendCommandError(connID, "malformed rejoin_game payload")
			return fmt.Errorf("parse rejoin_game: %w", err)
		}
		return cm.app.RejoinGame(ctx, connID, req)

	default:
		cm.sendCommandError(connID, fmt.Sprintf("unknown command %q", cmd.Type))
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

// sendCommandError reports a malformed frame back to its sender.
func (cm *ConnectionManager) sendCommandError(connID string, message string) {
	evt, err := events.NewGameEvent(uuid.Nil, events.EventTypeError, events.ErrorPayload{Message: message})
	if err != nil {
		log.Error().Err(err).Msg("failed to build command error")
		return
	}
	cm.SendToConn(connID, evt)
}

// notifyDisconnect tells the game core a connection is gone.
func (cm *ConnectionManager) notifyDisconnect(connID string) {
	if err := cm.app.HandleDisconnect(context.Background(), connID); err != nil {
		log.Error().Err(err).Str("connection_id", connID).Msg("disconnect handling failed")
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	gameCounts := make(map[string]int)
	for gameID, room := range cm.gameConnections {
		gameCounts[gameID.String()] = len(room)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connsByID),
		"active_games":      len(cm.gameConnections),
		"game_connections":  gameCounts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		if c.Manager.unregisterConnection(c) {
			c.Manager.notifyDisconnect(c.ID)
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		if c.Manager.unregisterConnection(c) {
			c.Manager.notifyDisconnect(c.ID)
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if err := c.Manager.dispatch(context.Background(), c.ID, message); err != nil {
			// The command handler already notified the client.
			log.Debug().
				Err(err).
				Str("connection_id", c.ID).
				Msg("client command rejected")
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
