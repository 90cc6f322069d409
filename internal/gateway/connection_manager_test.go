package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropfour/arena/internal/events"
)

type findMatchCall struct {
	connID string
	req    events.FindMatchRequest
}

type makeMoveCall struct {
	connID string
	req    events.MakeMoveRequest
}

type rejoinCall struct {
	connID string
	req    events.RejoinGameRequest
}

// fakeApp records every call the gateway routes into the game core.
type fakeApp struct {
	mu          sync.Mutex
	findMatches []findMatchCall
	makeMoves   []makeMoveCall
	rejoins     []rejoinCall
	disconnects []string
	err         error
}

func (a *fakeApp) FindMatch(_ context.Context, connID string, req events.FindMatchRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.findMatches = append(a.findMatches, findMatchCall{connID: connID, req: req})
	return a.err
}

func (a *fakeApp) MakeMove(_ context.Context, connID string, req events.MakeMoveRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.makeMoves = append(a.makeMoves, makeMoveCall{connID: connID, req: req})
	return a.err
}

func (a *fakeApp) RejoinGame(_ context.Context, connID string, req events.RejoinGameRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejoins = append(a.rejoins, rejoinCall{connID: connID, req: req})
	return a.err
}

func (a *fakeApp) HandleDisconnect(_ context.Context, connID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disconnects = append(a.disconnects, connID)
	return a.err
}

func (a *fakeApp) calls() (int, int, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.findMatches), len(a.makeMoves), len(a.rejoins), len(a.disconnects)
}

func newTestManager(t *testing.T) (*ConnectionManager, *fakeApp) {
	t.Helper()
	app := &fakeApp{}
	cm := NewConnectionManager(DefaultConnectionConfig())
	cm.SetApp(app)
	return cm, app
}

// addConn registers a bare connection without a socket. Tests exercise
// dispatch and room bookkeeping directly, never the network pumps.
func addConn(cm *ConnectionManager) *Connection {
	conn := &Connection{
		ID:          uuid.New().String(),
		Send:        make(chan []byte, 8),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(conn)
	return conn
}

// pendingError pops the queued outbound event and decodes its error payload.
func pendingError(t *testing.T, cm *ConnectionManager) (string, events.ErrorPayload) {
	t.Helper()
	select {
	case msg := <-cm.broadcastCh:
		require.NotNil(t, msg.Event)
		require.Equal(t, events.EventTypeError, msg.Event.Type)
		var payload events.ErrorPayload
		require.NoError(t, json.Unmarshal(msg.Event.Data, &payload))
		return msg.ConnID, payload
	default:
		t.Fatal("expected a queued error event")
		return "", events.ErrorPayload{}
	}
}

func TestDispatch_RoutesFindMatch(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)

	err := cm.dispatch(context.Background(), "conn-1", []byte(`{"type":"find_match","data":{"username":"alice"}}`))

	assert.NoError(err)
	require.Len(t, app.findMatches, 1)
	assert.Equal("conn-1", app.findMatches[0].connID)
	assert.Equal("alice", app.findMatches[0].req.Username)
}

func TestDispatch_RoutesMakeMove(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)
	gameID := uuid.New().String()

	raw := []byte(`{"type":"make_move","data":{"game_id":"` + gameID + `","column":3}}`)
	err := cm.dispatch(context.Background(), "conn-1", raw)

	assert.NoError(err)
	require.Len(t, app.makeMoves, 1)
	assert.Equal("conn-1", app.makeMoves[0].connID)
	assert.Equal(gameID, app.makeMoves[0].req.GameID)
	assert.Equal(3, app.makeMoves[0].req.Column)
}

func TestDispatch_RoutesRejoinGame(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)
	gameID := uuid.New().String()
	playerID := uuid.New().String()

	raw := []byte(`{"type":"rejoin_game","data":{"game_id":"` + gameID + `","player_id":"` + playerID + `"}}`)
	err := cm.dispatch(context.Background(), "conn-2", raw)

	assert.NoError(err)
	require.Len(t, app.rejoins, 1)
	assert.Equal("conn-2", app.rejoins[0].connID)
	assert.Equal(gameID, app.rejoins[0].req.GameID)
	assert.Equal(playerID, app.rejoins[0].req.PlayerID)
}

func TestDispatch_MalformedFrameNeverReachesApp(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)

	err := cm.dispatch(context.Background(), "conn-1", []byte(`{not json`))

	assert.Error(err)
	connID, payload := pendingError(t, cm)
	assert.Equal("conn-1", connID)
	assert.Equal("malformed command", payload.Message)

	fm, mm, rj, dc := app.calls()
	assert.Zero(fm + mm + rj + dc)
}

func TestDispatch_MalformedPayloadReportsCommandName(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)

	err := cm.dispatch(context.Background(), "conn-1", []byte(`{"type":"make_move","data":"not an object"}`))

	assert.Error(err)
	_, payload := pendingError(t, cm)
	assert.Equal("malformed make_move payload", payload.Message)

	_, mm, _, _ := app.calls()
	assert.Zero(mm)
}

func TestDispatch_UnknownCommandRejected(t *testing.T) {
	assert := assert.New(t)
	cm, app := newTestManager(t)

	err := cm.dispatch(context.Background(), "conn-1", []byte(`{"type":"resign","data":{}}`))

	assert.Error(err)
	_, payload := pendingError(t, cm)
	assert.Contains(payload.Message, "unknown command")

	fm, mm, rj, _ := app.calls()
	assert.Zero(fm + mm + rj)
}

func TestJoinGame_MovesConnectionBetweenRooms(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)
	conn := addConn(cm)
	first := uuid.New()
	second := uuid.New()

	cm.JoinGame(conn.ID, first)
	cm.JoinGame(conn.ID, second)

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	assert.Equal(second, conn.GameID)
	assert.NotContains(cm.gameConnections, first, "old room should be dropped once empty")
	assert.True(cm.gameConnections[second][conn])
}

func TestJoinGame_UnknownConnectionIgnored(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)

	cm.JoinGame("nope", uuid.New())

	assert.Equal(0, len(cm.GetConnectionStats()["game_connections"].(map[string]int)))
}

func TestHandleBroadcast_SingleTargetDelivery(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)
	gameID := uuid.New()
	first := addConn(cm)
	second := addConn(cm)
	cm.JoinGame(first.ID, gameID)
	cm.JoinGame(second.ID, gameID)

	evt, err := events.NewGameEvent(gameID, events.EventTypeWaitingForOpponent, events.WaitingForOpponentPayload{TimeoutMs: 10000})
	require.NoError(t, err)
	cm.handleBroadcast(BroadcastMessage{ConnID: first.ID, Event: evt})

	require.Len(t, first.Send, 1)
	assert.Empty(second.Send)

	var envelope events.GameEvent
	require.NoError(t, json.Unmarshal(<-first.Send, &envelope))
	assert.Equal(events.EventTypeWaitingForOpponent, envelope.Type)
}

func TestHandleBroadcast_ReachesWholeRoom(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)
	gameID := uuid.New()
	first := addConn(cm)
	second := addConn(cm)
	outsider := addConn(cm)
	cm.JoinGame(first.ID, gameID)
	cm.JoinGame(second.ID, gameID)
	cm.JoinGame(outsider.ID, uuid.New())

	evt, err := events.NewGameEvent(gameID, events.EventTypeGameOver, events.GameOverPayload{GameID: gameID.String()})
	require.NoError(t, err)
	cm.handleBroadcast(BroadcastMessage{GameID: gameID, Event: evt})

	assert.Len(first.Send, 1)
	assert.Len(second.Send, 1)
	assert.Empty(outsider.Send)
}

func TestHandleBroadcast_UnknownTargetsAreDropped(t *testing.T) {
	cm, _ := newTestManager(t)

	evt, err := events.NewGameEvent(uuid.New(), events.EventTypeGameOver, events.GameOverPayload{})
	require.NoError(t, err)

	// Neither target exists; both must be silent no-ops.
	cm.handleBroadcast(BroadcastMessage{ConnID: "gone", Event: evt})
	cm.handleBroadcast(BroadcastMessage{GameID: uuid.New(), Event: evt})
}

func TestUnregister_SecondCallReportsAlreadyGone(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)
	gameID := uuid.New()
	conn := addConn(cm)
	cm.JoinGame(conn.ID, gameID)

	assert.True(cm.unregisterConnection(conn))
	assert.False(cm.unregisterConnection(conn), "second unregister must not fire disconnect handling again")

	stats := cm.GetConnectionStats()
	assert.Equal(0, stats["total_connections"])
	assert.Equal(0, stats["active_games"])
}

func TestSendToConn_QueuesSingleTargetMessage(t *testing.T) {
	assert := assert.New(t)
	cm, _ := newTestManager(t)

	evt, err := events.NewGameEvent(uuid.Nil, events.EventTypeError, events.ErrorPayload{Message: "nope"})
	require.NoError(t, err)
	cm.SendToConn("conn-9", evt)

	require.Len(t, cm.broadcastCh, 1)
	msg := <-cm.broadcastCh
	assert.Equal("conn-9", msg.ConnID)
	assert.Equal(uuid.Nil, msg.GameID)
}
