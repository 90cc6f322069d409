package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropfour/arena/internal/engine"
	"github.com/dropfour/arena/internal/models"
)

type fakeGameLister struct {
	games []*models.Game
}

func (f *fakeGameLister) ListActive() []*models.Game { return f.games }
func (f *fakeGameLister) Len() int                   { return len(f.games) }

type fakeLeaderboard struct {
	players   []*models.Player
	err       error
	lastLimit int
}

func (f *fakeLeaderboard) TopPlayers(_ context.Context, limit int) ([]*models.Player, error) {
	f.lastLimit = limit
	return f.players, f.err
}

type fakeRecent struct {
	records   []*models.GameRecord
	err       error
	lastLimit int
}

func (f *fakeRecent) RecentGames(_ context.Context, limit int) ([]*models.GameRecord, error) {
	f.lastLimit = limit
	return f.records, f.err
}

func newTestStateServer(games *fakeGameLister, lb *fakeLeaderboard, recent *fakeRecent) *httptest.Server {
	mux := http.NewServeMux()
	NewStateHandler(games, lb, recent).RegisterStateRoutes(mux)
	return httptest.NewServer(mux)
}

func liveGame(p1, p2 string, vsBot bool, createdAt time.Time) *models.Game {
	g := &models.Game{
		ID:          uuid.New(),
		Status:      models.GameStatusInProgress,
		Player1:     &models.Participant{ID: uuid.New(), Username: p1, Disc: engine.DiscOne},
		Player2:     &models.Participant{ID: uuid.New(), Username: p2, Disc: engine.DiscTwo, IsBot: vsBot},
		CurrentTurn: engine.DiscOne,
		CreatedAt:   createdAt,
	}
	return g
}

func TestActiveGames_SortedNewestFirst(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	lister := &fakeGameLister{games: []*models.Game{
		liveGame("alice", "bob", false, now.Add(-2*time.Minute)),
		liveGame("carol", "Clank", true, now),
		liveGame("dave", "erin", false, now.Add(-1*time.Minute)),
	}}
	srv := newTestStateServer(lister, &fakeLeaderboard{}, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/games/active")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal("application/json", resp.Header.Get("Content-Type"))

	var body ActiveGamesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(3, body.Count)
	require.Len(t, body.Games, 3)
	assert.Equal("carol", body.Games[0].Player1)
	assert.True(body.Games[0].VsBot)
	assert.Equal("dave", body.Games[1].Player1)
	assert.Equal("alice", body.Games[2].Player1)
	assert.False(body.Games[2].VsBot)
	assert.Equal("IN_PROGRESS", body.Games[0].Status)
	assert.Equal("ONE", body.Games[0].CurrentTurn)
}

func TestActiveGames_WaitingSessionHasNoSecondSeat(t *testing.T) {
	assert := assert.New(t)
	waiting := &models.Game{
		ID:          uuid.New(),
		Status:      models.GameStatusWaiting,
		Player1:     &models.Participant{ID: uuid.New(), Username: "alice", Disc: engine.DiscOne},
		CurrentTurn: engine.DiscOne,
		CreatedAt:   time.Now(),
	}
	srv := newTestStateServer(&fakeGameLister{games: []*models.Game{waiting}}, &fakeLeaderboard{}, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/games/active")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body ActiveGamesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Games, 1)
	assert.Equal("WAITING", body.Games[0].Status)
	assert.Empty(body.Games[0].Player2)
	assert.False(body.Games[0].VsBot)
}

func TestActiveGames_MethodNotAllowed(t *testing.T) {
	srv := newTestStateServer(&fakeGameLister{}, &fakeLeaderboard{}, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/games/active", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestLeaderboard_PassesLimitThrough(t *testing.T) {
	assert := assert.New(t)
	lb := &fakeLeaderboard{players: []*models.Player{
		{ID: uuid.New(), Username: "alice", Wins: 12, Losses: 3, Draws: 1},
		{ID: uuid.New(), Username: "bob", Wins: 7, Losses: 8},
	}}
	srv := newTestStateServer(&fakeGameLister{}, lb, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/leaderboard?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body LeaderboardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(5, lb.lastLimit)
	require.Len(t, body.Players, 2)
	assert.Equal("alice", body.Players[0].Username)
	assert.Equal(12, body.Players[0].Wins)
}

func TestLeaderboard_BadLimitFallsBackToDefault(t *testing.T) {
	lb := &fakeLeaderboard{}
	srv := newTestStateServer(&fakeGameLister{}, lb, &fakeRecent{})
	defer srv.Close()

	for _, q := range []string{"", "?limit=abc", "?limit=-4"} {
		resp, err := http.Get(srv.URL + "/api/leaderboard" + q)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, 0, lb.lastLimit, "query %q should defer to provider default", q)
	}
}

func TestLeaderboard_ProviderFailure(t *testing.T) {
	lb := &fakeLeaderboard{err: errors.New("pool exhausted")}
	srv := newTestStateServer(&fakeGameLister{}, lb, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestLeaderboard_EmptyEncodesAsArray(t *testing.T) {
	srv := newTestStateServer(&fakeGameLister{}, &fakeLeaderboard{}, &fakeRecent{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body LeaderboardResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotNil(t, body.Players, "empty leaderboard must encode as [] not null")
}

func TestRecentGames_ReturnsRecords(t *testing.T) {
	assert := assert.New(t)
	winner := uuid.New()
	recent := &fakeRecent{records: []*models.GameRecord{{
		ID:          uuid.New(),
		Player1ID:   winner,
		Player1Name: "alice",
		Player2Name: "Clank",
		VsBot:       true,
		Outcome:     models.OutcomeWin,
		WinnerID:    &winner,
		Moves:       9,
		DurationMs:  41500,
		EndedAt:     time.Now(),
	}}}
	srv := newTestStateServer(&fakeGameLister{}, &fakeLeaderboard{}, recent)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/games/recent?limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RecentGamesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(1, recent.lastLimit)
	require.Len(t, body.Games, 1)
	assert.Equal(models.OutcomeWin, body.Games[0].Outcome)
	assert.Equal("alice", body.Games[0].Player1Name)
	assert.True(body.Games[0].VsBot)
}

func TestRecentGames_ProviderFailure(t *testing.T) {
	recent := &fakeRecent{err: errors.New("connection refused")}
	srv := newTestStateServer(&fakeGameLister{}, &fakeLeaderboard{}, recent)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/games/recent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
