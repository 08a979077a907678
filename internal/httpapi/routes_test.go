package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/hub"
	"github.com/DoyleJ11/shapes-interaction/internal/lobby"
	"github.com/DoyleJ11/shapes-interaction/internal/pairing"
	"github.com/DoyleJ11/shapes-interaction/internal/trials"
	"github.com/DoyleJ11/shapes-interaction/internal/ws"
)

func newRouter(t *testing.T) (http.Handler, *lobby.Lobby) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	vocab := trials.Vocabulary{
		Shapes:   []string{"square", "circle", "diamond", "star"},
		Colours:  []string{"red", "yellow", "grey", "pink"},
		Objects:  []string{"volcano", "banana", "city", "pig"},
		Emotions: []string{"angry", "happy", "sad", "inlove"},
	}
	former := pairing.NewFormer(trials.NewGenerator(vocab, trials.Params{Foils: 2, Repeats: 1}), vocab,
		pairing.Config{ShapesPerPair: 4, FixedColours: 4})

	h := hub.NewHub(ctx, zap.NewNop())
	l := lobby.NewLobby(ctx, lobby.Config{Timeout: time.Minute}, former, h)
	return SetupRoutes(l, h, ws.Options{ReadTimeout: time.Second, WriteTimeout: time.Second}, zap.NewNop()), l
}

func TestHealthz(t *testing.T) {
	r, _ := newRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStats(t *testing.T) {
	r, l := newRouter(t)
	l.Inbox() <- lobby.Connect{ConnID: "c1"}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		NumSessions  int            `json:"num_sessions"`
		Unidentified int            `json:"unidentified"`
		Waiting      int            `json:"waiting"`
		Connections  int            `json:"connections"`
		Phases       map[string]int `json:"phases"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.NumSessions)
	assert.Equal(t, 1, body.Unidentified)
	assert.Zero(t, body.Waiting)
	assert.Zero(t, body.Connections)
}

func TestStats_LobbyStopped(t *testing.T) {
	r, l := newRouter(t)
	l.Inbox() <- lobby.Shutdown{}
	<-l.Done()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
