package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/chessofcards/engine"
	"github.com/jason-s-yu/chessofcards/internal/auth"
	"github.com/jason-s-yu/chessofcards/internal/lobby"
	"github.com/jason-s-yu/chessofcards/internal/match"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, opts Options) (*Server, *lobby.Lobby, *httptest.Server) {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	lb := lobby.New(lobby.Config{
		Match: match.Config{DisconnectGrace: time.Minute, Logger: log},
		Seed:  func() uint64 { return 42 },
	})
	if opts.PublicURL == "" {
		opts.PublicURL = "http://play.test"
	}
	s := New(lb, auth.NewSeats([]byte("test-secret"), time.Hour), opts, log)
	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		lb.Shutdown(ctx)
	})
	return s, lb, ts
}

func TestHealthz(t *testing.T) {
	_, _, ts := setupServer(t, Options{})

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestQRCode(t *testing.T) {
	_, lb, ts := setupServer(t, Options{})
	pg, err := lb.Create("host", "Hana", engine.ThreeMinutes)
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/games/" + strings.ToLower(pg.Code) + "/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))

	missing, err := http.Get(ts.URL + "/games/ZZZZ/qr.png")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestCORS(t *testing.T) {
	_, _, ts := setupServer(t, Options{AllowedOrigins: []string{"https://app.example"}})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://app.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://app.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginPatterns(t *testing.T) {
	s := &Server{opts: Options{AllowedOrigins: []string{"https://app.example", "localhost:3000"}}}
	assert.Equal(t, []string{"app.example", "localhost:3000"}, s.originPatterns())
	assert.Equal(t, []string{"*"}, (&Server{}).originPatterns())
}

// serverMsg decodes the parts of server events the tests look at.
type serverMsg struct {
	Type    string   `json:"type"`
	Code    string   `json:"code"`
	Token   string   `json:"token"`
	Side    string   `json:"side"`
	Message string   `json:"message"`
	Results []string `json:"results"`
	State   *struct {
		IsHost            bool `json:"isHost"`
		IsHostPlayersTurn bool `json:"isHostPlayersTurn"`
		CandidateMoves    []struct {
			Placements []wirePlacement `json:"placements"`
			IsValid    bool            `json:"isValid"`
		} `json:"candidateMoves"`
	} `json:"state"`
}

// clientReadLimit fits a full game_state view; the library default of 32 KiB
// does not.
const clientReadLimit = 1 << 20

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	conn.SetReadLimit(clientReadLimit)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, action string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, Envelope{Action: action, Data: raw}))
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) serverMsg {
	t.Helper()
	for {
		var msg serverMsg
		require.NoError(t, wsjson.Read(ctx, conn, &msg), "waiting for %s", typ)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestCreateJoinAndMoveOverWebSocket(t *testing.T) {
	_, _, ts := setupServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, ts)
	send(t, ctx, host, "create_game", createGameData{HostName: "Hana", Duration: engine.OneMinute})
	created := readUntil(t, ctx, host, string(EventGameCreated))
	require.Len(t, created.Code, lobby.CodeLength)
	hostSeat := readUntil(t, ctx, host, string(EventSeatToken))
	assert.Equal(t, "host", hostSeat.Side)
	assert.NotEmpty(t, hostSeat.Token)

	guest := dial(t, ctx, ts)
	send(t, ctx, guest, "join_game", joinGameData{Code: created.Code, Name: "Gus"})

	opening := readUntil(t, ctx, host, string(match.EventGameState))
	require.NotNil(t, opening.State)
	assert.True(t, opening.State.IsHost)
	assert.True(t, opening.State.IsHostPlayersTurn)

	guestOpening := readUntil(t, ctx, guest, string(match.EventGameState))
	assert.False(t, guestOpening.State.IsHost)
	guestSeat := readUntil(t, ctx, guest, string(EventSeatToken))
	assert.Equal(t, "guest", guestSeat.Side)

	// Guest acting out of turn is rejected.
	send(t, ctx, guest, "pass_move", nil)
	rejected := readUntil(t, ctx, guest, string(match.EventActionRejected))
	assert.Equal(t, []string{"NotPlayersTurn"}, rejected.Results)

	var placements []wirePlacement
	for _, c := range opening.State.CandidateMoves {
		if c.IsValid {
			placements = c.Placements
			break
		}
	}
	require.NotEmpty(t, placements)
	send(t, ctx, host, "make_move", makeMoveData{Placements: placements})

	after := readUntil(t, ctx, guest, string(match.EventGameState))
	assert.False(t, after.State.IsHostPlayersTurn)
	assert.NotEmpty(t, after.State.CandidateMoves)
}

func TestReconnectWithSeatToken(t *testing.T) {
	_, _, ts := setupServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, ts)
	send(t, ctx, host, "create_game", createGameData{HostName: "Hana"})
	created := readUntil(t, ctx, host, string(EventGameCreated))
	token := readUntil(t, ctx, host, string(EventSeatToken)).Token

	guest := dial(t, ctx, ts)
	send(t, ctx, guest, "join_game", joinGameData{Code: created.Code, Name: "Gus"})
	readUntil(t, ctx, guest, string(match.EventGameState))

	host.Close(websocket.StatusNormalClosure, "")
	left := readUntil(t, ctx, guest, string(match.EventOpponentDisconnected))
	assert.Equal(t, "host", left.Side)

	back := dial(t, ctx, ts)
	send(t, ctx, back, "reconnect", reconnectData{Token: token})
	state := readUntil(t, ctx, back, string(match.EventGameState))
	assert.True(t, state.State.IsHost)
	readUntil(t, ctx, guest, string(match.EventOpponentReconnected))
}

func TestErrors(t *testing.T) {
	_, _, ts := setupServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, ts)

	send(t, ctx, conn, "resign", nil)
	msg := readUntil(t, ctx, conn, string(EventError))
	assert.Equal(t, errNotSeated.Error(), msg.Message)

	send(t, ctx, conn, "join_game", joinGameData{Code: "ZZZZ"})
	msg = readUntil(t, ctx, conn, string(EventError))
	assert.Contains(t, msg.Message, "not found")

	send(t, ctx, conn, "reconnect", reconnectData{Token: "garbage"})
	msg = readUntil(t, ctx, conn, string(EventError))
	assert.Contains(t, msg.Message, "invalid seat token")

	send(t, ctx, conn, "dance", nil)
	msg = readUntil(t, ctx, conn, string(EventError))
	assert.Equal(t, "unknown action", msg.Message)
}

func TestDeletePendingGame(t *testing.T) {
	_, lb, ts := setupServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, ts)
	send(t, ctx, host, "create_game", createGameData{HostName: "Hana"})
	created := readUntil(t, ctx, host, string(EventGameCreated))
	require.True(t, lb.Exists(created.Code))

	send(t, ctx, host, "delete_pending_game", nil)
	deleted := readUntil(t, ctx, host, string(EventPendingGameDeleted))
	assert.Equal(t, created.Code, deleted.Code)
	assert.False(t, lb.Exists(created.Code))

	send(t, ctx, host, "delete_pending_game", nil)
	msg := readUntil(t, ctx, host, string(EventError))
	assert.Equal(t, errNotHosting.Error(), msg.Message)

	guest := dial(t, ctx, ts)
	send(t, ctx, guest, "join_game", joinGameData{Code: created.Code, Name: "Gus"})
	msg = readUntil(t, ctx, guest, string(EventError))
	assert.Contains(t, msg.Message, "not found")
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	_, _, ts := setupServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, ts)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"action": "create_game",`)))
	msg := readUntil(t, ctx, conn, string(EventError))
	assert.Equal(t, errMalformed.Error(), msg.Message)

	send(t, ctx, conn, "create_game", createGameData{HostName: "Hana"})
	created := readUntil(t, ctx, conn, string(EventGameCreated))
	assert.Len(t, created.Code, lobby.CodeLength)
}

func TestClientLoggerFollowsSeat(t *testing.T) {
	_, lb, _ := setupServer(t, Options{})
	pg, err := lb.Create("h", "Hana", engine.ThreeMinutes)
	require.NoError(t, err)
	m, err := lb.Join(pg.Code, "g", "Gus")
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(io.Discard)
	c := &client{id: "c1", out: make(chan any, 1), log: logrus.NewEntry(l).WithField("conn_id", "c1")}
	assert.NotContains(t, c.logger().Data, "game_code")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 100 {
			c.bind(m, engine.Host)
			c.unbind()
		}
	}()
	for range 100 {
		c.logger().Debug("tick")
	}
	<-done

	c.bind(m, engine.Guest)
	fields := c.logger().Data
	assert.Equal(t, m.Code, fields["game_code"])
	assert.Equal(t, engine.Guest, fields["side"])
	assert.Equal(t, "c1", fields["conn_id"])
	assert.Equal(t, "c1", c.log.Data["conn_id"])
	assert.NotContains(t, c.log.Data, "game_code")
}
