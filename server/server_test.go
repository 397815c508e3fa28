package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/luckydraw/clock"
	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/metrics"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/ticket"
)

type fixture struct {
	srv  *Server
	http *httptest.Server
	eng  *engine.Engine
	s    *sched.Scheduler
	m    *clock.Mock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	m := clock.NewMock(time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC))
	s := sched.New(m)
	bus := event.NewBus(zerolog.Nop())
	eng := engine.New(engine.WithScheduler(s), engine.WithBus(bus), engine.WithRandom(ticket.NewRandom(7)))

	col := metrics.New(100)
	col.Attach(bus)
	srv := New(cfg, eng, col, zerolog.Nop())
	srv.Attach(bus)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return &fixture{srv: srv, http: hs, eng: eng, s: s, m: m}
}

func unlimited() Config {
	return Config{Rate: 0, Burst: 1}
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(f.http.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// settle runs every pending reveal callback on the loop goroutine
func (f *fixture) settle(t *testing.T) {
	t.Helper()
	require.NoError(t, f.s.Do(context.Background(), func() {
		sched.RunUntilIdle(f.s, f.m, 5*time.Minute)
	}))
}

func decodeState(t *testing.T, resp *http.Response) engine.State {
	t.Helper()
	var st engine.State
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func decodeError(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestConfigureAndState(t *testing.T) {
	f := newFixture(t, unlimited())

	resp := f.post(t, "/api/configure", map[string]any{"tickets": "001-120", "numPrizes": 5, "winnersPerPrize": 2, "order": "asc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeState(t, resp)
	assert.Equal(t, 120, st.Remaining)
	assert.Equal(t, 3, st.MaxDigits)
	assert.Equal(t, "1st Prize", st.NextPrize)

	get, err := http.Get(f.http.URL + "/api/state")
	require.NoError(t, err)
	defer get.Body.Close()
	st = decodeState(t, get)
	assert.Equal(t, "001-120", st.TicketSpec)
	assert.Equal(t, 5, st.Config.NumPrizes)
}

func TestStatusMapping(t *testing.T) {
	f := newFixture(t, unlimited())

	resp := f.post(t, "/api/configure", map[string]any{"tickets": "9-3"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation", decodeError(t, resp).Error)

	resp = f.post(t, "/api/undo", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.post(t, "/api/draw", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "rolling", decodeState(t, resp).PhaseName)

	resp = f.post(t, "/api/draw", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "busy", decodeError(t, resp).Error)

	f.settle(t)
	resp = f.post(t, "/api/undo", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/api/configure", map[string]any{"tickets": "1-2", "numPrizes": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.post(t, "/api/draw", nil)
	f.settle(t)
	resp = f.post(t, "/api/draw", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "prizes_exhausted", decodeError(t, resp).Error)
}

func TestSettingsKeepsOmittedFields(t *testing.T) {
	f := newFixture(t, unlimited())

	resp := f.post(t, "/api/configure", map[string]any{"tickets": "1-40", "numPrizes": 5, "winnersPerPrize": 2, "order": "asc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.post(t, "/api/settings", map[string]any{"winnersPerPrize": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeState(t, resp)
	assert.Equal(t, 5, st.Config.NumPrizes)
	assert.Equal(t, 3, st.Config.WinnersPerPrize)
	assert.Equal(t, prize.Ascending, st.Config.Order)
	assert.Equal(t, "1st Prize", st.NextPrize)

	resp = f.post(t, "/api/settings", map[string]any{"order": "desc"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st = decodeState(t, resp)
	assert.Equal(t, prize.Descending, st.Config.Order)
	assert.Equal(t, 3, st.Config.WinnersPerPrize)

	resp = f.post(t, "/api/settings", map[string]any{"numPrizes": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestConfigureTicketFile(t *testing.T) {
	f := newFixture(t, unlimited())

	resp, err := http.Post(f.http.URL+"/api/configure?numPrizes=2&order=asc", "text/plain; charset=utf-8",
		strings.NewReader("A17\r\nB02\n\n  C300  \nA17\n"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st := decodeState(t, resp)
	assert.Equal(t, 3, st.Initial)
	assert.Equal(t, 4, st.MaxDigits)
	assert.Equal(t, 2, st.Config.NumPrizes)
	assert.Equal(t, prize.Ascending, st.Config.Order)
	assert.Equal(t, "A17, B02, C300, A17", st.TicketSpec)

	bad, err := http.Post(f.http.URL+"/api/configure?numPrizes=two", "text/plain", strings.NewReader("1\n2\n"))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	empty, err := http.Post(f.http.URL+"/api/configure", "text/plain", strings.NewReader("\n \n"))
	require.NoError(t, err)
	defer empty.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, empty.StatusCode)
}

func TestBadBody(t *testing.T) {
	f := newFixture(t, unlimited())
	resp, err := http.Post(f.http.URL+"/api/configure", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture(t, unlimited())
	f.post(t, "/api/configure", map[string]any{"tickets": "1-30", "numPrizes": 3})
	f.post(t, "/api/draw", nil)
	f.settle(t)

	get, err := http.Get(f.http.URL + "/api/snapshot")
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)
	var raw map[string]any
	require.NoError(t, json.NewDecoder(get.Body).Decode(&raw))
	assert.Len(t, raw["remainingTickets"], 29)

	f.post(t, "/api/reset", nil)

	resp := f.post(t, "/api/restore", raw)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := decodeState(t, resp)
	assert.Equal(t, 29, st.Remaining)
	assert.Len(t, st.History, 1)

	raw["remainingTickets"] = []string{"99"}
	resp = f.post(t, "/api/restore", raw)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "snapshot", decodeError(t, resp).Error)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Config{Rate: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, f.post(t, "/api/charge/cancel", nil).StatusCode)
	assert.Equal(t, http.StatusOK, f.post(t, "/api/charge/cancel", nil).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, f.post(t, "/api/charge/cancel", nil).StatusCode)

	// Reads are not limited
	get, err := http.Get(f.http.URL + "/api/state")
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)
}

func TestRateLimiterPrune(t *testing.T) {
	now := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 1, zerolog.Nop())
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(limiterIdle + time.Second)
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 1, rl.Prune())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, unlimited())
	f.post(t, "/api/draw", nil)

	resp, err := http.Get(f.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	assert.Contains(t, buf.String(), `luckydraw_draws_started_total{final="false"} 1`)
}

func TestWebsocketStream(t *testing.T) {
	f := newFixture(t, unlimited())

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.srv.hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	f.post(t, "/api/configure", map[string]any{"tickets": "1-10"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "configured", msg.Type)

	var p event.ConfiguredPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, 10, p.Remaining)
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub(zerolog.Nop())
	slow := &client{addr: "10.0.0.9", send: make(chan []byte, 1)}
	h.clients[slow] = struct{}{}

	ev := event.Event{Type: event.NearMiss, Payload: &event.NearMissPayload{Digits: "47"}}
	h.Broadcast(ev)
	assert.Equal(t, 1, h.Clients())

	h.Broadcast(ev)
	assert.Equal(t, 0, h.Clients())

	msg, ok := <-slow.send
	require.True(t, ok)
	assert.Contains(t, string(msg), `"near_miss"`)
	_, ok = <-slow.send
	assert.False(t, ok, "send channel should be closed")
}
