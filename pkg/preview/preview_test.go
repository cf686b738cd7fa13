package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/events"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const response = "MESSAGE: add hero\n---\nOPERATION: add\nPOSITION: end\n---\n<section id=\"hero\"><h1>Hi</h1></section>"

func TestSessionAppend(t *testing.T) {
	s := NewSession(nil)

	_, ok := s.Append("MESSAGE: add hero\n---\nOPERATION: add\n")
	assert.False(t, ok)

	_, ok = s.Append("POSITION: end\n---\n<section id=\"ho")
	assert.False(t, ok, "an unfinished tag is not a preview")

	u, ok := s.Append("ero\"><h1>H")
	require.True(t, ok)
	assert.Equal(t, `<section id="hero"><h1>H`, u.Fragment)
	assert.Equal(t, s.ID, u.Session)

	// nothing new to show
	_, ok = s.Append("")
	assert.False(t, ok)

	_, ok = s.Append("i</h1></section>")
	assert.True(t, ok)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, s.Latest())
	assert.Equal(t, response, s.Text())
}

func TestSessionFinish(t *testing.T) {
	bus := events.NewEventBus()
	ch := bus.Subscribe("t")
	s := NewSession(bus)
	s.Append(response)

	resp, ok := s.Finish()
	require.True(t, ok)
	require.Len(t, resp.Directives, 1)
	assert.Equal(t, directive.Insert, resp.Directives[0].Kind)

	// appends after Finish are ignored
	_, ok = s.Append("<p>late</p>")
	assert.False(t, ok)

	first := <-ch
	assert.Equal(t, events.EventTypePreviewUpdated, first.Type)
	assert.Equal(t, s.ID, first.Session)
	second := <-ch
	assert.Equal(t, events.EventTypeDirectiveParsed, second.Type)
}

func TestSessionFinishUnparseable(t *testing.T) {
	bus := events.NewEventBus()
	ch := bus.Subscribe("t")
	s := NewSession(bus)
	s.Append("Sorry, I cannot do that.")

	_, ok := s.Finish()
	assert.False(t, ok)
	assert.Equal(t, events.EventTypeError, (<-ch).Type)
}

func TestSessionStream(t *testing.T) {
	s := NewSession(nil)
	var updates []Update
	r := iotest.OneByteReader(strings.NewReader(response))

	require.NoError(t, s.Stream(context.Background(), r, func(u Update) { updates = append(updates, u) }))
	require.NotEmpty(t, updates)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, updates[len(updates)-1].Fragment)
	for _, u := range updates {
		assert.True(t, strings.HasPrefix(u.Fragment, "<section"), u.Fragment)
	}
}

func TestSessionStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSession(nil).Stream(ctx, strings.NewReader(response), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServerPreviewRoutes(t *testing.T) {
	srv := NewServer(events.NewEventBus(), nil)
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sess := srv.NewSession()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	sess.Append(response)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/preview/"+sess.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServerWebSocketBroadcast(t *testing.T) {
	bus := events.NewEventBus()
	srv := NewServer(bus, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	sess := srv.NewSession()
	sess.Append(response)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.EventTypePreviewUpdated, ev.Type)
	assert.Equal(t, sess.ID, ev.Session)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, `<section id="hero"><h1>Hi</h1></section>`, data["fragment"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(events.NewEventBus(), nil)

	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ListenAndServe did not return")
	}
}
