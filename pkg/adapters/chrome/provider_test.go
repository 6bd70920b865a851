package chrome

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var framePNG = []byte("\x89PNG frame")

// devtools is a minimal DevTools endpoint: it answers every command, creates
// targets and sessions on demand and reports every page as ready.
type devtools struct {
	url string

	mu          sync.Mutex
	connections int
	targets     int
	closed      []string
	expressions []string
	navigations []string
}

func newDevtools(t *testing.T) *devtools {
	d := &devtools{}
	srv := httptest.NewServer(http.HandlerFunc(d.serve))
	t.Cleanup(srv.Close)
	d.url = "ws" + strings.TrimPrefix(srv.URL, "http") + "/devtools/browser/test"
	return d
}

type devtoolsMessage struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    any             `json:"result"`
}

func (d *devtools) serve(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return
	}
	defer conn.Close()

	d.mu.Lock()
	d.connections++
	d.mu.Unlock()

	for {
		data, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			return
		}
		if op != ws.OpText {
			continue
		}
		var msg devtoolsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		out, err := json.Marshal(devtoolsMessage{
			ID:        msg.ID,
			SessionID: msg.SessionID,
			Result:    d.answer(msg),
		})
		if err != nil {
			return
		}
		if err := wsutil.WriteServerText(conn, out); err != nil {
			return
		}
	}
}

func (d *devtools) answer(msg devtoolsMessage) any {
	var params map[string]any
	_ = json.Unmarshal(msg.Params, &params)

	d.mu.Lock()
	defer d.mu.Unlock()

	switch msg.Method {
	case "Target.createTarget":
		d.targets++
		return map[string]any{"targetId": fmt.Sprintf("target-%d", d.targets)}
	case "Target.attachToTarget":
		return map[string]any{"sessionId": fmt.Sprintf("session-%v", params["targetId"])}
	case "Target.closeTarget":
		d.closed = append(d.closed, fmt.Sprint(params["targetId"]))
	case "Page.navigate":
		d.navigations = append(d.navigations, fmt.Sprint(params["url"]))
		return map[string]any{"frameId": "frame", "loaderId": "loader"}
	case "Page.captureScreenshot":
		return map[string]any{"data": base64.StdEncoding.EncodeToString(framePNG)}
	case "Runtime.evaluate":
		expr := fmt.Sprint(params["expression"])
		if expr == "self" {
			return map[string]any{"result": map[string]any{"type": "object", "className": "Window"}}
		}
		d.expressions = append(d.expressions, expr)
		return map[string]any{"result": map[string]any{"type": "boolean", "value": true}}
	}
	return map[string]any{}
}

func (d *devtools) snapshot() (connections int, closed, expressions, navigations []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connections,
		append([]string(nil), d.closed...),
		append([]string(nil), d.expressions...),
		append([]string(nil), d.navigations...)
}

func targetID(s *Session) string {
	return string(chromedp.FromContext(s.ctx).Target.TargetID)
}

func TestProvider_SessionLifecycle(t *testing.T) {
	dt := newDevtools(t)
	p := NewProvider(Config{CDPURL: dt.url, ReadyTimeout: time.Second})
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	comp := domain.Composition{ID: "intro", Width: 320, Height: 180, FPS: 30, DurationInFrames: 10}

	opened, err := p.Open(ctx, comp)
	require.NoError(t, err)
	s := opened.(*Session)

	// Teardown of a wrongly scoped first run would be asynchronous.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, s.ctx.Err(), "tab must outlive Open")
	_, closed, _, _ := dt.snapshot()
	assert.NotContains(t, closed, targetID(s))

	require.NoError(t, s.Navigate(ctx, "http://localhost:3000/index.html"))
	data, err := s.CaptureFrame(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, framePNG, data)

	other, err := p.Open(ctx, comp)
	require.NoError(t, err)
	require.NoError(t, other.Close())

	connections, _, expressions, navigations := dt.snapshot()
	assert.Equal(t, 1, connections, "sessions share one browser connection")
	assert.Equal(t, []string{"http://localhost:3000/index.html"}, navigations)
	assert.Contains(t, expressions, "window.reel_renderReady = false; window.reel_setFrame(3)")

	id := targetID(s)
	require.NoError(t, s.Close())
	assert.Eventually(t, func() bool {
		_, closed, _, _ := dt.snapshot()
		for _, c := range closed {
			if c == id {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProvider_OpenWithCancelledContext(t *testing.T) {
	dt := newDevtools(t)
	p := NewProvider(Config{CDPURL: dt.url, ReadyTimeout: time.Second})
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Open(ctx, domain.Composition{ID: "intro", Width: 320, Height: 180})
	assert.ErrorIs(t, err, context.Canceled)
}
