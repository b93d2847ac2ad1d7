package navserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/nav3d/internal/collision"
	"github.com/udisondev/nav3d/internal/nav"
)

func pillarSource() ObstacleSource {
	return ObstacleSourceFunc(func(context.Context, string) ([]collision.Obstacle, error) {
		return collision.ParseLayout([]byte(testLayout))
	})
}

// startServer runs a registry of one 3x3x1 volume "main" behind an httptest
// server, with completions delivered through a mailbox owner goroutine.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()

	mb := nav.NewMailbox()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = mb.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	volumes, err := BuildVolumes(context.Background(), smallConfig("main"), pillarSource(), mb)
	require.NoError(t, err)
	reg := NewRegistry(volumes...)
	t.Cleanup(reg.Close)

	srv := httptest.NewServer(NewServer(reg, Options{WriteTimeout: time.Second, SendQueueSize: 8}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, request string) map[string]any {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(request)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, json.Unmarshal(payload, &reply))
	return reply
}

func TestFindPathOverWebsocket(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv)

	reply := roundTrip(t, conn,
		`{"type":"find_path","seq":7,"volume":"main","requester":"pawn","start":[50,50,50],"end":[250,50,50]}`)

	assert.Equal(t, "path", reply["type"])
	assert.Equal(t, 7.0, reply["seq"])
	assert.Equal(t, "Success", reply["result"])
	assert.Equal(t, false, reply["long"])
	assert.Equal(t, []any{
		[]any{50.0, 50.0, 50.0},
		[]any{150.0, 150.0, 50.0},
		[]any{250.0, 50.0, 50.0},
	}, reply["points"], "routes diagonally around the pillar")
}

func TestFindPathToSelfOverWebsocket(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv)

	reply := roundTrip(t, conn,
		`{"type":"find_path","seq":1,"volume":"main","start":[10,10,10],"end":[90,90,90]}`)
	assert.Equal(t, "PathToSelf", reply["result"])
	assert.Len(t, reply["points"], 1)
}

func TestWebsocketErrors(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv)

	tests := []struct {
		name    string
		request string
		seq     float64
		reason  string
	}{
		{"malformed", `{"type":`, 0, "malformed message"},
		{"unknown type", `{"type":"teleport","seq":3}`, 3, `unknown message type "teleport"`},
		{"unknown volume", `{"type":"find_path","seq":4,"volume":"nope","start":[0,0,0],"end":[1,1,1]}`, 4, `unknown volume "nope"`},
		{"missing end", `{"type":"find_path","seq":5,"volume":"main","start":[0,0,0]}`, 5, "start and end are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, conn, tt.request)
			assert.Equal(t, "error", reply["type"])
			assert.Equal(t, tt.seq, reply["seq"])
			assert.Equal(t, tt.reason, reply["reason"])
		})
	}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthAndVolumes(t *testing.T) {
	srv := startServer(t)

	code, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get(t, srv.URL+"/volumes")
	require.Equal(t, http.StatusOK, code)

	var stats []nav.VolumeStats
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "main", stats[0].Name)
	assert.Equal(t, [3]int{3, 3, 1}, stats[0].Size)
	assert.True(t, stats[0].Ready)
	assert.Equal(t, 1, stats[0].Blocked)
	assert.Len(t, stats[0].Digest, 64)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := startServer(t)
	conn := dial(t, srv)
	roundTrip(t, conn, `{"type":"find_path","seq":1,"volume":"main","start":[50,50,50],"end":[250,250,50]}`)

	code, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "nav3d_path_requests_total")
	assert.Contains(t, body, "nav3d_path_search_duration_seconds")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	reg := NewRegistry()
	s := NewServer(reg, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
