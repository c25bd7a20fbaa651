package bridge

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rileyhilliard/nekowatch/internal/logger"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
	sshtest "github.com/rileyhilliard/nekowatch/pkg/sshutil/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResize(t *testing.T) {
	tests := []struct {
		in   string
		want sshutil.WindowSize
		ok   bool
	}{
		{`{"type":"resize","rows":30,"cols":100}`, sshutil.WindowSize{Rows: 30, Cols: 100}, true},
		{`  {"type":"resize","rows":1,"cols":2}`, sshutil.WindowSize{Rows: 1, Cols: 2}, true},
		{`{"type":"data"}`, sshutil.WindowSize{}, false},
		{`{not json`, sshutil.WindowSize{}, false},
		{`ls -la`, sshutil.WindowSize{}, false},
		{``, sshutil.WindowSize{}, false},
	}
	for _, tt := range tests {
		got, ok := parseResize([]byte(tt.in))
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestWSChannel_Bridge(t *testing.T) {
	d := &sshtest.Dialer{}
	b := New(sshutil.NewPool(d.Dial, nil), logger.Noop())
	upgrader := websocket.Upgrader{}
	finished := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			finished <- err
			return
		}
		finished <- b.Run(r.Context(), cred, NewWSChannel(conn), Options{})
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, BannerEstablished, string(msg))

	_, shell := waitShell(t, d)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"resize","rows":33,"cols":99}`)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("uptime\n")))
	require.Eventually(t, func() bool {
		return shell.Input() == "uptime\n" && len(shell.Sizes()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, sshutil.WindowSize{Rows: 33, Cols: 99}, shell.Sizes()[0])

	go shell.Emit("load average: 0.00\r\n")
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "load average: 0.00\r\n", string(msg))

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not end after the socket closed")
	}
	assert.True(t, shell.IsClosed())
}
