// SPDX-License-Identifier: MIT
package telemetry

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepipe/internal/enhance"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/metrics"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerBroadcastsMetrics(t *testing.T) {
	s := NewServer(0, 0, quietLogger())
	conn := dialTestServer(t, s)

	sent := enhance.Metrics{
		SNR:        12.5,
		RMSLevel:   0.1,
		MeasuredAt: time.Now(),
	}

	// The client registers on the server's handler goroutine; retry the
	// send until it lands.
	received := make(chan []byte, 1)
	go func() {
		_, msg, err := conn.ReadMessage()
		if err == nil {
			received <- msg
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, s.Send(sent))
		select {
		case msg := <-received:
			var got enhance.Metrics
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, sent.SNR, got.SNR)
			assert.Equal(t, sent.RMSLevel, got.RMSLevel)
			return
		case <-deadline:
			t.Fatal("no metrics received before deadline")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServerRateLimitsSends(t *testing.T) {
	s := NewServer(0, time.Hour, quietLogger())

	// Both sends succeed even with no clients; the second is dropped by the
	// rate limiter without error.
	require.NoError(t, s.Send(enhance.Metrics{}))
	require.NoError(t, s.Send(enhance.Metrics{}))
}

func TestServerSendWithoutClients(t *testing.T) {
	s := NewServer(0, 0, quietLogger())
	require.NoError(t, s.Send(enhance.Metrics{SNR: 1}))
}

func TestServerClose(t *testing.T) {
	s := NewServer(0, 0, quietLogger())
	require.NoError(t, s.Close())
	// Closing twice must not panic.
	_ = s.Close()
}
