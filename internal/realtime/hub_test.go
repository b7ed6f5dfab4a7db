package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMontarMensagem(t *testing.T) {
	var msg Mensagem
	require.NoError(t, json.Unmarshal(MontarMensagem("contagens_changes", "alteracao", `{"operacao":"INSERT","ean":"789"}`), &msg))
	assert.Equal(t, "contagens_changes", msg.Canal)
	assert.JSONEq(t, `{"operacao":"INSERT","ean":"789"}`, string(msg.Payload))

	require.NoError(t, json.Unmarshal(MontarMensagem("c", "alteracao", "texto solto"), &msg))
	assert.Equal(t, `"texto solto"`, string(msg.Payload))

	raw := string(MontarMensagem("c", "recarregar", ""))
	assert.NotContains(t, raw, "payload")
}

func TestHubBroadcastsToConnectedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub("contagens", zap.NewNop())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientesConectados() == 1 }, time.Second, 10*time.Millisecond)

	assert.True(t, hub.Broadcast([]byte(`{"evento":"recarregar"}`)))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"evento":"recarregar"}`, string(msg))

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientesConectados() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub("t", zap.NewNop())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub não encerrou")
	}
}
