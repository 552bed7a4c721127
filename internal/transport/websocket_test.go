// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialClient(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketBroadcastsRows(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer wst.Close()

	a := dialClient(t, wst)
	b := dialClient(t, wst)
	require.Eventually(t, func() bool { return wst.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	msg := RowMessage{
		Type:       RowMessageType,
		Row:        7,
		Width:      3,
		Pixels:     []uint32{0xff000000, 0xff0000ff, 0xffffffff},
		MaxHz:      4000,
		TuneHz:     1500,
		PassbandHz: 500,
		LevelDB:    -42.5,
		Overlay:    []OverlayRect{{Kind: "marker", X: 1, Y: 0, W: 1, H: 10, Color: 0xffff3030}},
		Labels:     []OverlayLabel{{X: 2, Y: 8, Text: "0"}},
	}
	require.NoError(t, wst.Send(msg))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got RowMessage
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, msg, got)
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer wst.Close()

	conn := dialClient(t, wst)
	require.Eventually(t, func() bool { return wst.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return wst.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, err)

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close())
	assert.ErrorIs(t, wst.Send(RowMessage{}), ErrClosed)
}

func TestWebSocketListenError(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer wst.Close()

	_, err = NewWebSocketTransport(wst.Addr(), nil)
	assert.Error(t, err)
}
