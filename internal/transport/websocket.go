// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sdrfront/internal/log"
)

const (
	broadcastQueue = 256
	writeTimeout   = time.Second
)

// WebSocketTransport implements the Transport interface for WebSocket connections.
// Every message is JSON-encoded and broadcast to all clients connected to /ws.
type WebSocketTransport struct {
	logger    *log.Logger
	listener  net.Listener
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	server    *http.Server
	dropped   uint64 // guarded by clientsMu
}

// NewWebSocketTransport listens on addr and starts serving. Use ":0" to
// pick a free port and Addr to find it.
func NewWebSocketTransport(addr string, logger *log.Logger) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("websocket listen on %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		logger:   logger,
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Viewers are served from anywhere on the LAN
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	wst.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wst.wg.Add(2)
	go func() {
		defer wst.wg.Done()
		logger.Infof("Starting WebSocket server on %s", ln.Addr())
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server error: %v", err)
		}
	}()
	go func() {
		defer wst.wg.Done()
		wst.handleBroadcasts()
	}()

	return wst, nil
}

// Addr returns the listening address.
func (wst *WebSocketTransport) Addr() string {
	return wst.listener.Addr().String()
}

// ClientCount returns the number of connected clients.
func (wst *WebSocketTransport) ClientCount() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wst.logger.Warnf("Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	select {
	case <-wst.done:
		wst.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wst.logger.Infof("Client %s connected, total: %d", conn.RemoteAddr(), total)

	// Clients never send anything; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		wst.removeClient(conn)
	}()
}

func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	if ok {
		conn.Close()
		wst.logger.Infof("Client disconnected, total: %d", total)
	}
}

// handleBroadcasts sends messages to all connected clients
func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteJSON(data); err != nil {
					wst.logger.Warnf("Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// Send queues data for broadcast. When the queue is full the message is
// dropped; rows are superseded every tick anyway.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- data:
	default:
		wst.clientsMu.Lock()
		wst.dropped++
		dropped := wst.dropped
		wst.clientsMu.Unlock()
		if dropped%100 == 1 {
			wst.logger.Warnf("Broadcast queue full, %d messages dropped", dropped)
		}
	}
	return nil
}

// Close shuts down the server and disconnects every client.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		wst.logger.Infof("Closing server")

		wst.clientsMu.Lock()
		close(wst.done)
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		err = wst.server.Close()
		wst.wg.Wait()
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface
var _ Transport = (*WebSocketTransport)(nil)
