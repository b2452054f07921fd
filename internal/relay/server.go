// ABOUTME: Relay server for the voicelink protocol
// ABOUTME: Accepts websocket clients and bridges each one to its own peer session
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicelink/voicelink-go/internal/discovery"
	"github.com/voicelink/voicelink-go/internal/metrics"
	"github.com/voicelink/voicelink-go/internal/protocol"
	"github.com/voicelink/voicelink-go/internal/transport"
)

const (
	// DefaultPath is the websocket endpoint
	DefaultPath = "/voicelink"

	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	helloTimeout  = 10 * time.Second
)

// Config holds server configuration
type Config struct {
	Port          int
	Name          string
	Path          string
	EnableMDNS    bool
	EnableMetrics bool
}

// Server is the voicelink relay
type Server struct {
	config   Config
	serverID string
	backend  transport.Dialer
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	httpServer  *http.Server
	mdnsManager *discovery.Manager

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is one connected websocket client and its peer session
type Client struct {
	ID        string
	Name      string
	SessionID string
	Conn      *websocket.Conn

	session  transport.Session
	sendChan chan protocol.Message
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a relay answering every client with a session from backend
func New(config Config, backend transport.Dialer, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.Name == "" {
		config.Name = "voicelink-relay"
	}
	if m == nil {
		m = metrics.Default
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		backend:  backend,
		metrics:  m,
		gatherer: gatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network relay; browsers are not expected clients
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		mux:      http.NewServeMux(),
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}

	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	if config.EnableMetrics {
		s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return s
}

// Handler returns the HTTP handler serving the relay
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Start serves until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Relay starting: %s (ID: %s)", s.config.Name, s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := net.JoinHostPort("", strconv.Itoa(s.config.Port))
	log.Printf("WebSocket relay listening on %s%s", addr, s.config.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Relay shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Relay stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// shutdown rejects new connections and disconnects current clients
func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.cancel()
		c.Conn.Close()
	}
	s.clientsMu.RUnlock()
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.wg.Add(1)
	defer s.wg.Done()
	s.handleConnection(conn)
}

// rejectHello sends server/error and lets the connection close
func (s *Server) rejectHello(conn *websocket.Conn, reason string) {
	log.Printf("Rejecting client: %s", reason)
	msg := protocol.Message{Type: protocol.TypeServerError, Payload: protocol.ServerError{Message: reason}}
	if data, err := json.Marshal(msg); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		conn.WriteMessage(websocket.TextMessage, data)
	}
	s.countMessage(protocol.TypeServerError, "out")
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := s.readHello(conn)
	if err != nil {
		s.rejectHello(conn, err.Error())
		return
	}

	log.Printf("Client hello: %s (ID: %s)", hello.Name, hello.ClientID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		ID:        hello.ClientID,
		Name:      hello.Name,
		SessionID: uuid.New().String(),
		Conn:      conn,
		sendChan:  make(chan protocol.Message, transport.EventBuffer),
		ctx:       ctx,
		cancel:    cancel,
	}

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if _, exists := s.clients[client.ID]; exists {
		s.clientsMu.Unlock()
		s.rejectHello(conn, "client id already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.metrics.RelayConnections.Inc()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		s.metrics.RelayConnections.Dec()
		log.Printf("Client disconnected: %s", client.Name)
	}()

	session, err := s.backend.Dial(ctx)
	if err != nil {
		s.metrics.SessionErrors.WithLabelValues("relay_backend").Inc()
		s.rejectHello(conn, fmt.Sprintf("backend unavailable: %v", err))
		return
	}
	client.session = session
	defer session.Close()

	serverHello := protocol.ServerHello{
		ServerID:  s.serverID,
		SessionID: client.SessionID,
		Name:      s.config.Name,
		Version:   protocol.Version,
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(protocol.Message{Type: protocol.TypeServerHello, Payload: serverHello}); err != nil {
		log.Printf("Error sending server hello: %v", err)
		return
	}
	s.countMessage(protocol.TypeServerHello, "out")
	s.metrics.SessionsStarted.Inc()

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		s.clientWriter(client)
	}()
	go func() {
		defer workers.Done()
		s.pumpEvents(client)
	}()

	s.readLoop(client)

	cancel()
	session.Close()
	workers.Wait()
}

// readHello waits for and validates client/hello
func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("error reading hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	env, err := protocol.Parse(data)
	if err != nil {
		return hello, err
	}
	if env.Type != protocol.TypeClientHello {
		return hello, fmt.Errorf("expected client/hello, got %s", env.Type)
	}
	if err := env.Decode(&hello); err != nil {
		return hello, err
	}
	s.countMessage(protocol.TypeClientHello, "in")

	if hello.ClientID == "" {
		return hello, fmt.Errorf("client hello missing client_id")
	}
	if hello.Name == "" {
		return hello, fmt.Errorf("client hello missing name")
	}
	if hello.InputFormat.Channels > 1 || hello.OutputFormat.Channels > 1 {
		return hello, fmt.Errorf("only mono audio is supported")
	}
	return hello, nil
}

// readLoop forwards input/audio messages to the peer session
func (s *Server) readLoop(client *Client) {
	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		env, err := protocol.Parse(data)
		if err != nil {
			log.Printf("Error parsing client message: %v", err)
			continue
		}
		s.countMessage(env.Type, "in")

		switch env.Type {
		case protocol.TypeInputAudio:
			var in protocol.InputAudio
			if err := env.Decode(&in); err != nil {
				log.Printf("Error decoding input/audio: %v", err)
				continue
			}
			if err := client.session.SendAudio(client.ctx, in.Data, in.MIMEType); err != nil {
				log.Printf("Client %s: audio rejected: %v", client.Name, err)
			}
		default:
			log.Printf("Unknown message type: %s", env.Type)
		}
	}
}

// pumpEvents turns peer events into server messages
func (s *Server) pumpEvents(client *Client) {
	defer client.Conn.Close()

	for ev := range client.session.Events() {
		msg := eventMessage(ev)
		select {
		case client.sendChan <- msg:
		case <-client.ctx.Done():
			return
		}
		if ev.Err != nil {
			// Give the writer a chance to deliver server/error
			select {
			case <-client.ctx.Done():
			case <-time.After(time.Second):
			}
			return
		}
	}
}

// eventMessage converts a transport event to its wire form
func eventMessage(ev transport.Event) protocol.Message {
	var content protocol.ServerContent
	switch {
	case ev.Err != nil:
		return protocol.Message{Type: protocol.TypeServerError, Payload: protocol.ServerError{Message: ev.Err.Error()}}
	case ev.Audio != "":
		content.Audio = &protocol.InputAudio{MIMEType: ev.MIMEType, Data: ev.Audio}
	case ev.Interrupted:
		content.Interrupted = true
	case ev.TurnComplete:
		content.TurnComplete = true
	case ev.Transcript != nil:
		content.Transcript = &protocol.Transcript{Role: string(ev.Transcript.Role), Text: ev.Transcript.Text}
	}
	return protocol.Message{Type: protocol.TypeServerContent, Payload: content}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.ctx.Done():
			return

		case msg := <-client.sendChan:
			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Error marshaling message: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing text message: %v", err)
				client.cancel()
				client.Conn.Close()
				return
			}
			s.countMessage(msg.Type, "out")

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.cancel()
				client.Conn.Close()
				return
			}
		}
	}
}

func (s *Server) countMessage(msgType, direction string) {
	s.metrics.RelayMessages.WithLabelValues(msgType, direction).Inc()
}
