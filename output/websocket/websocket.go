// Package websocket provides a WebSocket server output that broadcasts
// word count batches to connected clients for live dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/errors"
	"github.com/c360/wordstream/message"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/pkg/security"
	"github.com/c360/wordstream/pkg/timestamp"
	"github.com/c360/wordstream/pkg/tlsutil"
	"github.com/gorilla/websocket"
)

const (
	defaultPort         = 8081
	defaultPath         = "/ws"
	defaultSubject      = "text.counts"
	defaultPingInterval = 30 * time.Second

	// writeTimeout bounds a single frame write to one client.
	writeTimeout = 10 * time.Second

	// pongWait is how long a client may stay silent before its read
	// deadline expires. Must exceed the ping interval.
	pongWait = 90 * time.Second
)

// websocketSchema is generated once from Config struct tags.
var websocketSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the WebSocket output component.
type Config struct {
	// Port is the TCP port the server listens on. Zero picks a random port.
	Port int `json:"port" schema:"type:int,description:WebSocket server port,category:basic,default:8081"`

	// Path is the WebSocket endpoint path.
	Path string `json:"path" schema:"type:string,description:WebSocket endpoint path,category:basic,default:/ws"`

	// PingIntervalSeconds sets how often idle clients are pinged.
	PingIntervalSeconds int `json:"ping_interval_seconds" schema:"type:int,description:Client ping interval in seconds,category:advanced,default:30,min:1"`

	// TLS holds server TLS settings. Manual certificates and ACME are
	// both supported.
	TLS security.ServerTLSConfig `json:"tls,omitempty"`

	// Ports configures the NATS subjects to broadcast from.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// Validate implements component.Validatable.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Validate",
			fmt.Sprintf("port %d out of range 0-65535", c.Port))
	}
	if c.Path != "" && !strings.HasPrefix(c.Path, "/") {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Validate",
			fmt.Sprintf("path %q must start with /", c.Path))
	}
	if c.PingIntervalSeconds < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Validate",
			"ping_interval_seconds cannot be negative")
	}
	if c.Ports != nil {
		for _, input := range c.Ports.Inputs {
			if input.Type == "nats" && input.Subject == "" {
				return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Validate",
					fmt.Sprintf("input port %s missing subject", input.Name))
			}
		}
	}
	return nil
}

// DefaultConfig returns the default configuration for the WebSocket output.
func DefaultConfig() Config {
	return Config{
		Port:                defaultPort,
		Path:                defaultPath,
		PingIntervalSeconds: int(defaultPingInterval.Seconds()),
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "counts_in",
					Type:        "nats",
					Subject:     defaultSubject,
					Interface:   "text.counts",
					Required:    true,
					Description: "NATS subject carrying word count batches",
				},
			},
		},
	}
}

// BatchFrame is the JSON frame sent to each connected client for every
// word count batch.
type BatchFrame struct {
	Type        string              `json:"type"` // always "counts"
	Subject     string              `json:"subject"`
	Timestamp   int64               `json:"timestamp"` // unix ms at broadcast
	WindowStart int64               `json:"window_start"`
	WindowEnd   int64               `json:"window_end"`
	Counts      []message.WordCount `json:"counts"`
}

// client tracks one connected WebSocket client.
type client struct {
	conn        *websocket.Conn
	connectedAt time.Time
	lastPong    atomic.Value // stores time.Time
	closed      atomic.Bool
	closeOnce   sync.Once

	// writeMu serializes writes; gorilla/websocket panics on
	// concurrent writes to the same connection.
	writeMu sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Output is a WebSocket server broadcasting word count batches to every
// connected client. Delivery is at-most-once: a slow or broken client is
// dropped, never retried.
type Output struct {
	name         string
	port         int
	path         string
	subjects     []string
	pingInterval time.Duration
	tls          security.ServerTLSConfig
	natsClient   *natsclient.Client
	logger       *slog.Logger

	server   *http.Server
	listener net.Listener
	upgrader websocket.Upgrader

	clients   map[*websocket.Conn]*client
	clientsMu sync.RWMutex

	// Lifecycle management
	shutdown      chan struct{}
	done          chan struct{}
	running       bool
	startTime     time.Time
	mu            sync.RWMutex
	lifecycleMu   sync.Mutex
	wg            *sync.WaitGroup
	tlsCleanup    func()
	lifecycleCtx  context.Context
	lifecycleStop context.CancelFunc

	// Metrics
	batchesBroadcast atomic.Int64
	bytesSent        atomic.Int64
	errorCount       atomic.Int64
	lastActivity     atomic.Value // stores time.Time

	metrics *Metrics
}

var _ component.Discoverable = (*Output)(nil)
var _ component.LifecycleComponent = (*Output)(nil)

// NewOutput creates a WebSocket output from raw JSON configuration.
func NewOutput(rawConfig json.RawMessage, deps component.Dependencies) (*Output, error) {
	cfg := DefaultConfig()

	// Unmarshal over the defaults so absent fields keep them. An explicit
	// port 0 is meaningful: it binds a random port.
	if len(rawConfig) > 0 {
		if err := component.SafeUnmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, "WebSocketOutput", "NewOutput", "config unmarshal")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var subjects []string
	for _, input := range cfg.Ports.Inputs {
		if input.Type == "nats" && input.Subject != "" {
			subjects = append(subjects, input.Subject)
		}
	}
	if len(subjects) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"WebSocketOutput", "NewOutput", "no input subjects configured")
	}

	return &Output{
		name:         fmt.Sprintf("websocket-output-%d", cfg.Port),
		port:         cfg.Port,
		path:         cfg.Path,
		subjects:     subjects,
		pingInterval: time.Duration(cfg.PingIntervalSeconds) * time.Second,
		tls:          cfg.TLS,
		natsClient:   deps.NATSClient,
		logger:       deps.GetLoggerWithComponent("websocket-output"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Dashboards connect from arbitrary origins.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*client),
		metrics: newMetrics(deps.MetricsRegistry, cfg.Port),
	}, nil
}

// Initialize validates the component before Start.
func (w *Output) Initialize() error {
	if w.path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Initialize",
			"endpoint path cannot be empty")
	}
	if len(w.subjects) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Initialize",
			"input subjects cannot be empty")
	}
	// NATS client is optional; without one the server runs but nothing
	// is broadcast. Useful in tests.
	return nil
}

// Start binds the listener, subscribes to the counts subjects and begins
// serving WebSocket clients.
func (w *Output) Start(ctx context.Context) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.isRunning() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "WebSocketOutput", "Start", "check running state")
	}
	if ctx == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "WebSocketOutput", "Start", "context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "WebSocketOutput", "Start", "context already cancelled")
	}

	w.lifecycleCtx, w.lifecycleStop = context.WithCancel(context.Background())
	w.shutdown = make(chan struct{})
	w.done = make(chan struct{})

	if err := w.setupServer(); err != nil {
		w.cleanupLocked()
		return err
	}

	if w.natsClient != nil {
		for _, subject := range w.subjects {
			handler := func(msgCtx context.Context, data []byte) {
				w.handleMessage(msgCtx, subject, data)
			}
			if err := w.natsClient.Subscribe(ctx, subject, handler); err != nil {
				w.cleanupLocked()
				return errors.WrapTransient(err, "WebSocketOutput", "Start",
					fmt.Sprintf("subscribe to %s", subject))
			}
		}
	}

	w.mu.Lock()
	w.running = true
	w.startTime = time.Now()
	w.mu.Unlock()

	w.wg = &sync.WaitGroup{}
	w.wg.Add(2)
	go w.serve()
	go w.maintainClients()

	w.logger.Info("WebSocket output started",
		"addr", w.listener.Addr().String(),
		"path", w.path,
		"input_subjects", w.subjects,
		"tls", w.tls.Enabled)
	return nil
}

// setupServer binds the listener and configures TLS when enabled.
func (w *Output) setupServer() error {
	mux := http.NewServeMux()
	mux.HandleFunc(w.path, w.handleUpgrade)

	w.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if w.tls.Enabled {
		mode := w.tls.Mode
		if mode == "" {
			mode = "manual"
		}
		if mode == "acme" && w.tls.ACME.Enabled {
			tlsConfig, cleanup, err := tlsutil.LoadServerTLSConfigWithACME(w.lifecycleCtx, w.tls)
			if err != nil {
				return errors.WrapFatal(err, "WebSocketOutput", "setupServer", "load ACME TLS config")
			}
			w.server.TLSConfig = tlsConfig
			w.tlsCleanup = cleanup
		} else {
			tlsConfig, err := tlsutil.LoadServerTLSConfigWithMTLS(w.tls, w.tls.MTLS)
			if err != nil {
				return errors.WrapFatal(err, "WebSocketOutput", "setupServer", "load TLS config")
			}
			w.server.TLSConfig = tlsConfig
		}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", w.port))
	if err != nil {
		return errors.WrapTransient(err, "WebSocketOutput", "setupServer",
			fmt.Sprintf("bind port %d", w.port))
	}
	w.listener = ln
	return nil
}

// cleanupLocked tears down a partially started server. Caller holds
// lifecycleMu.
func (w *Output) cleanupLocked() {
	if w.listener != nil {
		_ = w.listener.Close()
		w.listener = nil
	}
	w.server = nil
	if w.tlsCleanup != nil {
		w.tlsCleanup()
		w.tlsCleanup = nil
	}
	if w.lifecycleStop != nil {
		w.lifecycleStop()
	}
	if w.shutdown != nil {
		close(w.shutdown)
	}
	if w.done != nil {
		close(w.done)
	}
}

// serve runs the HTTP server until Stop shuts it down.
func (w *Output) serve() {
	defer w.wg.Done()

	var err error
	if w.tls.Enabled {
		// Certificates come from TLSConfig, set up in setupServer.
		err = w.server.ServeTLS(w.listener, "", "")
	} else {
		err = w.server.Serve(w.listener)
	}

	if err != nil && err != http.ErrServerClosed {
		w.errorCount.Add(1)
		if w.metrics != nil {
			w.metrics.errors.WithLabelValues("server").Inc()
		}
		w.logger.Error("WebSocket server failed", "error", err)
	}
}

// Addr returns the bound listener address, or empty before Start.
func (w *Output) Addr() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.listener == nil {
		return ""
	}
	return w.listener.Addr().String()
}

// Stop shuts down the server, drops all clients and waits for background
// goroutines to exit.
func (w *Output) Stop(timeout time.Duration) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.isRunning() {
		return nil
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	close(w.shutdown)

	// Shut the server down first so Serve returns and no new clients
	// arrive while existing ones are closed.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := w.server.Shutdown(shutdownCtx); err != nil {
		w.logger.Warn("WebSocket server shutdown error", "error", err)
	}

	w.closeAllClients()

	waitDone := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(timeout):
		w.logger.Warn("WebSocket goroutines did not exit within timeout")
	}

	if w.tlsCleanup != nil {
		w.tlsCleanup()
		w.tlsCleanup = nil
	}
	w.lifecycleStop()

	close(w.done)

	// Channels stay set after close; late subscription callbacks still
	// select on them without racing a nil assignment.
	w.mu.Lock()
	w.listener = nil
	w.server = nil
	w.mu.Unlock()

	w.logger.Info("WebSocket output stopped")
	return nil
}

func (w *Output) isRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// closeAllClients drops every connected client.
func (w *Output) closeAllClients() {
	w.clientsMu.Lock()
	clients := w.clients
	w.clients = make(map[*websocket.Conn]*client)
	w.clientsMu.Unlock()

	for _, c := range clients {
		c.closed.Store(true)
		_ = c.conn.Close()
	}
	if w.metrics != nil {
		w.metrics.clientsConnected.Set(0)
	}
}

// handleMessage turns one word count batch into a frame and broadcasts it.
func (w *Output) handleMessage(ctx context.Context, subject string, msgData []byte) {
	select {
	case <-ctx.Done():
		return
	case <-w.shutdown:
		return
	default:
	}
	if !w.isRunning() {
		return
	}

	w.lastActivity.Store(time.Now())
	if w.metrics != nil {
		w.metrics.batchesReceived.Inc()
	}

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msgData, &baseMsg); err != nil {
		w.recordError("parse")
		w.logger.Debug("Failed to parse message", "error", err)
		return
	}

	counts, ok := baseMsg.Payload().(*message.WordCountsPayload)
	if !ok {
		w.recordError("payload_type")
		w.logger.Debug("Payload is not a word count batch",
			"actual_type", fmt.Sprintf("%T", baseMsg.Payload()))
		return
	}

	frame := BatchFrame{
		Type:        "counts",
		Subject:     subject,
		Timestamp:   timestamp.Now(),
		WindowStart: counts.WindowStart,
		WindowEnd:   counts.WindowEnd,
		Counts:      counts.Counts,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		w.recordError("marshal")
		return
	}

	w.broadcast(data)
}

// broadcast sends one frame to every connected client. Failed clients are
// dropped on the spot.
func (w *Output) broadcast(data []byte) {
	start := time.Now()

	w.clientsMu.RLock()
	snapshot := make([]*client, 0, len(w.clients))
	for _, c := range w.clients {
		if !c.closed.Load() {
			snapshot = append(snapshot, c)
		}
	}
	w.clientsMu.RUnlock()

	for _, c := range snapshot {
		if err := c.write(websocket.TextMessage, data); err != nil {
			w.recordError("client_write")
			w.removeClient(c, "write_error")
			continue
		}
		w.bytesSent.Add(int64(len(data)))
		if w.metrics != nil {
			w.metrics.framesSent.Inc()
			w.metrics.bytesSent.Add(float64(len(data)))
		}
	}

	w.batchesBroadcast.Add(1)
	if w.metrics != nil {
		w.metrics.broadcastDuration.Observe(time.Since(start).Seconds())
	}
}

// handleUpgrade accepts a new WebSocket client.
func (w *Output) handleUpgrade(wr http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(wr, r, nil)
	if err != nil {
		w.recordError("upgrade")
		return
	}

	c := &client{conn: conn, connectedAt: time.Now()}
	c.lastPong.Store(time.Now())

	w.clientsMu.Lock()
	w.clients[conn] = c
	count := len(w.clients)
	w.clientsMu.Unlock()

	if w.metrics != nil {
		w.metrics.connectionsTotal.Inc()
		w.metrics.clientsConnected.Set(float64(count))
	}
	w.logger.Debug("Client connected", "remote", conn.RemoteAddr().String(), "clients", count)

	wg := w.wg
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.readLoop(c)
	}()
}

// readLoop services control frames from one client. Data frames from
// clients are discarded; the protocol is broadcast only.
func (w *Output) readLoop(c *client) {
	defer w.removeClient(c, "closed")

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.lastPong.Store(time.Now())
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn.SetReadLimit(4096)

	for {
		select {
		case <-w.shutdown:
			return
		default:
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// removeClient drops one client, at most once.
func (w *Output) removeClient(c *client, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		w.clientsMu.Lock()
		delete(w.clients, c.conn)
		count := len(w.clients)
		w.clientsMu.Unlock()

		_ = c.conn.Close()

		if w.metrics != nil {
			w.metrics.disconnections.WithLabelValues(reason).Inc()
			w.metrics.clientsConnected.Set(float64(count))
		}
		w.logger.Debug("Client disconnected",
			"remote", c.conn.RemoteAddr().String(),
			"reason", reason,
			"connected_for", time.Since(c.connectedAt).String())
	})
}

// maintainClients pings connected clients on an interval, dropping the
// ones that fail.
func (w *Output) maintainClients() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.pingClients()
		}
	}
}

func (w *Output) pingClients() {
	w.clientsMu.RLock()
	snapshot := make([]*client, 0, len(w.clients))
	for _, c := range w.clients {
		if !c.closed.Load() {
			snapshot = append(snapshot, c)
		}
	}
	w.clientsMu.RUnlock()

	for _, c := range snapshot {
		if err := c.write(websocket.PingMessage, nil); err != nil {
			w.removeClient(c, "ping_failed")
		}
	}
}

// ClientCount returns the number of currently connected clients.
func (w *Output) ClientCount() int {
	w.clientsMu.RLock()
	defer w.clientsMu.RUnlock()
	return len(w.clients)
}

func (w *Output) recordError(errorType string) {
	w.errorCount.Add(1)
	if w.metrics != nil {
		w.metrics.errors.WithLabelValues(errorType).Inc()
	}
}

// Meta returns component metadata.
func (w *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        w.name,
		Type:        "output",
		Description: fmt.Sprintf("WebSocket server on %s (port %d) broadcasting word count batches", w.path, w.port),
		Version:     "1.0.0",
	}
}

// InputPorts returns the counts input ports.
func (w *Output) InputPorts() []component.Port {
	ports := make([]component.Port, len(w.subjects))
	for i, subj := range w.subjects {
		ports[i] = component.Port{
			Name:      fmt.Sprintf("counts_in_%d", i),
			Direction: component.DirectionInput,
			Required:  true,
			Config: component.NATSPort{
				Subject: subj,
				Interface: &component.InterfaceContract{
					Type:    "text.counts",
					Version: "v1",
				},
			},
		}
	}
	return ports
}

// OutputPorts returns the WebSocket endpoint port.
func (w *Output) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "websocket_endpoint",
			Direction:   component.DirectionOutput,
			Required:    false,
			Description: fmt.Sprintf("WebSocket endpoint at %s", w.path),
			Config: component.NetworkPort{
				Protocol: "websocket",
				Host:     "0.0.0.0",
				Port:     w.port,
			},
		},
	}
}

// ConfigSchema returns the configuration schema.
func (w *Output) ConfigSchema() component.ConfigSchema {
	return websocketSchema
}

// Health returns the current health status.
func (w *Output) Health() component.HealthStatus {
	w.mu.RLock()
	running := w.running
	serving := w.server != nil
	started := w.startTime
	w.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    running && serving,
		LastCheck:  time.Now(),
		ErrorCount: int(w.errorCount.Load()),
		Uptime:     time.Since(started),
	}
}

// DataFlow returns current data flow metrics.
func (w *Output) DataFlow() component.FlowMetrics {
	batches := w.batchesBroadcast.Load()
	bytes := w.bytesSent.Load()
	lastActivity, _ := w.lastActivity.Load().(time.Time)

	w.mu.RLock()
	started := w.startTime
	w.mu.RUnlock()

	var perSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(started).Seconds(); uptime > 0 && !started.IsZero() {
		perSecond = float64(batches) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if batches > 0 {
		errorRate = float64(w.errorCount.Load()) / float64(batches)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// CreateOutput creates a WebSocket output component from factory inputs.
func CreateOutput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	if deps.NATSClient == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"WebSocketOutput", "CreateOutput", "NATS client required")
	}
	return NewOutput(rawConfig, deps)
}

// Register registers the WebSocket output component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "websocket",
		Factory:     CreateOutput,
		Schema:      websocketSchema,
		Type:        "output",
		Protocol:    "websocket",
		Domain:      "network",
		Description: "WebSocket server broadcasting word count batches to connected clients",
		Version:     "1.0.0",
	})
}
