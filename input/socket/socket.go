// Package socket provides a TCP client input component that reads
// newline-delimited text from a line server and publishes each line to NATS.
package socket

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/time/rate"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/errors"
	"github.com/c360/wordstream/message"
	"github.com/c360/wordstream/metric"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/pkg/buffer"
	"github.com/c360/wordstream/pkg/retry"
	"github.com/c360/wordstream/pkg/security"
	"github.com/c360/wordstream/pkg/tlsutil"
)

const (
	defaultHost         = "localhost"
	defaultPort         = 9999
	defaultSubject      = "text.line"
	defaultMaxLineBytes = 1024 * 1024
	defaultDialTimeout  = 5 * time.Second
	bufferCapacity      = 5000
)

// socketSchema is generated once from InputConfig struct tags.
var socketSchema = component.GenerateConfigSchema(reflect.TypeOf(InputConfig{}))

// InputConfig holds configuration for the socket input component.
type InputConfig struct {
	// MaxLineBytes caps the scanner line size. An oversized line fails the
	// scan, drops the connection, and the input reconnects.
	MaxLineBytes int `json:"max_line_bytes" schema:"type:int,description:Maximum accepted line length in bytes,category:advanced,default:1048576,min:1"`

	// RateLimit caps published lines per second. Zero disables limiting.
	RateLimit float64 `json:"rate_limit" schema:"type:float,description:Maximum lines per second (0 = unlimited),category:advanced,default:0"`

	// DialTimeoutSeconds bounds each connection attempt.
	DialTimeoutSeconds int `json:"dial_timeout_seconds" schema:"type:int,description:Connection attempt timeout in seconds,category:advanced,default:5,min:1"`

	// TLSEnabled wraps the source connection in TLS using the TLS settings.
	TLSEnabled bool `json:"tls_enabled" schema:"type:bool,description:Dial the source over TLS,category:advanced,default:false"`

	// TLS holds client TLS settings, used when TLSEnabled is set.
	TLS security.ClientTLSConfig `json:"tls,omitempty"`

	// Ports configures the source address and the output subject.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// Validate implements component.Validatable.
func (c *InputConfig) Validate() error {
	if c.MaxLineBytes < 0 {
		return errors.WrapInvalid(fmt.Errorf("max_line_bytes must be positive"),
			"InputConfig", "Validate", "line size validation")
	}
	if c.RateLimit < 0 {
		return errors.WrapInvalid(fmt.Errorf("rate_limit must not be negative"),
			"InputConfig", "Validate", "rate limit validation")
	}

	if c.Ports == nil {
		return nil
	}

	for _, input := range c.Ports.Inputs {
		if input.Type != "network" || input.Subject == "" {
			continue
		}
		host, port, err := parseTCPAddress(input.Subject)
		if err != nil {
			return err
		}
		if err := component.ValidateNetworkConfig(host, port); err != nil {
			return errors.Wrap(err, "InputConfig", "Validate", "network port validation")
		}
	}

	for _, output := range c.Ports.Outputs {
		switch output.Type {
		case "nats":
			if output.Subject == "" {
				return errors.WrapInvalid(errors.ErrInvalidConfig,
					"InputConfig", "Validate", "NATS output subject validation")
			}
		case "jetstream":
			if output.Subject == "" || output.StreamName == "" {
				return errors.WrapInvalid(
					fmt.Errorf("jetstream output requires subject and stream_name"),
					"InputConfig", "Validate", "JetStream output validation")
			}
		}
	}

	return nil
}

// parseTCPAddress splits a "tcp://host:port" subject into host and port.
func parseTCPAddress(subject string) (string, int, error) {
	addr, ok := strings.CutPrefix(subject, "tcp://")
	if !ok {
		return "", 0, errors.WrapInvalid(
			fmt.Errorf("invalid TCP address format: %s", subject),
			"InputConfig", "parseTCPAddress", "address parsing")
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.WrapInvalid(
			fmt.Errorf("invalid TCP address format: %s", subject),
			"InputConfig", "parseTCPAddress", "address parsing")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, errors.WrapInvalid(
			fmt.Errorf("invalid port number: %s", portStr),
			"InputConfig", "parseTCPAddress", "port parsing")
	}

	return host, port, nil
}

// DefaultConfig returns sensible defaults for the socket input.
func DefaultConfig() InputConfig {
	return InputConfig{
		MaxLineBytes:       defaultMaxLineBytes,
		DialTimeoutSeconds: int(defaultDialTimeout.Seconds()),
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "tcp_source",
					Type:        "network",
					Subject:     fmt.Sprintf("tcp://%s:%d", defaultHost, defaultPort),
					Required:    true,
					Description: "TCP line server to read text from",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "lines_out",
					Type:        "nats",
					Subject:     defaultSubject,
					Required:    true,
					Description: "NATS subject for published text lines",
				},
			},
		},
	}
}

// getConfiguredPorts extracts the source address and output routing from
// config. A jetstream output takes precedence over a plain nats one; the
// returned stream is empty for core NATS publishing.
func (c *InputConfig) getConfiguredPorts() (host string, port int, subject, stream string) {
	host = defaultHost
	port = defaultPort
	subject = defaultSubject

	if c.Ports == nil {
		return host, port, subject, ""
	}

	for _, input := range c.Ports.Inputs {
		if input.Type == "network" && input.Subject != "" {
			if h, p, err := parseTCPAddress(input.Subject); err == nil {
				host = h
				port = p
			}
			break
		}
	}

	for _, output := range c.Ports.Outputs {
		if output.Type == "jetstream" {
			return host, port, output.Subject, output.StreamName
		}
	}
	for _, output := range c.Ports.Outputs {
		if output.Type == "nats" {
			// Keep an explicitly empty subject so Initialize rejects it
			subject = output.Subject
			break
		}
	}

	return host, port, subject, ""
}

// Input reads newline-delimited text from a TCP line server and publishes
// each line as a TextLinePayload message. It reconnects with backoff while
// running, so a restarted line server picks back up without intervention.
type Input struct {
	name      string
	host      string
	port      int
	subject   string
	stream    string // non-empty enables JetStream publishing
	tlsConfig *tls.Config

	natsClient *natsclient.Client
	logger     *slog.Logger

	buffer      buffer.Buffer[string]
	retryConfig retry.Config
	limiter     *rate.Limiter

	maxLineBytes int
	dialTimeout  time.Duration

	shutdown  chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	conn      net.Conn

	linesReceived atomic.Int64
	bytesReceived atomic.Int64
	errorCount    atomic.Int64
	lastError     atomic.Value // stores string
	lastActivity  atomic.Value // stores time.Time

	metrics *Metrics
}

var _ component.Discoverable = (*Input)(nil)
var _ component.LifecycleComponent = (*Input)(nil)

// InputDeps holds runtime dependencies for the socket input component.
type InputDeps struct {
	Name            string
	Config          InputConfig
	NATSClient      *natsclient.Client
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// NewInput creates a socket input component.
func NewInput(deps InputDeps) *Input {
	host, port, subject, stream := deps.Config.getConfiguredPorts()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "socket-input", "host", host, "port", port)
	}

	var bufferOpts []buffer.Option[string]
	bufferOpts = append(bufferOpts, buffer.WithOverflowPolicy[string](buffer.DropOldest))
	if deps.MetricsRegistry != nil {
		bufferOpts = append(bufferOpts, buffer.WithMetrics[string](deps.MetricsRegistry, "socket_input"))
	}

	lineBuffer, err := buffer.NewRingBuffer(bufferCapacity, bufferOpts...)
	if err != nil {
		logger.Error("Failed to create line buffer", "error", err)
		return nil
	}

	maxLineBytes := deps.Config.MaxLineBytes
	if maxLineBytes <= 0 {
		maxLineBytes = defaultMaxLineBytes
	}

	dialTimeout := defaultDialTimeout
	if deps.Config.DialTimeoutSeconds > 0 {
		dialTimeout = time.Duration(deps.Config.DialTimeoutSeconds) * time.Second
	}

	var limiter *rate.Limiter
	if deps.Config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(deps.Config.RateLimit), 1)
	}

	var tlsConfig *tls.Config
	if deps.Config.TLSEnabled {
		tlsConfig, err = tlsutil.LoadClientTLSConfig(deps.Config.TLS)
		if err != nil {
			logger.Error("Failed to load TLS config", "error", err)
			return nil
		}
	}

	in := &Input{
		name:         deps.Name,
		host:         host,
		port:         port,
		subject:      subject,
		stream:       stream,
		tlsConfig:    tlsConfig,
		natsClient:   deps.NATSClient,
		logger:       logger,
		buffer:       lineBuffer,
		retryConfig:  retry.DefaultConfig(),
		limiter:      limiter,
		maxLineBytes: maxLineBytes,
		dialTimeout:  dialTimeout,
		startTime:    time.Now(),
		metrics:      newMetrics(deps.MetricsRegistry, host, port),
	}
	in.lastActivity.Store(time.Time{})
	return in
}

// Meta returns the component metadata.
func (in *Input) Meta() component.Metadata {
	name := in.name
	if name == "" {
		name = fmt.Sprintf("socket-input-%d", in.port)
	}

	return component.Metadata{
		Name:        name,
		Type:        "input",
		Description: fmt.Sprintf("TCP line reader for %s:%d publishing to %s", in.host, in.port, in.subject),
		Version:     "1.0.0",
	}
}

// InputPorts returns the input ports for this component.
func (in *Input) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "tcp_source",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: fmt.Sprintf("TCP line server at %s:%d", in.host, in.port),
			Config: component.NetworkPort{
				Protocol: "tcp",
				Host:     in.host,
				Port:     in.port,
			},
		},
	}
}

// OutputPorts returns the output ports for this component.
func (in *Input) OutputPorts() []component.Port {
	if in.stream != "" {
		return []component.Port{
			{
				Name:        "lines_out",
				Direction:   component.DirectionOutput,
				Required:    true,
				Description: "JetStream stream for durable text lines",
				Config: component.JetStreamPort{
					StreamName: in.stream,
					Subjects:   []string{in.subject},
				},
			},
		}
	}

	return []component.Port{
		{
			Name:        "lines_out",
			Direction:   component.DirectionOutput,
			Required:    true,
			Description: "NATS subject for published text lines",
			Config: component.NATSPort{
				Subject: in.subject,
				Interface: &component.InterfaceContract{
					Type:    "text.line",
					Version: "v1",
				},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this component.
func (in *Input) ConfigSchema() component.ConfigSchema {
	return socketSchema
}

// Health returns the current health status.
func (in *Input) Health() component.HealthStatus {
	in.mu.RLock()
	connected := in.conn != nil
	in.mu.RUnlock()

	lastError, _ := in.lastError.Load().(string)

	return component.HealthStatus{
		Healthy:    in.running.Load() && connected,
		LastCheck:  time.Now(),
		ErrorCount: int(in.errorCount.Load()),
		LastError:  lastError,
		Uptime:     time.Since(in.startTime),
	}
}

// DataFlow returns the current data flow metrics.
func (in *Input) DataFlow() component.FlowMetrics {
	lines := in.linesReceived.Load()
	bytes := in.bytesReceived.Load()
	lastActivity, _ := in.lastActivity.Load().(time.Time)

	var linesPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(in.startTime).Seconds(); uptime > 0 {
		linesPerSecond = float64(lines) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if lines > 0 {
		errorRate = float64(in.errorCount.Load()) / float64(lines)
	}

	return component.FlowMetrics{
		MessagesPerSecond: linesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Initialize validates the component is ready to start.
func (in *Input) Initialize() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.port < 1 || in.port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid port %d", in.port),
			"socket-input", "Initialize", "port validation")
	}
	if in.host == "" {
		return errors.WrapInvalid(fmt.Errorf("empty host"),
			"socket-input", "Initialize", "host validation")
	}
	if in.subject == "" {
		return errors.WrapInvalid(fmt.Errorf("empty subject"),
			"socket-input", "Initialize", "subject validation")
	}
	if in.natsClient == nil {
		return errors.WrapInvalid(fmt.Errorf("nil NATS client"),
			"socket-input", "Initialize", "NATS client validation")
	}

	return nil
}

// Start connects to the line server and begins the read loop.
func (in *Input) Start(ctx context.Context) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.running.Load() {
		return nil
	}

	in.shutdown = make(chan struct{})
	in.done = make(chan struct{})

	if in.stream != "" {
		if err := in.ensureStream(ctx); err != nil {
			in.cleanupUnlocked()
			return err
		}
	}

	if err := retry.Do(ctx, in.retryConfig, func() error {
		return in.dialLocked()
	}); err != nil {
		in.cleanupUnlocked()
		return errors.WrapTransient(err, "socket-input", "Start", "source connection")
	}

	in.running.Store(true)
	in.startTime = time.Now()

	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		defer func() {
			in.mu.Lock()
			defer in.mu.Unlock()
			if in.done != nil {
				select {
				case <-in.done:
				default:
					close(in.done)
				}
			}
		}()
		in.readLoop(ctx)
	}()

	return nil
}

// ensureStream creates the JetStream stream when JetStream output is
// configured. CreateStream is create-or-update, so an existing stream is
// left intact.
func (in *Input) ensureStream(ctx context.Context) error {
	_, err := in.natsClient.CreateStream(ctx, jetstream.StreamConfig{
		Name:     in.stream,
		Subjects: []string{in.subject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return errors.WrapTransient(err, "socket-input", "ensureStream", "stream creation")
	}
	return nil
}

// dialLocked establishes the source connection. Caller holds in.mu.
func (in *Input) dialLocked() error {
	addr := net.JoinHostPort(in.host, strconv.Itoa(in.port))

	var conn net.Conn
	var err error
	if in.tlsConfig != nil {
		dialer := &net.Dialer{Timeout: in.dialTimeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, in.tlsConfig)
	} else {
		conn, err = net.DialTimeout("tcp", addr, in.dialTimeout)
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	in.conn = conn
	if in.metrics != nil {
		in.metrics.connected.Set(1)
	}
	return nil
}

// reconnect re-establishes the source connection after a read failure.
func (in *Input) reconnect(ctx context.Context) error {
	in.mu.Lock()
	if in.conn != nil {
		_ = in.conn.Close()
		in.conn = nil
	}
	if in.metrics != nil {
		in.metrics.connected.Set(0)
		in.metrics.reconnects.Inc()
	}
	in.mu.Unlock()

	return retry.Do(ctx, retry.Persistent(), func() error {
		select {
		case <-ctx.Done():
			return retry.NonRetryable(ctx.Err())
		case <-in.shutdown:
			return retry.NonRetryable(fmt.Errorf("input stopped"))
		default:
		}

		in.mu.Lock()
		defer in.mu.Unlock()
		return in.dialLocked()
	})
}

// Stop gracefully stops the input with the specified timeout.
func (in *Input) Stop(timeout time.Duration) error {
	if !in.running.Load() {
		return nil
	}

	in.running.Store(false)

	in.mu.Lock()
	if in.shutdown != nil {
		select {
		case <-in.shutdown:
		default:
			close(in.shutdown)
		}
	}
	// Close the connection to unblock the scanner
	if in.conn != nil {
		_ = in.conn.Close()
	}
	in.mu.Unlock()

	select {
	case <-in.done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"socket-input", "Stop", "graceful shutdown")
	}

	in.cleanup()
	return nil
}

func (in *Input) cleanup() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.cleanupUnlocked()
}

func (in *Input) cleanupUnlocked() {
	if in.shutdown != nil {
		select {
		case <-in.shutdown:
		default:
			close(in.shutdown)
		}
		in.shutdown = nil
	}
	in.done = nil
	if in.conn != nil {
		_ = in.conn.Close()
		in.conn = nil
	}
	if in.metrics != nil {
		in.metrics.connected.Set(0)
	}
	if in.buffer != nil {
		_ = in.buffer.Close()
	}
}

// readLoop scans lines from the source connection and publishes them,
// reconnecting on read failure while the component is running.
func (in *Input) readLoop(ctx context.Context) {
	for in.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-in.shutdown:
			return
		default:
		}

		in.mu.RLock()
		conn := in.conn
		in.mu.RUnlock()
		if conn == nil {
			return
		}

		err := in.scanLines(ctx, conn)

		select {
		case <-ctx.Done():
			return
		case <-in.shutdown:
			return
		default:
		}

		if err != nil {
			in.errorCount.Add(1)
			in.lastError.Store(err.Error())
			if in.metrics != nil {
				in.metrics.readErrors.Inc()
			}
			in.logger.Warn("Source connection lost, reconnecting", "error", err)
		} else {
			// Server closed the stream cleanly
			in.logger.Info("Source closed the connection, reconnecting")
		}

		if err := in.reconnect(ctx); err != nil {
			in.logger.Error("Reconnect failed, stopping read loop", "error", err)
			return
		}
	}
}

// scanLines reads the connection until EOF or error, publishing each line.
// Returns nil on clean EOF.
func (in *Input) scanLines(ctx context.Context, conn net.Conn) error {
	scanner := bufio.NewScanner(conn)
	initial := 64 * 1024
	if in.maxLineBytes < initial {
		initial = in.maxLineBytes
	}
	scanner.Buffer(make([]byte, initial), in.maxLineBytes)

	for scanner.Scan() {
		if !in.running.Load() {
			return nil
		}

		line := scanner.Text()
		n := len(line)

		in.linesReceived.Add(1)
		in.bytesReceived.Add(int64(n))
		now := time.Now()
		in.lastActivity.Store(now)

		if in.metrics != nil {
			in.metrics.linesReceived.Inc()
			in.metrics.bytesReceived.Add(float64(n))
			in.metrics.lastActivity.Set(float64(now.Unix()))
		}

		if in.limiter != nil {
			if delay := in.limiter.Reserve().Delay(); delay > 0 {
				if in.metrics != nil {
					in.metrics.rateLimited.Inc()
				}
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return nil
				case <-in.shutdown:
					return nil
				}
			}
		}

		if err := in.buffer.Write(line); err != nil {
			if in.metrics != nil {
				in.metrics.linesDropped.Inc()
			}
			continue
		}

		in.drainBuffer(ctx)
	}

	if err := scanner.Err(); err != nil {
		if strings.Contains(err.Error(), "token too long") && in.metrics != nil {
			in.metrics.linesRejected.Inc()
		}
		return err
	}
	return nil
}

// drainBuffer publishes buffered lines to NATS.
func (in *Input) drainBuffer(ctx context.Context) {
	const maxBatchSize = 100
	lines := in.buffer.ReadBatch(maxBatchSize)

	for _, line := range lines {
		if !in.running.Load() {
			return
		}

		if err := retry.Do(ctx, in.retryConfig, func() error {
			return in.publishLine(ctx, line)
		}); err != nil {
			in.errorCount.Add(1)
			in.lastError.Store(err.Error())
		}
	}
}

// publishLine wraps a line in a TextLinePayload message and publishes it.
func (in *Input) publishLine(ctx context.Context, line string) error {
	origin := net.JoinHostPort(in.host, strconv.Itoa(in.port))
	msg := message.NewBaseMessage(message.TextLine, message.NewTextLine(line, origin), in.Meta().Name)

	data, err := json.Marshal(msg)
	if err != nil {
		return retry.NonRetryable(errors.WrapInvalid(err,
			"socket-input", "publishLine", "message marshaling"))
	}

	var start time.Time
	if in.metrics != nil {
		start = time.Now()
	}

	if in.stream != "" {
		err = in.natsClient.PublishToStream(ctx, in.subject, data)
	} else {
		err = in.natsClient.Publish(ctx, in.subject, data)
	}
	if err != nil {
		return errors.WrapTransient(err, "socket-input", "publishLine", "NATS publish")
	}

	if in.metrics != nil {
		in.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}
	return nil
}

// CreateInput creates a socket input component from raw JSON config.
func CreateInput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig InputConfig
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.Wrap(err, "socket-input-factory", "create", "secure config parsing")
		}

		if userConfig.MaxLineBytes > 0 {
			cfg.MaxLineBytes = userConfig.MaxLineBytes
		}
		if userConfig.RateLimit > 0 {
			cfg.RateLimit = userConfig.RateLimit
		}
		if userConfig.DialTimeoutSeconds > 0 {
			cfg.DialTimeoutSeconds = userConfig.DialTimeoutSeconds
		}
		if userConfig.TLSEnabled {
			cfg.TLSEnabled = true
			cfg.TLS = userConfig.TLS
		}
		if userConfig.Ports != nil {
			cfg.Ports = userConfig.Ports
		}
	}

	if deps.NATSClient == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("NATS client is required"),
			"socket-input-factory", "create", "NATS client validation")
	}

	input := NewInput(InputDeps{
		Name:            "socket-input",
		Config:          cfg,
		NATSClient:      deps.NATSClient,
		MetricsRegistry: deps.MetricsRegistry,
		Logger:          deps.GetLoggerWithComponent("socket-input"),
	})
	if input == nil {
		return nil, errors.WrapFatal(fmt.Errorf("component construction failed"),
			"socket-input-factory", "create", "component construction")
	}
	return input, nil
}

// Register registers the socket input component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "socket",
		Factory:     CreateInput,
		Schema:      socketSchema,
		Type:        "input",
		Protocol:    "tcp",
		Domain:      "text",
		Description: "TCP client input reading newline-delimited text from a line server",
		Version:     "1.0.0",
	})
}
