// Package console provides an output component that prints word count
// batches to a writer in the classic micro-batch console format.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/errors"
	"github.com/c360/wordstream/message"
	"github.com/c360/wordstream/natsclient"
	"github.com/c360/wordstream/pkg/timestamp"
)

const (
	defaultSubject = "text.counts"
	headerRule     = "-------------------------------------------"
)

// consoleSchema defines the configuration schema for the console output.
var consoleSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the console output component.
type Config struct {
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// DefaultConfig returns the default configuration for the console output.
func DefaultConfig() Config {
	return Config{
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

// Output prints each word count batch as a timestamp header followed by
// (word, count) lines:
//
//	-------------------------------------------
//	Time: 2026-08-29 12:00:02
//	-------------------------------------------
//	(apache, 1)
//	(spark, 1)
type Output struct {
	name       string
	subjects   []string
	natsClient *natsclient.Client
	logger     *slog.Logger

	writer  io.Writer
	writeMu sync.Mutex

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex

	// Metrics
	batchesPrinted atomic.Int64
	wordsPrinted   atomic.Int64
	errorCount     atomic.Int64
	lastActivity   atomic.Value // stores time.Time
}

var _ component.Discoverable = (*Output)(nil)
var _ component.LifecycleComponent = (*Output)(nil)

// NewOutput creates a console output from raw JSON configuration, printing
// to stdout.
func NewOutput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	return NewOutputWithWriter(rawConfig, deps, os.Stdout)
}

// NewOutputWithWriter creates a console output printing to the given writer.
func NewOutputWithWriter(rawConfig json.RawMessage, deps component.Dependencies, w io.Writer) (*Output, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig Config
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.WrapInvalid(err, "ConsoleOutput", "NewOutputWithWriter", "config unmarshal")
		}
		if userConfig.Ports != nil {
			cfg.Ports = userConfig.Ports
		}
	}

	var subjects []string
	for _, input := range cfg.Ports.Inputs {
		if input.Type == "nats" && input.Subject != "" {
			subjects = append(subjects, input.Subject)
		}
	}
	if len(subjects) == 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"ConsoleOutput", "NewOutputWithWriter", "no input subjects configured")
	}

	return &Output{
		name:       "console-output",
		subjects:   subjects,
		natsClient: deps.NATSClient,
		logger:     deps.GetLoggerWithComponent("console-output"),
		writer:     w,
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Initialize prepares the output.
func (o *Output) Initialize() error {
	if o.writer == nil {
		return errors.WrapInvalid(fmt.Errorf("nil writer"),
			"ConsoleOutput", "Initialize", "writer validation")
	}
	return nil
}

// Start subscribes to the counts subjects.
func (o *Output) Start(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if o.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "ConsoleOutput", "Start", "check running state")
	}
	if o.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "ConsoleOutput", "Start", "NATS client required")
	}

	// Fresh channels so a stopped output can start again
	o.shutdown = make(chan struct{})
	o.done = make(chan struct{})
	o.closeOnce = sync.Once{}

	for _, subject := range o.subjects {
		if err := o.natsClient.Subscribe(ctx, subject, o.handleMessage); err != nil {
			return errors.WrapTransient(err, "ConsoleOutput", "Start",
				fmt.Sprintf("subscribe to %s", subject))
		}
	}

	o.mu.Lock()
	o.running = true
	o.startTime = time.Now()
	o.mu.Unlock()

	o.logger.Info("Console output started", "input_subjects", o.subjects)
	return nil
}

// Stop gracefully stops the output.
func (o *Output) Stop(_ time.Duration) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if !o.running {
		return nil
	}

	close(o.shutdown)

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	o.closeOnce.Do(func() {
		close(o.done)
	})

	return nil
}

// handleMessage prints one word count batch.
func (o *Output) handleMessage(_ context.Context, msgData []byte) {
	o.lastActivity.Store(time.Now())

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msgData, &baseMsg); err != nil {
		o.errorCount.Add(1)
		o.logger.Debug("Failed to parse message", "error", err)
		return
	}

	counts, ok := baseMsg.Payload().(*message.WordCountsPayload)
	if !ok {
		o.errorCount.Add(1)
		o.logger.Debug("Payload is not a word count batch",
			"actual_type", fmt.Sprintf("%T", baseMsg.Payload()))
		return
	}

	if err := o.printBatch(counts); err != nil {
		o.errorCount.Add(1)
		o.logger.Error("Failed to write batch", "error", err)
		return
	}

	o.batchesPrinted.Add(1)
	o.wordsPrinted.Add(int64(len(counts.Counts)))
}

// printBatch renders one batch to the writer. A single write keeps batches
// from interleaving when multiple subjects feed the same writer.
func (o *Output) printBatch(counts *message.WordCountsPayload) error {
	var b strings.Builder
	b.WriteString(headerRule)
	b.WriteByte('\n')
	b.WriteString("Time: ")
	b.WriteString(timestamp.FormatBatchTime(counts.WindowEnd))
	b.WriteByte('\n')
	b.WriteString(headerRule)
	b.WriteByte('\n')
	for _, wc := range counts.Counts {
		fmt.Fprintf(&b, "(%s, %d)\n", wc.Word, wc.Count)
	}
	b.WriteByte('\n')

	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	_, err := io.WriteString(o.writer, b.String())
	return err
}

// Meta returns component metadata.
func (o *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        o.name,
		Type:        "output",
		Description: "Console printer for word count batches",
		Version:     "1.0.0",
	}
}

// InputPorts returns the counts input ports.
func (o *Output) InputPorts() []component.Port {
	ports := make([]component.Port, len(o.subjects))
	for i, subj := range o.subjects {
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

// OutputPorts returns no ports; the console is a sink.
func (o *Output) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (o *Output) ConfigSchema() component.ConfigSchema {
	return consoleSchema
}

// Health returns the current health status.
func (o *Output) Health() component.HealthStatus {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    o.running,
		LastCheck:  time.Now(),
		ErrorCount: int(o.errorCount.Load()),
		Uptime:     time.Since(o.startTime),
	}
}

// DataFlow returns current data flow metrics.
func (o *Output) DataFlow() component.FlowMetrics {
	printed := o.batchesPrinted.Load()
	lastActivity, _ := o.lastActivity.Load().(time.Time)

	var errorRate float64
	if printed > 0 {
		errorRate = float64(o.errorCount.Load()) / float64(printed)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: lastActivity,
	}
}

// Register registers the console output component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "console",
		Factory:     NewOutput,
		Schema:      consoleSchema,
		Type:        "output",
		Protocol:    "stdio",
		Domain:      "text",
		Description: "Console output printing word count batches with a timestamp header",
		Version:     "1.0.0",
	})
}
