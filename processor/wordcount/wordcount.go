// Package wordcount provides a processor that discretizes a text line stream
// into fixed micro-batch windows of per-word counts.
package wordcount

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
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
	defaultInputSubject  = "text.line"
	defaultOutputSubject = "text.counts"
	defaultInterval      = 2 * time.Second
)

// wordCountSchema is generated once from Config struct tags.
var wordCountSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the word count processor.
type Config struct {
	// BatchIntervalSeconds is the micro-batch window length.
	BatchIntervalSeconds int `json:"batch_interval_seconds" schema:"type:int,description:Micro-batch window length in seconds,category:basic,default:2,min:1"`

	// Lowercase normalizes words before counting.
	Lowercase bool `json:"lowercase" schema:"type:bool,description:Lowercase words before counting,category:basic,default:false"`

	// EmitEmpty publishes a batch even when the window saw no words, so
	// downstream outputs print a header every interval.
	EmitEmpty *bool `json:"emit_empty,omitempty" schema:"type:bool,description:Publish empty batch windows,category:advanced,default:true"`

	// Ports configures the line input and counts output subjects.
	Ports *component.PortConfig `json:"ports" schema:"type:ports,description:Port configuration,category:basic"`
}

// DefaultConfig returns the default configuration for the word count processor.
func DefaultConfig() Config {
	return Config{
		BatchIntervalSeconds: int(defaultInterval.Seconds()),
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "lines_in",
					Type:        "nats",
					Subject:     defaultInputSubject,
					Interface:   "text.line",
					Required:    true,
					Description: "NATS subject carrying text lines",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "counts_out",
					Type:        "nats",
					Subject:     defaultOutputSubject,
					Interface:   "text.counts",
					Required:    true,
					Description: "NATS subject for per-window word counts",
				},
			},
		},
	}
}

// Processor accumulates (word, 1) pairs per micro-batch window and publishes
// the summed counts when the window closes. The accumulator swap happens
// under lock at the tick, so a word never counts in two windows.
type Processor struct {
	name       string
	subject    string
	stream     string // non-empty consumes from JetStream instead of core NATS
	outputSubj string
	interval   time.Duration
	lowercase  bool
	emitEmpty  bool
	natsClient *natsclient.Client
	logger     *slog.Logger

	// Current window accumulator
	countsMu    sync.Mutex
	counts      map[string]int64
	windowStart int64 // unix ms

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup

	// Counters for DataFlow
	linesProcessed atomic.Int64
	wordsCounted   atomic.Int64
	batchesEmitted atomic.Int64
	errorCount     atomic.Int64
	lastActivity   atomic.Value // stores time.Time

	metrics *wcMetrics
}

var _ component.Discoverable = (*Processor)(nil)
var _ component.LifecycleComponent = (*Processor)(nil)

// NewProcessor creates a word count processor from raw JSON configuration.
func NewProcessor(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig Config
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.WrapInvalid(err, "WordCountProcessor", "NewProcessor", "config unmarshal")
		}
		if userConfig.BatchIntervalSeconds > 0 {
			cfg.BatchIntervalSeconds = userConfig.BatchIntervalSeconds
		}
		cfg.Lowercase = userConfig.Lowercase
		if userConfig.EmitEmpty != nil {
			cfg.EmitEmpty = userConfig.EmitEmpty
		}
		if userConfig.Ports != nil {
			cfg.Ports = userConfig.Ports
		}
	}

	var subject, stream, outputSubj string
	for _, input := range cfg.Ports.Inputs {
		switch input.Type {
		case "jetstream":
			subject = input.Subject
			stream = input.StreamName
		case "nats":
			if subject == "" {
				subject = input.Subject
			}
		}
	}
	for _, output := range cfg.Ports.Outputs {
		if output.Type == "nats" {
			outputSubj = output.Subject
			break
		}
	}

	if subject == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"WordCountProcessor", "NewProcessor", "no input subject configured")
	}
	if outputSubj == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"WordCountProcessor", "NewProcessor", "no output subject configured")
	}

	emitEmpty := true
	if cfg.EmitEmpty != nil {
		emitEmpty = *cfg.EmitEmpty
	}

	metrics, err := newWCMetrics(deps.MetricsRegistry)
	if err != nil {
		deps.GetLogger().Error("Failed to initialize word count metrics", "error", err)
		metrics = nil
	}

	return &Processor{
		name:       "wordcount-processor",
		subject:    subject,
		stream:     stream,
		outputSubj: outputSubj,
		interval:   time.Duration(cfg.BatchIntervalSeconds) * time.Second,
		lowercase:  cfg.Lowercase,
		emitEmpty:  emitEmpty,
		natsClient: deps.NATSClient,
		logger:     deps.GetLoggerWithComponent("wordcount-processor"),
		counts:     make(map[string]int64),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
	}, nil
}

// Initialize prepares the processor.
func (p *Processor) Initialize() error {
	if p.interval <= 0 {
		return errors.WrapInvalid(fmt.Errorf("batch interval must be positive"),
			"WordCountProcessor", "Initialize", "interval validation")
	}
	return nil
}

// Start subscribes to the line subject and begins the window ticker.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "WordCountProcessor", "Start", "check running state")
	}
	if p.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "WordCountProcessor", "Start", "NATS client required")
	}

	// Fresh channels so a stopped processor can start again
	p.shutdown = make(chan struct{})
	p.done = make(chan struct{})

	var err error
	if p.stream != "" {
		err = p.natsClient.ConsumeStream(ctx, p.stream, p.subject, func(data []byte) {
			p.handleMessage(ctx, data)
		})
	} else {
		err = p.natsClient.Subscribe(ctx, p.subject, p.handleMessage)
	}
	if err != nil {
		return errors.WrapTransient(err, "WordCountProcessor", "Start",
			fmt.Sprintf("subscribe to %s", p.subject))
	}

	p.mu.Lock()
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.countsMu.Lock()
	p.windowStart = timestamp.Now()
	p.countsMu.Unlock()

	p.wg.Add(1)
	go p.tickLoop(ctx)

	p.logger.Info("Word count processor started",
		"input_subject", p.subject,
		"output_subject", p.outputSubj,
		"batch_interval", p.interval,
		"lowercase", p.lowercase,
		"emit_empty", p.emitEmpty)

	return nil
}

// Stop gracefully stops the processor.
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.shutdown)

	waitCh := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"WordCountProcessor", "Stop", "graceful shutdown")
	}

	p.mu.Lock()
	p.running = false
	close(p.done)
	p.mu.Unlock()

	return nil
}

// tickLoop closes the current window on every batch interval.
func (p *Processor) tickLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.emitWindow(ctx)
		}
	}
}

// handleMessage accumulates word counts from one text line message.
func (p *Processor) handleMessage(_ context.Context, msgData []byte) {
	p.lastActivity.Store(time.Now())

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msgData, &baseMsg); err != nil {
		p.errorCount.Add(1)
		p.metrics.recordError(p.name, "parse")
		p.logger.Debug("Failed to parse message", "error", err)
		return
	}

	linePayload, ok := baseMsg.Payload().(*message.TextLinePayload)
	if !ok {
		p.errorCount.Add(1)
		p.metrics.recordError(p.name, "type")
		p.logger.Debug("Payload is not a text line",
			"actual_type", fmt.Sprintf("%T", baseMsg.Payload()))
		return
	}

	words := strings.Fields(linePayload.Line)
	p.linesProcessed.Add(1)
	p.wordsCounted.Add(int64(len(words)))
	p.metrics.recordLine(p.name, len(words))

	if len(words) == 0 {
		return
	}

	p.countsMu.Lock()
	for _, word := range words {
		if p.lowercase {
			word = strings.ToLower(word)
		}
		p.counts[word]++
	}
	p.countsMu.Unlock()
}

// emitWindow swaps out the accumulator and publishes the closed window.
func (p *Processor) emitWindow(ctx context.Context) {
	p.countsMu.Lock()
	closed := p.counts
	windowStart := p.windowStart
	windowEnd := timestamp.Now()
	p.counts = make(map[string]int64)
	p.windowStart = windowEnd
	p.countsMu.Unlock()

	if len(closed) == 0 && !p.emitEmpty {
		return
	}

	payload := message.NewWordCounts(windowStart, windowEnd, sortedCounts(closed))
	outputMsg := message.NewBaseMessage(message.WordCounts, payload, p.name)

	data, err := json.Marshal(outputMsg)
	if err != nil {
		p.errorCount.Add(1)
		p.metrics.recordError(p.name, "marshal")
		p.logger.Error("Failed to marshal batch message", "error", err)
		return
	}

	start := time.Now()
	if err := p.natsClient.Publish(ctx, p.outputSubj, data); err != nil {
		p.errorCount.Add(1)
		p.metrics.recordError(p.name, "publish")
		p.logger.Error("Failed to publish batch",
			"output_subject", p.outputSubj,
			"error", err)
		return
	}

	p.batchesEmitted.Add(1)
	p.metrics.recordBatch(p.name, len(closed), time.Since(start))

	p.logger.Debug("Batch window emitted",
		"window_start", windowStart,
		"window_end", windowEnd,
		"distinct_words", len(closed))
}

// sortedCounts orders counts by descending count, then lexicographically,
// so batch output is deterministic.
func sortedCounts(counts map[string]int64) []message.WordCount {
	result := make([]message.WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, message.WordCount{Word: word, Count: count})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word < result[j].Word
	})

	return result
}

// Meta returns metadata describing this processor component.
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Per-window word counter over a text line stream",
		Version:     "1.0.0",
	}
}

// InputPorts returns the line input port.
func (p *Processor) InputPorts() []component.Port {
	if p.stream != "" {
		return []component.Port{
			{
				Name:      "lines_in",
				Direction: component.DirectionInput,
				Required:  true,
				Config: component.JetStreamPort{
					StreamName: p.stream,
					Subjects:   []string{p.subject},
				},
			},
		}
	}

	return []component.Port{
		{
			Name:      "lines_in",
			Direction: component.DirectionInput,
			Required:  true,
			Config: component.NATSPort{
				Subject: p.subject,
				Interface: &component.InterfaceContract{
					Type:    "text.line",
					Version: "v1",
				},
			},
		},
	}
}

// OutputPorts returns the counts output port.
func (p *Processor) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "counts_out",
			Direction: component.DirectionOutput,
			Required:  true,
			Config: component.NATSPort{
				Subject: p.outputSubj,
				Interface: &component.InterfaceContract{
					Type:    "text.counts",
					Version: "v1",
				},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this processor.
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return wordCountSchema
}

// Health returns the current health status of this processor.
func (p *Processor) Health() component.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    p.running,
		LastCheck:  time.Now(),
		ErrorCount: int(p.errorCount.Load()),
		Uptime:     time.Since(p.startTime),
	}
}

// DataFlow returns current data flow metrics for this processor.
func (p *Processor) DataFlow() component.FlowMetrics {
	lines := p.linesProcessed.Load()
	lastActivity, _ := p.lastActivity.Load().(time.Time)

	var linesPerSecond, errorRate float64
	p.mu.RLock()
	startTime := p.startTime
	p.mu.RUnlock()
	if uptime := time.Since(startTime).Seconds(); uptime > 0 && !startTime.IsZero() {
		linesPerSecond = float64(lines) / uptime
	}
	if lines > 0 {
		errorRate = float64(p.errorCount.Load()) / float64(lines)
	}

	return component.FlowMetrics{
		MessagesPerSecond: linesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// Register registers the word count processor with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "wordcount",
		Factory:     NewProcessor,
		Schema:      wordCountSchema,
		Type:        "processor",
		Protocol:    "nats",
		Domain:      "text",
		Description: "Micro-batch word counter summing (word, 1) pairs per window",
		Version:     "1.0.0",
	})
}
