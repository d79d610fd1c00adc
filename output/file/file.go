// Package file provides an output component that writes word count batches
// to disk, either as JSON Lines or in the console text format.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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
	defaultSubject    = "text.counts"
	defaultDirectory  = "/tmp/wordstream"
	defaultPrefix     = "counts"
	defaultBufferSize = 16
	headerRule        = "-------------------------------------------"
)

// fileSchema defines the configuration schema for the file output.
var fileSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the file output component.
type Config struct {
	Ports      *component.PortConfig `json:"ports"       schema:"type:ports,description:Port configuration,category:basic"`
	Directory  string                `json:"directory"   schema:"type:string,description:Output directory,category:basic"`
	FilePrefix string                `json:"file_prefix" schema:"type:string,description:Output file name prefix,category:basic"`
	Format     string                `json:"format"      schema:"type:enum,enum:jsonl|text,description:Output format,category:basic"`
	Append     *bool                 `json:"append,omitempty" schema:"type:bool,description:Append to an existing file instead of truncating,category:advanced,default:true"`
	BufferSize int                   `json:"buffer_size" schema:"type:int,description:Batches buffered before a write,category:advanced"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Directory == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate", "directory is required")
	}
	if c.Format != "jsonl" && c.Format != "text" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"format must be one of: jsonl, text")
	}
	if c.BufferSize < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"buffer_size cannot be negative")
	}
	return nil
}

// DefaultConfig returns the default configuration for the file output.
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
		Directory:  defaultDirectory,
		FilePrefix: defaultPrefix,
		Format:     "jsonl",
		BufferSize: defaultBufferSize,
	}
}

// Output writes each word count batch to a single file. The jsonl format
// keeps one batch per line for downstream tooling; the text format mirrors
// the console output so a file can stand in for a terminal session.
type Output struct {
	name       string
	subjects   []string
	directory  string
	filePrefix string
	format     string
	append     bool
	bufferSize int
	natsClient *natsclient.Client
	logger     *slog.Logger

	file   *os.File
	fileMu sync.Mutex

	// Rendered batches waiting for the next write.
	buffer   [][]byte
	bufferMu sync.Mutex

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup

	// Metrics
	batchesWritten atomic.Int64
	bytesWritten   atomic.Int64
	errorCount     atomic.Int64
	lastActivity   atomic.Value // stores time.Time
}

var _ component.Discoverable = (*Output)(nil)
var _ component.LifecycleComponent = (*Output)(nil)

// NewOutput creates a file output from raw JSON configuration.
func NewOutput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig Config
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.WrapInvalid(err, "FileOutput", "NewOutput", "config unmarshal")
		}
		if userConfig.Ports != nil {
			cfg.Ports = userConfig.Ports
		}
		if userConfig.Directory != "" {
			cfg.Directory = userConfig.Directory
		}
		if userConfig.FilePrefix != "" {
			cfg.FilePrefix = userConfig.FilePrefix
		}
		if userConfig.Format != "" {
			cfg.Format = userConfig.Format
		}
		if userConfig.Append != nil {
			cfg.Append = userConfig.Append
		}
		if userConfig.BufferSize > 0 {
			cfg.BufferSize = userConfig.BufferSize
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
			"FileOutput", "NewOutput", "no input subjects configured")
	}

	appendMode := true
	if cfg.Append != nil {
		appendMode = *cfg.Append
	}

	return &Output{
		name:       "file-output",
		subjects:   subjects,
		directory:  cfg.Directory,
		filePrefix: cfg.FilePrefix,
		format:     cfg.Format,
		append:     appendMode,
		bufferSize: cfg.BufferSize,
		natsClient: deps.NATSClient,
		logger:     deps.GetLoggerWithComponent("file-output"),
		buffer:     make([][]byte, 0, cfg.BufferSize),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Initialize creates the output directory.
func (f *Output) Initialize() error {
	if err := os.MkdirAll(f.directory, 0o755); err != nil {
		return errors.WrapFatal(err, "FileOutput", "Initialize", "create output directory")
	}
	return nil
}

// Filename returns the path the output writes to.
func (f *Output) Filename() string {
	ext := "jsonl"
	if f.format == "text" {
		ext = "txt"
	}
	return filepath.Join(f.directory, fmt.Sprintf("%s.%s", f.filePrefix, ext))
}

// Start opens the output file and subscribes to the counts subjects.
func (f *Output) Start(ctx context.Context) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if f.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "FileOutput", "Start", "check running state")
	}
	if f.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "FileOutput", "Start", "NATS client required")
	}

	// Fresh channels so a stopped output can start again
	f.shutdown = make(chan struct{})
	f.done = make(chan struct{})
	f.closeOnce = sync.Once{}

	flags := os.O_CREATE | os.O_WRONLY
	if f.append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	filename := f.Filename()
	file, err := os.OpenFile(filename, flags, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "FileOutput", "Start", "open output file")
	}
	f.fileMu.Lock()
	f.file = file
	f.fileMu.Unlock()

	for _, subject := range f.subjects {
		if err := f.natsClient.Subscribe(ctx, subject, f.handleMessage); err != nil {
			return errors.WrapTransient(err, "FileOutput", "Start",
				fmt.Sprintf("subscribe to %s", subject))
		}
	}

	f.wg.Add(1)
	go f.flushLoop()

	f.mu.Lock()
	f.running = true
	f.startTime = time.Now()
	f.mu.Unlock()

	f.logger.Info("File output started",
		"input_subjects", f.subjects,
		"output_file", filename,
		"format", f.format,
		"append", f.append)
	return nil
}

// Stop flushes the buffer and closes the file.
func (f *Output) Stop(timeout time.Duration) error {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if !f.running {
		return nil
	}

	close(f.shutdown)

	waitCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout),
			"FileOutput", "Stop", "wait for flush loop")
	}

	f.flush()

	f.fileMu.Lock()
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			f.logger.Warn("Failed to close output file", "error", err, "path", f.file.Name())
		}
		f.file = nil
	}
	f.fileMu.Unlock()

	f.mu.Lock()
	f.running = false
	f.mu.Unlock()

	f.closeOnce.Do(func() {
		close(f.done)
	})

	return nil
}

// handleMessage renders one word count batch and buffers it for the next
// write.
func (f *Output) handleMessage(ctx context.Context, msgData []byte) {
	f.lastActivity.Store(time.Now())

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msgData, &baseMsg); err != nil {
		f.errorCount.Add(1)
		f.logger.Debug("Failed to parse message", "error", err)
		return
	}

	counts, ok := baseMsg.Payload().(*message.WordCountsPayload)
	if !ok {
		f.errorCount.Add(1)
		f.logger.Debug("Payload is not a word count batch",
			"actual_type", fmt.Sprintf("%T", baseMsg.Payload()))
		return
	}

	rendered, err := f.renderBatch(counts)
	if err != nil {
		f.errorCount.Add(1)
		f.logger.Error("Failed to render batch", "error", err)
		return
	}

	f.bufferMu.Lock()
	f.buffer = append(f.buffer, rendered)
	shouldFlush := len(f.buffer) >= f.bufferSize
	f.bufferMu.Unlock()

	if shouldFlush {
		select {
		case <-ctx.Done():
			return
		default:
		}
		f.flush()
	}
}

// renderBatch produces the bytes for one batch in the configured format.
func (f *Output) renderBatch(counts *message.WordCountsPayload) ([]byte, error) {
	if f.format == "jsonl" {
		data, err := json.Marshal(counts)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}

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
	return []byte(b.String()), nil
}

// flushLoop periodically flushes the buffer so batches reach disk even
// when traffic is too light to fill it.
func (f *Output) flushLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.shutdown:
			return
		case <-ticker.C:
			f.flush()
		}
	}
}

// flush writes buffered batches to the file.
func (f *Output) flush() {
	f.bufferMu.Lock()
	if len(f.buffer) == 0 {
		f.bufferMu.Unlock()
		return
	}
	batches := f.buffer
	f.buffer = make([][]byte, 0, f.bufferSize)
	f.bufferMu.Unlock()

	f.fileMu.Lock()
	defer f.fileMu.Unlock()

	if f.file == nil {
		f.errorCount.Add(int64(len(batches)))
		f.logger.Error("File handle is nil during flush", "batches_lost", len(batches))
		return
	}

	for _, batch := range batches {
		n, err := f.file.Write(batch)
		if err != nil {
			f.errorCount.Add(1)
			f.logger.Error("Failed to write batch to file", "error", err)
			continue
		}
		f.batchesWritten.Add(1)
		f.bytesWritten.Add(int64(n))
	}
}

// Meta returns component metadata.
func (f *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        f.name,
		Type:        "output",
		Description: "File writer for word count batches",
		Version:     "1.0.0",
	}
}

// InputPorts returns the counts input ports.
func (f *Output) InputPorts() []component.Port {
	ports := make([]component.Port, len(f.subjects))
	for i, subj := range f.subjects {
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

// OutputPorts returns no ports; the file writer is a sink.
func (f *Output) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (f *Output) ConfigSchema() component.ConfigSchema {
	return fileSchema
}

// Health returns the current health status.
func (f *Output) Health() component.HealthStatus {
	f.mu.RLock()
	running := f.running
	startTime := f.startTime
	f.mu.RUnlock()

	f.fileMu.Lock()
	open := f.file != nil
	f.fileMu.Unlock()

	return component.HealthStatus{
		Healthy:    running && open,
		LastCheck:  time.Now(),
		ErrorCount: int(f.errorCount.Load()),
		Uptime:     time.Since(startTime),
	}
}

// DataFlow returns current data flow metrics.
func (f *Output) DataFlow() component.FlowMetrics {
	written := f.batchesWritten.Load()
	lastActivity, _ := f.lastActivity.Load().(time.Time)

	var errorRate float64
	if written > 0 {
		errorRate = float64(f.errorCount.Load()) / float64(written)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: lastActivity,
	}
}

// Register registers the file output component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "file",
		Factory:     NewOutput,
		Schema:      fileSchema,
		Type:        "output",
		Protocol:    "file",
		Domain:      "text",
		Description: "File output writing word count batches as JSON Lines or console text",
		Version:     "1.0.0",
	})
}
