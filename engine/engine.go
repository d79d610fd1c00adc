package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/wordstream/component"
	"github.com/c360/wordstream/config"
	"github.com/c360/wordstream/errors"
	"github.com/c360/wordstream/health"
	"github.com/c360/wordstream/metric"
)

const defaultStopTimeout = 30 * time.Second

// Engine owns the runtime lifecycle of a word count pipeline. It creates
// component instances from configuration, starts them in dependency order
// (outputs before processors before inputs, so every subscriber is listening
// before the source emits a line), and stops them in the reverse order.
type Engine struct {
	registry *component.Registry
	deps     component.Dependencies
	logger   *slog.Logger
	metrics  *engineMetrics
	monitor  *health.Monitor

	mu         sync.Mutex
	components map[string]*component.ManagedComponent
	startOrder []string
	running    bool
}

// New creates an engine backed by the given component registry. Components
// created by the engine receive deps. A nil metricsRegistry disables engine
// metrics.
func New(registry *component.Registry, deps component.Dependencies, metricsRegistry *metric.MetricsRegistry) (*Engine, error) {
	if registry == nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("registry cannot be nil"),
			"Engine", "New", "registry validation")
	}

	logger := deps.GetLoggerWithComponent("engine")

	metrics, err := newEngineMetrics(metricsRegistry)
	if err != nil {
		logger.Error("Failed to initialize engine metrics", "error", err)
		metrics = nil
	}

	return &Engine{
		registry:   registry,
		deps:       deps,
		logger:     logger,
		metrics:    metrics,
		monitor:    health.NewMonitor(),
		components: make(map[string]*component.ManagedComponent),
	}, nil
}

// Initialize creates and initializes a component instance for every enabled
// entry in configs. Instance names are processed in sorted order so failures
// are deterministic. A create or initialize failure aborts the whole
// pipeline: a partially wired pipeline would silently drop batches.
func (e *Engine) Initialize(configs config.ComponentConfigs) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.WrapInvalid(
			fmt.Errorf("engine is running"),
			"Engine", "Initialize", "lifecycle check")
	}

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := configs[name]
		if !cfg.Enabled {
			e.logger.Info("Skipping disabled component", "component", name)
			continue
		}

		if err := cfg.Validate(); err != nil {
			return errors.WrapInvalid(err, "Engine", "Initialize",
				fmt.Sprintf("validate config for %s", name))
		}

		comp, err := e.registry.CreateComponent(cfg.Name, cfg.Config, e.deps)
		if err != nil {
			return errors.Wrap(err, "Engine", "Initialize",
				fmt.Sprintf("create component %s", name))
		}

		if err := e.registry.RegisterInstance(name, comp); err != nil {
			return errors.WrapInvalid(err, "Engine", "Initialize",
				fmt.Sprintf("register instance %s", name))
		}

		mc := &component.ManagedComponent{
			Component: comp,
			State:     component.StateCreated,
		}

		if lc, ok := component.AsLifecycleComponent(comp); ok {
			if err := lc.Initialize(); err != nil {
				mc.State = component.StateFailed
				mc.LastError = err
				e.components[name] = mc
				e.metrics.recordServiceStatus(name, metric.ServiceFailed)
				return errors.Wrap(err, "Engine", "Initialize",
					fmt.Sprintf("initialize component %s", name))
			}
		}

		mc.State = component.StateInitialized
		e.components[name] = mc
		e.metrics.recordCreate(string(cfg.Type))
		e.metrics.recordServiceStatus(name, metric.ServiceStopped)

		e.logger.Info("Component initialized",
			"component", name,
			"factory", cfg.Name,
			"type", cfg.Type)
	}

	if len(e.components) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("no enabled components"),
			"Engine", "Initialize", "pipeline must contain at least one component")
	}

	return nil
}

// Start starts every initialized component. Outputs start first and the
// source input starts last so no line is published before its consumers
// subscribe. Each component gets its own named child context; a start
// failure rolls back the components already started.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.WrapInvalid(
			fmt.Errorf("context cannot be nil"),
			"Engine", "Start", "context validation")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return errors.WrapInvalid(
			fmt.Errorf("engine already started"),
			"Engine", "Start", "lifecycle check")
	}
	if len(e.components) == 0 {
		return errors.WrapInvalid(
			fmt.Errorf("no components initialized"),
			"Engine", "Start", "Initialize must run first")
	}

	order := e.startupOrder()

	for i, name := range order {
		mc := e.components[name]
		lc, ok := component.AsLifecycleComponent(mc.Component)
		if !ok {
			mc.StartOrder = i
			e.startOrder = append(e.startOrder, name)
			e.metrics.recordServiceStatus(name, metric.ServiceRunning)
			continue
		}

		compCtx, cancel := context.WithCancel(ctx)
		mc.Context = compCtx
		mc.Cancel = cancel

		e.metrics.recordServiceStatus(name, metric.ServiceStarting)

		begin := time.Now()
		if err := lc.Start(compCtx); err != nil {
			cancel()
			mc.State = component.StateFailed
			mc.LastError = err
			e.metrics.recordStart(name, false, time.Since(begin).Seconds())
			e.metrics.recordServiceStatus(name, metric.ServiceFailed)

			e.logger.Error("Component failed to start, rolling back",
				"component", name, "error", err)
			e.stopStartedLocked(defaultStopTimeout)

			return errors.Wrap(err, "Engine", "Start",
				fmt.Sprintf("start component %s", name))
		}

		mc.State = component.StateStarted
		mc.StartOrder = i
		e.startOrder = append(e.startOrder, name)
		e.metrics.recordStart(name, true, time.Since(begin).Seconds())
		e.metrics.recordServiceStatus(name, metric.ServiceRunning)

		e.logger.Info("Component started", "component", name, "order", i)
	}

	e.running = true
	e.metrics.setRunning(float64(len(e.startOrder)))
	return nil
}

// AwaitTermination blocks until the timeout elapses or ctx is cancelled,
// whichever comes first. A timeout of zero or less blocks until ctx is
// cancelled. It returns the reason the wait ended.
func (e *Engine) AwaitTermination(ctx context.Context, timeout time.Duration) error {
	if ctx == nil {
		return errors.WrapInvalid(
			fmt.Errorf("context cannot be nil"),
			"Engine", "AwaitTermination", "context validation")
	}

	if timeout <= 0 {
		<-ctx.Done()
		e.logger.Info("Termination requested", "reason", "context cancelled")
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		e.logger.Info("Termination requested", "reason", "context cancelled")
	case <-timer.C:
		e.logger.Info("Termination timeout elapsed", "timeout", timeout)
	}
	return nil
}

// Run is a convenience wrapper: Start, wait for ctx cancellation or the
// termination timeout, then Stop.
func (e *Engine) Run(ctx context.Context, terminationTimeout time.Duration) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	if err := e.AwaitTermination(ctx, terminationTimeout); err != nil {
		return err
	}
	return e.Stop(defaultStopTimeout)
}

// Stop stops all started components in reverse start order: the source
// first so no new lines enter the pipeline, outputs last so in-flight
// batches still drain. Stop errors are collected, not short-circuited.
// Safe to call more than once.
func (e *Engine) Stop(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	err := e.stopStartedLocked(timeout)
	e.running = false
	return err
}

// stopStartedLocked stops everything started, inputs first and outputs
// last, reversing the start grouping. Components within a group stop
// concurrently; groups stop strictly in sequence so the pipeline drains
// front to back. Caller holds e.mu.
func (e *Engine) stopStartedLocked(timeout time.Duration) error {
	var errMu sync.Mutex
	var errs []error

	for _, group := range e.shutdownGroups() {
		var g errgroup.Group
		for _, name := range group {
			mc := e.components[name]
			if mc == nil || mc.State != component.StateStarted {
				continue
			}

			if mc.Cancel != nil {
				mc.Cancel()
			}

			lc, ok := component.AsLifecycleComponent(mc.Component)
			if !ok {
				mc.State = component.StateStopped
				e.metrics.recordServiceStatus(name, metric.ServiceStopped)
				continue
			}

			name := name
			g.Go(func() error {
				e.metrics.recordServiceStatus(name, metric.ServiceStopping)
				begin := time.Now()
				if err := lc.Stop(timeout); err != nil {
					mc.State = component.StateFailed
					mc.LastError = err
					e.metrics.recordStop(name, false, time.Since(begin).Seconds())
					e.metrics.recordServiceStatus(name, metric.ServiceFailed)
					e.logger.Error("Component failed to stop", "component", name, "error", err)
					errMu.Lock()
					errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
					errMu.Unlock()
					return nil
				}

				mc.State = component.StateStopped
				e.metrics.recordStop(name, true, time.Since(begin).Seconds())
				e.metrics.recordServiceStatus(name, metric.ServiceStopped)
				e.logger.Info("Component stopped", "component", name)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, name := range e.startOrder {
		e.registry.UnregisterInstance(name)
	}
	e.startOrder = nil
	e.metrics.setRunning(0)

	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), "Engine", "Stop", "stop components")
	}
	return nil
}

func typeRank(mc *component.ManagedComponent) int {
	switch mc.Component.Meta().Type {
	case "output":
		return 0
	case "processor":
		return 1
	case "input":
		return 2
	default:
		return 3
	}
}

// startupOrder returns instance names grouped by component type: outputs,
// then processors, then inputs, each group sorted by name.
func (e *Engine) startupOrder() []string {
	names := make([]string, 0, len(e.components))
	for name := range e.components {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := typeRank(e.components[names[i]]), typeRank(e.components[names[j]])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// shutdownGroups buckets the started components by type rank, highest
// first, so inputs stop before processors before outputs.
func (e *Engine) shutdownGroups() [][]string {
	buckets := make(map[int][]string)
	for _, name := range e.startOrder {
		mc := e.components[name]
		if mc == nil {
			continue
		}
		r := typeRank(mc)
		buckets[r] = append(buckets[r], name)
	}

	groups := make([][]string, 0, len(buckets))
	for r := 3; r >= 0; r-- {
		if len(buckets[r]) > 0 {
			groups = append(groups, buckets[r])
		}
	}
	return groups
}

// States returns the lifecycle state of every managed component.
func (e *Engine) States() map[string]component.State {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := make(map[string]component.State, len(e.components))
	for name, mc := range e.components {
		states[name] = mc.State
	}
	return states
}

// Health reports per-component health for all managed components.
func (e *Engine) Health() map[string]component.HealthStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := make(map[string]component.HealthStatus, len(e.components))
	for name, mc := range e.components {
		statuses[name] = mc.Component.Health()
	}
	return statuses
}

// SystemHealth aggregates every component's health into a single pipeline
// status. Any unhealthy component makes the pipeline unhealthy.
func (e *Engine) SystemHealth() health.Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, mc := range e.components {
		status := health.FromComponentHealth(name, mc.Component.Health())
		e.monitor.Update(name, status)
		e.metrics.recordHealth(name, status.Healthy)
	}

	aggregate := e.monitor.AggregateHealth("pipeline")
	e.metrics.recordHealth("pipeline", aggregate.Healthy)
	return aggregate
}

// Running reports whether Start has completed and Stop has not.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
