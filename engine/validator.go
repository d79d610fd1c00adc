package engine

import (
	"fmt"

	"github.com/c360/wordstream/component/flowgraph"
	"github.com/c360/wordstream/errors"
)

// Issue is a single problem found during pipeline wiring analysis.
type Issue struct {
	Type      string `json:"type"`     // "disconnected_component", "orphaned_port"
	Severity  string `json:"severity"` // "error", "warning"
	Component string `json:"component"`
	Port      string `json:"port,omitempty"`
	Message   string `json:"message"`
}

// WiringReport summarizes how the pipeline's components connect to each
// other through their NATS subjects and network ports.
type WiringReport struct {
	Status      string   `json:"status"` // "valid", "warnings", "errors"
	Errors      []Issue  `json:"errors"`
	Warnings    []Issue  `json:"warnings"`
	Connections []string `json:"connections"` // "socket-feed:line_out -> wordcount-main:line_in (text.line)"
}

// ValidateWiring builds a flow graph from the initialized components,
// auto-connects ports whose subjects match, and reports ports that have no
// peer. A required input with no publisher is an error: that component would
// sit idle forever. Unmatched optional ports are warnings.
//
// Call after Initialize and before Start.
func (e *Engine) ValidateWiring() (*WiringReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.components) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("no components initialized"),
			"Engine", "ValidateWiring", "Initialize must run first")
	}

	graph := flowgraph.NewFlowGraph()
	for name, mc := range e.components {
		if err := graph.AddComponentNode(name, mc.Component); err != nil {
			return nil, errors.WrapInvalid(err, "Engine", "ValidateWiring",
				fmt.Sprintf("add component %s to graph", name))
		}
	}

	if err := graph.ConnectComponentsByPatterns(); err != nil {
		return nil, errors.WrapInvalid(err, "Engine", "ValidateWiring", "connect components")
	}

	analysis := graph.AnalyzeConnectivity()
	report := &WiringReport{
		Status:   "valid",
		Errors:   []Issue{},
		Warnings: []Issue{},
	}

	for _, edge := range analysis.ConnectedEdges {
		report.Connections = append(report.Connections,
			fmt.Sprintf("%s:%s -> %s:%s (%s)",
				edge.From.ComponentName, edge.From.PortName,
				edge.To.ComponentName, edge.To.PortName,
				edge.ConnectionID))
	}

	// A single-component pipeline has nothing to connect to; flag it but
	// do not block startup, the component may talk only to the outside.
	for _, node := range analysis.DisconnectedNodes {
		report.Warnings = append(report.Warnings, Issue{
			Type:      "disconnected_component",
			Severity:  "warning",
			Component: node.ComponentName,
			Message:   node.Issue,
		})
	}

	for _, port := range analysis.OrphanedPorts {
		issue := Issue{
			Type:      "orphaned_port",
			Severity:  "warning",
			Component: port.ComponentName,
			Port:      port.PortName,
			Message:   fmt.Sprintf("port %s (%s): %s", port.PortName, port.ConnectionID, port.Issue),
		}
		if port.Required && port.Pattern == flowgraph.PatternStream {
			issue.Severity = "error"
			report.Errors = append(report.Errors, issue)
			continue
		}
		report.Warnings = append(report.Warnings, issue)
	}

	switch {
	case len(report.Errors) > 0:
		report.Status = "errors"
	case len(report.Warnings) > 0:
		report.Status = "warnings"
	}

	e.metrics.recordWiring(report)

	for _, issue := range report.Errors {
		e.logger.Error("Pipeline wiring error",
			"component", issue.Component, "port", issue.Port, "message", issue.Message)
	}
	for _, issue := range report.Warnings {
		e.logger.Warn("Pipeline wiring warning",
			"component", issue.Component, "port", issue.Port, "message", issue.Message)
	}

	return report, nil
}
