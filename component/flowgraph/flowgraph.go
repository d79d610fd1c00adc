// Package flowgraph models a pipeline as a directed graph of component
// ports and infers the edges between them from matching NATS subjects and
// network addresses. The engine uses it to verify a pipeline is fully wired
// before starting it.
package flowgraph

import (
	"fmt"
	"strings"

	"github.com/c360/wordstream/component"
)

// InteractionPattern classifies how two ports talk to each other.
type InteractionPattern string

const (
	// PatternStream covers NATS and JetStream publish/subscribe ports.
	PatternStream InteractionPattern = "stream"
	// PatternRequest covers bidirectional NATS request-reply ports.
	PatternRequest InteractionPattern = "request"
	// PatternNetwork covers TCP and HTTP ports at the pipeline boundary.
	PatternNetwork InteractionPattern = "network"
)

// FlowGraph is a directed graph of component connections.
type FlowGraph struct {
	nodes map[string]*ComponentNode
	edges []FlowEdge
}

// ComponentNode is one component and its ports.
type ComponentNode struct {
	ComponentName string
	Component     component.Discoverable
	InputPorts    []PortInfo
	OutputPorts   []PortInfo
}

// PortInfo is the port metadata the graph needs for matching.
type PortInfo struct {
	Name         string
	Direction    component.Direction
	ConnectionID string   // subject, stream name, or network address
	Subjects     []string // subjects a stream port publishes or consumes
	Pattern      InteractionPattern
	Interface    *component.InterfaceContract
	Required     bool
}

// FlowEdge is a connection between two component ports.
type FlowEdge struct {
	From         ComponentPortRef   `json:"from"`
	To           ComponentPortRef   `json:"to"`
	Pattern      InteractionPattern `json:"pattern"`
	ConnectionID string             `json:"connection_id"`
}

// ComponentPortRef names one port on one component.
type ComponentPortRef struct {
	ComponentName string `json:"component_name"`
	PortName      string `json:"port_name"`
}

// FlowAnalysisResult reports what AnalyzeConnectivity found.
type FlowAnalysisResult struct {
	ConnectedComponents [][]string         `json:"connected_components"`
	ConnectedEdges      []FlowEdge         `json:"connected_edges"`
	DisconnectedNodes   []DisconnectedNode `json:"disconnected_nodes"`
	OrphanedPorts       []OrphanedPort     `json:"orphaned_ports"`
	ValidationStatus    string             `json:"validation_status"` // "healthy" or "warnings"
}

// DisconnectedNode is a component with no edges at all.
type DisconnectedNode struct {
	ComponentName string `json:"component_name"`
	Issue         string `json:"issue"`
}

// OrphanedPort is a port with no matching peer.
type OrphanedPort struct {
	ComponentName string              `json:"component_name"`
	PortName      string              `json:"port_name"`
	Direction     component.Direction `json:"direction"`
	ConnectionID  string              `json:"connection_id"`
	Pattern       InteractionPattern  `json:"pattern"`
	Issue         string              `json:"issue"` // "no_publishers", "no_subscribers", "optional_api_unused"
	Required      bool                `json:"required"`
}

// NewFlowGraph creates an empty graph.
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		nodes: make(map[string]*ComponentNode),
	}
}

// AddComponentNode adds a component and snapshots its ports.
func (g *FlowGraph) AddComponentNode(name string, comp component.Discoverable) error {
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}
	if comp == nil {
		return fmt.Errorf("component cannot be nil")
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("component %s already exists in graph", name)
	}

	g.nodes[name] = &ComponentNode{
		ComponentName: name,
		Component:     comp,
		InputPorts:    portInfos(comp.InputPorts()),
		OutputPorts:   portInfos(comp.OutputPorts()),
	}
	return nil
}

// Nodes returns a copy of the graph's nodes.
func (g *FlowGraph) Nodes() map[string]*ComponentNode {
	result := make(map[string]*ComponentNode, len(g.nodes))
	for name, node := range g.nodes {
		nodeCopy := &ComponentNode{
			ComponentName: node.ComponentName,
			Component:     node.Component,
			InputPorts:    make([]PortInfo, len(node.InputPorts)),
			OutputPorts:   make([]PortInfo, len(node.OutputPorts)),
		}
		copy(nodeCopy.InputPorts, node.InputPorts)
		copy(nodeCopy.OutputPorts, node.OutputPorts)
		result[name] = nodeCopy
	}
	return result
}

// Edges returns a copy of the graph's edges.
func (g *FlowGraph) Edges() []FlowEdge {
	result := make([]FlowEdge, len(g.edges))
	copy(result, g.edges)
	return result
}

func portInfos(ports []component.Port) []PortInfo {
	result := make([]PortInfo, 0, len(ports))
	for _, port := range ports {
		result = append(result, PortInfo{
			Name:         port.Name,
			Direction:    port.Direction,
			ConnectionID: connectionID(port.Config),
			Subjects:     streamSubjects(port.Config),
			Pattern:      patternFor(port.Config),
			Interface:    interfaceContract(port.Config),
			Required:     port.Required,
		})
	}
	return result
}

func patternFor(portConfig component.Portable) InteractionPattern {
	switch portConfig.(type) {
	case component.NATSRequestPort:
		return PatternRequest
	case component.NetworkPort:
		return PatternNetwork
	default:
		// NATSPort, JetStreamPort, and anything unrecognized
		return PatternStream
	}
}

func interfaceContract(portConfig component.Portable) *component.InterfaceContract {
	switch config := portConfig.(type) {
	case component.NATSPort:
		return config.Interface
	case component.NATSRequestPort:
		return config.Interface
	case component.JetStreamPort:
		return config.Interface
	default:
		return nil
	}
}

// streamSubjects returns the subjects a stream port carries. A JetStream
// port lists its bound subjects so it can still match a core NATS port on
// the same subject; it falls back to the stream name when none are listed.
func streamSubjects(portConfig component.Portable) []string {
	switch config := portConfig.(type) {
	case component.NATSPort:
		if config.Subject == "" {
			return nil
		}
		return []string{config.Subject}
	case component.JetStreamPort:
		if len(config.Subjects) > 0 {
			return config.Subjects
		}
		if config.StreamName != "" {
			return []string{config.StreamName}
		}
		return nil
	default:
		return nil
	}
}

func connectionID(portConfig component.Portable) string {
	if portConfig == nil {
		return "nil_port_config"
	}

	switch config := portConfig.(type) {
	case component.NATSPort:
		if config.Subject == "" {
			return "nats_missing_subject"
		}
		return config.Subject
	case component.NATSRequestPort:
		if config.Subject == "" {
			return "nats_request_missing_subject"
		}
		return config.Subject
	case component.JetStreamPort:
		if config.StreamName != "" {
			return config.StreamName
		}
		if len(config.Subjects) > 0 {
			return config.Subjects[0]
		}
		return "jetstream_unknown"
	case component.NetworkPort:
		if config.Host == "" || config.Port == 0 {
			return fmt.Sprintf("network_incomplete_%s_%d", config.Host, config.Port)
		}
		return fmt.Sprintf("%s:%s:%d", config.Protocol, config.Host, config.Port)
	default:
		return fmt.Sprintf("unknown_type_%T", config)
	}
}

// ConnectComponentsByPatterns rebuilds the edge set by matching output ports
// to input ports. Stream ports connect on matching subjects, request ports
// connect bidirectionally on a shared subject, and network ports stay
// edge-free but are checked for bind conflicts. A conflict is an error:
// two components cannot listen on the same address.
func (g *FlowGraph) ConnectComponentsByPatterns() error {
	g.edges = g.edges[:0]

	publishers := g.portsByPattern(outputs)
	subscribers := g.portsByPattern(inputs)

	g.connectStreamPorts(g.streamPorts(outputs), g.streamPorts(inputs))
	g.connectRequestPorts(publishers[PatternRequest], subscribers[PatternRequest])

	if conflicts := networkConflicts(publishers[PatternNetwork], subscribers[PatternNetwork]); len(conflicts) > 0 {
		return fmt.Errorf("network port conflicts: %v", conflicts)
	}
	return nil
}

type portSide int

const (
	inputs portSide = iota
	outputs
)

// portsByPattern groups one side's ports by pattern and connection ID.
func (g *FlowGraph) portsByPattern(side portSide) map[InteractionPattern]map[string][]ComponentPortRef {
	grouped := make(map[InteractionPattern]map[string][]ComponentPortRef)

	for componentName, node := range g.nodes {
		ports := node.InputPorts
		if side == outputs {
			ports = node.OutputPorts
		}
		for _, port := range ports {
			if grouped[port.Pattern] == nil {
				grouped[port.Pattern] = make(map[string][]ComponentPortRef)
			}
			grouped[port.Pattern][port.ConnectionID] = append(
				grouped[port.Pattern][port.ConnectionID],
				ComponentPortRef{ComponentName: componentName, PortName: port.Name},
			)
		}
	}
	return grouped
}

// streamPort is one stream-pattern port with the subjects it carries.
type streamPort struct {
	ref          ComponentPortRef
	connectionID string
	subjects     []string
}

// streamPorts collects one side's stream-pattern ports.
func (g *FlowGraph) streamPorts(side portSide) []streamPort {
	var result []streamPort
	for componentName, node := range g.nodes {
		ports := node.InputPorts
		if side == outputs {
			ports = node.OutputPorts
		}
		for _, port := range ports {
			if port.Pattern != PatternStream {
				continue
			}
			result = append(result, streamPort{
				ref:          ComponentPortRef{ComponentName: componentName, PortName: port.Name},
				connectionID: port.ConnectionID,
				subjects:     port.Subjects,
			})
		}
	}
	return result
}

// connectStreamPorts links publishers to subscribers sharing at least one
// subject. Matching is on subjects rather than connection IDs so a
// JetStream port, which keys its connection ID on the stream name, still
// connects to a core NATS port carrying the same subject.
func (g *FlowGraph) connectStreamPorts(publishers, subscribers []streamPort) {
	for _, pub := range publishers {
		for _, sub := range subscribers {
			if !streamPortsOverlap(pub.subjects, sub.subjects) {
				continue
			}
			g.edges = append(g.edges, FlowEdge{
				From:         pub.ref,
				To:           sub.ref,
				Pattern:      PatternStream,
				ConnectionID: pub.connectionID,
			})
		}
	}
}

// streamPortsOverlap reports whether any publisher subject can reach any
// subscriber subject.
func streamPortsOverlap(pubSubjects, subSubjects []string) bool {
	for _, p := range pubSubjects {
		for _, s := range subSubjects {
			if subjectsOverlap(p, s) {
				return true
			}
		}
	}
	return false
}

// connectRequestPorts links every pair of ports sharing a request subject.
// Request-reply is bidirectional so input and output sides merge.
func (g *FlowGraph) connectRequestPorts(publishers, subscribers map[string][]ComponentPortRef) {
	allPorts := make(map[string][]ComponentPortRef)
	for subject, ports := range publishers {
		allPorts[subject] = append(allPorts[subject], ports...)
	}
	for subject, ports := range subscribers {
		allPorts[subject] = append(allPorts[subject], ports...)
	}

	for subject, ports := range allPorts {
		for i, a := range ports {
			for j, b := range ports {
				if i < j {
					g.edges = append(g.edges, FlowEdge{
						From:         a,
						To:           b,
						Pattern:      PatternRequest,
						ConnectionID: subject,
					})
				}
			}
		}
	}
}

// networkConflicts reports addresses claimed by more than one component.
func networkConflicts(publishers, subscribers map[string][]ComponentPortRef) []string {
	var conflicts []string
	seen := make(map[string][]ComponentPortRef)

	for addr, ports := range publishers {
		if len(ports) > 1 {
			conflicts = append(conflicts,
				fmt.Sprintf("multiple components binding %s: %v", addr, ports))
		}
		seen[addr] = ports
	}
	for addr, ports := range subscribers {
		if existing, exists := seen[addr]; exists {
			conflicts = append(conflicts,
				fmt.Sprintf("%s claimed by both %v and %v", addr, existing, ports))
		} else if len(ports) > 1 {
			conflicts = append(conflicts,
				fmt.Sprintf("multiple components binding %s: %v", addr, ports))
		}
	}
	return conflicts
}

// subjectsOverlap reports whether two NATS subjects can carry the same
// message. Either side may hold wildcards: * matches one token, > matches
// one or more trailing tokens.
func subjectsOverlap(a, b string) bool {
	if a == b {
		return true
	}

	aWild := strings.ContainsAny(a, "*>")
	bWild := strings.ContainsAny(b, "*>")
	if !aWild && !bWild {
		return false
	}

	aTokens := strings.Split(a, ".")
	bTokens := strings.Split(b, ".")
	if aWild && bWild {
		return matchTokens(aTokens, bTokens) || matchTokens(bTokens, aTokens)
	}
	if bWild {
		return matchTokens(aTokens, bTokens)
	}
	return matchTokens(bTokens, aTokens)
}

// matchTokens matches subject tokens against pattern tokens.
func matchTokens(subjectTokens, patternTokens []string) bool {
	i, j := 0, 0
	for i < len(patternTokens) {
		if patternTokens[i] == ">" {
			return true
		}
		if j >= len(subjectTokens) {
			return false
		}
		if patternTokens[i] != "*" && patternTokens[i] != subjectTokens[j] {
			return false
		}
		i++
		j++
	}
	return i == len(patternTokens) && j == len(subjectTokens)
}

// AnalyzeConnectivity inspects the wired graph and reports disconnected
// components and orphaned ports. Network boundary ports never count as
// orphaned: they ARE the pipeline's connection to the outside.
func (g *FlowGraph) AnalyzeConnectivity() *FlowAnalysisResult {
	result := &FlowAnalysisResult{
		ConnectedComponents: [][]string{},
		ConnectedEdges:      g.edges,
		DisconnectedNodes:   []DisconnectedNode{},
		OrphanedPorts:       []OrphanedPort{},
		ValidationStatus:    "healthy",
	}

	if clusters := g.connectedComponents(); clusters != nil {
		result.ConnectedComponents = clusters
	}
	if orphans := g.orphanedPorts(); orphans != nil {
		result.OrphanedPorts = orphans
	}

	for name := range g.nodes {
		connected := false
		for _, edge := range g.edges {
			if edge.From.ComponentName == name || edge.To.ComponentName == name {
				connected = true
				break
			}
		}
		if !connected {
			result.DisconnectedNodes = append(result.DisconnectedNodes, DisconnectedNode{
				ComponentName: name,
				Issue:         "component has no connections",
			})
		}
	}

	critical := false
	for _, port := range result.OrphanedPorts {
		if port.Pattern == PatternStream && port.Required {
			critical = true
			break
		}
	}
	if len(result.DisconnectedNodes) > 0 || critical {
		result.ValidationStatus = "warnings"
	}

	return result
}

// connectedComponents finds clusters of mutually reachable components,
// treating edges as undirected.
func (g *FlowGraph) connectedComponents() [][]string {
	adj := make(map[string][]string)
	for _, edge := range g.edges {
		adj[edge.From.ComponentName] = append(adj[edge.From.ComponentName], edge.To.ComponentName)
		adj[edge.To.ComponentName] = append(adj[edge.To.ComponentName], edge.From.ComponentName)
	}

	visited := make(map[string]bool)
	var clusters [][]string
	for name := range g.nodes {
		if visited[name] {
			continue
		}
		var cluster []string
		stack := []string{name}
		for len(stack) > 0 {
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[node] {
				continue
			}
			visited[node] = true
			cluster = append(cluster, node)
			stack = append(stack, adj[node]...)
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

func (g *FlowGraph) orphanedPorts() []OrphanedPort {
	connected := make(map[ComponentPortRef]bool)
	for _, edge := range g.edges {
		connected[edge.From] = true
		connected[edge.To] = true
	}

	var orphaned []OrphanedPort
	for componentName, node := range g.nodes {
		for _, port := range node.InputPorts {
			if port.Pattern == PatternNetwork {
				continue
			}
			if connected[ComponentPortRef{componentName, port.Name}] {
				continue
			}
			issue := "no_publishers"
			if port.Pattern == PatternRequest {
				issue = "optional_api_unused"
			}
			orphaned = append(orphaned, OrphanedPort{
				ComponentName: componentName,
				PortName:      port.Name,
				Direction:     port.Direction,
				ConnectionID:  port.ConnectionID,
				Pattern:       port.Pattern,
				Issue:         issue,
				Required:      port.Required,
			})
		}
		for _, port := range node.OutputPorts {
			if port.Pattern == PatternNetwork {
				continue
			}
			if connected[ComponentPortRef{componentName, port.Name}] {
				continue
			}
			issue := "no_subscribers"
			if port.Pattern == PatternRequest {
				issue = "optional_api_unused"
			}
			orphaned = append(orphaned, OrphanedPort{
				ComponentName: componentName,
				PortName:      port.Name,
				Direction:     port.Direction,
				ConnectionID:  port.ConnectionID,
				Pattern:       port.Pattern,
				Issue:         issue,
				Required:      port.Required,
			})
		}
	}
	return orphaned
}
