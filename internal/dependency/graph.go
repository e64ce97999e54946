package dependency

import (
	"slices"
	"sort"

	"kubeship/internal/manifest"
)

// NodeID is the unique identifier for a node inside a dependency graph: the
// service name.
type NodeID string

// NodeKind categorises nodes.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	// KindService is a service reconciled in the region.
	KindService
	// KindExternal is a service managed outside the region's reconciliation.
	KindExternal
)

// Node represents a service together with the services it declares as
// dependencies.
type Node struct {
	ID        NodeID
	Kind      NodeKind
	DependsOn []NodeID
}

// Graph answers dependency queries over the services of a region. It is not
// thread-safe; callers must synchronise if they write concurrently.
type Graph struct {
	nodes map[NodeID]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// FromManifests builds the graph of the declared dependencies of services.
func FromManifests(services []*manifest.Manifest) *Graph {
	g := New()
	for _, m := range services {
		n := Node{ID: NodeID(m.Name), Kind: KindService}
		if m.External {
			n.Kind = KindExternal
		}
		for _, d := range m.Dependencies {
			n.DependsOn = append(n.DependsOn, NodeID(d.Name))
		}
		g.AddNode(n)
	}
	return g
}

// AddNode adds (or replaces) a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = slices.Clone(n.DependsOn)
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// IDs returns every node id in sorted order.
func (g *Graph) IDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Dependencies returns the immediate dependencies of a node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		return slices.Clone(n.DependsOn)
	}
	return nil
}

// Dependents returns the sorted ids of nodes that directly depend on id.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		if slices.Contains(n.DependsOn, id) {
			res = append(res, n.ID)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Missing returns the dependencies of id that are not nodes of the graph.
func (g *Graph) Missing(id NodeID) []NodeID {
	var res []NodeID
	for _, dep := range g.Dependencies(id) {
		if _, ok := g.nodes[dep]; !ok {
			res = append(res, dep)
		}
	}
	return res
}

// FindCycle returns one dependency cycle, starting and ending with the same
// node, or nil when the graph is acyclic.
func (g *Graph) FindCycle() []NodeID {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[NodeID]int, len(g.nodes))
	var stack []NodeID

	var visit func(id NodeID) []NodeID
	visit = func(id NodeID) []NodeID {
		state[id] = visiting
		stack = append(stack, id)
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			switch state[dep] {
			case visiting:
				start := slices.Index(stack, dep)
				return append(slices.Clone(stack[start:]), dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
		return nil
	}

	for _, id := range g.IDs() {
		if state[id] == unvisited {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}
