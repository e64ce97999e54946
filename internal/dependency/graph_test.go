package dependency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kubeship/internal/manifest"
)

func svc(name string, deps ...string) *manifest.Manifest {
	m := &manifest.Manifest{Name: name}
	for _, d := range deps {
		m.Dependencies = append(m.Dependencies, manifest.Dependency{Name: d})
	}
	return m
}

func TestFromManifests(t *testing.T) {
	external := svc("payments-gateway")
	external.External = true

	g := FromManifests([]*manifest.Manifest{
		svc("auth"),
		svc("billing", "auth", "ledger"),
		svc("search", "auth"),
		external,
	})

	assert.Equal(t, []NodeID{"auth", "billing", "payments-gateway", "search"}, g.IDs())
	assert.Equal(t, KindExternal, g.Get("payments-gateway").Kind)
	assert.Equal(t, KindService, g.Get("auth").Kind)
	assert.Equal(t, []NodeID{"auth", "ledger"}, g.Dependencies("billing"))
	assert.Equal(t, []NodeID{"billing", "search"}, g.Dependents("auth"))
	assert.Equal(t, []NodeID{"ledger"}, g.Missing("billing"))
	assert.Nil(t, g.Missing("search"))
	assert.Nil(t, g.Dependencies("unknown"))
	assert.Nil(t, g.FindCycle())
}

func TestAddNodeCopies(t *testing.T) {
	deps := []NodeID{"a"}
	g := New()
	g.AddNode(Node{ID: "b", DependsOn: deps})
	deps[0] = "z"
	assert.Equal(t, []NodeID{"a"}, g.Dependencies("b"))

	out := g.Dependencies("b")
	out[0] = "y"
	assert.Equal(t, []NodeID{"a"}, g.Dependencies("b"))
}

func TestFindCycle(t *testing.T) {
	g := FromManifests([]*manifest.Manifest{
		svc("a", "b"),
		svc("b", "c"),
		svc("c", "a"),
		svc("d", "a"),
	})
	assert.Equal(t, []NodeID{"a", "b", "c", "a"}, g.FindCycle())

	self := FromManifests([]*manifest.Manifest{svc("loop", "loop")})
	assert.Equal(t, []NodeID{"loop", "loop"}, self.FindCycle())
}
