package manifest

import (
	"maps"
	"slices"
)

// Clone returns a copy of m that a worker may enrich without affecting
// other holders. Top level maps and slices are copied; nested blocks are
// shared and must be treated as read-only.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Regions = slices.Clone(m.Regions)
	c.Command = slices.Clone(m.Command)
	c.Env = maps.Clone(m.Env)
	c.Ports = slices.Clone(m.Ports)
	c.Dependencies = slices.Clone(m.Dependencies)
	c.Workers = slices.Clone(m.Workers)
	c.Sidecars = slices.Clone(m.Sidecars)
	c.InitContainers = slices.Clone(m.InitContainers)
	c.Jobs = slices.Clone(m.Jobs)
	c.CronJobs = slices.Clone(m.CronJobs)
	c.ServiceAnnotations = maps.Clone(m.ServiceAnnotations)
	c.Labels = maps.Clone(m.Labels)
	c.SourceRanges = slices.Clone(m.SourceRanges)
	c.Rbac = slices.Clone(m.Rbac)
	if m.Version != nil {
		v := *m.Version
		c.Version = &v
	}
	return &c
}

// Simple projects a resolved manifest onto the listing view.
func (m *Manifest) Simple() *SimpleManifest {
	return &SimpleManifest{
		BaseManifest: BaseManifest{Name: m.Name, Regions: m.Regions, Metadata: m.Metadata},
		Region:       m.Region,
		Enabled:      !m.Disabled && slices.Contains(m.Regions, m.Region),
		External:     m.External,
		Image:        m.Image,
		Version:      m.Version,
		Gateway:      m.Gateway,
	}
}
