package manifest

import (
	"strings"

	"kubeship/pkg/merge"
)

// Container is a resolved auxiliary container: sidecar, init container, or
// the container of a worker or job.
type Container struct {
	Name           string            `json:"name"`
	Image          *string           `json:"image,omitempty"`
	Version        *string           `json:"version,omitempty"`
	Command        []string          `json:"command,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	Resources      *Resources        `json:"resources,omitempty"`
	Ports          []Port            `json:"ports,omitempty"`
	ReadinessProbe *Probe            `json:"readinessProbe,omitempty"`
	LivenessProbe  *Probe            `json:"livenessProbe,omitempty"`
}

// ContainerSource is the common part of every container block.
type ContainerSource struct {
	Name           string                      `yaml:"name,omitempty"`
	Image          *string                     `yaml:"image,omitempty"`
	Version        *string                     `yaml:"version,omitempty"`
	Command        []string                    `yaml:"command,omitempty"`
	Env            map[string]string           `yaml:"env,omitempty"`
	Resources      *ResourceRequirementsSource `yaml:"resources,omitempty"`
	Ports          []Port                      `yaml:"ports,omitempty"`
	ReadinessProbe *Probe                      `yaml:"readinessProbe,omitempty"`
	LivenessProbe  *Probe                      `yaml:"livenessProbe,omitempty"`
}

// ContainerBuildParams is the context shared by every container of a service.
type ContainerBuildParams struct {
	// ImagePrefix expands bare image names into <prefix>/<image>.
	ImagePrefix *string
	// Env is merged beneath each container's own env.
	Env map[string]string
}

// Build resolves the container.
func (s ContainerSource) Build(params ContainerBuildParams) (Container, error) {
	c := Container{
		Name:           s.Name,
		Image:          expandImage(s.Image, params.ImagePrefix),
		Version:        s.Version,
		Command:        s.Command,
		Env:            merge.Map(params.Env, s.Env),
		Ports:          s.Ports,
		ReadinessProbe: s.ReadinessProbe,
		LivenessProbe:  s.LivenessProbe,
	}
	if s.Resources != nil {
		res, err := s.Resources.Build()
		if err != nil {
			return Container{}, within("resources", err)
		}
		c.Resources = res
	}
	return c, nil
}

// buildNamed resolves a container that must carry a name.
func (s ContainerSource) buildNamed(params ContainerBuildParams) (Container, error) {
	if strings.TrimSpace(s.Name) == "" {
		return Container{}, requiredField("name")
	}
	return s.Build(params)
}

func expandImage(image, prefix *string) *string {
	if image == nil || prefix == nil || strings.Contains(*image, "/") {
		return image
	}
	expanded := *prefix + "/" + *image
	return &expanded
}
