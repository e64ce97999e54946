package manifest

import (
	"k8s.io/apimachinery/pkg/api/resource"
)

// Resources are the resolved requests and limits of a container.
type Resources struct {
	Requests ResourceRequest `json:"requests"`
	Limits   ResourceRequest `json:"limits"`
}

// ResourceRequest is a cpu and memory pair in Kubernetes quantity notation.
type ResourceRequest struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
}

// ResourceRequirementsSource is the resources block of a layer. It is
// replaced whole when a higher layer sets it.
type ResourceRequirementsSource struct {
	Requests ResourcesSource `yaml:"requests"`
	Limits   ResourcesSource `yaml:"limits"`
}

// ResourcesSource is a cpu and memory pair before validation.
type ResourcesSource struct {
	CPU    *string `yaml:"cpu,omitempty"`
	Memory *string `yaml:"memory,omitempty"`
}

// Build resolves and verifies the resources.
func (s ResourceRequirementsSource) Build() (*Resources, error) {
	requests, err := s.Requests.build("requests")
	if err != nil {
		return nil, err
	}
	limits, err := s.Limits.build("limits")
	if err != nil {
		return nil, err
	}
	r := &Resources{Requests: requests, Limits: limits}
	if err := r.Verify(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s ResourcesSource) build(prefix string) (ResourceRequest, error) {
	if s.CPU == nil || *s.CPU == "" {
		return ResourceRequest{}, newFieldError(ReasonInvalidResources, prefix+".cpu", "required field missing: cpu")
	}
	if s.Memory == nil || *s.Memory == "" {
		return ResourceRequest{}, newFieldError(ReasonInvalidResources, prefix+".memory", "required field missing: memory")
	}
	return ResourceRequest{CPU: *s.CPU, Memory: *s.Memory}, nil
}

// Verify checks that every value parses as a quantity and that no request
// exceeds its limit.
func (r *Resources) Verify() error {
	pairs := []struct {
		name           string
		request, limit string
	}{
		{"cpu", r.Requests.CPU, r.Limits.CPU},
		{"memory", r.Requests.Memory, r.Limits.Memory},
	}
	for _, p := range pairs {
		req, err := resource.ParseQuantity(p.request)
		if err != nil {
			return &fieldError{reason: ReasonInvalidResources, field: "requests." + p.name,
				message: "not a valid quantity " + p.request, err: err}
		}
		lim, err := resource.ParseQuantity(p.limit)
		if err != nil {
			return &fieldError{reason: ReasonInvalidResources, field: "limits." + p.name,
				message: "not a valid quantity " + p.limit, err: err}
		}
		if req.Cmp(lim) > 0 {
			return newFieldError(ReasonInvalidResources, "requests."+p.name,
				"request %s exceeds limit %s", p.request, p.limit)
		}
	}
	return nil
}
