package manifest

import (
	"fmt"

	"kubeship/pkg/merge"
)

// Worker is a separately scaled deployment running next to the service.
type Worker struct {
	Container    `json:",inline"`
	ReplicaCount int32        `json:"replicaCount"`
	AutoScaling  *AutoScaling `json:"autoScaling,omitempty"`
	HTTPPort     *int32       `json:"httpPort,omitempty"`
}

// WorkerSource is a worker block.
type WorkerSource struct {
	ReplicaCount *int32       `yaml:"replicaCount,omitempty"`
	AutoScaling  *AutoScaling `yaml:"autoScaling,omitempty"`
	HTTPPort     *int32       `yaml:"httpPort,omitempty"`

	ContainerSource `yaml:",inline"`
}

// Build resolves the worker. The replica count has no default.
func (s WorkerSource) Build(params ContainerBuildParams) (Worker, error) {
	if s.AutoScaling != nil {
		if err := s.AutoScaling.Verify(); err != nil {
			return Worker{}, within("autoScaling", err)
		}
	}
	c, err := s.ContainerSource.buildNamed(params)
	if err != nil {
		return Worker{}, err
	}
	if s.ReplicaCount == nil {
		return Worker{}, requiredField("replicaCount")
	}
	return Worker{
		Container:    c,
		ReplicaCount: *s.ReplicaCount,
		AutoScaling:  s.AutoScaling,
		HTTPPort:     s.HTTPPort,
	}, nil
}

// SidecarSource is a sidecar block.
type SidecarSource struct {
	ContainerSource `yaml:",inline"`
}

// Build resolves the sidecar.
func (s SidecarSource) Build(params ContainerBuildParams) (Container, error) {
	return s.ContainerSource.buildNamed(params)
}

// InitContainerSource is an init container block.
type InitContainerSource struct {
	ContainerSource `yaml:",inline"`
}

// Build resolves the init container.
func (s InitContainerSource) Build(params ContainerBuildParams) (Container, error) {
	return s.ContainerSource.buildNamed(params)
}

// RestartPolicy of a job's pods.
type RestartPolicy string

const (
	RestartPolicyNever     RestartPolicy = "Never"
	RestartPolicyOnFailure RestartPolicy = "OnFailure"
)

// Job is a one-off batch job shipped with the service.
type Job struct {
	Container     `json:",inline"`
	Timeout       *int32        `json:"timeout,omitempty"`
	RestartPolicy RestartPolicy `json:"restartPolicy"`
}

// JobSource is a job block.
type JobSource struct {
	Timeout       *int32         `yaml:"timeout,omitempty"`
	RestartPolicy *RestartPolicy `yaml:"restartPolicy,omitempty"`

	ContainerSource `yaml:",inline"`
}

// Build resolves the job. Image and version must be given together.
func (s JobSource) Build(params ContainerBuildParams) (Job, error) {
	c, err := s.ContainerSource.buildNamed(params)
	if err != nil {
		return Job{}, err
	}
	switch {
	case c.Image != nil && c.Version == nil:
		return Job{}, newFieldError(ReasonInvalidContainer, "version",
			"cannot specify image without specifying version in job %s", c.Name)
	case c.Image == nil && c.Version != nil:
		return Job{}, newFieldError(ReasonInvalidContainer, "image",
			"cannot specify the version without specifying an image in job %s", c.Name)
	}
	policy := merge.Deref(s.RestartPolicy, RestartPolicyNever)
	if policy != RestartPolicyNever && policy != RestartPolicyOnFailure {
		return Job{}, newFieldError(ReasonInvalidContainer, "restartPolicy",
			"unsupported restart policy %q", policy)
	}
	return Job{Container: c, Timeout: s.Timeout, RestartPolicy: policy}, nil
}

// CronJob is a scheduled job.
type CronJob struct {
	Job      `json:",inline"`
	Schedule string `json:"schedule"`
}

// CronJobSource is a cron job block.
type CronJobSource struct {
	Schedule *string `yaml:"schedule,omitempty"`

	JobSource `yaml:",inline"`
}

// Build resolves the cron job.
func (s CronJobSource) Build(params ContainerBuildParams) (CronJob, error) {
	job, err := s.JobSource.Build(params)
	if err != nil {
		return CronJob{}, err
	}
	if s.Schedule == nil || *s.Schedule == "" {
		return CronJob{}, requiredField("schedule")
	}
	return CronJob{Job: job, Schedule: *s.Schedule}, nil
}

// Verify checks the replica bounds.
func (a *AutoScaling) Verify() error {
	if a.MinReplicas < 1 {
		return newFieldError(ReasonInvalidAutoScaling, "minReplicas", "must be at least 1")
	}
	if a.MinReplicas > a.MaxReplicas {
		return newFieldError(ReasonInvalidAutoScaling, "maxReplicas",
			"maxReplicas %d is below minReplicas %d", a.MaxReplicas, a.MinReplicas)
	}
	if t := a.TargetCPUUtilization; t != nil && (*t < 1 || *t > 100) {
		return newFieldError(ReasonInvalidAutoScaling, "targetCpuUtilization",
			"must be a percentage, got %d", *t)
	}
	return nil
}

// buildList resolves each source, tagging errors with their position.
func buildList[S any, T any](field string, sources []S, build func(S) (T, error)) ([]T, error) {
	if sources == nil {
		return nil, nil
	}
	out := make([]T, 0, len(sources))
	for i, src := range sources {
		t, err := build(src)
		if err != nil {
			return nil, within(fmt.Sprintf("%s[%d]", field, i), err)
		}
		out = append(out, t)
	}
	return out, nil
}
