package manifest

import (
	"time"

	"k8s.io/apimachinery/pkg/util/intstr"

	"kubeship/pkg/merge"
)

const (
	defaultImageSizeMB    = 512
	defaultHealthDelay    = 30
	rolloutGracePeriod    = 60 * time.Second
	defaultMaxSurge       = "25%"
	defaultMaxUnavailable = "25%"
)

// scaled returns maxSurge and maxUnavailable as pod counts for replicas,
// rounding surge up and unavailability down like the Deployment controller.
func (r *RollingUpdate) scaled(replicas int32) (int32, int32, error) {
	var surgeRaw, unavailableRaw *string
	if r != nil {
		surgeRaw, unavailableRaw = r.MaxSurge, r.MaxUnavailable
	}
	surge, err := parseIntOrPercent("maxSurge", surgeRaw, defaultMaxSurge)
	if err != nil {
		return 0, 0, err
	}
	unavailable, err := parseIntOrPercent("maxUnavailable", unavailableRaw, defaultMaxUnavailable)
	if err != nil {
		return 0, 0, err
	}
	s, err := intstr.GetScaledValueFromIntOrPercent(&surge, int(replicas), true)
	if err != nil {
		return 0, 0, err
	}
	u, err := intstr.GetScaledValueFromIntOrPercent(&unavailable, int(replicas), false)
	if err != nil {
		return 0, 0, err
	}
	if s < 0 || u < 0 {
		return 0, 0, newFieldError(ReasonRequiredField, "maxSurge", "values must not be negative")
	}
	return int32(s), int32(u), nil
}

// Iterations is the number of rollout steps needed to replace replicas pods.
func (r *RollingUpdate) Iterations(replicas int32) int32 {
	surge, unavailable, err := r.scaled(replicas)
	if err != nil {
		return max(replicas, 1)
	}
	step := max(surge+unavailable, 1)
	return max((replicas+step-1)/step, 1)
}

// EstimateWaitTime is the deadline for a rollout of this manifest. Every
// rollout step pays an image pull, estimated at one minute per GB, plus the
// readiness delay; a fixed grace period is added on top.
func (m *Manifest) EstimateWaitTime() time.Duration {
	size := int64(merge.Deref(m.ImageSize, defaultImageSizeMB))
	pull := size * 60 / 1024

	delay := int64(defaultHealthDelay)
	switch {
	case m.Health != nil && m.Health.Wait > 0:
		delay = int64(m.Health.Wait)
	case m.ReadinessProbe != nil && m.ReadinessProbe.InitialDelaySeconds > 0:
		delay = int64(m.ReadinessProbe.InitialDelaySeconds)
	}

	replicas := m.ReplicaCount
	if m.AutoScaling != nil {
		replicas = max(replicas, m.AutoScaling.MinReplicas)
	}
	iterations := int64(m.RollingUpdate.Iterations(replicas))

	return time.Duration(iterations*(pull+delay))*time.Second + rolloutGracePeriod
}
