package cluster

import (
	"fmt"
	"path"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"kubeship/internal/manifest"
)

const (
	// LabelName carries the service name on every object.
	LabelName = "app.kubernetes.io/name"
	// LabelVersion carries the deployed version.
	LabelVersion = "app.kubernetes.io/version"
	// LabelManagedBy marks objects applied by kubeship.
	LabelManagedBy = "app.kubernetes.io/managed-by"
	// LabelComponent distinguishes the main deployment from workers.
	LabelComponent = "app.kubernetes.io/component"

	managedBy     = "kubeship"
	mainComponent = "main"
	configVolume  = "config"
)

// selectorLabels are the immutable labels used to select a component's pods.
func selectorLabels(name, component string) map[string]string {
	return map[string]string{LabelName: name, LabelComponent: component}
}

func objectLabels(m *manifest.Manifest, component string) map[string]string {
	labels := make(map[string]string, len(m.Labels)+4)
	for k, v := range m.Labels {
		labels[k] = v
	}
	for k, v := range selectorLabels(m.Name, component) {
		labels[k] = v
	}
	labels[LabelManagedBy] = managedBy
	if m.Version != nil {
		labels[LabelVersion] = *m.Version
	}
	return labels
}

// imageRef joins an image and its version tag.
func imageRef(image string, version *string) string {
	if version == nil || *version == "" {
		return image
	}
	return image + ":" + *version
}

// BuildDeployment creates the main Deployment of a service.
func BuildDeployment(m *manifest.Manifest) (*appsv1.Deployment, error) {
	main := manifest.Container{
		Name:           m.Name,
		Image:          &m.Image,
		Version:        m.Version,
		Command:        m.Command,
		Env:            m.Env,
		Resources:      m.Resources,
		Ports:          m.Ports,
		ReadinessProbe: m.ReadinessProbe,
		LivenessProbe:  m.LivenessProbe,
	}
	c, err := buildContainer(main, m.Image, m.Version)
	if err != nil {
		return nil, err
	}
	if m.HTTPPort != nil {
		c.Ports = append([]corev1.ContainerPort{{Name: "http", ContainerPort: *m.HTTPPort, Protocol: corev1.ProtocolTCP}}, c.Ports...)
	}
	if m.Health != nil && c.ReadinessProbe == nil {
		port := int32(80)
		if m.HTTPPort != nil {
			port = *m.HTTPPort
		}
		c.ReadinessProbe = &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{Path: m.Health.URI, Port: intstr.FromInt32(port)},
			},
			InitialDelaySeconds: m.Health.Wait,
		}
	}

	pod := corev1.PodSpec{Containers: []corev1.Container{c}}
	for _, sc := range m.Sidecars {
		sidecar, err := buildContainer(sc, m.Image, m.Version)
		if err != nil {
			return nil, err
		}
		pod.Containers = append(pod.Containers, sidecar)
	}
	for _, ic := range m.InitContainers {
		init, err := buildContainer(ic, m.Image, m.Version)
		if err != nil {
			return nil, err
		}
		pod.InitContainers = append(pod.InitContainers, init)
	}
	mountConfigs(m, &pod)

	strategy := buildStrategy(m.RollingUpdate)

	replicas := m.ReplicaCount
	if m.AutoScaling != nil {
		replicas = max(replicas, m.AutoScaling.MinReplicas)
	}
	return newDeployment(m, m.Name, mainComponent, replicas, strategy, pod), nil
}

// BuildWorkerDeployments creates one Deployment per worker, named
// <service>-<worker>.
func BuildWorkerDeployments(m *manifest.Manifest) ([]*appsv1.Deployment, error) {
	out := make([]*appsv1.Deployment, 0, len(m.Workers))
	for _, w := range m.Workers {
		c, err := buildContainer(w.Container, m.Image, m.Version)
		if err != nil {
			return nil, err
		}
		if w.HTTPPort != nil {
			c.Ports = append(c.Ports, corev1.ContainerPort{Name: "http", ContainerPort: *w.HTTPPort, Protocol: corev1.ProtocolTCP})
		}
		pod := corev1.PodSpec{Containers: []corev1.Container{c}}
		mountConfigs(m, &pod)
		replicas := w.ReplicaCount
		if w.AutoScaling != nil {
			replicas = max(replicas, w.AutoScaling.MinReplicas)
		}
		name := fmt.Sprintf("%s-%s", m.Name, w.Name)
		out = append(out, newDeployment(m, name, w.Name, replicas, appsv1.DeploymentStrategy{}, pod))
	}
	return out, nil
}

func newDeployment(m *manifest.Manifest, name, component string, replicas int32, strategy appsv1.DeploymentStrategy, pod corev1.PodSpec) *appsv1.Deployment {
	labels := objectLabels(m, component)
	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: m.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selectorLabels(m.Name, component)},
			Strategy: strategy,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       pod,
			},
		},
	}
}

// BuildService creates the Service of a service, or nil when it exposes no port.
func BuildService(m *manifest.Manifest) *corev1.Service {
	var ports []corev1.ServicePort
	if m.HTTPPort != nil {
		ports = append(ports, corev1.ServicePort{
			Name:       "http",
			Port:       80,
			TargetPort: intstr.FromInt32(*m.HTTPPort),
			Protocol:   corev1.ProtocolTCP,
		})
	}
	for _, p := range m.Ports {
		target := p.Port
		if p.TargetPort != nil {
			target = *p.TargetPort
		}
		ports = append(ports, corev1.ServicePort{
			Name:       p.Name,
			Port:       p.Port,
			TargetPort: intstr.FromInt32(target),
			Protocol:   protocol(p.Protocol),
		})
	}
	if len(ports) == 0 {
		return nil
	}
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:        m.Name,
			Namespace:   m.Namespace,
			Labels:      objectLabels(m, mainComponent),
			Annotations: m.ServiceAnnotations,
		},
		Spec: corev1.ServiceSpec{
			Selector: selectorLabels(m.Name, mainComponent),
			Ports:    ports,
		},
	}
}

// BuildConfigMap creates the ConfigMap holding rendered config files, or
// nil when the service has none.
func BuildConfigMap(m *manifest.Manifest) *corev1.ConfigMap {
	if m.Configs == nil || len(m.Configs.Files) == 0 {
		return nil
	}
	data := make(map[string]string, len(m.Configs.Files))
	for _, f := range m.Configs.Files {
		data[f.Dest] = f.Value
	}
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.Configs.Name,
			Namespace: m.Namespace,
			Labels:    objectLabels(m, mainComponent),
		},
		Data: data,
	}
}

func mountConfigs(m *manifest.Manifest, pod *corev1.PodSpec) {
	if m.Configs == nil || len(m.Configs.Files) == 0 {
		return
	}
	pod.Volumes = append(pod.Volumes, corev1.Volume{
		Name: configVolume,
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: m.Configs.Name},
			},
		},
	})
	for _, f := range m.Configs.Files {
		pod.Containers[0].VolumeMounts = append(pod.Containers[0].VolumeMounts, corev1.VolumeMount{
			Name:      configVolume,
			MountPath: path.Join(m.Configs.Mount, f.Dest),
			SubPath:   f.Dest,
		})
	}
}

// buildContainer converts a resolved container. Containers without their
// own image run the service image.
func buildContainer(c manifest.Container, serviceImage string, serviceVersion *string) (corev1.Container, error) {
	image := imageRef(serviceImage, serviceVersion)
	if c.Image != nil {
		image = imageRef(*c.Image, c.Version)
	}
	out := corev1.Container{
		Name:           c.Name,
		Image:          image,
		Command:        c.Command,
		Env:            buildEnv(c.Env),
		ReadinessProbe: buildProbe(c.ReadinessProbe),
		LivenessProbe:  buildProbe(c.LivenessProbe),
	}
	for _, p := range c.Ports {
		out.Ports = append(out.Ports, corev1.ContainerPort{Name: p.Name, ContainerPort: p.Port, Protocol: protocol(p.Protocol)})
	}
	if c.Resources != nil {
		res, err := buildResources(c.Resources)
		if err != nil {
			return corev1.Container{}, fmt.Errorf("container %s: %w", c.Name, err)
		}
		out.Resources = res
	}
	return out, nil
}

func buildEnv(env map[string]string) []corev1.EnvVar {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]corev1.EnvVar, 0, len(keys))
	for _, k := range keys {
		out = append(out, corev1.EnvVar{Name: k, Value: env[k]})
	}
	return out
}

func buildProbe(p *manifest.Probe) *corev1.Probe {
	if p == nil {
		return nil
	}
	probe := &corev1.Probe{
		InitialDelaySeconds: p.InitialDelaySeconds,
		PeriodSeconds:       p.PeriodSeconds,
		TimeoutSeconds:      p.TimeoutSeconds,
		FailureThreshold:    p.FailureThreshold,
	}
	switch {
	case p.HTTPGet != nil:
		probe.HTTPGet = &corev1.HTTPGetAction{Path: p.HTTPGet.Path, Port: intstr.FromInt32(p.HTTPGet.Port)}
	case len(p.Exec) > 0:
		probe.Exec = &corev1.ExecAction{Command: p.Exec}
	}
	return probe
}

func buildResources(r *manifest.Resources) (corev1.ResourceRequirements, error) {
	parse := func(cpu, memory string) (corev1.ResourceList, error) {
		c, err := resource.ParseQuantity(cpu)
		if err != nil {
			return nil, fmt.Errorf("cpu %q: %w", cpu, err)
		}
		mem, err := resource.ParseQuantity(memory)
		if err != nil {
			return nil, fmt.Errorf("memory %q: %w", memory, err)
		}
		return corev1.ResourceList{corev1.ResourceCPU: c, corev1.ResourceMemory: mem}, nil
	}
	requests, err := parse(r.Requests.CPU, r.Requests.Memory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	limits, err := parse(r.Limits.CPU, r.Limits.Memory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	return corev1.ResourceRequirements{Requests: requests, Limits: limits}, nil
}

func buildStrategy(ru *manifest.RollingUpdate) appsv1.DeploymentStrategy {
	if ru == nil {
		return appsv1.DeploymentStrategy{Type: appsv1.RollingUpdateDeploymentStrategyType}
	}
	strategy := appsv1.DeploymentStrategy{
		Type:          appsv1.RollingUpdateDeploymentStrategyType,
		RollingUpdate: &appsv1.RollingUpdateDeployment{},
	}
	if ru.MaxSurge != nil {
		v := intstr.Parse(*ru.MaxSurge)
		strategy.RollingUpdate.MaxSurge = &v
	}
	if ru.MaxUnavailable != nil {
		v := intstr.Parse(*ru.MaxUnavailable)
		strategy.RollingUpdate.MaxUnavailable = &v
	}
	return strategy
}

func protocol(p string) corev1.Protocol {
	switch p {
	case "UDP", "udp":
		return corev1.ProtocolUDP
	case "SCTP", "sctp":
		return corev1.ProtocolSCTP
	default:
		return corev1.ProtocolTCP
	}
}
