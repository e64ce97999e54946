package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/singleflight"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"kubeship/pkg/logging"
)

// FieldOwner is the server-side apply field manager used by kubeship.
const FieldOwner = "kubeship"

const maxDebugEvents = 10

// Kubernetes implements Client against a live cluster.
type Kubernetes struct {
	client    client.Client
	clientset kubernetes.Interface
	versions  singleflight.Group
}

type objectRef struct {
	kind string
	obj  client.Object
}

type versionResult struct {
	version string
	found   bool
}

// NewKubernetes wraps an existing controller-runtime client and clientset.
func NewKubernetes(c client.Client, clientset kubernetes.Interface) *Kubernetes {
	return &Kubernetes{client: c, clientset: clientset}
}

// RestConfig loads the REST configuration for a kubeconfig context. An
// empty context falls back to the in-cluster or current context.
func RestConfig(contextName string) (*rest.Config, error) {
	if contextName == "" {
		return ctrl.GetConfig()
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig context %s: %w", contextName, err)
	}
	return cfg, nil
}

// NewKubernetesForContext connects to the cluster behind a kubeconfig context.
//
// Args:
//   - contextName: kubeconfig context, empty for the current one
//
// Returns:
//   - *Kubernetes: client ready for concurrent use by reconciliation workers
//   - error: if the kubeconfig cannot be loaded or the clients cannot be built
func NewKubernetesForContext(contextName string) (*Kubernetes, error) {
	cfg, err := RestConfig(contextName)
	if err != nil {
		return nil, err
	}

	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes clientset: %w", err)
	}

	logging.Debug("Cluster", "Connected to %s (context %q)", cfg.Host, contextName)
	return NewKubernetes(c, clientset), nil
}

// Client returns the underlying controller-runtime client.
func (k *Kubernetes) Client() client.Client {
	return k.client
}

// CurrentVersion implements Client. Concurrent lookups of the same service
// share one API call.
func (k *Kubernetes) CurrentVersion(ctx context.Context, name, namespace string) (string, bool, error) {
	key := namespace + "/" + name
	res, err, _ := k.versions.Do(key, func() (interface{}, error) {
		var d appsv1.Deployment
		if err := k.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, &d); err != nil {
			if apierrors.IsNotFound(err) {
				return versionResult{}, nil
			}
			return nil, fmt.Errorf("failed to get deployment %s: %w", key, err)
		}
		return versionResult{version: versionOf(&d), found: true}, nil
	})
	if err != nil {
		return "", false, err
	}
	vr := res.(versionResult)
	return vr.version, vr.found, nil
}

// versionOf reads the version label, falling back to the image tag of the
// service container.
func versionOf(d *appsv1.Deployment) string {
	if v := d.Labels[LabelVersion]; v != "" {
		return v
	}
	containers := d.Spec.Template.Spec.Containers
	for _, c := range containers {
		if c.Name == d.Name {
			return imageTag(c.Image)
		}
	}
	if len(containers) > 0 {
		return imageTag(containers[0].Image)
	}
	return ""
}

func imageTag(image string) string {
	i := strings.LastIndex(image, ":")
	if i < 0 || strings.Contains(image[i:], "/") {
		return ""
	}
	return image[i+1:]
}

// Apply implements Client with server-side apply of every object built
// from the values file.
func (k *Kubernetes) Apply(ctx context.Context, rel Release) error {
	m, err := LoadValues(rel.ValuesFile)
	if err != nil {
		return err
	}
	objs, err := objectsFor(m)
	if err != nil {
		return err
	}
	for _, o := range objs {
		logging.Debug("Cluster", "Applying %s %s/%s", o.kind, o.obj.GetNamespace(), o.obj.GetName())
		if err := k.client.Patch(ctx, o.obj, client.Apply, client.FieldOwner(FieldOwner), client.ForceOwnership); err != nil {
			return fmt.Errorf("failed to apply %s %s/%s: %w", o.kind, o.obj.GetNamespace(), o.obj.GetName(), err)
		}
	}
	return nil
}

// RolloutStatus implements Client. A rollout is complete once the
// controller observed the latest generation and every replica is updated
// and available.
func (k *Kubernetes) RolloutStatus(ctx context.Context, name, namespace string) (bool, error) {
	var d appsv1.Deployment
	if err := k.client.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, &d); err != nil {
		return false, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}
	if d.Generation > d.Status.ObservedGeneration {
		return false, nil
	}
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentProgressing && c.Reason == "ProgressDeadlineExceeded" {
			return false, fmt.Errorf("deployment %s/%s exceeded its progress deadline", namespace, name)
		}
	}
	replicas := int32(1)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	st := d.Status
	return st.UpdatedReplicas >= replicas && st.AvailableReplicas >= replicas && st.Replicas == st.UpdatedReplicas, nil
}

// deploymentView is the part of a Deployment that Diff compares.
type deploymentView struct {
	Replicas   int32
	Images     map[string]string
	Env        map[string]map[string]string
	Labels     map[string]string
	Strategy   string
	Containers []string
}

func viewOf(d *appsv1.Deployment) deploymentView {
	v := deploymentView{Images: map[string]string{}, Env: map[string]map[string]string{}, Labels: map[string]string{}}
	if d == nil {
		return v
	}
	if d.Spec.Replicas != nil {
		v.Replicas = *d.Spec.Replicas
	}
	for k, val := range d.Labels {
		v.Labels[k] = val
	}
	v.Strategy = string(d.Spec.Strategy.Type)
	for _, c := range d.Spec.Template.Spec.Containers {
		v.Containers = append(v.Containers, c.Name)
		v.Images[c.Name] = c.Image
		env := map[string]string{}
		for _, e := range c.Env {
			env[e.Name] = e.Value
		}
		v.Env[c.Name] = env
	}
	return v
}

// Diff implements Client by comparing the main Deployment built from the
// values file with the live one.
func (k *Kubernetes) Diff(ctx context.Context, rel Release) (string, error) {
	m, err := LoadValues(rel.ValuesFile)
	if err != nil {
		return "", err
	}
	desired, err := BuildDeployment(m)
	if err != nil {
		return "", err
	}
	var live *appsv1.Deployment
	var current appsv1.Deployment
	err = k.client.Get(ctx, client.ObjectKey{Namespace: rel.Namespace, Name: rel.Name}, &current)
	switch {
	case err == nil:
		live = &current
	case apierrors.IsNotFound(err):
		// not installed yet, everything is new
	default:
		return "", fmt.Errorf("failed to get deployment %s/%s: %w", rel.Namespace, rel.Name, err)
	}
	return cmp.Diff(viewOf(live), viewOf(desired)), nil
}

// Debug implements Client. It reports the state of the service's pods and
// its most recent warning events.
func (k *Kubernetes) Debug(ctx context.Context, name, namespace string) (string, error) {
	var b strings.Builder
	selector := labels.SelectorFromSet(selectorLabels(name, mainComponent)).String()

	pods, err := k.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("failed to list pods of %s: %w", name, err)
	}
	fmt.Fprintf(&b, "Pods of %s/%s:\n", namespace, name)
	if len(pods.Items) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, pod := range pods.Items {
		fmt.Fprintf(&b, "  %s: %s\n", pod.Name, pod.Status.Phase)
		for _, cs := range pod.Status.ContainerStatuses {
			fmt.Fprintf(&b, "    %s ready=%t restarts=%d%s\n", cs.Name, cs.Ready, cs.RestartCount, containerState(cs.State))
		}
	}

	events, err := k.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("type", corev1.EventTypeWarning).String(),
	})
	if err != nil {
		return b.String(), fmt.Errorf("failed to list events of %s: %w", name, err)
	}
	var relevant []corev1.Event
	for _, ev := range events.Items {
		if strings.HasPrefix(ev.InvolvedObject.Name, name) {
			relevant = append(relevant, ev)
		}
	}
	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].LastTimestamp.Before(&relevant[j].LastTimestamp)
	})
	if len(relevant) > maxDebugEvents {
		relevant = relevant[len(relevant)-maxDebugEvents:]
	}
	b.WriteString("Warning events:\n")
	if len(relevant) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, ev := range relevant {
		fmt.Fprintf(&b, "  %s %s: %s\n", ev.InvolvedObject.Name, ev.Reason, ev.Message)
	}
	return b.String(), nil
}

func containerState(s corev1.ContainerState) string {
	switch {
	case s.Waiting != nil:
		return fmt.Sprintf(" waiting=%s %s", s.Waiting.Reason, s.Waiting.Message)
	case s.Terminated != nil:
		return fmt.Sprintf(" terminated=%s exit=%d", s.Terminated.Reason, s.Terminated.ExitCode)
	default:
		return ""
	}
}
