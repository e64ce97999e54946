package cluster

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	kubefake "k8s.io/client-go/kubernetes/fake"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
	"sigs.k8s.io/yaml"

	"kubeship/internal/manifest"
	"kubeship/pkg/merge"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Name:         "auth",
		Region:       "staging-uk",
		Namespace:    "staging",
		Metadata:     manifest.Metadata{Team: "payments"},
		Image:        "quay.io/acme/auth",
		Version:      merge.Ptr("1.2.0"),
		ReplicaCount: 2,
		HTTPPort:     merge.Ptr(int32(8080)),
		Env:          map[string]string{"B": "2", "A": "1"},
		Health:       &manifest.HealthCheck{URI: "/health", Wait: 15},
		Resources: &manifest.Resources{
			Requests: manifest.ResourceRequest{CPU: "100m", Memory: "128Mi"},
			Limits:   manifest.ResourceRequest{CPU: "1", Memory: "512Mi"},
		},
		RollingUpdate: &manifest.RollingUpdate{MaxSurge: merge.Ptr("50%"), MaxUnavailable: merge.Ptr("0")},
		Sidecars:      []manifest.Container{{Name: "proxy", Image: merge.Ptr("envoyproxy/envoy"), Version: merge.Ptr("v1.30")}},
		Workers: []manifest.Worker{{
			Container:    manifest.Container{Name: "poller"},
			ReplicaCount: 1,
		}},
		Configs: &manifest.ConfigMap{Name: "auth-config", Mount: "/config", Files: []manifest.ConfigFile{
			{Name: "settings.j2", Dest: "settings.json", Value: "{}"},
		}},
	}
}

func writeValues(t *testing.T, m *manifest.Manifest) string {
	t.Helper()
	data, err := yaml.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), m.Name+".values.yml")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestBuildDeployment(t *testing.T) {
	d, err := BuildDeployment(testManifest())
	require.NoError(t, err)

	assert.Equal(t, "auth", d.Name)
	assert.Equal(t, "staging", d.Namespace)
	assert.Equal(t, int32(2), *d.Spec.Replicas)
	assert.Equal(t, "1.2.0", d.Labels[LabelVersion])
	assert.Equal(t, map[string]string{LabelName: "auth", LabelComponent: "main"}, d.Spec.Selector.MatchLabels)
	assert.Equal(t, "50%", d.Spec.Strategy.RollingUpdate.MaxSurge.String())

	containers := d.Spec.Template.Spec.Containers
	require.Len(t, containers, 2)
	main := containers[0]
	assert.Equal(t, "quay.io/acme/auth:1.2.0", main.Image)
	assert.Equal(t, []corev1.EnvVar{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, main.Env)
	assert.Equal(t, int32(8080), main.Ports[0].ContainerPort)
	require.NotNil(t, main.ReadinessProbe)
	assert.Equal(t, "/health", main.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, int32(15), main.ReadinessProbe.InitialDelaySeconds)
	assert.Equal(t, "100m", main.Resources.Requests.Cpu().String())
	assert.Equal(t, "/config/settings.json", main.VolumeMounts[0].MountPath)

	assert.Equal(t, "envoyproxy/envoy:v1.30", containers[1].Image)
}

func TestBuildWorkerDeployments(t *testing.T) {
	workers, err := BuildWorkerDeployments(testManifest())
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "auth-poller", workers[0].Name)
	assert.Equal(t, "poller", workers[0].Spec.Selector.MatchLabels[LabelComponent])
	assert.Equal(t, "quay.io/acme/auth:1.2.0", workers[0].Spec.Template.Spec.Containers[0].Image)
}

func TestBuildService(t *testing.T) {
	m := testManifest()
	svc := BuildService(m)
	require.NotNil(t, svc)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].Port)
	assert.Equal(t, int32(8080), svc.Spec.Ports[0].TargetPort.IntVal)

	m.HTTPPort = nil
	assert.Nil(t, BuildService(m))
}

func TestImageTag(t *testing.T) {
	assert.Equal(t, "1.2.0", imageTag("quay.io/acme/auth:1.2.0"))
	assert.Equal(t, "", imageTag("localhost:5000/acme/auth"))
	assert.Equal(t, "", imageTag("auth"))
}

func deployment(name string, mutate func(*appsv1.Deployment)) *appsv1.Deployment {
	d := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "staging"},
		Spec: appsv1.DeploymentSpec{
			Replicas: merge.Ptr(int32(2)),
			Template: corev1.PodTemplateSpec{Spec: corev1.PodSpec{
				Containers: []corev1.Container{{Name: name, Image: "quay.io/acme/" + name + ":0.9.0"}},
			}},
		},
	}
	if mutate != nil {
		mutate(d)
	}
	return d
}

func TestKubernetes_CurrentVersion(t *testing.T) {
	labelled := deployment("auth", func(d *appsv1.Deployment) {
		d.Labels = map[string]string{LabelVersion: "1.0.0"}
	})
	unlabelled := deployment("billing", nil)
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(labelled, unlabelled).Build()
	k := NewKubernetes(c, kubefake.NewClientset())

	v, found, err := k.CurrentVersion(context.Background(), "auth", "staging")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1.0.0", v)

	v, found, err = k.CurrentVersion(context.Background(), "billing", "staging")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0.9.0", v)

	_, found, err = k.CurrentVersion(context.Background(), "ghost", "staging")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestKubernetes_CurrentVersionError(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).
		WithInterceptorFuncs(interceptor.Funcs{
			Get: func(ctx context.Context, c client.WithWatch, key client.ObjectKey, obj client.Object, opts ...client.GetOption) error {
				return errors.New("connection refused")
			},
		}).Build()
	k := NewKubernetes(c, kubefake.NewClientset())

	_, _, err := k.CurrentVersion(context.Background(), "auth", "staging")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKubernetes_RolloutStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  appsv1.DeploymentStatus
		ready   bool
		wantErr bool
	}{
		{
			name:   "complete",
			status: appsv1.DeploymentStatus{ObservedGeneration: 1, Replicas: 2, UpdatedReplicas: 2, AvailableReplicas: 2},
			ready:  true,
		},
		{
			name:   "old replicas remain",
			status: appsv1.DeploymentStatus{ObservedGeneration: 1, Replicas: 3, UpdatedReplicas: 2, AvailableReplicas: 3},
		},
		{
			name:   "not observed",
			status: appsv1.DeploymentStatus{ObservedGeneration: 0, Replicas: 2, UpdatedReplicas: 2, AvailableReplicas: 2},
		},
		{
			name: "deadline exceeded",
			status: appsv1.DeploymentStatus{ObservedGeneration: 1, Conditions: []appsv1.DeploymentCondition{{
				Type: appsv1.DeploymentProgressing, Status: corev1.ConditionFalse, Reason: "ProgressDeadlineExceeded",
			}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := deployment("auth", func(d *appsv1.Deployment) {
				d.Generation = 1
				d.Status = tt.status
			})
			c := fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(d).Build()
			k := NewKubernetes(c, kubefake.NewClientset())

			ready, err := k.RolloutStatus(context.Background(), "auth", "staging")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ready, ready)
		})
	}
}

func TestKubernetes_Apply(t *testing.T) {
	var applied []string
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).
		WithInterceptorFuncs(interceptor.Funcs{
			Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
				assert.Equal(t, client.Apply.Type(), patch.Type())
				applied = append(applied, obj.GetObjectKind().GroupVersionKind().Kind+"/"+obj.GetName())
				return nil
			},
		}).Build()
	k := NewKubernetes(c, kubefake.NewClientset())

	err := k.Apply(context.Background(), Release{Name: "auth", Namespace: "staging", ValuesFile: writeValues(t, testManifest())})
	require.NoError(t, err)
	assert.Equal(t, []string{"ConfigMap/auth-config", "Service/auth", "Deployment/auth", "Deployment/auth-poller"}, applied)
}

func TestKubernetes_ApplyRejected(t *testing.T) {
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).
		WithInterceptorFuncs(interceptor.Funcs{
			Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
				return errors.New("admission webhook denied the request")
			},
		}).Build()
	k := NewKubernetes(c, kubefake.NewClientset())

	err := k.Apply(context.Background(), Release{Name: "auth", Namespace: "staging", ValuesFile: writeValues(t, testManifest())})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestKubernetes_Diff(t *testing.T) {
	live := deployment("auth", nil)
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).WithObjects(live).Build()
	k := NewKubernetes(c, kubefake.NewClientset())

	m := testManifest()
	diff, err := k.Diff(context.Background(), Release{Name: "auth", Namespace: "staging", ValuesFile: writeValues(t, m)})
	require.NoError(t, err)
	assert.Contains(t, diff, "quay.io/acme/auth:1.2.0")

	fresh := NewKubernetes(fake.NewClientBuilder().WithScheme(testScheme(t)).Build(), kubefake.NewClientset())
	diff, err = fresh.Diff(context.Background(), Release{Name: "auth", Namespace: "staging", ValuesFile: writeValues(t, m)})
	require.NoError(t, err)
	assert.NotEmpty(t, diff)
}

func TestKubernetes_Debug(t *testing.T) {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name: "auth-7d9f", Namespace: "staging",
			Labels: map[string]string{LabelName: "auth", LabelComponent: "main"},
		},
		Status: corev1.PodStatus{
			Phase: corev1.PodPending,
			ContainerStatuses: []corev1.ContainerStatus{{
				Name:         "auth",
				RestartCount: 3,
				State:        corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: "ImagePullBackOff"}},
			}},
		},
	}
	event := &corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: "auth-7d9f.1", Namespace: "staging"},
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: "auth-7d9f"},
		Type:           corev1.EventTypeWarning,
		Reason:         "Failed",
		Message:        "pull access denied",
	}
	c := fake.NewClientBuilder().WithScheme(testScheme(t)).Build()
	k := NewKubernetes(c, kubefake.NewClientset(pod, event))

	dump, err := k.Debug(context.Background(), "auth", "staging")
	require.NoError(t, err)
	assert.Contains(t, dump, "auth-7d9f: Pending")
	assert.Contains(t, dump, "restarts=3 waiting=ImagePullBackOff")
	assert.Contains(t, dump, "pull access denied")
}

func TestLoadValues(t *testing.T) {
	m := testManifest()
	loaded, err := LoadValues(writeValues(t, m))
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	_, err = LoadValues(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
