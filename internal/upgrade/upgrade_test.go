package upgrade

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"kubeship/internal/cluster"
	"kubeship/internal/events"
	"kubeship/internal/manifest"
	"kubeship/internal/template"
	"kubeship/pkg/merge"
)

type fakeCluster struct {
	mu         sync.Mutex
	applyErr   error
	readyAfter int
	polls      int
	applied    []cluster.Release
	debugged   []string
	diff       string
}

func (f *fakeCluster) CurrentVersion(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func (f *fakeCluster) Apply(_ context.Context, rel cluster.Release) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, rel)
	return f.applyErr
}

func (f *fakeCluster) RolloutStatus(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.readyAfter < 0 {
		return false, nil
	}
	return f.polls > f.readyAfter, nil
}

func (f *fakeCluster) Diff(context.Context, cluster.Release) (string, error) {
	return f.diff, nil
}

func (f *fakeCluster) Debug(_ context.Context, name, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debugged = append(f.debugged, name)
	return "pod " + name + "-0 waiting=CrashLoopBackOff", nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	statuses []events.Status
	err      error
}

func (n *recordingNotifier) NotifyUpgrade(_ context.Context, status events.Status, _ events.Deployment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, status)
	return n.err
}

func (n *recordingNotifier) NotifyReconciliation(context.Context, events.Status, string) error {
	return nil
}

func valuesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ValuesFileName("auth"))
	require.NoError(t, os.WriteFile(path, []byte("name: auth\n"), 0o600))
	return path
}

func TestUpgrader_InstallAndWait(t *testing.T) {
	fc := &fakeCluster{readyAfter: 1}
	notifier := &recordingNotifier{}
	u := NewUpgrader(fc, notifier)
	u.PollInterval = time.Millisecond

	path := valuesFile(t)
	ud := &UpgradeData{
		Name:       "auth",
		Region:     "staging",
		Namespace:  "apps",
		Version:    "1.2.0",
		ValuesFile: path,
		Mode:       ModeUpgrade,
		Wait:       time.Second,
		State:      StatePending,
	}

	require.NoError(t, u.Run(context.Background(), ud))
	assert.Equal(t, StateSucceeded, ud.State)
	assert.Equal(t, "1.2.0", ud.Version)
	require.Len(t, fc.applied, 1)
	assert.True(t, fc.applied[0].Install)
	assert.Equal(t, []events.Status{events.StatusStarted, events.StatusCompleted}, notifier.statuses)
	assert.Empty(t, fc.debugged)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "values file should be removed")
}

func TestUpgrader_RolloutTimeout(t *testing.T) {
	fc := &fakeCluster{readyAfter: -1}
	notifier := &recordingNotifier{}
	u := NewUpgrader(fc, notifier)
	u.PollInterval = time.Millisecond

	ud := &UpgradeData{
		Name:      "auth",
		Namespace: "apps",
		Version:   "1.2.0",
		Mode:      ModeUpgrade,
		Exists:    true,
		Wait:      20 * time.Millisecond,
		State:     StatePending,
	}

	err := u.Run(context.Background(), ud)
	var timeout *RolloutTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "auth", timeout.Service)
	assert.Equal(t, 20*time.Millisecond, timeout.Wait)
	assert.Equal(t, StateTimedOut, ud.State)
	assert.Equal(t, []string{"auth"}, fc.debugged)
	assert.Equal(t, []events.Status{events.StatusStarted, events.StatusTimedOut}, notifier.statuses)
}

func TestUpgrader_ApplyFailure(t *testing.T) {
	fc := &fakeCluster{applyErr: errors.New("admission webhook denied")}
	notifier := &recordingNotifier{err: errors.New("webhook down")}
	u := NewUpgrader(fc, notifier)

	ud := &UpgradeData{Name: "auth", Namespace: "apps", Mode: ModeUpgrade, Exists: true, Wait: time.Second, State: StatePending}
	err := u.Run(context.Background(), ud)

	var applyErr *ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, "auth", applyErr.Service)
	assert.ErrorContains(t, err, "admission webhook denied")
	assert.Equal(t, StateFailed, ud.State)
	assert.Equal(t, []string{"auth"}, fc.debugged)
	assert.Equal(t, 0, fc.polls)
	assert.Equal(t, []events.Status{events.StatusStarted, events.StatusFailed}, notifier.statuses)
}

func TestUpgrader_NoWait(t *testing.T) {
	fc := &fakeCluster{readyAfter: -1}
	u := NewUpgrader(fc, nil)

	ud := &UpgradeData{Name: "auth", Namespace: "apps", Mode: ModeUpgradeNoWait, Exists: true, State: StatePending}
	require.NoError(t, u.Run(context.Background(), ud))
	assert.Equal(t, StateSucceeded, ud.State)
	assert.Equal(t, 0, fc.polls)
	require.Len(t, fc.applied, 1)
	assert.False(t, fc.applied[0].Install)
}

func TestUpgrader_Diff(t *testing.T) {
	fc := &fakeCluster{diff: "-replicas: 1\n+replicas: 2"}
	u := NewUpgrader(fc, nil)

	path := valuesFile(t)
	ud := &UpgradeData{Name: "auth", Namespace: "apps", Mode: ModeDiff, ValuesFile: path, State: StatePending}
	require.NoError(t, u.Run(context.Background(), ud))
	assert.Equal(t, StatePending, ud.State)
	assert.Equal(t, fc.diff, ud.Diff)
	assert.Empty(t, fc.applied)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestUpgrader_ContextCancelled(t *testing.T) {
	fc := &fakeCluster{readyAfter: -1}
	u := NewUpgrader(fc, nil)
	u.PollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ud := &UpgradeData{Name: "auth", Namespace: "apps", Mode: ModeUpgrade, Wait: time.Minute, State: StatePending}
	err := u.Run(ctx, ud)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateTimedOut, ud.State)
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"diff", "upgrade", "upgrade-no-wait"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("rollback")
	assert.Error(t, err)
}

func TestWriteValues(t *testing.T) {
	m := &manifest.Manifest{
		Name:         "auth",
		Region:       "staging",
		Namespace:    "apps",
		Image:        "registry.example.com/auth",
		Version:      merge.Ptr("1.2.0"),
		ReplicaCount: 2,
		Configs: &manifest.ConfigMap{
			Name:  "auth-config",
			Mount: "/config/",
			Files: []manifest.ConfigFile{{Name: "auth.conf", Dest: "auth.conf", Value: "region={{ .region }}"}},
		},
	}

	path, err := WriteValues(t.TempDir(), m, template.New())
	require.NoError(t, err)
	assert.Equal(t, "auth.values.yml", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out manifest.Manifest
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, "region=staging", out.Configs.Files[0].Value)
	assert.Equal(t, "1.2.0", *out.Version)

	assert.Equal(t, "region={{ .region }}", m.Configs.Files[0].Value, "input manifest must not be modified")
}

func TestNewUpgradeData(t *testing.T) {
	m := &manifest.Manifest{Name: "auth", Region: "staging", Namespace: "apps", ReplicaCount: 1}
	ud := NewUpgradeData(m, "1.2.0", "/tmp/auth.values.yml", ModeUpgrade, false)
	assert.Equal(t, StatePending, ud.State)
	assert.Equal(t, m.EstimateWaitTime(), ud.Wait)
	assert.Equal(t, "auth@1.2.0 in staging/apps", ud.String())
	assert.False(t, ud.State.IsTerminal())
	assert.True(t, StateTimedOut.IsTerminal())
}
