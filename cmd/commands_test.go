package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"kubeship/internal/cli"
	"kubeship/internal/cluster"
	kctx "kubeship/internal/context"
	"kubeship/internal/events"
	"kubeship/internal/manifest"
	"kubeship/internal/reconciler"
	"kubeship/internal/upgrade"
	"kubeship/internal/watcher"
)

const testConfig = `
defaults:
  imagePrefix: quay.io/acme
  replicaCount: 1
teams:
  - name: payments
regions:
  - name: staging-uk
    environment: staging
    namespace: apps
    versionScheme: semver
clusters:
  kind-staging:
    api: https://127.0.0.1:6443
    regions: [staging-uk]
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfigDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "config.yaml", testConfig)
	writeFile(t, root, "services/auth/manifest.yml", `
name: auth
regions: [staging-uk]
metadata:
  team: payments
version: 1.2.0
httpPort: 8080
configs:
  mount: /config/
  files:
    - name: auth.conf
      dest: auth.conf
`)
	writeFile(t, root, "services/auth/auth.conf", "region={{ .region }}\n")
	writeFile(t, root, "services/billing/manifest.yml", `
name: billing
regions: [staging-uk]
metadata:
  team: payments
dependencies:
  - name: auth
  - name: ledger
`)
	writeFile(t, root, "services/search/manifest.yml", `
name: search
regions: [staging-uk]
metadata:
  team: payments
version: 0123456789abcdef0123456789abcdef01234567
`)
	return root
}

type fakeCluster struct {
	mu       sync.Mutex
	running  map[string]string
	applyErr error
	applied  []string
}

func (f *fakeCluster) CurrentVersion(_ context.Context, name, _ string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.running[name]
	return v, ok, nil
}

func (f *fakeCluster) Apply(_ context.Context, rel cluster.Release) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, rel.Name)
	return f.applyErr
}

func (f *fakeCluster) RolloutStatus(context.Context, string, string) (bool, error) {
	return true, nil
}

func (f *fakeCluster) Diff(context.Context, cluster.Release) (string, error) {
	return "", nil
}

func (f *fakeCluster) Debug(context.Context, string, string) (string, error) {
	return "", nil
}

func useFakeCluster(t *testing.T, fc *fakeCluster) {
	t.Helper()
	original := newClusterClient
	newClusterClient = func(*cli.Workspace) (cluster.Client, events.Notifier, error) {
		return fc, nil, nil
	}
	t.Cleanup(func() { newClusterClient = original })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithHome(t, t.TempDir(), args...)
}

func executeWithHome(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	t.Setenv(kctx.ContextEnvVar, "")
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGetVersions(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "get", "versions", "--config-path", root, "--region", "staging-uk", "-o", "json")
	require.NoError(t, err)

	var versions map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	assert.Equal(t, map[string]string{"auth": "1.2.0"}, versions)
}

func TestGetImages(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "get", "images", "--config-path", root, "--region", "staging-uk", "-o", "table", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "quay.io/acme/auth")
	assert.Contains(t, out, "quay.io/acme/billing")
}

func TestGetManifest(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "get", "manifest", "auth", "--config-path", root, "--region", "staging-uk", "-o", "yaml")
	require.NoError(t, err)

	var m manifest.Manifest
	require.NoError(t, yaml.Unmarshal([]byte(out), &m))
	assert.Equal(t, "auth", m.Name)
	assert.Equal(t, "apps", m.Namespace)
}

func TestGetClusterInfo(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "get", "clusterinfo", "--config-path", root, "--region", "staging-uk", "-o", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "kind-staging", info["cluster"])
	assert.Equal(t, "kind-staging", info["context"])
	assert.Equal(t, "https://127.0.0.1:6443", info["api"])
}

func TestGetDependencies(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "get", "dependencies", "--config-path", root, "--region", "staging-uk", "-o", "json")
	require.NoError(t, err)

	var deps map[string]struct {
		DependsOn    []string `json:"dependsOn"`
		DependedOnBy []string `json:"dependedOnBy"`
		Missing      []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &deps))
	assert.Equal(t, []string{"auth", "ledger"}, deps["billing"].DependsOn)
	assert.Equal(t, []string{"ledger"}, deps["billing"].Missing)
	assert.Equal(t, []string{"billing"}, deps["auth"].DependedOnBy)
	assert.Empty(t, deps["search"].DependsOn)
}

func TestGetDependencies_FailOnCycle(t *testing.T) {
	root := testConfigDir(t)
	writeFile(t, root, "services/auth/manifest.yml", `
name: auth
regions: [staging-uk]
metadata:
  team: payments
version: 1.2.0
dependencies:
  - name: billing
`)
	_, err := execute(t, "get", "dependencies", "--fail-on-cycle", "--config-path", root, "--region", "staging-uk", "-o", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth -> billing -> auth")
}

func TestContextCommands(t *testing.T) {
	home := t.TempDir()

	_, err := executeWithHome(t, home, "context", "current")
	assert.EqualError(t, err, "no current context")

	_, err = executeWithHome(t, home, "context", "set", "staging", "staging-uk", "--dir", "/srv/manifests", "-q")
	require.NoError(t, err)
	_, err = executeWithHome(t, home, "context", "set", "prod", "prod-uk", "-q")
	require.NoError(t, err)

	_, err = executeWithHome(t, home, "context", "use", "dev", "-q")
	var notFound *kctx.ContextNotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = executeWithHome(t, home, "context", "use", "staging", "-q")
	require.NoError(t, err)

	out, err := executeWithHome(t, home, "context", "current")
	require.NoError(t, err)
	assert.Equal(t, "staging\n", out)

	out, err = executeWithHome(t, home, "context", "list", "-o", "json")
	require.NoError(t, err)
	var listed kctx.ContextConfig
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, "staging", listed.CurrentContext)
	require.Len(t, listed.Contexts, 2)
	assert.Equal(t, "/srv/manifests", listed.Contexts[0].ConfigPath)

	_, err = executeWithHome(t, home, "context", "delete", "staging")
	require.NoError(t, err)
	_, err = executeWithHome(t, home, "context", "current")
	assert.Error(t, err)
}

func TestValuesCommand(t *testing.T) {
	root := testConfigDir(t)
	out, err := execute(t, "values", "auth", "--config-path", root, "--region", "staging-uk", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "region=staging-uk")
	assert.Contains(t, out, "name: auth")
}

func TestReconcileCommand(t *testing.T) {
	root := testConfigDir(t)
	fc := &fakeCluster{running: map[string]string{}}
	useFakeCluster(t, fc)

	// billing has no version and is not running; search pins a git sha the
	// semver-only region rejects.
	_, err := execute(t, "reconcile", "auth", "billing", "--config-path", root, "--region", "staging-uk", "-o", "table", "--workers", "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"auth"}, fc.applied)

	_, err = execute(t, "reconcile", "--config-path", root, "--region", "staging-uk", "-o", "table", "--workers", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search")
	assert.Equal(t, ExitCodeInvalidConfig, getExitCode(err))
}

func TestReconcileCommand_InvalidServiceDoesNotStopOthers(t *testing.T) {
	root := testConfigDir(t)
	writeFile(t, root, "services/zeta/manifest.yml", `
name: zeta
regions: [staging-uk]
metadata:
  team: payments
version: 1.0.0
resources:
  requests:
    cpu: "2"
    memory: 512Mi
  limits:
    cpu: "1"
    memory: 512Mi
`)
	fc := &fakeCluster{running: map[string]string{}}
	useFakeCluster(t, fc)

	_, err := execute(t, "reconcile", "auth", "zeta", "--config-path", root, "--region", "staging-uk", "-o", "table", "--workers", "1", "--mode", "upgrade-no-wait")
	require.Error(t, err)

	var validationErr *manifest.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "zeta", validationErr.Service)
	assert.Equal(t, []string{"auth"}, fc.applied)
	assert.Equal(t, ExitCodeInvalidConfig, getExitCode(err))
}

func TestReconcileCommand_ApplyFailure(t *testing.T) {
	root := testConfigDir(t)
	fc := &fakeCluster{running: map[string]string{}, applyErr: errors.New("denied")}
	useFakeCluster(t, fc)

	_, err := execute(t, "reconcile", "auth", "--config-path", root, "--region", "staging-uk", "-o", "table", "--workers", "1", "--mode", "upgrade-no-wait")
	require.Error(t, err)
	assert.Equal(t, ExitCodeError, getExitCode(err))
}

func TestReconcileCommand_InvalidMode(t *testing.T) {
	root := testConfigDir(t)
	_, err := execute(t, "reconcile", "--config-path", root, "--region", "staging-uk", "-o", "table", "--mode", "rollback")
	assert.ErrorContains(t, err, "unknown mode")
}

func TestReconcileChange(t *testing.T) {
	root := testConfigDir(t)
	fc := &fakeCluster{running: map[string]string{}}
	rootFlags.ConfigPath = root
	rootFlags.Region = "staging-uk"

	var batches int
	orchestrator := func(ws *cli.Workspace) *reconciler.Orchestrator {
		batches++
		return reconciler.New(ws.Region, fc, nil, reconciler.Options{ValuesDir: t.TempDir()})
	}

	reconcileChange(context.Background(), watcher.Change{Service: "auth", Operation: watcher.OperationUpdate}, upgrade.ModeUpgrade, 1, orchestrator)
	assert.Equal(t, []string{"auth"}, fc.applied)

	reconcileChange(context.Background(), watcher.Change{Service: "auth", Operation: watcher.OperationDelete}, upgrade.ModeUpgrade, 1, orchestrator)
	assert.Equal(t, 1, batches)

	reconcileChange(context.Background(), watcher.Change{Service: "nope", Operation: watcher.OperationUpdate}, upgrade.ModeUpgrade, 1, orchestrator)
	assert.Equal(t, 1, batches)
}
