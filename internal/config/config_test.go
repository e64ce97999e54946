package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kubeship/pkg/merge"
)

const validConfig = `
defaults:
  imagePrefix: quay.io/babylon
  chart: base
  replicaCount: 2
  env:
    RUST_LOG: info
teams:
  - name: payments
    support: "#payments-support"
regions:
  - name: dev-uk
    environment: dev
    namespace: dev
    cluster: kube-dev
    defaults:
      env:
        REGION: uk
    audit:
      url: https://audit.example.com/events
clusters:
  kube-dev:
    api: https://kube-dev.example.com
    regions: [dev-uk]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "quay.io/babylon", *cfg.Defaults.ImagePrefix)
	assert.Equal(t, int32(2), *cfg.Defaults.ReplicaCount)

	region, err := cfg.Region("dev-uk")
	require.NoError(t, err)
	assert.Equal(t, VersionSchemeGitShaOrSemver, region.VersionScheme)
	assert.Equal(t, DefaultPartitions, region.Kafka.Partitions)
	assert.Equal(t, DefaultAuditTokenEnv, region.Audit.TokenEnv)

	name, cluster, err := cfg.ClusterFor(region)
	require.NoError(t, err)
	assert.Equal(t, "kube-dev", name)
	assert.Equal(t, "kube-dev", cluster.Context)

	team, ok := cfg.Team("payments")
	require.True(t, ok)
	assert.Equal(t, "#payments-support", *team.Support)

	_, ok = cfg.Team("ghosts")
	assert.False(t, ok)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "io", ce.ErrorType)
}

func TestLoadConfig_UnknownField(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, validConfig+"\nbogus: true\n"))
	require.Error(t, err)

	var ce ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "parse", ce.ErrorType)
	assert.Contains(t, ce.Details, "bogus")
}

func TestLoadConfig_Invalid(t *testing.T) {
	content := `
regions:
  - name: dev-uk
    environment: dev
    namespace: Not_A_Label
    versionScheme: calver
    cluster: nowhere
  - name: dev-uk
    environment: dev
    namespace: dev
`
	_, err := LoadConfig(writeConfig(t, content))
	require.Error(t, err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		fields = append(fields, ve.Field)
	}
	assert.Contains(t, fields, "regions[0].namespace")
	assert.Contains(t, fields, "regions[0].versionScheme")
	assert.Contains(t, fields, "regions[0].cluster")
	assert.Contains(t, fields, "regions[1].name")
}

func TestUnmarshalStrict_Empty(t *testing.T) {
	var d Defaults
	require.NoError(t, UnmarshalStrict(nil, &d))
	assert.Nil(t, d.Chart)
}

func TestDefaults_Merge(t *testing.T) {
	global := Defaults{
		ImagePrefix:  merge.Ptr("quay.io/babylon"),
		ReplicaCount: merge.Ptr(int32(2)),
		Env:          map[string]string{"A": "global", "B": "global"},
	}
	region := Defaults{
		ReplicaCount: merge.Ptr(int32(3)),
		Env:          map[string]string{"B": "region"},
	}

	merged := global.Merge(region)
	assert.Equal(t, "quay.io/babylon", *merged.ImagePrefix)
	assert.Equal(t, int32(3), *merged.ReplicaCount)
	assert.Nil(t, merged.Chart)
	assert.Equal(t, map[string]string{"A": "global", "B": "region"}, merged.Env)
	assert.Equal(t, "global", global.Env["B"])
}

func TestConfigurationError_DetailedError(t *testing.T) {
	ce := NewConfigurationErrorWithDetails("/tmp/x/config.yaml", "global", "parse", "bad", "line 3", []string{"fix it"})
	assert.Equal(t, "config.yaml", ce.FileName)
	detailed := ce.DetailedError()
	assert.Contains(t, detailed, "global layer")
	assert.Contains(t, detailed, "line 3")
	assert.Contains(t, detailed, "- fix it")
}
