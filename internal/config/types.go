package config

import "kubeship/pkg/merge"

// Config is the global configuration shared by every service: defaults,
// teams, regions and the clusters that back them.
type Config struct {
	Defaults Defaults           `yaml:"defaults,omitempty"`
	Teams    []Team             `yaml:"teams,omitempty"`
	Regions  []Region           `yaml:"regions,omitempty"`
	Clusters map[string]Cluster `yaml:"clusters,omitempty"`
}

// Defaults are the fallback values merged beneath every service's override
// layers. They appear globally and per region.
type Defaults struct {
	ImagePrefix  *string           `yaml:"imagePrefix,omitempty" json:"imagePrefix,omitempty"`
	Chart        *string           `yaml:"chart,omitempty" json:"chart,omitempty"`
	ReplicaCount *int32            `yaml:"replicaCount,omitempty" json:"replicaCount,omitempty"`
	Env          map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// Merge layers incoming on top of d.
func (d Defaults) Merge(incoming Defaults) Defaults {
	return Defaults{
		ImagePrefix:  merge.Value(d.ImagePrefix, incoming.ImagePrefix),
		Chart:        merge.Value(d.Chart, incoming.Chart),
		ReplicaCount: merge.Value(d.ReplicaCount, incoming.ReplicaCount),
		Env:          merge.Map(d.Env, incoming.Env),
	}
}

// Team is an owning team. Services reference it by name in their metadata.
type Team struct {
	Name string `yaml:"name"`
	// Namespace, when set, overrides the region namespace for the team's services.
	Namespace     *string  `yaml:"namespace,omitempty"`
	Support       *string  `yaml:"support,omitempty"`
	Notifications *string  `yaml:"notifications,omitempty"`
	Owners        []string `yaml:"owners,omitempty"`
	GithubAdmins  string   `yaml:"githubAdmins,omitempty"`
}

// VersionScheme restricts which version strings a region accepts.
type VersionScheme string

const (
	// VersionSchemeSemver accepts semantic versions only.
	VersionSchemeSemver VersionScheme = "semver"

	// VersionSchemeGitShaOrSemver accepts semantic versions or 40 character git shas.
	VersionSchemeGitShaOrSemver VersionScheme = "gitShaOrSemver"
)

// Region is a deployment target: one namespace on one cluster.
type Region struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Namespace   string `yaml:"namespace"`
	// Cluster is the key of the backing cluster in Config.Clusters.
	Cluster       string        `yaml:"cluster,omitempty"`
	VersionScheme VersionScheme `yaml:"versionScheme,omitempty"`
	Defaults      Defaults      `yaml:"defaults,omitempty"`
	Kafka         KafkaRegion   `yaml:"kafka,omitempty"`
	Gateway       GatewayRegion `yaml:"gateway,omitempty"`
	Audit         *AuditWebhook `yaml:"audit,omitempty"`
}

// KafkaRegion holds the region-wide messaging defaults.
type KafkaRegion struct {
	Brokers           []string `yaml:"brokers,omitempty"`
	Zookeeper         []string `yaml:"zookeeper,omitempty"`
	Partitions        int32    `yaml:"partitions,omitempty"`
	ReplicationFactor int32    `yaml:"replicationFactor,omitempty"`
}

// GatewayRegion holds the region-wide API gateway settings.
type GatewayRegion struct {
	BaseDomain string `yaml:"baseDomain,omitempty"`
	AdminURL   string `yaml:"adminUrl,omitempty"`
}

// AuditWebhook is the endpoint receiving deployment audit events.
type AuditWebhook struct {
	URL string `yaml:"url"`
	// TokenEnv names the environment variable that holds the bearer token.
	TokenEnv string `yaml:"tokenEnv,omitempty"`
}

// Cluster describes a Kubernetes cluster.
type Cluster struct {
	API string `yaml:"api,omitempty"`
	// Context is the kubeconfig context used to reach the cluster.
	// Defaults to the cluster key.
	Context string   `yaml:"context,omitempty"`
	Regions []string `yaml:"regions,omitempty"`
}
