package config

const (
	// DefaultConfigPathEnv overrides the configuration directory.
	DefaultConfigPathEnv = "KUBESHIP_CONFIG_PATH"

	// DefaultAuditTokenEnv is used when an audit webhook does not name a token variable.
	DefaultAuditTokenEnv = "KUBESHIP_AUDIT_TOKEN"

	// DefaultPartitions is the topic partition count used when a region sets none.
	DefaultPartitions int32 = 1

	// DefaultReplicationFactor is the topic replication factor used when a region sets none.
	DefaultReplicationFactor int32 = 3
)

// GetDefaultConfig returns the configuration used as the base for loading.
func GetDefaultConfig() Config {
	return Config{
		Clusters: make(map[string]Cluster),
	}
}

// applyDefaults fills region level defaults that depend on nothing else.
func applyDefaults(cfg *Config) {
	for i := range cfg.Regions {
		r := &cfg.Regions[i]
		if r.VersionScheme == "" {
			r.VersionScheme = VersionSchemeGitShaOrSemver
		}
		if r.Kafka.Partitions == 0 {
			r.Kafka.Partitions = DefaultPartitions
		}
		if r.Kafka.ReplicationFactor == 0 {
			r.Kafka.ReplicationFactor = DefaultReplicationFactor
		}
		if r.Audit != nil && r.Audit.TokenEnv == "" {
			r.Audit.TokenEnv = DefaultAuditTokenEnv
		}
	}
	for name, c := range cfg.Clusters {
		if c.Context == "" {
			c.Context = name
			cfg.Clusters[name] = c
		}
	}
}
