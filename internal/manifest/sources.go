package manifest

import (
	"kubeship/internal/config"
	"kubeship/pkg/merge"
)

// ManifestSource is the decoded services/<name>/manifest.yml. Besides the
// identity of the service it carries the service's own override layer.
type ManifestSource struct {
	Name     string          `yaml:"name"`
	Regions  []string        `yaml:"regions"`
	Metadata *MetadataSource `yaml:"metadata,omitempty"`
	Disabled bool            `yaml:"disabled,omitempty"`
	External bool            `yaml:"external,omitempty"`

	ManifestOverrides `yaml:",inline"`
}

// MetadataSource is the ownership block of a service.
type MetadataSource struct {
	Team          string   `yaml:"team"`
	Repo          string   `yaml:"repo,omitempty"`
	Language      string   `yaml:"language,omitempty"`
	Maintainers   []string `yaml:"maintainers,omitempty"`
	Support       *string  `yaml:"support,omitempty"`
	Notifications *string  `yaml:"notifications,omitempty"`
}

// ManifestOverrides is one override layer. Every field is optional; unset
// fields leave the lower layer's value in place.
type ManifestOverrides struct {
	PubliclyAccessible *bool                       `yaml:"publiclyAccessible,omitempty"`
	Image              *string                     `yaml:"image,omitempty"`
	ImageSize          *int32                      `yaml:"imageSize,omitempty"`
	Version            *string                     `yaml:"version,omitempty"`
	Command            []string                    `yaml:"command,omitempty"`
	DataHandling       *DataHandlingSource         `yaml:"dataHandling,omitempty"`
	Resources          *ResourceRequirementsSource `yaml:"resources,omitempty"`
	Configs            *ConfigMapSource            `yaml:"configs,omitempty"`
	HTTPPort           *int32                      `yaml:"httpPort,omitempty"`
	Ports              []Port                      `yaml:"ports,omitempty"`
	Health             *HealthCheck                `yaml:"health,omitempty"`
	Dependencies       []Dependency                `yaml:"dependencies,omitempty"`
	Workers            []WorkerSource              `yaml:"workers,omitempty"`
	Sidecars           []SidecarSource             `yaml:"sidecars,omitempty"`
	InitContainers     []InitContainerSource       `yaml:"initContainers,omitempty"`
	ReadinessProbe     *Probe                      `yaml:"readinessProbe,omitempty"`
	LivenessProbe      *Probe                      `yaml:"livenessProbe,omitempty"`
	RollingUpdate      *RollingUpdate              `yaml:"rollingUpdate,omitempty"`
	AutoScaling        *AutoScaling                `yaml:"autoScaling,omitempty"`
	Jobs               []JobSource                 `yaml:"jobs,omitempty"`
	CronJobs           []CronJobSource             `yaml:"cronJobs,omitempty"`
	ServiceAnnotations map[string]string           `yaml:"serviceAnnotations,omitempty"`
	Labels             map[string]string           `yaml:"labels,omitempty"`
	Gateway            *GatewaySource              `yaml:"gateway,omitempty"`
	Hosts              []string                    `yaml:"hosts,omitempty"`
	Kafka              *KafkaSource                `yaml:"kafka,omitempty"`
	SourceRanges       []string                    `yaml:"sourceRanges,omitempty"`
	Rbac               []Rbac                      `yaml:"rbac,omitempty"`

	config.Defaults `yaml:",inline"`
}

// Merge layers incoming on top of o. Neither input is modified.
func (o ManifestOverrides) Merge(incoming ManifestOverrides) ManifestOverrides {
	return ManifestOverrides{
		PubliclyAccessible: merge.Value(o.PubliclyAccessible, incoming.PubliclyAccessible),
		Image:              merge.Value(o.Image, incoming.Image),
		ImageSize:          merge.Value(o.ImageSize, incoming.ImageSize),
		Version:            merge.Value(o.Version, incoming.Version),
		Command:            merge.Slice(o.Command, incoming.Command),
		DataHandling:       merge.Value(o.DataHandling, incoming.DataHandling),
		Resources:          merge.Value(o.Resources, incoming.Resources),
		Configs:            merge.Value(o.Configs, incoming.Configs),
		HTTPPort:           merge.Value(o.HTTPPort, incoming.HTTPPort),
		Ports:              merge.Slice(o.Ports, incoming.Ports),
		Health:             merge.Value(o.Health, incoming.Health),
		Dependencies:       merge.Slice(o.Dependencies, incoming.Dependencies),
		Workers:            merge.Slice(o.Workers, incoming.Workers),
		Sidecars:           merge.Slice(o.Sidecars, incoming.Sidecars),
		InitContainers:     merge.Slice(o.InitContainers, incoming.InitContainers),
		ReadinessProbe:     merge.Value(o.ReadinessProbe, incoming.ReadinessProbe),
		LivenessProbe:      merge.Value(o.LivenessProbe, incoming.LivenessProbe),
		RollingUpdate:      merge.Value(o.RollingUpdate, incoming.RollingUpdate),
		AutoScaling:        merge.Value(o.AutoScaling, incoming.AutoScaling),
		Jobs:               merge.Slice(o.Jobs, incoming.Jobs),
		CronJobs:           merge.Slice(o.CronJobs, incoming.CronJobs),
		ServiceAnnotations: merge.Map(o.ServiceAnnotations, incoming.ServiceAnnotations),
		Labels:             merge.Map(o.Labels, incoming.Labels),
		Gateway:            merge.Value(o.Gateway, incoming.Gateway),
		Hosts:              merge.Slice(o.Hosts, incoming.Hosts),
		Kafka:              merge.Value(o.Kafka, incoming.Kafka),
		SourceRanges:       merge.Slice(o.SourceRanges, incoming.SourceRanges),
		Rbac:               merge.Slice(o.Rbac, incoming.Rbac),
		Defaults:           o.Defaults.Merge(incoming.Defaults),
	}
}

// mergeLayers folds the override chain on top of the merged defaults.
func mergeLayers(defaults config.Defaults, layers ...ManifestOverrides) ManifestOverrides {
	base := ManifestOverrides{Defaults: defaults}
	return merge.Fold(ManifestOverrides.Merge, append([]ManifestOverrides{base}, layers...)...)
}

// ConfigMapSource references template files by name.
type ConfigMapSource struct {
	Name  *string            `yaml:"name,omitempty"`
	Mount string             `yaml:"mount"`
	Files []ConfigFileSource `yaml:"files"`
}

// ConfigFileSource names a template and where its rendering is mounted.
type ConfigFileSource struct {
	Name string `yaml:"name"`
	Dest string `yaml:"dest"`
}

// GatewaySource is the API exposure block before derivation.
type GatewaySource struct {
	Name          *string              `yaml:"name,omitempty"`
	Public        *bool                `yaml:"public,omitempty"`
	Uris          []string             `yaml:"uris,omitempty"`
	UpstreamURL   *string              `yaml:"upstreamUrl,omitempty"`
	StripURI      *bool                `yaml:"stripUri,omitempty"`
	PreserveHost  *bool                `yaml:"preserveHost,omitempty"`
	Authorization *AuthorizationSource `yaml:"authorization,omitempty"`
}

// KafkaSource is the messaging block before derivation.
type KafkaSource struct {
	Brokers       []string           `yaml:"brokers,omitempty"`
	Zookeeper     []string           `yaml:"zookeeper,omitempty"`
	ConsumerGroup *string            `yaml:"consumerGroup,omitempty"`
	Topics        []KafkaTopicSource `yaml:"topics,omitempty"`
}

// KafkaTopicSource is a topic whose sizing may come from the region.
type KafkaTopicSource struct {
	Name              string `yaml:"name"`
	Partitions        *int32 `yaml:"partitions,omitempty"`
	ReplicationFactor *int32 `yaml:"replicationFactor,omitempty"`
}

// DataHandlingSource is the data classification block before derivation.
type DataHandlingSource struct {
	Stores    []DataStoreSource `yaml:"stores"`
	Processes []string          `yaml:"processes,omitempty"`
}

// DataStoreSource is one store; its fields inherit its settings.
type DataStoreSource struct {
	Backend         string            `yaml:"backend"`
	Encrypted       *bool             `yaml:"encrypted,omitempty"`
	RetentionPeriod *string           `yaml:"retentionPeriod,omitempty"`
	Fields          []DataFieldSource `yaml:"fields,omitempty"`
}

// DataFieldSource is one classified field.
type DataFieldSource struct {
	Name            string  `yaml:"name"`
	PII             *bool   `yaml:"pii,omitempty"`
	SPII            *bool   `yaml:"spii,omitempty"`
	Encrypted       *bool   `yaml:"encrypted,omitempty"`
	RetentionPeriod *string `yaml:"retentionPeriod,omitempty"`
}
