package manifest

// Metadata identifies the owners of a service.
type Metadata struct {
	Team          string   `json:"team"`
	Repo          string   `json:"repo,omitempty"`
	Language      string   `json:"language,omitempty"`
	Maintainers   []string `json:"maintainers,omitempty"`
	Support       *string  `json:"support,omitempty"`
	Notifications *string  `json:"notifications,omitempty"`
}

// BaseManifest is the identity of a service, independent of region.
type BaseManifest struct {
	Name     string   `json:"name"`
	Regions  []string `json:"regions"`
	Metadata Metadata `json:"metadata"`
}

// SimpleManifest is the cheap projection of a service in one region, used
// for listing.
type SimpleManifest struct {
	BaseManifest

	Region   string   `json:"region"`
	Enabled  bool     `json:"enabled"`
	External bool     `json:"external"`
	Image    string   `json:"image"`
	Version  *string  `json:"version,omitempty"`
	Gateway  *Gateway `json:"gateway,omitempty"`
}

// Manifest is the fully resolved deployable specification of one service
// in one region. It is rendered as the values artifact.
type Manifest struct {
	Name        string   `json:"name"`
	Region      string   `json:"region"`
	Environment string   `json:"environment"`
	Namespace   string   `json:"namespace"`
	Regions     []string `json:"regions"`
	Metadata    Metadata `json:"metadata"`
	Chart       string   `json:"chart,omitempty"`

	Disabled           bool `json:"disabled,omitempty"`
	External           bool `json:"external,omitempty"`
	PubliclyAccessible bool `json:"publiclyAccessible,omitempty"`

	Image string `json:"image"`
	// ImageSize is the image size in MB.
	ImageSize *int32            `json:"imageSize,omitempty"`
	Version   *string           `json:"version,omitempty"`
	Command   []string          `json:"command,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Resources *Resources        `json:"resources,omitempty"`

	ReplicaCount   int32        `json:"replicaCount"`
	HTTPPort       *int32       `json:"httpPort,omitempty"`
	Ports          []Port       `json:"ports,omitempty"`
	Health         *HealthCheck `json:"health,omitempty"`
	ReadinessProbe *Probe       `json:"readinessProbe,omitempty"`
	LivenessProbe  *Probe       `json:"livenessProbe,omitempty"`

	Dependencies   []Dependency `json:"dependencies,omitempty"`
	Workers        []Worker     `json:"workers,omitempty"`
	Sidecars       []Container  `json:"sidecars,omitempty"`
	InitContainers []Container  `json:"initContainers,omitempty"`
	Jobs           []Job        `json:"jobs,omitempty"`
	CronJobs       []CronJob    `json:"cronJobs,omitempty"`

	RollingUpdate *RollingUpdate `json:"rollingUpdate,omitempty"`
	AutoScaling   *AutoScaling   `json:"autoScaling,omitempty"`

	ServiceAnnotations map[string]string `json:"serviceAnnotations,omitempty"`
	Labels             map[string]string `json:"labels,omitempty"`

	Gateway      *Gateway      `json:"gateway,omitempty"`
	Kafka        *Kafka        `json:"kafka,omitempty"`
	DataHandling *DataHandling `json:"dataHandling,omitempty"`
	Configs      *ConfigMap    `json:"configs,omitempty"`
	SourceRanges []string      `json:"sourceRanges,omitempty"`
	Rbac         []Rbac        `json:"rbac,omitempty"`
}

// Port is an additional exposed port.
type Port struct {
	Name       string `yaml:"name" json:"name"`
	Port       int32  `yaml:"port" json:"port"`
	TargetPort *int32 `yaml:"targetPort,omitempty" json:"targetPort,omitempty"`
	Protocol   string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
}

// HealthCheck is the simplified readiness check. Wait is the number of
// seconds before the first check.
type HealthCheck struct {
	URI  string `yaml:"uri" json:"uri"`
	Wait int32  `yaml:"wait,omitempty" json:"wait,omitempty"`
}

// Probe is a Kubernetes readiness or liveness probe.
type Probe struct {
	HTTPGet             *HTTPGetAction `yaml:"httpGet,omitempty" json:"httpGet,omitempty"`
	Exec                []string       `yaml:"exec,omitempty" json:"exec,omitempty"`
	InitialDelaySeconds int32          `yaml:"initialDelaySeconds,omitempty" json:"initialDelaySeconds,omitempty"`
	PeriodSeconds       int32          `yaml:"periodSeconds,omitempty" json:"periodSeconds,omitempty"`
	TimeoutSeconds      int32          `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty"`
	FailureThreshold    int32          `yaml:"failureThreshold,omitempty" json:"failureThreshold,omitempty"`
}

// HTTPGetAction probes a path on a port of the container.
type HTTPGetAction struct {
	Path string `yaml:"path" json:"path"`
	Port int32  `yaml:"port,omitempty" json:"port,omitempty"`
}

// Dependency is a declared upstream of the service. Dependencies are
// recorded only; reconciliation does not order on them.
type Dependency struct {
	Name     string `yaml:"name" json:"name"`
	API      string `yaml:"api,omitempty" json:"api,omitempty"`
	Contract string `yaml:"contract,omitempty" json:"contract,omitempty"`
	Protocol string `yaml:"protocol,omitempty" json:"protocol,omitempty"`
	Intent   string `yaml:"intent,omitempty" json:"intent,omitempty"`
}

// RollingUpdate mirrors the Deployment rolling update strategy. Both values
// are an absolute count or a percentage such as "25%".
type RollingUpdate struct {
	MaxUnavailable *string `yaml:"maxUnavailable,omitempty" json:"maxUnavailable,omitempty"`
	MaxSurge       *string `yaml:"maxSurge,omitempty" json:"maxSurge,omitempty"`
}

// AutoScaling configures a horizontal pod autoscaler.
type AutoScaling struct {
	MinReplicas          int32  `yaml:"minReplicas" json:"minReplicas"`
	MaxReplicas          int32  `yaml:"maxReplicas" json:"maxReplicas"`
	TargetCPUUtilization *int32 `yaml:"targetCpuUtilization,omitempty" json:"targetCpuUtilization,omitempty"`
}

// Rbac is one rule granted to the service account.
type Rbac struct {
	APIGroups []string `yaml:"apiGroups" json:"apiGroups"`
	Resources []string `yaml:"resources" json:"resources"`
	Verbs     []string `yaml:"verbs" json:"verbs"`
}

// ConfigMap holds config files rendered from templates.
type ConfigMap struct {
	Name  string       `json:"name"`
	Mount string       `json:"mount"`
	Files []ConfigFile `json:"files"`
}

// ConfigFile is one templated file. Value holds the raw template text until
// the values artifact is rendered.
type ConfigFile struct {
	Name  string `json:"name"`
	Dest  string `json:"dest"`
	Value string `json:"value,omitempty"`
}

// Gateway is the resolved API gateway exposure of a service.
type Gateway struct {
	Name          string         `json:"name"`
	Public        bool           `json:"public"`
	Hosts         []string       `json:"hosts"`
	Uris          []string       `json:"uris,omitempty"`
	UpstreamURL   string         `json:"upstreamUrl"`
	StripURI      bool           `json:"stripUri"`
	PreserveHost  bool           `json:"preserveHost"`
	Authorization *Authorization `json:"authorization,omitempty"`
}

// Authorization is the resolved JWT policy of a gateway.
type Authorization struct {
	AllowedAudiences   []string `json:"allowedAudiences"`
	AllowAnonymous     bool     `json:"allowAnonymous"`
	AllowInvalidTokens bool     `json:"allowInvalidTokens"`
	RequiredScopes     []string `json:"requiredScopes,omitempty"`
	AllowCookies       bool     `json:"allowCookies"`
}

// Kafka is the resolved messaging configuration.
type Kafka struct {
	Brokers       []string     `json:"brokers"`
	Zookeeper     []string     `json:"zookeeper,omitempty"`
	ConsumerGroup string       `json:"consumerGroup"`
	Topics        []KafkaTopic `json:"topics,omitempty"`
}

// KafkaTopic is a topic owned by the service.
type KafkaTopic struct {
	Name              string `json:"name"`
	Partitions        int32  `json:"partitions"`
	ReplicationFactor int32  `json:"replicationFactor"`
}

// DataHandling classifies the data a service stores.
type DataHandling struct {
	Stores    []DataStore `json:"stores"`
	Processes []string    `json:"processes,omitempty"`
}

// DataStore is one backing store of the service.
type DataStore struct {
	Backend         string      `json:"backend"`
	Encrypted       bool        `json:"encrypted"`
	RetentionPeriod string      `json:"retentionPeriod,omitempty"`
	Fields          []DataField `json:"fields,omitempty"`
}

// DataField is a classified field inside a store.
type DataField struct {
	Name            string `json:"name"`
	PII             bool   `json:"pii"`
	SPII            bool   `json:"spii"`
	Encrypted       bool   `json:"encrypted"`
	RetentionPeriod string `json:"retentionPeriod,omitempty"`
}
