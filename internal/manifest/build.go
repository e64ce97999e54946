package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"kubeship/internal/config"
	"kubeship/pkg/merge"
)

// DefaultChart is used when no layer names a chart.
const DefaultChart = "base"

// TemplateReader reads named config templates for a service. Missing
// templates are reported with an error wrapping fs.ErrNotExist.
type TemplateReader interface {
	ReadTemplate(service, name string) (string, error)
}

// BuildBase resolves the region independent identity of a service.
func BuildBase(src ManifestSource, conf *config.Config) (*BaseManifest, error) {
	if src.Name == "" {
		return nil, &ValidationError{Service: "<unnamed>", Reason: ReasonMissingName, Field: "name", Message: "service name is required"}
	}
	if src.Metadata == nil {
		return nil, &ValidationError{Service: src.Name, Reason: ReasonMissingMetadata, Field: "metadata", Message: "metadata is required"}
	}
	md := *src.Metadata
	if md.Team == "" {
		return nil, &ValidationError{Service: src.Name, Reason: ReasonMissingMetadata, Field: "metadata.team", Message: "owning team is required"}
	}
	team, ok := conf.Team(md.Team)
	if !ok {
		return nil, &ValidationError{Service: src.Name, Reason: ReasonUnknownTeam, Field: "metadata.team",
			Message: fmt.Sprintf("team %q is not defined in config", md.Team)}
	}

	return &BaseManifest{
		Name:    src.Name,
		Regions: src.Regions,
		Metadata: Metadata{
			Team:          md.Team,
			Repo:          md.Repo,
			Language:      md.Language,
			Maintainers:   md.Maintainers,
			Support:       merge.Value(team.Support, md.Support),
			Notifications: merge.Value(team.Notifications, md.Notifications),
		},
	}, nil
}

// BuildSimple resolves the cheap projection of a service in a region. It
// reads no templates and skips the full invariant check.
func BuildSimple(src ManifestSource, layers []ManifestOverrides, conf *config.Config, region *config.Region) (*SimpleManifest, error) {
	base, err := BuildBase(src, conf)
	if err != nil {
		return nil, err
	}
	ov := resolveOverrides(src, layers, conf, region)

	image, err := buildImage(base.Name, ov)
	if err != nil {
		return nil, err
	}
	team, _ := conf.Team(base.Metadata.Team)
	namespace := CoalesceNamespace(team, region.Namespace)
	gw, err := deriveGateway(ov.Gateway, ov.Hosts, base.Name, namespace, ov.HTTPPort,
		merge.Deref(ov.PubliclyAccessible, false), region)
	if err != nil {
		return nil, forService(base.Name, err)
	}

	return &SimpleManifest{
		BaseManifest: *base,
		Region:       region.Name,
		Enabled:      !src.Disabled && slices.Contains(src.Regions, region.Name),
		External:     src.External,
		Image:        image,
		Version:      ov.Version,
		Gateway:      gw,
	}, nil
}

// Build resolves the full manifest of a service in a region. Layers are
// applied in order on top of the global defaults, the region defaults and
// the service file itself. No partial manifest is returned on error.
func Build(src ManifestSource, layers []ManifestOverrides, conf *config.Config, region *config.Region, templates TemplateReader) (*Manifest, error) {
	base, err := BuildBase(src, conf)
	if err != nil {
		return nil, err
	}
	name := base.Name
	ov := resolveOverrides(src, layers, conf, region)

	image, err := buildImage(name, ov)
	if err != nil {
		return nil, err
	}
	if ov.ReplicaCount == nil {
		return nil, forService(name, requiredField("replicaCount"))
	}

	team, _ := conf.Team(base.Metadata.Team)
	namespace := CoalesceNamespace(team, region.Namespace)
	public := merge.Deref(ov.PubliclyAccessible, false)

	m := &Manifest{
		Name:               name,
		Region:             region.Name,
		Environment:        region.Environment,
		Namespace:          namespace,
		Regions:            base.Regions,
		Metadata:           base.Metadata,
		Chart:              merge.Deref(ov.Chart, DefaultChart),
		Disabled:           src.Disabled,
		External:           src.External,
		PubliclyAccessible: public,
		Image:              image,
		ImageSize:          ov.ImageSize,
		Version:            ov.Version,
		Command:            ov.Command,
		Env:                ov.Env,
		ReplicaCount:       *ov.ReplicaCount,
		HTTPPort:           ov.HTTPPort,
		Ports:              ov.Ports,
		Health:             ov.Health,
		ReadinessProbe:     ov.ReadinessProbe,
		LivenessProbe:      ov.LivenessProbe,
		Dependencies:       ov.Dependencies,
		RollingUpdate:      ov.RollingUpdate,
		AutoScaling:        ov.AutoScaling,
		ServiceAnnotations: ov.ServiceAnnotations,
		Labels:             ov.Labels,
		SourceRanges:       ov.SourceRanges,
		Rbac:               ov.Rbac,
	}

	m.Gateway, err = deriveGateway(ov.Gateway, ov.Hosts, name, namespace, ov.HTTPPort, public, region)
	if err != nil {
		return nil, forService(name, err)
	}
	m.Kafka = deriveKafka(ov.Kafka, name, region)
	m.DataHandling = deriveDataHandling(ov.DataHandling)

	if err := buildContainers(m, ov); err != nil {
		return nil, forService(name, err)
	}
	if ov.Resources != nil {
		if m.Resources, err = ov.Resources.Build(); err != nil {
			return nil, forService(name, within("resources", err))
		}
	}
	if m.Configs, err = readConfigs(templates, name, ov.Configs); err != nil {
		return nil, forService(name, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func resolveOverrides(src ManifestSource, layers []ManifestOverrides, conf *config.Config, region *config.Region) ManifestOverrides {
	defaults := conf.Defaults.Merge(region.Defaults)
	chain := append([]ManifestOverrides{src.ManifestOverrides}, layers...)
	return mergeLayers(defaults, chain...)
}

// buildImage resolves the image: an explicit image wins, otherwise the
// service name under the image prefix.
func buildImage(service string, ov ManifestOverrides) (string, error) {
	if ov.Image != nil && *ov.Image != "" {
		return *ov.Image, nil
	}
	if ov.ImagePrefix != nil && *ov.ImagePrefix != "" {
		return fmt.Sprintf("%s/%s", *ov.ImagePrefix, service), nil
	}
	return "", &ValidationError{Service: service, Reason: ReasonMissingImage, Field: "image",
		Message: "no image given and no imagePrefix to derive one from"}
}

// CoalesceNamespace returns the team namespace when the team exists and
// defines one, the region namespace otherwise.
func CoalesceNamespace(team *config.Team, regionNamespace string) string {
	if team != nil && team.Namespace != nil && *team.Namespace != "" {
		return *team.Namespace
	}
	return regionNamespace
}

func buildContainers(m *Manifest, ov ManifestOverrides) error {
	params := ContainerBuildParams{ImagePrefix: ov.ImagePrefix, Env: ov.Env}
	var err error

	if m.Workers, err = buildList("workers", ov.Workers, func(s WorkerSource) (Worker, error) {
		return s.Build(params)
	}); err != nil {
		return err
	}
	if m.Sidecars, err = buildList("sidecars", ov.Sidecars, func(s SidecarSource) (Container, error) {
		return s.Build(params)
	}); err != nil {
		return err
	}
	if m.InitContainers, err = buildList("initContainers", ov.InitContainers, func(s InitContainerSource) (Container, error) {
		return s.Build(params)
	}); err != nil {
		return err
	}
	if m.Jobs, err = buildList("jobs", ov.Jobs, func(s JobSource) (Job, error) {
		return s.Build(params)
	}); err != nil {
		return err
	}
	m.CronJobs, err = buildList("cronJobs", ov.CronJobs, func(s CronJobSource) (CronJob, error) {
		return s.Build(params)
	})
	return err
}

func readConfigs(templates TemplateReader, service string, src *ConfigMapSource) (*ConfigMap, error) {
	if src == nil {
		return nil, nil
	}
	cm := &ConfigMap{
		Name:  merge.Deref(src.Name, service+"-config"),
		Mount: src.Mount,
		Files: make([]ConfigFile, 0, len(src.Files)),
	}
	for i, f := range src.Files {
		if templates == nil {
			return nil, newFieldError(ReasonMissingTemplate, fmt.Sprintf("configs.files[%d]", i),
				"no template source available for %s", f.Name)
		}
		value, err := templates.ReadTemplate(service, f.Name)
		if err != nil {
			msg := "could not read template " + f.Name
			if errors.Is(err, fs.ErrNotExist) {
				msg = "template " + f.Name + " not found in service or shared templates"
			}
			return nil, &fieldError{reason: ReasonMissingTemplate, field: fmt.Sprintf("configs.files[%d]", i), message: msg, err: err}
		}
		cm.Files = append(cm.Files, ConfigFile{Name: f.Name, Dest: f.Dest, Value: value})
	}
	return cm, nil
}
