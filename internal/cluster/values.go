package cluster

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"kubeship/internal/manifest"
)

// LoadValues reads a values artifact back into a manifest.
func LoadValues(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file %s: %w", path, err)
	}
	var m manifest.Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}
	return &m, nil
}

// objectsFor builds every object applied for a manifest, in apply order.
func objectsFor(m *manifest.Manifest) ([]objectRef, error) {
	var objs []objectRef
	if cm := BuildConfigMap(m); cm != nil {
		objs = append(objs, objectRef{kind: "ConfigMap", obj: cm})
	}
	if svc := BuildService(m); svc != nil {
		objs = append(objs, objectRef{kind: "Service", obj: svc})
	}
	deploy, err := BuildDeployment(m)
	if err != nil {
		return nil, err
	}
	objs = append(objs, objectRef{kind: "Deployment", obj: deploy})
	workers, err := BuildWorkerDeployments(m)
	if err != nil {
		return nil, err
	}
	for _, w := range workers {
		objs = append(objs, objectRef{kind: "Deployment", obj: w})
	}
	return objs, nil
}
