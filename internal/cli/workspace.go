package cli

import (
	"errors"
	"fmt"

	"kubeship/internal/config"
	"kubeship/internal/filebacked"
	"kubeship/internal/manifest"
	"kubeship/internal/reconciler"
	"kubeship/pkg/logging"
)

// Workspace is a loaded configuration directory.
type Workspace struct {
	Config *config.Config
	Store  *filebacked.Store
	// Region is nil when no region was requested.
	Region *config.Region
}

// LoadWorkspace loads the configuration selected by flags. When needRegion
// is set, --region must name a configured region.
func LoadWorkspace(flags *CommandFlags, needRegion bool) (*Workspace, error) {
	conf, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Config: conf, Store: filebacked.NewStore(flags.ConfigPath)}
	if flags.Region == "" {
		if needRegion {
			return nil, errors.New("no region given: pass --region, set " + RegionEnv + " or select a context")
		}
		return ws, nil
	}

	ws.Region, err = conf.Region(flags.Region)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

// Jobs selects the services to reconcile in the workspace region. With no
// names, every enabled service that is not external is selected. Named
// services must be enabled in the region. Full resolution of each manifest
// is deferred to its job, so one invalid service does not stop the others.
func (w *Workspace) Jobs(names ...string) ([]reconciler.Job, error) {
	if len(names) == 0 {
		available, err := w.Store.Available(w.Config, w.Region)
		if err != nil {
			return nil, err
		}
		for _, sm := range available {
			if sm.External {
				logging.Debug("CLI", "Skipping external service %s", sm.Name)
				continue
			}
			names = append(names, sm.Name)
		}
	} else {
		for _, name := range names {
			sm, err := w.Store.LoadSimple(name, w.Config, w.Region)
			if err != nil {
				return nil, err
			}
			if !sm.Enabled {
				return nil, fmt.Errorf("service %s is not enabled in %s", name, w.Region.Name)
			}
		}
	}

	out := make([]reconciler.Job, 0, len(names))
	for _, name := range names {
		out = append(out, reconciler.Job{
			Service: name,
			Resolve: func() (*manifest.Manifest, error) {
				return w.Store.Load(name, w.Config, w.Region)
			},
		})
	}
	return out, nil
}
