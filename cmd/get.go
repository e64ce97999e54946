package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"kubeship/internal/cli"
	"kubeship/internal/dependency"
	"kubeship/internal/manifest"
)

// serviceMap is a service → value listing. It renders as a two column
// table and marshals as a plain map.
type serviceMap struct {
	column string
	values map[string]string
}

func (s serviceMap) Headers() []string {
	return []string{"SERVICE", s.column}
}

func (s serviceMap) Rows() [][]string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, s.values[name]})
	}
	return rows
}

func (s serviceMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.values)
}

// pinnedVersions maps services to their pinned versions. Services without a
// pinned version or with a version that is not semantic are left out.
func pinnedVersions(services []manifest.SimpleManifest) map[string]string {
	out := make(map[string]string)
	for _, sm := range services {
		if sm.Version == nil {
			continue
		}
		if _, err := semver.NewVersion(*sm.Version); err != nil {
			continue
		}
		out[sm.Name] = *sm.Version
	}
	return out
}

// images maps services to their images.
func images(services []manifest.SimpleManifest) map[string]string {
	out := make(map[string]string, len(services))
	for _, sm := range services {
		out[sm.Name] = sm.Image
	}
	return out
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show resolved information about services and regions",
	}

	cmd.AddCommand(newGetListingCmd("versions", "Show the pinned versions of services in a region", "VERSION", pinnedVersions))
	cmd.AddCommand(newGetListingCmd("images", "Show the images of services in a region", "IMAGE", images))
	cmd.AddCommand(newGetManifestCmd())
	cmd.AddCommand(newGetClusterInfoCmd())
	cmd.AddCommand(newGetDependenciesCmd())
	return cmd
}

func newGetListingCmd(use, short, column string, reduce func([]manifest.SimpleManifest) map[string]string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			available, err := ws.Store.Available(ws.Config, ws.Region)
			if err != nil {
				return err
			}

			formatter, err := rootFlags.Formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return formatter.FormatData(serviceMap{column: column, values: reduce(available)})
		},
	}
}

func newGetManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <service>",
		Short: "Show the fully resolved manifest of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			m, err := ws.Store.Load(args[0], ws.Config, ws.Region)
			if err != nil {
				return err
			}

			formatter, err := rootFlags.Formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return formatter.FormatData(m)
		},
	}
}

func newGetClusterInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clusterinfo",
		Short: "Show the cluster backing a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			name, cl, err := ws.Config.ClusterFor(ws.Region)
			if err != nil {
				return err
			}

			formatter, err := rootFlags.Formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return formatter.FormatData(map[string]string{
				"region":      ws.Region.Name,
				"environment": ws.Region.Environment,
				"namespace":   ws.Region.Namespace,
				"cluster":     name,
				"context":     cl.Context,
				"api":         cl.API,
			})
		},
	}
}

// dependencyListing renders a dependency graph as one row per service.
type dependencyListing struct {
	graph *dependency.Graph
}

type dependencyEntry struct {
	DependsOn  []dependency.NodeID `json:"dependsOn"`
	DependedOn []dependency.NodeID `json:"dependedOnBy"`
	Missing    []dependency.NodeID `json:"missing,omitempty"`
	External   bool                `json:"external,omitempty"`
}

func (d dependencyListing) Headers() []string {
	return []string{"SERVICE", "DEPENDS ON", "DEPENDED ON BY", "MISSING"}
}

func (d dependencyListing) Rows() [][]string {
	ids := d.graph.IDs()
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		name := string(id)
		if d.graph.Get(id).Kind == dependency.KindExternal {
			name += " (external)"
		}
		rows = append(rows, []string{
			name,
			joinIDs(d.graph.Dependencies(id)),
			joinIDs(d.graph.Dependents(id)),
			joinIDs(d.graph.Missing(id)),
		})
	}
	return rows
}

func (d dependencyListing) MarshalJSON() ([]byte, error) {
	out := make(map[string]dependencyEntry)
	for _, id := range d.graph.IDs() {
		out[string(id)] = dependencyEntry{
			DependsOn:  orEmpty(d.graph.Dependencies(id)),
			DependedOn: orEmpty(d.graph.Dependents(id)),
			Missing:    d.graph.Missing(id),
			External:   d.graph.Get(id).Kind == dependency.KindExternal,
		}
	}
	return json.Marshal(out)
}

func joinIDs(ids []dependency.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func orEmpty(ids []dependency.NodeID) []dependency.NodeID {
	if ids == nil {
		return []dependency.NodeID{}
	}
	return ids
}

func newGetDependenciesCmd() *cobra.Command {
	var failOnCycle bool
	cmd := &cobra.Command{
		Use:   "dependencies",
		Short: "Show the declared dependencies between services in a region",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := cli.LoadWorkspace(&rootFlags, true)
			if err != nil {
				return err
			}
			available, err := ws.Store.Available(ws.Config, ws.Region)
			if err != nil {
				return err
			}
			services := make([]*manifest.Manifest, 0, len(available))
			for _, sm := range available {
				m, err := ws.Store.Load(sm.Name, ws.Config, ws.Region)
				if err != nil {
					return err
				}
				services = append(services, m)
			}

			graph := dependency.FromManifests(services)
			if cycle := graph.FindCycle(); cycle != nil {
				if failOnCycle {
					return fmt.Errorf("dependency cycle: %s", joinCycle(cycle))
				}
				fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning("dependency cycle: "+joinCycle(cycle)))
			}

			formatter, err := rootFlags.Formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return formatter.FormatData(dependencyListing{graph: graph})
		},
	}
	cmd.Flags().BoolVar(&failOnCycle, "fail-on-cycle", false, "Exit with an error when the dependencies form a cycle")
	return cmd
}

func joinCycle(cycle []dependency.NodeID) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}
