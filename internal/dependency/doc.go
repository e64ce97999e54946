// Package dependency provides a graph of the declared dependencies between
// services.
//
// Dependencies are informational: reconciliation does not order rollouts by
// them. The graph is used to list dependents, spot dependencies on services
// that do not exist in a region, and detect cycles.
package dependency
