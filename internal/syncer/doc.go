// Package syncer implements the workspace synchronization pipeline: planning
// per-repository actions from resolved manifest targets and recorded state,
// executing them with bounded parallelism, and reconciling the workspace
// record from the collected outcomes.
package syncer
