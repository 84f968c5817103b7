// Package status reports the observed state of every workspace repository
// against its manifest target: presence, checked-out reference, uncommitted
// changes, and divergence from the upstream tracking branch.
//
// It offers CommandBuilder for wiring the status Cobra command and Service
// for collecting statuses programmatically.
package status
