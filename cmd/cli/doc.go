// Package cli constructs the tsrc command-line interface, wiring the Cobra
// command hierarchy, configuration loader, and structured logging primitives
// around the workspace synchronization feature packages. It exposes helpers to
// build reusable application instances and to execute the default command set.
package cli
