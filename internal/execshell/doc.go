// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging and lifecycle notifications via ShellExecutor,
// exposes OSCommandRunner for default process execution, and defines the
// abstractions the workspace engine uses to drive git in a testable manner.
package execshell
