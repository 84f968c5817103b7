// Package ui renders human-readable console output.
//
// The console observer translates shell command lifecycle events into concise
// progress messages so synchronization feedback stays actionable for CLI users
// while detailed telemetry continues to flow through structured loggers.
package ui
