// Package gitrepo contains helpers for interrogating and manipulating Git repositories.
//
// It exposes RepositoryManager for cloning, updating, and probing workspace
// repositories through the shared shell executor.
package gitrepo
