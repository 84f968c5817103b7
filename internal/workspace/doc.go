// Package workspace persists workspace bookkeeping beneath the hidden state
// directory. It exposes the record describing the manifest source and the
// synchronized position of every managed repository, together with the mirror
// clone the manifest is refreshed from.
package workspace
