package workspace

// RepositoryState captures the last synchronized position of one repository.
type RepositoryState struct {
	LocalPath           string `yaml:"local_path"`
	LastSyncedReference string `yaml:"last_synced_ref"`
	LastSyncedCommit    string `yaml:"last_synced_commit"`
}

// WorkspaceRecord is the persisted description of an initialized workspace. It
// names the manifest source, the active group selection, and the synchronized
// state of every managed repository keyed by manifest name.
type WorkspaceRecord struct {
	ManifestURL    string                     `yaml:"manifest_url,omitempty"`
	ManifestBranch string                     `yaml:"manifest_branch,omitempty"`
	ManifestPath   string                     `yaml:"manifest_path,omitempty"`
	GroupNames     []string                   `yaml:"groups,omitempty"`
	Repositories   map[string]RepositoryState `yaml:"repositories,omitempty"`
}

// UsesLocalManifest reports whether the workspace reads its manifest from a
// local file instead of the mirror clone.
func (record WorkspaceRecord) UsesLocalManifest() bool {
	return len(record.ManifestPath) > 0
}
