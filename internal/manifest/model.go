package manifest

// CopyDirective describes a post-sync file copy from a repository working tree
// into the workspace.
type CopyDirective struct {
	File        string `yaml:"file"`
	Destination string `yaml:"dest"`
}

// RepositoryDescriptor describes a single manifest repository entry.
type RepositoryDescriptor struct {
	Name           string          `yaml:"name"`
	RemoteURL      string          `yaml:"url"`
	Branch         string          `yaml:"branch,omitempty"`
	FixedReference string          `yaml:"fixed_ref,omitempty"`
	Destination    string          `yaml:"dest,omitempty"`
	SparsePaths    []string        `yaml:"sparse_paths,omitempty"`
	Groups         []string        `yaml:"groups,omitempty"`
	Copies         []CopyDirective `yaml:"copy,omitempty"`
}

// GroupDefinition describes a named collection of repositories. Includes pull in
// the members of other groups recursively.
type GroupDefinition struct {
	Repositories []string `yaml:"repos,omitempty"`
	Includes     []string `yaml:"includes,omitempty"`
	Default      bool     `yaml:"default,omitempty"`
}

// Manifest is the deserialized workspace manifest.
type Manifest struct {
	Repositories []RepositoryDescriptor     `yaml:"repos"`
	Groups       map[string]GroupDefinition `yaml:"groups,omitempty"`
}
