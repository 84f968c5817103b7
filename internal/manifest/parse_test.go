package manifest_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sebastiken/tsrc/internal/manifest"
)

const validManifestContentConstant = `repos:
  - name: libfoo
    url: https://example.com/libfoo.git
    branch: main
    groups: [platform]
    copy:
      - file: hooks/pre-commit
        dest: .hooks/pre-commit
  - name: api
    url: https://example.com/api.git
    fixed_ref: deadbeef
    dest: services/api
    sparse_paths: [docs, src]
groups:
  platform:
    repos: [api]
    default: true
`

func TestParseReadsManifestContent(t *testing.T) {
	t.Parallel()

	parsed, parseError := manifest.Parse([]byte(validManifestContentConstant))
	require.NoError(t, parseError)
	require.Len(t, parsed.Repositories, 2)

	first := parsed.Repositories[0]
	require.Equal(t, "libfoo", first.Name)
	require.Equal(t, "https://example.com/libfoo.git", first.RemoteURL)
	require.Equal(t, "main", first.Branch)
	require.Equal(t, []string{"platform"}, first.Groups)
	require.Equal(t, []manifest.CopyDirective{{File: "hooks/pre-commit", Destination: ".hooks/pre-commit"}}, first.Copies)

	second := parsed.Repositories[1]
	require.Equal(t, "api", second.Name)
	require.Equal(t, "deadbeef", second.FixedReference)
	require.Equal(t, "services/api", second.Destination)
	require.Equal(t, []string{"docs", "src"}, second.SparsePaths)

	require.Len(t, parsed.Groups, 1)
	platformGroup := parsed.Groups["platform"]
	require.Equal(t, []string{"api"}, platformGroup.Repositories)
	require.True(t, platformGroup.Default)
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name             string
		content          string
		expectedFragment string
	}{
		{
			name:             "empty_content",
			content:          "",
			expectedFragment: "unable to parse manifest",
		},
		{
			name:             "unknown_field",
			content:          "repos:\n  - name: libfoo\n    url: https://example.com/libfoo.git\n    fixed-ref: deadbeef\n",
			expectedFragment: "unable to parse manifest",
		},
		{
			name:             "missing_name",
			content:          "repos:\n  - url: https://example.com/libfoo.git\n",
			expectedFragment: "repository entry 0 is missing a name",
		},
		{
			name:             "missing_url",
			content:          "repos:\n  - name: libfoo\n",
			expectedFragment: "is missing a url",
		},
		{
			name:             "duplicate_name",
			content:          "repos:\n  - name: libfoo\n    url: https://example.com/a.git\n  - name: libfoo\n    url: https://example.com/b.git\n",
			expectedFragment: "duplicate repository name",
		},
		{
			name:             "unknown_group_member",
			content:          "repos:\n  - name: libfoo\n    url: https://example.com/libfoo.git\ngroups:\n  platform:\n    repos: [ghost]\n",
			expectedFragment: "references unknown repository",
		},
		{
			name:             "unknown_include",
			content:          "repos:\n  - name: libfoo\n    url: https://example.com/libfoo.git\ngroups:\n  platform:\n    repos: [libfoo]\n    includes: [ghost]\n",
			expectedFragment: "unknown group",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, parseError := manifest.Parse([]byte(testCase.content))
			require.ErrorContains(t, parseError, testCase.expectedFragment)
		})
	}
}
