package packer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v67/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repopack-ai/repopack/pkg/models"
)

type fakeRepo struct {
	headSHA string
	tree    string            // JSON tree response
	blobs   map[string]string // blob SHA -> raw content
}

func newFakePacker(t *testing.T, repo fakeRepo) *GitHub {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"name":"main","commit":{"sha":%q}}`, repo.headSHA)
	})
	mux.HandleFunc("/repos/acme/widgets/git/trees/"+repo.headSHA, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, repo.tree)
	})
	mux.HandleFunc("/repos/acme/widgets/git/blobs/", func(w http.ResponseWriter, r *http.Request) {
		sha := r.URL.Path[len("/repos/acme/widgets/git/blobs/"):]
		content, ok := repo.blobs[sha]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, content)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return NewGitHub(WithClient(client))
}

func TestPackFiltersAndConcatenates(t *testing.T) {
	p := newFakePacker(t, fakeRepo{
		headSHA: "head1",
		tree: `{"sha":"head1","truncated":false,"tree":[
			{"path":"main.go","type":"blob","sha":"b1"},
			{"path":"main_test.go","type":"blob","sha":"b2"},
			{"path":"node_modules/dep/index.js","type":"blob","sha":"b3"},
			{"path":"docs","type":"tree","sha":"t1"},
			{"path":"logo.png","type":"blob","sha":"b4"}
		]}`,
		blobs: map[string]string{
			"b1": "package main\n",
			"b2": "package main // test\n",
			"b3": "module.exports = {}\n",
			"b4": "binary\x00data",
		},
	})

	cfg := models.SliceConfig{IgnoreGlobs: []string{"**/*_test.go", "*_test.go"}}
	res, err := p.Pack(context.Background(), "acme/widgets", "main", cfg)
	require.NoError(t, err)

	out := string(res.Output)
	assert.Contains(t, out, "File: main.go")
	assert.Contains(t, out, "package main")
	assert.NotContains(t, out, "main_test.go")
	assert.NotContains(t, out, "node_modules")
	assert.NotContains(t, out, "logo.png")

	assert.Equal(t, 1, res.Stats.FileCount)
	assert.Equal(t, int64(len(res.Output)), res.Stats.ApproxChars)
	assert.Equal(t, res.Stats.ApproxChars/4, res.Stats.ApproxTokens)
}

func TestPackRespectsGitignore(t *testing.T) {
	p := newFakePacker(t, fakeRepo{
		headSHA: "head2",
		tree: `{"sha":"head2","truncated":false,"tree":[
			{"path":".gitignore","type":"blob","sha":"g1"},
			{"path":"keep.go","type":"blob","sha":"b1"},
			{"path":"secret.txt","type":"blob","sha":"b2"}
		]}`,
		blobs: map[string]string{
			"g1": "# build output\nsecret.txt\n!never-negated\n",
			"b1": "package keep\n",
			"b2": "s3cr3t\n",
		},
	})

	res, err := p.Pack(context.Background(), "acme/widgets", "main", models.SliceConfig{})
	require.NoError(t, err)

	out := string(res.Output)
	assert.Contains(t, out, "File: keep.go")
	assert.NotContains(t, out, "s3cr3t")
}

func TestPackIncludeGlobs(t *testing.T) {
	p := newFakePacker(t, fakeRepo{
		headSHA: "head3",
		tree: `{"sha":"head3","truncated":false,"tree":[
			{"path":"src/app.ts","type":"blob","sha":"b1"},
			{"path":"README.md","type":"blob","sha":"b2"}
		]}`,
		blobs: map[string]string{
			"b1": "export {}\n",
			"b2": "# readme\n",
		},
	})

	cfg := models.SliceConfig{IncludeGlobs: []string{"src/**"}}
	res, err := p.Pack(context.Background(), "acme/widgets", "main", cfg)
	require.NoError(t, err)

	out := string(res.Output)
	assert.Contains(t, out, "File: src/app.ts")
	assert.NotContains(t, out, "README.md")
	assert.Equal(t, 1, res.Stats.FileCount)
}

func TestPackInvalidRepoName(t *testing.T) {
	p := NewGitHub()
	_, err := p.Pack(context.Background(), "not-a-repo", "main", models.SliceConfig{})
	assert.Error(t, err)
}

func TestStripBlankLines(t *testing.T) {
	in := "a\n\n  \nb\n"
	assert.Equal(t, "a\nb", stripBlankLines(in))
}

func TestStripComments(t *testing.T) {
	in := "code()\n// comment\n# another\nmore()"
	assert.Equal(t, "code()\nmore()", stripComments(in))
}

func TestParseIgnoreFile(t *testing.T) {
	patterns := parseIgnoreFile("# comment\n\ndist/\n!keep.me\n*.log\n")
	assert.Contains(t, patterns, "dist")
	assert.Contains(t, patterns, "dist/**")
	assert.Contains(t, patterns, "**/*.log")
	for _, pat := range patterns {
		assert.NotContains(t, pat, "keep.me")
		assert.NotContains(t, pat, "#")
	}
}
