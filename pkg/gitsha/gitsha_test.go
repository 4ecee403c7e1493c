package gitsha

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
)

// newFakeGitHub starts a fake GitHub API server and returns a resolver
// pointed at it.
func newFakeGitHub(t *testing.T, handler http.Handler) *GitHub {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return NewGitHub(WithClient(client))
}

func TestCurrentSHA(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"main","commit":{"sha":"abc123def"}}`)
	})
	g := newFakeGitHub(t, mux)

	sha, err := g.CurrentSHA(context.Background(), "acme/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123def", sha)
}

func TestCurrentSHABranchNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/branches/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Branch not found"}`)
	})
	g := newFakeGitHub(t, mux)

	_, err := g.CurrentSHA(context.Background(), "acme/widgets", "gone")
	assert.Error(t, err)
}

func TestCurrentSHAInvalidRepo(t *testing.T) {
	g := NewGitHub()

	_, err := g.CurrentSHA(context.Background(), "not-a-full-name", "main")
	assert.ErrorIs(t, err, ErrInvalidRepo)
}

func TestSplitFullName(t *testing.T) {
	owner, name, err := SplitFullName("acme/widgets")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", name)

	for _, bad := range []string{"", "acme", "acme/", "/widgets", "a/b/c"} {
		_, _, err := SplitFullName(bad)
		assert.ErrorIs(t, err, ErrInvalidRepo, "input %q", bad)
	}
}

func TestOwner(t *testing.T) {
	assert.Equal(t, "acme", Owner("acme/widgets"))
	assert.Equal(t, "", Owner("malformed"))
}
