package summary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-github/v42/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campy-amr/tools/cmd/campy-amr/quinolone"
	"github.com/campy-amr/tools/cmd/campy-amr/table"
)

func testSummary(t *testing.T) *quinolone.Summary {
	t.Helper()

	tb, err := table.Read(strings.NewReader("Isolate\tQuinolone\nA\tgyrA_T86I\nB\t\n"))
	require.NoError(t, err)

	s, err := quinolone.Summarize(tb)
	require.NoError(t, err)

	return s
}

func TestParseRepo(t *testing.T) {
	owner, name, err := ParseRepo("my-lab/campy-surveillance")
	require.NoError(t, err)
	assert.Equal(t, "my-lab", owner)
	assert.Equal(t, "campy-surveillance", name)

	for _, bad := range []string{"", "my-lab", "my-lab/", "/repo", "a/b/c"} {
		_, _, err := ParseRepo(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIssue(t *testing.T) {
	ir, err := BuildIssue("Quinolone resistance: batch 1", testSummary(t))
	require.NoError(t, err)

	assert.Equal(t, "Quinolone resistance: batch 1", ir.GetTitle())
	assert.Contains(t, ir.GetBody(), "- Resistant: 1 (50.0%)")
	assert.Equal(t, IssueLabels, *ir.Labels)
}

func TestNewPublisherRequiresToken(t *testing.T) {
	_, err := NewPublisher(context.Background(), "my-lab/campy", "")
	require.Error(t, err)
}

func TestPost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/my-lab/campy/issues", r.URL.Path)
		assert.Equal(t, "Bearer abc123", r.Header.Get("Authorization"))

		var ir github.IssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ir))
		assert.Equal(t, "Summary", ir.GetTitle())

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"number":   12,
			"html_url": "https://github.com/my-lab/campy/issues/12",
		})
	}))
	defer srv.Close()

	p, err := NewPublisher(context.Background(), "my-lab/campy", "abc123")
	require.NoError(t, err)

	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	p.client.BaseURL = base

	ir, err := BuildIssue("Summary", testSummary(t))
	require.NoError(t, err)

	issue, err := p.Post(context.Background(), ir)
	require.NoError(t, err)
	assert.Equal(t, 12, issue.GetNumber())
	assert.Equal(t, "https://github.com/my-lab/campy/issues/12", issue.GetHTMLURL())
}
