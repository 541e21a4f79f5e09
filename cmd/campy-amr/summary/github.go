package summary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v42/github"
	"golang.org/x/oauth2"

	"github.com/campy-amr/tools/cmd/campy-amr/quinolone"
)

// IssueLabels are attached to every summary issue.
var IssueLabels = []string{
	"AMR",
	"Quinolone",
}

// ParseRepo splits an owner/name repository reference.
func ParseRepo(s string) (string, string, error) {
	toks := strings.Split(s, "/")

	if len(toks) != 2 || toks[0] == "" || toks[1] == "" {
		return "", "", fmt.Errorf("invalid repository '%s', expected owner/name", s)
	}

	return toks[0], toks[1], nil
}

// BuildIssue renders the summary as an issue request.
func BuildIssue(title string, s *quinolone.Summary) (*github.IssueRequest, error) {
	buf := bytes.NewBuffer(nil)

	if err := s.Markdown(buf); err != nil {
		return nil, err
	}

	body := buf.String()
	labels := append([]string(nil), IssueLabels...)

	return &github.IssueRequest{
		Title:  &title,
		Body:   &body,
		Labels: &labels,
	}, nil
}

// Publisher posts summary issues to a GitHub repository.
type Publisher struct {
	Owner string
	Repo  string

	client *github.Client
}

// NewPublisher initializes a publisher authenticated with token.
func NewPublisher(ctx context.Context, repo, token string) (*Publisher, error) {
	if token == "" {
		return nil, errors.New("a token is required to post issues to GitHub")
	}

	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	return &Publisher{
		Owner:  owner,
		Repo:   name,
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
	}, nil
}

// Post sends a request to the GitHub API to create an issue.
// Upon success, a concrete issue is returned with the number and URL.
func (p *Publisher) Post(ctx context.Context, ir *github.IssueRequest) (*github.Issue, error) {
	issue, _, err := p.client.Issues.Create(ctx, p.Owner, p.Repo, ir)
	if err != nil {
		return nil, err
	}

	return issue, nil
}
