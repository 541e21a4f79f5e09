// Package entrez is a small client for the NCBI E-utilities needed to locate
// genome assemblies by accession and fetch their sequences.
package entrez

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the E-utilities endpoint.
const DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

// DefaultTool identifies this program to NCBI.
const DefaultTool = "campy-amr"

// NCBI allows 3 requests per second per client, or 10 with an API key.
const (
	anonymousRate = 3
	apiKeyRate    = 10
)

var (
	ErrNotFound  = errors.New("no assembly found")
	ErrNoFTPPath = errors.New("no FTP link found")
)

// StatusError is returned for unexpected HTTP status codes.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Client queries the assembly database.
type Client struct {
	BaseURL string
	Email   string
	Tool    string
	APIKey  string
	HTTP    *http.Client

	limiter    *rate.Limiter
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u == "" {
			return
		}
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.BaseURL = u
	}
}

func WithEmail(email string) Option {
	return func(c *Client) { c.Email = email }
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.APIKey = key }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// WithRateLimit overrides the request rate derived from the API key.
func WithRateLimit(r rate.Limit) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, 1) }
}

// WithBackOff sets the retry policy. The function is called once per request.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = fn }
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 2 * time.Minute
	return backoff.WithMaxRetries(b, 5)
}

// NewClient initializes a client with the passed options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		BaseURL:    DefaultBaseURL,
		Tool:       DefaultTool,
		HTTP:       &http.Client{Timeout: 10 * time.Minute},
		newBackOff: defaultBackOff,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.limiter == nil {
		limit := rate.Limit(anonymousRate)
		if c.APIKey != "" {
			limit = apiKeyRate
		}
		c.limiter = rate.NewLimiter(limit, 1)
	}

	return c
}

func (c *Client) endpoint(name string, params url.Values) string {
	params.Set("retmode", "json")

	if c.Tool != "" {
		params.Set("tool", c.Tool)
	}
	if c.Email != "" {
		params.Set("email", c.Email)
	}
	if c.APIKey != "" {
		params.Set("api_key", c.APIKey)
	}

	return c.BaseURL + name + "?" + params.Encode()
}

// do performs a GET with rate limiting and retries. Transport errors, 429 and
// 5xx responses are retried. Errors returned by fn are retried unless they
// are wrapped with backoff.Permanent.
func (c *Client) do(ctx context.Context, u string, limit bool, fn func(*http.Response) error) error {
	op := func() error {
		if limit {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
			return &StatusError{URL: u, Code: resp.StatusCode}
		default:
			return backoff.Permanent(&StatusError{URL: u, Code: resp.StatusCode})
		}

		return fn(resp)
	}

	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *Client) getJSON(ctx context.Context, u string, v interface{}) error {
	return c.do(ctx, u, true, func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
}

type searchResponse struct {
	Result struct {
		IDs   []string `json:"idlist"`
		Error string   `json:"ERROR"`
	} `json:"esearchresult"`
}

// Search returns the assembly UID for an accession. When several records
// match, the first is used.
func (c *Client) Search(ctx context.Context, accession string) (string, error) {
	u := c.endpoint("esearch.fcgi", url.Values{
		"db":   {"assembly"},
		"term": {accession},
	})

	var resp searchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return "", err
	}

	if resp.Result.Error != "" {
		return "", fmt.Errorf("esearch: %s", resp.Result.Error)
	}

	if len(resp.Result.IDs) == 0 {
		return "", fmt.Errorf("%w for accession %s", ErrNotFound, accession)
	}

	return resp.Result.IDs[0], nil
}

// AssemblySummary holds the document summary fields used by this program.
type AssemblySummary struct {
	UID            string `json:"uid"`
	Accession      string `json:"assemblyaccession"`
	Name           string `json:"assemblyname"`
	Organism       string `json:"organism"`
	SpeciesName    string `json:"speciesname"`
	FTPPathGenBank string `json:"ftppath_genbank"`
	FTPPathRefSeq  string `json:"ftppath_refseq"`
	Error          string `json:"error"`
}

type summaryResponse struct {
	Error  string                     `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

// Summary fetches the document summary for an assembly UID.
func (c *Client) Summary(ctx context.Context, uid string) (*AssemblySummary, error) {
	u := c.endpoint("esummary.fcgi", url.Values{
		"db": {"assembly"},
		"id": {uid},
	})

	var resp summaryResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("esummary: %s", resp.Error)
	}

	raw, ok := resp.Result[uid]
	if !ok {
		return nil, fmt.Errorf("%w: uid %s missing from summary", ErrNotFound, uid)
	}

	var s AssemblySummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding summary for uid %s: %w", uid, err)
	}

	if s.Error != "" {
		return nil, fmt.Errorf("esummary uid %s: %s", uid, s.Error)
	}

	return &s, nil
}

// Lookup searches for an accession and returns its summary.
func (c *Client) Lookup(ctx context.Context, accession string) (*AssemblySummary, error) {
	uid, err := c.Search(ctx, accession)
	if err != nil {
		return nil, err
	}

	return c.Summary(ctx, uid)
}

// GenomeURL returns the HTTPS location of the genomic FASTA for an assembly.
// The GenBank directory is preferred and RefSeq is used when it is missing.
func GenomeURL(s *AssemblySummary) (string, error) {
	dir := s.FTPPathGenBank
	if dir == "" {
		dir = s.FTPPathRefSeq
	}

	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return "", ErrNoFTPPath
	}

	if strings.HasPrefix(dir, "ftp://") {
		dir = "https://" + strings.TrimPrefix(dir, "ftp://")
	}

	return fmt.Sprintf("%s/%s_genomic.fna.gz", dir, path.Base(dir)), nil
}

// Download writes the resource at u to dest and returns the number of bytes
// written. The body is streamed to a temporary file next to dest which is
// renamed into place once complete, so dest never holds a partial file.
// File downloads are retried but not subject to the E-utilities rate limit.
func (c *Client) Download(ctx context.Context, u, dest string) (int64, error) {
	tmp := dest + ".part"

	var n int64

	err := c.do(ctx, u, false, func(resp *http.Response) error {
		f, err := os.Create(tmp)
		if err != nil {
			return backoff.Permanent(err)
		}

		n, err = io.Copy(f, resp.Body)
		if cerr := f.Close(); err == nil {
			err = cerr
		}

		return err
	})

	if err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return 0, err
	}

	return n, nil
}
