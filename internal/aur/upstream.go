package aur

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultLookupTimeout bounds the per-package lookups.
const DefaultLookupTimeout = 2 * time.Second

// maxLookupBody caps the size of a PKGBUILD or comments page.
const maxLookupBody = 4 * 1024 * 1024

// Comment is one comment anchor on a package page.
type Comment struct {
	ID   string
	Date string
}

// Upstream performs the best-effort per-package lookups against the AUR
// web interface.
type Upstream struct {
	baseURL string
	client  *http.Client
}

// UpstreamOption configures an Upstream.
type UpstreamOption func(*Upstream)

// WithBaseURL sets the AUR base URL.
func WithBaseURL(baseURL string) UpstreamOption {
	return func(u *Upstream) {
		u.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithUpstreamClient sets a custom HTTP client.
func WithUpstreamClient(client *http.Client) UpstreamOption {
	return func(u *Upstream) {
		u.client = client
	}
}

// WithLookupTimeout sets the timeout of the default HTTP client.
func WithLookupTimeout(d time.Duration) UpstreamOption {
	return func(u *Upstream) {
		u.client = &http.Client{Timeout: d}
	}
}

// NewUpstream creates a new Upstream.
func NewUpstream(opts ...UpstreamOption) *Upstream {
	u := &Upstream{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(u)
	}
	u.client = newClient(u.client, DefaultLookupTimeout)
	return u
}

// BaseURL returns the AUR base URL in use.
func (u *Upstream) BaseURL() string {
	return u.baseURL
}

// FetchPKGBUILD returns the raw PKGBUILD of a package base.
func (u *Upstream) FetchPKGBUILD(ctx context.Context, base string) (string, error) {
	reqURL := u.baseURL + "/cgit/aur.git/plain/PKGBUILD?h=" + url.QueryEscape(base)
	body, err := u.get(ctx, reqURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchComments returns the comment anchors of a package page, newest
// first as the page lists them.
func (u *Upstream) FetchComments(ctx context.Context, name string) ([]Comment, error) {
	reqURL := u.baseURL + "/packages/" + url.PathEscape(name) + "/"
	body, err := u.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	return ParseComments(bytes.NewReader(body))
}

func (u *Upstream) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned %d", ErrServer, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrNetwork, err)
	}
	return body, nil
}

// ParseComments extracts anchors whose href points at a "#comment-" fragment.
// Repeated anchors for the same comment are reported once.
func ParseComments(r io.Reader) ([]Comment, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	var comments []Comment
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				i := strings.Index(attr.Val, "#comment-")
				if i < 0 {
					break
				}
				id := attr.Val[i+len("#comment-"):]
				if id != "" && !seen[id] {
					seen[id] = true
					comments = append(comments, Comment{ID: id, Date: strings.TrimSpace(textContent(n))})
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return comments, nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
