package adapter

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/net/html"
)

// Directory lists invite codes published on a public group directory site.
// Category pages link to intermediate group pages, which embed the actual
// invite code.
type Directory interface {
	InviteCodes(ctx context.Context, category string, limit int) ([]string, error)
}

var (
	groupPagePattern  = regexp.MustCompile(`/group/\d+`)
	inviteCodePattern = regexp.MustCompile(`chat\.whatsapp\.com/([A-Za-z0-9]{22})`)
)

// DirectoryClient scrapes an HTML group directory.
type DirectoryClient struct {
	baseURL string
	client  *http.Client
}

type DirectoryOption func(*DirectoryClient)

func WithDirectoryHTTPClient(c *http.Client) DirectoryOption {
	return func(d *DirectoryClient) {
		d.client = c
	}
}

func NewDirectory(baseURL string, opts ...DirectoryOption) *DirectoryClient {
	d := &DirectoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// InviteCodes fetches a category page, follows up to limit group pages and
// extracts their invite codes. Group pages that yield no code are skipped.
func (d *DirectoryClient) InviteCodes(ctx context.Context, category string, limit int) ([]string, error) {
	body, err := d.fetch(ctx, d.baseURL+"/category/"+category)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch category page", goerr.V("category", category))
	}

	links, err := groupPageLinks(strings.NewReader(body), d.baseURL, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse category page", goerr.V("category", category))
	}

	codes := make([]string, 0, len(links))
	for _, link := range links {
		page, err := d.fetch(ctx, link)
		if err != nil {
			// One broken group page should not abort the whole sweep.
			continue
		}
		if code, ok := findInviteCode(page); ok {
			codes = append(codes, code)
		}
	}

	return codes, nil
}

func (d *DirectoryClient) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to build request", goerr.V("url", url))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "request failed", goerr.V("url", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", goerr.New("unexpected status", goerr.V("url", url), goerr.V("status", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", goerr.Wrap(err, "failed to read body", goerr.V("url", url))
	}

	return string(data), nil
}

// groupPageLinks walks the document and collects unique anchors pointing at
// group pages, resolved against base.
func groupPageLinks(r io.Reader, base string, limit int) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse html")
	}

	seen := map[string]struct{}{}
	var links []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(links) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" || !groupPagePattern.MatchString(attr.Val) {
					continue
				}
				link := attr.Val
				if strings.HasPrefix(link, "/") {
					link = base + link
				}
				if _, ok := seen[link]; ok {
					continue
				}
				seen[link] = struct{}{}
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func findInviteCode(page string) (string, bool) {
	m := inviteCodePattern.FindStringSubmatch(page)
	if m == nil {
		return "", false
	}
	return m[1], true
}
