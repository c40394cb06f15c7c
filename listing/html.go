package listing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLResolver reads listing pages over plain HTTP
type HTMLResolver struct {
	rootURL string
	client  *http.Client
	logger  *zap.Logger
}

// HTMLOption configures an HTMLResolver
type HTMLOption func(*HTMLResolver)

// WithHTTPClient sets the client used to fetch pages
func WithHTTPClient(client *http.Client) HTMLOption {
	return func(r *HTMLResolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) HTMLOption {
	return func(r *HTMLResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewHTMLResolver creates a resolver for the archive at rootURL. timeout
// bounds each page request.
func NewHTMLResolver(rootURL string, timeout time.Duration, opts ...HTMLOption) *HTMLResolver {
	r := &HTMLResolver{
		rootURL: rootURL,
		client:  &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveSeason implements Resolver
func (r *HTMLResolver) ResolveSeason(ctx context.Context, season int) (*Season, error) {
	r.logger.Info("Looking for season", zap.Int("season", season), zap.String("url", r.rootURL))

	root, err := r.fetch(ctx, r.rootURL)
	if err != nil {
		return nil, &ResolutionError{Season: season, URL: r.rootURL, Err: err}
	}

	link, ok := matchSeason(rootLinks(root), season)
	if !ok {
		return nil, &ResolutionError{Season: season, URL: r.rootURL, Err: ErrSeasonNotFound}
	}
	r.logger.Info("Found season link", zap.String("label", link.Text))

	seasonURL, err := resolveHref(r.rootURL, link.Href)
	if err != nil {
		return nil, &ResolutionError{Season: season, URL: r.rootURL, Err: err}
	}

	r.logger.Info("Scanning season page", zap.String("url", seasonURL))
	page, err := r.fetch(ctx, seasonURL)
	if err != nil {
		return nil, &ResolutionError{Season: season, URL: seasonURL, Err: err}
	}

	rows := tableRows(page)
	if len(rows) > 0 {
		rows = rows[1:]
	}
	entries := buildEntries(seasonURL, rows, r.logger)
	r.logger.Info("Found video files", zap.Int("count", len(entries)))

	return &Season{
		Number:  season,
		Label:   link.Text,
		URL:     seasonURL,
		Entries: entries,
	}, nil
}

func (r *HTMLResolver) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch page: server returned %s", resp.Status)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// rootLinks returns every <a> inside a <td>, in document order
func rootLinks(doc *html.Node) []anchor {
	var links []anchor
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom == atom.A && hasAncestor(n, atom.Td) {
			links = append(links, anchor{Text: strings.TrimSpace(textContent(n)), Href: attr(n, "href")})
		}
		return true
	})
	return links
}

// tableRows returns every <tr> in document order, header included
func tableRows(doc *html.Node) []row {
	var rows []row
	walk(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Tr {
			return true
		}
		var r row
		for i, cell := range descendants(n, atom.Td) {
			r.Cells = append(r.Cells, strings.TrimSpace(textContent(cell)))
			if i == 0 {
				if links := descendants(cell, atom.A); len(links) > 0 {
					r.Href = attr(links[0], "href")
				}
			}
		}
		rows = append(rows, r)
		return true
	})
	return rows
}

// walk visits n and its descendants depth-first; visit returning false
// skips the children of that node
func walk(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func descendants(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, func(d *html.Node) bool {
			if d.DataAtom == a {
				out = append(out, d)
			}
			return true
		})
	}
	return out
}

func hasAncestor(n *html.Node, a atom.Atom) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == a {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
