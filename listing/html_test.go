package listing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func nopLogger() *zap.Logger {
	return zap.NewNop()
}

const rootPage = `<html><body><table>
<tr><th>Name</th><th>Last modified</th><th>Size</th></tr>
<tr><td><a href="../">Parent Directory</a></td><td></td><td>-</td></tr>
<tr><td><a href="Season%2013%20-%202018/">Season 13 - 2018</a></td><td></td><td>-</td></tr>
<tr><td><a href="Season%203%20-%202007/">
  Season 3 - 2007</a></td><td></td><td>-</td></tr>
</table></body></html>`

const seasonPage = `<html><body><table>
<tr><td><a href="header.mkv">Header row is skipped</a></td><td></td><td>1G</td></tr>
<tr><td><a href="S03E01%20-%20The%20Gang%20Exploits%20a%20Miracle.mkv">S03E01</a></td><td>2007</td><td>512M</td></tr>
<tr><td><a href="/download/show/S03E02.mp4">S03E02</a></td><td>2007</td><td> 1.2G </td></tr>
<tr><td><a href="S03E03.mkv">S03E03</a></td><td>2007</td><td>-</td></tr>
<tr><td><a href="cover.jpg">cover</a></td><td>2007</td><td>20K</td></tr>
<tr><td>orphan row</td></tr>
</table></body></html>`

func newArchive(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/download/show/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/download/show/":
			io.WriteString(w, rootPage)
		case strings.HasPrefix(r.URL.Path, "/download/show/Season 3 - 2007/"):
			io.WriteString(w, seasonPage)
		case strings.HasPrefix(r.URL.Path, "/download/show/Season 13 - 2018/"):
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		default:
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestHTMLResolver_ResolveSeason(t *testing.T) {
	server := newArchive(t)
	rootURL := server.URL + "/download/show/"
	resolver := NewHTMLResolver(rootURL, 5*time.Second, WithHTTPClient(server.Client()))

	season, err := resolver.ResolveSeason(context.Background(), 3)
	if err != nil {
		t.Fatalf("ResolveSeason() returned error: %v", err)
	}

	if season.Number != 3 || season.Label != "Season 3 - 2007" {
		t.Errorf("unexpected season: %+v", season)
	}
	if season.URL != rootURL+"Season%203%20-%202007/" {
		t.Errorf("unexpected season URL: %s", season.URL)
	}

	if len(season.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(season.Entries), season.Entries)
	}

	first := season.Entries[0]
	if first.Name != "S03E01 - The Gang Exploits a Miracle.mkv" || first.SizeGB != 0.5 {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if first.URL != season.URL+"S03E01%20-%20The%20Gang%20Exploits%20a%20Miracle.mkv" {
		t.Errorf("unexpected first URL: %s", first.URL)
	}

	second := season.Entries[1]
	if second.Name != "S03E02.mp4" || second.URL != server.URL+"/download/show/S03E02.mp4" {
		t.Errorf("unexpected second entry: %+v", second)
	}
}

func TestHTMLResolver_Errors(t *testing.T) {
	server := newArchive(t)

	tests := []struct {
		name     string
		rootURL  string
		season   int
		notFound bool
	}{
		{name: "season missing from root", rootURL: server.URL + "/download/show/", season: 7, notFound: true},
		{name: "season page error status", rootURL: server.URL + "/download/show/", season: 13},
		{name: "root page error status", rootURL: server.URL + "/download/missing/", season: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := NewHTMLResolver(tt.rootURL, 5*time.Second, WithHTTPClient(server.Client()))
			_, err := resolver.ResolveSeason(context.Background(), tt.season)

			var re *ResolutionError
			if !errors.As(err, &re) {
				t.Fatalf("expected ResolutionError, got %v", err)
			}
			if re.Season != tt.season {
				t.Errorf("expected season %d in error, got %d", tt.season, re.Season)
			}
			if errors.Is(err, ErrSeasonNotFound) != tt.notFound {
				t.Errorf("ErrSeasonNotFound = %v, want %v (%v)", !tt.notFound, tt.notFound, err)
			}
		})
	}
}

func TestHTMLResolver_CancelledContext(t *testing.T) {
	server := newArchive(t)
	resolver := NewHTMLResolver(server.URL+"/download/show/", 5*time.Second, WithHTTPClient(server.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.ResolveSeason(ctx, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewBrowserResolver_Defaults(t *testing.T) {
	r := NewBrowserResolver("https://archive.test/", time.Minute, false, nil)
	if !r.headless || r.install || r.timeout != time.Minute || r.logger == nil {
		t.Errorf("unexpected defaults: %+v", r)
	}
}
