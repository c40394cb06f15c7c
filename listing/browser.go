package listing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// BrowserResolver reads listing pages through headless Chromium. It serves
// archives whose listings only render with JavaScript.
type BrowserResolver struct {
	rootURL  string
	timeout  time.Duration
	install  bool
	headless bool
	logger   *zap.Logger
}

// NewBrowserResolver creates a browser-backed resolver. When install is set
// the Playwright driver and Chromium are installed before the first launch.
func NewBrowserResolver(rootURL string, timeout time.Duration, install bool, logger *zap.Logger) *BrowserResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserResolver{
		rootURL:  rootURL,
		timeout:  timeout,
		install:  install,
		headless: true,
		logger:   logger,
	}
}

// ResolveSeason implements Resolver
func (r *BrowserResolver) ResolveSeason(ctx context.Context, season int) (*Season, error) {
	fail := func(url string, err error) (*Season, error) {
		return nil, &ResolutionError{Season: season, URL: url, Err: err}
	}

	if r.install {
		r.logger.Info("Installing browser driver")
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fail("", fmt.Errorf("install playwright: %w", err))
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fail("", fmt.Errorf("start playwright: %w", err))
	}
	defer func() {
		if err := pw.Stop(); err != nil {
			r.logger.Warn("Failed to stop playwright", zap.Error(err))
		}
	}()

	r.logger.Info("Launching browser")
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(r.headless),
	})
	if err != nil {
		return fail("", fmt.Errorf("launch chromium: %w", err))
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		AcceptDownloads: playwright.Bool(true),
	})
	if err != nil {
		return fail("", fmt.Errorf("create browser context: %w", err))
	}
	page, err := bctx.NewPage()
	if err != nil {
		return fail("", fmt.Errorf("open page: %w", err))
	}

	if err := r.gotoPage(ctx, page, r.rootURL); err != nil {
		return fail(r.rootURL, err)
	}

	links, err := r.rootLinks(page)
	if err != nil {
		return fail(r.rootURL, err)
	}
	link, ok := matchSeason(links, season)
	if !ok {
		return fail(r.rootURL, ErrSeasonNotFound)
	}
	r.logger.Info("Found season link", zap.String("label", link.Text))

	seasonURL, err := resolveHref(r.rootURL, link.Href)
	if err != nil {
		return fail(r.rootURL, err)
	}
	if err := r.gotoPage(ctx, page, seasonURL); err != nil {
		return fail(seasonURL, err)
	}

	r.logger.Info("Scanning season page", zap.String("url", seasonURL))
	rows, err := r.seasonRows(ctx, page)
	if err != nil {
		return fail(seasonURL, err)
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

func (r *BrowserResolver) gotoPage(ctx context.Context, page playwright.Page, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.logger.Debug("Navigating", zap.String("url", url))
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(r.timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

func (r *BrowserResolver) rootLinks(page playwright.Page) ([]anchor, error) {
	locators, err := page.Locator("td a").All()
	if err != nil {
		return nil, fmt.Errorf("locate links: %w", err)
	}

	links := make([]anchor, 0, len(locators))
	for _, l := range locators {
		text, err := l.TextContent()
		if err != nil {
			return nil, fmt.Errorf("read link text: %w", err)
		}
		href, err := l.GetAttribute("href")
		if err != nil {
			return nil, fmt.Errorf("read link href: %w", err)
		}
		links = append(links, anchor{Text: strings.TrimSpace(text), Href: href})
	}
	return links, nil
}

// seasonRows reads every table row after the header
func (r *BrowserResolver) seasonRows(ctx context.Context, page playwright.Page) ([]row, error) {
	trs, err := page.Locator("tr").All()
	if err != nil {
		return nil, fmt.Errorf("locate rows: %w", err)
	}
	if len(trs) > 0 {
		trs = trs[1:]
	}

	rows := make([]row, 0, len(trs))
	for _, tr := range trs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := tr.Locator("td").All()
		if err != nil {
			return nil, fmt.Errorf("locate cells: %w", err)
		}
		if len(cells) < 3 {
			continue
		}

		var rw row
		for _, cell := range cells {
			text, err := cell.TextContent()
			if err != nil {
				return nil, fmt.Errorf("read cell text: %w", err)
			}
			rw.Cells = append(rw.Cells, strings.TrimSpace(text))
		}

		link := cells[0].Locator("a")
		count, err := link.Count()
		if err != nil {
			return nil, fmt.Errorf("count cell links: %w", err)
		}
		if count > 0 {
			href, err := link.First().GetAttribute("href")
			if err != nil {
				return nil, fmt.Errorf("read cell href: %w", err)
			}
			rw.Href = href
		}
		rows = append(rows, rw)
	}
	return rows, nil
}
