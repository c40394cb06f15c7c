// Package listing resolves the video files of one season from a public
// directory-listing archive.
//
// The archive root lists one link per season whose text starts with
// "Season <n> - ". The season page is a table: each row after the header has
// the file link in the first cell and the human-readable size in the third.
// Two Resolver implementations read the same structure: HTMLResolver parses
// the served markup directly and BrowserResolver renders it in headless
// Chromium.
package listing

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrSeasonNotFound is returned when no root link matches the season label
var ErrSeasonNotFound = errors.New("season not found")

// Entry is one downloadable video file
type Entry struct {
	Name   string  `json:"name"` // decoded file name
	Href   string  `json:"href"`
	URL    string  `json:"url"` // absolute
	SizeGB float64 `json:"size_gb"`
}

// Season is the resolved listing of one season
type Season struct {
	Number  int     `json:"number"`
	Label   string  `json:"label"`
	URL     string  `json:"url"`
	Entries []Entry `json:"entries"`
}

// TotalGB sums the declared sizes of all entries
func (s *Season) TotalGB() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for _, e := range s.Entries {
		total += e.SizeGB
	}
	return total
}

// Resolver maps a season number to its downloadable entries
type Resolver interface {
	ResolveSeason(ctx context.Context, season int) (*Season, error)
}

// ResolutionError reports a failure to produce a season listing
type ResolutionError struct {
	Season int
	URL    string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("resolve season %d: %v", e.Season, e.Err)
	}
	return fmt.Sprintf("resolve season %d at %s: %v", e.Season, e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SeasonLabelPrefix returns the link text prefix of a season on the root page
func SeasonLabelPrefix(season int) string {
	return fmt.Sprintf("Season %d - ", season)
}

// ParseSizeGB converts a listing size such as "512M" or "2.1G" to gigabytes.
// The second result is false for "-", empty text and unknown units; such
// entries are excluded from a season.
func ParseSizeGB(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == "-" {
		return 0, false
	}

	var divisor float64
	var unit string
	switch {
	case strings.Contains(text, "M"):
		divisor, unit = 1024, "M"
	case strings.Contains(text, "G"):
		divisor, unit = 1, "G"
	default:
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(text, unit, "")), 64)
	if err != nil || value < 0 {
		return 0, false
	}
	return value / divisor, true
}

// IsVideoHref reports whether href names a .mkv or .mp4 file
func IsVideoHref(href string) bool {
	return strings.HasSuffix(href, ".mkv") || strings.HasSuffix(href, ".mp4")
}

// FileName returns the URL-unescaped last path segment of href
func FileName(href string) (string, error) {
	segment := href
	if i := strings.LastIndex(href, "/"); i >= 0 {
		segment = href[i+1:]
	}
	name, err := url.PathUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("unescape %q: %w", segment, err)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("unusable file name %q", name)
	}
	return name, nil
}

// anchor is a link as read from a page
type anchor struct {
	Text string
	Href string
}

// row is a table row as read from a page: the first link of cell 0 and the
// text of every cell
type row struct {
	Cells []string
	Href  string
}

// matchSeason returns the first anchor whose text starts with the season label
func matchSeason(links []anchor, season int) (anchor, bool) {
	prefix := SeasonLabelPrefix(season)
	for _, link := range links {
		if strings.HasPrefix(link.Text, prefix) {
			return link, true
		}
	}
	return anchor{}, false
}

// resolveHref resolves href against base
func resolveHref(base, href string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// buildEntries applies the season page rules to rows already stripped of the
// header row
func buildEntries(pageURL string, rows []row, logger *zap.Logger) []Entry {
	var entries []Entry
	for _, r := range rows {
		if len(r.Cells) < 3 {
			continue
		}
		if r.Href == "" || !IsVideoHref(r.Href) {
			continue
		}

		size, ok := ParseSizeGB(r.Cells[2])
		if !ok {
			logger.Debug("Skipping entry without a usable size",
				zap.String("href", r.Href),
				zap.String("size", r.Cells[2]))
			continue
		}

		name, err := FileName(r.Href)
		if err != nil {
			logger.Warn("Skipping entry", zap.String("href", r.Href), zap.Error(err))
			continue
		}

		abs, err := resolveHref(pageURL, r.Href)
		if err != nil {
			logger.Warn("Skipping entry", zap.String("href", r.Href), zap.Error(err))
			continue
		}

		entries = append(entries, Entry{
			Name:   name,
			Href:   r.Href,
			URL:    abs,
			SizeGB: size,
		})
	}
	return entries
}
