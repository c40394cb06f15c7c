package fetcher

import (
	"season-archiver/downloader"
	"season-archiver/listing"
)

// Plan is the resolved, not yet executed, download of one season
type Plan struct {
	Options   Options
	Season    *listing.Season
	SeasonDir string

	Tasks      []downloader.DownloadTask // in listing order
	Skipped    []downloader.DownloadTask // complete per history
	Duplicates []listing.Entry           // dropped, destination already taken

	RequiredGB float64 // declared size of Tasks
	FreeGB     float64
}

// InsufficientSpace reports whether the declared size exceeds free space
func (p *Plan) InsufficientSpace() bool {
	return p.RequiredGB > p.FreeGB
}

// Empty reports whether there is nothing to download
func (p *Plan) Empty() bool {
	return len(p.Tasks) == 0
}
