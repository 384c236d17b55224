// Package fetcher opens score sheets from local paths, HTTP(S) and FTP
// locations and decodes them to UTF-8 text or spreadsheet rows.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Options configures remote fetches.
type Options struct {
	Timeout   time.Duration
	UserAgent string
}

// Opener resolves a location to a readable stream.
type Opener struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewOpener creates an Opener with the given options.
func NewOpener(opts Options) *Opener {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Opener{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(opts),
	}
}

// Open returns a reader for location. The caller must close it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch scheme(location) {
	case "http", "https":
		return o.http.Download(ctx, location)
	case "ftp":
		return o.ftp.Download(ctx, location)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", location)
		}
		return f, nil
	}
}

// IsRemote reports whether location is fetched over the network.
func IsRemote(location string) bool {
	switch scheme(location) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

func scheme(location string) string {
	if !strings.Contains(location, "://") {
		return ""
	}
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// ReadText opens location and decodes it to UTF-8 text.
func (o *Opener) ReadText(ctx context.Context, location, charset string) (string, error) {
	rc, err := o.Open(ctx, location)
	if err != nil {
		return "", err
	}
	defer rc.Close() //nolint:errcheck
	return ReadText(rc, charset)
}

// ReadRows opens location as a workbook and returns the selected sheet.
func (o *Opener) ReadRows(ctx context.Context, location string, opts XLSXOptions) ([][]string, error) {
	if !IsRemote(location) {
		return ReadXLSX(location, opts)
	}
	rc, err := o.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return ReadXLSXFrom(rc, opts)
}
