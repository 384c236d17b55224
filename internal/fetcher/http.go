package fetcher

import (
	"context"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/esg"
)

// HTTPFetcher downloads score sheets over HTTP(S).
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	ua := opts.UserAgent
	if ua == "" {
		ua = "esg-cli/1.0"
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: ua,
	}
}

// Download issues a single GET. Non-2xx responses are reported as
// external service errors.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	zap.L().Debug("http: fetching", zap.String("url", rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, esg.NewExternalError("http", eris.Wrapf(err, "get %s", rawURL))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close() //nolint:errcheck
		return nil, esg.NewExternalError("http", eris.Errorf("get %s: status %d", rawURL, resp.StatusCode))
	}
	return resp.Body, nil
}
