package fetcher

import (
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadText decodes r to UTF-8. A byte order mark selects UTF-8 or UTF-16 and
// is dropped; without one the named charset is used (UTF-8 when empty).
// Spreadsheet exports from Korean Excel installs are often "euc-kr".
func ReadText(r io.Reader, charset string) (string, error) {
	fallback, err := decoderFor(charset)
	if err != nil {
		return "", err
	}
	dec := unicode.BOMOverride(fallback.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", eris.Wrap(err, "fetcher: decode text")
	}
	return string(b), nil
}

func decoderFor(charset string) (encoding.Encoding, error) {
	cs := strings.ToLower(strings.TrimSpace(charset))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", charset)
	}
	return enc, nil
}
