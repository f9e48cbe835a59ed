package fetch

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/banshee-data/rally.report/internal/security"
)

// videoSelectors are tried in order; the first non-empty attribute wins.
var videoSelectors = []struct {
	selector string
	attr     string
}{
	{"meta[property='og:video:secure_url']", "content"},
	{"meta[property='og:video:url']", "content"},
	{"meta[property='og:video']", "content"},
	{"video[src]", "src"},
	{"video source[src]", "src"},
}

// ResolveVideoURL finds the video referenced by an HTML page. Relative
// references are resolved against base.
func ResolveVideoURL(page io.Reader, base *url.URL) (*url.URL, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	for _, s := range videoSelectors {
		href, ok := doc.Find(s.selector).First().Attr(s.attr)
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			continue
		}
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := ref
		if base != nil {
			resolved = base.ResolveReference(ref)
		}
		u, err := security.ValidateVideoURL(resolved.String())
		if err != nil {
			continue
		}
		return u, nil
	}
	return nil, ErrNoVideo
}
