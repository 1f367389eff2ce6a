// Package content turns a Doxygen class page into markdown: it selects the
// main content region, strips non-content elements and converts the rest.
package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSelectors is the region fallback chain for Doxygen pages.
var DefaultSelectors = []string{".contents", ".textblock", "body"}

// DefaultRemove lists elements dropped from the selected region.
var DefaultRemove = []string{"script", "style", ".footer"}

// Options controls region selection. Nil slices use the defaults; an empty
// non-nil Remove disables stripping.
type Options struct {
	Selectors []string
	Remove    []string
}

// Extractor selects the content region of a documentation page.
type Extractor struct {
	selectors []string
	remove    []string
}

// NewExtractor creates an Extractor.
func NewExtractor(opts Options) *Extractor {
	e := &Extractor{
		selectors: opts.Selectors,
		remove:    opts.Remove,
	}
	if len(e.selectors) == 0 {
		e.selectors = DefaultSelectors
	}
	if e.remove == nil {
		e.remove = DefaultRemove
	}
	return e
}

// Selectors returns the region fallback chain in priority order.
func (e *Extractor) Selectors() []string {
	return append([]string(nil), e.selectors...)
}

// Extract returns the inner HTML of the first selector whose first match has
// non-empty inner HTML, with the removable elements stripped from it. A page
// where no selector matches yields "".
func (e *Extractor) Extract(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing page HTML: %w", err)
	}

	region := e.region(doc)
	if region == nil {
		return "", nil
	}

	// Work on a detached copy so the page document stays intact.
	region = region.Clone()
	for _, sel := range e.remove {
		region.Find(sel).Remove()
	}

	inner, err := region.Html()
	if err != nil {
		return "", fmt.Errorf("rendering content region: %w", err)
	}
	return inner, nil
}

func (e *Extractor) region(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.selectors {
		match := doc.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		if inner, err := match.Html(); err == nil && inner != "" {
			return match
		}
	}
	return nil
}
