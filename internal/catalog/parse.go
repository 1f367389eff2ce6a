package catalog

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Defaults matching the Doxygen output served at docs.tmodloader.net.
const (
	DefaultBaseURL       = "https://docs.tmodloader.net/docs/stable/"
	DefaultIndexPage     = "annotated.html"
	DefaultLevelUnit     = 16
	DefaultRowSelector   = "table.directory tr"
	DefaultEntrySelector = "td.entry"
	DefaultLinkSelector  = "a.el"
)

var (
	indentWidthRe      = regexp.MustCompile(`width:\s*(\d+)px`)
	leadingSeparatorRe = regexp.MustCompile(`^\s*[:\-]\s*`)
)

// ParseOptions controls how the index table is read. The zero value uses the
// Doxygen defaults.
type ParseOptions struct {
	// BaseURL is what relative hrefs are resolved against.
	BaseURL string
	// LevelUnit is the indentation in pixels that one nesting level adds.
	LevelUnit int
	// RowSelector, EntrySelector and LinkSelector locate the table rows, the
	// cell holding the indentation spacer and name, and the name link.
	RowSelector   string
	EntrySelector string
	LinkSelector  string
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.LevelUnit <= 0 {
		o.LevelUnit = DefaultLevelUnit
	}
	if o.RowSelector == "" {
		o.RowSelector = DefaultRowSelector
	}
	if o.EntrySelector == "" {
		o.EntrySelector = DefaultEntrySelector
	}
	if o.LinkSelector == "" {
		o.LinkSelector = DefaultLinkSelector
	}
	return o
}

// Parse reads a Doxygen directory table and flattens its tree into records.
//
// Each row's nesting depth comes from the pixel width of the first spacer
// span in its entry cell: level = max(1, width/LevelUnit). An ancestor stack
// is popped until it is shorter than the level, so depth jumps of any size
// collapse back to the right parent. Rows without a name link are skipped and
// never pushed onto the stack.
func Parse(r io.Reader, opts ParseOptions) ([]ClassRecord, error) {
	opts = opts.withDefaults()

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", opts.BaseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing index HTML: %w", err)
	}

	var (
		classes []ClassRecord
		stack   []string
	)

	doc.Find(opts.RowSelector).Each(func(_ int, row *goquery.Selection) {
		entry := row.Find(opts.EntrySelector).First()

		level := indentLevel(entry, opts.LevelUnit)
		for float64(len(stack)) >= level {
			stack = stack[:len(stack)-1]
		}

		link := entry.Find(opts.LinkSelector).First()
		if link.Length() == 0 {
			return
		}

		name := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")

		stack = append(stack, name)
		classes = append(classes, ClassRecord{
			Name:        name,
			FullName:    strings.Join(stack, "."),
			Description: describe(row, opts.EntrySelector),
			URL:         resolve(base, href),
		})
	})

	return classes, nil
}

// indentLevel converts the first spacer span's width into a nesting level.
// Anything narrower than one unit, including a missing style, is level 1.
func indentLevel(entry *goquery.Selection, unit int) float64 {
	style, _ := entry.Find("span").First().Attr("style")

	width := 0
	if m := indentWidthRe.FindStringSubmatch(style); m != nil {
		width, _ = strconv.Atoi(m[1])
	}

	level := float64(width) / float64(unit)
	if level < 1 {
		return 1
	}
	return level
}

// describe returns the row's text with the entry cell's spacer/icon spans and
// links removed. It is a best-effort heuristic; descriptions are often empty.
func describe(row *goquery.Selection, entrySelector string) string {
	clone := row.Clone()
	clone.Find(entrySelector + " span").Remove()
	clone.Find(entrySelector + " a").Remove()

	text := strings.TrimSpace(clone.Text())
	return leadingSeparatorRe.ReplaceAllString(text, "")
}

func resolve(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
