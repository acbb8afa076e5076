package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrContentTooLarge is returned when a page body exceeds the raw size cap.
// The scheduler treats it as a fetch failure for that round.
var ErrContentTooLarge = errors.New("page content exceeds size limit")

// Default extraction limits.
const (
	DefaultMaxContentBytes   = 20 * 1024 * 1024
	DefaultMaxExtractedChars = 100_000
)

// surfaceExtractor pulls one kind of searchable text out of a parsed page.
// Extractors run in order; earlier surfaces win when the total extracted
// text has to be truncated.
type surfaceExtractor func(doc *goquery.Document) []Surface

// Extractor turns fetched page bytes into the ordered list of text surfaces
// the matcher searches.
type Extractor struct {
	maxContentBytes   int
	maxExtractedChars int
	surfaces          []surfaceExtractor
}

// NewExtractor builds an Extractor. Zero limits fall back to the defaults.
func NewExtractor(maxContentBytes, maxExtractedChars int) *Extractor {
	if maxContentBytes <= 0 {
		maxContentBytes = DefaultMaxContentBytes
	}
	if maxExtractedChars <= 0 {
		maxExtractedChars = DefaultMaxExtractedChars
	}
	return &Extractor{
		maxContentBytes:   maxContentBytes,
		maxExtractedChars: maxExtractedChars,
		surfaces: []surfaceExtractor{
			extractBodyText,
			extractTitleAndMeta,
			extractImageAlt,
			extractLinks,
			extractDataAttributes,
			extractFormValues,
		},
	}
}

// Extract parses the page and returns every searchable surface, body text
// first, ending with the source URL itself. The combined text is capped at
// maxExtractedChars; a body larger than maxContentBytes is rejected with
// ErrContentTooLarge.
func (e *Extractor) Extract(body []byte, sourceURL string) ([]Surface, error) {
	if len(body) > e.maxContentBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrContentTooLarge, len(body))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var out []Surface
	total := 0
	add := func(s Surface) {
		if total >= e.maxExtractedChars || s.Text == "" {
			return
		}
		if remaining := e.maxExtractedChars - total; len(s.Text) > remaining {
			s.Text = s.Text[:remaining]
		}
		total += len(s.Text)
		out = append(out, s)
	}

	for _, extract := range e.surfaces {
		for _, s := range extract(doc) {
			add(s)
		}
	}
	add(Surface{Kind: SurfaceSourceURL, Text: sourceURL})

	return out, nil
}

func extractBodyText(doc *goquery.Document) []Surface {
	return []Surface{{Kind: SurfaceBodyText, Text: doc.Text()}}
}

func extractTitleAndMeta(doc *goquery.Document) []Surface {
	var out []Surface
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		out = append(out, Surface{Kind: SurfaceTitleMeta, Text: title})
	}
	doc.Find("meta[name='description'], meta[name='keywords']").Each(func(_ int, sel *goquery.Selection) {
		if content, ok := sel.Attr("content"); ok {
			out = append(out, Surface{Kind: SurfaceTitleMeta, Text: content})
		}
	})
	return out
}

func extractImageAlt(doc *goquery.Document) []Surface {
	var out []Surface
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if alt, ok := sel.Attr("alt"); ok {
			out = append(out, Surface{Kind: SurfaceImageAlt, Text: alt})
		}
		if title, ok := sel.Attr("title"); ok {
			out = append(out, Surface{Kind: SurfaceImageAlt, Text: title})
		}
	})
	return out
}

func extractLinks(doc *goquery.Document) []Surface {
	var out []Surface
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			out = append(out, Surface{Kind: SurfaceLinkText, Text: text})
		}
		if title, ok := sel.Attr("title"); ok {
			out = append(out, Surface{Kind: SurfaceLinkTitle, Text: title})
		}
		if href, ok := sel.Attr("href"); ok {
			out = append(out, Surface{Kind: SurfaceLinkHref, Text: href})
		}
	})
	return out
}

func extractDataAttributes(doc *goquery.Document) []Surface {
	var out []Surface
	doc.Find("[data-product-name], [data-title]").Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("data-product-name"); ok {
			out = append(out, Surface{Kind: SurfaceDataAttr, Text: v})
		}
		if v, ok := sel.Attr("data-title"); ok {
			out = append(out, Surface{Kind: SurfaceDataAttr, Text: v})
		}
	})
	return out
}

func extractFormValues(doc *goquery.Document) []Surface {
	var out []Surface
	doc.Find("input, textarea").Each(func(_ int, sel *goquery.Selection) {
		if placeholder, ok := sel.Attr("placeholder"); ok {
			out = append(out, Surface{Kind: SurfaceFormValue, Text: placeholder})
		}
		if value, ok := sel.Attr("value"); ok {
			out = append(out, Surface{Kind: SurfaceFormValue, Text: value})
		}
	})
	return out
}
