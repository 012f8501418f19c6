package feed

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Format string

const (
	FormatAtom Format = "atom"
	FormatRSS  Format = "rss"
)

// Document is the unified representation of a parsed feed. Format is a
// closed tag: a document is either Atom or RSS, nothing else.
type Document struct {
	Format  Format
	Title   string
	Icon    string
	Entries []Entry
}

// Link is a candidate entry link with its relation and media-type hints.
type Link struct {
	Href string
	Rel  string
	Type string
}

type Entry struct {
	ID        string
	Title     string
	Summary   string // may contain markup
	Content   string
	Published *time.Time
	Updated   *time.Time
	Links     []Link
}

// URL resolves the entry's canonical URL, the global post dedup key:
// an "alternate" link with an HTML media type wins, then any "alternate"
// link, then the first link, then the bare entry id. An empty rel counts
// as "alternate" (the Atom default).
func (e Entry) URL() string {
	for _, link := range e.Links {
		if isAlternate(link.Rel) && isHTML(link.Type) {
			return link.Href
		}
	}
	for _, link := range e.Links {
		if isAlternate(link.Rel) {
			return link.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return e.ID
}

// PublishTime prefers the explicit published timestamp, then updated.
// When neither is present (an RSS item without a parsable pubDate) the
// current local time is substituted. That is a sync-time default, not an
// approximation of when the entry was actually published.
func (e Entry) PublishTime() time.Time {
	if e.Published != nil {
		return *e.Published
	}
	if e.Updated != nil {
		return *e.Updated
	}
	return time.Now()
}

// SummaryText returns the visible text of the summary with markup
// stripped, no formatting preserved.
func (e Entry) SummaryText() string {
	if e.Summary == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(e.Summary))
	if err != nil {
		return strings.TrimSpace(e.Summary)
	}
	return strings.TrimSpace(doc.Text())
}

func isAlternate(rel string) bool {
	return rel == "" || rel == "alternate"
}

func isHTML(mediaType string) bool {
	return strings.Contains(strings.ToLower(mediaType), "html")
}
