package feed

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// ParseError reports that the data was valid in neither supported format.
// Both underlying failures are kept for diagnostics.
type ParseError struct {
	AtomErr error
	RSSErr  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse feed: atom: %v; rss: %v", e.AtomErr, e.RSSErr)
}

func (e *ParseError) Unwrap() []error {
	return []error{e.AtomErr, e.RSSErr}
}

// Parser turns raw feed bytes into a Document, trying Atom first and
// falling back to RSS. No other formats are attempted.
type Parser struct {
	atomParser *atom.Parser
	rssParser  *rss.Parser
}

func NewParser() *Parser {
	return &Parser{
		atomParser: &atom.Parser{},
		rssParser:  &rss.Parser{},
	}
}

func (p *Parser) Parse(data []byte) (*Document, error) {
	atomFeed, atomErr := p.atomParser.Parse(bytes.NewReader(data))
	if atomErr == nil {
		return p.fromAtom(atomFeed), nil
	}

	rssFeed, rssErr := p.rssParser.Parse(bytes.NewReader(data))
	if rssErr == nil {
		return p.fromRSS(rssFeed), nil
	}

	return nil, &ParseError{AtomErr: atomErr, RSSErr: rssErr}
}

func (p *Parser) fromAtom(f *atom.Feed) *Document {
	doc := &Document{
		Format: FormatAtom,
		Title:  f.Title,
		Icon:   cmp.Or(f.Icon, f.Logo),
	}

	for _, entry := range f.Entries {
		if entry == nil {
			continue
		}

		e := Entry{
			ID:        entry.ID,
			Title:     entry.Title,
			Summary:   entry.Summary,
			Published: entry.PublishedParsed,
			Updated:   entry.UpdatedParsed,
		}

		if entry.Content != nil {
			e.Content = entry.Content.Value
		}

		for _, link := range entry.Links {
			if link == nil || link.Href == "" {
				continue
			}
			e.Links = append(e.Links, Link{
				Href: link.Href,
				Rel:  link.Rel,
				Type: link.Type,
			})
		}

		doc.Entries = append(doc.Entries, e)
	}

	return doc
}

func (p *Parser) fromRSS(f *rss.Feed) *Document {
	doc := &Document{
		Format: FormatRSS,
		Title:  f.Title,
	}

	if f.Image != nil {
		doc.Icon = f.Image.URL
	}

	for _, item := range f.Items {
		if item == nil {
			continue
		}

		e := Entry{
			Title:     item.Title,
			Summary:   item.Description,
			Published: item.PubDateParsed,
		}

		if item.GUID != nil {
			e.ID = item.GUID.Value
		}
		e.ID = cmp.Or(e.ID, item.Link)

		// content:encoded arrives as a namespaced extension
		if contentExt, ok := item.Extensions["content"]; ok {
			if encoded, ok := contentExt["encoded"]; ok && len(encoded) > 0 {
				e.Content = encoded[0].Value
			}
		}

		if item.Link != "" {
			e.Links = append(e.Links, Link{Href: item.Link})
		}

		doc.Entries = append(doc.Entries, e)
	}

	return doc
}
