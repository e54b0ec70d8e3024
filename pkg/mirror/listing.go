// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors for the listing markup.
const (
	containerSelector = "section"
	headingSelector   = "h3"
	folderSelector    = "p.rep"
	documentSelector  = "p.doc"
	nameSelector      = "span.nom"
	linkSelector      = "a[href]"
)

// Listing holds the entries of one listing page, in page order.
type Listing struct {
	Folders   []Node
	Documents []Node
}

// ParseListing extracts folder and document entries from a listing page.
//
// Only the first <section> is considered. If it contains an <h3> whose text
// is recentHeading, that heading and everything after it are dropped.
// Rows without a name or a link are skipped. ErrListingNotFound is returned
// when the page has no <section>.
func ParseListing(r io.Reader, recentHeading string) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	section := doc.Find(containerSelector).First()
	if section.Length() == 0 {
		return nil, ErrListingNotFound
	}

	if recentHeading != "" {
		heading := section.Find(headingSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.TrimSpace(s.Text()) == recentHeading
		}).First()
		if heading.Length() > 0 {
			truncateFrom(heading, section)
		}
	}

	return &Listing{
		Folders:   collectRows(section, folderSelector, KindFolder),
		Documents: collectRows(section, documentSelector, KindDocument),
	}, nil
}

// truncateFrom removes mark and everything after it in document order,
// up to the end of container.
func truncateFrom(mark, container *goquery.Selection) {
	mark.NextAll().Remove()
	mark.ParentsUntilSelection(container).Each(func(_ int, p *goquery.Selection) {
		p.NextAll().Remove()
	})
	mark.Remove()
}

func collectRows(container *goquery.Selection, selector string, kind NodeKind) []Node {
	var nodes []Node
	container.Find(selector).Each(func(_ int, row *goquery.Selection) {
		name := row.Find(nameSelector).First()
		link := row.Find(linkSelector).First()
		if name.Length() == 0 || link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		nodes = append(nodes, Node{Kind: kind, Name: name.Text(), Href: href})
	})
	return nodes
}
