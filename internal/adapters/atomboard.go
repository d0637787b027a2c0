package adapters

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// AtomBoard fetches per-region Atom warning boards (Environment Canada
// shape): one URL per province, where a quiet region publishes a "No
// Alert" placeholder entry instead of an empty feed. Produces keyed items
// with the province as region and the warning type as bucket.
type AtomBoard struct {
	client *Client
}

// NewAtomBoard builds the adapter.
func NewAtomBoard(client *Client) *AtomBoard {
	return &AtomBoard{client: client}
}

// Warning-type phrases recognized in board entry titles, first match wins.
var boardBuckets = []string{
	"Warning", "Advisory", "Watch", "Statement", "Special Weather Statement",
	"Rainfall", "Snowfall", "Wind", "Thunderstorm", "Heat", "Cold",
}

const boardSummaryLimit = 500

// Fetch implements feed.Adapter. A failing board is skipped, not fatal;
// only all boards failing surfaces an error.
func (a *AtomBoard) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
	urls := desc.URLs
	if len(urls) == 0 && desc.URL != "" {
		urls = []string{desc.URL}
	}
	var (
		items   []feed.Item
		lastErr error
		fetched int
	)
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		province := fmt.Sprintf("Region %d", i+1)
		if i < len(desc.Regions) {
			province = desc.Regions[i]
		}
		body, err := a.client.Get(ctx, u, desc.Headers)
		if err != nil {
			lastErr = err
			continue
		}
		parsed, err := parseBoard(body, province)
		if err != nil {
			lastErr = feed.Permanent(desc.Key, err)
			continue
		}
		items = append(items, parsed...)
		fetched++
	}
	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}

// parseBoard extracts live warnings from one board's Atom entries. "No
// Alert" placeholders are dropped; everything after the first comma in a
// title is the place qualifier and is trimmed off.
func parseBoard(body []byte, province string) ([]feed.Item, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse board atom: %w", err)
	}
	var items []feed.Item
	for _, n := range xmlquery.Find(doc, "//entry") {
		title := childText(n, "title")
		if title == "" || strings.HasPrefix(strings.ToUpper(strings.TrimSpace(title)), "NO ALERT") {
			continue
		}
		if idx := strings.Index(title, ","); idx >= 0 {
			title = title[:idx]
		}
		title = strings.TrimSpace(title)

		summary := childText(n, "summary")
		if len(summary) > boardSummaryLimit {
			summary = summary[:boardSummaryLimit]
		}
		items = append(items, feed.Item{
			Title:     title,
			Summary:   summary,
			Link:      linkHref(n),
			Published: firstChildText(n, "published", "updated"),
			Region:    province,
			Bucket:    bucketFromTitle(title),
		})
	}
	return items, nil
}

// bucketFromTitle returns the first warning-type phrase contained in the
// title, or empty so the item keys on the province alone.
func bucketFromTitle(title string) string {
	t := strings.ToLower(title)
	for _, b := range boardBuckets {
		if strings.Contains(t, strings.ToLower(b)) {
			return b
		}
	}
	return ""
}

// linkHref reads an Atom link's href attribute, falling back to element
// text for RSS-style links.
func linkHref(n *xmlquery.Node) string {
	c := xmlquery.FindOne(n, "link")
	if c == nil {
		return ""
	}
	if href := c.SelectAttr("href"); href != "" {
		return href
	}
	return strings.TrimSpace(c.InnerText())
}
