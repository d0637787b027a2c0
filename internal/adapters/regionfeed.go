package adapters

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// RegionFeed fetches a list of per-region RSS feeds (Met Office / BOM shape):
// one URL per region, with descriptor.Regions supplying the label for each
// URL by position. Produces keyed items with the region as sub-key.
type RegionFeed struct {
	client *Client
}

// NewRegionFeed builds the adapter.
func NewRegionFeed(client *Client) *RegionFeed {
	return &RegionFeed{client: client}
}

// Severity words recognized at the start of warning titles.
var severityPrefixes = []string{"Red", "Amber", "Orange", "Yellow"}

// Fetch implements feed.Adapter. A failing region feed is skipped, not
// fatal; only all regions failing surfaces an error.
func (a *RegionFeed) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
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
		region := fmt.Sprintf("Region %d", i+1)
		if i < len(desc.Regions) {
			region = desc.Regions[i]
		}
		body, err := a.client.Get(ctx, u, desc.Headers)
		if err != nil {
			lastErr = err
			continue
		}
		parsed, err := parseRSS(body, region)
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

// parseRSS extracts channel items from an RSS/Atom document, tagging each
// with the given region label.
func parseRSS(body []byte, region string) ([]feed.Item, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse rss: %w", err)
	}
	nodes := xmlquery.Find(doc, "//item")
	if len(nodes) == 0 {
		nodes = xmlquery.Find(doc, "//entry")
	}
	items := make([]feed.Item, 0, len(nodes))
	for _, n := range nodes {
		it := feed.Item{
			Title:     childText(n, "title"),
			Summary:   childText(n, "description"),
			Link:      childText(n, "link"),
			Published: firstChildText(n, "pubDate", "published", "updated", "dc:date"),
			Region:    region,
		}
		if it.Summary == "" {
			it.Summary = childText(n, "summary")
		}
		it.Severity = severityFromTitle(it.Title)
		items = append(items, it)
	}
	return items, nil
}

func severityFromTitle(title string) string {
	for _, sev := range severityPrefixes {
		if strings.HasPrefix(strings.TrimSpace(title), sev) {
			return sev
		}
	}
	return ""
}

func childText(n *xmlquery.Node, name string) string {
	if c := xmlquery.FindOne(n, name); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

func firstChildText(n *xmlquery.Node, names ...string) string {
	for _, name := range names {
		if s := childText(n, name); s != "" {
			return s
		}
	}
	return ""
}
