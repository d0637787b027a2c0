package adapters

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// Bulletin scrapes an HTML bulletin table (JMA/CMA shape): one row per
// warning, first cell the area, remaining cells the text. These pages carry
// no publish timestamps, so items get a best-effort scrape-time timestamp
// rather than an empty one.
type Bulletin struct {
	client *Client
	now    func() time.Time
}

// NewBulletin builds the adapter.
func NewBulletin(client *Client) *Bulletin {
	return &Bulletin{client: client, now: time.Now}
}

// Fetch implements feed.Adapter.
func (a *Bulletin) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
	body, err := a.client.Get(ctx, desc.URL, desc.Headers)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, feed.Permanent(desc.Key, err)
	}

	scraped := a.now().UTC()
	published := scraped.Format(time.RFC3339)
	var items []feed.Item
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		area := strings.TrimSpace(cells.First().Text())
		var parts []string
		cells.Slice(1, cells.Length()).Each(func(_ int, cell *goquery.Selection) {
			if text := strings.TrimSpace(cell.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		if area == "" || len(parts) == 0 {
			return
		}
		link, _ := row.Find("a").First().Attr("href")
		items = append(items, feed.Item{
			Title:     area + ": " + parts[0],
			Summary:   strings.Join(parts, " / "),
			Link:      link,
			Published: published,
			Timestamp: scraped,
			Region:    area,
		})
	})
	return items, nil
}
