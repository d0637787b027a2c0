package adapters

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// WarningTable fetches an HTML warnings page grouped into per-region
// blocks (IMD shape): a "Warnings for <Region>" header row, a date-of-
// issue row, then one colored row per forecast day listing hazards. The
// same region rows recur on every fetch with mutable hazards and colors,
// so items carry a stable fingerprint identity and the source uses the
// identity-set watermark shape.
type WarningTable struct {
	client *Client
}

// NewWarningTable builds the adapter.
func NewWarningTable(client *Client) *WarningTable {
	return &WarningTable{client: client}
}

var (
	warningsForRe = regexp.MustCompile(`(?i)warnings\s+for\s+(.+)$`)
	issueDateRe   = regexp.MustCompile(`(?i)date of issue:\s*(.+)$`)
	dayLabelRe    = regexp.MustCompile(`(?i)\bday\s*(\d+)\s*:\s*(.+)$`)
)

// Day rows surfaced on the dashboard, by Day N index.
var dayNames = map[string]string{"1": "Today", "2": "Tomorrow"}

// Fetch implements feed.Adapter.
func (a *WarningTable) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
	body, err := a.client.Get(ctx, desc.URL, desc.Headers)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, feed.Permanent(desc.Key, fmt.Errorf("parse warning table: %w", err))
	}
	return parseWarningTable(doc, desc.URL), nil
}

// parseWarningTable walks the page rows in order, tracking the region
// block each row belongs to. Rows without hazards ("No warning") and
// severities below Orange are dropped.
func parseWarningTable(doc *goquery.Document, pageURL string) []feed.Item {
	var (
		items  []feed.Item
		region string
		issued string
	)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if th := row.Find("th[colspan]"); th.Length() > 0 {
			if m := warningsForRe.FindStringSubmatch(rowText(th)); m != nil {
				region = strings.TrimSpace(m[1])
				issued = ""
				return
			}
		}
		if region == "" {
			return
		}
		if m := issueDateRe.FindStringSubmatch(rowText(row)); m != nil {
			issued = strings.TrimSpace(m[1])
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		m := dayLabelRe.FindStringSubmatch(rowText(cells.Eq(0)))
		if m == nil {
			return
		}
		day, ok := dayNames[m[1]]
		if !ok {
			return
		}
		date := strings.TrimSpace(m[2])

		style, _ := row.Attr("style")
		if style == "" {
			style, _ = cells.Eq(1).Attr("style")
		}
		severity := severityFromStyle(style)
		if _, ok := consideredLevels[severity]; !ok {
			return
		}
		hazards := splitHazards(rowText(cells.Eq(1)))
		if len(hazards) == 0 {
			return
		}

		published := issued
		if published == "" {
			published = date
		}
		items = append(items, feed.Item{
			Title:     fmt.Sprintf("%s: %s", region, strings.Join(hazards, ", ")),
			Summary:   fmt.Sprintf("%s %s warning for %s", day, severity, region),
			Link:      pageURL,
			Published: published,
			Region:    region,
			Bucket:    day,
			Severity:  severity,
			ID:        strings.Join([]string{region, day, severity, strings.Join(hazards, ","), date}, "|"),
		})
	})
	return items
}

// severityFromStyle maps the page's background colors to severity names.
func severityFromStyle(style string) string {
	s := strings.ToLower(style)
	switch {
	case strings.Contains(s, "rgb(255, 0, 0)") || strings.Contains(s, "#ff0000"):
		return "Red"
	case strings.Contains(s, "rgb(255, 165, 0)") || strings.Contains(s, "#ffa500"):
		return "Orange"
	case strings.Contains(s, "rgb(255, 255, 0)") || strings.Contains(s, "#ffff00"):
		return "Yellow"
	case strings.Contains(s, "rgb(124, 252, 0)") || strings.Contains(s, "#7cfc00"):
		return "Green"
	}
	return ""
}

var hazardSplitRe = regexp.MustCompile(`\s*[,|/]\s*`)

// Labels that appear inside hazard cells without being hazards.
var hazardNoise = map[string]struct{}{
	"day 1": {}, "day 2": {}, "day 3": {}, "no warning": {},
}

func splitHazards(cell string) []string {
	var out []string
	for _, p := range hazardSplitRe.Split(cell, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, noise := hazardNoise[strings.ToLower(p)]; noise {
			continue
		}
		out = append(out, p)
	}
	return out
}

func rowText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
