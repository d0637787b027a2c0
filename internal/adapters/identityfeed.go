package adapters

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// IdentityFeed fetches Meteoalarm-style awareness RSS: one channel item per
// country whose description holds an HTML table of awareness level/type
// pairs with onset and expiry windows. Alerts recur across fetches with
// mutable status, so items carry a stable identity
// (country|type|level|onset|expires) and the source uses the identity-set
// watermark shape.
type IdentityFeed struct {
	client *Client
	now    func() time.Time
}

// NewIdentityFeed builds the adapter.
func NewIdentityFeed(client *Client) *IdentityFeed {
	return &IdentityFeed{client: client, now: time.Now}
}

// Awareness codes from the legacy feed format.
var awarenessLevels = map[string]string{
	"2": "Yellow",
	"3": "Orange",
	"4": "Red",
}

var awarenessTypes = map[string]string{
	"1": "Wind", "2": "Snow/Ice", "3": "Thunderstorms", "4": "Fog",
	"5": "Extreme high temperature", "6": "Extreme low temperature",
	"7": "Coastal event", "8": "Forest fire", "9": "Avalanche",
	"10": "Rain", "12": "Flood", "13": "Rain/Flood",
}

// Levels surfaced on the dashboard.
var consideredLevels = map[string]struct{}{"Orange": {}, "Red": {}}

var (
	awtLevelRe = regexp.MustCompile(`awt:(\d+)\s+level:(\d+)`)
	fromRe     = regexp.MustCompile(`(?i)From:\s*</b>\s*<i>(.*?)</i>`)
	untilRe    = regexp.MustCompile(`(?i)Until:\s*</b>\s*<i>(.*?)</i>`)
)

// Fetch implements feed.Adapter.
func (a *IdentityFeed) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
	body, err := a.client.Get(ctx, desc.URL, desc.Headers)
	if err != nil {
		return nil, err
	}
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, feed.Permanent(desc.Key, fmt.Errorf("parse awareness rss: %w", err))
	}
	now := a.now().UTC()
	var items []feed.Item
	for _, n := range xmlquery.Find(doc, "//item") {
		country := normalizeCountry(childText(n, "title"))
		published := childText(n, "pubDate")
		link := childText(n, "link")

		for _, alert := range parseAwarenessTable(childText(n, "description"), now) {
			items = append(items, feed.Item{
				Title:     fmt.Sprintf("%s: %s (%s)", country, alert.kind, alert.level),
				Summary:   fmt.Sprintf("%s alert for %s", alert.level, country),
				Link:      link,
				Published: published,
				Region:    country,
				Bucket:    alert.kind,
				Severity:  alert.level,
				ID:        strings.Join([]string{country, alert.kind, alert.level, alert.onset, alert.expires}, "|"),
			})
		}
	}
	return items, nil
}

type awarenessAlert struct {
	level   string
	kind    string
	onset   string
	expires string
}

// parseAwarenessTable extracts Orange/Red alerts from the HTML table inside
// an RSS item description. Rows carry the level and type either as data
// attributes or as "awt:N level:N" cell text; expired alerts are dropped.
func parseAwarenessTable(description string, now time.Time) []awarenessAlert {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return nil
	}
	var alerts []awarenessAlert
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() != 2 {
			return
		}
		first := cells.First()
		levelCode, _ := first.Attr("data-awareness-level")
		typeCode, _ := first.Attr("data-awareness-type")
		if levelCode == "" || typeCode == "" {
			if m := awtLevelRe.FindStringSubmatch(strings.TrimSpace(first.Text())); m != nil {
				typeCode, levelCode = m[1], m[2]
			}
		}
		level, ok := awarenessLevels[levelCode]
		if !ok {
			return
		}
		if _, ok := consideredLevels[level]; !ok {
			return
		}
		kind := awarenessTypes[typeCode]
		if kind == "" {
			kind = "Type " + typeCode
		}

		detail, err := goquery.OuterHtml(cells.Eq(1))
		if err != nil {
			detail = ""
		}
		onset := submatch(fromRe, detail)
		expires := submatch(untilRe, detail)
		if until, ok := parseAlertTime(expires); ok && !until.After(now) {
			return
		}
		alerts = append(alerts, awarenessAlert{level: level, kind: kind, onset: onset, expires: expires})
	})
	return alerts
}

func submatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// parseAlertTime handles the ISO-8601 stamps the feed puts inside the
// From/Until markers, including the trailing-Z form.
func parseAlertTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Country names the upstream feed spells inconsistently.
var countryAliases = map[string]string{
	"Macedonia (the former Yugoslav Republic of)":            "North Macedonia",
	"MeteoAlarm Macedonia (the former Yugoslav Republic of)": "North Macedonia",
	"United Kingdom of Great Britain and Northern Ireland":   "United Kingdom",
}

func normalizeCountry(name string) string {
	name = strings.TrimSpace(name)
	if alias, ok := countryAliases[name]; ok {
		return alias
	}
	name = strings.TrimSpace(strings.TrimPrefix(name, "MeteoAlarm"))
	if alias, ok := countryAliases[name]; ok {
		return alias
	}
	return name
}
