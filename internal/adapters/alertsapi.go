package adapters

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/feedwatch/feedwatch/internal/feed"
)

// AlertsAPI fetches an active-alerts JSON endpoint in the api.weather.gov
// shape: a feature collection whose properties carry event type, headline,
// area description, and UGC geocodes. Produces keyed items with
// "state|event" sub-keys.
type AlertsAPI struct {
	client *Client
}

// NewAlertsAPI builds the adapter.
func NewAlertsAPI(client *Client) *AlertsAPI {
	return &AlertsAPI{client: client}
}

// Event types surfaced on the dashboard; everything else is noise at this
// refresh cadence.
var allowedEvents = map[string]struct{}{
	"Severe Thunderstorm Warning": {},
	"Flash Flood Warning":         {},
	"Tornado Warning":             {},
	"Flood Warning":               {},
	"Extreme Heat Warning":        {},
	"Air Quality Alert":           {},
}

// State and territory names keyed by postal code, plus the marine bucket.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"FL": "Florida", "GA": "Georgia", "HI": "Hawaii", "ID": "Idaho",
	"IL": "Illinois", "IN": "Indiana", "IA": "Iowa", "KS": "Kansas",
	"KY": "Kentucky", "LA": "Louisiana", "ME": "Maine", "MD": "Maryland",
	"MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota", "MS": "Mississippi",
	"MO": "Missouri", "MT": "Montana", "NE": "Nebraska", "NV": "Nevada",
	"NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico", "NY": "New York",
	"NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma",
	"OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington", "WV": "West Virginia",
	"WI": "Wisconsin", "WY": "Wyoming", "DC": "District of Columbia",
	"PR": "Puerto Rico", "VI": "U.S. Virgin Islands", "GU": "Guam",
	"AS": "American Samoa", "MP": "Northern Mariana Islands", "MAR": "Marine",
}

// Common marine UGC zone prefixes.
var marinePrefixes = map[string]struct{}{
	"ANZ": {}, "AMZ": {}, "GMZ": {}, "PZZ": {}, "PHZ": {}, "PKZ": {}, "PMZ": {},
}

var stateSuffixRe = regexp.MustCompile(`,\s*([A-Z]{2})(?:\s|$)`)

type alertsDoc struct {
	Features []struct {
		Properties alertProps `json:"properties"`
	} `json:"features"`
}

type alertProps struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	AreaDesc    string `json:"areaDesc"`
	Severity    string `json:"severity"`
	Effective   string `json:"effective"`
	Sent        string `json:"sent"`
	Web         string `json:"web"`
	Geocode     struct {
		UGC []string `json:"UGC"`
	} `json:"geocode"`
}

// Fetch implements feed.Adapter.
func (a *AlertsAPI) Fetch(ctx context.Context, desc feed.Descriptor) ([]feed.Item, error) {
	body, err := a.client.Get(ctx, desc.URL, desc.Headers)
	if err != nil {
		return nil, err
	}
	var doc alertsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, feed.Permanent(desc.Key, err)
	}
	items := make([]feed.Item, 0, len(doc.Features))
	for _, f := range doc.Features {
		props := f.Properties
		if _, ok := allowedEvents[props.Event]; !ok {
			continue
		}
		title := props.Headline
		if title == "" {
			title = props.Event
		}
		published := props.Effective
		if published == "" {
			published = props.Sent
		}
		items = append(items, feed.Item{
			Title:     title,
			Summary:   props.Description,
			Link:      props.Web,
			Published: published,
			Region:    inferState(props),
			Bucket:    props.Event,
			Severity:  props.Severity,
			ID:        props.ID,
		})
	}
	return items, nil
}

// inferState maps an alert to a state/territory name: marine UGC prefixes
// win, then the first alphabetic UGC prefix, then a ", XX" suffix in the
// area description.
func inferState(props alertProps) string {
	for _, code := range props.Geocode.UGC {
		if len(code) >= 3 {
			if _, ok := marinePrefixes[code[:3]]; ok {
				return stateNames["MAR"]
			}
		}
	}
	for _, code := range props.Geocode.UGC {
		if len(code) >= 2 && isAlpha(code[:2]) {
			if name, ok := stateNames[code[:2]]; ok {
				return name
			}
			return code[:2]
		}
	}
	if m := stateSuffixRe.FindStringSubmatch(props.AreaDesc); m != nil {
		if name, ok := stateNames[m[1]]; ok {
			return name
		}
		return m[1]
	}
	if strings.Contains(strings.ToLower(props.Headline), "marine") {
		return stateNames["MAR"]
	}
	return "Unknown"
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
