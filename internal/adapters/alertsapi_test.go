package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedwatch/feedwatch/internal/feed"
)

const activeAlertsJSON = `{
  "features": [
    {
      "properties": {
        "id": "urn:oid:2.49.0.1.840.0.001",
        "event": "Tornado Warning",
        "headline": "Tornado Warning issued for Dallas County",
        "description": "A severe thunderstorm capable of producing a tornado.",
        "areaDesc": "Dallas, TX",
        "severity": "Extreme",
        "effective": "2026-08-10T14:05:00-05:00",
        "web": "https://alerts.example.gov/001",
        "geocode": {"UGC": ["TXC113"]}
      }
    },
    {
      "properties": {
        "id": "urn:oid:2.49.0.1.840.0.002",
        "event": "Special Weather Statement",
        "headline": "Gusty winds possible",
        "geocode": {"UGC": ["OKC027"]}
      }
    },
    {
      "properties": {
        "id": "urn:oid:2.49.0.1.840.0.003",
        "event": "Flood Warning",
        "headline": "Flood Warning for coastal waters",
        "sent": "2026-08-10T14:10:00-05:00",
        "geocode": {"UGC": ["ANZ335"]}
      }
    }
  ]
}`

func TestAlertsAPIFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(activeAlertsJSON))
	}))
	defer srv.Close()

	adapter := NewAlertsAPI(NewClient(ClientConfig{}))
	items, err := adapter.Fetch(context.Background(), feed.Descriptor{
		Key:  "nws",
		Kind: feed.KindKeyed,
		URL:  srv.URL,
	})
	require.NoError(t, err)
	// The Special Weather Statement is filtered out.
	require.Len(t, items, 2)

	tornado := items[0]
	require.Equal(t, "Tornado Warning issued for Dallas County", tornado.Title)
	require.Equal(t, "Texas", tornado.Region)
	require.Equal(t, "Tornado Warning", tornado.Bucket)
	require.Equal(t, "Extreme", tornado.Severity)
	require.Equal(t, "2026-08-10T14:05:00-05:00", tornado.Published)
	require.Equal(t, "Texas|Tornado Warning", tornado.SubKey())

	flood := items[1]
	require.Equal(t, "Marine", flood.Region)
	require.Equal(t, "2026-08-10T14:10:00-05:00", flood.Published, "sent is the fallback for effective")
}

func TestAlertsAPIFetchBadBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	adapter := NewAlertsAPI(NewClient(ClientConfig{}))
	_, err := adapter.Fetch(context.Background(), feed.Descriptor{Key: "nws", URL: srv.URL})
	require.Error(t, err)
	require.True(t, feed.IsPermanent(err))
}

func TestInferState(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		props alertProps
		want  string
	}{
		{
			name:  "marine ugc wins",
			props: alertProps{Geocode: ugc("TXC113", "GMZ850")},
			want:  "Marine",
		},
		{
			name:  "alpha ugc prefix",
			props: alertProps{Geocode: ugc("CAC037")},
			want:  "California",
		},
		{
			name:  "unknown alpha prefix passes through",
			props: alertProps{Geocode: ugc("XQZ001")},
			want:  "XQ",
		},
		{
			name:  "area description suffix",
			props: alertProps{AreaDesc: "Harris County, TX"},
			want:  "Texas",
		},
		{
			name:  "marine headline fallback",
			props: alertProps{Headline: "Small craft advisory for marine zones"},
			want:  "Marine",
		},
		{
			name:  "nothing matches",
			props: alertProps{AreaDesc: "somewhere"},
			want:  "Unknown",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, inferState(tc.props))
		})
	}
}

func ugc(codes ...string) struct {
	UGC []string `json:"UGC"`
} {
	return struct {
		UGC []string `json:"UGC"`
	}{UGC: codes}
}
