package config

import (
	"github.com/feedwatch/feedwatch/internal/feed"
)

// DefaultSources is the built-in catalog of weather warning feeds, used
// when the configuration file declares none.
func DefaultSources() []feed.Descriptor {
	return []feed.Descriptor{
		{
			Key:   "nws",
			Kind:  feed.KindKeyed,
			Type:  "alerts_api",
			Label: "NWS (US)",
			URL:   "https://api.weather.gov/alerts/active",
			Group: "g1",
		},
		{
			Key:   "meteoalarm",
			Kind:  feed.KindIdentity,
			Type:  "identity_feed",
			Label: "Meteoalarm (Europe)",
			URL:   "https://feeds.meteoalarm.org/feeds/meteoalarm-legacy-rss-europe",
			Group: "g1",
		},
		{
			Key:   "ec",
			Kind:  feed.KindKeyed,
			Type:  "atom_board",
			Label: "EC (Canada)",
			URLs: []string{
				"https://weather.gc.ca/rss/battleboard/on33_e.xml",
				"https://weather.gc.ca/rss/battleboard/qc133_e.xml",
				"https://weather.gc.ca/rss/battleboard/bc74_e.xml",
				"https://weather.gc.ca/rss/battleboard/ab52_e.xml",
				"https://weather.gc.ca/rss/battleboard/mb38_e.xml",
				"https://weather.gc.ca/rss/battleboard/sk33_e.xml",
				"https://weather.gc.ca/rss/battleboard/ns11_e.xml",
			},
			Regions: []string{
				"Ontario",
				"Quebec",
				"British Columbia",
				"Alberta",
				"Manitoba",
				"Saskatchewan",
				"Nova Scotia",
			},
			Group: "g2_even",
		},
		{
			Key:   "metoffice_uk",
			Kind:  feed.KindKeyed,
			Type:  "region_feed",
			Label: "Met Office (UK)",
			URLs: []string{
				"https://www.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/os",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/he",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/gr",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/st",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/ta",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/dg",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/ni",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/wl",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/nw",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/ne",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/yh",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/wm",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/em",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/ee",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/sw",
				"https://weather.metoffice.gov.uk/public/data/PWSCache/WarningsRSS/Region/se",
			},
			Regions: []string{
				"Orkney & Shetland",
				"Highlands & Eilean Siar",
				"Grampian",
				"Strathclyde",
				"Central, Tayside & Fife",
				"SW Scotland, Lothian Borders",
				"Northern Ireland",
				"Wales",
				"North West England",
				"North East England",
				"Yorkshire & Humber",
				"West Midlands",
				"East Midlands",
				"East of England",
				"South West England",
				"London & South East England",
			},
			Group: "g4_2",
		},
		{
			Key:   "bom_multi",
			Kind:  feed.KindKeyed,
			Type:  "region_feed",
			Label: "BOM (Australia)",
			URLs: []string{
				"https://www.bom.gov.au/fwo/IDZ00054.warnings_nsw.xml",
				"https://www.bom.gov.au/fwo/IDZ00059.warnings_vic.xml",
				"https://www.bom.gov.au/fwo/IDZ00056.warnings_qld.xml",
				"https://www.bom.gov.au/fwo/IDZ00060.warnings_wa.xml",
				"https://www.bom.gov.au/fwo/IDZ00057.warnings_sa.xml",
				"https://www.bom.gov.au/fwo/IDZ00058.warnings_tas.xml",
				"https://www.bom.gov.au/fwo/IDZ00055.warnings_nt.xml",
			},
			Regions: []string{
				"NSW & ACT",
				"Victoria",
				"Queensland",
				"Western Australia",
				"South Australia",
				"Tasmania",
				"Northern Territory",
			},
			Group: "g2_odd",
		},
		{
			Key:   "imd_india_today",
			Kind:  feed.KindIdentity,
			Type:  "warning_table",
			Label: "IMD (India)",
			URL:   "https://mausam.imd.gov.in/imd_latest/contents/warnings.php",
			Group: "g4_1",
		},
		{
			Key:   "pagasa",
			Kind:  feed.KindScalar,
			Type:  "region_feed",
			Label: "PAGASA (Philippines)",
			URL:   "https://publicalert.pagasa.dost.gov.ph/feeds/",
			Group: "g2_even",
		},
		{
			Key:   "jma",
			Kind:  feed.KindScalar,
			Type:  "bulletin",
			Label: "JMA (Japan)",
			URL:   "https://www.jma.go.jp/bosai/warning/",
			Group: "g2_odd",
		},
		{
			Key:   "cma_china",
			Kind:  feed.KindScalar,
			Type:  "bulletin",
			Label: "CMA (China)",
			URL:   "https://weather.cma.cn/web/alarm/map.html",
			Group: "g4_4",
		},
	}
}
