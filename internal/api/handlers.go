package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feedwatch/feedwatch/internal/feed"
	"github.com/feedwatch/feedwatch/internal/monitor"
)

type feedSummary struct {
	Key        string         `json:"key"`
	Label      string         `json:"label"`
	Kind       string         `json:"kind"`
	Group      string         `json:"group"`
	LastFetch  *time.Time     `json:"last_fetch,omitempty"`
	Error      string         `json:"error,omitempty"`
	Attempts   int            `json:"attempts,omitempty"`
	Total      int            `json:"total"`
	New        int            `json:"new"`
	PerSubKey  map[string]int `json:"new_per_subkey,omitempty"`
	Open       bool           `json:"open"`
	OpenSubKey string         `json:"open_subkey,omitempty"`
}

type feedDetail struct {
	feedSummary
	Items []feedItem `json:"items"`
}

type feedItem struct {
	Title     string     `json:"title"`
	Summary   string     `json:"summary,omitempty"`
	Link      string     `json:"link,omitempty"`
	Published string     `json:"published,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Region    string     `json:"region,omitempty"`
	Bucket    string     `json:"bucket,omitempty"`
	Severity  string     `json:"severity,omitempty"`
	ID        string     `json:"id,omitempty"`
	New       bool       `json:"new"`
}

type openRequest struct {
	SubKey string `json:"subkey"`
}

func toSummary(v monitor.View) feedSummary {
	out := feedSummary{
		Key:        v.Descriptor.Key,
		Label:      v.Descriptor.Label,
		Kind:       string(v.Descriptor.Kind),
		Group:      v.Descriptor.Group,
		Error:      v.LastError,
		Attempts:   v.Attempts,
		Total:      v.Summary.Total,
		New:        v.Summary.New,
		Open:       v.Open,
		OpenSubKey: v.OpenSubKey,
	}
	if !v.LastFetch.IsZero() {
		t := v.LastFetch
		out.LastFetch = &t
	}
	if len(v.Summary.PerSubKey) > 0 {
		per := make(map[string]int, len(v.Summary.PerSubKey))
		for sub, c := range v.Summary.PerSubKey {
			per[sub] = c.New
		}
		out.PerSubKey = per
	}
	return out
}

func toDetail(v monitor.View) feedDetail {
	d := feedDetail{
		feedSummary: toSummary(v),
		Items:       make([]feedItem, 0, len(v.Items)),
	}
	for i, it := range v.Items {
		out := toItem(it)
		if i < len(v.NewFlags) {
			out.New = v.NewFlags[i]
		}
		d.Items = append(d.Items, out)
	}
	return d
}

func toItem(it feed.Item) feedItem {
	out := feedItem{
		Title:     it.Title,
		Summary:   it.Summary,
		Link:      it.Link,
		Published: it.Published,
		Region:    it.Region,
		Bucket:    it.Bucket,
		Severity:  it.Severity,
		ID:        it.ID,
	}
	if !it.Timestamp.IsZero() {
		t := it.Timestamp
		out.Timestamp = &t
	}
	return out
}

func (s *Server) listFeeds(w http.ResponseWriter, _ *http.Request) {
	views := s.session.Views()
	out := make([]feedSummary, 0, len(views))
	for _, v := range views {
		out = append(out, toSummary(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"feeds": out})
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	v, err := s.session.View(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toDetail(v))
}

func (s *Server) openFeed(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req openRequest
	// Body is optional for scalar and identity sources.
	decodeJSONBody(r, &req)
	if err := s.session.Open(key, req.SubKey); err != nil {
		writeError(w, statusForSessionErr(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "open"})
}

func (s *Server) closeFeed(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.session.Close(key); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) markSeen(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.session.MarkAllSeen(key); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "seen"})
}
