package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/analytics"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

var errStoreDown = errors.New("store unavailable")

type memPosts struct {
	rows        map[string]*post.Post
	lookups     [][]string
	insertCalls int
	upsertCalls int
	failInsert  func(batch []*post.Post) bool
	updateCalls int
	failUpdate  func(call int) bool
	failLookup  bool
}

func newMemPosts() *memPosts {
	return &memPosts{rows: map[string]*post.Post{}}
}

func (m *memPosts) FindMetrics(_ context.Context, ids []string) (map[string]post.Metrics, error) {
	if m.failLookup {
		return nil, errStoreDown
	}
	m.lookups = append(m.lookups, append([]string(nil), ids...))
	out := map[string]post.Metrics{}
	for _, id := range ids {
		if p, ok := m.rows[id]; ok {
			out[id] = p.Metrics
		}
	}
	return out, nil
}

func (m *memPosts) Insert(_ context.Context, posts []*post.Post) error {
	m.insertCalls++
	if m.failInsert != nil && m.failInsert(posts) {
		return errStoreDown
	}
	for _, p := range posts {
		if _, ok := m.rows[p.PostID]; ok {
			return errors.New("duplicate key")
		}
	}
	for _, p := range posts {
		c := p.Clone()
		c.DateCollected = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		m.rows[p.PostID] = c
	}
	return nil
}

func (m *memPosts) Upsert(_ context.Context, posts []*post.Post) error {
	m.upsertCalls++
	for _, p := range posts {
		c := p.Clone()
		if old, ok := m.rows[p.PostID]; ok {
			c.DateCollected = old.DateCollected
		}
		m.rows[p.PostID] = c
	}
	return nil
}

func (m *memPosts) ListByCompany(_ context.Context, companyID string) ([]*post.Post, error) {
	var out []*post.Post
	for _, p := range m.rows {
		if p.CompanyID == companyID {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostID < out[j].PostID })
	return out, nil
}

func (m *memPosts) UpdateTypes(_ context.Context, types map[string]post.Type) error {
	m.updateCalls++
	if m.failUpdate != nil && m.failUpdate(m.updateCalls) {
		return errStoreDown
	}
	for id, t := range types {
		if p, ok := m.rows[id]; ok {
			p.PostType = t
		}
	}
	return nil
}

type memAnalytics struct {
	summaries map[string]*analytics.CompanySummary
	history   []*analytics.CompanySummary
	snapshots map[string]*analytics.PostMetricsSnapshot
	failSnaps bool
}

func newMemAnalytics() *memAnalytics {
	return &memAnalytics{
		summaries: map[string]*analytics.CompanySummary{},
		snapshots: map[string]*analytics.PostMetricsSnapshot{},
	}
}

func (m *memAnalytics) UpsertSummary(_ context.Context, s *analytics.CompanySummary) error {
	c := *s
	m.summaries[s.CompanyID] = &c
	return nil
}

func (m *memAnalytics) InsertHistory(_ context.Context, s *analytics.CompanySummary) error {
	c := *s
	m.history = append(m.history, &c)
	return nil
}

func (m *memAnalytics) LatestFollowersCount(_ context.Context, companyID string) (int64, error) {
	if s, ok := m.summaries[companyID]; ok {
		return s.FollowersCount, nil
	}
	return 0, nil
}

func (m *memAnalytics) UpsertPostSnapshots(_ context.Context, snaps []*analytics.PostMetricsSnapshot) error {
	if m.failSnaps {
		return errStoreDown
	}
	for _, s := range snaps {
		c := *s
		m.snapshots[s.CompanyID+"|"+s.PostID+"|"+s.ObservedDate.Format(time.DateOnly)] = &c
	}
	return nil
}

type memFollowers struct {
	rows   map[string]*demographic.Record
	latest int64
}

func newMemFollowers() *memFollowers {
	return &memFollowers{rows: map[string]*demographic.Record{}}
}

func (m *memFollowers) Upsert(_ context.Context, records []*demographic.Record) error {
	for _, r := range records {
		c := *r
		key := r.CompanyID + "|" + r.Type + "|" + r.Value + "|" + r.DateCollected.Format(time.DateOnly)
		m.rows[key] = &c
	}
	return nil
}

func (m *memFollowers) LatestTotalFollowers(context.Context, string) (int64, error) {
	return m.latest, nil
}

type memReports struct {
	validations map[string][][]string
	dates       [][]string
}

func (m *memReports) WriteValidation(source string, _ []string, rows [][]string) (string, error) {
	if m.validations == nil {
		m.validations = map[string][][]string{}
	}
	m.validations[source] = rows
	return "validation_" + source, nil
}

func (m *memReports) WriteDateDiscrepancies(_ []string, rows [][]string) (string, error) {
	m.dates = rows
	return "date_discrepancies.csv", nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
}
