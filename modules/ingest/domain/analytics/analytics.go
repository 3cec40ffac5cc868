package analytics

import (
	"context"
	"time"
)

// CompanySummary is the per-company rollup. One live row per company; each
// upsert may also be appended to the history table.
type CompanySummary struct {
	CompanyID         string
	CompanyName       string
	FollowersCount    int64
	Impressions       int64
	UniqueImpressions int64
	Clicks            int64
	Reach             int64
	EngagementRate    float64
	AvgPostEngagement float64
	TotalPosts        int
	DateCollected     time.Time
}

// PostMetricsSnapshot is one row per (company, post, calendar day).
type PostMetricsSnapshot struct {
	CompanyID      string
	PostID         string
	ObservedAt     time.Time
	ObservedDate   time.Time
	PostDate       time.Time
	Impressions    int64
	Clicks         int64
	Likes          int64
	Comments       int64
	Shares         int64
	Reach          int64
	CTR            float64
	EngagementRate float64
}

type Repository interface {
	UpsertSummary(ctx context.Context, summary *CompanySummary) error
	InsertHistory(ctx context.Context, summary *CompanySummary) error
	LatestFollowersCount(ctx context.Context, companyID string) (int64, error)
	UpsertPostSnapshots(ctx context.Context, snapshots []*PostMetricsSnapshot) error
}
