package persistence

import (
	"github.com/iota-uz/export-ingest/modules/ingest/domain/analytics"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
	"github.com/iota-uz/export-ingest/modules/ingest/infrastructure/persistence/models"
)

func toDBPost(p *post.Post) *models.PostAnalytics {
	return &models.PostAnalytics{
		PostID:         p.PostID,
		CompanyID:      p.CompanyID,
		PostContent:    p.Content,
		PostTitle:      p.Title,
		PostURL:        p.URL,
		PostDate:       p.PostDate,
		PostType:       string(p.PostType),
		Impressions:    p.Impressions,
		Clicks:         p.Clicks,
		Likes:          p.Likes,
		Comments:       p.Comments,
		Shares:         p.Shares,
		Reach:          p.Reach,
		CTR:            p.CTR,
		EngagementRate: p.EngagementRate,
		Hashtags:       nonNil(p.Hashtags),
		Mentions:       nonNil(p.Mentions),
	}
}

func toDomainPost(row *models.PostAnalytics) *post.Post {
	return &post.Post{
		PostID:    row.PostID,
		CompanyID: row.CompanyID,
		Content:   row.PostContent,
		Title:     row.PostTitle,
		URL:       row.PostURL,
		PostDate:  row.PostDate,
		PostType:  post.Type(row.PostType),
		Metrics: post.Metrics{
			Impressions: row.Impressions,
			Clicks:      row.Clicks,
			Likes:       row.Likes,
			Comments:    row.Comments,
			Shares:      row.Shares,
			Reach:       row.Reach,
		},
		CTR:            row.CTR,
		EngagementRate: row.EngagementRate,
		Hashtags:       row.Hashtags,
		Mentions:       row.Mentions,
		DateCollected:  row.DateCollected,
	}
}

func toDBFollower(r *demographic.Record) *models.FollowerAnalytics {
	return &models.FollowerAnalytics{
		CompanyID:        r.CompanyID,
		DateCollected:    r.DateCollected.UTC(),
		TotalFollowers:   r.TotalFollowers,
		NewFollowers:     r.NewFollowers,
		DemographicType:  r.Type,
		DemographicValue: r.Value,
		Count:            r.Count,
		Percentage:       r.Percentage,
	}
}

func toDBCompany(s *analytics.CompanySummary) *models.CompanyAnalytics {
	return &models.CompanyAnalytics{
		CompanyID:         s.CompanyID,
		CompanyName:       s.CompanyName,
		FollowersCount:    s.FollowersCount,
		Impressions:       s.Impressions,
		UniqueImpressions: s.UniqueImpressions,
		Clicks:            s.Clicks,
		EngagementRate:    s.EngagementRate,
		Reach:             s.Reach,
		TotalPosts:        s.TotalPosts,
		AvgPostEngagement: s.AvgPostEngagement,
		DateCollected:     s.DateCollected,
	}
}

func toDBSnapshot(s *analytics.PostMetricsSnapshot) *models.PostMetricsHistory {
	return &models.PostMetricsHistory{
		CompanyID:      s.CompanyID,
		PostID:         s.PostID,
		ObservedAt:     s.ObservedAt,
		ObservedDate:   s.ObservedDate,
		PostDate:       s.PostDate,
		Impressions:    s.Impressions,
		Clicks:         s.Clicks,
		Likes:          s.Likes,
		Comments:       s.Comments,
		Shares:         s.Shares,
		Reach:          s.Reach,
		CTR:            s.CTR,
		EngagementRate: s.EngagementRate,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
