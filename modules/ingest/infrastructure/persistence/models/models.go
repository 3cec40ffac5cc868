// Package models holds the row shapes of the ingestion tables.
package models

import "time"

type PostAnalytics struct {
	PostID         string
	CompanyID      string
	PostContent    string
	PostTitle      string
	PostURL        string
	PostDate       time.Time
	PostType       string
	Impressions    int64
	Clicks         int64
	Likes          int64
	Comments       int64
	Shares         int64
	Reach          int64
	CTR            float64
	EngagementRate float64
	Hashtags       []string
	Mentions       []string
	DateCollected  time.Time
}

type FollowerAnalytics struct {
	CompanyID        string
	DateCollected    time.Time
	TotalFollowers   int64
	NewFollowers     int64
	DemographicType  string
	DemographicValue string
	Count            int64
	Percentage       float64
}

type CompanyAnalytics struct {
	CompanyID         string
	CompanyName       string
	FollowersCount    int64
	Impressions       int64
	UniqueImpressions int64
	Clicks            int64
	EngagementRate    float64
	Reach             int64
	TotalPosts        int
	AvgPostEngagement float64
	DateCollected     time.Time
}

type PostMetricsHistory struct {
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
