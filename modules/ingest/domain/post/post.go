package post

import (
	"context"
	"time"
)

type Type string

const (
	TypeText     Type = "text"
	TypeArticle  Type = "article"
	TypeImage    Type = "image"
	TypeDocument Type = "document"
	TypeVideo    Type = "video"
)

// CanonicalTypes is the fixed output set of the classifier.
var CanonicalTypes = []Type{TypeText, TypeArticle, TypeImage, TypeDocument, TypeVideo}

func (t Type) Valid() bool {
	for _, c := range CanonicalTypes {
		if t == c {
			return true
		}
	}
	return false
}

// Metrics are the raw counters tracked per post. They are the only fields
// merged by the reconciliation policy.
type Metrics struct {
	Impressions int64
	Clicks      int64
	Likes       int64
	Comments    int64
	Shares      int64
	Reach       int64
}

// Max returns the pointwise maximum of m and o.
func (m Metrics) Max(o Metrics) Metrics {
	return Metrics{
		Impressions: max(m.Impressions, o.Impressions),
		Clicks:      max(m.Clicks, o.Clicks),
		Likes:       max(m.Likes, o.Likes),
		Comments:    max(m.Comments, o.Comments),
		Shares:      max(m.Shares, o.Shares),
		Reach:       max(m.Reach, o.Reach),
	}
}

// Post is a CanonicalPostRecord. DateCollected is set by the store on first
// insert and is never written by the ingestion path.
type Post struct {
	PostID    string
	CompanyID string
	Content   string
	Title     string
	URL       string
	PostDate  time.Time
	PostType  Type

	Metrics

	CTR            float64
	EngagementRate float64

	Hashtags []string
	Mentions []string

	DateCollected time.Time
}

// Clone returns a copy that shares no slices with p.
func (p *Post) Clone() *Post {
	c := *p
	c.Hashtags = append([]string(nil), p.Hashtags...)
	c.Mentions = append([]string(nil), p.Mentions...)
	return &c
}

type Repository interface {
	// FindMetrics returns the stored counters for the ids that exist.
	FindMetrics(ctx context.Context, postIDs []string) (map[string]Metrics, error)
	Insert(ctx context.Context, posts []*Post) error
	Upsert(ctx context.Context, posts []*Post) error
	ListByCompany(ctx context.Context, companyID string) ([]*Post, error)
	UpdateTypes(ctx context.Context, types map[string]Type) error
}
