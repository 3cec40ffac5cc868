package demographic

import (
	"context"
	"time"
)

const (
	TypeLocation    = "location"
	TypeJobFunction = "job_function"
	TypeSeniority   = "seniority"
	TypeCompanySize = "company_size"
	TypeGeneral     = "general"
)

// Record is a CanonicalDemographicRecord. Its natural key is
// (CompanyID, Type, Value, DateCollected truncated to the day).
type Record struct {
	CompanyID      string
	DateCollected  time.Time
	Type           string
	Value          string
	Count          int64
	Percentage     float64
	TotalFollowers int64
	NewFollowers   int64
}

type Repository interface {
	Upsert(ctx context.Context, records []*Record) error
	// LatestTotalFollowers returns 0 when nothing has been stored yet.
	LatestTotalFollowers(ctx context.Context, companyID string) (int64, error)
}
