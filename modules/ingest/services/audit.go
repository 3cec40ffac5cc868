package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

// ReportWriter persists audit tables. Implemented by infrastructure/report.
type ReportWriter interface {
	WriteValidation(source string, header []string, rows [][]string) (string, error)
	WriteDateDiscrepancies(header []string, rows [][]string) (string, error)
}

var postAuditHeader = []string{
	"post_id", "company_id", "post_content", "post_date", "impressions", "clicks",
	"likes", "comments", "shares", "engagement_rate", "reach", "post_type",
	"post_url", "post_title", "ctr", "hashtags", "mentions",
}

// PostAuditRows renders posts as they were sent to the store.
func PostAuditRows(posts []*post.Post) ([]string, [][]string) {
	rows := make([][]string, len(posts))
	for i, p := range posts {
		rows[i] = []string{
			p.PostID,
			p.CompanyID,
			p.Content,
			p.PostDate.Format("2006-01-02T15:04:05"),
			strconv.FormatInt(p.Impressions, 10),
			strconv.FormatInt(p.Clicks, 10),
			strconv.FormatInt(p.Likes, 10),
			strconv.FormatInt(p.Comments, 10),
			strconv.FormatInt(p.Shares, 10),
			formatRate(p.EngagementRate),
			strconv.FormatInt(p.Reach, 10),
			string(p.PostType),
			p.URL,
			p.Title,
			formatRate(p.CTR),
			strings.Join(p.Hashtags, " "),
			strings.Join(p.Mentions, " "),
		}
	}
	return postAuditHeader, rows
}

var dateDecisionHeader = []string{"post_url", "raw_created", "dmy", "mdy", "campaign_start", "chosen"}

// DecisionRows renders ambiguous-date decisions for the discrepancy report.
func DecisionRows(decisions []DateDecision) ([]string, [][]string) {
	rows := make([][]string, len(decisions))
	for i, d := range decisions {
		ref := ""
		if d.Reference != nil {
			ref = d.Reference.Format(time.DateOnly)
		}
		rows[i] = []string{
			d.PostURL,
			d.Raw,
			d.DayFirst.Format(time.DateTime),
			d.MonthFirst.Format(time.DateTime),
			ref,
			d.Chosen,
		}
	}
	return dateDecisionHeader, rows
}

func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
