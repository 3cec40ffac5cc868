package services

import (
	"strconv"
	"time"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/grid"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/ingesterr"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

const (
	maxContentRunes = 2000
	maxTitleRunes   = 500
	maxIssues       = 100
)

// NormalizeResult is the per-file output of PostNormalizer.Normalize.
type NormalizeResult struct {
	Posts []*post.Post
	// Skipped counts rows without a title.
	Skipped int
	// Issues holds the first issues found; IssueCounts counts all of them.
	Issues      []*ingesterr.Error
	IssueCounts map[ingesterr.Kind]int
}

func (r *NormalizeResult) note(e *ingesterr.Error) {
	if r.IssueCounts == nil {
		r.IssueCounts = map[ingesterr.Kind]int{}
	}
	r.IssueCounts[e.Kind]++
	if len(r.Issues) < maxIssues {
		r.Issues = append(r.Issues, e)
	}
}

type PostNormalizer struct {
	CompanyID string
	Dates     DateOptions
	Rules     *Rules
}

func NewPostNormalizer(companyID string, rules *Rules, dates DateOptions) *PostNormalizer {
	if rules == nil {
		rules = DefaultRules()
	}
	return &PostNormalizer{CompanyID: companyID, Dates: dates, Rules: rules}
}

// Normalize maps every titled row of g to a post. Missing columns read as
// empty or zero and are reported once per file as SchemaError issues.
func (n *PostNormalizer) Normalize(g *grid.Grid) *NormalizeResult {
	res := &NormalizeResult{}
	if g.Empty() {
		return res
	}
	cols := mapColumns(g, n.Rules.PostColumns)
	if !cols.has(ColTitle) {
		res.note(ingesterr.Newf(ingesterr.KindSchema, "map", "%s: no title column in %v", g.Name, g.Header))
		return res
	}
	for _, name := range []string{ColCreated, ColImpressions, ColClicks} {
		if !cols.has(name) {
			res.note(ingesterr.Newf(ingesterr.KindSchema, "map", "%s: no %s column", g.Name, name))
		}
	}

	for i := range g.Rows {
		p, issue := n.row(g, cols, i)
		if issue != nil {
			res.note(issue)
		}
		if p == nil {
			res.Skipped++
			continue
		}
		res.Posts = append(res.Posts, p)
	}
	return res
}

func (n *PostNormalizer) row(g *grid.Grid, cols columnMap, i int) (*post.Post, *ingesterr.Error) {
	title := cols.text(g, i, ColTitle)
	if title == "" {
		return nil, nil
	}
	content := cols.text(g, i, ColContent)
	if content == "" {
		content = title
	}
	url := cols.text(g, i, ColLink)

	var issue *ingesterr.Error
	var postDate time.Time
	if cols.has(ColCreated) {
		postDate, issue = ParseDate(cols.cell(g, i, ColCreated), n.Dates)
		if issue != nil {
			issue.Stage = "row " + strconv.Itoa(i+1) + " date"
		}
	} else {
		postDate = n.Dates.now()
	}

	impressions := ToInt(cols.cell(g, i, ColImpressions))
	if impressions == 0 {
		impressions = ToInt(cols.cell(g, i, ColViews))
	}
	m := post.Metrics{
		Impressions: impressions,
		Clicks:      ToInt(cols.cell(g, i, ColClicks)),
		Likes:       ToInt(cols.cell(g, i, ColLikes)),
		Comments:    ToInt(cols.cell(g, i, ColComments)),
		Shares:      ToInt(cols.cell(g, i, ColReposts)),
		Reach:       impressions,
	}

	ctr := 0.0
	if cols.has(ColCTR) {
		ctr = CleanRate(cols.cell(g, i, ColCTR))
	}
	if ctr <= 0 {
		ctr = ComputeCTR(m.Clicks, m.Impressions)
	}
	er := 0.0
	if m.Impressions > 0 {
		er = ComputeEngagementRate(m.Likes, m.Comments, m.Shares, m.Clicks, m.Impressions)
	} else if cols.has(ColEngagementRate) {
		er = CleanRate(cols.cell(g, i, ColEngagementRate))
	}

	raw := cols.text(g, i, ColContentType)
	if raw == "" {
		raw = cols.text(g, i, ColDistribution)
	}

	content = truncateRunes(content, maxContentRunes)
	p := &post.Post{
		PostID:         MakePostID(url, content, postDate),
		CompanyID:      n.CompanyID,
		Content:        content,
		Title:          truncateRunes(title, maxTitleRunes),
		URL:            url,
		PostDate:       postDate,
		PostType:       n.Rules.ClassifyPostType(raw, content, url, title),
		Metrics:        m,
		CTR:            capRate(ctr),
		EngagementRate: capRate(er),
		Hashtags:       ExtractHashtags(title),
		Mentions:       ExtractMentions(title),
	}
	return p, issue
}
