package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	gerrors "github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/demographic"
	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

// Semantic post columns. Keys of Rules.PostColumns.
const (
	ColTitle          = "title"
	ColContent        = "content"
	ColLink           = "link"
	ColDistribution   = "distribution"
	ColContentType    = "content_type"
	ColCreated        = "created"
	ColImpressions    = "impressions"
	ColViews          = "views"
	ColClicks         = "clicks"
	ColCTR            = "ctr"
	ColLikes          = "likes"
	ColComments       = "comments"
	ColReposts        = "reposts"
	ColEngagementRate = "engagement_rate"
	ColCampaignStart  = "campaign_start"
)

// Demographic column roles. Keys of Rules.DemographicColumns.
const (
	DemoValue      = "value"
	DemoCount      = "count"
	DemoPercentage = "percentage"
)

// TypeRule maps tokens to a canonical post type. RawTokens are matched against
// the content-type label alone, TextTokens against label, content, url and
// title together.
type TypeRule struct {
	Type       post.Type `yaml:"type" toml:"type"`
	RawTokens  []string  `yaml:"raw" toml:"raw"`
	TextTokens []string  `yaml:"text" toml:"text"`
}

// DemographicBucket assigns a demographic type when any keyword occurs in the
// sheet name.
type DemographicBucket struct {
	Type     string   `yaml:"type" toml:"type"`
	Keywords []string `yaml:"keywords" toml:"keywords"`
}

// Rules is every keyword table the mapping and normalization steps use.
// DefaultRules is used unless a rules file overrides parts of it.
type Rules struct {
	PostColumns        map[string][]string `yaml:"post_columns" toml:"post_columns"`
	DistributionLabels []string            `yaml:"distribution_labels" toml:"distribution_labels"`
	PostTypes          []TypeRule          `yaml:"post_types" toml:"post_types"`
	DemographicTypes   []DemographicBucket `yaml:"demographic_types" toml:"demographic_types"`
	DemographicColumns map[string][]string `yaml:"demographic_columns" toml:"demographic_columns"`
}

func DefaultRules() *Rules {
	return &Rules{
		PostColumns: map[string][]string{
			ColTitle:          {"post title", "title"},
			ColContent:        {"post text", "post content", "commentary"},
			ColLink:           {"post link", "url", "link", "permalink"},
			ColDistribution:   {"post type"},
			ColContentType:    {"content type", "content format", "format", "media", "type"},
			ColCreated:        {"created date", "date", "published"},
			ColImpressions:    {"impressions"},
			ColViews:          {"views", "offsite views"},
			ColClicks:         {"clicks", "link clicks", "unique clicks"},
			ColCTR:            {"click through rate (ctr)", "ctr"},
			ColLikes:          {"likes", "reactions"},
			ColComments:       {"comments"},
			ColReposts:        {"reposts", "shares", "share"},
			ColEngagementRate: {"engagement rate", "engagement"},
			ColCampaignStart:  {"campaign start date"},
		},
		DistributionLabels: []string{"organic", "sponsored", "paid", "boosted", "promoted"},
		PostTypes: []TypeRule{
			{Type: post.TypeVideo, RawTokens: []string{"video"}, TextTokens: []string{"video"}},
			{
				Type:       post.TypeImage,
				RawTokens:  []string{"image", "photo", "picture"},
				TextTokens: []string{"image", "photo", "picture", "jpg", "jpeg", "png"},
			},
			{
				Type:       post.TypeDocument,
				RawTokens:  []string{"document", "pdf", "doc"},
				TextTokens: []string{"document", "pdf", ".ppt", ".pptx", ".doc", ".docx", "slideshare"},
			},
			{Type: post.TypeArticle, RawTokens: []string{"article", "link"}, TextTokens: []string{"/pulse/"}},
			{Type: post.TypeText, RawTokens: []string{"text", "status"}},
		},
		DemographicTypes: []DemographicBucket{
			{Type: demographic.TypeLocation, Keywords: []string{"location", "country", "city", "region", "geography"}},
			{Type: demographic.TypeJobFunction, Keywords: []string{"function", "job", "role", "occupation"}},
			{Type: demographic.TypeSeniority, Keywords: []string{"seniority", "level", "experience"}},
			{Type: demographic.TypeCompanySize, Keywords: []string{"company", "organization", "employer", "size"}},
		},
		DemographicColumns: map[string][]string{
			DemoValue:      {"name", "value", "location", "function", "title", "category"},
			DemoCount:      {"count", "number", "followers", "audience", "members", "total"},
			DemoPercentage: {"percentage", "percent", "%", "share", "pct"},
		},
	}
}

var rulesUnmarshalers = map[string]func([]byte, any) error{
	".yaml": yaml.Unmarshal,
	".yml":  yaml.Unmarshal,
	".toml": toml.Unmarshal,
}

// LoadRules returns DefaultRules with the sections present in the file at
// path replacing the defaults. The format follows the extension (YAML or
// TOML). An empty path yields the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gerrors.Wrap(err, "read rules")
	}
	unmarshal, ok := rulesUnmarshalers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		unmarshal = yaml.Unmarshal
	}
	var override Rules
	if err := unmarshal(data, &override); err != nil {
		return nil, gerrors.Wrapf(err, "parse rules %s", path)
	}
	rules.merge(&override)
	if err := rules.validate(); err != nil {
		return nil, gerrors.Wrapf(err, "rules %s", path)
	}
	return rules, nil
}

func (r *Rules) merge(o *Rules) {
	for k, v := range o.PostColumns {
		r.PostColumns[k] = lowerAll(v)
	}
	for k, v := range o.DemographicColumns {
		r.DemographicColumns[k] = lowerAll(v)
	}
	if len(o.DistributionLabels) > 0 {
		r.DistributionLabels = lowerAll(o.DistributionLabels)
	}
	if len(o.PostTypes) > 0 {
		r.PostTypes = o.PostTypes
		for i := range r.PostTypes {
			r.PostTypes[i].RawTokens = lowerAll(r.PostTypes[i].RawTokens)
			r.PostTypes[i].TextTokens = lowerAll(r.PostTypes[i].TextTokens)
		}
	}
	if len(o.DemographicTypes) > 0 {
		r.DemographicTypes = o.DemographicTypes
		for i := range r.DemographicTypes {
			r.DemographicTypes[i].Keywords = lowerAll(r.DemographicTypes[i].Keywords)
		}
	}
}

func (r *Rules) validate() error {
	for _, tr := range r.PostTypes {
		if !tr.Type.Valid() {
			return gerrors.Errorf("unknown post type %q", tr.Type)
		}
	}
	if len(r.PostColumns[ColTitle]) == 0 {
		return gerrors.New("post_columns.title must not be empty")
	}
	return nil
}

// Columns returns the candidate headers for a semantic post column.
func (r *Rules) Columns(name string) []string {
	return r.PostColumns[name]
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
