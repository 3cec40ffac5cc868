package services

import (
	"slices"
	"strings"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

// ClassifyPostType maps a raw content-type label plus the post's text to one
// of the canonical types. Distribution labels such as "Sponsored" carry no
// content information and are treated as empty.
func (r *Rules) ClassifyPostType(raw, content, url, title string) post.Type {
	label := strings.ToLower(strings.TrimSpace(raw))
	if slices.Contains(r.DistributionLabels, label) {
		label = ""
	}
	haystack := strings.ToLower(strings.Join([]string{label, content, url, title}, " "))

	for _, rule := range r.PostTypes {
		if label != "" && containsAny(label, rule.RawTokens) {
			return rule.Type
		}
		if containsAny(haystack, rule.TextTokens) {
			return rule.Type
		}
	}
	if strings.Contains(haystack, "http") {
		return post.TypeArticle
	}
	return post.TypeText
}

// IsDistributionLabel reports whether a stored post type needs reclassifying.
func (r *Rules) IsDistributionLabel(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	return t == "" || slices.Contains(r.DistributionLabels, t)
}

// ClassifyPostType uses the default rules.
func ClassifyPostType(raw, content, url, title string) post.Type {
	return defaultRules.ClassifyPostType(raw, content, url, title)
}

var defaultRules = DefaultRules()

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
