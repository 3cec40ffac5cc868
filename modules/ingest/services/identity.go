package services

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	postIDLength  = 16
	maxEntityTags = 50
)

var (
	urnPattern     = regexp.MustCompile(`urn:li:(?:activity|ugcPost):[0-9]+`)
	hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionPattern = regexp.MustCompile(`@([\p{L}\p{N}_.\-]+)`)
)

// ExtractURN returns the first activity/ugcPost URN in s, or "".
func ExtractURN(s string) string {
	return urnPattern.FindString(s)
}

// MakePostID derives the stable post id: the URN found in the url, else the
// url itself, else the first 100 characters of content joined with the post
// day. The md5 hex digest is truncated to 16 characters.
func MakePostID(url, content string, postDate time.Time) string {
	base := ExtractURN(url)
	if base == "" {
		base = strings.TrimSpace(url)
	}
	if base == "" {
		base = truncateRunes(content, 100) + "|" + postDate.Format("2006-01-02")
	}
	sum := md5.Sum([]byte(base))
	return hex.EncodeToString(sum[:])[:postIDLength]
}

// ExtractHashtags returns "#tag" entries in first-seen order, deduplicated and
// capped at 50. A "#" directly after "&" (HTML entities) is not a tag.
func ExtractHashtags(s string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range hashtagPattern.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > 0 && s[m[0]-1] == '&' {
			continue
		}
		tag := "#" + s[m[2]:m[3]]
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
		if len(out) == maxEntityTags {
			break
		}
	}
	return out
}

// ExtractMentions returns "@name" entries in first-seen order, deduplicated
// and capped at 50. Trailing dots and hyphens belong to the token.
func ExtractMentions(s string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range mentionPattern.FindAllStringSubmatch(s, -1) {
		name := "@" + m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
		if len(out) == maxEntityTags {
			break
		}
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
