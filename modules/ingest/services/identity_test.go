package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/export-ingest/modules/ingest/domain/post"
)

func TestExtractURN(t *testing.T) {
	assert.Equal(t, "urn:li:activity:7123456789",
		ExtractURN("https://www.linkedin.com/feed/update/urn:li:activity:7123456789/"))
	assert.Equal(t, "urn:li:ugcPost:42", ExtractURN("x urn:li:ugcPost:42?y"))
	assert.Empty(t, ExtractURN("https://example.com/post/1"))
}

func TestMakePostID_Deterministic(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	a := MakePostID("", "Hello world", day)
	b := MakePostID("", "Hello world", day.Add(5*time.Hour))
	require.Len(t, a, 16)
	require.Equal(t, a, b, "only the day participates")

	assert.NotEqual(t, a, MakePostID("", "Hello world!", day))
	assert.NotEqual(t, a, MakePostID("", "Hello world", day.AddDate(0, 0, 1)))
}

func TestMakePostID_PrefersURNThenURL(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	u1 := "https://www.linkedin.com/feed/update/urn:li:activity:1/"
	u2 := "https://lnkd.in/share?ref=urn:li:activity:1"
	require.Equal(t, MakePostID(u1, "a", day), MakePostID(u2, "b", day.AddDate(1, 0, 0)))

	require.Equal(t,
		MakePostID("https://example.com/p", "a", day),
		MakePostID("https://example.com/p", "different", day.AddDate(0, 1, 0)))
}

func TestMakePostID_ContentPrefixIs100Runes(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	base := strings.Repeat("é", 100)
	require.Equal(t, MakePostID("", base+"tail one", day), MakePostID("", base+"tail two", day))
}

// The id keeps 64 bits of the digest. For a corpus far larger than one
// company's post history the birthday bound stays negligible; this pins the
// observed collision count at zero for 50k distinct contents.
func TestMakePostID_CollisionRateForCorpus(t *testing.T) {
	const corpus = 50000
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	seen := make(map[string]struct{}, corpus)
	collisions := 0
	for i := 0; i < corpus; i++ {
		id := MakePostID("", fmt.Sprintf("post body %d", i), day)
		if _, ok := seen[id]; ok {
			collisions++
		}
		seen[id] = struct{}{}
	}
	require.Zero(t, collisions)
}

func TestExtractHashtags(t *testing.T) {
	got := ExtractHashtags("Launch #GoLang and #golang &#39;quoted #GoLang #Ünïcode")
	require.Equal(t, []string{"#GoLang", "#golang", "#Ünïcode"}, got)
}

func TestExtractHashtags_Capped(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "#t%d ", i)
	}
	require.Len(t, ExtractHashtags(b.String()), 50)
}

func TestExtractMentions(t *testing.T) {
	got := ExtractMentions("Thanks @jane.doe and @acme-corp, also @jane.doe and @john.doe.")
	require.Equal(t, []string{"@jane.doe", "@acme-corp", "@john.doe."}, got)
	require.Equal(t, []string{"@team-"}, ExtractMentions("cc @team-"))
	require.Empty(t, ExtractMentions("no mentions here"))
}

func TestClassifyPostType(t *testing.T) {
	cases := []struct {
		name                     string
		raw, content, url, title string
		want                     post.Type
	}{
		{"sponsored label with video text", "Sponsored", "Watch our new video", "", "", post.TypeVideo},
		{"raw image label", "Image", "", "", "", post.TypeImage},
		{"pdf in text", "", "Download the pdf", "", "", post.TypeDocument},
		{"pulse url", "", "", "https://www.linkedin.com/pulse/why-go", "", post.TypeArticle},
		{"raw link", "Link", "", "", "", post.TypeArticle},
		{"raw status", "Status", "", "", "", post.TypeText},
		{"url fallback", "Organic", "see", "https://example.com/x", "", post.TypeArticle},
		{"plain text", "", "We are hiring", "", "We are hiring", post.TypeText},
		{"video beats image", "", "video and photo", "", "", post.TypeVideo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyPostType(tc.raw, tc.content, tc.url, tc.title)
			require.Equal(t, tc.want, got)
			require.True(t, got.Valid())
		})
	}
}
