package feed

import (
	"fmt"
	"strings"
	"time"
)

const (
	socialDetailPrefix = "urn:li:fs_socialDetail:"
	feedUpdateURL      = "https://www.linkedin.com/feed/update/urn:li:%s:%s"
)

// shareSubtypes are the share URN kinds a post link can be rebuilt from, in match order.
var shareSubtypes = []string{"ugcPost", "groupPost"}

// CandidatePosting is a post extracted from the feed, not yet matched or stored.
// Link is empty when it could not be resolved. CreatedAt is never populated:
// the feed records carry no usable timestamp.
type CandidatePosting struct {
	Author    string     `json:"author"`
	Text      string     `json:"text"`
	Link      string     `json:"link,omitempty"`
	Likes     *int       `json:"likes,omitempty"`
	Comments  *int       `json:"comments,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type Options struct {
	// KeepUnknownAuthor emits posts whose author fell back to UnknownAuthor.
	KeepUnknownAuthor bool
}

// Normalize flattens feed items into candidate postings, keeping the order of
// the update records. It never fails: records missing data are skipped.
func Normalize(items []Item, opts Options) []CandidatePosting {
	counts := make(map[string]SocialCounts)
	permalinks := make(map[string]string)
	for _, item := range items {
		if item.Kind == KindSocialCounts && item.URN != "" && item.Counts != nil {
			counts[item.URN] = *item.Counts
		}
		// first record wins, even when its permalink is empty
		if item.EntityURN != "" {
			if _, ok := permalinks[item.EntityURN]; !ok {
				permalinks[item.EntityURN] = item.Permalink
			}
		}
	}

	var postings []CandidatePosting
	for _, item := range items {
		if item.Kind != KindUpdate || item.Update == nil {
			continue
		}
		u := item.Update

		if u.Author == "" || u.Text == "" {
			continue
		}
		if u.AuthorDefaulted && !opts.KeepUnknownAuthor {
			continue
		}

		p := CandidatePosting{
			Author: u.Author,
			Text:   u.Text,
		}

		if u.SocialDetail != "" {
			p.Link = permalinks[u.SocialDetail]
		}
		if p.Link == "" {
			p.Link = ShareLink(u.ShareURN)
		}

		if u.SocialDetail != "" {
			if c, ok := counts[strings.TrimPrefix(u.SocialDetail, socialDetailPrefix)]; ok {
				likes, comments := c.Likes, c.Comments
				p.Likes = &likes
				p.Comments = &comments
			}
		}

		postings = append(postings, p)
	}
	return postings
}

// ShareLink builds a post URL from a share URN, or returns "" when the URN
// is not one of the known subtypes.
func ShareLink(shareURN string) string {
	if shareURN == "" {
		return ""
	}
	for _, subtype := range shareSubtypes {
		marker := subtype + ":"
		if i := strings.LastIndex(shareURN, marker); i >= 0 {
			return fmt.Sprintf(feedUpdateURL, subtype, shareURN[i+len(marker):])
		}
	}
	return ""
}
