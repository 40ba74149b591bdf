package models

import (
	"fmt"
	"strings"
	"time"
)

// DiscussionKind is the type of a discussion thread on the remote host.
type DiscussionKind string

const (
	DiscussionIssue DiscussionKind = "issue"
	DiscussionPR    DiscussionKind = "pr"
	DiscussionForum DiscussionKind = "discussion"
)

// Comment is a flattened reply inside a Discussion. IDs carry a kind prefix
// (comment_, review_comment_, issue_comment_, discussion_comment_).
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Discussion is an issue, pull request or discussion thread normalised into
// one shape. ID is prefixed by kind so ids never collide across kinds.
type Discussion struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	URL       string         `json:"url"`
	Author    string         `json:"author"`
	CreatedAt time.Time      `json:"created_at"`
	Kind      DiscussionKind `json:"kind"`
	Number    int            `json:"number"`
	Comments  []Comment      `json:"comments"`
}

// Path is the pseudo path used for the discussion inside its vector
// collection, e.g. "issue/42".
func (d Discussion) Path() string {
	return fmt.Sprintf("%s/%d", d.Kind, d.Number)
}

// Content renders the thread, comments included, as the indexed document.
func (d Discussion) Content() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n%s\n\nURL: %s\nAuthor: %s\nCreated: %s",
		d.Title, d.Body, d.URL, d.Author, d.CreatedAt.UTC().Format(time.RFC3339))
	if len(d.Comments) > 0 {
		sb.WriteString("\n\n## Comments")
		for _, c := range d.Comments {
			fmt.Fprintf(&sb, "\n\n**%s** (%s):\n%s", c.Author, c.CreatedAt.UTC().Format(time.RFC3339), c.Body)
		}
	}
	return sb.String()
}

// DiscussionRecord is the metadata row persisted for each discussion.
type DiscussionRecord struct {
	ID           string         `bson:"_id"           json:"id"`
	RepositoryID string         `bson:"repository_id" json:"repository_id"`
	ExternalID   string         `bson:"external_id"   json:"external_id"`
	Title        string         `bson:"title"         json:"title"`
	Kind         DiscussionKind `bson:"kind"          json:"kind"`
	Number       int            `bson:"number"        json:"number"`
	URL          string         `bson:"url"           json:"url"`
	Author       string         `bson:"author"        json:"author"`
	CreatedAt    time.Time      `bson:"created_at"    json:"created_at"`
	CollectionID string         `bson:"collection_id" json:"collection_id"`
}
