package models

import "github.com/spacesedan/commentflow/internal/sentiment"

const UNKNOWN_TIME = "Unknown"

// RawComment is one comment as produced by the comment source. ReplyCount is
// zero when the source did not report one.
type RawComment struct {
	CID        string `json:"cid"`
	Text       string `json:"text"`
	Time       string `json:"time"`
	Author     string `json:"author"`
	Channel    string `json:"channel"`
	Photo      string `json:"photo"`
	Votes      int    `json:"votes"`
	ReplyCount int    `json:"reply_count"`
	Heart      bool   `json:"heart"`
	Reply      bool   `json:"reply"`
}

// Replies prefers an explicit reply count and otherwise counts a reply as one.
func (c RawComment) Replies() int {
	if c.ReplyCount != 0 {
		return c.ReplyCount
	}
	if c.Reply {
		return 1
	}
	return 0
}

type CommentRecord struct {
	Text      string            `json:"text"`
	Sentiment *sentiment.Result `json:"sentiment,omitempty"`
	Votes     int               `json:"votes"`
	Hearted   bool              `json:"hearted"`
	Replies   int               `json:"replies"`
	Time      string            `json:"time"`
}

func NewCommentRecord(c RawComment) CommentRecord {
	t := c.Time
	if t == "" {
		t = UNKNOWN_TIME
	}
	return CommentRecord{
		Text:    c.Text,
		Votes:   c.Votes,
		Hearted: c.Heart,
		Replies: c.Replies(),
		Time:    t,
	}
}

type CommentsRequest struct {
	URL string `json:"url"`
}

type CommentsResponse struct {
	Comments []CommentRecord `json:"comments"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
