package model

import "time"

type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
)

// Citation is one sourced claim attached to a content record.
type Citation struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Claim  string `json:"claim"`
}

// SocialPost is the payload prepared for one syndication target.
type SocialPost struct {
	Network string    `json:"network"`
	Text    string    `json:"text"`
	URL     string    `json:"url"`
	SentAt  time.Time `json:"sent_at,omitempty"`
}

// Content is the unit of publishable output. The body is produced by the
// enrichment chain and is never hand-edited outside the draft-edit path.
// A record is addressable by slug only once published.
type Content struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	Title          string        `gorm:"size:200;not null" json:"title"`
	Slug           string        `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Excerpt        string        `gorm:"size:300" json:"excerpt"`
	Body           string        `gorm:"type:text" json:"body"`
	CoverImage     string        `gorm:"size:500" json:"cover_image"`
	Tags           []string      `gorm:"serializer:json" json:"tags"`
	Category       string        `gorm:"size:100;index" json:"category"`
	TrustScore     float64       `json:"trust_score"`
	Citations      []Citation    `gorm:"serializer:json" json:"citations"`
	SocialPosts    []SocialPost  `gorm:"serializer:json" json:"social_posts,omitempty"`
	SEOTitle       string        `gorm:"size:100" json:"seo_title"`
	SEODescription string        `gorm:"size:200" json:"seo_description"`
	Views          int64         `gorm:"default:0" json:"views"`
	Status         ContentStatus `gorm:"size:20;index;default:draft" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PublishedAt    *time.Time    `json:"published_at,omitempty"`
}
