package models

import "time"

// MediaKind tells the views how to present a post's media reference.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindFile  MediaKind = "file"
)

// GalleryPost is a community gallery entry. Posts are hard-deleted.
type GalleryPost struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	MediaURL   string    `gorm:"not null" json:"media_url"`
	PreviewURL string    `json:"preview_url,omitempty"`
	MediaType  MediaKind `gorm:"type:varchar(16);not null;default:image" json:"media_type"`
	AuthorName string    `gorm:"not null" json:"author_name"`
	// OwnerToken is the client identity that created the post. Legacy posts
	// have none and can never be claimed from the client side.
	OwnerToken *string   `gorm:"column:client_id;index" json:"-"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName keeps the record store's table name.
func (GalleryPost) TableName() string {
	return "gallery_posts"
}

// HasOwner reports whether the post carries a usable owner token.
func (p *GalleryPost) HasOwner() bool {
	return p != nil && p.OwnerToken != nil && *p.OwnerToken != ""
}

// GalleryPostView is a post as seen by one requester.
type GalleryPostView struct {
	*GalleryPost
	ContentHTML string `json:"content_html,omitempty"`
	IsOwner     bool   `json:"is_owner"`
	CanEdit     bool   `json:"can_edit"`
}
