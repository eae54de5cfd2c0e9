package wiki

import "time"

type Bookmark struct {
	ID        string    `json:"id" db:"id"`
	PageID    string    `json:"page_id" db:"page_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Comment struct {
	ID        string    `json:"id" db:"id"`
	PageID    string    `json:"page_id" db:"page_id"`
	Creator   string    `json:"creator" db:"creator"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Attachment is a file attached to a page. The bytes live in object storage
// under ObjectKey.
type Attachment struct {
	ID          string    `json:"id" db:"id"`
	PageID      string    `json:"page_id" db:"page_id"`
	FileName    string    `json:"file_name" db:"file_name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	ObjectKey   string    `json:"-" db:"object_key"`
	Creator     *string   `json:"creator,omitempty" db:"creator"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type TagRelation struct {
	PageID string `json:"page_id" db:"page_id"`
	Tag    string `json:"tag" db:"tag"`
}

// ShareLink grants read access to one page to anyone holding the link id.
type ShareLink struct {
	ID          string     `json:"id" db:"id"`
	RelatedPage string     `json:"related_page" db:"related_page"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty" db:"expired_at"`
	Description string     `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the link has an expiry at or before now.
func (l *ShareLink) IsExpired(now time.Time) bool {
	return l.ExpiredAt != nil && !l.ExpiredAt.After(now)
}
