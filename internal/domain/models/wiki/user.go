package wiki

import "time"

// User identifies a viewer. A nil *User is a guest.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// UserGroup is a named set of users that USER_GROUP pages are granted to.
type UserGroup struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Template is the body and tags a new page is pre-filled with.
type Template struct {
	Path string   `json:"path"`
	Body string   `json:"body"`
	Tags []string `json:"tags"`
}
