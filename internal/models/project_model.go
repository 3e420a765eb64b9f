package models

import "time"

// Project is the content source a scheduled post points at. The portfolio
// builder owns this table; the publisher only reads it.
type Project struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	LiveURL     string    `db:"live_url" json:"live_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
