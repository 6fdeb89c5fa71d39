package models

import "time"

// Parameter is a key/value row used for counters and prefixes.
type Parameter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key         string `gorm:"column:param_key;size:100;not null;uniqueIndex" json:"key"`
	Value       string `gorm:"type:text" json:"value"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}
