package model

import "time"

// SessionBinding remembers which result set a client session looks at.
type SessionBinding struct {
	SessionID string    `gorm:"primaryKey;column:session_id;type:VARCHAR(64)"`
	ResultsID string    `gorm:"not null;type:VARCHAR(64)"`
	CreatedAt time.Time `gorm:"not null"`
}

func (SessionBinding) TableName() string {
	return "session_bindings"
}
