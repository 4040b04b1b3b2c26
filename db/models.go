package db

import "time"

// tokenRowID is the primary key of the only row in the tokens table.
const tokenRowID = 1

// Token is the stored credential pair. The table holds at most one row.
type Token struct {
	ID           uint   `gorm:"primaryKey"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	UpdatedAt    time.Time
}

// Setting is a persisted user preference, such as the UI language.
type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// AnimalRecord is a cached copy of an animal from the API.
type AnimalRecord struct {
	ID       string `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"index" json:"name"`
	Species  string `gorm:"index" json:"species"`
	Data     string `json:"data"` // Raw JSON as returned by the API
	SyncedAt time.Time
}

func (AnimalRecord) TableName() string { return "animals" }
