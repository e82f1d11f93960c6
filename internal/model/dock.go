package model

import "time"

// Dock is a monitored fire-extinguisher mount: a weight sensor with an LED channel.
//
// Weight, LedNum, LedState and ExpiresAt are pointers because the physical
// controller writes rows directly and may leave any of them unset.
type Dock struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id"`
	Name            string     `gorm:"size:128;not null" json:"name"`
	Location        string     `gorm:"size:256;not null" json:"location"`
	Weight          *float64   `json:"weight"`
	LedNum          *int       `json:"led_num"`
	LedState        *bool      `json:"led_state"`
	ExpiresAt       *time.Time `gorm:"index" json:"expires_at"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
	LastReweighedAt *time.Time `json:"last_reweighed_at"`
}
