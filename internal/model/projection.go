package model

// ExpiringLed is one row of the expiring-soon projection (to_expire).
type ExpiringLed struct {
	DockID string `gorm:"primaryKey;size:64" json:"dock_id"`
	LedNum int    `gorm:"not null" json:"led_num"`
	Rank   int    `gorm:"not null" json:"rank"`
}

func (ExpiringLed) TableName() string {
	return "to_expire"
}

// ReweighLed is one row of the stale-review projection (forReweigh).
type ReweighLed struct {
	DockID string `gorm:"primaryKey;size:64" json:"dock_id"`
	LedNum int    `gorm:"not null" json:"led_num"`
	Rank   int    `gorm:"not null" json:"rank"`
}

func (ReweighLed) TableName() string {
	return "for_reweigh"
}
