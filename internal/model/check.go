package model

// CheckRecord marks a dock that is currently open in a detail view.
// The physical controller reads it as "this dock is being reweighed".
type CheckRecord struct {
	DockID string  `gorm:"primaryKey;size:64" json:"-"`
	Status string  `gorm:"size:8;not null" json:"Status"`
	Weight float64 `gorm:"not null" json:"weight"`
}

// TableName keeps the controller-facing table name stable.
func (CheckRecord) TableName() string {
	return "for_check"
}
