package model

import "time"

// Line represents a production line.
type Line struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:128;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	// Associations
	Machines []Machine `gorm:"foreignKey:LineID"`
}

// Machine is a physical asset on a line. Master data is owned elsewhere;
// the planner only reads it (and may override the code from a plan edit).
type Machine struct {
	ID                   int64  `gorm:"primaryKey"`
	LineID               int64  `gorm:"index;not null"`
	Code                 string `gorm:"size:64"`
	Name                 string `gorm:"size:256;not null"`
	MaintenanceFrequency string `gorm:"size:64"`
	PMPlanYear           string `gorm:"column:pm_plan_year;size:128"`
	CreatedAt            time.Time
	UpdatedAt            time.Time

	// Associations
	Line Line `gorm:"constraint:OnDelete:CASCADE"`
}
