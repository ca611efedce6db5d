package model

import "time"

// MaintenanceYearlyPlan is the per-machine, per-year month grid. Each month
// slot holds a shift code or nil.
type MaintenanceYearlyPlan struct {
	ID        int64   `gorm:"primaryKey"`
	MachineID int64   `gorm:"uniqueIndex:idx_yearly_plan_machine_year;not null"`
	PlanYear  int     `gorm:"uniqueIndex:idx_yearly_plan_machine_year;not null"`
	Frequency *string `gorm:"size:64"`
	Jan       *string `gorm:"size:1"`
	Feb       *string `gorm:"size:1"`
	Mar       *string `gorm:"size:1"`
	Apr       *string `gorm:"size:1"`
	May       *string `gorm:"size:1"`
	Jun       *string `gorm:"size:1"`
	Jul       *string `gorm:"size:1"`
	Aug       *string `gorm:"size:1"`
	Sep       *string `gorm:"size:1"`
	Oct       *string `gorm:"size:1"`
	Nov       *string `gorm:"size:1"`
	Dec       *string `gorm:"size:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MonthColumns lists the month slot columns in calendar order.
var MonthColumns = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// Months returns the twelve slots in calendar order.
func (p *MaintenanceYearlyPlan) Months() [12]*string {
	return [12]*string{p.Jan, p.Feb, p.Mar, p.Apr, p.May, p.Jun, p.Jul, p.Aug, p.Sep, p.Oct, p.Nov, p.Dec}
}

// SetMonths overwrites all twelve slots.
func (p *MaintenanceYearlyPlan) SetMonths(m [12]*string) {
	p.Jan, p.Feb, p.Mar, p.Apr, p.May, p.Jun = m[0], m[1], m[2], m[3], m[4], m[5]
	p.Jul, p.Aug, p.Sep, p.Oct, p.Nov, p.Dec = m[6], m[7], m[8], m[9], m[10], m[11]
}

// IsEmpty reports whether the row carries no frequency and no month values.
func (p *MaintenanceYearlyPlan) IsEmpty() bool {
	if p.Frequency != nil && *p.Frequency != "" {
		return false
	}
	for _, v := range p.Months() {
		if v != nil && *v != "" {
			return false
		}
	}
	return true
}
