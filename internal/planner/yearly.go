package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/parse"
	"maintenance-planner-backend/internal/store"
)

const (
	minPlanYear = 2000
	maxPlanYear = 2100
)

// YearlyPlanRow is one machine's row of the yearly grid. Months holds a
// shift code per month, January first; nil or blank means no maintenance.
type YearlyPlanRow struct {
	MachineID int64
	Frequency *string
	Months    [12]*string
}

// YearlyPlans returns the grid rows of a plan year.
func (s *Service) YearlyPlans(ctx context.Context, year int) ([]model.MaintenanceYearlyPlan, error) {
	if err := validYear(year); err != nil {
		return nil, err
	}
	return s.store.ListYearlyPlans(ctx, year)
}

// SaveYearlyPlans validates a batch of grid rows and writes it in one
// transaction. A row with no frequency and no months deletes the machine's
// row for that year. Any invalid row rejects the whole batch.
func (s *Service) SaveYearlyPlans(ctx context.Context, year int, rows []YearlyPlanRow) error {
	if err := validYear(year); err != nil {
		return err
	}

	ids := make([]int64, 0, len(rows))
	seen := make(map[int64]bool, len(rows))
	for i, row := range rows {
		if row.MachineID <= 0 {
			return store.Invalid(fmt.Sprintf("plans[%d].machineId", i), "is required")
		}
		if seen[row.MachineID] {
			return store.Invalid(fmt.Sprintf("plans[%d].machineId", i), "machine %d appears more than once", row.MachineID)
		}
		seen[row.MachineID] = true
		ids = append(ids, row.MachineID)
	}

	machines, err := s.store.GetMachines(ctx, ids)
	if err != nil {
		return err
	}

	today := model.DateOnly(s.now())
	plans := make([]model.MaintenanceYearlyPlan, 0, len(rows))
	var derived []model.MaintenanceSchedule
	for i, row := range rows {
		machine, ok := machines[row.MachineID]
		if !ok {
			return store.Invalid(fmt.Sprintf("plans[%d].machineId", i), "unknown machine %d", row.MachineID)
		}
		plan, err := s.yearlyPlan(i, year, machine, row)
		if err != nil {
			return err
		}
		plans = append(plans, plan)
		derived = append(derived, derivedSchedules(year, today, machine, &plan)...)
	}

	if err := s.store.SaveYearlyPlans(ctx, year, plans, derived); err != nil {
		return err
	}
	created := 0
	for _, d := range derived {
		if d.ID != 0 {
			created++
		}
	}
	s.log.Info("Yearly plans saved",
		zap.Int("year", year),
		zap.Int("rows", len(plans)),
		zap.Int("schedules_created", created),
	)
	return nil
}

// derivedSchedules turns every filled month of plan into a scheduled
// occurrence on the first day of that month. Months whose first day is not
// after today are skipped; they could no longer get their reminder.
func derivedSchedules(year int, today time.Time, machine model.Machine, plan *model.MaintenanceYearlyPlan) []model.MaintenanceSchedule {
	frequency := parse.CanonicalFrequency(machine.MaintenanceFrequency)
	if plan.Frequency != nil {
		frequency = *plan.Frequency
	}

	var out []model.MaintenanceSchedule
	for m, shift := range plan.Months() {
		if shift == nil {
			continue
		}
		day := time.Date(year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
		if !day.After(today) {
			continue
		}
		out = append(out, model.MaintenanceSchedule{
			MachineID:            machine.ID,
			ScheduledDate:        day,
			Shift:                *shift,
			Status:               model.StatusScheduled,
			MaintenanceFrequency: frequency,
			Notes:                fmt.Sprintf("Planned from the %d yearly plan", year),
		})
	}
	return out
}

func (s *Service) yearlyPlan(i, year int, machine model.Machine, row YearlyPlanRow) (model.MaintenanceYearlyPlan, error) {
	plan := model.MaintenanceYearlyPlan{MachineID: machine.ID, PlanYear: year}

	if row.Frequency != nil {
		if f := strings.TrimSpace(*row.Frequency); f != "" {
			canonical := parse.CanonicalFrequency(f)
			plan.Frequency = &canonical
		}
	}

	allowed := s.plans.AllowedMonths(machine.PMPlanYear)
	var months [12]*string
	for m, v := range row.Months {
		if v == nil || strings.TrimSpace(*v) == "" {
			continue
		}
		month := time.Month(m + 1)
		shift, ok := model.NormalizeShift(*v)
		if !ok {
			return plan, store.Invalid(fmt.Sprintf("plans[%d].%s", i, model.MonthColumns[m]), "shift must be one of A, B, C, G")
		}
		if !allowed.Allows(month) {
			return plan, store.Invalid(fmt.Sprintf("plans[%d].%s", i, model.MonthColumns[m]),
				"%s is not an allowed month for machine %d (plan %q)", month, machine.ID, machine.PMPlanYear)
		}
		months[m] = &shift
	}
	if err := checkFrequencyFits(i, plan.Frequency, machine, months); err != nil {
		return plan, err
	}
	plan.SetMonths(months)
	return plan, nil
}

// checkFrequencyFits rejects a row that fills more months than its frequency
// allows in a year. The row's frequency wins over the machine's; an
// unrecognised frequency is not checked.
func checkFrequencyFits(i int, rowFrequency *string, machine model.Machine, months [12]*string) error {
	text := machine.MaintenanceFrequency
	if rowFrequency != nil {
		text = *rowFrequency
	}
	f, ok := parse.NormalizeFrequency(text)
	if !ok {
		return nil
	}

	filled := 0
	for _, m := range months {
		if m != nil {
			filled++
		}
	}
	if limit := 12 / f.IntervalMonths(); filled > limit {
		return store.Invalid(fmt.Sprintf("plans[%d]", i), "%s maintenance allows at most %d months a year, got %d", f, limit, filled)
	}
	return nil
}

func validYear(year int) error {
	if year < minPlanYear || year > maxPlanYear {
		return store.Invalid("year", "must be between %d and %d", minPlanYear, maxPlanYear)
	}
	return nil
}
