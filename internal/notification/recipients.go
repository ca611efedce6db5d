package notification

import "maintenance-planner-backend/config"

// Recipients returns the schedule's own recipients when it lists any,
// otherwise the defaults. The result may be empty.
func Recipients(scheduleRecipients string, defaults []string) []string {
	if own := config.SplitList(scheduleRecipients); len(own) > 0 {
		return own
	}
	var out []string
	for _, d := range defaults {
		out = append(out, config.SplitList(d)...)
	}
	return out
}
