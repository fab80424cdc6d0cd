package entity

import (
	"strconv"
	"strings"
)

// GetAPIIDs parses the ordered, comma-separated API id list, matching
// ScheduledTask.get_api_ids.
func (t ScheduledTask) GetAPIIDs() []int64 {
	return parseCSVInt64(t.APIIDsCSV)
}

// GetEmailToList parses the comma-separated recipient list, matching
// ScheduledTask.get_email_to_list.
func (t ScheduledTask) GetEmailToList() []string {
	var out []string
	for _, p := range strings.Split(t.EmailToCSV, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseCSVInt64(csv string) []int64 {
	var out []int64
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// ReportNameFor expands {task} and {time} placeholders in ReportNameTpl,
// matching run_task's report_name computation.
func (t ScheduledTask) ReportNameFor(now string) string {
	name := strings.ReplaceAll(t.ReportNameTpl, "{task}", t.Name)
	name = strings.ReplaceAll(name, "{time}", now)
	return name
}
