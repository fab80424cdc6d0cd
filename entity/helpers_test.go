package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetAPIIDsParsesOrderedCSV(t *testing.T) {
	task := ScheduledTask{APIIDsCSV: "3, 1,2"}
	require.Equal(t, []int64{3, 1, 2}, task.GetAPIIDs())
}

func TestGetAPIIDsSkipsBlankAndInvalidEntries(t *testing.T) {
	task := ScheduledTask{APIIDsCSV: "1,,abc,2"}
	require.Equal(t, []int64{1, 2}, task.GetAPIIDs())
}

func TestGetEmailToListTrimsAndDropsBlanks(t *testing.T) {
	task := ScheduledTask{EmailToCSV: "a@example.com, , b@example.com"}
	require.Equal(t, []string{"a@example.com", "b@example.com"}, task.GetEmailToList())
}

func TestReportNameForExpandsPlaceholders(t *testing.T) {
	task := ScheduledTask{Name: "nightly", ReportNameTpl: "{task}-{time}"}
	require.Equal(t, "nightly-20260801_090000", task.ReportNameFor("20260801_090000"))
}

func TestPassRateComputesRoundedPercentage(t *testing.T) {
	r := TestReport{Total: 3, Passed: 2}
	require.InDelta(t, 66.7, r.PassRate(), 0.001)
}

func TestPassRateZeroTotal(t *testing.T) {
	r := TestReport{}
	require.Equal(t, 0.0, r.PassRate())
}

func TestTruncateLeavesShortStringsUntouched(t *testing.T) {
	require.Equal(t, "short", Truncate("short"))
}

func TestTruncateClipsToMaxResponseBodyChars(t *testing.T) {
	long := make([]rune, MaxResponseBodyChars+50)
	for i := range long {
		long[i] = 'x'
	}
	out := Truncate(string(long))
	require.Len(t, []rune(out), MaxResponseBodyChars)
}
