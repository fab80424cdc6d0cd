package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCronFiveField(t *testing.T) {
	spec := ParseCron("30 14 * * *")
	require.True(t, spec.minute.matches(30))
	require.False(t, spec.minute.matches(31))
	require.True(t, spec.hour.matches(14))
	require.Nil(t, spec.dom)
	require.Nil(t, spec.month)
	require.Nil(t, spec.dow)
}

func TestParseCronSixFieldDropsLeadingSecond(t *testing.T) {
	spec := ParseCron("15 30 14 * * *")
	require.True(t, spec.minute.matches(30))
	require.True(t, spec.hour.matches(14))
}

func TestParseCronRangeAndStep(t *testing.T) {
	spec := ParseCron("*/15 9-17 * * 1-5")
	require.True(t, spec.minute.matches(0))
	require.True(t, spec.minute.matches(15))
	require.False(t, spec.minute.matches(10))
	require.True(t, spec.hour.matches(9))
	require.True(t, spec.hour.matches(17))
	require.False(t, spec.hour.matches(8))
	require.True(t, spec.dow.matches(1))
	require.False(t, spec.dow.matches(0))
}

func TestParseCronMalformedFallsBackToDefault(t *testing.T) {
	spec := ParseCron("not a cron expression at all")
	fallback := ParseCron(DefaultCronExpr)
	require.Equal(t, fallback, spec)
}

func TestParseCronOutOfRangeValueFallsBack(t *testing.T) {
	spec := ParseCron("99 9 * * *")
	fallback := ParseCron(DefaultCronExpr)
	require.Equal(t, fallback, spec)
}

func TestCronNextAdvancesToNextMatchingMinute(t *testing.T) {
	spec := ParseCron("30 9 * * *")
	after := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	next := spec.Next(after)
	require.Equal(t, time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC), next)
}

func TestCronNextSkipsToFollowingDayWhenTimePassed(t *testing.T) {
	spec := ParseCron("0 9 * * *")
	after := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	next := spec.Next(after)
	require.Equal(t, time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestCronNextIsStrictlyAfter(t *testing.T) {
	spec := ParseCron("0 9 * * *")
	after := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	next := spec.Next(after)
	require.True(t, next.After(after))
	require.Equal(t, time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC), next)
}
