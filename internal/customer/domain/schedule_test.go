package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	cases := map[string]Schedule{
		"Weekly":      ScheduleWeekly,
		"Bi-weekly":   ScheduleBiweekly,
		"biweekly":    ScheduleBiweekly,
		"BI_WEEKLY":   ScheduleBiweekly,
		"Monthly":     ScheduleMonthly,
		" MONTHLY ":   ScheduleMonthly,
		"every other": ScheduleWeekly,
		"":            ScheduleWeekly,
	}
	for label, want := range cases {
		assert.Equal(t, want, ParseSchedule(label), label)
	}
}

func TestNextDue(t *testing.T) {
	baseline := time.Date(2025, 1, 28, 17, 45, 0, 0, time.UTC)
	midnight := time.Date(2025, 1, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, midnight.AddDate(0, 0, 7), ScheduleWeekly.NextDue(baseline))
	assert.Equal(t, midnight.AddDate(0, 0, 14), ScheduleBiweekly.NextDue(baseline))
	assert.Equal(t, midnight.AddDate(0, 0, 30), ScheduleMonthly.NextDue(baseline))
	assert.Equal(t, midnight.AddDate(0, 0, 7), Schedule("QUARTERLY").NextDue(baseline))
}

func TestScheduleDecodesAtBoundary(t *testing.T) {
	var body struct {
		Schedule Schedule `json:"deliverySchedule"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"deliverySchedule":"Bi-weekly"}`), &body))
	assert.Equal(t, ScheduleBiweekly, body.Schedule)

	var scanned Schedule
	require.NoError(t, scanned.Scan([]byte("monthly")))
	assert.Equal(t, ScheduleMonthly, scanned)
	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, ScheduleWeekly, scanned)
	require.Error(t, scanned.Scan(42))

	v, err := Schedule("").Value()
	require.NoError(t, err)
	assert.Equal(t, "WEEKLY", v)
}
