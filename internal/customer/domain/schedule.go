package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/waterline/internal/clock"
)

// Schedule is the delivery cadence of a customer. Free-text labels are decoded
// once through ParseSchedule when they enter the system.
type Schedule string

const (
	ScheduleWeekly   Schedule = "WEEKLY"
	ScheduleBiweekly Schedule = "BIWEEKLY"
	ScheduleMonthly  Schedule = "MONTHLY"
)

// ParseSchedule maps a label such as "Weekly", "Bi-weekly" or "monthly" onto a
// Schedule. Unrecognized labels fall back to ScheduleWeekly.
func ParseSchedule(label string) Schedule {
	normalized := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(normalized, "bi-weekly"),
		strings.Contains(normalized, "biweekly"),
		strings.Contains(normalized, "bi_weekly"):
		return ScheduleBiweekly
	case strings.Contains(normalized, "monthly"):
		return ScheduleMonthly
	default:
		return ScheduleWeekly
	}
}

// CadenceDays is the number of days between two deliveries.
func (s Schedule) CadenceDays() int {
	switch s {
	case ScheduleBiweekly:
		return 14
	case ScheduleMonthly:
		return 30
	default:
		return 7
	}
}

// NextDue returns the start of the day one cadence after baseline.
func (s Schedule) NextDue(baseline time.Time) time.Time {
	return clock.StartOfDay(baseline).AddDate(0, 0, s.CadenceDays())
}

func (s Schedule) String() string {
	return string(s)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("delivery schedule must be a string: %w", err)
	}
	*s = ParseSchedule(label)
	return nil
}

func (s *Schedule) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*s = ScheduleWeekly
	case string:
		*s = ParseSchedule(v)
	case []byte:
		*s = ParseSchedule(string(v))
	default:
		return fmt.Errorf("unsupported delivery schedule type %T", value)
	}
	return nil
}

func (s Schedule) Value() (driver.Value, error) {
	if s == "" {
		return string(ScheduleWeekly), nil
	}
	return string(s), nil
}
