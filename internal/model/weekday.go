package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekday is a locale independent day of week, Monday = 0 through Sunday = 6.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayLabels = [...]string{
	"MONDAY",
	"TUESDAY",
	"WEDNESDAY",
	"THURSDAY",
	"FRIDAY",
	"SATURDAY",
	"SUNDAY",
}

// WeekdayOf returns the weekday of the calendar date t falls on.
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday starts at Sunday = 0
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// ParseWeekday accepts the domain labels case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	label := strings.ToUpper(strings.TrimSpace(s))
	for i, l := range weekdayLabels {
		if l == label {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayLabels[d]
}

func (d Weekday) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return json.Marshal(d.String())
}

func (d *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("weekday must be a string: %w", err)
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Weekday) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return d.String(), nil
}

func (d *Weekday) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseWeekday(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Weekday", src)
	}
	return nil
}
