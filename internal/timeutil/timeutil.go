package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ScheduledTimeLayout is the only accepted textual form for session times:
// zero-padded date, literal T, zero-padded 24h clock, no seconds, no offset.
const ScheduledTimeLayout = "2006-01-02T15:04"

var (
	ErrBadFormat   = errors.New("time does not match YYYY-MM-DDTHH:MM")
	ErrBadTimezone = errors.New("unknown IANA timezone")
)

// scheduledTimePattern enforces the padding the time package would otherwise
// forgive.
var scheduledTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}$`)

// ParseScheduledTime parses text into a zone-naive wall time. The returned
// value carries UTC only as a placeholder location; callers must interpret it
// with LocalToUTC before storing or comparing it.
func ParseScheduledTime(text string) (time.Time, error) {
	if !scheduledTimePattern.MatchString(text) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadFormat, text)
	}
	t, err := time.ParseInLocation(ScheduledTimeLayout, text, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadFormat, text)
	}
	return t, nil
}

// ValidateTimezone reports whether name is a recognized IANA zone. It never
// returns an error; unknown names are simply false.
func ValidateTimezone(name string) bool {
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// LocalToUTC interprets the wall-clock fields of naive in the given zone and
// returns the equivalent UTC instant.
func LocalToUTC(naive time.Time, zone string) (time.Time, error) {
	loc, err := loadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	local := time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, loc,
	)
	return local.UTC(), nil
}

// UTCToLocal converts a UTC instant into the given zone for display.
func UTCToLocal(utc time.Time, zone string) (time.Time, error) {
	loc, err := loadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	return utc.In(loc), nil
}

func loadZone(zone string) (*time.Location, error) {
	if !ValidateTimezone(zone) {
		return nil, fmt.Errorf("%w: %q", ErrBadTimezone, zone)
	}
	return time.LoadLocation(zone)
}

// Clock abstracts the real-time read behind IsPast and the session sweeper so
// tests can pin the current instant.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }

// IsPast reports whether instant is at or before the clock's current time.
func IsPast(clock Clock, instant time.Time) bool {
	return !instant.After(clock.Now())
}

// CommonZones is the autocomplete source for timezone inputs.
func CommonZones() []string {
	return []string{
		"America/New_York",
		"America/Chicago",
		"America/Denver",
		"America/Los_Angeles",
		"America/Sao_Paulo",
		"Europe/London",
		"Europe/Paris",
		"Europe/Berlin",
		"Europe/Madrid",
		"Europe/Stockholm",
		"Asia/Tokyo",
		"Asia/Seoul",
		"Asia/Shanghai",
		"Australia/Sydney",
		"UTC",
	}
}
