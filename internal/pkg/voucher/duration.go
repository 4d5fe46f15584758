package voucher

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oranet/oranet-backend/app/models"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * 60
	secondsPerDay    = 24 * secondsPerHour
	secondsPerWeek   = 7 * secondsPerDay
	// Months are credited as 30 days of connection time even though the
	// expiry date advances by real calendar months.
	secondsPerMonth = 30 * secondsPerDay
)

var (
	daysPattern = regexp.MustCompile(`(\d+)\s*days`)
	dayPattern  = regexp.MustCompile(`(\d+)\s*day`)
)

// ResolveDuration maps a package's duration descriptor to the voucher's
// duration in seconds and its absolute expiry timestamp. Expiry uses
// calendar-aware addition (months and weeks move calendar fields), while the
// seconds counter uses the documented fixed conversions.
func ResolveDuration(pkg *models.Package, now time.Time) (int64, time.Time) {
	if pkg.HasStructuredDuration() {
		return resolveStructured(pkg.DurationUnit, pkg.DurationValue, now)
	}

	switch pkg.Type {
	case models.PackageTypeData, models.PackageTypeSpecial:
		return resolveFromText(pkg.Duration, now)
	default:
		return resolveFromCode(pkg.ShortDuration, now)
	}
}

func resolveStructured(unit string, value int, now time.Time) (int64, time.Time) {
	switch unit {
	case models.DurationUnitMonths:
		return int64(value) * secondsPerMonth, now.AddDate(0, value, 0)
	case models.DurationUnitWeeks:
		return int64(value) * secondsPerWeek, now.AddDate(0, 0, value*7)
	case models.DurationUnitDays:
		return int64(value) * secondsPerDay, now.AddDate(0, 0, value)
	case models.DurationUnitHours:
		return int64(value) * secondsPerHour, now.Add(time.Duration(value) * time.Hour)
	case models.DurationUnitMinutes:
		return int64(value) * secondsPerMinute, now.Add(time.Duration(value) * time.Minute)
	default:
		return secondsPerDay, now.Add(24 * time.Hour)
	}
}

// resolveFromCode parses legacy compact codes ("24h", "7d", "1m"). The match
// order is load-bearing: "m" means months only when the code does not contain
// "min", otherwise "30min" would parse as 30 months. Catalog rows authored
// with structured units never reach this path.
func resolveFromCode(code string, now time.Time) (int64, time.Time) {
	switch {
	case strings.Contains(code, "m") && !strings.Contains(code, "min"):
		months := leadingInt(strings.Replace(code, "m", "", 1))
		return int64(months) * secondsPerMonth, now.AddDate(0, months, 0)
	case strings.Contains(code, "w"):
		weeks := leadingInt(strings.Replace(code, "w", "", 1))
		return int64(weeks) * secondsPerWeek, now.AddDate(0, 0, weeks*7)
	case strings.Contains(code, "d"):
		days := leadingInt(strings.Replace(code, "d", "", 1))
		return int64(days) * secondsPerDay, now.AddDate(0, 0, days)
	case strings.Contains(code, "h"):
		hours := leadingInt(strings.Replace(code, "h", "", 1))
		return int64(hours) * secondsPerHour, now.Add(time.Duration(hours) * time.Hour)
	case strings.Contains(code, "min"):
		minutes := leadingInt(strings.Replace(code, "min", "", 1))
		return int64(minutes) * secondsPerMinute, now.Add(time.Duration(minutes) * time.Minute)
	default:
		return secondsPerDay, now.Add(24 * time.Hour)
	}
}

// resolveFromText scans free-text durations of data/special packages for a
// day count ("valid for 7 days"). Plural defaults to 7 days, singular to 1,
// anything unrecognized to 7.
func resolveFromText(duration string, now time.Time) (int64, time.Time) {
	days := 7
	if strings.Contains(duration, "days") {
		if m := daysPattern.FindStringSubmatch(duration); m != nil {
			days, _ = strconv.Atoi(m[1])
		}
	} else if strings.Contains(duration, "day") {
		days = 1
		if m := dayPattern.FindStringSubmatch(duration); m != nil {
			days, _ = strconv.Atoi(m[1])
		}
	}
	return int64(days) * secondsPerDay, now.AddDate(0, 0, days)
}

// leadingInt parses the leading digits of s, zero if none.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[:i])
	return n
}
