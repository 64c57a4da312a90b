package ga4

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

var daysAgoRe = regexp.MustCompile(`^(\d+)daysAgo$`)

// resolveDate turns a date token into a concrete calendar date. Tokens are
// either an absolute YYYY-MM-DD date (passed through after validation) or
// one of the relative forms the GA4 API itself accepts: "today",
// "yesterday", "NdaysAgo". Resolution happens at query time, relative to
// now, so the same spec run on different days covers different windows.
func resolveDate(token string, now time.Time) (time.Time, error) {
	switch token {
	case "today":
		return truncateDay(now), nil
	case "yesterday":
		return truncateDay(now).AddDate(0, 0, -1), nil
	}
	if m := daysAgoRe.FindStringSubmatch(token); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing %q: %w", token, err)
		}
		return truncateDay(now).AddDate(0, 0, -n), nil
	}
	d, err := time.Parse(dateLayout, token)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor a relative token (today, yesterday, NdaysAgo)", token)
	}
	return d, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// resolveDateRange resolves both endpoints of a range and checks ordering.
// The returned strings are concrete YYYY-MM-DD dates ready for the wire.
func resolveDateRange(start, end string, now time.Time) (string, string, error) {
	s, err := resolveDate(start, now)
	if err != nil {
		return "", "", &InvalidDateRangeError{Start: start, End: end, Reason: err.Error()}
	}
	e, err := resolveDate(end, now)
	if err != nil {
		return "", "", &InvalidDateRangeError{Start: start, End: end, Reason: err.Error()}
	}
	if s.After(e) {
		return "", "", &InvalidDateRangeError{
			Start:  start,
			End:    end,
			Reason: fmt.Sprintf("start %s is after end %s", s.Format(dateLayout), e.Format(dateLayout)),
		}
	}
	return s.Format(dateLayout), e.Format(dateLayout), nil
}
