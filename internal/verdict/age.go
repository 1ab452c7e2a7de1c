package verdict

import "time"

// ExpiryVerdict classifies a review / expiry date. Pages past their expiry
// are red; those expiring within warnDays are orange.
func ExpiryVerdict(expiry, now time.Time, warnDays int) Status {
	days := DaysBetween(now, expiry)
	switch {
	case days < 0:
		return Status{Reason: "Page review date has passed", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	case days <= warnDays:
		return Status{Reason: "Page review due soon", ColorCode: ColorOrange, Verdict: VerdictReview}
	default:
		return Status{Reason: "Page is up to date", ColorCode: ColorGreen, Verdict: VerdictOK}
	}
}

// AgeVerdict classifies how long something (an open dependency PR) has been
// waiting. Ages of reviewDays or more are orange; staleDays or more red.
func AgeVerdict(created, now time.Time, reviewDays, staleDays int) Status {
	age := DaysBetween(created, now)
	switch {
	case age >= staleDays:
		return Status{Reason: "Open for too long", ColorCode: ColorRed, Verdict: VerdictUpgrade}
	case age >= reviewDays:
		return Status{Reason: "Awaiting review", ColorCode: ColorOrange, Verdict: VerdictReview}
	default:
		return Status{Reason: "Recently opened", ColorCode: ColorGreen, Verdict: VerdictOK}
	}
}

// DaysBetween returns the number of whole calendar days from a to b, using
// the calendar dates of both in a's location. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	loc := a.Location()
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bl := b.In(loc)
	db := time.Date(bl.Year(), bl.Month(), bl.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
