package scan

import "time"

// Decision is the outcome of the admission rule chain.
type Decision struct {
	Outcome Outcome
	Reason  DenialReason
}

// Decide runs the admission rules in priority order. A ban denies before
// age or expiry are even considered, so a banned underage patron reports
// BANNED. Pure; all inputs resolved by the caller.
func Decide(doc *Document, banned bool, minAge int, now time.Time) Decision {
	if banned {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonBanned}
	}
	if Age(doc.DateOfBirth, now) < minAge {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonUnderage}
	}
	if doc.ExpirationDate.Before(now) {
		return Decision{Outcome: OutcomeDenied, Reason: ReasonExpired}
	}
	return Decision{Outcome: OutcomeAccepted}
}

// Age computes full years between birth and now, in calendar terms: the
// birthday itself counts, the day before does not.
func Age(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
