package engine

import "simsom/population"

// StrikeWindow is the rolling time interval (day units) over which a
// user's moderation strikes accumulate before expiring (spec 4.6,
// "STRIKE_WINDOW"). The original source's surviving draft uses 9.0;
// spec.md's illustrative value is 0.1. This implementation follows the
// original, per the supplemented-features decision in SPEC_FULL.md.
const StrikeWindow = 9.0

// suspensionDaysByStrikeCount is the concrete suspension-duration table
// from the original source (policy_filter_process.py), resolving the
// spec's open question in favor of a table over the 0.0002*strikes
// formula: one day for a first strike, two for a second. A strike count
// outside the table (practically unreachable, since a third strike
// terminates first) falls back to 14 days.
var suspensionDaysByStrikeCount = map[int]float64{1: 1, 2: 2}

const suspensionFallbackDays = 14.0

// PolicyEvaluator applies moderation rules per user (spec 4.6). It never
// creates messages and never blocks the main dataflow.
type PolicyEvaluator struct{}

// Evaluate runs the moderation algorithm for one user at currentTime,
// mutating u in place. If u was just suspended or terminated it returns
// u's UID and true: that author's messages should be purged from other
// users' newsfeeds in this same processing batch (the batch-local retroactive purge
// supplementing spec.md's distillation, grounded in the original
// source's policy_filter_process.py).
func (pe *PolicyEvaluator) Evaluate(u *population.User, currentTime float64) (purgeAuthor population.UID, shouldPurge bool) {
	if u.IsTerminated {
		return "", false
	}

	u.StrikeTimestamps = pruneStrikes(u.StrikeTimestamps, currentTime)

	if u.IsSuspended && currentTime >= u.SuspensionLiftTime {
		u.IsSuspended = false
	}

	if !u.BadMessagePosting {
		return "", false
	}
	u.BadMessagePosting = false
	u.StrikeTimestamps = append(u.StrikeTimestamps, currentTime)

	if len(u.StrikeTimestamps) >= 3 {
		u.IsTerminated = true
		u.Newsfeed = nil
		return u.UID, true
	}

	u.IsSuspended = true
	u.SuspensionLiftTime = currentTime + suspensionDuration(len(u.StrikeTimestamps))
	u.Newsfeed = nil
	return u.UID, true
}

func pruneStrikes(strikes []float64, currentTime float64) []float64 {
	kept := strikes[:0]
	for _, t := range strikes {
		if currentTime-t <= StrikeWindow {
			kept = append(kept, t)
		}
	}
	return kept
}

func suspensionDuration(strikeCount int) float64 {
	if d, ok := suspensionDaysByStrikeCount[strikeCount]; ok {
		return d
	}
	return suspensionFallbackDays
}

// PurgeFromNewsfeed strips every message authored by author out of u's
// newsfeed, the batch-local retroactive purge applied to every other
// user dispatched in the same cycle as a suspension/termination.
func PurgeFromNewsfeed(u *population.User, author population.UID) {
	if len(u.Newsfeed) == 0 {
		return
	}
	kept := u.Newsfeed[:0]
	for _, m := range u.Newsfeed {
		if m.UID != author {
			kept = append(kept, m)
		}
	}
	u.Newsfeed = kept
}
