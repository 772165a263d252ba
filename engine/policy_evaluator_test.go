package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/population"
)

func TestPolicyEvaluatorSuspendsOnFirstStrike(t *testing.T) {
	Convey("Given a user flagged for bad message posting", t, func() {
		pe := &PolicyEvaluator{}
		u := population.NewUser("u0", 1, 1.0, 10)
		u.BadMessagePosting = true

		Convey("Evaluate suspends the user and sets a 1-day lift time", func() {
			author, purged := pe.Evaluate(u, 5.0)
			So(purged, ShouldBeTrue)
			So(author, ShouldEqual, u.UID)
			So(u.IsSuspended, ShouldBeTrue)
			So(u.SuspensionLiftTime, ShouldEqual, 6.0)
			So(u.IsTerminated, ShouldBeFalse)
			So(u.Newsfeed, ShouldBeNil)
		})
	})
}

func TestPolicyEvaluatorTerminatesOnThirdStrike(t *testing.T) {
	Convey("Given a user with two prior strikes", t, func() {
		pe := &PolicyEvaluator{}
		u := population.NewUser("u0", 1, 1.0, 10)
		u.StrikeTimestamps = []float64{1, 2}
		u.BadMessagePosting = true

		Convey("A third strike terminates the user instead of suspending", func() {
			_, purged := pe.Evaluate(u, 3.0)
			So(purged, ShouldBeTrue)
			So(u.IsTerminated, ShouldBeTrue)
			So(u.IsSuspended, ShouldBeFalse)
		})
	})
}

func TestPolicyEvaluatorLiftsExpiredSuspension(t *testing.T) {
	Convey("Given a user whose suspension has expired", t, func() {
		pe := &PolicyEvaluator{}
		u := population.NewUser("u0", 1, 1.0, 10)
		u.IsSuspended = true
		u.SuspensionLiftTime = 5.0

		Convey("Evaluate at or after the lift time clears the suspension", func() {
			_, purged := pe.Evaluate(u, 5.0)
			So(purged, ShouldBeFalse)
			So(u.IsSuspended, ShouldBeFalse)
		})
	})
}

func TestPolicyEvaluatorIgnoresTerminatedUsers(t *testing.T) {
	Convey("Given an already-terminated user", t, func() {
		pe := &PolicyEvaluator{}
		u := population.NewUser("u0", 1, 1.0, 10)
		u.IsTerminated = true
		u.BadMessagePosting = true

		Convey("Evaluate is a no-op", func() {
			_, purged := pe.Evaluate(u, 1.0)
			So(purged, ShouldBeFalse)
			So(u.BadMessagePosting, ShouldBeTrue)
		})
	})
}

func TestPruneStrikesOutsideWindow(t *testing.T) {
	Convey("Given strikes both inside and outside the strike window", t, func() {
		pe := &PolicyEvaluator{}
		u := population.NewUser("u0", 1, 1.0, 10)
		u.StrikeTimestamps = []float64{0, 100}
		u.BadMessagePosting = true

		Convey("Only the in-window strike survives pruning before the new one is appended", func() {
			pe.Evaluate(u, 101.0)
			So(len(u.StrikeTimestamps), ShouldEqual, 2)
			So(u.StrikeTimestamps[0], ShouldEqual, 100.0)
			So(u.StrikeTimestamps[1], ShouldEqual, 101.0)
		})
	})
}

func TestPurgeFromNewsfeed(t *testing.T) {
	Convey("Given a newsfeed containing a suspended author's messages", t, func() {
		u := population.NewUser("u1", 1, 1.0, 10)
		u.Newsfeed = []*population.Message{
			{MID: "a", UID: "bad"},
			{MID: "b", UID: "good"},
		}

		Convey("PurgeFromNewsfeed removes only that author's messages", func() {
			PurgeFromNewsfeed(u, "bad")
			So(len(u.Newsfeed), ShouldEqual, 1)
			So(u.Newsfeed[0].MID, ShouldEqual, "b")
		})
	})
}
