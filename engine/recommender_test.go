package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/population"
)

func TestCleanFeedDedup(t *testing.T) {
	Convey("Given a reshare chain plus an orphan message", t, func() {
		m0 := &population.Message{MID: "m0", UID: "u0", Time: 1}
		m0r1 := &population.Message{MID: "m0r1", UID: "u1", Time: 2, ResharedID: "m0", ResharedOriginalID: "m0"}
		m0r2 := &population.Message{MID: "m0r2", UID: "u2", Time: 3, ResharedID: "m0r1", ResharedOriginalID: "m0"}
		m9 := &population.Message{MID: "m9", UID: "u9", Time: 4}

		Convey("clean_feed keeps exactly one reshare-chain representative plus the orphan", func() {
			result := cleanFeed([]*population.Message{m0, m0r1, m0r2, m9})
			So(len(result), ShouldEqual, 2)

			var rootMID string
			var sawOrphan bool
			for _, m := range result {
				if m.IsReshare() {
					rootMID = m.ResharedOriginalID
				} else if m.MID == "m9" {
					sawOrphan = true
				}
			}
			So(rootMID, ShouldEqual, "m0")
			So(sawOrphan, ShouldBeTrue)
		})

		Convey("Running clean_feed twice yields the same result as once", func() {
			once := cleanFeed([]*population.Message{m0, m0r1, m0r2, m9})
			twice := cleanFeed(once)
			So(len(twice), ShouldEqual, len(once))
		})
	})
}

func TestReshareChainIntegrity(t *testing.T) {
	Convey("Given a two-level reshare chain", t, func() {
		m0 := &population.Message{MID: "m0", UID: "u0"}
		m0r1 := &population.Message{MID: "m0r1", UID: "u1", ResharedID: m0.MID, ResharedOriginalID: m0.MID}
		m0r2 := &population.Message{MID: "m0r2", UID: "u2", ResharedID: m0r1.MID, ResharedOriginalID: m0r1.ResharedOriginalID}

		Convey("The deepest reshare's root points to the original, not its immediate parent", func() {
			So(m0r2.ResharedOriginalID, ShouldEqual, m0.MID)
			So(m0r2.ResharedID, ShouldEqual, m0r1.MID)
		})
	})
}

func TestRankByTopicSimilarity(t *testing.T) {
	Convey("Given messages of varying topic similarity to a user", t, func() {
		interest := population.Vector{1, 0, 0}
		close := &population.Message{MID: "close", Topics: population.Vector{1, 0, 0}}
		far := &population.Message{MID: "far", Topics: population.Vector{0, 1, 0}}

		Convey("Ranking places the closer match first", func() {
			ranked := rankByTopicSimilarity(interest, []*population.Message{far, close})
			So(ranked[0].MID, ShouldEqual, "close")
		})

		Convey("An empty message list returns empty, not nil", func() {
			ranked := rankByTopicSimilarity(interest, nil)
			So(ranked, ShouldNotBeNil)
			So(len(ranked), ShouldEqual, 0)
		})
	})
}

func TestRecommenderBuildFeed(t *testing.T) {
	Convey("Given a Recommender with both in- and out-of-network messages", t, func() {
		rec := NewRecommender(FeedConfig{PIn: 1.0, POut: 1.0, HighWater: defaultInventoryHighWater, LowWater: defaultInventoryLowWater})
		u := population.NewUser("u0", 3, 1.0, 10)
		u.Friends["friend"] = struct{}{}

		rec.Ingest([]*population.Message{
			{MID: "fm", UID: "friend", Time: 1, Topics: u.TopicInterest},
			{MID: "om", UID: "stranger", Time: 2, Topics: u.TopicInterest},
		})

		Convey("BuildFeed returns messages truncated to CutOff", func() {
			feed := rec.BuildFeed(u, nil)
			So(len(feed), ShouldBeLessThanOrEqualTo, u.CutOff)
		})

		Convey("A suspended-author filter excludes that author's messages", func() {
			suspended := func(uid population.UID) bool { return uid == "friend" }
			feed := rec.BuildFeed(u, suspended)
			for _, m := range feed {
				So(m.UID, ShouldNotEqual, population.UID("friend"))
			}
		})
	})
}
