package population

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMakeActions(t *testing.T) {
	Convey("Given a user with an empty newsfeed", t, func() {
		u := NewUser("u0", 10, 2.0, 15)

		Convey("When MakeActions is called", func() {
			msgs, passive := u.MakeActions()

			Convey("It posts an original message instead of resharing", func() {
				So(len(msgs), ShouldEqual, 1)
				So(msgs[0].IsReshare(), ShouldBeFalse)
				So(len(passive), ShouldEqual, 0)
				So(u.PostCount, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a user whose feed contains only reshares of the same root", t, func() {
		u := NewUser("u2", 10, 2.0, 15)
		u.Mu = 0 // force reshare path
		root := &Message{MID: "m0", UID: "u0", ResharedID: "m0", ResharedOriginalID: "m0"}
		u.Newsfeed = []*Message{root}

		Convey("When MakeActions is called", func() {
			msgs, passive := u.MakeActions()

			Convey("The reshare chain's root is preserved", func() {
				So(len(msgs), ShouldEqual, 1)
				So(msgs[0].IsReshare(), ShouldBeTrue)
				So(msgs[0].ResharedOriginalID, ShouldEqual, "m0")
				So(msgs[0].ResharedID, ShouldEqual, "m0")
				So(len(passive), ShouldEqual, 1)
			})
		})
	})
}

func TestCosineSimilarity(t *testing.T) {
	Convey("Given two identical vectors", t, func() {
		a := Vector{1, 0, 1}
		b := Vector{1, 0, 1}

		Convey("Their cosine similarity is 1", func() {
			So(CosineSimilarity(a, b), ShouldAlmostEqual, 1.0, 1e-9)
		})
	})

	Convey("Given a zero vector", t, func() {
		a := Vector{0, 0, 0}
		b := Vector{1, 1, 1}

		Convey("Similarity is 0, not NaN", func() {
			So(CosineSimilarity(a, b), ShouldEqual, 0.0)
		})
	})
}

func TestBuildPopulation(t *testing.T) {
	Convey("Given a small network config", t, func() {
		cfg := NetworkConfig{NetSize: 50, ProbabilityFollow: 0.5, AvgNFriend: 3, TopicCount: 10, MeanActionPerDay: 2, CutOff: 15}

		Convey("When BuildPopulation runs", func() {
			users := BuildPopulation(cfg)

			Convey("Friends and followers are mutually consistent", func() {
				So(len(users), ShouldEqual, 50)
				for uid, u := range users {
					for followerUID := range u.Followers {
						_, ok := users[followerUID].Friends[uid]
						So(ok, ShouldBeTrue)
					}
				}
			})
		})
	})
}
