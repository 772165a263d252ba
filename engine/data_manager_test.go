package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/clock"
	"simsom/population"
)

func smallPopulation(n int) map[population.UID]*population.User {
	users := population.BuildPopulation(population.NetworkConfig{
		NetSize:           n,
		ProbabilityFollow: 0.5,
		AvgNFriend:        3,
		TopicCount:        5,
		MeanActionPerDay:  2,
		CutOff:            10,
	})
	return users
}

func TestDataManagerDispatchFlushesOutgoing(t *testing.T) {
	Convey("Given a DataManager over a small population", t, func() {
		users := smallPopulation(10)
		dm := NewDataManager(users, clock.NewScheduledClock(1.0), PoissonDaySampler{}, 5)

		var uid population.UID
		for id := range users {
			uid = id
			break
		}

		dm.OnWorkerBatch([]WorkerResult{{
			User:        users[uid],
			NewMessages: []*population.Message{{MID: "m0", UID: uid}},
		}})

		Convey("After a data request dispatches that user, its outgoing queues are empty", func() {
			found := false
			for i := 0; i < 20 && !found; i++ {
				packs, _, _ := dm.OnDataRequest()
				for _, p := range packs {
					if p.User.UID == uid {
						found = true
						So(len(p.Active), ShouldEqual, 1)
					}
				}
			}
			So(found, ShouldBeTrue)
			So(len(dm.outgoing[uid].active), ShouldEqual, 0)
		})
	})
}

func TestDataManagerBatchShrinksToRemainingPool(t *testing.T) {
	Convey("Given a DataManager with a batch size larger than the population", t, func() {
		users := smallPopulation(3)
		dm := NewDataManager(users, clock.NewScheduledClock(1.0), PoissonDaySampler{}, 100)

		Convey("OnDataRequest returns at most a population's worth of packs without blocking", func() {
			packs, _, _ := dm.OnDataRequest()
			So(len(packs), ShouldBeLessThanOrEqualTo, len(users))
		})
	})
}

func TestDataManagerFirehoseTimestampsAreTimestamped(t *testing.T) {
	Convey("Given a DataManager ingesting a worker batch", t, func() {
		users := smallPopulation(5)
		dm := NewDataManager(users, clock.NewScheduledClock(1.0), PoissonDaySampler{}, 5)

		var uid population.UID
		for id := range users {
			uid = id
			break
		}
		dm.OnWorkerBatch([]WorkerResult{{
			User:        users[uid],
			NewMessages: []*population.Message{{MID: "m0", UID: uid}, {MID: "m1", UID: uid}},
		}})

		Convey("Every message in the firehose buffer has a non-zero timestamp", func() {
			So(len(dm.firehose), ShouldEqual, 1)
			for _, m := range dm.firehose[0] {
				So(m.Time, ShouldBeGreaterThan, 0.0)
			}
		})
	})
}
