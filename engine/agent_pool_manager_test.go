package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/population"
)

func TestAgentPoolManagerDispatchesEveryUser(t *testing.T) {
	Convey("Given an AgentPoolManager over 3 worker outboxes", t, func() {
		outboxes := []*Outbox{NewOutbox(100), NewOutbox(100), NewOutbox(100)}
		apm := NewAgentPoolManager(outboxes, DefaultOutstandingHighWater)

		users := make([]*population.User, 50)
		for i := range users {
			users[i] = population.NewUser(population.UID(string(rune('a'+i%26))), 2, 1.0, 10)
		}

		Convey("Dispatch distributes every user across the outboxes", func() {
			apm.Dispatch(users)
			total := 0
			for _, ob := range outboxes {
				total += len(ob.ch)
			}
			So(total, ShouldEqual, len(users))
		})
	})
}

func TestAgentPoolManagerDrainResetsBookkeeping(t *testing.T) {
	Convey("Given an AgentPoolManager that has sent several users", t, func() {
		outboxes := []*Outbox{NewOutbox(100)}
		apm := NewAgentPoolManager(outboxes, 2)
		apm.Dispatch([]*population.User{
			population.NewUser("a", 1, 1.0, 10),
			population.NewUser("b", 1, 1.0, 10),
			population.NewUser("c", 1, 1.0, 10),
		})

		Convey("DrainAll resets every outbox's pending count", func() {
			apm.DrainAll()
			for _, ob := range outboxes {
				So(ob.Pending(), ShouldEqual, 0)
			}
		})
	})
}
