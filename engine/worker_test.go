package engine

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/population"
)

func TestWorkerFlushesAtBatchSize(t *testing.T) {
	Convey("Given a Worker with a batch size of 2", t, func() {
		w := NewWorker(2)
		u1 := population.NewUser("u1", 3, 1.0, 10)
		u2 := population.NewUser("u2", 3, 1.0, 10)

		Convey("The first Process call does not flush", func() {
			So(w.Process(u1), ShouldBeNil)
		})

		Convey("The second Process call flushes both accumulated results", func() {
			w.Process(u1)
			batch := w.Process(u2)
			So(len(batch), ShouldEqual, 2)
		})
	})
}

func TestWorkerFlushDrainsPartialBatch(t *testing.T) {
	Convey("Given a Worker holding one unflushed result", t, func() {
		w := NewWorker(10)
		u1 := population.NewUser("u1", 3, 1.0, 10)
		w.Process(u1)

		Convey("Flush returns it and empties the batch", func() {
			batch := w.Flush()
			So(len(batch), ShouldEqual, 1)
			So(w.Flush(), ShouldBeEmpty)
		})
	})
}
