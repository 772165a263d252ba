package engine

import (
	"bytes"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"simsom/config"
	"simsom/population"
)

func TestAnalyzerWritesHeadersAndRows(t *testing.T) {
	Convey("Given a fresh Analyzer", t, func() {
		var activitiesBuf, passivitiesBuf bytes.Buffer
		cfg := &config.SimulatorConfig{
			DayCountCriterion:       true,
			TargetDays:              10,
			SaveActiveInteractions:  true,
			SavePassiveInteractions: true,
		}
		a, err := NewAnalyzer(&activitiesBuf, &passivitiesBuf, cfg, 0)
		So(err, ShouldBeNil)

		Convey("Headers are written immediately", func() {
			So(activitiesBuf.String(), ShouldContainSubstring, "message_id")
			So(passivitiesBuf.String(), ShouldContainSubstring, "action_id")
		})

		Convey("OnRecommenderBatch appends one row per activity/passivity", func() {
			msg := &population.Message{MID: "m0", UID: "u0", Time: 0.1}
			view := &population.PassiveAction{VID: "v0", UID: "u0", ParentMID: "m0", ParentUID: "u0"}

			converged, err := a.OnRecommenderBatch(
				[]*population.Message{msg},
				[]*population.PassiveAction{view},
				population.FirehoseChunk{msg},
				1,
			)
			So(err, ShouldBeNil)
			So(converged, ShouldBeFalse)

			lines := strings.Split(strings.TrimSpace(activitiesBuf.String()), "\n")
			So(len(lines), ShouldEqual, 2) // header + 1 row
		})
	})
}

func TestAnalyzerDetectsConvergence(t *testing.T) {
	Convey("Given an Analyzer targeting 0.5 days", t, func() {
		var activitiesBuf, passivitiesBuf bytes.Buffer
		cfg := &config.SimulatorConfig{DayCountCriterion: true, TargetDays: 0.5}
		a, _ := NewAnalyzer(&activitiesBuf, &passivitiesBuf, cfg, 0)

		Convey("A firehose chunk reaching the target converges", func() {
			msg := &population.Message{MID: "m0", UID: "u0", Time: 0.5}
			converged, err := a.OnRecommenderBatch(nil, nil, population.FirehoseChunk{msg}, 1)
			So(err, ShouldBeNil)
			So(converged, ShouldBeTrue)
		})
	})
}
