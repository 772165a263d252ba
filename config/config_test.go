package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadNetworkConfig(t *testing.T) {
	Convey("Given a network_config JSON file", t, func() {
		path := writeTemp(t, "network_config.json", `{
			"from_file": false,
			"net_size": 500,
			"probability_follow": 0.1,
			"avg_n_friend": 3
		}`)

		Convey("LoadNetworkConfig parses it", func() {
			cfg, err := LoadNetworkConfig(path)
			So(err, ShouldBeNil)
			So(cfg.NetSize, ShouldEqual, 500)
			So(cfg.ProbabilityFollow, ShouldEqual, 0.1)
			So(cfg.AvgNFriend, ShouldEqual, 3)
			So(cfg.FromFile, ShouldBeFalse)
		})
	})
}

func TestLoadSimulatorConfig(t *testing.T) {
	Convey("Given a simulator_config enabling day_count_criterion", t, func() {
		path := writeTemp(t, "simulator_config.json", `{
			"data_manager_batchsize": 50,
			"day_count_criterion": true,
			"target_days": 5,
			"verbose": true,
			"print_interval": 100
		}`)

		Convey("LoadSimulatorConfig parses it and resolves the method", func() {
			cfg, err := LoadSimulatorConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Method(), ShouldEqual, ConvergenceDayCount)
			So(cfg.TargetDays, ShouldEqual, 5)
		})
	})

	Convey("Given a simulator_config with no convergence method enabled", t, func() {
		path := writeTemp(t, "simulator_config.json", `{"data_manager_batchsize": 50}`)

		Convey("LoadSimulatorConfig fails fast", func() {
			_, err := LoadSimulatorConfig(path)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a simulator_config enabling both day-count and sliding-window", t, func() {
		path := writeTemp(t, "simulator_config.json", `{
			"data_manager_batchsize": 50,
			"day_count_criterion": true,
			"sliding_window_method": true
		}`)

		Convey("Method resolves to day-count by priority", func() {
			cfg, err := LoadSimulatorConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Method(), ShouldEqual, ConvergenceDayCount)
		})
	})
}
