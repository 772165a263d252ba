// Package config loads the two JSON configuration files the simulator is
// launched with: network_config (population shape) and simulator_config
// (batching, convergence, and output behavior). Each file gets its own
// viper.New() instance rather than a shared/global viper, following the
// teacher's own conclusion that viper's statefulness does not compose
// well across multiple independent config files of differing shape.
package config

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// NetworkConfig mirrors the network_config JSON file: the population's
// size and connectivity. FromFile/RealWorldNetwork describe an
// externally-supplied graph (out of scope for this module's generator;
// main's run returns an error when FromFile is set) and are carried here
// only so the config round-trips faithfully.
type NetworkConfig struct {
	FromFile          bool    `mapstructure:"from_file"`
	RealWorldNetwork  string  `mapstructure:"real_world_network"`
	NetSize           int     `mapstructure:"net_size"`
	ProbabilityFollow float64 `mapstructure:"probability_follow"`
	AvgNFriend        int     `mapstructure:"avg_n_friend"`
}

// SimulatorConfig mirrors the simulator_config JSON file: batching,
// convergence method selection, and output verbosity/persistence flags.
type SimulatorConfig struct {
	DataManagerBatchsize int `mapstructure:"data_manager_batchsize"`

	DayCountCriterion   bool `mapstructure:"day_count_criterion"`
	SlidingWindowMethod bool `mapstructure:"sliding_window_method"`
	EmaQualityMethod    bool `mapstructure:"ema_quality_method"`

	TargetDays             float64 `mapstructure:"target_days"`
	SlidingWindowSize      int     `mapstructure:"sliding_window_size"`
	SlidingWindowThreshold float64 `mapstructure:"sliding_window_threshold"`
	EmaQualityConvergence  float64 `mapstructure:"ema_quality_convergence"`

	Verbose                 bool `mapstructure:"verbose"`
	PrintInterval           int  `mapstructure:"print_interval"`
	SaveActiveInteractions  bool `mapstructure:"save_active_interactions"`
	SavePassiveInteractions bool `mapstructure:"save_passive_interactions"`
}

// ConvergenceMethod identifies which of the three termination criteria a
// SimulatorConfig selects, resolved by the fixed priority order
// day-count > sliding-window > EMA when a config enables more than one
// (spec 4.7).
type ConvergenceMethod int

const (
	ConvergenceNone ConvergenceMethod = iota
	ConvergenceDayCount
	ConvergenceSlidingWindow
	ConvergenceEMA
)

// Method resolves which convergence criterion is active, applying the
// fixed day-count > sliding-window > EMA priority when more than one
// flag is set.
func (c *SimulatorConfig) Method() ConvergenceMethod {
	switch {
	case c.DayCountCriterion:
		return ConvergenceDayCount
	case c.SlidingWindowMethod:
		return ConvergenceSlidingWindow
	case c.EmaQualityMethod:
		return ConvergenceEMA
	default:
		return ConvergenceNone
	}
}

// LoadNetworkConfig reads and unmarshals a network_config JSON file.
func LoadNetworkConfig(path string) (*NetworkConfig, error) {
	cfg := &NetworkConfig{}
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("loading network config %q: %w", path, err)
	}
	return cfg, nil
}

// LoadSimulatorConfig reads and unmarshals a simulator_config JSON file.
// Selecting more than one convergence method is not an error (Method
// resolves it by priority); selecting none is, since the engine would
// then have no termination criterion.
func LoadSimulatorConfig(path string) (*SimulatorConfig, error) {
	cfg := &SimulatorConfig{}
	if err := load(path, cfg); err != nil {
		return nil, fmt.Errorf("loading simulator config %q: %w", path, err)
	}
	if cfg.Method() == ConvergenceNone {
		return nil, fmt.Errorf("simulator config %q: no convergence method enabled", path)
	}
	if cfg.DataManagerBatchsize <= 0 {
		return nil, fmt.Errorf("simulator config %q: data_manager_batchsize must be positive", path)
	}
	return cfg, nil
}

// load reads a single JSON file into out via its own viper instance,
// never touching package-level state so sibling config files can be
// loaded independently and concurrently.
func load(path string, out interface{}) error {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("json")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return err
	}
	return vp.Unmarshal(out)
}

// DumpEffective writes a human-readable YAML rendering of the resolved
// network/simulator config to w, for -debug review before a run starts.
// Grounded in the teacher's own use of yaml for its TrainingConfig
// review; our config is flat JSON on disk but this dump is YAML
// regardless, since the format here is just for a human to read.
func DumpEffective(w io.Writer, network *NetworkConfig, simulator *SimulatorConfig) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(map[string]interface{}{"network_config": network}); err != nil {
		return fmt.Errorf("dumping network config: %w", err)
	}
	if err := enc.Encode(map[string]interface{}{"simulator_config": simulator}); err != nil {
		return fmt.Errorf("dumping simulator config: %w", err)
	}
	return nil
}
