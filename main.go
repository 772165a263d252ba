/*
simsom launches the SimSoM social-media simulation engine: a fixed
population of users is driven through repeated post/reshare/view cycles
by six concurrent participants (Data Manager, Recommender, Agent Pool
Manager, Workers, Policy Evaluator, Analyzer) until a configured
convergence criterion is reached, persisting every activity/passivity to
CSV along the way. An optional websocket dashboard mirrors the teacher's
realtime training view, here showing simulation telemetry instead of a
value function.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"simsom/clock"
	"simsom/config"
	"simsom/engine"
	"simsom/population"
	"simsom/server"
)

// Per-user defaults the spec's external network_config is silent on
// (topic-vector dimensionality, per-day activity rate, feed size cap).
const (
	defaultTopicCount       = 10
	defaultMeanActionPerDay = 3.0
	defaultCutOff           = 15
	defaultPollRate         = 200 * time.Millisecond
)

var (
	networkSpec    = flag.String("network_spec", "./config/network_config.json", "path to the network_config JSON file")
	simulatorSpec  = flag.String("simulator_spec", "./config/simulator_config.json", "path to the simulator_config JSON file")
	nworkers       = flag.Int("nworkers", runtime.NumCPU(), "number of agent worker goroutines")
	addr           = flag.String("addr", "", "dashboard listen address (host:port); empty disables the dashboard")
	debug          = flag.Bool("debug", false, "dump the effective configuration to stderr before running")
	activitiesOut  = flag.String("activities_out", "./activities.csv", "path to write activities.csv")
	passivitiesOut = flag.String("passivities_out", "./passivities.csv", "path to write passivities.csv")
)

func run() error {
	flag.Parse()

	netCfg, err := config.LoadNetworkConfig(*networkSpec)
	if err != nil {
		return err
	}
	simCfg, err := config.LoadSimulatorConfig(*simulatorSpec)
	if err != nil {
		return err
	}
	if *debug {
		if err := config.DumpEffective(os.Stderr, netCfg, simCfg); err != nil {
			return err
		}
	}
	if netCfg.FromFile {
		return fmt.Errorf("from_file networks are out of scope for this build: %q", netCfg.RealWorldNetwork)
	}

	users := population.BuildPopulation(population.NetworkConfig{
		NetSize:           netCfg.NetSize,
		ProbabilityFollow: netCfg.ProbabilityFollow,
		AvgNFriend:        netCfg.AvgNFriend,
		TopicCount:        defaultTopicCount,
		MeanActionPerDay:  defaultMeanActionPerDay,
		CutOff:            defaultCutOff,
	})

	activitiesFile, err := os.Create(*activitiesOut)
	if err != nil {
		return fmt.Errorf("opening activities output: %w", err)
	}
	defer activitiesFile.Close()

	passivitiesFile, err := os.Create(*passivitiesOut)
	if err != nil {
		return fmt.Errorf("opening passivities output: %w", err)
	}
	defer passivitiesFile.Close()

	dataManager := engine.NewDataManager(users, clock.NewScheduledClock(1.0), engine.PoissonDaySampler{}, simCfg.DataManagerBatchsize)
	recommender := engine.NewRecommender(engine.DefaultFeedConfig())
	policyEval := &engine.PolicyEvaluator{}

	analyzer, err := engine.NewAnalyzer(activitiesFile, passivitiesFile, simCfg, len(users))
	if err != nil {
		return fmt.Errorf("constructing analyzer: %w", err)
	}

	var telemetry *engine.Telemetry
	if *addr != "" {
		telemetry = engine.NewTelemetry()
		analyzer.Telemetry = telemetry
	}

	pipeline := engine.NewPipeline(dataManager, recommender, policyEval, analyzer, *nworkers, simCfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *addr != "" {
		dashboard := server.NewServer(ctx, *addr, telemetry, defaultPollRate)
		go func() {
			if err := dashboard.Serve(); err != nil {
				log.Println("dashboard:", err)
			}
		}()
	}

	return pipeline.Run(ctx)
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
