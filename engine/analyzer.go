package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"simsom/config"
	"simsom/population"
)

// activitiesHeader/passivitiesHeader are the CSV column orders spec 6
// names for the two output files.
var (
	activitiesHeader  = []string{"message_id", "user_id", "quality", "appeal", "reshared_id", "reshared_user_id", "reshared_original_id", "clock_time"}
	passivitiesHeader = []string{"action_id", "user_id", "message_id", "message_user_id"}
)

// Analyzer persists activities/passivities as append-only CSV rows and
// owns the ConvergenceMonitor (spec 4.7). It is the single writer of
// output files (spec 5, "Single-writer discipline for CSV").
type Analyzer struct {
	activities  *csv.Writer
	passivities *csv.Writer
	monitor     *ConvergenceMonitor
	cfg         *config.SimulatorConfig

	// Telemetry is optional: nil unless the dashboard server is running,
	// in which case OnRecommenderBatch keeps it current.
	Telemetry *Telemetry

	rowCount     int
	maxTime      float64
	qualitySum   float64
	qualityCount int
}

// NewAnalyzer wraps activitiesOut/passivitiesOut (already-opened files or
// any io.Writer) with CSV writers, writes their headers, and attaches a
// ConvergenceMonitor built from cfg. nUsers is the population size,
// sizing the EMA convergence criterion's re-evaluation window.
func NewAnalyzer(activitiesOut, passivitiesOut io.Writer, cfg *config.SimulatorConfig, nUsers int) (*Analyzer, error) {
	a := &Analyzer{
		activities:  csv.NewWriter(activitiesOut),
		passivities: csv.NewWriter(passivitiesOut),
		monitor:     NewConvergenceMonitor(cfg, nUsers),
		cfg:         cfg,
	}
	if err := a.activities.Write(activitiesHeader); err != nil {
		return nil, fmt.Errorf("writing activities header: %w", err)
	}
	if err := a.passivities.Write(passivitiesHeader); err != nil {
		return nil, fmt.Errorf("writing passivities header: %w", err)
	}
	a.activities.Flush()
	a.passivities.Flush()
	return a, nil
}

// OnRecommenderBatch persists every activity/passivity produced this
// cycle (cfg.SaveActiveInteractions/SavePassiveInteractions gate whether
// each stream is actually written, though the header is always written
// up front) and folds the batch's firehose chunk and message qualities
// into the convergence criteria, returning true once the configured
// method has converged.
func (a *Analyzer) OnRecommenderBatch(activities []*population.Message, passivities []*population.PassiveAction, firehose population.FirehoseChunk, day int) (converged bool, err error) {
	if a.cfg.SaveActiveInteractions {
		for _, m := range activities {
			if err := a.writeActivity(m); err != nil {
				return false, err
			}
		}
	}
	if a.cfg.SavePassiveInteractions {
		for _, v := range passivities {
			if err := a.writePassivity(v); err != nil {
				return false, err
			}
		}
	}
	a.activities.Flush()
	a.passivities.Flush()
	if err := a.activities.Error(); err != nil {
		return false, err
	}
	if err := a.passivities.Error(); err != nil {
		return false, err
	}

	times := make([]float64, len(firehose))
	for i, m := range firehose {
		times[i] = m.Time
	}
	a.updateTelemetry(activities, firehose, day)

	if a.monitor.ObserveFirehose(times) {
		a.setConverged()
		return true, nil
	}
	for _, m := range activities {
		if a.monitor.ObserveQuality(m.Quality) {
			a.setConverged()
			return true, nil
		}
	}
	return false, nil
}

// updateTelemetry folds one batch into the dashboard's running stats: the
// Data Manager's own day counter (threaded through dataManagerReply ->
// recommenderBatch), the latest firehose depth, the max message time seen
// so far, and a simple running mean of quality.
func (a *Analyzer) updateTelemetry(activities []*population.Message, firehose population.FirehoseChunk, day int) {
	if a.Telemetry == nil {
		return
	}
	a.Telemetry.SetDay(day)
	a.Telemetry.SetFirehoseDepth(len(firehose))
	for _, m := range firehose {
		if m.Time > a.maxTime {
			a.maxTime = m.Time
		}
	}
	a.Telemetry.SetSimTime(a.maxTime)
	for _, m := range activities {
		a.qualitySum += m.Quality
		a.qualityCount++
	}
	if a.qualityCount > 0 {
		a.Telemetry.SetRunningQuality(a.qualitySum / float64(a.qualityCount))
	}
}

func (a *Analyzer) setConverged() {
	if a.Telemetry != nil {
		a.Telemetry.SetConverged(true)
	}
}

func (a *Analyzer) writeActivity(m *population.Message) error {
	a.rowCount++
	return a.activities.Write([]string{
		m.MID,
		string(m.UID),
		strconv.FormatFloat(m.Quality, 'f', -1, 64),
		strconv.FormatFloat(m.Appeal, 'f', -1, 64),
		m.ResharedID,
		string(m.ResharedUserID),
		m.ResharedOriginalID,
		strconv.FormatFloat(m.Time, 'f', -1, 64),
	})
}

func (a *Analyzer) writePassivity(v *population.PassiveAction) error {
	return a.passivities.Write([]string{
		v.VID,
		string(v.UID),
		v.ParentMID,
		string(v.ParentUID),
	})
}
