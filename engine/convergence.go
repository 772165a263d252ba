package engine

import "simsom/config"

// ConvergenceMonitor implements the three selectable termination criteria
// (spec 4.7): day-count, sliding-window quality, and EMA quality. Only
// one is active per the resolved config.Method priority order.
type ConvergenceMonitor struct {
	method config.ConvergenceMethod
	cfg    *config.SimulatorConfig

	emaBatchSize int
	maxTime      float64

	window          []float64
	prevWindowMean  float64
	haveWindowMean  bool

	emaQuality    float64
	emaCount      int
	emaQualitySum float64
	haveEMA       bool
}

// defaultEMABatchSize is the EMA re-evaluation window used when nUsers
// isn't known (e.g. in isolated tests that don't construct a population).
const defaultEMABatchSize = 50

// NewConvergenceMonitor returns a monitor using the method cfg resolves
// to. nUsers sizes the EMA criterion's re-evaluation window (spec 4.7:
// "every n_users-worth of user updates"); nUsers <= 0 falls back to
// defaultEMABatchSize.
func NewConvergenceMonitor(cfg *config.SimulatorConfig, nUsers int) *ConvergenceMonitor {
	batchSize := nUsers
	if batchSize <= 0 {
		batchSize = defaultEMABatchSize
	}
	return &ConvergenceMonitor{method: cfg.Method(), cfg: cfg, emaBatchSize: batchSize}
}

// ObserveFirehose folds a firehose chunk's message times into the
// day-count criterion.
func (m *ConvergenceMonitor) ObserveFirehose(times []float64) (converged bool) {
	if m.method != config.ConvergenceDayCount {
		return false
	}
	for _, t := range times {
		if t > m.maxTime {
			m.maxTime = t
		}
	}
	return m.maxTime >= m.cfg.TargetDays
}

// ObserveQuality folds one message's quality into whichever of the
// sliding-window or EMA criteria is active; it is a no-op under
// day-count.
func (m *ConvergenceMonitor) ObserveQuality(quality float64) (converged bool) {
	switch m.method {
	case config.ConvergenceSlidingWindow:
		return m.observeSlidingWindow(quality)
	case config.ConvergenceEMA:
		return m.observeEMA(quality)
	default:
		return false
	}
}

func (m *ConvergenceMonitor) observeSlidingWindow(quality float64) bool {
	m.window = append(m.window, quality)
	if len(m.window) < m.cfg.SlidingWindowSize {
		return false
	}
	sum := 0.0
	for _, q := range m.window {
		sum += q
	}
	mean := sum / float64(len(m.window))
	m.window = nil

	converged := false
	if m.haveWindowMean {
		delta := mean - m.prevWindowMean
		if delta < 0 {
			delta = -delta
		}
		converged = delta <= m.cfg.SlidingWindowThreshold
	}
	m.prevWindowMean = mean
	m.haveWindowMean = true
	return converged
}

const emaRho = 0.8

func (m *ConvergenceMonitor) observeEMA(quality float64) bool {
	m.emaQualitySum += quality
	m.emaCount++
	if m.emaCount < m.emaBatchSize {
		return false
	}

	batchMean := m.emaQualitySum / float64(m.emaCount)
	m.emaQualitySum, m.emaCount = 0, 0

	if !m.haveEMA {
		m.emaQuality = batchMean
		m.haveEMA = true
		return false
	}

	newQuality := emaRho*m.emaQuality + (1-emaRho)*batchMean
	delta := newQuality - m.emaQuality
	if delta < 0 {
		delta = -delta
	}
	converged := m.emaQuality != 0 && delta/m.emaQuality <= m.cfg.EmaQualityConvergence
	m.emaQuality = newQuality
	return converged
}
