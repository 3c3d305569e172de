package utils

// Latencies in microseconds, drained by the metric package. Sends never
// block: a sample is dropped when nobody is listening.
type Metric struct {
	DatabaseRead  chan float64
	DatabaseWrite chan float64
	Projection    chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:  make(chan float64, 16),
		DatabaseWrite: make(chan float64, 16),
		Projection:    make(chan float64, 16),
	}
}

func (m *Metric) Observe(ch chan float64, microsec float64) {
	select {
	case ch <- microsec:
	default:
	}
}
