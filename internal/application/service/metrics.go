package service

// Metrics receives side-effect outcomes from the services
type Metrics interface {
	ObserveRetraction(outcome string)
	ObserveNotification(outcome string)
}

// Outcome labels reported to Metrics
const (
	OutcomeRetracted     = "retracted"
	OutcomeSkipped       = "skipped"
	OutcomeFailed        = "failed"
	OutcomeSuccess       = "success"
	OutcomeError         = "error"
	OutcomePersistFailed = "persist_failed"
)

type noopMetrics struct{}

func (noopMetrics) ObserveRetraction(string)   {}
func (noopMetrics) ObserveNotification(string) {}

// NoopMetrics discards every observation
func NoopMetrics() Metrics {
	return noopMetrics{}
}
