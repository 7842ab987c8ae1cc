package manip

import "github.com/oraclewatch/oraclewatch/internal/deviation"

// Recorder receives engine telemetry. Implementations must be safe for
// concurrent use. The telemetry package provides a Prometheus-backed
// implementation; the default is a no-op so library users carry no
// observability dependency.
type Recorder interface {
	DetectionEmitted(detType DetectionType, severity deviation.Severity)
	DetectionSuppressed(reason string)
	SetTrackedFeeds(n int)
}

type nopRecorder struct{}

func (nopRecorder) DetectionEmitted(DetectionType, deviation.Severity) {}
func (nopRecorder) DetectionSuppressed(string)                         {}
func (nopRecorder) SetTrackedFeeds(int)                                {}
