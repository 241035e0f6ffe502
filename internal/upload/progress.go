package upload

import "time"

const (
	// DefaultProcessingEstimate is the expected extraction time the progress
	// estimate moves toward.
	DefaultProcessingEstimate = 15 * time.Second
	// DefaultSlowWarning is how long processing may run before the user is warned.
	DefaultSlowWarning = 20 * time.Second

	progressCap = 90
)

// estimateProgress returns a percentage that grows linearly toward the
// estimate and stays at 90 until the call completes.
func estimateProgress(elapsed, estimate time.Duration) int {
	if elapsed <= 0 {
		return 0
	}
	if estimate <= 0 {
		return progressCap
	}
	pct := int(elapsed * 100 / estimate)
	if pct > progressCap {
		return progressCap
	}
	return pct
}
