package domain

import "errors"

// Error kinds shared by the forecast pipeline. Callers match them with errors.Is;
// components wrap them with request context using fmt.Errorf("...: %w", err).
var (
	// ErrInvalidCycle is returned when a cycle hour is outside the set a source publishes.
	ErrInvalidCycle = errors.New("invalid cycle")

	// ErrInvalidLeadTime is returned when a leadtime is outside the range a source publishes.
	ErrInvalidLeadTime = errors.New("invalid leadtime")

	// ErrUnsupportedPeriod is returned for dates earlier than the first known format epoch.
	ErrUnsupportedPeriod = errors.New("unsupported period")

	// ErrDownloadFailure covers transport errors and missing manifest entries.
	ErrDownloadFailure = errors.New("download failure")

	// ErrGridShapeMismatch is returned when decoded latitude, longitude and value planes differ in length.
	ErrGridShapeMismatch = errors.New("grid shape mismatch")

	// ErrMissingValue is returned when a metric is evaluated against absent or NaN data.
	ErrMissingValue = errors.New("missing value")

	// ErrUnknownSource is returned when no pipeline is registered for a source id.
	ErrUnknownSource = errors.New("unknown forecast source")
)
