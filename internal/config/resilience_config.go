package config

import (
	"strconv"
	"time"
)

type ResilienceConfig interface {
	GetRequestsPerSecond() float64
	GetBurst() int
	GetBreakerFailureThreshold() uint32
	GetBreakerTimeout() time.Duration
}

type Resilience struct {
	file ResilienceFile
}

var _ ResilienceConfig = Resilience{}

// GetRequestsPerSecond of 0 disables outbound rate limiting.
func (r Resilience) GetRequestsPerSecond() float64 {
	if v, err := strconv.ParseFloat(GetEnv("FLEET_RATE_LIMIT", ""), 64); err == nil && v >= 0 {
		return v
	}
	if r.file.RequestsPerSecond > 0 {
		return r.file.RequestsPerSecond
	}
	return 20
}

func (r Resilience) GetBurst() int {
	if r.file.Burst > 0 {
		return r.file.Burst
	}
	return 10
}

// GetBreakerFailureThreshold is the number of consecutive network or 5xx
// failures that opens the circuit.
func (r Resilience) GetBreakerFailureThreshold() uint32 {
	if r.file.BreakerFailures > 0 {
		return r.file.BreakerFailures
	}
	return 5
}

func (r Resilience) GetBreakerTimeout() time.Duration {
	return parseDuration(r.file.BreakerTimeout, 30*time.Second)
}
