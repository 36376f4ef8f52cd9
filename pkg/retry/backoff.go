package retry

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff defaults.
const (
	// DefaultInitial is the first retry delay.
	DefaultInitial = 50 * time.Millisecond

	// DefaultMax caps the retry delay.
	DefaultMax = 1 * time.Second

	// DefaultMultiplier is the factor by which the delay grows.
	DefaultMultiplier = 2.0
)

// BackoffConfig configures a Backoff.
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     float64       `yaml:"jitter"`
}

// Backoff calculates exponential backoff delays with jitter.
type Backoff struct {
	mu sync.Mutex

	// Current delay before jitter.
	current time.Duration

	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	rng *rand.Rand
}

// NewBackoff creates a backoff calculator. Zero fields take defaults; a
// Multiplier below 1 is treated as 1 (constant delay).
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitial
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = DefaultMultiplier
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Constant returns a Backoff that always yields d.
func Constant(d time.Duration) *Backoff {
	return NewBackoff(Fixed(d))
}

// Fixed returns a config for a constant delay of d.
func Fixed(d time.Duration) BackoffConfig {
	return BackoffConfig{Initial: d, Max: d, Multiplier: 1}
}

// Next returns the next delay (with jitter) and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.addJitter(b.current)

	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next

	return delay
}

func (b *Backoff) addJitter(d time.Duration) time.Duration {
	if b.jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*b.jitter*b.rng.Float64())
}
