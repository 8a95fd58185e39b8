package arbiter

import (
	"time"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/log"
)

// Config holds every setting enumerated in SPEC_FULL.md §6.
type Config struct {
	Throughput               int
	MailboxCapacity          int
	BlockOnFull              bool
	DefaultSupervisorStrategy actor.SupervisorStrategy
	Logger                   log.Logger
	DeadLetterHistoryPerPath int
}

func defaultConfig() Config {
	return Config{
		Throughput:                actor.DefaultThroughput,
		MailboxCapacity:           0, // unbounded
		BlockOnFull:               false,
		DefaultSupervisorStrategy: actor.DefaultSupervisorStrategy(),
		Logger:                    log.Discard,
		DeadLetterHistoryPerPath:  0, // deadletter package default
	}
}

// Option configures an ActorSystem at construction time (functional
// options applied to Config by New).
type Option func(*Config) error

// WithThroughput sets the per-dispatcher drain batch size (default 10).
func WithThroughput(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			n = actor.DefaultThroughput
		}
		c.Throughput = n
		return nil
	}
}

// WithMailboxCapacity sets the per-cell default mailbox capacity; 0
// means unbounded.
func WithMailboxCapacity(n int) Option {
	return func(c *Config) error {
		c.MailboxCapacity = n
		return nil
	}
}

// WithBlockOnFull sets the default overflow policy for bounded mailboxes
// that have no per-Props override.
func WithBlockOnFull(b bool) Option {
	return func(c *Config) error {
		c.BlockOnFull = b
		return nil
	}
}

// WithDefaultSupervisorStrategy sets the strategy new guardians and
// actor_of children inherit unless a StrategySelector overrides it.
func WithDefaultSupervisorStrategy(s actor.SupervisorStrategy) Option {
	return func(c *Config) error {
		c.DefaultSupervisorStrategy = s
		return nil
	}
}

// WithRestartIntensity is a convenience wrapper overriding just the
// intensity/period of the default strategy.
func WithRestartIntensity(intensity int, period time.Duration) Option {
	return func(c *Config) error {
		c.DefaultSupervisorStrategy.Intensity = intensity
		c.DefaultSupervisorStrategy.Period = period
		return nil
	}
}

// WithLogger sets the logging collaborator (out of core scope per §1;
// passed through to every package that accepts one).
func WithLogger(l log.Logger) Option {
	return func(c *Config) error {
		c.Logger = log.OrDiscard(l)
		return nil
	}
}

// WithDeadLetterHistory sets how many recent dead letters the sink keeps
// per recipient path; <= 0 selects the package default.
func WithDeadLetterHistory(n int) Option {
	return func(c *Config) error {
		c.DeadLetterHistoryPerPath = n
		return nil
	}
}
