package actor

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// Decision is a supervisor's response to a child's failure (§4.5).
type Decision int

const (
	Resume Decision = iota
	Restart
	Stop
	Escalate
)

// noOverride is returned by an actor's StrategySelector hook, if absent,
// to mean "defer to the supervisor's configured default decision".
const noOverride Decision = -1

func (d Decision) String() string {
	switch d {
	case Resume:
		return "Resume"
	case Restart:
		return "Restart"
	case Stop:
		return "Stop"
	case Escalate:
		return "Escalate"
	default:
		return "Unknown"
	}
}

// StrategyScope selects how widely a decision is applied once made
// (§4.5): to just the failing child, or to it and all its siblings.
type StrategyScope int

const (
	OneForOne StrategyScope = iota
	AllForOne
)

// SupervisorStrategy is the configuration a cell applies when one of its
// children fails (§4.5, §6 "default_supervisor_strategy").
//
// Intensity/Period bound how many restarts a child (or, under AllForOne,
// the sibling group) may absorb before the supervisor gives up and
// escalates instead - the OTP "restart intensity" pattern named in the
// pack (other_examples ergonode supervisor.go) but left unstandardized by
// the distilled spec's decision table (SPEC_FULL.md §11).
type SupervisorStrategy struct {
	Scope     StrategyScope
	Default   Decision
	Intensity int
	Period    time.Duration
}

// DefaultSupervisorStrategy is OneForOne/Restart with a generous restart
// budget, matching §6's documented default.
func DefaultSupervisorStrategy() SupervisorStrategy {
	return SupervisorStrategy{
		Scope:     OneForOne,
		Default:   Restart,
		Intensity: 5,
		Period:    10 * time.Second,
	}
}

// StrategySelector lets an actor override its supervisor's default
// decision on a per-error basis (§3 "supervisor_strategy(err) →
// Decision").
type StrategySelector interface {
	SupervisorStrategy(err error) Decision
}

// restartBreaker lazily builds (and caches) the gobreaker circuit breaker
// that accounts restart-intensity for one named child. Each restart
// attempt is recorded as a breaker "failure" purely for the
// ConsecutiveFailures bookkeeping; ReadyToTrip fires once Intensity
// restarts have landed inside Period, after which further attempts are
// rejected with gobreaker.ErrOpenState until Timeout has elapsed and the
// window resets.
func (c *internalCell) restartBreaker(childKey string) *gobreaker.CircuitBreaker[any] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restartBreakers == nil {
		c.restartBreakers = make(map[string]*gobreaker.CircuitBreaker[any])
	}
	if b, ok := c.restartBreakers[childKey]; ok {
		return b
	}
	strategy := c.strategy
	b := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "restart-intensity:" + childKey,
		MaxRequests: 1,
		Interval:    strategy.Period,
		Timeout:     strategy.Period,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= strategy.Intensity
		},
	})
	c.restartBreakers[childKey] = b
	return b
}

// restartAllowed reports whether another restart of the named child is
// within its supervisor's restart-intensity budget.
func (c *internalCell) restartAllowed(childKey string) bool {
	if c.strategy.Intensity <= 0 {
		return true // unlimited
	}
	b := c.restartBreaker(childKey)
	_, err := b.Execute(func() (any, error) { return nil, errRestartAttempt })
	return !errors.Is(err, gobreaker.ErrOpenState)
}

// decide computes the Decision for a failing child, consulting the
// child's own StrategySelector (if any) before falling back to the
// parent's configured default, then applying the restart-intensity
// breaker.
func (c *internalCell) decide(childName string, childCell *internalCell, err error) Decision {
	decision := c.strategy.Default
	if childCell != nil {
		childCell.mu.Lock()
		actorInst := childCell.actor
		childCell.mu.Unlock()
		if actorInst != nil {
			if d := actorInst.strategyFor(err); d != noOverride {
				decision = d
			}
		}
	}
	if decision == Restart && !c.restartAllowed(childName) {
		decision = Escalate
	}
	return decision
}
