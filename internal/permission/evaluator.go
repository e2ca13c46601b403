package permission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tellus-gis/tellus/internal/identity"
	"github.com/tellus-gis/tellus/internal/shared"
)

// Strategy decides whether a user may perform an action on an entity. A
// strategy must be a pure function of its arguments and the persisted
// permission state; it holds no hidden mutable state.
type Strategy interface {
	Evaluate(ctx context.Context, user *identity.User, entity Entity, action Action) (bool, error)
}

// UserResolver resolves the opaque subject claim of an authenticated
// principal to a persisted user.
type UserResolver interface {
	FindBySubject(ctx context.Context, subject string) (*identity.User, error)
}

// DecisionObserver is notified of every evaluator decision.
type DecisionObserver interface {
	ObserveDecision(class string, allowed bool)
}

// Evaluator is the authorization entry point. It dispatches to a strategy
// registered for the target's class, falling back to the default strategy, and
// always answers with a boolean: whenever resolution cannot proceed
// deterministically it denies, it never fails open.
type Evaluator struct {
	users      UserResolver
	strategies map[string]Strategy
	fallback   Strategy
	observer   DecisionObserver
	logger     *slog.Logger
}

// NewEvaluator constructs an Evaluator. The observer may be nil.
func NewEvaluator(users UserResolver, fallback Strategy, observer DecisionObserver, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		users:      users,
		strategies: make(map[string]Strategy),
		fallback:   fallback,
		observer:   observer,
		logger:     logger,
	}
}

// Register installs a strategy for an entity class, overriding the default
// composition order for that class. Call during process start-up, before the
// evaluator is shared across goroutines.
func (e *Evaluator) Register(className string, strategy Strategy) {
	e.strategies[className] = strategy
}

// Evaluate answers whether the authenticated principal may perform the named
// action on the entity.
func (e *Evaluator) Evaluate(ctx context.Context, principal *shared.Principal, entity Entity, action string) bool {
	if principal == nil || principal.Subject == "" {
		e.logger.Debug("denying, no authenticated principal")
		return e.decide("", false)
	}
	if entity == nil {
		e.logger.Debug("denying, no target entity")
		return e.decide("", false)
	}
	act, err := ParseAction(action)
	if err != nil {
		e.logger.Debug("denying, unknown action", slog.String("action", action))
		return e.decide(entity.EntityClass(), false)
	}

	user, err := e.users.FindBySubject(ctx, principal.Subject)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			e.logger.Error("user resolution failed, denying", slog.Any("error", err))
		} else {
			e.logger.Debug("denying, no user for subject", slog.String("subject", principal.Subject))
		}
		return e.decide(entity.EntityClass(), false)
	}

	strategy, ok := e.strategies[entity.EntityClass()]
	if !ok {
		strategy = e.fallback
	}

	allowed, err := strategy.Evaluate(ctx, user, entity, act)
	if err != nil {
		e.logger.Error("strategy evaluation failed, denying",
			slog.String("class", entity.EntityClass()),
			slog.Int64("entity", entity.EntityID()),
			slog.Any("error", err))
		return e.decide(entity.EntityClass(), false)
	}
	return e.decide(entity.EntityClass(), allowed)
}

func (e *Evaluator) decide(class string, allowed bool) bool {
	if e.observer != nil {
		e.observer.ObserveDecision(class, allowed)
	}
	return allowed
}
