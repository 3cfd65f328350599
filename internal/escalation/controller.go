package escalation

import (
	"context"
	"sync"

	"storyloop/internal/debug"
	"storyloop/internal/errs"
	"storyloop/internal/risk"
)

const DefaultThreshold = 0.7

// Sink receives every escalated outcome, for example an audit log.
type Sink interface {
	RecordEscalation(ctx context.Context, outcome Outcome, assessment risk.Assessment) error
}

// Controller decides between continuing and handing the interaction off.
type Controller struct {
	mu          sync.RWMutex
	threshold   float64
	handlers    map[Kind]Handler
	sink        Sink
	debugLogger *debug.Logger
}

func NewController(threshold float64, sink Sink, debugLogger *debug.Logger) (*Controller, error) {
	c := &Controller{
		handlers: map[Kind]Handler{
			KindAlertSupervisor:       AlertSupervisor,
			KindTransferSpecializedAI: TransferSpecializedAI,
			KindLogEvent:              LogEvent,
		},
		sink:        sink,
		debugLogger: debugLogger,
	}
	if err := c.SetThreshold(threshold); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) SetThreshold(v float64) error {
	if v < 0 || v > 1 {
		return errs.Configuration("escalation", "threshold %.2f outside [0,1]", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.threshold = v
	return nil
}

func (c *Controller) Threshold() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threshold
}

// Register adds or replaces the handler for kind.
func (c *Controller) Register(kind Kind, h Handler) error {
	if kind == "" || kind == KindContinue {
		return errs.Configuration("escalation", "kind %q cannot have a handler", kind)
	}
	if h == nil {
		return errs.Configuration("escalation", "handler for %q is nil", kind)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = h
	return nil
}

func (c *Controller) Unregister(kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, kind)
}

// Validate reports a ConfigurationError when escCtx requests a kind with no
// registered handler.
func (c *Controller) Validate(escCtx Context) error {
	kind := Kind(escCtx.get(KeyEscalationType, string(KindAlertSupervisor)))
	c.mu.RLock()
	_, ok := c.handlers[kind]
	c.mu.RUnlock()
	if !ok {
		return errs.Configuration("escalation", "unknown escalation kind %q", kind)
	}
	return nil
}

// Decide compares the assessment against the controller's threshold.
func (c *Controller) Decide(ctx context.Context, assessment risk.Assessment, escCtx Context) (Outcome, risk.Assessment, error) {
	return c.DecideAt(ctx, assessment, c.Threshold(), escCtx)
}

// DecideAt compares the assessment against threshold. The requested kind is
// resolved before the comparison, so an unknown kind fails even when the
// score would not have escalated.
func (c *Controller) DecideAt(ctx context.Context, assessment risk.Assessment, threshold float64, escCtx Context) (Outcome, risk.Assessment, error) {
	assessment.Threshold = threshold

	if err := c.Validate(escCtx); err != nil {
		return Outcome{}, assessment, err
	}
	kind := Kind(escCtx.get(KeyEscalationType, string(KindAlertSupervisor)))
	c.mu.RLock()
	handler, ok := c.handlers[kind]
	c.mu.RUnlock()
	if !ok {
		return Outcome{}, assessment, errs.Configuration("escalation", "handler for %q was removed", kind)
	}

	if assessment.Score < threshold {
		return Outcome{Kind: KindContinue}, assessment, nil
	}

	outcome := handler(escCtx)
	if outcome.Kind == "" || outcome.Kind == KindContinue {
		outcome.Kind = kind
	}
	outcome.Context = map[string]string(escCtx)
	c.debugLogger.Printf("escalated: score %.2f >= %.2f via %s", assessment.Score, threshold, outcome.Kind)

	if c.sink != nil {
		if err := c.sink.RecordEscalation(ctx, outcome, assessment); err != nil {
			c.debugLogger.Printf("failed to record escalation: %v", err)
		}
	}
	return outcome, assessment, nil
}
