package escalation

import "fmt"

// Kind names an escalation outcome.
type Kind string

const (
	KindContinue              Kind = "continue"
	KindAlertSupervisor       Kind = "supervisor_alert"
	KindTransferSpecializedAI Kind = "specialized_ai"
	KindLogEvent              Kind = "log_event"
)

// Context keys read by the controller and the built-in handlers.
const (
	KeyEscalationType = "escalation_type"
	KeySupervisorID   = "supervisor_id"
	KeyAIModel        = "ai_model"
	KeyEventID        = "event_id"
)

// Context carries opaque identifiers for escalation targets.
type Context map[string]string

func (c Context) get(key, fallback string) string {
	if v, ok := c[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Outcome is the controller's decision. Only KindContinue lets the pipeline
// go on to structuring. The zero Outcome is not an escalation.
type Outcome struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

func (o Outcome) Escalated() bool {
	return o.Kind != "" && o.Kind != KindContinue
}

// Handler maps a context to a confirmation. Handlers deliver nothing
// themselves.
type Handler func(ctx Context) Outcome

func AlertSupervisor(ctx Context) Outcome {
	return Outcome{
		Kind:    KindAlertSupervisor,
		Message: fmt.Sprintf("Supervisor %s has been alerted to the situation.", ctx.get(KeySupervisorID, "default_supervisor")),
	}
}

func TransferSpecializedAI(ctx Context) Outcome {
	return Outcome{
		Kind:    KindTransferSpecializedAI,
		Message: fmt.Sprintf("Control has been transferred to %s.", ctx.get(KeyAIModel, "default_specialized_ai")),
	}
}

func LogEvent(ctx Context) Outcome {
	return Outcome{
		Kind:    KindLogEvent,
		Message: fmt.Sprintf("Event %s has been logged for further analysis.", ctx.get(KeyEventID, "unknown_event")),
	}
}
