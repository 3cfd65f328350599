package escalation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/errs"
	"storyloop/internal/risk"
)

type recordingSink struct {
	outcomes    []Outcome
	assessments []risk.Assessment
	err         error
}

func (s *recordingSink) RecordEscalation(ctx context.Context, outcome Outcome, assessment risk.Assessment) error {
	s.outcomes = append(s.outcomes, outcome)
	s.assessments = append(s.assessments, assessment)
	return s.err
}

func newTestController(t *testing.T, sink Sink) *Controller {
	t.Helper()
	c, err := NewController(DefaultThreshold, sink, nil)
	require.NoError(t, err)
	return c
}

func TestHighScoreEscalates(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t, sink)

	outcome, used, err := c.Decide(context.Background(), risk.Assessment{Score: 0.9}, nil)
	require.NoError(t, err)

	assert.True(t, outcome.Escalated())
	assert.Equal(t, KindAlertSupervisor, outcome.Kind)
	assert.Equal(t, "Supervisor default_supervisor has been alerted to the situation.", outcome.Message)
	assert.Equal(t, 0.7, used.Threshold)
	require.Len(t, sink.outcomes, 1)
	assert.Equal(t, 0.9, sink.assessments[0].Score)
}

func TestLowScoreContinues(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t, sink)

	outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: 0.69}, Context{KeyEscalationType: string(KindLogEvent)})
	require.NoError(t, err)

	assert.Equal(t, KindContinue, outcome.Kind)
	assert.False(t, outcome.Escalated())
	assert.Empty(t, sink.outcomes)
}

func TestOutcomeEscalated(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    bool
	}{
		{"zero value", Outcome{}, false},
		{"continue", Outcome{Kind: KindContinue}, false},
		{"supervisor", Outcome{Kind: KindAlertSupervisor}, true},
		{"custom kind", Outcome{Kind: "pager"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outcome.Escalated())
		})
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	c := newTestController(t, nil)
	outcome, _, err := c.DecideAt(context.Background(), risk.Assessment{Score: 0.5}, 0.5, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Escalated())
}

func TestHandlerSelection(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		kind    Kind
		message string
	}{
		{"named supervisor", Context{KeyEscalationType: "supervisor_alert", KeySupervisorID: "sup-7"}, KindAlertSupervisor, "Supervisor sup-7 has been alerted to the situation."},
		{"specialized ai", Context{KeyEscalationType: "specialized_ai", KeyAIModel: "counsel-v2"}, KindTransferSpecializedAI, "Control has been transferred to counsel-v2."},
		{"specialized ai default", Context{KeyEscalationType: "specialized_ai"}, KindTransferSpecializedAI, "Control has been transferred to default_specialized_ai."},
		{"log event", Context{KeyEscalationType: "log_event", KeyEventID: "ev-42"}, KindLogEvent, "Event ev-42 has been logged for further analysis."},
		{"log event default", Context{KeyEscalationType: "log_event"}, KindLogEvent, "Event unknown_event has been logged for further analysis."},
	}

	c := newTestController(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: 1}, tt.ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, outcome.Kind)
			assert.Equal(t, tt.message, outcome.Message)
		})
	}
}

func TestUnknownKindIsConfigurationError(t *testing.T) {
	sink := &recordingSink{}
	c := newTestController(t, sink)

	for _, score := range []float64{0.1, 0.95} {
		outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: score}, Context{KeyEscalationType: "carrier_pigeon"})
		assert.ErrorIs(t, err, errs.ErrConfiguration)
		assert.Equal(t, Outcome{}, outcome)
	}
	assert.Empty(t, sink.outcomes)
}

func TestValidate(t *testing.T) {
	c := newTestController(t, nil)

	assert.NoError(t, c.Validate(nil), "defaults to the supervisor handler")
	assert.NoError(t, c.Validate(Context{KeyEscalationType: string(KindTransferSpecializedAI)}))
	assert.ErrorIs(t, c.Validate(Context{KeyEscalationType: "carrier_pigeon"}), errs.ErrConfiguration)
}

func TestRegisterAndUnregister(t *testing.T) {
	c := newTestController(t, nil)

	assert.ErrorIs(t, c.Register("pager", nil), errs.ErrConfiguration)
	assert.ErrorIs(t, c.Register(KindContinue, AlertSupervisor), errs.ErrConfiguration)

	require.NoError(t, c.Register("pager", func(ctx Context) Outcome {
		return Outcome{Message: "paged " + ctx["team"]}
	}))
	outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: 0.8}, Context{KeyEscalationType: "pager", "team": "ops"})
	require.NoError(t, err)
	assert.Equal(t, Kind("pager"), outcome.Kind)
	assert.Equal(t, "paged ops", outcome.Message)

	c.Unregister(KindLogEvent)
	_, _, err = c.Decide(context.Background(), risk.Assessment{Score: 0.8}, Context{KeyEscalationType: "log_event"})
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestSetThreshold(t *testing.T) {
	c := newTestController(t, nil)
	assert.ErrorIs(t, c.SetThreshold(1.2), errs.ErrConfiguration)
	assert.ErrorIs(t, c.SetThreshold(-0.1), errs.ErrConfiguration)
	assert.Equal(t, DefaultThreshold, c.Threshold())

	require.NoError(t, c.SetThreshold(0.95))
	outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: 0.9}, nil)
	require.NoError(t, err)
	assert.False(t, outcome.Escalated())

	_, err = NewController(2, nil, nil)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestSinkFailureDoesNotBlockOutcome(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	c := newTestController(t, sink)

	outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: 0.9}, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Escalated())
}

func TestScoresAtOrAboveThresholdNeverContinue(t *testing.T) {
	c := newTestController(t, nil)
	for score := 0.7; score <= 1.0; score += 0.01 {
		outcome, _, err := c.Decide(context.Background(), risk.Assessment{Score: score}, nil)
		require.NoError(t, err)
		assert.NotEqual(t, KindContinue, outcome.Kind, "score %.2f", score)
	}
}
