package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/conneroisu/grievance/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceTransitions(t *testing.T) {
	tests := []struct {
		name            string
		from            Model
		event           Event
		expected        Model
		expectedEffects Effects
	}{
		{
			name:     "idle to sending",
			from:     Model{State: StateIdle},
			event:    Submitted{},
			expected: Model{State: StateSending},
		},
		{
			name:            "sending to success",
			from:            Model{State: StateSending},
			event:           Delivered{},
			expected:        Model{State: StateSuccess},
			expectedEffects: EffectClearForm | EffectCelebrate,
		},
		{
			name:     "sending to error with reported reason",
			from:     Model{State: StateSending},
			event:    Rejected{Message: "Invalid email"},
			expected: Model{State: StateError, ErrorMessage: "Invalid email"},
		},
		{
			name:     "sending to error with default reason",
			from:     Model{State: StateSending},
			event:    Rejected{},
			expected: Model{State: StateError, ErrorMessage: "Something went wrong"},
		},
		{
			name:     "sending to error on network failure",
			from:     Model{State: StateSending},
			event:    Failed{},
			expected: Model{State: StateError, ErrorMessage: "Network error"},
		},
		{
			name:     "success to sending",
			from:     Model{State: StateSuccess},
			event:    Submitted{},
			expected: Model{State: StateSending},
		},
		{
			name:     "error to sending clears message",
			from:     Model{State: StateError, ErrorMessage: "Network error"},
			event:    Submitted{},
			expected: Model{State: StateSending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, effects := Reduce(tt.from, tt.event)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expectedEffects, effects)
		})
	}
}

func TestReduceIgnoresInapplicableEvents(t *testing.T) {
	models := []Model{
		{State: StateIdle},
		{State: StateSuccess},
		{State: StateError, ErrorMessage: "Network error"},
	}
	outcomes := []Event{Delivered{}, Rejected{Message: "late"}, Failed{}}

	for _, m := range models {
		for _, ev := range outcomes {
			t.Run(fmt.Sprintf("%s/%T", m.State, ev), func(t *testing.T) {
				got, effects := Reduce(m, ev)
				assert.Equal(t, m, got)
				assert.Zero(t, effects)
			})
		}
	}

	t.Run("submit while sending", func(t *testing.T) {
		got, effects := Reduce(Model{State: StateSending}, Submitted{})
		assert.Equal(t, Model{State: StateSending}, got)
		assert.Zero(t, effects)
	})

	t.Run("nil event", func(t *testing.T) {
		got, effects := Reduce(Model{State: StateSuccess}, nil)
		assert.Equal(t, Model{State: StateSuccess}, got)
		assert.Zero(t, effects)
	})
}

func TestOutcomeEvent(t *testing.T) {
	assert.Equal(t, Delivered{}, OutcomeEvent(nil))
	assert.Equal(t, Rejected{Message: "Invalid email"}, OutcomeEvent(&errors.ServerRejection{Status: 400, Message: "Invalid email"}))
	assert.Equal(t, Rejected{}, OutcomeEvent(fmt.Errorf("wrapped: %w", &errors.ServerRejection{Status: 500})))
	assert.Equal(t, Failed{}, OutcomeEvent(errors.NewNetworkFailure(context.Canceled)))
	assert.Equal(t, Failed{}, OutcomeEvent(fmt.Errorf("anything else")))
}

func TestStateText(t *testing.T) {
	for _, s := range []State{StateIdle, StateSending, StateSuccess, StateError} {
		text, err := s.MarshalText()
		require.NoError(t, err)

		var decoded State
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, s, decoded)
	}

	_, err := State(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown", State(42).String())

	var s State
	assert.Error(t, s.UnmarshalText([]byte("done")))
}

func TestModelJSON(t *testing.T) {
	data, err := json.Marshal(Model{State: StateError, ErrorMessage: "Invalid email"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"error","errorMessage":"Invalid email"}`, string(data))

	data, err = json.Marshal(Model{State: StateSending})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"sending"}`, string(data))
}

func TestFormInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   FormInput
		invalid []string
	}{
		{
			name:  "complete",
			input: FormInput{Name: "Ada", Email: "ada@example.com", Message: "The coffee machine is broken"},
		},
		{
			name:    "empty",
			input:   FormInput{},
			invalid: []string{"name", "email", "message"},
		},
		{
			name:    "bad email",
			input:   FormInput{Name: "Ada", Email: "not-an-address", Message: "hi"},
			invalid: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if len(tt.invalid) == 0 {
				assert.NoError(t, err)
				return
			}

			var cerr *ConstraintError
			require.ErrorAs(t, err, &cerr)
			assert.Len(t, cerr.Fields, len(tt.invalid))
			for _, field := range tt.invalid {
				assert.Contains(t, cerr.Fields, field)
				assert.Contains(t, cerr.Error(), field)
			}
		})
	}
}

func TestFormInputValidateEmailMatchesBrowser(t *testing.T) {
	accepted := []string{
		"ada@example.com",
		"user@intranet",
		"a@localhost",
		"a..b@example.com",
		"o'brien+grievances@mail.example.co.uk",
	}
	rejected := []string{
		"not-an-address",
		"@example.com",
		"ada@",
		"ada@-example.com",
		"ada@example-.com",
		"ada@exa_mple.com",
		"ada smith@example.com",
		"ada@example..com",
	}

	for _, email := range accepted {
		t.Run(email, func(t *testing.T) {
			assert.NoError(t, FormInput{Name: "Ada", Email: email, Message: "hi"}.Validate())
		})
	}
	for _, email := range rejected {
		t.Run(email, func(t *testing.T) {
			var cerr *ConstraintError
			require.ErrorAs(t, FormInput{Name: "Ada", Email: email, Message: "hi"}.Validate(), &cerr)
			assert.Equal(t, "email must be an email address", cerr.Fields["email"])
		})
	}
}
