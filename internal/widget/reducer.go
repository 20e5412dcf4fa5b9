package widget

import (
	stderrors "errors"

	"github.com/conneroisu/grievance/internal/errors"
)

// Model is the widget's state together with the error text shown in the
// error state. ErrorMessage is empty in every other state.
type Model struct {
	State        State  `json:"state"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Event is one of Submitted, Delivered, Rejected or Failed.
type Event interface {
	isEvent()
}

// Submitted: the user submitted the form.
type Submitted struct{}

// Delivered: the delivery endpoint answered with a 2xx status.
type Delivered struct{}

// Rejected: the delivery endpoint answered with a non-2xx status. Message is
// the reason it reported, possibly empty.
type Rejected struct {
	Message string
}

// Failed: the delivery request could not complete.
type Failed struct{}

func (Submitted) isEvent() {}
func (Delivered) isEvent() {}
func (Rejected) isEvent()  {}
func (Failed) isEvent()    {}

// Effects are the side effects a transition asks its binding to perform.
type Effects uint8

const (
	// EffectClearForm resets the three input fields.
	EffectClearForm Effects = 1 << iota
	// EffectCelebrate fires the celebration effect once.
	EffectCelebrate
)

// Has reports whether e includes effect.
func (e Effects) Has(effect Effects) bool {
	return e&effect != 0
}

// Reduce is the widget's transition function. It is pure: the same model and
// event always give the same result. Events that do not apply to the current
// state leave the model unchanged and request no effects.
func Reduce(m Model, event Event) (Model, Effects) {
	switch ev := event.(type) {
	case Submitted:
		if m.State == StateSending {
			return m, 0
		}
		return Model{State: StateSending}, 0

	case Delivered:
		if m.State != StateSending {
			return m, 0
		}
		return Model{State: StateSuccess}, EffectClearForm | EffectCelebrate

	case Rejected:
		if m.State != StateSending {
			return m, 0
		}
		message := ev.Message
		if message == "" {
			message = errors.DefaultRejectionMessage
		}
		return Model{State: StateError, ErrorMessage: message}, 0

	case Failed:
		if m.State != StateSending {
			return m, 0
		}
		return Model{State: StateError, ErrorMessage: errors.NetworkErrorMessage}, 0
	}

	return m, 0
}

// OutcomeEvent converts the result of a delivery call into the event that
// ends the sending state.
func OutcomeEvent(err error) Event {
	if err == nil {
		return Delivered{}
	}
	var rejection *errors.ServerRejection
	if stderrors.As(err, &rejection) {
		return Rejected{Message: rejection.Message}
	}
	return Failed{}
}
