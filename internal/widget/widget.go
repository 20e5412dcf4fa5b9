// Package widget implements the Submission Widget: a four-state machine
// (idle, sending, success, error) driven by one delivery call per submission.
//
// The transition function is Reduce, which is pure and independent of any UI.
// Widget wraps it with the side effects a binding needs: the in-flight gate,
// the delivery call, clearing the form, firing the celebration and notifying
// observers. The browser page, the CLI and the terminal UI all bind to it.
package widget

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/logging"
)

// ErrSubmissionInFlight is returned by Submit while the widget is sending.
// No delivery call is made.
var ErrSubmissionInFlight = stderrors.New("a submission is already in flight")

// Submitter delivers one submission to the Mail Delivery Endpoint.
//
// Send returns nil on a 2xx answer, a *errors.ServerRejection on any other
// status and a *errors.NetworkFailure when the request could not complete.
type Submitter interface {
	Send(ctx context.Context, input FormInput) error
}

// SubmitterFunc adapts a plain function to Submitter.
type SubmitterFunc func(ctx context.Context, input FormInput) error

// Send calls f.
func (f SubmitterFunc) Send(ctx context.Context, input FormInput) error {
	return f(ctx, input)
}

// Snapshot is what a binding renders: the model plus the current field values.
type Snapshot struct {
	Model
	Form FormInput `json:"form"`
}

// Disabled reports whether the inputs and the submit control are disabled.
func (s Snapshot) Disabled() bool {
	return s.State == StateSending
}

// Observer is called after every state change with the new snapshot.
type Observer func(Snapshot)

// Widget is one self-contained widget instance. Instances share nothing.
type Widget struct {
	mu        sync.Mutex
	model     Model
	form      FormInput
	observers []Observer

	submitter  Submitter
	celebrator celebration.Celebrator
	effect     celebration.Effect
	logger     logging.Logger
}

// Option configures a Widget.
type Option func(*Widget)

// WithCelebrator sets the collaborator that plays effect after a success.
func WithCelebrator(c celebration.Celebrator, effect celebration.Effect) Option {
	return func(w *Widget) {
		w.celebrator = c
		w.effect = effect
	}
}

// WithLogger sets the widget's logger.
func WithLogger(logger logging.Logger) Option {
	return func(w *Widget) {
		w.logger = logger.WithComponent("widget")
	}
}

// WithObserver registers an observer at construction time.
func WithObserver(o Observer) Option {
	return func(w *Widget) {
		w.observers = append(w.observers, o)
	}
}

// New creates an idle widget that delivers through submitter.
func New(submitter Submitter, opts ...Option) *Widget {
	w := &Widget{
		submitter: submitter,
		effect:    celebration.Default(),
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe registers an observer for all later state changes.
func (w *Widget) Observe(o Observer) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, o)
}

// Snapshot returns the current model and field values.
func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// SetForm records field values typed by the user without submitting.
// Ignored while sending, since the inputs are disabled.
func (w *Widget) SetForm(input FormInput) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model.State == StateSending {
		return
	}
	w.form = input
}

func (w *Widget) snapshotLocked() Snapshot {
	return Snapshot{Model: w.model, Form: w.form}
}

// Submit runs one submission cycle: sending, one delivery call, then success
// or error. Observers see the sending state before the call is issued.
//
// While a cycle is running Submit returns ErrSubmissionInFlight immediately.
// Otherwise it returns the delivery error, which the widget has already
// recovered from by moving to its error state.
func (w *Widget) Submit(ctx context.Context, input FormInput) error {
	w.mu.Lock()
	if w.model.State == StateSending {
		w.mu.Unlock()
		w.logger.Debug(ctx, "Submission ignored while sending")
		return ErrSubmissionInFlight
	}
	w.model, _ = Reduce(w.model, Submitted{})
	w.form = input
	sending := w.snapshotLocked()
	w.mu.Unlock()

	w.notify(sending)
	w.logger.Info(ctx, "Submission started")

	err := w.submitter.Send(ctx, input)

	w.mu.Lock()
	var effects Effects
	w.model, effects = Reduce(w.model, OutcomeEvent(err))
	if effects.Has(EffectClearForm) {
		w.form = FormInput{}
	}
	done := w.snapshotLocked()
	w.mu.Unlock()

	if effects.Has(EffectCelebrate) && w.celebrator != nil {
		w.celebrator.Celebrate(ctx, w.effect)
	}

	if err != nil {
		w.logger.Info(ctx, "Submission failed", "state", done.State.String(), "message", done.ErrorMessage)
	} else {
		w.logger.Info(ctx, "Submission delivered")
	}

	w.notify(done)
	return err
}

func (w *Widget) notify(s Snapshot) {
	w.mu.Lock()
	observers := make([]Observer, len(w.observers))
	copy(observers, w.observers)
	w.mu.Unlock()

	for _, o := range observers {
		o(s)
	}
}
