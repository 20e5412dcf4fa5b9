// Package feedback maps a widget model to the text a binding displays.
package feedback

import "github.com/conneroisu/grievance/internal/widget"

const (
	SendLabel      = "Send"
	SendingLabel   = "Sending…"
	SuccessMessage = "Email sent successfully!"
)

// Tone is the colour family of the feedback line.
type Tone int

const (
	ToneNone Tone = iota
	ToneError
	ToneSuccess
)

// String returns the string representation of the tone
func (t Tone) String() string {
	switch t {
	case ToneError:
		return "error"
	case ToneSuccess:
		return "success"
	default:
		return "none"
	}
}

// Feedback is everything that varies with the widget state.
type Feedback struct {
	// SubmitLabel is the text of the submit control.
	SubmitLabel string
	// Spinner is shown next to SubmitLabel while sending.
	Spinner bool
	// Disabled applies to the three inputs and the submit control.
	Disabled bool
	// Tone and Message describe the line under the form. Message is empty
	// when Tone is ToneNone.
	Tone    Tone
	Message string
}

// Render is a pure function of the model.
func Render(m widget.Model) Feedback {
	switch m.State {
	case widget.StateSending:
		return Feedback{SubmitLabel: SendingLabel, Spinner: true, Disabled: true}
	case widget.StateError:
		return Feedback{SubmitLabel: SendLabel, Tone: ToneError, Message: m.ErrorMessage}
	case widget.StateSuccess:
		return Feedback{SubmitLabel: SendLabel, Tone: ToneSuccess, Message: SuccessMessage}
	default:
		return Feedback{SubmitLabel: SendLabel}
	}
}
