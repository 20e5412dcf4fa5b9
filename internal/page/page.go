// Package page renders the grievance landing page and the widget fragment
// as templ components.
package page

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/feedback"
	"github.com/conneroisu/grievance/internal/widget"
)

const (
	// WidgetID is the element id of the swappable widget fragment.
	WidgetID = "widget"
	// CelebrationScriptID holds the JSON confetti options on the page.
	CelebrationScriptID = "celebration"
	// SendingLabelID is a template holding the submit button's sending
	// content, shown by the client script the moment the form is submitted.
	SendingLabelID = "sending-label"

	confettiScript = "https://cdn.jsdelivr.net/npm/canvas-confetti@1.9.3/dist/confetti.browser.min.js"
)

// Props is everything the full page needs.
type Props struct {
	Title     string
	Subtitle  string
	SessionID string
	Snapshot  widget.Snapshot
	Effect    celebration.Effect
	HotReload bool
}

// WidgetProps is the state of one widget instance.
type WidgetProps struct {
	SessionID string
	Snapshot  widget.Snapshot
}

// SubmitPath is where the widget form posts.
func SubmitPath(sessionID string) string {
	return fmt.Sprintf("/widget/%s/submit", sessionID)
}

// SocketPath is the websocket endpoint of a widget.
func SocketPath(sessionID string) string {
	return fmt.Sprintf("/widget/%s/ws", sessionID)
}

// Page renders the complete document.
func Page(props Props) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`)
		h.text(props.Title)
		h.raw(`</title><link rel="stylesheet" href="/static/styles.css"></head>`)
		h.raw(`<body data-session="`)
		h.text(props.SessionID)
		h.raw(`"`)
		if props.HotReload {
			h.raw(` data-hot-reload="true"`)
		}
		h.raw(`><main class="stage">`)
		if h.err != nil {
			return h.err
		}

		if err := Starfield().Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<section class="card"><h1 class="title">`)
		h.text(props.Title)
		h.raw(`</h1><p class="subtitle">`)
		h.text(props.Subtitle)
		h.raw(`</p>`)
		if h.err != nil {
			return h.err
		}

		if err := Widget(WidgetProps{SessionID: props.SessionID, Snapshot: props.Snapshot}).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<template id="`, SendingLabelID, `">`, spinnerSVG)
		h.text(feedback.Render(widget.Model{State: widget.StateSending}).SubmitLabel)
		h.raw(`</template></section></main>`)
		if h.err != nil {
			return h.err
		}

		if err := templ.JSONScript(CelebrationScriptID, props.Effect).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`<script src="`, confettiScript, `"`)
		h.nonce(ctx)
		h.raw(`></script><script src="/static/widget.js" defer`)
		h.nonce(ctx)
		h.raw(`></script></body></html>`)
		return h.err
	})
}

// Widget renders the swappable form fragment for one widget instance.
func Widget(props WidgetProps) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		fb := feedback.Render(props.Snapshot.Model)
		form := props.Snapshot.Form

		h := &htmlWriter{w: w}
		h.raw(`<div id="`, WidgetID, `" class="widget" data-state="`)
		h.text(props.Snapshot.State.String())
		h.raw(`">`)

		h.raw(`<form id="grievance-form" class="grievance-form" method="post" action="`)
		h.text(SubmitPath(props.SessionID))
		h.raw(`">`)

		h.raw(`<label class="sr-only" for="name">Your Name</label>`,
			`<input id="name" name="name" type="text" placeholder="Your Name" required value="`)
		h.text(form.Name)
		h.raw(`"`)
		h.disabled(fb.Disabled)
		h.raw(`>`)

		h.raw(`<label class="sr-only" for="email">Your Email</label>`,
			`<input id="email" name="email" type="email" placeholder="Your Email" required value="`)
		h.text(form.Email)
		h.raw(`"`)
		h.disabled(fb.Disabled)
		h.raw(`>`)

		// The newline after the open tag is eaten by the parser, so a
		// message that starts with one keeps it.
		h.raw(`<label class="sr-only" for="message">Your issue</label>`,
			`<textarea id="message" name="message" rows="5" placeholder="Type your issue here…" required`)
		h.disabled(fb.Disabled)
		h.raw(">\n")
		h.text(form.Message)
		h.raw(`</textarea>`)

		h.raw(`<button type="submit" class="submit"`)
		h.disabled(fb.Disabled)
		if fb.Spinner {
			h.raw(` aria-busy="true">`, spinnerSVG)
		} else {
			h.raw(`>`)
		}
		h.text(fb.SubmitLabel)
		h.raw(`</button></form>`)
		if h.err != nil {
			return h.err
		}

		if err := Feedback(fb).Render(ctx, w); err != nil {
			return err
		}

		h.raw(`</div>`)
		return h.err
	})
}

// Feedback renders the status line under the form. Nothing is written when
// there is nothing to say.
func Feedback(fb feedback.Feedback) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if fb.Tone == feedback.ToneNone {
			return nil
		}
		h := &htmlWriter{w: w}
		h.raw(`<p class="feedback feedback-`, fb.Tone.String(), `" role="status">`)
		h.text(fb.Message)
		h.raw(`</p>`)
		return h.err
	})
}

const spinnerSVG = `<svg class="spinner" aria-hidden="true" xmlns="http://www.w3.org/2000/svg" fill="none" viewBox="0 0 24 24">` +
	`<circle cx="12" cy="12" r="10" stroke="currentColor" stroke-width="4" opacity="0.25"></circle>` +
	`<path fill="currentColor" opacity="0.75" d="M4 12a8 8 0 018-8v4l3-3-3-3v4a8 8 0 100 16v-4l-3 3 3 3v-4a8 8 0 01-8-8z"></path></svg>`

// htmlWriter keeps the first write error so markup can be emitted without
// checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// nonce writes the CSP nonce attribute carried by ctx, if any.
func (h *htmlWriter) nonce(ctx context.Context) {
	if nonce := templ.GetNonce(ctx); nonce != "" {
		h.raw(` nonce="`, templ.EscapeString(nonce), `"`)
	}
}

func (h *htmlWriter) disabled(on bool) {
	if on {
		h.raw(` disabled`)
	}
}
