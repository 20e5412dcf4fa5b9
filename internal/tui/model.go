// Package tui binds the submission widget to a terminal form.
package tui

import (
	"context"
	stderrors "errors"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/grievance/internal/celebration"
	"github.com/conneroisu/grievance/internal/feedback"
	"github.com/conneroisu/grievance/internal/logging"
	"github.com/conneroisu/grievance/internal/widget"
)

const (
	fieldName = iota
	fieldEmail
	fieldMessage
	fieldCount
)

var fieldKeys = [fieldCount]string{"name", "email", "message"}

const (
	defaultBurstWidth = 48
	burstHeight       = 8
)

var (
	colorTitle   = lipgloss.Color("#cc66ff")
	colorSubtle  = lipgloss.Color("#7f849c")
	colorError   = lipgloss.Color("#f87171")
	colorSuccess = lipgloss.Color("#4ade80")

	titleStyle    = lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	buttonStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#6366f1")).Padding(0, 2)
	busyStyle     = buttonStyle.Background(lipgloss.Color("#4b5563"))
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	helpStyle     = lipgloss.NewStyle().Foreground(colorSubtle)
)

// submittedMsg carries the widget's snapshot once a submission resolves.
type submittedMsg struct {
	snapshot widget.Snapshot
	effect   *celebration.Effect
	err      error
}

// Options configure the terminal form.
type Options struct {
	Title    string
	Subtitle string
	Effect   celebration.Effect
	Logger   logging.Logger
}

// Model is the bubbletea model for `grievance compose`.
type Model struct {
	ctx        context.Context
	widget     *widget.Widget
	celebrated chan celebration.Effect
	snapshot   widget.Snapshot
	inputs     [fieldCount]textinput.Model
	focus      int
	spinner    spinner.Model
	invalid    string
	burst      string
	rng        *rand.Rand
	width      int
	title      string
	subtitle   string
	labelCaser cases.Caser
	quitting   bool
}

// New builds an idle form whose submissions go through submitter.
func New(ctx context.Context, submitter widget.Submitter, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	celebrated := make(chan celebration.Effect, 1)
	w := widget.New(submitter,
		widget.WithLogger(logger),
		widget.WithCelebrator(celebration.Func(func(_ context.Context, effect celebration.Effect) {
			select {
			case celebrated <- effect:
			default:
			}
		}), opts.Effect),
	)

	m := Model{
		ctx:        ctx,
		widget:     w,
		celebrated: celebrated,
		snapshot:   w.Snapshot(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		title:      opts.Title,
		subtitle:   opts.Subtitle,
		labelCaser: cases.Title(language.English),
	}

	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "› "
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Placeholder = placeholder(i)
		m.inputs[i] = ti
	}
	m.inputs[fieldEmail].CharLimit = 254
	m.inputs[fieldName].Focus()

	return m
}

func placeholder(field int) string {
	switch field {
	case fieldName:
		return "Your name"
	case fieldEmail:
		return "you@example.com"
	default:
		return "What's wrong?"
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case submittedMsg:
		return m.resolve(msg), nil

	case spinner.TickMsg:
		if !m.snapshot.Disabled() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	}

	// The inputs are disabled while sending.
	if m.snapshot.Disabled() {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		return m.moveFocus(1), nil
	case tea.KeyShiftTab, tea.KeyUp:
		return m.moveFocus(-1), nil
	case tea.KeyEnter:
		return m.submit()
	}

	m.burst = ""
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) moveFocus(delta int) Model {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + fieldCount) % fieldCount
	m.inputs[m.focus].Focus()
	return m
}

func (m Model) input() widget.FormInput {
	return widget.FormInput{
		Name:    strings.TrimSpace(m.inputs[fieldName].Value()),
		Email:   strings.TrimSpace(m.inputs[fieldEmail].Value()),
		Message: m.inputs[fieldMessage].Value(),
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	input := m.input()
	if err := input.Validate(); err != nil {
		m.invalid = err.Error()
		var constraint *widget.ConstraintError
		if stderrors.As(err, &constraint) {
			m = m.focusFirstInvalid(constraint)
		}
		return m, nil
	}

	m.invalid = ""
	m.burst = ""
	m.snapshot.Model, _ = widget.Reduce(m.snapshot.Model, widget.Submitted{})
	m.snapshot.Form = input
	for i := range m.inputs {
		m.inputs[i].Blur()
	}

	return m, tea.Batch(m.send(input), m.spinner.Tick)
}

func (m Model) focusFirstInvalid(constraint *widget.ConstraintError) Model {
	for i, key := range fieldKeys {
		if _, ok := constraint.Fields[key]; ok {
			m.inputs[m.focus].Blur()
			m.focus = i
			m.inputs[i].Focus()
			break
		}
	}
	return m
}

func (m Model) send(input widget.FormInput) tea.Cmd {
	ctx, w, celebrated := m.ctx, m.widget, m.celebrated
	return func() tea.Msg {
		err := w.Submit(ctx, input)
		msg := submittedMsg{snapshot: w.Snapshot(), err: err}
		select {
		case effect := <-celebrated:
			msg.effect = &effect
		default:
		}
		return msg
	}
}

func (m Model) resolve(msg submittedMsg) Model {
	if stderrors.Is(msg.err, widget.ErrSubmissionInFlight) {
		return m
	}

	m.snapshot = msg.snapshot
	if m.snapshot.Form.IsZero() {
		for i := range m.inputs {
			m.inputs[i].Reset()
		}
		m.focus = fieldName
	}
	m.inputs[m.focus].Focus()

	if msg.effect != nil {
		width := m.width
		if width <= 0 {
			width = defaultBurstWidth
		}
		m.burst = celebration.Burst(*msg.effect, width, burstHeight, m.rng)
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	fb := feedback.Render(m.snapshot.Model)

	var b strings.Builder
	if m.burst != "" {
		b.WriteString(m.burst)
		b.WriteString("\n\n")
	}
	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title))
		b.WriteByte('\n')
	}
	if m.subtitle != "" {
		b.WriteString(subtitleStyle.Render(m.subtitle))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	for i, key := range fieldKeys {
		b.WriteString(labelStyle.Render(m.labelCaser.String(key)))
		b.WriteByte('\n')
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if fb.Spinner {
		b.WriteString(busyStyle.Render(m.spinner.View() + " " + fb.SubmitLabel))
	} else {
		b.WriteString(buttonStyle.Render(fb.SubmitLabel))
	}
	b.WriteByte('\n')

	switch fb.Tone {
	case feedback.ToneError:
		b.WriteString("\n" + errorStyle.Render(fb.Message) + "\n")
	case feedback.ToneSuccess:
		b.WriteString("\n" + successStyle.Render(fb.Message) + "\n")
	}
	if m.invalid != "" {
		b.WriteString("\n" + errorStyle.Render(m.invalid) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("tab next field • enter send • esc quit"))
	return b.String()
}

// Snapshot returns the state the form is showing.
func (m Model) Snapshot() widget.Snapshot {
	return m.snapshot
}

// Run starts the terminal form and blocks until the user quits.
func Run(ctx context.Context, submitter widget.Submitter, opts Options) error {
	_, err := tea.NewProgram(New(ctx, submitter, opts), tea.WithContext(ctx)).Run()
	if stderrors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
