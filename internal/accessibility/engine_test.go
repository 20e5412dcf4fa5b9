package accessibility

import (
	"context"
	"strings"
	"testing"

	"github.com/conneroisu/grievance/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, doc string) *Report {
	t.Helper()
	report, err := NewEngine(logging.Discard()).Analyze(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	return report
}

func rules(r *Report) []string {
	out := []string{}
	for _, v := range r.Violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestCleanDocument(t *testing.T) {
	report := analyze(t, `<!DOCTYPE html><html lang="en"><head><title>ok</title></head><body>
		<h1>Title</h1><h2>Sub</h2>
		<label for="name">Name</label><input id="name" type="text">
		<label>Message <textarea></textarea></label>
		<input type="email" aria-label="Email">
		<button>Send</button>
		<img src="x.png" alt="x">
	</body></html>`)

	assert.Empty(t, report.Violations)
	assert.Len(t, report.Passed, len(DefaultRules))
	assert.Zero(t, report.Critical())
}

func TestViolations(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected []string
	}{
		{
			name:     "image without alt",
			doc:      `<html lang="en"><head><title>t</title></head><body><img src="a.png"></body></html>`,
			expected: []string{"missing-alt-text"},
		},
		{
			name:     "unlabelled input",
			doc:      `<html lang="en"><head><title>t</title></head><body><input id="x" type="text"></body></html>`,
			expected: []string{"missing-form-label"},
		},
		{
			name:     "heading skips a level",
			doc:      `<html lang="en"><head><title>t</title></head><body><h1>a</h1><h3>b</h3></body></html>`,
			expected: []string{"missing-heading-structure"},
		},
		{
			name:     "empty button",
			doc:      `<html lang="en"><head><title>t</title></head><body><button></button></body></html>`,
			expected: []string{"missing-button-text"},
		},
		{
			name:     "no lang and no title",
			doc:      `<html><head></head><body></body></html>`,
			expected: []string{"missing-lang-attribute", "missing-title-element"},
		},
		{
			name:     "duplicate id",
			doc:      `<html lang="en"><head><title>t</title></head><body><div id="a"></div><span id="a"></span></body></html>`,
			expected: []string{"duplicate-id", "duplicate-id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rules(analyze(t, tt.doc)))
		})
	}
}

func TestSelector(t *testing.T) {
	report := analyze(t, `<html lang="en"><head><title>t</title></head><body>
		<img class="hero wide" src="a.png"><img id="logo" src="b.png"></body></html>`)

	require.Len(t, report.Violations, 2)
	assert.Equal(t, "img.hero.wide", report.Violations[0].Selector)
	assert.Equal(t, "img#logo", report.Violations[1].Selector)
	assert.Equal(t, 2, report.Critical())
}
