// Package celebration describes the one-shot confetti burst fired after a
// successful submission and the collaborators that play it.
package celebration

import (
	"context"
	"sync"

	"github.com/conneroisu/grievance/internal/config"
)

// Origin is where particles start, as fractions of the viewport.
type Origin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Effect is the configuration handed to the particle animation. Field names
// follow the canvas-confetti options object.
type Effect struct {
	ParticleCount int      `json:"particleCount"`
	Spread        int      `json:"spread"`
	Origin        Origin   `json:"origin"`
	Colors        []string `json:"colors"`
}

// Default returns the fixed burst: 150 particles, spread 80, launched from
// below the centre in four shades of pink and purple.
func Default() Effect {
	return Effect{
		ParticleCount: 150,
		Spread:        80,
		Origin:        Origin{X: 0.5, Y: 0.6},
		Colors:        []string{"#ff66cc", "#cc33ff", "#ff99cc", "#cc66ff"},
	}
}

// FromConfig builds the effect from the celebration section of the config.
func FromConfig(cfg config.CelebrationConfig) Effect {
	colors := make([]string, len(cfg.Colors))
	copy(colors, cfg.Colors)
	return Effect{
		ParticleCount: cfg.ParticleCount,
		Spread:        cfg.Spread,
		Origin:        Origin{X: cfg.OriginX, Y: cfg.OriginY},
		Colors:        colors,
	}
}

// Celebrator plays an effect. Calls are fire-and-forget.
type Celebrator interface {
	Celebrate(ctx context.Context, effect Effect)
}

// Func adapts a plain function to Celebrator.
type Func func(ctx context.Context, effect Effect)

// Celebrate calls f.
func (f Func) Celebrate(ctx context.Context, effect Effect) {
	f(ctx, effect)
}

// Recorder remembers every effect it is asked to play.
type Recorder struct {
	mu      sync.Mutex
	effects []Effect
}

// Celebrate records effect.
func (r *Recorder) Celebrate(_ context.Context, effect Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, effect)
}

// Effects returns a copy of the recorded effects.
func (r *Recorder) Effects() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Effect, len(r.effects))
	copy(out, r.effects)
	return out
}

// Count returns how many effects were played.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.effects)
}
