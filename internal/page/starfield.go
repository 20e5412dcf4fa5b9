package page

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/a-h/templ"
)

const starCount = 120

type star struct {
	top, left float64
	size      int
	delay     float64
	duration  float64
}

// Positions are fixed per process so every page load draws the same sky.
var stars = makeStars(rand.New(rand.NewSource(20240611)), starCount)

func makeStars(rng *rand.Rand, n int) []star {
	out := make([]star, n)
	for i := range out {
		out[i] = star{
			top:      rng.Float64() * 100,
			left:     rng.Float64() * 100,
			size:     1 + rng.Intn(3),
			delay:    rng.Float64() * 6,
			duration: 2 + rng.Float64()*4,
		}
	}
	return out
}

// Starfield renders the decorative background: twinkling stars, the
// pulsing gradient wash and two drifting colour blobs. It has no state.
func Starfield() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="starfield" aria-hidden="true">`)
		for _, s := range stars {
			h.raw(fmt.Sprintf(
				`<span class="star" style="top:%.2f%%;left:%.2f%%;width:%dpx;height:%dpx;animation-delay:%.2fs;animation-duration:%.2fs"></span>`,
				s.top, s.left, s.size, s.size, s.delay, s.duration,
			))
		}
		h.raw(`</div>`,
			`<div class="wash" aria-hidden="true"></div>`,
			`<div class="blob blob-pink" aria-hidden="true"></div>`,
			`<div class="blob blob-indigo" aria-hidden="true"></div>`)
		return h.err
	})
}
