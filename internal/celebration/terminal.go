package celebration

import (
	"math"
	"math/rand"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var glyphs = []rune{'*', '+', '•', '✦', '·'}

type cell struct {
	glyph rune
	color string
}

// Burst renders one frame of the effect as coloured glyphs on a width×height
// grid. Particles fan out upwards from the origin within the spread angle.
func Burst(effect Effect, width, height int, rng *rand.Rand) string {
	if width <= 0 || height <= 0 || effect.ParticleCount <= 0 || len(effect.Colors) == 0 {
		return ""
	}

	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	ox := effect.Origin.X * float64(width-1)
	oy := effect.Origin.Y * float64(height-1)
	halfSpread := float64(effect.Spread) / 2 * math.Pi / 180
	reach := math.Max(float64(width), float64(height))

	for i := 0; i < effect.ParticleCount; i++ {
		angle := math.Pi/2 + (rng.Float64()*2-1)*halfSpread
		dist := rng.Float64() * reach
		// Terminal cells are roughly twice as tall as they are wide.
		x := int(math.Round(ox + math.Cos(angle)*dist))
		y := int(math.Round(oy - math.Sin(angle)*dist/2))
		if x < 0 || x >= width || y < 0 || y >= height {
			continue
		}
		grid[y][x] = cell{
			glyph: glyphs[rng.Intn(len(glyphs))],
			color: effect.Colors[i%len(effect.Colors)],
		}
	}

	var b strings.Builder
	for row, cells := range grid {
		for _, c := range cells {
			if c.glyph == 0 {
				b.WriteByte(' ')
				continue
			}
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.color)).Render(string(c.glyph)))
		}
		if row < len(grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
