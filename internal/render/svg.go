package render

import (
	"fmt"
	"strings"
)

// FrameToSVG draws the frame projected onto the XY plane, y up. Each point
// becomes a circle of its own colour; size is in world units.
func FrameToSVG(frame *Frame, width, height int) string {
	lo, hi := frame.Bounds()
	rangeX := hi.X - lo.X
	rangeY := hi.Y - lo.Y
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	scale := min(float64(width)/rangeX, float64(height)/rangeY) * 0.95

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g>
`, width, height, width, height))

	ox := (float64(width) - rangeX*scale) / 2
	oy := (float64(height) - rangeY*scale) / 2
	for _, p := range frame.Points {
		cx := ox + (p.X-lo.X)*scale
		cy := float64(height) - oy - (p.Y-lo.Y)*scale
		r := max(p.Size*scale/2, 0.5)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="#%02x%02x%02x"/>
`, cx, cy, r, p.R, p.G, p.B))
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesToSVG draws one series as a polyline over its sample index.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}

	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY
	rangeX := float64(len(values) - 1)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, v := range values {
		x := float64(i) / rangeX * float64(width)
		y := float64(height) - (v-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
