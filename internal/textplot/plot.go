/*
	textplot – braille patterns

	Renders a numeric series as a small plot in plain text, two samples per character.
*/

package textplot

import (
	"fmt"
	"math"
	"strings"
)

// bps[l][r] is a braille cell with l dots filled in the left column
// and r dots in the right one, bottom up.
var bps = [5][]rune{
	[]rune("⠀⢀⢠⢰⢸"),
	[]rune("⡀⣀⣠⣰⣸"),
	[]rune("⡄⣄⣤⣴⣼"),
	[]rune("⡆⣆⣦⣶⣾"),
	[]rune("⡇⣇⣧⣷⣿"),
}

// Plot renders data on rows lines of braille, framed by the max value on top
// and the min value at the bottom. A flat series is drawn at mid height.
func Plot(rows int, data []float64) string {
	if len(data) == 0 || rows <= 0 {
		return ""
	}

	lo, hi := minMax(data)
	levels := rows * 4

	heights := make([]int, len(data))
	for i, v := range data {
		if hi == lo {
			heights[i] = levels / 2

			continue
		}
		// at least one dot so the lowest sample is still visible
		heights[i] = max(1, int(math.Round((v-lo)/(hi-lo)*float64(levels))))
	}

	return fmt.Sprintf("%.2f\n%s%.2f", hi, render(rows, heights), lo)
}

func render(rows int, heights []int) string {
	if len(heights)%2 != 0 {
		heights = append(heights, 0)
	}

	plot := make([][]rune, rows)
	for r := range plot {
		plot[r] = make([]rune, 0, len(heights)/2)
	}

	for c := 0; c < len(heights); c += 2 {
		left, right := heights[c], heights[c+1]
		for r := rows - 1; r >= 0; r, left, right = r-1, left-4, right-4 {
			plot[r] = append(plot[r], bps[clamp(left)][clamp(right)])
		}
	}

	sb := strings.Builder{}
	for _, line := range plot {
		sb.WriteString(string(line))
		sb.WriteString("\n")
	}

	return sb.String()
}

func clamp(dots int) int {
	return min(4, max(0, dots))
}

func minMax(xs []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	return lo, hi
}
