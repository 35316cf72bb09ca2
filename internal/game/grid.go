package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/robalobadob/explosion-station/internal/rules"
)

// GenerateGrid fills a Rows×Cols field for level. Each cell is
// independently a hazard with probability HazardProbability; there is no
// guarantee on the hazard count. Ids embed the level so a click aimed at a
// previous grid can never land on the new one.
func GenerateGrid(level int, r rules.Rules, rng *rand.Rand) []Balloon {
	out := make([]Balloon, 0, r.Rows*r.Cols)
	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			b := Balloon{
				ID:     fmt.Sprintf("b-%d-%d-%d", level, row, col),
				Kind:   KindNormal,
				Points: 1,
				Row:    row,
				Col:    col,
			}
			if rng.Float64() < r.HazardProbability {
				b.Kind = KindHazard
				b.Points = 0
			}
			b.Color = r.Palette[rng.IntN(len(r.Palette))]
			out = append(out, b)
		}
	}
	return out
}
