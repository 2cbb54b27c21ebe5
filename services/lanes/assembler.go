package lanes

import (
	"lanefeed/models"
	"lanefeed/services/genres"
)

// DefaultLaneSize is how many items each display lane holds.
const DefaultLaneSize = 15

// laneDefs is the fixed priority order of named lanes. The filtered pool is
// sliced contiguously into these; a lane left with zero items is omitted.
var laneDefs = []struct {
	title string
	hints models.LaneHints
}{
	{"Top Picks for You", models.LaneHints{ShowMatchScore: true}},
	{"Recommended for You", models.LaneHints{ShowMatchScore: true, ShowServiceBadge: true}},
	{"More to Explore", models.LaneHints{ShowServiceBadge: true}},
	{"Deep Cuts", models.LaneHints{}},
}

// Assembler deterministically partitions a filtered pool into a hero item and
// ordered lanes. It holds no state between calls: any change to the pool,
// filter, or exclusions simply recomputes the whole view.
type Assembler struct {
	resolver *genres.Resolver
	laneSize int
}

func NewAssembler(resolver *genres.Resolver, laneSize int) *Assembler {
	if laneSize <= 0 {
		laneSize = DefaultLaneSize
	}
	return &Assembler{resolver: resolver, laneSize: laneSize}
}

// BuildHome picks the hero for the selected genre and slices the remaining
// pool into lanes.
func (a *Assembler) BuildHome(pool []models.ContentItem, selectedGenre string) models.HomeView {
	view := models.HomeView{Lanes: []models.Lane{}}
	if len(pool) == 0 {
		return view
	}

	heroIdx := a.pickHero(pool, selectedGenre)
	hero := pool[heroIdx]
	view.Hero = &hero

	rest := make([]models.ContentItem, 0, len(pool)-1)
	rest = append(rest, pool[:heroIdx]...)
	rest = append(rest, pool[heroIdx+1:]...)

	for i, def := range laneDefs {
		start := i * a.laneSize
		if start >= len(rest) {
			break
		}
		end := min(start+a.laneSize, len(rest))
		view.Lanes = append(view.Lanes, models.Lane{
			Title: def.title,
			Items: rest[start:end],
			Hints: def.hints,
		})
	}
	return view
}

// pickHero returns the index of the hero item. For All, the pool's first item.
// Otherwise the first primary match (first-listed genre equals the filter),
// falling back to the first secondary match (any genre), falling back to the
// pool's first item.
func (a *Assembler) pickHero(pool []models.ContentItem, selectedGenre string) int {
	if selectedGenre == "" || selectedGenre == models.GenreAll {
		return 0
	}
	secondary := -1
	for i, item := range pool {
		if a.resolver.PrimaryMatches(item, selectedGenre) {
			return i
		}
		if secondary < 0 && a.resolver.Matches(item, selectedGenre) {
			secondary = i
		}
	}
	if secondary >= 0 {
		return secondary
	}
	return 0
}
