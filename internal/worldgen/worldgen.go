// Map generation using layered simplex noise. Produces a land-value field
// over the tile grid and derives deterministic city sites from it.
package worldgen

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width  int   // Tile grid width
	Height int   // Tile grid height
	Seed   int64 // Random seed (0 = random)
	Cities int   // Number of city sites to place
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:  256,
		Height: 256,
		Seed:   0,
		Cities: 6,
	}
}

// SmallTestConfig returns a tiny map for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:  64,
		Height: 64,
		Seed:   42,
		Cities: 3,
	}
}

// CitySize categorizes a site's scale tier.
type CitySize uint8

const (
	SizeTown CitySize = iota // 100k–400k residents
	SizeCity                 // 400k–900k residents
	SizeMetro                // 900k–2M residents
)

// CitySite is one placed city: where it sits, how big it starts, and how
// attractive its surroundings are for commerce.
type CitySite struct {
	X, Y       int
	Name       string
	Size       CitySize
	Population int
	LandValue  float64 // Desirability score at the site, 0–1
}

// Map holds the generated terrain fields and the placed city sites.
type Map struct {
	Width, Height int
	Seed          int64
	LandValue     []float64 // row-major, Width*Height
	Sites         []CitySite
}

// ValueAt returns the land value at a tile, zero outside the grid.
func (m *Map) ValueAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.LandValue[y*m.Width+x]
}

// Generate builds a complete map with land values and city sites.
// The same seed always yields the same map.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	// Two noise layers: broad geography and local texture.
	baseNoise := opensimplex.NewNormalized(seed)
	detailNoise := opensimplex.NewNormalized(seed + 1)

	m := &Map{
		Width:     cfg.Width,
		Height:    cfg.Height,
		Seed:      seed,
		LandValue: make([]float64, cfg.Width*cfg.Height),
	}

	cx := float64(cfg.Width) / 2
	cy := float64(cfg.Height) / 2
	maxDist := math.Sqrt(cx*cx + cy*cy)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)

			base := octaveNoise(baseNoise, fx, fy, 4, 0.015, 0.5)
			detail := octaveNoise(detailNoise, fx, fy, 3, 0.06, 0.5)
			v := base*0.75 + detail*0.25

			// Central shaping: value falls off toward the map edge so the
			// economic core sits inland rather than on the rim.
			dist := math.Sqrt((fx-cx)*(fx-cx)+(fy-cy)*(fy-cy)) / maxDist
			falloff := 1.0 - math.Pow(dist, 2.5)
			if falloff < 0 {
				falloff = 0
			}
			m.LandValue[y*cfg.Width+x] = v * falloff
		}
	}

	placeCities(m, cfg, seed)
	return m
}

// placeCities picks the highest-value tiles as city sites, enforcing a
// minimum spacing so cities spread across the map.
func placeCities(m *Map, cfg GenConfig, seed int64) {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		x, y int
		v    float64
	}
	var candidates []scored
	// Coarse sampling keeps the candidate list small on big maps.
	step := 4
	for y := step; y < m.Height-step; y += step {
		for x := step; x < m.Width-step; x += step {
			v := m.ValueAt(x, y)
			if v > 0.2 {
				candidates = append(candidates, scored{x, y, v})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].v != candidates[j].v {
			return candidates[i].v > candidates[j].v
		}
		// Tie-break on position so the order is stable across runs.
		if candidates[i].y != candidates[j].y {
			return candidates[i].y < candidates[j].y
		}
		return candidates[i].x < candidates[j].x
	})

	minDist := float64(m.Width+m.Height) / float64(4*max(cfg.Cities, 1))
	for _, c := range candidates {
		if len(m.Sites) >= cfg.Cities {
			break
		}
		if tooClose(c.x, c.y, m.Sites, minDist) {
			continue
		}
		m.Sites = append(m.Sites, CitySite{
			X:         c.x,
			Y:         c.y,
			LandValue: c.v,
		})
	}

	// Scale tiers: the best site is the metro, the next two are cities,
	// the rest start as towns.
	for i := range m.Sites {
		switch {
		case i == 0:
			m.Sites[i].Size = SizeMetro
		case i <= 2:
			m.Sites[i].Size = SizeCity
		default:
			m.Sites[i].Size = SizeTown
		}
		m.Sites[i].Population = PopulationForSize(m.Sites[i].Size, rng)
	}

	names := generateNames(rng, len(m.Sites))
	for i := range m.Sites {
		m.Sites[i].Name = names[i]
	}
}

func tooClose(x, y int, sites []CitySite, minDist float64) bool {
	for _, s := range sites {
		dx, dy := float64(x-s.X), float64(y-s.Y)
		if math.Sqrt(dx*dx+dy*dy) < minDist {
			return true
		}
	}
	return false
}

// PopulationForSize returns the initial population for a city size tier.
func PopulationForSize(size CitySize, rng *rand.Rand) int {
	switch size {
	case SizeMetro:
		return 900_000 + rng.Intn(1_100_000)
	case SizeCity:
		return 400_000 + rng.Intn(500_000)
	case SizeTown:
		return 100_000 + rng.Intn(300_000)
	default:
		return 150_000
	}
}

// generateNames produces procedural city names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Green", "Ash", "Stone", "Mill", "Cross", "Black",
		"Silver", "Red", "White", "Bright", "High", "Low", "Old",
		"New", "Far", "Long", "Broad", "Gold", "Elm", "Oak", "Pine",
		"Copper", "River", "North", "South", "East", "West",
	}
	suffixes := []string{
		"haven", "ford", "bridge", "gate", "stead", "wood", "field",
		"dale", "crest", "vale", "port", "town", "bury", "brook",
		"cliff", "ridge", "fall", "point", "view", "burg", "mont",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)
	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
