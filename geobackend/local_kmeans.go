package geobackend

import (
	"context"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
)

// maxKMeansIterations bounds Lloyd's-algorithm refinement; in practice
// cluster counts this pipeline deals with (tens to low hundreds of
// features per sub-polygon) converge in well under this.
const maxKMeansIterations = 100

// KMeansCluster assigns each point to one of k clusters using
// k-means++ seeding followed by Lloyd's algorithm, seeded from a
// dedicated *rand.Rand the way this repository's other randomized
// algorithms are seeded (one Rand per call, never the package-level
// default source), so a fixed seed reproduces the same partition
// across runs (spec §9, "Determinism over dynamic primitives").
func (l *Local) KMeansCluster(ctx context.Context, points []orb.Point, k int, seed int64) ([]int, error) {
	n := len(points)
	if n == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 1
	}
	if k >= n {
		assign := make([]int, n)
		for i := range assign {
			assign[i] = i
		}
		return assign, nil
	}

	rng := rand.New(rand.NewSource(seed))
	centers := kmeansPlusPlusSeed(points, k, rng)

	assign := make([]int, n)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, center := range centers {
				d := sqDist(p, center)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([]orb.Point, k)
		counts := make([]int, k)
		for i, p := range points {
			c := assign[i]
			sums[c][0] += p[0]
			sums[c][1] += p[1]
			counts[c]++
		}
		for c := range centers {
			if counts[c] == 0 {
				continue // keep stale center; it stays unused until reassigned
			}
			centers[c] = orb.Point{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
		}

		if !changed {
			break
		}
	}
	return assign, nil
}

func kmeansPlusPlusSeed(points []orb.Point, k int, rng *rand.Rand) []orb.Point {
	n := len(points)
	centers := make([]orb.Point, 0, k)
	centers = append(centers, points[rng.Intn(n)])

	dist := make([]float64, n)
	for len(centers) < k {
		var total float64
		for i, p := range points {
			best := math.Inf(1)
			for _, c := range centers {
				if d := sqDist(p, c); d < best {
					best = d
				}
			}
			dist[i] = best
			total += best
		}
		if total == 0 {
			// All remaining points coincide with a chosen center;
			// fill out the rest deterministically by index.
			for len(centers) < k {
				centers = append(centers, points[len(centers)%n])
			}
			break
		}
		target := rng.Float64() * total
		var cum float64
		chosen := n - 1
		for i, d := range dist {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	return centers
}

func sqDist(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return dx*dx + dy*dy
}
