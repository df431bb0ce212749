package analysis

import (
	"math"
	"math/rand/v2"
)

const (
	kmeansSeed     = 42
	kmeansRestarts = 10
	kmeansMaxIter  = 300
	kmeansTol      = 1e-4
)

// kmeans runs Lloyd's algorithm with k-means++ seeding on Euclidean distance.
// The best of kmeansRestarts runs by inertia wins. The generator is seeded so
// identical input always gives identical labels. k is clamped to [1, len(vectors)].
func kmeans(vectors [][]float32, k int, seed uint64) []int {
	k = min(max(k, 1), len(vectors))
	rng := rand.New(rand.NewPCG(seed, 0))

	var bestLabels []int
	bestInertia := math.Inf(1)
	for run := 0; run < kmeansRestarts; run++ {
		labels, inertia := lloyd(vectors, seedCentroids(vectors, k, rng))
		if inertia < bestInertia {
			bestLabels, bestInertia = labels, inertia
		}
	}
	return bestLabels
}

// seedCentroids picks k initial centroids with k-means++ weighting.
func seedCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, toFloat64(vectors[rng.IntN(len(vectors))]))

	closest := make([]float64, len(vectors))
	for i, v := range vectors {
		closest[i] = sqDist(v, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range closest {
			total += d
		}
		pick := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range closest {
				r -= d
				if r <= 0 {
					pick = i
					break
				}
				pick = i
			}
		} else {
			pick = rng.IntN(len(vectors))
		}
		c := toFloat64(vectors[pick])
		centroids = append(centroids, c)
		for i, v := range vectors {
			closest[i] = math.Min(closest[i], sqDist(v, c))
		}
	}
	return centroids
}

// lloyd iterates assignment and update steps until centroids stop moving.
func lloyd(vectors [][]float32, centroids [][]float64) ([]int, float64) {
	labels := make([]int, len(vectors))
	dim := len(centroids[0])

	for iter := 0; iter < kmeansMaxIter; iter++ {
		for i, v := range vectors {
			labels[i] = nearest(v, centroids)
		}

		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			c := labels[i]
			counts[c]++
			for d := 0; d < dim && d < len(v); d++ {
				sums[c][d] += float64(v[d])
			}
		}

		var shift float64
		for c := range centroids {
			if counts[c] == 0 {
				continue // empty cluster keeps its centroid
			}
			for d := range sums[c] {
				nv := sums[c][d] / float64(counts[c])
				delta := nv - centroids[c][d]
				shift += delta * delta
				centroids[c][d] = nv
			}
		}
		if shift <= kmeansTol*kmeansTol {
			break
		}
	}

	var inertia float64
	for i, v := range vectors {
		labels[i] = nearest(v, centroids)
		inertia += sqDist(v, centroids[labels[i]])
	}
	return labels, inertia
}

func nearest(v []float32, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(v, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(v []float32, c []float64) float64 {
	var sum float64
	for i := 0; i < len(v) && i < len(c); i++ {
		d := float64(v[i]) - c[i]
		sum += d * d
	}
	return sum
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
