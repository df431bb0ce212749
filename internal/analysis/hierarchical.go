package analysis

import "github.com/timmy/citelens/internal/vecmath"

// agglomerate runs average-linkage agglomerative clustering on cosine distance.
// With numClusters > 0 it merges until that many clusters remain; otherwise it
// merges while the closest pair is nearer than threshold. It returns one label
// per vector.
func agglomerate(vectors [][]float32, numClusters int, threshold float64) []int {
	n := len(vectors)
	sim := vecmath.SimilarityMatrix(vectors)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			dist[i][j] = 1 - sim[i][j]
		}
	}

	// cluster c is alive while size[c] > 0; members are merged into the lower index
	size := make([]int, n)
	labels := make([]int, n)
	for i := range size {
		size[i] = 1
		labels[i] = i
	}
	alive := n
	target := max(numClusters, 1)

	for alive > 1 {
		if numClusters > 0 && alive <= target {
			break
		}
		a, b, best := -1, -1, 0.0
		for i := 0; i < n; i++ {
			if size[i] == 0 {
				continue
			}
			for j := i + 1; j < n; j++ {
				if size[j] == 0 {
					continue
				}
				if a < 0 || dist[i][j] < best {
					a, b, best = i, j, dist[i][j]
				}
			}
		}
		if numClusters <= 0 && best >= threshold {
			break
		}

		// Lance-Williams update for average linkage
		sa, sb := float64(size[a]), float64(size[b])
		for k := 0; k < n; k++ {
			if size[k] == 0 || k == a || k == b {
				continue
			}
			d := (sa*dist[a][k] + sb*dist[b][k]) / (sa + sb)
			dist[a][k], dist[k][a] = d, d
		}
		size[a] += size[b]
		size[b] = 0
		for i := range labels {
			if labels[i] == b {
				labels[i] = a
			}
		}
		alive--
	}
	return labels
}
