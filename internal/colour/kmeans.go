package colour

import (
	"math"
	"math/rand"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Cluster is one group of similar pixels found by k-means.
type Cluster struct {
	Colour RGB
	// Weight is the share of sampled pixels assigned to the cluster (0-1).
	Weight float64
}

// KMeans clusters pixels in CIE Lab space.
// Runs are reproducible: the same pixels and seed give the same clusters.
type KMeans struct {
	maxIterations int
	convergence   float64
}

// NewKMeans creates a KMeans with default settings.
func NewKMeans() *KMeans {
	return &KMeans{
		maxIterations: 20,
		convergence:   0.001,
	}
}

// point3D represents a point in Lab colour space.
type point3D struct {
	L, A, B float64
}

func (p point3D) distance(other point3D) float64 {
	dl := p.L - other.L
	da := p.A - other.A
	db := p.B - other.B
	return math.Sqrt(dl*dl + da*da + db*db)
}

func toLab(rgb RGB) point3D {
	c := colorful.Color{R: float64(rgb.R) / 255, G: float64(rgb.G) / 255, B: float64(rgb.B) / 255}
	l, a, b := c.Lab()
	return point3D{L: l, A: a, B: b}
}

func fromLab(p point3D) RGB {
	r, g, b := colorful.Lab(p.L, p.A, p.B).Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// LabDistance returns the Euclidean distance between two colours in Lab space.
func LabDistance(a, b RGB) float64 {
	return toLab(a).distance(toLab(b))
}

// Cluster groups pixels into at most k clusters, ordered by descending
// weight. When the pixels contain k or fewer distinct colours each colour
// becomes its own cluster.
func (e *KMeans) Cluster(pixels []RGB, k int, seed int64) []Cluster {
	if len(pixels) == 0 || k < 1 {
		return nil
	}

	// Distinct colours in first-seen order.
	counts := make(map[RGB]int)
	unique := make([]RGB, 0, k+1)
	for _, p := range pixels {
		if counts[p] == 0 {
			unique = append(unique, p)
		}
		counts[p]++
	}

	total := float64(len(pixels))
	if len(unique) <= k {
		clusters := make([]Cluster, len(unique))
		for i, c := range unique {
			clusters[i] = Cluster{Colour: c, Weight: float64(counts[c]) / total}
		}
		sortClusters(clusters)
		return clusters
	}

	points := make([]point3D, len(pixels))
	for i, p := range pixels {
		points[i] = toLab(p)
	}

	rng := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible clustering, not security sensitive
	centroids := e.initializeCentroids(points, k, rng)
	assignments := make([]int, len(points))

	for iter := 0; iter < e.maxIterations; iter++ {
		changed := 0
		for i, point := range points {
			nearest := nearestCentroid(point, centroids)
			if assignments[i] != nearest {
				assignments[i] = nearest
				changed++
			}
		}
		if iter > 0 && changed == 0 {
			break
		}

		next := recalculateCentroids(points, assignments, k, rng)
		movement := 0.0
		for i := range centroids {
			movement += centroids[i].distance(next[i])
		}
		centroids = next
		if movement/float64(k) < e.convergence {
			break
		}
	}

	weights := make([]float64, k)
	for _, a := range assignments {
		weights[a]++
	}

	clusters := make([]Cluster, 0, k)
	for i, c := range centroids {
		if weights[i] == 0 {
			continue
		}
		clusters = append(clusters, Cluster{Colour: fromLab(c), Weight: weights[i] / total})
	}
	sortClusters(clusters)
	return clusters
}

func sortClusters(clusters []Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Weight > clusters[j].Weight
	})
}

// initializeCentroids picks starting centroids with k-means++.
func (e *KMeans) initializeCentroids(points []point3D, k int, rng *rand.Rand) []point3D {
	centroids := make([]point3D, 0, k)
	centroids = append(centroids, points[rng.Intn(len(points))])

	distances := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, point := range points {
			minDist := math.MaxFloat64
			for _, centroid := range centroids {
				minDist = math.Min(minDist, point.distance(centroid))
			}
			distances[i] = minDist * minDist
			total += distances[i]
		}

		if total == 0 {
			last := centroids[len(centroids)-1]
			centroids = append(centroids, point3D{L: last.L + 0.001, A: last.A, B: last.B})
			continue
		}

		target := rng.Float64() * total
		cumulative := 0.0
		picked := len(points) - 1
		for i, dist := range distances {
			cumulative += dist
			if cumulative >= target {
				picked = i
				break
			}
		}
		centroids = append(centroids, points[picked])
	}

	return centroids
}

func nearestCentroid(point point3D, centroids []point3D) int {
	minDist := math.MaxFloat64
	nearest := 0
	for i, centroid := range centroids {
		if dist := point.distance(centroid); dist < minDist {
			minDist = dist
			nearest = i
		}
	}
	return nearest
}

func recalculateCentroids(points []point3D, assignments []int, k int, rng *rand.Rand) []point3D {
	sums := make([]point3D, k)
	counts := make([]int, k)
	for i, point := range points {
		c := assignments[i]
		sums[c].L += point.L
		sums[c].A += point.A
		sums[c].B += point.B
		counts[c]++
	}

	centroids := make([]point3D, k)
	for i := range k {
		if counts[i] == 0 {
			// Empty cluster - reseed from the deterministic source.
			centroids[i] = points[rng.Intn(len(points))]
			continue
		}
		n := float64(counts[i])
		centroids[i] = point3D{L: sums[i].L / n, A: sums[i].A / n, B: sums[i].B / n}
	}
	return centroids
}
