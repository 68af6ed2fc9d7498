package model

import "math/rand"

// KMeans 对向量集合做 k-means 聚类，k-means++ 初始化。
// 返回质心列表与每个输入向量的簇下标。向量数不足 k 时退化为每向量一簇。
func KMeans(vectors [][]float64, k, iterations int, rng *rand.Rand) ([][]float64, []int) {
	if len(vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(vectors) {
		k = len(vectors)
	}
	if iterations <= 0 {
		iterations = 20
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	centroids := kmeansPlusPlusInit(vectors, k, rng)
	assignments := make([]int, len(vectors))

	for iter := 0; iter < iterations; iter++ {
		// 分配：每个向量归入最近质心
		changed := false
		for i, v := range vectors {
			best := 0
			bestDist := EuclideanDistance(v, centroids[0])
			for c := 1; c < len(centroids); c++ {
				if d := EuclideanDistance(v, centroids[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if iter > 0 && !changed {
			break
		}

		// 更新：质心取簇内均值；空簇保留旧质心
		dims := len(vectors[0])
		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for c := range sums {
			sums[c] = make([]float64, dims)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for d := 0; d < dims && d < len(v); d++ {
				sums[c][d] += v[d]
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			centroid := make([]float64, dims)
			for d := 0; d < dims; d++ {
				centroid[d] = sums[c][d] / float64(counts[c])
			}
			centroids[c] = centroid
		}
	}
	return centroids, assignments
}

// kmeansPlusPlusInit 按 k-means++ 策略选取初始质心：
// 首个质心均匀随机，之后每个质心按与已选质心最小距离的平方加权采样。
func kmeansPlusPlusInit(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := vectors[rng.Intn(len(vectors))]
	centroids = append(centroids, cloneVector(first))

	for len(centroids) < k {
		dists := make([]float64, len(vectors))
		var total float64
		for i, v := range vectors {
			minDist := EuclideanDistance(v, centroids[0])
			for _, c := range centroids[1:] {
				if d := EuclideanDistance(v, c); d < minDist {
					minDist = d
				}
			}
			dists[i] = minDist * minDist
			total += dists[i]
		}

		if total == 0 {
			// 所有点都与已选质心重合，随机补齐
			centroids = append(centroids, cloneVector(vectors[rng.Intn(len(vectors))]))
			continue
		}

		target := rng.Float64() * total
		var acc float64
		chosen := len(vectors) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVector(vectors[chosen]))
	}
	return centroids
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
