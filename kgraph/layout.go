package kgraph

import (
	"hash/fnv"
	"math"
)

// Point is a node position in the unit square.
type Point struct {
	X float64
	Y float64
}

const layoutIterations = 60

// Layout assigns deterministic positions in [0,1)x[0,1) using a
// force-directed pass. Initial placement is seeded from node ids, so the
// same graph always gets the same picture.
func Layout(g *Sanitized) map[string]Point {
	n := len(g.Nodes)
	positions := make(map[string]Point, n)
	if n == 0 {
		return positions
	}

	ids := make([]string, n)
	index := make(map[string]int, n)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, node := range g.Nodes {
		ids[i] = node.Data.ID
		index[node.Data.ID] = i
		xs[i], ys[i] = seedPosition(node.Data.ID)
	}
	if n == 1 {
		positions[ids[0]] = Point{X: 0.5, Y: 0.5}
		return positions
	}

	k := math.Sqrt(1.0 / float64(n))
	temperature := 0.1
	cooling := temperature / float64(layoutIterations)

	dispX := make([]float64, n)
	dispY := make([]float64, n)
	for iter := 0; iter < layoutIterations; iter++ {
		for i := range dispX {
			dispX[i], dispY[i] = 0, 0
		}
		// Repulsion between every pair.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				dx := xs[i] - xs[j]
				dy := ys[i] - ys[j]
				dist := math.Hypot(dx, dy)
				if dist < 1e-6 {
					dist = 1e-6
					dx = 1e-6
				}
				force := k * k / dist
				dispX[i] += dx / dist * force
				dispY[i] += dy / dist * force
				dispX[j] -= dx / dist * force
				dispY[j] -= dy / dist * force
			}
		}
		// Attraction along edges.
		for _, e := range g.Edges {
			i, oki := index[e.Data.Source]
			j, okj := index[e.Data.Target]
			if !oki || !okj || i == j {
				continue
			}
			dx := xs[i] - xs[j]
			dy := ys[i] - ys[j]
			dist := math.Hypot(dx, dy)
			if dist < 1e-6 {
				continue
			}
			force := dist * dist / k
			dispX[i] -= dx / dist * force
			dispY[i] -= dy / dist * force
			dispX[j] += dx / dist * force
			dispY[j] += dy / dist * force
		}
		for i := 0; i < n; i++ {
			disp := math.Hypot(dispX[i], dispY[i])
			if disp < 1e-6 {
				continue
			}
			limited := math.Min(disp, temperature)
			xs[i] += dispX[i] / disp * limited
			ys[i] += dispY[i] / disp * limited
			xs[i] = math.Min(0.95, math.Max(0.05, xs[i]))
			ys[i] = math.Min(0.95, math.Max(0.05, ys[i]))
		}
		temperature -= cooling
	}

	for i, id := range ids {
		positions[id] = Point{X: xs[i], Y: ys[i]}
	}
	return positions
}

// seedPosition hashes an id to a stable point in the unit square.
func seedPosition(id string) (float64, float64) {
	h := fnv.New64a()
	h.Write([]byte(id))
	sum := h.Sum64()
	x := float64(sum&0xFFFFFFFF) / float64(0x100000000)
	y := float64(sum>>32) / float64(0x100000000)
	return 0.05 + 0.9*x, 0.05 + 0.9*y
}
