package network

import "math/rand/v2"

type pair struct {
	a, b  int
	inter bool
}

// lattice is a mutable edge set used while generating structure. Edges are
// kept in a slice so generation order, and therefore the output for a
// given seed, is deterministic.
type lattice struct {
	n    int
	pos  map[uint64]int
	list []pair
	deg  []int
}

func newLattice(n int) *lattice {
	return &lattice{
		n:   n,
		pos: make(map[uint64]int),
		deg: make([]int, n),
	}
}

func key(a, b int) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

func (l *lattice) has(a, b int) bool {
	_, ok := l.pos[key(a, b)]
	return ok
}

func (l *lattice) add(a, b int) {
	if a > b {
		a, b = b, a
	}
	l.pos[key(a, b)] = len(l.list)
	l.list = append(l.list, pair{a: a, b: b})
	l.deg[a]++
	l.deg[b]++
}

func (l *lattice) remove(a, b int) {
	k := key(a, b)
	i, ok := l.pos[k]
	if !ok {
		return
	}
	last := len(l.list) - 1
	if i != last {
		moved := l.list[last]
		l.list[i] = moved
		l.pos[key(moved.a, moved.b)] = i
	}
	l.list = l.list[:last]
	delete(l.pos, k)
	l.deg[a]--
	l.deg[b]--
}

// wattsStrogatz builds a ring lattice over n nodes where each node links to
// its k nearest neighbours (k/2 per side), then rewires each lattice edge
// (u, u+j) to (u, w) with probability p, with w uniform over nodes that are
// neither u nor already adjacent to u. Node indices are shifted by offset.
func wattsStrogatz(n, k int, p float64, offset int, rng *rand.Rand) *lattice {
	l := newLattice(n)
	half := k / 2
	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			l.add(u, (u+j)%n)
		}
	}

	for j := 1; j <= half; j++ {
		for u := 0; u < n; u++ {
			if rng.Float64() >= p {
				continue
			}
			if l.deg[u] >= n-1 {
				continue
			}
			v := (u + j) % n
			if !l.has(u, v) {
				continue
			}
			w := rng.IntN(n)
			for w == u || l.has(u, w) {
				w = rng.IntN(n)
			}
			l.remove(u, v)
			l.add(u, w)
		}
	}

	if offset != 0 {
		for i := range l.list {
			l.list[i].a += offset
			l.list[i].b += offset
		}
	}
	return l
}
