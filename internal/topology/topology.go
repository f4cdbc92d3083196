// Package topology models the partition/socket shape of the cluster: how
// many partitions exist, which ones are compute vs far-memory, and which
// compute partition delegates for which far-memory partition (spec §3
// "Partition topology", GLOSSARY "Delegate").
package topology

import "fmt"

// World describes the fixed shape of the cluster for one run.
type World struct {
	P int // total partitions
	C int // compute partitions, C <= P
	S int // sockets per compute node
}

// New validates and constructs a World.
func New(p, c, s int) (World, error) {
	if p <= 0 {
		return World{}, fmt.Errorf("topology: P must be positive, got %d", p)
	}
	if c <= 0 || c > p {
		return World{}, fmt.Errorf("topology: C must satisfy 0 < C <= P, got C=%d P=%d", c, p)
	}
	if s <= 0 {
		return World{}, fmt.Errorf("topology: S must be positive, got %d", s)
	}
	return World{P: p, C: c, S: s}, nil
}

// IsCompute reports whether partition id is a compute partition.
func (w World) IsCompute(id int) bool {
	return id >= 0 && id < w.C
}

// IsFarMemory reports whether partition id is a far-memory partition.
func (w World) IsFarMemory(id int) bool {
	return id >= w.C && id < w.P
}

// Delegate returns the compute partition responsible for far-memory
// partition f: q = f mod C (GLOSSARY "Delegate"). Calling this on a
// compute partition id is a protocol violation and panics, matching the
// fatal-assertion failure model of spec §4.8.
func (w World) Delegate(f int) int {
	if !w.IsFarMemory(f) {
		panic(fmt.Sprintf("topology: Delegate called on non-far-memory partition %d", f))
	}
	return f % w.C
}

// DelegatedRanges returns the far-memory partitions that compute
// partition p stands in for: { p + k*C : k >= 1, p + k*C < P } (spec §3).
func (w World) DelegatedRanges(p int) []int {
	if !w.IsCompute(p) {
		panic(fmt.Sprintf("topology: DelegatedRanges called on non-compute partition %d", p))
	}
	var out []int
	for f := p + w.C; f < w.P; f += w.C {
		out = append(out, f)
	}
	return out
}

// ServesLocally reports whether partition i's messages are handled by
// this process's own CSR and cache state: true if i is this process's own
// compute partition, or a far-memory partition it delegates.
func (w World) ServesLocally(self, i int) bool {
	if i == self {
		return true
	}
	if w.IsFarMemory(i) {
		return w.Delegate(i) == self
	}
	return false
}

// NumFarMemory returns P - C.
func (w World) NumFarMemory() int { return w.P - w.C }
