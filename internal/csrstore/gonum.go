package csrstore

import (
	"gonum.org/v1/gonum/graph/simple"
)

// ToGonumDirected rebuilds this store's adjacency (summed across every
// socket) as a *simple.DirectedGraph, the same adapter idiom the teacher
// uses in graph-clustering-backend/src2/algorithm/coordinates/graph_adapter.go
// to hand internal adjacency to gonum for analysis. Used only by the
// `bench` CLI sub-command to cross-check CSR construction
// independently of the hand-rolled prefix-sum/placement passes.
func ToGonumDirected[P any](store *Store[P]) *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for i := 0; i < store.V; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, s := range store.Sockets {
		for v := 0; v < store.V; v++ {
			for _, rec := range s.Neighbors(uint32(v)) {
				if !g.HasEdgeFromTo(int64(v), int64(rec.Vertex)) {
					g.SetEdge(g.NewEdge(simple.Node(int64(v)), simple.Node(int64(rec.Vertex))))
				}
			}
		}
	}
	return g
}

// ToGonumUndirected is the undirected counterpart, used for the
// symmetric stores produced by BuildUndirectedFromDirected.
func ToGonumUndirected[P any](store *Store[P]) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := 0; i < store.V; i++ {
		g.AddNode(simple.Node(int64(i)))
	}
	for _, s := range store.Sockets {
		for v := 0; v < store.V; v++ {
			for _, rec := range s.Neighbors(uint32(v)) {
				if !g.HasEdgeBetween(int64(v), int64(rec.Vertex)) {
					g.SetEdge(g.NewEdge(simple.Node(int64(v)), simple.Node(int64(rec.Vertex))))
				}
			}
		}
	}
	return g
}
