package csrstore

// BuildDirected constructs the outgoing and incoming CSR stores for a
// directed graph from the same edge list (spec §3 "Per-direction CSR
// (outgoing and, for directed graphs, incoming)"; spec §6 "load_directed").
func BuildDirected[P any](v, numSockets int, socket socketOf, edges []Edge[P]) (out, in *Store[P], err error) {
	out, err = Build(v, numSockets, socket, edges, func(e Edge[P]) (uint32, uint32) { return e.Src, e.Dst })
	if err != nil {
		return nil, nil, err
	}
	in, err = Build(v, numSockets, socket, edges, func(e Edge[P]) (uint32, uint32) { return e.Dst, e.Src })
	if err != nil {
		return nil, nil, err
	}
	return out, in, nil
}

// BuildUndirectedFromDirected constructs a single CSR store shared by
// both directions from a directed edge file that lists each undirected
// edge once, by adding the reciprocal (dst, src) record for every (src,
// dst) record before building (spec §6 "load_undirected_from_directed";
// spec §8 scenario 5: every vertex ends up with out_degree == in_degree).
func BuildUndirectedFromDirected[P any](v, numSockets int, socket socketOf, edges []Edge[P]) (*Store[P], error) {
	doubled := make([]Edge[P], 0, 2*len(edges))
	for _, e := range edges {
		doubled = append(doubled, e, Edge[P]{Src: e.Dst, Dst: e.Src, Payload: e.Payload})
	}
	return Build(v, numSockets, socket, doubled, func(e Edge[P]) (uint32, uint32) { return e.Src, e.Dst })
}
