// Package store keeps a drawn pipeline graph in the order its stages were
// prepared.
package store

import (
	"slices"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
)

// CustomStore is a graph store listing vertices and edges in insertion order
// and allowing vertex properties to be updated in place.
type CustomStore[K comparable, T any] interface {
	graph.Store[K, T]
	UpdateVertex(k K, options ...func(*graph.VertexProperties)) error
}

type edgeKey[K comparable] struct {
	source, target K
}

type MemoryStore[K comparable, T any] struct {
	vertices         map[K]T
	vertexProperties map[K]*graph.VertexProperties
	edges            map[edgeKey[K]]graph.Edge[K]
	// inEdges maps a target to its sources.
	inEdges     map[K]map[K]struct{}
	vertexOrder []K
	edgeOrder   []edgeKey[K]
	lock        sync.RWMutex
}

func NewMemoryStore[K comparable, T any]() CustomStore[K, T] {
	return &MemoryStore[K, T]{
		vertices:         make(map[K]T),
		vertexProperties: make(map[K]*graph.VertexProperties),
		edges:            make(map[edgeKey[K]]graph.Edge[K]),
		inEdges:          make(map[K]map[K]struct{}),
	}
}

func (s *MemoryStore[K, T]) AddVertex(k K, t T, p graph.VertexProperties) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; ok {
		return graph.ErrVertexAlreadyExists
	}

	if p.Attributes == nil {
		p.Attributes = make(map[string]string)
	}

	s.vertices[k] = t
	s.vertexProperties[k] = &p
	s.vertexOrder = append(s.vertexOrder, k)

	return nil
}

// ListVertices returns the vertices in the order they were added.
func (s *MemoryStore[K, T]) ListVertices() ([]K, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return slices.Clone(s.vertexOrder), nil
}

func (s *MemoryStore[K, T]) VertexCount() (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.vertices), nil
}

// Vertex returns a copy of the vertex properties.
func (s *MemoryStore[K, T]) Vertex(k K) (T, graph.VertexProperties, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	v, ok := s.vertices[k]
	if !ok {
		return v, graph.VertexProperties{}, graph.ErrVertexNotFound
	}

	p := *s.vertexProperties[k]
	p.Attributes = make(map[string]string, len(s.vertexProperties[k].Attributes))

	for key, value := range s.vertexProperties[k].Attributes {
		p.Attributes[key] = value
	}

	return v, p, nil
}

// UpdateVertex applies options to the stored properties of k.
func (s *MemoryStore[K, T]) UpdateVertex(k K, options ...func(*graph.VertexProperties)) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	p, ok := s.vertexProperties[k]
	if !ok {
		return errors.Wrapf(graph.ErrVertexNotFound, "%v", k)
	}

	for _, opt := range options {
		opt(p)
	}

	return nil
}

func (s *MemoryStore[K, T]) RemoveVertex(k K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vertices[k]; !ok {
		return graph.ErrVertexNotFound
	}

	if len(s.inEdges[k]) > 0 {
		return graph.ErrVertexHasEdges
	}

	for _, key := range s.edgeOrder {
		if key.source == k {
			return graph.ErrVertexHasEdges
		}
	}

	delete(s.inEdges, k)
	delete(s.vertices, k)
	delete(s.vertexProperties, k)
	s.vertexOrder = slices.DeleteFunc(s.vertexOrder, func(v K) bool { return v == k })

	return nil
}

func (s *MemoryStore[K, T]) AddEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := edgeKey[K]{source: sourceHash, target: targetHash}
	if _, ok := s.edges[key]; ok {
		return graph.ErrEdgeAlreadyExists
	}

	s.edges[key] = edge
	s.edgeOrder = append(s.edgeOrder, key)

	if _, ok := s.inEdges[targetHash]; !ok {
		s.inEdges[targetHash] = make(map[K]struct{})
	}

	s.inEdges[targetHash][sourceHash] = struct{}{}

	return nil
}

func (s *MemoryStore[K, T]) UpdateEdge(sourceHash, targetHash K, edge graph.Edge[K]) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := edgeKey[K]{source: sourceHash, target: targetHash}
	if _, ok := s.edges[key]; !ok {
		return graph.ErrEdgeNotFound
	}

	s.edges[key] = edge

	return nil
}

func (s *MemoryStore[K, T]) RemoveEdge(sourceHash, targetHash K) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := edgeKey[K]{source: sourceHash, target: targetHash}
	delete(s.edges, key)
	delete(s.inEdges[targetHash], sourceHash)
	s.edgeOrder = slices.DeleteFunc(s.edgeOrder, func(e edgeKey[K]) bool { return e == key })

	return nil
}

func (s *MemoryStore[K, T]) Edge(sourceHash, targetHash K) (graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	edge, ok := s.edges[edgeKey[K]{source: sourceHash, target: targetHash}]
	if !ok {
		return graph.Edge[K]{}, graph.ErrEdgeNotFound
	}

	return edge, nil
}

// ListEdges returns the edges in the order they were added.
func (s *MemoryStore[K, T]) ListEdges() ([]graph.Edge[K], error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	res := make([]graph.Edge[K], 0, len(s.edgeOrder))
	for _, key := range s.edgeOrder {
		res = append(res, s.edges[key])
	}

	return res, nil
}

// CreatesCycle reports whether an edge from source to target would close a
// cycle, walking the sources of source.
func (s *MemoryStore[K, T]) CreatesCycle(source, target K) (bool, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if _, ok := s.vertices[source]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "could not get vertex with hash %v", source)
	}

	if _, ok := s.vertices[target]; !ok {
		return false, errors.Wrapf(graph.ErrVertexNotFound, "could not get vertex with hash %v", target)
	}

	if source == target {
		return true, nil
	}

	stack := []K{source}
	visited := make(map[K]struct{})

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[current]; ok {
			continue
		}

		// target is already an ancestor of source
		if current == target {
			return true, nil
		}

		visited[current] = struct{}{}

		for parent := range s.inEdges[current] {
			stack = append(stack, parent)
		}
	}

	return false, nil
}

var _ CustomStore[string, string] = (*MemoryStore[string, string])(nil)
