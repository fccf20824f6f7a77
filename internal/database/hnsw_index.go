package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/roll-call/internal/signature"
)

// HNSW graph tuning. The school-wide signature set is small (thousands), so
// the defaults lean towards recall over memory.
const hnswMaxNeighbors = 16

// DuplicateIndex is an in-memory HNSW index over every stored signature in
// the school. It backs the duplicate-enrollment check: when a new student
// enrolls a face, near neighbors across all courses reveal the same person
// registered twice.
type DuplicateIndex struct {
	graph       *hnsw.Graph[int64]
	idToStudent map[int64]*Student
	mu          sync.RWMutex
}

// NewDuplicateIndex creates an empty index.
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{
		idToStudent: make(map[int64]*Student),
	}
}

// Build replaces the index contents with the given students. Students with
// missing or undecodable signatures are skipped - the index is advisory and
// corrupt signatures are surfaced by the enrollment flow itself.
func (d *DuplicateIndex) Build(students []Student) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(students) == 0 {
		d.graph = nil
		d.idToStudent = make(map[int64]*Student)
		return nil
	}

	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	d.idToStudent = make(map[int64]*Student, len(students))

	for i := range students {
		s := &students[i]
		sig, err := signature.Decode(s.Signature)
		if err != nil {
			continue
		}
		g.Add(hnsw.MakeNode(s.ID, []float32(sig)))
		d.idToStudent[s.ID] = s
	}

	d.graph = g
	return nil
}

// Add inserts or updates a single student's signature.
func (d *DuplicateIndex) Add(s *Student) error {
	sig, err := signature.Decode(s.Signature)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.graph == nil {
		g := hnsw.NewGraph[int64]()
		g.M = hnswMaxNeighbors
		g.Ml = 1.0 / float64(hnswMaxNeighbors)
		g.Distance = hnsw.EuclideanDistance
		d.graph = g
	}

	// Graph.Add panics on an existing key, so updates go through Delete.
	if _, ok := d.idToStudent[s.ID]; ok {
		d.graph.Delete(s.ID)
	}
	d.graph.Add(hnsw.MakeNode(s.ID, []float32(sig)))
	d.idToStudent[s.ID] = s
	return nil
}

// Remove deletes a student from the index.
func (d *DuplicateIndex) Remove(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.graph != nil {
		d.graph.Delete(id)
	}
	delete(d.idToStudent, id)
}

// Neighbor is one near-duplicate candidate returned by Search.
type Neighbor struct {
	Student  *Student
	Distance float64
}

// Search returns up to k students whose signatures lie within maxDistance of
// the query, nearest first.
func (d *DuplicateIndex) Search(query signature.Signature, k int, maxDistance float64) ([]Neighbor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.graph == nil {
		return nil, errors.New("index not initialized")
	}

	nodes := d.graph.Search([]float32(query), k)

	var neighbors []Neighbor
	for _, n := range nodes {
		student, ok := d.idToStudent[n.Key]
		if !ok || len(n.Value) == 0 {
			continue
		}
		dist, err := signature.EuclideanDistance(query, signature.Signature(n.Value))
		if err != nil {
			continue
		}
		if dist <= maxDistance {
			neighbors = append(neighbors, Neighbor{Student: student, Distance: dist})
		}
	}
	return neighbors, nil
}

// Count returns the number of indexed signatures.
func (d *DuplicateIndex) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.idToStudent)
}
