package database

import (
	"testing"

	"github.com/kozaktomas/roll-call/internal/signature"
)

func indexedStudent(id int64, sig signature.Signature) Student {
	return Student{
		ID:        id,
		Name:      "Student",
		Signature: signature.Encode(sig),
		IsActive:  true,
	}
}

func TestDuplicateIndex_FindsNearDuplicate(t *testing.T) {
	idx := NewDuplicateIndex()
	err := idx.Build([]Student{
		indexedStudent(1, signature.Signature{0.1, 0.1, 0.1, 0.1}),
		indexedStudent(2, signature.Signature{0.9, 0.9, 0.9, 0.9}),
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	neighbors, err := idx.Search(signature.Signature{0.1, 0.1, 0.1, 0.12}, 5, 0.3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	if neighbors[0].Student.ID != 1 {
		t.Errorf("expected student 1, got %d", neighbors[0].Student.ID)
	}
}

func TestDuplicateIndex_MaxDistanceFilters(t *testing.T) {
	idx := NewDuplicateIndex()
	if err := idx.Build([]Student{
		indexedStudent(1, signature.Signature{1, 0, 0, 0}),
	}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	neighbors, err := idx.Search(signature.Signature{0, 0, 0, 0}, 5, 0.5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("expected no neighbors within 0.5, got %d", len(neighbors))
	}
}

func TestDuplicateIndex_SkipsMalformedSignatures(t *testing.T) {
	idx := NewDuplicateIndex()
	err := idx.Build([]Student{
		indexedStudent(1, signature.Signature{0.5, 0.5, 0.5, 0.5}),
		{ID: 2, Signature: "not,a,signature", IsActive: true},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if idx.Count() != 1 {
		t.Errorf("expected 1 indexed signature, got %d", idx.Count())
	}
}

func TestDuplicateIndex_AddAndRemove(t *testing.T) {
	idx := NewDuplicateIndex()

	s := indexedStudent(7, signature.Signature{0.2, 0.2, 0.2, 0.2})
	if err := idx.Add(&s); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if idx.Count() != 1 {
		t.Fatalf("expected count 1 after add, got %d", idx.Count())
	}

	idx.Remove(7)
	if idx.Count() != 0 {
		t.Errorf("expected count 0 after remove, got %d", idx.Count())
	}
}

func TestDuplicateIndex_AddReplacesExisting(t *testing.T) {
	idx := NewDuplicateIndex()

	s := indexedStudent(7, signature.Signature{0.2, 0.2, 0.2, 0.2})
	if err := idx.Add(&s); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	updated := indexedStudent(7, signature.Signature{0.8, 0.8, 0.8, 0.8})
	if err := idx.Add(&updated); err != nil {
		t.Fatalf("Add of existing student failed: %v", err)
	}
	if idx.Count() != 1 {
		t.Fatalf("expected count 1 after update, got %d", idx.Count())
	}

	// Only the new vector may be found near the updated position.
	neighbors, err := idx.Search(signature.Signature{0.8, 0.8, 0.8, 0.8}, 5, 0.1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0].Student.ID != 7 {
		t.Fatalf("expected the updated signature to be indexed, got %v", neighbors)
	}

	neighbors, err = idx.Search(signature.Signature{0.2, 0.2, 0.2, 0.2}, 5, 0.1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("expected the old signature to be gone, got %v", neighbors)
	}
}

func TestDuplicateIndex_SearchUninitialized(t *testing.T) {
	idx := NewDuplicateIndex()

	if _, err := idx.Search(signature.Signature{0.1}, 1, 1.0); err == nil {
		t.Error("expected error searching an empty index")
	}
}
