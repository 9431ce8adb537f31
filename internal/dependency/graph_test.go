package dependency

import "testing"

func TestNew(t *testing.T) {
	g := New()
	if g == nil {
		t.Fatal("New() returned nil")
	}
	if g.nodes == nil {
		t.Fatal("nodes map not initialized")
	}
	if len(g.nodes) != 0 {
		t.Fatalf("expected empty nodes map, got %d nodes", len(g.nodes))
	}
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "diamond/A"})
	g.AddNode(Node{ID: "diamond/B"})
	if len(g.nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(g.nodes))
	}
}

func TestAddNodeReplacesExisting(t *testing.T) {
	g := New()
	g.AddNode(Node{ID: "diamond/A"})
	g.AddNode(Node{ID: "diamond/A"})
	if len(g.nodes) != 1 {
		t.Fatalf("expected re-adding the same ID to replace, got %d nodes", len(g.nodes))
	}
}
