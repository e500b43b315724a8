package drain

import "testing"

func TestHasDigits(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"12", true},
		{"blk_123", true},
		{"user", false},
		{"deadbeef", false}, // hex without decimal digits is not promoted
		{"<*>", false},
	}
	for _, tt := range tests {
		if got := hasDigits(tt.token); got != tt.want {
			t.Errorf("hasDigits(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestSearchMissOnUnknownLength(t *testing.T) {
	tree := newPrefixTree(2, 100)
	tree.insert(&logCluster{template: []string{"a", "b"}, members: []int{1}})

	if got := tree.search([]string{"a", "b", "c"}); got != nil {
		t.Errorf("search() on unseen length = %v, want nil", got)
	}
}

func TestDigitTokenRoutesToWildcard(t *testing.T) {
	// Effective depth 3: positions 1 and 2 route, leaves hang at depth 3.
	tree := newPrefixTree(3, 100)
	c := &logCluster{template: []string{"send", "blk_42", "done"}, members: []int{1}}
	tree.insert(c)

	sendNode := tree.lengths[3].child("send")
	if sendNode == nil {
		t.Fatal("expected child keyed by first token")
	}
	if sendNode.child("blk_42") != nil {
		t.Error("digit-bearing token must not become an exact child")
	}
	wild := sendNode.child(Wildcard)
	if wild == nil {
		t.Fatal("expected wildcard child for digit-bearing token")
	}
	if len(wild.clusters) != 1 || wild.clusters[0] != c {
		t.Errorf("leaf clusters = %v, want the inserted cluster", wild.clusters)
	}

	// A different identifier at the same position reaches the same leaf.
	got := tree.search([]string{"send", "blk_99", "done"})
	if len(got) != 1 || got[0] != c {
		t.Errorf("search() = %v, want the inserted cluster", got)
	}
}

func TestMaxChildrenOverflow(t *testing.T) {
	tree := newPrefixTree(2, 3)

	for i, first := range []string{"alpha", "beta", "gamma", "delta"} {
		tree.insert(&logCluster{template: []string{first, "x"}, members: []int{i + 1}})
	}

	lengthNode := tree.lengths[2]
	if got := len(lengthNode.children); got != 3 {
		t.Errorf("children at routing layer = %d, want 3 (bounded by max_child)", got)
	}
	if lengthNode.child(Wildcard) == nil {
		t.Error("expected wildcard child once the node filled up")
	}
	if lengthNode.child("delta") != nil {
		t.Error("overflow token must not get its own child")
	}

	// Both overflow templates land at the wildcard leaf.
	wild := lengthNode.child(Wildcard)
	if len(wild.clusters) != 2 {
		t.Errorf("wildcard leaf clusters = %d, want 2", len(wild.clusters))
	}
}

func TestLeafAtDepthCutoff(t *testing.T) {
	// Effective depth 1 (configured depth 3): the length node is the leaf.
	tree := newPrefixTree(1, 100)
	c := &logCluster{template: []string{"a", "b", "c"}, members: []int{1}}
	tree.insert(c)

	got := tree.search([]string{"a", "b", "c"})
	if len(got) != 1 || got[0] != c {
		t.Errorf("search() = %v, want the inserted cluster", got)
	}
	if len(tree.lengths[3].children) != 0 {
		t.Error("no routing children expected below the length layer at depth cutoff 1")
	}
}
