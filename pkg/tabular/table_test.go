package tabular

import "testing"

func TestAppendAndAccess(t *testing.T) {
	table := New("EventId", "EventTemplate", "Occurrences")

	if err := table.Append("1", "user <*> login", "3"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := table.Append("2", "send <*> bytes", "7"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}

	v, ok := table.Value(1, "EventTemplate")
	if !ok || v != "send <*> bytes" {
		t.Errorf("Value(1, EventTemplate) = %q, %v", v, ok)
	}

	n, err := table.Int(0, "Occurrences")
	if err != nil || n != 3 {
		t.Errorf("Int(0, Occurrences) = %d, %v", n, err)
	}

	if _, ok := table.Value(0, "NoSuchColumn"); ok {
		t.Error("Value() on unknown column should report false")
	}
}

func TestAppendColumnMismatch(t *testing.T) {
	table := New("A", "B")
	if err := table.Append("only-one"); err == nil {
		t.Error("Append() with wrong arity should fail")
	}
}

func TestExtend(t *testing.T) {
	a := New("X", "Y")
	a.Append("1", "2")
	b := New("X", "Y")
	b.Append("3", "4")

	if err := a.Extend(b); err != nil {
		t.Fatalf("Extend() error = %v", err)
	}
	if a.Len() != 2 {
		t.Errorf("Len() after Extend = %d, want 2", a.Len())
	}

	c := New("X", "Z")
	if err := a.Extend(c); err == nil {
		t.Error("Extend() with mismatched columns should fail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	a := New("X")
	a.Append("1")

	b := a.Clone()
	b.Rows[0][0] = "changed"
	b.Append("2")

	if v, _ := a.Value(0, "X"); v != "1" {
		t.Errorf("original mutated through clone: %q", v)
	}
	if a.Len() != 1 {
		t.Errorf("original row count changed: %d", a.Len())
	}
}
