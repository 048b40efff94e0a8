package graph

import "testing"

func TestDeepCopyIsolation(t *testing.T) {
	original := testState{Log: []string{"a", "b"}, Val: "x"}

	copied, err := deepCopy(original)
	if err != nil {
		t.Fatalf("deepCopy: %v", err)
	}

	copied.Log[0] = "mutated"
	copied.Val = "changed"

	if original.Log[0] != "a" {
		t.Errorf("mutation leaked into original log: %v", original.Log)
	}
	if original.Val != "x" {
		t.Errorf("mutation leaked into original val: %s", original.Val)
	}
}

func TestDeepCopyUncopyableState(t *testing.T) {
	_, err := deepCopy(map[string]any{"bad": func() {}})
	if err == nil {
		t.Fatal("expected error for non-serializable state")
	}
}
