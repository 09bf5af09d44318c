package vm

import "testing"

func TestNameTableIntern(t *testing.T) {
	nt := NewNameTable()

	x := nt.Intern("x")
	if x == NoName {
		t.Fatalf("Intern returned the reserved sentinel")
	}
	if again := nt.Intern("x"); again != x {
		t.Errorf("Intern(x) twice = %d, %d", x, again)
	}
	if y := nt.Intern("y"); y == x {
		t.Errorf("distinct strings share a name")
	}
	if got := nt.String(x); got != "x" {
		t.Errorf("String(x) = %q, want %q", got, "x")
	}
	if nt.Len() != 2 {
		t.Errorf("Len() = %d, want 2", nt.Len())
	}
	if _, ok := nt.Lookup("missing"); ok {
		t.Errorf("Lookup interned a name")
	}
	if nt.String(NoName) != "" {
		t.Errorf("String(NoName) should be empty")
	}
}

func TestNameTableArrayIndex(t *testing.T) {
	nt := NewNameTable()
	tests := []struct {
		s    string
		want uint32
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"4294967294", 4294967294, true},
		{"4294967295", 0, false},
		{"042", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"length", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := nt.ArrayIndex(nt.Intern(tt.s))
		if got != tt.want || ok != tt.ok {
			t.Errorf("ArrayIndex(%q) = %d, %v; want %d, %v", tt.s, got, ok, tt.want, tt.ok)
		}
	}
}
