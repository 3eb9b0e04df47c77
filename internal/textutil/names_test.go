package textutil

import "testing"

func TestFirstName(t *testing.T) {
	names := map[string]string{
		"Jane Doe":        "Jane",
		"  Madonna  ":     "Madonna",
		"":                "",
		"Jean Luc Picard": "Jean",
	}
	for input, want := range names {
		if got := FirstName(input); got != want {
			t.Fatalf("FirstName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"bob_smith+notes@corp.example", "Bob Smith"},
		{"alice@example.com", "Alice"},
		{"x2@example.com", "X"},
		{"123@example.com", "123"},
	}
	for _, tc := range tests {
		if got := NameFromEmail(tc.email); got != tc.want {
			t.Fatalf("NameFromEmail(%q) = %q, want %q", tc.email, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("unexpected rune truncation: %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
	if got := Truncate("anything", 0); got != "anything" {
		t.Fatalf("expected zero limit to be ignored, got %q", got)
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("unexpected ternary result")
	}
}
