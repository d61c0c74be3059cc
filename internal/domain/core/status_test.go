package core

import "testing"

func TestParseEmploymentStatus(t *testing.T) {
	for _, valid := range []string{"probationary", "regular", "contractual"} {
		if _, err := ParseEmploymentStatus(valid); err != nil {
			t.Fatalf("expected %q to parse, got %v", valid, err)
		}
	}
	if _, err := ParseEmploymentStatus("intern"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestPromote(t *testing.T) {
	next, err := StatusProbationary.Promote()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != StatusRegular {
		t.Fatalf("expected regular, got %q", next)
	}

	if _, err := StatusRegular.Promote(); err == nil {
		t.Fatal("expected error promoting a regular employee")
	}
	if _, err := StatusContractual.Promote(); err == nil {
		t.Fatal("expected error promoting a contractual employee")
	}
}
