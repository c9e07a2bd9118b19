package reference

import (
	"regexp"
	"testing"
)

var referencePattern = regexp.MustCompile(`^TXN\d{13}[0-9A-F]{8}$`)

func TestNextFormat(t *testing.T) {
	g := NewGenerator()
	ref := g.Next()
	if !referencePattern.MatchString(ref) {
		t.Errorf("reference %q does not match expected format", ref)
	}
}

func TestNextIsUnique(t *testing.T) {
	g := NewGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		ref := g.Next()
		if seen[ref] {
			t.Fatalf("duplicate reference %q after %d draws", ref, i)
		}
		seen[ref] = true
	}
}
