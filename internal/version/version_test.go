// ABOUTME: Tests for version identity
// ABOUTME: Ensures the reported strings are populated and well formed
package version

import (
	"strings"
	"testing"
)

func TestIdentityDefined(t *testing.T) {
	for name, value := range map[string]string{
		"Version":      Version,
		"Product":      Product,
		"Manufacturer": Manufacturer,
	} {
		if value == "" {
			t.Errorf("%s should not be empty", name)
		}
		if len(value) > 100 {
			t.Errorf("%s is unreasonably long", name)
		}
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, Product+" ") {
		t.Errorf("expected %q to start with product name", s)
	}
	if !strings.HasSuffix(s, Version) {
		t.Errorf("expected %q to end with version", s)
	}
}
