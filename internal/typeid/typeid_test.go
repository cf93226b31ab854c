package typeid

import (
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	id := NewCanvasID()
	if !strings.HasPrefix(id, PrefixCanvas+"_") {
		t.Fatalf("id %q missing %q prefix", id, PrefixCanvas)
	}
	if err := Validate(id, PrefixCanvas); err != nil {
		t.Fatalf("Validate(%q): %v", id, err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		id     string
		prefix string
	}{
		{"wrong prefix", NewNoteID(), PrefixCanvas},
		{"garbage", "not an id", PrefixNote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(tc.id, tc.prefix); err == nil {
				t.Errorf("Validate(%q, %q) = nil, want error", tc.id, tc.prefix)
			}
		})
	}
}
