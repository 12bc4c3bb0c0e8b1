package codec

import (
	"testing"
	"time"
)

// testFactories contains factory functions for all serializer
// implementations to be tested
var testFactories = map[string]func() ISerializer{
	"json": NewJSONSerializer,
	"gob":  NewGOBSerializer,
}

type payload struct {
	Email string
	Keys  []string
	Date  time.Time
}

func TestRoundTrip(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			s := factory()

			in := payload{
				Email: "buyer@example.com",
				Keys:  []string{"AAAA-BBBB", "CCCC-DDDD"},
				Date:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}

			raw, err := s.Serialize(in)
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}

			var out payload
			if err := s.Deserialize(raw, &out); err != nil {
				t.Fatalf("deserialize: %v", err)
			}

			if out.Email != in.Email || len(out.Keys) != 2 || !out.Date.Equal(in.Date) {
				t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
			}
		})
	}
}

func TestDeserializeGarbage(t *testing.T) {
	for name, factory := range testFactories {
		t.Run(name, func(t *testing.T) {
			var out payload
			if err := factory().Deserialize([]byte("not a valid blob"), &out); err == nil {
				t.Error("expected an error for garbage input")
			}
		})
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"", "json", "gob"} {
		s, err := Get(name)
		if err != nil || s == nil {
			t.Errorf("Get(%q): %v", name, err)
		}
	}
	if _, err := Get("xml"); err == nil {
		t.Error("expected an error for an unknown codec")
	}
}
