package slotref

import (
	"errors"
	"testing"
	"time"
)

func TestVirtualRoundTrip(t *testing.T) {
	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	ref := ForVirtual("apt-1", date, 9*60)

	encoded := ref.Encode()
	if encoded != "v:apt-1:2025-01-06:09:00" {
		t.Fatalf("unexpected encoding: %s", encoded)
	}

	parsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed.Kind != Virtual {
		t.Fatal("expected virtual ref")
	}
	if parsed.AppointmentID != "apt-1" || !parsed.Date.Equal(date) || parsed.StartMinute != 540 {
		t.Fatalf("round trip mismatch: %+v", parsed)
	}
}

func TestRealRoundTrip(t *testing.T) {
	ref, err := Parse("7d9f3b1c-real-slot-id")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if ref.Kind != Real || ref.SlotID != "7d9f3b1c-real-slot-id" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if ref.Encode() != "7d9f3b1c-real-slot-id" {
		t.Fatalf("unexpected encoding: %s", ref.Encode())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"v:",
		"v::2025-01-06:09:00",
		"v:apt-1:06-01-2025:09:00",
		"v:apt-1:2025-01-06:9am",
		"v:apt-1:2025-01-06",
		"not-virtual:but-has:colons",
	}
	for _, c := range cases {
		if _, err := Parse(c); !errors.Is(err, ErrMalformed) {
			t.Fatalf("expected ErrMalformed for %q, got %v", c, err)
		}
	}
}
