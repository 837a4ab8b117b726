package polyline

import (
	"math"
	"testing"
)

// Published example from the Google polyline format documentation:
// (38.5, -120.2), (40.7, -120.95), (43.252, -126.453).
const googleFixture = "_p~iF~ps|U_ulLnnqC_mqNvxq`@"

func TestDecodeGoogleFixture(t *testing.T) {
	want := []LatLng{
		{38.5, -120.2},
		{40.7, -120.95},
		{43.252, -126.453},
	}

	got, err := Decode(googleFixture)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d points, want %d", len(got), len(want))
	}
	for i := range want {
		// Exact to 5 decimal places (the encoding's native precision).
		if math.Abs(got[i].Lat-want[i].Lat) > 1e-5 || math.Abs(got[i].Lng-want[i].Lng) > 1e-5 {
			t.Errorf("point %d = (%v, %v), want (%v, %v)", i, got[i].Lat, got[i].Lng, want[i].Lat, want[i].Lng)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	got, err := Decode("")
	if err != nil {
		t.Fatalf("Decode(\"\") returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d points from empty input, want 0", len(got))
	}
}

func TestDecodeSinglePoint(t *testing.T) {
	// Encodes the single point (38.5, -120.2).
	got, err := Decode("_p~iF~ps|U")
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("decoded %d points, want 1", len(got))
	}
	if math.Abs(got[0].Lat-38.5) > 1e-5 || math.Abs(got[0].Lng+120.2) > 1e-5 {
		t.Errorf("point = (%v, %v), want (38.5, -120.2)", got[0].Lat, got[0].Lng)
	}
}

func TestDecodeTruncatedInput(t *testing.T) {
	// Cut mid-chunk: the continuation bit promises more bytes.
	if _, err := Decode("_p~iF~"); err == nil {
		t.Fatal("expected error for truncated input, got nil")
	}
}
