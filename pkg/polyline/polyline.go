// Package polyline decodes the compact signed-delta coordinate encoding used
// by directions providers (Google's Encoded Polyline Algorithm Format).
//
// Only decoding is provided: the tracking core consumes provider-supplied
// polylines and never produces its own.
package polyline

import "fmt"

// LatLng is one decoded point, in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// precision is the standard 1e-5 multiplier used by Google-format polylines.
const precision = 1e-5

// Decode converts an encoded polyline into its coordinate sequence.
//
// Each point is a pair of deltas (lat then lng). A delta is a run of 5-bit
// groups, least significant first, with bit 0x20 signalling continuation;
// the reconstructed integer is zig-zag sign-decoded and accumulated onto
// the running lat/lng, with a final division by 1e5 for degrees.
func Decode(encoded string) ([]LatLng, error) {
	var points []LatLng
	index, lat, lng := 0, 0, 0

	for index < len(encoded) {
		dLat, next, err := decodeDelta(encoded, index)
		if err != nil {
			return nil, fmt.Errorf("polyline: lat delta at byte %d: %w", index, err)
		}
		index = next

		dLng, next, err := decodeDelta(encoded, index)
		if err != nil {
			return nil, fmt.Errorf("polyline: lng delta at byte %d: %w", index, err)
		}
		index = next

		lat += dLat
		lng += dLng
		points = append(points, LatLng{
			Lat: float64(lat) * precision,
			Lng: float64(lng) * precision,
		})
	}

	return points, nil
}

// decodeDelta reads one signed delta starting at index, returning the delta
// and the index of the byte after it.
func decodeDelta(encoded string, index int) (int, int, error) {
	shift, result := 0, 0
	for {
		if index >= len(encoded) {
			return 0, index, fmt.Errorf("truncated chunk")
		}
		b := int(encoded[index]) - 63
		if b < 0 {
			return 0, index, fmt.Errorf("byte %q out of range", encoded[index])
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Zig-zag: the low bit carries the sign.
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}
