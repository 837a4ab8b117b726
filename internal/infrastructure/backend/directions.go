package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
	"github.com/quickserve/driver-tracking/pkg/polyline"
)

// DirectionsProvider implements ports.DirectionsProvider and ports.Geocoder
// through the backend's directions proxy (Google-format payloads).
type DirectionsProvider struct {
	client *Client
}

func NewDirectionsProvider(client *Client) *DirectionsProvider {
	return &DirectionsProvider{client: client}
}

type latLngResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type directionsResponse struct {
	Status string `json:"status"`
	Routes []struct {
		WaypointOrder    []int `json:"waypoint_order"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Duration struct {
				Value int `json:"value"` // seconds
			} `json:"duration"`
			Distance struct {
				Value int `json:"value"` // metres
			} `json:"distance"`
			EndLocation latLngResponse `json:"end_location"`
			EndAddress  string         `json:"end_address"`
			Steps       []struct {
				HTMLInstructions string         `json:"html_instructions"`
				StartLocation    latLngResponse `json:"start_location"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions requests a leg-by-leg breakdown for the given stops.
func (p *DirectionsProvider) Directions(ctx context.Context, req ports.DirectionsRequest) (*ports.DirectionsRoute, error) {
	params := url.Values{}
	params.Set("origin", formatCoordinate(req.Origin))
	params.Set("destination", formatCoordinate(req.Destination))
	if req.Language != "" {
		params.Set("language", req.Language)
	}
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.OptimizeWaypoints {
			parts = append(parts, "optimize:true")
		}
		for _, wp := range req.Waypoints {
			parts = append(parts, formatCoordinate(wp))
		}
		params.Set("waypoints", strings.Join(parts, "|"))
	}

	path := "/drivers/google-directions?" + params.Encode()
	resp, err := p.client.doWithRetry(ctx, func() (*http.Request, error) {
		return p.client.newRequest(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}

	var raw directionsResponse
	if err := decodeJSON(resp, &raw); err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	if len(raw.Routes) == 0 {
		return nil, fmt.Errorf("directions: provider returned no route (status %q)", raw.Status)
	}

	return p.mapRoute(raw)
}

func (p *DirectionsProvider) mapRoute(raw directionsResponse) (*ports.DirectionsRoute, error) {
	r := raw.Routes[0]
	out := &ports.DirectionsRoute{WaypointOrder: r.WaypointOrder}

	for _, leg := range r.Legs {
		out.Legs = append(out.Legs, ports.DirectionsLeg{
			DurationMin: (leg.Duration.Value + 59) / 60,
			DistanceKm:  float64(leg.Distance.Value) / 1000,
			EndLocation: domain.Coordinates{Lat: leg.EndLocation.Lat, Lng: leg.EndLocation.Lng},
			EndAddress:  leg.EndAddress,
		})
		for _, step := range leg.Steps {
			out.Steps = append(out.Steps, ports.DirectionsStep{
				Instruction: stripHTML(step.HTMLInstructions),
				Lat:         step.StartLocation.Lat,
				Lng:         step.StartLocation.Lng,
			})
		}
	}

	if pts := r.OverviewPolyline.Points; pts != "" {
		decoded, err := polyline.Decode(pts)
		if err != nil {
			return nil, fmt.Errorf("directions: overview polyline: %w", err)
		}
		out.OverviewPath = make([]domain.Coordinates, 0, len(decoded))
		for _, pt := range decoded {
			out.OverviewPath = append(out.OverviewPath, domain.Coordinates{Lat: pt.Lat, Lng: pt.Lng})
		}
	}

	return out, nil
}

type geocodeResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocode resolves a free-text query. An empty payload means "no result",
// reported through the boolean rather than an error.
func (p *DirectionsProvider) Geocode(ctx context.Context, query string) (domain.Coordinates, bool, error) {
	params := url.Values{}
	params.Set("q", query)

	path := "/drivers/geocode?" + params.Encode()
	resp, err := p.client.doWithRetry(ctx, func() (*http.Request, error) {
		return p.client.newRequest(ctx, http.MethodGet, path, nil)
	})
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: %w", err)
	}

	var raw geocodeResponse
	if err := decodeJSON(resp, &raw); err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("geocode: %w", err)
	}

	coords := domain.Coordinates{Lat: raw.Lat, Lng: raw.Lng}
	if coords.IsZero() {
		return domain.Coordinates{}, false, nil
	}
	return coords, true, nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagPattern.ReplaceAllString(s, " "))
}

func formatCoordinate(c domain.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
