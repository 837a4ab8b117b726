package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/api/metrics"
	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const (
	// etaMatchTol is the coordinate tolerance for attaching a leg ETA to a stop.
	etaMatchTol = 1e-5
	// pickupGroupPrecision rounds coordinates to 4 decimal places (~11 m)
	// when grouping orders that share a pickup location.
	pickupGroupPrecision = 1e4

	// Heuristic fallback used when both the directions provider and the
	// backend estimate are unavailable. Deterministic: a fixed per-route
	// constant, not jitter.
	fallbackKmPerLeg   = 2.0
	fallbackBaseKm     = 1.5
	fallbackSpeedKmh   = 30.0
	fallbackMinPerStop = 3
)

var routePolylineStyle = ports.PolylineStyle{Color: "#1A73E8", WidthPx: 4}

// AnnouncementPlanner receives the spoken-instruction plan for a freshly
// built route. Implemented by the proximity announcer.
type AnnouncementPlanner interface {
	StartSession(driverID int, steps []domain.AnnouncementStep, firstPickupETAMin *int)
}

// RouteEngine builds and owns the active multi-stop route per driver.
//
// RouteInfo is exclusively owned by the engine for the lifetime of a session;
// collaborators read snapshots and mutate only through CompleteDelivery and
// the ETA refresh, which are field-scoped by construction.
type RouteEngine struct {
	orders     ports.OrderGateway
	directions ports.DirectionsProvider
	resolver   *GeocodeResolver
	positions  ports.PositionCache
	snapshots  ports.RouteSnapshotRepository
	sink       ports.MapSink
	announcer  AnnouncementPlanner
	language   string
	log        zerolog.Logger

	mu     sync.Mutex
	routes map[int]*domain.RouteInfo
}

func NewRouteEngine(
	orders ports.OrderGateway,
	directions ports.DirectionsProvider,
	resolver *GeocodeResolver,
	positions ports.PositionCache,
	snapshots ports.RouteSnapshotRepository,
	sink ports.MapSink,
	announcer AnnouncementPlanner,
	language string,
	log zerolog.Logger,
) *RouteEngine {
	return &RouteEngine{
		orders:     orders,
		directions: directions,
		resolver:   resolver,
		positions:  positions,
		snapshots:  snapshots,
		sink:       sink,
		announcer:  announcer,
		language:   language,
		routes:     make(map[int]*domain.RouteInfo),
		log:        log,
	}
}

// Route returns the driver's current route. A cold miss falls back to the
// stored snapshot so an app reconnect after a process restart sees its
// session instead of forcing a rebuild.
func (e *RouteEngine) Route(ctx context.Context, driverID int) (*domain.RouteInfo, bool) {
	e.mu.Lock()
	if r, ok := e.routes[driverID]; ok {
		e.mu.Unlock()
		return r, true
	}
	e.mu.Unlock()

	r, err := e.snapshots.Find(ctx, driverID)
	if err != nil {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.routes[driverID]; ok {
		return cur, true
	}
	e.routes[driverID] = r
	return r, true
}

// BuildRoute computes the driver's multi-stop route from their in-flight
// orders, requests a leg-by-leg directions breakdown, and pushes the result
// to the map sink. Statuses already earned by stops of a previous build are
// carried over; a rebuild never resurrects a completed delivery.
func (e *RouteEngine) BuildRoute(ctx context.Context, driverID int) (*domain.RouteInfo, error) {
	orders, err := e.orders.ActiveOrders(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("build route: %w", err)
	}

	stops := e.assembleStops(ctx, orders)
	if len(stops) == 0 {
		return nil, domain.ErrRouteNotFound
	}

	route := &domain.RouteInfo{DriverID: driverID, Stops: stops}

	e.mu.Lock()
	if prev, ok := e.routes[driverID]; ok {
		carryOverStatuses(prev, route)
	}
	e.mu.Unlock()

	droute := e.computeETAs(ctx, route)

	e.mu.Lock()
	e.routes[driverID] = route
	e.mu.Unlock()

	e.render(route, droute)
	e.planAnnouncements(driverID, route, droute)

	if err := e.snapshots.Save(ctx, route); err != nil {
		e.log.Warn().Err(err).Int("driver_id", driverID).Msg("route snapshot save failed")
	}

	metrics.RoutesBuiltTotal.WithLabelValues(fmt.Sprintf("%d", len(route.Stops))).Inc()
	return route, nil
}

// RefreshETAs re-requests directions for the driver's current route and
// merges fresh arrival estimates. Stop status is untouched: a refresh that
// races a delivery completion loses only the ETA write, never the status.
func (e *RouteEngine) RefreshETAs(ctx context.Context, driverID int) (*domain.RouteInfo, error) {
	e.mu.Lock()
	route, ok := e.routes[driverID]
	e.mu.Unlock()
	if !ok {
		return nil, domain.ErrRouteNotFound
	}

	droute := e.computeETAs(ctx, route)
	e.render(route, droute)

	if err := e.snapshots.Save(ctx, route); err != nil {
		e.log.Warn().Err(err).Int("driver_id", driverID).Msg("route snapshot save failed")
	}
	return route, nil
}

// CompleteDelivery marks the delivery stop for an order completed and
// persists the transition. Pickup stops and already-completed stops are
// rejected by the domain rules.
func (e *RouteEngine) CompleteDelivery(ctx context.Context, driverID, orderID int) (*domain.DeliveryStop, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	route, ok := e.routes[driverID]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	stop := route.StopByOrder(orderID)
	if stop == nil {
		return nil, fmt.Errorf("complete delivery: order %d: %w", orderID, domain.ErrOrderNotFound)
	}
	if err := stop.MarkCompleted(); err != nil {
		return nil, err
	}

	if err := e.snapshots.UpdateStopStatus(ctx, driverID, stop.ID, domain.StopStatusCompleted); err != nil {
		e.log.Warn().Err(err).Str("stop_id", stop.ID).Msg("stop status persist failed")
	}
	e.sink.UpsertMarker(ports.MarkerUpdate{ID: stop.ID, Lat: stop.Latitude, Lng: stop.Longitude, Label: "✓"})
	return stop, nil
}

// FocusStop pans the map to a tapped stop marker.
func (e *RouteEngine) FocusStop(stopID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.routes {
		if s := r.StopByID(stopID); s != nil {
			e.sink.PanTo(s.Latitude, s.Longitude)
			return
		}
	}
}

// NextPendingDelivery resolves the swipe gesture target in multi-stop mode.
func (e *RouteEngine) NextPendingDelivery(driverID int) (*domain.DeliveryStop, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	route, ok := e.routes[driverID]
	if !ok {
		return nil, false
	}
	stop := route.NextPendingDelivery()
	return stop, stop != nil
}

// EndSession discards the driver's in-memory route and clears its layers
// from the map sink. In-flight directions results for the old session are
// ignored by virtue of the route object being unreachable.
func (e *RouteEngine) EndSession(driverID int) {
	e.mu.Lock()
	route, ok := e.routes[driverID]
	delete(e.routes, driverID)
	e.mu.Unlock()
	if !ok {
		return
	}
	e.sink.RemoveLayer(routeLayerID(driverID))
	for i := range route.Stops {
		e.sink.RemoveLayer(route.Stops[i].ID)
	}
}

// assembleStops turns in-flight orders into the ordered stop list:
// deduplicated pickups first, then one delivery per valid order.
func (e *RouteEngine) assembleStops(ctx context.Context, orders []ports.ActiveOrder) []domain.DeliveryStop {
	type pickupGroup struct {
		address  string
		coords   domain.Coordinates
		orderIDs []int
	}

	var pickups []*pickupGroup
	groupIndex := make(map[string]*pickupGroup)

	for _, o := range orders {
		pickup := domain.Coordinates{Lat: o.PickupLat, Lng: o.PickupLng}
		delivery := domain.Coordinates{Lat: o.DeliveryLat, Lng: o.DeliveryLng}

		pickup = e.resolver.EnsureCoordinates(ctx, o.PickupAddress, pickup)
		pickup = e.resolver.FixIdenticalPickup(ctx, pickup, o.PickupAddress, delivery, o.DeliveryAddress)

		key := pickupKey(pickup, o.PickupAddress)
		g, ok := groupIndex[key]
		if !ok {
			g = &pickupGroup{address: o.PickupAddress, coords: pickup}
			groupIndex[key] = g
			pickups = append(pickups, g)
		}
		g.orderIDs = append(g.orderIDs, o.ID)
	}

	var stops []domain.DeliveryStop
	for i, g := range pickups {
		// A pickup shared by several orders is not tied to a single one.
		orderID := 0
		if len(g.orderIDs) == 1 {
			orderID = g.orderIDs[0]
		}
		stops = append(stops, domain.DeliveryStop{
			ID:        fmt.Sprintf("pickup-%d", i),
			OrderID:   orderID,
			Type:      domain.StopTypePickup,
			Address:   g.address,
			Latitude:  g.coords.Lat,
			Longitude: g.coords.Lng,
			Status:    domain.StopStatusPending,
		})
	}

	for _, o := range orders {
		delivery := domain.Coordinates{Lat: o.DeliveryLat, Lng: o.DeliveryLng}
		if delivery.IsZero() {
			e.log.Warn().Int("order_id", o.ID).Str("address", o.DeliveryAddress).
				Msg("order skipped: delivery coordinates invalid")
			continue
		}
		stops = append(stops, domain.DeliveryStop{
			ID:           fmt.Sprintf("order-%d", o.ID),
			OrderID:      o.ID,
			Type:         domain.StopTypeDelivery,
			Address:      o.DeliveryAddress,
			Latitude:     delivery.Lat,
			Longitude:    delivery.Lng,
			Status:       domain.StopStatusPending,
			CustomerName: o.CustomerName,
			OrderNumber:  o.OrderNumber,
			Notes:        o.Notes,
		})
	}

	// Drop pickup-only routes with nothing to deliver.
	hasDelivery := false
	for i := range stops {
		if stops[i].Type == domain.StopTypeDelivery {
			hasDelivery = true
		}
	}
	if !hasDelivery {
		return nil
	}

	for i := range stops {
		stops[i].StopNumber = i
	}
	return stops
}

// computeETAs requests directions and attaches cumulative per-stop arrival
// estimates. On provider failure it degrades to the backend aggregate
// estimate and finally to a deterministic local heuristic, so the stop list
// stays populated under provider outage. Returns the provider route when one
// was obtained (for rendering and announcements), else nil.
func (e *RouteEngine) computeETAs(ctx context.Context, route *domain.RouteInfo) *ports.DirectionsRoute {
	stops := route.Stops
	origin, originIsStop := e.origin(ctx, route.DriverID, stops)

	if len(stops) == 1 && originIsStop {
		// Nothing to route: the only stop is the origin.
		route.Stops[0].ApplyETA(0)
		route.TotalDistance = 0
		route.TotalDuration = 0
		return nil
	}

	req, waypointStops := buildDirectionsRequest(origin, originIsStop, stops, e.language)
	droute, err := e.directions.Directions(ctx, req)
	if err != nil || len(droute.Legs) == 0 {
		if err != nil {
			e.log.Warn().Err(err).Int("driver_id", route.DriverID).Msg("directions request failed")
			metrics.DirectionsFailuresTotal.Inc()
		}
		e.applyFallbackEstimate(ctx, route)
		return nil
	}

	e.attachLegETAs(route, droute, waypointStops, originIsStop)
	return droute
}

// origin picks the driver's current position when known, else the first stop.
func (e *RouteEngine) origin(ctx context.Context, driverID int, stops []domain.DeliveryStop) (domain.Coordinates, bool) {
	if p, ok, err := e.positions.Position(ctx, driverID); err == nil && ok {
		return p.Coordinates(), false
	}
	return stops[0].Coordinates(), true
}

// buildDirectionsRequest lays out origin/waypoints/destination and returns
// the logical stop index carried by each request waypoint slot.
func buildDirectionsRequest(origin domain.Coordinates, originIsStop bool, stops []domain.DeliveryStop, language string) (ports.DirectionsRequest, []int) {
	first := 0
	if originIsStop {
		first = 1
	}
	last := len(stops) - 1

	var waypointStops []int
	var waypoints []domain.Coordinates
	for i := first; i < last; i++ {
		waypointStops = append(waypointStops, i)
		waypoints = append(waypoints, stops[i].Coordinates())
	}

	return ports.DirectionsRequest{
		Origin:            origin,
		Destination:       stops[last].Coordinates(),
		Waypoints:         waypoints,
		OptimizeWaypoints: len(waypoints) > 1,
		Language:          language,
	}, waypointStops
}

// attachLegETAs walks the response legs, remapping each one back to its
// logical stop through the provider's waypoint_order permutation, and writes
// monotonically non-decreasing cumulative estimates. Consumers must never
// assume leg order equals input order when optimization was requested.
func (e *RouteEngine) attachLegETAs(route *domain.RouteInfo, droute *ports.DirectionsRoute, waypointStops []int, originIsStop bool) {
	if originIsStop {
		route.Stops[0].ApplyETA(0)
	}

	order := droute.WaypointOrder
	if len(order) != len(waypointStops) {
		order = identityPermutation(len(waypointStops))
	}

	cumulativeMin := 0
	totalKm := 0.0
	last := len(route.Stops) - 1

	for i, leg := range droute.Legs {
		cumulativeMin += leg.DurationMin
		totalKm += leg.DistanceKm

		switch {
		case i < len(order):
			// Leg i ends at the waypoint visited i-th.
			route.Stops[waypointStops[order[i]]].ApplyETA(cumulativeMin)
		case i == len(droute.Legs)-1:
			route.Stops[last].ApplyETA(cumulativeMin)
		default:
			// Unexpected extra leg: fall back to coordinate matching.
			route.MergeETA(leg.EndLocation, leg.EndAddress, cumulativeMin, etaMatchTol)
		}
	}

	route.TotalDistance = roundKm(totalKm)
	route.TotalDuration = cumulativeMin
}

// applyFallbackEstimate keeps the UI populated when directions are down:
// first the backend aggregate endpoint, then a deterministic local heuristic.
func (e *RouteEngine) applyFallbackEstimate(ctx context.Context, route *domain.RouteInfo) {
	n := len(route.Stops)

	var distanceKm float64
	var durationMin int

	waypoints := make([]domain.Coordinates, 0, n)
	for i := range route.Stops {
		waypoints = append(waypoints, route.Stops[i].Coordinates())
	}

	if est, err := e.orders.EstimateRoute(ctx, waypoints); err == nil && est.DurationMin > 0 {
		distanceKm = est.DistanceKm
		durationMin = est.DurationMin
	} else {
		distanceKm = fallbackKmPerLeg*float64(n-1) + fallbackBaseKm
		durationMin = int(math.Ceil(distanceKm/fallbackSpeedKmh*60)) + fallbackMinPerStop*n
	}

	// Spread the aggregate evenly; per-stop precision is not pretended here.
	perStop := durationMin / n
	cumulative := 0
	for i := range route.Stops {
		cumulative += perStop
		route.Stops[i].ApplyETA(cumulative)
	}

	route.TotalDistance = roundKm(distanceKm)
	route.TotalDuration = durationMin
}

// render pushes incremental marker and polyline commands to the map sink.
func (e *RouteEngine) render(route *domain.RouteInfo, droute *ports.DirectionsRoute) {
	for i := range route.Stops {
		s := &route.Stops[i]
		label := s.Label()
		if s.Status == domain.StopStatusCompleted {
			label = "✓"
		}
		e.sink.UpsertMarker(ports.MarkerUpdate{ID: s.ID, Lat: s.Latitude, Lng: s.Longitude, Label: label})
	}

	if droute != nil && len(droute.OverviewPath) > 0 {
		e.sink.DrawPolyline(routeLayerID(route.DriverID), droute.OverviewPath, routePolylineStyle)
	}
	if len(route.Stops) > 0 {
		e.sink.PanTo(route.Stops[0].Latitude, route.Stops[0].Longitude)
	}
}

// planAnnouncements hands the spoken-instruction plan to the announcer.
func (e *RouteEngine) planAnnouncements(driverID int, route *domain.RouteInfo, droute *ports.DirectionsRoute) {
	if e.announcer == nil {
		return
	}

	var steps []domain.AnnouncementStep
	if droute != nil {
		steps = make([]domain.AnnouncementStep, 0, len(droute.Steps))
		for _, st := range droute.Steps {
			lat, lng := st.Lat, st.Lng
			steps = append(steps, domain.AnnouncementStep{Text: st.Instruction, Lat: &lat, Lng: &lng})
		}
	}

	var firstPickupETA *int
	for i := range route.Stops {
		if route.Stops[i].Type == domain.StopTypePickup {
			firstPickupETA = route.Stops[i].EstimatedArrivalTime
			break
		}
	}

	e.announcer.StartSession(driverID, steps, firstPickupETA)
}

// carryOverStatuses preserves earned statuses across a rebuild: a completed
// delivery never reverts, and pickups stay whatever the domain allows.
func carryOverStatuses(prev, next *domain.RouteInfo) {
	for i := range next.Stops {
		if old := prev.StopByID(next.Stops[i].ID); old != nil && old.Status == domain.StopStatusCompleted {
			if next.Stops[i].Type == domain.StopTypeDelivery {
				next.Stops[i].Status = domain.StopStatusCompleted
			}
		}
	}
}

func pickupKey(c domain.Coordinates, address string) string {
	if c.IsZero() {
		return "addr:" + address
	}
	return fmt.Sprintf("%d:%d",
		int(math.Round(c.Lat*pickupGroupPrecision)),
		int(math.Round(c.Lng*pickupGroupPrecision)))
}

func routeLayerID(driverID int) string {
	return fmt.Sprintf("route-%d", driverID)
}

func identityPermutation(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
