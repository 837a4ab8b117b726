package domain

// AnnouncementStep is one spoken turn instruction, optionally anchored to a
// coordinate. Steps are created fresh for each navigation request; once
// Announced is set it is never re-fired for that request.
type AnnouncementStep struct {
	Text      string
	Lat       *float64
	Lng       *float64
	Announced bool
}

// Anchor returns the step's anchor coordinate and whether one is set.
func (s *AnnouncementStep) Anchor() (Coordinates, bool) {
	if s.Lat == nil || s.Lng == nil {
		return Coordinates{}, false
	}
	return Coordinates{Lat: *s.Lat, Lng: *s.Lng}, true
}
