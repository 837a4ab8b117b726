package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/quickserve/driver-tracking/internal/api/metrics"
	"github.com/quickserve/driver-tracking/internal/core/domain"
	"github.com/quickserve/driver-tracking/internal/core/ports"
)

const (
	// baseThresholdKm is the announce radius when stationary (70 m).
	baseThresholdKm = 0.07
	// maxSpeedBonusKm is the additional radius at high speed (up to +60 m,
	// reached at 120 km/h), compensating for sampling lag.
	maxSpeedBonusKm = 0.06
	speedBonusRef   = 120.0

	minSpeakDuration = 2 * time.Second
	maxSpeakDuration = 8 * time.Second
	// perCharDuration estimates speech time from text length.
	perCharDuration = 60 * time.Millisecond
)

// announceSession holds one driver's active instruction plan.
type announceSession struct {
	steps          []domain.AnnouncementStep
	firstPickupETA *int
	etaAnnounced   bool
	speakingUntil  time.Time
}

// ProximityAnnouncer fires one-shot spoken instructions as the driver comes
// within a speed-scaled distance of each step's anchor.
type ProximityAnnouncer struct {
	speaker ports.Speaker
	log     zerolog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[int]*announceSession
}

func NewProximityAnnouncer(speaker ports.Speaker, log zerolog.Logger) *ProximityAnnouncer {
	return &ProximityAnnouncer{
		speaker:  speaker,
		log:      log,
		now:      time.Now,
		sessions: make(map[int]*announceSession),
	}
}

// StartSession installs a fresh instruction plan for a driver, replacing any
// previous one. Steps start un-announced; the one-shot "ETA to first pickup"
// announcement re-arms with each new session.
func (a *ProximityAnnouncer) StartSession(driverID int, steps []domain.AnnouncementStep, firstPickupETAMin *int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sessions[driverID] = &announceSession{steps: steps, firstPickupETA: firstPickupETAMin}
}

// EndSession drops the driver's plan and interrupts any current speech.
func (a *ProximityAnnouncer) EndSession(driverID int) {
	a.mu.Lock()
	delete(a.sessions, driverID)
	a.mu.Unlock()
	a.speaker.Stop()
}

// Cancel interrupts the current utterance immediately without ending the session.
func (a *ProximityAnnouncer) Cancel(driverID int) {
	a.mu.Lock()
	if s, ok := a.sessions[driverID]; ok {
		s.speakingUntil = time.Time{}
	}
	a.mu.Unlock()
	a.speaker.Stop()
}

// Speaking reports whether the driver's device is (estimated to be) mid-utterance.
// Purely UI feedback; derived from text length, clamped 2–8 s.
func (a *ProximityAnnouncer) Speaking(driverID int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[driverID]
	return ok && a.now().Before(s.speakingUntil)
}

// OnLocation is the location-stream consumer hook: given a fresh sample it
// fires at most one not-yet-announced step whose anchor is inside the
// speed-scaled radius. A fired step is latched and never re-announced.
func (a *ProximityAnnouncer) OnLocation(driverID int, p domain.LocationPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[driverID]
	if !ok {
		return
	}

	// One-shot session opener: the ETA announcement fires the first time the
	// driver's location becomes known, independent of the step mechanism.
	if !s.etaAnnounced {
		s.etaAnnounced = true
		if s.firstPickupETA != nil {
			a.speak(s, fmt.Sprintf("Estimated arrival at pickup in %d minutes", *s.firstPickupETA))
		}
	}

	radius := AnnounceThresholdKm(p.SpeedKmh())
	here := p.Coordinates()

	for i := range s.steps {
		step := &s.steps[i]
		if step.Announced {
			continue
		}
		anchor, ok := step.Anchor()
		if !ok {
			continue
		}
		if here.DistanceKm(anchor) <= radius {
			step.Announced = true
			a.speak(s, step.Text)
			metrics.AnnouncementsSpokenTotal.Inc()
			return
		}
	}
}

func (a *ProximityAnnouncer) speak(s *announceSession, text string) {
	dur := time.Duration(len(text)) * perCharDuration
	if dur < minSpeakDuration {
		dur = minSpeakDuration
	}
	if dur > maxSpeakDuration {
		dur = maxSpeakDuration
	}
	s.speakingUntil = a.now().Add(dur)
	a.speaker.Speak(text)
}

// AnnounceThresholdKm returns the announce radius for a given speed:
// 70 m when stationary, growing linearly to 130 m at 120 km/h and capped there.
func AnnounceThresholdKm(speedKmh float64) float64 {
	bonus := speedKmh / speedBonusRef * maxSpeedBonusKm
	if bonus > maxSpeedBonusKm {
		bonus = maxSpeedBonusKm
	}
	if bonus < 0 {
		bonus = 0
	}
	return baseThresholdKm + bonus
}
