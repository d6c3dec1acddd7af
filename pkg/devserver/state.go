package devserver

import (
	"sort"
	"sync"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
)

const recentAlerts = 10

type reading struct {
	at     time.Time
	values map[string]float64
}

// State is the in-memory patient state the devserver answers from.
type State struct {
	mu       sync.RWMutex
	piStatus api.PiStatus
	vitals   *api.Vitals
	alerts   []api.Alert
	total    int
	sensors  []reading
	now      func() time.Time
}

func NewState(piURL string) *State {
	return &State{
		piStatus: api.PiStatus{URL: piURL},
		now:      time.Now,
	}
}

func (s *State) PiStatus() api.PiStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.piStatus
}

func (s *State) SetPiConnected(connected bool) api.PiStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.piStatus.Connected = connected
	return s.piStatus
}

func (s *State) Vitals() (api.Vitals, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vitals == nil {
		return api.Vitals{}, false
	}
	return *s.vitals, true
}

func (s *State) SetVitals(v api.Vitals) api.Vitals {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.DateTime == "" {
		v.DateTime = s.now().Format("2006-01-02 15:04:05")
	}
	s.vitals = &v
	return v
}

// AddAlert records an alert. Only the most recent ones are kept, the total keeps counting.
func (s *State) AddAlert(a api.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.alerts = append(s.alerts, a)
	if len(s.alerts) > recentAlerts {
		s.alerts = append([]api.Alert(nil), s.alerts[len(s.alerts)-recentAlerts:]...)
	}
}

func (s *State) Alerts() api.AlertList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return api.AlertList{Total: s.total, Alerts: append([]api.Alert{}, s.alerts...)}
}

func (s *State) AddSensors(values map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(map[string]float64, len(values))
	for k, v := range values {
		cp[k] = v
	}
	s.sensors = append(s.sensors, reading{at: s.now(), values: cp})
}

// LatestSensor returns the newest value of column within window (0 means all time).
func (s *State) LatestSensor(column string, window time.Duration) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.cutoff(window)
	for i := len(s.sensors) - 1; i >= 0; i-- {
		r := s.sensors[i]
		if r.at.Before(cutoff) {
			break
		}
		if v, ok := r.values[column]; ok {
			return v, true
		}
	}
	return 0, false
}

// SensorColumns lists the columns with at least one reading inside window.
func (s *State) SensorColumns(window time.Duration) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.cutoff(window)
	seen := map[string]struct{}{}
	for _, r := range s.sensors {
		if r.at.Before(cutoff) {
			continue
		}
		for k := range r.values {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *State) cutoff(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return s.now().Add(-window)
}
