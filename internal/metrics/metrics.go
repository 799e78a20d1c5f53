package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	outcomes      map[string]map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	rateLimited   map[string]int64
	platforms     map[string]int64
	apps          map[string]int64
	browsers      map[string]int64
	devices       map[string]int64
	bots          int64
	startTime     time.Time

	prom *promMetrics
}

type Snapshot struct {
	TotalRequests int64                     `json:"total_requests"`
	RateLimited   int64                     `json:"rate_limited"`
	Uptime        time.Duration             `json:"uptime"`
	Profiles      map[string]ProfileMetrics `json:"profiles"`
	Platforms     map[string]int64          `json:"platforms"`
	InAppBrowsers map[string]int64          `json:"in_app_browsers"`
	Browsers      map[string]int64          `json:"browsers"`
	Devices       map[string]int64          `json:"devices"`
	Bots          int64                     `json:"bots"`
}

type ProfileMetrics struct {
	Requests    int64            `json:"requests"`
	RateLimited int64            `json:"rate_limited"`
	Outcomes    map[string]int64 `json:"outcomes"`
	AvgResponse time.Duration    `json:"avg_response"`
	P50Response time.Duration    `json:"p50_response"`
	P95Response time.Duration    `json:"p95_response"`
	P99Response time.Duration    `json:"p99_response"`
	StatusCodes map[int]int64    `json:"status_codes"`
}

func (m *Metrics) IncrementRequests(profile string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[profile]++
}

func (m *Metrics) RecordResponse(profile, outcome string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[profile] = append(m.responseTimes[profile], duration)
	if len(m.responseTimes[profile]) > maxSamples {
		m.responseTimes[profile] = m.responseTimes[profile][1:]
	}

	if m.statusCodes[profile] == nil {
		m.statusCodes[profile] = make(map[int]int64)
	}
	m.statusCodes[profile][statusCode]++

	if outcome != "" {
		if m.outcomes[profile] == nil {
			m.outcomes[profile] = make(map[string]int64)
		}
		m.outcomes[profile][outcome]++
	}

	m.prom.responses.WithLabelValues(profile, outcome, strconv.Itoa(statusCode)).Inc()
	m.prom.duration.WithLabelValues(profile).Observe(duration.Seconds())
}

// RecordClient counts the platform, browser and device of every served
// client and the app of the embedded ones.
func (m *Metrics) RecordClient(c ClientLabels) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if c.Platform != "" {
		m.platforms[c.Platform]++
	}
	if c.App != "" {
		m.apps[c.App]++
		m.prom.inApp.WithLabelValues(c.App, c.Platform).Inc()
	}
	if c.Browser != "" {
		m.browsers[c.Browser]++
	}
	if c.Device != "" {
		m.devices[c.Device]++
	}
	if c.Bot {
		m.bots++
	}
	if c.Platform != "" || c.Device != "" {
		m.prom.clients.WithLabelValues(c.Platform, c.Device, c.Browser, strconv.FormatBool(c.Bot)).Inc()
	}
}

func (m *Metrics) RecordRateLimited(profile string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rateLimited[profile]++
	m.prom.rateLimited.WithLabelValues(profile).Inc()
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:        time.Since(m.startTime),
		Profiles:      make(map[string]ProfileMetrics),
		Platforms:     copyCounts(m.platforms),
		InAppBrowsers: copyCounts(m.apps),
		Browsers:      copyCounts(m.browsers),
		Devices:       copyCounts(m.devices),
		Bots:          m.bots,
	}

	// Collect all profile names
	allProfiles := make(map[string]bool)
	for profile := range m.requests {
		allProfiles[profile] = true
	}
	for profile := range m.responseTimes {
		allProfiles[profile] = true
	}
	for profile := range m.rateLimited {
		allProfiles[profile] = true
	}

	for profile := range allProfiles {
		snap.TotalRequests += m.requests[profile]
		snap.RateLimited += m.rateLimited[profile]

		pm := ProfileMetrics{
			Requests:    m.requests[profile],
			RateLimited: m.rateLimited[profile],
			Outcomes:    copyCounts(m.outcomes[profile]),
			StatusCodes: make(map[int]int64, len(m.statusCodes[profile])),
		}
		for code, n := range m.statusCodes[profile] {
			pm.StatusCodes[code] = n
		}

		durations := m.responseTimes[profile]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			pm.AvgResponse = average(sorted)
			pm.P50Response = percentile(sorted, 0.50)
			pm.P95Response = percentile(sorted, 0.95)
			pm.P99Response = percentile(sorted, 0.99)
		}

		snap.Profiles[profile] = pm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		outcomes:      make(map[string]map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		rateLimited:   make(map[string]int64),
		platforms:     make(map[string]int64),
		apps:          make(map[string]int64),
		browsers:      make(map[string]int64),
		devices:       make(map[string]int64),
		startTime:     time.Now(),
		prom:          newPromMetrics(),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
