package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementRequests", func() {
		It("should track profiles separately", func() {
			m.IncrementRequests("unwrap")
			m.IncrementRequests("direct")
			m.IncrementRequests("unwrap")

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.Profiles["unwrap"].Requests).To(Equal(int64(2)))
			Expect(snap.Profiles["direct"].Requests).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record outcomes, status codes and latency", func() {
			m.RecordResponse("unwrap", "breakout", 10*time.Millisecond, 200)
			m.RecordResponse("unwrap", "landing_redirect", 30*time.Millisecond, 302)
			m.RecordResponse("unwrap", "rejected", 20*time.Millisecond, 400)

			pm := m.Snapshot().Profiles["unwrap"]
			Expect(pm.Outcomes).To(Equal(map[string]int64{
				"breakout":         1,
				"landing_redirect": 1,
				"rejected":         1,
			}))
			Expect(pm.StatusCodes).To(HaveKeyWithValue(302, int64(1)))
			Expect(pm.AvgResponse).To(Equal(20 * time.Millisecond))
			Expect(pm.P50Response).To(Equal(20 * time.Millisecond))
			Expect(pm.P99Response).To(Equal(30 * time.Millisecond))
		})

		It("should keep a bounded window of samples", func() {
			for i := 0; i < 1500; i++ {
				m.RecordResponse("unwrap", "landing_redirect", time.Millisecond, 302)
			}
			Expect(m.Snapshot().Profiles["unwrap"].StatusCodes[302]).To(Equal(int64(1500)))
		})
	})

	Describe("RecordClient", func() {
		It("should count platforms and only named apps", func() {
			m.RecordClient(metrics.ClientLabels{Platform: "ios", App: "instagram"})
			m.RecordClient(metrics.ClientLabels{Platform: "android"})
			m.RecordClient(metrics.ClientLabels{Platform: "ios"})

			snap := m.Snapshot()
			Expect(snap.Platforms).To(Equal(map[string]int64{"ios": 2, "android": 1}))
			Expect(snap.InAppBrowsers).To(Equal(map[string]int64{"instagram": 1}))
		})

		It("should count browsers, devices and bots", func() {
			m.RecordClient(metrics.ClientLabels{Platform: "other", Browser: "facebookexternalhit", Device: "bot", Bot: true})
			m.RecordClient(metrics.ClientLabels{Platform: "other", Browser: "Chrome", Device: "desktop"})
			m.RecordClient(metrics.ClientLabels{Platform: "ios", Browser: "Safari", Device: "mobile"})

			snap := m.Snapshot()
			Expect(snap.Bots).To(Equal(int64(1)))
			Expect(snap.Devices).To(Equal(map[string]int64{"bot": 1, "desktop": 1, "mobile": 1}))
			Expect(snap.Browsers).To(HaveKeyWithValue("Chrome", int64(1)))
		})
	})

	Describe("Snapshot", func() {
		It("should not share maps with the live metrics", func() {
			m.RecordResponse("unwrap", "breakout", time.Millisecond, 200)
			snap := m.Snapshot()
			snap.Profiles["unwrap"].StatusCodes[200] = 99

			Expect(m.Snapshot().Profiles["unwrap"].StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should report uptime", func() {
			Expect(m.Snapshot().Uptime).To(BeNumerically(">=", 0))
		})
	})
})
