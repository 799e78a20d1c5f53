package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Address:         ":8080",
			Environment:     config.EnvDev,
			ReadTimeout:     "10s",
			WriteTimeout:    "10s",
			IdleTimeout:     "60s",
			ShutdownTimeout: "5s",
		},
		Logging:    config.LoggingConfig{Level: config.LogLevelInfo},
		RateLimit:  config.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 10, ClientTTL: "1m"},
		Classifier: config.ClassifierConfig{DetectInApp: true},
		Relay:      config.RelayConfig{DefaultDest: "/direct"},
		Metrics:    config.MetricsConfig{BufferSize: 100},
	}
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	writeConfig := func(content string) {
		err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644)
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("Load", func() {
		Context("with valid config file", func() {
			BeforeEach(func() {
				writeConfig(`
server:
  address: ":9000"
  environment: "staging"
  public_base_url: "https://go.example.com"

logging:
  level: "debug"

rate_limit:
  enabled: true
  requests_per_second: 2.5
  burst: 5

classifier:
  in_app_signatures:
    - app: "acme"
      pattern: "AcmeApp/"

relay:
  default_dest: "https://relay.example.net/open"
  allowed_hosts:
    - "partner.example.org"

profiles:
  - name: "unwrap"
    path: "/u"
    mode: "two-stage"
    techniques:
      ios:
        - method: "top"
          target: "next"
          delay_ms: 0
        - method: "replace"
          target: "next"
          delay_ms: 150
  - name: "api"
    path: "/api/redirect"
    mode: "direct"
    landing: "document"
    error_format: "json"
    redirect_status: 301
`)
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":9000"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Server.PublicBaseURL).To(Equal("https://go.example.com"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
			})

			It("should parse rate limiting and keep defaults for omitted keys", func() {
				cfg, _ := config.Load(tempDir)
				Expect(cfg.RateLimit.RequestsPerSecond).To(Equal(2.5))
				Expect(cfg.RateLimit.Burst).To(Equal(5))
				Expect(cfg.RateLimit.ClientTTL).To(Equal("3m"))
				Expect(cfg.Metrics.BufferSize).To(Equal(1000))
			})

			It("should parse signatures and relay settings", func() {
				cfg, _ := config.Load(tempDir)
				Expect(cfg.Classifier.DetectInApp).To(BeTrue())
				Expect(cfg.Classifier.InAppSignatures).To(ConsistOf(config.SignatureConfig{App: "acme", Pattern: "AcmeApp/"}))
				Expect(cfg.Relay.DefaultDest).To(Equal("https://relay.example.net/open"))
				Expect(cfg.Relay.AllowedHosts).To(ConsistOf("partner.example.org"))
			})

			It("should parse profiles with techniques", func() {
				cfg, _ := config.Load(tempDir)
				Expect(cfg.Profiles).To(HaveLen(2))
				Expect(cfg.Profiles[0].Techniques.IOS).To(Equal([]config.AttemptConfig{
					{Method: "top", Target: "next", DelayMS: 0},
					{Method: "replace", Target: "next", DelayMS: 150},
				}))
				Expect(cfg.Profiles[1].RedirectStatus).To(Equal(301))
				Expect(cfg.Profiles[1].ErrorFormat).To(Equal("json"))
			})
		})

		Context("with environment variables", func() {
			BeforeEach(func() {
				os.Setenv("SERVER_ADDRESS", ":7070")
				os.Setenv("LOGGING_LEVEL", "warn")
				DeferCleanup(os.Unsetenv, "SERVER_ADDRESS")
				DeferCleanup(os.Unsetenv, "LOGGING_LEVEL")
			})

			It("should use defaults when config file missing", func() {
				cfg, err := config.Load(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.Relay.DefaultDest).To(Equal("/direct"))
				Expect(cfg.RateLimit.Enabled).To(BeTrue())
				Expect(cfg.Profiles).To(BeEmpty())
			})

			It("should let the environment override the file", func() {
				writeConfig("server:\n  address: \":9000\"\n")
				cfg, err := config.Load(tempDir)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":7070"))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelWarn))
			})
		})

		Context("with an invalid file", func() {
			It("should fail validation", func() {
				writeConfig("server:\n  environment: \"qa\"\n")
				_, err := config.Load(tempDir)
				Expect(err).To(HaveOccurred())
			})

			It("should fail on malformed YAML", func() {
				writeConfig("server: [unclosed\n")
				_, err := config.Load(tempDir)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		It("should accept a complete configuration", func() {
			Expect(validConfig().Validate()).To(Succeed())
		})

		DescribeTable("rejects",
			func(mutate func(*config.Config)) {
				cfg := validConfig()
				mutate(cfg)
				Expect(cfg.Validate()).NotTo(Succeed())
			},
			Entry("unknown environment", func(c *config.Config) { c.Server.Environment = "qa" }),
			Entry("address without port", func(c *config.Config) { c.Server.Address = "localhost" }),
			Entry("relative public base URL", func(c *config.Config) { c.Server.PublicBaseURL = "go.example.com" }),
			Entry("bad duration", func(c *config.Config) { c.Server.ReadTimeout = "soon" }),
			Entry("hostname as trusted proxy", func(c *config.Config) { c.Server.TrustedProxies = []string{"lb.internal"} }),
			Entry("bad trusted proxy range", func(c *config.Config) { c.Server.TrustedProxies = []string{"10.0.0.0/33"} }),
			Entry("unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }),
			Entry("zero rate", func(c *config.Config) { c.RateLimit.RequestsPerSecond = 0 }),
			Entry("zero burst", func(c *config.Config) { c.RateLimit.Burst = 0 }),
			Entry("broken signature", func(c *config.Config) {
				c.Classifier.InAppSignatures = []config.SignatureConfig{{App: "x", Pattern: "("}}
			}),
			Entry("ftp relay", func(c *config.Config) { c.Relay.DefaultDest = "ftp://relay.example.net" }),
			Entry("protocol-relative relay", func(c *config.Config) { c.Relay.DefaultDest = "//relay.example.net" }),
			Entry("bad allowed host", func(c *config.Config) { c.Relay.AllowedHosts = []string{"not a host"} }),
			Entry("zero metrics buffer", func(c *config.Config) { c.Metrics.BufferSize = 0 }),
			Entry("profile without path", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a"}}
			}),
			Entry("relative profile path", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "a"}}
			}),
			Entry("unknown mode", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a", Mode: "teleport"}}
			}),
			Entry("unsupported redirect status", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a", RedirectStatus: 307}}
			}),
			Entry("negative attempt delay", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a", Techniques: config.TechniquesConfig{
					Android: []config.AttemptConfig{{Method: "assign", Target: "next", DelayMS: -1}},
				}}}
			}),
			Entry("unknown attempt method", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a", Techniques: config.TechniquesConfig{
					Other: []config.AttemptConfig{{Method: "teleport", Target: "next"}},
				}}}
			}),
			Entry("duplicate profile names", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a"}, {Name: "a", Path: "/b"}}
			}),
			Entry("duplicate profile paths", func(c *config.Config) {
				c.Profiles = []config.ProfileConfig{{Name: "a", Path: "/a"}, {Name: "b", Path: "/a"}}
			}),
		)

		It("should accept trusted proxy IPs and ranges", func() {
			cfg := validConfig()
			cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.10", "2001:db8::/32"}
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should skip rate limit checks when disabled", func() {
			cfg := validConfig()
			cfg.RateLimit = config.RateLimitConfig{Enabled: false}
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Duration", func() {
		It("should parse validated durations", func() {
			Expect(config.Duration("1m30s")).To(Equal(90 * time.Second))
		})
	})
})
