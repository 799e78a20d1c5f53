package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/pkg/logger"
)

var _ = Describe("Logger", func() {
	ctx := context.Background()

	Describe("New", func() {
		DescribeTable("level parsing",
			func(level string, enabled, disabled slog.Level) {
				log := logger.New(level, false, "dev")
				Expect(log.Enabled(ctx, enabled)).To(BeTrue())
				Expect(log.Enabled(ctx, disabled)).To(BeFalse())
			},
			Entry("debug", "debug", slog.LevelDebug, slog.Level(-8)),
			Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
			Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
			Entry("warning alias", "WARNING", slog.LevelWarn, slog.LevelInfo),
			Entry("error", "error", slog.LevelError, slog.LevelWarn),
			Entry("unknown defaults to info", "verbose", slog.LevelInfo, slog.LevelDebug),
		)
	})

	Describe("NewWithWriter", func() {
		It("should emit JSON records in prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "prod")
			log.Info("served", slog.String("profile", "unwrap"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "served"))
			Expect(record).To(HaveKeyWithValue("profile", "unwrap"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
			Expect(record).To(HaveKeyWithValue("service", logger.ServiceName))
		})

		It("should emit text records outside prod", func() {
			var buf bytes.Buffer
			log := logger.NewWithWriter(&buf, "info", false, "dev")
			log.Info("served")

			Expect(buf.String()).To(ContainSubstring("msg=served"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})
	})

	Describe("Discard", func() {
		It("should accept records without output", func() {
			log := logger.Discard()
			Expect(log).NotTo(BeNil())
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})
})
