package breakout_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/internal/breakout"
)

var _ = Describe("ParseTarget", func() {
	It("should accept absolute http and https URLs", func() {
		u, err := breakout.ParseTarget("https://example.com/path?q=1")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Host).To(Equal("example.com"))

		_, err = breakout.ParseTarget("http://example.com")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should decode a double-encoded value once more", func() {
		u, err := breakout.ParseTarget("https%3A%2F%2Fexample.com%2Fpath")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.String()).To(Equal("https://example.com/path"))
	})

	It("should report a missing value", func() {
		for _, raw := range []string{"", "   "} {
			_, err := breakout.ParseTarget(raw)
			Expect(errors.Is(err, breakout.ErrMissingURL)).To(BeTrue())
			Expect(breakout.IsMissing(err)).To(BeTrue())
		}
	})

	DescribeTable("should reject values that are not web URLs",
		func(raw string) {
			_, err := breakout.ParseTarget(raw)
			Expect(errors.Is(err, breakout.ErrInvalidURL)).To(BeTrue())
			Expect(breakout.IsMissing(err)).To(BeFalse())
		},
		Entry("plain text", "not a url"),
		Entry("relative path", "/relative/path"),
		Entry("ftp scheme", "ftp://example.com/file"),
		Entry("javascript scheme", "javascript:alert(1)"),
		Entry("missing host", "https://"),
		Entry("broken escape", "%zz"),
	)
})

var _ = Describe("SafeDeepLink", func() {
	DescribeTable("filtering",
		func(raw, want string, ok bool) {
			got, allowed := breakout.SafeDeepLink(raw)
			Expect(allowed).To(Equal(ok))
			Expect(got).To(Equal(want))
		},
		Entry("custom scheme", "myapp://open/item/1", "myapp://open/item/1", true),
		Entry("encoded custom scheme", "myapp%3A%2F%2Fopen", "myapp://open", true),
		Entry("javascript", "javascript:alert(1)", "", false),
		Entry("uppercase data", "DATA:text/html,hi", "", false),
		Entry("no scheme", "open/item", "", false),
		Entry("empty", "", "", false),
	)
})
