package rewrite_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/internal/rewrite"
)

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	Expect(err).NotTo(HaveOccurred())
	return u
}

var _ = Describe("Table", func() {
	var table *rewrite.Table

	BeforeEach(func() {
		table = rewrite.Default()
	})

	Describe("YouTube", func() {
		It("should expand short links into a canonical watch URL", func() {
			out, changed := table.Rewrite(mustParse("https://youtu.be/dQw4w9WgXcQ?t=42&si=tracking"))
			Expect(changed).To(BeTrue())
			Expect(out.Scheme).To(Equal("https"))
			Expect(out.Host).To(Equal("www.youtube.com"))
			Expect(out.Path).To(Equal("/watch"))
			Expect(out.Query().Get("v")).To(Equal("dQw4w9WgXcQ"))
			Expect(out.Query().Get("t")).To(Equal("42"))
			Expect(out.Query().Get("app")).To(Equal("desktop"))
			Expect(out.Query().Has("si")).To(BeFalse())
		})

		It("should leave short links without an id alone", func() {
			in := mustParse("https://youtu.be/")
			out, changed := table.Rewrite(in)
			Expect(changed).To(BeFalse())
			Expect(out).To(BeIdenticalTo(in))
		})

		It("should move mobile watch pages to the desktop host", func() {
			out, changed := table.Rewrite(mustParse("http://m.youtube.com/watch?v=abc"))
			Expect(changed).To(BeTrue())
			Expect(out.String()).To(Equal("https://www.youtube.com/watch?app=desktop&v=abc"))
		})

		It("should turn shorts into watch pages", func() {
			out, _ := table.Rewrite(mustParse("https://youtube.com/shorts/xyz123"))
			Expect(out.String()).To(Equal("https://www.youtube.com/watch?app=desktop&v=xyz123"))
		})
	})

	It("should add nd=1 to Spotify links", func() {
		out, changed := table.Rewrite(mustParse("https://open.spotify.com/track/123?si=x"))
		Expect(changed).To(BeTrue())
		Expect(out.Query().Get("nd")).To(Equal("1"))
		Expect(out.Path).To(Equal("/track/123"))
	})

	It("should send Reddit to the old interface", func() {
		out, _ := table.Rewrite(mustParse("https://www.reddit.com/r/golang/comments/1"))
		Expect(out.String()).To(Equal("https://old.reddit.com/r/golang/comments/1"))
	})

	It("should match hosts case-insensitively", func() {
		_, changed := table.Rewrite(mustParse("https://YOUTU.BE/abc"))
		Expect(changed).To(BeTrue())
	})

	It("should not mutate the input", func() {
		in := mustParse("https://open.spotify.com/album/9")
		_, _ = table.Rewrite(in)
		Expect(in.String()).To(Equal("https://open.spotify.com/album/9"))
	})

	It("should pass unknown hosts through unchanged", func() {
		in := mustParse("https://example.com/page?x=1")
		out, changed := table.Rewrite(in)
		Expect(changed).To(BeFalse())
		Expect(out.String()).To(Equal("https://example.com/page?x=1"))
	})

	It("should tolerate a nil URL", func() {
		out, changed := table.Rewrite(nil)
		Expect(out).To(BeNil())
		Expect(changed).To(BeFalse())
	})

	It("should list its hosts sorted", func() {
		custom := rewrite.New(map[string]rewrite.Rule{
			"B.example": func(u *url.URL) *url.URL { return u },
			"a.example": func(u *url.URL) *url.URL { return u },
		})
		Expect(custom.Hosts()).To(Equal([]string{"a.example", "b.example"}))
		Expect(table.Hosts()).To(ContainElements("youtu.be", "open.spotify.com"))
	})
})
