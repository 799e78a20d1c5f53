package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/link-unwrapper/internal/httpserver"
)

var noop = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

var _ = Describe("HTTP Server", func() {
	Context("server creation", func() {
		DescribeTable("address validation",
			func(addr string, valid bool) {
				srv, err := httpserver.New(addr, noop, httpserver.Timeouts{})
				if valid {
					Expect(err).NotTo(HaveOccurred())
					Expect(srv.Addr()).To(Equal(addr))
				} else {
					Expect(err).To(HaveOccurred())
					Expect(srv).To(BeNil())
				}
			},
			Entry("hostname", "localhost:9999", true),
			Entry("IP address", "127.0.0.1:9999", true),
			Entry("port only", ":9999", true),
			Entry("too many colons", "invalid:host:port", false),
			Entry("missing port", "localhost", false),
			Entry("empty port", "localhost:", false),
			Entry("bad host", "bad_host!:8080", false),
		)
	})

	Context("server lifecycle", func() {
		var (
			testServer *httpserver.Server
			listener   net.Listener
		)

		BeforeEach(func() {
			var err error
			listener, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			if testServer != nil {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = testServer.Shutdown(ctx)
			}
		})

		It("serves requests on a listener", func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("test"))
			})
			var err error
			testServer, err = httpserver.New(listener.Addr().String(), handler, httpserver.Timeouts{})
			Expect(err).NotTo(HaveOccurred())

			go func() {
				defer GinkgoRecover()
				Expect(testServer.Serve(listener)).To(Succeed())
			}()

			var resp *http.Response
			Eventually(func() error {
				resp, err = http.Get("http://" + listener.Addr().String())
				return err
			}).Should(Succeed())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("test"))
		})

		It("shuts down gracefully", func() {
			var err error
			testServer, err = httpserver.New(listener.Addr().String(), noop, httpserver.Timeouts{Shutdown: time.Second})
			Expect(err).NotTo(HaveOccurred())

			done := make(chan error, 1)
			go func() {
				done <- testServer.Serve(listener)
			}()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			Eventually(func() error {
				resp, err := http.Get("http://" + listener.Addr().String())
				if err == nil {
					resp.Body.Close()
				}
				return err
			}).Should(Succeed())

			Expect(testServer.Shutdown(ctx)).To(Succeed())
			Eventually(done).Should(Receive(BeNil()))
		})
	})
})
