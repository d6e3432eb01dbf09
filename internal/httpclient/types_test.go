package httpclient_test

import (
	"errors"
	"net/http"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/jobtracker/internal/httpclient"
)

func TestHTTPClientTypes(t *testing.T) {
	t.Parallel()
	RegisterFailHandler(Fail)
	RunSpecs(t, "HTTPClient Types Suite")
}

var _ = Describe("HTTPError", func() {
	It("formats status, URL and message", func() {
		err := httpclient.NewHTTPError(http.StatusBadGateway, "http://svc/JobApplication", "Bad Gateway")
		Expect(err.Error()).To(Equal("HTTP 502 for URL http://svc/JobApplication: Bad Gateway"))
	})

	It("can be recovered with errors.As", func() {
		var httpErr *httpclient.HTTPError
		err := httpclient.NewHTTPError(http.StatusTeapot, "http://svc", "teapot")
		Expect(errors.As(err, &httpErr)).To(BeTrue())
		Expect(httpErr.StatusCode).To(Equal(http.StatusTeapot))
	})
})

var _ = Describe("Response", func() {
	DescribeTable("OK",
		func(status int, ok bool) {
			resp := &httpclient.Response{StatusCode: status}
			Expect(resp.OK()).To(Equal(ok))
		},
		Entry("200", http.StatusOK, true),
		Entry("201", http.StatusCreated, true),
		Entry("204", http.StatusNoContent, true),
		Entry("301", http.StatusMovedPermanently, false),
		Entry("404", http.StatusNotFound, false),
		Entry("500", http.StatusInternalServerError, false),
	)

	It("converts to an HTTPError carrying a truncated body", func() {
		body := make([]byte, 10000)
		resp := &httpclient.Response{StatusCode: http.StatusServiceUnavailable, URL: "http://svc/x", Body: body}

		var httpErr *httpclient.HTTPError
		Expect(errors.As(resp.AsError(), &httpErr)).To(BeTrue())
		Expect(httpErr.Message).To(Equal("Service Unavailable"))
		Expect(httpErr.URL).To(Equal("http://svc/x"))
		Expect(httpErr.Body).To(HaveLen(4096))
		Expect(httpErr.Error()).To(ContainSubstring("HTTP 503"))
	})
})
