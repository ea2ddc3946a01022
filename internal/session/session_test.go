package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
)

var _ = Describe("session", func() {
	var (
		manager *session.Manager
		handler http.Handler
		seen    []string
	)

	BeforeEach(func() {
		var err error
		manager, err = session.NewManager(config.Session{
			SecretKey:  "not-so-secret",
			CookieName: "cv_session",
			MaxAge:     time.Hour,
		}, false)
		Expect(err).To(BeNil())

		seen = nil
		handler = manager.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, session.MustHaveSession(r.Context()).ID)
		}))
	})

	serve := func(cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	It("mints a session when there is no cookie", func() {
		rr := serve()
		Expect(rr.Result().Cookies()).To(HaveLen(1))
		c := rr.Result().Cookies()[0]
		Expect(c.Name).To(Equal("cv_session"))
		Expect(c.HttpOnly).To(BeTrue())
		Expect(seen).To(HaveLen(1))
		Expect(seen[0]).NotTo(BeEmpty())
	})

	It("keeps the session of a valid cookie", func() {
		first := serve().Result().Cookies()[0]

		rr := serve(first)
		Expect(rr.Result().Cookies()).To(BeEmpty())
		Expect(seen).To(HaveLen(2))
		Expect(seen[1]).To(Equal(seen[0]))
	})

	It("replaces a tampered cookie", func() {
		rr := serve(&http.Cookie{Name: "cv_session", Value: "garbage"})
		Expect(rr.Result().Cookies()).To(HaveLen(1))
		Expect(seen).To(HaveLen(1))
	})

	It("rejects a cookie signed with another secret", func() {
		other, err := session.NewManager(config.Session{SecretKey: "other", CookieName: "cv_session", MaxAge: time.Hour}, false)
		Expect(err).To(BeNil())

		var otherID string
		rr := httptest.NewRecorder()
		other.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			otherID = session.MustHaveSession(r.Context()).ID
		})).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		serve(rr.Result().Cookies()[0])
		Expect(seen[0]).NotTo(Equal(otherID))
	})

	It("generates a secret when none is configured", func() {
		m, err := session.NewManager(config.Session{CookieName: "cv_session", MaxAge: time.Hour}, false)
		Expect(err).To(BeNil())
		Expect(m).NotTo(BeNil())
	})

	It("panics without a session in the context", func() {
		Expect(func() { session.MustHaveSession(context.TODO()) }).To(Panic())
	})
})
