package apiserver_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apiserver "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/api_server"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
	handlers "github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/handlers/v1alpha1"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/service"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/session"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/upload"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(analysis.Task) error { return nil }

type countingDrainer struct {
	mu     sync.Mutex
	closed int
}

func (d *countingDrainer) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *countingDrainer) Closed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

var _ = Describe("api server", func() {
	var (
		cfg     *config.Config
		s       store.Store
		server  *apiserver.Server
		drainer *countingDrainer
		ln      net.Listener
	)

	BeforeEach(func() {
		var err error
		cfg, err = config.NewDefault()
		Expect(err).To(BeNil())
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = filepath.Join(GinkgoT().TempDir(), "server.db")
		cfg.Service.AllowedOrigins = []string{"http://localhost:3000"}
		cfg.Service.ShutdownTimeout = time.Second

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())
		Expect(store.AutoMigrate(db)).To(BeNil())
		s = store.NewStore(db)

		uploads, err := upload.NewStorage(GinkgoT().TempDir(), cfg.Service.AllowedExtensions)
		Expect(err).To(BeNil())

		srv := service.NewAnalysisService(s, uploads, nopDispatcher{}, nil, cfg.Service.AllowedExtensions)
		sessions, err := session.NewManager(config.Session{SecretKey: "test", CookieName: "cv_session", MaxAge: time.Hour}, false)
		Expect(err).To(BeNil())

		ln, err = net.Listen("tcp", "127.0.0.1:0")
		Expect(err).To(BeNil())

		drainer = &countingDrainer{}
		server = apiserver.New(cfg, handlers.NewServiceHandler(srv, cfg.Service.MaxUploadSize), sessions, drainer, ln)
	})

	AfterEach(func() {
		_ = ln.Close()
		Expect(s.Close()).To(Succeed())
	})

	Context("router", func() {
		It("serves health without a session", func() {
			rr := httptest.NewRecorder()
			server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Result().Cookies()).To(BeEmpty())
			Expect(rr.Header().Get("X-Request-Id")).NotTo(BeEmpty())
		})

		It("echoes the caller's request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("X-Request-Id", "req-42")
			rr := httptest.NewRecorder()
			server.Router().ServeHTTP(rr, req)

			Expect(rr.Header().Get("X-Request-Id")).To(Equal("req-42"))
		})

		It("mints a session on the api routes", func() {
			rr := httptest.NewRecorder()
			server.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/results", nil))

			Expect(rr.Code).To(Equal(http.StatusNotFound))
			Expect(rr.Result().Cookies()).To(HaveLen(1))
			Expect(rr.Result().Cookies()[0].Name).To(Equal("cv_session"))
		})

		It("answers cors preflights for the allowed origins", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/analyses", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rr := httptest.NewRecorder()
			server.Router().ServeHTTP(rr, req)

			Expect(rr.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
			Expect(rr.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})
	})

	It("drains the background work once the server stops", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- server.Run(ctx)
		}()

		Eventually(func() error {
			resp, err := http.Get("http://" + ln.Addr().String() + "/health")
			if err == nil {
				_ = resp.Body.Close()
			}
			return err
		}).Should(Succeed())

		cancel()
		Eventually(done).WithTimeout(5 * time.Second).Should(Receive(BeNil()))
		Expect(drainer.Closed()).To(Equal(1))
	})

	It("only marks the cookie secure behind https", func() {
		Expect(apiserver.SecureCookies("https://cv.example.com")).To(BeTrue())
		Expect(apiserver.SecureCookies("http://localhost:8080")).To(BeFalse())
	})
})
