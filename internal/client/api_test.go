package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
)

var _ = Describe("api client", func() {
	var (
		server *httptest.Server
		api    *client.APIClient
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		router := chi.NewRouter()
		router.Post("/api/v1/analyses", func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Header.Get("X-Request-Id")).NotTo(BeEmpty())
			Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
			files := r.MultipartForm.File["cv_files"]
			Expect(files).To(HaveLen(2))
			Expect(files[0].Filename).To(Equal("alice.txt"))

			f, err := files[0].Open()
			Expect(err).To(BeNil())
			data, _ := io.ReadAll(f)
			Expect(string(data)).To(Equal("alice"))

			http.SetCookie(w, &http.Cookie{Name: "cv_session", Value: "s1", Path: "/"})
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`{"job_id":"job-1","status":"processing"}`))
		})
		router.Get("/api/v1/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "id") != "job-1" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"status":"not_found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"completed","progress":1,"message":"Analysis complete"}`))
		})
		router.Get("/api/v1/results", func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie("cv_session")
			if err != nil || c.Value != "s1" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte(`{"results":[{"CV Name":"alice.txt","Analysis":"good","Thread ID":"t1","Message ID":"m1"}],"thread_ids":["t1"],"summary":null}`))
		})

		server = httptest.NewServer(router)

		cfg := client.NewDefault()
		cfg.Service.Server = server.URL
		var err error
		api, err = client.NewFromConfig(cfg)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		server.Close()
	})

	writeFile := func(dir, name, content string) string {
		p := filepath.Join(dir, name)
		Expect(os.WriteFile(p, []byte(content), 0600)).To(Succeed())
		return p
	}

	It("submits, polls and fetches within one session", func() {
		dir := GinkgoT().TempDir()
		resp, err := api.Submit(ctx, []string{writeFile(dir, "alice.txt", "alice"), writeFile(dir, "bob.txt", "bob")})
		Expect(err).To(BeNil())
		Expect(resp.JobID).To(Equal("job-1"))
		Expect(resp.Status).To(Equal("processing"))

		status, err := api.Status(ctx, "job-1")
		Expect(err).To(BeNil())
		Expect(status.Status).To(Equal("completed"))
		Expect(status.Progress).To(Equal(1.0))

		rs, err := api.Results(ctx)
		Expect(err).To(BeNil())
		Expect(rs.Items).To(HaveLen(1))
		Expect(rs.Items[0].Name).To(Equal("alice.txt"))
		Expect(rs.Summary).To(BeNil())
	})

	It("reports an unknown job", func() {
		_, err := api.Status(ctx, "nope")
		Expect(err).To(MatchError(client.ErrNotFound))
	})

	It("fails on a missing file", func() {
		_, err := api.Submit(ctx, []string{"/does/not/exist.pdf"})
		Expect(err).NotTo(BeNil())
	})
})

var _ = Describe("client config", func() {
	It("persists and parses the config", func() {
		p := filepath.Join(GinkgoT().TempDir(), "nested", "client.yaml")
		Expect(client.WriteConfig(p, "http://localhost:8080")).To(Succeed())

		cfg, err := client.ParseConfigFile(p)
		Expect(err).To(BeNil())
		Expect(cfg.Service.Server).To(Equal("http://localhost:8080"))

		other := client.NewDefault()
		other.Service.Server = "http://localhost:8080"
		Expect(cfg.Equal(other)).To(BeTrue())
	})

	It("rejects a config without server", func() {
		Expect(client.NewDefault().Validate()).NotTo(Succeed())
	})

	It("rejects a server without hostname", func() {
		cfg := client.NewDefault()
		cfg.Service.Server = "/just/a/path"
		Expect(cfg.Validate()).NotTo(Succeed())
	})
})
