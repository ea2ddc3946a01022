package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/client"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/config"
)

var _ = Describe("analyzer client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newClient := func(url string) *client.AnalyzerClient {
		return client.NewAnalyzerClient(config.Analyzer{
			BaseURL:    url,
			Username:   "user",
			Password:   "pass",
			RevisionID: "rev-1",
			Timeout:    5 * time.Second,
		})
	}

	Describe("Analyze", func() {
		It("sends the cv to the hr_insights flow", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/chat"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))

				user, pass, ok := r.BasicAuth()
				Expect(ok).To(BeTrue())
				Expect(user).To(Equal("user"))
				Expect(pass).To(Equal("pass"))

				var req client.ChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.ConversationFlow).To(Equal("hr_insights"))
				Expect(req.ThreadID).NotTo(BeEmpty())

				var prompt client.UserPrompt
				Expect(json.Unmarshal([]byte(req.UserPrompt), &prompt)).To(Succeed())
				Expect(prompt.RevisionID).To(Equal("rev-1"))
				Expect(prompt.Identifier).To(Equal("cv_1"))
				Expect(prompt.Page1).To(Equal("John Doe, Go engineer"))

				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(client.ChatResponse{
					AgentResponse: "strong candidate",
					ThreadID:      "thread-1",
					MessageID:     "message-1",
				})
			}))
			defer server.Close()

			a, err := newClient(server.URL).Analyze(ctx, "John Doe, Go engineer", "cv_1")
			Expect(err).To(BeNil())
			Expect(a.Text).To(Equal("strong candidate"))
			Expect(a.ThreadID).To(Equal("thread-1"))
			Expect(a.MessageID).To(Equal("message-1"))
		})

		It("uses a new thread for every call", func() {
			var (
				mu      sync.Mutex
				threads []string
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req client.ChatRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				mu.Lock()
				threads = append(threads, req.ThreadID)
				mu.Unlock()
				_, _ = w.Write([]byte(`{"agent_response":"ok"}`))
			}))
			defer server.Close()

			c := newClient(server.URL)
			_, err := c.Analyze(ctx, "a", "cv_1")
			Expect(err).To(BeNil())
			_, err = c.Analyze(ctx, "b", "cv_2")
			Expect(err).To(BeNil())
			mu.Lock()
			defer mu.Unlock()
			Expect(threads).To(HaveLen(2))
			Expect(threads[0]).NotTo(Equal(threads[1]))
		})

		It("returns an error on a non 2xx status", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("upstream down"))
			}))
			defer server.Close()

			_, err := newClient(server.URL).Analyze(ctx, "text", "cv_1")
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("502"))
			Expect(err.Error()).To(ContainSubstring("upstream down"))
		})

		It("returns an error on a malformed body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			}))
			defer server.Close()

			_, err := newClient(server.URL).Analyze(ctx, "text", "cv_1")
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(ContainSubstring("failed to decode response"))
		})

		It("honors the context deadline", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer server.Close()

			tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()

			_, err := newClient(server.URL).Analyze(tctx, "text", "cv_1")
			Expect(err).NotTo(BeNil())
		})
	})

	Describe("SubmitFeedback", func() {
		It("puts the feedback on the message", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPut))
				Expect(r.URL.Path).To(Equal("/messages/message-1/feedback"))

				var req client.FeedbackRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.MessageID).To(Equal("message-1"))
				Expect(req.ThreadID).To(Equal("thread-1"))
				Expect(req.UserID).To(Equal("flask_user"))
				Expect(req.PositiveFeedback).To(BeTrue())

				_, _ = w.Write([]byte(`{"status":"ok"}`))
			}))
			defer server.Close()

			Expect(newClient(server.URL).SubmitFeedback(ctx, "message-1", "thread-1", true)).To(Succeed())
		})
	})
})
