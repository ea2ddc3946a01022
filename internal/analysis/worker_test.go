package analysis_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/analysis"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/extract"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store"
	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/store/model"
)

// writeDanglingPDF writes a pdf whose xref sends the page tree to the catalog object.
func writeDanglingPDF(path string) {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	catalog := b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 3\n%010d 65535 f \n%010d 00000 n \n%010d 00000 n \n", 0, catalog, catalog)
	fmt.Fprintf(&b, "trailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	Expect(os.WriteFile(path, b.Bytes(), 0o600)).To(Succeed())
}

var _ = Describe("worker", func() {
	var (
		s          store.Store
		jobs       *recordingJobs
		extractor  *fakeExtractor
		analyzer   *fakeAnalyzer
		summarizer *fakeSummarizer
		uploads    *fakeUploads
		items      []analysis.Item
		jobID      = "job-1"
	)

	BeforeEach(func() {
		s = store.NewStore(newTestDB())
		jobs = &recordingJobs{Job: s.Job()}
		extractor = &fakeExtractor{texts: map[string]string{
			"/tmp/a": "alice",
			"/tmp/b": "bob",
			"/tmp/c": "carol",
		}}
		analyzer = &fakeAnalyzer{}
		summarizer = &fakeSummarizer{}
		uploads = newFakeUploads()
		items = []analysis.Item{
			{Name: "alice.pdf", Path: "/tmp/a"},
			{Name: "bob.docx", Path: "/tmp/b"},
			{Name: "carol.txt", Path: "/tmp/c"},
		}

		Expect(s.Job().Create(context.TODO(), model.Job{
			ID:        jobID,
			Status:    model.JobStatusProcessing,
			Message:   "Starting analysis...",
			StartedAt: time.Now(),
		})).To(Succeed())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	newWorker := func(opts ...analysis.WorkerOption) *analysis.Worker {
		return analysis.NewWorker(jobs, s.Result(), extractor, analyzer, uploads, opts...)
	}

	Context("run", func() {
		It("stores one item per document in submission order", func() {
			err := newWorker(analysis.WithSummarizer(summarizer)).Run(context.TODO(), jobID, items)
			Expect(err).To(BeNil())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items).To(HaveLen(3))
			Expect(rs.Items[0].Name).To(Equal("alice.pdf"))
			Expect(rs.Items[0].Analysis).To(Equal("analysis of alice"))
			Expect(rs.Items[0].ThreadID).To(Equal("thread-cv_1"))
			Expect(rs.Items[0].MessageID).To(Equal("message-cv_1"))
			Expect(rs.Items[2].Name).To(Equal("carol.txt"))
			Expect(rs.ThreadIDs).To(Equal([]string{"thread-cv_1", "thread-cv_2", "thread-cv_3"}))
			Expect(rs.Summary).NotTo(BeNil())
			Expect(*rs.Summary).To(Equal("summary of the batch"))
			Expect(analyzer.identifiers).To(Equal([]string{"cv_1", "cv_2", "cv_3"}))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
			Expect(job.Progress).To(Equal(1.0))
			Expect(job.Message).To(Equal("Analysis complete"))
			Expect(job.ResultsID).NotTo(BeNil())
			Expect(*job.ResultsID).To(Equal(jobID))
			Expect(job.CompletedAt).NotTo(BeNil())
		})

		It("reports progress before each document and before the summary", func() {
			Expect(newWorker().Run(context.TODO(), jobID, items)).To(Succeed())

			updates := jobs.Updates()
			Expect(updates).To(HaveLen(5))
			Expect(*updates[0].Progress).To(BeNumerically("~", 0.1, 1e-9))
			Expect(*updates[0].Message).To(Equal("Analyzing alice.pdf (1 of 3)..."))
			Expect(*updates[1].Progress).To(BeNumerically("~", 0.1+0.8/3, 1e-9))
			Expect(*updates[1].Message).To(Equal("Analyzing bob.docx (2 of 3)..."))
			Expect(*updates[2].Progress).To(BeNumerically("~", 0.1+1.6/3, 1e-9))
			Expect(*updates[3].Progress).To(BeNumerically("~", 0.9, 1e-9))
			Expect(*updates[3].Message).To(Equal("Generating summary..."))
			Expect(*updates[4].Status).To(Equal(model.JobStatusCompleted))

			for i := 1; i < len(updates); i++ {
				Expect(*updates[i].Progress).To(BeNumerically(">=", *updates[i-1].Progress))
			}
		})

		It("turns a failing document into an error item", func() {
			analyzer.fail = map[string]error{"bob": errors.New("upstream returned 502")}

			Expect(newWorker(analysis.WithSummarizer(summarizer)).Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items).To(HaveLen(3))
			Expect(rs.Items[1].Name).To(Equal("bob.docx"))
			Expect(rs.Items[1].Analysis).To(Equal("Error: upstream returned 502"))
			Expect(rs.Items[1].ThreadID).To(BeEmpty())
			Expect(rs.Items[1].MessageID).To(BeEmpty())
			Expect(rs.ThreadIDs).To(Equal([]string{"thread-cv_1", "", "thread-cv_3"}))
			Expect(rs.Items[2].Analysis).To(Equal("analysis of carol"))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
		})

		It("turns an unreadable document into an error item", func() {
			items[0].Path = "/tmp/missing"

			Expect(newWorker().Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items[0].Analysis).To(Equal("Error: unreadable document"))
		})

		It("replaces an empty analysis", func() {
			analyzer.empty = map[string]bool{"alice": true}

			Expect(newWorker().Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items[0].Analysis).To(Equal("Analysis failed"))
			Expect(rs.Items[0].ThreadID).To(Equal("thread-cv_1"))
		})

		It("stores no summary without a summarizer", func() {
			Expect(newWorker().Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Summary).To(BeNil())
		})

		It("skips the summary when every document failed", func() {
			analyzer.fail = map[string]error{
				"alice": errors.New("boom"),
				"bob":   errors.New("boom"),
				"carol": errors.New("boom"),
			}

			Expect(newWorker(analysis.WithSummarizer(summarizer)).Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Summary).To(BeNil())
			Expect(summarizer.calls).To(Equal(0))
		})

		It("stores the summarizer error as the summary", func() {
			summarizer.err = errors.New("quota exceeded")

			Expect(newWorker(analysis.WithSummarizer(summarizer)).Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Summary).NotTo(BeNil())
			Expect(*rs.Summary).To(Equal("Error generating summary: quota exceeded"))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
		})

		It("turns a panicking analyzer into error items", func() {
			analyzer.panics = true

			Expect(newWorker(analysis.WithSummarizer(summarizer)).Run(context.TODO(), jobID, items)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items).To(HaveLen(3))
			for _, item := range rs.Items {
				Expect(item.Analysis).To(Equal("Error: analyzer exploded"))
			}
			Expect(rs.Summary).To(BeNil())
			Expect(summarizer.calls).To(Equal(0))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
		})

		It("keeps the batch when a real pdf cannot be read", func() {
			dir := GinkgoT().TempDir()
			good := filepath.Join(dir, "good.txt")
			bad := filepath.Join(dir, "bad.pdf")
			Expect(os.WriteFile(good, []byte("alice"), 0o600)).To(Succeed())
			writeDanglingPDF(bad)

			batch := []analysis.Item{
				{Name: "good.txt", Path: good},
				{Name: "bad.pdf", Path: bad},
			}
			w := analysis.NewWorker(jobs, s.Result(), extract.NewTextExtractor(), analyzer, uploads)
			Expect(w.Run(context.TODO(), jobID, batch)).To(Succeed())

			rs, err := s.Result().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(rs.Items).To(HaveLen(2))
			Expect(rs.Items[0].Analysis).To(Equal("analysis of alice"))
			Expect(rs.Items[1].Name).To(Equal("bad.pdf"))
			Expect(rs.Items[1].Analysis).To(HavePrefix("Error: "))
			Expect(rs.Items[1].ThreadID).To(BeEmpty())

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusCompleted))
			Expect(uploads.Removed(bad)).To(BeTrue())
		})

		It("removes every upload", func() {
			items[1].Path = "/tmp/missing"
			Expect(newWorker().Run(context.TODO(), jobID, items)).To(Succeed())

			for _, item := range items {
				Expect(uploads.Removed(item.Path)).To(BeTrue())
			}
		})
	})

	Context("faults", func() {
		It("fails the job when the completion cannot be written", func() {
			jobs.failOn = 5

			err := newWorker().Run(context.TODO(), jobID, items)
			Expect(err).NotTo(BeNil())

			var fault *analysis.WorkerFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Step()).To(Equal("complete_job"))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Message).To(Equal("database is gone"))

			for _, item := range items {
				Expect(uploads.Removed(item.Path)).To(BeTrue())
			}
		})

		It("fails the job when its own bookkeeping panics", func() {
			jobs.panicOn = 5

			err := newWorker().Run(context.TODO(), jobID, items)
			Expect(err).NotTo(BeNil())
			Expect(err.Error()).To(Equal("job store exploded"))

			var fault *analysis.WorkerFault
			Expect(errors.As(err, &fault)).To(BeTrue())
			Expect(fault.Step()).To(Equal("panic"))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Message).To(Equal("job store exploded"))

			for _, item := range items {
				Expect(uploads.Removed(item.Path)).To(BeTrue())
			}
		})

		It("fails the job even when the run context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := newWorker().Run(ctx, jobID, items)
			Expect(err).NotTo(BeNil())

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
		})
	})

	Context("abandon", func() {
		It("fails the job and removes its uploads", func() {
			newWorker().Abandon(context.TODO(), jobID, items, errors.New("service shutting down"))

			job, err := s.Job().Get(context.TODO(), jobID)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusFailed))
			Expect(job.Message).To(Equal("service shutting down"))
			Expect(job.Progress).To(Equal(0.0))
			for _, item := range items {
				Expect(uploads.Removed(item.Path)).To(BeTrue())
			}
		})
	})
})
