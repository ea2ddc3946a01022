package upload_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Insight-Services-APAC/ingenious-hr-demo-flask-htmx/internal/upload"
)

var _ = Describe("upload storage", func() {
	var storage *upload.Storage

	BeforeEach(func() {
		var err error
		storage, err = upload.NewStorage(GinkgoT().TempDir(), []string{"pdf", ".DOCX", "txt"})
		Expect(err).To(BeNil())
	})

	Context("allowed", func() {
		It("accepts the configured extensions case insensitively", func() {
			Expect(storage.Allowed("cv.pdf")).To(BeTrue())
			Expect(storage.Allowed("cv.PDF")).To(BeTrue())
			Expect(storage.Allowed("cv.docx")).To(BeTrue())
			Expect(storage.Allowed("cv.exe")).To(BeFalse())
			Expect(storage.Allowed("pdf")).To(BeFalse())
		})
	})

	Context("save and remove", func() {
		It("stores the content under a unique path", func() {
			first, err := storage.Save("john doe.txt", strings.NewReader("hello"))
			Expect(err).To(BeNil())
			second, err := storage.Save("john doe.txt", strings.NewReader("world"))
			Expect(err).To(BeNil())

			Expect(first.Name).To(Equal("john_doe.txt"))
			Expect(first.Path).NotTo(Equal(second.Path))
			Expect(filepath.Dir(first.Path)).To(Equal(storage.Dir()))

			data, err := os.ReadFile(first.Path)
			Expect(err).To(BeNil())
			Expect(string(data)).To(Equal("hello"))

			storage.Remove(first.Path)
			_, err = os.Stat(first.Path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("ignores a missing file on remove", func() {
			storage.Remove(filepath.Join(storage.Dir(), "missing.txt"))
		})

		It("refuses a filename with nothing left after sanitizing", func() {
			_, err := storage.Save("../..", strings.NewReader("x"))
			Expect(err).NotTo(BeNil())
		})
	})

	Context("secure filename", func() {
		It("drops directories and unsafe characters", func() {
			Expect(upload.SecureFilename("../../etc/passwd")).To(Equal("etc_passwd"))
			Expect(upload.SecureFilename(`C:\Users\me\cv (1).pdf`)).To(Equal("C_Users_me_cv_1.pdf"))
			Expect(upload.SecureFilename("résumé.pdf")).To(Equal("rsum.pdf"))
		})
	})
})
