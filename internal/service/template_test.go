package service_test

import (
	"context"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("template service", func() {
	var templates *service.TemplateService

	BeforeEach(func() {
		templates = service.NewTemplateService()
	})

	It("serves a products csv template with sample rows", func() {
		dl, err := templates.DownloadTemplate(context.TODO(), model.EntityProducts, "", true, 3)
		Expect(err).To(BeNil())
		defer dl.Body.Close()
		Expect(dl.Name).To(Equal("products_template.csv"))
		Expect(dl.ContentType).To(Equal("text/csv"))

		content, err := io.ReadAll(dl.Body)
		Expect(err).To(BeNil())
		Expect(dl.Size).To(Equal(int64(len(content))))

		lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		Expect(lines).To(HaveLen(4))
		Expect(lines[0]).To(Equal(strings.Join(catalog.Headers(model.EntityProducts), ",")))
	})

	It("rejects unknown formats", func() {
		_, err := templates.DownloadTemplate(context.TODO(), model.EntityProducts, "pdf", false, 0)
		var formatErr *service.ErrFileFormat
		Expect(errors.As(err, &formatErr)).To(BeTrue())
	})
})
