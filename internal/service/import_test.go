package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

const insertProductStm = "INSERT INTO products (id, created_at, sku, name, price, quantity, status, type) VALUES ('%s', '%s', '%s', '%s', %v, %d, 'active', 'simple');"

func productRows(n int) []string {
	lines := []string{"sku,name,price"}
	for i := 1; i <= n; i++ {
		lines = append(lines, fmt.Sprintf("P-%d,Product %d,%d.50", i, i, i))
	}
	return lines
}

var headerOptions = model.ImportOptions{SkipHeader: true}

var _ = Describe("import service", func() {
	var (
		env *testEnv
		ctx context.Context
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.TODO()
	})

	Context("validate", func() {
		It("counts valid and invalid rows without storing anything", func() {
			lines := productRows(10)
			// rows 3 and 7 lose their sku
			lines[3] = ",Product 3,3.50"
			lines[7] = ",Product 7,7.50"

			report, err := env.imports.ValidateImport(ctx, csvUpload("products.csv", lines...), model.EntityProducts, nil, headerOptions)
			Expect(err).To(BeNil())
			Expect(report.TotalRows).To(Equal(10))
			Expect(report.ValidRows).To(Equal(8))
			Expect(report.InvalidRows).To(Equal(2))
			Expect(report.Valid).To(BeFalse())
			Expect(report.Errors).To(HaveLen(2))
			Expect(report.Errors[0].Row).To(Equal(3))
			Expect(report.Errors[0].Field).To(Equal("sku"))
			Expect(report.Errors[1].Row).To(Equal(7))

			jobs, err := env.imports.ListImportJobs(ctx, service.JobFilter{})
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})

		It("reports unresolved categories as warnings", func() {
			report, err := env.imports.ValidateImport(ctx, csvUpload("products.csv",
				"sku,name,categories",
				"P-1,Shoe,Footwear",
			), model.EntityProducts, nil, headerOptions)
			Expect(err).To(BeNil())
			Expect(report.Valid).To(BeTrue())
			Expect(report.Warnings).To(HaveLen(1))
			Expect(report.Warnings[0].Message).To(ContainSubstring(`category "Footwear" not found`))
		})

		It("rejects a mapping without the required fields", func() {
			_, err := env.imports.ValidateImport(ctx, csvUpload("products.csv", productRows(2)...), model.EntityProducts,
				map[string]string{"name": "name"}, headerOptions)
			var mappingErr *service.ErrInvalidMapping
			Expect(errors.As(err, &mappingErr)).To(BeTrue())
			Expect(mappingErr.Reasons).To(ContainElement(`required field "sku" is not mapped`))
		})
	})

	Context("preview", func() {
		It("returns the first rows and a suggested mapping", func() {
			preview, err := env.imports.PreviewImport(ctx, csvUpload("products.csv",
				"Product Name,SKU Code,Unit Price",
				"Shoe,S-1,10",
				"Hat,H-1,5",
				"Sock,K-1,2",
			), model.EntityProducts, 2, headerOptions)
			Expect(err).To(BeNil())
			Expect(preview.Headers).To(Equal([]string{"Product Name", "SKU Code", "Unit Price"}))
			Expect(preview.Rows).To(HaveLen(2))
			Expect(preview.Rows[1]["SKU Code"]).To(Equal("H-1"))
			Expect(preview.SuggestedMapping.Confidence).To(Equal(1.0))
			Expect(preview.SuggestedMapping.Mapping).To(Equal(map[string]string{
				"Product Name": "name",
				"SKU Code":     "sku",
				"Unit Price":   "price",
			}))
		})

		It("rejects unsupported files", func() {
			_, err := env.imports.PreviewImport(ctx, csvUpload("products.txt", "a,b"), model.EntityProducts, 0, headerOptions)
			var formatErr *service.ErrFileFormat
			Expect(errors.As(err, &formatErr)).To(BeTrue())
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())
		})
	})

	Context("create and run", func() {
		It("stores a PENDING job with the row count and queues it", func() {
			job, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(4)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Owner:      "alice",
				Options:    headerOptions,
			})
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(model.JobStatusPending))
			Expect(job.TotalRows).To(Equal(4))
			Expect(job.FileFormat).To(Equal("csv"))
			Expect(job.QueueJobID).To(HavePrefix("mem-"))
			Expect(job.MappingData()).To(Equal(map[string]string{"sku": "sku", "name": "name", "price": "price"}))

			size, err := env.blob.Stat(ctx, job.FileKey)
			Expect(err).To(BeNil())
			Expect(size).To(Equal(job.FileSize))
		})

		It("rejects an invalid mapping before persisting anything", func() {
			_, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(2)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Mapping:    map[string]string{"sku": "sku", "price": "cost"},
				Options:    headerOptions,
			})
			var mappingErr *service.ErrInvalidMapping
			Expect(errors.As(err, &mappingErr)).To(BeTrue())

			jobs, err := env.imports.ListImportJobs(ctx, service.JobFilter{})
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())
		})

		It("completes with a conflict counted as a row error", func() {
			tx := env.db.Exec(fmt.Sprintf(insertProductStm, "5b0f9e58-1f3c-4a55-9a2e-1f8e0bb0c001", "2026-01-01 00:00:00", "P-3", "Existing", 1, 1))
			Expect(tx.Error).To(BeNil())

			job, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(12)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Options:    model.ImportOptions{SkipHeader: true, BatchSize: 5},
			})
			Expect(err).To(BeNil())
			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 5)).To(Succeed())

			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(model.JobStatusCompleted))
			Expect(done.ProcessedRows).To(Equal(12))
			Expect(done.SuccessCount).To(Equal(11))
			Expect(done.ErrorCount).To(Equal(1))
			Expect(done.StartedAt).NotTo(BeNil())
			Expect(done.CompletedAt).NotTo(BeNil())
			Expect(done.ErrorsData()).To(HaveLen(1))
			Expect(done.ErrorsData()[0].Row).To(Equal(3))
			Expect(done.ErrorsData()[0].Field).To(Equal("sku"))
			Expect(done.ErrorsData()[0].Message).To(ContainSubstring("already exists"))
			Expect(done.SummaryData().Created).To(Equal(11))
			Expect(done.SummaryData().Failed).To(Equal(1))

			existing, err := env.store.Product().GetBySKU(ctx, "P-3")
			Expect(err).To(BeNil())
			Expect(existing.Name).To(Equal("Existing"))

			_, err = env.blob.Stat(ctx, job.FileKey)
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})

		It("reaches COMPLETED even when every row fails", func() {
			job, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv",
				"sku,name,price",
				"A-1,Thing,abc",
				"B-1,Other,-1",
			), service.ImportRequest{EntityType: model.EntityProducts, Options: headerOptions})
			Expect(err).To(BeNil())
			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 0)).To(Succeed())

			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(model.JobStatusCompleted))
			Expect(done.ErrorCount).To(Equal(2))
			Expect(done.SuccessCount).To(BeZero())
		})

		It("fails a variant import without a parent column with a single row 0 error", func() {
			job, err := env.imports.CreateImportJob(ctx, csvUpload("variants.csv",
				"sku,name",
				"V-1,Small",
			), service.ImportRequest{EntityType: model.EntityVariants, Options: headerOptions})
			Expect(err).To(BeNil())
			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 0)).To(Succeed())

			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(model.JobStatusFailed))
			Expect(done.ErrorsData()).To(HaveLen(1))
			Expect(done.ErrorsData()[0].Row).To(BeZero())
			Expect(done.ErrorsData()[0].Message).To(ContainSubstring("parent_sku"))

			_, err = env.blob.Stat(ctx, job.FileKey)
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		})

		It("resumes from a start row", func() {
			job, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(5)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Options:    headerOptions,
			})
			Expect(err).To(BeNil())
			Expect(env.imports.RunImportJob(ctx, job.ID, 4, 0)).To(Succeed())

			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.ProcessedRows).To(Equal(5))
			Expect(done.SkipCount).To(Equal(3))
			Expect(done.SuccessCount).To(Equal(2))

			_, err = env.store.Product().GetBySKU(ctx, "P-1")
			Expect(errors.Is(err, store.ErrRecordNotFound)).To(BeTrue())
			_, err = env.store.Product().GetBySKU(ctx, "P-4")
			Expect(err).To(BeNil())
		})

		It("applies the owner's default template", func() {
			owner := "alice"
			tpl, err := service.NewMappingService(env.store).CreateMapping(ctx, service.MappingInput{
				Name:            "supplier feed",
				EntityType:      model.EntityProducts,
				Mapping:         map[string]string{"Code": "sku", "Title": "name"},
				Transformations: map[string]string{"sku": model.TransformUppercase},
				DefaultValues:   map[string]string{"status": "active"},
				IsDefault:       true,
				Owner:           &owner,
			})
			Expect(err).To(BeNil())

			job, err := env.imports.CreateImportJob(ctx, csvUpload("feed.csv",
				"Code,Title",
				"ab-1,Boot",
			), service.ImportRequest{EntityType: model.EntityProducts, Owner: owner, Options: headerOptions})
			Expect(err).To(BeNil())
			Expect(*job.OptionsData().MappingTemplateID).To(Equal(tpl.ID))
			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 0)).To(Succeed())

			product, err := env.store.Product().GetBySKU(ctx, "AB-1")
			Expect(err).To(BeNil())
			Expect(product.Status).To(Equal("active"))

			used, err := env.store.MappingTemplate().Get(ctx, tpl.ID)
			Expect(err).To(BeNil())
			Expect(used.UsageCount).To(Equal(1))
		})

		It("does not queue validate only jobs and processes them as a dry run", func() {
			job, err := env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(3)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Options:    model.ImportOptions{SkipHeader: true, ValidateOnly: true},
			})
			Expect(err).To(BeNil())
			Expect(job.QueueJobID).To(BeEmpty())

			queued, err := env.imports.ProcessImportJob(ctx, job.ID, 0, 0)
			Expect(err).To(BeNil())
			Expect(queued.Status).To(Equal(model.JobStatusPending))
			Expect(queued.QueueJobID).NotTo(BeEmpty())

			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 0)).To(Succeed())
			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(model.JobStatusCompleted))
			Expect(done.SuccessCount).To(Equal(3))

			count, err := env.store.Product().Count(ctx, nil)
			Expect(err).To(BeNil())
			Expect(count).To(BeZero())
		})
	})

	Context("state legality", func() {
		var job *model.ImportJob

		BeforeEach(func() {
			var err error
			job, err = env.imports.CreateImportJob(ctx, csvUpload("products.csv", productRows(2)...), service.ImportRequest{
				EntityType: model.EntityProducts,
				Options:    headerOptions,
			})
			Expect(err).To(BeNil())
		})

		It("rejects processing a PROCESSING job", func() {
			_, err := env.store.ImportJob().Transition(ctx, job.ID, []model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, nil)
			Expect(err).To(BeNil())

			_, err = env.imports.ProcessImportJob(ctx, job.ID, 0, 0)
			var stateErr *service.ErrJobState
			Expect(errors.As(err, &stateErr)).To(BeTrue())
			Expect(stateErr.State).To(Equal(model.JobStatusProcessing))

			err = env.imports.RunImportJob(ctx, job.ID, 0, 0)
			Expect(errors.As(err, &stateErr)).To(BeTrue())
			Expect(errors.Is(err, jobs.ErrNotRunnable)).To(BeTrue())
		})

		It("rejects cancelling COMPLETED and FAILED jobs", func() {
			Expect(env.imports.RunImportJob(ctx, job.ID, 0, 0)).To(Succeed())

			_, err := env.imports.CancelImportJob(ctx, job.ID)
			var stateErr *service.ErrJobState
			Expect(errors.As(err, &stateErr)).To(BeTrue())
			Expect(stateErr.State).To(Equal(model.JobStatusCompleted))
			Expect(errors.Is(err, jobs.ErrNotRunnable)).To(BeFalse())

			failed, err := env.imports.CreateImportJob(ctx, csvUpload("variants.csv", "sku", "V-1"), service.ImportRequest{
				EntityType: model.EntityVariants,
				Options:    headerOptions,
			})
			Expect(err).To(BeNil())
			Expect(env.imports.RunImportJob(ctx, failed.ID, 0, 0)).To(Succeed())

			_, err = env.imports.CancelImportJob(ctx, failed.ID)
			Expect(errors.As(err, &stateErr)).To(BeTrue())
			Expect(stateErr.State).To(Equal(model.JobStatusFailed))
		})

		It("cancels a PENDING job and drops its upload", func() {
			cancelled, err := env.imports.CancelImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(cancelled.Status).To(Equal(model.JobStatusCancelled))

			_, err = env.blob.Stat(ctx, job.FileKey)
			Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())

			err = env.imports.RunImportJob(ctx, job.ID, 0, 0)
			Expect(errors.Is(err, jobs.ErrNotRunnable)).To(BeTrue())
		})

		It("returns not found for unknown jobs", func() {
			_, err := env.imports.GetImportJob(ctx, uuid.New())
			var notFound *service.ErrResourceNotFound
			Expect(errors.As(err, &notFound)).To(BeTrue())
		})
	})

	Context("with a running queue", func() {
		It("processes created jobs in the background", func() {
			env.queue.Bind(jobs.Handlers{Imports: env.imports, Exports: env.exports})
			qctx, cancel := context.WithCancel(ctx)
			DeferCleanup(cancel)
			Expect(env.queue.Start(qctx)).To(Succeed())

			job, err := env.imports.CreateImportJob(ctx, csvUpload("categories.csv",
				"Name,Parent",
				"Shoes,",
				"Running Shoes,shoes",
			), service.ImportRequest{EntityType: model.EntityCategories, Options: headerOptions})
			Expect(err).To(BeNil())
			env.queue.Drain()

			done, err := env.imports.GetImportJob(ctx, job.ID)
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(model.JobStatusCompleted))
			Expect(done.SuccessCount).To(Equal(2))

			child, err := env.store.Category().GetBySlug(ctx, "running-shoes")
			Expect(err).To(BeNil())
			Expect(child.ParentID).NotTo(BeNil())
			Expect(strings.ToLower(child.Name)).To(Equal("running shoes"))
		})
	})
})
