package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("export service", func() {
	var (
		env *testEnv
		ctx context.Context
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.TODO()

		for i, p := range []struct {
			sku   string
			name  string
			price float64
		}{{"A-1", "Alpha", 10}, {"B-2", "Beta", 20.5}} {
			tx := env.db.Exec(fmt.Sprintf(insertProductStm, uuid.NewString(), fmt.Sprintf("2026-01-01 00:00:0%d", i), p.sku, p.name, p.price, 3))
			Expect(tx.Error).To(BeNil())
		}
	})

	createExport := func() *model.ExportJob {
		job, err := env.exports.CreateExportJob(ctx, service.ExportRequest{
			EntityType: model.EntityProducts,
			Format:     model.FormatCSV,
			Fields:     []string{"sku", "name", "price"},
		})
		Expect(err).To(BeNil())
		return job
	}

	readDownload := func(id uuid.UUID) string {
		dl, err := env.exports.DownloadExport(ctx, id)
		Expect(err).To(BeNil())
		defer dl.Body.Close()
		content, err := io.ReadAll(dl.Body)
		Expect(err).To(BeNil())
		return string(content)
	}

	It("is PENDING with nothing processed before the worker starts", func() {
		job := createExport()

		polled, err := env.exports.GetExportJob(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(polled.Status).To(Equal(model.JobStatusPending))
		Expect(polled.ProcessedRecords).To(BeZero())
		Expect(polled.ExpiresAt.Equal(epoch.Add(7 * 24 * time.Hour))).To(BeTrue())
		Expect(polled.QueueJobID).NotTo(BeEmpty())
	})

	It("writes the artifact and serves it until it expires", func() {
		job := createExport()
		Expect(env.exports.RunExportJob(ctx, job.ID)).To(Succeed())

		done, err := env.exports.GetExportJob(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(done.Status).To(Equal(model.JobStatusCompleted))
		Expect(done.TotalRecords).To(Equal(2))
		Expect(done.ProcessedRecords).To(Equal(2))
		Expect(done.FileName).To(Equal("products_export_20260302-090000.csv"))
		Expect(done.DownloadURL).To(Equal(fmt.Sprintf("http://bulk.test/api/v1/exports/%s/download", job.ID)))

		content := readDownload(job.ID)
		Expect(content).To(Equal("sku,name,price\nA-1,Alpha,10\nB-2,Beta,20.5\n"))
		Expect(done.FileSize).To(Equal(int64(len(content))))
	})

	It("reports expiry even while the artifact still exists", func() {
		job := createExport()
		Expect(env.exports.RunExportJob(ctx, job.ID)).To(Succeed())
		done, err := env.exports.GetExportJob(ctx, job.ID)
		Expect(err).To(BeNil())

		env.clock.Step(8 * 24 * time.Hour)
		_, err = env.blob.Stat(ctx, done.FileKey)
		Expect(err).To(BeNil())

		_, err = env.exports.DownloadExport(ctx, job.ID)
		var expired *service.ErrExportExpired
		Expect(errors.As(err, &expired)).To(BeTrue())

		purged, err := env.exports.PurgeExpiredExports(ctx)
		Expect(err).To(BeNil())
		Expect(purged).To(Equal(1))

		_, err = env.exports.DownloadExport(ctx, job.ID)
		Expect(errors.As(err, &expired)).To(BeTrue())
	})

	It("reports a missing artifact", func() {
		job := createExport()
		Expect(env.exports.RunExportJob(ctx, job.ID)).To(Succeed())
		done, err := env.exports.GetExportJob(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(env.blob.Delete(ctx, done.FileKey)).To(Succeed())

		_, err = env.exports.DownloadExport(ctx, job.ID)
		var missing *service.ErrArtifactMissing
		Expect(errors.As(err, &missing)).To(BeTrue())
	})

	It("refuses to download an unfinished export", func() {
		job := createExport()

		_, err := env.exports.DownloadExport(ctx, job.ID)
		var stateErr *service.ErrJobState
		Expect(errors.As(err, &stateErr)).To(BeTrue())
		Expect(stateErr.State).To(Equal(model.JobStatusPending))
	})

	It("cancels a PENDING export so the worker drops it", func() {
		job := createExport()

		cancelled, err := env.exports.CancelExportJob(ctx, job.ID)
		Expect(err).To(BeNil())
		Expect(cancelled.Status).To(Equal(model.JobStatusCancelled))

		err = env.exports.RunExportJob(ctx, job.ID)
		Expect(errors.Is(err, jobs.ErrNotRunnable)).To(BeTrue())

		_, err = env.exports.CancelExportJob(ctx, job.ID)
		var stateErr *service.ErrJobState
		Expect(errors.As(err, &stateErr)).To(BeTrue())
		Expect(stateErr.State).To(Equal(model.JobStatusCancelled))
	})

	It("rejects unknown fields and formats up front", func() {
		_, err := env.exports.CreateExportJob(ctx, service.ExportRequest{
			EntityType: model.EntityProducts,
			Format:     model.FormatCSV,
			Fields:     []string{"sku", "colour"},
		})
		var invalid *service.ErrInvalidRequest
		Expect(errors.As(err, &invalid)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("colour"))

		_, err = env.exports.CreateExportJob(ctx, service.ExportRequest{EntityType: model.EntityProducts, Format: "pdf"})
		Expect(errors.As(err, &invalid)).To(BeTrue())

		list, err := env.exports.ListExportJobs(ctx, service.JobFilter{})
		Expect(err).To(BeNil())
		Expect(list).To(BeEmpty())
	})

	It("exports workbooks with the xlsx extension", func() {
		job, err := env.exports.CreateExportJob(ctx, service.ExportRequest{
			EntityType: model.EntityProducts,
			Format:     "xlsx",
		})
		Expect(err).To(BeNil())
		Expect(job.Format).To(Equal(model.FormatExcel))
		Expect(env.exports.RunExportJob(ctx, job.ID)).To(Succeed())

		dl, err := env.exports.DownloadExport(ctx, job.ID)
		Expect(err).To(BeNil())
		defer dl.Body.Close()
		Expect(dl.Name).To(HaveSuffix(".xlsx"))
		Expect(dl.ContentType).To(Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
	})
})
