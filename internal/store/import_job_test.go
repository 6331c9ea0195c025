package store_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	st "github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("import job store", Ordered, func() {
	var (
		s      st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		s, gormDB = newTestStore()
	})

	AfterAll(func() {
		s.Close()
	})

	newJob := func(total int) *model.ImportJob {
		job, err := s.ImportJob().Create(context.TODO(), model.ImportJob{
			EntityType: model.EntityProducts,
			Status:     model.JobStatusPending,
			FileName:   "products.csv",
			FileFormat: "csv",
			TotalRows:  total,
			Owner:      "alice",
		})
		Expect(err).To(BeNil())
		return job
	}

	Context("transition", func() {
		It("claims a pending job once", func() {
			job := newJob(3)

			claimed, err := s.ImportJob().Transition(context.TODO(), job.ID,
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, nil)
			Expect(err).To(BeNil())
			Expect(claimed.Status).To(Equal(model.JobStatusProcessing))

			current, err := s.ImportJob().Transition(context.TODO(), job.ID,
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, nil)
			Expect(err).To(MatchError(st.ErrConditionFailed))
			Expect(current.Status).To(Equal(model.JobStatusProcessing))
		})

		It("returns not found for unknown jobs", func() {
			_, err := s.ImportJob().Transition(context.TODO(), uuid.New(),
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusCancelled, nil)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("progress", func() {
		It("accumulates deltas and clamps processed rows", func() {
			job := newJob(5)
			_, err := s.ImportJob().Transition(context.TODO(), job.ID,
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, nil)
			Expect(err).To(BeNil())

			updated, err := s.ImportJob().ApplyProgress(context.TODO(), job.ID, model.ImportProgress{
				Processed: 3, Success: 2, Failed: 1, Created: 2,
				Errors: []model.RowError{{Row: 2, Field: "sku", Message: "sku is required"}},
			}, 100)
			Expect(err).To(BeNil())
			Expect(updated.ProcessedRows).To(Equal(3))
			Expect(updated.SuccessCount).To(Equal(2))
			Expect(updated.ErrorCount).To(Equal(1))
			Expect(updated.ErrorsData()).To(HaveLen(1))
			Expect(updated.SummaryData().Created).To(Equal(2))

			updated, err = s.ImportJob().ApplyProgress(context.TODO(), job.ID, model.ImportProgress{Processed: 4, Success: 2}, 100)
			Expect(err).To(BeNil())
			Expect(updated.ProcessedRows).To(Equal(5))
			Expect(updated.SuccessCount + updated.ErrorCount).To(BeNumerically("<=", updated.ProcessedRows))
		})

		It("caps the error list", func() {
			job := newJob(10)
			_, err := s.ImportJob().Transition(context.TODO(), job.ID,
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing, nil)
			Expect(err).To(BeNil())

			errs := make([]model.RowError, 0, 5)
			for i := 1; i <= 5; i++ {
				errs = append(errs, model.RowError{Row: i, Message: "bad"})
			}
			updated, err := s.ImportJob().ApplyProgress(context.TODO(), job.ID, model.ImportProgress{Processed: 5, Failed: 5, Errors: errs}, 3)
			Expect(err).To(BeNil())
			Expect(updated.ErrorsData()).To(HaveLen(3))
			Expect(updated.ErrorCount).To(Equal(5))
		})

		It("refuses progress on terminal jobs", func() {
			job := newJob(2)
			_, err := s.ImportJob().Transition(context.TODO(), job.ID,
				[]model.JobStatus{model.JobStatusPending}, model.JobStatusCancelled, nil)
			Expect(err).To(BeNil())

			_, err = s.ImportJob().ApplyProgress(context.TODO(), job.ID, model.ImportProgress{Processed: 1, Success: 1}, 100)
			Expect(err).To(MatchError(st.ErrConditionFailed))

			current, err := s.ImportJob().Get(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(current.ProcessedRows).To(Equal(0))
		})
	})

	Context("list", func() {
		It("filters by owner and status", func() {
			newJob(1)
			other, err := s.ImportJob().Create(context.TODO(), model.ImportJob{
				EntityType: model.EntityCategories,
				Status:     model.JobStatusPending,
				FileName:   "c.csv",
				FileFormat: "csv",
				Owner:      "bob",
			})
			Expect(err).To(BeNil())

			jobs, err := s.ImportJob().List(context.TODO(), st.NewJobQueryFilter().ByOwner("bob"), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].ID).To(Equal(other.ID))

			jobs, err = s.ImportJob().List(context.TODO(),
				st.NewJobQueryFilter().ByStatus(model.JobStatusPending).ByEntityType(model.EntityProducts), nil)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))

			counts, err := s.ImportJob().CountByStatus(context.TODO())
			Expect(err).To(BeNil())
			Expect(counts[string(model.JobStatusPending)]).To(Equal(int64(2)))
		})
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM import_jobs;")
	})
})
