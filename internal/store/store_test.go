package store_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	st "github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("Store", Ordered, func() {
	var (
		store  st.Store
		gormDB *gorm.DB
	)

	BeforeAll(func() {
		store, gormDB = newTestStore()
	})

	AfterAll(func() {
		store.Close()
	})

	Context("transaction", func() {
		It("commits a product", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			p, err := store.Product().Create(ctx, model.Product{SKU: "TX-1", Name: "Committed", Status: "draft", Type: "simple"})
			Expect(err).To(BeNil())
			Expect(p.ID).ToNot(Equal(uuid.Nil))

			_, cerr := st.Commit(ctx)
			Expect(cerr).To(BeNil())

			var count int64
			Expect(gormDB.Raw("SELECT COUNT(*) FROM products;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("rolls back a product", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			_, err = store.Product().Create(ctx, model.Product{SKU: "TX-2", Name: "Rolled back", Status: "draft", Type: "simple"})
			Expect(err).To(BeNil())

			// visible inside the transaction
			p, err := store.Product().GetBySKU(ctx, "TX-2")
			Expect(err).To(BeNil())
			Expect(p.Name).To(Equal("Rolled back"))

			_, cerr := st.Rollback(ctx)
			Expect(cerr).To(BeNil())

			_, err = store.Product().GetBySKU(context.TODO(), "TX-2")
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("rolls back everything when an atomic unit fails", func() {
			boom := errors.New("boom")
			err := st.Atomic(context.TODO(), store, func(ctx context.Context) error {
				if _, err := store.Product().Create(ctx, model.Product{SKU: "TX-3", Name: "First", Status: "draft", Type: "simple"}); err != nil {
					return err
				}
				if _, err := store.Product().Create(ctx, model.Product{SKU: "TX-4", Name: "Second", Status: "draft", Type: "simple"}); err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))

			var count int64
			Expect(gormDB.Raw("SELECT COUNT(*) FROM products;").Scan(&count).Error).To(BeNil())
			Expect(count).To(BeZero())
		})

		It("joins the outer transaction", func() {
			ctx, err := store.NewTransactionContext(context.TODO())
			Expect(err).To(BeNil())

			err = st.Atomic(ctx, store, func(ctx context.Context) error {
				_, err := store.Product().Create(ctx, model.Product{SKU: "TX-5", Name: "Nested", Status: "draft", Type: "simple"})
				return err
			})
			Expect(err).To(BeNil())
			Expect(st.FromContext(ctx)).NotTo(BeNil())

			_, err = st.Rollback(ctx)
			Expect(err).To(BeNil())
			Expect(st.FromContext(ctx)).To(BeNil())

			_, err = store.Product().GetBySKU(context.TODO(), "TX-5")
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		AfterEach(func() {
			gormDB.Exec("DELETE FROM products;")
		})
	})
})
