package exporter_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/exporter"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
)

var _ = Describe("Builder", Ordered, func() {
	var (
		s   store.Store
		ctx = context.TODO()
	)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	BeforeAll(func() {
		s = newTestStore()

		shoes, err := s.Category().Create(ctx, model.Category{Name: "Shoes", Slug: "shoes", IsActive: true, CreatedAt: base})
		Expect(err).To(BeNil())
		_, err = s.Category().Create(ctx, model.Category{Name: "Running", Slug: "running", ParentID: &shoes.ID, IsActive: false, CreatedAt: base.Add(time.Minute)})
		Expect(err).To(BeNil())
		color, err := s.Attribute().Create(ctx, model.Attribute{Code: "color", Name: "Color", Type: "select", CreatedAt: base})
		Expect(err).To(BeNil())
		_, err = s.Attribute().Create(ctx, model.Attribute{Code: "size", Name: "Size", Type: "text", CreatedAt: base.Add(time.Minute)})
		Expect(err).To(BeNil())

		for i, seed := range []struct {
			sku, name, brand, status string
			price                    float64
			qty                      int
		}{
			{"RUN-1", "Runner", "Acme", "active", 80, 5},
			{"RUN-2", "Runner Pro", "Acme", "draft", 120, 0},
			{"HAT-1", "Sun Hat", "Brim", "active", 15.5, 40},
		} {
			p, err := s.Product().Create(ctx, model.Product{
				SKU: seed.sku, Name: seed.name, Brand: seed.brand, Status: seed.status, Type: "simple",
				Price: seed.price, Quantity: seed.qty, CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			Expect(err).To(BeNil())
			if strings.HasPrefix(seed.sku, "RUN") {
				Expect(s.Product().SetCategories(ctx, p.ID, []uuid.UUID{shoes.ID})).To(Succeed())
			}
		}

		run1, err := s.Product().GetBySKU(ctx, "RUN-1")
		Expect(err).To(BeNil())
		Expect(s.Product().SetMedia(ctx, run1.ID, []string{"https://img/1.jpg", "https://img/2.jpg"})).To(Succeed())
		Expect(s.Product().SetAttributeValues(ctx, run1.ID, map[uuid.UUID]string{color.ID: "Red"})).To(Succeed())
		for _, sku := range []string{"RUN-1-M", "RUN-1-L"} {
			_, err := s.Variant().Create(ctx, model.Variant{ProductID: run1.ID, SKU: sku, Price: 80, CreatedAt: base})
			Expect(err).To(BeNil())
		}
	})

	build := func(entity model.EntityType, req exporter.Request, pageSize int) (string, []int) {
		e, err := exporter.New(entity, s)
		Expect(err).To(BeNil())

		var buf bytes.Buffer
		w, err := tabular.NewWriter(tabular.FormatCSV, &buf, tabular.WriterOptions{})
		Expect(err).To(BeNil())

		var progress []int
		_, err = exporter.NewBuilder(e, pageSize).Build(ctx, w, req, func(_ context.Context, processed, total int) error {
			progress = append(progress, processed)
			return nil
		})
		Expect(err).To(BeNil())
		Expect(w.Close()).To(Succeed())
		return buf.String(), progress
	}

	It("exports requested fields in order and pages through the result", func() {
		out, progress := build(model.EntityProducts, exporter.Request{Fields: []string{"sku", "price", "quantity"}}, 2)
		Expect(out).To(Equal("sku,price,quantity\nRUN-1,80,5\nRUN-2,120,0\nHAT-1,15.5,40\n"))
		Expect(progress).To(Equal([]int{0, 2, 3}))
	})

	It("combines filters with AND", func() {
		priceMax := 100.0
		req := exporter.Request{
			Fields: []string{"sku"},
			Filter: model.ExportFilter{Brands: []string{"Acme"}, PriceMax: &priceMax},
		}
		out, _ := build(model.EntityProducts, req, 50)
		Expect(out).To(Equal("sku\nRUN-1\n"))

		req.Filter = model.ExportFilter{Status: []string{"active"}, Categories: []string{"shoes"}}
		out, _ = build(model.EntityProducts, req, 50)
		Expect(out).To(Equal("sku\nRUN-1\n"))

		req.Filter = model.ExportFilter{Search: "HAT"}
		out, _ = build(model.EntityProducts, req, 50)
		Expect(out).To(Equal("sku\nHAT-1\n"))
	})

	It("flattens relations into columns", func() {
		req := exporter.Request{
			Fields: []string{"sku", "categories", "image_count", "primary_image", "variant_count", "variant_skus", "attributes.color"},
			Filter: model.ExportFilter{Search: "RUN-1"},
		}
		out, _ := build(model.EntityProducts, req, 50)
		Expect(out).To(Equal("sku,categories,image_count,primary_image,variant_count,variant_skus,attributes.color\n" +
			"RUN-1,Shoes,2,https://img/1.jpg,2,\"RUN-1-L,RUN-1-M\",Red\n"))
	})

	It("adds relation columns from the include flags", func() {
		e, err := exporter.New(model.EntityProducts, s)
		Expect(err).To(BeNil())
		columns, err := e.Columns(ctx, exporter.Request{Options: model.ExportOptions{IncludeAttributes: true, IncludeVariants: true}})
		Expect(err).To(BeNil())
		Expect(columns).To(ContainElements("variant_count", "variant_skus", "attributes.color", "attributes.size"))
		Expect(columns).NotTo(ContainElement("categories"))
	})

	It("rejects unknown fields", func() {
		e, err := exporter.New(model.EntityCategories, s)
		Expect(err).To(BeNil())
		_, err = e.Columns(ctx, exporter.Request{Fields: []string{"name", "colour"}})
		Expect(err).To(MatchError("unknown export fields: colour"))
	})

	It("exports categories with their parent slug", func() {
		out, _ := build(model.EntityCategories, exporter.Request{Fields: []string{"name", "slug", "parent", "is_active"}}, 50)
		Expect(out).To(Equal("name,slug,parent,is_active\nShoes,shoes,,true\nRunning,running,shoes,false\n"))

		out, _ = build(model.EntityCategories, exporter.Request{Fields: []string{"slug"}, Filter: model.ExportFilter{Status: []string{"inactive"}}}, 50)
		Expect(out).To(Equal("slug\nrunning\n"))
	})

	It("exports variants with their parent sku", func() {
		out, _ := build(model.EntityVariants, exporter.Request{Fields: []string{"parent_sku", "sku"}, Filter: model.ExportFilter{Search: "-L"}}, 50)
		Expect(out).To(Equal("parent_sku,sku\nRUN-1,RUN-1-L\n"))
	})

	It("stops when the job leaves PROCESSING", func() {
		e, err := exporter.New(model.EntityProducts, s)
		Expect(err).To(BeNil())
		var buf bytes.Buffer
		w, err := tabular.NewWriter(tabular.FormatJSON, &buf, tabular.WriterOptions{})
		Expect(err).To(BeNil())

		written, err := exporter.NewBuilder(e, 1).Build(ctx, w, exporter.Request{}, func(_ context.Context, processed, _ int) error {
			if processed >= 1 {
				return store.ErrConditionFailed
			}
			return nil
		})
		Expect(errors.Is(err, exporter.ErrStopped)).To(BeTrue())
		Expect(written).To(Equal(1))
	})
})
