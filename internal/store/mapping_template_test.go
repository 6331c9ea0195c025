package store_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	st "github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("mapping template store", Ordered, func() {
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

	owner := "alice"

	create := func(name string, o *string, isDefault bool) *model.MappingTemplate {
		tpl, err := s.MappingTemplate().Create(context.TODO(), model.MappingTemplate{
			Name:       name,
			EntityType: model.EntityProducts,
			Mapping:    model.MakeJSONField(map[string]string{"Title": "name", "Code": "sku"}),
			IsDefault:  isDefault,
			Owner:      o,
		})
		Expect(err).To(BeNil())
		return tpl
	}

	It("keeps a single default per owner", func() {
		first := create("first", &owner, true)
		second := create("second", &owner, true)
		shared := create("shared", nil, true)

		got, err := s.MappingTemplate().Get(context.TODO(), first.ID)
		Expect(err).To(BeNil())
		Expect(got.IsDefault).To(BeFalse())

		got, err = s.MappingTemplate().GetDefault(context.TODO(), model.EntityProducts, owner)
		Expect(err).To(BeNil())
		Expect(got.ID).To(Equal(second.ID))

		got, err = s.MappingTemplate().GetDefault(context.TODO(), model.EntityProducts, "bob")
		Expect(err).To(BeNil())
		Expect(got.ID).To(Equal(shared.ID))
	})

	It("moves the default flag on update", func() {
		first := create("first", &owner, true)
		second := create("second", &owner, false)

		second.IsDefault = true
		second.Description = "now default"
		updated, err := s.MappingTemplate().Update(context.TODO(), *second)
		Expect(err).To(BeNil())
		Expect(updated.Description).To(Equal("now default"))

		got, err := s.MappingTemplate().Get(context.TODO(), first.ID)
		Expect(err).To(BeNil())
		Expect(got.IsDefault).To(BeFalse())
	})

	It("counts usage and deletes", func() {
		tpl := create("used", nil, false)
		Expect(s.MappingTemplate().IncrementUsage(context.TODO(), tpl.ID)).To(Succeed())
		Expect(s.MappingTemplate().IncrementUsage(context.TODO(), tpl.ID)).To(Succeed())

		got, err := s.MappingTemplate().Get(context.TODO(), tpl.ID)
		Expect(err).To(BeNil())
		Expect(got.UsageCount).To(Equal(2))
		Expect(got.MappingData()).To(HaveKeyWithValue("Title", "name"))

		Expect(s.MappingTemplate().Delete(context.TODO(), tpl.ID)).To(Succeed())
		Expect(s.MappingTemplate().Delete(context.TODO(), tpl.ID)).To(MatchError(st.ErrRecordNotFound))
	})

	It("lists shared and owned templates", func() {
		create("mine", &owner, false)
		create("shared", nil, false)
		other := "bob"
		create("theirs", &other, false)

		tpls, err := s.MappingTemplate().List(context.TODO(), st.NewMappingTemplateQueryFilter().VisibleTo(owner))
		Expect(err).To(BeNil())
		Expect(tpls).To(HaveLen(2))
	})

	It("returns not found without a default", func() {
		_, err := s.MappingTemplate().GetDefault(context.TODO(), model.EntityAttributes, owner)
		Expect(err).To(MatchError(st.ErrRecordNotFound))
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM mapping_templates;")
	})
})
