package service_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

var _ = Describe("mapping service", func() {
	var (
		env      *testEnv
		ctx      context.Context
		mappings *service.MappingService
	)

	BeforeEach(func() {
		env = newTestEnv()
		ctx = context.TODO()
		mappings = service.NewMappingService(env.store)
	})

	productInput := func(name string, isDefault bool) service.MappingInput {
		return service.MappingInput{
			Name:            name,
			EntityType:      model.EntityProducts,
			Mapping:         map[string]string{"Code": "sku", "Title": "name"},
			Transformations: map[string]string{"sku": "uppercase"},
			DefaultValues:   map[string]string{"status": "draft"},
			IsDefault:       isDefault,
		}
	}

	It("creates, lists and updates templates", func() {
		created, err := mappings.CreateMapping(ctx, productInput("supplier feed", false))
		Expect(err).To(BeNil())
		Expect(created.ID).NotTo(Equal(uuid.Nil))
		Expect(created.MappingData()).To(HaveKeyWithValue("Code", "sku"))
		Expect(created.TransformationsData()).To(HaveKeyWithValue("sku", "uppercase"))

		list, err := mappings.ListMappings(ctx, service.MappingFilter{EntityType: model.EntityProducts})
		Expect(err).To(BeNil())
		Expect(list).To(HaveLen(1))

		in := productInput("supplier feed v2", false)
		in.Mapping = map[string]string{"Code": "sku", "Title": "name", "Cost": "price"}
		// entity type is fixed at creation
		in.EntityType = model.EntityCategories
		updated, err := mappings.UpdateMapping(ctx, created.ID, in)
		Expect(err).To(BeNil())
		Expect(updated.Name).To(Equal("supplier feed v2"))
		Expect(updated.EntityType).To(Equal(model.EntityProducts))
		Expect(updated.MappingData()).To(HaveKeyWithValue("Cost", "price"))
	})

	It("keeps a single default per entity type", func() {
		first, err := mappings.CreateMapping(ctx, productInput("first", true))
		Expect(err).To(BeNil())
		second, err := mappings.CreateMapping(ctx, productInput("second", true))
		Expect(err).To(BeNil())

		reloaded, err := mappings.GetMapping(ctx, first.ID)
		Expect(err).To(BeNil())
		Expect(reloaded.IsDefault).To(BeFalse())

		def, err := env.store.MappingTemplate().GetDefault(ctx, model.EntityProducts, "")
		Expect(err).To(BeNil())
		Expect(def.ID).To(Equal(second.ID))
	})

	It("hides other owners' templates", func() {
		alice, bob := "alice", "bob"
		in := productInput("private", false)
		in.Owner = &alice
		_, err := mappings.CreateMapping(ctx, in)
		Expect(err).To(BeNil())
		_, err = mappings.CreateMapping(ctx, productInput("shared", false))
		Expect(err).To(BeNil())

		list, err := mappings.ListMappings(ctx, service.MappingFilter{Owner: alice})
		Expect(err).To(BeNil())
		Expect(list).To(HaveLen(2))

		list, err = mappings.ListMappings(ctx, service.MappingFilter{Owner: bob})
		Expect(err).To(BeNil())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Name).To(Equal("shared"))
	})

	It("rejects unknown transformations and fields", func() {
		in := productInput("broken", false)
		in.Transformations = map[string]string{"sku": "reverse", "colour": "trim"}
		in.ValidationRules = map[string]string{"name": "sometimes"}

		_, err := mappings.CreateMapping(ctx, in)
		var mappingErr *service.ErrInvalidMapping
		Expect(errors.As(err, &mappingErr)).To(BeTrue())
		Expect(mappingErr.Reasons).To(ConsistOf(
			`transformation for unknown field "colour"`,
			`unknown transformation "reverse" for field "sku"`,
			`unknown validation rule "sometimes" for field "name"`,
		))

		_, err = mappings.CreateMapping(ctx, service.MappingInput{EntityType: model.EntityProducts, Mapping: map[string]string{"sku": "sku"}})
		var invalid *service.ErrInvalidRequest
		Expect(errors.As(err, &invalid)).To(BeTrue())
	})

	It("deletes templates", func() {
		created, err := mappings.CreateMapping(ctx, productInput("gone", false))
		Expect(err).To(BeNil())
		Expect(mappings.DeleteMapping(ctx, created.ID)).To(Succeed())

		_, err = mappings.GetMapping(ctx, created.ID)
		var notFound *service.ErrResourceNotFound
		Expect(errors.As(err, &notFound)).To(BeTrue())

		err = mappings.DeleteMapping(ctx, created.ID)
		Expect(errors.As(err, &notFound)).To(BeTrue())
	})
})
