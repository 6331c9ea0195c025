package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	api "github.com/openpim/catalog-bulk/api/v1"
	"github.com/openpim/catalog-bulk/internal/auth"
	"github.com/openpim/catalog-bulk/internal/config"
	handlers "github.com/openpim/catalog-bulk/internal/handlers/v1"
	"github.com/openpim/catalog-bulk/internal/jobs"
	"github.com/openpim/catalog-bulk/internal/service"
	"github.com/openpim/catalog-bulk/internal/storage"
	"github.com/openpim/catalog-bulk/internal/store"
)

var epoch = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	router  http.Handler
	exports *service.ExportService
	clock   *clocktesting.FakeClock
}

func newFixture(authType string) *fixture {
	dir, err := os.MkdirTemp("", "catalog-bulk-handlers")
	Expect(err).To(BeNil())
	DeferCleanup(os.RemoveAll, dir)

	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = filepath.Join(dir, "catalog.db")
	cfg.Storage.LocalPath = filepath.Join(dir, "blobs")
	cfg.Service.BaseUrl = "http://bulk.test"
	cfg.Service.Auth.AuthenticationType = authType

	db, err := store.InitDB(cfg)
	Expect(err).To(BeNil())
	s := store.NewStore(db)
	DeferCleanup(s.Close)
	Expect(s.InitialMigration(context.TODO())).To(Succeed())

	blob, err := storage.New(cfg)
	Expect(err).To(BeNil())
	queue := jobs.NewMemoryQueue()
	clock := clocktesting.NewFakeClock(epoch)

	imports := service.NewImportService(s, blob, queue, cfg).WithClock(clock)
	exports := service.NewExportService(s, blob, queue, cfg).WithClock(clock)
	h := handlers.NewServiceHandler(imports, exports, service.NewTemplateService(), service.NewMappingService(s), 1<<20)

	authenticator, err := auth.NewAuthenticator(cfg.Service.Auth)
	Expect(err).To(BeNil())

	router := chi.NewRouter()
	router.Use(authenticator.Authenticator)
	h.Register(router)
	return &fixture{router: router, exports: exports, clock: clock}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func multipartRequest(path string, fields map[string]string, fileName, content string) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		Expect(mw.WriteField(k, v)).To(Succeed())
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		Expect(err).To(BeNil())
		_, err = io.WriteString(part, content)
		Expect(err).To(BeNil())
	}
	Expect(mw.Close()).To(Succeed())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v any) *http.Request {
	var body io.Reader = http.NoBody
	if v != nil {
		raw, err := json.Marshal(v)
		Expect(err).To(BeNil())
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	Expect(json.Unmarshal(rec.Body.Bytes(), &v)).To(Succeed(), rec.Body.String())
	return v
}

const productsCSV = "sku,name,price\nA-1,Alpha,10\nB-2,Beta,20.5\n"

var _ = Describe("imports", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(auth.NoneAuthentication)
	})

	It("creates a PENDING job from a multipart upload", func() {
		rec := f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "products"}, "products.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())

		job := decode[api.ImportJob](rec)
		Expect(job.Status).To(Equal(api.JobStatusPending))
		Expect(job.TotalRows).To(Equal(2))
		Expect(*job.Options.SkipHeader).To(BeTrue())
		Expect(job.Mapping).To(HaveKeyWithValue("sku", "sku"))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+job.Id.String(), nil))
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports?entityType=products&status=pending", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode[api.ImportJobList](rec)).To(HaveLen(1))
	})

	It("requires a file and a known entity type", func() {
		rec := f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "products"}, "", ""))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "orders"}, "orders.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode[api.Error](rec).Message).To(ContainSubstring("unknown entity type"))

		rec = f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "products"}, "products.pdf", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects bad options", func() {
		rec := f.do(multipartRequest("/api/v1/imports", map[string]string{
			"entityType": "products",
			"options":    `{"delimiter":";;"}`,
		}, "products.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode[api.Error](rec).Message).To(ContainSubstring("single character"))
	})

	It("previews and validates without creating jobs", func() {
		rec := f.do(multipartRequest("/api/v1/imports/preview?rows=1", map[string]string{"entityType": "products"}, "products.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		preview := decode[api.ImportPreview](rec)
		Expect(preview.Headers).To(Equal([]string{"sku", "name", "price"}))
		Expect(preview.Rows).To(HaveLen(1))
		Expect(preview.SuggestedMapping.Confidence).To(Equal(1.0))

		rec = f.do(multipartRequest("/api/v1/imports/validate", map[string]string{
			"entityType": "products",
			"mapping":    `{"name":"name"}`,
		}, "products.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode[api.Error](rec).Reasons).To(ContainElement(`required field "sku" is not mapped`))

		rec = f.do(multipartRequest("/api/v1/imports/validate", map[string]string{"entityType": "products"}, "products.csv", productsCSV))
		Expect(rec.Code).To(Equal(http.StatusOK))
		report := decode[api.ValidationReport](rec)
		Expect(report.Valid).To(BeTrue())
		Expect(report.ValidRows).To(Equal(2))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil))
		Expect(decode[api.ImportJobList](rec)).To(BeEmpty())
	})

	It("maps job state conflicts to 409", func() {
		rec := f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "products"}, "products.csv", productsCSV))
		job := decode[api.ImportJob](rec)

		rec = f.do(jsonRequest(http.MethodPost, "/api/v1/imports/"+job.Id.String()+"/cancel", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode[api.ImportJob](rec).Status).To(Equal(api.JobStatusCancelled))

		rec = f.do(jsonRequest(http.MethodPost, "/api/v1/imports/"+job.Id.String()+"/cancel", nil))
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(*decode[api.Error](rec).State).To(Equal("CANCELLED"))

		rec = f.do(jsonRequest(http.MethodPost, "/api/v1/imports/"+job.Id.String()+"/process", api.ProcessImport{StartRow: 1}))
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("distinguishes malformed and unknown ids", func() {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/not-a-uuid", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/5b0f9e58-1f3c-4a55-9a2e-1f8e0bb0c001", nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("refuses uploads over the size limit", func() {
		big := "sku,name\n" + strings.Repeat("X-1,Filler name for the upload limit\n", 40000)
		rec := f.do(multipartRequest("/api/v1/imports", map[string]string{"entityType": "products"}, "products.csv", big))
		Expect(rec.Code).To(Equal(http.StatusRequestEntityTooLarge))
	})
})

var _ = Describe("exports", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(auth.NoneAuthentication)
	})

	It("validates the request body", func() {
		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/exports", api.ExportCreate{EntityType: "products", Format: "pdf"}))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode[api.Error](rec).Reasons).To(Equal([]string{`format: unknown export format "pdf"`}))

		rec = f.do(jsonRequest(http.MethodPost, "/api/v1/exports", api.ExportCreate{EntityType: "products", Fields: []string{"colour"}}))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("serves the artifact once completed and 410 after expiry", func() {
		rec := f.do(jsonRequest(http.MethodPost, "/api/v1/exports", api.ExportCreate{EntityType: "categories"}))
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		job := decode[api.ExportJob](rec)
		Expect(job.Format).To(Equal("csv"))
		Expect(job.ExpiresAt.Equal(epoch.Add(7 * 24 * time.Hour))).To(BeTrue())

		download := "/api/v1/exports/" + job.Id.String() + "/download"
		rec = f.do(httptest.NewRequest(http.MethodGet, download, nil))
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(*decode[api.Error](rec).State).To(Equal("PENDING"))

		Expect(f.exports.RunExportJob(context.TODO(), job.Id)).To(Succeed())

		rec = f.do(httptest.NewRequest(http.MethodGet, download, nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("text/csv"))
		Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="categories_export_20260302-090000.csv"`))
		Expect(rec.Body.String()).To(HavePrefix("name,slug"))

		f.clock.Step(8 * 24 * time.Hour)
		rec = f.do(httptest.NewRequest(http.MethodGet, download, nil))
		Expect(rec.Code).To(Equal(http.StatusGone))
	})
})

var _ = Describe("templates", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(auth.NoneAuthentication)
	})

	It("downloads a template with sample rows", func() {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/templates/products?includeSampleData=true&sampleRows=2", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Disposition")).To(ContainSubstring("products_template.csv"))
		Expect(strings.Count(rec.Body.String(), "\n")).To(Equal(3))
	})

	It("rejects unknown types and formats", func() {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/templates/orders", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/templates/products?format=pdf", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/templates/products?sampleRows=many", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring(`sampleRows must be a non-negative integer, got \"many\"`))

		rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/templates/products?includeSampleData=maybe", nil))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("includeSampleData must be a boolean"))
	})
})

var _ = Describe("mappings", func() {
	var f *fixture

	BeforeEach(func() {
		f = newFixture(auth.HeaderAuthentication)
	})

	as := func(user string, req *http.Request) *http.Request {
		req.Header.Set("X-Forwarded-User", user)
		return req
	}

	It("runs the CRUD cycle with owner scoping", func() {
		form := api.MappingTemplateCreate{
			Name:            "supplier",
			EntityType:      "products",
			Mapping:         map[string]string{"Code": "sku", "Title": "name"},
			Transformations: map[string]string{"sku": "uppercase"},
		}
		rec := f.do(as("alice", jsonRequest(http.MethodPost, "/api/v1/mappings", form)))
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		tpl := decode[api.MappingTemplate](rec)
		Expect(*tpl.Owner).To(Equal("alice"))

		rec = f.do(as("bob", httptest.NewRequest(http.MethodGet, "/api/v1/mappings?entityType=products", nil)))
		Expect(decode[api.MappingTemplateList](rec)).To(BeEmpty())
		rec = f.do(as("alice", httptest.NewRequest(http.MethodGet, "/api/v1/mappings?entityType=products", nil)))
		Expect(decode[api.MappingTemplateList](rec)).To(HaveLen(1))

		path := fmt.Sprintf("/api/v1/mappings/%s", tpl.Id)
		rec = f.do(as("alice", jsonRequest(http.MethodPut, path, api.MappingTemplateUpdate{
			Name:    "supplier v2",
			Mapping: map[string]string{"Code": "sku", "Title": "name", "Cost": "price"},
		})))
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		Expect(decode[api.MappingTemplate](rec).Mapping).To(HaveKeyWithValue("Cost", "price"))

		rec = f.do(as("alice", httptest.NewRequest(http.MethodDelete, path, nil)))
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		rec = f.do(as("alice", httptest.NewRequest(http.MethodGet, path, nil)))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects invalid templates", func() {
		rec := f.do(as("alice", jsonRequest(http.MethodPost, "/api/v1/mappings", api.MappingTemplateCreate{
			Name:            "broken",
			EntityType:      "products",
			Mapping:         map[string]string{"Code": "sku"},
			Transformations: map[string]string{"sku": "reverse"},
		})))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = f.do(as("alice", jsonRequest(http.MethodPost, "/api/v1/mappings", api.MappingTemplateCreate{
			Name:       "no sku",
			EntityType: "products",
			Mapping:    map[string]string{"Title": "name"},
		})))
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(decode[api.Error](rec).Reasons).To(ContainElement(`required field "sku" is not mapped`))
	})

	It("needs the user header", func() {
		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/mappings", nil))
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
