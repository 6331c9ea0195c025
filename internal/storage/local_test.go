package storage_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/internal/storage"
)

var _ = Describe("local storage", func() {
	var (
		blob storage.Blob
		root string
		ctx  = context.TODO()
	)

	BeforeEach(func() {
		var err error
		root, err = os.MkdirTemp("", "catalog-bulk-blob")
		Expect(err).To(BeNil())
		DeferCleanup(os.RemoveAll, root)

		cfg := config.NewDefault()
		cfg.Storage.LocalPath = filepath.Join(root, "blobs")
		blob, err = storage.New(cfg)
		Expect(err).To(BeNil())
		Expect(blob.Type()).To(Equal("local"))
	})

	It("stores, reads and deletes an object", func() {
		n, err := blob.Put(ctx, "imports/1/products.csv", strings.NewReader("sku,name\n"), -1, "text/csv")
		Expect(err).To(BeNil())
		Expect(n).To(Equal(int64(9)))

		size, err := blob.Stat(ctx, "imports/1/products.csv")
		Expect(err).To(BeNil())
		Expect(size).To(Equal(int64(9)))

		rc, err := blob.Get(ctx, "imports/1/products.csv")
		Expect(err).To(BeNil())
		body, err := io.ReadAll(rc)
		Expect(err).To(BeNil())
		Expect(rc.Close()).To(Succeed())
		Expect(string(body)).To(Equal("sku,name\n"))

		Expect(blob.Delete(ctx, "imports/1/products.csv")).To(Succeed())
		_, err = blob.Stat(ctx, "imports/1/products.csv")
		Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
		Expect(blob.Delete(ctx, "imports/1/products.csv")).To(Succeed())
	})

	It("reports missing objects", func() {
		_, err := blob.Get(ctx, "exports/none.json")
		Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
	})

	It("overwrites an existing key", func() {
		_, err := blob.Put(ctx, "k", strings.NewReader("first"), 5, "")
		Expect(err).To(BeNil())
		_, err = blob.Put(ctx, "k", strings.NewReader("2nd"), 3, "")
		Expect(err).To(BeNil())
		size, err := blob.Stat(ctx, "k")
		Expect(err).To(BeNil())
		Expect(size).To(Equal(int64(3)))
	})

	It("rejects keys escaping the root", func() {
		_, err := blob.Put(ctx, "../outside", strings.NewReader("x"), 1, "")
		Expect(err).NotTo(BeNil())
		_, err = os.Stat(filepath.Join(root, "outside"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	It("stops writing once the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := blob.Put(cancelled, "late", strings.NewReader("x"), 1, "")
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		_, err = blob.Stat(ctx, "late")
		Expect(errors.Is(err, storage.ErrNotFound)).To(BeTrue())
	})
})
