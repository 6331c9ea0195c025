package migrations_test

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/openpim/catalog-bulk/internal/config"
	"github.com/openpim/catalog-bulk/internal/store"
	"github.com/openpim/catalog-bulk/pkg/migrations"
)

var catalogTables = []string{
	"import_jobs",
	"export_jobs",
	"mapping_templates",
	"categories",
	"attributes",
	"products",
	"variants",
	"product_attribute_values",
	"product_media",
	"product_categories",
}

var _ = Describe("migrations", func() {
	Context("migration source", func() {
		It("uses the embedded files when no folder is configured", func() {
			source, err := migrations.Source("")
			Expect(err).To(BeNil())

			files, err := fs.Glob(source, "*.sql")
			Expect(err).To(BeNil())
			Expect(files).To(HaveLen(2))

			content, err := fs.ReadFile(source, files[0])
			Expect(err).To(BeNil())
			Expect(string(content)).To(ContainSubstring("-- +goose Up"))
		})

		It("fails when the folder does not exist", func() {
			_, err := migrations.Source("some folder")
			Expect(err).NotTo(BeNil())
		})

		It("fails when the folder is a file", func() {
			f := filepath.Join(GinkgoT().TempDir(), "file.sql")
			Expect(os.WriteFile(f, []byte("--"), 0o600)).To(Succeed())

			_, err := migrations.Source(f)
			Expect(err).To(MatchError(ContainSubstring("is not a folder")))
		})

		It("reads a configured folder", func() {
			dir := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(dir, "1_init.sql"), []byte("-- +goose Up\n"), 0o600)).To(Succeed())

			source, err := migrations.Source(dir)
			Expect(err).To(BeNil())
			files, err := fs.Glob(source, "*.sql")
			Expect(err).To(BeNil())
			Expect(files).To(ConsistOf("1_init.sql"))
		})
	})

	Context("store migrations", Ordered, func() {
		var (
			s      store.Store
			gormdb *gorm.DB
		)

		BeforeAll(func() {
			if os.Getenv("DB_TYPE") != store.TypePgsql {
				Skip("postgres is not configured")
			}
			cfg, err := config.New()
			Expect(err).To(BeNil())
			db, err := store.InitDB(cfg)
			Expect(err).To(BeNil())

			s = store.NewStore(db)
			gormdb = db
		})

		AfterAll(func() {
			if s != nil {
				s.Close()
			}
		})

		It("fails to migrate the db when the migration folder does not exist", func() {
			err := migrations.MigrateStore(context.TODO(), gormdb, "some folder", nil)
			Expect(err).NotTo(BeNil())
		})

		It("successfully migrates the db", func() {
			err := migrations.MigrateStore(context.TODO(), gormdb, "", nil)
			Expect(err).To(BeNil())

			tableExists := func(name string) bool {
				exists := false
				tx := gormdb.Raw(fmt.Sprintf("SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' and tablename = '%s');", name)).Scan(&exists)
				Expect(tx.Error).To(BeNil())

				return exists
			}

			for _, table := range catalogTables {
				Expect(tableExists(table)).To(BeTrue(), table)
			}
		})

		AfterEach(func() {
			if gormdb == nil {
				return
			}
			for i := len(catalogTables) - 1; i >= 0; i-- {
				gormdb.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", catalogTables[i]))
			}
			gormdb.Exec("DROP TABLE IF EXISTS goose_db_version;")
		})
	})
})
