package tabular_test

import (
	"bytes"
	"errors"
	"io"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/encoding/charmap"

	"github.com/openpim/catalog-bulk/internal/tabular"
)

func readAll(r tabular.Reader) []tabular.Record {
	var out []tabular.Record
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		Expect(err).To(BeNil())
		out = append(out, rec)
	}
}

var _ = Describe("reader", func() {
	Context("csv", func() {
		It("strips the BOM and trims headers", func() {
			data := "\xEF\xBB\xBF Name ,SKU\nShoe,S-1\nBoot,B-1\n"
			r, err := tabular.Open(strings.NewReader(data), "products.csv", "", tabular.Options{})
			Expect(err).To(BeNil())
			Expect(r.Headers()).To(Equal([]string{"Name", "SKU"}))

			records := readAll(r)
			Expect(records).To(HaveLen(2))
			Expect(records[0].Row).To(Equal(1))
			v, ok := records[1].Get("SKU")
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("B-1"))
		})

		It("honours the delimiter and pads short rows", func() {
			data := "name;sku;price\nShoe;S-1\n"
			r, err := tabular.Open(strings.NewReader(data), "x.csv", "", tabular.Options{Delimiter: ';'})
			Expect(err).To(BeNil())
			records := readAll(r)
			Expect(records).To(HaveLen(1))
			Expect(records[0].Values()).To(Equal([]string{"Shoe", "S-1", ""}))
		})

		It("decodes legacy encodings", func() {
			encoded, err := charmap.ISO8859_1.NewEncoder().String("name\nCafé\n")
			Expect(err).To(BeNil())
			r, err := tabular.Open(strings.NewReader(encoded), "x.csv", "", tabular.Options{Encoding: "latin1"})
			Expect(err).To(BeNil())
			records := readAll(r)
			Expect(records[0].Values()).To(Equal([]string{"Café"}))
		})

		It("synthesizes headers when the file has none", func() {
			r, err := tabular.Open(strings.NewReader("Shoe,S-1\nBoot,B-1\n"), "x.csv", "", tabular.Options{NoHeader: true})
			Expect(err).To(BeNil())
			Expect(r.Headers()).To(Equal([]string{"column_1", "column_2"}))
			Expect(readAll(r)).To(HaveLen(2))
		})

		It("rejects unknown encodings", func() {
			_, err := tabular.Open(strings.NewReader("a\n"), "x.csv", "", tabular.Options{Encoding: "klingon"})
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())
		})
	})

	Context("json", func() {
		It("reads the data array and keeps key order", func() {
			data := `{"meta": {"v": 1}, "data": [
				{"sku": "S-1", "name": "Shoe", "price": 12.5, "tags": ["a","b"], "brand": null},
				{"name": "Boot", "sku": "B-1", "active": true}
			]}`
			r, err := tabular.Open(strings.NewReader(data), "export.json", "", tabular.Options{})
			Expect(err).To(BeNil())
			Expect(r.Headers()).To(Equal([]string{"sku", "name", "price", "tags", "brand"}))

			records := readAll(r)
			Expect(records).To(HaveLen(2))
			Expect(records[0].Values()).To(Equal([]string{"S-1", "Shoe", "12.5", `["a","b"]`, ""}))
			Expect(records[1].Values()).To(Equal([]string{"B-1", "Boot", "", "", ""}))
		})

		It("accepts a bare array", func() {
			r, err := tabular.Open(strings.NewReader(`[{"name":"a"},{"name":"b"}]`), "x.json", "", tabular.Options{})
			Expect(err).To(BeNil())
			n, err := tabular.CountRows(r)
			Expect(err).To(BeNil())
			Expect(n).To(Equal(2))
		})

		It("fails on corrupt content", func() {
			_, err := tabular.Open(strings.NewReader(`{"data": 3}`), "x.json", "", tabular.Options{})
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())

			r, err := tabular.Open(strings.NewReader(`[{"name":"a"}, 7]`), "x.json", "", tabular.Options{})
			Expect(err).To(BeNil())
			_, err = r.Next()
			Expect(err).To(BeNil())
			_, err = r.Next()
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())
		})
	})

	Context("xlsx", func() {
		It("reads a workbook produced by the writer", func() {
			var buf bytes.Buffer
			w, err := tabular.NewWriter(tabular.FormatXLSX, &buf, tabular.WriterOptions{
				Sheets: []tabular.Sheet{{Name: "Instructions", Rows: [][]string{{"ignored"}}}},
			})
			Expect(err).To(BeNil())
			Expect(w.WriteHeader([]string{"sku", "price"})).To(Succeed())
			Expect(w.WriteRow([]any{"S-1", 9.5})).To(Succeed())
			Expect(w.WriteRow([]any{"S-2", nil})).To(Succeed())
			Expect(w.Close()).To(Succeed())

			r, err := tabular.Open(bytes.NewReader(buf.Bytes()), "upload.xlsx", "", tabular.Options{})
			Expect(err).To(BeNil())
			defer r.Close()
			Expect(r.Headers()).To(Equal([]string{"sku", "price"}))
			records := readAll(r)
			Expect(records).To(HaveLen(2))
			Expect(records[0].Values()).To(Equal([]string{"S-1", "9.5"}))
			Expect(records[1].Values()).To(Equal([]string{"S-2", ""}))
		})

		It("rejects content that is not a workbook", func() {
			_, err := tabular.Open(strings.NewReader("not a zip"), "upload.xlsx", "", tabular.Options{})
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())
		})
	})

	Context("format detection", func() {
		It("prefers the hint and rejects unknown extensions", func() {
			f, err := tabular.DetectFormat("upload.bin", tabular.FormatCSV)
			Expect(err).To(BeNil())
			Expect(f).To(Equal(tabular.FormatCSV))

			_, err = tabular.DetectFormat("upload.txt", "")
			Expect(errors.Is(err, tabular.ErrFileFormat)).To(BeTrue())
		})
	})

	It("previews a bounded number of rows", func() {
		r, err := tabular.Open(strings.NewReader("name\na\nb\nc\n"), "x.csv", "", tabular.Options{})
		Expect(err).To(BeNil())
		rows, err := tabular.Preview(r, 2)
		Expect(err).To(BeNil())
		Expect(rows).To(HaveLen(2))
	})
})
