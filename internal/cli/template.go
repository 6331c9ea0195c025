package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"

	"github.com/openpim/catalog-bulk/internal/store/model"
	"github.com/openpim/catalog-bulk/internal/tabular"
	"github.com/openpim/catalog-bulk/internal/templates"
)

type TemplateOptions struct {
	Format     string
	SampleRows int
	// OutputDir receives the file under its canonical name, stdout is used when empty.
	OutputDir string
}

var legalTemplateFormats = []string{string(tabular.FormatCSV), string(tabular.FormatXLSX), string(tabular.FormatJSON)}

func DefaultTemplateOptions() *TemplateOptions {
	return &TemplateOptions{Format: string(tabular.FormatCSV)}
}

func NewCmdTemplate() *cobra.Command {
	o := DefaultTemplateOptions()
	cmd := &cobra.Command{
		Use:   "template ENTITY_TYPE",
		Short: "Write an import template for an entity type.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, format, err := o.Validate(args)
			if err != nil {
				return err
			}
			return o.Run(cmd.OutOrStdout(), entityType, format)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *TemplateOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Format, "format", "f", o.Format, "Template format: csv, xlsx or json.")
	fs.IntVar(&o.SampleRows, "sample-rows", o.SampleRows, fmt.Sprintf("Number of sample rows, at most %d.", templates.MaxSampleRows))
	fs.StringVarP(&o.OutputDir, "output-dir", "d", o.OutputDir, "Directory to write the template to instead of stdout.")
}

func (o *TemplateOptions) Validate(args []string) (model.EntityType, tabular.Format, error) {
	entityType, err := model.ParseEntityType(args[0])
	if err != nil {
		return "", "", err
	}
	if !funk.ContainsString(legalTemplateFormats, o.Format) {
		return "", "", fmt.Errorf("unsupported template format %q", o.Format)
	}
	if o.SampleRows < 0 || o.SampleRows > templates.MaxSampleRows {
		return "", "", fmt.Errorf("sample rows must be between 0 and %d", templates.MaxSampleRows)
	}
	format, err := tabular.ParseFormat(o.Format)
	return entityType, format, err
}

func (o *TemplateOptions) Run(stdout io.Writer, entityType model.EntityType, format tabular.Format) error {
	opts := templates.Options{IncludeSampleData: o.SampleRows > 0, SampleRows: o.SampleRows}
	if o.OutputDir == "" {
		return templates.Generate(stdout, entityType, format, opts)
	}

	path := filepath.Join(o.OutputDir, templates.FileName(entityType, format))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating template file: %w", err)
	}
	if err := templates.Generate(f, entityType, format, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s\n", path)
	return nil
}
