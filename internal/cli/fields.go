package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openpim/catalog-bulk/internal/catalog"
	"github.com/openpim/catalog-bulk/internal/store/model"
)

type FieldsOptions struct {
	Output string
}

// FieldDescription is one importable column of an entity type.
type FieldDescription struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Values   []string `json:"values,omitempty"`
	Synonyms []string `json:"synonyms,omitempty"`
}

func DefaultFieldsOptions() *FieldsOptions {
	return &FieldsOptions{Output: tableFormat}
}

func NewCmdFields() *cobra.Command {
	o := DefaultFieldsOptions()
	cmd := &cobra.Command{
		Use:   "fields ENTITY_TYPE",
		Short: "List the import fields of an entity type and the headers they are matched from.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entityType, err := o.Validate(args)
			if err != nil {
				return err
			}
			return o.Run(cmd.OutOrStdout(), entityType)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *FieldsOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *FieldsOptions) Validate(args []string) (model.EntityType, error) {
	if err := validateOutput(o.Output); err != nil {
		return "", err
	}
	return model.ParseEntityType(args[0])
}

func (o *FieldsOptions) Run(w io.Writer, entityType model.EntityType) error {
	fields := DescribeFields(entityType)
	if done, err := printStructured(w, o.Output, fields); done {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 1, '\t', 0)
	fmt.Fprintln(tw, "FIELD\tTYPE\tREQUIRED\tVALUES\tMATCHES")
	for _, f := range fields {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", f.Name, f.Type, f.Required, strings.Join(f.Values, "|"), strings.Join(f.Synonyms, ","))
	}
	return tw.Flush()
}

// DescribeFields lists the fields of entityType in template column order.
func DescribeFields(entityType model.EntityType) []FieldDescription {
	headers := catalog.Headers(entityType)
	fields := make([]FieldDescription, 0, len(headers))
	for _, h := range headers {
		f, ok := catalog.Lookup(entityType, h)
		if !ok {
			continue
		}
		fields = append(fields, FieldDescription{
			Name:     f.Name,
			Type:     f.Kind.String(),
			Required: f.Required,
			Values:   f.Enum,
			Synonyms: f.Synonyms,
		})
	}
	return fields
}
