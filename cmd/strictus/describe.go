package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/reoring/strictus"
)

func newDescribeCommand(a *app) *cobra.Command {
	var sf schemaFlags

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the resolved fields of a declared record type",
		Long: `Describe resolves the selected record, including every inherited field,
and prints its fields in construction order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, rt, err := sf.load(a)
			if err != nil {
				return err
			}
			s, err := reg.Resolve(rt)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (unknown keys: %s)\n", s.Name(), s.Unknown())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tOPTIONS\tDECLARED BY")
			for _, f := range s.Fields() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name(), f.Type(), fieldOptions(f), f.DeclaredBy())
			}
			return tw.Flush()
		},
	}
	sf.register(cmd)
	return cmd
}

func fieldOptions(f *strictus.FieldSpec) string {
	var opts []string
	if f.Required() {
		opts = append(opts, "required")
	}
	switch {
	case f.HasFactory():
		opts = append(opts, "default=<factory>")
	case f.HasDefault():
		b, err := json.Marshal(strictus.Project(f.Default()))
		if err != nil {
			b = []byte("?")
		}
		opts = append(opts, "default="+string(b))
	}
	if f.Excluded() {
		opts = append(opts, "exclude")
	}
	if f.Computed() {
		opts = append(opts, "computed")
	} else if !f.Init() {
		opts = append(opts, "no-init")
	}
	if len(opts) == 0 {
		return "-"
	}
	return strings.Join(opts, ",")
}
