package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reoring/strictus"
	sjson "github.com/reoring/strictus/source/json"
	syaml "github.com/reoring/strictus/source/yaml"
)

func newCheckCommand(a *app) *cobra.Command {
	var (
		sf       schemaFlags
		format   string
		strict   bool
		failFast bool
	)

	cmd := &cobra.Command{
		Use:   "check [file...]",
		Short: "Coerce documents into a declared record type",
		Long: `Check reads each file (or stdin when none is given) and constructs records
of the selected type. YAML input may hold several documents.

The input format is picked from the file extension unless --format is set;
stdin is read as YAML, which also accepts JSON.`,
		Example: `  # Check a file
  strictus check -s schema.yaml -t Order order.json

  # Reject undeclared keys and stop at the first issue
  strictus check -s schema.yaml -t Order --strict --fail-fast < orders.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "auto", "json", "yaml":
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			reg, rt, err := sf.load(a)
			if err != nil {
				return err
			}
			opt := strictus.ParseOpt{FailFast: failFast}
			if strict {
				opt.Unknown = strictus.UnknownStrict
			}
			if len(args) == 0 {
				args = []string{"-"}
			}

			failed := 0
			for _, name := range args {
				b, err := readInput(cmd.InOrStdin(), name)
				if err != nil {
					return err
				}
				recs, err := decodeRecords(reg, rt, b, inputFormat(format, name), opt)
				if err != nil {
					iss, ok := strictus.AsIssues(err)
					if !ok {
						return fmt.Errorf("%s: %w", name, err)
					}
					failed++
					printIssues(cmd.ErrOrStderr(), name, iss)
					a.log.Debug().Str("input", name).Int("issues", len(iss)).Msg("input rejected")
					continue
				}
				for _, r := range recs {
					out, err := sjson.Encode(r)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(out))
				}
				a.log.Debug().Str("input", name).Int("records", len(recs)).Msg("input accepted")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d inputs failed", failed, len(args))
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "auto", "input format: auto, json or yaml")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject keys the record does not declare")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop at the first issue")

	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func inputFormat(flag, name string) string {
	if flag != "auto" {
		return flag
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return "json"
	}
	return "yaml"
}

func decodeRecords(reg *strictus.Registry, rt *strictus.RecordType, b []byte, format string, opt strictus.ParseOpt) ([]*strictus.Record, error) {
	if format == "json" {
		rec, err := sjson.NewRecord(reg, rt, b, opt)
		if err != nil {
			return nil, err
		}
		return []*strictus.Record{rec}, nil
	}
	return syaml.NewRecords(reg, rt, b, opt)
}

func printIssues(w io.Writer, input string, iss strictus.Issues) {
	for _, it := range iss {
		path := it.Path
		if path == "" {
			path = "(root)"
		}
		fmt.Fprintf(w, "%s: %s: %s [%s]\n", input, path, it.Message, it.Code)
	}
}
