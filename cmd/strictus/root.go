package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/reoring/strictus"
	"github.com/reoring/strictus/decl"
)

type app struct {
	verbose bool
	log     zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{log: zerolog.Nop()}
	root := &cobra.Command{
		Use:   "strictus",
		Short: "Check documents against declared record types",
		Long: `strictus loads record declarations from a YAML schema file and uses them
to coerce and check JSON or YAML documents.

Valid documents are printed in their canonical JSON form, one per line.
Issues are printed to stderr with the path of the offending value.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if a.verbose {
				level = zerolog.DebugLevel
			}
			a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.TimeOnly}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newCheckCommand(a))
	root.AddCommand(newDescribeCommand(a))
	return root
}

// schemaFlags are shared by every command that works on one declared record.
type schemaFlags struct {
	schema   string
	typeName string
}

func (f *schemaFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.schema, "schema", "s", "", "schema file declaring the records")
	cmd.Flags().StringVarP(&f.typeName, "type", "t", "", "record type to check against")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("type")
}

// load reads the schema file and returns the selected record type together
// with a registry that logs through the command's logger.
func (f *schemaFlags) load(a *app) (*strictus.Registry, *strictus.RecordType, error) {
	file, err := os.Open(f.schema)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	set, err := decl.LoadReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("schema %s: %w", f.schema, err)
	}
	rt, ok := set.Get(f.typeName)
	if !ok {
		return nil, nil, fmt.Errorf("schema %s: record %q is not declared (have %v)", f.schema, f.typeName, set.Names())
	}
	a.log.Debug().Str("schema", f.schema).Strs("records", set.Names()).Msg("schema loaded")
	reg := strictus.NewRegistry(strictus.WithLogger(a.log))
	if _, err := reg.Resolve(rt); err != nil {
		return nil, nil, fmt.Errorf("schema %s: %w", f.schema, err)
	}
	return reg, rt, nil
}
