package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tordrt/schemareflect"
	"github.com/tordrt/schemareflect/internal/formatter"
	"github.com/tordrt/schemareflect/internal/logging"
	"github.com/tordrt/schemareflect/internal/schema"
	"github.com/tordrt/schemareflect/internal/types"
)

// app holds the persistent flags shared by every subcommand
type app struct {
	configPath string
	format     string
	outputDir  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "schemareflect",
		Short:         "Reflect database schemas into entities and evolve them",
		Long:          `schemareflect connects to PostgreSQL, MySQL, SQLite or SQL Server, reflects the schemas named in its config into entities, and keeps them in sync while adding columns, creating tables and cloning tables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "schemareflect.yaml", "Config file (JSON or YAML); SCHEMAREFLECT_CONN_STRING overrides conn_string")
	flags.StringVarP(&a.format, "format", "f", formatter.FormatText, "Output format: text, markdown or json")
	flags.StringVarP(&a.outputDir, "output-dir", "d", "", "Write one file per entity into this directory")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(
		a.statusCmd(),
		a.describeCmd(),
		a.columnsCmd(),
		a.addColumnCmd(),
		a.addTableCmd(),
		a.mimicCmd(),
		a.dropCmd(),
	)
	return rootCmd
}

// open loads the config and bootstraps an instance
func (a *app) open(ctx context.Context) (*schemareflect.Instance, error) {
	cfg, err := schemareflect.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}

	var opts []schemareflect.Option
	if a.verbose {
		logger, err := logging.New(cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		opts = append(opts, schemareflect.WithLogger(logger))
	}

	inst, err := schemareflect.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := inst.Bootstrap(ctx); err != nil {
		return nil, err
	}
	return inst, nil
}

// withInstance runs fn against a bootstrapped instance and closes it afterwards
func (a *app) withInstance(cmd *cobra.Command, fn func(ctx context.Context, inst *schemareflect.Instance) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	inst, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := inst.Close(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to close connection: %v\n", err)
		}
	}()

	return fn(ctx, inst)
}

func (a *app) newFormatter(w io.Writer) (formatter.Formatter, error) {
	if a.outputDir != "" {
		if a.format == formatter.FormatJSON {
			return nil, fmt.Errorf("--output-dir supports text or markdown only")
		}
		return formatter.NewMultiFileFormatter(a.outputDir, a.format), nil
	}
	return formatter.New(a.format, w)
}

func (a *app) render(w io.Writer, entities ...*schemareflect.Entity) error {
	f, err := a.newFormatter(w)
	if err != nil {
		return err
	}
	views := make([]formatter.Entity, 0, len(entities))
	for _, e := range entities {
		views = append(views, entityView(e))
	}
	if err := f.Format(views); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// entityView combines the entity's columns with the indexes and relations of its reflected table
func entityView(e *schemareflect.Entity) formatter.Entity {
	ref := e.Schema()
	table, ok := ref.Metadata.Table(e.Name())
	if !ok {
		table = &schema.Table{Schema: ref.Metadata.DBName, Name: e.Name()}
	}
	table.Columns = e.Columns()

	return formatter.Entity{
		Schema:      ref.Name,
		Table:       table,
		Keys:        e.KeyColumns(),
		Keyless:     e.Keyless(),
		Fingerprint: e.Fingerprint(),
	}
}

// selectEntities returns the named entities, or every entity of every schema when none are named
func selectEntities(inst *schemareflect.Instance, schemaName string, names []string) ([]*schemareflect.Entity, error) {
	if len(names) == 0 {
		schemas := inst.Schemas()
		if schemaName != "" {
			schemas = []string{schemaName}
		}
		var all []*schemareflect.Entity
		for _, s := range schemas {
			all = append(all, inst.Entities(s)...)
		}
		return all, nil
	}

	out := make([]*schemareflect.Entity, 0, len(names))
	for _, name := range names {
		e, err := lookup(inst, schemaName, name)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func lookup(inst *schemareflect.Instance, schemaName, table string) (*schemareflect.Entity, error) {
	var e *schemareflect.Entity
	var ok bool
	if schemaName != "" {
		e, ok = inst.EntityIn(schemaName, table)
	} else {
		e, ok = inst.Entity(table)
	}
	if !ok {
		return nil, fmt.Errorf("no entity for table %q (is it listed in the config?)", table)
	}
	return e, nil
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Bootstrap and print recorded failures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				f, err := a.newFormatter(cmd.OutOrStdout())
				if err != nil {
					return err
				}
				return f.FormatStatus(inst.Status())
			})
		},
	}
}

func (a *app) describeCmd() *cobra.Command {
	var schemaName string
	cmd := &cobra.Command{
		Use:   "describe [table...]",
		Short: "Print entities with their columns, keys, indexes and relations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				entities, err := selectEntities(inst, schemaName, args)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), entities...)
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Only entities of this schema")
	return cmd
}

func (a *app) columnsCmd() *cobra.Command {
	var schemaName, mode string
	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "Print the columns of one entity as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := schemareflect.ParseColumnMode(mode)
			if err != nil {
				return err
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				out, err := inst.Table(args[0], schemaName).Describe(m)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Schema of the table")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(schemareflect.ModeGeneral), "general, full, names-only or columns")
	return cmd
}

func (a *app) addColumnCmd() *cobra.Command {
	var schemaName, name, typeName, native string
	var notNull bool
	cmd := &cobra.Command{
		Use:   "add-column <table>",
		Short: "Add a column to a table and print the refreshed entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := columnFromFlags(name, typeName, native, notNull)
			if err != nil {
				return err
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				if err := inst.AddColumn(ctx, col, args[0], schemaName); err != nil {
					return err
				}
				e, err := lookup(inst, schemaName, args[0])
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Schema of the table (default: current schema)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Column name")
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Abstract column type, e.g. int4, text, timestamptz")
	cmd.Flags().StringVar(&native, "native", "", "Engine-native column type, used verbatim")
	cmd.Flags().BoolVar(&notNull, "not-null", false, "Add the column as NOT NULL where the engine allows it")
	return cmd
}

func columnFromFlags(name, typeName, native string, notNull bool) (schemareflect.ColumnDescriptor, error) {
	if name == "" {
		return schemareflect.ColumnDescriptor{}, fmt.Errorf("--name is required")
	}
	if (typeName == "") == (native == "") {
		return schemareflect.ColumnDescriptor{}, fmt.Errorf("exactly one of --type or --native must be specified")
	}

	col := schemareflect.Column(name, typeName)
	if native != "" {
		col.ColType = types.Native(native)
	}
	if notNull {
		nullable := false
		col.Nullable = &nullable
	}
	return col, nil
}

func (a *app) addTableCmd() *cobra.Command {
	var schemaName, columnsFile string
	var prefixes, postfixes []string
	var recreate bool
	cmd := &cobra.Command{
		Use:   "add-table <table>",
		Short: "Create a table from a JSON column list and print its entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := readColumns(columnsFile)
			if err != nil {
				return err
			}
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				e, err := inst.AddTable(ctx, args[0], cols, schemareflect.AddTableOptions{
					Prefixes:  prefixes,
					Postfixes: postfixes,
					Schema:    schemaName,
					Recreate:  recreate,
				})
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Target schema (default: current schema)")
	cmd.Flags().StringVar(&columnsFile, "columns", "", "JSON file with a list of {col_name, col_type, nullable, is_primary}")
	cmd.Flags().StringSliceVar(&prefixes, "prefix", nil, "Keywords between CREATE and TABLE, e.g. TEMPORARY")
	cmd.Flags().StringSliceVar(&postfixes, "postfix", nil, "Keywords after the column list")
	cmd.Flags().BoolVar(&recreate, "recreate", false, "Drop an existing table first")
	_ = cmd.MarkFlagRequired("columns")
	return cmd
}

// readColumns reads a column list in the shape printed by "columns --mode full"
func readColumns(path string) ([]schemareflect.ColumnDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns file: %w", err)
	}

	var cols []schemareflect.ColumnDescriptor
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("failed to parse columns file %s: %w", path, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("columns file %s has no columns", path)
	}
	return cols, nil
}

func (a *app) mimicCmd() *cobra.Command {
	var opts schemareflect.MimicOptions
	cmd := &cobra.Command{
		Use:   "mimic <table>",
		Short: "Copy an entity's columns into a new table and print the copy",
		Long:  `Without --schema the copy is a temporary table that lives until the command exits; with --schema it is a regular table.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				e, err := inst.MimicTable(ctx, args[0], opts)
				if err != nil {
					return err
				}
				return a.render(cmd.OutOrStdout(), e)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Target, "target", "", "Name of the copy (default: <table>_temp)")
	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "Target schema (default: session-scoped temporary table)")
	cmd.Flags().StringVar(&opts.SourceSchema, "source-schema", "", "Schema of the source entity")
	cmd.Flags().BoolVar(&opts.Recreate, "recreate", false, "Drop an existing target first")
	return cmd
}

func (a *app) dropCmd() *cobra.Command {
	var schemaName string
	cmd := &cobra.Command{
		Use:   "drop <table>",
		Short: "Drop a table and discard its entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withInstance(cmd, func(ctx context.Context, inst *schemareflect.Instance) error {
				if err := inst.DropTable(ctx, args[0], schemaName); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dropped %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "Schema of the table (default: current schema)")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", logging.SanitizeError(err))
		os.Exit(1)
	}
}
