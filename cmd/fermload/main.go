package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fermload/adapters/export"
	"fermload/adapters/store"
	"fermload/app"
	"fermload/domain/experiment"
	"fermload/internal"
	"fermload/internal/config"
	"fermload/internal/errors"
	"fermload/internal/metrics"
	"fermload/internal/venn"
	"fermload/ports"
	"fermload/ui"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fermload",
		Short:         "Reshape bioprocess instrument exports into tagged per-sample tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newLoadCmd(),
		newVennCmd(),
		newServeCmd(),
		newMigrateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
}

// env is the configuration shared by every command
type env struct {
	cfg     *config.Config
	log     *internal.Logger
	metrics *metrics.Metrics
	db      *sqlx.DB
	repo    ports.RunRepository
}

func setup(ctx context.Context, withRuntimeMetrics bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := internal.NewLogger(internal.ParseLogLevel(cfg.Logging.Level), cfg.Logging.Mode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	e := &env{cfg: cfg, log: log}
	if cfg.Metrics.Enabled {
		e.metrics = metrics.New(withRuntimeMetrics)
	}
	if cfg.Database.Enabled() {
		db, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		e.db = db
		e.repo = store.NewRunRepository(db)
		log.Debug("run store: %s", cfg.Database.Driver)
	}
	return e, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	e.log.Sync()
}

func (e *env) service(outputDir string, workbook bool) *app.Service {
	opts := []app.ServiceOption{
		app.WithLogger(e.log),
		app.WithOutputDir(outputDir),
		app.WithWorkbook(workbook),
	}
	if e.metrics != nil {
		opts = append(opts, app.WithMetrics(e.metrics))
	}
	if e.repo != nil {
		opts = append(opts, app.WithRepository(e.repo))
	}
	return app.NewService(opts...)
}

func newLoadCmd() *cobra.Command {
	var (
		kind       string
		name       string
		plates     []string
		plateNames []string
		sources    config.SourceFiles
		columns    config.ColumnNames
		withVenn   bool
		workbook   bool
		outputDir  string
		jobs       int
		failFast   bool
	)

	cmd := &cobra.Command{
		Use:   "load [pipeline.yaml...]",
		Short: "Run load pipelines and write their output collections",
		Long: `Run one or more load runs. Each YAML file describes one run; without
files the run is described by flags (or FERMLOAD_PIPELINE_FILE).

Examples:
  fermload load runs/plate42.yaml runs/trial7.yaml --jobs 2
  fermload load --kind biolector --plate plates/p1,plates/p1/raw.csv --venn
  fermload load --kind fermentalg --info info.xlsx --raw-data raw.csv \
      --medium medium.csv --follow-up followup.zip`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()

			var files []*config.PipelineFile
			for _, path := range args {
				pf, err := config.LoadPipelineFile(path)
				if err != nil {
					return err
				}
				files = append(files, pf)
			}
			if len(files) == 0 && kind != "" {
				pf := &config.PipelineFile{
					Kind:       kind,
					Name:       name,
					PlateNames: plateNames,
					Sources:    sources,
					Columns:    columns,
					Venn:       withVenn,
				}
				for _, p := range plates {
					dir, raw, ok := strings.Cut(p, ",")
					if !ok {
						return errors.InvalidInput(fmt.Sprintf("--plate wants <metadata dir>,<raw file>, got %q", p))
					}
					pf.Plates = append(pf.Plates, config.PlateSpec{MetadataDir: dir, RawData: raw})
				}
				files = append(files, pf)
			}
			if len(files) == 0 && e.cfg.Pipeline != nil {
				files = append(files, e.cfg.Pipeline)
			}
			if len(files) == 0 {
				return errors.InvalidInput("nothing to load: pass pipeline files or --kind")
			}

			if outputDir == "" {
				outputDir = e.cfg.Paths.OutputDir
			}
			svc := e.service(outputDir, workbook)
			var batch []app.Job
			for _, pf := range files {
				job, err := app.JobFromPipelineFile(svc, pf)
				if err != nil {
					return err
				}
				batch = append(batch, job)
			}

			results, err := app.NewBatchRunner(jobs, failFast, e.log).Run(ctx, batch)
			for _, r := range results {
				printResult(cmd, r)
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != nil {
					return errors.Wrapf(r.Err, "run %s", r.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Pipeline kind: biolector|fermentalg|greencell")
	cmd.Flags().StringVar(&name, "name", "", "Collection name")
	cmd.Flags().StringArrayVar(&plates, "plate", nil, "Biolector plate as <metadata dir>,<raw file> (repeatable)")
	cmd.Flags().StringSliceVar(&plateNames, "plate-names", nil, "Plate names, one per --plate")
	cmd.Flags().StringVar(&sources.Info, "info", "", "Info sheet (CSV or XLSX)")
	cmd.Flags().StringVar(&sources.RawData, "raw-data", "", "Raw data sheet (fermentalg)")
	cmd.Flags().StringVar(&sources.Medium, "medium", "", "Medium composition sheet")
	cmd.Flags().StringVar(&sources.FollowUp, "follow-up", "", "Follow-up zip archive")
	cmd.Flags().StringVar(&columns.Batch, "batch-column", "", "Batch column header override")
	cmd.Flags().StringVar(&columns.Sample, "sample-column", "", "Sample column header override")
	cmd.Flags().StringVar(&columns.Medium, "medium-column", "", "Medium column header override")
	cmd.Flags().BoolVar(&withVenn, "venn", false, "Compute and render the completeness Venn diagram")
	cmd.Flags().BoolVar(&workbook, "workbook", false, "Also write an XLSX workbook")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory (default FERMLOAD_OUTPUT_DIR)")
	cmd.Flags().IntVar(&jobs, "jobs", 1, "Runs executed concurrently (0 = unbounded)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Cancel remaining runs after the first failure")
	return cmd
}

func printResult(cmd *cobra.Command, r app.JobResult) {
	out := cmd.OutOrStdout()
	if r.Report == nil || r.Report.Run == nil {
		fmt.Fprintf(out, "%-20s FAILED  %v\n", r.Name, r.Err)
		return
	}
	rn := r.Report.Run
	fmt.Fprintf(out, "%-20s %-9s %s  resources=%d skipped=%d",
		r.Name, strings.ToUpper(string(rn.Status)), rn.ID, rn.Resources, rn.Skipped)
	if r.Report.OutputDir != "" {
		fmt.Fprintf(out, "  -> %s", r.Report.OutputDir)
	}
	fmt.Fprintln(out)
	if r.Err != nil {
		fmt.Fprintf(out, "  error: %v\n", r.Err)
	}
}

func newVennCmd() *cobra.Command {
	var kinds []string
	var output string
	var title string
	var members bool

	cmd := &cobra.Command{
		Use:   "venn [output-dir]",
		Short: "Redraw the completeness Venn diagram of a written collection",
		Long: `Read the tags.json manifest of an output directory and compute the
Venn regions of 2 or 3 data sources from the missing_value tags.

Example: fermload venn output/0190f1c2-... --kinds info,raw_data,follow_up`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := export.ReadManifest(args[0])
			if err != nil {
				return err
			}
			coll, err := export.TagCollection(m)
			if err != nil {
				return err
			}
			sourceKinds := make([]experiment.SourceKind, len(kinds))
			for i, k := range kinds {
				sourceKinds[i] = experiment.SourceKind(strings.TrimSpace(k))
			}
			sets := venn.SetsFromCollection(coll, sourceKinds)
			regions, err := venn.ComputeRegions(sets)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range regions.List() {
				fmt.Fprintf(out, "%-16s %-40s %d\n", r.ID, strings.Join(r.Members, " & "), r.Count)
				if !members || r.Count == 0 {
					continue
				}
				keys, err := venn.MembersOf(sets, r.ID)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintf(out, "    %s\n", k)
				}
			}
			fmt.Fprintf(out, "%-16s %-40s %d\n", "union", "", regions.Union)

			if output != "" {
				opts := venn.DefaultRenderOptions()
				opts.Title = title
				if opts.Title == "" {
					opts.Title = m.Collection
				}
				if err := export.WriteVenn(output, regions, opts); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kinds", []string{"info", "raw_data", "follow_up"}, "Source kinds to compare (2 or 3)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file to write")
	cmd.Flags().StringVar(&title, "title", "", "Figure title (default: collection name)")
	cmd.Flags().BoolVar(&members, "members", false, "List the keys of every region")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only run browser and /metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer e.close()
			if e.repo == nil {
				return errors.ConfigInvalid("serve needs DATABASE_URL")
			}

			a, err := ui.NewApp(e.repo, e.metrics, e.log)
			if err != nil {
				return err
			}
			return a.Start(ctx, ui.Config{
				Port:         e.cfg.Server.Port,
				ReadTimeout:  e.cfg.Server.ReadTimeout,
				WriteTimeout: e.cfg.Server.WriteTimeout,
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the run store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, false)
			if err != nil {
				return err
			}
			defer e.close()
			if e.db == nil {
				return errors.ConfigInvalid("migrate needs DATABASE_URL")
			}
			// store.Open already ran the migrator; report the result
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %s ready (%s)\n", store.NewMigrator().Version(), e.cfg.Database.Driver)
			return nil
		},
	}
}
