package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"nyassess/adapters/postgres"
	"nyassess/domain/assessment"
	"nyassess/internal"
	"nyassess/internal/config"
	"nyassess/internal/export"
	"nyassess/internal/ingest"
	"nyassess/ports"
	"nyassess/ui"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	rootCmd := &cobra.Command{
		Use:   "nyassess-cli",
		Short: "Batch tools for NY state assessment workbooks",
	}

	rootCmd.AddCommand(
		newNamesCmd(cfg),
		newBuildSchoolsCmd(cfg),
		newInspectCmd(cfg),
		newDumpCmd(cfg),
		newServeStaticCmd(cfg),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exportFlags are shared by the commands that write payloads.
type exportFlags struct {
	outDir string
	dbURL  string
}

func (f *exportFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&f.outDir, "out", cfg.Export.Dir, "Output directory for static JSON files")
	cmd.Flags().StringVar(&f.dbURL, "db", cfg.Export.DatabaseURL, "PostgreSQL URL; payloads are also upserted there when set")
}

// sink builds the directory sink plus, when a database URL is set, the
// PostgreSQL repository. The returned func closes what was opened.
func (f *exportFlags) sink(ctx context.Context) (ports.PayloadSink, func(), error) {
	sinks := export.MultiSink{export.NewDirSink(f.outDir)}
	closeFn := func() {}
	if f.dbURL != "" {
		repo, err := postgres.Connect(ctx, f.dbURL)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, repo)
		closeFn = func() { repo.Close() }
	}
	return sinks, closeFn, nil
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLoader(cfg *config.Config) *ingest.Loader {
	logger := internal.NewLoggerTo(os.Stderr, internal.ParseLogLevel(cfg.Log.Level))
	return ingest.NewLoader(cfg.Data.Root,
		ingest.WithConcurrency(cfg.Data.LoadConcurrency),
		ingest.WithLogger(logger),
	)
}

func newNamesCmd(cfg *config.Config) *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "names",
		Short: "Write the school-name list across all subjects",
		Long: `Scan the school-level workbooks of every subject and write the union of
school identifiers, ordered numerically where names contain numbers.

Example: nyassess-cli names --out public/ny-assessments-public`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, closeFn, err := flags.sink(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			exporter := export.NewExporter(newLoader(cfg), sink, nil)
			names, err := exporter.BuildNames(cmd.Context(), assessment.Subjects)
			if err != nil {
				return err
			}
			fmt.Printf("Wrote %d school names\n", len(names))
			return nil
		},
	}
	flags.register(cmd, cfg)
	return cmd
}

func newBuildSchoolsCmd(cfg *config.Config) *cobra.Command {
	var flags exportFlags
	var subjectIn string

	cmd := &cobra.Command{
		Use:   "build-schools",
		Short: "Write one payload file per school",
		Long: `Load every school-level workbook once and write one payload per school
under <out>/schools/<Subject>/<slug>.json.

Example: nyassess-cli build-schools --subject Math`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			subjects := assessment.Subjects
			if subjectIn != "" {
				s, err := assessment.ParseSubject(subjectIn)
				if err != nil {
					return err
				}
				subjects = []assessment.Subject{s}
			}

			sink, closeFn, err := flags.sink(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			exporter := export.NewExporter(newLoader(cfg), sink, nil)
			for _, s := range subjects {
				n, err := exporter.BuildSchools(cmd.Context(), s)
				if err != nil {
					return err
				}
				fmt.Printf("%s: wrote %d school payloads\n", s, n)
			}
			return nil
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&subjectIn, "subject", "", "Only build this subject (default: all)")
	return cmd
}

func newInspectCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [subject] [level]",
		Short: "Report files, sheets, rows and skips for a directory",
		Long: `Walk one subject/level directory like a load would and print what was
read and what was skipped as JSON.

Example: nyassess-cli inspect ELA district`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, level, err := parseTarget(args[0], args[1])
			if err != nil {
				return err
			}
			report, err := newLoader(cfg).Scan(cmd.Context(), subject, level)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

func newDumpCmd(cfg *config.Config) *cobra.Command {
	var school string

	cmd := &cobra.Command{
		Use:   "dump [subject] [level]",
		Short: "Print a payload as JSON",
		Long: `Load a payload and print it to stdout. Level school requires --school.

Example: nyassess-cli dump Math borough
         nyassess-cli dump ELA school --school "P.S. 015 Roberto Clemente"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, level, err := parseTarget(args[0], args[1])
			if err != nil {
				return err
			}
			loader := newLoader(cfg)

			var payload assessment.Payload
			if level == assessment.LevelSchool {
				if school == "" {
					return fmt.Errorf("--school is required for level school")
				}
				payload, err = loader.School(cmd.Context(), subject, school)
			} else {
				payload, err = loader.Aggregate(cmd.Context(), subject, level)
			}
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
	cmd.Flags().StringVar(&school, "school", "", "School identifier for level school")
	return cmd
}

func newServeStaticCmd(cfg *config.Config) *cobra.Command {
	var dir, port string

	cmd := &cobra.Command{
		Use:   "serve-static",
		Short: "Serve exported school payloads over HTTP",
		Long: `Serve the files written by names and build-schools:

  GET /school-names.json
  GET /schools/{subject}/{slug}.json

Example: nyassess-cli serve-static --port 8081`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.NewStaticServer(dir).Start(":" + port)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", cfg.Export.Dir, "Export directory to serve")
	cmd.Flags().StringVar(&port, "port", "8081", "Port to listen on")
	return cmd
}

func parseTarget(subjectIn, levelIn string) (assessment.Subject, assessment.Level, error) {
	subject, err := assessment.ParseSubject(subjectIn)
	if err != nil {
		return "", "", err
	}
	level, err := assessment.ParseLevel(levelIn)
	if err != nil {
		return "", "", err
	}
	return subject, level, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
