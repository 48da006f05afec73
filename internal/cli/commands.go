package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"dcim-inventory-backend/config"
	"dcim-inventory-backend/internal/db"
	"dcim-inventory-backend/internal/logging"
	"dcim-inventory-backend/internal/model"
	"dcim-inventory-backend/internal/reconcile"
	"dcim-inventory-backend/internal/shortid"
)

// App is what a command needs once the configuration is loaded.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Log    zerolog.Logger
}

// Opener loads the configuration at path and connects to the database.
type Opener func(configPath string) (*App, error)

// OpenApp is the Opener used by the binary. Logs go to stderr so command
// output on stdout can be piped.
func OpenApp(configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	log := logging.NewWithWriter(cfg.Logging, os.Stderr)
	gdb, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, DB: gdb, Log: log}, nil
}

func (a *App) pool() *shortid.Pool {
	return shortid.NewPool(a.DB, a.Config.ShortID, a.Log)
}

type commands struct {
	printer    *Printer
	open       Opener
	configPath string
}

// NewRootCommand builds the shortidctl command tree.
func NewRootCommand(p *Printer, open Opener) *cobra.Command {
	c := &commands{printer: p, open: open}

	root := &cobra.Command{
		Use:          "shortidctl",
		Short:        "Short ID pool administration",
		Long:         `Maintenance commands for the global short ID pool: legacy reconciliation, bulk generation, label export and statistics`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "./config/config.yaml", "Configuration file path")

	root.AddCommand(c.reconcileCmd(), c.generateCmd(), c.printTaskCmd(), c.statsCmd())
	return root
}

func (c *commands) reconcileCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge the legacy allocation table into the pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(c.configPath)
			if err != nil {
				c.printer.Error("Failed to open database", err)
				return err
			}

			report, err := reconcile.NewTool(app.DB, app.Log).Run(cmd.Context(), reconcile.Options{DryRun: dryRun})
			if err != nil {
				c.printer.Error("Reconciliation failed", err)
				return err
			}
			c.printReport(report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func (c *commands) printReport(r reconcile.Report) {
	p := c.printer
	p.Info("Scanned %d legacy rows", r.Scanned)
	if r.DryRun {
		p.DryRun("reconcile", "would create %d and update %d records", r.Created, r.Updated)
	} else {
		p.Success("Created %d, updated %d, skipped %d", r.Created, r.Updated, r.Skipped)
	}
	for _, a := range r.Adopted {
		p.Info("Adopted %d as %s %s", a.ShortID, a.LegacyType, deref(a.LegacyEntityID))
	}
	for _, cf := range r.Conflicts {
		p.Warning("Conflict on %d: %s", cf.ShortID, cf.Reason)
	}
	if len(r.UnknownTypes) > 0 {
		p.Warning("Unknown legacy entity types: %s", strings.Join(r.UnknownTypes, ", "))
	}
}

func (c *commands) generateCmd() *cobra.Command {
	var (
		count   int
		batchNo string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Allocate new short IDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(c.configPath)
			if err != nil {
				c.printer.Error("Failed to open database", err)
				return err
			}

			var batch *string
			if batchNo != "" {
				batch = &batchNo
			}
			pool := app.pool()
			records, err := pool.Generate(cmd.Context(), count, batch)
			if err != nil {
				c.printer.Error("Failed to generate short IDs", err)
				return err
			}

			c.printer.Success("Generated %d short IDs", len(records))
			for _, r := range records {
				c.printer.Plain("%s", pool.Codec().Format(r.Value))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Number of short IDs to allocate")
	cmd.Flags().StringVar(&batchNo, "batch", "", "Batch number recorded on every allocated ID")
	cmd.MarkFlagRequired("count")
	return cmd
}

func (c *commands) printTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-task",
		Short: "Manage label print tasks",
	}

	var (
		name      string
		count     int
		createdBy string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Reserve short IDs for a label printing run",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open(c.configPath)
			if err != nil {
				c.printer.Error("Failed to open database", err)
				return err
			}

			task, records, err := app.pool().CreatePrintTask(cmd.Context(), shortid.PrintTaskRequest{
				Name: name, Count: count, CreatedBy: createdBy,
			})
			if err != nil {
				c.printer.Error("Failed to create print task", err)
				return err
			}
			c.printer.Success("Print task %d %q created with %d short IDs (%d..%d)",
				task.ID, task.Name, len(records), records[0].Value, records[len(records)-1].Value)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Task name")
	create.Flags().IntVar(&count, "count", 0, "Number of labels")
	create.Flags().StringVar(&createdBy, "created-by", "", "Operator name")
	create.MarkFlagRequired("name")
	create.MarkFlagRequired("count")

	var output string
	export := &cobra.Command{
		Use:   "export <task-id>",
		Short: "Write the label CSV of a print task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				c.printer.Error("Invalid task id %q", nil, args[0])
				return fmt.Errorf("invalid task id %q", args[0])
			}

			app, err := c.open(c.configPath)
			if err != nil {
				c.printer.Error("Failed to open database", err)
				return err
			}

			data, err := shortid.NewPrintBatches(app.pool()).ExportCSV(cmd.Context(), taskID)
			if err != nil {
				c.printer.Error("Failed to export print task %d", err, taskID)
				return err
			}

			if output == "" {
				c.printer.Plain("%s", strings.TrimSuffix(string(data), "\n"))
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				c.printer.Error("Failed to write %s", err, output)
				return err
			}
			c.printer.Success("Wrote %s", output)
			return nil
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")

	cmd.AddCommand(create, export)
	return cmd
}

func (c *commands) statsCmd() *cobra.Command {
	var entityType string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show pool counts by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			et := model.EntityType(strings.ToUpper(entityType))
			if et != "" && !et.Valid() {
				err := fmt.Errorf("unknown entity type %q", entityType)
				c.printer.Error("Invalid --entity-type", err)
				return err
			}

			app, err := c.open(c.configPath)
			if err != nil {
				c.printer.Error("Failed to open database", err)
				return err
			}

			stats, err := app.pool().Stats(cmd.Context(), et)
			if err != nil {
				c.printer.Error("Failed to load stats", err)
				return err
			}

			c.printer.Info("Short ID pool")
			c.printer.Plain("  total      %d", stats.Total)
			c.printer.Plain("  generated  %d", stats.Generated)
			c.printer.Plain("  printed    %d", stats.Printed)
			c.printer.Plain("  bound      %d", stats.Bound)
			c.printer.Plain("  cancelled  %d", stats.Cancelled)
			for _, t := range model.EntityTypes {
				if n := stats.ByType[t]; n > 0 {
					c.printer.Plain("  %-11s%d", strings.ToLower(string(t)), n)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&entityType, "entity-type", "", "Count only records bound to this entity type")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
