package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/posko-sync/internal/audit"
	"github.com/posko-sync/internal/config"
	"github.com/posko-sync/internal/db"
	"github.com/posko-sync/internal/importer"
	"github.com/posko-sync/internal/odk"
	"github.com/posko-sync/internal/store"
	"github.com/posko-sync/internal/syncer"
	"github.com/posko-sync/internal/web"
	"github.com/posko-sync/internal/wilayah"
)

var (
	cfg    *config.Config
	dbConn *db.Connection
)

func main() {
	cfg = config.Load()

	var err error
	dbConn, err = db.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	rootCmd := &cobra.Command{
		Use:   "syncer",
		Short: "Posko record consistency pipeline",
		Long:  `Keeps relational shelter/facility records and their ODK Central entity counterparts consistent: region code resolution, identity reconciliation, and gap-fill property sync`,
	}

	rootCmd.AddCommand(createPingCmd())
	rootCmd.AddCommand(createSetupCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createResolveCmd())
	rootCmd.AddCommand(createReconcileCmd())
	rootCmd.AddCommand(createSyncCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createStatsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// newRunner wires the batch runner against the live database and platform.
func newRunner() *syncer.Runner {
	locations := store.NewLocationStore(dbConn.DB)
	tracker := audit.NewTracker(dbConn.DB)
	client := odk.NewClient(odk.Config{
		BaseURL:      cfg.ODKBaseURL,
		Email:        cfg.ODKEmail,
		Password:     cfg.ODKPassword,
		ProjectID:    cfg.ODKProjectID,
		RequestDelay: cfg.ODKRequestDelay,
	})
	return syncer.NewRunner(locations, client.Dataset(cfg.ODKDataset), tracker, cfg.SyncWorkers)
}

// loadBackbone loads the region backbone from the wilayah tables.
func loadBackbone(ctx context.Context) (*wilayah.Backbone, error) {
	units, err := store.NewBackboneStore(dbConn.DB).Load(ctx)
	if err != nil {
		return nil, err
	}
	backbone := wilayah.NewBackbone(units)
	for _, lvl := range []wilayah.Level{wilayah.LevelProvince, wilayah.LevelRegency, wilayah.LevelSubdistrict, wilayah.LevelVillage} {
		if n := backbone.AmbiguousCount(lvl); n > 0 {
			log.Printf("Warning: %d ambiguous name keys at %s level, first entry wins", n, lvl)
		}
	}
	return backbone, nil
}

// createPingCmd creates a command to test database connectivity
func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Database connection successful!")

			var count int
			err := dbConn.DB.QueryRow("SELECT COUNT(*) FROM wilayah_desa").Scan(&count)
			if err != nil {
				log.Printf("Error counting wilayah_desa records: %v", err)
			} else {
				fmt.Printf("Region villages loaded: %d\n", count)
			}

			err = dbConn.DB.QueryRow("SELECT COUNT(*) FROM locations WHERE deleted_at IS NULL").Scan(&count)
			if err != nil {
				log.Printf("Error counting locations: %v", err)
			} else {
				fmt.Printf("Active location records: %d\n", count)
			}
		},
	}
}

func createSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create database tables and indexes",
		Run: func(cmd *cobra.Command, args []string) {
			if err := store.Setup(dbConn.DB); err != nil {
				log.Fatalf("Schema setup failed: %v", err)
			}
			fmt.Println("Schema ready")
		},
	}
}

func createImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [filename]",
		Short: "Import baseline location records from a JSON file",
		Long:  `Import a JSON array of baseline records, resolving region codes on the way in. Records are upserted by display name`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			backbone, err := loadBackbone(ctx)
			if err != nil {
				log.Fatalf("Failed to load region backbone: %v", err)
			}

			f, err := os.Open(args[0])
			if err != nil {
				log.Fatalf("Failed to open %s: %v", args[0], err)
			}
			defer f.Close()

			im := importer.NewImporter(store.NewLocationStore(dbConn.DB), backbone)
			result, err := im.ImportJSON(ctx, f)
			if err != nil {
				log.Fatalf("Import failed: %v", err)
			}
			printResult(result)
		},
	}
}

func createResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Re-resolve region codes for records with gaps",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			backbone, err := loadBackbone(ctx)
			if err != nil {
				log.Fatalf("Failed to load region backbone: %v", err)
			}

			result, err := newRunner().ResolveAll(ctx, backbone)
			if err != nil {
				log.Fatalf("Resolve pass failed: %v", err)
			}
			printResult(result)
		},
	}
}

func createReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Align record entity identifiers with the platform",
		Run: func(cmd *cobra.Command, args []string) {
			result, err := newRunner().Reconcile(cmd.Context())
			if err != nil {
				log.Fatalf("Reconcile failed: %v", err)
			}
			printResult(result)
		},
	}
}

func createSyncCmd() *cobra.Command {
	var skipReconcile bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push record fields to linked platform entities",
		Long:  `Reconcile entity identifiers, then gap-fill entity properties from record fields. Non-empty entity values are never overwritten`,
		Run: func(cmd *cobra.Command, args []string) {
			runner := newRunner()

			var result *audit.RunResult
			var err error
			if skipReconcile {
				result, err = runner.SyncProperties(cmd.Context())
			} else {
				result, err = runner.Run(cmd.Context())
			}
			if err != nil {
				log.Fatalf("Sync failed: %v", err)
			}
			printResult(result)
		},
	}

	cmd.Flags().BoolVar(&skipReconcile, "skip-reconcile", false, "Skip the reconcile pass and sync properties only")

	return cmd
}

func createServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operational web API",
		Run: func(cmd *cobra.Command, args []string) {
			server := web.NewServer(cfg, dbConn.DB)
			if err := server.Start(); err != nil {
				log.Fatalf("Server failed: %v", err)
			}
		},
	}
}

func createStatsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show backlog counts and recent runs",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()
			locations := store.NewLocationStore(dbConn.DB)

			unresolved, err := locations.CountUnresolved(ctx)
			if err != nil {
				log.Fatalf("Failed to count unresolved: %v", err)
			}
			unmatched, err := locations.CountUnmatched(ctx)
			if err != nil {
				log.Fatalf("Failed to count unmatched: %v", err)
			}

			fmt.Printf("Records missing region codes: %d\n", unresolved)
			fmt.Printf("Records without entity link:  %d\n", unmatched)

			runs, err := audit.NewTracker(dbConn.DB).ListRecent(ctx, limit)
			if err != nil {
				log.Fatalf("Failed to list runs: %v", err)
			}

			fmt.Println("\nRecent runs:")
			fmt.Println("ID    | Kind      | Started             | Updated | Unchanged | Conflicts | Failures")
			fmt.Println("------|-----------|---------------------|---------|-----------|-----------|---------")
			for _, run := range runs {
				fmt.Printf("%-5d | %-9s | %s | %7d | %9d | %9d | %8d\n",
					run.ID, run.Kind, run.StartedAt.Format("2006-01-02 15:04:05"),
					run.Updated, run.Unchanged, run.Conflicts, run.Failures)
			}
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")

	return cmd
}

func printResult(result *audit.RunResult) {
	fmt.Printf("\n=== %s ===\n", result.Kind)
	fmt.Printf("Fetched:   %d\n", result.Fetched)
	if result.Resolved > 0 {
		fmt.Printf("Resolved:  %d\n", result.Resolved)
	}
	if result.Matched > 0 {
		fmt.Printf("Matched:   %d\n", result.Matched)
	}
	fmt.Printf("Updated:   %d\n", result.Updated)
	fmt.Printf("Unchanged: %d\n", result.Unchanged)
	fmt.Printf("Conflicts: %d\n", result.Conflicts)
	fmt.Printf("Failures:  %d\n", result.Failures)
	fmt.Printf("Skipped:   %d\n", result.Skipped)
	fmt.Printf("Duration:  %s\n", result.Duration())

	for _, detail := range result.ErrorDetails {
		fmt.Printf("  ! %s\n", detail)
	}
}
