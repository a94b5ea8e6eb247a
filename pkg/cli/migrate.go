package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/pulsecheck/pkg/cli/config"
	"github.com/secmon-lab/pulsecheck/pkg/domain/model"
	"github.com/secmon-lab/pulsecheck/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var repoCfg config.Repository
	var dryRun bool

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Preview Firestore index changes without applying",
			Destination: &dryRun,
		},
	}
	flags = append(flags, repoCfg.Flags()...)

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Create Firestore indexes or SQL tables of the configured backend",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()
			logger.Info("Migrate configuration", "repository", repoCfg, "dryRun", dryRun)

			switch repoCfg.Backend() {
			case config.BackendFirestore:
				return migrateFirestore(ctx, repoCfg.ProjectID(), repoCfg.DatabaseID(), dryRun)

			case config.BackendPostgres, config.BackendSQLite:
				// Opening the repository creates missing tables
				repo, err := repoCfg.Configure(ctx)
				if err != nil {
					return goerr.Wrap(err, "failed to migrate SQL schema")
				}
				if err := repo.Close(); err != nil {
					return goerr.Wrap(err, "failed to close repository")
				}
				logger.Info("SQL schema is up to date", "backend", repoCfg.Backend())
				return nil

			default:
				return goerr.Wrap(model.ErrConfiguration, "backend has nothing to migrate",
					goerr.V("backend", repoCfg.Backend()))
			}
		},
	}
}

func migrateFirestore(ctx context.Context, projectID, databaseID string, dryRun bool) error {
	logger := logging.Default()
	if projectID == "" {
		return goerr.Wrap(model.ErrConfiguration, "firestore-project-id is required")
	}

	indexConfig := getIndexConfig()

	client, err := fireconf.NewClient(ctx, projectID, databaseID)
	if err != nil {
		return goerr.Wrap(err, "failed to create fireconf client")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close fireconf client", "error", err.Error())
		}
	}()

	if dryRun {
		logger.Info("Dry run mode - previewing changes")
		plan, err := client.GetMigrationPlan(ctx, indexConfig)
		if err != nil {
			return goerr.Wrap(err, "failed to create migration plan")
		}

		if len(plan.Steps) == 0 {
			logger.Info("No changes required")
			return nil
		}

		for _, step := range plan.Steps {
			logger.Info("Migration step",
				"collection", step.Collection,
				"operation", step.Operation,
				"description", step.Description,
				"destructive", step.Destructive)
		}
		return nil
	}

	logger.Info("Applying migrations")
	if err := client.Migrate(ctx, indexConfig); err != nil {
		return goerr.Wrap(err, "failed to apply migrations")
	}
	logger.Info("Migrations applied successfully")
	return nil
}

func byCreatedAt(filters ...string) fireconf.Index {
	fields := make([]fireconf.IndexField, 0, len(filters)+1)
	for _, f := range filters {
		fields = append(fields, fireconf.IndexField{Path: f, Order: fireconf.OrderAscending})
	}
	fields = append(fields, fireconf.IndexField{Path: "created_at", Order: fireconf.OrderDescending})
	return fireconf.Index{Fields: fields}
}

// getIndexConfig returns the composite indexes used by the list queries of
// the Firestore repository
func getIndexConfig() *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: "question_sets",
				Indexes: []fireconf.Index{
					byCreatedAt("hr_id"),
					byCreatedAt("employee_id"),
					byCreatedAt("status"),
					byCreatedAt("hr_id", "status"),
					byCreatedAt("employee_id", "status"),
				},
			},
			{
				Name: "questions",
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "question_set_id", Order: fireconf.OrderAscending},
							{Path: "position", Order: fireconf.OrderAscending},
						},
					},
				},
			},
			{
				Name: "question_history",
				Indexes: []fireconf.Index{
					{
						Fields: []fireconf.IndexField{
							{Path: "hr_id", Order: fireconf.OrderAscending},
							{Path: "completed_at", Order: fireconf.OrderDescending},
						},
					},
					{
						Fields: []fireconf.IndexField{
							{Path: "employee_id", Order: fireconf.OrderAscending},
							{Path: "completed_at", Order: fireconf.OrderDescending},
						},
					},
				},
			},
		},
	}
}
