package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/container"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
	"github.com/garyjia/trash-inspection/internal/domain/event"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
	"github.com/garyjia/trash-inspection/pkg/utils"
)

// openStore opens the database and repositories without the external clients
func openStore() (*container.DatabaseBundle, *container.RepositoryBundle, *zap.Logger, error) {
	cfg, logger, err := bootstrap()
	if err != nil {
		return nil, nil, nil, err
	}

	dbCfg := cfg.ToContainerConfig().Database
	db, err := container.ProvideDatabase(&dbCfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	repos, err := container.ProvideRepositories(db.Database.DB, logger)
	if err != nil {
		db.Database.Close()
		return nil, nil, nil, err
	}

	return db, repos, logger, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, logger, err := openStore()
			if err != nil {
				return err
			}
			defer db.Database.Close()

			logger.Info("Migrations applied", zap.String("driver", db.Database.Driver))
			return nil
		},
	}
}

func newEnqueueCmd() *cobra.Command {
	var (
		eventType     string
		caseID        string
		correlationID string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Put a lifecycle event on the input queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := utils.ParseSdkCaseID(caseID)
			if err != nil {
				return err
			}

			evt := event.NewEvent(event.Type(eventType), id)
			if correlationID != "" {
				evt.CorrelationID = correlationID
			}
			if err := evt.Validate(); err != nil {
				return err
			}

			db, repos, logger, err := openStore()
			if err != nil {
				return err
			}
			defer db.Database.Close()

			if err := repos.Queue.Enqueue(cmd.Context(), evt); err != nil {
				return fmt.Errorf("failed to enqueue event: %w", err)
			}

			logger.Info("Event enqueued",
				zap.String("event_id", evt.ID),
				zap.String("event_type", evt.Type.String()),
				zap.Int64("case_id", evt.CaseID))
			fmt.Fprintln(cmd.OutOrStdout(), evt.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "event type (eform.retrieved, eform.parsed_by_server, eform.completed)")
	cmd.Flags().StringVar(&caseID, "case-id", "", "eForm SDK case id")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "optional correlation id")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("case-id")

	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		inspectionID int64
		caseIDs      []string
		status       int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create cases for an inspection, creating the inspection unless --inspection is given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(caseIDs) == 0 {
				return fmt.Errorf("at least one --case is required")
			}
			if status < 0 || status > workflow.StatusCompleted {
				return fmt.Errorf("--status must be between 0 and %d", workflow.StatusCompleted)
			}
			ids := make([]int64, 0, len(caseIDs))
			for _, raw := range caseIDs {
				id, err := utils.ParseSdkCaseID(raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			db, repos, logger, err := openStore()
			if err != nil {
				return err
			}
			defer db.Database.Close()

			id, err := seedInspection(cmd.Context(), db.TransactionMgr, repos, inspectionID, ids, status)
			if err != nil {
				return fmt.Errorf("failed to seed inspection: %w", err)
			}

			logger.Info("Inspection seeded",
				zap.Int64("inspection_id", id),
				zap.Strings("cases", caseIDs),
				zap.Int("status", status))
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().IntVar(&status, "status", 0, "initial case status (0 unprocessed, 70 parsed, 77 retrieved)")
	cmd.Flags().Int64Var(&inspectionID, "inspection", 0, "existing inspection id to attach the cases to")
	cmd.Flags().StringSliceVar(&caseIDs, "case", nil, "eForm SDK case id; repeat or comma-separate for siblings")

	return cmd
}

// seedInspection creates one case per sdk case id at status. A zero
// inspectionID creates a new inspection; otherwise it must exist.
func seedInspection(ctx context.Context, tm port.TransactionManager, repos *container.RepositoryBundle, inspectionID int64, sdkCaseIDs []int64, status int) (int64, error) {
	inspection := &entity.TrashInspection{WorkflowState: entity.WorkflowStateCreated}
	err := tm.WithTransaction(ctx, func(ctx context.Context) error {
		if inspectionID > 0 {
			existing, found, err := repos.Inspection.GetByID(ctx, inspectionID)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("inspection %d not found", inspectionID)
			}
			inspection = existing
		} else if err := repos.Inspection.Create(ctx, inspection); err != nil {
			return err
		}

		for _, id := range sdkCaseIDs {
			tc := &entity.TrashInspectionCase{
				SdkCaseID:         strconv.FormatInt(id, 10),
				Status:            status,
				TrashInspectionID: inspection.ID,
			}
			if err := repos.Case.Create(ctx, tc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inspection.ID, nil
}
