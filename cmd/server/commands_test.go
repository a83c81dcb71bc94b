package main

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/service"
	"github.com/garyjia/trash-inspection/internal/container"
	"github.com/garyjia/trash-inspection/internal/domain/workflow"
	"github.com/garyjia/trash-inspection/pkg/utils"
)

func newSeedStore(t *testing.T) (*container.DatabaseBundle, *container.RepositoryBundle) {
	t.Helper()
	db, err := container.ProvideDatabase(&container.DatabaseConfig{Driver: "sqlite3", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Database.Close() })

	repos, err := container.ProvideRepositories(db.Database.DB, zap.NewNop())
	require.NoError(t, err)
	return db, repos
}

func TestSeedCmd_StatusDefaultsToUnprocessed(t *testing.T) {
	flag := newSeedCmd().Flags().Lookup("status")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)
}

func TestSeedCmd_RejectsStatusOutOfRange(t *testing.T) {
	for _, status := range []string{"-1", "101"} {
		cmd := newSeedCmd()
		cmd.SetArgs([]string{"--case", "1", "--status", status})
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--status")
	}
}

func TestSeedInspection_CasesCanBeParsedByServer(t *testing.T) {
	db, repos := newSeedStore(t)
	ctx := context.Background()

	inspectionID, err := seedInspection(ctx, db.TransactionMgr, repos, 0, []int64{11, 12}, 0)
	require.NoError(t, err)

	cases, err := repos.Case.ListByInspectionID(ctx, inspectionID)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, 0, cases[0].Status)

	transitions := service.NewTransitionService(repos.Case, repos.Inspection, utils.NewKeyValueLogger(zap.NewNop()))
	outcome, err := transitions.Apply(ctx, workflow.TriggerParse, cases[0], nil)
	require.NoError(t, err)
	assert.True(t, outcome.Case.Written)

	got, _, err := repos.Case.GetBySdkCaseID(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusParsed, got.Status)
}

func TestSeedInspection_AttachesToExistingInspection(t *testing.T) {
	db, repos := newSeedStore(t)
	ctx := context.Background()

	first, err := seedInspection(ctx, db.TransactionMgr, repos, 0, []int64{21}, workflow.StatusRetrieved)
	require.NoError(t, err)

	second, err := seedInspection(ctx, db.TransactionMgr, repos, first, []int64{22}, 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cases, err := repos.Case.ListByInspectionID(ctx, first)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, workflow.StatusRetrieved, cases[0].Status)

	_, err = seedInspection(ctx, db.TransactionMgr, repos, 999, []int64{23}, 0)
	assert.Error(t, err)
}
