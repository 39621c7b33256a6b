package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/models"
)

func newProjectRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestProjectRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "student_id", "advisor_id", "title", "area", "summary", "objectives", "methodology",
		"proposal_file_ref", "stage", "status", "proposal_status", "enrollment_year", "campus", "created_at", "updated_at",
	}).AddRow("proj-1", "student-1", "advisor-1", "Title", "computacao", "s", "o", "m",
		nil, models.StageEnvioProposta, models.ProjectStatusAtivo, models.DecisionPendente, 2026, "central", now, now)

	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id = \\$1 LIMIT 1").
		WithArgs("proj-1").
		WillReturnRows(rows)

	project, err := repo.GetByID(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Equal(t, "proj-1", project.ID)
	require.Equal(t, models.StageEnvioProposta, project.Stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryAdvanceStage(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET stage = $3, updated_at = $4 WHERE id = $1 AND stage = $2")).
		WithArgs("proj-1", models.StageEnvioProposta, models.StageApresentacaoProposta, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AdvanceStage(context.Background(), "proj-1", models.StageEnvioProposta, models.StageApresentacaoProposta)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryAdvanceStageStale(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET stage = $3, updated_at = $4 WHERE id = $1 AND stage = $2")).
		WithArgs("proj-1", models.StageEnvioProposta, models.StageApresentacaoProposta, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AdvanceStage(context.Background(), "proj-1", models.StageEnvioProposta, models.StageApresentacaoProposta)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryCreateWithApprovalDuplicate(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	project := &models.Project{
		StudentID:      "student-1",
		Title:          "Title",
		Stage:          models.StageEnvioProposta,
		Status:         models.ProjectStatusAtivo,
		ProposalStatus: models.DecisionPendente,
		EnrollmentYear: 2026,
	}
	err := repo.CreateWithApproval(context.Background(), project, &models.ApprovalRecord{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryCreateWithApproval(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO approval_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	project := &models.Project{
		StudentID:      "student-1",
		Title:          "Title",
		Stage:          models.StageEnvioProposta,
		Status:         models.ProjectStatusAtivo,
		ProposalStatus: models.DecisionPendente,
		EnrollmentYear: 2026,
	}
	approval := &models.ApprovalRecord{}
	err := repo.CreateWithApproval(context.Background(), project, approval)
	require.NoError(t, err)
	require.NotEmpty(t, project.ID)
	require.Equal(t, project.ID, approval.ProjectID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepositoryResetNotEligible(t *testing.T) {
	db, mock, cleanup := newProjectRepoMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4")).
		WithArgs("proj-1", models.ProjectStatusEncerrado, sqlmock.AnyArg(), models.ProjectStatusApresentacaoRejeitada).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reset(context.Background(), "proj-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
