package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveenrathi4/complain-app/internal/domain"
	"github.com/praveenrathi4/complain-app/internal/repository"
)

func newPgMock(t *testing.T) (pgxmock.PgxPoolIface, repository.ComplaintRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, repository.NewComplaintPgRepository(mock)
}

func TestComplaintPg_NextSequenceSeedsFromMonthAndIncrements(t *testing.T) {
	// Arrange
	mock, repo := newPgMock(t)
	at := time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)
	start, end := domain.ComplaintPeriod(at)
	counterSQL := regexp.QuoteMeta(`VALUES ($1, (SELECT COUNT(*) FROM complaints WHERE created_at >= $2 AND created_at < $3) + 1)`) +
		`\s+` + regexp.QuoteMeta(`ON CONFLICT (period) DO UPDATE SET seq = complaint_counters.seq + 1`)
	// three complaints already stored in March seed the counter at 4
	mock.ExpectQuery(counterSQL).WithArgs("202503", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(4)))
	mock.ExpectQuery(counterSQL).WithArgs("202503", start, end).
		WillReturnRows(pgxmock.NewRows([]string{"seq"}).AddRow(int64(5)))

	// Act
	first, err1 := repo.NextSequence(context.Background(), at)
	second, err2 := repo.NextSequence(context.Background(), at.Add(48*time.Hour))

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, int64(4), first)
	assert.Equal(t, int64(5), second)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), end)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintPg_NextSequenceWrapsDriverError(t *testing.T) {
	mock, repo := newPgMock(t)
	mock.ExpectQuery(`INSERT INTO complaint_counters`).WillReturnError(errors.New("connection reset"))

	_, err := repo.NextSequence(context.Background(), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "next complaint sequence")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintPg_SetRating(t *testing.T) {
	ratedAt := time.Date(2025, time.March, 20, 12, 0, 0, 0, time.UTC)
	rating := domain.SatisfactionRating{Rating: 4, Feedback: "quick fix", RatedAt: ratedAt}
	entry := domain.TimelineEntry{ID: "tl-1", Action: domain.TimelineRated, Description: "Rated 4/5", PerformedBy: "cust-1", Timestamp: ratedAt}
	updateSQL := regexp.QuoteMeta(`UPDATE complaints SET rating=$1, rating_feedback=$2, rated_at=$3, updated_at=$3`) +
		`\s+` + regexp.QuoteMeta(`WHERE id=$4 AND status IN ($5, $6)`)
	existsSQL := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM complaints WHERE id=$1)`)

	tests := []struct {
		name    string
		arrange func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "resolved complaint stores rating and timeline entry",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(updateSQL).
					WithArgs(4, "quick fix", ratedAt, "c-1", domain.ComplaintStatusResolved, domain.ComplaintStatusClosed).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
				mock.ExpectExec(`INSERT INTO complaint_timeline`).
					WithArgs("tl-1", "c-1", domain.TimelineRated, "Rated 4/5", "cust-1", ratedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "existing complaint in wrong status is a conflict",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(updateSQL).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(existsSQL).WithArgs("c-1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
				mock.ExpectRollback()
			},
			wantErr: repository.ErrStatusConflict,
		},
		{
			name: "missing complaint is not found",
			arrange: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(updateSQL).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery(existsSQL).WithArgs("c-1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectRollback()
			},
			wantErr: repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			mock, repo := newPgMock(t)
			tt.arrange(mock)

			// Act
			err := repo.SetRating(context.Background(), "c-1", rating, entry)

			// Assert
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestComplaintPg_Stats(t *testing.T) {
	since := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	overviewSQL := regexp.QuoteMeta(`AVG(rating)::float8`) + `\s+` + regexp.QuoteMeta(`FROM complaints WHERE created_at >= $1`)
	categorySQL := regexp.QuoteMeta(`GROUP BY category ORDER BY COUNT(*) DESC, category ASC`)
	overviewColumns := []string{"total", "pending", "in_progress", "resolved", "closed", "escalated", "avg"}

	t.Run("average covers rated complaints and categories keep query order", func(t *testing.T) {
		// Arrange
		mock, repo := newPgMock(t)
		avg := 3.5
		mock.ExpectQuery(overviewSQL).WithArgs(since).
			WillReturnRows(pgxmock.NewRows(overviewColumns).
				AddRow(int64(6), int64(2), int64(1), int64(2), int64(1), int64(0), &avg))
		mock.ExpectQuery(categorySQL).WithArgs(since).
			WillReturnRows(pgxmock.NewRows([]string{"category", "count"}).
				AddRow(domain.CategoryBillingIssue, int64(3)).
				AddRow(domain.CategoryDeliveryProblem, int64(2)).
				AddRow(domain.CategoryProductQuality, int64(2)))

		// Act
		stats, err := repo.Stats(context.Background(), since)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, since, stats.Since)
		assert.Equal(t, int64(6), stats.Overview.Total)
		assert.Equal(t, int64(2), stats.Overview.Pending)
		assert.Equal(t, int64(1), stats.Overview.InProgress)
		assert.Equal(t, int64(2), stats.Overview.Resolved)
		assert.Equal(t, int64(1), stats.Overview.Closed)
		require.NotNil(t, stats.Overview.AvgRating)
		assert.InDelta(t, 3.5, *stats.Overview.AvgRating, 0.0001)
		assert.Equal(t, []domain.CategoryCount{
			{Category: domain.CategoryBillingIssue, Count: 3},
			{Category: domain.CategoryDeliveryProblem, Count: 2},
			{Category: domain.CategoryProductQuality, Count: 2},
		}, stats.CategoryStats)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rated complaints leaves average null", func(t *testing.T) {
		// Arrange
		mock, repo := newPgMock(t)
		mock.ExpectQuery(overviewSQL).WithArgs(since).
			WillReturnRows(pgxmock.NewRows(overviewColumns).
				AddRow(int64(2), int64(2), int64(0), int64(0), int64(0), int64(0), nil))
		mock.ExpectQuery(categorySQL).WithArgs(since).
			WillReturnRows(pgxmock.NewRows([]string{"category", "count"}).
				AddRow(domain.CategoryOther, int64(2)))

		// Act
		stats, err := repo.Stats(context.Background(), since)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Overview.Total)
		assert.Nil(t, stats.Overview.AvgRating)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
