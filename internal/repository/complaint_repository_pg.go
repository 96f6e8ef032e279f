package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/praveenrathi4/complain-app/internal/domain"
)

const complaintColumns = `id, complaint_id, title, description, category, priority, status, customer_id,
               assigned_to, dealer_id, attachments, location, tags, actual_resolution_date,
               rating, rating_feedback, rated_at, email_notifications, whatsapp_notifications,
               source, ip_address, user_agent, created_at, updated_at`

var pgSortColumns = map[SortField]string{
	SortByCreatedAt:   "created_at",
	SortByUpdatedAt:   "updated_at",
	SortByPriority:    "priority",
	SortByStatus:      "status",
	SortByTitle:       "title",
	SortByComplaintID: "complaint_id",
}

// PgxPool is the subset of *pgxpool.Pool the Postgres repositories use.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

type complaintPgRepository struct {
	pool PgxPool
}

// NewComplaintPgRepository returns a Postgres-backed implementation.
func NewComplaintPgRepository(pool PgxPool) ComplaintRepository {
	return &complaintPgRepository{pool: pool}
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func inTx(ctx context.Context, pool PgxPool, fn func(pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// NextSequence bumps the month's counter row. The first bump of a month seeds
// the row from the complaints already stored in that month.
func (r *complaintPgRepository) NextSequence(ctx context.Context, at time.Time) (int64, error) {
	const query = `
        INSERT INTO complaint_counters (period, seq)
        VALUES ($1, (SELECT COUNT(*) FROM complaints WHERE created_at >= $2 AND created_at < $3) + 1)
        ON CONFLICT (period) DO UPDATE SET seq = complaint_counters.seq + 1
        RETURNING seq`
	start, end := domain.ComplaintPeriod(at)
	var seq int64
	if err := r.pool.QueryRow(ctx, query, domain.PeriodKey(at), start, end).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next complaint sequence: %w", err)
	}
	return seq, nil
}

func (r *complaintPgRepository) Create(ctx context.Context, c *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (id, complaint_id, title, description, category, priority, status, customer_id,
            assigned_to, dealer_id, attachments, location, tags, email_notifications, whatsapp_notifications,
            source, ip_address, user_agent, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

	attachments := c.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}

	return mapPgError(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query,
			c.ID,
			c.ComplaintID,
			c.Title,
			c.Description,
			c.Category,
			c.Priority,
			c.Status,
			c.CustomerID,
			c.AssignedTo,
			c.DealerID,
			attachments,
			c.Location,
			tags,
			c.Communication.EmailNotifications,
			c.Communication.WhatsAppNotifications,
			c.Metadata.Source,
			c.Metadata.IPAddress,
			c.Metadata.UserAgent,
			c.CreatedAt,
			c.UpdatedAt,
		); err != nil {
			return err
		}
		for _, entry := range c.Timeline {
			if err := insertTimelineEntry(ctx, tx, c.ID, entry); err != nil {
				return err
			}
		}
		for _, comment := range c.Comments {
			if err := insertComment(ctx, tx, c.ID, comment); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (r *complaintPgRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *complaintPgRepository) GetByComplaintID(ctx context.Context, complaintID string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE complaint_id=$1`
	return r.fetchSingle(ctx, query, complaintID)
}

func (r *complaintPgRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Complaint, error) {
	complaint, err := scanComplaint(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}

	timelineRows, err := r.pool.Query(ctx, `
        SELECT id, action, description, performed_by, created_at
        FROM complaint_timeline WHERE complaint_id=$1 ORDER BY seq`, complaint.ID)
	if err != nil {
		return nil, err
	}
	complaint.Timeline, err = pgx.CollectRows(timelineRows, pgx.RowToStructByPos[domain.TimelineEntry])
	if err != nil {
		return nil, err
	}

	commentRows, err := r.pool.Query(ctx, `
        SELECT id, author_id, message, is_internal, created_at
        FROM complaint_comments WHERE complaint_id=$1 ORDER BY seq`, complaint.ID)
	if err != nil {
		return nil, err
	}
	complaint.Comments, err = pgx.CollectRows(commentRows, pgx.RowToStructByPos[domain.Comment])
	if err != nil {
		return nil, err
	}
	return complaint, nil
}

// List returns one page of complaint summaries (no timeline or comments) and
// the total number of matches.
func (r *complaintPgRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, int64, error) {
	where, args := buildComplaintWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	column, ok := pgSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		complaintColumns, where, column, direction, direction, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	complaints := make([]domain.Complaint, 0, filter.Limit)
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		complaints = append(complaints, *complaint)
	}
	return complaints, total, rows.Err()
}

func buildComplaintWhere(filter ComplaintFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if filter.ParticipantID != nil {
		args = append(args, *filter.ParticipantID)
		clauses = append(clauses, fmt.Sprintf("(dealer_id=$%d OR assigned_to=$%d)", len(args), len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d OR complaint_id ILIKE $%d)", n, n, n))
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *complaintPgRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) error {
	const query = `
        UPDATE complaints SET status=$1, actual_resolution_date=COALESCE($2, actual_resolution_date), updated_at=$3
        WHERE id=$4`
	return mapPgError(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query, change.Status, change.ResolvedAt, change.UpdatedAt, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		if err := insertTimelineEntry(ctx, tx, id, change.Entry); err != nil {
			return err
		}
		if change.Comment != nil {
			return insertComment(ctx, tx, id, *change.Comment)
		}
		return nil
	}))
}

func (r *complaintPgRepository) AppendComment(ctx context.Context, id string, comment domain.Comment, entry domain.TimelineEntry) error {
	return mapPgError(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := touchComplaint(ctx, tx, id, comment.CreatedAt); err != nil {
			return err
		}
		if err := insertComment(ctx, tx, id, comment); err != nil {
			return err
		}
		return insertTimelineEntry(ctx, tx, id, entry)
	}))
}

// SetRating stores the rating only while the complaint is resolved or closed;
// the status check and the write are one statement.
func (r *complaintPgRepository) SetRating(ctx context.Context, id string, rating domain.SatisfactionRating, entry domain.TimelineEntry) error {
	const query = `
        UPDATE complaints SET rating=$1, rating_feedback=$2, rated_at=$3, updated_at=$3
        WHERE id=$4 AND status IN ($5, $6)`
	return mapPgError(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query, rating.Rating, rating.Feedback, rating.RatedAt, id,
			domain.RateableStatuses[0], domain.RateableStatuses[1])
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id=$1)`, id).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return ErrStatusConflict
			}
			return ErrNotFound
		}
		return insertTimelineEntry(ctx, tx, id, entry)
	}))
}

func (r *complaintPgRepository) Assign(ctx context.Context, id string, assignment Assignment) error {
	const query = `
        UPDATE complaints SET assigned_to=$1, dealer_id=COALESCE($2, dealer_id), updated_at=$3
        WHERE id=$4`
	return mapPgError(inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query, assignment.AssigneeID, assignment.DealerID, assignment.UpdatedAt, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
		return insertTimelineEntry(ctx, tx, id, assignment.Entry)
	}))
}

func (r *complaintPgRepository) Stats(ctx context.Context, since time.Time) (*domain.DashboardStats, error) {
	const overviewQuery = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='pending'),
               COUNT(*) FILTER (WHERE status='in_progress'),
               COUNT(*) FILTER (WHERE status='resolved'),
               COUNT(*) FILTER (WHERE status='closed'),
               COUNT(*) FILTER (WHERE status='escalated'),
               AVG(rating)::float8
        FROM complaints WHERE created_at >= $1`
	const categoryQuery = `
        SELECT category, COUNT(*) FROM complaints WHERE created_at >= $1
        GROUP BY category ORDER BY COUNT(*) DESC, category ASC`

	stats := &domain.DashboardStats{Since: since}
	o := &stats.Overview
	if err := r.pool.QueryRow(ctx, overviewQuery, since).Scan(
		&o.Total, &o.Pending, &o.InProgress, &o.Resolved, &o.Closed, &o.Escalated, &o.AvgRating,
	); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, categoryQuery, since)
	if err != nil {
		return nil, err
	}
	stats.CategoryStats, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CategoryCount, error) {
		var c domain.CategoryCount
		err := row.Scan(&c.Category, &c.Count)
		return c, err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func insertTimelineEntry(ctx context.Context, tx pgx.Tx, complaintID string, entry domain.TimelineEntry) error {
	const query = `
        INSERT INTO complaint_timeline (id, complaint_id, action, description, performed_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.Exec(ctx, query, entry.ID, complaintID, entry.Action, entry.Description, entry.PerformedBy, entry.Timestamp)
	return err
}

func insertComment(ctx context.Context, tx pgx.Tx, complaintID string, comment domain.Comment) error {
	const query = `
        INSERT INTO complaint_comments (id, complaint_id, author_id, message, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.Exec(ctx, query, comment.ID, complaintID, comment.Author, comment.Message, comment.IsInternal, comment.CreatedAt)
	return err
}

func touchComplaint(ctx context.Context, tx pgx.Tx, id string, at time.Time) error {
	cmd, err := tx.Exec(ctx, `UPDATE complaints SET updated_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var (
		c        domain.Complaint
		rating   *int
		feedback *string
		ratedAt  *time.Time
	)
	if err := row.Scan(
		&c.ID,
		&c.ComplaintID,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Priority,
		&c.Status,
		&c.CustomerID,
		&c.AssignedTo,
		&c.DealerID,
		&c.Attachments,
		&c.Location,
		&c.Tags,
		&c.ActualResolutionDate,
		&rating,
		&feedback,
		&ratedAt,
		&c.Communication.EmailNotifications,
		&c.Communication.WhatsAppNotifications,
		&c.Metadata.Source,
		&c.Metadata.IPAddress,
		&c.Metadata.UserAgent,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if rating != nil && ratedAt != nil {
		c.SatisfactionRating = &domain.SatisfactionRating{Rating: *rating, RatedAt: *ratedAt}
		if feedback != nil {
			c.SatisfactionRating.Feedback = *feedback
		}
	}
	return &c, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
