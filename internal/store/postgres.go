package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	appLog "studycal/internal/log"
	"studycal/internal/model"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads one user's records from the planner tables.
type PostgresStore struct {
	db     DB
	userID string
}

// NewPostgresStore returns a store over db scoped to userID.
func NewPostgresStore(db DB, userID string) *PostgresStore {
	return &PostgresStore{db: db, userID: userID}
}

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return pool, nil
}

func (s *PostgresStore) Load(ctx context.Context) (model.Sources, error) {
	var (
		src model.Sources
		err error
	)

	if src.Courses, err = s.courses(ctx); err != nil {
		return model.Sources{}, err
	}
	if src.ScheduleBlocks, err = s.scheduleBlocks(ctx); err != nil {
		return model.Sources{}, err
	}
	if src.Exams, err = s.exams(ctx); err != nil {
		return model.Sources{}, err
	}
	if src.Assignments, err = s.assignments(ctx); err != nil {
		return model.Sources{}, err
	}
	if src.StudySessions, err = s.studySessions(ctx); err != nil {
		return model.Sources{}, err
	}

	appLog.Debug("store: records loaded",
		"user_id", s.userID,
		"courses", len(src.Courses),
		"schedule_blocks", len(src.ScheduleBlocks),
		"exams", len(src.Exams),
		"assignments", len(src.Assignments),
		"study_sessions", len(src.StudySessions),
	)
	return src, nil
}

// queryAll runs query for the store's user and scans every row with scan.
func queryAll[T any](ctx context.Context, s *PostgresStore, table, query string, scan func(pgx.Rows, *T) error) ([]T, error) {
	rows, err := s.db.Query(ctx, query, s.userID)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var item T
		if err := scan(rows, &item); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read %s: %w", table, err)
	}
	return out, nil
}

func (s *PostgresStore) courses(ctx context.Context) ([]model.Course, error) {
	query := `
		SELECT id, name, COALESCE(color, '')
		FROM courses
		WHERE user_id = $1
		ORDER BY id
	`
	return queryAll(ctx, s, "courses", query, func(rows pgx.Rows, c *model.Course) error {
		return rows.Scan(&c.ID, &c.Name, &c.Color)
	})
}

func (s *PostgresStore) scheduleBlocks(ctx context.Context) ([]model.ScheduleBlock, error) {
	query := `
		SELECT id, title, COALESCE(location, ''), day_of_week, specific_date,
		to_char(start_time, 'HH24:MI:SS'), to_char(end_time, 'HH24:MI:SS'),
		is_recurring, COALESCE(course_id, ''), COALESCE(color, ''), ai_generated
		FROM schedule_blocks
		WHERE user_id = $1
		ORDER BY id
	`
	return queryAll(ctx, s, "schedule_blocks", query, func(rows pgx.Rows, b *model.ScheduleBlock) error {
		return rows.Scan(
			&b.ID,
			&b.Title,
			&b.Location,
			&b.DayOfWeek,
			&b.SpecificDate,
			&b.StartTime,
			&b.EndTime,
			&b.IsRecurring,
			&b.CourseID,
			&b.Color,
			&b.AIGenerated,
		)
	})
}

func (s *PostgresStore) exams(ctx context.Context) ([]model.Exam, error) {
	query := `
		SELECT id, title, exam_date, COALESCE(location, ''),
		COALESCE(course_id, ''), duration_minutes, COALESCE(color, '')
		FROM exams
		WHERE user_id = $1
		ORDER BY exam_date, id
	`
	return queryAll(ctx, s, "exams", query, func(rows pgx.Rows, e *model.Exam) error {
		return rows.Scan(&e.ID, &e.Title, &e.ExamDate, &e.Location, &e.CourseID, &e.DurationMinutes, &e.Color)
	})
}

func (s *PostgresStore) assignments(ctx context.Context) ([]model.Assignment, error) {
	query := `
		SELECT id, title, due_date, COALESCE(course_id, ''), COALESCE(color, '')
		FROM assignments
		WHERE user_id = $1
		ORDER BY due_date, id
	`
	return queryAll(ctx, s, "assignments", query, func(rows pgx.Rows, a *model.Assignment) error {
		return rows.Scan(&a.ID, &a.Title, &a.DueDate, &a.CourseID, &a.Color)
	})
}

func (s *PostgresStore) studySessions(ctx context.Context) ([]model.StudySession, error) {
	query := `
		SELECT id, title, start_time, end_time, COALESCE(course_id, ''), COALESCE(color, '')
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY start_time, id
	`
	return queryAll(ctx, s, "study_sessions", query, func(rows pgx.Rows, ss *model.StudySession) error {
		return rows.Scan(&ss.ID, &ss.Title, &ss.Start, &ss.End, &ss.CourseID, &ss.Color)
	})
}
