package project

import (
	"context"
	"database/sql"
	"time"

	"github.com/bytedance/sonic"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type Repository interface {
	SaveProject(ctx context.Context, p *timeline.Project) error
	GetProject(ctx context.Context, id string) (*timeline.Project, error)
	ListProjects(ctx context.Context) ([]*Summary, error)
	DeleteProject(ctx context.Context, id string) error

	CreateJob(ctx context.Context, job *RenderJob) error
	GetJob(ctx context.Context, id string) (*RenderJob, error)
	ListJobs(ctx context.Context, projectID string) ([]*RenderJob, error)
	ListPendingJobs(ctx context.Context) ([]*RenderJob, error)
	UpdateJobStatus(ctx context.Context, id string, status JobStatus, errorMsg, outputPath string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveProject upserts the full project payload plus the summary
// columns the list view reads.
func (r *SQLiteRepository) SaveProject(ctx context.Context, p *timeline.Project) error {
	payload, err := sonic.Marshal(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, status, error, duration, scene_count, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			error = excluded.error,
			duration = excluded.duration,
			scene_count = excluded.scene_count,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, p.ID, p.Name, string(p.Status), p.Error, p.TotalDuration(), len(p.Scenes),
		string(payload), p.CreatedAt.Format(time.RFC3339), now)
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*timeline.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT payload FROM projects WHERE id = ?", id)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p timeline.Project
	if err := sonic.Unmarshal([]byte(payload), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, error, duration, scene_count, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var s Summary
		var status, createdAt, updatedAt string
		if err := rows.Scan(&s.ID, &s.Name, &status, &s.Error, &s.Duration, &s.SceneCount, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		s.Status = timeline.Status(status)
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, job *RenderJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, project_id, status, burn_captions, caption_style,
			target_width, target_height, output_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.ProjectID, string(job.Status), boolToInt(job.BurnCaptions), job.CaptionStyle,
		job.TargetWidth, job.TargetHeight, job.OutputPath, job.Error,
		job.CreatedAt.Format(time.RFC3339), job.UpdatedAt.Format(time.RFC3339))
	return err
}

const jobColumns = `id, project_id, status, burn_captions, caption_style,
	target_width, target_height, output_path, error, created_at, updated_at`

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*RenderJob, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM render_jobs WHERE id = ?", id)
	return scanJob(row)
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, projectID string) ([]*RenderJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM render_jobs WHERE project_id = ? ORDER BY created_at DESC", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*RenderJob, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM render_jobs WHERE status = ? ORDER BY created_at ASC", string(JobPending))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id string, status JobStatus, errorMsg, outputPath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET status = ?, error = ?, output_path = ?, updated_at = ?
		WHERE id = ?
	`, string(status), errorMsg, outputPath, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*RenderJob, error) {
	var j RenderJob
	var status, createdAt, updatedAt string
	var burn int

	err := row.Scan(&j.ID, &j.ProjectID, &status, &burn, &j.CaptionStyle,
		&j.TargetWidth, &j.TargetHeight, &j.OutputPath, &j.Error, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.Status = JobStatus(status)
	j.BurnCaptions = burn == 1
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]*RenderJob, error) {
	var jobs []*RenderJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	row := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
