package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reelcut/reelcut-agent/internal/edit"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// ErrProjectNotFound is returned for operations on unknown project ids.
var ErrProjectNotFound = errors.New("project not found")

// ErrInvalidProject is returned when a registration payload violates
// scene or transcript invariants.
var ErrInvalidProject = errors.New("invalid project")

// Service mediates all project access. Edit projects are cached live
// so the in-memory undo ring survives across requests; the repository
// is the durable copy of scenes and edits. Each project has one lock,
// making every mutation single-writer.
type Service struct {
	repo   Repository
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*liveProject
}

type liveProject struct {
	mu      sync.Mutex
	project *timeline.Project
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		live:   make(map[string]*liveProject),
	}
}

// acquire returns the live entry for id with its lock held. The caller
// must call release. A missing project returns ErrProjectNotFound.
func (s *Service) acquire(ctx context.Context, id string) (*liveProject, error) {
	s.mu.Lock()
	entry, ok := s.live[id]
	if !ok {
		entry = &liveProject{}
		s.live[id] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	if entry.project == nil {
		p, err := s.repo.GetProject(ctx, id)
		if err != nil {
			entry.mu.Unlock()
			return nil, err
		}
		if p == nil {
			entry.mu.Unlock()
			s.evict(id)
			return nil, ErrProjectNotFound
		}
		entry.project = p
	}
	return entry, nil
}

func (s *Service) evict(id string) {
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
}

// mutate runs fn on the live project under its lock and persists the
// result. Callers get a detached copy; the live project never leaves
// its lock.
func (s *Service) mutate(ctx context.Context, id string, fn func(p *timeline.Project) error) (*timeline.Project, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()

	if err := fn(entry.project); err != nil {
		return nil, err
	}
	if err := s.repo.SaveProject(ctx, entry.project); err != nil {
		return nil, fmt.Errorf("persist project: %w", err)
	}
	return entry.project.Clone(), nil
}

// Create registers an analyzed project. Scene detection happens
// outside the agent; a project arriving with scenes is ready to edit.
func (s *Service) Create(ctx context.Context, p *timeline.Project) (*timeline.Project, error) {
	if p.ID == "" {
		p.ID = timeline.NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" || p.Status == timeline.StatusCreated {
		if len(p.Scenes) > 0 {
			p.Status = timeline.StatusReady
		} else {
			p.Status = timeline.StatusCreated
		}
	}
	for _, sc := range p.Scenes {
		if sc.End <= sc.Start {
			return nil, fmt.Errorf("%w: scene %s: end %.3f not greater than start %.3f",
				ErrInvalidProject, sc.ID, sc.End, sc.Start)
		}
		if sc.Speed == 0 {
			sc.Speed = 1.0
		} else {
			sc.Speed = timeline.ClampSpeed(sc.Speed)
		}
		for _, w := range sc.Transcript {
			if w.Start < sc.Start || w.End > sc.End {
				return nil, fmt.Errorf("%w: scene %s: word %q [%.3f, %.3f] outside interval [%.3f, %.3f)",
					ErrInvalidProject, sc.ID, w.Text, w.Start, w.End, sc.Start, sc.End)
			}
		}
	}

	if err := s.repo.SaveProject(ctx, p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.live[p.ID] = &liveProject{project: p}
	s.mu.Unlock()

	s.logger.Info("project created",
		"project_id", p.ID, "name", p.Name, "scenes", len(p.Scenes))
	return p.Clone(), nil
}

// Get returns a detached deep copy of the live project. Readers,
// including the render runner, work from the copy so they never race
// with a concurrent edit.
func (s *Service) Get(ctx context.Context, id string) (*timeline.Project, error) {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer entry.mu.Unlock()
	return entry.project.Clone(), nil
}

func (s *Service) List(ctx context.Context) ([]*Summary, error) {
	return s.repo.ListProjects(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	entry, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	entry.mu.Unlock()

	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.evict(id)
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// ApplyEdit runs one edit through the state machine.
func (s *Service) ApplyEdit(ctx context.Context, id string, e timeline.Edit) (*timeline.Project, error) {
	return s.mutate(ctx, id, func(p *timeline.Project) error {
		return edit.Apply(p, e)
	})
}

// Undo reverts the most recent edit.
func (s *Service) Undo(ctx context.Context, id string) (*timeline.Project, error) {
	return s.mutate(ctx, id, func(p *timeline.Project) error {
		return edit.Undo(p)
	})
}

// DeleteRange removes a source-time interval across the timeline.
func (s *Service) DeleteRange(ctx context.Context, id string, start, end float64) (*timeline.Project, error) {
	return s.mutate(ctx, id, func(p *timeline.Project) error {
		return edit.DeleteRange(p, start, end)
	})
}

// DeleteFillerWords removes every flagged filler word and its audio.
// Returns the number of words removed.
func (s *Service) DeleteFillerWords(ctx context.Context, id string) (*timeline.Project, int, error) {
	var removed int
	p, err := s.mutate(ctx, id, func(p *timeline.Project) error {
		for _, w := range p.AllWords() {
			if w.Filler {
				removed++
			}
		}
		return edit.DeleteAllFillerWords(p)
	})
	if err != nil {
		return nil, 0, err
	}
	return p, removed, nil
}

// DeleteDeadAir removes scenes flagged as dead air. Returns the number
// of scenes removed.
func (s *Service) DeleteDeadAir(ctx context.Context, id string) (*timeline.Project, int, error) {
	var removed int
	p, err := s.mutate(ctx, id, func(p *timeline.Project) error {
		for _, sc := range p.Scenes {
			if sc.IsDeadAir {
				removed++
			}
		}
		return edit.DeleteDeadAir(p)
	})
	if err != nil {
		return nil, 0, err
	}
	return p, removed, nil
}

// AddFadeTransitions puts a fade on every scene boundary.
func (s *Service) AddFadeTransitions(ctx context.Context, id string, duration float64) (*timeline.Project, error) {
	return s.mutate(ctx, id, func(p *timeline.Project) error {
		return edit.AddFadeTransitions(p, duration)
	})
}

// AttachNarration stores narration metadata on the project. The track
// itself is produced externally.
func (s *Service) AttachNarration(ctx context.Context, id string, n timeline.Narration) (*timeline.Project, error) {
	if n.Volume <= 0 {
		n.Volume = 1.0
	}
	return s.mutate(ctx, id, func(p *timeline.Project) error {
		p.Narration = n
		return nil
	})
}

// SetStatus updates the project lifecycle status.
func (s *Service) SetStatus(ctx context.Context, id string, status timeline.Status, errorMsg string) error {
	_, err := s.mutate(ctx, id, func(p *timeline.Project) error {
		p.Status = status
		p.Error = errorMsg
		return nil
	})
	return err
}

// QueueRender creates a pending render job for the runner to pick up.
func (s *Service) QueueRender(ctx context.Context, id string, burnCaptions bool, captionStyle string, width, height int) (*RenderJob, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := &RenderJob{
		ID:           NewJobID(),
		ProjectID:    id,
		Status:       JobPending,
		BurnCaptions: burnCaptions,
		CaptionStyle: captionStyle,
		TargetWidth:  width,
		TargetHeight: height,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("render job queued", "job_id", job.ID, "project_id", id)
	return job, nil
}

// Job returns a render job by id, nil when unknown.
func (s *Service) Job(ctx context.Context, id string) (*RenderJob, error) {
	return s.repo.GetJob(ctx, id)
}

// Jobs lists a project's render jobs, newest first.
func (s *Service) Jobs(ctx context.Context, projectID string) ([]*RenderJob, error) {
	return s.repo.ListJobs(ctx, projectID)
}
