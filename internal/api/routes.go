package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/preview"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Post("/projects/{id}/edits", applyEditHandler(cfg))
		r.Post("/projects/{id}/undo", undoHandler(cfg))
		r.Post("/projects/{id}/delete-range", deleteRangeHandler(cfg))
		r.Post("/projects/{id}/delete-filler-words", deleteFillerWordsHandler(cfg))
		r.Post("/projects/{id}/delete-dead-air", deleteDeadAirHandler(cfg))
		r.Post("/projects/{id}/add-fade-transitions", addFadeTransitionsHandler(cfg))
		r.Post("/projects/{id}/narration", narrationHandler(cfg))

		r.Post("/projects/{id}/render", queueRenderHandler(cfg))
		r.Get("/projects/{id}/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))

		r.Get("/projects/{id}/preview", previewHandler(cfg))
		r.Get("/projects/{id}/export/edl", exportEDLHandler(cfg))
		r.Get("/projects/{id}/captions.srt", captionsSRTHandler(cfg))
		r.Get("/projects/{id}/source", sourceHandler(cfg))
	})

	return r
}

// writeProjectError maps service errors onto HTTP responses.
func writeProjectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
	case errors.Is(err, timeline.ErrNothingToUndo):
		WriteError(w, http.StatusBadRequest, "nothing to undo", "NOTHING_TO_UNDO")
	case errors.Is(err, timeline.ErrUnknownEditKind):
		WriteError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_EDIT_KIND")
	case errors.Is(err, project.ErrInvalidProject):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_PROJECT")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := cfg.Service.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		state := "idle"
		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}
		for _, s := range summaries {
			if s.Status == timeline.StatusRendering {
				state = "rendering"
			}
		}

		resp := StatusResponse{State: state, Projects: len(summaries)}
		if cfg.Doctor != nil {
			caps := cfg.Doctor.Get(r.Context())
			resp.Capabilities = &Capabilities{
				FFmpeg:      caps.FFmpegAvailable,
				FFprobe:     caps.FFprobeAvailable,
				Drawtext:    caps.DrawtextSupported,
				LastProbeAt: caps.ProbedAt.Format(time.RFC3339),
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := cfg.Service.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		if summaries == nil {
			summaries = []*project.Summary{}
		}
		WriteJSON(w, http.StatusOK, summaries)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SourcePath == "" {
			WriteError(w, http.StatusBadRequest, "source_path is required", "BAD_REQUEST")
			return
		}
		for _, s := range req.Scenes {
			if s.End <= s.Start {
				WriteError(w, http.StatusBadRequest, "scene intervals must have end > start", "BAD_REQUEST")
				return
			}
		}

		p := timeline.NewProject(req.Name, req.SourcePath, req.Duration, req.Width, req.Height, req.FPS)
		p.Scenes = req.Scenes

		created, err := cfg.Service.Create(r.Context(), p)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeProjectError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func applyEditHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EditRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		// Parse rejects unknown kinds and malformed params before the
		// project is touched.
		e, err := timeline.ParseEdit(req.Kind, req.TargetSceneID, req.Params)
		if err != nil {
			writeProjectError(w, err)
			return
		}

		p, err := cfg.Service.ApplyEdit(r.Context(), chi.URLParam(r, "id"), e)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Service.Undo(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeleteRangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.End < req.Start {
			WriteError(w, http.StatusBadRequest, "end must not precede start", "BAD_REQUEST")
			return
		}

		p, err := cfg.Service.DeleteRange(r.Context(), chi.URLParam(r, "id"), req.Start, req.End)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteFillerWordsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, removed, err := cfg.Service.DeleteFillerWords(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed, Project: p})
	}
}

func deleteDeadAirHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, removed, err := cfg.Service.DeleteDeadAir(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, RemovedResponse{Removed: removed, Project: p})
	}
}

func addFadeTransitionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := FadeRequest{Duration: 0.5}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		if req.Duration <= 0 {
			req.Duration = 0.5
		}

		p, err := cfg.Service.AddFadeTransitions(r.Context(), chi.URLParam(r, "id"), req.Duration)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func narrationHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req NarrationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		p, err := cfg.Service.AttachNarration(r.Context(), chi.URLParam(r, "id"), timeline.Narration{
			Path:           req.Path,
			Text:           req.Text,
			Voice:          req.Voice,
			Volume:         req.Volume,
			OriginalVolume: req.OriginalVolume,
		})
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func queueRenderHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}

		job, err := cfg.Service.QueueRender(r.Context(), chi.URLParam(r, "id"),
			req.BurnCaptions, req.CaptionStyle, req.Width, req.Height)
		if err != nil {
			writeProjectError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, RenderResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Service.Jobs(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}
		if jobs == nil {
			jobs = []*project.RenderJob{}
		}
		WriteJSON(w, http.StatusOK, jobs)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Service.Job(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to load job", "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := 10
		if raw := r.URL.Query().Get("count"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "count must be a positive integer", "BAD_REQUEST")
				return
			}
			count = n
		}

		p, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}

		timestamps := preview.Sample(p, count)
		if timestamps == nil {
			timestamps = []float64{}
		}
		WriteJSON(w, http.StatusOK, PreviewResponse{Count: count, Timestamps: timestamps})
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+p.ID+`.edl"`)
		w.Write([]byte(export.GenerateEDL(p)))
	}
}

func captionsSRTHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/x-subrip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+p.ID+`.srt"`)
		w.Write([]byte(render.GenerateSRT(p)))
	}
}

func sourceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Service.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeProjectError(w, err)
			return
		}
		if err := cfg.Streamer.ServeVideo(w, r, p.SourcePath); err != nil {
			cfg.Logger.Error("source streaming failed", "project_id", p.ID, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to stream source", "INTERNAL_ERROR")
		}
	}
}
