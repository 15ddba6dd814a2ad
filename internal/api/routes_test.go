package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

const testToken = "test-token-123"

func newTestRouter(t *testing.T) (*chi.Mux, *project.Service, project.Repository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	database, err := db.New(filepath.Join(t.TempDir(), "agent.db"), logger)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("set auth token: %v", err)
	}

	svc := project.NewService(repo, logger)
	router := NewRouter(ServerConfig{
		Service:    svc,
		Repository: repo,
		Streamer:   playback.NewStreamer(logger),
		Logger:     logger,
		StartTime:  time.Now(),
		Version:    "test",
	})
	return router, svc, repo
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func createTestProject(t *testing.T, router http.Handler) *timeline.Project {
	t.Helper()
	scenes := make([]map[string]any, 0, 3)
	for i := 0; i < 3; i++ {
		scenes = append(scenes, map[string]any{
			"id":    fmt.Sprintf("scene_%d", i),
			"start": float64(i * 10),
			"end":   float64((i + 1) * 10),
		})
	}
	rr := doRequest(t, router, http.MethodPost, "/projects", map[string]any{
		"name":        "demo",
		"source_path": "/tmp/in.mp4",
		"duration":    30.0,
		"width":       1920,
		"height":      1080,
		"fps":         30.0,
		"scenes":      scenes,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p timeline.Project
	decodeBody(t, rr, &p)
	return &p
}

func TestHealth_NoAuthRequired(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp HealthResponse
	decodeBody(t, rr, &resp)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Fatalf("health = %+v", resp)
	}
}

func TestAuth_MissingOrWrongToken(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", rr.Code)
	}
}

func TestCreateProject_Validation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodPost, "/projects", map[string]any{"name": "no source"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing source_path status = %d, want 400", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPost, "/projects", map[string]any{
		"name":        "bad scene",
		"source_path": "/tmp/in.mp4",
		"scenes":      []map[string]any{{"id": "s", "start": 5.0, "end": 5.0}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty interval status = %d, want 400", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPost, "/projects", map[string]any{
		"name":        "bad word",
		"source_path": "/tmp/in.mp4",
		"scenes": []map[string]any{{
			"id": "s", "start": 0.0, "end": 10.0,
			"transcript": []map[string]any{{"word": "um", "start": 15.0, "end": 16.0}},
		}},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("out-of-interval word status = %d, want 400", rr.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Code != "INVALID_PROJECT" {
		t.Fatalf("code = %q, want INVALID_PROJECT", resp.Code)
	}
}

func TestCreateAndGetProject(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	if created.ID == "" {
		t.Fatal("expected assigned project id")
	}
	if created.Status != timeline.StatusReady {
		t.Errorf("status = %q, want ready", created.Status)
	}

	rr := doRequest(t, router, http.MethodGet, "/projects/"+created.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}
	var got timeline.Project
	decodeBody(t, rr, &got)
	if len(got.Scenes) != 3 {
		t.Fatalf("scenes = %d, want 3", len(got.Scenes))
	}

	rr = doRequest(t, router, http.MethodGet, "/projects", nil)
	var summaries []*project.Summary
	decodeBody(t, rr, &summaries)
	if len(summaries) != 1 || summaries[0].SceneCount != 3 {
		t.Fatalf("summaries = %+v", summaries)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodGet, "/projects/no-such-id", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Code != "NOT_FOUND" {
		t.Fatalf("code = %q, want NOT_FOUND", resp.Code)
	}
}

func TestApplyEditAndUndo(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/edits", EditRequest{
		Kind:          "delete",
		TargetSceneID: "scene_1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rr.Code, rr.Body.String())
	}
	var edited timeline.Project
	decodeBody(t, rr, &edited)
	if len(edited.Scenes) != 2 {
		t.Fatalf("scenes after delete = %d, want 2", len(edited.Scenes))
	}

	rr = doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/undo", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("undo status = %d, body %s", rr.Code, rr.Body.String())
	}
	var restored timeline.Project
	decodeBody(t, rr, &restored)
	if len(restored.Scenes) != 3 {
		t.Fatalf("scenes after undo = %d, want 3", len(restored.Scenes))
	}
}

func TestApplyEdit_UnknownKind(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/edits", EditRequest{
		Kind: "explode",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Code != "UNKNOWN_EDIT_KIND" {
		t.Fatalf("code = %q, want UNKNOWN_EDIT_KIND", resp.Code)
	}
}

func TestUndo_EmptyHistory(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/undo", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	if resp.Code != "NOTHING_TO_UNDO" {
		t.Fatalf("code = %q, want NOTHING_TO_UNDO", resp.Code)
	}
}

func TestDeleteRange(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/delete-range",
		DeleteRangeRequest{Start: 3, End: 5})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p timeline.Project
	decodeBody(t, rr, &p)
	if len(p.Scenes) != 4 {
		t.Fatalf("scenes = %d, want 4", len(p.Scenes))
	}

	rr = doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/delete-range",
		DeleteRangeRequest{Start: 5, End: 3})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d, want 400", rr.Code)
	}
}

func TestAddFadeTransitions_DefaultDuration(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/add-fade-transitions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p timeline.Project
	decodeBody(t, rr, &p)
	for _, s := range p.Scenes {
		if s.TransitionIn != "fade" || s.TransitionDuration != 0.5 {
			t.Fatalf("scene %s transition = %q/%v, want fade/0.5", s.ID, s.TransitionIn, s.TransitionDuration)
		}
	}
}

func TestNarration(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/narration",
		NarrationRequest{Path: "/tmp/voice.mp3", OriginalVolume: 0.2})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p timeline.Project
	decodeBody(t, rr, &p)
	if p.Narration.Path != "/tmp/voice.mp3" {
		t.Fatalf("narration = %+v", p.Narration)
	}
	if p.Narration.Volume != 1.0 {
		t.Errorf("default narration volume = %v, want 1.0", p.Narration.Volume)
	}

	rr = doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/narration", NarrationRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing path status = %d, want 400", rr.Code)
	}
}

func TestQueueRenderAndFetchJob(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodPost, "/projects/"+created.ID+"/render",
		RenderRequest{BurnCaptions: true, CaptionStyle: "hormozi"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("render status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp RenderResponse
	decodeBody(t, rr, &resp)
	if resp.JobID == "" {
		t.Fatal("expected a job id")
	}

	rr = doRequest(t, router, http.MethodGet, "/jobs/"+resp.JobID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("job status = %d", rr.Code)
	}
	var job project.RenderJob
	decodeBody(t, rr, &job)
	if job.Status != project.JobPending || !job.BurnCaptions || job.CaptionStyle != "hormozi" {
		t.Fatalf("job = %+v", job)
	}

	rr = doRequest(t, router, http.MethodGet, "/projects/"+created.ID+"/jobs", nil)
	var jobs []*project.RenderJob
	decodeBody(t, rr, &jobs)
	if len(jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(jobs))
	}
}

func TestGetJob_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := doRequest(t, router, http.MethodGet, "/jobs/no-such-job", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestPreview(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodGet, "/projects/"+created.ID+"/preview?count=5", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	var resp PreviewResponse
	decodeBody(t, rr, &resp)
	if resp.Count != 5 || len(resp.Timestamps) != 5 {
		t.Fatalf("preview = %+v", resp)
	}

	rr = doRequest(t, router, http.MethodGet, "/projects/"+created.ID+"/preview?count=0", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("count=0 status = %d, want 400", rr.Code)
	}
}

func TestExportEDL(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodGet, "/projects/"+created.ID+"/export/edl", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "TITLE: demo") {
		t.Fatalf("edl body missing title:\n%s", rr.Body.String())
	}
}

func TestCaptionsSRT(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodGet, "/projects/"+created.ID+"/captions.srt", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/x-subrip" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestSourcePlayback_RangeRequest(t *testing.T) {
	router, svc, _ := newTestRouter(t)

	src := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(src, []byte("01234567890123456789"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := timeline.NewProject("clip", src, 20, 640, 480, 30)
	s, err := timeline.NewScene("s0", 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	p.Scenes = []*timeline.Scene{s}
	created, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/projects/"+created.ID+"/source", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=5-9")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if got := rr.Body.String(); got != "56789" {
		t.Fatalf("body = %q, want 56789", got)
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 5-9/20" {
		t.Fatalf("content range = %q", got)
	}
}

func TestDeleteProject(t *testing.T) {
	router, _, _ := newTestRouter(t)
	created := createTestProject(t, router)

	rr := doRequest(t, router, http.MethodDelete, "/projects/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rr.Code)
	}

	rr = doRequest(t, router, http.MethodGet, "/projects/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rr.Code)
	}
}
