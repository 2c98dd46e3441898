package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"uniqbot/internal/conversation"
	"uniqbot/internal/dispatch"
	"uniqbot/internal/domain"
	"uniqbot/internal/http/handlers"
	"uniqbot/internal/http/httpapi"
	"uniqbot/internal/infra"
	"uniqbot/internal/storage"
	"uniqbot/internal/uniquify"
)

// memJobStore is an in-memory stand-in for the Postgres job repository.
type memJobStore struct {
	mu    sync.Mutex
	order []string
	jobs  map[string]*domain.GenerationJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]*domain.GenerationJob{}}
}

func (s *memJobStore) Insert(_ context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	cp.Status = domain.JobStatusPending
	cp.CreatedAt = time.Now()
	s.jobs[job.ID] = &cp
	s.order = append(s.order, job.ID)
	return nil
}

func (s *memJobStore) Claim(_ context.Context, lease time.Duration) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, id := range s.order {
		j := s.jobs[id]
		if j.Status != domain.JobStatusPending &&
			!(j.Status == domain.JobStatusRunning && j.LeaseExpiresAt.Before(now)) {
			continue
		}
		j.Status = domain.JobStatusRunning
		j.AttemptCount++
		j.LeaseExpiresAt = now.Add(lease)
		cp := *j
		return &cp, nil
	}
	return nil, domain.ErrNoJob
}

func (s *memJobStore) Complete(_ context.Context, jobID string, outputPaths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusRunning {
		return domain.ErrNotFound
	}
	j.Status = domain.JobStatusCompleted
	j.OutputPaths = outputPaths
	return nil
}

func (s *memJobStore) Fail(_ context.Context, jobID string, category domain.ErrorCategory, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.Status != domain.JobStatusRunning {
		return domain.ErrNotFound
	}
	j.Status = domain.JobStatusFailed
	j.ErrorCategory = category
	j.ErrorMessage = message
	return nil
}

func (s *memJobStore) Get(_ context.Context, jobID string) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

type testEnv struct {
	server  *httptest.Server
	store   *memJobStore
	blobs   *storage.FileStore
	presets domain.Preset
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	blobs, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	cfg := &infra.Config{
		AppEnv:         "test",
		StoragePath:    blobs.BasePath(),
		MaxPhotoSizeMB: 20,
		SessionTTL:     time.Minute,
		DefaultLocale:  "en",
	}

	store := newMemJobStore()
	dispatcher := dispatch.NewDispatcher(store, nil, zerolog.Nop())
	machine := conversation.NewMachine(dispatcher, 1, cfg.MaxPhotoSizeBytes(), zerolog.Nop())
	sessions := conversation.NewManager(machine, cfg.SessionTTL, zerolog.Nop())

	app := handlers.NewApp(sessions, dispatcher, blobs, cfg, zerolog.Nop())
	server := httptest.NewServer(httpapi.NewRouter(app))
	t.Cleanup(server.Close)

	return &testEnv{
		server:  server,
		store:   store,
		blobs:   blobs,
		presets: uniquify.DefaultPreset(),
	}
}

func (e *testEnv) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func (e *testEnv) uploadPNG(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.New(w, h, color.NRGBA{R: 90, G: 120, B: 150, A: 255})); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	resp, err := http.Post(e.server.URL+"/v1/assets", "image/png", &buf)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %v", resp.StatusCode, body)
	}
	ref, _ := body["asset_ref"].(string)
	if ref == "" {
		t.Fatalf("upload returned no asset_ref: %v", body)
	}
	return ref
}

func (e *testEnv) openSession(t *testing.T) string {
	t.Helper()
	resp, body := e.post(t, "/v1/sessions", map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open session status = %d, body = %v", resp.StatusCode, body)
	}
	if body["state"] != string(conversation.StateAwaitPhoto) {
		t.Fatalf("fresh session state = %v", body["state"])
	}
	id, _ := body["session_id"].(string)
	return id
}

func (e *testEnv) input(t *testing.T, sessionID string, in map[string]any) map[string]any {
	t.Helper()
	resp, body := e.post(t, "/v1/sessions/"+sessionID+"/input", in)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("input %v status = %d, body = %v", in, resp.StatusCode, body)
	}
	return body
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("GET /v1/healthz: %v", err)
	}
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}
}

func TestConversationToCompletedDownload(t *testing.T) {
	env := newTestEnv(t)
	assetRef := env.uploadPNG(t, 64, 48)
	sessionID := env.openSession(t)

	steps := []struct {
		in        map[string]any
		wantState conversation.State
	}{
		{map[string]any{"asset_ref": assetRef}, conversation.StateAwaitCopies},
		{map[string]any{"text": "2"}, conversation.StateAwaitFormat},
		{map[string]any{"text": "png"}, conversation.StateAwaitFlip},
		{map[string]any{"text": "no"}, conversation.StateAwaitTextChoice},
		{map[string]any{"text": "no"}, conversation.StateAwaitOverlayChoice},
	}
	for _, step := range steps {
		body := env.input(t, sessionID, step.in)
		if body["state"] != string(step.wantState) {
			t.Fatalf("input %v -> state %v, want %s", step.in, body["state"], step.wantState)
		}
	}

	final := env.input(t, sessionID, map[string]any{"text": "no"})
	if final["state"] != string(conversation.StateAwaitingResult) {
		t.Fatalf("submit state = %v", final["state"])
	}
	jobID, _ := final["job_id"].(string)
	if jobID == "" {
		t.Fatalf("submit returned no job_id: %v", final)
	}

	// Queued but not yet executed.
	resp, body := getJSON(t, env.server.URL+"/v1/jobs/"+jobID)
	if resp.StatusCode != http.StatusOK || body["status"] != string(domain.JobStatusPending) {
		t.Fatalf("job before work = %d %v", resp.StatusCode, body)
	}

	// Download before completion is refused.
	dl, err := http.Get(env.server.URL + "/v1/jobs/" + jobID + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	dl.Body.Close()
	if dl.StatusCode != http.StatusConflict {
		t.Fatalf("premature download status = %d, want 409", dl.StatusCode)
	}

	runWorkerOnce(t, env)

	resp, body = getJSON(t, env.server.URL+"/v1/jobs/"+jobID)
	if body["status"] != string(domain.JobStatusCompleted) {
		t.Fatalf("job after work = %v", body)
	}
	paths, _ := body["output_paths"].([]any)
	if len(paths) != 2 {
		t.Fatalf("output_paths = %v, want 2", body["output_paths"])
	}

	dl, err = http.Get(env.server.URL + "/v1/jobs/" + jobID + "/download")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer dl.Body.Close()
	if dl.StatusCode != http.StatusOK || dl.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("download = %d %s", dl.StatusCode, dl.Header.Get("Content-Type"))
	}
	var archive bytes.Buffer
	if _, err := archive.ReadFrom(dl.Body); err != nil {
		t.Fatalf("read archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive.Bytes()), int64(archive.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive holds %d files, want 2", len(zr.File))
	}
}

func TestInvalidInputKeepsStateOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	assetRef := env.uploadPNG(t, 32, 32)
	sessionID := env.openSession(t)
	env.input(t, sessionID, map[string]any{"asset_ref": assetRef})

	for _, bad := range []string{"0", "11", "lots"} {
		body := env.input(t, sessionID, map[string]any{"text": bad})
		if body["state"] != string(conversation.StateAwaitCopies) {
			t.Fatalf("invalid copies %q moved state to %v", bad, body["state"])
		}
		prompt, _ := body["prompt"].(string)
		if prompt == "" {
			t.Fatalf("invalid copies %q produced empty prompt", bad)
		}
	}

	// A valid answer still proceeds after any number of rejections.
	body := env.input(t, sessionID, map[string]any{"text": "3"})
	if body["state"] != string(conversation.StateAwaitFormat) {
		t.Fatalf("valid copies after rejects -> %v", body["state"])
	}
}

func TestSessionCancelAndUnknowns(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t)

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/v1/sessions/"+sessionID, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE session: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel status = %d", resp.StatusCode)
	}

	// Input after cancel hits an unknown session.
	postResp, body := env.post(t, "/v1/sessions/"+sessionID+"/input", map[string]any{"text": "5"})
	if postResp.StatusCode != http.StatusNotFound {
		t.Fatalf("input after cancel = %d %v", postResp.StatusCode, body)
	}

	resp, err = http.Get(env.server.URL + "/v1/jobs/no-such-job")
	if err != nil {
		t.Fatalf("GET job: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown job status = %d", resp.StatusCode)
	}
}

func TestAssetUploadRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.server.URL+"/v1/assets", "image/png", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty upload status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionInputUnknownAssetRef(t *testing.T) {
	env := newTestEnv(t)
	sessionID := env.openSession(t)

	resp, body := env.post(t, "/v1/sessions/"+sessionID+"/input", map[string]any{"asset_ref": "uploads/ghost.png"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("ghost asset input = %d %v", resp.StatusCode, body)
	}
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp, decodeBody(t, resp)
}

func runWorkerOnce(t *testing.T, env *testEnv) {
	t.Helper()
	engine := uniquify.NewEngine(env.blobs, zerolog.Nop(), uniquify.WithRandSeed(11))
	w := dispatch.NewWorker(
		dispatch.WorkerConfig{Lease: time.Minute, MaxAttempts: 3, PollInterval: 10 * time.Millisecond},
		env.store,
		staticPresets{preset: env.presets},
		engine,
		env.blobs,
		uniquify.ArtifactPrefix,
		nil, nil, zerolog.Nop(),
	)
	if !w.Drain(context.Background()) {
		t.Fatal("worker found no job to run")
	}
}

type staticPresets struct {
	preset domain.Preset
}

func (p staticPresets) Get(_ context.Context, id int) (domain.Preset, error) {
	preset := p.preset
	preset.ID = id
	return preset, nil
}
