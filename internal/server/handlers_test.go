package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/embedding"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/indexer"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/search"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/storage"
)

type testEnv struct {
	server   *Server
	engine   *search.Engine
	storage  *storage.SQLiteStorage
	provider *embedding.MockProvider
	cfg      *config.Config
}

func newTestEnv(t *testing.T, reindex ReindexFunc) *testEnv {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Chunking.ChunkSize = 60
	cfg.Chunking.ChunkOverlap = 10
	cfg.Storage.IndexDir = filepath.Join(t.TempDir(), "index")
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "docs.db")

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	provider := embedding.NewMockProvider(8)
	engine := search.NewEngine(provider, cfg)
	t.Cleanup(func() { engine.Close() })

	return &testEnv{
		server:   NewServer(engine, store, reindex, cfg, zap.NewNop()),
		engine:   engine,
		storage:  store,
		provider: provider,
		cfg:      cfg,
	}
}

func (e *testEnv) installCorpus(t *testing.T, docs []*models.Document) {
	t.Helper()
	ctx := context.Background()
	for _, doc := range docs {
		if err := e.storage.UpsertDocument(ctx, doc); err != nil {
			t.Fatal(err)
		}
	}
	b, err := indexer.NewBuilder(e.provider, e.cfg)
	if err != nil {
		t.Fatal(err)
	}
	art, err := b.Build(ctx, docs)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.engine.Install(ctx, art); err != nil {
		t.Fatal(err)
	}
}

func serverDocs() []*models.Document {
	return []*models.Document{
		{
			Title:    "Blue Shirt",
			Content:  "A soft blue cotton shirt. Machine washable.",
			URL:      "https://shop.example/products/blue-shirt",
			PageType: models.PageTypeProduct,
		},
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.installCorpus(t, serverDocs())
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "blue shirt", TopK: 3})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Query != "blue shirt" {
		t.Errorf("echoed query = %q", resp.Query)
	}
	if len(resp.Results) == 0 {
		t.Error("expected results")
	}
}

func TestHandleSearch_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	env.installCorpus(t, serverDocs())

	rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/search", models.SearchQuery{Query: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "Query required" {
		t.Errorf("error = %q, want Query required", body["error"])
	}
}

func TestHandleSearch_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleSearch_NotReady(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/search", models.SearchQuery{Query: "anything"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 before an index is installed", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	env.installCorpus(t, serverDocs())

	rec := doJSON(t, env.server.Router(), http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["documents"].(float64) != 1 {
		t.Errorf("documents = %v", body["documents"])
	}
	if body["ready"] != true {
		t.Error("ready should be true")
	}
	idx, ok := body["index"].(map[string]interface{})
	if !ok {
		t.Fatal("missing index section")
	}
	if idx["model"] != env.provider.ModelName() {
		t.Errorf("model = %v", idx["model"])
	}
}

func TestHandleReindex(t *testing.T) {
	calls := 0
	env := newTestEnv(t, func(ctx context.Context) error {
		calls++
		return nil
	})
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/reindex", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if calls != 1 {
		t.Errorf("reindex called %d times", calls)
	}
}

func TestHandleReindex_Failure(t *testing.T) {
	env := newTestEnv(t, func(ctx context.Context) error {
		return errors.New("corpus unreadable")
	})
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/reindex", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleReindex_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/reindex", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", rec.Code)
	}
}

func TestDocumentEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	doc := models.Document{
		Title:    "FAQ",
		Content:  "Answers to common questions.",
		URL:      "https://shop.example/pages/faq",
		PageType: models.PageTypeInfo,
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/documents", doc)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upsert status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&created)
	if created["id"] == "" {
		t.Fatal("expected assigned id")
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+created["id"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got models.Document
	_ = json.NewDecoder(rec.Body).Decode(&got)
	if got.Title != "FAQ" {
		t.Errorf("got %+v", got)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+created["id"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+created["id"], nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestHandleUpsertDocument_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	for i, doc := range []models.Document{
		{Title: "no url", Content: "c"},
		{Title: "no content", URL: "https://a.example/x"},
	} {
		rec := doJSON(t, env.server.Router(), http.MethodPost, "/api/v1/documents", doc)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := doJSON(t, env.server.Router(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if want := fmt.Sprintf("%q:%q", "status", "ok"); !bytes.Contains(rec.Body.Bytes(), []byte(want)) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
