//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fitstack/coachd/internal/api/handlers"
	"github.com/fitstack/coachd/internal/config"
	"github.com/fitstack/coachd/internal/repository"
	"github.com/fitstack/coachd/internal/server"
	"github.com/fitstack/coachd/internal/service"
	"github.com/fitstack/coachd/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDimensions = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	Scheduler    *service.Scheduler
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv starts PostgreSQL, runs migrations, and brings up the full
// HTTP stack with a deterministic in-process embedding client.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, scheduler, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		Scheduler:    scheduler,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// Exec runs raw SQL against the test database, for seeding context sources
// and pipeline configs that have no HTTP surface.
func (e *E2ETestEnv) Exec(sql string, args ...interface{}) {
	if _, err := e.Pool.Exec(e.Ctx, sql, args...); err != nil {
		e.T.Fatalf("exec failed: %v\n%s", err, sql)
	}
}

// fakeEmbeddingClient produces deterministic unit-ish vectors. All vectors
// share a dominant first component so cosine similarity between any query
// and any stored chunk clears the semantic threshold.
type fakeEmbeddingClient struct{}

func (c *fakeEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDimensions)
	vec[0] = 1.0
	hash := sha256.Sum256([]byte(text))
	for i := 0; i < 8; i++ {
		vec[i+1] = float32(hash[i]) / 255.0 * 0.05
	}
	return vec, nil
}

// startServer wires the full service stack the way serve does, with the
// fake embedding client in place of OpenAI.
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, *service.Scheduler, func()) {
	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	pipelineConfigRepo := repository.NewPipelineConfigRepository(pool)
	pipelineRunRepo := repository.NewPipelineRunRepository(pool)
	traceRepo := repository.NewTraceRepository(pool)
	personaRepo := repository.NewPersonaRepository(pool)
	memoryRepo := repository.NewMemoryRepository(pool)
	dailyRepo := repository.NewDailySummaryRepository(pool)
	conversationRepo := repository.NewConversationSummaryRepository(pool)

	embeddingClient := &fakeEmbeddingClient{}
	uuidGen := &service.DefaultUUIDGenerator{}
	debug := config.DebugConfig{}

	batchRunner := service.NewBatchRunner(embeddingJobRepo, knowledgeRepo, chunkRepo, embeddingClient, uuidGen)
	searchSvc := service.NewSearchService(chunkRepo, embeddingClient, traceRepo, "head-coach", debug)
	orchestrator := service.NewOrchestrator(personaRepo, memoryRepo, dailyRepo, conversationRepo, searchSvc, traceRepo, debug)
	ingestSvc := service.NewKnowledgeIngestService(repository.NewTxRunner(pool))
	catalogSvc := service.NewKnowledgeCatalogService(knowledgeRepo, ingestSvc)
	scheduler := service.NewScheduler(pipelineConfigRepo, pipelineRunRepo)

	cfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(catalogSvc),
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		ContextHandler:   handlers.NewContextHandler(orchestrator),
		JobsHandler:      handlers.NewJobsHandler(batchRunner),
		PipelineHandler:  handlers.NewPipelineHandler(scheduler),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, scheduler, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
