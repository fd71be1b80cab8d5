package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/AlchemyApps/mindScript-sub006/internal/handler"
	"github.com/AlchemyApps/mindScript-sub006/internal/middleware"
	"github.com/AlchemyApps/mindScript-sub006/internal/model"
	"github.com/AlchemyApps/mindScript-sub006/internal/queue"
	"github.com/AlchemyApps/mindScript-sub006/internal/service"
	"github.com/AlchemyApps/mindScript-sub006/internal/synth"
	"github.com/AlchemyApps/mindScript-sub006/internal/worker"
)

const testUserID = "test-user-123"

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *queue.Store
}

// stubRenderer completes every job instantly so worker endpoint tests do not
// need real speech providers or storage.
type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, job *model.RenderJob, progress synth.ProgressFunc) (*model.RenderResult, error) {
	if progress != nil {
		progress(50, "mixing")
	}
	return &model.RenderResult{
		ArtifactURL:     "https://cdn.test/renders/" + job.TrackID + "/" + job.ID + ".wav",
		PreviewURL:      "https://cdn.test/renders/" + job.TrackID + "/" + job.ID + ".preview.wav",
		DurationSeconds: job.Payload.Output.TargetDurationSeconds,
		SizeBytes:       1024,
		Format:          model.FormatWAV,
	}, nil
}

// setupApp wires a Fiber app like main.go does, backed by miniredis and a
// stub renderer instead of real providers.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	validate := validator.New()

	store := queue.NewStore(redisClient, 10*time.Minute)
	renderService := service.NewRenderService(store)
	orchestrator := worker.NewOrchestrator(store, stubRenderer{}, nil, 5)

	renderHandler := handler.NewRenderHandler(renderService, validate)
	workerHandler := handler.NewWorkerHandler(orchestrator, store, nil)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024,
	})

	app.Get("/health", workerHandler.Health)

	api := app.Group("/api", middleware.GatewayAuthMiddleware())

	render := api.Group("/render")
	render.Post("/start", rateLimiter.RenderLimit(10000), renderHandler.Start)
	render.Get("/status/:jobId", renderHandler.Status)
	render.Get("/result/:jobId", renderHandler.Result)

	app.Post("/internal/worker/process", workerHandler.Process)

	return &testApp{app: app, store: store}
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs a request carrying the gateway identity header.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	return doRequest(app, method, path, body, map[string]string{
		"X-User-Id": testUserID,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
