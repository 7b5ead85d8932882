package fiber_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	httpadapter "chart-engine-service/internal/charts/adapters/http/fiber"
	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/usecase"
)

// Fake usecases implementing the interfaces the handler depends on.
type fakeGetChartUseCase struct {
	ExecuteFn func(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error)
	lastInput usecase.GetChartInput
	called    bool
}

func (f *fakeGetChartUseCase) Execute(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error) {
	f.called = true
	f.lastInput = in
	if f.ExecuteFn != nil {
		return f.ExecuteFn(ctx, in)
	}
	return &usecase.GetChartOutput{Chart: in.Chart, Span: domain.Span(in.Span), Series: domain.Series{}}, nil
}

type fakeResyncUseCase struct {
	ExecuteFn func(ctx context.Context, names ...string) (*usecase.ResyncOutput, error)
	lastNames []string
}

func (f *fakeResyncUseCase) Execute(ctx context.Context, names ...string) (*usecase.ResyncOutput, error) {
	f.lastNames = names
	if f.ExecuteFn != nil {
		return f.ExecuteFn(ctx, names...)
	}
	return &usecase.ResyncOutput{Resynced: names, Failed: map[string]string{}}, nil
}

func setupApp(t *testing.T, get httpadapter.GetChartUseCase, resync httpadapter.ResyncChartsUseCase) *fiber.App {
	t.Helper()
	app := fiber.New()
	h := httpadapter.NewChartHandler(get, resync)
	app.Get("/charts/:chart", h.GetChart)
	app.Post("/admin/charts/resync", h.Resync)
	return app
}

func readBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode body %s: %v", b, err)
	}
}

// ------------------------------------------------------------
// GET /charts/:chart
// ------------------------------------------------------------

func TestGetChart_Success(t *testing.T) {
	uc := &fakeGetChartUseCase{
		ExecuteFn: func(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error) {
			return &usecase.GetChartOutput{
				Chart:  in.Chart,
				Span:   domain.SpanHour,
				Series: domain.Series{"upv.user": {0, 2, 1}},
			}, nil
		},
	}
	app := setupApp(t, uc, &fakeResyncUseCase{})

	params := url.Values{}
	params.Set("span", "hour")
	params.Set("limit", "3")
	params.Set("offset", "1792000000")
	params.Set("group", "u1")
	req := httptest.NewRequest(http.MethodGet, "/charts/per-user-pv?"+params.Encode(), nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	want := usecase.GetChartInput{Chart: "per-user-pv", Span: "hour", Limit: 3, Offset: 1792000000, Group: "u1"}
	if uc.lastInput != want {
		t.Fatalf("unexpected input: %+v", uc.lastInput)
	}

	var body httpadapter.ChartResponse
	readBody(t, resp, &body)
	if body.Chart != "per-user-pv" || body.Span != "hour" || len(body.Series["upv.user"]) != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetChart_Defaults(t *testing.T) {
	uc := &fakeGetChartUseCase{}
	app := setupApp(t, uc, &fakeResyncUseCase{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/charts/users", nil))
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if uc.lastInput.Span != "day" || uc.lastInput.Limit != usecase.DefaultLimit || uc.lastInput.Offset != 0 {
		t.Fatalf("unexpected defaults: %+v", uc.lastInput)
	}
}

func TestGetChart_InvalidQueryParam(t *testing.T) {
	uc := &fakeGetChartUseCase{
		ExecuteFn: func(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error) {
			t.Fatalf("usecase should not be called on invalid query params")
			return nil, nil
		},
	}
	app := setupApp(t, uc, &fakeResyncUseCase{})

	for _, q := range []string{"limit=abc", "offset=yesterday"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/charts/users?"+q, nil))
		if err != nil {
			t.Fatalf("app.Test error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected status 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestGetChart_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown chart", usecase.ErrUnknownChart, http.StatusNotFound},
		{"invalid span", usecase.ErrInvalidSpan, http.StatusBadRequest},
		{"invalid limit", usecase.ErrInvalidLimit, http.StatusBadRequest},
		{"invalid group", usecase.ErrInvalidGroup, http.StatusBadRequest},
		{"storage", domain.NewStorageError("range buckets", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeGetChartUseCase{
				ExecuteFn: func(ctx context.Context, in usecase.GetChartInput) (*usecase.GetChartOutput, error) {
					return nil, tt.err
				},
			}
			app := setupApp(t, uc, &fakeResyncUseCase{})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/charts/users", nil))
			if err != nil {
				t.Fatalf("app.Test error: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

// ------------------------------------------------------------
// POST /admin/charts/resync
// ------------------------------------------------------------

func postResync(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/charts/resync", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func TestResync_Success(t *testing.T) {
	resync := &fakeResyncUseCase{
		ExecuteFn: func(ctx context.Context, names ...string) (*usecase.ResyncOutput, error) {
			return &usecase.ResyncOutput{
				Resynced: []string{"users"},
				Failed:   map[string]string{"notes": "source down"},
			}, nil
		},
	}
	app := setupApp(t, &fakeGetChartUseCase{}, resync)

	resp := postResync(t, app, `{"charts":["users","notes"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if len(resync.lastNames) != 2 || resync.lastNames[0] != "users" {
		t.Fatalf("unexpected names: %v", resync.lastNames)
	}

	var body httpadapter.ResyncResponse
	readBody(t, resp, &body)
	if len(body.Resynced) != 1 || body.Failed["notes"] != "source down" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestResync_EmptyBodyMeansAll(t *testing.T) {
	resync := &fakeResyncUseCase{}
	app := setupApp(t, &fakeGetChartUseCase{}, resync)

	resp := postResync(t, app, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if len(resync.lastNames) != 0 {
		t.Fatalf("expected no names, got %v", resync.lastNames)
	}
}

func TestResync_InvalidJSON(t *testing.T) {
	app := setupApp(t, &fakeGetChartUseCase{}, &fakeResyncUseCase{})

	resp := postResync(t, app, `{"charts":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestResync_UnknownChart(t *testing.T) {
	resync := &fakeResyncUseCase{
		ExecuteFn: func(ctx context.Context, names ...string) (*usecase.ResyncOutput, error) {
			return nil, usecase.ErrUnknownChart
		},
	}
	app := setupApp(t, &fakeGetChartUseCase{}, resync)

	resp := postResync(t, app, `{"charts":["nope"]}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.StatusCode)
	}
}
