package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func envelopeFor(t *testing.T, handler fiber.Handler) (int, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding envelope: %v", err)
	}
	return resp.StatusCode, body
}

func TestEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		handler fiber.Handler
		status  int
		want    map[string]any
	}{
		{
			name: "success",
			handler: func(c *fiber.Ctx) error {
				return Success(c, fiber.StatusCreated, fiber.Map{"id": 7})
			},
			status: fiber.StatusCreated,
			want:   map[string]any{"success": true, "data": map[string]any{"id": float64(7)}},
		},
		{
			name: "error",
			handler: func(c *fiber.Ctx) error {
				return Error(c, fiber.StatusLocked, "Form is locked and not accepting responses")
			},
			status: fiber.StatusLocked,
			want:   map[string]any{"success": false, "error": "Form is locked and not accepting responses"},
		},
		{
			name: "error with details",
			handler: func(c *fiber.Ctx) error {
				return ErrorWithDetails(c, fiber.StatusBadRequest, "Validation failed", []string{
					"Question 1 text is required",
					"Invalid question type for question 2",
				})
			},
			status: fiber.StatusBadRequest,
			want: map[string]any{
				"success": false,
				"error":   "Validation failed",
				"details": []any{"Question 1 text is required", "Invalid question type for question 2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := envelopeFor(t, tt.handler)
			if status != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, status)
			}
			if !reflect.DeepEqual(body, tt.want) {
				t.Fatalf("unexpected envelope:\n got  %+v\n want %+v", body, tt.want)
			}
		})
	}
}

func TestPaginated(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		total      int64
		totalPages float64
	}{
		{"partial last page", 2, 20, 45, 3},
		{"exact fit", 1, 50, 100, 2},
		{"no responses", 1, 50, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := envelopeFor(t, func(c *fiber.Ctx) error {
				return Paginated(c, []string{}, tt.page, tt.limit, tt.total)
			})
			if status != fiber.StatusOK {
				t.Fatalf("expected status 200, got %d", status)
			}

			pagination, ok := body["pagination"].(map[string]any)
			if !ok {
				t.Fatalf("expected pagination object, got %+v", body)
			}
			if pagination["page"] != float64(tt.page) || pagination["limit"] != float64(tt.limit) {
				t.Fatalf("unexpected page/limit: %+v", pagination)
			}
			if pagination["total"] != float64(tt.total) || pagination["totalPages"] != tt.totalPages {
				t.Fatalf("unexpected totals: %+v", pagination)
			}
		})
	}
}
