package framework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stridelab/server/pkg/bootstrap"
	"github.com/stridelab/server/pkg/execution"
	"github.com/stridelab/server/pkg/testing/mocks"
	"github.com/stridelab/server/pkg/types"
)

func newTestService(db *mocks.MockDatabase) *bootstrap.Service {
	return &bootstrap.Service{
		DB:     db,
		Pub:    &mocks.MockPublisher{},
		Config: &bootstrap.Config{},
	}
}

func TestWrapHTTPSuccess(t *testing.T) {
	var inserted *types.ExecutionRecord
	var updates map[string]interface{}
	db := &mocks.MockDatabase{
		InsertExecutionFunc: func(ctx context.Context, record *types.ExecutionRecord) error {
			inserted = record
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			updates = data
			return nil
		},
	}

	handler := WrapHTTP("test-fn", newTestService(db), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.ExecutionID == "" {
			t.Error("Expected an execution ID in the framework context")
		}
		return map[string]interface{}{"success": true, "value": 42}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{"user_id":"user-1"}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out["value"].(float64) != 42 {
		t.Errorf("Body = %v", out)
	}

	if inserted == nil {
		t.Fatal("Execution start was not logged")
	}
	if inserted.Service != "test-fn" || inserted.UserID != "user-1" {
		t.Errorf("Execution record = %+v", inserted)
	}
	if updates == nil || updates["status"] != execution.StatusSuccess {
		t.Errorf("Execution not marked successful: %v", updates)
	}
}

func TestWrapHTTPHandlerError(t *testing.T) {
	var updates map[string]interface{}
	db := &mocks.MockDatabase{
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			updates = data
			return nil
		},
	}

	handler := WrapHTTP("test-fn", newTestService(db), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, errors.New("boom")
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d, want 500", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error != "boom" {
		t.Errorf("Body = %+v", resp)
	}
	if updates == nil || updates["status"] != execution.StatusFailure {
		t.Errorf("Execution not marked failed: %v", updates)
	}
}

func TestWrapHTTPBadRequestStatus(t *testing.T) {
	handler := WrapHTTP("test-fn", newTestService(&mocks.MockDatabase{}), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, BadRequest("missing thing")
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}

func TestWrapHTTPCORSPreflight(t *testing.T) {
	handler := WrapHTTP("test-fn", newTestService(&mocks.MockDatabase{}), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		t.Error("Handler must not run for preflight")
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS header")
	}
}

func TestWrapHTTPMethodNotAllowed(t *testing.T) {
	handler := WrapHTTP("test-fn", newTestService(&mocks.MockDatabase{}), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status = %d, want 405", rec.Code)
	}
}

func TestWrapHTTPLoggingFailureDoesNotBlock(t *testing.T) {
	db := &mocks.MockDatabase{
		InsertExecutionFunc: func(ctx context.Context, record *types.ExecutionRecord) error {
			return errors.New("db down")
		},
	}
	handler := WrapHTTP("test-fn", newTestService(db), func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error) {
		return map[string]bool{"success": true}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200 despite execution log failure", rec.Code)
	}
}
