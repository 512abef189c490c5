package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *Server {
	s := &Server{logger: log.New(io.Discard, "", 0)}
	s.handler = s.routes()
	return s
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body messageResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Message != "ok" {
		t.Fatalf("message = %q, want %q", body.Message, "ok")
	}
}

func TestHandleOpenAPIServesEmbeddedSpec(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("ragkit knowledge base API")) {
		t.Fatalf("response does not contain expected openapi title: %s", rec.Body.String())
	}
}

func TestMethodNotAllowedOnWrongVerb(t *testing.T) {
	postOnly := []string{
		"/v1/learn/text", "/v1/learn/document", "/v1/learn/url",
		"/v1/ask", "/v1/ask/filtered", "/v1/cache/clear",
		"/v1/store/optimize", "/v1/store/reindex", "/v1/clear",
	}
	for _, path := range postOnly {
		t.Run(path, func(t *testing.T) {
			s := newTestServer()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
			}
		})
	}

	getOnly := []string{"/v1/stats/kb", "/v1/stats/cache", "/v1/stats/store"}
	for _, path := range getOnly {
		t.Run(path, func(t *testing.T) {
			s := newTestServer()
			req := httptest.NewRequest(http.MethodPost, path, nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

func TestHandleAskRejectsEmptyQuery(t *testing.T) {
	s := newTestServer()
	body := bytes.NewBufferString(`{"query":""}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/ask", body)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleClearRequiresConfirmation(t *testing.T) {
	s := newTestServer()
	body := bytes.NewBufferString(`{"confirm":false}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/clear", body)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleLearnDocumentRejectsEmptyPath(t *testing.T) {
	s := newTestServer()
	body := bytes.NewBufferString(`{"path":""}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/learn/document", body)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"unknown":"field"}`))
	var dst learnTextRequest
	if err := decodeJSON(req, &dst); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestDecodeJSONAllowsEmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	var dst learnTextRequest
	if err := decodeJSON(req, &dst); err != nil {
		t.Fatalf("decodeJSON with empty body: %v", err)
	}
}
