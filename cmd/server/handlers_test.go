package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/himanishpuri/ECGSegmenter/pkg/ecgdataset"
	"github.com/himanishpuri/ECGSegmenter/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server *Server
	router http.Handler
	raw    string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	root := t.TempDir()
	raw := filepath.Join(root, "raws")

	logCfg := logger.DefaultConfig()
	logCfg.Output = io.Discard
	quiet := logger.New(logCfg)

	svc, err := ecgdataset.NewService(
		ecgdataset.WithRawDir(raw),
		ecgdataset.WithSampleDir(filepath.Join(root, "samples")),
		ecgdataset.WithDBPath(filepath.Join(root, "catalog.sqlite3")),
		ecgdataset.WithLogger(quiet),
	)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	s := NewServer(svc, &ServerConfig{Port: 0, AllowedOrigins: []string{"*"}})
	s.log = quiet
	return &testServer{server: s, router: s.setupRoutes(), raw: raw}
}

// writeRecord writes mitdb/100 with beats at 200 (N) and 500 (V)
func (ts *testServer) writeRecord(t *testing.T) {
	t.Helper()
	dir := filepath.Join(ts.raw, "mitdb")
	os.MkdirAll(dir, 0755)

	var sig strings.Builder
	sig.WriteString("'Elapsed time','MLII'\n'seconds','mV'\n")
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sig, "%.3f,%d\n", float64(i)/360, i)
	}
	os.WriteFile(filepath.Join(dir, "100.csv"), []byte(sig.String()), 0644)

	ann := "      Time   Sample #  Type  Sub Chan  Num\n" +
		"    0:00.555      200     N    0    0    0\n" +
		"    0:01.388      500     V    0    0    0\n"
	os.WriteFile(filepath.Join(dir, "100.txt"), []byte(ann), 0644)
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Origin", "http://localhost:3000")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header on response")
	}
}

func TestSegmentListAndDelete(t *testing.T) {
	ts := setupServer(t)
	ts.writeRecord(t)

	rec := ts.do(t, http.MethodPost, "/api/segment", SegmentRequest{Database: "mitdb"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var seg SegmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &seg); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if seg.Windows != 2 || seg.Written != 2 || len(seg.Records) != 1 {
		t.Errorf("Unexpected segment response: %+v", seg)
	}

	rec = ts.do(t, http.MethodGet, "/api/records", nil)
	var list ListRecordsResponse
	json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Count != 1 || list.Records[0].Name != "100" {
		t.Fatalf("Unexpected record list: %+v", list)
	}
	id := list.Records[0].ID

	rec = ts.do(t, http.MethodGet, "/api/records/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for existing record, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/dataset", nil)
	var ds DatasetResponse
	json.Unmarshal(rec.Body.Bytes(), &ds)
	if ds.Windows != 2 || ds.Width != 260 || ds.Counts[0] != 1 || ds.Counts[2] != 1 {
		t.Errorf("Unexpected dataset summary: %+v", ds)
	}

	rec = ts.do(t, http.MethodDelete, "/api/records/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on delete, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/records/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rec.Code)
	}
}

func TestSegmentValidation(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing database", map[string]string{}, http.StatusBadRequest},
		{"path traversal", SegmentRequest{Database: "../etc"}, http.StatusBadRequest},
		{"bad record", SegmentRequest{Database: "mitdb", Record: "a/b"}, http.StatusBadRequest},
		{"unknown database", SegmentRequest{Database: "ptbdb"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/segment", tt.body)
			if rec.Code != tt.code {
				t.Errorf("Expected status %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDatasetEmpty(t *testing.T) {
	ts := setupServer(t)

	rec := ts.do(t, http.MethodGet, "/api/dataset", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 without samples, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/dataset?inputs=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad inputs, got %d", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	ts := setupServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204 for preflight, got %d", rec.Code)
	}
}

func (ts *testServer) goGet(path string) <-chan int {
	done := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		ts.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		done <- rec.Code
	}()
	return done
}

func TestDatasetWaitsForWriter(t *testing.T) {
	ts := setupServer(t)

	ts.server.writeMu.Lock()
	done := ts.goGet("/api/dataset")
	select {
	case code := <-done:
		ts.server.writeMu.Unlock()
		t.Fatalf("Expected dataset load to wait for the writer, got status %d", code)
	case <-time.After(100 * time.Millisecond):
	}
	ts.server.writeMu.Unlock()

	select {
	case code := <-done:
		if code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Dataset load did not resume after the writer finished")
	}
}

func TestDatasetLoadsShareLock(t *testing.T) {
	ts := setupServer(t)

	ts.server.writeMu.RLock()
	defer ts.server.writeMu.RUnlock()

	select {
	case code := <-ts.goGet("/api/dataset"):
		if code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected concurrent loads not to block each other")
	}
}
