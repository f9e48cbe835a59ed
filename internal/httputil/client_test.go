package httputil

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStandardClient_Wraps(t *testing.T) {
	if c := NewStandardClient(nil); c.Client != http.DefaultClient {
		t.Error("nil client should wrap http.DefaultClient")
	}
	custom := &http.Client{}
	if c := NewStandardClient(custom); c.Client != custom {
		t.Error("custom client not wrapped")
	}
}

func TestStandardClient_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "short and stout")
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	resp, err := NewStandardClient(nil).Do(req)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d, want 418", resp.StatusCode)
	}
}

func TestMockHTTPClient_QueuedResponses(t *testing.T) {
	mock := NewMockHTTPClient().
		AddResponse(http.StatusOK, `{"a":1}`).
		AddErrorResponse(errors.New("boom"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/one", nil)
	resp, err := mock.Do(req)
	if err != nil {
		t.Fatalf("first Do failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"a":1}` {
		t.Errorf("body = %q", body)
	}

	if _, err := mock.Do(req); err == nil || err.Error() != "boom" {
		t.Errorf("second Do error = %v, want boom", err)
	}

	// Exhausted queue falls back to an empty 200.
	resp, err = mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Errorf("default response = %v, %v", resp, err)
	}

	if mock.RequestCount() != 3 {
		t.Errorf("RequestCount() = %d, want 3", mock.RequestCount())
	}
	if mock.GetRequest(0).URL.Path != "/one" {
		t.Errorf("GetRequest(0) path = %s", mock.GetRequest(0).URL.Path)
	}
	if mock.GetRequest(5) != nil {
		t.Error("GetRequest out of range should be nil")
	}
}

func TestMockHTTPClient_DoFuncAndDefaultError(t *testing.T) {
	mock := NewMockHTTPClient()
	mock.DefaultError = errors.New("offline")
	req, _ := http.NewRequest(http.MethodGet, "http://example.test", nil)
	if _, err := mock.Do(req); err == nil {
		t.Error("expected DefaultError")
	}

	mock.DoFunc = func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusAccepted, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	resp, err := mock.Do(req)
	if err != nil || resp.StatusCode != http.StatusAccepted {
		t.Errorf("DoFunc not used: %v %v", resp, err)
	}
}

func TestDecodeJSONResponse(t *testing.T) {
	ok := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader(`{"model_loaded":true}`))}
	var v struct {
		ModelLoaded bool `json:"model_loaded"`
	}
	if err := DecodeJSONResponse(ok, &v); err != nil || !v.ModelLoaded {
		t.Errorf("DecodeJSONResponse = %v, %+v", err, v)
	}

	bad := &http.Response{StatusCode: 503, Body: io.NopCloser(strings.NewReader("model not loaded"))}
	err := DecodeJSONResponse(bad, &v)
	if err == nil || !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("error = %v", err)
	}

	garbage := &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("{"))}
	if err := DecodeJSONResponse(garbage, &v); err == nil {
		t.Error("expected decode error")
	}
}
