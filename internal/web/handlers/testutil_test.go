package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/facecall/internal/embedding"
	"github.com/kozaktomas/facecall/internal/matcher"
)

// fakeAuthenticator returns a canned matcher result.
type fakeAuthenticator struct {
	result matcher.Result
	err    error
	calls  int
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, imageData []byte) (matcher.Result, error) {
	f.calls++
	if f.err != nil {
		return matcher.Result{}, f.err
	}
	return f.result, nil
}

// fakeBroadcaster records admin fan-out calls.
type fakeBroadcaster struct {
	messages     []string
	forceLogouts int
}

func (f *fakeBroadcaster) BroadcastMessage(message string) {
	f.messages = append(f.messages, message)
}

func (f *fakeBroadcaster) ForceLogout() {
	f.forceLogouts++
}

// fakeEmbedder maps exact file contents to a single-face embedding; unknown
// content yields no face.
type fakeEmbedder struct {
	byContent map[string][]float32
}

func (f *fakeEmbedder) DetectFaces(ctx context.Context, data []byte) (*embedding.FaceResponse, error) {
	emb, ok := f.byContent[string(data)]
	if !ok {
		return &embedding.FaceResponse{FacesCount: 0}, nil
	}
	return &embedding.FaceResponse{
		FacesCount: 1,
		Faces:      []embedding.Face{{FaceIndex: 0, Dim: len(emb), Embedding: emb}},
	}, nil
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, want int) {
	t.Helper()
	if recorder.Code != want {
		t.Errorf("status = %d, want %d (body: %s)", recorder.Code, want, recorder.Body.String())
	}
}

func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, want string) {
	t.Helper()
	got := recorder.Header().Get("Content-Type")
	if !strings.HasPrefix(got, want) {
		t.Errorf("Content-Type = %s, want %s", got, want)
	}
}

func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), v); err != nil {
		t.Fatalf("parsing response body: %v (body: %s)", err, recorder.Body.String())
	}
}

func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, wantMessage string) {
	t.Helper()
	var body map[string]string
	parseJSONResponse(t, recorder, &body)
	if body["error"] != wantMessage {
		t.Errorf("error = %q, want %q", body["error"], wantMessage)
	}
}
