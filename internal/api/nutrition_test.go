package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ashureev/macro-maker/internal/config"
	"github.com/ashureev/macro-maker/internal/llm"
	"github.com/ashureev/macro-maker/internal/planner"
	"github.com/ashureev/macro-maker/internal/prompt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validBody = `{"gender":"male","age":30,"height":180,"weight":80,"bodyFat":15,"goal":"cut","allergies":""}`

// fakeUpstream serves a fixed assistant message and counts calls.
type fakeUpstream struct {
	*httptest.Server
	calls   atomic.Int32
	prompts chan string
}

func newFakeUpstream(t *testing.T, content string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{prompts: make(chan string, 4)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		var req llm.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) == 2 {
			f.prompts <- req.Messages[1].Content
		}
		body, _ := json.Marshal(map[string]any{
			"model": "gpt-4o-mini",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
			},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(f.Close)
	return f
}

func newTestRouter(t *testing.T, upstreamURL, apiKey string, mode prompt.Mode) (http.Handler, *config.Config) {
	t.Helper()

	tmpl := filepath.Join(t.TempDir(), "instructions.txt")
	require.NoError(t, os.WriteFile(tmpl, []byte("Return JSON only."), 0o600))

	cfg := &config.Config{
		Port:               "0",
		MaxRequestBodySize: 1 << 20,
		Upstream:           config.UpstreamConfig{APIKey: apiKey, BaseURL: upstreamURL, Model: llm.DefaultModel},
		Prompt:             config.PromptConfig{Mode: mode, TemplatePath: tmpl},
	}
	builder := prompt.NewBuilder(cfg.Prompt.Mode, cfg.Prompt.TemplatePath)
	client := llm.NewClient(llm.ClientConfig{BaseURL: upstreamURL, APIKey: apiKey, Model: cfg.Upstream.Model}, nil)
	svc := planner.NewService(client, builder, nil, planner.Config{
		CredentialConfigured: cfg.HasCredential(),
		Model:                cfg.Upstream.Model,
	}, nil)

	r := chi.NewRouter()
	NewNutritionHandler(NewHandler(svc, cfg)).RegisterRoutes(r)
	NewHealthHandlerWithConfig(cfg, builder).RegisterHealth(r)
	return r, cfg
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/nutrition", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	return got
}

func TestPlanRejectsNonPost(t *testing.T) {
	up := newFakeUpstream(t, "{}")
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/api/nutrition", nil)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
			assert.Equal(t, "POST", rr.Header().Get("Allow"))
			assert.JSONEq(t, `{"error":"Method Not Allowed"}`, rr.Body.String())
		})
	}
	assert.Zero(t, up.calls.Load())
}

func TestPlanMissingCredential(t *testing.T) {
	up := newFakeUpstream(t, `{"meals":[],"calories":0,"protein":0}`)
	h, _ := newTestRouter(t, up.URL, "", prompt.ModeTemplate)

	rr := post(h, validBody)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var msg string
	require.NoError(t, json.Unmarshal(decodeBody(t, rr)["error"], &msg))
	assert.Contains(t, msg, "configuration error")
	assert.Contains(t, msg, "OPENAI_KEY")
	assert.Zero(t, up.calls.Load(), "no outbound call expected")
}

func TestPlanReturnsDirectJSONVerbatim(t *testing.T) {
	content := `{"meals":["A","B"],"calories":2000,"protein":150}`
	up := newFakeUpstream(t, content)
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	rr := post(h, validBody)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, content, string(decodeBody(t, rr)["plan"]))
	assert.EqualValues(t, 1, up.calls.Load())
}

func TestPlanRegexFallback(t *testing.T) {
	up := newFakeUpstream(t, `Here is your plan: {"meals":["A"],"calories":1800,"protein":140} Enjoy!`)
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeInline)

	rr := post(h, validBody)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"meals":["A"],"calories":1800,"protein":140}`, string(decodeBody(t, rr)["plan"]))
}

func TestPlanNoJSONInOutput(t *testing.T) {
	up := newFakeUpstream(t, "I am unable to produce a plan today.")
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	rr := post(h, validBody)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var msg string
	require.NoError(t, json.Unmarshal(decodeBody(t, rr)["error"], &msg))
	assert.Contains(t, msg, "invalid JSON")

	// The server keeps serving after the failure.
	rr = post(h, validBody)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestPlanTemplatePromptReachesUpstream(t *testing.T) {
	up := newFakeUpstream(t, `{"meals":["A"],"calories":1,"protein":1}`)
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	rr := post(h, validBody)
	require.Equal(t, http.StatusOK, rr.Code)

	sent := <-up.prompts
	assert.True(t, strings.HasPrefix(sent, "Return JSON only.\nUser stats: Age 30 yrs"), sent)
	assert.Contains(t, sent, "between 2291 and 2441 kcal")
}

func TestPlanBadRequest(t *testing.T) {
	up := newFakeUpstream(t, "{}")
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	tests := map[string]string{
		"malformed json": `{"age":`,
		"missing weight": `{"gender":"male","age":30,"height":180}`,
		"string age":     `{"gender":"male","age":"thirty","height":180,"weight":80}`,
		"bad goal":       `{"gender":"male","age":30,"height":180,"weight":80,"goal":"shred"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr := post(h, body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}
	assert.Zero(t, up.calls.Load())
}

func TestPlanBodyTooLarge(t *testing.T) {
	up := newFakeUpstream(t, `{"meals":[],"calories":0,"protein":0}`)
	h, cfg := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)
	cfg.MaxRequestBodySize = 64

	body := `{"gender":"male","age":30,"height":180,"weight":80,"allergies":"` + strings.Repeat("x", 200) + `"}`
	rr := post(h, body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rr.Body.String())
	assert.Zero(t, up.calls.Load())
}

func TestPlanUpstreamFailure(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"Rate limit reached"}}`)
	}))
	defer up.Close()
	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)

	rr := post(h, validBody)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Rate limit reached")
}

func TestGetConfigHidesCredential(t *testing.T) {
	up := newFakeUpstream(t, "{}")
	h, _ := newTestRouter(t, up.URL, "sk-secret", prompt.ModeInline)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "sk-secret")
	assert.Contains(t, rr.Body.String(), `"prompt_mode":"inline"`)
	assert.Contains(t, rr.Body.String(), `"credential_configured":true`)
}

func TestHealth(t *testing.T) {
	up := newFakeUpstream(t, "{}")

	h, _ := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	h, _ = newTestRouter(t, up.URL, "", prompt.ModeTemplate)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"credential":"missing"`)
}

func TestHealthTemplateUnreadable(t *testing.T) {
	up := newFakeUpstream(t, "{}")
	h, cfg := newTestRouter(t, up.URL, "sk-test", prompt.ModeTemplate)
	require.NoError(t, os.Remove(cfg.Prompt.TemplatePath))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"prompt_template":"unreadable"`)
	assert.Contains(t, rr.Body.String(), `"credential":"ok"`)
}
