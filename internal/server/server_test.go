package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qkdsim/bb84/bb84"
	"github.com/qkdsim/bb84/bb84/photon"
)

func setupTestServer(t *testing.T, src photon.Source) *Server {
	t.Helper()
	if src == nil {
		src = photon.NewSeededSource(42)
	}
	runner, err := bb84.NewRunner(bb84.Options{
		Rand:    src,
		MaxBits: 1024,
		NewID:   func() string { return "test-run" },
	})
	require.NoError(t, err)
	return New(Config{
		Addr:            ":0",
		Log:             zerolog.Nop(),
		Runner:          runner,
		MaxMessageBytes: 32,
	})
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestHandleMessage_DeliversWithAlignedBases(t *testing.T) {
	s := setupTestServer(t, &photon.Scripted{Bases: []photon.Basis{photon.Rectilinear}})

	w := post(t, s, "/api/message", `{"message":"Hi","eavesdrop":false,"sender":"alice","encrypted":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decodeBody(t, w)
	assert.Equal(t, "Hi", body["original_message"])
	assert.Equal(t, "Hi", body["delivered_message"])
	assert.Equal(t, false, body["eve_detected"])
	assert.Equal(t, 0.0, body["qber"])
	assert.Equal(t, 16.0, body["total_bits"])
	assert.Equal(t, 16.0, body["sifted_key_length"])
	assert.Equal(t, "alice", body["sender"])
	assert.Equal(t, true, body["encrypted"])
	assert.Equal(t, "test-run", body["run_id"])

	steps, ok := body["steps"].([]interface{})
	require.True(t, ok)
	require.Len(t, steps, 8)
	first := steps[0].(map[string]interface{})
	assert.Equal(t, bb84.StepTextToBits, first["step"])
	assert.Equal(t, "0100100001101001", first["bit_string"])
}

func TestHandleMessage_EavesdropTraceIncludesEve(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/message", `{"message":"Hello, Bob","eavesdrop":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res bb84.RunResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	_, ok := res.Step(bb84.StepEveActions)
	assert.True(t, ok)
	assert.Len(t, res.Steps, 9)
	assert.Equal(t, 80, res.TotalBits)
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/message", `{"message":"","eavesdrop":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Nil(t, body["delivered_message"])
	assert.Equal(t, 0.0, body["total_bits"])
	assert.Equal(t, 0.0, body["qber"])
}

func TestHandleMessage_BadRequests(t *testing.T) {
	s := setupTestServer(t, nil)

	tcs := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"message":`},
		{name: "wrong type", body: `{"message":42}`},
		{name: "wide character", body: `{"message":"π"}`},
		{name: "too long", body: `{"message":"` + strings.Repeat("a", 33) + `"}`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			w := post(t, s, "/api/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleSimulate(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/simulate", `{"num_bits":64,"eavesdrop":false}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res bb84.RunResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 64, res.TotalBits)
	assert.Equal(t, 0.0, res.QBER)
	assert.False(t, res.EveDetected)
	assert.Len(t, res.AliceKey, res.SiftedKeyLength)
	assert.Equal(t, res.AliceKey, res.BobKey)
}

func TestHandleSimulate_DefaultsToTwentyBits(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/simulate", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, 20.0, body["total_bits"])
}

func TestHandleSimulate_ThresholdOverride(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/simulate", `{"num_bits":32,"detection_threshold":0.4}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res bb84.RunResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	step, ok := res.Step(bb84.StepQBER)
	require.True(t, ok)
	assert.Equal(t, 0.4, step.Payload["threshold"])
}

func TestHandleSimulate_BadRequests(t *testing.T) {
	s := setupTestServer(t, nil)

	tcs := []struct {
		name string
		body string
	}{
		{name: "negative", body: `{"num_bits":-1}`},
		{name: "fractional", body: `{"num_bits":2.5}`},
		{name: "string", body: `{"num_bits":"ten"}`},
		{name: "over limit", body: `{"num_bits":4096}`},
		{name: "threshold out of range", body: `{"num_bits":8,"detection_threshold":1.5}`},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			w := post(t, s, "/api/simulate", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleTranscript(t *testing.T) {
	s := setupTestServer(t, nil)

	w := post(t, s, "/api/transcript", `{"message":"Hi","eavesdrop":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-protobuf", w.Header().Get("Content-Type"))

	res, err := bb84.ReadTranscript(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "test-run", res.RunID)
	assert.Equal(t, "Hi", res.OriginalMessage)
	assert.Equal(t, 16, res.TotalBits)
	assert.Len(t, res.Steps, 9)
}

func TestHandleHealth(t *testing.T) {
	s := setupTestServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, bb84.DefaultDetectionThreshold, body["threshold"])
}

func TestHandleIndex(t *testing.T) {
	s := setupTestServer(t, nil)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/message")
}

func TestMetricsCountRuns(t *testing.T) {
	s := setupTestServer(t, nil)

	require.Equal(t, http.StatusOK, post(t, s, "/api/simulate", `{"num_bits":16}`).Code)
	require.Equal(t, http.StatusOK, post(t, s, "/api/message", `{"message":"ok","eavesdrop":true}`).Code)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, `bb84_runs_total{eavesdrop="false",mode="count"} 1`)
	assert.Contains(t, out, `bb84_runs_total{eavesdrop="true",mode="message"} 1`)
	assert.Contains(t, out, "bb84_qber_count 2")
}
