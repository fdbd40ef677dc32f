// internal/service/server_test.go
package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyedDaiam9101/prospect/internal/model"
	"github.com/SyedDaiam9101/prospect/internal/model/modeltest"
)

func lengthFeaturizer(id string) []float64 {
	return []float64{float64(len(id))}
}

func newTestEcho(s *Server) *echo.Echo {
	e := echo.New()
	s.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestTrainThenPredict(t *testing.T) {
	fake := modeltest.New()
	e := newTestEcho(New(fake, lengthFeaturizer))

	rec := doJSON(t, e, http.MethodPost, "/v1/train",
		`{"ids":["aa","bbbb"],"scores":[2,4]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	train := decodeBody[TrainResponse](t, rec)
	assert.Equal(t, 2, train.Trained)
	assert.Equal(t, 1, fake.TrainCalls)
	assert.Equal(t, []string{"aa", "bbbb"}, fake.TrainedIDs)

	rec = doJSON(t, e, http.MethodPost, "/v1/predict",
		`{"ids":["a","ccc"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	pred := decodeBody[PredictResponse](t, rec)
	assert.Equal(t, []float64{1, 3}, pred.Means)
	assert.Empty(t, pred.Vars)
}

func TestPredictFromFeatures(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), nil))

	rec := doJSON(t, e, http.MethodPost, "/v1/predict",
		`{"features":[[1,2],[3,4]],"with_vars":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	pred := decodeBody[PredictResponse](t, rec)
	assert.Equal(t, []float64{3, 7}, pred.Means)
	assert.Equal(t, []float64{1, 1}, pred.Vars)
}

func TestPredictValidation(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), lengthFeaturizer))

	cases := []struct {
		name string
		body string
	}{
		{"empty", `{}`},
		{"both", `{"ids":["a"],"features":[[1]]}`},
		{"malformed", `{"ids":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/v1/predict", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPredictVarsBeyondCapabilities(t *testing.T) {
	fake := modeltest.New()
	fake.Caps = model.CapMeans
	e := newTestEcho(New(fake, lengthFeaturizer))

	rec := doJSON(t, e, http.MethodPost, "/v1/predict",
		`{"ids":["a"],"with_vars":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "provides")
}

func TestPredictSequenceModelNeedsIDs(t *testing.T) {
	e := newTestEcho(New(modeltest.NewSequence(), nil))

	rec := doJSON(t, e, http.MethodPost, "/v1/predict",
		`{"features":[[1,2]]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/predict", `{"ids":["abcde"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pred := decodeBody[PredictResponse](t, rec)
	assert.Equal(t, []float64{5}, pred.Means)
}

func TestPredictUntrainedModel(t *testing.T) {
	fake := modeltest.New()
	fake.Err = model.ErrUntrained
	e := newTestEcho(New(fake, lengthFeaturizer))

	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"ids":["a"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_ready_error")
}

func TestPredictContractViolation(t *testing.T) {
	fake := modeltest.New()
	fake.ShortBy = 1
	e := newTestEcho(New(fake, lengthFeaturizer))

	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"ids":["a","b"]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTrainValidation(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), lengthFeaturizer))

	rec := doJSON(t, e, http.MethodPost, "/v1/train", `{"ids":[],"scores":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/train", `{"ids":["a"],"scores":[1,2]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadinessLifecycle(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), lengthFeaturizer))

	rec := doJSON(t, e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, e, http.MethodPost, "/v1/train", `{"ids":["a"],"scores":[1]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthAndVersion(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), lengthFeaturizer))

	rec := doJSON(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)

	rec = doJSON(t, e, http.MethodGet, "/version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "version")
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEcho(New(modeltest.New(), lengthFeaturizer))

	rec := doJSON(t, e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inference_batch_size")
}
