package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/routes/health"
)

func TestHealthEndpoints(t *testing.T) {
	e := echo.New()
	checker := health.NewChecker(nil, nil, "test")
	checker.RegisterRoutes(e)

	t.Run("Live", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("NotReadyUntilStartupCompletes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		checker.SetReady(true)
		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("UnhealthyWithoutDatabase", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var status health.HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "test", status.Version)
		require.Contains(t, status.Checks, "database")
		assert.Equal(t, "unhealthy", status.Checks["database"].Status)
	})
}

func TestAdmitBrandRequest_Validation(t *testing.T) {
	validate := validator.New()

	t.Run("ValidRequest", func(t *testing.T) {
		req := models.AdmitBrandRequest{Brand: "Arden Grange", Status: models.AllowlistStatusActive}
		assert.NoError(t, validate.Struct(&req))
	})

	t.Run("MissingBrand", func(t *testing.T) {
		req := models.AdmitBrandRequest{Status: models.AllowlistStatusActive}
		assert.Error(t, validate.Struct(&req))
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		req := models.AdmitBrandRequest{Brand: "Arden Grange", Status: "BANNED"}
		assert.Error(t, validate.Struct(&req))
	})
}

func TestUpsertBrandSplitRequest_Validation(t *testing.T) {
	validate := validator.New()

	t.Run("ValidRequest", func(t *testing.T) {
		req := models.UpsertBrandSplitRequest{
			TruncatedSlug:  "arden",
			FullBrand:      "Arden Grange",
			LeftoverPrefix: "Grange",
			Confidence:     1.0,
		}
		assert.NoError(t, validate.Struct(&req))
	})

	t.Run("MissingFullBrand", func(t *testing.T) {
		req := models.UpsertBrandSplitRequest{TruncatedSlug: "arden", LeftoverPrefix: "Grange", Confidence: 1.0}
		assert.Error(t, validate.Struct(&req))
	})

	t.Run("ConfidenceOutOfRange", func(t *testing.T) {
		req := models.UpsertBrandSplitRequest{
			TruncatedSlug:  "arden",
			FullBrand:      "Arden Grange",
			LeftoverPrefix: "Grange",
			Confidence:     1.5,
		}
		assert.Error(t, validate.Struct(&req))
	})
}

func TestHarvestMessage_Validation(t *testing.T) {
	validate := validator.New()

	t.Run("ValidMessage", func(t *testing.T) {
		msg := models.HarvestMessage{
			RunID:       "run-1",
			Brand:       "Bozita",
			ProductName: "Original",
			SourceURL:   "https://petfood.example.com/bozita-original",
		}
		assert.NoError(t, validate.Struct(&msg))
	})

	t.Run("MissingSourceURL", func(t *testing.T) {
		msg := models.HarvestMessage{RunID: "run-1", Brand: "Bozita", ProductName: "Original"}
		assert.Error(t, validate.Struct(&msg))
	})
}

func TestMergeSummary_JSON(t *testing.T) {
	summary := models.MergeSummary{
		RunID:    "run-1",
		Staged:   4,
		Inserted: 2,
		Updated:  1,
		Skipped:  1,
		Outcomes: []models.MergeOutcome{
			{StagingRecordID: "a", Kind: models.MergeOutcomeInserted},
			{StagingRecordID: "b", Kind: models.MergeOutcomeSkipped, SkipReason: models.SkipReasonNotAllowlisted},
		},
	}

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	var parsed models.MergeSummary
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, 4, parsed.Staged)
	assert.Len(t, parsed.Outcomes, 2)
	assert.Equal(t, models.SkipReasonNotAllowlisted, parsed.Outcomes[1].SkipReason)
}
