package thresholds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func setupHandler(t *testing.T) (*Handler, storage.ThresholdRepository) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "thresholds.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}

	h := NewHandler(store.Thresholds())
	h.now = func() time.Time { return now }
	return h, store.Thresholds()
}

func TestGet_Defaults(t *testing.T) {
	h, _ := setupHandler(t)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/v1/thresholds", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Data models.ThresholdConfig `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	def := models.DefaultThresholdConfig()
	if resp.Data.TempMin != def.TempMin || resp.Data.HumidityMax != def.HumidityMax {
		t.Errorf("expected defaults, got %+v", resp.Data)
	}
}

func TestUpdate(t *testing.T) {
	valid := `{"temp_min":26,"temp_max":31,"humidity_min":65,"humidity_max":75,
		"notifications_enabled":{"global":true,"temperature":false,"humidity":true}}`

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"valid", valid, http.StatusOK, ""},
		{"inverted temperature", strings.Replace(valid, `"temp_min":26`, `"temp_min":35`, 1), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"equal humidity", strings.Replace(valid, `"humidity_min":65`, `"humidity_min":75`, 1), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing field", `{"temp_min":26,"temp_max":31,"humidity_min":65}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown field", `{"temp_min":26,"co2_max":1000}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"malformed", `{"temp_min":`, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, repo := setupHandler(t)

			rec := httptest.NewRecorder()
			h.Update(rec, httptest.NewRequest("PUT", "/api/v1/thresholds", strings.NewReader(tc.body)))

			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d; body: %s", rec.Code, tc.status, rec.Body.String())
			}
			if tc.code != "" && !strings.Contains(rec.Body.String(), tc.code) {
				t.Errorf("body %s missing code %s", rec.Body.String(), tc.code)
			}

			saved, err := repo.Get(context.Background())
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if tc.status == http.StatusOK {
				if saved.TempMin != 26 || saved.NotificationsEnabled.Temperature || !saved.UpdatedAt.Equal(now) {
					t.Errorf("config not saved: %+v", saved)
				}
			} else if saved.TempMin != models.DefaultThresholdConfig().TempMin {
				t.Errorf("rejected update was saved: %+v", saved)
			}
		})
	}
}

type failingRepo struct{}

func (failingRepo) Get(ctx context.Context) (*models.ThresholdConfig, error) {
	return nil, errors.New("disk I/O error")
}

func (failingRepo) Save(ctx context.Context, cfg *models.ThresholdConfig) error {
	return errors.New("disk I/O error")
}

func TestStoreFailure(t *testing.T) {
	h := NewHandler(failingRepo{})

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/v1/thresholds", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("get status = %d, want 500", rec.Code)
	}

	body := `{"temp_min":26,"temp_max":31,"humidity_min":65,"humidity_max":75,"notifications_enabled":{"global":true}}`
	rec = httptest.NewRecorder()
	h.Update(rec, httptest.NewRequest("PUT", "/api/v1/thresholds", strings.NewReader(body)))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("update status = %d, want 500", rec.Code)
	}
}
