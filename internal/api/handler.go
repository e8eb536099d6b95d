package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/datapack"
	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/estimate"
	"github.com/kartoza/house-price-estimator/internal/logging"
	"github.com/kartoza/house-price-estimator/internal/models"
	"github.com/kartoza/house-price-estimator/internal/property"
	"github.com/kartoza/house-price-estimator/internal/regressor"
)

const maxBodyBytes = 1 << 20

// Estimator is the prediction pipeline behind the API
type Estimator interface {
	Estimate(ctx context.Context, in property.InputRecord) (*estimate.Estimate, error)
	Status() estimate.Status
}

// Handler provides HTTP API endpoints
type Handler struct {
	estimator Estimator
	cfg       config.Config
	validate  *validator.Validate
	now       func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(estimator Estimator, cfg config.Config) *Handler {
	return &Handler{
		estimator: estimator,
		cfg:       cfg,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Estimation
	r.HandleFunc("/form", h.handleForm).Methods("GET")
	r.HandleFunc("/predict", h.handlePredict).Methods("POST")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Logger.Errorf("Error encoding response: %v", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, models.ErrorResponse{Code: code, Message: message})
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version": h.cfg.Version,
		"locale":  h.cfg.Locale,
		"status":  h.estimator.Status(),
	}
	if m, err := datapack.ReadManifest(h.cfg.DataDir); err != nil {
		logging.Logger.Warnf("Warning: could not read data pack manifest: %v", err)
	} else if m != nil {
		info["datapack"] = m
	}
	respondJSON(w, http.StatusOK, info)
}

// handleForm returns the fields, options and bounds of the input form
func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, property.Form(h.now()))
}

// handlePredict runs one estimate
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req models.PredictRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, "invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, describeValidation(err))
		return
	}

	in, err := req.ToInput()
	if err != nil {
		respondError(w, http.StatusBadRequest, models.CodeValidation, err.Error())
		return
	}

	est, err := h.estimator.Estimate(r.Context(), in)
	if err != nil {
		status, code, message := classify(err)
		respondError(w, status, code, message)
		return
	}

	resp := models.PredictResponse{
		RequestID:       est.RequestID,
		Price:           est.Price,
		Display:         est.Display,
		Headline:        est.Headline,
		TypeCode:        est.TypeCode,
		BuildingDensity: est.BuildingDensity,
		Year:            est.Year,
		Month:           est.Month,
		Day:             est.Day,
		EncodingMode:    est.Mode,
	}
	if r.URL.Query().Get("features") == "true" {
		resp.Features = &est.Features
	}
	respondJSON(w, http.StatusOK, resp)
}

// classify maps pipeline errors onto a status, an error code and a message
// that is safe to show. Only input errors echo their detail.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, property.ErrInvalidInput):
		return http.StatusBadRequest, models.CodeValidation, err.Error()
	case errors.Is(err, regressor.ErrSchemaMismatch):
		return http.StatusInternalServerError, models.CodeSchemaMismatch,
			"the model does not accept the encoded features"
	case errors.Is(err, regressor.ErrArtifactLoad),
		errors.Is(err, dataset.ErrLoad),
		errors.Is(err, dataset.ErrCoverage):
		return http.StatusInternalServerError, models.CodeResource,
			"the model or reference dataset is unavailable"
	default:
		return http.StatusInternalServerError, models.CodeInternal,
			"the estimate could not be computed"
	}
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, ", ")
}
