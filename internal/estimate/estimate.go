package estimate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/features"
	"github.com/kartoza/house-price-estimator/internal/logging"
	"github.com/kartoza/house-price-estimator/internal/metrics"
	"github.com/kartoza/house-price-estimator/internal/present"
	"github.com/kartoza/house-price-estimator/internal/property"
	"github.com/kartoza/house-price-estimator/internal/regressor"
)

// ErrNoPreprocessor is returned in persisted mode when the artifact was never
// passed through the fit command.
var ErrNoPreprocessor = fmt.Errorf("%w: artifact has no fitted preprocessor", regressor.ErrArtifactLoad)

// Options configures a Service
type Options struct {
	ModelPath     string
	ReferencePath string
	Mode          string
	Presenter     *present.Presenter
	Metrics       *metrics.Metrics
}

// Service turns form values into a price estimate. It holds paths only: the
// model and the reference dataset are read again for every call.
type Service struct {
	modelPath     string
	referencePath string
	mode          string
	presenter     *present.Presenter
	metrics       *metrics.Metrics
}

// Estimate is the outcome of one successful request
type Estimate struct {
	RequestID       string
	Price           float64
	Display         string
	Headline        string
	TypeCode        string
	BuildingDensity float64
	Year            int
	Month           int
	Day             int
	Mode            string
	Features        features.EncodedRow
}

// NewService creates a Service. An empty mode means persisted.
func NewService(opts Options) *Service {
	mode := opts.Mode
	if mode == "" {
		mode = config.ModePersisted
	}
	presenter := opts.Presenter
	if presenter == nil {
		presenter = present.NewPresenter("en-AU")
	}
	return &Service{
		modelPath:     opts.ModelPath,
		referencePath: opts.ReferencePath,
		mode:          mode,
		presenter:     presenter,
		metrics:       opts.Metrics,
	}
}

// Mode returns the encoding mode in use
func (s *Service) Mode() string {
	return s.mode
}

// Estimate validates and normalizes the record, encodes it, runs the model and
// formats the result. Any failure aborts the whole request.
func (s *Service) Estimate(ctx context.Context, in property.InputRecord) (*Estimate, error) {
	start := time.Now()
	id := uuid.New().String()
	log := logging.Logger.WithFields(logrus.Fields{"request_id": id, "mode": s.mode})

	est, err := s.run(ctx, id, in)
	s.metrics.ObserveEstimate(s.mode, Outcome(err), time.Since(start))
	if err != nil {
		if errors.Is(err, property.ErrInvalidInput) {
			log.Infof("Rejected input: %v", err)
		} else {
			log.Errorf("Estimate failed: %v", err)
		}
		return nil, err
	}

	s.metrics.SetPrediction(est.Price)
	log.WithField("duration", time.Since(start)).Infof("Estimated %s", est.Display)
	return est, nil
}

func (s *Service) run(ctx context.Context, id string, in property.InputRecord) (*Estimate, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	record, err := property.Normalize(in)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		row   features.EncodedRow
		model *regressor.Artifact
	)
	switch s.mode {
	case config.ModeRefit:
		ref, err := dataset.Load(s.referencePath)
		if err != nil {
			return nil, err
		}
		s.metrics.SetReferenceRows(ref.Len())

		row, err = features.Refit(record, ref)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if model, err = regressor.Load(s.modelPath); err != nil {
			return nil, err
		}
	case config.ModePersisted:
		if model, err = regressor.Load(s.modelPath); err != nil {
			return nil, err
		}
		if model.Preprocessor == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoPreprocessor, s.modelPath)
		}
		row, err = model.Preprocessor.Transform(record)
		if err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown encoding mode %q", s.mode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	price, err := model.Predict(row)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	return &Estimate{
		RequestID:       id,
		Price:           price,
		Display:         s.presenter.FormatPrice(price),
		Headline:        s.presenter.Headline(price),
		TypeCode:        record.TypeCode,
		BuildingDensity: record.BuildingDensity,
		Year:            record.Year,
		Month:           record.Month,
		Day:             record.Day,
		Mode:            s.mode,
		Features:        row,
	}, nil
}

// Outcome classifies an Estimate error for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, property.ErrInvalidInput):
		return metrics.OutcomeInvalidInput
	case errors.Is(err, regressor.ErrSchemaMismatch):
		return metrics.OutcomeSchemaMismatch
	case errors.Is(err, regressor.ErrArtifactLoad),
		errors.Is(err, dataset.ErrLoad),
		errors.Is(err, dataset.ErrCoverage):
		return metrics.OutcomeResourceError
	default:
		return metrics.OutcomeError
	}
}

// Status describes the files the service depends on
type Status struct {
	Mode             string                 `json:"encoding_mode"`
	ModelPath        string                 `json:"model_path"`
	ModelPresent     bool                   `json:"model_present"`
	ReferencePath    string                 `json:"reference_path"`
	ReferencePresent bool                   `json:"reference_present"`
	Model            map[string]interface{} `json:"model,omitempty"`
	ModelError       string                 `json:"model_error,omitempty"`
}

// Status reports whether the model and reference files exist and, when the
// model loads, a summary of it.
func (s *Service) Status() Status {
	st := Status{
		Mode:             s.mode,
		ModelPath:        s.modelPath,
		ModelPresent:     fileExists(s.modelPath),
		ReferencePath:    s.referencePath,
		ReferencePresent: fileExists(s.referencePath),
	}
	if st.ModelPresent {
		if a, err := regressor.Load(s.modelPath); err != nil {
			st.ModelError = err.Error()
		} else {
			st.Model = a.GetConfig()
		}
	}
	return st
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// FitPreprocessor fits the encoder and scaler on the reference dataset and
// stores them inside the model artifact. The fitted feature set must equal
// the model's.
func FitPreprocessor(referencePath, modelPath string) (*features.Preprocessor, error) {
	ref, err := dataset.Load(referencePath)
	if err != nil {
		return nil, err
	}

	pre, err := features.Fit(ref)
	if err != nil {
		return nil, fmt.Errorf("fit preprocessor: %w", err)
	}

	model, err := regressor.Load(modelPath)
	if err != nil {
		return nil, err
	}

	fitted := slices.Clone(pre.Features)
	slices.Sort(fitted)
	trained := slices.Clone(model.Features)
	slices.Sort(trained)
	if !slices.Equal(fitted, trained) {
		return nil, fmt.Errorf("%w: preprocessor yields %v, model expects %v",
			regressor.ErrSchemaMismatch, pre.Features, model.Features)
	}

	model.Preprocessor = pre
	if err := model.Save(modelPath); err != nil {
		return nil, fmt.Errorf("save %s: %w", modelPath, err)
	}

	logging.Logger.Infof("Stored preprocessor fitted on %d rows of %s in %s", pre.Rows, pre.Source, modelPath)
	return pre, nil
}
