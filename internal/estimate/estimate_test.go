package estimate

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartoza/house-price-estimator/internal/config"
	"github.com/kartoza/house-price-estimator/internal/dataset"
	"github.com/kartoza/house-price-estimator/internal/dataset/datasettest"
	"github.com/kartoza/house-price-estimator/internal/features"
	"github.com/kartoza/house-price-estimator/internal/metrics"
	"github.com/kartoza/house-price-estimator/internal/present"
	"github.com/kartoza/house-price-estimator/internal/property"
	"github.com/kartoza/house-price-estimator/internal/regressor"
)

func sampleInput() property.InputRecord {
	return property.InputRecord{
		Suburb:       "Camberwell",
		PropertyType: "House",
		ParkingArea:  "Indoor",
		BuildingArea: 150,
		Landsize:     500,
		YearBuilt:    1990,
		Bedroom:      3,
		Bathroom:     2,
		Latitude:     -37.8,
		Longitude:    145.0,
		SaleDate:     time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
}

// modelFeatures returns the column set the encoding pipeline produces for
// the fixture dataset.
func modelFeatures(t *testing.T) []string {
	t.Helper()
	pre, err := features.Fit(datasettest.Dataset())
	require.NoError(t, err)
	return pre.Features
}

type fixture struct {
	dir       string
	reference string
	model     string
}

func newFixture(t *testing.T, a *regressor.Artifact) fixture {
	t.Helper()
	dir := t.TempDir()
	fx := fixture{
		dir:       dir,
		reference: datasettest.WriteCSV(t, dir, config.DefaultReferenceFile, datasettest.Rows()),
		model:     filepath.Join(dir, config.DefaultModelFile),
	}
	if a != nil {
		require.NoError(t, a.Save(fx.model))
	}
	return fx
}

func constantModel(t *testing.T, intercept float64) *regressor.Artifact {
	names := modelFeatures(t)
	return &regressor.Artifact{
		Kind:     regressor.KindLinear,
		Features: names,
		Linear:   &regressor.Linear{Intercept: intercept, Coefficients: make([]float64, len(names))},
	}
}

func (fx fixture) service(mode string) *Service {
	return NewService(Options{
		ModelPath:     fx.model,
		ReferencePath: fx.reference,
		Mode:          mode,
		Presenter:     present.NewPresenter("en-AU"),
	})
}

func TestEstimateRefit(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1250000))

	est, err := fx.service(config.ModeRefit).Estimate(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, 1250000.0, est.Price)
	assert.Equal(t, "$1,250,000", est.Display)
	assert.Equal(t, "The estimated price of the property is: $1,250,000", est.Headline)
	assert.Equal(t, "h", est.TypeCode)
	assert.InDelta(t, 0.3, est.BuildingDensity, 1e-12)
	assert.Equal(t, 2024, est.Year)
	assert.Equal(t, 6, est.Month)
	assert.Equal(t, 15, est.Day)
	assert.Equal(t, config.ModeRefit, est.Mode)
	assert.NotEmpty(t, est.RequestID)
	assert.ElementsMatch(t, modelFeatures(t), est.Features.Columns)
}

func TestEstimateRefitUsesScaledFeatures(t *testing.T) {
	// The fixture's bedrooms average 3, so a 3-bedroom record scales to 0 and
	// a 4-bedroom record above it.
	a := constantModel(t, 1000000)
	for i, name := range a.Features {
		if name == dataset.ColBedroom {
			a.Linear.Coefficients[i] = 100000
		}
	}
	fx := newFixture(t, a)
	svc := fx.service(config.ModeRefit)

	est, err := svc.Estimate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.InDelta(t, 1000000, est.Price, 1e-6)

	bigger := sampleInput()
	bigger.Bedroom = 4
	est, err = svc.Estimate(context.Background(), bigger)
	require.NoError(t, err)
	assert.Greater(t, est.Price, 1000000.0)
	assert.Regexp(t, regexp.MustCompile(`^\$\d{1,3}(,\d{3})*$`), est.Display)
}

func TestEstimatePersisted(t *testing.T) {
	fx := newFixture(t, constantModel(t, 850000))

	_, err := FitPreprocessor(fx.reference, fx.model)
	require.NoError(t, err)

	est, err := fx.service(config.ModePersisted).Estimate(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, "$850,000", est.Display)
	assert.Equal(t, config.ModePersisted, est.Mode)
	assert.Equal(t, modelFeatures(t), est.Features.Columns)
}

func TestEstimatePersistedIsDeterministic(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))
	_, err := FitPreprocessor(fx.reference, fx.model)
	require.NoError(t, err)
	svc := fx.service(config.ModePersisted)

	first, err := svc.Estimate(context.Background(), sampleInput())
	require.NoError(t, err)
	second, err := svc.Estimate(context.Background(), sampleInput())
	require.NoError(t, err)

	assert.Equal(t, first.Features, second.Features)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestEstimatePersistedWithoutPreprocessor(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))

	est, err := fx.service(config.ModePersisted).Estimate(context.Background(), sampleInput())
	assert.Nil(t, est)
	assert.ErrorIs(t, err, ErrNoPreprocessor)
	assert.ErrorIs(t, err, regressor.ErrArtifactLoad)
}

func TestEstimateMissingModel(t *testing.T) {
	fx := newFixture(t, nil)

	for _, mode := range []string{config.ModeRefit, config.ModePersisted} {
		est, err := fx.service(mode).Estimate(context.Background(), sampleInput())
		assert.Nil(t, est, mode)
		assert.ErrorIs(t, err, regressor.ErrArtifactLoad, mode)
	}
}

func TestEstimateMissingReference(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))
	fx.reference = filepath.Join(fx.dir, "missing.csv")

	_, err := fx.service(config.ModeRefit).Estimate(context.Background(), sampleInput())
	assert.ErrorIs(t, err, dataset.ErrLoad)
}

func TestEstimateIncompleteReference(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))
	// drop the only Parkade row
	rows := datasettest.Rows()
	rows = append(rows[:2], rows[3:]...)
	fx.reference = datasettest.WriteCSV(t, fx.dir, "partial.csv", rows)

	_, err := fx.service(config.ModeRefit).Estimate(context.Background(), sampleInput())
	assert.ErrorIs(t, err, dataset.ErrCoverage)
	assert.Equal(t, metrics.OutcomeResourceError, Outcome(err))
}

func TestEstimateSchemaMismatch(t *testing.T) {
	a := constantModel(t, 1)
	for i, name := range a.Features {
		if name == "Type_Townhouse" {
			a.Features[i] = "Type_t"
		}
	}
	fx := newFixture(t, a)

	est, err := fx.service(config.ModeRefit).Estimate(context.Background(), sampleInput())
	assert.Nil(t, est)
	assert.ErrorIs(t, err, regressor.ErrSchemaMismatch)
	assert.Equal(t, metrics.OutcomeSchemaMismatch, Outcome(err))
}

func TestEstimateInvalidInput(t *testing.T) {
	fx := newFixture(t, nil)

	tests := []struct {
		name   string
		modify func(*property.InputRecord)
	}{
		{"unknown type", func(r *property.InputRecord) { r.PropertyType = "Villa" }},
		{"unknown suburb", func(r *property.InputRecord) { r.Suburb = "Toorak" }},
		{"too many bedrooms", func(r *property.InputRecord) { r.Bedroom = 7 }},
		{"sale date", func(r *property.InputRecord) { r.SaleDate = time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := sampleInput()
			tt.modify(&in)
			// missing model is never reached
			_, err := fx.service(config.ModeRefit).Estimate(context.Background(), in)
			assert.ErrorIs(t, err, property.ErrInvalidInput)
			assert.Equal(t, metrics.OutcomeInvalidInput, Outcome(err))
		})
	}
}

func TestEstimateCancelled(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.service(config.ModeRefit).Estimate(ctx, sampleInput())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateRecordsMetrics(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1250000))
	reg := prometheus.NewRegistry()
	svc := NewService(Options{
		ModelPath:     fx.model,
		ReferencePath: fx.reference,
		Mode:          config.ModeRefit,
		Metrics:       metrics.NewWithRegistry(reg),
	})

	_, err := svc.Estimate(context.Background(), sampleInput())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "house_price_estimates_total")
	assert.Contains(t, names, "house_price_last_prediction_dollars")
}

func TestFitPreprocessorSchemaMismatch(t *testing.T) {
	a := &regressor.Artifact{
		Kind:     regressor.KindLinear,
		Features: []string{"Bedroom", "Bathroom"},
		Linear:   &regressor.Linear{Coefficients: []float64{1, 1}},
	}
	fx := newFixture(t, a)

	_, err := FitPreprocessor(fx.reference, fx.model)
	assert.ErrorIs(t, err, regressor.ErrSchemaMismatch)

	// artifact left untouched
	loaded, err := regressor.Load(fx.model)
	require.NoError(t, err)
	assert.Nil(t, loaded.Preprocessor)
}

func TestStatus(t *testing.T) {
	fx := newFixture(t, constantModel(t, 1))

	st := fx.service(config.ModeRefit).Status()
	assert.True(t, st.ModelPresent)
	assert.True(t, st.ReferencePresent)
	assert.Equal(t, config.ModeRefit, st.Mode)
	assert.Equal(t, regressor.KindLinear, st.Model["kind"])

	empty := NewService(Options{ModelPath: filepath.Join(fx.dir, "nope.gob")}).Status()
	assert.False(t, empty.ModelPresent)
	assert.False(t, empty.ReferencePresent)
	assert.Equal(t, config.ModePersisted, empty.Mode)
}
