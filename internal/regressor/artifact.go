package regressor

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/kartoza/house-price-estimator/internal/features"
)

var (
	// ErrArtifactLoad marks a model artifact that is missing, unreadable or inconsistent
	ErrArtifactLoad = errors.New("model artifact load failed")
	// ErrSchemaMismatch marks an encoded row whose columns differ from the model's features
	ErrSchemaMismatch = errors.New("feature schema mismatch")
)

// FormatVersion is written into every saved artifact
const FormatVersion = 1

// Kind selects the model payload of an artifact
type Kind string

const (
	KindLinear  Kind = "linear"
	KindMLP     Kind = "mlp"
	KindForest  Kind = "forest"
	KindBoosted Kind = "boosted"
)

// Artifact is a trained regression model plus the feature schema it was
// trained on. Exactly one payload matching Kind is set.
type Artifact struct {
	Version     int
	Kind        Kind
	Features    []string
	Description string
	FittedAt    time.Time

	Linear  *Linear
	MLP     *MLP
	Forest  *TreeEnsemble
	Boosted *TreeEnsemble

	// Preprocessor is the encoder and scaler state fitted offline. Artifacts
	// used only with per-request refitting may leave it nil.
	Preprocessor *features.Preprocessor
}

// Load reads and checks an artifact from disk
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactLoad, err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrArtifactLoad, path, err)
	}
	if err := a.Check(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrArtifactLoad, path, err)
	}
	return &a, nil
}

// Save writes the artifact to disk
func (a *Artifact) Save(path string) error {
	if err := a.Check(); err != nil {
		return fmt.Errorf("refusing to save artifact: %w", err)
	}
	if a.Version == 0 {
		a.Version = FormatVersion
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(a); err != nil {
		f.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	return f.Close()
}

// Check verifies that the payload matches the kind and the feature count
func (a *Artifact) Check() error {
	if a.Version > FormatVersion {
		return fmt.Errorf("artifact version %d is newer than supported version %d", a.Version, FormatVersion)
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("artifact has no features")
	}
	seen := make(map[string]bool, len(a.Features))
	for _, name := range a.Features {
		if seen[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
	}

	n := len(a.Features)
	switch a.Kind {
	case KindLinear:
		if a.Linear == nil {
			return fmt.Errorf("linear artifact without linear payload")
		}
		return a.Linear.check(n)
	case KindMLP:
		if a.MLP == nil {
			return fmt.Errorf("mlp artifact without mlp payload")
		}
		return a.MLP.check(n)
	case KindForest:
		if a.Forest == nil {
			return fmt.Errorf("forest artifact without tree payload")
		}
		return a.Forest.check(n)
	case KindBoosted:
		if a.Boosted == nil {
			return fmt.Errorf("boosted artifact without tree payload")
		}
		return a.Boosted.check(n)
	default:
		return fmt.Errorf("unknown model kind %q", a.Kind)
	}
}

// Predict aligns the row to the model's features by name and evaluates the
// model. The result is returned as is.
func (a *Artifact) Predict(row features.EncodedRow) (float64, error) {
	x, err := a.Align(row)
	if err != nil {
		return 0, err
	}

	switch a.Kind {
	case KindLinear:
		return a.Linear.predict(x), nil
	case KindMLP:
		return a.MLP.predict(x)
	case KindForest:
		return a.Forest.mean(x), nil
	case KindBoosted:
		return a.Boosted.boosted(x), nil
	default:
		return 0, fmt.Errorf("unknown model kind %q", a.Kind)
	}
}

// Align returns the row's values in the model's feature order. Any missing
// or unexpected column is a schema mismatch.
func (a *Artifact) Align(row features.EncodedRow) ([]float64, error) {
	values := make(map[string]float64, len(row.Columns))
	for i, name := range row.Columns {
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrSchemaMismatch, name)
		}
		values[name] = row.Values[i]
	}

	var missing, unexpected []string
	x := make([]float64, len(a.Features))
	for i, name := range a.Features {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		x[i] = v
	}
	for _, name := range row.Columns {
		if !slices.Contains(a.Features, name) {
			unexpected = append(unexpected, name)
		}
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(missing)
		sort.Strings(unexpected)
		return nil, fmt.Errorf("%w: missing [%s], unexpected [%s]", ErrSchemaMismatch,
			strings.Join(missing, ", "), strings.Join(unexpected, ", "))
	}
	return x, nil
}

// GetConfig summarises the artifact for the info endpoint
func (a *Artifact) GetConfig() map[string]interface{} {
	info := map[string]interface{}{
		"kind":             a.Kind,
		"version":          a.Version,
		"num_features":     len(a.Features),
		"has_preprocessor": a.Preprocessor != nil,
	}
	if a.Description != "" {
		info["description"] = a.Description
	}
	if !a.FittedAt.IsZero() {
		info["fitted_at"] = a.FittedAt.UTC().Format(time.RFC3339)
	}
	return info
}
