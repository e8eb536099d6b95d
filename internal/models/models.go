package models

import (
	"github.com/kartoza/house-price-estimator/internal/features"
	"github.com/kartoza/house-price-estimator/internal/property"
)

// PredictRequest is the JSON body of a prediction request
type PredictRequest struct {
	Suburb       string  `json:"suburb" validate:"required"`
	PropertyType string  `json:"property_type" validate:"required"`
	ParkingArea  string  `json:"parking_area" validate:"required"`
	BuildingArea float64 `json:"building_area"`
	Landsize     float64 `json:"landsize"`
	YearBuilt    int     `json:"year_built"`
	Bedroom      int     `json:"bedroom"`
	Bathroom     int     `json:"bathroom"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	SaleDate     string  `json:"sale_date" validate:"required,datetime=2006-01-02"`
}

// ToInput converts the request into an InputRecord
func (r PredictRequest) ToInput() (property.InputRecord, error) {
	date, err := property.ParseDate(r.SaleDate)
	if err != nil {
		return property.InputRecord{}, err
	}
	return property.InputRecord{
		Suburb:       r.Suburb,
		PropertyType: r.PropertyType,
		ParkingArea:  r.ParkingArea,
		BuildingArea: r.BuildingArea,
		Landsize:     r.Landsize,
		YearBuilt:    r.YearBuilt,
		Bedroom:      r.Bedroom,
		Bathroom:     r.Bathroom,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		SaleDate:     date,
	}, nil
}

// PredictResponse contains the estimate and the derived fields
type PredictResponse struct {
	RequestID       string               `json:"request_id"`
	Price           float64              `json:"price"`
	Display         string               `json:"display"`
	Headline        string               `json:"headline"`
	TypeCode        string               `json:"type_code"`
	BuildingDensity float64              `json:"building_density"`
	Year            int                  `json:"year"`
	Month           int                  `json:"month"`
	Day             int                  `json:"day"`
	EncodingMode    string               `json:"encoding_mode"`
	Features        *features.EncodedRow `json:"features,omitempty"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeValidation       = "validation_error"
	CodeResource         = "resource_unavailable"
	CodeSchemaMismatch   = "schema_mismatch"
	CodeInternal         = "internal_server_error"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
)
