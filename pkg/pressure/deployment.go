package pressure

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// FillValue marks "no data" in float32 output variables.
const FillValue float32 = -1.0e+10

// Range is an inclusive interval.
type Range struct {
	Min, Max float64
}

// Contains reports whether Min <= v <= Max.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Valid ranges of the deployment values, keyed by field name.
var (
	LatitudeRange  = Range{-90, 90}
	LongitudeRange = Range{-180, 180}
	AltitudeRange  = Range{-10000, 10000}
	SalinityRange  = Range{0, 40000}
	PressureRange  = Range{-10000, 10000}

	ranges = map[string]Range{
		"Latitude":  LatitudeRange,
		"Longitude": LongitudeRange,
		"Altitude":  AltitudeRange,
		"Salinity":  SalinityRange,
		"Pressure":  PressureRange,
	}
)

// Supported units.
var (
	PressureUnits = []string{"psi", "pascals", "atm"}
	AltitudeUnits = []string{"meters", "feet"}
)

// DefaultDatum is the vertical datum assumed for altitudes.
const DefaultDatum = "NAVD88"

// Deployment describes where and how a logger was deployed.
// The zero value is not valid, use Validate before accepting a deployment.
type Deployment struct {
	Latitude      *float32 `yaml:"latitude" json:"latitude" validate:"required,bounds"`   // Decimal degrees north.
	Longitude     *float32 `yaml:"longitude" json:"longitude" validate:"required,bounds"` // Decimal degrees east.
	Altitude      *float32 `yaml:"altitude" json:"altitude" validate:"required,bounds"`
	AltitudeUnits string   `yaml:"altitude_units" json:"altitudeUnits" validate:"oneof=meters feet"`
	Datum         string   `yaml:"datum" json:"datum"`
	PressureUnits string   `yaml:"pressure_units" json:"pressureUnits" validate:"oneof=psi pascals atm"`
	Salinity      *float32 `yaml:"salinity_ppm" json:"salinityPPM,omitempty" validate:"omitempty,bounds"` // Parts per million.
	IsBarometric  bool     `yaml:"barometric" json:"barometric"`
}

// CheckRange validates a single value of the named field ("Latitude", "Salinity", ...).
func CheckRange(field string, v float64) error {
	r, ok := ranges[field]
	if !ok {
		return fmt.Errorf("no range defined for %q", field)
	}
	if !r.Contains(v) {
		return &RangeError{Field: field, Value: v, Range: r}
	}
	return nil
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

func valueOrFill(p *float32) float32 {
	if p == nil {
		return FillValue
	}
	return *p
}

// SalinityValue returns the salinity or FillValue if unknown.
func (d Deployment) SalinityValue() float32 {
	return valueOrFill(d.Salinity)
}

// Position returns latitude, longitude and altitude. Unknown values are FillValue.
func (d Deployment) Position() (lat, lon, alt float32) {
	return valueOrFill(d.Latitude), valueOrFill(d.Longitude), valueOrFill(d.Altitude)
}

// Normalize lower-cases the units and sets the default datum.
func (d *Deployment) Normalize() {
	d.PressureUnits = strings.ToLower(strings.TrimSpace(d.PressureUnits))
	d.AltitudeUnits = strings.ToLower(strings.TrimSpace(d.AltitudeUnits))
	d.Datum = strings.TrimSpace(d.Datum)
	if d.Datum == "" {
		d.Datum = DefaultDatum
	}
}

// use a single instance of Validate, it caches struct info
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("bounds", func(fl validator.FieldLevel) bool {
		r, ok := ranges[fl.StructFieldName()]
		if !ok {
			return false
		}
		return r.Contains(fl.Field().Float())
	})
	return v
}

// Validate checks all values of the deployment. Values are never clamped.
// Salinity is required unless it is a barometric correction dataset.
func (d Deployment) Validate() error {
	var errs []error
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	if d.Salinity == nil && !d.IsBarometric {
		errs = append(errs, errors.New("Salinity: required for non-barometric datasets"))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	if fe.Tag() == "bounds" {
		return &RangeError{Field: fe.StructField(), Value: toFloat(fe.Value()), Range: ranges[fe.StructField()]}
	}
	if fe.Tag() == "required" {
		return fmt.Errorf("%s: required", fe.StructField())
	}
	if fe.Tag() == "oneof" {
		return fmt.Errorf("%s: %q is not one of [%s]", fe.StructField(), fe.Value(), fe.Param())
	}
	return fmt.Errorf("%s: failed on %q", fe.StructField(), fe.Tag())
}

func toFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float32:
		return float64(f)
	case *float32:
		if f != nil {
			return float64(*f)
		}
	case float64:
		return f
	}
	return 0
}

// LoadDeployment reads a deployment description from a YAML file.
// The result is normalized but not validated.
func LoadDeployment(path string) (Deployment, error) {
	var d Deployment
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("reading deployment file: %w", err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parsing deployment file %s: %w", path, err)
	}
	d.Normalize()
	return d, nil
}
