package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// Deployment values, named by their key in the deployment file.
const (
	fieldLatitude      = "latitude"
	fieldLongitude     = "longitude"
	fieldAltitude      = "altitude"
	fieldAltitudeUnits = "altitude_units"
	fieldDatum         = "datum"
	fieldPressureUnits = "pressure_units"
	fieldSalinity      = "salinity_ppm"
	fieldBaro          = "barometric"
)

// flagFields maps command line flags to deployment values.
var flagFields = map[string]string{
	"lat":            fieldLatitude,
	"lon":            fieldLongitude,
	"alt":            fieldAltitude,
	"alt-units":      fieldAltitudeUnits,
	"datum":          fieldDatum,
	"pressure-units": fieldPressureUnits,
	"salinity":       fieldSalinity,
	"baro":           fieldBaro,
}

// fieldSet holds the deployment values that were given explicitly.
type fieldSet map[string]bool

// metaKeys returns the keys present in the deployment file at path.
func metaKeys(path string) (fieldSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]yaml.Node
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("deployment file %s: %w", path, err)
	}
	keys := make(fieldSet, len(m))
	for k := range m {
		keys[k] = true
	}
	return keys, nil
}

// deploymentFromContext reads the deployment file given by --meta and applies the flags on top.
func deploymentFromContext(c *cli.Context) (pressure.Deployment, fieldSet, error) {
	var d pressure.Deployment
	have := fieldSet{}
	if path := c.String("meta"); path != "" {
		var err error
		if d, err = pressure.LoadDeployment(path); err != nil {
			return d, nil, err
		}
		if have, err = metaKeys(path); err != nil {
			return d, nil, err
		}
	}

	for name, field := range flagFields {
		if c.IsSet(name) {
			have[field] = true
		}
	}
	if c.IsSet("lat") {
		d.Latitude = pressure.Float32(float32(c.Float64("lat")))
	}
	if c.IsSet("lon") {
		d.Longitude = pressure.Float32(float32(c.Float64("lon")))
	}
	if c.IsSet("alt") {
		d.Altitude = pressure.Float32(float32(c.Float64("alt")))
	}
	if c.IsSet("alt-units") || d.AltitudeUnits == "" {
		d.AltitudeUnits = c.String("alt-units")
	}
	if c.IsSet("datum") || d.Datum == "" {
		d.Datum = c.String("datum")
	}
	if c.IsSet("pressure-units") {
		d.PressureUnits = c.String("pressure-units")
	}
	if c.IsSet("salinity") {
		d.Salinity = pressure.Float32(float32(c.Float64("salinity")))
	}
	if c.IsSet("baro") {
		d.IsBarometric = c.Bool("baro")
	}
	d.Normalize()
	return d, have, nil
}
