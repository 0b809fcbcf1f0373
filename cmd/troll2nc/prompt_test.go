package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

func TestPrompter_FillDeployment(t *testing.T) {
	assert := assert.New(t)
	answers := strings.Join([]string{
		"maybe", "n", // barometric
		"bar", "PSI", // pressure units
		"91", "abc", "30.25", // latitude
		"-88.1",       // longitude
		"1.5",         // altitude
		"Feet",        // altitude units
		"-5", "35000", // salinity
	}, "\n")
	var out bytes.Buffer
	p := newPrompter(strings.NewReader(answers), &out)

	var d pressure.Deployment
	require.NoError(t, p.fillDeployment(&d, fieldSet{}))
	assert.False(d.IsBarometric)
	assert.Equal("psi", d.PressureUnits)
	lat, lon, alt := d.Position()
	assert.Equal(float32(30.25), lat)
	assert.Equal(float32(-88.1), lon)
	assert.Equal(float32(1.5), alt)
	assert.Equal("feet", d.AltitudeUnits)
	require.NotNil(t, d.Salinity)
	assert.Equal(float32(35000), *d.Salinity)

	assert.Equal(5, strings.Count(out.String(), "invalid answer"))
	assert.Contains(out.String(), "what are the pressure units? (psi,pascals,atm)")
}

func TestPrompter_FillDeploymentBaroSkipsSalinity(t *testing.T) {
	p := newPrompter(strings.NewReader("y\n"), &bytes.Buffer{})
	d := pressure.Deployment{PressureUnits: "atm"}
	have := fieldSet{
		fieldPressureUnits: true, fieldLatitude: true, fieldLongitude: true,
		fieldAltitude: true, fieldAltitudeUnits: true,
	}
	require.NoError(t, p.fillDeployment(&d, have))
	assert.True(t, d.IsBarometric)
	assert.Nil(t, d.Salinity)
	assert.Equal(t, "atm", d.PressureUnits)
}

func TestPrompter_NoMoreInput(t *testing.T) {
	p := newPrompter(strings.NewReader("95\n"), &bytes.Buffer{})
	_, err := p.number("Latitude", "latitude?")
	assert.ErrorIs(t, err, errNoAnswer)
}

func TestPrompter_YesNo(t *testing.T) {
	for in, want := range map[string]bool{"y": true, "YES": true, "n": false, "No": false} {
		p := newPrompter(strings.NewReader(in+"\n"), &bytes.Buffer{})
		got, err := p.yesNo("overwrite?")
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

func TestPrompter_TextOr(t *testing.T) {
	p := newPrompter(strings.NewReader("\nother.nc\n"), &bytes.Buffer{})
	got, err := p.textOr("output filename", "a.nc")
	require.NoError(t, err)
	assert.Equal(t, "a.nc", got)
	got, err = p.textOr("output filename", "a.nc")
	require.NoError(t, err)
	assert.Equal(t, "other.nc", got)
}
