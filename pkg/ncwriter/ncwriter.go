// Package ncwriter stores pressure records as NetCDF-4 files.
//
// The file layout is:
//
//	dimensions:
//		time = <samples> ;
//	variables:
//		uint64 time(time) ;
//		float latitude ;
//		float longitude ;
//		float altitude ;
//		float pressure(time) ;
//
// Time values are UTC milliseconds since the Unix epoch. The library
// requires cgo and the netCDF C library.
package ncwriter

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// Conventions is written as the global Conventions attribute.
const Conventions = "CF-1.6"

// Writer writes records as NetCDF-4 files. It implements pressure.Sink.
type Writer struct{}

// Ext returns ".nc".
func (Writer) Ext() string { return ".nc" }

// Write creates the file at path and stores rec. It fails if path exists.
// On error the partial file is removed.
func (w Writer) Write(path string, rec *pressure.Record) (err error) {
	times, err := timeValues(rec.Millis)
	if err != nil {
		return err
	}

	ds, err := netcdf.CreateFile(path, netcdf.NOCLOBBER|netcdf.NETCDF4)
	if err != nil {
		if _, serr := os.Stat(path); serr == nil {
			return fmt.Errorf("%w: %s: %v", pressure.ErrOutputExists, path, err)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := ds.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	vars, err := define(ds, rec)
	if err != nil {
		return fmt.Errorf("define %s: %w", path, err)
	}
	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("end define %s: %w", path, err)
	}

	dep := rec.Deployment
	if err := writeData(vars, times, rec.Pressure, dep); err != nil {
		return fmt.Errorf("write data %s: %w", path, err)
	}
	return nil
}

type variables struct {
	time, lat, lon, alt, pres netcdf.Var
}

func timeValues(millis []int64) ([]uint64, error) {
	times := make([]uint64, len(millis))
	for i, ms := range millis {
		if ms < 0 {
			return nil, fmt.Errorf("sample %d: time %d ms before the epoch can not be stored as uint64", i, ms)
		}
		times[i] = uint64(ms)
	}
	return times, nil
}

func define(ds netcdf.Dataset, rec *pressure.Record) (variables, error) {
	var v variables
	dep := rec.Deployment

	dim, err := ds.AddDim("time", uint64(rec.Len()))
	if err != nil {
		return v, err
	}

	if v.time, err = ds.AddVar("time", netcdf.UINT64, []netcdf.Dim{dim}); err != nil {
		return v, err
	}
	if v.lat, err = ds.AddVar("latitude", netcdf.FLOAT, nil); err != nil {
		return v, err
	}
	if v.lon, err = ds.AddVar("longitude", netcdf.FLOAT, nil); err != nil {
		return v, err
	}
	if v.alt, err = ds.AddVar("altitude", netcdf.FLOAT, nil); err != nil {
		return v, err
	}
	if v.pres, err = ds.AddVar("pressure", netcdf.FLOAT, []netcdf.Dim{dim}); err != nil {
		return v, err
	}

	a := &attrs{}
	a.text(v.time, "long_name", "time")
	a.text(v.time, "standard_name", "time")
	a.text(v.time, "units", "milliseconds since "+pressure.Epoch.Format("2006-01-02 15:04:05")+" UTC")
	a.text(v.time, "axis", "T")
	a.text(v.time, "calendar", "gregorian")
	a.text(v.time, "comment", rec.TimeUnits())
	a.uint64s(v.time, "_FillValue", pressure.TimeFillValue)

	a.coordinate(v.lat, "latitude", "degrees_north", pressure.LatitudeRange, rec.FillValue)
	a.coordinate(v.lon, "longitude", "degrees_east", pressure.LongitudeRange, rec.FillValue)
	a.coordinate(v.alt, "altitude", dep.AltitudeUnits, pressure.AltitudeRange, rec.FillValue)
	a.text(v.alt, "positive", "up")
	a.text(v.alt, "datum", dep.Datum)

	a.text(v.pres, "long_name", "pressure")
	a.text(v.pres, "units", dep.PressureUnits)
	a.floats(v.pres, "scale_factor", 1.0)
	a.floats(v.pres, "add_offset", 0.0)
	a.floats(v.pres, "valid_min", float32(pressure.PressureRange.Min))
	a.floats(v.pres, "valid_max", float32(pressure.PressureRange.Max))
	a.floats(v.pres, "_FillValue", rec.FillValue)
	a.text(v.pres, "coordinates", "time latitude longitude altitude")
	a.text(v.pres, "comment", "raw sensor pressure, not corrected for atmospheric pressure")

	a.globalFloats(ds, "salinity_ppm", dep.SalinityValue())
	a.globalText(ds, "time_zone", "UTC")
	a.globalText(ds, "history", rec.History)
	a.globalText(ds, "source", rec.Source)
	a.globalText(ds, "id", rec.ID)
	a.globalText(ds, "is_barometric", strconv.FormatBool(dep.IsBarometric))
	a.globalText(ds, "Conventions", Conventions)
	a.globalText(ds, "date_created", rec.Created.Format("2006-01-02T15:04:05Z"))
	return v, a.err
}

func writeData(v variables, times []uint64, pres []float32, dep pressure.Deployment) error {
	if err := v.time.WriteUint64s(times); err != nil {
		return fmt.Errorf("time: %w", err)
	}
	lat, lon, alt := dep.Position()
	if err := v.lat.WriteFloat32s([]float32{lat}); err != nil {
		return fmt.Errorf("latitude: %w", err)
	}
	if err := v.lon.WriteFloat32s([]float32{lon}); err != nil {
		return fmt.Errorf("longitude: %w", err)
	}
	if err := v.alt.WriteFloat32s([]float32{alt}); err != nil {
		return fmt.Errorf("altitude: %w", err)
	}
	if err := v.pres.WriteFloat32s(pres); err != nil {
		return fmt.Errorf("pressure: %w", err)
	}
	return nil
}

// attrs writes attributes until the first error.
type attrs struct {
	err error
}

func (a *attrs) set(name string, write func() error) {
	if a.err != nil {
		return
	}
	if err := write(); err != nil {
		a.err = fmt.Errorf("attribute %s: %w", name, err)
	}
}

func (a *attrs) text(v netcdf.Var, name, val string) {
	a.set(name, func() error { return v.Attr(name).WriteBytes([]byte(val)) })
}

func (a *attrs) floats(v netcdf.Var, name string, vals ...float32) {
	a.set(name, func() error { return v.Attr(name).WriteFloat32s(vals) })
}

func (a *attrs) uint64s(v netcdf.Var, name string, vals ...uint64) {
	a.set(name, func() error { return v.Attr(name).WriteUint64s(vals) })
}

func (a *attrs) globalText(ds netcdf.Dataset, name, val string) {
	a.set(name, func() error { return ds.Attr(name).WriteBytes([]byte(val)) })
}

func (a *attrs) globalFloats(ds netcdf.Dataset, name string, vals ...float32) {
	a.set(name, func() error { return ds.Attr(name).WriteFloat32s(vals) })
}

// coordinate adds the attributes shared by the scalar position variables.
func (a *attrs) coordinate(v netcdf.Var, name, units string, r pressure.Range, fill float32) {
	a.text(v, "long_name", name)
	a.text(v, "standard_name", name)
	a.text(v, "units", units)
	a.floats(v, "valid_min", float32(r.Min))
	a.floats(v, "valid_max", float32(r.Max))
	a.floats(v, "_FillValue", fill)
}
