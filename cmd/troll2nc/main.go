// troll2nc converts level troll ASCII pressure logs into NetCDF (or Parquet) files
// with UTC timestamps and deployment metadata.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/de-bkg/trollnc/internal/logger"
	"github.com/de-bkg/trollnc/pkg/leveltroll"
	"github.com/de-bkg/trollnc/pkg/ncwriter"
	"github.com/de-bkg/trollnc/pkg/pqwriter"
	"github.com/de-bkg/trollnc/pkg/pressure"
)

const (
	version   = "0.3.0"
	envPrefix = "TROLL2NC_"
)

func main() {
	loadEnvFile(os.Args[1:])
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "troll2nc: %v\n", err)
		os.Exit(1)
	}
}

// loadEnvFile loads defaults from the file given by --env-file, TROLL2NC_ENV_FILE or ".env".
// Variables already set in the environment are kept. A missing file is ignored.
func loadEnvFile(args []string) {
	path := os.Getenv(envPrefix + "ENV_FILE")
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--env-file="); ok {
			path = v
		} else if arg == "--env-file" && i+1 < len(args) {
			path = args[i+1]
		}
	}
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "troll2nc: env file %s: %v\n", path, err)
	}
}

func env(name string) []string {
	return []string{envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))}
}

func newApp(in io.Reader, out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "troll2nc",
		Usage:     "convert level troll pressure logs to NetCDF",
		UsageText: "troll2nc [flags] FILE...",
		Version:   version,
		Reader:    in,
		Writer:    out,
		ErrWriter: errOut,
		Description: `Each FILE is converted to FILE.nc next to the input (or in --out-dir).
Deployment metadata is taken from --meta, the flags and, with -i, interactive prompts.

EXAMPLES:
    $ troll2nc --pressure-units psi --lat 30.25 --lon -88.1 --alt 1.5 --salinity 35000 BB_WELL_07.csv
    $ troll2nc --meta deployment.yaml --out-dir nc/ --gzip logs/*.csv
    $ troll2nc -i BB_WELL_07.csv`,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "baro", Usage: "the file is a barometric correction dataset", EnvVars: env("baro")},
			&cli.StringFlag{Name: "pressure-units", Usage: "pressure units: psi, pascals, atm", EnvVars: env("pressure-units")},
			&cli.Float64Flag{Name: "lat", Usage: "latitude in decimal degrees", EnvVars: env("lat")},
			&cli.Float64Flag{Name: "lon", Usage: "longitude in decimal degrees", EnvVars: env("lon")},
			&cli.Float64Flag{Name: "alt", Usage: "altitude of the logger", EnvVars: env("alt")},
			&cli.StringFlag{Name: "alt-units", Value: "meters", Usage: "altitude units: meters, feet", EnvVars: env("alt-units")},
			&cli.StringFlag{Name: "datum", Value: pressure.DefaultDatum, Usage: "vertical datum of the altitude", EnvVars: env("datum")},
			&cli.Float64Flag{Name: "salinity", Usage: "salinity in ppm, required unless --baro", EnvVars: env("salinity")},
			&cli.StringFlag{Name: "meta", Usage: "read deployment metadata from a YAML `FILE`", EnvVars: env("meta")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output `FILE`, only with a single input"},
			&cli.StringFlag{Name: "out-dir", Usage: "write outputs to `DIR`", EnvVars: env("out-dir")},
			&cli.StringFlag{Name: "format", Value: "nc", Usage: "output format: nc, parquet", EnvVars: env("format")},
			&cli.BoolFlag{Name: "force", Usage: "replace existing outputs", EnvVars: env("force")},
			&cli.BoolFlag{Name: "gzip", Usage: "gzip the outputs", EnvVars: env("gzip")},
			&cli.StringSliceFlag{Name: "zone", Usage: "additional time zone `PREFIX=Area/City`, checked before the built-in zones", EnvVars: env("zone")},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "prompt for missing values and before overwriting"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level", EnvVars: env("log-level")},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "log format: text, json", EnvVars: env("log-format")},
			&cli.StringFlag{Name: "log-file", Usage: "write the log to `FILE` instead of stderr", EnvVars: env("log-file")},
			&cli.IntFlag{Name: "log-max-age", Usage: "rotate the log file and keep it for `DAYS`", EnvVars: env("log-max-age")},
			&cli.StringFlag{Name: "metrics-file", Usage: "write conversion metrics in Prometheus text format to `FILE`", EnvVars: env("metrics-file")},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "load default settings from `FILE`"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	logOut := c.String("log-file")
	if logOut == "" {
		logOut = "stderr"
	}
	log, logCloser, err := logger.New(logger.Options{
		Level:  c.String("log-level"),
		Format: c.String("log-format"),
		Output: logOut,
		MaxAge: c.Int("log-max-age"),
	})
	if err != nil {
		return err
	}
	defer logCloser.Close()
	if logOut == "stderr" {
		log.SetOutput(c.App.ErrWriter)
	}

	sink, err := sinkFor(c.String("format"))
	if err != nil {
		return err
	}
	zones, err := zoneTable(c.StringSlice("zone"))
	if err != nil {
		return err
	}

	var p *prompter
	if c.Bool("interactive") {
		p = newPrompter(c.App.Reader, c.App.Writer)
	}

	inputs := c.Args().Slice()
	if len(inputs) == 0 && p != nil {
		path, err := p.text("level troll filename")
		if err != nil {
			return err
		}
		inputs = []string{path}
	}
	if len(inputs) == 0 {
		return errors.New("no input files given")
	}

	dep, have, err := deploymentFromContext(c)
	if err != nil {
		return err
	}
	if p != nil {
		if err := p.fillDeployment(&dep, have); err != nil {
			return err
		}
	}

	output := c.String("output")
	if p != nil && output == "" && len(inputs) == 1 {
		if output, err = p.textOr("output filename", outputPath(inputs[0], c.String("out-dir"), sink.Ext())); err != nil {
			return err
		}
	}

	jobs, err := buildJobs(inputs, output, c.String("out-dir"), sink.Ext(), dep)
	if err != nil {
		return err
	}
	if err := clearOutputs(jobs, c.Bool("force"), c.Bool("gzip"), p, log); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	conv := &pressure.Converter{
		Reader:   leveltroll.Reader{Zones: zones},
		Sink:     sink,
		Program:  "troll2nc " + version,
		Compress: c.Bool("gzip"),
		Log:      log,
		Metrics:  pressure.NewMetrics(reg),
	}
	rep := conv.Run(jobs)

	if path := c.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			log.WithError(err).Error("write metrics")
		}
	}

	log.WithFields(logrus.Fields{"files": len(rep.Results), "failed": rep.Failed}).Info("done")
	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d files failed:\n%w", rep.Failed, len(rep.Results), rep.Err())
	}
	return nil
}

func sinkFor(format string) (pressure.Sink, error) {
	switch strings.ToLower(format) {
	case "nc", "netcdf":
		return ncwriter.Writer{}, nil
	case "parquet":
		return pqwriter.Writer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func zoneTable(flags []string) (*leveltroll.ZoneTable, error) {
	aliases := make([]leveltroll.ZoneAlias, 0, len(flags))
	for _, s := range flags {
		a, err := leveltroll.ParseZoneAlias(s)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return leveltroll.NewZoneTable(aliases...)
}

// outputPath returns the output of input: the file name without its compression
// and data extensions, with ext added, in dir or next to the input.
func outputPath(input, dir, ext string) string {
	name := filepath.Base(input)
	if leveltroll.IsCompressed(name) {
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name+ext)
}

func buildJobs(inputs []string, output, dir, ext string, dep pressure.Deployment) ([]pressure.Job, error) {
	if output != "" && len(inputs) > 1 {
		return nil, errors.New("--output can only be used with a single input file")
	}
	jobs := make([]pressure.Job, 0, len(inputs))
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		out := output
		if out == "" {
			out = outputPath(in, dir, ext)
		}
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, in, out)
		}
		seen[out] = in
		jobs = append(jobs, pressure.Job{Input: in, Output: out, Deployment: dep})
	}
	return jobs, nil
}

// clearOutputs removes existing outputs if forced or confirmed by the user.
// Outputs that are kept make their job fail later with pressure.ErrOutputExists.
func clearOutputs(jobs []pressure.Job, force, gzip bool, p *prompter, log logrus.FieldLogger) error {
	for _, job := range jobs {
		paths := []string{job.Output}
		if gzip {
			paths = append(paths, job.Output+".gz")
		}
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			remove := force
			if !remove && p != nil {
				yes, err := p.yesNo(fmt.Sprintf("%s exists, overwrite?", path))
				if err != nil {
					return err
				}
				remove = yes
			}
			if !remove {
				continue
			}
			if err := os.Remove(path); err != nil {
				return err
			}
			log.WithField("output", path).Info("removed existing output")
		}
	}
	return nil
}
