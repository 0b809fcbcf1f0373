package pressure

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Job is a single conversion of Input to Output using Deployment.
type Job struct {
	Input      string
	Output     string
	Deployment Deployment
}

// Converter runs conversions from a Reader into a Sink.
// The zero values of Clock, Log, Metrics and NewID are replaced by defaults.
type Converter struct {
	Reader  Reader
	Sink    Sink
	Program string // Name written into the history attribute.

	// Compress gzips each output after it was written.
	Compress bool

	Clock   clockwork.Clock
	Log     logrus.FieldLogger
	Metrics *Metrics
	NewID   func() string
}

func (c *Converter) clock() clockwork.Clock {
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return c.Clock
}

func (c *Converter) log() logrus.FieldLogger {
	if c.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		c.Log = l
	}
	return c.Log
}

func (c *Converter) newID() string {
	if c.NewID == nil {
		return uuid.NewString()
	}
	return c.NewID()
}

// Convert runs one job. Nothing is written unless the input was read
// completely and the deployment is valid. With Compress the output is
// replaced by Output+".gz".
func (c *Converter) Convert(job Job) (*Record, error) {
	if c.Reader == nil || c.Sink == nil {
		return nil, errors.New("converter: reader and sink are required")
	}

	outputs := []string{job.Output}
	if c.Compress {
		outputs = append(outputs, job.Output+".gz")
	}
	for _, out := range outputs {
		if _, err := os.Stat(out); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputExists, out)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("check output %s: %w", out, err)
		}
	}

	dep := job.Deployment
	dep.Normalize()
	if err := dep.Validate(); err != nil {
		return nil, fmt.Errorf("deployment: %w", err)
	}

	series, err := c.Reader.Load(job.Input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", job.Input, err)
	}
	for _, w := range series.Warnings {
		c.log().WithField("input", job.Input).Warn(w)
	}

	program := c.Program
	if program == "" {
		program = "trollnc"
	}
	rec, err := NewRecord(series, dep, c.newID(), program, c.clock().Now())
	if err != nil {
		return nil, err
	}

	if err := c.Sink.Write(job.Output, rec); err != nil {
		return nil, fmt.Errorf("write %s: %w", job.Output, err)
	}
	if c.Compress {
		if _, err := CompressFile(job.Output); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCompress, err)
		}
	}
	return rec, nil
}

// Result is the outcome of one job of a batch.
type Result struct {
	Job     Job
	Samples int
	Err     error
}

// Report summarises a batch.
type Report struct {
	Results []Result
	Failed  int
}

// Err returns the errors of all failed jobs joined, or nil.
func (r Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Job.Input, res.Err))
		}
	}
	return errors.Join(errs...)
}

// Run converts all jobs in sequence. A failing job does not stop the batch.
func (c *Converter) Run(jobs []Job) Report {
	var rep Report
	for _, job := range jobs {
		res := c.runOne(job)
		if res.Err != nil {
			rep.Failed++
		}
		rep.Results = append(rep.Results, res)
	}
	return rep
}

func (c *Converter) runOne(job Job) Result {
	log := c.log().WithFields(logrus.Fields{"input": job.Input, "output": job.Output})
	start := c.clock().Now()
	log.Debug("converting")

	rec, err := c.Convert(job)
	elapsed := c.clock().Since(start)
	if err != nil {
		reason := Reason(err)
		log.WithError(err).WithField("reason", reason).Error("conversion failed")
		if c.Metrics != nil {
			c.Metrics.FilesFailed.WithLabelValues(reason).Inc()
		}
		return Result{Job: job, Err: err}
	}

	log.WithFields(logrus.Fields{"samples": rec.Len(), "duration_ms": elapsed.Milliseconds()}).Info("converted")
	if c.Metrics != nil {
		c.Metrics.FilesConverted.Inc()
		c.Metrics.Samples.Add(float64(rec.Len()))
		c.Metrics.Duration.Observe(elapsed.Seconds())
	}
	return Result{Job: job, Samples: rec.Len()}
}
