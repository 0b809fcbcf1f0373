package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// prompter asks questions on out and reads the answers from in.
// Invalid answers are rejected and the question is asked again.
type prompter struct {
	sc  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{sc: bufio.NewScanner(in), out: out}
}

var errNoAnswer = errors.New("prompt: no more input")

// ask prints question until accept returns nil for the answer.
func (p *prompter) ask(question string, accept func(answer string) error) error {
	for {
		fmt.Fprintln(p.out, question)
		if !p.sc.Scan() {
			if err := p.sc.Err(); err != nil {
				return err
			}
			return errNoAnswer
		}
		err := accept(strings.TrimSpace(p.sc.Text()))
		if err == nil {
			return nil
		}
		fmt.Fprintf(p.out, "invalid answer: %v\n", err)
	}
}

func (p *prompter) text(question string) (string, error) {
	var val string
	err := p.ask(question, func(s string) error {
		if s == "" {
			return errors.New("empty")
		}
		val = s
		return nil
	})
	return val, err
}

// textOr asks for a value, an empty answer selects def.
func (p *prompter) textOr(question, def string) (string, error) {
	val := def
	err := p.ask(fmt.Sprintf("%s [%s]", question, def), func(s string) error {
		if s != "" {
			val = s
		}
		return nil
	})
	return val, err
}

func (p *prompter) yesNo(question string) (bool, error) {
	var yes bool
	err := p.ask(question+" (y/n)", func(s string) error {
		switch strings.ToLower(s) {
		case "y", "yes":
			yes = true
		case "n", "no":
			yes = false
		default:
			return fmt.Errorf("%q is not y or n", s)
		}
		return nil
	})
	return yes, err
}

func (p *prompter) choice(question string, choices []string) (string, error) {
	var val string
	err := p.ask(fmt.Sprintf("%s (%s)", question, strings.Join(choices, ",")), func(s string) error {
		s = strings.ToLower(s)
		if !slices.Contains(choices, s) {
			return fmt.Errorf("%q is not one of %s", s, strings.Join(choices, ","))
		}
		val = s
		return nil
	})
	return val, err
}

// number asks for a value of the named field and checks it against the field's range.
func (p *prompter) number(field, question string) (*float32, error) {
	var val *float32
	err := p.ask(question, func(s string) error {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fmt.Errorf("%q is not a number", s)
		}
		if err := pressure.CheckRange(field, float64(float32(f))); err != nil {
			return err
		}
		val = pressure.Float32(float32(f))
		return nil
	})
	return val, err
}

// fillDeployment asks for every deployment value that is not in have.
func (p *prompter) fillDeployment(d *pressure.Deployment, have fieldSet) error {
	var err error
	if !have[fieldBaro] {
		if d.IsBarometric, err = p.yesNo("is this a barometric correction dataset?"); err != nil {
			return err
		}
	}
	if !have[fieldPressureUnits] {
		if d.PressureUnits, err = p.choice("what are the pressure units?", pressure.PressureUnits); err != nil {
			return err
		}
	}
	if !have[fieldLatitude] {
		if d.Latitude, err = p.number("Latitude", "what is the latitude (DD) where these data were collected?"); err != nil {
			return err
		}
	}
	if !have[fieldLongitude] {
		if d.Longitude, err = p.number("Longitude", "what is the longitude (DD) where these data were collected?"); err != nil {
			return err
		}
	}
	if !have[fieldAltitude] {
		if d.Altitude, err = p.number("Altitude", "what is the altitude where these data were collected?"); err != nil {
			return err
		}
	}
	if !have[fieldAltitudeUnits] {
		if d.AltitudeUnits, err = p.choice("what are the altitude units?", pressure.AltitudeUnits); err != nil {
			return err
		}
	}
	if !have[fieldSalinity] && !d.IsBarometric {
		if d.Salinity, err = p.number("Salinity", "what is the salinity (ppm or mg/l) where these data were collected?"); err != nil {
			return err
		}
	}
	return nil
}
