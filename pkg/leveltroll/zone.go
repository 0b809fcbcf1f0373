package leveltroll

import (
	"fmt"
	"strings"
	"time"

	// Zones must resolve the same on every host.
	_ "time/tzdata"

	"github.com/de-bkg/trollnc/pkg/pressure"
)

// ZoneAlias maps a lower-case label prefix to an IANA time zone name.
type ZoneAlias struct {
	Prefix string
	Name   string
}

// DefaultZoneAliases are the time zone labels written by the loggers, in matching order.
var DefaultZoneAliases = []ZoneAlias{
	{"central", "US/Central"},
	{"eastern", "US/Eastern"},
	{"mountain", "US/Mountain"},
	{"pacific", "US/Pacific"},
}

type zoneEntry struct {
	prefix string
	loc    *time.Location
}

// ZoneTable resolves header time zone labels by ordered prefix matching.
type ZoneTable struct {
	entries []zoneEntry
}

// NewZoneTable returns a table with the given aliases followed by DefaultZoneAliases,
// so that an alias can shadow a default prefix. All zones are loaded up front.
func NewZoneTable(aliases ...ZoneAlias) (*ZoneTable, error) {
	all := make([]ZoneAlias, 0, len(aliases)+len(DefaultZoneAliases))
	all = append(all, aliases...)
	all = append(all, DefaultZoneAliases...)

	t := &ZoneTable{entries: make([]zoneEntry, 0, len(all))}
	for _, a := range all {
		prefix := strings.ToLower(strings.TrimSpace(a.Prefix))
		if prefix == "" {
			return nil, fmt.Errorf("zone alias %q: empty prefix", a.Name)
		}
		loc, err := time.LoadLocation(a.Name)
		if err != nil {
			return nil, fmt.Errorf("zone alias %q: %w", prefix, err)
		}
		t.entries = append(t.entries, zoneEntry{prefix: prefix, loc: loc})
	}
	return t, nil
}

var defaultZones *ZoneTable

func init() {
	var err error
	if defaultZones, err = NewZoneTable(); err != nil {
		panic(err)
	}
}

// Resolve returns the location of the first prefix the lower-cased label starts with.
func (t *ZoneTable) Resolve(label string) (*time.Location, error) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower != "" {
		for _, e := range t.entries {
			if strings.HasPrefix(lower, e.prefix) {
				return e.loc, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", pressure.ErrUnknownTimezone, label)
}

// ParseZoneAlias parses an alias given as "prefix=Area/City".
func ParseZoneAlias(s string) (ZoneAlias, error) {
	prefix, name, ok := strings.Cut(s, "=")
	prefix, name = strings.TrimSpace(prefix), strings.TrimSpace(name)
	if !ok || prefix == "" || name == "" {
		return ZoneAlias{}, fmt.Errorf("invalid zone alias %q, want prefix=Area/City", s)
	}
	return ZoneAlias{Prefix: prefix, Name: name}, nil
}
