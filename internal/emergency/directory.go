package emergency

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// Service labels every well-formed set carries at least Ambulance and Police for.
const (
	LabelAmbulance     = "Ambulance"
	LabelPolice        = "Police"
	LabelWomenHelpline = "Women Helpline"
	LabelFire          = "Fire"
)

//go:embed numbers.json
var embedded []byte

// NumberSet maps a service label to a dialable number.
type NumberSet map[string]string

// Entry is one label/number pair in display order.
type Entry struct {
	Label  string `json:"label"`
	Number string `json:"number"`
}

var labelOrder = []string{LabelAmbulance, LabelPolice, LabelWomenHelpline, LabelFire}

// Entries returns the set in dial-pad order: ambulance, police, helpline,
// fire, then any other labels alphabetically.
func (s NumberSet) Entries() []Entry {
	out := make([]Entry, 0, len(s))
	for _, label := range labelOrder {
		if n, ok := s[label]; ok {
			out = append(out, Entry{Label: label, Number: n})
		}
	}

	rest := make([]string, 0, len(s))
	for label := range s {
		if !slices.Contains(labelOrder, label) {
			rest = append(rest, label)
		}
	}
	slices.Sort(rest)
	for _, label := range rest {
		out = append(out, Entry{Label: label, Number: s[label]})
	}
	return out
}

// Directory is the immutable country code to emergency numbers table. It is
// safe for concurrent use without locking.
type Directory struct {
	defaultCode string
	countries   map[string]NumberSet
}

type document struct {
	Default   string               `json:"default"`
	Countries map[string]NumberSet `json:"countries"`
}

var (
	ErrNoDefault   = errors.New("default country missing from directory")
	ErrMalformed   = errors.New("malformed emergency number set")
	ErrEmptyTable  = errors.New("emergency directory has no countries")
	errBlankNumber = errors.New("blank number")
)

// Parse builds a Directory from its JSON form, rejecting tables whose default
// country is absent or whose sets lack an ambulance or police number.
func Parse(r io.Reader) (*Directory, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode emergency numbers: %w", err)
	}
	if len(doc.Countries) == 0 {
		return nil, ErrEmptyTable
	}

	d := &Directory{
		defaultCode: strings.ToUpper(strings.TrimSpace(doc.Default)),
		countries:   make(map[string]NumberSet, len(doc.Countries)),
	}

	for code, set := range doc.Countries {
		key := strings.ToUpper(strings.TrimSpace(code))
		if err := validateSet(set); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}
		d.countries[key] = maps.Clone(set)
	}

	if _, ok := d.countries[d.defaultCode]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDefault, doc.Default)
	}
	return d, nil
}

func validateSet(set NumberSet) error {
	for _, label := range []string{LabelAmbulance, LabelPolice} {
		if strings.TrimSpace(set[label]) == "" {
			return fmt.Errorf("missing %s", label)
		}
	}
	for label, n := range set {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%w for %s", errBlankNumber, label)
		}
	}
	return nil
}

// New returns the Directory built from the table shipped with the binary.
func New() (*Directory, error) {
	return Parse(bytes.NewReader(embedded))
}

// MustNew is like New but panics; the shipped table is a build invariant.
func MustNew() *Directory {
	d, err := New()
	if err != nil {
		panic(err)
	}
	return d
}

// LoadFile builds a Directory from a JSON file on disk.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open emergency numbers: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// DefaultCountry returns the fallback country code.
func (d *Directory) DefaultCountry() string {
	return d.defaultCode
}

// Countries returns the known country codes, sorted.
func (d *Directory) Countries() []string {
	return slices.Sorted(maps.Keys(d.countries))
}

// Lookup returns the numbers for countryCode (any case), falling back to the
// default country when the code is unknown. It never returns an empty set.
func (d *Directory) Lookup(countryCode string) NumberSet {
	set, _ := d.Resolve(countryCode)
	return set
}

// Resolve is Lookup that also reports which country's numbers were returned.
func (d *Directory) Resolve(countryCode string) (NumberSet, string) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if set, ok := d.countries[code]; ok {
		return maps.Clone(set), code
	}
	return maps.Clone(d.countries[d.defaultCode]), d.defaultCode
}

// WithDefault returns a copy of d that falls back to countryCode. The code
// must already be in the table.
func (d *Directory) WithDefault(countryCode string) (*Directory, error) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if _, ok := d.countries[code]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDefault, countryCode)
	}
	return &Directory{defaultCode: code, countries: d.countries}, nil
}
