// Package seed loads a YAML fixture of stations, profiles, and blank
// progress records into the store at startup. This is the out-of-band
// provisioning path; the engine itself never creates these documents.
package seed

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
)

// Sentinel kinds for fixture errors.
var (
	ErrLoadFixture    = errors.New("load fixture failed")
	ErrInvalidFixture = errors.New("invalid fixture")
)

// Fixture is the YAML shape of a seed file.
type Fixture struct {
	Stations []model.Station  `koanf:"stations"`
	Profiles []model.Profile  `koanf:"profiles"`
	Progress []model.Progress `koanf:"progress"`
}

// Target is the provisioning surface a fixture is applied to.
type Target interface {
	PutStation(model.Station)
	PutProfile(model.Profile)
	PutProgress(model.Progress)
}

// Load reads and validates a fixture file.
func Load(path string) (Fixture, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Fixture{}, fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}

	var f Fixture
	if err := k.UnmarshalWithConf("", &f, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Fixture{}, fmt.Errorf("%w: %w", ErrLoadFixture, err)
	}

	if err := f.validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Apply provisions every document in the fixture. Progress records with
// no level start at developing.
func Apply(target Target, f Fixture) {
	for _, st := range f.Stations {
		target.PutStation(st)
	}
	for _, p := range f.Profiles {
		target.PutProfile(p)
	}
	for _, p := range f.Progress {
		p.Level = level.Parse(string(p.Level))
		target.PutProgress(p)
	}
}

func (f Fixture) validate() error {
	stations := make(map[string]bool, len(f.Stations))
	for _, st := range f.Stations {
		if st.ID == "" {
			return fmt.Errorf("%w: station with empty id", ErrInvalidFixture)
		}
		if stations[st.ID] {
			return fmt.Errorf("%w: duplicate station %q", ErrInvalidFixture, st.ID)
		}
		stations[st.ID] = true
	}

	profiles := make(map[string]bool, len(f.Profiles))
	for _, p := range f.Profiles {
		if p.ID == "" {
			return fmt.Errorf("%w: profile with empty id", ErrInvalidFixture)
		}
		profiles[p.ID] = true
	}

	for _, p := range f.Progress {
		switch {
		case p.ID == "":
			return fmt.Errorf("%w: progress with empty id", ErrInvalidFixture)
		case p.TraineeID == "" || p.StationID == "":
			return fmt.Errorf("%w: progress %q missing trainee or station", ErrInvalidFixture, p.ID)
		case !stations[p.StationID]:
			return fmt.Errorf("%w: progress %q references unknown station %q", ErrInvalidFixture, p.ID, p.StationID)
		}
	}

	return nil
}
