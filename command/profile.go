package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Profile is a named group of up to two motor commands plus the expected
// execution duration of the movement.
//
// An empty motor command means no command is issued for that motor. A zero
// duration means the execution time is unknown and no busy interlock is
// started for the profile.
type Profile struct {
	Label    string
	M1       Command
	M2       Command
	Duration time.Duration
}

// Profiles is the ordered list of motion profiles loaded at startup.
type Profiles []Profile

// profilesDoc mirrors the on-disk JSON layout of the profile table
// (historically the psdProfiles file).
type profilesDoc struct {
	Profile []struct {
		Label    string  `json:"label"`
		M1       Command `json:"m1"`
		M2       Command `json:"m2"`
		Duration float64 `json:"duration"` // seconds, 0 = unknown
	} `json:"profile"`
}

// LoadProfiles reads and parses the profile table document at path.
func LoadProfiles(path string) (Profiles, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("command: open profile table: %w", err)
	}
	defer f.Close()

	profiles, err := ParseProfiles(f)
	if err != nil {
		return nil, fmt.Errorf("command: parse profile table %s: %w", path, err)
	}

	return profiles, nil
}

// ParseProfiles parses a profile table document from r and validates it.
//
// Labels must be non-empty and unique. Motor commands may be absent, but
// a present command must be terminator-free, and a profile must name at
// least one motor command.
func ParseProfiles(r io.Reader) (Profiles, error) {
	var doc profilesDoc

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	profiles := make(Profiles, 0, len(doc.Profile))
	labels := make(map[string]struct{}, len(doc.Profile))

	for i, p := range doc.Profile {
		if p.Label == "" {
			return nil, fmt.Errorf("command: profile %d has an empty label", i)
		}

		if _, dup := labels[p.Label]; dup {
			return nil, fmt.Errorf("command: duplicate profile label %q", p.Label)
		}
		labels[p.Label] = struct{}{}

		if p.M1 == "" && p.M2 == "" {
			return nil, fmt.Errorf("command: profile %q names no motor command", p.Label)
		}

		for _, cmd := range []Command{p.M1, p.M2} {
			if cmd == "" {
				continue
			}

			if err := cmd.Validate(); err != nil {
				return nil, fmt.Errorf("command: profile %q: %w", p.Label, err)
			}
		}

		if p.Duration < 0 {
			return nil, fmt.Errorf("command: profile %q has a negative duration", p.Label)
		}

		profiles = append(profiles, Profile{
			Label:    p.Label,
			M1:       p.M1,
			M2:       p.M2,
			Duration: time.Duration(p.Duration * float64(time.Second)),
		})
	}

	return profiles, nil
}

// Labels returns the profile labels in load order.
func (ps Profiles) Labels() []string {
	labels := make([]string, len(ps))
	for i, p := range ps {
		labels[i] = p.Label
	}

	return labels
}

// Find returns the profile with the given label.
func (ps Profiles) Find(label string) (Profile, error) {
	for _, p := range ps {
		if p.Label == label {
			return p, nil
		}
	}

	return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, label)
}
