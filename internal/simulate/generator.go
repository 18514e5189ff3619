package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/attendance/internal/domain/model"
)

// spacing keeps any two synthetic faces far beyond a match.
const spacing = 10

// Profile is one synthetic person.
type Profile struct {
	Name string
	Base model.Descriptor
}

// Frame is one camera capture of a profile.
type Frame struct {
	Profile    int
	RequestID  string
	Descriptor model.Descriptor
}

// generateProfiles places each person on its own axis, so distinct people
// are at least spacing apart.
func generateProfiles(cfg Config) []Profile {
	profiles := make([]Profile, cfg.Identities)
	for i := range profiles {
		base := make(model.Descriptor, cfg.DescriptorLength)
		base[i%cfg.DescriptorLength] = float32(spacing * (i/cfg.DescriptorLength + 1))
		profiles[i] = Profile{
			Name: fmt.Sprintf("%s-%04d", cfg.Prefix, i),
			Base: base,
		}
	}
	return profiles
}

// generateFrames jitters every profile Frames times, interleaving people the
// way a queue in front of a kiosk would.
func generateFrames(cfg Config, profiles []Profile) []Frame {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data
	frames := make([]Frame, 0, len(profiles)*cfg.Frames)
	for round := 0; round < cfg.Frames; round++ {
		for i, p := range profiles {
			d := p.Base.Clone()
			for k := range d {
				d[k] += float32((rng.Float64()*2 - 1) * cfg.Noise)
			}
			frames = append(frames, Frame{
				Profile:    i,
				RequestID:  fmt.Sprintf("%s-%04d-%04d", cfg.Prefix, i, round),
				Descriptor: d,
			})
		}
	}
	return frames
}
