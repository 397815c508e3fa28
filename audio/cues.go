package audio

import (
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
)

// Cue names a synthesised sound
type Cue int

const (
	CueChargeTick Cue = iota
	CueRollTick
	CueDrumRoll
	CueNearMiss
	CueWin
	CueFanfare
	CueApplause
	CueError
)

// Cue lengths
const (
	chargeTickLength = 120 * time.Millisecond
	rollTickLength   = 60 * time.Millisecond
	drumHitLength    = 110 * time.Millisecond
	stingLength      = 450 * time.Millisecond
	winLength        = 1 * time.Second
	fanfareLength    = 5800 * time.Millisecond
	errorLength      = 150 * time.Millisecond
)

// Volumes are linear gains, 0..1
type Volumes struct {
	Master float64
	SFX    float64
	Music  float64
}

func (v Volumes) sfx() float64   { return clamp01(v.Master) * clamp01(v.SFX) }
func (v Volumes) music() float64 { return clamp01(v.Master) * clamp01(v.Music) }

func clamp01(x float64) float64 { return min(max(x, 0), 1) }

// Synth builds cue streamers; streamers are lazy, samples are produced on playback
type Synth struct {
	rate beep.SampleRate
	vol  Volumes
}

func NewSynth(rate beep.SampleRate, vol Volumes) *Synth {
	return &Synth{rate: rate, vol: vol}
}

// SetVolumes affects cues built afterwards
func (s *Synth) SetVolumes(v Volumes) { s.vol = v }

// membrane is a short sine thump falling two octaves to freq
func membrane(freq float64, at, length time.Duration, gain float64) tone {
	return tone{wave: sine, from: freq * 4, to: freq, at: at, length: length, attack: time.Millisecond, release: length * 3 / 4, gain: gain}
}

// ChargeTick rises in pitch as the meter fills
func (s *Synth) ChargeTick(level int) beep.Streamer {
	pitch := 40 + float64(level)*1.5
	return s.cue(s.vol.sfx(), membrane(pitch, 0, chargeTickLength, 1))
}

// RollTick is the low C1 click on each reveal step
func (s *Synth) RollTick() beep.Streamer {
	return s.cue(s.vol.sfx(), membrane(NoteFreq("C1"), 0, rollTickLength, 0.6))
}

// DrumRoll is five quick membrane hits alternating C2 and G1
func (s *Synth) DrumRoll() beep.Streamer {
	hits := make([]tone, 0, 5)
	for i, note := range []string{"C2", "C2", "G1", "C2", "G1"} {
		hits = append(hits, membrane(NoteFreq(note), time.Duration(i)*50*time.Millisecond, drumHitLength, 1))
	}
	return s.cue(s.vol.sfx(), hits...)
}

// NearMissSting is a falling minor second
func (s *Synth) NearMissSting() beep.Streamer {
	return s.cue(s.vol.sfx(),
		tone{wave: square, from: NoteFreq("E5"), length: 200 * time.Millisecond, attack: 5 * time.Millisecond, release: 120 * time.Millisecond, gain: 0.5},
		tone{wave: square, from: NoteFreq("D#5"), at: 200 * time.Millisecond, length: stingLength - 200*time.Millisecond, attack: 5 * time.Millisecond, release: 200 * time.Millisecond, gain: 0.5},
	)
}

// WinChord is C major for a regular prize
func (s *Synth) WinChord() beep.Streamer {
	return s.cue(s.vol.music(), chord([]string{"C4", "E4", "G4"}, 0, winLength, 10*time.Millisecond, 600*time.Millisecond)...)
}

// Applause is a burst of short noise claps
func (s *Synth) Applause() beep.Streamer {
	claps := make([]tone, 0, 20)
	for i := range 20 {
		claps = append(claps, tone{
			wave: noise, at: time.Duration(i) * 30 * time.Millisecond, length: 100 * time.Millisecond,
			attack: 10 * time.Millisecond, release: 90 * time.Millisecond, gain: 0.2,
		})
	}
	return s.cue(s.vol.sfx(), claps...)
}

// Fanfare is the final-prize celebration: a whoosh, firework crackles, then three chords
// Effects and chords sit on different buses so sfx and music volumes apply separately.
func (s *Synth) Fanfare() beep.Streamer {
	fx := []tone{{wave: noise, length: 300 * time.Millisecond, attack: 5 * time.Millisecond, release: 295 * time.Millisecond, gain: 0.5}}
	for range 10 {
		at := 300*time.Millisecond + time.Duration(rand.Int64N(int64(500*time.Millisecond)))
		fx = append(fx, tone{wave: square, from: 200 * 5.1, at: at, length: 60 * time.Millisecond, attack: time.Millisecond, release: 50 * time.Millisecond, gain: 0.3})
	}

	var music []tone
	for _, c := range []struct {
		notes  []string
		at     time.Duration
		length time.Duration
	}{
		{[]string{"C4", "G4", "C5", "E5"}, 800 * time.Millisecond, 2 * time.Second},
		{[]string{"F4", "A4", "C5", "F5"}, 1800 * time.Millisecond, 2 * time.Second},
		{[]string{"G4", "B4", "D5", "G5"}, 2800 * time.Millisecond, 3 * time.Second},
	} {
		music = append(music, chord(c.notes, c.at, c.length, 20*time.Millisecond, c.length/2)...)
	}
	return beep.Take(s.rate.N(fanfareLength), beep.Mix(s.cue(s.vol.sfx(), fx...), s.cue(s.vol.music(), music...)))
}

// ErrorBuzz is a short saw buzz for rejected commands
func (s *Synth) ErrorBuzz() beep.Streamer {
	return s.cue(s.vol.sfx(), tone{wave: saw, from: 100, length: errorLength, attack: 5 * time.Millisecond, release: 50 * time.Millisecond, gain: 0.5})
}

// Build returns the streamer for c
func (s *Synth) Build(c Cue, level int) beep.Streamer {
	switch c {
	case CueChargeTick:
		return s.ChargeTick(level)
	case CueRollTick:
		return s.RollTick()
	case CueDrumRoll:
		return s.DrumRoll()
	case CueNearMiss:
		return s.NearMissSting()
	case CueWin:
		return s.WinChord()
	case CueFanfare:
		return s.Fanfare()
	case CueApplause:
		return s.Applause()
	case CueError:
		return s.ErrorBuzz()
	}
	return nil
}
