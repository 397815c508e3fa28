package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

type wave uint8

const (
	sine wave = iota
	square
	saw
	triangle
	noise
)

// tone is one enveloped voice inside a cue
type tone struct {
	wave    wave
	from    float64       // Hz at onset
	to      float64       // Hz at the end, exponential glide; zero holds from
	at      time.Duration // Onset within the cue
	length  time.Duration
	attack  time.Duration // Linear ramp up from silence
	release time.Duration // Linear ramp down to silence, ending with the tone
	gain    float64
}

// voice streams a single tone
type voice struct {
	t       tone
	rate    beep.SampleRate
	total   int
	attack  int
	release int
	pos     int
	phase   float64
}

func newVoice(t tone, rate beep.SampleRate) *voice {
	return &voice{
		t:       t,
		rate:    rate,
		total:   rate.N(t.length),
		attack:  rate.N(t.attack),
		release: rate.N(t.release),
	}
}

func (v *voice) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if v.pos >= v.total {
			return i, i > 0
		}
		val := v.sample() * v.level() * v.t.gain
		samples[i] = [2]float64{val, val}

		v.phase += v.freq() / float64(v.rate)
		v.phase -= math.Floor(v.phase)
		v.pos++
	}
	return len(samples), true
}

func (v *voice) Err() error { return nil }

func (v *voice) sample() float64 {
	switch v.t.wave {
	case square:
		if v.phase < 0.5 {
			return 1
		}
		return -1
	case saw:
		return 2 * (v.phase - 0.5)
	case triangle:
		return 4*math.Abs(v.phase-0.5) - 1
	case noise:
		return rand.Float64()*2 - 1
	}
	return math.Sin(2 * math.Pi * v.phase)
}

func (v *voice) level() float64 {
	if v.pos < v.attack {
		return float64(v.pos) / float64(v.attack)
	}
	if left := v.total - v.pos; left < v.release {
		return float64(left) / float64(v.release)
	}
	return 1
}

func (v *voice) freq() float64 {
	from, to := v.t.from, v.t.to
	if to <= 0 || to == from || from <= 0 {
		return from
	}
	return from * math.Pow(to/from, float64(v.pos)/float64(v.total))
}

// cue mixes tones at their onsets and scales the mix by gain
// The result is cut at the end of the last tone so it always drains.
func (s *Synth) cue(gain float64, tones ...tone) beep.Streamer {
	var end time.Duration
	voices := make([]beep.Streamer, 0, len(tones))
	for _, t := range tones {
		end = max(end, t.at+t.length)
		var st beep.Streamer = newVoice(t, s.rate)
		if t.at > 0 {
			st = beep.Seq(beep.Silence(s.rate.N(t.at)), st)
		}
		voices = append(voices, st)
	}
	mixed := beep.Take(s.rate.N(end), beep.Mix(voices...))
	return &effects.Gain{Streamer: mixed, Gain: clamp01(gain) - 1}
}

// chord is one triangle tone per note, sharing the envelope and splitting gain
func chord(notes []string, at, length, attack, release time.Duration) []tone {
	tones := make([]tone, 0, len(notes))
	for _, n := range notes {
		tones = append(tones, tone{
			wave: triangle, from: NoteFreq(n), at: at, length: length,
			attack: attack, release: release, gain: 1 / float64(len(notes)),
		})
	}
	return tones
}

var semitones = map[byte]int{'C': -9, 'D': -7, 'E': -5, 'F': -4, 'G': -2, 'A': 0, 'B': 2}

// NoteFreq converts scientific pitch notation ("C4", "F#5", "Bb3") to Hz, A4 = 440
// Unknown notes return 0
func NoteFreq(note string) float64 {
	if len(note) < 2 {
		return 0
	}
	offset, ok := semitones[note[0]]
	if !ok {
		return 0
	}
	rest := note[1:]
	switch rest[0] {
	case '#':
		offset++
		rest = rest[1:]
	case 'b':
		offset--
		rest = rest[1:]
	}
	if len(rest) != 1 || rest[0] < '0' || rest[0] > '9' {
		return 0
	}
	octave := int(rest[0] - '0')
	n := offset + (octave-4)*12
	return 440 * math.Pow(2, float64(n)/12)
}
