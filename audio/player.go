// Package audio synthesises draw sound cues with beep and plays them in reaction to engine events.
package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/event"
)

// Config controls playback
type Config struct {
	Enabled    bool
	SampleRate int
	Volumes    Volumes
}

// DefaultConfig plays at 48kHz, music at full and effects at half gain
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		SampleRate: 48000,
		Volumes:    Volumes{Master: 1, SFX: 0.5, Music: 1},
	}
}

// Sink plays streamers
type Sink interface {
	Play(s beep.Streamer)
}

// SpeakerSink mixes cues onto the system speaker
type SpeakerSink struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	closed bool
}

// NewSpeakerSink initialises the speaker at rate
func NewSpeakerSink(rate beep.SampleRate) (*SpeakerSink, error) {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return nil, err
	}
	s := &SpeakerSink{mixer: &beep.Mixer{}}
	speaker.Play(s.mixer)
	return s, nil
}

func (s *SpeakerSink) Play(st beep.Streamer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Close silences everything and releases the device
func (s *SpeakerSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
}

// Silent discards every cue
type Silent struct{}

func (Silent) Play(beep.Streamer) {}

// Player turns engine events into cues
type Player struct {
	synth *Synth
	sink  Sink
	log   zerolog.Logger
}

// NewPlayer plays through sink, or silently when audio is disabled or sink is nil
func NewPlayer(cfg Config, sink Sink, log zerolog.Logger) *Player {
	if !cfg.Enabled || sink == nil {
		sink = Silent{}
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultConfig().SampleRate
	}
	return &Player{
		synth: NewSynth(beep.SampleRate(rate), cfg.Volumes),
		sink:  sink,
		log:   log,
	}
}

// Open creates a player on the system speaker, degrading to silence if init fails
// The returned close function is always non-nil
func Open(cfg Config, log zerolog.Logger) (*Player, func()) {
	if !cfg.Enabled {
		return NewPlayer(cfg, nil, log), func() {}
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultConfig().SampleRate
	}
	sink, err := NewSpeakerSink(beep.SampleRate(rate))
	if err != nil {
		log.Warn().Err(err).Msg("audio unavailable, continuing silently")
		return NewPlayer(cfg, nil, log), func() {}
	}
	return NewPlayer(cfg, sink, log), sink.Close
}

// Attach plays cues for events published on bus
func (p *Player) Attach(bus *event.Bus) func() {
	return bus.Subscribe(p.Handle,
		event.ChargeLevel, event.DrawStarted, event.Tick, event.NearMiss, event.Settled, event.Error)
}

// Handle maps one event to its cues
func (p *Player) Handle(ev event.Event) {
	switch ev.Type {
	case event.ChargeLevel:
		if pl, ok := ev.Payload.(*event.ChargeLevelPayload); ok && pl.Level > 0 {
			p.play(CueChargeTick, pl.Level)
		}
	case event.DrawStarted:
		p.play(CueDrumRoll, 0)
	case event.Tick:
		p.play(CueRollTick, 0)
	case event.NearMiss:
		p.play(CueNearMiss, 0)
	case event.Settled:
		if pl, ok := ev.Payload.(*event.SettledPayload); ok && pl.Final {
			p.play(CueFanfare, 0)
			return
		}
		p.play(CueWin, 0)
		p.play(CueApplause, 0)
	case event.Error:
		p.play(CueError, 0)
	}
}

func (p *Player) play(c Cue, level int) {
	if s := p.synth.Build(c, level); s != nil {
		p.sink.Play(s)
	}
}

// SetVolumes changes gains for later cues
func (p *Player) SetVolumes(v Volumes) {
	p.synth.SetVolumes(v)
}
