// Package engine ties the data model, the real-time player and the command
// surface together. The Model side runs on the caller's goroutine; the
// Player side runs on the audio goroutine; the two share nothing but the
// broker.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
	"github.com/kennonjarvis-debug/dawg/graph"
)

// Config sizes the engine.
type Config struct {
	SampleRate int
	BufferSize int // frames per processing block
	MaxVoices  int
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = dawg.DefaultSampleRate
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1024
	}
	return c
}

// Engine is the top-level object an application embeds.
type Engine struct {
	cfg    Config
	log    *zap.Logger
	broker *Broker
	model  *Model
	player *Player
	cache  *PreviewCache
	disp   *Dispatcher
	audio  dawg.AudioContext
}

func New(cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:    cfg,
		log:    log,
		broker: NewBroker(),
	}
	e.model = NewModel(e.broker, log.Named("model"))
	e.player = NewPlayer(e.broker, log.Named("player"), graph.Config{SampleRate: cfg.SampleRate, MaxVoices: cfg.MaxVoices})
	e.cache = NewPreviewCache(e.broker, log.Named("preview"), func(b *GeneratedBeat) (dawg.AudioBuffer, error) {
		return RenderBeat(context.Background(), b, cfg.SampleRate, 0.5)
	})
	e.disp = NewDispatcher(e.model, e.cache, log.Named("commands"))
	return e
}

func (e *Engine) Model() *Model          { return e.model }
func (e *Engine) Preview() *PreviewCache { return e.cache }
func (e *Engine) Broker() *Broker        { return e.broker }

// Subscribe attaches an observer to the change-event stream.
func (e *Engine) Subscribe(fn Observer) func() { return e.model.Subscribe(fn) }

// Execute runs one command. Transport commands that need audible output are
// rejected with a NotReadyError while the audio context is still pending;
// the caller retries after the ready transition instead of blocking.
func (e *Engine) Execute(cmd Command) (any, error) {
	switch cmd.Op {
	case "transport.play", "beat.select":
		if e.audio != nil && e.audio.State() != dawg.ContextReady {
			return nil, &dawg.NotReadyError{State: e.audio.State()}
		}
	}
	return e.disp.Execute(cmd)
}

// Start attaches an audio context and begins pumping audio once it reports
// ready. Without a Start the engine still works for offline use.
func (e *Engine) Start(audio dawg.AudioContext) {
	e.audio = audio
	go e.run()
}

func (e *Engine) run() {
	<-e.audio.WaitReady()
	if e.audio.State() != dawg.ContextReady {
		e.log.Error("audio context failed to become ready", zap.Stringer("state", e.audio.State()))
		return
	}
	e.log.Info("audio context ready", zap.Int("sampleRate", e.cfg.SampleRate), zap.Int("bufferSize", e.cfg.BufferSize))
	sink := e.audio.Output()
	buf := make(dawg.AudioBuffer, e.cfg.BufferSize)
	for !e.player.Closed() {
		e.player.Process(buf)
		if err := sink.WriteAudio(buf); err != nil {
			e.log.Error("audio sink write failed", zap.Error(err))
			return
		}
	}
}

// RenderOffline exports a region of the current project deterministically.
func (e *Engine) RenderOffline(ctx context.Context, region RenderRegion) (dawg.AudioBuffer, error) {
	proj := e.model.Project()
	return RenderOffline(ctx, &proj, region)
}

// RenderWAV renders a region and encodes it as a 16-bit PCM WAV file.
func (e *Engine) RenderWAV(ctx context.Context, region RenderRegion) ([]byte, error) {
	buf, err := e.RenderOffline(ctx, region)
	if err != nil {
		return nil, err
	}
	return buf.Wav(e.cfg.SampleRate)
}

// ExportSMF writes the current project's MIDI tracks as a standard MIDI
// file.
func (e *Engine) ExportSMF() ([]byte, error) {
	proj := e.model.Project()
	return ExportSMF(&proj)
}

// Close shuts the player down and closes the audio context.
func (e *Engine) Close() error {
	TrySend(e.broker.ClosePlayer, struct{}{})
	TimeoutReceive(e.broker.FinishedPlayer, 3*time.Second)
	if e.audio != nil {
		return e.audio.Close()
	}
	return nil
}
