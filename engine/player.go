package engine

import (
	"go.uber.org/zap"

	"github.com/kennonjarvis-debug/dawg"
	"github.com/kennonjarvis-debug/dawg/graph"
)

// lookaheadSeconds is how far past the current block the scheduler runs.
// Wide enough that one late Process call cannot starve the queue, short
// enough that tempo and edit changes land quickly.
const lookaheadSeconds = 0.05

// Player renders audio. It runs on the audio goroutine: Process is called
// once per output block and everything else reaches it as messages through
// the broker, so it never takes a lock.
type Player struct {
	broker *Broker
	log    *zap.Logger
	graph  *graph.Graph

	proj    dawg.Project
	playing bool
	frame   int64
	tempo   float64
	loop    Loop

	queue   []schedEvent
	schedTo int64
	active  map[int32]string // sounding scheduled notes, id -> track

	preview     dawg.AudioBuffer
	previewPos  int
	previewLoop bool

	closed bool
}

func NewPlayer(broker *Broker, log *zap.Logger, cfg graph.Config) *Player {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Player{
		broker: broker,
		log:    log,
		graph:  graph.New(cfg),
		proj:   dawg.NewProject(""),
		active: make(map[int32]string),
	}
	p.tempo = p.proj.Tempo
	return p
}

// Closed reports whether the player has consumed its close message.
func (p *Player) Closed() bool { return p.closed }

// Frame returns the playhead position in frames.
func (p *Player) Frame() int64 { return p.frame }

// Process fills buf with the next block of audio and advances the playhead
// if the transport is rolling. Live input sounds even when stopped.
func (p *Player) Process(buf dawg.AudioBuffer) {
	p.processMessages()
	if p.closed {
		for i := range buf {
			buf[i] = [2]float32{}
		}
		return
	}

	if p.playing {
		p.renderPlaying(buf)
	} else {
		p.graph.Process(buf, p.frame, false)
	}
	p.mixPreview(buf)

	TrySend(p.broker.ToModel, MsgToModel{Frame: p.frame, Playing: p.playing})
}

func (p *Player) renderPlaying(buf dawg.AudioBuffer) {
	sr := int64(p.graphSampleRate())
	end := int64(p.proj.End() * float64(sr))
	rendered := 0
	for rendered < len(buf) {
		p.fillSchedule(p.frame + int64(len(buf)-rendered) + int64(lookaheadSeconds*float64(sr)))

		segEnd := p.frame + int64(len(buf)-rendered)
		if len(p.queue) > 0 && p.queue[0].frame < segEnd {
			segEnd = p.queue[0].frame
		}
		wrapping := false
		if p.loop.Enabled {
			loopEnd := int64(p.loop.End * float64(sr))
			if loopEnd > p.frame && loopEnd < segEnd {
				segEnd = loopEnd
				wrapping = true
			} else if loopEnd <= p.frame {
				wrapping = true
				segEnd = p.frame
			}
		}
		stopping := false
		if !p.loop.Enabled && end > 0 && end < segEnd {
			segEnd = end
			stopping = true
		}

		if segEnd > p.frame {
			n := int(segEnd - p.frame)
			p.graph.Process(buf[rendered:rendered+n], p.frame, true)
			rendered += n
			p.frame = segEnd
		}

		switch {
		case wrapping && p.frame >= int64(p.loop.End*float64(sr)):
			p.releaseScheduled()
			p.queue = p.queue[:0]
			p.frame = int64(p.loop.Start * float64(sr))
			p.schedTo = p.frame
		case stopping && p.frame >= end:
			p.playing = false
			p.releaseScheduled()
			p.queue = p.queue[:0]
			p.graph.Process(buf[rendered:], p.frame, true)
			return
		default:
			p.fireDue()
		}
	}
}

// fireDue triggers every queued event whose frame has been reached.
func (p *Player) fireDue() {
	for len(p.queue) > 0 && p.queue[0].frame <= p.frame {
		ev := p.queue[0]
		p.queue = p.queue[1:]
		if ev.on {
			p.graph.Trigger(ev.trackID, int64(ev.noteID), ev.pitch, ev.velocity)
			p.active[ev.noteID] = ev.trackID
		} else {
			p.graph.Release(ev.trackID, int64(ev.noteID))
			delete(p.active, ev.noteID)
		}
	}
}

// fillSchedule extends the queue out to the target frame.
func (p *Player) fillSchedule(to int64) {
	if to <= p.schedTo {
		return
	}
	if p.loop.Enabled {
		loopEnd := int64(p.loop.End * float64(p.graphSampleRate()))
		if to > loopEnd {
			to = loopEnd
		}
		if to <= p.schedTo {
			return
		}
	}
	evs := scheduleWindow(&p.proj, p.tempo, p.graphSampleRate(), p.schedTo, to)
	p.queue = append(p.queue, evs...)
	p.schedTo = to
}

// releaseScheduled sends note-offs for every sounding scheduled note. Live
// input notes are untouched.
func (p *Player) releaseScheduled() {
	for id, trackID := range p.active {
		p.graph.Release(trackID, int64(id))
		delete(p.active, id)
	}
}

// requeue drops pending onsets so they are re-derived from the current
// model and tempo, keeping the off halves of notes already sounding.
func (p *Player) requeue() {
	kept := p.queue[:0]
	for _, ev := range p.queue {
		if !ev.on {
			if _, sounding := p.active[ev.noteID]; sounding {
				kept = append(kept, ev)
			}
		}
	}
	p.queue = kept
	p.schedTo = p.frame
}

func (p *Player) graphSampleRate() int {
	if p.proj.SampleRate > 0 {
		return p.proj.SampleRate
	}
	return dawg.DefaultSampleRate
}

func (p *Player) mixPreview(buf dawg.AudioBuffer) {
	if p.preview == nil {
		return
	}
	for i := range buf {
		if p.previewPos >= len(p.preview) {
			if !p.previewLoop {
				p.preview = nil
				return
			}
			p.previewPos = 0
		}
		buf[i][0] += p.preview[p.previewPos][0]
		buf[i][1] += p.preview[p.previewPos][1]
		p.previewPos++
	}
}

func (p *Player) processMessages() {
	for {
		select {
		case <-p.broker.ClosePlayer:
			p.graph.ReleaseAll()
			p.closed = true
			TrySend(p.broker.FinishedPlayer, struct{}{})
			return
		case msg := <-p.broker.ToPlayer:
			p.handleMessage(msg)
		default:
			return
		}
	}
}

func (p *Player) handleMessage(msg any) {
	switch m := msg.(type) {
	case dawg.Project:
		p.proj = m
		if p.proj.Tempo > 0 {
			p.tempo = p.proj.Tempo
		}
		p.graph.Update(p.proj)
		p.requeue()
	case SettingsMsg:
		p.graph.SetTrackSettings(m.TrackID, m.Settings)
	case StartPlayMsg:
		if m.Frame >= 0 && m.Frame != p.frame {
			p.seekTo(m.Frame)
		}
		p.playing = true
	case PauseMsg:
		p.playing = false
		p.releaseScheduled()
	case StopMsg:
		p.playing = false
		p.seekTo(0)
	case SeekMsg:
		p.seekTo(m.Frame)
	case TempoMsg:
		p.tempo = m.BPM
		p.proj.Tempo = m.BPM
		p.requeue()
	case LoopMsg:
		p.loop = m.Loop
		p.requeue()
	case NoteOnMsg:
		p.graph.Trigger(m.TrackID, int64(m.NoteID), m.Pitch, m.Velocity)
	case NoteOffMsg:
		p.graph.Release(m.TrackID, int64(m.NoteID))
	case PreviewMsg:
		p.preview = m.Buffer
		p.previewPos = 0
		p.previewLoop = m.LoopIt
	case PreviewStopMsg:
		p.preview = nil
	default:
		p.log.Warn("player: unknown message", zap.Any("msg", msg))
	}
}

func (p *Player) seekTo(frame int64) {
	p.releaseScheduled()
	p.queue = p.queue[:0]
	p.frame = frame
	p.schedTo = frame
}
