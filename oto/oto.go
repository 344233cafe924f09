// Package oto adapts the oto audio library to the dawg.AudioContext
// interface. Browsers and some OSes gate audio on a user gesture, so the
// context starts pending and transitions to ready asynchronously; callers
// await WaitReady instead of blocking on the first write.
package oto

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/kennonjarvis-debug/dawg"
)

type Context struct {
	ctx        *oto.Context
	sampleRate int
	state      atomic.Int32
	ready      chan struct{}

	mu      sync.Mutex
	outputs []*Output
}

func NewContext(sampleRate int) (*Context, error) {
	if sampleRate <= 0 {
		sampleRate = dawg.DefaultSampleRate
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	c := &Context{ctx: ctx, sampleRate: sampleRate, ready: make(chan struct{})}
	c.state.Store(int32(dawg.ContextPending))
	go func() {
		<-readyChan
		c.state.Store(int32(dawg.ContextReady))
		close(c.ready)
	}()
	return c, nil
}

func (c *Context) State() dawg.ContextState { return dawg.ContextState(c.state.Load()) }

func (c *Context) WaitReady() <-chan struct{} { return c.ready }

// Output opens a playback stream. Oto pulls samples through a reader, so
// the push-style sink bridges through a pipe; WriteAudio blocks with the
// device's pacing, which is what the player loop wants.
func (c *Context) Output() dawg.AudioSink {
	pr, pw := io.Pipe()
	player := c.ctx.NewPlayer(pr)
	player.Play()
	o := &Output{player: player, pw: pw}
	c.mu.Lock()
	c.outputs = append(c.outputs, o)
	c.mu.Unlock()
	return o
}

func (c *Context) Close() error {
	c.mu.Lock()
	outputs := c.outputs
	c.outputs = nil
	c.mu.Unlock()
	var firstErr error
	for _, o := range outputs {
		if err := o.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type Output struct {
	player *oto.Player
	pw     *io.PipeWriter
	tmp    []byte
}

func (o *Output) WriteAudio(buf dawg.AudioBuffer) error {
	o.tmp = appendInt16LE(o.tmp[:0], buf)
	if _, err := o.pw.Write(o.tmp); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	o.pw.Close()
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
