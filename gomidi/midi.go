// Package gomidi connects hardware MIDI inputs to the engine. Incoming note
// messages go straight onto the broker as live note events for a target
// track, so the listener callback never touches the model.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/kennonjarvis-debug/dawg/engine"
)

type (
	Context struct {
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		inputDevices       []Device
		devicesInitialized bool

		broker *engine.Broker
		target func() string // id of the track receiving live input
	}

	Device struct {
		context *Context
		in      drivers.In
	}
)

// NewContext opens the MIDI driver. A nil driver is tolerated; the context
// then simply enumerates no devices.
func NewContext(broker *engine.Broker, target func() string) *Context {
	c := &Context{broker: broker, target: target}
	c.driver, _ = rtmididrv.New()
	return c
}

func (c *Context) InputDevices(yield func(Device) bool) {
	if c.devicesInitialized {
		for _, device := range c.inputDevices {
			if !yield(device) {
				break
			}
		}
		return
	}
	if c.driver == nil {
		return
	}
	ins, err := c.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		device := Device{context: c, in: in}
		c.inputDevices = append(c.inputDevices, device)
		if !yield(device) {
			break
		}
	}
	c.devicesInitialized = true
}

// Open starts listening on the device, closing any previously open input.
func (d Device) Open() error {
	c := d.context
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return errors.New("no driver available")
	}
	if c.HasDeviceOpen() {
		c.currentIn.Close()
	}
	c.currentIn = d.in
	if err := d.in.Open(); err != nil {
		c.currentIn = nil
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	if _, err := midi.ListenTo(d.in, c.handleMessage); err != nil {
		d.in.Close()
		c.currentIn = nil
		return err
	}
	return nil
}

func (d Device) String() string { return d.in.String() }

// TryToOpenBy opens the first device whose name has the given prefix, or
// just the first device when takeFirst is set.
func (c *Context) TryToOpenBy(namePrefix string, takeFirst bool) {
	if namePrefix == "" && !takeFirst {
		return
	}
	for input := range c.InputDevices {
		if takeFirst || strings.HasPrefix(input.String(), namePrefix) {
			input.Open()
			return
		}
	}
}

func (c *Context) HasDeviceOpen() bool {
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *Context) Close() {
	if c.driver == nil {
		return
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.driver.Close()
}

// handleMessage forwards note on/off to the player. Live notes use positive
// ids keyed by pitch, so a second on for a held key retriggers the same
// voice. Messages arriving with no target track are dropped.
func (c *Context) handleMessage(msg midi.Message, timestampms int32) {
	trackID := c.target()
	if trackID == "" {
		return
	}
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		engine.TrySend(c.broker.ToPlayer, any(engine.NoteOnMsg{
			TrackID: trackID, NoteID: int32(key) + 1, Pitch: int(key), Velocity: int(velocity),
		}))
	case msg.GetNoteOff(&channel, &key, &velocity):
		engine.TrySend(c.broker.ToPlayer, any(engine.NoteOffMsg{
			TrackID: trackID, NoteID: int32(key) + 1,
		}))
	}
}
