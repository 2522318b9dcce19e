// Package midisync connects the engine to MIDI hardware: note input from a
// controller routed into the engine's live queues, and transport messages
// (start/stop/continue, song position) sent outward so external gear can
// follow the playhead.
package midisync

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters the rtmidi driver
)

// NoteSink receives live note events. engine.Engine satisfies this; both
// methods must be safe to call from the MIDI listener goroutine.
type NoteSink interface {
	NoteOn(channel, key, velocity int)
	NoteOff(channel, key int)
}

// TransportSink additionally follows inbound transport messages: start,
// stop, continue, and song position pointers. engine.Engine satisfies this.
type TransportSink interface {
	NoteSink
	Play()
	Pause()
	Seek(tick float64)
	TPQN() int
}

// InputPorts lists the names of the available MIDI inputs.
func InputPorts() []string {
	var names []string
	for _, in := range midi.GetInPorts() {
		names = append(names, in.String())
	}
	return names
}

// OutputPorts lists the names of the available MIDI outputs.
func OutputPorts() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// Input listens on one MIDI input port and forwards note events to a sink.
type Input struct {
	port drivers.In
	stop func()
}

// OpenInput connects the named port (or the first available when name is
// empty) to the sink. Running status, note-on-velocity-zero and true
// note-offs are handled by the message accessors.
func OpenInput(name string, sink NoteSink) (*Input, error) {
	var (
		port drivers.In
		err  error
	)
	if name == "" {
		ins := midi.GetInPorts()
		if len(ins) == 0 {
			return nil, fmt.Errorf("no MIDI input ports available")
		}
		port = ins[0]
	} else if port, err = midi.FindInPort(name); err != nil {
		return nil, fmt.Errorf("MIDI input %q: %w", name, err)
	}

	transport, _ := sink.(TransportSink)
	stop, err := midi.ListenTo(port, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			sink.NoteOn(int(ch), int(key), int(vel))
		case msg.GetNoteEnd(&ch, &key):
			sink.NoteOff(int(ch), int(key))
		case transport == nil:
		case msg.Is(midi.StartMsg):
			transport.Seek(0)
			transport.Play()
		case msg.Is(midi.ContinueMsg):
			transport.Play()
		case msg.Is(midi.StopMsg):
			transport.Pause()
		case msg.Is(midi.SPPMsg):
			if raw := msg.Bytes(); len(raw) >= 3 {
				ptr := uint16(raw[2])<<7 | uint16(raw[1]&0x7F)
				transport.Seek(TickFromPointer(ptr, transport.TPQN()))
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", port.String(), err)
	}
	return &Input{port: port, stop: stop}, nil
}

// Port returns the connected input port name.
func (in *Input) Port() string { return in.port.String() }

// Close stops listening and releases the port.
func (in *Input) Close() error {
	if in.stop != nil {
		in.stop()
		in.stop = nil
	}
	return in.port.Close()
}

// Output sends transport sync to one MIDI output port.
type Output struct {
	port drivers.Out
	send func(midi.Message) error
}

// OpenOutput connects the named port, or the first available when name is
// empty.
func OpenOutput(name string) (*Output, error) {
	var (
		port drivers.Out
		err  error
	)
	if name == "" {
		outs := midi.GetOutPorts()
		if len(outs) == 0 {
			return nil, fmt.Errorf("no MIDI output ports available")
		}
		port = outs[0]
	} else if port, err = midi.FindOutPort(name); err != nil {
		return nil, fmt.Errorf("MIDI output %q: %w", name, err)
	}
	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", port.String(), err)
	}
	return &Output{port: port, send: send}, nil
}

// Port returns the connected output port name.
func (o *Output) Port() string { return o.port.String() }

// Start tells followers to start playing from the top.
func (o *Output) Start() error { return o.send(midi.Start()) }

// Stop tells followers to halt.
func (o *Output) Stop() error { return o.send(midi.Stop()) }

// Continue tells followers to resume from their current position.
func (o *Output) Continue() error { return o.send(midi.Continue()) }

// SendPosition sends a song position pointer for the given tick. Wire it to
// the engine's loop callback so followers rewind when the loop wraps.
func (o *Output) SendPosition(tick float64, tpqn int) error {
	return o.send(midi.SPP(PositionPointer(tick, tpqn)))
}

// Close releases the port.
func (o *Output) Close() error { return o.port.Close() }

// TickFromPointer converts a MIDI song position (sixteenth notes) back to
// ticks.
func TickFromPointer(pointer uint16, tpqn int) float64 {
	if tpqn <= 0 {
		return 0
	}
	return float64(pointer) * float64(tpqn) / 4
}

// PositionPointer converts a tick position to MIDI song position units:
// sixteenth notes since the start, clamped to the 14-bit wire range.
func PositionPointer(tick float64, tpqn int) uint16 {
	if tpqn <= 0 || tick <= 0 {
		return 0
	}
	sixteenths := int(tick / (float64(tpqn) / 4))
	if sixteenths < 0 {
		sixteenths = 0
	}
	if sixteenths > 0x3FFF {
		sixteenths = 0x3FFF
	}
	return uint16(sixteenths)
}
