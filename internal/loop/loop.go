// Package loop drives one capture session: grab, record, preview, wait for
// a key, dispatch.
package loop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/bryanchriswhite/grab/internal/capture"
	"github.com/bryanchriswhite/grab/internal/config"
	"github.com/bryanchriswhite/grab/internal/display"
	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/bryanchriswhite/grab/internal/overlay"
	"github.com/bryanchriswhite/grab/internal/probe"
	"github.com/bryanchriswhite/grab/internal/record"
	"github.com/disintegration/imaging"
)

// commandQueueSize bounds the commands waiting for the next key wait
const commandQueueSize = 16

// Preview shows frames and reports key presses
type Preview interface {
	Show(frame *image.RGBA) error
	WaitKey(timeout time.Duration) display.Key
}

// State is a snapshot of the loop published after every step
type State struct {
	Source        string                 `json:"source"`
	Kind          string                 `json:"kind"`
	Processor     capture.ProcessorState `json:"processor"`
	Recording     bool                   `json:"recording"`
	RecordingPath string                 `json:"recording_path,omitempty"`
	LastRecording string                 `json:"last_recording,omitempty"`
	Frames        int                    `json:"frames_recorded"`
	FrameWidth    int                    `json:"frame_width"`
	FrameHeight   int                    `json:"frame_height"`
	Steps         uint64                 `json:"steps"`
}

// Loop owns the session, recorder and preview. Step and Run must be called
// from one goroutine; Enqueue, State and OnMessage are safe from any.
type Loop struct {
	session  *capture.Session
	recorder *record.Controller
	overlays *overlay.Manager
	preview  Preview

	snapshots   *record.Namer
	snapshotExt string
	keyWait     time.Duration
	out         io.Writer

	commands chan Command
	current  *image.RGBA
	steps    uint64

	mu        sync.RWMutex
	state     State
	listeners []func(string)
}

// New creates a loop. Operator messages are written to out.
func New(session *capture.Session, recorder *record.Controller, overlays *overlay.Manager, preview Preview, cfg *config.Config, out io.Writer) *Loop {
	return &Loop{
		session:     session,
		recorder:    recorder,
		overlays:    overlays,
		preview:     preview,
		snapshots:   record.NewNamer(cfg.Recording.OutputDir),
		snapshotExt: cfg.Recording.SnapshotExt,
		keyWait:     time.Duration(cfg.Preview.KeyWaitMS) * time.Millisecond,
		out:         out,
		commands:    make(chan Command, commandQueueSize),
	}
}

// Run steps until the quit command, ctx is cancelled or recording fails
func (l *Loop) Run(ctx context.Context) error {
	logger.WithComponent("loop").Info().
		Str("source", l.session.Source().Origin()).
		Str("kind", l.session.Source().Kind().String()).
		Msg("Capture loop started")

	for {
		select {
		case <-ctx.Done():
			logger.WithComponent("loop").Info().Msg("Capture loop cancelled")
			return nil
		default:
		}

		quit, err := l.Step()
		if err != nil {
			return err
		}
		if quit {
			logger.WithComponent("loop").Info().Uint64("steps", l.steps).Msg("Capture loop finished")
			return nil
		}
	}
}

// Step runs one iteration and reports whether the operator asked to quit
func (l *Loop) Step() (bool, error) {
	frame := l.session.GetImage()
	l.current = frame
	l.steps++

	if err := l.recorder.Write(frame); err != nil {
		logger.WithComponent("loop").Warn().Err(err).Msg("Failed to record frame")
	}

	view := capture.Clone(frame)
	if !capture.IsEmpty(view) {
		l.overlays.Render(view)
	}
	if err := l.preview.Show(view); err != nil {
		logger.WithComponent("loop").Warn().Err(err).Msg("Failed to show frame")
	}

	var (
		quit bool
		err  error
	)
	key := l.preview.WaitKey(l.keyWait)
	if cmd, ok := CommandForKey(key); ok {
		quit, err = l.Dispatch(cmd)
	}

drain:
	for !quit && err == nil {
		select {
		case cmd := <-l.commands:
			quit, err = l.Dispatch(cmd)
		default:
			break drain
		}
	}

	l.publish()
	return quit, err
}

// Dispatch executes one command. The error is non-nil only when a
// recording could not be started, which ends the run.
func (l *Loop) Dispatch(cmd Command) (bool, error) {
	proc := l.session.Processor()
	logger.WithComponent("loop").Debug().Str("command", string(cmd)).Msg("Dispatching command")

	switch cmd {
	case CmdFlipH:
		if proc.ToggleFlipHorizontal() {
			l.say("Flipping horizontally.")
		} else {
			l.say("No longer flipping horizontally.")
		}
	case CmdFlipV:
		if proc.ToggleFlipVertical() {
			l.say("Flipping vertically.")
		} else {
			l.say("No longer flipping vertically.")
		}
	case CmdGrow:
		proc.IncreaseSize()
		logger.WithComponent("loop").Debug().Float64("size_factor", proc.State().SizeFactor).Msg("Size increased")
	case CmdShrink:
		proc.DecreaseSize()
		logger.WithComponent("loop").Debug().Float64("size_factor", proc.State().SizeFactor).Msg("Size decreased")
	case CmdNormal:
		proc.SetNormalSize()
	case CmdSnapshot:
		l.snapshot()
	case CmdRecord:
		return false, l.toggleRecording()
	case CmdQuit:
		return true, nil
	default:
		logger.WithComponent("loop").Debug().Str("command", string(cmd)).Msg("Ignoring unknown command")
	}
	return false, nil
}

func (l *Loop) snapshot() {
	if capture.IsEmpty(l.current) {
		l.say("Could not save a snapshot: no frame.")
		return
	}
	path := l.snapshots.Next(l.snapshotExt)
	if err := imaging.Save(l.current, path); err != nil {
		logger.WithComponent("loop").Error().Err(err).Str("path", path).Msg("Failed to save snapshot")
		l.say(fmt.Sprintf("Could not save a snapshot as %s.", path))
		return
	}
	l.say(fmt.Sprintf("Saved a snapshot as %s.", path))
}

func (l *Loop) toggleRecording() error {
	if l.recorder.Active() {
		path, err := l.recorder.Stop()
		if err != nil {
			logger.WithComponent("loop").Warn().Err(err).Msg("Recording did not close cleanly")
		}
		l.say(fmt.Sprintf("Stopped recording in %s.", path))
		return nil
	}

	var size image.Point
	if l.current != nil {
		size = l.current.Bounds().Size()
	}
	path, err := l.recorder.Start(size)
	if errors.Is(err, record.ErrNoFrameSize) {
		l.say("Could not start recording: no frame.")
		return nil
	}
	if err != nil {
		return err
	}
	l.say(fmt.Sprintf("Started recording in %s.", path))
	return nil
}

// Probe prints the colour of the last captured frame at (x, y)
func (l *Loop) Probe(x, y int) {
	s, ok := probe.At(l.current, x, y)
	if !ok {
		return
	}
	l.say(s.String())
}

// Current returns the most recent undecorated frame
func (l *Loop) Current() *image.RGBA {
	return l.current
}

// Enqueue queues a command for the next step. It reports false when the
// queue is full.
func (l *Loop) Enqueue(cmd Command) bool {
	select {
	case l.commands <- cmd:
		return true
	default:
		return false
	}
}

// OnMessage registers fn to receive every operator message. fn runs on the
// loop goroutine and must not block.
func (l *Loop) OnMessage(fn func(string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// State returns the snapshot published after the last step
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Loop) publish() {
	src := l.session.Source()
	st := State{
		Source:        src.Origin(),
		Kind:          src.Kind().String(),
		Processor:     l.session.Processor().State(),
		Recording:     l.recorder.Active(),
		RecordingPath: l.recorder.Path(),
		LastRecording: l.recorder.LastPath(),
		Frames:        l.recorder.Frames(),
		Steps:         l.steps,
	}
	if l.current != nil {
		st.FrameWidth = l.current.Bounds().Dx()
		st.FrameHeight = l.current.Bounds().Dy()
	}

	l.mu.Lock()
	l.state = st
	l.mu.Unlock()
}

// say prints an operator message and forwards it to listeners
func (l *Loop) say(msg string) {
	fmt.Fprintln(l.out, msg)

	l.mu.RLock()
	listeners := l.listeners
	l.mu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
}
