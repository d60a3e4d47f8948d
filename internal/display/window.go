// Package display shows frames in a plain X11 window and reports the keys
// and pointer clicks it receives.
package display

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/grab/internal/logger"
)

// pollInterval is the sleep between event polls while waiting for a key
const pollInterval = 5 * time.Millisecond

// ErrClosed is returned when drawing to a window that was closed
var ErrClosed = errors.New("display window closed")

// pixmapFormat is the server's ZPixmap layout for the root depth
type pixmapFormat struct {
	bytesPerPixel int
	scanlinePad   int // bytes
}

// Window is a top-level X11 window that shows one frame at a time. All
// methods must be called from the same goroutine.
type Window struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	win    xproto.Window
	gc     xproto.Gcontext
	format pixmapFormat
	keys   keymap

	// maxRequest is the largest request the server accepts, in bytes
	maxRequest int

	wmProtocols xproto.Atom
	wmDelete    xproto.Atom

	width   int
	height  int
	last    *image.RGBA
	onClick func(x, y int)
	closed  bool
}

// Open connects to the X server and maps a window of the given size
func Open(title string, width, height int) (*Window, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	w, err := newWindow(conn, title, width, height)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return w, nil
}

func newWindow(conn *xgb.Conn, title string, width, height int) (*Window, error) {
	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}

	w := &Window{
		conn:       conn,
		screen:     screen,
		width:      width,
		height:     height,
		maxRequest: int(setup.MaximumRequestLength) * 4,
	}

	for _, f := range setup.PixmapFormats {
		if f.Depth == screen.RootDepth {
			w.format = pixmapFormat{
				bytesPerPixel: int(f.BitsPerPixel) / 8,
				scanlinePad:   int(f.ScanlinePad) / 8,
			}
			break
		}
	}
	if w.format.bytesPerPixel == 0 {
		return nil, fmt.Errorf("no pixmap format for depth %d", screen.RootDepth)
	}

	km, err := loadKeymap(conn, setup)
	if err != nil {
		return nil, err
	}
	w.keys = km

	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create window ID: %w", err)
	}
	w.win = win

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000, // Black background
		xproto.EventMaskKeyPress | xproto.EventMaskButtonPress |
			xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		win,
		screen.Root,
		0, 0,
		uint16(width), uint16(height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	if err := w.setWindowTitle(title); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("Failed to set window title")
	}
	if err := w.setWindowClass("grab", "Grab"); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("Failed to set window class")
	}
	if err := w.watchDelete(); err != nil {
		logger.WithComponent("display").Warn().Err(err).Msg("Failed to register WM_DELETE_WINDOW")
	}

	if err := xproto.MapWindowChecked(conn, win).Check(); err != nil {
		return nil, fmt.Errorf("failed to map window: %w", err)
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphics context ID: %w", err)
	}
	err = xproto.CreateGCChecked(
		conn,
		gc,
		xproto.Drawable(win),
		xproto.GcForeground|xproto.GcBackground,
		[]uint32{0xffffffff, 0x00000000},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create GC: %w", err)
	}
	w.gc = gc

	conn.Sync()
	logger.WithComponent("display").Info().
		Str("title", title).
		Int("width", width).
		Int("height", height).
		Uint32("window_id", uint32(win)).
		Msg("Preview window created")
	return w, nil
}

// OnClick sets the handler for left-button presses. Coordinates are
// relative to the frame and only reported when inside it.
func (w *Window) OnClick(fn func(x, y int)) {
	w.onClick = fn
}

// Show draws img, resizing the window to fit it first
func (w *Window) Show(img *image.RGBA) error {
	if w.closed {
		return ErrClosed
	}
	if img == nil || img.Bounds().Empty() {
		return nil
	}

	size := img.Bounds().Size()
	if size.X != w.width || size.Y != w.height {
		xproto.ConfigureWindow(w.conn, w.win,
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
			[]uint32{uint32(size.X), uint32(size.Y)})
		w.width, w.height = size.X, size.Y
	}

	w.last = img
	return w.putImage(img)
}

// WaitKey processes window events for up to timeout and returns the first
// key pressed, or KeyNone. Closing the window reports KeyEscape.
func (w *Window) WaitKey(timeout time.Duration) Key {
	deadline := time.Now().Add(timeout)
	for {
		ev, xerr := w.conn.PollForEvent()
		if ev == nil && xerr == nil {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return KeyNone
			}
			time.Sleep(min(remaining, pollInterval))
			continue
		}
		if xerr != nil {
			logger.WithComponent("display").Debug().Str("error", xerr.Error()).Msg("X error")
			continue
		}
		if key, ok := w.handle(ev); ok {
			return key
		}
	}
}

// handle reacts to one event and reports a key when it was a key press
func (w *Window) handle(ev xgb.Event) (Key, bool) {
	switch e := ev.(type) {
	case xproto.KeyPressEvent:
		shift := e.State&(xproto.ModMaskShift|xproto.ModMaskLock) != 0
		return w.keys.lookup(byte(e.Detail), shift), true

	case xproto.ButtonPressEvent:
		if e.Detail != xproto.ButtonIndex1 || w.onClick == nil || w.last == nil {
			return KeyNone, false
		}
		x, y := int(e.EventX), int(e.EventY)
		if image.Pt(x, y).In(image.Rect(0, 0, w.last.Bounds().Dx(), w.last.Bounds().Dy())) {
			w.onClick(x, y)
		}

	case xproto.ExposeEvent:
		if e.Count == 0 && w.last != nil {
			if err := w.putImage(w.last); err != nil {
				logger.WithComponent("display").Debug().Err(err).Msg("Failed to redraw on expose")
			}
		}

	case xproto.ClientMessageEvent:
		if e.Type == w.wmProtocols && e.Format == 32 && xproto.Atom(e.Data.Data32[0]) == w.wmDelete {
			logger.WithComponent("display").Debug().Msg("Window close requested")
			return KeyEscape, true
		}

	case xproto.DestroyNotifyEvent:
		w.closed = true
		return KeyEscape, true
	}
	return KeyNone, false
}

// putImage sends img to the window, split into row strips that fit the
// server's request size limit
func (w *Window) putImage(img *image.RGBA) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	depth := w.screen.RootDepth

	data, stride, err := encode(img.Pix[img.PixOffset(b.Min.X, b.Min.Y):], img.Stride, width, height, w.format, depth)
	if err != nil {
		return err
	}

	// PutImage header is 24 bytes
	rows := (w.maxRequest - 24) / stride
	if rows < 1 {
		return fmt.Errorf("frame row of %d bytes exceeds the X request limit", stride)
	}

	for y := 0; y < height; y += rows {
		n := min(rows, height-y)
		err := xproto.PutImageChecked(
			w.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(w.win),
			w.gc,
			uint16(width), uint16(n),
			0, int16(y),
			0,
			depth,
			data[y*stride:(y+n)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image: %w", err)
		}
	}
	return nil
}

// encode converts RGBA rows into the server's ZPixmap layout. Byte order
// matches the usual TrueColor masks: blue in the low byte.
func encode(pix []byte, srcStride, width, height int, f pixmapFormat, depth byte) ([]byte, int, error) {
	if f.bytesPerPixel != 3 && f.bytesPerPixel != 4 {
		return nil, 0, fmt.Errorf("unsupported bytes per pixel: %d", f.bytesPerPixel)
	}

	unpadded := width * f.bytesPerPixel
	pad := max(f.scanlinePad, 1)
	stride := (unpadded + pad - 1) / pad * pad
	data := make([]byte, stride*height)

	for y := 0; y < height; y++ {
		src := pix[y*srcStride:]
		dst := data[y*stride:]
		for x := 0; x < width; x++ {
			s := src[x*4:]
			d := dst[x*f.bytesPerPixel:]
			d[0] = s[2]
			d[1] = s[1]
			d[2] = s[0]
			if f.bytesPerPixel == 4 && depth == 32 {
				d[3] = s[3]
			}
		}
	}
	return data, stride, nil
}

// Close destroys the window and disconnects
func (w *Window) Close() error {
	if w.gc != 0 {
		xproto.FreeGC(w.conn, w.gc)
	}
	if !w.closed && w.win != 0 {
		xproto.DestroyWindow(w.conn, w.win)
		w.conn.Sync()
	}
	w.closed = true
	w.conn.Close()
	logger.WithComponent("display").Debug().Msg("Preview window closed")
	return nil
}

// setWindowTitle sets both the EWMH and the legacy window title
func (w *Window) setWindowTitle(title string) error {
	nameAtom, err := w.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := w.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	err = xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.win,
		nameAtom, utf8Atom, 8, uint32(len(title)), []byte(title)).Check()
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.win,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(title)), []byte(title)).Check()
}

// setWindowClass sets the window class
func (w *Window) setWindowClass(instance, class string) error {
	// WM_CLASS format: instance\0class\0
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		w.conn,
		xproto.PropModeReplace,
		w.win,
		xproto.AtomWmClass,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

// watchDelete asks the window manager to send WM_DELETE_WINDOW instead of
// killing the connection when the window is closed
func (w *Window) watchDelete() error {
	protocols, err := w.getAtom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	del, err := w.getAtom("WM_DELETE_WINDOW")
	if err != nil {
		return err
	}
	w.wmProtocols, w.wmDelete = protocols, del

	buf := make([]byte, 4)
	xgb.Put32(buf, uint32(del))
	return xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.win,
		protocols, xproto.AtomAtom, 32, 1, buf).Check()
}

// getAtom gets an atom ID by name
func (w *Window) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(w.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}
