package capture

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/bryanchriswhite/grab/internal/config"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// fakeGrabber replays a scripted sequence of read results
type fakeGrabber struct {
	opened  bool
	width   float64
	height  float64
	reads   []*image.RGBA // nil entries are failed reads
	readN   int
	rewinds int
	props   map[Property]float64
	closed  bool
}

func (g *fakeGrabber) IsOpened() bool { return g.opened }

func (g *fakeGrabber) Read() (*image.RGBA, bool) {
	if g.readN >= len(g.reads) {
		g.readN++
		return nil, false
	}
	f := g.reads[g.readN]
	g.readN++
	return f, f != nil
}

func (g *fakeGrabber) Get(p Property) float64 {
	switch p {
	case PropFrameWidth:
		return g.width
	case PropFrameHeight:
		return g.height
	}
	return g.props[p]
}

func (g *fakeGrabber) Set(p Property, v float64) {
	if g.props == nil {
		g.props = map[Property]float64{}
	}
	g.props[p] = v
	if p == PropPosFrames {
		g.rewinds++
	}
}

func (g *fakeGrabber) Close() error {
	g.closed = true
	return nil
}

func mediaConfig() config.MediaConfig {
	m := config.Defaults().Media
	m.PlaceholderPath = ""
	return m
}

var (
	blue  = color.RGBA{0, 0, 255, 255}
	green = color.RGBA{0, 255, 0, 255}
)

func TestDeviceNeverOpenedServesDefaultPlaceholder(t *testing.T) {
	g := &fakeGrabber{opened: false}
	src := NewDeviceSource("camera 0", g, mediaConfig())
	session := NewSession(src, NewPostProcessor(mediaConfig()))

	for i := 0; i < 5; i++ {
		frame := session.GetImage()
		if IsEmpty(frame) {
			t.Fatalf("call %d returned an empty frame", i)
		}
		if got := frame.Bounds().Size(); got != image.Pt(640, 480) {
			t.Fatalf("call %d frame size = %v, want 640x480", i, got)
		}
		if string(frame.Pix) != string(src.Placeholder().Pix) {
			t.Fatalf("call %d did not return the placeholder", i)
		}
	}
	if g.readN != 0 {
		t.Fatalf("read %d times from a device that is not open", g.readN)
	}
}

func TestPlaceholderMatchesNativeSize(t *testing.T) {
	g := &fakeGrabber{opened: true, width: 320, height: 200}
	src := NewDeviceSource("camera 1", g, mediaConfig())
	if got := src.Placeholder().Bounds().Size(); got != image.Pt(320, 200) {
		t.Fatalf("placeholder size = %v, want 320x200", got)
	}
}

func TestDeviceFallsBackPerCall(t *testing.T) {
	live := solid(8, 6, blue)
	g := &fakeGrabber{
		opened: true,
		width:  8,
		height: 6,
		reads:  []*image.RGBA{live, nil, {}, live},
	}
	src := NewDeviceSource("camera 0", g, mediaConfig())

	want := []*image.RGBA{live, src.Placeholder(), src.Placeholder(), live}
	for i, w := range want {
		if got := src.next(); got != w {
			t.Fatalf("call %d returned the wrong frame", i)
		}
	}
	if g.closed {
		t.Fatal("device source closed its grabber on failure")
	}
	if g.rewinds != 0 {
		t.Fatal("device source must not rewind")
	}
}

func TestClipRewindsOnceOnFailure(t *testing.T) {
	first := solid(4, 4, blue)
	rewound := solid(4, 4, green)

	tests := []struct {
		name        string
		reads       []*image.RGBA
		want        func(src *Source) *image.RGBA
		wantRewinds int
	}{
		{
			name:        "live frame",
			reads:       []*image.RGBA{first},
			want:        func(*Source) *image.RGBA { return first },
			wantRewinds: 0,
		},
		{
			name:        "end of stream then rewound frame",
			reads:       []*image.RGBA{nil, rewound},
			want:        func(*Source) *image.RGBA { return rewound },
			wantRewinds: 1,
		},
		{
			name:        "rewind also fails",
			reads:       []*image.RGBA{nil, nil},
			want:        func(s *Source) *image.RGBA { return s.Placeholder() },
			wantRewinds: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGrabber{opened: true, width: 4, height: 4, reads: tt.reads}
			src := NewClipSource("loop.avi", g, mediaConfig())
			if got := src.next(); got != tt.want(src) {
				t.Fatal("unexpected frame")
			}
			if g.rewinds != tt.wantRewinds {
				t.Fatalf("rewinds = %d, want %d", g.rewinds, tt.wantRewinds)
			}
			if tt.wantRewinds > 0 && (g.props[PropPosFrames] != 0 || g.props[PropPosMsec] != 0) {
				t.Fatalf("rewind did not reset position: %v", g.props)
			}
			if g.readN != len(tt.reads) {
				t.Fatalf("reads = %d, want %d", g.readN, len(tt.reads))
			}
		})
	}
}

func TestClipThatNeverOpenedServesPlaceholder(t *testing.T) {
	src := NewClipSource("missing.avi", nil, mediaConfig())
	session := NewSession(src, NewPostProcessor(mediaConfig()))
	for i := 0; i < 3; i++ {
		if IsEmpty(session.GetImage()) {
			t.Fatalf("call %d returned an empty frame", i)
		}
	}
}

func TestStillSourceDecodesEveryCall(t *testing.T) {
	calls := 0
	src := NewStillSource("frame.bmp")
	src.decode = func(path string) (image.Image, error) {
		calls++
		if path != "frame.bmp" {
			t.Fatalf("decoded %q", path)
		}
		return solid(3, 2, blue), nil
	}
	session := NewSession(src, NewPostProcessor(mediaConfig()))
	for i := 0; i < 3; i++ {
		if got := session.GetImage().Bounds().Size(); got != image.Pt(3, 2) {
			t.Fatalf("size = %v", got)
		}
	}
	if calls != 3 {
		t.Fatalf("decode calls = %d, want 3", calls)
	}
}

func TestStillSourcePassesThroughDecodeFailure(t *testing.T) {
	src := NewStillSource("corrupt.bmp")
	src.decode = func(string) (image.Image, error) { return nil, errors.New("bad header") }
	session := NewSession(src, NewPostProcessor(mediaConfig()))
	session.Processor().IncreaseSize()
	if frame := session.GetImage(); !IsEmpty(frame) {
		t.Fatalf("expected empty frame, got %v", frame.Bounds())
	}
	if src.Placeholder() != nil {
		t.Fatal("still sources have no placeholder")
	}
}

func TestSessionProcessesPlaceholder(t *testing.T) {
	g := &fakeGrabber{opened: false, width: 100, height: 50}
	proc := NewPostProcessor(mediaConfig())
	session := NewSession(NewDeviceSource("camera 0", g, mediaConfig()), proc)
	proc.DecreaseSize()
	proc.DecreaseSize()
	if got := session.GetImage().Bounds().Size(); got != image.Pt(80, 40) {
		t.Fatalf("processed placeholder size = %v, want 80x40", got)
	}
	if got := session.Source().Placeholder().Bounds().Size(); got != image.Pt(100, 50) {
		t.Fatalf("cached placeholder was modified: %v", got)
	}
}

func TestSessionCloseReleasesGrabber(t *testing.T) {
	g := &fakeGrabber{opened: true}
	session := NewSession(NewDeviceSource("camera 0", g, mediaConfig()), NewPostProcessor(mediaConfig()))
	if err := session.Close(); err != nil {
		t.Fatal(err)
	}
	if !g.closed {
		t.Fatal("grabber not closed")
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{KindStill: "still", KindDevice: "device", KindClip: "clip", Kind(9): "kind(9)"} {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(k), got, want)
		}
	}
}
