package render

import (
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// Host implements ebiten.Game for a loop that ticks on its own goroutine.
// ebiten only draws the latest presented frame; the loop's governor, not
// ebiten's TPS, decides when scenes update.
type Host struct {
	mu      sync.Mutex
	frame   Frame
	screenW int
	screenH int
	done    <-chan struct{}
}

// NewHost creates a host that terminates the window once done is closed.
func NewHost(screenW, screenH int, done <-chan struct{}) *Host {
	return &Host{
		screenW: screenW,
		screenH: screenH,
		done:    done,
	}
}

// Present stores f as the frame drawn next
func (h *Host) Present(f Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = f
	return nil
}

// Frame returns the frame drawn next
func (h *Host) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Update ends the ebiten run loop once the game loop is done.
// Implements ebiten.Game interface.
func (h *Host) Update() error {
	select {
	case <-h.done:
		return ebiten.Termination
	default:
		return nil
	}
}

// Draw renders the latest presented frame.
// Implements ebiten.Game interface.
func (h *Host) Draw(screen *ebiten.Image) {
	for _, op := range h.Frame().Ops {
		switch op.Kind {
		case OpFill:
			screen.Fill(colorOr(op.Color, color.Black))
		case OpRect:
			ebitenutil.DrawRect(screen, op.X, op.Y, op.W, op.H, colorOr(op.Color, color.White))
		case OpText:
			ebitenutil.DebugPrintAt(screen, op.Text, int(op.X), int(op.Y))
		}
	}
}

// Layout returns the logical screen dimensions.
// Implements ebiten.Game interface.
func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	return h.screenW, h.screenH
}

func colorOr(c, fallback color.Color) color.Color {
	if c == nil {
		return fallback
	}
	return c
}
