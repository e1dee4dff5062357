package sender

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Console is the dump output. The HTTP/1.1 reader and writer goroutines both
// write to it, so every write is serialized.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	banner *color.Color
}

func NewConsole(w io.Writer, colored bool) *Console {
	banner := color.New(color.FgCyan, color.Bold)
	if colored {
		banner.EnableColor()
	} else {
		banner.DisableColor()
	}
	return &Console{w: w, banner: banner}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Banner prints a section header such as "=====[ END ]=====".
func (c *Console) Banner(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner.Fprintln(c.w, BannerText(label))
}

func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, a...)
}

// BannerText centers label in a line of '=' bannerWidth runes wide. Odd
// padding goes to the right; long labels get a minimal frame.
func BannerText(label string) string {
	framed := "=[ " + label + " ]="
	pad := bannerWidth - utf8.RuneCountInString(framed)
	if pad <= 0 {
		return framed
	}
	left := pad / 2
	return strings.Repeat("=", left) + framed + strings.Repeat("=", pad-left)
}
