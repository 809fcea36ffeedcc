package system

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Console prints the user-facing progress markers. Colors are dropped
// automatically when the writer is not a terminal.
type Console struct {
	out *termenv.Output
}

func NewConsole(w io.Writer) *Console {
	return &Console{out: termenv.NewOutput(w)}
}

// Step prints "[*] ..." for a stage that is starting.
func (c *Console) Step(format string, args ...any) {
	c.print("[*]", "6", false, format, args...)
}

// Warn prints "[!] ..." for a recoverable problem.
func (c *Console) Warn(format string, args ...any) {
	c.print("[!]", "3", false, format, args...)
}

// Fail prints "[-] ...".
func (c *Console) Fail(format string, args ...any) {
	c.print("[-]", "1", true, format, args...)
}

// Done prints "[+++] ...".
func (c *Console) Done(format string, args ...any) {
	c.print("[+++]", "2", true, format, args...)
}

func (c *Console) print(marker, color string, bold bool, format string, args ...any) {
	style := c.out.String(marker).Foreground(c.out.Color(color))
	if bold {
		style = style.Bold()
	}
	fmt.Fprintf(c.out, "%s %s\n", style, fmt.Sprintf(format, args...))
}
