package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/user-none/esfmplay/esfm"
)

// styles used by the register dump. With plain set, text is printed
// unstyled, for pipes and files.
type styles struct {
	plain   bool
	header  lipgloss.Style
	channel lipgloss.Style
	active  lipgloss.Style
	idle    lipgloss.Style
	global  lipgloss.Style
}

func newStyles(plain bool) styles {
	return styles{
		plain:   plain,
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(4)),
		channel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(3)),
		active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(2)),
		idle:    lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		global:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if s.plain {
		return text
	}
	return st.Render(text)
}

var envStateNames = [4]string{"ATK", "DEC", "SUS", "REL"}

// dumpRegisters prints every slot's native registers and envelope, then the
// global state.
func dumpRegisters(w io.Writer, c *esfm.Chip, st styles) {
	fmt.Fprintln(w, st.render(st.header, "CH SL  R0 R1 R2 R3 R4 R5 R6 R7  EG   LEVEL"))

	for ch := 0; ch < esfm.Channels; ch++ {
		for s := 0; s < esfm.SlotsPerChannel; s++ {
			regs := c.SlotRegisters(ch, s)
			state, level := c.EnvelopeState(ch, s)

			label := "  "
			if s == 0 {
				label = fmt.Sprintf("%2d", ch)
			}

			var hex strings.Builder
			for i, r := range regs {
				if i > 0 {
					hex.WriteByte(' ')
				}
				fmt.Fprintf(&hex, "%02X", r)
			}

			body := fmt.Sprintf(" %d  %s  %s  0x%03X", s, hex.String(), envStateNames[state&3], level)
			rowStyle := st.idle
			if state != 3 || level < 0x1FF {
				rowStyle = st.active
			}
			fmt.Fprintln(w, st.render(st.channel, label)+st.render(rowStyle, body))
		}
	}

	mode := "legacy (OPL3)"
	if c.NativeMode() {
		mode = "native (ESFM)"
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", st.render(st.global, "mode:  "), mode)
	fmt.Fprintf(w, "%s 0x%02X\n", st.render(st.global, "status:"), c.ReadPort(0))
	if c.NativeMode() {
		for _, g := range []struct {
			name string
			addr uint16
		}{
			{"timer1", 0x402},
			{"timer2", 0x403},
			{"timers", 0x404},
			{"config", 0x408},
			{"rhythm", 0x4BD},
			{"test", 0x501},
			{"4-op", 0x504},
			{"native", 0x505},
		} {
			fmt.Fprintf(w, "%s 0x%02X\n", st.render(st.global, fmt.Sprintf("%-7s", g.name+":")), c.ReadRegister(g.addr))
		}
	}
}
