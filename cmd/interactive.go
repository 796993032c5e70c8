package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"commareas/internal/output"
	"commareas/internal/tablefile"
	"commareas/internal/types"
)

// maxCellWidth caps long cells, mostly boundary WKT, in the detail view.
const maxCellWidth = 96

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse [table.csv]",
		Short: "Page through a written rollup table one community area at a time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.OutputPath()
			if len(args) == 1 {
				path = args[0]
			}
			header, rows, err := tablefile.ReadRows(path, tablefile.Options{})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s has no community areas\n", path)
				return nil
			}

			lines := areaLines(header, rows)
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				for _, l := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), l)
				}
				return nil
			}
			interactiveSelect(lines, func(i int) {
				renderArea(os.Stdout, header, rows[i])
			})
			return nil
		},
	}
}

// areaLines renders one "id  name" line per row.
func areaLines(header []string, rows [][]string) []string {
	idCol, nameCol := column(header, output.AreaIDColumn, 0), column(header, output.AreaNameColumn, 1)
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = fmt.Sprintf("%3s  %s", row[idCol], row[nameCol])
	}
	return lines
}

func column(header []string, name string, fallback int) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return fallback
}

// renderArea prints every column of row as "header: value".
func renderArea(w io.Writer, header []string, row []string) {
	width := 0
	for _, h := range header {
		width = max(width, len(h))
	}
	for i, h := range header {
		value := row[i]
		if len(value) > maxCellWidth {
			value = value[:maxCellWidth] + "..."
		}
		if value == types.NA {
			value = colorRed + value + colorReset
		}
		fmt.Fprintf(w, "%-*s  %s\n", width, h, value)
	}
}

// interactiveSelect lets user move through the provided lines with arrow keys
// and press Enter to call show for the selected line.
func interactiveSelect(lines []string, show func(int)) {
	if len(lines) == 0 {
		return
	}

	if runtime.GOOS == "windows" {
		enableVT()
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Println("(interactive selection not supported on this terminal)")
		return
	}
	defer func() {
		if oldState != nil {
			term.Restore(fd, oldState)
		}
	}()

	reader := bufio.NewReader(os.Stdin)
	selected := 0

	redraw := func() {
		// Clear screen (ANSI reset to top + clear screen)
		var b strings.Builder
		b.WriteString("\033[H\033[2J")
		for i, l := range lines {
			prefix := "  "
			if i == selected {
				prefix = "> "
			}
			// Raw mode needs explicit carriage returns.
			b.WriteString(prefix + l + "\r\n")
		}
		b.WriteString("(↑/↓ to navigate, Enter to view, Esc to quit)\r\n")
		fmt.Print(b.String())
	}

	// details leaves raw mode, shows the area and waits for Enter.
	details := func() bool {
		term.Restore(fd, oldState)
		oldState = nil
		fmt.Println()
		show(selected)

		fmt.Print("\n(press Enter to return)")
		_, _ = bufio.NewReader(os.Stdin).ReadBytes('\n')

		state, err := term.MakeRaw(fd)
		if err != nil {
			return false
		}
		oldState = state
		reader = bufio.NewReader(os.Stdin)
		redraw()
		return true
	}

	move := func(delta int) {
		next := selected + delta
		if next >= 0 && next < len(lines) {
			selected = next
			redraw()
		}
	}

	redraw()

	for {
		b1, err := reader.ReadByte()
		if err != nil {
			return
		}
		// Handle Windows console arrow sequences (0 or 224, then code)
		if b1 == 0 || b1 == 224 {
			b2, _ := reader.ReadByte()
			switch b2 {
			case 72: // up
				move(-1)
			case 80: // down
				move(1)
			case 13: // Enter
				if !details() {
					return
				}
			}
			continue
		}

		switch b1 {
		case 27: // ESC or ANSI sequence
			if reader.Buffered() == 0 {
				fmt.Print("\r\n")
				return
			}
			b2, _ := reader.ReadByte()
			if b2 != '[' || reader.Buffered() == 0 {
				continue
			}
			b3, _ := reader.ReadByte()
			switch b3 {
			case 'A': // up
				move(-1)
			case 'B': // down
				move(1)
			}
		case 'k':
			move(-1)
		case 'j':
			move(1)
		case '\r', '\n': // Enter
			if !details() {
				return
			}
		case 3, 'q': // Ctrl-C
			fmt.Print("\r\n")
			return
		}
	}
}
