package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ANSI
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
	Cyan   = "\033[36m"
)

type printer struct {
	w     io.Writer
	color bool
}

func (p printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + Reset
}

func (p printer) ok(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.paint(Green, "[+]"), fmt.Sprintf(format, args...))
}

func (p printer) warn(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.paint(Yellow, "[~]"), fmt.Sprintf(format, args...))
}

func (p printer) fail(format string, args ...any) {
	fmt.Fprintf(p.w, "  %s %s\n", p.paint(Red, "[-]"), fmt.Sprintf(format, args...))
}

func (p printer) title(s string) {
	fmt.Fprintf(p.w, "  %s\n", p.paint(Bold+Cyan, s))
}

// yaml writes v as a YAML document.
func (p printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
