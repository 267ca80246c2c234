// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits command arguments into flags and positional arguments.
// It accepts these formats:
//
//	--flag value     long flag with a separate value
//	--flag=value     long flag with an equals sign
//	-f value         short flag
//	--flag           boolean flag (names passed to NewArgParser)
//	--               everything after is positional
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser parses raw. Names in boolNames never take a value, so a
// following word stays positional.
//
// Example:
//
//	p := NewArgParser([]string{"--model", "tiny.gguf", "--plain", "why", "is", "the", "sky", "blue"}, "plain")
//	p.Flag("model")        // "tiny.gguf"
//	p.BoolFlag("plain")    // true
//	p.Positionals()        // ["why" "is" "the" "sky" "blue"]
func NewArgParser(raw []string, boolNames ...string) *ArgParser {
	isBool := make(map[string]bool, len(boolNames))
	for _, name := range boolNames {
		isBool[name] = true
	}

	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
		raw:       raw,
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" || isNumber(arg) {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(name, "="); ok {
			if isBool[k] {
				p.boolFlags[k] = v == "true" || v == "1"
			} else {
				p.flags[k] = v
			}
			continue
		}

		if !isBool[name] && i+1 < len(raw) && (!strings.HasPrefix(raw[i+1], "-") || isNumber(raw[i+1])) {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}

	return p
}

// Flag returns the value of the first of names that is set, or "".
//
//	p.Flag("model", "m")   // --model x or -m x
func (p *ArgParser) Flag(names ...string) string {
	for _, name := range names {
		if v, ok := p.flags[strings.TrimLeft(name, "-")]; ok {
			return v
		}
	}
	return ""
}

// FlagOrDefault returns the flag value or def when unset.
func (p *ArgParser) FlagOrDefault(def string, names ...string) string {
	if v := p.Flag(names...); v != "" {
		return v
	}
	return def
}

// BoolFlag reports whether any of names was given as a boolean flag.
func (p *ArgParser) BoolFlag(names ...string) bool {
	for _, name := range names {
		if p.boolFlags[strings.TrimLeft(name, "-")] {
			return true
		}
	}
	return false
}

// HasFlag reports whether name was given in any form.
func (p *ArgParser) HasFlag(name string) bool {
	name = strings.TrimLeft(name, "-")
	_, s := p.flags[name]
	_, b := p.boolFlags[name]
	return s || b
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// Positionals returns all positional arguments.
func (p *ArgParser) Positionals() []string {
	return p.positional
}

// UnknownFlags returns the flags not listed in known, sorted by appearance.
func (p *ArgParser) UnknownFlags(known ...string) []string {
	ok := make(map[string]bool, len(known))
	for _, k := range known {
		ok[k] = true
	}

	var unknown []string
	for _, arg := range p.raw {
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" || isNumber(arg) {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !ok[name] {
			unknown = append(unknown, arg)
		}
	}
	return unknown
}

// Raw returns the original arguments.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// isNumber reports whether s parses as a number, so "-1" is a value.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
