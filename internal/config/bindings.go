package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"critique-kombat/internal/game"

	"gopkg.in/ini.v1"
)

// Controls is the content of the kombat.ini file
type Controls struct {
	// Bindings maps a key name to a logical button. Named keys use their
	// terminal names ("Up", "Enter"); printable keys are the character itself.
	Bindings map[string]game.Button

	// Tuning holds roster overrides keyed by document path,
	// e.g. "khayati.moves.ATTACK_RP.damage"
	Tuning map[string]string
}

// DefaultBindings is the keyboard layout used when no file overrides it
func DefaultBindings() map[string]game.Button {
	return map[string]game.Button{
		"Up":    game.ButtonUp,
		"Down":  game.ButtonDown,
		"Left":  game.ButtonLeft,
		"Right": game.ButtonRight,
		"w":     game.ButtonUp,
		"s":     game.ButtonDown,
		"a":     game.ButtonLeft,
		"d":     game.ButtonRight,
		"u":     game.ButtonLP,
		"i":     game.ButtonRP,
		"j":     game.ButtonLK,
		"k":     game.ButtonRK,
		"l":     game.ButtonBlock,
		"o":     game.ButtonParry,
		"p":     game.ButtonStyle,
		"Enter": game.ButtonConfirm,
	}
}

// DefaultControls returns the default bindings with no tuning
func DefaultControls() Controls {
	return Controls{Bindings: DefaultBindings(), Tuning: map[string]string{}}
}

// LoadControls reads [bindings] and [tuning] from an ini file.
// A missing file yields the defaults; file bindings are layered over them.
func LoadControls(path string) (Controls, error) {
	c := DefaultControls()
	if path == "" {
		return c, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}

	options := ini.LoadOptions{
		Insensitive:             false,
		SkipUnrecognizableLines: true,
		AllowShadows:            false,
	}
	file, err := ini.LoadSources(options, path)
	if err != nil {
		return c, fmt.Errorf("read %s: %w", path, err)
	}
	return c, c.apply(file)
}

// ParseControls reads controls from ini text, for embedding and tests
func ParseControls(data []byte) (Controls, error) {
	c := DefaultControls()
	file, err := ini.Load(data)
	if err != nil {
		return c, fmt.Errorf("parse controls: %w", err)
	}
	return c, c.apply(file)
}

func (c *Controls) apply(file *ini.File) error {
	if sec, err := file.GetSection("bindings"); err == nil {
		for _, key := range sec.Keys() {
			b, err := game.ParseButton(key.Value())
			if err != nil {
				return fmt.Errorf("binding %q: %w", key.Name(), err)
			}
			c.Bindings[key.Name()] = b
		}
	}
	if sec, err := file.GetSection("tuning"); err == nil {
		for _, key := range sec.Keys() {
			c.Tuning[key.Name()] = key.Value()
		}
	}
	return nil
}

// Button returns the logical button bound to a key name
func (c Controls) Button(key string) (game.Button, bool) {
	b, ok := c.Bindings[key]
	return b, ok
}

// KeysFor lists the keys bound to each button, sorted for display
func (c Controls) KeysFor() map[string][]string {
	out := make(map[string][]string)
	for key, b := range c.Bindings {
		out[b.String()] = append(out[b.String()], key)
	}
	for _, keys := range out {
		sort.Strings(keys)
	}
	return out
}
