package game

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

//go:embed data/roster.json
var rosterJSON []byte

// CharacterID is the stable key of a character definition
type CharacterID string

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrCharacterLocked  = errors.New("character locked")
)

// Stats are the base multipliers of a character
type Stats struct {
	Speed   float64 `json:"speed"`
	Power   float64 `json:"power"`
	Defense float64 `json:"defense"`
}

// StyleModifiers scale stats while a style is selected
type StyleModifiers struct {
	Power     float64 `json:"power"`
	Speed     float64 `json:"speed"`
	Defense   float64 `json:"defense"`
	MeterGain float64 `json:"meterGain"`
}

// NeutralStyle leaves every stat unchanged
var NeutralStyle = StyleModifiers{Power: 1, Speed: 1, Defense: 1, MeterGain: 1}

// Spectacle multipliers applied on top of the selected style
const (
	SpectaclePower   = 1.3
	SpectacleSpeed   = 1.2
	SpectacleDefense = 1.3
	SpectacleFrames  = 300
)

// Style is a named stance
type Style struct {
	Name string `json:"name"`
	StyleModifiers
}

// Size is a width/height pair in world units
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultHurtbox is used when a character declares no hurtbox
var DefaultHurtbox = Size{Width: 100, Height: 200}

// CharacterDefinition is read-only per-character data
type CharacterDefinition struct {
	ID            CharacterID                `json:"id"`
	Name          string                     `json:"name"`
	Archetype     string                     `json:"archetype"`
	MeterName     string                     `json:"meterName"`
	Stats         Stats                      `json:"stats"`
	Styles        []Style                    `json:"styles"`
	Hurtbox       Size                       `json:"hurtbox"`
	HandHeight    float64                    `json:"handHeight"`
	AirHandHeight float64                    `json:"airHandHeight"`
	ProjectileArc bool                       `json:"projectileArc,omitempty"`
	ComboTitles   []string                   `json:"comboTitles"`
	Fatality      string                     `json:"fatality"`
	Boss          bool                       `json:"boss,omitempty"`
	Moves         map[Action]*MoveDefinition `json:"moves"`
}

// Style returns the modifiers for a style index, neutral when out of range
func (c *CharacterDefinition) Style(index int) StyleModifiers {
	if c == nil || index < 0 || index >= len(c.Styles) {
		return NeutralStyle
	}
	return c.Styles[index].StyleModifiers
}

// ComboTitle returns the title for a combo milestone index
func (c *CharacterDefinition) ComboTitle(milestone int) string {
	if c == nil || milestone < 0 || milestone >= len(c.ComboTitles) {
		return ""
	}
	return c.ComboTitles[milestone]
}

// Roster holds every character plus the shared move defaults
type Roster struct {
	characters map[CharacterID]*CharacterDefinition
	order      []CharacterID
	moves      MoveTable
}

// NewRoster builds a roster from already-constructed definitions
func NewRoster(defs ...*CharacterDefinition) *Roster {
	r := &Roster{
		characters: make(map[CharacterID]*CharacterDefinition, len(defs)),
		moves:      newMoveTable(),
	}
	for _, d := range defs {
		if d.Moves == nil {
			d.Moves = map[Action]*MoveDefinition{}
		}
		r.characters[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r
}

// DefaultRoster parses the embedded roster document
func DefaultRoster() (*Roster, error) {
	return LoadRoster(rosterJSON, nil)
}

// MustDefaultRoster is DefaultRoster for embedded data that is known to be valid
func MustDefaultRoster() *Roster {
	r, err := DefaultRoster()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadRoster parses a roster document after applying tuning overrides.
// Override keys are paths below "characters", e.g. "khayati.moves.ATTACK_RP.damage".
func LoadRoster(doc []byte, tuning map[string]string) (*Roster, error) {
	if doc == nil {
		doc = rosterJSON
	}
	doc, err := ApplyTuning(doc, tuning)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(doc) {
		return nil, errors.New("roster: invalid JSON document")
	}

	root := gjson.ParseBytes(doc)
	chars := root.Get("characters")
	if !chars.IsObject() {
		return nil, errors.New("roster: missing characters object")
	}

	var defs []*CharacterDefinition
	var parseErr error
	chars.ForEach(func(key, value gjson.Result) bool {
		def, err := parseCharacter(CharacterID(key.String()), value)
		if err != nil {
			parseErr = err
			return false
		}
		defs = append(defs, def)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	rank := map[CharacterID]int{}
	for i, id := range root.Get("order").Array() {
		rank[CharacterID(id.String())] = i + 1
	}
	sort.SliceStable(defs, func(i, j int) bool {
		ri, rj := rank[defs[i].ID], rank[defs[j].ID]
		if ri == 0 || rj == 0 {
			return ri != 0 && rj == 0
		}
		return ri < rj
	})
	return NewRoster(defs...), nil
}

// ApplyTuning writes override values into a roster document
func ApplyTuning(doc []byte, tuning map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(tuning))
	for k := range tuning {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := doc
	for _, k := range keys {
		path := "characters." + k
		if !gjson.GetBytes(out, path).Exists() {
			return nil, fmt.Errorf("tuning: unknown path %q", k)
		}
		var err error
		out, err = sjson.SetBytes(out, path, tuningValue(tuning[k]))
		if err != nil {
			return nil, fmt.Errorf("tuning %q: %w", k, err)
		}
	}
	return out, nil
}

func tuningValue(raw string) interface{} {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func parseCharacter(id CharacterID, v gjson.Result) (*CharacterDefinition, error) {
	def := &CharacterDefinition{
		ID:        id,
		Name:      v.Get("name").String(),
		Archetype: v.Get("archetype").String(),
		MeterName: v.Get("meterName").String(),
		Stats: Stats{
			Speed:   floatOr(v.Get("stats.speed"), 1),
			Power:   floatOr(v.Get("stats.power"), 1),
			Defense: floatOr(v.Get("stats.defense"), 1),
		},
		Hurtbox: Size{
			Width:  floatOr(v.Get("hurtbox.width"), DefaultHurtbox.Width),
			Height: floatOr(v.Get("hurtbox.height"), DefaultHurtbox.Height),
		},
		HandHeight:    floatOr(v.Get("handHeight"), 210),
		AirHandHeight: floatOr(v.Get("airHandHeight"), 250),
		ProjectileArc: v.Get("projectileArc").Bool(),
		Fatality:      v.Get("fatality").String(),
		Boss:          v.Get("boss").Bool(),
		Moves:         make(map[Action]*MoveDefinition),
	}
	if def.Fatality == "" {
		def.Fatality = "FATALITY"
	}
	for _, t := range v.Get("comboTitles").Array() {
		def.ComboTitles = append(def.ComboTitles, t.String())
	}
	for _, s := range v.Get("styles").Array() {
		def.Styles = append(def.Styles, Style{
			Name: s.Get("name").String(),
			StyleModifiers: StyleModifiers{
				Power:     floatOr(s.Get("power"), 1),
				Speed:     floatOr(s.Get("speed"), 1),
				Defense:   floatOr(s.Get("defense"), 1),
				MeterGain: floatOr(s.Get("meterGain"), 1),
			},
		})
	}
	if len(def.Styles) != 2 {
		return nil, fmt.Errorf("character %s: expected 2 styles, got %d", id, len(def.Styles))
	}

	var moveErr error
	v.Get("moves").ForEach(func(key, m gjson.Result) bool {
		action, ok := ParseAction(key.String())
		if !ok {
			moveErr = fmt.Errorf("character %s: unknown action %q", id, key.String())
			return false
		}
		move, err := parseMove(m)
		if err != nil {
			moveErr = fmt.Errorf("character %s: %w", id, err)
			return false
		}
		def.Moves[action] = move
		return true
	})
	if moveErr != nil {
		return nil, moveErr
	}
	return def, nil
}

func parseMove(m gjson.Result) (*MoveDefinition, error) {
	typ := m.Get("type").String()
	if typ == "" {
		typ = "mid"
	}
	mt, err := ParseMoveType(typ)
	if err != nil {
		return nil, err
	}
	move := &MoveDefinition{
		Name:         m.Get("name").String(),
		Damage:       m.Get("damage").Float(),
		MeterGain:    m.Get("meterGain").Float(),
		Startup:      int(m.Get("startup").Int()),
		Active:       int(m.Get("active").Int()),
		Recovery:     int(m.Get("recovery").Int()),
		HitStun:      int(m.Get("hitStun").Int()),
		RangeX:       m.Get("rangeX").Float(),
		RangeY:       m.Get("rangeY").Float(),
		Type:         mt,
		Knockback:    m.Get("knockback").Float(),
		IsProjectile: m.Get("isProjectile").Bool(),
		IsGrab:       m.Get("isGrab").Bool(),
		SelfDamage:   m.Get("selfDamage").Float(),
	}
	return move, move.validate()
}

func floatOr(r gjson.Result, def float64) float64 {
	if !r.Exists() {
		return def
	}
	return r.Float()
}

// Get returns a character definition
func (r *Roster) Get(id CharacterID) (*CharacterDefinition, bool) {
	c, ok := r.characters[id]
	return c, ok
}

// IDs returns the characters in display order
func (r *Roster) IDs() []CharacterID {
	out := make([]CharacterID, len(r.order))
	copy(out, r.order)
	return out
}

// Move resolves frame data for a character action
func (r *Roster) Move(c *CharacterDefinition, action Action) *MoveDefinition {
	return r.moves.Resolve(c, action)
}
