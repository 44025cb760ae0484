// Package tui is a terminal front end: it draws match snapshots with tcell
// and feeds key presses to the engine.
package tui

import (
	"fmt"
	"strings"

	"critique-kombat/internal/game"

	"github.com/gdamore/tcell/v2"
)

// worldWidth is the horizontal world span mapped onto the terminal
const worldWidth = 2400.0

var (
	styleDefault = tcell.StyleDefault
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleFloor   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(70, 60, 90))
	stylePlayer  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(0, 150, 255))
	styleEnemy   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 70, 70))
	styleHitbox  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHP      = tcell.StyleDefault.Foreground(tcell.NewRGBColor(83, 255, 69))
	styleHPLow   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 62, 62))
	styleMeter   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 215, 0))
	styleCursor  = tcell.StyleDefault.Reverse(true)
	styleCabinet = tcell.StyleDefault.Foreground(tcell.NewRGBColor(120, 90, 60))
)

// View draws snapshots onto a tcell screen
type View struct {
	screen tcell.Screen
}

// NewView creates a view over an initialized screen
func NewView(screen tcell.Screen) *View {
	return &View{screen: screen}
}

// Draw renders snap; the caller shows the screen
func (v *View) Draw(snap *game.MatchSnapshot) {
	v.screen.Clear()
	w, h := v.screen.Size()
	if w < 20 || h < 10 {
		v.text(0, 0, "terminal too small", styleDim)
		return
	}

	switch snap.Phase {
	case game.PhaseTitle:
		v.center(h/2-1, "C R I T I Q U E   K O M B A T", styleTitle)
		v.center(h/2+1, "press confirm", styleDim)
	case game.PhaseCharSelect:
		v.drawSelect(snap, w, h)
	default:
		v.drawArena(snap, w, h)
		v.drawHUD(snap, w)
		v.drawBanner(snap, h)
	}
}

func (v *View) text(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

func (v *View) center(y int, s string, style tcell.Style) {
	w, _ := v.screen.Size()
	v.text((w-len([]rune(s)))/2, y, s, style)
}

func (v *View) drawSelect(snap *game.MatchSnapshot, w, h int) {
	v.center(1, "CHOOSE YOUR THEORIST", styleTitle)
	top := (h - len(snap.Roster)) / 2
	for i, id := range snap.Roster {
		label := fmt.Sprintf("  %-12s  ", strings.ToUpper(string(id)))
		style := styleDefault
		if i == snap.Cursor {
			style = styleCursor
		}
		v.text((w-len(label))/2, top+i, label, style)
	}
	if !snap.Unlocked {
		v.center(h-2, "the boss is locked until the ladder is cleared", styleDim)
	}
}

// cell maps world coordinates to a terminal cell; each row spans rowUnits
// world units above the floor row
func cell(x, y float64, w, floor int) (int, int) {
	rowUnits := worldWidth / float64(w) * 2 // cells are about twice as tall as wide
	return int(x / worldWidth * float64(w)), floor - 1 - int(y/rowUnits)
}

func (v *View) fillBox(b game.Box, w, floor int, r rune, style tcell.Style) {
	x1, y1 := cell(b.Left, b.Top, w, floor)
	x2, y2 := cell(b.Right, b.Bottom, w, floor)
	for y := max(y1, 0); y <= y2 && y < floor; y++ {
		for x := max(x1, 0); x <= x2 && x < w; x++ {
			v.screen.SetContent(x, y, r, nil, style)
		}
	}
}

func (v *View) drawArena(snap *game.MatchSnapshot, w, h int) {
	floor := h - 2
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, floor, '▀', nil, styleFloor)
	}

	if b := snap.Bonus; b != nil && !b.Broken {
		v.fillBox(b.Box, w, floor, '▒', styleCabinet)
	}

	for _, f := range []*game.FighterSnapshot{snap.Enemy, snap.Player} {
		if f == nil {
			continue
		}
		style := stylePlayer
		if f.Side == game.SideEnemy {
			style = styleEnemy
		}
		body := '█'
		switch {
		case f.IsBlocking:
			body = '▓'
		case f.StunFrames > 0:
			body = '░'
		}
		v.fillBox(f.Hurtbox, w, floor, body, style)
		if f.Hitbox != nil {
			v.fillBox(*f.Hitbox, w, floor, '#', styleHitbox)
		}
	}

	for _, p := range snap.Projectiles {
		x, y := cell(p.X, p.Y, w, floor)
		style := stylePlayer
		if p.Owner == game.SideEnemy {
			style = styleEnemy
		}
		v.screen.SetContent(x, y, '*', nil, style)
	}
}

// bar draws a gauge of width cells filled to frac; right-aligned bars drain
// toward the center
func (v *View) bar(x, y, width int, frac float64, rightAlign bool, style tcell.Style) {
	filled := int(frac*float64(width) + 0.5)
	for i := 0; i < width; i++ {
		lit := i < filled
		if rightAlign {
			lit = i >= width-filled
		}
		r := '·'
		s := styleDim
		if lit {
			r, s = '█', style
		}
		v.screen.SetContent(x+i, y, r, nil, s)
	}
}

func (v *View) drawHUD(snap *game.MatchSnapshot, w int) {
	barW := max(4, w/2-6)
	timer := fmt.Sprintf("%02d", snap.Timer)
	v.text((w-len(timer))/2, 0, timer, styleTitle)

	for _, f := range []*game.FighterSnapshot{snap.Player, snap.Enemy} {
		if f == nil {
			continue
		}
		right := f.Side == game.SideEnemy
		x := 0
		if right {
			x = w - barW
		}
		hp := styleHP
		if f.HP < game.MaxHP/4 {
			hp = styleHPLow
		}
		v.bar(x, 0, barW, max(0, f.HP/game.MaxHP), right, hp)
		v.bar(x, 1, barW, f.Meter/game.MaxMeter, right, styleMeter)

		label := strings.ToUpper(f.Name) + strings.Repeat(" ●", f.RoundsWon)
		if f.StyleName != "" {
			label += " [" + f.StyleName + "]"
		}
		if f.ComboCount >= 2 {
			label += fmt.Sprintf(" %d HITS", f.ComboCount)
		}
		lx := x
		if right {
			lx = w - len([]rune(label))
		}
		v.text(lx, 2, label, styleDefault)
	}
}

func (v *View) drawBanner(snap *game.MatchSnapshot, h int) {
	text := snap.Message
	switch {
	case text != "":
	case snap.Phase == game.PhaseFinishHim:
		text = "FINISH HIM"
	case snap.Phase == game.PhaseGameOver:
		text = "GAME OVER"
	}
	if snap.Fatality != nil {
		v.center(h/3+2, strings.ToUpper(snap.Fatality.Name), styleHitbox)
	}
	if text != "" {
		v.center(h/3, text, styleTitle)
	}
}
