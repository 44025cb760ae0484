// Package render draws match snapshots as images for the debug frame endpoint.
package render

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"io"
	"strings"
	"sync"

	"critique-kombat/internal/config"
	"critique-kombat/internal/game"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// WorldWidth is the horizontal world span mapped onto the frame
const WorldWidth = 2400.0

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrid       = color.RGBA{30, 30, 45, 255}
	colorFloor      = color.RGBA{70, 60, 90, 255}
	colorText       = color.RGBA{255, 255, 255, 255}
	colorSubtle     = color.RGBA{160, 165, 180, 255}
	colorPanel      = color.RGBA{18, 18, 24, 235}
	colorAccent     = color.RGBA{0, 212, 255, 255}
	colorHP         = color.RGBA{83, 255, 69, 255}
	colorHPWarn     = color.RGBA{255, 149, 0, 255}
	colorHPLow      = color.RGBA{255, 62, 62, 255}
	colorMeter      = color.RGBA{255, 215, 0, 255}
	colorHitbox     = color.RGBA{255, 40, 40, 255}
	colorHit        = color.RGBA{255, 220, 120, 255}
	colorBlock      = color.RGBA{200, 220, 255, 255}
	colorCabinet    = color.RGBA{120, 90, 60, 255}
	colorBlood      = color.RGBA{150, 0, 0, 255}

	playerColor = color.RGBA{0, 150, 255, 255}
	enemyColor  = color.RGBA{255, 70, 70, 255}

	// Body fills, chosen per character by a stable hash of its id
	palette = []color.RGBA{
		{230, 126, 34, 255},
		{155, 89, 182, 255},
		{46, 204, 113, 255},
		{241, 196, 15, 255},
		{52, 152, 219, 255},
		{236, 240, 241, 255},
		{231, 76, 60, 255},
	}
)

func sideColor(s game.Side) color.RGBA {
	if s == game.SideEnemy {
		return enemyColor
	}
	return playerColor
}

func characterColor(id game.CharacterID) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Fonts are parsed once; faces are created per renderer since they are not
// safe for concurrent use.
var (
	fontsOnce   sync.Once
	fontRegular *opentype.Font
	fontBold    *opentype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if fontRegular, fontsErr = opentype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		fontBold, fontsErr = opentype.Parse(gobold.TTF)
	})
	return fontsErr
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// Renderer draws snapshots into a reusable gg context. Not safe for
// concurrent use; see Pool.
type Renderer struct {
	width, height int
	scale         float64
	groundY       float64

	dc      *gg.Context
	small   font.Face
	medium  font.Face
	large   font.Face
	effects *Effects
	frame   Frame
}

// NewRenderer creates a renderer. effects may be shared between renderers.
func NewRenderer(cfg config.VideoConfig, effects *Effects) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	if effects == nil {
		effects = NewEffects()
	}
	r := &Renderer{
		width:   cfg.Width,
		height:  cfg.Height,
		scale:   float64(cfg.Width) / WorldWidth,
		groundY: float64(cfg.Height) * 0.86,
		dc:      gg.NewContext(cfg.Width, cfg.Height),
		effects: effects,
	}
	var err error
	if r.small, err = newFace(fontRegular, 16); err != nil {
		return nil, err
	}
	if r.medium, err = newFace(fontBold, 24); err != nil {
		return nil, err
	}
	if r.large, err = newFace(fontBold, 64); err != nil {
		return nil, err
	}
	return r, nil
}

// RenderPNG draws snap and encodes the frame
func (r *Renderer) RenderPNG(w io.Writer, snap *game.MatchSnapshot) error {
	r.Draw(snap)
	return r.dc.EncodePNG(w)
}

// Draw renders snap and returns the frame, valid until the next Draw
func (r *Renderer) Draw(snap *game.MatchSnapshot) image.Image {
	dc := r.dc
	r.effects.Advance(snap)
	r.effects.Current(&r.frame)

	r.drawBackground()

	switch snap.Phase {
	case game.PhaseTitle:
		r.drawTitle()
	case game.PhaseCharSelect:
		r.drawCharSelect(snap)
	default:
		dc.Push()
		dc.Translate(r.frame.ShakeX, r.frame.ShakeY)
		r.drawArena(snap)
		dc.Pop()
		r.drawEffects()
		r.drawHUD(snap)
		r.drawOverlay(snap)
	}
	return dc.Image()
}

// screen converts world coordinates (y up from the floor) to pixels
func (r *Renderer) screen(x, y float64) (float64, float64) {
	return x * r.scale, r.groundY - y*r.scale
}

// screenBox converts a world box to a pixel rectangle
func (r *Renderer) screenBox(b game.Box) (x, y, w, h float64) {
	x, y = r.screen(b.Left, b.Top)
	return x, y, (b.Right - b.Left) * r.scale, (b.Top - b.Bottom) * r.scale
}

func (r *Renderer) drawBackground() {
	dc := r.dc
	dc.SetColor(colorBackground)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	dc.SetColor(color.White)
	for i := 0; i < 30; i++ {
		x := float64((i * 67) % r.width)
		y := float64((i * 47) % int(r.groundY))
		dc.DrawCircle(x, y, 1)
		dc.Fill()
	}

	dc.SetColor(colorGrid)
	dc.SetLineWidth(1)
	for x := 0.0; x < float64(r.width); x += 100 {
		dc.DrawLine(x, r.groundY, x, float64(r.height))
		dc.Stroke()
	}

	dc.SetColor(colorFloor)
	dc.DrawRectangle(0, r.groundY, float64(r.width), 4)
	dc.Fill()
}

func (r *Renderer) drawTitle() {
	dc := r.dc
	cx, cy := float64(r.width)/2, float64(r.height)/2

	dc.SetFontFace(r.large)
	dc.SetColor(withAlpha(colorAccent, 0.25))
	dc.DrawStringAnchored("CRITIQUE KOMBAT", cx+3, cy-37, 0.5, 0.5)
	dc.SetColor(colorText)
	dc.DrawStringAnchored("CRITIQUE KOMBAT", cx, cy-40, 0.5, 0.5)

	dc.SetFontFace(r.medium)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored("PRESS CONFIRM", cx, cy+40, 0.5, 0.5)
}

func (r *Renderer) drawCharSelect(snap *game.MatchSnapshot) {
	dc := r.dc
	dc.SetFontFace(r.medium)
	dc.SetColor(colorText)
	dc.DrawStringAnchored("CHOOSE YOUR THEORIST", float64(r.width)/2, 60, 0.5, 0.5)

	n := len(snap.Roster)
	if n == 0 {
		return
	}
	const cardW, cardH, gap = 180.0, 240.0, 20.0
	total := float64(n)*cardW + float64(n-1)*gap
	x0 := (float64(r.width) - total) / 2
	y := float64(r.height)/2 - cardH/2

	dc.SetFontFace(r.small)
	for i, id := range snap.Roster {
		x := x0 + float64(i)*(cardW+gap)
		dc.SetColor(colorPanel)
		dc.DrawRoundedRectangle(x, y, cardW, cardH, 6)
		dc.Fill()

		dc.SetColor(characterColor(id))
		dc.DrawRectangle(x+cardW/2-30, y+40, 60, 120)
		dc.Fill()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(strings.ToUpper(string(id)), x+cardW/2, y+cardH-30, 0.5, 0.5)

		if i == snap.Cursor {
			dc.SetColor(colorAccent)
			dc.SetLineWidth(4)
			dc.DrawRoundedRectangle(x-4, y-4, cardW+8, cardH+8, 8)
			dc.Stroke()
		}
	}
}

func (r *Renderer) drawArena(snap *game.MatchSnapshot) {
	if snap.Bonus != nil {
		r.drawCabinet(snap.Bonus)
	}
	for _, a := range r.frame.Afterimages {
		x, y, w, h := r.screenBox(a.Box)
		r.dc.SetColor(withAlpha(a.Color, a.Alpha))
		r.dc.DrawRectangle(x, y, w, h)
		r.dc.Fill()
	}
	for _, f := range []*game.FighterSnapshot{snap.Enemy, snap.Player} {
		if f != nil {
			r.drawFighter(f)
		}
	}
	r.drawProjectiles(snap.Projectiles)
}

func (r *Renderer) drawCabinet(b *game.BonusSnapshot) {
	dc := r.dc
	x, y, w, h := r.screenBox(b.Box)
	if b.Broken {
		// Rubble: the lower third of the cabinet
		y += h * 2 / 3
		h /= 3
	}
	dc.SetColor(colorCabinet)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()
	dc.SetColor(colorText)
	dc.SetLineWidth(2)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	if !b.Broken {
		// Screen of the cabinet
		dc.SetColor(color.RGBA{20, 40, 30, 255})
		dc.DrawRectangle(x+w*0.15, y+h*0.1, w*0.7, h*0.3)
		dc.Fill()
	}
}

func (r *Renderer) drawFighter(f *game.FighterSnapshot) {
	dc := r.dc
	x, y, w, h := r.screenBox(f.Hurtbox)

	// Shadow
	sx, sy := r.screen(f.X, 0)
	dc.SetColor(color.RGBA{0, 0, 0, 128})
	dc.DrawEllipse(sx, sy+2, w/2+6, 6)
	dc.Fill()

	body := characterColor(f.Character)
	if f.StunFrames > 0 {
		body = withAlpha(body, 0.6)
	}
	dc.SetColor(body)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetColor(sideColor(f.Side))
	dc.SetLineWidth(3)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()

	// Facing marker at head height
	dir := 1.0
	if f.FacingLeft {
		dir = -1
	}
	hx := x + w/2 + dir*w/2
	dc.MoveTo(hx, y+12)
	dc.LineTo(hx+dir*14, y+20)
	dc.LineTo(hx, y+28)
	dc.ClosePath()
	dc.Fill()

	if f.IsBlocking {
		dc.SetColor(withAlpha(colorBlock, 0.7))
		dc.DrawRectangle(hx-dir*6-3, y+h*0.2, 6, h*0.6)
		dc.Fill()
	}

	if f.Hitbox != nil {
		hx, hy, hw, hh := r.screenBox(*f.Hitbox)
		dc.SetColor(withAlpha(colorHitbox, 0.3))
		dc.DrawRectangle(hx, hy, hw, hh)
		dc.Fill()
		dc.SetColor(colorHitbox)
		dc.SetLineWidth(2)
		dc.DrawRectangle(hx, hy, hw, hh)
		dc.Stroke()
	}

	dc.SetFontFace(r.small)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(f.Action.String(), x+w/2, y-12, 0.5, 0.5)
}

func (r *Renderer) drawProjectiles(projectiles []game.ProjectileSnapshot) {
	dc := r.dc
	for _, p := range projectiles {
		c := sideColor(p.Owner)
		for i := range p.TrailX {
			tx, ty := r.screen(p.TrailX[i], p.TrailY[i])
			dc.SetColor(withAlpha(c, 0.15*float64(i+1)))
			dc.DrawCircle(tx, ty, 4+float64(i))
			dc.Fill()
		}
		px, py := r.screen(p.X, p.Y)
		dc.SetColor(c)
		dc.DrawCircle(px, py, 10)
		dc.Fill()
		dc.SetColor(colorText)
		dc.SetLineWidth(2)
		dc.DrawCircle(px, py, 10)
		dc.Stroke()
	}
}

// drawEffects blends flashes straight into the frame buffer
func (r *Renderer) drawEffects() {
	img, ok := r.dc.Image().(*image.RGBA)
	if !ok {
		return
	}
	b := NewBlender(img)
	for _, f := range r.frame.Flashes {
		x, y := r.screen(f.X, f.Y)
		cx, cy := int(x+r.frame.ShakeX+0.5), int(y+r.frame.ShakeY+0.5)
		a := f.Alpha()
		b.FillCircle(cx, cy, f.Radius*0.6, withAlpha(colorText, a*0.8))
		b.Ring(cx, cy, f.Radius, 3, withAlpha(f.Color, a))
	}
}

func (r *Renderer) drawHUD(snap *game.MatchSnapshot) {
	dc := r.dc
	const margin, barH = 32.0, 22.0
	barW := float64(r.width)/2 - margin - 70

	for _, f := range []*game.FighterSnapshot{snap.Player, snap.Enemy} {
		if f == nil {
			continue
		}
		x := margin
		align := 0.0
		if f.Side == game.SideEnemy {
			x = float64(r.width) - margin - barW
			align = 1
		}

		// HP bar: the enemy's drains toward the center
		pct := max(0, f.HP/game.MaxHP)
		dc.SetColor(color.RGBA{51, 51, 51, 255})
		dc.DrawRectangle(x, margin, barW, barH)
		dc.Fill()
		switch {
		case pct > 0.5:
			dc.SetColor(colorHP)
		case pct > 0.25:
			dc.SetColor(colorHPWarn)
		default:
			dc.SetColor(colorHPLow)
		}
		fill := barW * pct
		fx := x
		if f.Side == game.SideEnemy {
			fx = x + barW - fill
		}
		dc.DrawRectangle(fx, margin, fill, barH)
		dc.Fill()

		// Meter
		dc.SetColor(colorMeter)
		dc.DrawRectangle(x, margin+barH+6, barW*f.Meter/game.MaxMeter, 6)
		dc.Fill()

		// Name, style and round wins
		dc.SetFontFace(r.small)
		dc.SetColor(colorText)
		label := strings.ToUpper(f.Name)
		if f.StyleName != "" {
			label += "  [" + f.StyleName + "]"
		}
		nx := x
		if align == 1 {
			nx = x + barW
		}
		dc.DrawStringAnchored(label, nx, margin+barH+30, align, 0.5)
		for i := 0; i < f.RoundsWon; i++ {
			off := float64(i) * 18
			if align == 1 {
				off = -off
			}
			dc.SetColor(colorMeter)
			dc.DrawCircle(nx+off+(1-2*align)*6, margin+barH+50, 6)
			dc.Fill()
		}

		if f.ComboCount >= 2 {
			dc.SetFontFace(r.medium)
			dc.SetColor(colorAccent)
			dc.DrawStringAnchored(fmt.Sprintf("%d HITS", f.ComboCount), nx, margin+barH+80, align, 0.5)
		}
	}

	// Timer
	cx := float64(r.width) / 2
	dc.SetColor(colorPanel)
	dc.DrawRoundedRectangle(cx-45, margin-6, 90, 54, 6)
	dc.Fill()
	dc.SetFontFace(r.medium)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(fmt.Sprintf("%02d", snap.Timer), cx, margin+barH/2+4, 0.5, 0.5)

	if snap.Bonus != nil {
		dc.SetFontFace(r.small)
		dc.SetColor(colorSubtle)
		dc.DrawStringAnchored(fmt.Sprintf("CABINET %.0f/%.0f", snap.Bonus.HP, snap.Bonus.MaxHP), cx, margin+70, 0.5, 0.5)
	}
}

// drawOverlay draws phase banners and the fatality tint
func (r *Renderer) drawOverlay(snap *game.MatchSnapshot) {
	dc := r.dc
	cx, cy := float64(r.width)/2, float64(r.height)*0.4

	if snap.Fatality != nil {
		// The screen darkens toward blood red as the finisher progresses
		tint := 0.15 * float64(snap.Fatality.Phase+1)
		dc.SetColor(withAlpha(colorBlood, tint))
		dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
		dc.Fill()
		dc.SetFontFace(r.medium)
		dc.SetColor(colorText)
		dc.DrawStringAnchored(strings.ToUpper(snap.Fatality.Name), cx, cy+70, 0.5, 0.5)
	}

	text := snap.Message
	switch {
	case text != "":
	case snap.Phase == game.PhaseFinishHim:
		text = "FINISH HIM"
	case snap.Phase == game.PhaseGameOver:
		text = "GAME OVER"
	}
	if text == "" {
		return
	}
	dc.SetFontFace(r.large)
	dc.SetColor(color.RGBA{0, 0, 0, 160})
	dc.DrawStringAnchored(text, cx+4, cy+4, 0.5, 0.5)
	dc.SetColor(colorMeter)
	dc.DrawStringAnchored(text, cx, cy, 0.5, 0.5)
}
