// Package termview renders interpolated poses into a terminal grid. It is the
// headless alternative to the window viewer and shares its ingestion path:
// sources push into a network.Inbox, the view drains it once per frame.
package termview

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/shared/world"
	"github.com/gdamore/tcell/v2"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	groundStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	statusStyle   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	facingStyle   = tcell.StyleDefault.Foreground(tcell.ColorDarkCyan)
	selectedStyle = tcell.StyleDefault.Reverse(true)
)

var obstacleGlyphs = map[world.ObstacleType]struct {
	r     rune
	style tcell.Style
}{
	world.ObstacleTypeWall:        {'#', tcell.StyleDefault.Foreground(tcell.ColorWhite)},
	world.ObstacleTypeWaterSource: {'~', tcell.StyleDefault.Foreground(tcell.ColorBlue)},
	world.ObstacleTypeFoodSource:  {'*', tcell.StyleDefault.Foreground(tcell.ColorGreen)},
	world.ObstacleTypeRestArea:    {'=', tcell.StyleDefault.Foreground(tcell.ColorOlive)},
}

// Glyph returns the map character for an entity type.
func Glyph(entityType string) rune {
	switch world.EntityType(entityType) {
	case world.EntityTypeGoat:
		return 'g'
	case world.EntityTypeWolf:
		return 'W'
	default:
		return '@'
	}
}

func glyphStyle(entityType string) tcell.Style {
	switch world.EntityType(entityType) {
	case world.EntityTypeGoat:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case world.EntityTypeWolf:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorWhite)
	}
}

// Arrow returns the character pointing along dir in screen space (y down),
// or 0 when dir has no length.
func Arrow(dir r2.Vec) rune {
	if dir.X == 0 && dir.Y == 0 {
		return 0
	}
	if math.Abs(dir.X) >= math.Abs(dir.Y) {
		if dir.X > 0 {
			return '>'
		}
		return '<'
	}
	if dir.Y > 0 {
		return 'v'
	}
	return '^'
}

// marker is the terminal visual for one entity.
type marker struct {
	id     int
	typ    string
	x, y   int
	facing rune
}

// View owns the interpolator for the terminal consumer and the id-keyed
// marker registry derived from it. Not safe for concurrent use; Run drives it
// from a single goroutine.
type View struct {
	screen  tcell.Screen
	inbox   *network.Inbox
	interp  *network.Interpolator
	history network.ArrivalHistory
	status  func() string

	markers  map[int]*marker
	selected int
	hasSel   bool
	lastTick time.Time
}

// New creates a view drawing onto an initialised screen. status, when non-nil,
// supplies the source description for the status line.
func New(screen tcell.Screen, inbox *network.Inbox, status func() string) *View {
	return &View{
		screen:  screen,
		inbox:   inbox,
		interp:  network.NewInterpolator(config.Interp),
		status:  status,
		markers: make(map[int]*marker),
	}
}

// Run redraws every config.Term.Frame until ctx is done or the user quits.
func (v *View) Run(ctx context.Context) error {
	frame := config.Term.Frame
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go v.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if v.HandleEvent(ev) {
				return nil
			}
		case now := <-ticker.C:
			v.Tick(now)
		}
	}
}

// HandleEvent applies one input event and reports whether the view should exit.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyRight, tcell.KeyDown, tcell.KeyTab:
			v.cycle(1)
		case tcell.KeyLeft, tcell.KeyUp, tcell.KeyBacktab:
			v.cycle(-1)
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return true
			case 'c':
				v.hasSel = false
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return false
}

func (v *View) cycle(step int) {
	ids := make([]int, 0, len(v.markers))
	for id := range v.markers {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		v.hasSel = false
		return
	}
	sort.Ints(ids)

	next := 0
	if step < 0 {
		next = len(ids) - 1
	}
	if v.hasSel {
		if i := sort.SearchInts(ids, v.selected); i < len(ids) && ids[i] == v.selected {
			next = ((i+step)%len(ids) + len(ids)) % len(ids)
		}
	}
	v.selected = ids[next]
	v.hasSel = true
}

// Selected returns the selected entity id.
func (v *View) Selected() (int, bool) {
	return v.selected, v.hasSel
}

// Tick ingests pending snapshots, updates the marker registry and draws a
// frame for the given time.
func (v *View) Tick(now time.Time) {
	v.inbox.Apply(v.interp, &v.history)
	v.lastTick = now

	latest := v.interp.LatestWorld()
	w, h := v.screen.Size()
	rows := h - 1
	sx, sy := scale(latest, w, rows)

	v.sync(v.interp.Interpolated(now), sx, sy, w, rows)

	v.screen.Clear()
	if latest != nil {
		v.drawGround(latest, sx, sy, w, rows)
	}
	v.drawMarkers(w, rows)
	v.drawStatus(latest, w, h)
	v.screen.Show()
}

// sync diffs poses against the registry by id.
func (v *View) sync(poses []network.Pose, sx, sy float64, cols, rows int) {
	present := make(map[int]bool, len(poses))
	for _, p := range poses {
		present[p.ID] = true
		m, ok := v.markers[p.ID]
		if !ok {
			m = &marker{id: p.ID}
			v.markers[p.ID] = m
		}
		m.typ = p.Type
		m.x = cellOf(p.Position.X+0.5, sx, cols)
		m.y = cellOf(p.Position.Y+0.5, sy, rows)
		m.facing = Arrow(p.Direction)
	}
	for id := range v.markers {
		if !present[id] {
			delete(v.markers, id)
		}
	}
	if v.hasSel && !present[v.selected] {
		v.hasSel = false
	}
}

// Markers returns the number of entities currently drawn.
func (v *View) Markers() int {
	return len(v.markers)
}

// scale maps world units to cells: one cell per unit when the world fits,
// shrunk per axis when it does not.
func scale(s *world.State, cols, rows int) (float64, float64) {
	sx, sy := 1.0, 1.0
	if s == nil {
		return sx, sy
	}
	if s.Width > float64(cols) && s.Width > 0 {
		sx = float64(cols) / s.Width
	}
	if s.Height > float64(rows) && s.Height > 0 {
		sy = float64(rows) / s.Height
	}
	return sx, sy
}

func cellOf(v, s float64, limit int) int {
	c := int(math.Floor(v * s))
	if c < 0 {
		return 0
	}
	if c >= limit {
		return limit - 1
	}
	return c
}

func (v *View) drawGround(s *world.State, sx, sy float64, cols, rows int) {
	gw := min(cols, int(math.Ceil(s.Width*sx)))
	gh := min(rows, int(math.Ceil(s.Height*sy)))
	for y := 0; y < gh; y++ {
		for x := 0; x < gw; x++ {
			v.screen.SetContent(x, y, '.', nil, groundStyle)
		}
	}

	for _, ob := range s.StaticObstacles.All() {
		glyph, ok := obstacleGlyphs[ob.Type]
		if !ok {
			continue
		}
		size := world.Vector2D{X: 1, Y: 1}
		if ob.Size != nil {
			size = *ob.Size
		}
		x0 := cellOf(ob.Position.X, sx, cols)
		y0 := cellOf(ob.Position.Y, sy, rows)
		x1 := max(x0, cellOf(ob.Position.X+size.X, sx, cols+1)-1)
		y1 := max(y0, cellOf(ob.Position.Y+size.Y, sy, rows+1)-1)
		for y := y0; y <= y1 && y < rows; y++ {
			for x := x0; x <= x1 && x < cols; x++ {
				v.screen.SetContent(x, y, glyph.r, nil, glyph.style)
			}
		}
	}
}

func (v *View) drawMarkers(cols, rows int) {
	// Facing arrows first so a neighbouring glyph always wins the cell.
	for _, m := range v.markers {
		if m.facing == 0 {
			continue
		}
		x, y := m.x, m.y
		switch m.facing {
		case '>':
			x++
		case '<':
			x--
		case 'v':
			y++
		case '^':
			y--
		}
		if x < 0 || y < 0 || x >= cols || y >= rows {
			continue
		}
		v.screen.SetContent(x, y, m.facing, nil, facingStyle)
	}
	for _, m := range v.markers {
		style := glyphStyle(m.typ)
		if v.hasSel && m.id == v.selected {
			style = selectedStyle
		}
		v.screen.SetContent(m.x, m.y, Glyph(m.typ), nil, style)
	}
}

func (v *View) drawStatus(latest *world.State, cols, h int) {
	if h <= 0 {
		return
	}
	line := v.StatusText(latest)
	y := h - 1
	x := 0
	for _, r := range line {
		if x >= cols {
			break
		}
		v.screen.SetContent(x, y, r, nil, statusStyle)
		x++
	}
	for ; x < cols; x++ {
		v.screen.SetContent(x, y, ' ', nil, statusStyle)
	}
}

// StatusText builds the bottom line: source, entity count, cadence, arrival
// jitter and the selected entity's readings.
func (v *View) StatusText(latest *world.State) string {
	var b strings.Builder
	if v.status != nil {
		fmt.Fprintf(&b, " %s |", v.status())
	}
	mean, worst := v.history.Gaps()
	fmt.Fprintf(&b, " agents %d | cadence %dms | gap %d/%dms",
		len(v.markers), v.interp.Cadence().Milliseconds(), mean.Milliseconds(), worst.Milliseconds())
	if age := v.history.SinceLast(v.lastTick); v.history.Total() > 0 && age > 2*v.interp.Cadence() {
		fmt.Fprintf(&b, " | stale %.1fs", age.Seconds())
	}
	if v.hasSel {
		if e := latest.EntityByID(v.selected); e != nil {
			fmt.Fprintf(&b, " | %s #%d %s h%d t%d r%d",
				e.Type, e.ID, e.State, e.Stats.Hunger, e.Stats.Thirst, e.Stats.Tiredness)
		}
	}
	return b.String()
}
