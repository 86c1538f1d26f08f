package scenes

import (
	"image/color"
	"log"
	"math"
	"sync"
	"time"

	"github.com/automoto/herdview/config"
	"github.com/automoto/herdview/fonts"
	"github.com/automoto/herdview/network"
	"github.com/automoto/herdview/render"
	"github.com/automoto/herdview/systems"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

const layerDefault ecs.LayerID = 0

// Feed is what the viewer needs from the snapshot pipeline. Snapshots reach
// the Inbox from the source's goroutine; the scene drains it on its own tick.
type Feed struct {
	Inbox  *network.Inbox
	Status func() string // short source description for the status bar
	Drops  func() uint64 // transport-level drops, may be nil
	Quit   func()        // called on Escape, may be nil
}

// ViewerScene renders interpolated agents over the latest world layout.
type ViewerScene struct {
	ecsWorld *ecs.ECS
	feed     Feed

	interp  *network.Interpolator
	history *network.ArrivalHistory
	agents  *systems.AgentSync
	once    sync.Once
}

func NewViewerScene(feed Feed) *ViewerScene {
	return &ViewerScene{
		feed:    feed,
		interp:  network.NewInterpolator(config.Interp),
		history: &network.ArrivalHistory{},
		agents:  systems.NewAgentSync(),
	}
}

func (vs *ViewerScene) Update() {
	vs.once.Do(vs.configure)
	vs.ecsWorld.Update()
}

func (vs *ViewerScene) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)

	if vs.ecsWorld == nil {
		return
	}
	vs.ecsWorld.Draw(screen)
}

func (vs *ViewerScene) configure() {
	vs.ecsWorld = ecs.NewECS(donburi.NewWorld())

	if config.C.Font != "" {
		if err := fonts.LoadFile(config.C.Font); err != nil {
			log.Printf("[viewer] using built-in font: %v", err)
		}
	}

	vs.ecsWorld.AddSystem(vs.ingest)
	vs.ecsWorld.AddSystem(vs.syncAgents)
	vs.ecsWorld.AddSystem(vs.handleInput)
	vs.ecsWorld.AddSystem(updateCamera)
	vs.ecsWorld.AddRenderer(layerDefault, drawWorld)
	vs.ecsWorld.AddRenderer(layerDefault, drawAgents)
	vs.ecsWorld.AddRenderer(layerDefault, drawOverlay)
}

// ingest applies every snapshot that arrived since the last tick before any
// pose is queried for this tick.
func (vs *ViewerScene) ingest(e *ecs.ECS) {
	now := time.Now()
	if vs.feed.Inbox != nil {
		vs.feed.Inbox.Apply(vs.interp, vs.history)
	}
	systems.UpdateOverview(e.World, vs.interp, vs.history, now)

	ov := systems.OverviewOf(e.World)
	if vs.feed.Status != nil {
		ov.Source = vs.feed.Status()
	}
	ov.Dropped = 0
	if vs.feed.Inbox != nil {
		ov.Dropped += vs.feed.Inbox.Dropped()
	}
	if vs.feed.Drops != nil {
		ov.Dropped += vs.feed.Drops()
	}

	if latest := ov.Latest; latest != nil {
		systems.EnsureSpace(e.World, int(math.Ceil(latest.Width)), int(math.Ceil(latest.Height)))
		systems.FitCamera(e.World, latest.Width, latest.Height, float64(config.C.Width), float64(config.C.Height))
	}
}

func (vs *ViewerScene) syncAgents(e *ecs.ECS) {
	vs.agents.Apply(e.World, vs.interp.Interpolated(time.Now()))
}

func (vs *ViewerScene) handleInput(e *ecs.ECS) {
	w := e.World

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && vs.feed.Quit != nil {
		vs.feed.Quit()
		return
	}

	latest := systems.OverviewOf(w).Latest
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		systems.CycleSelection(w, latest.SortedIDs(), 1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		systems.CycleSelection(w, latest.SortedIDs(), -1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		systems.CameraOf(w).Fitted = false
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		x, y := ebiten.CursorPosition()
		p := systems.ScreenToWorld(systems.CameraOf(w), r2.Vec{X: float64(x), Y: float64(y)},
			float64(config.C.Width), float64(config.C.Height))
		systems.PickOrClear(w, p)
	}

	if _, dy := ebiten.Wheel(); dy != 0 {
		systems.ZoomCamera(w, math.Pow(1.1, dy))
	}
}

func updateCamera(e *ecs.ECS) {
	systems.UpdateCamera(e.World, 1/float64(ebiten.TPS()))
}

func drawWorld(e *ecs.ECS, screen *ebiten.Image) {
	render.DrawTerrain(screen, systems.CameraOf(e.World), systems.OverviewOf(e.World).Latest)
}

func drawAgents(e *ecs.ECS, screen *ebiten.Image) {
	render.DrawAgents(screen, e.World)
}

func drawOverlay(e *ecs.ECS, screen *ebiten.Image) {
	render.DrawHUD(screen, e.World)
	render.DrawStatus(screen, e.World)
}
