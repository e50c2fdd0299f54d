// Package scene drives the particle field behind the lottery wheel: it loads
// one texture per participant photo, scatters a fixed budget of points in a
// cube, moves the camera after the pointer, and swaps every point group to
// the winners' photos when a draw completes.
package scene

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/logger"
	"luckydraw/internal/models"
)

// Phase is the scene lifecycle state.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseIdleField   Phase = "idle-field"
	PhaseWinnerFocus Phase = "winner-focus"
)

var (
	// ErrMounted is returned when mounting a scene twice.
	ErrMounted = errors.New("scene already mounted")
	// ErrClosed is returned when mounting a scene that was torn down.
	ErrClosed = errors.New("scene closed")
)

// Material maps a texture onto a point group.
type Material struct {
	Texture *Texture
	Size    float64
}

// Group is a set of points sharing one material and one rotation.
type Group struct {
	Vertices []Vec3
	Rotation Vec3
	Rate     float64 // swirl multiplier around Y
}

// Config sizes the field and the viewport.
type Config struct {
	ParticleCount   int
	CubeHalfExtent  float64
	Width, Height   int
	MinPointSize    float64
	PointSizeRange  float64
	WinnerPointSize float64
	Seed            int64
}

// DefaultConfig mirrors the classic wheel: 7000 points in a 2000 unit cube.
func DefaultConfig() Config {
	return Config{
		ParticleCount:   7000,
		CubeHalfExtent:  1000,
		Width:           1280,
		Height:          720,
		MinPointSize:    40,
		PointSizeRange:  40,
		WinnerPointSize: 120,
	}
}

// Status is a read-only view of the scene.
type Status struct {
	Phase      Phase   `json:"phase"`
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Progress   int     `json:"progress"`
	Loaded     int     `json:"loaded"`
	Groups     int     `json:"groups"`
	Particles  int     `json:"particles"`
	Generation uint64  `json:"generation"`
	FreeCamera bool    `json:"freeCamera"`
	Camera     Vec3    `json:"camera"`
	Frames     uint64  `json:"frames"`
	Swirl      float64 `json:"swirl"`
}

// Scene owns the camera, the renderer handle, the point groups and the
// generation counter. All fields are guarded by mu; frame, loader and input
// callbacks take it in turn, which keeps one logical thread of control.
type Scene struct {
	mu       sync.Mutex
	cfg      Config
	loader   TextureLoader
	renderer Renderer
	sched    Scheduler
	rng      *rand.Rand

	loop   *Loop
	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup

	mounted bool
	closed  bool

	phase      Phase
	completed  int
	total      int
	baseTex    []*Texture
	groups     []*Group
	baseMats   []*Material
	current    []*Material
	winnerMats []*Material
	generation uint64

	camera     Camera
	started    bool
	free       bool
	swirl      float64
	pointerX   float64
	pointerY   float64
	halfW      float64
	halfH      float64
	lastFrame  time.Time
	frames     uint64
	renderErrs int
}

// New creates an unmounted scene.
func New(cfg Config, loader TextureLoader, renderer Renderer, sched Scheduler) *Scene {
	def := DefaultConfig()
	if cfg.ParticleCount <= 0 {
		cfg.ParticleCount = def.ParticleCount
	}
	if cfg.CubeHalfExtent <= 0 {
		cfg.CubeHalfExtent = def.CubeHalfExtent
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.MinPointSize <= 0 {
		cfg.MinPointSize = def.MinPointSize
	}
	if cfg.PointSizeRange < 0 {
		cfg.PointSizeRange = 0
	}
	if cfg.WinnerPointSize <= 0 {
		cfg.WinnerPointSize = def.WinnerPointSize
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scene{
		cfg:      cfg,
		loader:   loader,
		renderer: renderer,
		sched:    sched,
		rng:      rand.New(rand.NewSource(seed)),
		phase:    PhaseLoading,
		camera:   Camera{Position: Vec3{Z: startDepth}, FOV: 75, Near: 0.1, Far: 6000},
		halfW:    float64(cfg.Width) / 2,
		halfH:    float64(cfg.Height) / 2,
	}
}

// Mount acquires the scene resources: the frame loop and the photo loader.
// They stay alive until Close, which must be called on every exit path.
func (s *Scene) Mount(ctx context.Context, participants []models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.mounted {
		return ErrMounted
	}
	s.mounted = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	refs := make([]string, len(participants))
	for i, p := range participants {
		refs[i] = p.Photo
	}
	s.total = len(refs)

	s.loads.Add(1)
	go s.loadField(s.ctx, refs)

	s.loop = NewLoop(s.sched, s.frame)
	s.loop.Start()
	logger.Infof("Scene mounted, loading %d photos", len(refs))
	return nil
}

// Close cancels the loop and pending loads and releases the renderer.
// It is idempotent.
func (s *Scene) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	loop, cancel := s.loop, s.cancel
	s.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}
	if cancel != nil {
		cancel()
	}
	s.loads.Wait()

	var err error
	if s.renderer != nil {
		err = s.renderer.Close()
	}
	logger.Infof("Scene closed")
	return err
}

// loadField fetches every participant photo one at a time, skipping the
// ones that fail, then builds the point field.
func (s *Scene) loadField(ctx context.Context, refs []string) {
	defer s.loads.Done()

	for i, res := range LoadSequential(ctx, s.loader, refs) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.completed = i + 1
		if res.Err != nil {
			logger.Warningf("Skipping photo %d (%s): %v", i, res.Ref, res.Err)
		} else {
			s.baseTex = append(s.baseTex, res.Texture)
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return
	}
	s.buildFieldLocked()
	logger.Infof("Scene ready: %d/%d photos, %d groups", len(s.baseTex), len(refs), len(s.groups))
}

// buildFieldLocked splits the particle budget evenly across the loaded
// textures, one group per texture.
func (s *Scene) buildFieldLocked() {
	n := len(s.baseTex)
	s.groups = make([]*Group, 0, n)
	s.baseMats = make([]*Material, 0, n)
	if n > 0 {
		perGroup := s.cfg.ParticleCount / n
		if perGroup < 1 {
			perGroup = 1
		}
		h := s.cfg.CubeHalfExtent
		for i, tex := range s.baseTex {
			verts := make([]Vec3, perGroup)
			for j := range verts {
				verts[j] = Vec3{
					X: s.rng.Float64()*2*h - h,
					Y: s.rng.Float64()*2*h - h,
					Z: s.rng.Float64()*2*h - h,
				}
			}
			rate := float64(i + 1)
			if i >= 4 {
				rate = -rate
			}
			s.groups = append(s.groups, &Group{
				Vertices: verts,
				Rotation: Vec3{X: s.rng.Float64() * 6, Y: s.rng.Float64() * 6, Z: s.rng.Float64() * 6},
				Rate:     rate,
			})
			s.baseMats = append(s.baseMats, &Material{
				Texture: tex,
				Size:    s.cfg.MinPointSize + s.rng.Float64()*s.cfg.PointSizeRange,
			})
		}
	}

	s.started = true
	s.phase = PhaseIdleField
	s.current = append([]*Material(nil), s.baseMats...)
	if len(s.winnerMats) > 0 {
		s.applyWinnersLocked()
	}
}

// SetFreeCamera switches between idle look-around and full pointer pan.
func (s *Scene) SetFreeCamera(free bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.free = free
}

// SetWinners focuses the field on the winners' photos, or restores the
// participant photos when winners is empty. Winner photos load in the
// background; materials change only once all of them are done, and only if
// no newer call happened meanwhile.
func (s *Scene) SetWinners(winners []models.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	gen := s.generation
	if len(winners) == 0 {
		s.winnerMats = nil
		if s.phase == PhaseWinnerFocus {
			s.current = append([]*Material(nil), s.baseMats...)
			s.phase = PhaseIdleField
		}
		return
	}
	if !s.mounted || s.closed {
		return
	}

	refs := make([]string, len(winners))
	for i, w := range winners {
		refs[i] = w.Photo
	}
	s.loads.Add(1)
	go s.loadWinners(s.ctx, gen, refs)
}

func (s *Scene) loadWinners(ctx context.Context, gen uint64, refs []string) {
	defer s.loads.Done()

	textures := make([]*Texture, 0, len(refs))
	for i, res := range LoadSequential(ctx, s.loader, refs) {
		if res.Err != nil {
			logger.Warningf("Skipping winner photo %d (%s): %v", i, res.Ref, res.Err)
			continue
		}
		textures = append(textures, res.Texture)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation {
		logger.Infof("Discarding winner textures from generation %d (now %d)", gen, s.generation)
		return
	}
	if len(textures) == 0 {
		logger.Warningf("No winner photo could be loaded, keeping the current field")
		return
	}
	s.winnerMats = make([]*Material, len(textures))
	for i, tex := range textures {
		s.winnerMats[i] = &Material{Texture: tex, Size: s.cfg.WinnerPointSize}
	}
	if s.phase != PhaseLoading {
		s.applyWinnersLocked()
	}
}

// applyWinnersLocked swaps every group to a winner material, cycling
// through the winners.
func (s *Scene) applyWinnersLocked() {
	s.current = make([]*Material, len(s.groups))
	for i := range s.groups {
		s.current[i] = s.winnerMats[i%len(s.winnerMats)]
	}
	s.phase = PhaseWinnerFocus
}

// PointerMove records the pointer position in window pixels.
func (s *Scene) PointerMove(x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pointerX = x - s.halfW
	s.pointerY = y - s.halfH
}

// Resize records the viewport size.
func (s *Scene) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cfg.Width, s.cfg.Height = width, height
	s.halfW, s.halfH = float64(width)/2, float64(height)/2
}

// frame advances the camera and the swirl by one step and draws.
func (s *Scene) frame(now time.Time) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	f := s.stepLocked(now)
	s.mu.Unlock()

	if s.renderer == nil {
		return
	}
	if err := s.renderer.Render(f); err != nil {
		s.mu.Lock()
		s.renderErrs++
		first := s.renderErrs == 1
		s.mu.Unlock()
		if first {
			logger.Errorf("Rendering frame failed: %v", err)
		}
	}
}

// stepLocked updates the stored scene state for one frame and returns what
// the renderer needs.
func (s *Scene) stepLocked(now time.Time) *Frame {
	dt := 1.0 / 60
	if !s.lastFrame.IsZero() {
		dt = math.Min(math.Max(now.Sub(s.lastFrame).Seconds(), 0), 0.25)
	}
	s.lastFrame = now
	s.frames++

	tx, ty := s.pointerX*lookAroundScale, -s.pointerY*lookAroundScale
	depth, speed := idleDepth, idleSwirl
	if s.free {
		tx, ty = s.pointerX, -s.pointerY
		depth, speed = rollingDepth, rollingSwirl
	}
	pos := &s.camera.Position
	pos.X = approach(pos.X, tx, dt)
	pos.Y = approach(pos.Y, ty, dt)
	if s.started {
		pos.Z = approach(pos.Z, depth, dt)
	}
	s.swirl += dt * speed

	f := &Frame{Width: s.cfg.Width, Height: s.cfg.Height, Camera: s.camera}
	f.Groups = make([]GroupView, len(s.groups))
	for i, g := range s.groups {
		rot := g.Rotation
		rot.Y = s.swirl * g.Rate
		var mat *Material
		if i < len(s.current) {
			mat = s.current[i]
		}
		f.Groups[i] = GroupView{Rotation: rot, Vertices: g.Vertices, Material: mat}
	}
	return f
}

// Status returns a read-only view of the scene.
func (s *Scene) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	particles := 0
	for _, g := range s.groups {
		particles += len(g.Vertices)
	}
	progress := 100
	if s.total > 0 {
		progress = s.completed * 100 / s.total
	}
	return Status{
		Phase:      s.phase,
		Completed:  s.completed,
		Total:      s.total,
		Progress:   progress,
		Loaded:     len(s.baseTex),
		Groups:     len(s.groups),
		Particles:  particles,
		Generation: s.generation,
		FreeCamera: s.free,
		Camera:     s.camera.Position,
		Frames:     s.frames,
		Swirl:      s.swirl,
	}
}

// Materials returns the material currently mapped to each group.
func (s *Scene) Materials() []*Material {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Material(nil), s.current...)
}
