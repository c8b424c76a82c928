package app

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/soocke/autodl-bot-go/assets"
	"github.com/soocke/autodl-bot-go/config"
	"github.com/soocke/autodl-bot-go/domain/action"
	"github.com/soocke/autodl-bot-go/domain/capture"
	"github.com/soocke/autodl-bot-go/domain/cycle"
	"github.com/soocke/autodl-bot-go/domain/motion"
	"github.com/soocke/autodl-bot-go/domain/profile"
	"github.com/soocke/autodl-bot-go/domain/session"
	"github.com/soocke/autodl-bot-go/domain/stats"
	"github.com/soocke/autodl-bot-go/domain/vision"
	"github.com/soocke/autodl-bot-go/ui/model"
	"github.com/soocke/autodl-bot-go/ui/presenter"
)

// FeatureFactory builds fresh ORB and AKAZE methods. Either may be nil when
// feature matching is unavailable.
type FeatureFactory func() (orb, akaze vision.Method)

// Options configures BuildContainer.
type Options struct {
	ConfigPath   string
	Profile      string // overrides profiles.active_profile when set
	Headless     bool
	StartRunning bool
	Features     FeatureFactory
	Capture      capture.Provider // defaults to the OS screen grabber
	Actuator     action.Actuator  // defaults to the OS input backend
}

// Container assembles the long-lived services, the UI models and the cycle
// controller.
type Container struct {
	ConfigPath string
	Logger     *slog.Logger
	Headless   bool

	Capture  capture.Provider
	Actuator action.Actuator
	Signals  *session.Signals
	Session  *session.Session
	Stats    *stats.Store
	StatsID  string

	// UI models; populated even in headless mode so the dashboard can be
	// attached later.
	Status    *model.StatusModel
	Preview   *model.PreviewModel
	Dashboard *presenter.Dashboard

	Controller *cycle.Controller
	Display    capture.Display

	features FeatureFactory
	override string

	mu    sync.Mutex
	store *profile.Store
}

// BuildContainer loads configuration, resolves the display and the profile
// and constructs the controller. It does not start anything.
func BuildContainer(opts Options, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		ConfigPath: opts.ConfigPath,
		Logger:     logger,
		Headless:   opts.Headless,
		Capture:    opts.Capture,
		Actuator:   opts.Actuator,
		Signals:    session.NewSignals(!opts.StartRunning),
		Session:    session.New(logger),
		Status:     model.NewStatusModel(500),
		Preview:    &model.PreviewModel{},
		features:   opts.Features,
		override:   opts.Profile,
	}
	if c.Capture == nil {
		c.Capture = capture.NewService(logger)
	}
	if c.Actuator == nil {
		c.Actuator = action.New()
	}
	c.Dashboard = presenter.NewDashboard(c.Status, c.Preview)

	if created, err := config.WriteDefault(c.ConfigPath, assets.DefaultConfigYAML); err != nil {
		logger.Warn("could not create default config", "path", c.ConfigPath, "error", err)
	} else if created {
		logger.Info("default config written", "path", c.ConfigPath)
	}
	cfg := c.loadConfig()
	display, err := c.resolveDisplay(cfg)
	if err != nil {
		return nil, err
	}
	c.Display = display

	snap, err := c.buildSnapshot(cfg)
	if err != nil {
		return nil, err
	}

	if st, err := stats.Open(cfg.Stats.Path); err != nil {
		logger.Warn("stats disabled", "path", cfg.Stats.Path, "error", err)
	} else if id, err := st.Begin(snap.Profile); err != nil {
		logger.Warn("stats disabled", "error", err)
		st.Close()
	} else {
		c.Stats, c.StatsID = st, id
	}

	var (
		sink    cycle.Sink = cycle.LogSink{Logger: logger}
		preview func(*image.RGBA, image.Rectangle)
	)
	if c.WantsUI(cfg) {
		sink = cycle.Tee(sink, c.Dashboard)
		preview = c.Dashboard.Preview
	}
	ctrl, err := cycle.New(cycle.Options{
		Logger:  logger,
		Sink:    sink,
		Capture: c.Capture,
		Display: display.Index,
		Origin:  display.Bounds.Min,
		Signals: c.Signals,
		Session: c.Session,
		Initial: snap,
		Reload:  c.Reload,
		OnClick: c.saveStats,
		Recycle: capture.RecycleFrame,
		Preview: preview,
	})
	if err != nil {
		return nil, err
	}
	c.Controller = ctrl
	return c, nil
}

// WantsUI reports whether the status window should open.
func (c *Container) WantsUI(cfg *config.Config) bool {
	return !c.Headless && cfg.UI.Enabled
}

// loadConfig reads the config file. A malformed file is logged and
// defaults are used.
func (c *Container) loadConfig() *config.Config {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		c.Logger.Error("config load failed, using defaults", "path", c.ConfigPath, "error", err)
	}
	if c.override != "" {
		cfg.Profiles.ActiveProfile = c.override
	}
	return cfg
}

func (c *Container) resolveDisplay(cfg *config.Config) (capture.Display, error) {
	displays, err := c.Capture.ListDisplays()
	if err != nil {
		return capture.Display{}, err
	}
	idx := cfg.Display.Monitor
	if idx < 0 || idx >= len(displays) {
		return capture.Display{}, fmt.Errorf("%w: monitor %d (have %d)", capture.ErrInvalidDisplay, idx, len(displays))
	}
	d := displays[idx]
	if w, h := cfg.Display.ExpectedWidth, cfg.Display.ExpectedHeight; w > 0 && h > 0 && (d.Width() != w || d.Height() != h) {
		c.Logger.Warn("display resolution differs from expected",
			"monitor", idx, "width", d.Width(), "height", d.Height(),
			"expected_width", w, "expected_height", h)
	}
	c.Logger.Info("display selected", "monitor", idx, "bounds", d.Bounds.String(), "virtual", d.Virtual)
	return d, nil
}

// profileStore returns the template store for dir, replacing it when the
// profiles directory or naming rules changed.
func (c *Container) profileStore(cfg *config.Config) *profile.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	root := filepath.Clean(cfg.Profiles.ProfilesDir)
	naming := profile.Naming{
		SecondaryPrefix:      cfg.Profiles.SecondaryPrefix,
		ConfirmationTemplate: cfg.Profiles.ConfirmationTemplate,
	}
	if c.store == nil || c.store.Root() != root || c.store.Naming() != naming {
		c.store = profile.NewStore(root, naming, c.Logger)
	}
	return c.store
}

// buildSnapshot resolves the profile, loads templates and builds fresh
// matching and motion engines for cfg. A profile fallback is persisted.
func (c *Container) buildSnapshot(cfg *config.Config) (cycle.Snapshot, error) {
	store := c.profileStore(cfg)
	name, err := profile.Resolve(store.Root(), cfg.Profiles.ActiveProfile, c.Logger)
	if err != nil {
		return cycle.Snapshot{}, fmt.Errorf("resolve profile in %s: %w", store.Root(), err)
	}
	if name != cfg.Profiles.ActiveProfile {
		cfg = cfg.Clone()
		cfg.Profiles.ActiveProfile = name
		if err := cfg.Save(c.ConfigPath); err != nil {
			c.Logger.Warn("could not persist profile fallback", "path", c.ConfigPath, "error", err)
		}
	}
	templates, err := store.Load(name)
	if err != nil {
		return cycle.Snapshot{}, fmt.Errorf("load profile %s: %w", name, err)
	}
	if len(templates) == 0 {
		return cycle.Snapshot{}, fmt.Errorf("profile %s: %w", name, errNoTemplates)
	}

	var orb, akaze vision.Method
	if c.features != nil {
		orb, akaze = c.features()
	}
	var annotator *vision.Annotator
	if cfg.Visual.DebugMode {
		annotator = vision.NewAnnotator(cfg.Visual.DebugDir)
	}
	return cycle.Snapshot{
		Config:    cfg,
		Profile:   name,
		Templates: templates,
		Matcher:   vision.NewEngine(cfg.Matching, orb, akaze, annotator, c.Logger),
		Mover:     motion.NewEngine(c.Actuator, cfg.Mouse, cfg.Timing, c.Logger),
	}, nil
}

var errNoTemplates = errors.New("no templates")

// Reload re-reads the config file and builds a new snapshot. The display
// chosen at startup is kept.
func (c *Container) Reload() (cycle.Snapshot, error) {
	return c.buildSnapshot(c.loadConfig())
}

func (c *Container) saveStats(counters session.Counters) {
	if c.Stats == nil {
		return
	}
	if err := c.Stats.Save(c.StatsID, counters); err != nil {
		c.Logger.Warn("stats save failed", "error", err)
	}
}

// LifetimeTotals returns persisted clicks and matches from earlier sessions.
func (c *Container) LifetimeTotals() (clicks, matches int64) {
	if c.Stats == nil {
		return 0, 0
	}
	t, err := c.Stats.TotalsExcept(c.StatsID)
	if err != nil {
		c.Logger.Debug("stats totals unavailable", "error", err)
		return 0, 0
	}
	return t.Clicks, t.Matches
}

// Close saves final counters and releases the stats store and matcher.
func (c *Container) Close() error {
	var errs []error
	if c.Stats != nil {
		errs = append(errs, c.Stats.Save(c.StatsID, c.Session.Counters()))
		errs = append(errs, c.Stats.Close())
	}
	if c.Controller != nil {
		errs = append(errs, c.Controller.Snapshot().Matcher.Close())
	}
	return errors.Join(errs...)
}
