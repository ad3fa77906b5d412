package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"markfleet/internal/api"
	"markfleet/pkg/assign"
	"markfleet/pkg/config"
	"markfleet/pkg/db"
	"markfleet/pkg/fleetsim"
	"markfleet/pkg/follow"
	"markfleet/pkg/geo"
	"markfleet/pkg/logging"
	"markfleet/pkg/model"
	"markfleet/pkg/store"
	"markfleet/pkg/tracker"
	"markfleet/pkg/version"
)

const (
	configPath      = "configs/markfleet.yaml"
	defaultCourseID = "course-default"

	fleetPersistInterval = 10 * time.Second
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Optional .env for local overrides, loaded before the config reads env.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Markfleet started", "version", version.Version)

	dbConn, err := db.Init(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	if err := seedDemoCourse(ctx, st); err != nil {
		return fmt.Errorf("failed to seed course: %w", err)
	}

	if !cfg.Sim.Enabled {
		return errors.New("no fleet link configured: enable sim in the config")
	}
	sim := fleetsim.New(spawnFleet(cfg.Sim.Fleet))
	defer sim.Close()

	tr := tracker.New()

	// Marks and course come from persistence, buoy positions from the live
	// fleet link.
	view := &fleetView{CourseView: st, fleet: sim}

	ctrl := follow.NewController(view, sim, tr, defaultCourseID, cfg.Follow.Settings())
	ctrl.Start(ctx)
	defer ctrl.Close()

	engine := assign.NewEngine(view, st, sim, tr)

	go persistFleet(ctx, st, sim)

	return runServer(ctx, cfg, st, sim, ctrl, engine, tr)
}

// fleetView overlays the live fleet snapshot onto the persisted course.
type fleetView struct {
	store.CourseView
	fleet api.FleetSource
}

func (v *fleetView) ListBuoys(ctx context.Context) ([]model.Buoy, error) {
	return v.fleet.ListBuoys(ctx)
}

func spawnFleet(spawns []config.BuoySpawn) []model.Buoy {
	fleet := make([]model.Buoy, 0, len(spawns))
	for _, sp := range spawns {
		fleet = append(fleet, model.Buoy{
			ID:         sp.ID,
			Name:       sp.Name,
			State:      model.StateIdle,
			Position:   geo.Point{Lat: sp.Lat, Lng: sp.Lng},
			BatteryPct: 100,
			SignalPct:  100,
			WaterTempC: 15,
		})
	}
	return fleet
}

// seedDemoCourse writes a windward/leeward demo course on first start:
// a start mark, a windward mark, and a leeward gate.
func seedDemoCourse(ctx context.Context, st store.Store) error {
	crs, err := st.GetCourse(ctx, defaultCourseID)
	if err != nil {
		return err
	}
	if crs != nil {
		return nil
	}
	slog.Info("Seeding demo course", "course", defaultCourseID)

	if err := st.SaveCourse(ctx, &model.Course{
		ID:             defaultCourseID,
		Name:           "Berkeley Circle Demo",
		WindBearingDeg: 225,
		CreatedAt:      time.Now(),
	}); err != nil {
		return err
	}

	marks := []model.Mark{
		{
			ID:       uuid.NewString(),
			CourseID: defaultCourseID,
			Role:     model.RoleStart,
			Seq:      0,
			Position: geo.Point{Lat: 37.8020, Lng: -122.2790},
		},
		{
			ID:       uuid.NewString(),
			CourseID: defaultCourseID,
			Role:     model.RoleWindward,
			Seq:      1,
			Position: geo.Point{Lat: 37.7950, Lng: -122.2880},
		},
		{
			ID:                   uuid.NewString(),
			CourseID:             defaultCourseID,
			Role:                 model.RoleLeeward,
			Seq:                  2,
			Position:             geo.Point{Lat: 37.8040, Lng: -122.2770},
			Gate:                 true,
			GateWidthBoatLengths: 6,
			BoatLengthMeters:     8,
		},
	}
	for i := range marks {
		if err := st.SaveMark(ctx, &marks[i]); err != nil {
			return err
		}
	}
	return nil
}

// persistFleet snapshots the live fleet into the store so state and
// telemetry survive restarts.
func persistFleet(ctx context.Context, st store.FleetStore, fleet api.FleetSource) {
	ticker := time.NewTicker(fleetPersistInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		buoys, err := fleet.ListBuoys(ctx)
		if err != nil {
			slog.Warn("Fleet snapshot failed", "error", err)
			continue
		}
		for i := range buoys {
			if err := st.SaveBuoy(ctx, &buoys[i]); err != nil {
				slog.Warn("Failed to persist buoy", "buoy", buoys[i].ID, "error", err)
			}
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config, st store.Store, sim *fleetsim.Sim, ctrl *follow.Controller, engine *assign.Engine, tr *tracker.Tracker) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	srv := api.NewServer(cfg.Server.Addr,
		api.NewFleetHandler(sim),
		api.NewCourseHandler(st, st, sim, ctrl, defaultCourseID),
		api.NewFollowHandler(ctrl),
		api.NewAssignHandler(engine, defaultCourseID),
		api.NewStatsHandler(tr),
		api.NewFeedHandler(sim),
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
