package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/boltdb"
	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/notion"
	"github.com/Guilhem-Bonnet/series-notifier/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/series-notifier/internal/app"
	"github.com/Guilhem-Bonnet/series-notifier/internal/config"
	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/logging"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
)

// runtime assemble les composants à partir de la configuration.
type runtime struct {
	logger  zerolog.Logger
	cfg     *config.Config
	bus     *memorybus.Bus
	catalog *notion.Catalog
	mirror  ports.MirrorRepository
	reports ports.ReportRepository
	rec     *app.Reconciler
	svc     *app.NotificationService

	closers []func() error
}

// openLocalStore ouvre le stockage local: miroir (si activé) et rapports de réconciliation.
func openLocalStore(ctx context.Context, cfg *config.Config, rt *runtime) error {
	switch cfg.Mirror.Driver {
	case config.DriverBolt:
		store, err := boltdb.Open(cfg.Mirror.Path)
		if err != nil {
			return fmt.Errorf("open bolt store: %w", err)
		}
		rt.closers = append(rt.closers, store.Close)
		rt.reports = store.Reports()
		if cfg.Mirror.Enabled {
			rt.mirror = store
		}
	default:
		db, err := sqlite.Open(ctx, cfg.Mirror.Path)
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		rt.reports = sqlite.NewReportRepository(db.SQL)
		if cfg.Mirror.Enabled {
			rt.mirror = sqlite.NewMirrorRepository(db.SQL)
		}
	}
	return nil
}

func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	rt := &runtime{logger: logger, cfg: cfg, bus: memorybus.New()}
	rt.catalog = notion.NewCatalog(logging.Component(logger, "notion"), cfg.NotionOptions())
	if err := openLocalStore(ctx, cfg, rt); err != nil {
		return nil, err
	}

	rt.rec = app.NewReconciler(logging.Component(logger, "reconciler"), rt.catalog, rt.mirror, rt.reports, rt.bus, app.ReconcilerOptions{
		WriteBack: domain.WriteBackStrategy(cfg.Reconcile.WriteBack),
		Location:  loc,
	})
	rt.svc = app.NewNotificationService(logging.Component(logger, "notifier"), rt.rec, nil, rt.bus, cfg.Telegram.UserID)
	rt.svc.ReconcileFirst = cfg.Digest.ReconcileFirst
	if w, err := domain.ParseWindow(cfg.Digest.Window); err == nil {
		rt.svc.ScheduledWindow = w
	}

	logger.Info().
		Str("deployment", string(rt.rec.Deployment())).
		Str("store", cfg.Mirror.Driver).
		Str("timezone", loc.String()).
		Msg("runtime ready")
	return rt, nil
}

func (rt *runtime) Close() error {
	rt.bus.Close()
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
