package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog"
)

var (
	ErrMirrorNotConfigured = errors.New("mirror not configured")
	ErrReconcileRunning    = errors.New("reconciliation already running")
)

type ReconcilerOptions struct {
	WriteBack domain.WriteBackStrategy
	Location  *time.Location
	// Now est injectable pour les tests.
	Now func() time.Time
}

func DefaultReconcilerOptions() ReconcilerOptions {
	return ReconcilerOptions{
		WriteBack: domain.WriteBackPatch,
		Location:  time.UTC,
		Now:       time.Now,
	}
}

// Reconciler corrige les dates de récurrence et synchronise le miroir local avec le catalogue.
// Sans miroir (mirror == nil), le catalogue est corrigé directement.
type Reconciler struct {
	logger  zerolog.Logger
	catalog ports.Catalog
	mirror  ports.MirrorRepository
	reports ports.ReportRepository
	bus     ports.EventBus
	gate    *Gate
	opts    ReconcilerOptions
}

func NewReconciler(logger zerolog.Logger, catalog ports.Catalog, mirror ports.MirrorRepository, reports ports.ReportRepository, bus ports.EventBus, opts ReconcilerOptions) *Reconciler {
	def := DefaultReconcilerOptions()
	if opts.WriteBack == "" {
		opts.WriteBack = def.WriteBack
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Reconciler{
		logger:  logger,
		catalog: catalog,
		mirror:  mirror,
		reports: reports,
		bus:     bus,
		gate:    NewGate(),
		opts:    opts,
	}
}

func (r *Reconciler) Deployment() domain.Deployment {
	if r.mirror == nil {
		return domain.DeploymentSingleStore
	}
	return domain.DeploymentTwoStore
}

func (r *Reconciler) Today() time.Time {
	return domain.Today(r.opts.Now(), r.opts.Location)
}

// Run exécute une passe complète (correction, fusion, réécriture). Une seule passe à la fois.
func (r *Reconciler) Run(ctx context.Context) (domain.ReconcileReport, error) {
	_, report, err := r.RunAndLoad(ctx)
	return report, err
}

// TryRun exécute une passe sans attendre: ErrReconcileRunning si une passe est en cours.
func (r *Reconciler) TryRun(ctx context.Context) (domain.ReconcileReport, error) {
	if !r.gate.TryAcquire() {
		return domain.ReconcileReport{}, ErrReconcileRunning
	}
	defer r.gate.Release()
	_, report, err := r.pass(ctx)
	return report, err
}

func (r *Reconciler) Running() bool {
	return r.gate.Held()
}

// RunAndLoad exécute une passe puis renvoie l'ensemble des titres corrigés.
func (r *Reconciler) RunAndLoad(ctx context.Context) ([]domain.Series, domain.ReconcileReport, error) {
	if err := r.gate.Acquire(ctx); err != nil {
		return nil, domain.ReconcileReport{}, err
	}
	defer r.gate.Release()
	return r.pass(ctx)
}

// Rebuild vide le miroir puis le reconstruit depuis le catalogue.
func (r *Reconciler) Rebuild(ctx context.Context) (domain.ReconcileReport, error) {
	if r.mirror == nil {
		return domain.ReconcileReport{}, ErrMirrorNotConfigured
	}
	if err := r.gate.Acquire(ctx); err != nil {
		return domain.ReconcileReport{}, err
	}
	defer r.gate.Release()

	if err := r.mirror.Drop(ctx); err != nil {
		return domain.ReconcileReport{}, fmt.Errorf("drop mirror: %w", err)
	}
	r.logger.Info().Msg("mirror dropped")
	_, report, err := r.pass(ctx)
	return report, err
}

// Records renvoie les titres courants avec correction appliquée en mémoire, sans écriture.
func (r *Reconciler) Records(ctx context.Context) ([]domain.Series, error) {
	var (
		records []domain.Series
		err     error
	)
	if r.mirror != nil {
		records, err = r.mirror.Find(ctx, ports.Filter{})
	} else {
		records, err = r.catalog.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	today := r.Today()
	for i := range records {
		records[i], _ = domain.CorrectRecurrence(records[i], today)
	}
	return records, nil
}

func (r *Reconciler) pass(ctx context.Context) ([]domain.Series, domain.ReconcileReport, error) {
	today := r.Today()
	report := domain.ReconcileReport{
		Deployment: r.Deployment(),
		StartedAt:  r.opts.Now().UTC(),
		Today:      today.Format(time.DateOnly),
	}
	if r.mirror != nil {
		report.WriteBack = r.opts.WriteBack
	}
	r.logger.Info().Str("deployment", string(report.Deployment)).Str("today", report.Today).Msg("reconciliation started")

	var (
		records []domain.Series
		err     error
	)
	if r.mirror == nil {
		records, err = r.passSingleStore(ctx, today, &report)
	} else {
		records, err = r.passTwoStore(ctx, today, &report)
	}
	report.FinishedAt = r.opts.Now().UTC()

	if err != nil {
		r.logger.Error().Err(err).Msg("reconciliation failed")
		r.publish(ports.TopicReconcileFailed, map[string]any{"error": err.Error(), "today": report.Today})
		return nil, report, err
	}

	r.logger.Info().
		Int("fetched", report.Fetched).
		Int("merged", report.Merged).
		Int("inserted", report.Inserted).
		Int("corrected", report.Corrected).
		Int("written_back", report.WrittenBack).
		Int("deleted", report.Deleted).
		Int("failures", report.Failures).
		Msg("reconciliation finished")

	if r.reports != nil {
		if err := r.reports.Save(ctx, report); err != nil {
			r.logger.Warn().Err(err).Msg("failed to save reconciliation report")
		}
	}
	r.publish(ports.TopicReconcileCompleted, report)
	return records, report, nil
}

// passSingleStore corrige directement le catalogue distant.
func (r *Reconciler) passSingleStore(ctx context.Context, today time.Time, report *domain.ReconcileReport) ([]domain.Series, error) {
	remote, err := r.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	report.Fetched = len(remote)

	for i, s := range remote {
		corrected, changed := domain.CorrectRecurrence(s, today)
		if !changed {
			continue
		}
		remote[i] = corrected
		report.Corrected++
		r.patchRemote(ctx, corrected, report)
	}
	return remote, nil
}

func (r *Reconciler) passTwoStore(ctx context.Context, today time.Time, report *domain.ReconcileReport) ([]domain.Series, error) {
	remote, err := r.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	report.Fetched = len(remote)

	// 1. Correction des dates périmées du miroir, document par document (doublons compris).
	stale, err := r.staleMirror(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load stale mirror documents: %w", err)
	}
	for _, s := range stale {
		corrected, changed := domain.CorrectRecurrence(s, today)
		if !changed {
			continue
		}
		report.Corrected++
		if err := r.mirror.UpdateNextEpisodeDate(ctx, s.LocalID, corrected.NextEpisodeDate); err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("name", s.Name).Str("local_id", s.LocalID).Msg("mirror date correction failed")
		}
	}

	local, err := r.mirror.Find(ctx, ports.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load mirror: %w", err)
	}
	localByName := make(map[string]domain.Series, len(local))
	for _, s := range local {
		if _, dup := localByName[s.Name]; dup {
			r.logger.Warn().Str("name", s.Name).Str("local_id", s.LocalID).Msg("duplicate title in mirror, first match wins")
			continue
		}
		localByName[s.Name] = s
	}

	// 2. Fusion catalogue -> miroir, jointure par nom.
	remoteByName := make(map[string]domain.Series, len(remote))
	seen := make(map[string]struct{}, len(remote))
	for _, rs := range remote {
		if _, dup := seen[rs.Name]; dup {
			r.logger.Warn().Str("name", rs.Name).Str("remote_id", rs.ID).Msg("duplicate title in catalog, first match wins")
			continue
		}
		seen[rs.Name] = struct{}{}
		remoteByName[rs.Name] = rs

		ls, exists := localByName[rs.Name]
		if !exists {
			fresh, changed := domain.CorrectRecurrence(rs, today)
			if changed {
				report.Corrected++
			}
			if err := r.mirror.Insert(ctx, fresh); err != nil {
				report.Failures++
				r.logger.Warn().Err(err).Str("name", rs.Name).Msg("mirror insert failed")
				continue
			}
			report.Inserted++
			localByName[rs.Name] = fresh
			continue
		}

		merged, changed := domain.CorrectRecurrence(mergeRemote(rs, ls), today)
		if changed {
			report.Corrected++
		}
		if err := r.mirror.ReplaceByName(ctx, rs.Name, merged); err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("name", rs.Name).Msg("mirror replace failed")
			continue
		}
		report.Merged++
		localByName[rs.Name] = merged
	}

	// 3. Réécriture vers le catalogue.
	switch r.opts.WriteBack {
	case domain.WriteBackReimport:
		r.reimport(ctx, remote, report)
	default:
		for _, rs := range remote {
			if remoteByName[rs.Name].ID != rs.ID {
				// Doublon du catalogue, hors jointure: sa propre date est corrigée.
				if fixed, changed := domain.CorrectRecurrence(rs, today); changed {
					report.Corrected++
					r.patchRemote(ctx, fixed, report)
				}
				continue
			}
			ls, ok := localByName[rs.Name]
			if !ok || !ls.HasNextEpisodeDate() || sameDate(rs.NextEpisodeDate, ls.NextEpisodeDate) {
				continue
			}
			ls.ID = rs.ID
			r.patchRemote(ctx, ls, report)
		}
	}

	return r.mirror.Find(ctx, ports.Filter{})
}

// staleMirror sélectionne les documents en cours dont la prochaine date est passée ou pas encore calculée.
func (r *Reconciler) staleMirror(ctx context.Context, today time.Time) ([]domain.Series, error) {
	watching := func(next, release ports.DateRange) ports.Filter {
		return ports.Filter{Status: domain.StatusWatching, ExcludeFinished: true, NextEpisodeDate: next, ReleaseDate: release}
	}
	filters := []ports.Filter{
		watching(ports.DateRange{Lt: today}, ports.DateRange{}),
		watching(ports.DateRange{Unset: true}, ports.DateRange{Lte: today}),
		watching(ports.DateRange{Unset: true}, ports.DateRange{Gte: domain.AddDays(today, 1)}),
	}
	var out []domain.Series
	for _, f := range filters {
		found, err := r.mirror.Find(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}
	return out, nil
}

// mergeRemote reprend les champs du catalogue en conservant la date corrigée localement,
// sauf si le catalogue porte une date plus tardive (saisie manuelle).
func mergeRemote(remote, local domain.Series) domain.Series {
	merged := remote
	if local.HasNextEpisodeDate() && (!remote.HasNextEpisodeDate() || !remote.NextEpisodeDate.After(local.NextEpisodeDate)) {
		merged.NextEpisodeDate = local.NextEpisodeDate
	}
	return merged
}

func (r *Reconciler) patchRemote(ctx context.Context, s domain.Series, report *domain.ReconcileReport) {
	if s.ID == "" {
		r.logger.Warn().Str("name", s.Name).Msg("no remote id, write-back skipped")
		return
	}
	if err := r.catalog.PatchNextEpisodeDate(ctx, s.ID, s.NextEpisodeDate); err != nil {
		report.Failures++
		r.logger.Warn().Err(err).Str("name", s.Name).Str("remote_id", s.ID).Msg("catalog patch failed")
		return
	}
	report.WrittenBack++
	r.logger.Debug().Str("name", s.Name).Str("next_episode_date", s.NextEpisodeDate.Format(time.DateOnly)).Msg("catalog patched")
}

// reimport supprime chaque titre distant puis réinsère l'instantané du miroir.
// Les identifiants distants sont régénérés et recopiés dans le miroir.
func (r *Reconciler) reimport(ctx context.Context, remote []domain.Series, report *domain.ReconcileReport) {
	for _, rs := range remote {
		if rs.ID == "" {
			continue
		}
		if err := r.catalog.Delete(ctx, rs.ID); err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("name", rs.Name).Str("remote_id", rs.ID).Msg("catalog delete failed")
			continue
		}
		report.Deleted++
	}

	snapshot, err := r.mirror.Find(ctx, ports.Filter{})
	if err != nil {
		report.Failures++
		r.logger.Error().Err(err).Msg("mirror snapshot failed, reimport aborted")
		return
	}
	for _, s := range snapshot {
		id, err := r.catalog.Insert(ctx, s)
		if err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("name", s.Name).Msg("catalog insert failed")
			continue
		}
		report.WrittenBack++
		if err := r.mirror.SetRemoteID(ctx, s.Name, id); err != nil {
			report.Failures++
			r.logger.Warn().Err(err).Str("name", s.Name).Msg("mirror remote id update failed")
		}
	}
}

func sameDate(a, b time.Time) bool {
	return domain.DateOf(a).Equal(domain.DateOf(b))
}

func (r *Reconciler) publish(topic string, v any) {
	if r.bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	r.bus.Publish(topic, b)
}
