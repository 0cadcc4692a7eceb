package app

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog"
)

var ErrMessengerNotConfigured = errors.New("messenger not configured")

// NotificationService produit les digests et les pousse vers le transport de chat.
type NotificationService struct {
	logger    zerolog.Logger
	rec       *Reconciler
	messenger ports.Messenger
	bus       ports.EventBus
	userID    int64

	// ReconcileFirst déclenche une passe complète avant chaque digest.
	// Sinon la correction est appliquée en mémoire sur les données courantes.
	ReconcileFirst bool
	// ScheduledWindow est la fenêtre envoyée par le job quotidien.
	ScheduledWindow domain.Window
}

func NewNotificationService(logger zerolog.Logger, rec *Reconciler, messenger ports.Messenger, bus ports.EventBus, userID int64) *NotificationService {
	return &NotificationService{
		logger:          logger,
		rec:             rec,
		messenger:       messenger,
		bus:             bus,
		userID:          userID,
		ReconcileFirst:  true,
		ScheduledWindow: domain.WindowToday,
	}
}

// SetMessenger branche le transport de chat une fois celui-ci construit.
func (s *NotificationService) SetMessenger(m ports.Messenger) {
	s.messenger = m
}

func (s *NotificationService) records(ctx context.Context) ([]domain.Series, error) {
	if !s.ReconcileFirst {
		return s.rec.Records(ctx)
	}
	records, _, err := s.rec.RunAndLoad(ctx)
	if err == nil {
		return records, nil
	}
	if s.rec.Deployment() == domain.DeploymentTwoStore && ctx.Err() == nil {
		// Catalogue injoignable: le miroir reste exploitable.
		s.logger.Warn().Err(err).Msg("reconciliation failed, digest built from mirror")
		return s.rec.Records(ctx)
	}
	return nil, err
}

func (s *NotificationService) Digest(ctx context.Context, window domain.Window) (Digest, error) {
	records, err := s.records(ctx)
	if err != nil {
		return Digest{}, err
	}
	return Classify(records, s.rec.Today(), window)
}

func (s *NotificationService) Wanted(ctx context.Context) (string, error) {
	records, err := s.rec.Records(ctx)
	if err != nil {
		return "", err
	}
	return RenderWanted(records, s.rec.Today()), nil
}

func (s *NotificationService) Reconcile(ctx context.Context) (domain.ReconcileReport, error) {
	return s.rec.Run(ctx)
}

// TryReconcile n'attend pas une passe déjà en cours (ErrReconcileRunning).
func (s *NotificationService) TryReconcile(ctx context.Context) (domain.ReconcileReport, error) {
	return s.rec.TryRun(ctx)
}

// Status résume l'état courant pour la sonde de santé.
func (s *NotificationService) Status() (domain.Deployment, bool) {
	return s.rec.Deployment(), s.rec.Running()
}

// Rebuild reconstruit le miroir depuis le catalogue (ErrMirrorNotConfigured sans miroir).
func (s *NotificationService) Rebuild(ctx context.Context) (domain.ReconcileReport, error) {
	return s.rec.Rebuild(ctx)
}

// SendScheduledDigest envoie le digest quotidien au propriétaire.
func (s *NotificationService) SendScheduledDigest(ctx context.Context) error {
	if s.messenger == nil {
		return ErrMessengerNotConfigured
	}
	d, err := s.Digest(ctx, s.ScheduledWindow)
	if err != nil {
		return err
	}
	if err := s.messenger.Send(ctx, s.userID, d.Text()); err != nil {
		return err
	}
	if s.bus != nil {
		if b, err := json.Marshal(d); err == nil {
			s.bus.Publish(ports.TopicDigestSent, b)
		}
	}
	s.logger.Info().Str("window", string(d.Window)).Int("entries", len(d.Released)+len(d.Upcoming)).Msg("scheduled digest sent")
	return nil
}
