package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

// Catalog est le catalogue distant faisant autorité (base Notion).
type Catalog interface {
	// List renvoie tous les titres exploitables; les entrées sans titre ou statut sont ignorées.
	List(ctx context.Context) ([]domain.Series, error)
	PatchNextEpisodeDate(ctx context.Context, id string, date time.Time) error
	// Insert crée un titre et renvoie son nouvel identifiant distant.
	Insert(ctx context.Context, s domain.Series) (string, error)
	Delete(ctx context.Context, id string) error
}

// Messenger envoie un texte à un utilisateur du transport de chat.
type Messenger interface {
	Send(ctx context.Context, userID int64, text string) error
}

// SubscriptionSource liste les abonnements payants du propriétaire.
type SubscriptionSource interface {
	Subscriptions(ctx context.Context) ([]domain.Subscription, error)
}
