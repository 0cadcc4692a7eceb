package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

// DateRange combine des prédicats sur une date; les bornes zéro sont ignorées.
type DateRange struct {
	Eq  time.Time
	Lt  time.Time
	Gte time.Time
	Lte time.Time
	// Unset ne retient que les titres sans date.
	Unset bool
}

func (r DateRange) IsZero() bool {
	return r.Eq.IsZero() && r.Lt.IsZero() && r.Gte.IsZero() && r.Lte.IsZero() && !r.Unset
}

func (r DateRange) Match(d time.Time) bool {
	if r.Unset {
		return d.IsZero()
	}
	if r.IsZero() {
		return true
	}
	if d.IsZero() {
		return false
	}
	if !r.Eq.IsZero() && !d.Equal(r.Eq) {
		return false
	}
	if !r.Lt.IsZero() && !d.Before(r.Lt) {
		return false
	}
	if !r.Gte.IsZero() && d.Before(r.Gte) {
		return false
	}
	if !r.Lte.IsZero() && d.After(r.Lte) {
		return false
	}
	return true
}

// Filter sélectionne des documents du miroir; les champs vides ne filtrent pas.
type Filter struct {
	Name            string
	Status          domain.Status
	ExcludeFinished bool
	ReleaseDate     DateRange
	NextEpisodeDate DateRange
}

func (f Filter) Match(s domain.Series) bool {
	if f.Name != "" && s.Name != f.Name {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.ExcludeFinished && s.IsFinished {
		return false
	}
	return f.ReleaseDate.Match(s.ReleaseDate) && f.NextEpisodeDate.Match(s.NextEpisodeDate)
}

// MirrorRepository est le miroir local (dérivé, réécrasable) du catalogue.
// Les résultats de Find sont dans l'ordre d'insertion.
type MirrorRepository interface {
	Find(ctx context.Context, filter Filter) ([]domain.Series, error)
	Insert(ctx context.Context, s domain.Series) error
	// ReplaceByName remplace le premier document portant ce nom. ErrNotFound si absent.
	ReplaceByName(ctx context.Context, name string, s domain.Series) error
	// UpdateNextEpisodeDate cible un document précis par son LocalID, doublons de titre compris.
	UpdateNextEpisodeDate(ctx context.Context, localID string, date time.Time) error
	SetRemoteID(ctx context.Context, name string, id string) error
	Drop(ctx context.Context) error
}

// ReportRepository conserve le rapport de la dernière réconciliation.
type ReportRepository interface {
	Last(ctx context.Context) (domain.ReconcileReport, error)
	Save(ctx context.Context, report domain.ReconcileReport) error
}
