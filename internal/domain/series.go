package domain

import "time"

type Status string

const (
	StatusWatching    Status = "watching"
	StatusWantToWatch Status = "want_to_watch"
	StatusWatched     Status = "watched"
)

func (s Status) Valid() bool {
	return s == StatusWatching || s == StatusWantToWatch || s == StatusWatched
}

type Kind string

const (
	KindUnknown Kind = ""
	KindAnime   Kind = "anime"
	KindSeries  Kind = "series"
	KindCartoon Kind = "cartoon"
)

// Series est la représentation canonique d'un titre suivi.
//
// Les dates sont des dates civiles stockées à minuit UTC (cf. DateOf).
// La valeur zéro signifie "inconnue" (ReleaseDate) ou "pas encore calculée" (NextEpisodeDate).
type Series struct {
	// ID est l'identifiant côté catalogue distant. Vide tant que le titre n'y existe pas,
	// régénéré après une réimportation complète.
	ID string
	// LocalID identifie le document dans le miroir local. Vide hors du miroir.
	LocalID string

	// Name est la clé de jointure entre catalogue et miroir (premier match gagnant).
	Name   string
	Status Status
	// Season vaut 0 si non renseignée.
	Season     int
	Kind       Kind
	IsFinished bool

	ReleaseDate     time.Time
	NextEpisodeDate time.Time
}

func (s Series) HasReleaseDate() bool { return !s.ReleaseDate.IsZero() }

func (s Series) HasNextEpisodeDate() bool { return !s.NextEpisodeDate.IsZero() }

// ActiveWatching: statut "en cours" et saison non terminée.
func (s Series) ActiveWatching() bool {
	return s.Status == StatusWatching && !s.IsFinished
}

// EffectiveAnchorDate renvoie la date utilisée pour le fenêtrage:
// NextEpisodeDate si présente, sinon ReleaseDate. ok=false exclut le titre de toutes les fenêtres.
func (s Series) EffectiveAnchorDate() (time.Time, bool) {
	if !s.ActiveWatching() {
		return time.Time{}, false
	}
	if s.HasNextEpisodeDate() {
		return s.NextEpisodeDate, true
	}
	if s.HasReleaseDate() {
		return s.ReleaseDate, true
	}
	return time.Time{}, false
}
