package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/xid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSeries  = []byte("series")
	bucketReports = []byte("reports")

	lastReportKey = []byte("last")
)

// document est la forme persistée d'un titre du miroir.
type document struct {
	LocalID         string    `json:"localId"`
	RemoteID        string    `json:"remoteId,omitempty"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	Season          int       `json:"season,omitempty"`
	Kind            string    `json:"kind,omitempty"`
	IsFinished      bool      `json:"isFinished"`
	ReleaseDate     time.Time `json:"releaseDate"`
	NextEpisodeDate time.Time `json:"nextEpisodeDate"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toDocument(localID string, s domain.Series) document {
	return document{
		LocalID:         localID,
		RemoteID:        s.ID,
		Name:            s.Name,
		Status:          string(s.Status),
		Season:          s.Season,
		Kind:            string(s.Kind),
		IsFinished:      s.IsFinished,
		ReleaseDate:     domain.DateOf(s.ReleaseDate),
		NextEpisodeDate: domain.DateOf(s.NextEpisodeDate),
		UpdatedAt:       time.Now().UTC(),
	}
}

func (d document) series() domain.Series {
	return domain.Series{
		ID:              d.RemoteID,
		LocalID:         d.LocalID,
		Name:            d.Name,
		Status:          domain.Status(d.Status),
		Season:          d.Season,
		Kind:            domain.Kind(d.Kind),
		IsFinished:      d.IsFinished,
		ReleaseDate:     domain.DateOf(d.ReleaseDate),
		NextEpisodeDate: domain.DateOf(d.NextEpisodeDate),
	}
}

// Store implémente le miroir et le dépôt de rapports dans un fichier BoltDB.
// Les clés du bucket "series" sont des séquences croissantes: l'ordre des clés est l'ordre d'insertion.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketSeries, bucketReports} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

func (s *Store) Find(ctx context.Context, filter ports.Filter) ([]domain.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Series, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSeries).ForEach(func(_, v []byte) error {
			var d document
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if rec := d.series(); filter.Match(rec) {
				out = append(out, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, rec domain.Series) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSeries)
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		v, err := json.Marshal(toDocument(xid.New().String(), rec))
		if err != nil {
			return err
		}
		return b.Put(seqKey(n), v)
	})
}

// updateFirst applique fn au premier document portant ce nom.
func (s *Store) updateFirst(ctx context.Context, name string, fn func(d *document)) error {
	return s.updateWhere(ctx, func(d document) bool { return d.Name == name }, fn)
}

// updateWhere applique fn au premier document retenu par match.
func (s *Store) updateWhere(ctx context.Context, match func(d document) bool, fn func(d *document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSeries)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d document
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if !match(d) {
				continue
			}
			fn(&d)
			d.UpdatedAt = time.Now().UTC()
			nv, err := json.Marshal(d)
			if err != nil {
				return err
			}
			return b.Put(append([]byte(nil), k...), nv)
		}
		return ports.ErrNotFound
	})
}

func (s *Store) ReplaceByName(ctx context.Context, name string, rec domain.Series) error {
	return s.updateFirst(ctx, name, func(d *document) {
		*d = toDocument(d.LocalID, rec)
	})
}

func (s *Store) UpdateNextEpisodeDate(ctx context.Context, localID string, date time.Time) error {
	return s.updateWhere(ctx, func(d document) bool { return d.LocalID == localID }, func(d *document) {
		d.NextEpisodeDate = domain.DateOf(date)
	})
}

func (s *Store) SetRemoteID(ctx context.Context, name string, id string) error {
	return s.updateFirst(ctx, name, func(d *document) {
		d.RemoteID = id
	})
}

func (s *Store) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketSeries) != nil {
			if err := tx.DeleteBucket(bucketSeries); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketSeries)
		return err
	})
}

// Reports renvoie la vue ports.ReportRepository du même fichier.
func (s *Store) Reports() *ReportStore {
	return &ReportStore{db: s.db}
}

type ReportStore struct {
	db *bolt.DB
}

func (r *ReportStore) Last(ctx context.Context) (domain.ReconcileReport, error) {
	if err := ctx.Err(); err != nil {
		return domain.ReconcileReport{}, err
	}
	var report domain.ReconcileReport
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketReports).Get(lastReportKey)
		if v == nil {
			return ports.ErrNotFound
		}
		return json.Unmarshal(v, &report)
	})
	return report, err
}

func (r *ReportStore) Save(ctx context.Context, report domain.ReconcileReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketReports).Put(lastReportKey, v)
	})
}
