// Package storage provides persistent data storage for the prediction
// pipeline. It uses BoltDB as the underlying storage engine to store
// matches, teams and prediction records.
//
// Matches are indexed by date so the "most recent N before a cutoff"
// queries used for form and head-to-head windows are efficient cursor
// scans. Prediction records are keyed by (match, bet type), which makes
// upserts naturally idempotent.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"matchcast/internal/sport"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	matchesBucket     = "matches"     // match ID -> match JSON
	matchDatesBucket  = "match_dates" // zero-padded unixnano + ID -> match ID
	matchKeysBucket   = "match_keys"  // provider|external ID -> match ID
	teamsBucket       = "teams"       // team ID -> team JSON
	teamKeysBucket    = "team_keys"   // provider|external ID -> team ID
	predictionsBucket = "predictions" // match ID|bet type -> prediction JSON
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides persistent storage for pipeline data using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New creates a new storage instance with the specified data path.
// It initializes the BoltDB database and creates necessary buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "matchcast.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{
			matchesBucket, matchDatesBucket, matchKeysBucket,
			teamsBucket, teamKeysBucket, predictionsBucket,
		} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func dateKey(date time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%020d_%s", date.UTC().UnixNano(), id))
}

func externalKey(provider, key string) []byte {
	return []byte(provider + "|" + key)
}

func predictionKey(matchID string, betType sport.BetType) []byte {
	return []byte(matchID + "|" + string(betType))
}

// UpsertMatch inserts or replaces a match record, maintaining the date and
// external-key indexes. A missing ID is assigned; timestamps are managed here.
func (s *Store) UpsertMatch(m sport.Match) (sport.Match, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		mb := tx.Bucket([]byte(matchesBucket))
		idx := tx.Bucket([]byte(matchDatesBucket))
		kb := tx.Bucket([]byte(matchKeysBucket))

		if prev := mb.Get([]byte(m.ID)); prev != nil {
			var old sport.Match
			if err := json.Unmarshal(prev, &old); err == nil {
				m.CreatedAt = old.CreatedAt
				if !old.Date.Equal(m.Date) {
					if err := idx.Delete(dateKey(old.Date, old.ID)); err != nil {
						return fmt.Errorf("drop stale date index: %w", err)
					}
				}
			}
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}

		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal match: %w", err)
		}
		if err := mb.Put([]byte(m.ID), data); err != nil {
			return err
		}
		if err := idx.Put(dateKey(m.Date, m.ID), []byte(m.ID)); err != nil {
			return err
		}
		for provider, key := range m.ExternalIDs {
			if err := kb.Put(externalKey(provider, key), []byte(m.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return sport.Match{}, fmt.Errorf("upsert match: %w", err)
	}
	return m, nil
}

// MatchByID returns the match with the given ID or ErrNotFound.
func (s *Store) MatchByID(id string) (*sport.Match, error) {
	var m sport.Match
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(matchesBucket)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MatchByExternalKey resolves a match through a provider-specific identifier.
func (s *Store) MatchByExternalKey(provider, key string) (*sport.Match, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(matchKeysBucket)).Get(externalKey(provider, key))
		if data == nil {
			return ErrNotFound
		}
		id = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.MatchByID(id)
}

// FindMatches returns matches satisfying the filter, ordered by date.
// With desc=true the scan starts at the most recent match, which serves
// the "most recent N before a cutoff" windows used for form aggregation.
// limit <= 0 means no limit.
func (s *Store) FindMatches(f sport.MatchFilter, desc bool, limit int) ([]sport.Match, error) {
	var out []sport.Match

	err := s.db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket([]byte(matchesBucket))
		c := tx.Bucket([]byte(matchDatesBucket)).Cursor()

		next := c.Next
		k, id := c.First()
		if desc {
			next = c.Prev
			k, id = c.Last()
		}

		for ; k != nil; k, id = next() {
			data := mb.Get(id)
			if data == nil {
				continue
			}
			var m sport.Match
			if err := json.Unmarshal(data, &m); err != nil {
				continue // skip malformed records
			}
			if !f.Matches(&m) {
				continue
			}
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find matches: %w", err)
	}
	return out, nil
}

// UpsertTeam inserts or replaces a team, maintaining the external-key index.
func (s *Store) UpsertTeam(t sport.Team) (sport.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		tb := tx.Bucket([]byte(teamsBucket))
		kb := tx.Bucket([]byte(teamKeysBucket))

		if prev := tb.Get([]byte(t.ID)); prev != nil {
			var old sport.Team
			if err := json.Unmarshal(prev, &old); err == nil {
				t.CreatedAt = old.CreatedAt
			}
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}

		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal team: %w", err)
		}
		if err := tb.Put([]byte(t.ID), data); err != nil {
			return err
		}
		for provider, key := range t.ExternalIDs {
			if err := kb.Put(externalKey(provider, key), []byte(t.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return sport.Team{}, fmt.Errorf("upsert team: %w", err)
	}
	return t, nil
}

// TeamByID returns the team with the given ID or ErrNotFound.
func (s *Store) TeamByID(id string) (*sport.Team, error) {
	var t sport.Team
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(teamsBucket)).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindTeamByExternalKey resolves a team through a provider-specific identifier.
func (s *Store) FindTeamByExternalKey(provider, key string) (*sport.Team, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(teamKeysBucket)).Get(externalKey(provider, key))
		if data == nil {
			return ErrNotFound
		}
		id = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.TeamByID(id)
}

// UpsertPrediction writes the prediction for its (match, bet type) key.
// When a record already exists its identity and creation time are kept,
// and a resolution that was already written is never overwritten:
// evaluation is a one-way transition.
func (s *Store) UpsertPrediction(p sport.Prediction) (sport.Prediction, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.UpdatedAt = now

	err := s.db.Update(func(tx *bbolt.Tx) error {
		pb := tx.Bucket([]byte(predictionsBucket))
		key := predictionKey(p.MatchID, p.BetType)

		if prev := pb.Get(key); prev != nil {
			var old sport.Prediction
			if err := json.Unmarshal(prev, &old); err == nil {
				p.ID = old.ID
				p.CreatedAt = old.CreatedAt
				if old.Resolved() {
					p.ActualResult = old.ActualResult
					p.IsCorrect = old.IsCorrect
					p.EvaluatedAt = old.EvaluatedAt
				}
			}
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prediction: %w", err)
		}
		return pb.Put(key, data)
	})
	if err != nil {
		return sport.Prediction{}, fmt.Errorf("upsert prediction: %w", err)
	}
	return p, nil
}

// PredictionByKey returns the prediction for a (match, bet type) pair or ErrNotFound.
func (s *Store) PredictionByKey(matchID string, betType sport.BetType) (*sport.Prediction, error) {
	var p sport.Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(predictionsBucket)).Get(predictionKey(matchID, betType))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PredictionsByMatch returns all predictions recorded for one match.
func (s *Store) PredictionsByMatch(matchID string) ([]sport.Prediction, error) {
	return s.scanPredictions(func(p *sport.Prediction) bool {
		return p.MatchID == matchID
	})
}

// FindUnresolvedPredictions returns predictions without a resolution,
// optionally restricted to one match. matchID == "" means all matches.
func (s *Store) FindUnresolvedPredictions(matchID string) ([]sport.Prediction, error) {
	return s.scanPredictions(func(p *sport.Prediction) bool {
		if matchID != "" && p.MatchID != matchID {
			return false
		}
		return !p.Resolved()
	})
}

func (s *Store) scanPredictions(keep func(*sport.Prediction) bool) ([]sport.Prediction, error) {
	var out []sport.Prediction
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(predictionsBucket)).ForEach(func(_, v []byte) error {
			var p sport.Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return nil // skip malformed records
			}
			if keep(&p) {
				out = append(out, p)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scan predictions: %w", err)
	}
	return out, nil
}
