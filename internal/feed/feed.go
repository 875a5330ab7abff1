// Package feed imports fixtures and results from an external JSON feed
// into the store. Teams are resolved through provider-specific external
// keys and created on first sight, so repeated syncs are idempotent.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchcast/internal/metrics"
	"matchcast/internal/sport"
	"matchcast/internal/storage"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Store is the slice of the persistence layer the importer writes to.
type Store interface {
	UpsertMatch(m sport.Match) (sport.Match, error)
	MatchByExternalKey(provider, key string) (*sport.Match, error)
	UpsertTeam(t sport.Team) (sport.Team, error)
	FindTeamByExternalKey(provider, key string) (*sport.Team, error)
}

// matchDTO is one row of the feed payload.
type matchDTO struct {
	ID        string  `json:"id"`
	League    string  `json:"league"`
	Season    string  `json:"season"`
	Date      string  `json:"date"` // RFC 3339
	Status    string  `json:"status"`
	HomeTeam  teamDTO `json:"home_team"`
	AwayTeam  teamDTO `json:"away_team"`
	HomeScore *int    `json:"home_score"`
	AwayScore *int    `json:"away_score"`
}

type teamDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

type feedResponse struct {
	Matches []matchDTO `json:"matches"`
}

// Client pulls match data from one feed endpoint.
type Client struct {
	rest     *resty.Client
	url      string
	provider string
	store    Store
	metrics  *metrics.Metrics
}

// New creates a feed client. provider names the external-key namespace
// used to resolve teams and matches across syncs.
func New(url, provider string, timeout time.Duration, store Store, m *metrics.Metrics) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	return &Client{rest: r, url: url, provider: provider, store: store, metrics: m}
}

// Sync fetches the feed once and upserts every row it can map. A bad row
// is logged and skipped; the sync keeps going. Returns the number of
// matches imported.
func (c *Client) Sync(ctx context.Context) (int, error) {
	if c.url == "" {
		return 0, errors.New("feed: no URL configured")
	}

	var payload feedResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(c.url)
	if err != nil {
		c.feedErr()
		return 0, fmt.Errorf("feed: fetch %s: %w", c.url, err)
	}
	if resp.IsError() {
		c.feedErr()
		return 0, fmt.Errorf("feed: %s returned %s", c.url, resp.Status())
	}

	imported := 0
	for i := range payload.Matches {
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		if err := c.importMatch(&payload.Matches[i]); err != nil {
			log.Warn().Err(err).Str("feed_id", payload.Matches[i].ID).Msg("skipping feed row")
			c.feedErr()
			continue
		}
		imported++
	}

	log.Info().Int("imported", imported).Int("rows", len(payload.Matches)).Msg("feed sync finished")
	return imported, nil
}

func (c *Client) importMatch(dto *matchDTO) error {
	if dto.ID == "" {
		return errors.New("row has no id")
	}
	date, err := time.Parse(time.RFC3339, dto.Date)
	if err != nil {
		return fmt.Errorf("bad date %q: %w", dto.Date, err)
	}
	status, err := mapStatus(dto.Status)
	if err != nil {
		return err
	}

	homeID, err := c.resolveTeam(dto.HomeTeam, dto.League)
	if err != nil {
		return fmt.Errorf("resolve home team: %w", err)
	}
	awayID, err := c.resolveTeam(dto.AwayTeam, dto.League)
	if err != nil {
		return fmt.Errorf("resolve away team: %w", err)
	}

	m := sport.Match{
		LeagueID:    dto.League,
		Season:      dto.Season,
		HomeTeamID:  homeID,
		AwayTeamID:  awayID,
		Date:        date,
		Status:      status,
		ExternalIDs: map[string]string{c.provider: dto.ID},
	}

	// Scores belong to finished matches only.
	if status == sport.StatusFinished {
		if dto.HomeScore == nil || dto.AwayScore == nil {
			return errors.New("finished row is missing scores")
		}
		m.HomeScore = dto.HomeScore
		m.AwayScore = dto.AwayScore
	}

	if existing, err := c.store.MatchByExternalKey(c.provider, dto.ID); err == nil {
		m.ID = existing.ID
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("lookup match: %w", err)
	}

	if _, err := c.store.UpsertMatch(m); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	if c.metrics != nil {
		c.metrics.FeedImports.Inc()
	}
	return nil
}

func (c *Client) resolveTeam(dto teamDTO, league string) (string, error) {
	if dto.ID == "" {
		return "", errors.New("team row has no id")
	}

	if existing, err := c.store.FindTeamByExternalKey(c.provider, dto.ID); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}

	created, err := c.store.UpsertTeam(sport.Team{
		Name:        dto.Name,
		LeagueID:    league,
		Country:     dto.Country,
		ExternalIDs: map[string]string{c.provider: dto.ID},
	})
	if err != nil {
		return "", err
	}
	log.Info().Str("team", created.Name).Str("team_id", created.ID).Msg("team created from feed")
	return created.ID, nil
}

func mapStatus(s string) (sport.MatchStatus, error) {
	switch s {
	case "scheduled", "upcoming":
		return sport.StatusScheduled, nil
	case "live", "in_play":
		return sport.StatusLive, nil
	case "finished", "full_time":
		return sport.StatusFinished, nil
	case "cancelled", "postponed":
		return sport.StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

func (c *Client) feedErr() {
	if c.metrics != nil {
		c.metrics.FeedErrors.Inc()
	}
}
