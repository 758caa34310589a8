package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/strategium/internal/kv"
	"github.com/mauv0809/strategium/internal/league"
)

const (
	leaguesKey    = "strategium_leagues"
	dataKeyPrefix = "strategium_data_"
)

func dataKey(leagueID string) string {
	return dataKeyPrefix + leagueID
}

// Snapshot is the local backend. The league index and each league's data
// bundle live under fixed keys of a kv.Store.
type Snapshot struct {
	kv  kv.Store
	mu  sync.Mutex
	now func() time.Time
}

var _ SnapshotStore = (*Snapshot)(nil)

// NewSnapshot returns a snapshot store over kvStore. A nil kvStore yields a
// store whose operations all fail with ErrNotConfigured.
func NewSnapshot(kvStore kv.Store) *Snapshot {
	return &Snapshot{kv: kvStore, now: time.Now}
}

func (s *Snapshot) ready() error {
	if s == nil || s.kv == nil {
		return ErrNotConfigured
	}
	return nil
}

// readIndex loads the league index. Missing or malformed records read as empty.
func (s *Snapshot) readIndex(ctx context.Context) (map[string]leagueRecord, error) {
	raw, ok, err := s.kv.Get(ctx, leaguesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read league index: %w", err)
	}
	index := map[string]leagueRecord{}
	if !ok {
		return index, nil
	}
	if err := json.Unmarshal(raw, &index); err != nil {
		log.Warn("Malformed league index, treating as empty", "error", err)
		return map[string]leagueRecord{}, nil
	}
	return index, nil
}

func (s *Snapshot) writeIndex(ctx context.Context, index map[string]leagueRecord) error {
	raw, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to encode league index: %w", err)
	}
	if err := s.kv.Set(ctx, leaguesKey, raw); err != nil {
		return fmt.Errorf("failed to write league index: %w", err)
	}
	return nil
}

func (s *Snapshot) readData(ctx context.Context, leagueID string) (league.Data, error) {
	var data league.Data
	raw, ok, err := s.kv.Get(ctx, dataKey(leagueID))
	if err != nil {
		return data, fmt.Errorf("failed to read data for league %s: %w", leagueID, err)
	}
	if ok {
		if err := json.Unmarshal(raw, &data); err != nil {
			log.Warn("Malformed league data, treating as empty", "league", leagueID, "error", err)
			data = league.Data{}
		}
	}
	if data.Players == nil {
		data.Players = []league.Player{}
	}
	if data.Matches == nil {
		data.Matches = []league.Match{}
	}
	if data.Pairings == nil {
		data.Pairings = []league.Pairing{}
	}
	return data, nil
}

func (s *Snapshot) writeData(ctx context.Context, leagueID string, data league.Data) error {
	raw, err := json.Marshal(data.WithLeague(leagueID))
	if err != nil {
		return fmt.Errorf("failed to encode data for league %s: %w", leagueID, err)
	}
	if err := s.kv.Set(ctx, dataKey(leagueID), raw); err != nil {
		return fmt.Errorf("failed to write data for league %s: %w", leagueID, err)
	}
	return nil
}

// GetLeagues returns every league ordered by name.
func (s *Snapshot) GetLeagues(ctx context.Context) ([]league.League, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	return sortedLeagues(index), nil
}

func sortedLeagues(index map[string]leagueRecord) []league.League {
	leagues := make([]league.League, 0, len(index))
	for id, record := range index {
		leagues = append(leagues, record.league(id))
	}
	sort.Slice(leagues, func(i, j int) bool {
		if leagues[i].Name != leagues[j].Name {
			return leagues[i].Name < leagues[j].Name
		}
		return leagues[i].ID < leagues[j].ID
	})
	return leagues
}

func (s *Snapshot) GetLeague(ctx context.Context, leagueID string) (league.League, error) {
	if err := s.ready(); err != nil {
		return league.League{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.readIndex(ctx)
	if err != nil {
		return league.League{}, err
	}
	record, ok := index[leagueID]
	if !ok {
		return league.League{}, fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	return record.league(leagueID), nil
}

func (s *Snapshot) CreateLeague(ctx context.Context, name, password string) (league.League, error) {
	if err := s.ready(); err != nil {
		return league.League{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLeague(ctx, name, password, league.DefaultSettings(name, s.now()))
}

func (s *Snapshot) createLeague(ctx context.Context, name, password string, settings league.Settings) (league.League, error) {
	index, err := s.readIndex(ctx)
	if err != nil {
		return league.League{}, err
	}
	id := league.NewID()
	index[id] = leagueRecord{Name: name, Password: password, Settings: settings}
	if err := s.writeIndex(ctx, index); err != nil {
		return league.League{}, err
	}
	log.Info("League created", "league", id, "name", name)
	return index[id].league(id), nil
}

func (s *Snapshot) GetSettings(ctx context.Context, leagueID string) (league.Settings, error) {
	l, err := s.GetLeague(ctx, leagueID)
	if err != nil {
		return league.Settings{}, err
	}
	return l.Settings, nil
}

func (s *Snapshot) UpdateSettings(ctx context.Context, leagueID string, settings league.Settings) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	record, ok := index[leagueID]
	if !ok {
		return fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	record.Settings = settings
	index[leagueID] = record
	return s.writeIndex(ctx, index)
}

// DeleteLeague drops the index entry first, then the data record.
func (s *Snapshot) DeleteLeague(ctx context.Context, leagueID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	if _, ok := index[leagueID]; !ok {
		return fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	delete(index, leagueID)
	if err := s.writeIndex(ctx, index); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, dataKey(leagueID)); err != nil {
		return fmt.Errorf("failed to delete data for league %s: %w", leagueID, err)
	}
	log.Info("League deleted", "league", leagueID)
	return nil
}

// update applies fn to the league's data bundle and writes the result back.
func (s *Snapshot) update(ctx context.Context, leagueID string, fn func(*league.Data)) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.readData(ctx, leagueID)
	if err != nil {
		return err
	}
	fn(&data)
	return s.writeData(ctx, leagueID, data)
}

func (s *Snapshot) data(ctx context.Context, leagueID string) (league.Data, error) {
	if err := s.ready(); err != nil {
		return league.Data{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readData(ctx, leagueID)
}

func (s *Snapshot) GetPlayers(ctx context.Context, leagueID string) ([]league.Player, error) {
	data, err := s.data(ctx, leagueID)
	return data.Players, err
}

func (s *Snapshot) SavePlayers(ctx context.Context, leagueID string, players []league.Player) error {
	return s.update(ctx, leagueID, func(d *league.Data) { d.Players = players })
}

func (s *Snapshot) GetMatches(ctx context.Context, leagueID string) ([]league.Match, error) {
	data, err := s.data(ctx, leagueID)
	return data.Matches, err
}

func (s *Snapshot) SaveMatches(ctx context.Context, leagueID string, matches []league.Match) error {
	return s.update(ctx, leagueID, func(d *league.Data) { d.Matches = matches })
}

func (s *Snapshot) GetPairings(ctx context.Context, leagueID string) ([]league.Pairing, error) {
	data, err := s.data(ctx, leagueID)
	return data.Pairings, err
}

func (s *Snapshot) SavePairings(ctx context.Context, leagueID string, pairings []league.Pairing) error {
	return s.update(ctx, leagueID, func(d *league.Data) { d.Pairings = pairings })
}

// exportPayload is the portable form of a league.
type exportPayload struct {
	Settings *league.Settings `json:"settings"`
	Data     *league.Data     `json:"data"`
}

// ExportLeagueData returns the league's settings and data bundle as JSON.
func (s *Snapshot) ExportLeagueData(ctx context.Context, leagueID string) ([]byte, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	index, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}
	record, ok := index[leagueID]
	if !ok {
		return nil, fmt.Errorf("league %s: %w", leagueID, ErrLeagueNotFound)
	}
	data, err := s.readData(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	raw, err := json.MarshalIndent(exportPayload{Settings: &record.Settings, Data: &data}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return raw, nil
}

// ImportLeagueData creates a new league from an export payload. The payload
// is fully validated before anything is written.
func (s *Snapshot) ImportLeagueData(ctx context.Context, payload []byte, name, password string) (league.League, error) {
	if err := s.ready(); err != nil {
		return league.League{}, err
	}
	var parsed exportPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return league.League{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if parsed.Settings == nil || parsed.Data == nil {
		return league.League{}, fmt.Errorf("%w: settings and data are required", ErrInvalidImport)
	}
	if err := parsed.Settings.Validate(); err != nil {
		return league.League{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.createLeague(ctx, name, password, *parsed.Settings)
	if err != nil {
		return league.League{}, err
	}
	if err := s.writeData(ctx, created.ID, *parsed.Data); err != nil {
		if index, readErr := s.readIndex(ctx); readErr == nil {
			delete(index, created.ID)
			if rollbackErr := s.writeIndex(ctx, index); rollbackErr != nil {
				log.Error("Failed to roll back imported league", "league", created.ID, "error", rollbackErr)
			}
		}
		return league.League{}, err
	}
	log.Info("League imported", "league", created.ID, "players", len(parsed.Data.Players), "matches", len(parsed.Data.Matches))
	return created, nil
}
