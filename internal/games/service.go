package games

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ironrails-backend/internal/domain"
	"ironrails-backend/internal/engine"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrGameNotFound = errors.New("Game not found")
	ErrGameLimit    = errors.New("Active game limit reached")
)

// Service runs game sessions. Live engines are cached in memory keyed by
// game id; a session not in the cache is rebuilt by replaying its persisted
// action log, so the process can restart (or scale out) without losing games.
type Service struct {
	DB              *gorm.DB
	MaxGamesPerUser int
	DefaultVariant  string

	mu       sync.Mutex
	sessions map[uuid.UUID]*engine.Game
}

func NewService(db *gorm.DB, maxGamesPerUser int) *Service {
	return &Service{
		DB:              db,
		MaxGamesPerUser: maxGamesPerUser,
		sessions:        make(map[uuid.UUID]*engine.Game),
	}
}

type CreateGameInput struct {
	Variant string
	Players []string
	OwnerID *uuid.UUID
}

// PlayerView is one seat in a game snapshot.
type PlayerView struct {
	Name     string         `json:"name"`
	Cash     int            `json:"cash"`
	NetWorth int            `json:"net_worth"`
	Shares   map[string]int `json:"shares"`
	Privates []string       `json:"privates"`
}

// CompanyView is one public company in a game snapshot.
type CompanyView struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	President  string   `json:"president,omitempty"`
	ParPrice   int      `json:"par_price"`
	SharePrice int      `json:"share_price"`
	Space      string   `json:"space,omitempty"`
	Treasury   int      `json:"treasury"`
	Floated    bool     `json:"floated"`
	IPOShares  int      `json:"ipo_shares"`
	PoolShares int      `json:"pool_shares"`
	Trains     []string `json:"trains"`
}

// GameView is the full snapshot returned by view-game and after each action.
type GameView struct {
	GameID        uuid.UUID            `json:"game_id"`
	Variant       string               `json:"variant"`
	Status        string               `json:"status"`
	Round         string               `json:"round"`
	Phase         string               `json:"phase"`
	CurrentPlayer string               `json:"current_player,omitempty"`
	Priority      string               `json:"priority"`
	ActionCount   int                  `json:"action_count"`
	BankCash      int                  `json:"bank_cash"`
	BankBroken    bool                 `json:"bank_broken"`
	Players       []PlayerView         `json:"players"`
	Companies     []CompanyView        `json:"companies"`
	Winner        *string              `json:"winner,omitempty"`
	Result        []engine.PlayerScore `json:"result,omitempty"`
}

// CreateGame validates the variant and seats, persists the game record and
// starts a live engine session.
func (s *Service) CreateGame(ctx context.Context, in CreateGameInput) (*GameView, error) {
	variant := in.Variant
	if variant == "" {
		variant = s.DefaultVariant
	}
	if variant == "" {
		variant = "1830"
	}
	opts, err := engine.VariantOptions(variant)
	if err != nil {
		return nil, err
	}

	if in.OwnerID != nil && s.MaxGamesPerUser > 0 {
		var active int64
		if err := s.DB.WithContext(ctx).Model(&domain.GameRecord{}).
			Where("owner_id = ? AND status = ?", *in.OwnerID, domain.GameStatusActive).
			Count(&active).Error; err != nil {
			return nil, err
		}
		if active >= int64(s.MaxGamesPerUser) {
			return nil, ErrGameLimit
		}
	}

	g, err := engine.NewGame(opts, in.Players, log.Logger)
	if err != nil {
		return nil, err
	}

	playersJSON, err := json.Marshal(in.Players)
	if err != nil {
		return nil, err
	}
	record := &domain.GameRecord{
		Variant: variant,
		Players: datatypes.JSON(playersJSON),
		OwnerID: in.OwnerID,
		Status:  domain.GameStatusActive,
	}
	if err := s.DB.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[record.GameID] = g
	s.mu.Unlock()

	log.Info().Str("game_id", record.GameID.String()).Str("variant", variant).
		Int("players", len(in.Players)).Msg("game created")

	return s.view(record, g), nil
}

// SubmitAction applies one action to the game and appends it to the
// persisted log. On persistence failure the cached session is evicted so
// the next request replays from the log and no divergence survives.
func (s *Service) SubmitAction(ctx context.Context, gameID uuid.UUID, a engine.Action) (*GameView, error) {
	g, record, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := g.Process(a); err != nil {
		return nil, err
	}

	seq := len(g.Actions())
	payload, err := json.Marshal(a)
	if err != nil {
		delete(s.sessions, gameID)
		return nil, err
	}
	row := &domain.GameAction{GameID: gameID, Seq: seq, Payload: datatypes.JSON(payload)}
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		delete(s.sessions, gameID)
		return nil, err
	}

	if g.GameOver() {
		result := g.Result()
		updates := map[string]interface{}{"status": domain.GameStatusFinished}
		if len(result) > 0 {
			updates["winner"] = result[0].Player
		}
		if err := s.DB.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
			delete(s.sessions, gameID)
			return nil, err
		}
		winner := ""
		if len(result) > 0 {
			winner = result[0].Player
		}
		log.Info().Str("game_id", gameID.String()).Str("winner", winner).
			Msg("game finished")
	}

	return s.view(record, g), nil
}

// Undo reverts the most recent action back to the current round boundary
// and removes it from the persisted log.
func (s *Service) Undo(ctx context.Context, gameID uuid.UUID) (*GameView, error) {
	g, record, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := g.Undo(); err != nil {
		return nil, err
	}

	seq := len(g.Actions()) + 1
	if err := s.DB.WithContext(ctx).
		Where("game_id = ? AND seq = ?", gameID, seq).
		Delete(&domain.GameAction{}).Error; err != nil {
		delete(s.sessions, gameID)
		return nil, err
	}

	return s.view(record, g), nil
}

// LoadGame drops any cached session and rebuilds it by replaying the
// persisted action log.
func (s *Service) LoadGame(ctx context.Context, gameID uuid.UUID) (*GameView, error) {
	s.mu.Lock()
	delete(s.sessions, gameID)
	s.mu.Unlock()

	g, record, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(record, g), nil
}

// GetGame returns the current snapshot.
func (s *Service) GetGame(ctx context.Context, gameID uuid.UUID) (*GameView, error) {
	g, record, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(record, g), nil
}

// LegalActions returns the legal-action set for the player on turn. Empty
// once the game is over.
func (s *Service) LegalActions(ctx context.Context, gameID uuid.UUID) ([]engine.Action, error) {
	g, _, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := g.PossibleActions()
	if actions == nil {
		actions = []engine.Action{}
	}
	return actions, nil
}

// ActionLog returns the accepted actions in order.
func (s *Service) ActionLog(ctx context.Context, gameID uuid.UUID) ([]engine.Action, error) {
	g, _, err := s.session(ctx, gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return g.Actions(), nil
}

// ListGames returns game records, newest first. With ownerID set, only that
// user's games.
func (s *Service) ListGames(ctx context.Context, ownerID *uuid.UUID) ([]domain.GameRecord, error) {
	q := s.DB.WithContext(ctx).Order("\"createdAt\" DESC")
	if ownerID != nil {
		q = q.Where("owner_id = ?", *ownerID)
	}
	var records []domain.GameRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// session returns the live engine for a game, replaying the persisted
// action log if it is not cached.
func (s *Service) session(ctx context.Context, gameID uuid.UUID) (*engine.Game, *domain.GameRecord, error) {
	var record domain.GameRecord
	if err := s.DB.WithContext(ctx).Where("game_id = ?", gameID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, ErrGameNotFound
		}
		return nil, nil, err
	}

	s.mu.Lock()
	if g, ok := s.sessions[gameID]; ok {
		s.mu.Unlock()
		return g, &record, nil
	}
	s.mu.Unlock()

	var players []string
	if err := json.Unmarshal(record.Players, &players); err != nil {
		return nil, nil, err
	}
	opts, err := engine.VariantOptions(record.Variant)
	if err != nil {
		return nil, nil, err
	}

	var rows []domain.GameAction
	if err := s.DB.WithContext(ctx).Where("game_id = ?", gameID).
		Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	actions := make([]engine.Action, 0, len(rows))
	for _, row := range rows {
		var a engine.Action
		if err := json.Unmarshal(row.Payload, &a); err != nil {
			return nil, nil, err
		}
		actions = append(actions, a)
	}

	g, err := engine.Replay(opts, players, log.Logger, actions)
	if err != nil {
		log.Error().Str("game_id", gameID.String()).Err(err).
			Msg("replay of persisted action log failed")
		return nil, nil, err
	}

	s.mu.Lock()
	s.sessions[gameID] = g
	s.mu.Unlock()
	return g, &record, nil
}

// view builds a snapshot. Caller holds the session lock for live games.
func (s *Service) view(record *domain.GameRecord, g *engine.Game) *GameView {
	v := &GameView{
		GameID:      record.GameID,
		Variant:     record.Variant,
		Status:      record.Status,
		Round:       g.Round().Name(),
		Phase:       g.Phase(),
		Priority:    g.Priority().Name,
		ActionCount: len(g.Actions()),
		BankCash:    g.Bank.Account.Cash(),
		BankBroken:  g.Bank.Broken(),
		Winner:      record.Winner,
	}
	if g.GameOver() {
		v.Status = domain.GameStatusFinished
		v.Result = g.Result()
		if v.Winner == nil && len(v.Result) > 0 {
			w := v.Result[0].Player
			v.Winner = &w
		}
	} else if p := g.CurrentPlayer(); p != nil {
		v.CurrentPlayer = p.Name
	}

	for _, p := range g.Players {
		pv := PlayerView{
			Name:     p.Name,
			Cash:     p.Account.Cash(),
			NetWorth: p.NetWorth(g),
			Shares:   make(map[string]int),
			Privates: []string{},
		}
		for _, c := range g.Companies {
			if n := p.Portfolio.SharesOf(c); n > 0 {
				pv.Shares[c.Symbol] = n
			}
		}
		for _, pc := range p.Portfolio.Privates() {
			pv.Privates = append(pv.Privates, pc.Name)
		}
		v.Players = append(v.Players, pv)
	}

	for _, c := range g.Companies {
		cv := CompanyView{
			Symbol:     c.Symbol,
			Name:       c.Name,
			ParPrice:   c.ParPrice(),
			SharePrice: c.SharePrice(),
			Treasury:   c.Treasury.Cash(),
			Floated:    c.Floated(),
			IPOShares:  g.Bank.IPO.SharesOf(c),
			PoolShares: g.Bank.Pool.SharesOf(c),
			Trains:     []string{},
		}
		if p := c.President(); p != nil {
			cv.President = p.Name
		}
		if sp := c.Space(); sp != nil {
			cv.Space = sp.Coord()
		}
		for _, t := range c.Portfolio.Trains() {
			if !t.Rusted() {
				cv.Trains = append(cv.Trains, t.Name)
			}
		}
		v.Companies = append(v.Companies, cv)
	}

	return v
}
