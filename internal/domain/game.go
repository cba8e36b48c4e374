package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Game statuses.
const (
	GameStatusActive   = "active"
	GameStatusFinished = "finished"
)

// GameRecord is one persisted game session. The engine state itself is not
// stored; it is rebuilt by replaying the game's action log.
type GameRecord struct {
	GameID    uuid.UUID      `gorm:"column:game_id;type:uuid;primaryKey" json:"game_id"`
	Variant   string         `gorm:"column:variant;type:varchar(20);not null" json:"variant"`
	Players   datatypes.JSON `gorm:"column:players;not null" json:"players"` // ordered seat names
	OwnerID   *uuid.UUID     `gorm:"column:owner_id;type:uuid" json:"owner_id"`
	Status    string         `gorm:"column:status;type:varchar(20);not null;default:active" json:"status"`
	Winner    *string        `gorm:"column:winner" json:"winner"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updatedAt" json:"updatedAt"`
}

func (GameRecord) TableName() string {
	return "Games"
}

func (g *GameRecord) BeforeCreate(tx *gorm.DB) error {
	if g.GameID == uuid.Nil {
		g.GameID = uuid.New()
	}
	return nil
}

// GameAction is one accepted action in a game's replay log, ordered by Seq.
// Undo deletes the highest Seq row of its game.
type GameAction struct {
	ActionID  uuid.UUID      `gorm:"column:action_id;type:uuid;primaryKey" json:"action_id"`
	GameID    uuid.UUID      `gorm:"column:game_id;type:uuid;not null;index:idx_game_seq,unique" json:"game_id"`
	Seq       int            `gorm:"column:seq;not null;index:idx_game_seq,unique" json:"seq"`
	Payload   datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	CreatedAt time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (GameAction) TableName() string {
	return "GameActions"
}

func (a *GameAction) BeforeCreate(tx *gorm.DB) error {
	if a.ActionID == uuid.Nil {
		a.ActionID = uuid.New()
	}
	return nil
}
