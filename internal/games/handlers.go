package games

import (
	"errors"

	"ironrails-backend/internal/engine"
	"ironrails-backend/internal/middleware"
	"ironrails-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// CreateGame POST /api/v1/games/create-game
func (h *Handlers) CreateGame(c *fiber.Ctx) error {
	var body struct {
		Variant string   `json:"variant"`
		Players []string `json:"players"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "players are required", 400, nil)
	}
	if len(body.Players) == 0 {
		return response.Error(c, "players are required", 400, nil)
	}

	var ownerID *uuid.UUID
	if actor := getActor(c); actor != "" {
		if id, err := uuid.Parse(actor); err == nil {
			ownerID = &id
		}
	}

	view, err := h.Service.CreateGame(c.Context(), CreateGameInput{
		Variant: body.Variant,
		Players: body.Players,
		OwnerID: ownerID,
	})
	if err != nil {
		return gameError(c, err)
	}
	return response.SuccessCreated(c, "Game created", view, nil)
}

// ViewGame GET /api/v1/games/view-game/:id
func (h *Handlers) ViewGame(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	view, err := h.Service.GetGame(c.Context(), gameID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Game fetched", view, nil)
}

// LegalActions GET /api/v1/games/legal-actions/:id
func (h *Handlers) LegalActions(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	actions, err := h.Service.LegalActions(c.Context(), gameID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Legal actions fetched", fiber.Map{"actions": actions}, nil)
}

// SubmitAction POST /api/v1/games/submit-action/:id
func (h *Handlers) SubmitAction(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	var action engine.Action
	if err := c.BodyParser(&action); err != nil {
		return response.Error(c, "Invalid action body", 400, nil)
	}
	if action.Type == "" {
		return response.Error(c, "action type is required", 400, nil)
	}

	view, err := h.Service.SubmitAction(c.Context(), gameID, action)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Action accepted", view, nil)
}

// UndoAction POST /api/v1/games/undo/:id
func (h *Handlers) UndoAction(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	view, err := h.Service.Undo(c.Context(), gameID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Action undone", view, nil)
}

// LoadGame POST /api/v1/games/load-game/:id — force a rebuild from the
// persisted action log.
func (h *Handlers) LoadGame(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	view, err := h.Service.LoadGame(c.Context(), gameID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Game loaded", view, nil)
}

// GetActions GET /api/v1/games/get-actions/:id
func (h *Handlers) GetActions(c *fiber.Ctx) error {
	gameID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for game id", 400, nil)
	}
	actions, err := h.Service.ActionLog(c.Context(), gameID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Actions fetched", fiber.Map{"actions": actions}, nil)
}

// GetGames GET /api/v1/games/get-games — the caller's games, newest first.
func (h *Handlers) GetGames(c *fiber.Ctx) error {
	var ownerID *uuid.UUID
	if actor := getActor(c); actor != "" {
		if id, err := uuid.Parse(actor); err == nil {
			ownerID = &id
		}
	}
	records, err := h.Service.ListGames(c.Context(), ownerID)
	if err != nil {
		return gameError(c, err)
	}
	return response.Success(c, "Games fetched", fiber.Map{"games": records}, nil)
}

// Variants GET /api/v1/games/variants — supported rule sets.
func (h *Handlers) Variants(c *fiber.Ctx) error {
	return response.Success(c, "Variants fetched", fiber.Map{"variants": engine.Variants()}, nil)
}

// gameError maps service and engine errors to HTTP statuses.
func gameError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return response.Error(c, err.Error(), 404, nil)
	case errors.Is(err, ErrGameLimit):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, engine.ErrGameOver):
		return response.Error(c, err.Error(), 409, nil)
	case errors.Is(err, engine.ErrInvalidAction):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, engine.ErrNothingToUndo):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, engine.ErrConfiguration):
		return response.Error(c, err.Error(), 400, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

func getActor(c *fiber.Ctx) string {
	u := middleware.GetUser(c)
	if u == nil {
		return ""
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return ""
	}
	userID, _ := m["user_id"].(string)
	return userID
}
