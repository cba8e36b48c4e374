package user

import (
	"ironrails-backend/internal/domain"
	"ironrails-backend/internal/middleware"
	"ironrails-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userSessionsPrefix = "user_sessions:"

// Handlers holds the user service and session config for create-user
// (session + cookie).
type Handlers struct {
	Service *Service
	Config  middleware.SessionConfig
}

// CreateUserRequest body.
type CreateUserRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
}

// CreateUser POST /api/v1/users/create-user — register, regenerate session,
// SAdd user_sessions, set cookie, return 201 with data.user.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", 400, nil)
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" || req.Fullname == "" {
		return response.Error(c, "Missing required fields", 400, nil)
	}

	u, err := h.Service.CreateUser(c.Context(), CreateUserInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Fullname: req.Fullname,
	})
	if err != nil {
		return mapCreateError(c, err)
	}

	safe := safeUser(u)

	// Rotate session and set identity
	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		Email:    u.Email,
		Role:     u.Role,
	})
	if h.Service.Rdb != nil {
		_ = h.Service.Rdb.SAdd(c.Context(), userSessionsPrefix+u.UserID.String(), sid).Err()
	}

	// Cookie (same as login)
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": safe}, nil)
}

// UpdateUser PUT /api/v1/users/update-user — updates the session user.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	actor := getSessionActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	userID := actor.UserID
	if _, err := uuid.Parse(userID); err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", 400, nil)
	}

	var body map[string]interface{}
	if err := c.BodyParser(&body); err != nil || len(body) == 0 {
		return response.Error(c, "Missing update fields", 400, nil)
	}

	u, err := h.Service.UpdateUser(c.Context(), userID, body)
	if err != nil {
		return mapUpdateError(c, err)
	}
	return response.Success(c, "User updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// ViewUser GET /api/v1/users/view-user — returns the session user.
func (h *Handlers) ViewUser(c *fiber.Ctx) error {
	actor := getSessionActor(c)
	if actor == nil {
		return response.Unauthorized(c, "Unauthorized")
	}

	u, err := h.Service.ViewUser(c.Context(), actor.UserID)
	if err != nil {
		return mapViewError(c, err)
	}
	return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
}

type sessionActor struct {
	UserID string
	Role   string
}

func getSessionActor(c *fiber.Ctx) *sessionActor {
	u := middleware.GetUser(c)
	if u == nil {
		return nil
	}
	m, ok := u.(map[string]interface{})
	if !ok {
		return nil
	}
	userID, _ := m["user_id"].(string)
	role, _ := m["role"].(string)
	if userID == "" || role == "" {
		return nil
	}
	return &sessionActor{UserID: userID, Role: role}
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":   u.UserID.String(),
		"fullname":  u.Fullname,
		"user_name": u.UserName,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}

func mapCreateError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	status := 500
	switch {
	case msg == "Invalid email format", msg == "Invalid password format",
		msg == "Full name is required and must be a non-empty string",
		msg == "Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)",
		msg == "Username is required and must be a non-empty string":
		status = 400
	case msg == "Email already registered", msg == "Username already registered":
		status = 409
	}
	return response.Error(c, msg, status, nil)
}

func mapUpdateError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	status := 500
	switch {
	case msg == "Missing user ID", msg == "Missing update fields", msg == "No valid update fields provided",
		msg == "Invalid email format", msg == "Invalid password format",
		msg == "Full name must be a non-empty string", msg == "Full name contains invalid characters",
		msg == "Invalid user ID format (must be a valid UUID)":
		status = 400
	case msg == "Email already registered", msg == "Username already registered":
		status = 409
	case msg == "User not found":
		status = 404
	}
	return response.Error(c, msg, status, nil)
}

func mapViewError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	status := 500
	switch {
	case msg == "Missing user ID":
		status = 400
	case msg == "User not found":
		status = 404
	}
	return response.Error(c, msg, status, nil)
}
