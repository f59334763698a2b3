package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/tuparking/internal/repository"
	"github.com/mmeshcher/tuparking/internal/service"
)

type registerRequest struct {
	DocumentID string `json:"document_id" validate:"required,document"`
	Email      string `json:"email" validate:"required,email,max=255"`
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
	Address    string `json:"address" validate:"omitempty,max=255"`
	Password   string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token   string           `json:"token"`
	User    userResponse     `json:"user"`
	Account *accountResponse `json:"account,omitempty"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "register user", err)
		return
	}

	u, acc, token, err := h.service.Register(r.Context(), service.RegisterInput{
		DocumentID: req.DocumentID,
		Email:      req.Email,
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		Password:   req.Password,
	})
	if err != nil {
		h.writeError(w, r, "register user", err)
		return
	}

	accResp := newAccountResponse(acc)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: newUserResponse(u), Account: &accResp})
}

// Login выполняет аутентификацию пользователя и выдаёт токен.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "login user", err)
		return
	}

	u, token, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, "login user", err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: newUserResponse(u)})
}

// Logout отзывает токен текущего запроса.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authMiddleware.Revoke(r.Context()); err != nil {
		h.logger.Error("revoke token error", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "logout temporarily unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type profileRequest struct {
	Name    string `json:"name" validate:"omitempty,max=255"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Address string `json:"address" validate:"omitempty,max=255"`
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

// UpdateProfile изменяет имя, телефон и адрес текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, repository.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
