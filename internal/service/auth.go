package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"gopkg.in/guregu/null.v4"

	"github.com/mmeshcher/tuparking/internal/model"
	"github.com/mmeshcher/tuparking/internal/repository"
	"github.com/mmeshcher/tuparking/internal/validation"
)

const minPasswordLength = 6

// RegisterInput содержит данные для регистрации пользователя.
type RegisterInput struct {
	DocumentID string
	Email      string
	Name       string
	Phone      string
	Address    string
	Password   string
}

func (in RegisterInput) normalize() (RegisterInput, error) {
	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)

	switch {
	case !validation.IsValidDocumentID(in.DocumentID):
		return in, invalid("document_id", "must contain 5 to 15 digits")
	case in.Name == "":
		return in, invalid("name", "is required")
	case len(in.Password) < minPasswordLength:
		return in, invalid("password", "must be at least 6 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, invalid("email", "is not a valid address")
	}
	return in, nil
}

// Register создаёт пользователя вместе со счётом и выпускает токен доступа.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, model.Account, string, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, model.Account{}, "", err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, model.Account{}, "", err
	}

	user := &model.User{
		DocumentID:   in.DocumentID,
		Email:        in.Email,
		Name:         in.Name,
		Phone:        null.NewString(in.Phone, in.Phone != ""),
		Address:      null.NewString(in.Address, in.Address != ""),
		PasswordHash: hash,
	}

	var acc model.Account
	err = s.withinUnitOfWork(ctx, "register", func(uow repository.UnitOfWork) error {
		if err := uow.CreateUser(ctx, user); err != nil {
			return err
		}
		acc, err = uow.CreateAccount(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, model.Account{}, "", err
	}

	token, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, model.Account{}, "", err
	}
	return user, acc, token, nil
}

// Authenticate проверяет email и пароль и выпускает токен доступа.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !checkPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GetProfile возвращает профиль пользователя.
func (s *Service) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateProfile обновляет имя, телефон и адрес. Пустые поля не изменяются.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, upd repository.ProfileUpdate) (*model.User, error) {
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Phone = strings.TrimSpace(upd.Phone)
	upd.Address = strings.TrimSpace(upd.Address)
	if upd == (repository.ProfileUpdate{}) {
		return nil, invalid("profile", "nothing to update")
	}
	return s.repo.UpdateProfile(ctx, userID, upd)
}
