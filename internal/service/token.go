package service

import "github.com/NateWesth/aleph-order-tracker/internal/models"

type TokenService interface {
	CreateToken(subject string) (string, error)
	VerifyToken(tokenString string) (*models.TokenPayload, error)
}
