package models

import "time"

// TokenPayload is the verified claim set of a webhook auth token
type TokenPayload struct {
	Subject  string
	IssuedAt time.Time
}
