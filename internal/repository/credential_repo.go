package repository

import (
	"context"
	"errors"
)

var ErrCredentialsNotFound = errors.New("credentials not found")

// Credentials is a username/secret pair for one retailer account.
type Credentials struct {
	Username string
	Password string
}

// CredentialSource defines the contract for reading account credentials.
type CredentialSource interface {
	Read(ctx context.Context, id string) (Credentials, error)
}
