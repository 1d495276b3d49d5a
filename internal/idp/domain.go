// Package idp is a development stand-in for the remote identity service.
// It speaks the same wire contract the RemoteProvider consumes, so the
// client can be exercised end to end without external infrastructure.
package idp

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Account is one registered identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         string
	Confirmed    bool
}

// NewAccount hashes the password and assigns an id.
func NewAccount(email, password, name, role string, confirmed bool) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, fmt.Errorf("idp: hash password: %w", err)
	}
	return Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Confirmed:    confirmed,
	}, nil
}

// SeedAccounts returns the development accounts mirroring the client's
// mock allow-list, plus one unconfirmed account for rejection testing.
func SeedAccounts() ([]Account, error) {
	specs := []struct {
		email, password, name, role string
		confirmed                   bool
	}{
		{"prueba@correo.com", "123456", "prueba", "admin", true},
		{"admin@logistica.com", "admin123", "admin", "admin", true},
		{"test@example.com", "test123", "test", "operator", true},
		{"user@example.com", "password", "user", "operator", true},
		{"pendiente@correo.com", "123456", "pendiente", "operator", false},
	}
	accounts := make([]Account, 0, len(specs))
	for _, spec := range specs {
		acc, err := NewAccount(spec.email, spec.password, spec.name, spec.role, spec.confirmed)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}
