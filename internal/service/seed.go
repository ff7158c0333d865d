package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fieldops/fieldservice/internal/domain"
	"github.com/fieldops/fieldservice/internal/repository"
	"github.com/fieldops/fieldservice/pkg/util/errorutil"
)

// SeedFile lists employees to provision at start-up, typically for the demo
// memory backend.
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// SeedUser is one employee entry. Passwords are hashed on load.
type SeedUser struct {
	Name     string      `yaml:"name"`
	Email    string      `yaml:"email"`
	Password string      `yaml:"password"`
	Role     domain.Role `yaml:"role"`
	Inactive bool        `yaml:"inactive"`
}

// LoadSeedFile reads a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes seed YAML.
func ParseSeed(raw []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// ApplySeed creates every seeded user whose email is not registered yet and
// returns how many were created.
func (s *AuthService) ApplySeed(ctx context.Context, seed *SeedFile) (int, error) {
	created := 0
	for _, entry := range seed.Users {
		_, err := s.users.GetByEmail(ctx, entry.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("seed %s: %w", entry.Email, err)
		}

		user, err := s.register(ctx, CreateUserInput{
			Name:     entry.Name,
			Email:    entry.Email,
			Password: entry.Password,
			Role:     entry.Role,
		})
		if err != nil {
			if de := errorutil.ToDomainError(err); de.Code != errorutil.CodeInternal {
				return created, fmt.Errorf("seed %s: %s", entry.Email, de.Message)
			}
			return created, fmt.Errorf("seed %s: %w", entry.Email, err)
		}
		if entry.Inactive {
			user.Active = false
			if err := s.users.Update(ctx, user); err != nil {
				return created, fmt.Errorf("seed %s: %w", entry.Email, err)
			}
		}
		created++
		s.logger.Info("seeded user", zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}
	return created, nil
}
