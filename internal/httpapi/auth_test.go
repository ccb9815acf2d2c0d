package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"belezapos/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func adminOnlyStore() *userStoreStub {
	return &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := adminOnlyStore()

	manager := NewAuthManager("test-secret", time.Hour, store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestLoginTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())

	resp, err := manager.Login(domain.LoginRequest{
		Username: "Admin", // case-insensitive
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("expected admin role in response, got %q", resp.Role)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsForgedSecret(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())
	forger := NewAuthManager("another-secret", time.Hour, adminOnlyStore())

	resp, err := forger.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if _, err := manager.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestCreateOperatorStoresPasswordHash(t *testing.T) {
	store := adminOnlyStore()

	manager := NewAuthManager("test-secret", time.Hour, store)
	operator, err := manager.CreateOperator(domain.OperatorCreateRequest{
		Username: "novobalcao",
		Password: "pass1234",
	})
	if err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if operator.Username != "novobalcao" {
		t.Fatalf("unexpected username %s", operator.Username)
	}
	if operator.Role != "staff" {
		t.Fatalf("expected staff role, got %q", operator.Role)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var stored *domain.UserAccount
	for i := range users {
		if users[i].Username == "novobalcao" {
			stored = &users[i]
			break
		}
	}
	if stored == nil {
		t.Fatalf("expected operator persisted to the user store")
	}
	if !strings.HasPrefix(stored.Password, "$2") {
		t.Fatalf("expected bcrypt hash, got %s", stored.Password)
	}

	if _, err := manager.Login(domain.LoginRequest{
		Username: "novobalcao",
		Password: "pass1234",
	}); err != nil {
		t.Fatalf("login as new operator failed: %v", err)
	}
}

func TestCreateOperatorRejectsWeakInput(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, adminOnlyStore())

	if _, err := manager.CreateOperator(domain.OperatorCreateRequest{
		Username: "ab",
		Password: "pass1234",
	}); err == nil {
		t.Fatalf("expected short username rejected")
	}
	if _, err := manager.CreateOperator(domain.OperatorCreateRequest{
		Username: "valido",
		Password: "123",
	}); err == nil {
		t.Fatalf("expected short password rejected")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := adminOnlyStore()
	store.users["parado"] = domain.UserAccount{
		Username:  "parado",
		Password:  "senha123",
		Role:      "staff",
		Active:    false,
		CreatedAt: time.Now().UTC(),
	}

	manager := NewAuthManager("test-secret", time.Hour, store)
	if _, err := manager.Login(domain.LoginRequest{
		Username: "parado",
		Password: "senha123",
	}); err == nil {
		t.Fatalf("expected inactive account rejected")
	}
}
