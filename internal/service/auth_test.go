package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-profile-portal/internal/credentials"
	"github.com/pribylovaa/go-profile-portal/internal/models"
	"github.com/pribylovaa/go-profile-portal/internal/storage"
	"github.com/pribylovaa/go-profile-portal/internal/token"
	"github.com/pribylovaa/go-profile-portal/mocks"
)

func tokenCfg() token.Config {
	return token.Config{
		AccessSecret:  []byte("unit-access-secret-0123456789abcdef"),
		RefreshSecret: []byte("unit-refresh-secret-0123456789abcde"),
		AccessTTL:     30 * time.Second,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "profile-portal",
	}
}

var testHasher = credentials.BcryptHasher{Cost: bcrypt.MinCost}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	ver, err := credentials.NewVerifier(st, testHasher)
	require.NoError(t, err)
	iss, err := token.NewIssuer(tokenCfg())
	require.NoError(t, err)
	val, err := token.NewValidator(tokenCfg())
	require.NoError(t, err)

	return New(st, ver, iss, val, testHasher), st
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := testHasher.Hash(pw)
	require.NoError(t, err)
	return h
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	u := &models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", CreatedAt: time.Now().UTC()}

	st.EXPECT().CredentialByUsername(gomock.Any(), "alice").
		Return(&models.Credential{UserID: u.ID, SecretHash: mustHashPW(t, "Abcdef1!")}, nil)
	st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)

	res, err := svc.Login(context.Background(), "alice", "Abcdef1!")
	require.NoError(t, err)
	require.Equal(t, *u, res.User)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)
	require.WithinDuration(t, time.Now().Add(30*time.Second), res.Tokens.AccessExpiresAt, 2*time.Second)

	id, err := svc.ValidateAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, id)
}

// TestLogin_Failures — not found и неверный пароль неразличимы для вызывающего.
func TestLogin_Failures(t *testing.T) {
	t.Parallel()

	t.Run("not_found", func(t *testing.T) {
		svc, st := newSvc(t)
		st.EXPECT().CredentialByEmail(gomock.Any(), "ghost@example.com").Return(nil, storage.ErrNotFound)

		_, err := svc.Login(context.Background(), "ghost@example.com", "Abcdef1!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong_password", func(t *testing.T) {
		svc, st := newSvc(t)
		st.EXPECT().CredentialByUsername(gomock.Any(), "alice").
			Return(&models.Credential{UserID: uuid.New(), SecretHash: mustHashPW(t, "Abcdef1!")}, nil)

		_, err := svc.Login(context.Background(), "alice", "Abcdef1?")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("empty_input", func(t *testing.T) {
		svc, _ := newSvc(t)

		_, err := svc.Login(context.Background(), "", "")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("user_deleted_after_verify", func(t *testing.T) {
		svc, st := newSvc(t)
		id := uuid.New()
		st.EXPECT().CredentialByUsername(gomock.Any(), "alice").
			Return(&models.Credential{UserID: id, SecretHash: mustHashPW(t, "Abcdef1!")}, nil)
		st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)

		_, err := svc.Login(context.Background(), "alice", "Abcdef1!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("storage_down", func(t *testing.T) {
		svc, st := newSvc(t)
		st.EXPECT().CredentialByUsername(gomock.Any(), "alice").Return(nil, errors.New("db down"))

		_, err := svc.Login(context.Background(), "alice", "Abcdef1!")
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)

	var saved *models.User
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User, hash string) error {
			saved = u
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Abcdef1!")))
			return nil
		})

	res, err := svc.Register(context.Background(), " alice ", "Alice@Example.com", "Abcdef1!")
	require.NoError(t, err)
	require.NotNil(t, saved)
	require.Equal(t, "alice", saved.Username)
	require.Equal(t, "alice@example.com", saved.Email)
	require.Equal(t, saved.ID, res.User.ID)

	id, err := svc.ValidateAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, saved.ID, id)
}

func TestRegister_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	ctx := context.Background()

	tests := []struct {
		name                      string
		username, email, password string
		want                      error
	}{
		{"short_username", "al", "a@e.com", "Abcdef1!", ErrInvalidUsername},
		{"username_with_at", "al@ice", "a@e.com", "Abcdef1!", ErrInvalidUsername},
		{"bad_email", "alice", "not-an-email", "Abcdef1!", ErrInvalidEmail},
		{"display_name_email", "alice", "Alice <a@e.com>", "Abcdef1!", ErrInvalidEmail},
		{"empty_password", "alice", "a@e.com", "", ErrEmptyPassword},
		{"weak_password", "alice", "a@e.com", "short", ErrWeakPassword},
		{"no_special", "alice", "a@e.com", "Abcdefg1", ErrWeakPassword},
		{"too_long_password", "alice", "a@e.com", "Aa1!" + strings.Repeat("x", 70), ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_AlreadyExists(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "Abcdef1!")
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	u := &models.User{ID: uuid.New(), Username: "alice"}

	pair, err := svc.issuer.Issue(u.ID)
	require.NoError(t, err)

	st.EXPECT().UserByID(gomock.Any(), u.ID).Return(u, nil)
	res, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, res.User.ID)

	// access-токен как refresh не принимается.
	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(context.Background(), "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	st.EXPECT().UserByID(gomock.Any(), u.ID).Return(nil, storage.ErrNotFound)
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestProfile(t *testing.T) {
	t.Parallel()

	svc, st := newSvc(t)
	id := uuid.New()

	st.EXPECT().UserByID(gomock.Any(), id).Return(&models.User{ID: id, Username: "alice"}, nil)
	u, err := svc.Profile(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)

	st.EXPECT().UserByID(gomock.Any(), id).Return(nil, storage.ErrNotFound)
	_, err = svc.Profile(context.Background(), id)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestValidateAccess_RejectsRefresh(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	pair, err := svc.issuer.Issue(uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}
