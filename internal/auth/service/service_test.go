package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"donorhub/internal/access"
	"donorhub/internal/auth/models"
	"donorhub/internal/auth/service/mocks"
	jwttoken "donorhub/internal/jwt_token"
	id "donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/platform/audit"
	auditmemory "donorhub/pkg/platform/audit/store/memory"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/requestcontext"
	"donorhub/pkg/secrets"
)

const testPassword = "Secret123"

type ServiceSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockUserStore *mocks.MockUserStore
	mockDonors    *mocks.MockDonorOwnership
	mockTRL       *mocks.MockTokenRevocationList
	mockTokens    *mocks.MockTokenGenerator
	hasher        *secrets.Hasher
	passwordHash  string
	auditStore    *auditmemory.InMemoryStore
	service       *Service
	now           time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	s.hasher = secrets.NewHasher(bcrypt.MinCost)
	hash, err := s.hasher.Hash(testPassword)
	s.Require().NoError(err)
	s.passwordHash = hash
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockUserStore = mocks.NewMockUserStore(s.ctrl)
	s.mockDonors = mocks.NewMockDonorOwnership(s.ctrl)
	s.mockTRL = mocks.NewMockTokenRevocationList(s.ctrl)
	s.mockTokens = mocks.NewMockTokenGenerator(s.ctrl)
	s.auditStore = auditmemory.NewInMemoryStore()

	svc, err := New(s.mockUserStore, s.mockDonors, s.mockTRL, s.mockTokens, s.hasher,
		WithAuditPublisher(s.auditStore),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) newUser(email string, role id.Role) *models.User {
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: s.passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    s.now.Add(-time.Hour),
		UpdatedAt:    s.now.Add(-time.Hour),
	}
}

func registerRequest(email, role string) *models.RegisterRequest {
	req := &models.RegisterRequest{Email: email, Password: testPassword, Role: role}
	req.Normalize()
	if err := req.Validate(); err != nil {
		panic(err)
	}
	return req
}

func (s *ServiceSuite) TestNewRequiresDependencies() {
	_, err := New(nil, s.mockDonors, s.mockTRL, s.mockTokens, s.hasher)
	s.Error(err)
}

func (s *ServiceSuite) TestRegister() {
	admin := access.Actor{ID: id.NewUserID(), Role: id.RoleAdministrator}
	regular := access.Actor{ID: id.NewUserID(), Role: id.RoleRegular}

	s.Run("self-registration creates a regular account", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				s.Equal(id.RoleRegular, u.Role)
				s.True(u.IsActive)
				s.Equal(s.now, u.CreatedAt)
				s.NoError(s.hasher.Verify(testPassword, u.PasswordHash))
				return nil
			})

		summary, err := s.service.Register(s.ctx(), nil, registerRequest("New@Example.com", ""))
		s.Require().NoError(err)
		s.Equal("new@example.com", summary.Email)
		s.Equal(id.RoleRegular, summary.Role)
		s.Contains(s.auditStore.Actions(), audit.EventUserRegistered)
	})

	s.Run("duplicate email is a conflict", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "taken@example.com").
			Return(s.newUser("taken@example.com", id.RoleRegular), nil)

		_, err := s.service.Register(s.ctx(), nil, registerRequest("taken@example.com", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("store-level conflict from a concurrent registration is a conflict", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "race@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.Register(s.ctx(), nil, registerRequest("race@example.com", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("anonymous caller cannot register an administrator", func() {
		_, err := s.service.Register(s.ctx(), nil, registerRequest("boss@example.com", "administrator"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("regular caller cannot register an administrator", func() {
		_, err := s.service.Register(s.ctx(), &regular, registerRequest("boss@example.com", "administrator"))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("administrator can register an administrator", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "boss@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		summary, err := s.service.Register(s.ctx(), &admin, registerRequest("boss@example.com", "administrator"))
		s.Require().NoError(err)
		s.Equal(id.RoleAdministrator, summary.Role)
	})

	s.Run("store failure is internal", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "down@example.com").Return(nil, errors.New("db down"))

		_, err := s.service.Register(s.ctx(), nil, registerRequest("down@example.com", ""))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRegister_HashFailure() {
	hasher := mocks.NewMockPasswordHasher(s.ctrl)
	svc, err := New(s.mockUserStore, s.mockDonors, s.mockTRL, s.mockTokens, hasher)
	s.Require().NoError(err)

	s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
	hasher.EXPECT().Hash(testPassword).Return("", errors.New("entropy exhausted"))

	_, err = svc.Register(s.ctx(), nil, registerRequest("hash@example.com", ""))
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestLogin() {
	user := s.newUser("jane@example.com", id.RoleRegular)

	s.Run("valid credentials issue a bearer token", func() {
		expires := s.now.Add(24 * time.Hour)
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), user.Email).Return(user, nil)
		s.mockTokens.EXPECT().GenerateAccessToken(user.ID, id.RoleRegular, user.Email).
			Return(&jwttoken.IssuedToken{Token: "signed", JTI: "jti-1", IssuedAt: s.now, ExpiresAt: expires}, nil)

		result, err := s.service.Login(s.ctx(), &models.LoginRequest{Email: user.Email, Password: testPassword})
		s.Require().NoError(err)
		s.Equal("signed", result.AccessToken)
		s.Equal("Bearer", result.TokenType)
		s.Equal(int64(86400), result.ExpiresIn)
		s.Equal(user.ID, result.User.ID)
		s.Contains(s.auditStore.Actions(), audit.EventLoginSucceeded)
	})

	s.Run("wrong password is unauthorized", func() {
		s.auditStore.Clear()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), user.Email).Return(user, nil)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Email: user.Email, Password: "Wrong1234"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("invalid credentials", dErrors.MessageOf(err))
		s.Equal([]audit.AuditEvent{audit.EventLoginFailed}, s.auditStore.Actions())
	})

	s.Run("unknown email gives the same error", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "ghost@example.com").Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Email: "ghost@example.com", Password: testPassword})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("invalid credentials", dErrors.MessageOf(err))
	})

	s.Run("inactive account cannot log in", func() {
		inactive := s.newUser("off@example.com", id.RoleRegular)
		inactive.IsActive = false
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), inactive.Email).Return(inactive, nil)

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Email: inactive.Email, Password: testPassword})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("account is inactive", dErrors.MessageOf(err))
	})

	s.Run("token signing failure is internal", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), user.Email).Return(user, nil)
		s.mockTokens.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("sign"))

		_, err := s.service.Login(s.ctx(), &models.LoginRequest{Email: user.Email, Password: testPassword})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLogout() {
	userID := id.NewUserID()

	s.Run("revokes the presented token for its remaining lifetime", func() {
		ctx := requestcontext.WithToken(s.ctx(), "jti-logout", s.now.Add(2*time.Hour))
		s.mockTRL.EXPECT().RevokeToken(gomock.Any(), "jti-logout", 2*time.Hour).Return(nil)

		s.Require().NoError(s.service.Logout(ctx, userID))
		s.Contains(s.auditStore.Actions(), audit.EventLogout)
	})

	s.Run("already expired token needs no revocation", func() {
		ctx := requestcontext.WithToken(s.ctx(), "jti-old", s.now.Add(-time.Minute))
		s.Require().NoError(s.service.Logout(ctx, userID))
	})

	s.Run("missing token is unauthorized", func() {
		err := s.service.Logout(s.ctx(), userID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("revocation list failure is internal", func() {
		ctx := requestcontext.WithToken(s.ctx(), "jti-fail", s.now.Add(time.Hour))
		s.mockTRL.EXPECT().RevokeToken(gomock.Any(), "jti-fail", time.Hour).Return(errors.New("redis down"))

		err := s.service.Logout(ctx, userID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestResolveActor() {
	s.Run("uses the stored role", func() {
		user := s.newUser("promoted@example.com", id.RoleAdministrator)
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		actor, err := s.service.ResolveActor(s.ctx(), user.ID)
		s.Require().NoError(err)
		s.Equal(access.Actor{ID: user.ID, Role: id.RoleAdministrator}, actor)
	})

	s.Run("deleted account is unauthorized", func() {
		missing := id.NewUserID()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.ResolveActor(s.ctx(), missing)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("inactive account is unauthorized", func() {
		user := s.newUser("off@example.com", id.RoleRegular)
		user.IsActive = false
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		_, err := s.service.ResolveActor(s.ctx(), user.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("nil ID is unauthorized", func() {
		_, err := s.service.ResolveActor(s.ctx(), id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestProfile() {
	user := s.newUser("me@example.com", id.RoleRegular)
	s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

	profile, err := s.service.Profile(s.ctx(), user.ID)
	s.Require().NoError(err)
	s.Equal(user.Email, profile.Email)
}

func (s *ServiceSuite) TestListUsers() {
	admin := access.Actor{ID: id.NewUserID(), Role: id.RoleAdministrator}

	s.Run("regular users are forbidden", func() {
		_, err := s.service.ListUsers(s.ctx(), access.Actor{ID: id.NewUserID(), Role: id.RoleRegular})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("administrators see every account", func() {
		s.mockUserStore.EXPECT().List(gomock.Any()).Return([]*models.User{
			s.newUser("a@example.com", id.RoleAdministrator),
			s.newUser("b@example.com", id.RoleRegular),
		}, nil)

		list, err := s.service.ListUsers(s.ctx(), admin)
		s.Require().NoError(err)
		s.Equal(2, list.Total)
		s.Len(list.Users, 2)
	})
}

func ptr[T any](v T) *T { return &v }

func (s *ServiceSuite) TestUpdateUser() {
	admin := access.Actor{ID: id.NewUserID(), Role: id.RoleAdministrator}

	s.Run("applies provided fields", func() {
		target := s.newUser("old@example.com", id.RoleRegular)
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockUserStore.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				s.Equal("new@example.com", u.Email)
				s.Equal(id.RoleAdministrator, u.Role)
				s.False(u.IsActive)
				s.Equal(s.now, u.UpdatedAt)
				return nil
			})

		summary, err := s.service.UpdateUser(s.ctx(), admin, target.ID, &models.UpdateUserRequest{
			Email:    ptr("new@example.com"),
			Role:     ptr("administrator"),
			IsActive: ptr(false),
		})
		s.Require().NoError(err)
		s.Equal("new@example.com", summary.Email)
		s.Contains(s.auditStore.Actions(), audit.EventUserUpdated)
	})

	s.Run("email owned by another account conflicts", func() {
		target := s.newUser("mine@example.com", id.RoleRegular)
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "theirs@example.com").
			Return(s.newUser("theirs@example.com", id.RoleRegular), nil)

		_, err := s.service.UpdateUser(s.ctx(), admin, target.ID, &models.UpdateUserRequest{Email: ptr("theirs@example.com")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("missing user is not found", func() {
		missing := id.NewUserID()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.UpdateUser(s.ctx(), admin, missing, &models.UpdateUserRequest{IsActive: ptr(true)})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("administrator cannot deactivate or demote themselves", func() {
		self := s.newUser("self@example.com", id.RoleAdministrator)
		self.ID = admin.ID
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), admin.ID).Return(self, nil).Times(2)

		_, err := s.service.UpdateUser(s.ctx(), admin, admin.ID, &models.UpdateUserRequest{IsActive: ptr(false)})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		_, err = s.service.UpdateUser(s.ctx(), admin, admin.ID, &models.UpdateUserRequest{Role: ptr("regular")})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("regular users are forbidden", func() {
		_, err := s.service.UpdateUser(s.ctx(), access.Actor{ID: id.NewUserID(), Role: id.RoleRegular},
			id.NewUserID(), &models.UpdateUserRequest{IsActive: ptr(true)})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestDeleteUser() {
	admin := access.Actor{ID: id.NewUserID(), Role: id.RoleAdministrator}
	target := s.newUser("leaving@example.com", id.RoleRegular)

	s.Run("self-delete is a bad request", func() {
		err := s.service.DeleteUser(s.ctx(), admin, admin.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("user owning donors is a conflict", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockDonors.EXPECT().CountByOwner(gomock.Any(), target.ID).Return(3, nil)

		err := s.service.DeleteUser(s.ctx(), admin, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal("user still owns 3 donor records", dErrors.MessageOf(err))
	})

	s.Run("deletes a user without donors", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockDonors.EXPECT().CountByOwner(gomock.Any(), target.ID).Return(0, nil)
		s.mockUserStore.EXPECT().Delete(gomock.Any(), target.ID).Return(nil)

		s.Require().NoError(s.service.DeleteUser(s.ctx(), admin, target.ID))
		s.Contains(s.auditStore.Actions(), audit.EventUserDeleted)
	})

	s.Run("user lookup fails", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(nil, errors.New("db down"))

		err := s.service.DeleteUser(s.ctx(), admin, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("donor registered after the ownership check is a conflict", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockDonors.EXPECT().CountByOwner(gomock.Any(), target.ID).Return(0, nil)
		s.mockUserStore.EXPECT().Delete(gomock.Any(), target.ID).Return(fmt.Errorf("delete user: %w", sentinel.ErrConflict))

		err := s.service.DeleteUser(s.ctx(), admin, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("user delete fails", func() {
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.mockDonors.EXPECT().CountByOwner(gomock.Any(), target.ID).Return(0, nil)
		s.mockUserStore.EXPECT().Delete(gomock.Any(), target.ID).Return(errors.New("write fail"))

		err := s.service.DeleteUser(s.ctx(), admin, target.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestEnsureDefaultAdmin() {
	s.Run("creates the administrator when none exists", func() {
		s.mockUserStore.EXPECT().ExistsWithRole(gomock.Any(), id.RoleAdministrator).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, u *models.User) error {
				s.Equal("admin@example.com", u.Email)
				s.Equal(id.RoleAdministrator, u.Role)
				return nil
			})

		created, err := s.service.EnsureDefaultAdmin(s.ctx(), " Admin@Example.com ", "Admin123!")
		s.Require().NoError(err)
		s.True(created)
	})

	s.Run("is a no-op when an administrator exists", func() {
		s.mockUserStore.EXPECT().ExistsWithRole(gomock.Any(), id.RoleAdministrator).Return(true, nil)

		created, err := s.service.EnsureDefaultAdmin(s.ctx(), "admin@example.com", "Admin123!")
		s.Require().NoError(err)
		s.False(created)
	})

	s.Run("tolerates losing a bootstrap race", func() {
		s.mockUserStore.EXPECT().ExistsWithRole(gomock.Any(), id.RoleAdministrator).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		s.mockUserStore.EXPECT().ExistsWithRole(gomock.Any(), id.RoleAdministrator).Return(true, nil)

		created, err := s.service.EnsureDefaultAdmin(s.ctx(), "admin@example.com", "Admin123!")
		s.Require().NoError(err)
		s.False(created)
	})

	s.Run("rejects a weak configured password", func() {
		s.mockUserStore.EXPECT().ExistsWithRole(gomock.Any(), id.RoleAdministrator).Return(false, nil)

		_, err := s.service.EnsureDefaultAdmin(s.ctx(), "admin@example.com", "weak")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
