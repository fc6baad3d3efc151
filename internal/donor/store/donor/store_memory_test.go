package donor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	authmodels "donorhub/internal/auth/models"
	"donorhub/internal/auth/store/user"
	"donorhub/internal/donor/models"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
)

type InMemoryDonorStoreSuite struct {
	suite.Suite
	store *InMemoryDonorStore
	owner id.UserID
	base  time.Time
}

func TestInMemoryDonorStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryDonorStoreSuite))
}

func (s *InMemoryDonorStoreSuite) SetupTest() {
	s.store = New()
	s.owner = id.NewUserID()
	s.base = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryDonorStoreSuite) newDonor(n int, bt id.BloodType, owner id.UserID) *models.Donor {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	created := s.base.Add(time.Duration(n) * time.Minute)
	return &models.Donor{
		ID:               id.NewDonorID(),
		FirstName:        "Donor",
		LastName:         "Test",
		Email:            fmt.Sprintf("donor%d@example.com", n),
		BirthDate:        time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		BloodType:        bt,
		WeightKg:         70,
		LastDonationDate: &last,
		IsEligible:       true,
		CreatedBy:        owner,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func (s *InMemoryDonorStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	d := s.newDonor(1, id.BloodTypeAPos, s.owner)
	s.Require().NoError(s.store.Create(ctx, d))

	s.Run("find by ID returns a copy", func() {
		found, err := s.store.FindByID(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(d, found)

		*found.LastDonationDate = time.Time{}
		again, _ := s.store.FindByID(ctx, d.ID)
		s.Equal(*d.LastDonationDate, *again.LastDonationDate)
	})

	s.Run("email lookup ignores case", func() {
		found, err := s.store.FindByEmail(ctx, "DONOR1@example.com")
		s.Require().NoError(err)
		s.Equal(d.ID, found.ID)
	})

	s.Run("duplicate email conflicts", func() {
		dup := s.newDonor(2, id.BloodTypeBPos, s.owner)
		dup.Email = "Donor1@Example.com"
		err := s.store.Create(ctx, dup)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing donor", func() {
		_, err := s.store.FindByID(ctx, id.NewDonorID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryDonorStoreSuite) TestList() {
	ctx := context.Background()
	other := id.NewUserID()
	// insert out of creation order
	for _, n := range []int{3, 1, 4, 2, 5} {
		owner := s.owner
		if n%2 == 0 {
			owner = other
		}
		bt := id.BloodTypeOPos
		if n == 4 {
			bt = id.BloodTypeONeg
		}
		s.Require().NoError(s.store.Create(ctx, s.newDonor(n, bt, owner)))
	}

	s.Run("orders by creation and counts before paging", func() {
		page, total, err := s.store.List(ctx, models.ListQuery{Limit: 2, Offset: 1})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Require().Len(page, 2)
		s.Equal("donor2@example.com", page[0].Email)
		s.Equal("donor3@example.com", page[1].Email)
	})

	s.Run("scopes to owner", func() {
		page, total, err := s.store.List(ctx, models.ListQuery{Owner: &s.owner})
		s.Require().NoError(err)
		s.Equal(3, total)
		for _, d := range page {
			s.Equal(s.owner, d.CreatedBy)
		}
	})

	s.Run("filters blood type", func() {
		bt := id.BloodTypeONeg
		page, total, err := s.store.List(ctx, models.ListQuery{BloodType: &bt})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Equal("donor4@example.com", page[0].Email)
	})

	s.Run("offset past end is empty", func() {
		page, total, err := s.store.List(ctx, models.ListQuery{Limit: 10, Offset: 50})
		s.Require().NoError(err)
		s.Equal(5, total)
		s.Empty(page)
	})

	s.Run("counts", func() {
		n, err := s.store.CountByOwner(ctx, other)
		s.Require().NoError(err)
		s.Equal(2, n)

		bt := id.BloodTypeABPos
		_, total, err := s.store.List(ctx, models.ListQuery{BloodType: &bt})
		s.Require().NoError(err)
		s.Zero(total)
	})
}

func (s *InMemoryDonorStoreSuite) TestUpdateAndDelete() {
	ctx := context.Background()
	a := s.newDonor(1, id.BloodTypeAPos, s.owner)
	b := s.newDonor(2, id.BloodTypeAPos, s.owner)
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	s.Run("email change re-indexes", func() {
		updated := a.Clone()
		updated.Email = "renamed@example.com"
		s.Require().NoError(s.store.Update(ctx, updated))

		_, err := s.store.FindByEmail(ctx, "donor1@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
		found, err := s.store.FindByEmail(ctx, "renamed@example.com")
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("email taken by another donor", func() {
		updated := b.Clone()
		updated.Email = "RENAMED@example.com"
		s.ErrorIs(s.store.Update(ctx, updated), sentinel.ErrConflict)
	})

	s.Run("delete frees the email", func() {
		s.Require().NoError(s.store.Delete(ctx, a.ID))
		s.ErrorIs(s.store.Delete(ctx, a.ID), sentinel.ErrNotFound)

		reuse := s.newDonor(9, id.BloodTypeAPos, s.owner)
		reuse.Email = "renamed@example.com"
		s.NoError(s.store.Create(ctx, reuse))
	})

	s.Run("update missing donor", func() {
		s.ErrorIs(s.store.Update(ctx, s.newDonor(10, id.BloodTypeAPos, s.owner)), sentinel.ErrNotFound)
	})
}

func (s *InMemoryDonorStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const workers = 20
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d := s.newDonor(n, id.BloodTypeAPos, s.owner)
			d.Email = "same@example.com"
			err := s.store.Create(ctx, d)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
	s.Equal(int32(workers-1), conflicts.Load())
}

func (s *InMemoryDonorStoreSuite) TestOwnerCheck() {
	ctx := context.Background()
	known := s.owner
	store := New(WithOwnerCheck(func(_ context.Context, owner id.UserID) bool { return owner == known }))

	s.Require().NoError(store.Create(ctx, s.newDonor(1, id.BloodTypeAPos, known)))
	err := store.Create(ctx, s.newDonor(2, id.BloodTypeAPos, id.NewUserID()))
	s.Require().ErrorIs(err, ErrUnknownOwner)

	_, total, err := store.List(ctx, models.ListQuery{})
	s.Require().NoError(err)
	s.Equal(1, total)
}

func (s *InMemoryDonorStoreSuite) TestRemoveOwner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newDonor(1, id.BloodTypeAPos, s.owner)))

	s.Run("owner with donors is a conflict", func() {
		called := false
		err := s.store.RemoveOwner(ctx, s.owner, func() error { called = true; return nil })
		s.Require().ErrorIs(err, sentinel.ErrConflict)
		s.False(called)
	})

	s.Run("owner without donors is removed", func() {
		called := false
		s.Require().NoError(s.store.RemoveOwner(ctx, id.NewUserID(), func() error { called = true; return nil }))
		s.True(called)
	})

	s.Run("removal error is returned", func() {
		failure := errors.New("gone")
		s.Require().ErrorIs(s.store.RemoveOwner(ctx, id.NewUserID(), func() error { return failure }), failure)
	})
}

// Deleting an owner while their donors are being created must never leave a
// donor whose owner is gone.
func (s *InMemoryDonorStoreSuite) TestOwnerDeletionRacesCreate() {
	ctx := context.Background()
	for round := range 50 {
		var donors *InMemoryDonorStore
		users := user.New(user.WithDeleteGuard(func(ctx context.Context, owner id.UserID, remove func() error) error {
			return donors.RemoveOwner(ctx, owner, remove)
		}))
		donors = New(WithOwnerCheck(users.Exists))

		now := time.Now().UTC()
		owner := &authmodels.User{
			ID:           id.NewUserID(),
			Email:        fmt.Sprintf("owner%d@example.com", round),
			PasswordHash: "hash",
			Role:         id.RoleRegular,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.Require().NoError(users.Create(ctx, owner))

		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := range 4 {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				<-start
				_ = donors.Create(ctx, s.newDonor(n, id.BloodTypeOPos, owner.ID))
			}(i)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = users.Delete(ctx, owner.ID)
		}()
		close(start)
		wg.Wait()

		owned, err := donors.CountByOwner(ctx, owner.ID)
		s.Require().NoError(err)
		if !users.Exists(ctx, owner.ID) {
			s.Zero(owned, "round %d left donors without an owner", round)
		}
	}
}
