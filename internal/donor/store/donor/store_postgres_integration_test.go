//go:build integration

package donor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"donorhub/internal/auth/models"
	"donorhub/internal/auth/store/user"
	donormodels "donorhub/internal/donor/models"
	"donorhub/internal/donor/store/donor"
	id "donorhub/pkg/domain"
	"donorhub/pkg/platform/sentinel"
	"donorhub/pkg/testutil/containers"
)

type PostgresDonorStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *donor.PostgresStore
	owner    id.UserID
}

func TestPostgresDonorStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresDonorStoreSuite))
}

func (s *PostgresDonorStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = donor.NewPostgres(s.postgres.DB)
}

func (s *PostgresDonorStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "donors", "users"))

	now := time.Now().UTC().Truncate(time.Microsecond)
	owner := &models.User{
		ID:           id.NewUserID(),
		Email:        "owner@example.com",
		PasswordHash: "$2a$04$hash",
		Role:         id.RoleRegular,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(user.NewPostgres(s.postgres.DB).Create(ctx, owner))
	s.owner = owner.ID
}

func (s *PostgresDonorStoreSuite) makeDonor(n int, bt id.BloodType) *donormodels.Donor {
	created := time.Date(2026, 1, 1, 9, n, 0, 0, time.UTC)
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &donormodels.Donor{
		ID:               id.NewDonorID(),
		FirstName:        "Donor",
		LastName:         "Test",
		Email:            fmt.Sprintf("donor%d@example.com", n),
		Phone:            "11987654321",
		BirthDate:        time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		BloodType:        bt,
		WeightKg:         70.5,
		LastDonationDate: &last,
		IsEligible:       true,
		MedicalNotes:     "none",
		CreatedBy:        s.owner,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func (s *PostgresDonorStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	d := s.makeDonor(1, id.BloodTypeABNeg)
	s.Require().NoError(s.store.Create(ctx, d))

	found, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Email, found.Email)
	s.Equal(d.BirthDate, found.BirthDate)
	s.Require().NotNil(found.LastDonationDate)
	s.Equal(*d.LastDonationDate, *found.LastDonationDate)
	s.True(d.CreatedAt.Equal(found.CreatedAt))

	found.LastDonationDate = nil
	found.Email = "changed@example.com"
	s.Require().NoError(s.store.Update(ctx, found))

	byEmail, err := s.store.FindByEmail(ctx, "CHANGED@example.com")
	s.Require().NoError(err)
	s.Nil(byEmail.LastDonationDate)

	s.Require().NoError(s.store.Delete(ctx, d.ID))
	_, err = s.store.FindByID(ctx, d.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, d.ID), sentinel.ErrNotFound)
}

func (s *PostgresDonorStoreSuite) TestListAndCounts() {
	ctx := context.Background()
	for _, n := range []int{3, 1, 2} {
		bt := id.BloodTypeOPos
		if n == 2 {
			bt = id.BloodTypeBNeg
		}
		s.Require().NoError(s.store.Create(ctx, s.makeDonor(n, bt)))
	}

	page, total, err := s.store.List(ctx, donormodels.ListQuery{Owner: &s.owner, Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(3, total)
	s.Require().Len(page, 2)
	s.Equal("donor2@example.com", page[0].Email)
	s.Equal("donor3@example.com", page[1].Email)

	bt := id.BloodTypeBNeg
	_, total, err = s.store.List(ctx, donormodels.ListQuery{BloodType: &bt})
	s.Require().NoError(err)
	s.Equal(1, total)

	n, err := s.store.CountByOwner(ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(3, n)

	bt = id.BloodTypeAPos
	_, total, err = s.store.List(ctx, donormodels.ListQuery{BloodType: &bt})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *PostgresDonorStoreSuite) TestConcurrentDuplicateEmail() {
	ctx := context.Background()
	const workers = 10
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			d := s.makeDonor(n, id.BloodTypeAPos)
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
