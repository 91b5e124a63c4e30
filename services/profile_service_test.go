package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurowell/neurowell/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestOnboard_MergesAndKeepsStreak(t *testing.T) {
	db := testutil.NewDB(t)
	now := t0
	last := t0.Add(-time.Hour)
	user := testutil.CreateUser(t, db, "o@example.com", 4, &last)
	svc := NewProfileService(db, testutil.FixedClock(&now))
	ctx := context.Background()

	done, err := svc.OnboardingCompleted(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, done)

	got, err := svc.Onboard(ctx, user.ID, OnboardingInput{
		Name:               ptr("  Grace <em>H</em> "),
		Age:                ptr(31),
		Occupation:         ptr("engineer"),
		HasMentalIssue:     ptr(true),
		MentalIssueDetails: ptr("mild anxiety"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grace H", got.Name)
	require.NotNil(t, got.Age)
	assert.Equal(t, 31, *got.Age)
	assert.True(t, got.OnboardingDone)
	require.NotNil(t, got.MentalIssueDetails)
	assert.Equal(t, "mild anxiety", *got.MentalIssueDetails)

	// streak fields are untouched by onboarding
	stored := reload(t, db, user.ID)
	assert.Equal(t, 4, stored.Streaks)
	require.NotNil(t, stored.LastCheckIn)
	assert.True(t, last.Equal(*stored.LastCheckIn))

	// a second submission merges; omitted fields survive
	got, err = svc.Onboard(ctx, user.ID, OnboardingInput{Workspace: ptr("remote"), HasMentalIssue: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Grace H", got.Name)
	assert.Equal(t, "engineer", got.Occupation)
	assert.Equal(t, "remote", got.Workspace)
	assert.Nil(t, got.MentalIssueDetails)
	assert.True(t, got.OnboardingDone)
}

func TestOnboard_UnknownUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewProfileService(db, nil)

	_, err := svc.Onboard(context.Background(), "missing", OnboardingInput{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.OnboardingCompleted(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
