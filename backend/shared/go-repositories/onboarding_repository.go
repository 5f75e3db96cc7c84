package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
)

type OnboardingRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID, role models.UserRole) (*models.OnboardingState, error)
	Mutate(ctx context.Context, userID uuid.UUID, expected *int64, mutate MutateFunc[*models.OnboardingState]) (*models.OnboardingState, error)
}

type onboardingRepo struct {
	*BaseVersionedRepo[*models.OnboardingState]
	db DB
}

func NewOnboardingRepository(db DB) OnboardingRepository {
	r := &onboardingRepo{db: db}
	r.BaseVersionedRepo = NewBaseRepo(db, baseSelectOnboarding()+" WHERE user_id=$1", scanOnboarding)
	return r
}

func (r *onboardingRepo) GetOrCreate(ctx context.Context, userID uuid.UUID, role models.UserRole) (*models.OnboardingState, error) {
	_, err := r.db.Exec(ctx, `
        INSERT INTO onboarding_states (user_id, role, completed_steps, created_at, updated_at, row_version)
        VALUES ($1,$2,'{}', NOW(), NOW(), 1)
        ON CONFLICT (user_id) DO NOTHING
    `, userID, role)
	if err != nil {
		return nil, err
	}
	return r.BaseVersionedRepo.GetByID(ctx, userID.String())
}

func (r *onboardingRepo) Mutate(ctx context.Context, userID uuid.UUID, expected *int64, mutate MutateFunc[*models.OnboardingState]) (*models.OnboardingState, error) {
	return r.BaseVersionedRepo.Mutate(ctx, userID.String(), expected, mutate, updateOnboarding)
}

func updateOnboarding(ctx context.Context, q DB, o *models.OnboardingState, expected int64) (pgconn.CommandTag, error) {
	return q.Exec(ctx, `
        UPDATE onboarding_states SET
            role=$1, completed_steps=$2, completed_at=$3,
            updated_at=NOW(), row_version=row_version+1
        WHERE user_id=$4 AND row_version=$5
    `, o.Role, toStrings(o.CompletedSteps), o.CompletedAt, o.UserID, expected)
}

func baseSelectOnboarding() string {
	return `
        SELECT user_id, role, completed_steps, completed_at, created_at, updated_at, row_version
        FROM onboarding_states
    `
}

func scanOnboarding(row pgx.Row) (*models.OnboardingState, error) {
	var (
		o     models.OnboardingState
		steps []string
	)
	err := row.Scan(&o.UserID, &o.Role, &steps, &o.CompletedAt, &o.CreatedAt, &o.UpdatedAt, &o.RowVersion)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	o.CompletedSteps = make([]models.OnboardingStep, len(steps))
	for i, s := range steps {
		o.CompletedSteps[i] = models.OnboardingStep(s)
	}
	return &o, nil
}
