package seeding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-testhelpers"
)

func TestSeedAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := testhelpers.NewMemStore()

	require.NoError(t, SeedAll(ctx, st.Profiles, st.Properties))
	require.NoError(t, SeedAll(ctx, st.Profiles, st.Properties))

	owners, err := st.Profiles.ListByRole(ctx, models.RoleOwner)
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, uuid.MustParse(DefaultOwnerID), owners[0].ID)

	admins, err := st.Profiles.ListByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	for _, id := range DemoPropertyIDs {
		p, err := st.Properties.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, p, id.String())
		assert.Equal(t, owners[0].ID, p.OwnerID)
		assert.Equal(t, int64(1), p.RowVersion)
	}

	available, total, err := st.Properties.Search(ctx, models.PropertyFilters{
		Statuses: []models.PropertyStatus{models.PropertyStatusAvailable},
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, available, 2)
}
