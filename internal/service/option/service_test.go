package option

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/internal/model"
	"github.com/jwalitptl/opd-desk/internal/repository/repotest"
	apperrors "github.com/jwalitptl/opd-desk/pkg/errors"
	"github.com/jwalitptl/opd-desk/pkg/messaging"
	redisbroker "github.com/jwalitptl/opd-desk/pkg/messaging/redis"
	"github.com/jwalitptl/opd-desk/pkg/metrics"
)

func intPtr(i int) *int    { return &i }
func boolPtr(b bool) *bool { return &b }

func statusOf(t *testing.T, err error) int {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.StatusCode()
}

func TestCreate_ClampsDisplayOrder(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Options(), nil, Config{}, metrics.NewTestMetrics())
	ctx := context.Background()
	clinicID := uuid.New()

	low, err := svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Fever", DisplayOrder: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 1, low.DisplayOrder)
	assert.True(t, low.IsActive)

	high, err := svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Cough", DisplayOrder: intPtr(1000)})
	require.NoError(t, err)
	assert.Equal(t, 999, high.DisplayOrder)

	unset, err := svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Cold"})
	require.NoError(t, err)
	assert.Equal(t, 1, unset.DisplayOrder)
}

func TestCreate_Rules(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Options(), nil, Config{}, nil)
	ctx := context.Background()
	clinicID := uuid.New()

	_, err := svc.Create(ctx, clinicID, model.CategoryDiagnosis, &model.OptionInput{Name: "   "})
	assert.Equal(t, 400, statusOf(t, err))

	_, err = svc.Create(ctx, clinicID, model.CategoryDiagnosis, &model.OptionInput{Name: "Migraine"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, clinicID, model.CategoryDiagnosis, &model.OptionInput{Name: "migraine"})
	assert.Equal(t, 409, statusOf(t, err))

	_, err = svc.Create(ctx, clinicID, model.OptionCategory("billing"), &model.OptionInput{Name: "X"})
	assert.Equal(t, 404, statusOf(t, err))
}

func TestList_CachedAndInvalidated(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Options(), nil, Config{CacheTTL: time.Minute}, nil)
	ctx := context.Background()
	clinicID := uuid.New()

	fever, err := svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Fever", DisplayOrder: intPtr(2)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Cough", DisplayOrder: intPtr(1)})
	require.NoError(t, err)

	all, err := svc.List(ctx, clinicID, model.CategorySymptom, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cough", "Fever"}, model.OptionNames(all))

	// A write that bypasses the service is not visible until invalidation.
	require.NoError(t, store.Options().Delete(ctx, clinicID, model.CategorySymptom, fever.ID))
	cached, err := svc.List(ctx, clinicID, model.CategorySymptom, false)
	require.NoError(t, err)
	assert.Len(t, cached, 2)

	_, err = svc.Create(ctx, clinicID, model.CategorySymptom, &model.OptionInput{Name: "Cold", IsActive: boolPtr(false)})
	require.NoError(t, err)

	fresh, err := svc.List(ctx, clinicID, model.CategorySymptom, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cold", "Cough"}, model.OptionNames(fresh))

	active, err := svc.List(ctx, clinicID, model.CategorySymptom, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cough"}, model.OptionNames(active))
}

func TestUpdate_ToggleAndDelete(t *testing.T) {
	store := repotest.NewStore()
	svc := NewService(store.Options(), nil, Config{}, nil)
	ctx := context.Background()
	clinicID := uuid.New()

	opt, err := svc.Create(ctx, clinicID, model.CategoryTest, &model.OptionInput{Name: "CBC"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, clinicID, model.CategoryTest, opt.ID, &model.OptionInput{Name: "CBC", IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	require.NoError(t, svc.Delete(ctx, clinicID, model.CategoryTest, opt.ID))
	err = svc.Delete(ctx, clinicID, model.CategoryTest, opt.ID)
	assert.Equal(t, 404, statusOf(t, err))
}

func TestInvalidation_AcrossReplicasOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	newBroker := func() messaging.Broker {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return redisbroker.NewFromClient(client, zerolog.Nop())
	}

	store := repotest.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	replicaA := NewService(store.Options(), newBroker(), Config{}, nil)
	replicaB := NewService(store.Options(), newBroker(), Config{}, nil)
	require.NoError(t, replicaB.Start(ctx))

	clinicID := uuid.New()
	_, err := replicaA.Create(ctx, clinicID, model.CategoryMedicine, &model.OptionInput{Name: "Paracetamol"})
	require.NoError(t, err)

	// B caches the list, then A adds another entry and publishes.
	list, err := replicaB.List(ctx, clinicID, model.CategoryMedicine, true)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = replicaA.Create(ctx, clinicID, model.CategoryMedicine, &model.OptionInput{Name: "Ibuprofen"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		list, err := replicaB.List(ctx, clinicID, model.CategoryMedicine, true)
		return err == nil && len(list) == 2
	}, 2*time.Second, 20*time.Millisecond)
}
