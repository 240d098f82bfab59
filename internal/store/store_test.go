package store_test

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/parleyhq/parley/internal/model"
	"github.com/parleyhq/parley/internal/store"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Organization{},
		&model.Profile{},
		&model.Conversation{},
		&model.Message{},
	))
	return db
}

func TestTenantCreate_StampsOrgID(t *testing.T) {
	db := openTestDB(t)
	tenant := store.NewTenant(db, "org-1")
	ctx := context.Background()

	c := &model.Conversation{UserID: "user-1", Title: "hello"}
	require.NoError(t, tenant.Create(ctx, c))
	assert.Equal(t, "org-1", c.OrgID)

	m := &model.Message{ConversationID: c.ID, Role: model.MessageRoleUser, Content: "hi"}
	require.NoError(t, tenant.Create(ctx, m))
	assert.Equal(t, "org-1", m.OrgID)
}

func TestTenantCreate_RejectsForeignModels(t *testing.T) {
	db := openTestDB(t)
	tenant := store.NewTenant(db, "org-1")

	err := tenant.Create(context.Background(), &model.Organization{Name: "Acme"})
	assert.ErrorIs(t, err, gorm.ErrInvalidData)
}

func TestTenantCreate_HonorsContextCancellation(t *testing.T) {
	db := openTestDB(t)
	tenant := store.NewTenant(db, "org-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := tenant.Create(ctx, &model.Conversation{UserID: "user-1", Title: "too late"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTenantQueries_ScopedToOrg(t *testing.T) {
	db := openTestDB(t)
	a := store.NewTenant(db, "org-a")
	b := store.NewTenant(db, "org-b")
	ctx := context.Background()

	require.NoError(t, a.Create(ctx, &model.Conversation{UserID: "user-1", Title: "in a"}))
	require.NoError(t, b.Create(ctx, &model.Conversation{UserID: "user-1", Title: "in b"}))

	var fromA []model.Conversation
	require.NoError(t, a.Conversations().Find(&fromA).Error)
	require.Len(t, fromA, 1)
	assert.Equal(t, "in a", fromA[0].Title)

	var fromB []model.Conversation
	require.NoError(t, b.Conversations().Find(&fromB).Error)
	require.Len(t, fromB, 1)
	assert.Equal(t, "in b", fromB[0].Title)
}

func TestPrivilegedForOrg(t *testing.T) {
	db := openTestDB(t)
	priv := store.NewPrivileged(db)

	tenant := priv.ForOrg("org-1")
	assert.Equal(t, "org-1", tenant.OrgID())
}
