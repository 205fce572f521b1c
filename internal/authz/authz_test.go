package authz

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-backend/internal/database"
	"github.com/tasknest/tasknest-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
		UserType:     models.UserTypeIndividual,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func seedGroup(t *testing.T, db *gorm.DB, admin *models.User) *models.Group {
	t.Helper()
	group := models.Group{
		ID:       uuid.New(),
		Name:     "team",
		AdminID:  admin.ID,
		IsActive: true,
	}
	require.NoError(t, db.Create(&group).Error)
	edge := models.GroupMember{
		ID:       uuid.New(),
		GroupID:  group.ID,
		UserID:   admin.ID,
		Role:     models.GroupRoleAdmin,
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(&edge).Error)
	return &group
}

func seedMember(t *testing.T, db *gorm.DB, group *models.Group, user *models.User) {
	t.Helper()
	edge := models.GroupMember{
		ID:       uuid.New(),
		GroupID:  group.ID,
		UserID:   user.ID,
		Role:     models.GroupRoleMember,
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(&edge).Error)
}

func seedTask(t *testing.T, db *gorm.DB, creator, assignee *models.User, groupID *uuid.UUID) *models.Task {
	t.Helper()
	now := time.Now()
	task := models.Task{
		ID:         uuid.New(),
		Title:      "task",
		StartTime:  now,
		EndTime:    now.Add(time.Hour),
		Priority:   models.TaskPriorityMedium,
		Status:     models.TaskStatusPending,
		CreatedBy:  creator.ID,
		AssignedTo: assignee.ID,
		GroupID:    groupID,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func TestGroupAccess(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	member := seedUser(t, db, "member@example.com")
	outsider := seedUser(t, db, "outsider@example.com")
	group := seedGroup(t, db, admin)
	seedMember(t, db, group, member)

	grant, err := GroupAccess(db, admin.ID, group.ID)
	require.NoError(t, err)
	assert.True(t, grant.IsAdmin)
	assert.Equal(t, models.GroupRoleAdmin, grant.Role)

	grant, err = GroupAccess(db, member.ID, group.ID)
	require.NoError(t, err)
	assert.False(t, grant.IsAdmin)
	assert.Equal(t, models.GroupRoleMember, grant.Role)

	_, err = GroupAccess(db, outsider.ID, group.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = GroupAccess(db, admin.ID, uuid.New())
	assert.ErrorIs(t, err, ErrGroupNotFound)

	// An inactive group reads as absent, even to its admin.
	require.NoError(t, db.Model(group).Update("is_active", false).Error)
	_, err = GroupAccess(db, admin.ID, group.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestTaskAccess(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	creator := seedUser(t, db, "creator@example.com")
	assignee := seedUser(t, db, "assignee@example.com")
	outsider := seedUser(t, db, "outsider@example.com")
	group := seedGroup(t, db, admin)
	seedMember(t, db, group, creator)
	seedMember(t, db, group, assignee)

	task := seedTask(t, db, creator, assignee, &group.ID)

	for _, id := range []uuid.UUID{creator.ID, assignee.ID, admin.ID} {
		_, err := TaskAccess(db, id, task.ID)
		require.NoError(t, err)
	}

	_, err := TaskAccess(db, outsider.ID, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = TaskAccess(db, creator.ID, uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)

	// The admin edge needs a live group; direct access does not.
	require.NoError(t, db.Model(group).Update("is_active", false).Error)
	_, err = TaskAccess(db, admin.ID, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = TaskAccess(db, creator.ID, task.ID)
	require.NoError(t, err)

	// A soft-deleted task reads as absent for everyone.
	require.NoError(t, db.Model(task).Update("is_active", false).Error)
	_, err = TaskAccess(db, creator.ID, task.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskMutation(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	creator := seedUser(t, db, "creator@example.com")
	assignee := seedUser(t, db, "assignee@example.com")
	group := seedGroup(t, db, admin)
	seedMember(t, db, group, creator)
	seedMember(t, db, group, assignee)

	task := seedTask(t, db, creator, assignee, &group.ID)

	grant, err := TaskMutation(db, creator.ID, task)
	require.NoError(t, err)
	assert.True(t, grant.CanChangeStatus)
	assert.True(t, grant.CanReassign)
	assert.False(t, grant.IsGroupAdmin)

	grant, err = TaskMutation(db, assignee.ID, task)
	require.NoError(t, err)
	assert.True(t, grant.CanChangeStatus)
	assert.False(t, grant.CanReassign)

	grant, err = TaskMutation(db, admin.ID, task)
	require.NoError(t, err)
	assert.True(t, grant.CanChangeStatus)
	assert.True(t, grant.CanReassign)
	assert.True(t, grant.IsGroupAdmin)

	// Admin privileges lapse with the group.
	require.NoError(t, db.Model(group).Update("is_active", false).Error)
	grant, err = TaskMutation(db, admin.ID, task)
	require.NoError(t, err)
	assert.False(t, grant.CanChangeStatus)
	assert.False(t, grant.IsGroupAdmin)
}

func TestIsGroupMember(t *testing.T) {
	db := newTestDB(t)
	admin := seedUser(t, db, "admin@example.com")
	member := seedUser(t, db, "member@example.com")
	outsider := seedUser(t, db, "outsider@example.com")
	group := seedGroup(t, db, admin)
	seedMember(t, db, group, member)

	// The admin is implicitly a member.
	ok, err := IsGroupMember(db, group.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsGroupMember(db, group.ID, member.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsGroupMember(db, group.ID, outsider.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IsGroupMember(db, uuid.New(), admin.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
}
