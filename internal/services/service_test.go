package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-backend/internal/config"
	"github.com/tasknest/tasknest-backend/internal/database"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database and migrates the full
// schema. The single-connection pool keeps every query on the same
// in-memory instance.
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

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: 168 * time.Hour,
	}
}

func createUser(t *testing.T, db *gorm.DB, email, userType string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	phone := "+15550001111"
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Phone:        &phone,
		UserType:     userType,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createGroup(t *testing.T, db *gorm.DB, admin *models.User, name string) *models.Group {
	t.Helper()

	svc := NewGroupService(db)
	group, err := svc.Create(admin, &dto.CreateGroupRequest{Name: name})
	require.NoError(t, err)
	return group
}

func addMember(t *testing.T, db *gorm.DB, admin *models.User, groupID uuid.UUID, user *models.User) {
	t.Helper()

	svc := NewGroupService(db)
	_, err := svc.AddMember(admin.ID, groupID, &dto.AddMemberRequest{Email: user.Email})
	require.NoError(t, err)
}

func createTask(t *testing.T, db *gorm.DB, creator *models.User, req *dto.CreateTaskRequest) *models.Task {
	t.Helper()

	if req.Title == "" {
		req.Title = "test task"
	}
	if req.StartTime.IsZero() {
		req.StartTime = time.Now().Add(time.Hour)
	}
	if req.EndTime.IsZero() {
		req.EndTime = req.StartTime.Add(time.Hour)
	}

	svc := NewTaskService(db)
	task, err := svc.Create(creator, req)
	require.NoError(t, err)
	return task
}
