package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
)

func TestCreateTaskValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)

	now := time.Now()

	_, err := svc.Create(user, &dto.CreateTaskRequest{
		Title: "bad range", StartTime: now, EndTime: now.Add(-time.Hour),
	})
	assert.ErrorIs(t, err, ErrBadTimeRange)

	_, err = svc.Create(user, &dto.CreateTaskRequest{
		Title: "bad priority", StartTime: now, EndTime: now.Add(time.Hour), Priority: "urgent",
	})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = svc.Create(user, &dto.CreateTaskRequest{
		Title: "   ", StartTime: now, EndTime: now.Add(time.Hour),
	})
	assert.Error(t, err)

	task, err := svc.Create(user, &dto.CreateTaskRequest{
		Title: "ok", StartTime: now, EndTime: now.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, models.TaskPriorityMedium, task.Priority)
	assert.Equal(t, user.ID, task.AssignedTo)
}

func TestCreateTaskAssignmentRules(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeGroupAdmin)
	member := createUser(t, db, "member@example.com", models.UserTypeIndividual)
	other := createUser(t, db, "other@example.com", models.UserTypeIndividual)
	outsider := createUser(t, db, "outsider@example.com", models.UserTypeIndividual)
	group := createGroup(t, db, admin, "team")
	addMember(t, db, admin, group.ID, member)
	addMember(t, db, admin, group.ID, other)

	now := time.Now()

	// Without a group, assigning to someone else is not possible.
	_, err := svc.Create(member, &dto.CreateTaskRequest{
		Title: "t", StartTime: now, EndTime: now.Add(time.Hour), AssignedTo: &other.ID,
	})
	assert.ErrorIs(t, err, ErrCannotReassign)

	// A plain member cannot assign to another member either.
	_, err = svc.Create(member, &dto.CreateTaskRequest{
		Title: "t", StartTime: now, EndTime: now.Add(time.Hour),
		AssignedTo: &other.ID, GroupID: &group.ID,
	})
	assert.ErrorIs(t, err, ErrCannotReassign)

	// The group admin can, but only to group members.
	_, err = svc.Create(admin, &dto.CreateTaskRequest{
		Title: "t", StartTime: now, EndTime: now.Add(time.Hour),
		AssignedTo: &outsider.ID, GroupID: &group.ID,
	})
	assert.ErrorIs(t, err, ErrNotGroupMember)

	task, err := svc.Create(admin, &dto.CreateTaskRequest{
		Title: "t", StartTime: now, EndTime: now.Add(time.Hour),
		AssignedTo: &member.ID, GroupID: &group.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, member.ID, task.AssignedTo)
}

func TestTaskLifecycleAuditTrail(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)
	task := createTask(t, db, user, &dto.CreateTaskRequest{Title: "lifecycle"})

	_, err := svc.UpdateStatus(user.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusInProgress})
	require.NoError(t, err)

	done, err := svc.UpdateStatus(user.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, done.Status)

	updates, err := svc.ListUpdates(user.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, updates, 3)

	// Seed row, then one row per transition, oldest first.
	assert.Nil(t, updates[0].OldStatus)
	require.NotNil(t, updates[0].NewStatus)
	assert.Equal(t, models.TaskStatusPending, *updates[0].NewStatus)

	assert.Equal(t, models.TaskStatusPending, *updates[1].OldStatus)
	assert.Equal(t, models.TaskStatusInProgress, *updates[1].NewStatus)
	assert.Equal(t, "Status changed from pending to in_progress", updates[1].Notes)

	assert.Equal(t, models.TaskStatusInProgress, *updates[2].OldStatus)
	assert.Equal(t, models.TaskStatusCompleted, *updates[2].NewStatus)
}

func TestUpdateStatusNoOpSkipsAudit(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)
	task := createTask(t, db, user, &dto.CreateTaskRequest{Title: "noop"})

	_, err := svc.UpdateStatus(user.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusPending})
	require.NoError(t, err)

	updates, err := svc.ListUpdates(user.ID, task.ID)
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestUpdateTaskPatch(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)

	start := time.Now().Add(time.Hour).Truncate(time.Second)
	end := start.Add(2 * time.Hour)
	task := createTask(t, db, user, &dto.CreateTaskRequest{Title: "original", StartTime: start, EndTime: end})

	// A violating time patch is rejected and the stored times survive.
	badEnd := start.Add(-time.Minute)
	_, err := svc.Update(user.ID, task.ID, &dto.UpdateTaskRequest{EndTime: &badEnd})
	assert.ErrorIs(t, err, ErrBadTimeRange)

	stored, err := svc.Get(user.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, stored.EndTime.Equal(end))

	updated, err := svc.Update(user.ID, task.ID, &dto.UpdateTaskRequest{
		Title:    strPtr("renamed"),
		Priority: strPtr(models.TaskPriorityHigh),
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, models.TaskPriorityHigh, updated.Priority)

	updates, err := svc.ListUpdates(user.ID, task.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	// Field edits keep the status pair equal and describe the change.
	assert.Equal(t, *updates[1].OldStatus, *updates[1].NewStatus)
	assert.Contains(t, updates[1].Notes, "title: original → renamed")
	assert.Contains(t, updates[1].Notes, "priority: medium → high")

	// A patch that changes nothing appends no audit row.
	_, err = svc.Update(user.ID, task.ID, &dto.UpdateTaskRequest{Title: strPtr("renamed")})
	require.NoError(t, err)
	updates, err = svc.ListUpdates(user.ID, task.ID)
	require.NoError(t, err)
	assert.Len(t, updates, 2)
}

func TestTaskAccessForbiddenVsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	creator := createUser(t, db, "creator@example.com", models.UserTypeIndividual)
	outsider := createUser(t, db, "outsider@example.com", models.UserTypeIndividual)
	task := createTask(t, db, creator, &dto.CreateTaskRequest{Title: "private"})

	_, err := svc.UpdateStatus(creator.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusCompleted})
	require.NoError(t, err)

	// An outsider cannot see or mutate the task; the status is untouched.
	_, err = svc.UpdateStatus(outsider.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusPending})
	assert.ErrorIs(t, err, authz.ErrForbidden)

	stored, err := svc.Get(creator.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, stored.Status)

	_, err = svc.Get(outsider.ID, task.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestAssigneeCannotReassignOrDelete(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeGroupAdmin)
	member := createUser(t, db, "member@example.com", models.UserTypeIndividual)
	other := createUser(t, db, "other@example.com", models.UserTypeIndividual)
	group := createGroup(t, db, admin, "team")
	addMember(t, db, admin, group.ID, member)
	addMember(t, db, admin, group.ID, other)

	task := createTask(t, db, admin, &dto.CreateTaskRequest{
		Title: "assigned", AssignedTo: &member.ID, GroupID: &group.ID,
	})

	// The assignee may move the status along.
	_, err := svc.UpdateStatus(member.ID, task.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusInProgress})
	require.NoError(t, err)

	// But cannot hand the task to someone else or delete it.
	_, err = svc.Update(member.ID, task.ID, &dto.UpdateTaskRequest{AssignedTo: &other.ID})
	assert.ErrorIs(t, err, ErrCannotReassign)

	err = svc.Delete(member.ID, task.ID)
	assert.ErrorIs(t, err, ErrCannotDelete)

	// The group admin can do both.
	_, err = svc.Update(admin.ID, task.ID, &dto.UpdateTaskRequest{AssignedTo: &other.ID})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(admin.ID, task.ID))
}

func TestDeleteTaskWritesTerminalAuditRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)
	task := createTask(t, db, user, &dto.CreateTaskRequest{Title: "doomed"})

	require.NoError(t, svc.Delete(user.ID, task.ID))

	_, err := svc.Get(user.ID, task.ID)
	assert.ErrorIs(t, err, authz.ErrTaskNotFound)

	// The trail survives the soft delete, ending in the terminal row.
	var updates []models.TaskUpdate
	require.NoError(t, db.Where("task_id = ?", task.ID).Order("created_at ASC").Find(&updates).Error)
	require.Len(t, updates, 2)
	last := updates[len(updates)-1]
	assert.Nil(t, last.NewStatus)
	require.NotNil(t, last.OldStatus)
	assert.Equal(t, models.TaskStatusPending, *last.OldStatus)
	assert.Equal(t, "Task deleted", last.Notes)
}

func TestGroupAdminAccessEndsWithGroup(t *testing.T) {
	db := newTestDB(t)
	taskSvc := NewTaskService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeGroupAdmin)
	member := createUser(t, db, "member@example.com", models.UserTypeIndividual)
	group := createGroup(t, db, admin, "team")
	addMember(t, db, admin, group.ID, member)

	task := createTask(t, db, member, &dto.CreateTaskRequest{Title: "grouped", GroupID: &group.ID})

	// The admin reads through the group edge.
	_, err := taskSvc.Get(admin.ID, task.ID)
	require.NoError(t, err)

	// Once the group goes inactive the admin edge stops granting
	// access; direct creator access survives.
	require.NoError(t, db.Model(&models.Group{}).Where("id = ?", group.ID).Update("is_active", false).Error)

	_, err = taskSvc.Get(admin.ID, task.ID)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = taskSvc.Get(member.ID, task.ID)
	require.NoError(t, err)
}

func TestTaskListVisibilityAndFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	admin := createUser(t, db, "admin@example.com", models.UserTypeGroupAdmin)
	member := createUser(t, db, "member@example.com", models.UserTypeIndividual)
	group := createGroup(t, db, admin, "team")
	addMember(t, db, admin, group.ID, member)

	createTask(t, db, member, &dto.CreateTaskRequest{Title: "mine", Priority: models.TaskPriorityHigh})
	grouped := createTask(t, db, member, &dto.CreateTaskRequest{Title: "grouped", GroupID: &group.ID})

	// The admin sees the member's grouped task but not the private one.
	tasks, total, err := svc.List(admin.ID, &dto.TaskListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, grouped.ID, tasks[0].ID)

	// The member sees both; priority filter narrows it down.
	_, total, err = svc.List(member.ID, &dto.TaskListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	tasks, total, err = svc.List(member.ID, &dto.TaskListFilter{Priority: models.TaskPriorityHigh})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "mine", tasks[0].Title)
}

func TestSweepOverdue(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(db)
	user := createUser(t, db, "user@example.com", models.UserTypeIndividual)

	past := time.Now().Add(-2 * time.Hour)

	latePending := createTask(t, db, user, &dto.CreateTaskRequest{
		Title: "late pending", StartTime: past, EndTime: past.Add(time.Hour),
	})
	lateStarted := createTask(t, db, user, &dto.CreateTaskRequest{
		Title: "late started", StartTime: past, EndTime: past.Add(time.Hour),
	})
	lateDone := createTask(t, db, user, &dto.CreateTaskRequest{
		Title: "late done", StartTime: past, EndTime: past.Add(time.Hour),
	})
	future := createTask(t, db, user, &dto.CreateTaskRequest{Title: "future"})

	_, err := svc.UpdateStatus(user.ID, lateStarted.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusInProgress})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(user.ID, lateDone.ID, &dto.UpdateStatusRequest{Status: models.TaskStatusCompleted})
	require.NoError(t, err)

	swept, err := svc.SweepOverdue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	for _, id := range []struct {
		taskID uuid.UUID
		status string
	}{
		{latePending.ID, models.TaskStatusOverdue},
		{lateStarted.ID, models.TaskStatusOverdue},
		{lateDone.ID, models.TaskStatusCompleted},
		{future.ID, models.TaskStatusPending},
	} {
		stored, err := svc.Get(user.ID, id.taskID)
		require.NoError(t, err)
		assert.Equal(t, id.status, stored.Status)
	}

	// Each transition is recorded on the trail.
	updates, err := svc.ListUpdates(user.ID, latePending.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, models.TaskStatusPending, *updates[1].OldStatus)
	assert.Equal(t, models.TaskStatusOverdue, *updates[1].NewStatus)

	// A second sweep finds nothing.
	swept, err = svc.SweepOverdue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, swept)
}
