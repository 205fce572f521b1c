package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-backend/internal/authz"
	"github.com/tasknest/tasknest-backend/internal/dto"
	"github.com/tasknest/tasknest-backend/internal/models"
	"github.com/tasknest/tasknest-backend/internal/scopes"
	"gorm.io/gorm"
)

var (
	ErrBadTimeRange     = errors.New("end_time must be after start_time")
	ErrInvalidPriority  = errors.New("priority must be low, medium or high")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrAssigneeNotFound = errors.New("assignee not found or deactivated")
	ErrNotGroupMember   = errors.New("user is not a member of the task's group")
	ErrCannotReassign   = errors.New("only the creator or group admin can reassign a task")
	ErrCannotSetStatus  = errors.New("you are not allowed to change this task's status")
	ErrCannotDelete     = errors.New("only the creator or group admin can delete a task")
)

// Whitelisted sort columns for task listing.
var taskSortFields = map[string]bool{
	"created_at": true,
	"start_time": true,
	"end_time":   true,
	"priority":   true,
	"status":     true,
	"title":      true,
}

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

// Create validates times and group membership, then persists the task
// together with its seed audit row (old=nil, new=pending) atomically.
func (s *TaskService) Create(creator *models.User, req *dto.CreateTaskRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.New("title is required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, ErrBadTimeRange
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskPriority(priority) {
		return nil, ErrInvalidPriority
	}

	assigneeID := creator.ID
	if req.AssignedTo != nil {
		assigneeID = *req.AssignedTo
	}

	if assigneeID != creator.ID {
		var assignee models.User
		if err := s.db.Scopes(scopes.Active).First(&assignee, "id = ?", assigneeID).Error; err != nil {
			return nil, ErrAssigneeNotFound
		}
	}

	if req.GroupID != nil {
		grant, err := authz.GroupAccess(s.db, creator.ID, *req.GroupID)
		if err != nil {
			return nil, err
		}
		if assigneeID != creator.ID {
			// Assigning to someone else inside a group is an admin action.
			if !grant.IsAdmin {
				return nil, ErrCannotReassign
			}
			member, err := authz.IsGroupMember(s.db, *req.GroupID, assigneeID)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, ErrNotGroupMember
			}
		}
	} else if assigneeID != creator.ID {
		// Without a group there is no membership to check, but assigning
		// to someone else still requires a shared group with that user.
		return nil, ErrCannotReassign
	}

	task := models.Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Priority:    priority,
		Status:      models.TaskStatusPending,
		CreatedBy:   creator.ID,
		AssignedTo:  assigneeID,
		GroupID:     req.GroupID,
		IsActive:    true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		seed := models.TaskUpdate{
			ID:        uuid.New(),
			TaskID:    task.ID,
			UpdatedBy: creator.ID,
			OldStatus: nil,
			NewStatus: strPtr(models.TaskStatusPending),
			Notes:     "Task created",
		}
		return tx.Create(&seed).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return &task, nil
}

func (s *TaskService) Get(userID, taskID uuid.UUID) (*models.Task, error) {
	return authz.TaskAccess(s.db, userID, taskID)
}

// List returns tasks visible to the user: created by them, assigned to
// them, or in an active group they administer.
func (s *TaskService) List(userID uuid.UUID, filter *dto.TaskListFilter) ([]models.Task, int64, error) {
	page, limit := dto.NormalizePage(filter.Page, filter.Limit)

	adminGroups := s.db.Model(&models.Group{}).Select("id").
		Where("admin_id = ? AND is_active = ?", userID, true)

	apply := func(q *gorm.DB) *gorm.DB {
		q = q.Scopes(scopes.Active).
			Where("created_by = ? OR assigned_to = ? OR group_id IN (?)", userID, userID, adminGroups)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		if filter.StartDate != nil {
			q = q.Where("start_time >= ?", *filter.StartDate)
		}
		if filter.EndDate != nil {
			q = q.Where("end_time <= ?", *filter.EndDate)
		}
		if filter.AssignedTo != nil {
			q = q.Where("assigned_to = ?", *filter.AssignedTo)
		}
		if filter.GroupID != nil {
			q = q.Where("group_id = ?", *filter.GroupID)
		}
		return q
	}

	var total int64
	if err := apply(s.db.Model(&models.Task{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if !taskSortFields[sortBy] {
		sortBy = "created_at"
	}
	order := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		order = "ASC"
	}

	var tasks []models.Task
	err := apply(s.db.Model(&models.Task{})).
		Order(sortBy + " " + order).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&tasks).Error
	return tasks, total, err
}

// Update applies a partial patch and appends one audit row summarizing
// every changed field. Reassignment needs creator/group-admin privilege
// and, for grouped tasks, membership of the new assignee.
func (s *TaskService) Update(userID uuid.UUID, taskID uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error) {
	task, err := authz.TaskAccess(s.db, userID, taskID)
	if err != nil {
		return nil, err
	}

	var changes []string

	if req.Title != nil && *req.Title != task.Title {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, errors.New("title is required")
		}
		changes = append(changes, fmt.Sprintf("title: %s → %s", task.Title, *req.Title))
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil && *req.Description != task.Description {
		changes = append(changes, "description updated")
		task.Description = *req.Description
	}

	start, end := task.StartTime, task.EndTime
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	// A violating update leaves the stored times untouched.
	if !end.After(start) {
		return nil, ErrBadTimeRange
	}
	if req.StartTime != nil && !start.Equal(task.StartTime) {
		changes = append(changes, fmt.Sprintf("start_time: %s → %s",
			task.StartTime.Format(time.RFC3339), start.Format(time.RFC3339)))
		task.StartTime = start
	}
	if req.EndTime != nil && !end.Equal(task.EndTime) {
		changes = append(changes, fmt.Sprintf("end_time: %s → %s",
			task.EndTime.Format(time.RFC3339), end.Format(time.RFC3339)))
		task.EndTime = end
	}

	if req.Priority != nil && *req.Priority != task.Priority {
		if !models.ValidTaskPriority(*req.Priority) {
			return nil, ErrInvalidPriority
		}
		changes = append(changes, fmt.Sprintf("priority: %s → %s", task.Priority, *req.Priority))
		task.Priority = *req.Priority
	}

	if req.AssignedTo != nil && *req.AssignedTo != task.AssignedTo {
		grant, err := authz.TaskMutation(s.db, userID, task)
		if err != nil {
			return nil, err
		}
		if !grant.CanReassign {
			return nil, ErrCannotReassign
		}

		var assignee models.User
		if err := s.db.Scopes(scopes.Active).First(&assignee, "id = ?", *req.AssignedTo).Error; err != nil {
			return nil, ErrAssigneeNotFound
		}
		if task.GroupID != nil {
			member, err := authz.IsGroupMember(s.db, *task.GroupID, *req.AssignedTo)
			if err != nil {
				return nil, err
			}
			if !member {
				return nil, ErrNotGroupMember
			}
		}
		changes = append(changes, fmt.Sprintf("assigned_to: %s → %s", task.AssignedTo, *req.AssignedTo))
		task.AssignedTo = *req.AssignedTo
	}

	if len(changes) == 0 {
		return task, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		audit := models.TaskUpdate{
			ID:        uuid.New(),
			TaskID:    task.ID,
			UpdatedBy: userID,
			OldStatus: strPtr(task.Status),
			NewStatus: strPtr(task.Status),
			Notes:     strings.Join(changes, ", "),
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// UpdateStatus transitions the task and appends the audit row. No
// other field changes.
func (s *TaskService) UpdateStatus(userID uuid.UUID, taskID uuid.UUID, req *dto.UpdateStatusRequest) (*models.Task, error) {
	if !models.ValidTaskStatus(req.Status) {
		return nil, ErrInvalidStatus
	}

	task, err := authz.TaskAccess(s.db, userID, taskID)
	if err != nil {
		return nil, err
	}

	grant, err := authz.TaskMutation(s.db, userID, task)
	if err != nil {
		return nil, err
	}
	if !grant.CanChangeStatus {
		return nil, ErrCannotSetStatus
	}

	oldStatus := task.Status
	if oldStatus == req.Status {
		return task, nil
	}

	notes := req.Notes
	if notes == "" {
		notes = fmt.Sprintf("Status changed from %s to %s", oldStatus, req.Status)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Update("status", req.Status).Error; err != nil {
			return err
		}
		audit := models.TaskUpdate{
			ID:        uuid.New(),
			TaskID:    task.ID,
			UpdatedBy: userID,
			OldStatus: strPtr(oldStatus),
			NewStatus: strPtr(req.Status),
			Notes:     notes,
		}
		return tx.Create(&audit).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	task.Status = req.Status
	return task, nil
}

// Delete soft-deletes the task and appends the terminal audit row
// (new_status=nil). Creator or group admin only; the assignee alone
// cannot delete.
func (s *TaskService) Delete(userID, taskID uuid.UUID) error {
	task, err := authz.TaskAccess(s.db, userID, taskID)
	if err != nil {
		return err
	}

	grant, err := authz.TaskMutation(s.db, userID, task)
	if err != nil {
		return err
	}
	if task.CreatedBy != userID && !grant.IsGroupAdmin {
		return ErrCannotDelete
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(task).Update("is_active", false).Error; err != nil {
			return err
		}
		audit := models.TaskUpdate{
			ID:        uuid.New(),
			TaskID:    task.ID,
			UpdatedBy: userID,
			OldStatus: strPtr(task.Status),
			NewStatus: nil,
			Notes:     "Task deleted",
		}
		return tx.Create(&audit).Error
	})
}

// ListUpdates returns the audit trail oldest first, so replaying it
// reconstructs the task's current status.
func (s *TaskService) ListUpdates(userID, taskID uuid.UUID) ([]models.TaskUpdate, error) {
	if _, err := authz.TaskAccess(s.db, userID, taskID); err != nil {
		return nil, err
	}

	var updates []models.TaskUpdate
	err := s.db.Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&updates).Error
	return updates, err
}

// SweepOverdue is the lazy overdue transition: every active
// pending/in_progress task whose end_time has passed moves to overdue
// with an audit row. Idempotent and safe to invoke repeatedly; meant to
// be driven by an external scheduler or the optional in-process ticker.
// Each transition is attributed to the task's creator.
func (s *TaskService) SweepOverdue(now time.Time) (int, error) {
	var candidates []models.Task
	err := s.db.Scopes(scopes.Active).
		Where("status IN ? AND end_time < ?",
			[]string{models.TaskStatusPending, models.TaskStatusInProgress}, now).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	swept := 0
	for i := range candidates {
		task := &candidates[i]
		oldStatus := task.Status

		err := s.db.Transaction(func(tx *gorm.DB) error {
			// Guard against a racing completion between the scan and this write.
			result := tx.Model(&models.Task{}).
				Where("id = ? AND status = ? AND is_active = ?", task.ID, oldStatus, true).
				Update("status", models.TaskStatusOverdue)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return nil
			}
			audit := models.TaskUpdate{
				ID:        uuid.New(),
				TaskID:    task.ID,
				UpdatedBy: task.CreatedBy,
				OldStatus: strPtr(oldStatus),
				NewStatus: strPtr(models.TaskStatusOverdue),
				Notes:     fmt.Sprintf("Status changed from %s to %s", oldStatus, models.TaskStatusOverdue),
			}
			if err := tx.Create(&audit).Error; err != nil {
				return err
			}
			swept++
			return nil
		})
		if err != nil {
			slog.Error("overdue sweep failed for task", "task_id", task.ID, "error", err)
		}
	}

	return swept, nil
}

// StartSweep runs SweepOverdue on a fixed interval until done is closed.
func StartSweep(svc *TaskService, interval time.Duration, done chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := svc.SweepOverdue(time.Now().UTC()); err != nil {
					slog.Error("overdue sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("overdue sweep completed", "swept", n)
				}
			case <-done:
				return
			}
		}
	}()
}

func strPtr(s string) *string {
	return &s
}
