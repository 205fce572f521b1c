package dto

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

type UpdateSettingsRequest struct {
	WhatsAppNotifications *bool   `json:"whatsapp_notifications"`
	EmailNotifications    *bool   `json:"email_notifications"`
	SMSNotifications      *bool   `json:"sms_notifications"`
	ReminderFrequency     *int    `json:"reminder_frequency"`
	Timezone              *string `json:"timezone"`
}

// DashboardResponse aggregates the caller's task and group counts.
type DashboardResponse struct {
	TasksByStatus   map[string]int64 `json:"tasks_by_status"`
	TasksByPriority map[string]int64 `json:"tasks_by_priority"`
	OverdueCount    int64            `json:"overdue_count"`
	GroupsOwned     int64            `json:"groups_owned"`
	GroupsJoined    int64            `json:"groups_joined"`
}

type UserSearchResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination Pagination     `json:"pagination"`
}
