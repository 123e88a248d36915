package dto

import "time"

type CreateColumnRequest struct {
	Title    string `json:"title" validate:"required,max=100"`
	Color    string `json:"color" validate:"omitempty,hexcolor"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

type UpdateColumnRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=100"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type ReorderColumnsRequest struct {
	ColumnIDs []string `json:"column_ids" validate:"required,min=1,dive,uuid"`
}

type CreateLeadRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"omitempty,email"`
	Phone       string  `json:"phone" validate:"max=40"`
	Company     string  `json:"company" validate:"max=200"`
	Source      string  `json:"source" validate:"max=100"`
	Notes       string  `json:"notes" validate:"max=10000"`
	Value       float64 `json:"value" validate:"gte=0"`
	ColumnID    *string `json:"column_id" validate:"omitempty,uuid"`
	AttendantID *string `json:"attendant_id" validate:"omitempty,uuid"`
}

type UpdateLeadRequest struct {
	Name    *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Email   *string  `json:"email" validate:"omitempty,email"`
	Phone   *string  `json:"phone" validate:"omitempty,max=40"`
	Company *string  `json:"company" validate:"omitempty,max=200"`
	Source  *string  `json:"source" validate:"omitempty,max=100"`
	Notes   *string  `json:"notes" validate:"omitempty,max=10000"`
	Value   *float64 `json:"value" validate:"omitempty,gte=0"`
}

type MoveLeadRequest struct {
	ColumnID string `json:"column_id" validate:"required,uuid"`
	Position *int   `json:"position" validate:"omitempty,gte=0"`
}

// AssignLeadRequest assigns the lead, or unassigns it when AttendantID is
// null.
type AssignLeadRequest struct {
	AttendantID *string `json:"attendant_id" validate:"omitempty,uuid"`
}

type ReorderItem struct {
	LeadID   string `json:"lead_id" validate:"required,uuid"`
	ColumnID string `json:"column_id" validate:"omitempty,uuid"`
	Position int    `json:"position" validate:"gte=0"`
}

type ReorderLeadsRequest struct {
	Items []ReorderItem `json:"items" validate:"required,min=1,dive"`
}

type AttendanceRequest struct {
	Type        string     `json:"type" validate:"required,oneof=call email meeting whatsapp note visit"`
	Subject     string     `json:"subject" validate:"max=200"`
	Description string     `json:"description" validate:"max=10000"`
	Status      string     `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Outcome     string     `json:"outcome" validate:"max=2000"`
	NextAction  string     `json:"next_action" validate:"max=2000"`
	Tags        []string   `json:"tags" validate:"max=20,dive,max=50"`
}

type UpdateAttendanceRequest struct {
	Subject     *string    `json:"subject" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Status      *string    `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Outcome     *string    `json:"outcome" validate:"omitempty,max=2000"`
	NextAction  *string    `json:"next_action" validate:"omitempty,max=2000"`
	Tags        []string   `json:"tags" validate:"omitempty,max=20,dive,max=50"`
}
