package model

import "time"

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         *string
	Image        *string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the profile's full name, or the email when there is none.
func (u User) DisplayName(p *Profile) string {
	if p != nil && p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	return u.Email
}

type Profile struct {
	ID        string    `json:"id"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RefreshSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent *string
	IPAddress *string
}

type TeacherDetails struct {
	ID             string    `json:"id"`
	TeacherID      string    `json:"teacher_id"`
	ICNumber       string    `json:"ic_number"`
	DateOfBirth    *string   `json:"date_of_birth"`
	HomeAddress    string    `json:"home_address"`
	MaritalStatus  string    `json:"marital_status"`
	SpouseName     *string   `json:"spouse_name"`
	SpouseICNumber *string   `json:"spouse_ic_number"`
	SpousePhone    *string   `json:"spouse_phone"`
	JoinDate       string    `json:"join_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type LeaveRequest struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	ApprovedBy *string   `json:"approved_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
