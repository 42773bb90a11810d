package dto

import (
	"strings"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
)

// SignUpRequest represents a self-service account request
type SignUpRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Phone    string `json:"phone" binding:"omitempty,max=50"`
	UserType string `json:"user_type" binding:"omitempty,max=20"`
	Building string `json:"building" binding:"omitempty,max=50"`
	Flat     string `json:"flat" binding:"omitempty,max=50"`
	Floor    string `json:"floor" binding:"omitempty,max=20"`
}

// ToInput converts the request into service input
func (r *SignUpRequest) ToInput() service.SignUpInput {
	return service.SignUpInput{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Password: r.Password,
		UserType: r.UserType,
		Building: r.Building,
		Flat:     r.Flat,
		Floor:    r.Floor,
	}
}

// UpdateUserStatusRequest moves a user to another status. Force allows transitions outside the normal table.
type UpdateUserStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING APPROVED SUSPENDED REJECTED"`
	Force  bool   `json:"force"`
}

// UpdateUserRoleRequest assigns a role
type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=PUBLIC OWNER TENANT ADMIN"`
}

// ResetPasswordResponse carries the temporary password exactly once
type ResetPasswordResponse struct {
	TemporaryPassword string `json:"temporary_password"`
}

// ListUsersQuery represents query parameters for listing users
type ListUsersQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED SUSPENDED REJECTED"`
	Role   string `form:"role" binding:"omitempty,oneof=PUBLIC OWNER TENANT ADMIN"`
	Search string `form:"search" binding:"omitempty,max=255"`
}

// SetDefaults sets default values for query parameters
func (q *ListUsersQuery) SetDefaults() {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = 20
	}
}

// ToFilter converts the query into a repository filter
func (q *ListUsersQuery) ToFilter() domain.UserFilter {
	q.SetDefaults()
	return domain.UserFilter{
		Status: domain.UserStatus(q.Status),
		Role:   domain.Role(q.Role),
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: (q.Page - 1) * q.Limit,
	}
}

// ExportUsersQuery filters the user export
type ExportUsersQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING APPROVED SUSPENDED REJECTED"`
	Role   string `form:"role" binding:"omitempty,oneof=PUBLIC OWNER TENANT ADMIN"`
}

// ToFilter converts the query into an unpaginated filter
func (q *ExportUsersQuery) ToFilter() domain.UserFilter {
	return domain.UserFilter{Status: domain.UserStatus(q.Status), Role: domain.Role(q.Role)}
}
