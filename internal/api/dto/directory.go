package dto

type CreateTenantRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Slug     string  `json:"slug" validate:"required,slug,max=63"`
	Domain   *string `json:"domain" validate:"omitempty,domain"`
	IsActive *bool   `json:"is_active"`
}

type UpdateTenantRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Slug     *string `json:"slug" validate:"omitempty,slug,max=63"`
	Domain   *string `json:"domain" validate:"omitempty,domain"`
	IsActive *bool   `json:"is_active"`
}

// CreateUserRequest creates an ADMIN (by a super admin) or a MANAGER (by
// an admin). TenantID is honoured for super admins only.
type CreateUserRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Role     string  `json:"role" validate:"required,oneof=ADMIN MANAGER"`
	TenantID *string `json:"tenant_id" validate:"omitempty,uuid"`
	AdminID  *string `json:"admin_id" validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
	IsActive *bool   `json:"is_active"`
}

type CreateAttendantRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        string  `json:"phone" validate:"max=40"`
	Password     string  `json:"password" validate:"omitempty,min=8,max=72"`
	LoginEnabled bool    `json:"login_enabled"`
	ManagerID    *string `json:"manager_id" validate:"omitempty,uuid"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
	PositionID   *string `json:"position_id" validate:"omitempty,uuid"`
	FunctionID   *string `json:"function_id" validate:"omitempty,uuid"`
	AvatarURL    string  `json:"avatar_url" validate:"omitempty,url"`
}

type UpdateAttendantRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone        *string `json:"phone" validate:"omitempty,max=40"`
	Password     *string `json:"password" validate:"omitempty,min=8,max=72"`
	LoginEnabled *bool   `json:"login_enabled"`
	IsActive     *bool   `json:"is_active"`
	ManagerID    *string `json:"manager_id" validate:"omitempty,uuid"`
	DepartmentID *string `json:"department_id" validate:"omitempty,uuid"`
	PositionID   *string `json:"position_id" validate:"omitempty,uuid"`
	FunctionID   *string `json:"function_id" validate:"omitempty,uuid"`
	AvatarURL    *string `json:"avatar_url" validate:"omitempty,url"`
}

type OrgUnitRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	IsActive    *bool  `json:"is_active"`
}

type UpdateOrgUnitRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

type SettingRequest struct {
	Key      string `json:"key" validate:"required,max=120"`
	Value    string `json:"value" validate:"max=10000"`
	IsSecret bool   `json:"is_secret"`
}
