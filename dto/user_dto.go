package dto

type ChangeRoleDTO struct {
	Role string `json:"role" binding:"required,oneof=USER ADMIN"`
}
