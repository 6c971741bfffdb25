package services

import "github.com/yeremiapane/qrmenu/models"

// CanView reports whether user works at est, as owner or staff.
func CanView(user *models.User, est *models.Establishment) bool {
	if user == nil || est == nil {
		return false
	}
	if user.Role == models.RoleOwner && est.OwnerID == user.ID {
		return true
	}
	return user.Role == models.RoleStaff && user.EstablishmentID != nil && *user.EstablishmentID == est.ID
}

// CanManage reports whether user may change the catalogue, tables and
// settings of est. Only its owner can.
func CanManage(user *models.User, est *models.Establishment) bool {
	return user != nil && est != nil && user.Role == models.RoleOwner && est.OwnerID == user.ID
}
