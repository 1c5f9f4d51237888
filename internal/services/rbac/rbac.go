// Package rbac реализует проверку прав доступа по роли.
//
// Разрешение — чистая функция (роль, действие, вид ресурса) -> allow/deny
// по статической таблице: проверка стоит O(1) и не ходит в базу данных.
package rbac

import "github.com/magabrotheeeer/insight-console/internal/models"

// Действия, проверяемые перед выполнением обработчиков.
const (
	ActionUserRegister     = "user.register"
	ActionUserUpdateRole   = "user.update_role"
	ActionUserUpdateStatus = "user.update_status"
	ActionUserList         = "user.list"
	ActionAuditList        = "audit.list"

	ActionDashboardView      = "dashboard.view"
	ActionDashboardRefresh   = "dashboard.refresh"
	ActionDashboardCancel    = "dashboard.cancel"
	ActionDashboardRecommend = "dashboard.recommend"
)

// Виды ресурсов, к которым применяются действия.
const (
	ResourceUser      = "user"
	ResourceAudit     = "audit"
	ResourceDashboard = "dashboard"
)

type permission struct {
	action   string
	resource string
}

// permissions — статическая таблица роль -> разрешенные (действие, ресурс).
// Администрирование пользователей и чтение аудита доступны только admin;
// владельцы и аналитики управляют обновлением дашбордов; viewer только
// смотрит.
var permissions = map[string]map[permission]struct{}{
	models.RoleAdmin: {
		{ActionUserRegister, ResourceUser}:            {},
		{ActionUserUpdateRole, ResourceUser}:          {},
		{ActionUserUpdateStatus, ResourceUser}:        {},
		{ActionUserList, ResourceUser}:                {},
		{ActionAuditList, ResourceAudit}:              {},
		{ActionDashboardView, ResourceDashboard}:      {},
		{ActionDashboardRefresh, ResourceDashboard}:   {},
		{ActionDashboardCancel, ResourceDashboard}:    {},
		{ActionDashboardRecommend, ResourceDashboard}: {},
	},
	models.RoleOwner: {
		{ActionDashboardView, ResourceDashboard}:      {},
		{ActionDashboardRefresh, ResourceDashboard}:   {},
		{ActionDashboardCancel, ResourceDashboard}:    {},
		{ActionDashboardRecommend, ResourceDashboard}: {},
	},
	models.RoleAnalyst: {
		{ActionDashboardView, ResourceDashboard}:      {},
		{ActionDashboardRefresh, ResourceDashboard}:   {},
		{ActionDashboardRecommend, ResourceDashboard}: {},
	},
	models.RoleViewer: {
		{ActionDashboardView, ResourceDashboard}: {},
	},
}

// Allowed сообщает, разрешено ли роли выполнить действие над видом ресурса.
func Allowed(role, action, resource string) bool {
	perms, ok := permissions[role]
	if !ok {
		return false
	}
	_, ok = perms[permission{action: action, resource: resource}]
	return ok
}
