package command

import (
	"filegate/internal/model"
)

// capabilities is the closed (role, action) permission table, checked
// once per dispatch before any side effect. Missing entries deny.
var capabilities = map[model.Role]map[Action]bool{
	model.RoleAdmin: {
		ActionList:          true,
		ActionListRequests:  true,
		ActionCreate:        true,
		ActionRead:          true,
		ActionEdit:          true,
		ActionDelete:        true,
		ActionLock:          true,
		ActionUnlock:        true,
		ActionHandleRequest: true,
		ActionLogout:        true,
	},
	model.RoleUser: {
		ActionList:        true,
		ActionRead:        true,
		ActionMakeRequest: true,
		ActionLogout:      true,
	},
}

// Allowed reports whether role may perform action.
func Allowed(role model.Role, action Action) bool {
	return capabilities[role][action]
}
