package db

import (
	"fmt"

	"github.com/medapi/medapi/internal/platform/authz"
)

// ScopeFilter renders s as a SQL predicate. deptCol and userCol name the
// columns compared for department and owner scopes; next is the number of
// the first free placeholder. The returned args must be appended in order.
func ScopeFilter(s authz.Scope, deptCol, userCol string, next int) (string, []interface{}) {
	switch s.Kind {
	case authz.ScopeAll:
		return "TRUE", nil
	case authz.ScopeDepartment:
		return fmt.Sprintf("%s = $%d", deptCol, next), []interface{}{s.DepartmentID}
	case authz.ScopeOwner:
		return fmt.Sprintf("%s = $%d", userCol, next), []interface{}{s.UserID}
	}
	return "FALSE", nil
}
