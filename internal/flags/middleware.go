package flags

import (
	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
)

// KillSwitch returns middleware that rejects requests while the given
// module is disabled. Applied per route group at server assembly.
func KillSwitch(svc *Service, module string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.ModuleDisabled(module) {
			apierr.Abort(c, apierr.New(apierr.CodeModuleDisabled, "This module is temporarily disabled.").
				WithMeta("module", module))
			return
		}
		c.Next()
	}
}
