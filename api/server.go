package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/helmsman-ai/helmsman/api/handlers"
)

// StartServer initializes the REST API and blocks serving it.
func StartServer(port int, env *handlers.Env) error {
	handlers.Setup(env)
	router := gin.Default()
	SetupRoutes(router)
	return router.Run(fmt.Sprintf(":%d", port))
}
