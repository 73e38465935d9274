package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/bildungsfortschritt/api/docs"
)

// SetupSwagger serves the API documentation under /swagger
func SetupSwagger(router *gin.Engine, version string) {
	if version != "" {
		docs.SwaggerInfo.Version = version
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(1),
	))
}
