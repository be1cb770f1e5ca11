package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/justnotes/internal/middleware"
)

type RouterDeps struct {
	Auth             *AuthHandler
	Workspace        *WorkspaceHandler
	Folders          *FolderHandler
	Notes            *NoteHandler
	Export           *ExportHandler
	Files            *FileHandler
	Sessions         middleware.SessionResolver
	JWTSecret        []byte
	CommentRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/auth/:provider/url", deps.Auth.AuthURL)
	api.GET("/auth/:provider/callback", deps.Auth.Callback)
	api.POST("/auth/token", deps.Auth.TokenSignIn)

	authGroup := api.Group("")
	authGroup.Use(middleware.SessionAuth(deps.JWTSecret, deps.Sessions))
	authGroup.POST("/auth/logout", deps.Auth.Logout)

	authGroup.GET("/workspace", deps.Workspace.Get)
	authGroup.GET("/events", deps.Workspace.Events)
	authGroup.PUT("/selection", deps.Workspace.Select)
	authGroup.PUT("/search", deps.Workspace.Search)
	authGroup.DELETE("/error", deps.Workspace.DismissError)
	authGroup.POST("/sync", deps.Workspace.Sync)
	authGroup.POST("/invite", deps.Workspace.Invite)

	authGroup.POST("/folders", deps.Folders.Create)
	authGroup.DELETE("/folders/:id", deps.Folders.Delete)

	authGroup.POST("/notes", deps.Notes.Create)
	authGroup.PUT("/notes/:id", deps.Notes.Update)
	authGroup.DELETE("/notes/:id", deps.Notes.Delete)
	authGroup.POST("/notes/:id/comments", middleware.RateLimit(deps.CommentRateLimit), deps.Notes.AddComment)

	authGroup.POST("/export", deps.Export.Export)

	api.GET("/files/*key", deps.Files.Get)
}
