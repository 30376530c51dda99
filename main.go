package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmarquez/tasknestbackend/controllers"
	"github.com/dmarquez/tasknestbackend/database"
	"github.com/dmarquez/tasknestbackend/mailer"
	"github.com/dmarquez/tasknestbackend/middleware"
	"github.com/dmarquez/tasknestbackend/scheduler"
	"github.com/dmarquez/tasknestbackend/tokens"
	"github.com/dmarquez/tasknestbackend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	ctx := context.Background()
	if err := database.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}
	if err := utils.SeedAdminUser(ctx, database.OpenCollection("users")); err != nil {
		log.Fatal(err)
	}

	users := database.NewUserStore()
	tok := tokens.NewService(database.NewRefreshTokenStore(), users)
	sender := mailer.NewSMTPSenderFromEnv()

	r2, err := utils.NewCloudClient(ctx)
	if err != nil {
		log.Printf("R2 storage unavailable, attachment uploads disabled: %v", err)
	}
	v := utils.NewAttachmentValidator()

	startJobs(tok, users, sender)

	r := gin.New()

	origins := os.Getenv("ALLOWED_ORIGINS")
	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	log.Printf("Allowed origins: %v", allowedOrigins)
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	r.POST("/auth/register", controllers.Register())
	r.POST("/auth/login", controllers.Login(tok))
	r.POST("/auth/refresh", controllers.Refresh(tok))
	r.POST("/auth/logout", controllers.Logout(tok))

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(tok))
	{
		authed.POST("/todos", controllers.CreateTodo(sender))
		authed.GET("/todos", controllers.GetTodos())
		authed.GET("/todos/calendar", controllers.GetCalendar())
		authed.GET("/todos/:id", controllers.GetTodo())
		authed.PATCH("/todos/:id", controllers.UpdateTodo(sender))
		authed.DELETE("/todos/:id", controllers.DeleteTodo())
		if r2 != nil {
			authed.POST("/todos/:id/attachments", controllers.UploadTodoAttachment(r2, v))
			authed.DELETE("/todos/:id/attachments", controllers.DeleteTodoAttachment(r2))
		}

		authed.GET("/dashboard/summary", controllers.GetDashboardSummary())
		authed.PATCH("/me", controllers.UpdateMyProfile())
		authed.POST("/me/password", controllers.ChangeMyPassword(tok))
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(tok), middleware.RequireAdmin())
	{
		admin.GET("/users", controllers.GetUsers())
		admin.PATCH("/users/:id/role", controllers.ChangeUserRole(tok, sender))
		admin.POST("/users/:id/deactivate", controllers.DeactivateUser(tok))
		admin.POST("/users/:id/restore", controllers.RestoreUser())
		admin.GET("/activity-logs", controllers.GetActivityLogs())
	}

	r.Run()
}

// startJobs schedules the due-reminder pass and the expired refresh-token
// sweep. Both jobs guard against overlap themselves, so the cron entries
// can fire on a fixed interval without coordination.
func startJobs(tok *tokens.Service, users *database.UserStore, sender mailer.Sender) {
	interval := utils.ParseIntDefault(os.Getenv("REMINDER_INTERVAL_MINUTES"), 5)
	lookahead := utils.ParseIntDefault(os.Getenv("REMINDER_LOOKAHEAD_MINUTES"), 60)

	notifier := scheduler.NewMailNotifier(users, sender)
	reminder := scheduler.NewReminder(database.NewTodoStore(), notifier,
		time.Duration(lookahead)*time.Minute)
	sweeper := scheduler.NewSweeper(tok)

	c := cron.New()
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), reminder); err != nil {
		log.Fatal(err)
	}
	if _, err := c.AddJob("@hourly", sweeper); err != nil {
		log.Fatal(err)
	}
	c.Start()
}
