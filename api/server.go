/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /healthz               Liveness
  /api/notes/*           Notes and their images
  /api/checklists/*      Checklists and their item trees
  /api/tasks/*           Tasks, item trees and custom statuses
  /api/points/*          Points users, ledger, prizes, admins
  /api/achievements/*    Achievement definitions and grants
  /api/ical/*            Feed subscriptions, export, reminders
  /api/calendars/*       Derived calendars
  /api/calendar-events   Month-grid aggregate
  /api/sensors/*         Household counters

SECURITY NOTE:
  No authentication middleware. All endpoints are public to whoever can
  reach the listen address.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/jottick/coordinator"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: !allowsAny(origins),
	}))

	r.Get("/healthz", h.Health)

	checklistItems := h.itemOps(coordinator.KindChecklist)
	taskItems := h.itemOps(coordinator.KindTask)

	r.Route("/api", func(r chi.Router) {
		// Note routes
		r.Route("/notes", func(r chi.Router) {
			r.Get("/", h.ListNotes)
			r.Post("/", h.CreateNote)
			r.Get("/{id}", h.GetNote)
			r.Put("/{id}", h.UpdateNote)
			r.Delete("/{id}", h.DeleteNote)
			r.Post("/{id}/images", h.AddNoteImage)
			r.Delete("/{id}/images/{index}", h.RemoveNoteImage)
		})

		// Checklist routes
		r.Route("/checklists", func(r chi.Router) {
			r.Get("/", h.ListChecklists)
			r.Post("/", h.CreateChecklist)
			r.Get("/{id}", h.GetChecklist)
			r.Put("/{id}", h.UpdateChecklist)
			r.Delete("/{id}", h.DeleteChecklist)
			r.Post("/{id}/items", checklistItems.Add)
			r.Route("/{id}/items/{path}", func(r chi.Router) {
				itemRoutes(r, checklistItems)
				r.Post("/check", h.CheckItem)
				r.Post("/uncheck", h.UncheckItem)
				r.Post("/claim", h.ClaimItem(coordinator.KindChecklist))
			})
		})

		// Task routes
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/{id}", h.GetTask)
			r.Put("/{id}", h.UpdateTask)
			r.Delete("/{id}", h.DeleteTask)
			r.Post("/{id}/items", taskItems.Add)
			r.Route("/{id}/items/{path}", func(r chi.Router) {
				itemRoutes(r, taskItems)
				r.Put("/status", h.UpdateTaskItemStatus)
				r.Post("/claim", h.ClaimItem(coordinator.KindTask))
			})
			r.Post("/{id}/statuses", h.CreateTaskStatus)
			r.Put("/{id}/statuses/{status}", h.UpdateTaskStatus)
			r.Delete("/{id}/statuses/{status}", h.DeleteTaskStatus)
		})

		// Points routes
		r.Route("/points", func(r chi.Router) {
			r.Get("/users", h.ListPointsUsers)
			r.Post("/users", h.CreatePointsUser)
			r.Route("/users/{id}", func(r chi.Router) {
				r.Put("/", h.UpdatePointsUser)
				r.Delete("/", h.DeletePointsUser)
				r.Put("/link", h.LinkPointsUser)
				r.Post("/adjust", h.AdjustPoints)
				r.Post("/penalty", h.PenalizePoints)
				r.Post("/reset", h.ResetPoints)
				r.Post("/redeem", h.RedeemPrize)
				r.Get("/history", h.History)
			})
			r.Get("/leaderboard", h.Leaderboard)
			r.Get("/prizes", h.ListPrizes)
			r.Post("/prizes", h.CreatePrize)
			r.Put("/prizes/{id}", h.UpdatePrize)
			r.Delete("/prizes/{id}", h.DeletePrize)
			r.Get("/admins", h.ListAdmins)
			r.Post("/admins", h.AddAdmin)
			r.Delete("/admins/{id}", h.RemoveAdmin)
		})

		// Achievement routes
		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", h.ListAchievements)
			r.Post("/", h.CreateAchievement)
			r.Get("/users/{id}", h.UserAchievements)
			r.Put("/{id}", h.UpdateAchievement)
			r.Delete("/{id}", h.DeleteAchievement)
			r.Post("/{id}/award", h.AwardAchievement)
			r.Post("/{id}/revoke", h.RevokeAchievement)
		})

		// iCal routes
		r.Route("/ical", func(r chi.Router) {
			r.Get("/sources", h.ListICalSources)
			r.Post("/sources", h.ImportICal)
			r.Delete("/sources", h.RemoveICalSource)
			r.Post("/refresh", h.RefreshICal)
			r.Post("/export", h.ExportICal)
			r.Get("/calendar.ics", h.DownloadICal)
			r.Get("/reminders", h.ListReminders)
			r.Put("/reminders", h.SetReminders)
		})

		// View routes
		r.Get("/calendars", h.ListCalendars)
		r.Get("/calendars/{id}/events", h.CalendarEvents)
		r.Get("/calendar-events", h.CalendarAggregate)
		r.Get("/sensors/summary", h.Summary)
	})

	return r
}

// itemRoutes registers the operations checklists and tasks share.
func itemRoutes(r chi.Router, ops itemOps) {
	r.Put("/", ops.UpdateText)
	r.Delete("/", ops.Delete)
	r.Put("/due", ops.SetDue)
	r.Delete("/due", ops.ClearDue)
	r.Put("/points", ops.SetPoints)
	r.Put("/assign", ops.Assign)
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
