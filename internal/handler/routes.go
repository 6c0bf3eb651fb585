package handler

import "github.com/labstack/echo/v4"

// Handlers groups every HTTP adapter mounted by RegisterRoutes.
type Handlers struct {
	TimeCards     *TimeCardHandler
	TimeOff       *TimeOffHandler
	Notifications *NotificationHandler
	Users         *UserHandler
	Admin         *AdminHandler
	Calendar      *CalendarHandler
}

// RegisterRoutes mounts the API on g. Authorization is decided per operation
// by the services; g is expected to carry AuthJWT.
func RegisterRoutes(g *echo.Group, h Handlers) {
	tc := g.Group("/timecards")
	tc.GET("", h.TimeCards.ListHandler)
	tc.POST("", h.TimeCards.CreateHandler)
	tc.GET("/current", h.TimeCards.CurrentHandler)
	tc.GET("/pending", h.TimeCards.PendingHandler)
	tc.GET("/export", h.Admin.ExportTimeCardsHandler)
	tc.GET("/:id", h.TimeCards.GetHandler)
	tc.POST("/:id/submit", h.TimeCards.SubmitHandler)
	tc.POST("/:id/review", h.TimeCards.ReviewHandler)
	tc.POST("/:id/entries", h.TimeCards.AddEntryHandler)
	tc.PUT("/entries/:entryId", h.TimeCards.UpdateEntryHandler)
	tc.DELETE("/entries/:entryId", h.TimeCards.DeleteEntryHandler)

	to := g.Group("/timeoff")
	to.GET("", h.TimeOff.ListHandler)
	to.POST("", h.TimeOff.CreateHandler)
	to.GET("/pending", h.TimeOff.PendingHandler)
	to.GET("/calendar", h.TimeOff.CalendarHandler)
	to.GET("/:id", h.TimeOff.GetHandler)
	to.POST("/:id/review", h.TimeOff.ReviewHandler)
	to.POST("/:id/cancel", h.TimeOff.CancelHandler)

	n := g.Group("/notifications")
	n.GET("", h.Notifications.ListHandler)
	n.GET("/unread-count", h.Notifications.UnreadCountHandler)
	n.POST("/read-all", h.Notifications.MarkAllReadHandler)
	n.DELETE("/read", h.Notifications.ClearReadHandler)
	n.GET("/admin/stats", h.Notifications.AdminStatsHandler)
	n.GET("/admin/all", h.Notifications.AdminListHandler)
	n.POST("/:id/read", h.Notifications.MarkReadHandler)
	n.DELETE("/:id", h.Notifications.DeleteHandler)

	cal := g.Group("/calendar")
	cal.GET("", h.Calendar.ListHandler)
	cal.POST("", h.Calendar.CreateHandler)
	cal.POST("/bulk", h.Calendar.BulkCreateHandler)
	cal.GET("/workdays", h.Calendar.WorkDaysHandler)
	cal.POST("/school-year-template", h.Calendar.SchoolYearTemplateHandler)
	cal.GET("/:id", h.Calendar.GetHandler)
	cal.PUT("/:id", h.Calendar.UpdateHandler)
	cal.DELETE("/:id", h.Calendar.DeleteHandler)

	u := g.Group("/users")
	u.GET("", h.Users.ListHandler)
	u.POST("", h.Users.CreateHandler)
	u.GET("/visible", h.Users.VisibleHandler)
	u.GET("/managers", h.Users.ManagersHandler)
	u.GET("/hierarchy", h.Users.HierarchyHandler)
	u.GET("/search", h.Users.SearchHandler)
	u.GET("/:id", h.Users.GetHandler)
	u.PUT("/:id", h.Users.UpdateHandler)
	u.POST("/:id/deactivate", h.Users.DeactivateHandler)
	u.GET("/:id/reports", h.Users.ReportsHandler)
	u.GET("/:id/timecards", h.TimeCards.ListForEmployeeHandler)
	u.POST("/:id/managers", h.Users.AddManagerHandler)
	u.PUT("/:id/managers", h.Users.SetManagersHandler)
	u.DELETE("/:id/managers/:managerId", h.Users.RemoveManagerHandler)
	u.PUT("/:id/principal", h.Users.SetPrincipalHandler)

	a := g.Group("/admin")
	a.GET("/stats", h.Admin.StatsHandler)
	a.GET("/timeoff", h.Admin.ListTimeOffHandler)
	a.GET("/timeoff/export", h.Admin.ExportTimeOffHandler)
	a.POST("/timeoff/:id/override", h.Admin.OverrideTimeOffHandler)
	a.POST("/timecards/:id/override", h.Admin.OverrideTimeCardHandler)
	a.DELETE("/timecards/:id", h.Admin.DeleteTimeCardHandler)
	a.POST("/notifications/broadcast", h.Admin.BroadcastHandler)
}
