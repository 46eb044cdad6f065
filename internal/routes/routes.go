package routes

import (
	"github.com/gin-gonic/gin"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/handlers"
	"petcare-vet-server/internal/middleware"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, svc *services.Services, db handlers.Pinger, cfg *config.Config) {
	appointmentHandler := handlers.NewAppointmentHandler(svc)
	consultationHandler := handlers.NewConsultationHandler(svc)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(svc)
	slotHandler := handlers.NewSlotHandler(svc.Slots)

	vet := router.Group("/api/v1/veterinary")
	vet.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		// Pet owners
		user := vet.Group("/user")
		{
			user.POST("/appointments", appointmentHandler.CreateAppointment)
			user.GET("/appointments", appointmentHandler.GetMyAppointments)
			user.GET("/appointments/:id", appointmentHandler.GetMyAppointment)
			user.PATCH("/appointments/:id/cancel", appointmentHandler.CancelAppointment)
			user.GET("/slots", slotHandler.GetAvailableSlots)
			user.GET("/pets/:petId/medical-records", medicalRecordHandler.GetMyPetMedicalRecords)
		}

		// Clinic staff, scoped to the store in their token
		manager := vet.Group("/manager")
		manager.Use(middleware.RoleAuthMiddleware(models.RoleManager, models.RoleStaff, models.RoleAdmin))
		{
			manager.POST("/appointments", appointmentHandler.CreateStoreAppointment)
			manager.GET("/appointments", appointmentHandler.GetStoreAppointments)
			manager.GET("/appointments/:id", appointmentHandler.GetStoreAppointment)
			manager.PUT("/appointments/:id", appointmentHandler.UpdateAppointment)
			manager.PATCH("/appointments/:id/cancel", appointmentHandler.CancelAppointment)
			manager.GET("/slots", slotHandler.GetStoreAvailableSlots)

			manager.GET("/applications", appointmentHandler.GetApplications)
			manager.PATCH("/applications/:id/accept", appointmentHandler.AcceptApplication)
			manager.PATCH("/applications/:id/reject", appointmentHandler.RejectApplication)

			manager.GET("/consultations/:id", consultationHandler.GetConsultationDetails)
			manager.PATCH("/consultations/:id/start", consultationHandler.StartConsultation)
			manager.PATCH("/consultations/:id/complete", consultationHandler.CompleteConsultation)
			manager.PATCH("/consultations/:id/pets/:petId/complete", consultationHandler.CompletePetConsultation)

			records := manager.Group("/medical-records")
			{
				records.GET("", medicalRecordHandler.GetMedicalRecordsForPet)
				// registered before /:id so the static segment wins
				records.GET("/attachments/:attachmentId", medicalRecordHandler.GetMedicalRecordAttachment)
				records.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
				records.PUT("/:id", medicalRecordHandler.UpdateMedicalRecord)
				records.DELETE("/:id", medicalRecordHandler.DeleteMedicalRecord)
				records.POST("/:id/restore", medicalRecordHandler.RestoreMedicalRecord)
				records.POST("/:id/attachments", medicalRecordHandler.UploadMedicalRecordAttachment)
			}
		}
	}

	// Simple health check endpoint
	router.GET("/health", handlers.Health(db))
}
