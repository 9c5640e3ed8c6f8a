// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/fieldops/campaigntext-backend/internal/config"
	"github.com/fieldops/campaigntext-backend/internal/controller"
	"github.com/fieldops/campaigntext-backend/internal/db"
	"github.com/fieldops/campaigntext-backend/internal/handler"
	"github.com/fieldops/campaigntext-backend/internal/middleware"
	"github.com/fieldops/campaigntext-backend/internal/queue"
	"github.com/fieldops/campaigntext-backend/internal/repository"
	"github.com/fieldops/campaigntext-backend/internal/service"
	"github.com/fieldops/campaigntext-backend/internal/sms"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	// Init DB
	db.Init()

	// Repositories
	contactRepo := &repository.ContactRepository{DB: db.DB}
	messageRepo := &repository.MessageRepository{DB: db.DB}
	blastRepo := &repository.BlastRepository{DB: db.DB}
	p2pStore := repository.NewP2PStore(db.DB)
	voterRepo := &repository.VoterRepository{DB: db.DB}
	eventRepo := &repository.EventRepository{DB: db.DB}
	walkRepo := &repository.WalkRepository{DB: db.DB}

	// Blast delivery goes through RabbitMQ, consumed by cmd/worker. Without a
	// broker the in-memory queue plus an in-process subscriber keep local
	// development working.
	var q queue.Queue
	amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL)
	if err != nil {
		log.Println("⚠️ RabbitMQ unavailable, falling back to in-memory queue:", err)
		memQueue := queue.NewInMemoryQueue()
		sender := sms.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
		service.StartBlastSendSubscriber(memQueue, blastRepo, contactRepo, sender, cfg.SMSFrom)
		q = memQueue
	} else {
		q = amqpQueue
		defer amqpQueue.Close()
	}

	// Services
	p2pService := &service.P2PService{Store: p2pStore, MessageRepo: messageRepo}
	messagingService := &service.MessagingService{
		Store:       p2pStore,
		MessageRepo: messageRepo,
		ContactRepo: contactRepo,
		NewSender: func(creds sms.Credentials) sms.Sender {
			return sms.NewTwilioClient(creds.AccountSID, creds.AuthToken)
		},
	}
	blastService := &service.BlastService{
		ContactRepo: contactRepo,
		BlastRepo:   blastRepo,
		Queue:       q,
	}
	walkService := &service.WalkService{WalkRepo: walkRepo, VoterRepo: voterRepo}

	// Controllers and handlers
	p2pController := &controller.P2PController{P2PService: p2pService, MessagingService: messagingService}
	blastController := &controller.BlastController{BlastService: blastService}
	contactHandler := handler.NewContactHandler(contactRepo)
	messageHandler := &handler.MessageHandler{
		MessagingService: messagingService,
		MessageRepo:      messageRepo,
		ContactRepo:      contactRepo,
	}
	voterHandler := handler.NewVoterHandler(voterRepo)
	eventHandler := handler.NewEventHandler(eventRepo)
	walkHandler := handler.NewWalkHandler(walkRepo, walkService)

	// Hourly sweep closes sessions whose join code lapsed.
	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() {
		if _, err := p2pService.ExpireStaleSessions(); err != nil {
			log.Println("⚠️ session expiry sweep failed:", err)
		}
	}); err != nil {
		log.Fatal("failed to schedule session expiry sweep:", err)
	}
	c.Start()
	defer c.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Handle("/metrics", promhttp.Handler())

	// P2P texting routes
	r.Post("/p2p/sessions", p2pController.CreateSession)
	r.Get("/p2p/sessions", p2pController.ListSessions)
	r.Get("/p2p/sessions/{id}", p2pController.GetSession)
	r.Patch("/p2p/sessions/{id}", p2pController.UpdateSession)
	r.Delete("/p2p/sessions/{id}", p2pController.DeleteSession)
	r.Post("/p2p/join", p2pController.Join)
	r.Patch("/p2p/volunteers/{id}/status", p2pController.SetVolunteerStatus)
	r.Get("/p2p/volunteers/{id}/queue", p2pController.VolunteerQueue)
	r.Post("/p2p/send", p2pController.Send)
	r.Get("/p2p/conversations/{assignmentId}", p2pController.Conversation)
	r.Patch("/p2p/assignments/{id}/complete", p2pController.CompleteAssignment)
	r.Patch("/p2p/assignments/{id}/skip", p2pController.SkipAssignment)

	// Bulk blast
	r.Post("/blast", blastController.SendBlast)

	// Inbound webhook + inbox
	r.Post("/incoming", messageHandler.IncomingHandler)
	r.Get("/messages", messageHandler.ListMessagesHandler)
	r.Post("/reply", messageHandler.ReplyHandler)

	// Contact routes
	r.Get("/contacts", contactHandler.ListContactsHandler)
	r.Post("/contacts", contactHandler.CreateContactHandler)
	r.Post("/contacts/import", contactHandler.ImportContactsHandler)
	r.Delete("/contacts/{id}", contactHandler.DeleteContactHandler)
	r.Delete("/contacts", contactHandler.DeleteAllContactsHandler)

	// Voter file routes
	r.Get("/voters", voterHandler.SearchVotersHandler)
	r.Post("/voters", voterHandler.CreateVoterHandler)
	r.Post("/voters/import", voterHandler.ImportVotersHandler)
	r.Post("/voters/checkin/{token}", voterHandler.CheckInHandler)
	r.Get("/voters/{id}", voterHandler.GetVoterHandler)
	r.Patch("/voters/{id}", voterHandler.UpdateVoterHandler)
	r.Delete("/voters/{id}", voterHandler.DeleteVoterHandler)
	r.Post("/voters/{id}/contacts", voterHandler.LogContactHandler)

	// Event routes
	r.Get("/events", eventHandler.ListEventsHandler)
	r.Post("/events", eventHandler.CreateEventHandler)
	r.Get("/events/{id}", eventHandler.GetEventHandler)
	r.Patch("/events/{id}", eventHandler.UpdateEventHandler)
	r.Delete("/events/{id}", eventHandler.DeleteEventHandler)
	r.Post("/events/{id}/rsvps", eventHandler.AddRSVPsHandler)
	r.Patch("/events/{id}/rsvps/{rsvpId}", eventHandler.UpdateRSVPHandler)

	// Block walk routes
	r.Get("/walks", walkHandler.ListWalksHandler)
	r.Post("/walks", walkHandler.CreateWalkHandler)
	r.Get("/walks/{id}", walkHandler.GetWalkHandler)
	r.Patch("/walks/{id}", walkHandler.UpdateWalkHandler)
	r.Delete("/walks/{id}", walkHandler.DeleteWalkHandler)
	r.Post("/walks/{id}/addresses", walkHandler.AddAddressesHandler)
	r.Patch("/walks/{id}/addresses/{addrId}", walkHandler.UpdateAddressHandler)
	r.Post("/walks/{id}/addresses/{addrId}/log", walkHandler.LogKnockHandler)
	r.Delete("/walks/{id}/addresses/{addrId}", walkHandler.DeleteAddressHandler)

	log.Println("🚀 Server running on :" + cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
