// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/fieldops/campaigntext-backend/internal/config"
	"github.com/fieldops/campaigntext-backend/internal/db"
	"github.com/fieldops/campaigntext-backend/internal/queue"
	"github.com/fieldops/campaigntext-backend/internal/ratelimit"
	"github.com/fieldops/campaigntext-backend/internal/repository"
	"github.com/fieldops/campaigntext-backend/internal/service"
	"github.com/fieldops/campaigntext-backend/internal/sms"
)

const maxRetries = 3

// Provider cap: at most 60 blast sends per minute across all workers.
const (
	sendsPerMinute = 60
	sendPacing     = 50 * time.Millisecond
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}
	cfg := config.Load()

	db.Init()

	blastRepo := &repository.BlastRepository{DB: db.DB}
	contactRepo := &repository.ContactRepository{DB: db.DB}

	limiter, err := ratelimit.NewLimiter(cfg.RedisURL, sendsPerMinute, time.Minute)
	if err != nil {
		log.Fatal("Failed to connect to redis:", err)
	}
	defer limiter.Close()

	sender := sms.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)

	// Connect to RabbitMQ
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		queue.BlastQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job service.BlastJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			// Hold the message until the shared send budget has room.
			waitForBudget(limiter)

			err := service.DeliverBlastMessage(job.BlastMessageID, blastRepo, contactRepo, sender, cfg.SMSFrom)
			if err != nil {
				log.Println("Failed to send blast message:", err)
				if retryCount(d) < maxRetries {
					requeue(ch, q.Name, d)
					d.Ack(false)
					continue
				}
			}

			d.Ack(false)
			time.Sleep(sendPacing)
		}
	}()

	log.Println("Worker running, waiting for messages...")
	<-forever
}

// waitForBudget blocks until the rate limiter admits one more send.
func waitForBudget(limiter *ratelimit.Limiter) {
	for {
		res, err := limiter.Check(context.Background(), "blast_send")
		if err != nil {
			// Redis down should not stop deliveries entirely.
			log.Println("⚠️ rate limiter unavailable:", err)
			return
		}
		if res.Allowed {
			return
		}
		wait := time.Until(time.Unix(res.ResetAt, 0))
		if wait < time.Second {
			wait = time.Second
		}
		log.Printf("rate limit reached, sleeping %s", wait)
		time.Sleep(wait)
	}
}

func retryCount(d amqp.Delivery) int {
	switch v := d.Headers["x-retry-count"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// requeue republishes with an incremented retry header so the attempt count
// survives the broker round-trip.
func requeue(ch *amqp.Channel, queueName string, d amqp.Delivery) {
	headers := amqp.Table{"x-retry-count": int32(retryCount(d) + 1)}
	err := ch.Publish(
		"",
		queueName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Headers:     headers,
			Body:        d.Body,
		},
	)
	if err != nil {
		log.Println("Failed to requeue message:", err)
	}
}
