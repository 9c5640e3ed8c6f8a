package repository

import (
	"database/sql"
	"time"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

// BlastRepositoryInterface defines the methods the blast worker needs
type BlastRepositoryInterface interface {
	Create(msg *model.BlastMessage) error
	GetByID(id int) (*model.BlastMessage, error)
	UpdateStatus(id int, status, lastError string) error
}

type BlastRepository struct {
	DB *sql.DB
}

func (r *BlastRepository) Create(msg *model.BlastMessage) error {
	now := time.Now()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	if msg.Status == "" {
		msg.Status = "pending"
	}

	query := `
        INSERT INTO blast_messages (phone, rendered_body, status, last_error, retry_count, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		msg.Phone,
		msg.RenderedBody,
		msg.Status,
		msg.LastError,
		msg.RetryCount,
		msg.CreatedAt,
		msg.UpdatedAt,
	).Scan(&msg.ID)
}

func (r *BlastRepository) GetByID(id int) (*model.BlastMessage, error) {
	query := `
        SELECT id, phone, rendered_body, status, last_error, retry_count, created_at, updated_at
        FROM blast_messages
        WHERE id=$1
    `
	var msg model.BlastMessage
	err := r.DB.QueryRow(query, id).Scan(
		&msg.ID, &msg.Phone, &msg.RenderedBody, &msg.Status,
		&msg.LastError, &msg.RetryCount, &msg.CreatedAt, &msg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *BlastRepository) UpdateStatus(id int, status, lastError string) error {
	query := `UPDATE blast_messages SET status=$1, last_error=$2, retry_count=retry_count+1, updated_at=NOW() WHERE id=$3`
	_, err := r.DB.Exec(query, status, lastError, id)
	return err
}

var _ BlastRepositoryInterface = (*BlastRepository)(nil)
