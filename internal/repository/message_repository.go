package repository

import (
	"database/sql"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

type MessageRepositoryInterface interface {
	Record(m *model.Message) error
	ListInbound(limit int) ([]model.Message, error)
	ListConversation(phone string, sessionID int) ([]model.Message, error)
	LogActivity(message string) error
}

type MessageRepository struct {
	DB *sql.DB
}

const messageColumns = `id, phone, body, direction, session_id, volunteer_name, timestamp`

func (r *MessageRepository) Record(m *model.Message) error {
	if m.Direction == "" {
		m.Direction = "inbound"
	}
	query := `
        INSERT INTO messages (phone, body, direction, session_id, volunteer_name)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, timestamp
    `
	return r.DB.QueryRow(query, m.Phone, m.Body, m.Direction, m.SessionID, m.VolunteerName).Scan(&m.ID, &m.Timestamp)
}

func (r *MessageRepository) scanAll(query string, args ...any) ([]model.Message, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Phone, &m.Body, &m.Direction, &m.SessionID, &m.VolunteerName, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepository) ListInbound(limit int) ([]model.Message, error) {
	return r.scanAll(`SELECT `+messageColumns+` FROM messages WHERE direction='inbound' ORDER BY id DESC LIMIT $1`, limit)
}

// ListConversation returns the full thread with one phone inside one session.
func (r *MessageRepository) ListConversation(phone string, sessionID int) ([]model.Message, error) {
	return r.scanAll(`SELECT `+messageColumns+` FROM messages WHERE phone=$1 AND session_id=$2 ORDER BY id ASC`, phone, sessionID)
}

func (r *MessageRepository) LogActivity(message string) error {
	_, err := r.DB.Exec(`INSERT INTO activity_log (message) VALUES ($1)`, message)
	return err
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
