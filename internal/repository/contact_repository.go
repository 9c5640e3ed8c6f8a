package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

// ContactRepositoryInterface defines methods used by services
type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	GetByIDs(ids []int) ([]model.Contact, error)
	ListAll() ([]model.Contact, error)
	Create(c *model.Contact) error
	Import(contacts []model.Contact) (int, error)
	Delete(id int) error
	DeleteAll() error
	IsOptedOut(phone string) (bool, error)
	OptOut(phone string) error
	ListOptOuts() ([]string, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, phone, first_name, last_name, city, created_at`

// GetByID fetches a contact by ID
func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	row := r.DB.QueryRow(`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)

	var c model.Contact
	if err := row.Scan(&c.ID, &c.Phone, &c.FirstName, &c.LastName, &c.City, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) scanAll(query string, args ...any) ([]model.Contact, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Phone, &c.FirstName, &c.LastName, &c.City, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepository) GetByIDs(ids []int) ([]model.Contact, error) {
	return r.scanAll(`SELECT `+contactColumns+` FROM contacts WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
}

func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	return r.scanAll(`SELECT ` + contactColumns + ` FROM contacts ORDER BY id DESC`)
}

func (r *ContactRepository) Create(c *model.Contact) error {
	query := `
        INSERT INTO contacts (phone, first_name, last_name, city)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query, c.Phone, c.FirstName, c.LastName, c.City).Scan(&c.ID, &c.CreatedAt)
}

// Import inserts contacts in one transaction, skipping rows without a phone.
func (r *ContactRepository) Import(contacts []model.Contact) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, c := range contacts {
		if c.Phone == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO contacts (phone, first_name, last_name, city) VALUES ($1, $2, $3, $4)`,
			c.Phone, c.FirstName, c.LastName, c.City,
		); err != nil {
			tx.Rollback()
			return 0, err
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

func (r *ContactRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM contacts WHERE id = $1`, id)
	return err
}

func (r *ContactRepository) DeleteAll() error {
	_, err := r.DB.Exec(`DELETE FROM contacts`)
	return err
}

func (r *ContactRepository) IsOptedOut(phone string) (bool, error) {
	var count int
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM opt_outs WHERE phone = $1`, phone).Scan(&count)
	return count > 0, err
}

func (r *ContactRepository) OptOut(phone string) error {
	_, err := r.DB.Exec(`INSERT INTO opt_outs (phone) VALUES ($1) ON CONFLICT (phone) DO NOTHING`, phone)
	return err
}

func (r *ContactRepository) ListOptOuts() ([]string, error) {
	rows, err := r.DB.Query(`SELECT phone FROM opt_outs ORDER BY opted_out_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phones := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	return phones, rows.Err()
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
