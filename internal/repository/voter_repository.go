package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

type VoterRepository struct {
	DB *sql.DB
}

const voterColumns = `id, first_name, last_name, phone, email, address, city, zip, party, support_level, voter_score, tags, notes, registration_number, qr_token, created_at, updated_at`

// VoterFilter narrows Search results.
type VoterFilter struct {
	Query   string
	Party   string
	Support string
}

func scanVoter(scan func(dest ...any) error) (*model.Voter, error) {
	var v model.Voter
	err := scan(&v.ID, &v.FirstName, &v.LastName, &v.Phone, &v.Email, &v.Address, &v.City, &v.Zip,
		&v.Party, &v.SupportLevel, &v.VoterScore, &v.Tags, &v.Notes, &v.RegistrationNumber, &v.QRToken,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Search filters by free text over name/address/phone plus exact party and
// support level, capped at 500 rows like the admin list view expects.
func (r *VoterRepository) Search(f VoterFilter) ([]model.Voter, error) {
	query := `SELECT ` + voterColumns + ` FROM voters WHERE 1=1`
	args := []any{}
	argPos := 1

	if f.Query != "" {
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR address ILIKE $%d OR phone ILIKE $%d)", argPos, argPos, argPos, argPos)
		args = append(args, "%"+f.Query+"%")
		argPos++
	}
	if f.Party != "" {
		query += fmt.Sprintf(" AND party=$%d", argPos)
		args = append(args, f.Party)
		argPos++
	}
	if f.Support != "" {
		query += fmt.Sprintf(" AND support_level=$%d", argPos)
		args = append(args, f.Support)
	}
	query += ` ORDER BY last_name, first_name LIMIT 500`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voters := []model.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows.Scan)
		if err != nil {
			return nil, err
		}
		voters = append(voters, *v)
	}
	return voters, rows.Err()
}

func (r *VoterRepository) GetByID(id int) (*model.Voter, error) {
	v, err := scanVoter(r.DB.QueryRow(`SELECT `+voterColumns+` FROM voters WHERE id=$1`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *VoterRepository) GetByQRToken(token string) (*model.Voter, error) {
	v, err := scanVoter(r.DB.QueryRow(`SELECT `+voterColumns+` FROM voters WHERE qr_token=$1`, token).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return v, err
}

func (r *VoterRepository) Create(v *model.Voter) error {
	if v.SupportLevel == "" {
		v.SupportLevel = "unknown"
	}
	if v.QRToken == "" {
		v.QRToken = uuid.NewString()
	}
	query := `
        INSERT INTO voters (first_name, last_name, phone, email, address, city, zip, party, support_level, voter_score, tags, notes, registration_number, qr_token)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at, updated_at
    `
	return r.DB.QueryRow(query,
		v.FirstName, v.LastName, v.Phone, v.Email, v.Address, v.City, v.Zip, v.Party,
		v.SupportLevel, v.VoterScore, v.Tags, v.Notes, v.RegistrationNumber, v.QRToken,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

func (r *VoterRepository) Import(voters []model.Voter) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, v := range voters {
		support := v.SupportLevel
		if support == "" {
			support = "unknown"
		}
		if _, err := tx.Exec(
			`INSERT INTO voters (first_name, last_name, phone, email, address, city, zip, party, support_level, tags, registration_number, qr_token)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			v.FirstName, v.LastName, v.Phone, v.Email, v.Address, v.City, v.Zip, v.Party,
			support, v.Tags, v.RegistrationNumber, uuid.NewString(),
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

// VoterUpdate carries partial fields; nil means keep the stored value.
type VoterUpdate struct {
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Phone              *string `json:"phone"`
	Email              *string `json:"email"`
	Address            *string `json:"address"`
	City               *string `json:"city"`
	Zip                *string `json:"zip"`
	Party              *string `json:"party"`
	SupportLevel       *string `json:"support_level"`
	VoterScore         *int    `json:"voter_score"`
	Tags               *string `json:"tags"`
	Notes              *string `json:"notes"`
	RegistrationNumber *string `json:"registration_number"`
}

func (r *VoterRepository) Update(id int, u VoterUpdate) error {
	query := `UPDATE voters SET
        first_name = COALESCE($1, first_name), last_name = COALESCE($2, last_name),
        phone = COALESCE($3, phone), email = COALESCE($4, email),
        address = COALESCE($5, address), city = COALESCE($6, city), zip = COALESCE($7, zip),
        party = COALESCE($8, party), support_level = COALESCE($9, support_level),
        voter_score = COALESCE($10, voter_score), tags = COALESCE($11, tags), notes = COALESCE($12, notes),
        registration_number = COALESCE($13, registration_number),
        updated_at = NOW()
        WHERE id = $14`
	_, err := r.DB.Exec(query,
		u.FirstName, u.LastName, u.Phone, u.Email, u.Address, u.City, u.Zip, u.Party,
		u.SupportLevel, u.VoterScore, u.Tags, u.Notes, u.RegistrationNumber, id,
	)
	return err
}

func (r *VoterRepository) UpdateSupportLevel(id int, level string) error {
	_, err := r.DB.Exec(`UPDATE voters SET support_level=$1, updated_at=NOW() WHERE id=$2`, level, id)
	return err
}

func (r *VoterRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM voters WHERE id=$1`, id)
	return err
}

func (r *VoterRepository) LogContact(c *model.VoterContact) error {
	query := `
        INSERT INTO voter_contacts (voter_id, contact_type, result, notes, contacted_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, contacted_at
    `
	return r.DB.QueryRow(query, c.VoterID, c.ContactType, c.Result, c.Notes, c.ContactedBy).Scan(&c.ID, &c.ContactedAt)
}

func (r *VoterRepository) ContactHistory(voterID int) ([]model.VoterContact, error) {
	rows, err := r.DB.Query(
		`SELECT id, voter_id, contact_type, result, notes, contacted_by, contacted_at
         FROM voter_contacts WHERE voter_id=$1 ORDER BY contacted_at DESC`, voterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []model.VoterContact{}
	for rows.Next() {
		var c model.VoterContact
		if err := rows.Scan(&c.ID, &c.VoterID, &c.ContactType, &c.Result, &c.Notes, &c.ContactedBy, &c.ContactedAt); err != nil {
			return nil, err
		}
		history = append(history, c)
	}
	return history, rows.Err()
}

// CheckIn records a voter at an event; repeat scans are idempotent.
func (r *VoterRepository) CheckIn(voterID, eventID int) (*model.VoterCheckin, error) {
	var c model.VoterCheckin
	err := r.DB.QueryRow(`
        INSERT INTO voter_checkins (voter_id, event_id)
        VALUES ($1, $2)
        ON CONFLICT (voter_id, event_id) DO UPDATE SET voter_id = EXCLUDED.voter_id
        RETURNING id, voter_id, event_id, checked_in_at
    `, voterID, eventID).Scan(&c.ID, &c.VoterID, &c.EventID, &c.CheckedInAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// BackfillQRTokens assigns tokens to voters that predate QR check-in.
func (r *VoterRepository) BackfillQRTokens() (int, error) {
	rows, err := r.DB.Query(`SELECT id FROM voters WHERE qr_token = ''`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := r.DB.Exec(`UPDATE voters SET qr_token=$1 WHERE id=$2`, uuid.NewString(), id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
