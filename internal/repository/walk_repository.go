package repository

import (
	"database/sql"
	"time"

	"github.com/fieldops/campaigntext-backend/internal/model"
)

type WalkRepository struct {
	DB *sql.DB
}

const walkColumns = `id, name, description, assigned_to, status, created_at`
const walkAddressColumns = `id, walk_id, address, unit, city, zip, voter_name, voter_id, result, notes, knocked_at, sort_order, lat, lng, gps_lat, gps_lng, gps_accuracy, gps_verified`

func (r *WalkRepository) Create(w *model.BlockWalk) error {
	if w.Status == "" {
		w.Status = "pending"
	}
	query := `
        INSERT INTO block_walks (name, description, assigned_to, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return r.DB.QueryRow(query, w.Name, w.Description, w.AssignedTo, w.Status).Scan(&w.ID, &w.CreatedAt)
}

func (r *WalkRepository) GetByID(id int) (*model.BlockWalk, error) {
	var w model.BlockWalk
	err := r.DB.QueryRow(`SELECT `+walkColumns+` FROM block_walks WHERE id=$1`, id).Scan(
		&w.ID, &w.Name, &w.Description, &w.AssignedTo, &w.Status, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalkRepository) ListAll() ([]model.BlockWalk, error) {
	rows, err := r.DB.Query(`SELECT ` + walkColumns + ` FROM block_walks ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	walks := []model.BlockWalk{}
	for rows.Next() {
		var w model.BlockWalk
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.AssignedTo, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		walks = append(walks, w)
	}
	return walks, rows.Err()
}

type WalkUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
	Status      *string `json:"status"`
}

func (r *WalkRepository) Update(id int, u WalkUpdate) error {
	query := `UPDATE block_walks SET
        name = COALESCE($1, name), description = COALESCE($2, description),
        assigned_to = COALESCE($3, assigned_to), status = COALESCE($4, status)
        WHERE id = $5`
	_, err := r.DB.Exec(query, u.Name, u.Description, u.AssignedTo, u.Status, id)
	return err
}

func (r *WalkRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM block_walks WHERE id=$1`, id)
	return err
}

// KnockStats returns total addresses and how many have been knocked.
func (r *WalkRepository) KnockStats(walkID int) (total, knocked int, err error) {
	err = r.DB.QueryRow(`
        SELECT COUNT(*), COUNT(*) FILTER (WHERE result != 'not_visited')
        FROM walk_addresses WHERE walk_id=$1
    `, walkID).Scan(&total, &knocked)
	return total, knocked, err
}

func scanWalkAddress(scan func(dest ...any) error) (*model.WalkAddress, error) {
	var a model.WalkAddress
	err := scan(&a.ID, &a.WalkID, &a.Address, &a.Unit, &a.City, &a.Zip, &a.VoterName, &a.VoterID,
		&a.Result, &a.Notes, &a.KnockedAt, &a.SortOrder, &a.Lat, &a.Lng, &a.GPSLat, &a.GPSLng,
		&a.GPSAccuracy, &a.GPSVerified)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *WalkRepository) ListAddresses(walkID int) ([]model.WalkAddress, error) {
	rows, err := r.DB.Query(
		`SELECT `+walkAddressColumns+` FROM walk_addresses WHERE walk_id=$1 ORDER BY sort_order, id`, walkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addresses := []model.WalkAddress{}
	for rows.Next() {
		a, err := scanWalkAddress(rows.Scan)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *a)
	}
	return addresses, rows.Err()
}

func (r *WalkRepository) GetAddress(walkID, addrID int) (*model.WalkAddress, error) {
	a, err := scanWalkAddress(r.DB.QueryRow(
		`SELECT `+walkAddressColumns+` FROM walk_addresses WHERE id=$1 AND walk_id=$2`, addrID, walkID).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// AddAddresses appends addresses in one transaction, preserving list order.
func (r *WalkRepository) AddAddresses(walkID int, addresses []model.WalkAddress) (int, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, a := range addresses {
		if a.Address == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO walk_addresses (walk_id, address, unit, city, zip, voter_name, voter_id, sort_order, lat, lng)
             VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			walkID, a.Address, a.Unit, a.City, a.Zip, a.VoterName, a.VoterID, added, a.Lat, a.Lng,
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

func (r *WalkRepository) UpdateAddressResult(walkID, addrID int, result, notes *string) error {
	var knockedAt *time.Time
	if result != nil && *result != "not_visited" {
		now := time.Now()
		knockedAt = &now
	}
	_, err := r.DB.Exec(
		`UPDATE walk_addresses SET result = COALESCE($1, result), notes = COALESCE($2, notes), knocked_at = COALESCE($3, knocked_at)
         WHERE id=$4 AND walk_id=$5`,
		result, notes, knockedAt, addrID, walkID,
	)
	return err
}

// LogKnock stores the disposition with the GPS evidence captured at the door.
func (r *WalkRepository) LogKnock(walkID, addrID int, result, notes string, gpsLat, gpsLng, gpsAccuracy *float64, gpsVerified bool) error {
	_, err := r.DB.Exec(
		`UPDATE walk_addresses SET result=$1, notes=$2, knocked_at=NOW(),
         gps_lat=$3, gps_lng=$4, gps_accuracy=$5, gps_verified=$6
         WHERE id=$7 AND walk_id=$8`,
		result, notes, gpsLat, gpsLng, gpsAccuracy, gpsVerified, addrID, walkID,
	)
	return err
}

func (r *WalkRepository) DeleteAddress(walkID, addrID int) error {
	_, err := r.DB.Exec(`DELETE FROM walk_addresses WHERE id=$1 AND walk_id=$2`, addrID, walkID)
	return err
}
