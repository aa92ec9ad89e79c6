package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/karunaapp/backend-api-go/donations"
	"github.com/karunaapp/backend-api-go/missions"
	"github.com/karunaapp/backend-api-go/reports"
)

const queryTimeout = time.Second * 5

type Repository struct {
	pool *pgxpool.Pool
}

func New() *Repository {
	dbUrl := os.Getenv("DB_CONN_STR")
	pool, err := pgxpool.New(context.Background(), dbUrl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}

	return &Repository{
		pool: pool,
	}
}

func (repo *Repository) Close() {
	repo.pool.Close()
}

func (repo *Repository) GetReports(ctx context.Context, onlyPending bool) ([]reports.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := "SELECT r.id, r.description, r.people_in_need, r.status, r.timestamp, r.video_url, r.formatted_address, r.latitude, r.longitude " +
		"FROM reports r"
	if onlyPending {
		q = fmt.Sprintf("%s WHERE r.status='%s'", q, reports.StatusPendingMatch)
	}
	query, err := repo.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("could not query reports: %w", err)
	}

	var results []reports.Report
	for query.Next() {
		var result reports.Report
		result.Loc = make([]float64, 2)

		err := query.Scan(&result.ID,
			&result.Description,
			&result.PeopleInNeed,
			&result.Status,
			&result.Timestamp,
			&result.VideoURL,
			&result.FormattedAddress,
			&result.Loc[0],
			&result.Loc[1])
		if err != nil {
			continue
		}

		results = append(results, result)
	}

	return results, nil
}

func (repo *Repository) GetPendingReports(ctx context.Context) ([]reports.Report, error) {
	return repo.GetReports(ctx, true)
}

func (repo *Repository) GetDonations(ctx context.Context, onlyAvailable bool) ([]donations.Donation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := "SELECT d.id, d.resource_type, d.quantity, d.status, d.timestamp, d.pickup_address, d.pickup_contact, d.pickup_time, d.notes, d.latitude, d.longitude " +
		"FROM donations d"
	if onlyAvailable {
		q = fmt.Sprintf("%s WHERE d.status='%s'", q, donations.StatusAvailable)
	}
	query, err := repo.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("could not query donations: %w", err)
	}

	var results []donations.Donation
	for query.Next() {
		var result donations.Donation
		result.Loc = make([]float64, 2)

		err := query.Scan(&result.ID,
			&result.ResourceType,
			&result.Quantity,
			&result.Status,
			&result.Timestamp,
			&result.PickupAddress,
			&result.PickupContact,
			&result.PickupTime,
			&result.Notes,
			&result.Loc[0],
			&result.Loc[1])
		if err != nil {
			continue
		}

		results = append(results, result)
	}

	return results, nil
}

func (repo *Repository) GetAvailableDonations(ctx context.Context) ([]donations.Donation, error) {
	return repo.GetDonations(ctx, true)
}

func (repo *Repository) GetMissions(ctx context.Context) ([]missions.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := "SELECT m.id, m.report_id, m.donation_id, m.status, m.estimated_distance, m.estimated_duration, m.timestamp " +
		"FROM missions m"
	query, err := repo.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("could not query missions: %w", err)
	}

	var results []missions.Mission
	for query.Next() {
		var result missions.Mission

		err := query.Scan(&result.ID,
			&result.ReportID,
			&result.DonationID,
			&result.Status,
			&result.EstimatedDistance,
			&result.EstimatedDuration,
			&result.Timestamp)
		if err != nil {
			continue
		}

		results = append(results, result)
	}

	return results, nil
}

func (repo *Repository) CreateReport(ctx context.Context, req reports.CreateReportRequest, formattedAddress string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := `INSERT INTO reports(description, people_in_need, status, timestamp, video_url, formatted_address, latitude, longitude) VALUES ($1::varchar, $2::int, $3::varchar, $4::timestamp, $5::varchar, $6::varchar, $7::float8, $8::float8) RETURNING id`

	var id int64
	err := repo.pool.QueryRow(ctx, q, req.Description, req.PeopleInNeed, reports.StatusPendingMatch, time.Now(), req.VideoURL, formattedAddress, req.Latitude, req.Longitude).Scan(&id)
	if err != nil {
		return id, fmt.Errorf("could not insert report: %w", err)
	}

	return id, nil
}

func (repo *Repository) CreateDonation(ctx context.Context, req donations.CreateDonationRequest, formattedAddress string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if formattedAddress == "" {
		formattedAddress = req.PickupAddress
	}

	q := `INSERT INTO donations(resource_type, quantity, status, timestamp, pickup_address, pickup_contact, pickup_time, notes, latitude, longitude) VALUES ($1::varchar, $2::varchar, $3::varchar, $4::timestamp, $5::varchar, $6::varchar, $7::varchar, $8::varchar, $9::float8, $10::float8) RETURNING id`

	var id int64
	err := repo.pool.QueryRow(ctx, q, req.ResourceType, req.Quantity, donations.StatusAvailable, time.Now(), formattedAddress, req.PickupContact, req.PickupTime, req.Notes, req.Latitude, req.Longitude).Scan(&id)
	if err != nil {
		return id, fmt.Errorf("could not insert donation: %w", err)
	}

	return id, nil
}

func (repo *Repository) CreateMission(ctx context.Context, mission missions.Mission) (*missions.Mission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := `INSERT INTO missions(report_id, donation_id, status, estimated_distance, estimated_duration, timestamp) VALUES ($1::bigint, $2::bigint, $3::varchar, $4::float8, $5::int, $6::timestamp) RETURNING id, timestamp`

	err := repo.pool.QueryRow(ctx, q, mission.ReportID, mission.DonationID, mission.Status, mission.EstimatedDistance, mission.EstimatedDuration, time.Now()).
		Scan(&mission.ID, &mission.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("could not insert mission: %w", err)
	}

	return &mission, nil
}

// updateStatus flips a record's status only while it still holds the
// expected one. A concurrent pass that lost the race sees zero affected
// rows instead of claiming the record twice.
func (repo *Repository) updateStatus(ctx context.Context, table string, id int64, expected, next string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	q := fmt.Sprintf("UPDATE %s SET status=$1 WHERE id=$2 AND status=$3", table)
	tag, err := repo.pool.Exec(ctx, q, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("could not update %s status: %w", table, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (repo *Repository) AssignReport(ctx context.Context, id int64) (bool, error) {
	return repo.updateStatus(ctx, "reports", id, reports.StatusPendingMatch, reports.StatusAssigned)
}

func (repo *Repository) AssignDonation(ctx context.Context, id int64) (bool, error) {
	return repo.updateStatus(ctx, "donations", id, donations.StatusAvailable, donations.StatusAssigned)
}

func (repo *Repository) ReleaseReport(ctx context.Context, id int64) error {
	_, err := repo.updateStatus(ctx, "reports", id, reports.StatusAssigned, reports.StatusPendingMatch)
	return err
}

func (repo *Repository) ReleaseDonation(ctx context.Context, id int64) error {
	_, err := repo.updateStatus(ctx, "donations", id, donations.StatusAssigned, donations.StatusAvailable)
	return err
}
