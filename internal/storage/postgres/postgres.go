package postgres

import (
	"database/sql"
	serrors "errors"
	"fmt"

	"mistribazar/internal/dispatch"
	"mistribazar/internal/models/acceptance"
	"mistribazar/internal/models/bid"
	"mistribazar/internal/models/job"
	"mistribazar/internal/models/user"

	_ "github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err := db.Prepare(`
	CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		consumerId UUID NOT NULL,
		category VARCHAR(20) NOT NULL,
		jobType VARCHAR(20) NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		budgetMin NUMERIC(10,2) NOT NULL,
		budgetMax NUMERIC(10,2) NOT NULL,
		latitude NUMERIC(9,6) NOT NULL,
		longitude NUMERIC(9,6) NOT NULL,
		address TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
		selectedProvider UUID,
		createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = stmt.Exec()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err = db.Prepare(`
	CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		jobId UUID REFERENCES jobs(id) ON DELETE CASCADE,
		bidderId UUID NOT NULL,
		amount NUMERIC(10,2) NOT NULL,
		estimatedDays INT NOT NULL,
		message TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = stmt.Exec()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stmt, err = db.Prepare(`
	CREATE TABLE IF NOT EXISTS jobAcceptances (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		jobId UUID REFERENCES jobs(id) ON DELETE CASCADE,
		workerId UUID NOT NULL,
		status VARCHAR(20) NOT NULL,
		note TEXT,
		createdAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(jobId, workerId)
	);
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = stmt.Exec()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) SaveJob(j job.Job) (job.Job, error) {
	const op = "storage.postgres.SaveJob"
	var result job.Job

	stmt, err := s.db.Prepare(`
	INSERT INTO jobs(consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'OPEN')
	RETURNING id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, createdAt
	`)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(
		j.ConsumerId,
		j.Category,
		j.JobType,
		j.Title,
		j.Description,
		j.BudgetMin,
		j.BudgetMax,
		j.Latitude,
		j.Longitude,
		j.Address,
	).Scan(
		&result.Id, &result.ConsumerId, &result.Category, &result.JobType,
		&result.Title, &result.Description, &result.BudgetMin, &result.BudgetMax,
		&result.Latitude, &result.Longitude, &result.Address, &result.Status,
		&result.CreatedAt,
	)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) FetchJob(id string) (job.Job, error) {
	const op = "storage.postgres.FetchJob"

	stmt, err := s.db.Prepare(`
	SELECT id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, COALESCE(selectedProvider::text, ''), createdAt
	FROM jobs
	WHERE id=$1
	`)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	var j job.Job
	err = stmt.QueryRow(id).Scan(
		&j.Id, &j.ConsumerId, &j.Category, &j.JobType, &j.Title, &j.Description,
		&j.BudgetMin, &j.BudgetMax, &j.Latitude, &j.Longitude, &j.Address,
		&j.Status, &j.SelectedProvider, &j.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	return j, nil
}

func (s *Storage) ReadJobs(status job.Status, jobType job.JobType) ([]job.Job, error) {
	const op = "storage.postgres.ReadJobs"
	result := make([]job.Job, 0)

	stmt, err := s.db.Prepare(`
	SELECT id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, COALESCE(selectedProvider::text, ''), createdAt
	FROM jobs
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR jobType = $2)
	ORDER BY createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := stmt.Query(string(status), string(jobType))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var j job.Job
		err := rows.Scan(
			&j.Id, &j.ConsumerId, &j.Category, &j.JobType, &j.Title, &j.Description,
			&j.BudgetMin, &j.BudgetMax, &j.Latitude, &j.Longitude, &j.Address,
			&j.Status, &j.SelectedProvider, &j.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, j)
	}

	return result, nil
}

func (s *Storage) ReadMyJobs(consumerId string) ([]job.Job, error) {
	const op = "storage.postgres.ReadMyJobs"
	result := make([]job.Job, 0)

	stmt, err := s.db.Prepare(`
	SELECT id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, COALESCE(selectedProvider::text, ''), createdAt
	FROM jobs
	WHERE consumerId=$1
	ORDER BY createdAt DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := stmt.Query(consumerId)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var j job.Job
		err := rows.Scan(
			&j.Id, &j.ConsumerId, &j.Category, &j.JobType, &j.Title, &j.Description,
			&j.BudgetMin, &j.BudgetMax, &j.Latitude, &j.Longitude, &j.Address,
			&j.Status, &j.SelectedProvider, &j.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, j)
	}

	return result, nil
}

func (s *Storage) UpdateJob(j job.Job) (job.Job, error) {
	const op = "storage.postgres.UpdateJob"
	var result job.Job

	stmt, err := s.db.Prepare(`
	UPDATE jobs
	SET title = $1, description = $2, budgetMin = $3, budgetMax = $4
	WHERE id = $5
	RETURNING id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, COALESCE(selectedProvider::text, ''), createdAt
	`)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(j.Title, j.Description, j.BudgetMin, j.BudgetMax, j.Id).Scan(
		&result.Id, &result.ConsumerId, &result.Category, &result.JobType,
		&result.Title, &result.Description, &result.BudgetMin, &result.BudgetMax,
		&result.Latitude, &result.Longitude, &result.Address, &result.Status,
		&result.SelectedProvider, &result.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) SetJobStatus(id string, status job.Status) (job.Job, error) {
	const op = "storage.postgres.SetJobStatus"
	var result job.Job

	stmt, err := s.db.Prepare(`
	UPDATE jobs
	SET status = $1
	WHERE id = $2
	RETURNING id, consumerId, category, jobType, title, description, budgetMin, budgetMax, latitude, longitude, address, status, COALESCE(selectedProvider::text, ''), createdAt
	`)
	if err != nil {
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(string(status), id).Scan(
		&result.Id, &result.ConsumerId, &result.Category, &result.JobType,
		&result.Title, &result.Description, &result.BudgetMin, &result.BudgetMax,
		&result.Latitude, &result.Longitude, &result.Address, &result.Status,
		&result.SelectedProvider, &result.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return job.Job{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return job.Job{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) SaveBid(b bid.Bid) (bid.Bid, error) {
	const op = "storage.postgres.SaveBid"
	var result bid.Bid

	stmt, err := s.db.Prepare(`
	INSERT INTO bids(jobId, bidderId, amount, estimatedDays, message, status)
	VALUES ($1, $2, $3, $4, $5, 'PENDING')
	RETURNING id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	`)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(b.JobId, b.BidderId, b.Amount, b.EstimatedDays, b.Message).Scan(
		&result.Id, &result.JobId, &result.BidderId, &result.Amount,
		&result.EstimatedDays, &result.Message, &result.Status, &result.CreatedAt,
	)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) FetchBid(id string) (bid.Bid, error) {
	const op = "storage.postgres.FetchBid"

	stmt, err := s.db.Prepare(`
	SELECT id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	FROM bids
	WHERE id=$1
	`)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	var b bid.Bid
	err = stmt.QueryRow(id).Scan(
		&b.Id, &b.JobId, &b.BidderId, &b.Amount,
		&b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	return b, nil
}

func (s *Storage) ReadJobBids(jobId string) ([]bid.Bid, error) {
	const op = "storage.postgres.ReadJobBids"

	return s.readBids(op, `
	SELECT id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	FROM bids
	WHERE jobId=$1
	ORDER BY amount ASC, createdAt DESC
	`, jobId)
}

func (s *Storage) ReadMyBids(bidderId string) ([]bid.Bid, error) {
	const op = "storage.postgres.ReadMyBids"

	return s.readBids(op, `
	SELECT id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	FROM bids
	WHERE bidderId=$1
	ORDER BY createdAt DESC
	`, bidderId)
}

func (s *Storage) readBids(op, query, arg string) ([]bid.Bid, error) {
	result := make([]bid.Bid, 0)

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := stmt.Query(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var b bid.Bid
		err := rows.Scan(
			&b.Id, &b.JobId, &b.BidderId, &b.Amount,
			&b.EstimatedDays, &b.Message, &b.Status, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, b)
	}

	return result, nil
}

func (s *Storage) SetBidStatus(id string, status bid.Status) (bid.Bid, error) {
	const op = "storage.postgres.SetBidStatus"
	var result bid.Bid

	stmt, err := s.db.Prepare(`
	UPDATE bids
	SET status = $1
	WHERE id = $2
	RETURNING id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	`)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(string(status), id).Scan(
		&result.Id, &result.JobId, &result.BidderId, &result.Amount,
		&result.EstimatedDays, &result.Message, &result.Status, &result.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// ApplyBidAccept runs the whole dispatch transition in one transaction: the
// winning bid turns ACCEPTED, every other PENDING bid on the job turns
// REJECTED, and the job row moves to IN_PROGRESS. The job row is locked
// first so concurrent accepts serialize across processes.
func (s *Storage) ApplyBidAccept(jobId, bidId string) (bid.Bid, error) {
	const op = "storage.postgres.ApplyBidAccept"
	var result bid.Bid

	tx, err := s.db.Begin()
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`
	SELECT status FROM jobs WHERE id=$1 FOR UPDATE
	`, jobId).Scan(&status)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}
	if job.Status(status) != job.StatusOpen {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrJobNotOpen)
	}

	err = tx.QueryRow(`
	UPDATE bids
	SET status = 'ACCEPTED'
	WHERE id = $1 AND jobId = $2
	RETURNING id, jobId, bidderId, amount, estimatedDays, message, status, createdAt
	`, bidId, jobId).Scan(
		&result.Id, &result.JobId, &result.BidderId, &result.Amount,
		&result.EstimatedDays, &result.Message, &result.Status, &result.CreatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return bid.Bid{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(`
	UPDATE bids
	SET status = 'REJECTED'
	WHERE jobId = $1 AND id <> $2 AND status = 'PENDING'
	`, jobId, bidId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(`
	UPDATE jobs
	SET status = 'IN_PROGRESS', selectedProvider = $1
	WHERE id = $2
	`, result.BidderId, jobId)
	if err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return bid.Bid{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) SaveAcceptance(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error) {
	const op = "storage.postgres.SaveAcceptance"
	var result acceptance.JobAcceptance

	stmt, err := s.db.Prepare(`
	INSERT INTO jobAcceptances(jobId, workerId, status, note)
	VALUES ($1, $2, $3, $4)
	RETURNING id, jobId, workerId, status, note, createdAt
	`)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(a.JobId, a.WorkerId, string(a.Status), a.Note).Scan(
		&result.Id, &result.JobId, &result.WorkerId, &result.Status,
		&result.Note, &result.CreatedAt,
	)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) ReadJobAcceptances(jobId string) ([]acceptance.JobAcceptance, error) {
	const op = "storage.postgres.ReadJobAcceptances"

	return s.readAcceptances(op, `
	SELECT id, jobId, workerId, status, note, createdAt
	FROM jobAcceptances
	WHERE jobId=$1
	ORDER BY createdAt DESC
	`, jobId)
}

func (s *Storage) ReadMyAcceptances(workerId string) ([]acceptance.JobAcceptance, error) {
	const op = "storage.postgres.ReadMyAcceptances"

	return s.readAcceptances(op, `
	SELECT id, jobId, workerId, status, note, createdAt
	FROM jobAcceptances
	WHERE workerId=$1
	ORDER BY createdAt DESC
	`, workerId)
}

func (s *Storage) readAcceptances(op, query, arg string) ([]acceptance.JobAcceptance, error) {
	result := make([]acceptance.JobAcceptance, 0)

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := stmt.Query(arg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a acceptance.JobAcceptance
		err := rows.Scan(&a.Id, &a.JobId, &a.WorkerId, &a.Status, &a.Note, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}

	return result, nil
}

// ApplyDirectAccept creates the ACCEPTED record and claims the job in one
// transaction. The locked job row is re-checked so that of two racing
// workers only the first finds it OPEN.
func (s *Storage) ApplyDirectAccept(a acceptance.JobAcceptance) (acceptance.JobAcceptance, error) {
	const op = "storage.postgres.ApplyDirectAccept"
	var result acceptance.JobAcceptance

	tx, err := s.db.Begin()
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRow(`
	SELECT status FROM jobs WHERE id=$1 FOR UPDATE
	`, a.JobId).Scan(&status)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}
	if job.Status(status) != job.StatusOpen {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, dispatch.ErrJobNotOpen)
	}

	err = tx.QueryRow(`
	INSERT INTO jobAcceptances(jobId, workerId, status, note)
	VALUES ($1, $2, 'ACCEPTED', $3)
	RETURNING id, jobId, workerId, status, note, createdAt
	`, a.JobId, a.WorkerId, a.Note).Scan(
		&result.Id, &result.JobId, &result.WorkerId, &result.Status,
		&result.Note, &result.CreatedAt,
	)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	_, err = tx.Exec(`
	UPDATE jobs
	SET status = 'IN_PROGRESS', selectedProvider = $1
	WHERE id = $2
	`, a.WorkerId, a.JobId)
	if err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return acceptance.JobAcceptance{}, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (s *Storage) FetchUser(id string) (user.User, error) {
	const op = "storage.postgres.FetchUser"
	var usr user.User

	stmt, err := s.db.Prepare(`
	SELECT id, name, role, latitude, longitude, created_at, updated_at
	FROM users
	WHERE id=$1
	`)
	if err != nil {
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}

	err = stmt.QueryRow(id).Scan(
		&usr.Id, &usr.Name, &usr.Role, &usr.Latitude, &usr.Longitude,
		&usr.CreatedAt, &usr.UpdatedAt,
	)
	if err != nil {
		if serrors.Is(err, sql.ErrNoRows) {
			return user.User{}, fmt.Errorf("%s: %w", op, dispatch.ErrNotFound)
		}
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return usr, nil
}
