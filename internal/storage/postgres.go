package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"tailoring-bot/internal/config"
)

const (
	StatusPendingPayment = "pending_payment"
	StatusConfirmed      = "confirmed"

	PaymentCreated = "created"
	PaymentPaid    = "paid"

	FittingScheduled = "scheduled"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrPaymentReused means the gateway payment already settled another order.
	ErrPaymentReused = errors.New("storage: payment already used for another order")
)

type Submission struct {
	ID                    string    `db:"id"`
	SessionID             string    `db:"session_id"`
	FirstName             string    `db:"first_name"`
	LastName              string    `db:"last_name"`
	Email                 string    `db:"email"`
	Phone                 *string   `db:"phone"`
	Age                   *int      `db:"age"`
	BodyType              *string   `db:"body_type"`
	SpecialConsiderations *string   `db:"special_considerations"`
	Measurements          []byte    `db:"measurements"`
	ProductSelected       string    `db:"product_selected"`
	FabricChoice          string    `db:"fabric_choice"`
	StylePreferences      *string   `db:"style_preferences"`
	Notes                 *string   `db:"notes"`
	Quantity              int       `db:"quantity"`
	Images                []byte    `db:"images"`
	OrderStatus           string    `db:"order_status"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

type Fitting struct {
	ID            string    `db:"id"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"`
	Phone         *string   `db:"phone"`
	PreferredDate time.Time `db:"preferred_date"`
	PreferredTime string    `db:"preferred_time"`
	FittingType   string    `db:"fitting_type"`
	Notes         *string   `db:"notes"`
	Status        string    `db:"status"`
	CreatedAt     time.Time `db:"created_at"`
}

type Payment struct {
	OrderID      string     `db:"order_id"`
	SubmissionID string     `db:"submission_id"`
	Amount       int64      `db:"amount"`
	Currency     string     `db:"currency"`
	Quantity     int        `db:"quantity"`
	IsMock       bool       `db:"is_mock"`
	PaymentID    *string    `db:"payment_id"`
	Signature    *string    `db:"signature"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	PaidAt       *time.Time `db:"paid_at"`
}

// ConfirmedOrder is a paid submission joined with its payment.
type ConfirmedOrder struct {
	SubmissionID string    `db:"submission_id"`
	SessionID    string    `db:"session_id"`
	OrderID      string    `db:"order_id"`
	PaymentID    string    `db:"payment_id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	Phone        *string   `db:"phone"`
	FabricChoice string    `db:"fabric_choice"`
	Quantity     int       `db:"quantity"`
	Amount       int64     `db:"amount"`
	Currency     string    `db:"currency"`
	IsMock       bool      `db:"is_mock"`
	PaidAt       time.Time `db:"paid_at"`
}

type PostgresStorage struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Connect opens a pool and retries until PostgreSQL answers or the retry
// window closes.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sqlx.DB, error) {
	const operation = "storage.Connect"

	var db *sqlx.DB

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name))

	err := backoff.RetryNotify(
		func() error {
			conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			db = conn
			return nil
		},
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return db, nil
}

func NewPostgresStorage(db *sqlx.DB, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{db: db, logger: logger}
}

// SaveSubmission stores a submission and returns its id. A repeated session
// id returns the id stored first.
func (s *PostgresStorage) SaveSubmission(ctx context.Context, sub *Submission) (string, error) {
	const operation = "storage.SaveSubmission"

	const query = `
        INSERT INTO submissions (
            id, session_id, first_name, last_name, email, phone, age, body_type,
            special_considerations, measurements, product_selected, fabric_choice,
            style_preferences, notes, quantity, images, order_status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
        ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
        RETURNING id
    `

	images := sub.Images
	if len(images) == 0 {
		images = []byte("{}")
	}

	var id string
	err := s.db.QueryRowxContext(ctx, query,
		sub.ID,
		sub.SessionID,
		sub.FirstName,
		sub.LastName,
		sub.Email,
		sub.Phone,
		sub.Age,
		sub.BodyType,
		sub.SpecialConsiderations,
		string(sub.Measurements),
		sub.ProductSelected,
		sub.FabricChoice,
		sub.StylePreferences,
		sub.Notes,
		sub.Quantity,
		string(images),
		sub.OrderStatus,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}

	if id != sub.ID {
		s.logger.Info("Submission replayed for existing session",
			zap.String("session_id", sub.SessionID),
			zap.String("submission_id", id))
	}
	return id, nil
}

func (s *PostgresStorage) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	const operation = "storage.GetSubmission"

	const query = `SELECT * FROM submissions WHERE id = $1`

	var sub Submission
	if err := s.db.GetContext(ctx, &sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &sub, nil
}

func (s *PostgresStorage) SaveFitting(ctx context.Context, f *Fitting) error {
	const operation = "storage.SaveFitting"

	const query = `
        INSERT INTO fittings (
            id, first_name, last_name, email, phone, preferred_date,
            preferred_time, fitting_type, notes, status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `

	_, err := s.db.ExecContext(ctx, query,
		f.ID,
		f.FirstName,
		f.LastName,
		f.Email,
		f.Phone,
		f.PreferredDate,
		f.PreferredTime,
		f.FittingType,
		f.Notes,
		f.Status,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) CreatePayment(ctx context.Context, p *Payment) error {
	const operation = "storage.CreatePayment"

	const query = `
        INSERT INTO payments (order_id, submission_id, amount, currency, quantity, is_mock, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := s.db.ExecContext(ctx, query,
		p.OrderID,
		p.SubmissionID,
		p.Amount,
		p.Currency,
		p.Quantity,
		p.IsMock,
		p.Status,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return nil
}

func (s *PostgresStorage) GetPayment(ctx context.Context, orderID string) (*Payment, error) {
	const operation = "storage.GetPayment"

	const query = `SELECT * FROM payments WHERE order_id = $1`

	var p Payment
	if err := s.db.GetContext(ctx, &p, query, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return &p, nil
}

const confirmedOrderQuery = `
    SELECT s.id AS submission_id, s.session_id, p.order_id, p.payment_id,
           s.first_name, s.last_name, s.email, s.phone, s.fabric_choice,
           p.quantity, p.amount, p.currency, p.is_mock, p.paid_at
    FROM payments p
    JOIN submissions s ON s.id = p.submission_id
    WHERE p.status = 'paid'
`

// ConfirmPayment marks the gateway order paid and its submission confirmed
// in one transaction. Confirming an already paid order returns it again with
// changed set to false.
func (s *PostgresStorage) ConfirmPayment(ctx context.Context, submissionID, orderID, paymentID, signature string) (*ConfirmedOrder, bool, error) {
	const operation = "storage.ConfirmPayment"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%s: begin: %w", operation, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.logger.Error("Failed to rollback transaction", zap.Error(err))
		}
	}()

	var status string
	err = tx.GetContext(ctx, &status,
		`SELECT status FROM payments WHERE order_id = $1 AND submission_id = $2 FOR UPDATE`,
		orderID, submissionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: lock payment: %w", operation, err)
	}

	changed := status != PaymentPaid
	if changed {
		if _, err := tx.ExecContext(ctx, `
            UPDATE payments
            SET status = $1, payment_id = $2, signature = $3, paid_at = NOW()
            WHERE order_id = $4
        `, PaymentPaid, paymentID, signature, orderID); err != nil {
			if isUniqueViolation(err) {
				return nil, false, ErrPaymentReused
			}
			return nil, false, fmt.Errorf("%s: update payment: %w", operation, err)
		}

		if _, err := tx.ExecContext(ctx, `
            UPDATE submissions SET order_status = $1, updated_at = NOW() WHERE id = $2
        `, StatusConfirmed, submissionID); err != nil {
			return nil, false, fmt.Errorf("%s: update submission: %w", operation, err)
		}
	}

	var order ConfirmedOrder
	if err := tx.GetContext(ctx, &order, confirmedOrderQuery+" AND p.order_id = $1", orderID); err != nil {
		return nil, false, fmt.Errorf("%s: load order: %w", operation, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("%s: commit: %w", operation, err)
	}
	return &order, changed, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// MarkConfirmed confirms a submission without a gateway payment.
func (s *PostgresStorage) MarkConfirmed(ctx context.Context, submissionID string) error {
	const operation = "storage.MarkConfirmed"

	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET order_status = $1, updated_at = NOW() WHERE id = $2`,
		StatusConfirmed, submissionID)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", operation, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStorage) ConfirmedOrders(ctx context.Context) ([]ConfirmedOrder, error) {
	const operation = "storage.ConfirmedOrders"

	var orders []ConfirmedOrder
	if err := s.db.SelectContext(ctx, &orders, confirmedOrderQuery+" ORDER BY p.paid_at DESC"); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return orders, nil
}

func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
