package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStorage(sqlx.NewDb(db, "postgres"), zap.NewNop()), mock
}

func TestSaveSubmission(t *testing.T) {
	t.Run("inserts and returns id", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO submissions")).
			WithArgs("sub-1", "session-1", "Ada", "Lovelace", "ada@example.com",
				nil, nil, nil, nil, `{"height":175}`, "Premium Tailored Trousers",
				"Premium Wool", nil, nil, 2, "{}", StatusPendingPayment).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-1"))

		id, err := s.SaveSubmission(context.Background(), &Submission{
			ID:              "sub-1",
			SessionID:       "session-1",
			FirstName:       "Ada",
			LastName:        "Lovelace",
			Email:           "ada@example.com",
			Measurements:    []byte(`{"height":175}`),
			ProductSelected: "Premium Tailored Trousers",
			FabricChoice:    "Premium Wool",
			Quantity:        2,
			OrderStatus:     StatusPendingPayment,
		})
		require.NoError(t, err)
		require.Equal(t, "sub-1", id)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("replayed session keeps first id", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (session_id)")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("sub-first"))

		id, err := s.SaveSubmission(context.Background(), &Submission{ID: "sub-second", SessionID: "session-1"})
		require.NoError(t, err)
		require.Equal(t, "sub-first", id)
	})

	t.Run("error wraps operation", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("INSERT INTO submissions").WillReturnError(errors.New("connection reset"))

		_, err := s.SaveSubmission(context.Background(), &Submission{ID: "sub-1"})
		require.ErrorContains(t, err, "storage.SaveSubmission")
	})
}

func TestGetSubmission(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		rows := sqlmock.NewRows([]string{"id", "session_id", "first_name", "email", "measurements", "quantity", "order_status"}).
			AddRow("sub-1", "session-1", "Ada", "ada@example.com", []byte(`{"height":175}`), 1, StatusPendingPayment)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM submissions WHERE id = $1")).
			WithArgs("sub-1").
			WillReturnRows(rows)

		sub, err := s.GetSubmission(context.Background(), "sub-1")
		require.NoError(t, err)
		require.Equal(t, "Ada", sub.FirstName)
		require.JSONEq(t, `{"height":175}`, string(sub.Measurements))
	})

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectQuery("SELECT").WillReturnError(sql.ErrNoRows)

		_, err := s.GetSubmission(context.Background(), "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConfirmPayment(t *testing.T) {
	paidAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	orderRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{
			"submission_id", "session_id", "order_id", "payment_id", "first_name", "last_name",
			"email", "phone", "fabric_choice", "quantity", "amount", "currency", "is_mock", "paid_at",
		}).AddRow("sub-1", "session-1", "order_1", "pay_1", "Ada", "Lovelace",
			"ada@example.com", nil, "Silk Blend", 1, int64(58000), "INR", false, paidAt)
	}

	t.Run("commits payment and submission", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM payments")).
			WithArgs("order_1", "sub-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(PaymentCreated))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
			WithArgs(PaymentPaid, "pay_1", "sig", "order_1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE submissions SET order_status")).
			WithArgs(StatusConfirmed, "sub-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FROM payments p")).
			WithArgs("order_1").
			WillReturnRows(orderRows())
		mock.ExpectCommit()

		order, changed, err := s.ConfirmPayment(context.Background(), "sub-1", "order_1", "pay_1", "sig")
		require.NoError(t, err)
		require.True(t, changed)
		require.Equal(t, int64(58000), order.Amount)
		require.Equal(t, "Silk Blend", order.FabricChoice)
		require.Nil(t, order.Phone)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already paid order is returned unchanged", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM payments")).
			WithArgs("order_1", "sub-1").
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(PaymentPaid))
		mock.ExpectQuery(regexp.QuoteMeta("FROM payments p")).
			WithArgs("order_1").
			WillReturnRows(orderRows())
		mock.ExpectCommit()

		order, changed, err := s.ConfirmPayment(context.Background(), "sub-1", "order_1", "pay_1", "sig")
		require.NoError(t, err)
		require.False(t, changed)
		require.Equal(t, "pay_1", order.PaymentID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("payment id used by another order", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM payments")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(PaymentCreated))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, _, err := s.ConfirmPayment(context.Background(), "sub-1", "order_1", "pay_1", "sig")
		require.ErrorIs(t, err, ErrPaymentReused)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown order rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM payments")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		_, _, err := s.ConfirmPayment(context.Background(), "sub-1", "order_x", "pay_1", "sig")
		require.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkConfirmed(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec("UPDATE submissions").WithArgs(StatusConfirmed, "sub-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE submissions").WithArgs(StatusConfirmed, "nope").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.MarkConfirmed(context.Background(), "sub-1"))
	require.ErrorIs(t, s.MarkConfirmed(context.Background(), "nope"), ErrNotFound)
}

func TestCreatePaymentAndFitting(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
		WithArgs("order_1", "sub-1", int64(90000), "INR", 2, true, PaymentCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO fittings")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.CreatePayment(context.Background(), &Payment{
		OrderID: "order_1", SubmissionID: "sub-1", Amount: 90000, Currency: "INR",
		Quantity: 2, IsMock: true, Status: PaymentCreated,
	}))
	require.NoError(t, s.SaveFitting(context.Background(), &Fitting{
		ID: "fit-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		PreferredDate: paidDay(), PreferredTime: "10:00 AM", FittingType: "styling_advice",
		Status: FittingScheduled,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func paidDay() time.Time {
	return time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
}
