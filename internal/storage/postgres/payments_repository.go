package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/openbookings/server/internal/domain/payments"
)

const paymentColumns = `id, user_id, booking_id, amount_cents, phone_number, status, created_at`

func (r *PaymentRepository) Create(ctx context.Context, params payments.CreateParams) (*payments.Payment, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO payments (user_id, booking_id, amount_cents, phone_number, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+paymentColumns+`
	`, params.UserID, params.BookingID, params.AmountCents, params.PhoneNumber, params.Status)

	payment, err := scanPayment(row)
	if err != nil {
		// payments.booking_id carries a unique index: one payment per booking.
		if isUniqueViolation(err) {
			return nil, payments.ErrAlreadyPaid
		}
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payments.Payment, error) {
	row := r.queryer().QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE id = $1
	`, id)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, payments.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*payments.Payment, error) {
	row := r.queryer().QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1
	`, bookingID)

	payment, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, payments.ErrNotFound
		}
		return nil, fmt.Errorf("get payment by booking: %w", err)
	}
	return payment, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]payments.Payment, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []payments.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

func scanPayment(row pgx.Row) (*payments.Payment, error) {
	var payment payments.Payment
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.BookingID,
		&payment.AmountCents,
		&payment.PhoneNumber,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
