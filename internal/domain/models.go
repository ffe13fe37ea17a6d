package domain

import "time"

type UserAccount struct {
	ID                int        `db:"id"`
	Login             string     `db:"login"`
	PasswordHash      string     `db:"password_hash"`
	IsAdmin           bool       `db:"is_admin"`
	Blocked           bool       `db:"blocked"`
	PointBalance      int64      `db:"point_balance"`
	PointsEarnedToday int64      `db:"points_earned_today"`
	LastAccrualAt     *time.Time `db:"last_accrual_at"`
	CreatedAt         time.Time  `db:"created_at"`
}

const (
	// SessionOpen сессия активна, принимает heartbeat;
	SessionOpen string = "OPEN"
	// SessionApproved сессия закрыта, баллы начислены;
	SessionApproved string = "APPROVED"
	// SessionAbandoned сессия закрыта по таймауту, без начисления;
	SessionAbandoned string = "ABANDONED"
)

type PlaySession struct {
	ID              string    `db:"id"`
	UserID          int       `db:"user_id"`
	GameID          string    `db:"game_id"`
	Status          string    `db:"status"`
	StartedAt       time.Time `db:"started_at"`
	LastHeartbeatAt time.Time `db:"last_heartbeat_at"`
	HeartbeatCount  int       `db:"heartbeat_count"`
	ApprovedMinutes int       `db:"approved_minutes"`
}

const (
	EntryEarn           string = "earn"
	EntryWithdrawLock   string = "withdraw_lock"
	EntryWithdrawUnlock string = "withdraw_unlock"
	EntryWithdrawSettle string = "withdraw_settle"
	EntryAdminAdjust    string = "admin_adjust"
	EntryRefund         string = "refund"
)

// LedgerEntry is append-only: every balance mutation is written together
// with exactly one entry in the same transaction.
type LedgerEntry struct {
	ID           int64          `db:"id"`
	UserID       int            `db:"user_id"`
	Type         string         `db:"type"`
	PointsDelta  int64          `db:"points_delta"`
	BalanceAfter int64          `db:"balance_after"`
	Meta         map[string]any `db:"meta"`
	CreatedAt    time.Time      `db:"created_at"`
}

const (
	WithdrawPending  string = "PENDING"
	WithdrawApproved string = "APPROVED"
	WithdrawRejected string = "REJECTED"
	WithdrawPaid     string = "PAID"
)

type WithdrawRequest struct {
	ID             int64     `db:"id"`
	UserID         int       `db:"user_id"`
	AmountCurrency float64   `db:"amount_currency"`
	PointsCost     int64     `db:"points_cost"`
	Status         string    `db:"status"`
	Destination    string    `db:"destination"`
	AdminNote      string    `db:"admin_note"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
