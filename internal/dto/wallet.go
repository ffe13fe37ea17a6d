package dto

import "time"

type WalletResponseDTO struct {
	Balance     int64 `json:"balance" example:"50000"`
	EarnedToday int64 `json:"earned_today" example:"120"`
	Blocked     bool  `json:"blocked" example:"false"`
}

type LedgerEntryDTO struct {
	ID           int64          `json:"id" example:"17"`
	Type         string         `json:"type" example:"earn"`
	PointsDelta  int64          `json:"points_delta" example:"48"`
	BalanceAfter int64          `json:"balance_after" example:"1048"`
	Meta         map[string]any `json:"meta,omitempty"`
	CreatedAt    time.Time      `json:"created_at" example:"2024-11-05T16:09:57+03:00"`
}

type WithdrawRequestDTO struct {
	Amount      float64 `json:"amount" example:"20"`
	Destination string  `json:"destination" example:"2377225624"`
}

type WithdrawResponseDTO struct {
	RequestID  int64  `json:"request_id" example:"3"`
	PointsCost int64  `json:"points_cost" example:"20000"`
	Status     string `json:"status" example:"PENDING"`
}

type WithdrawalDTO struct {
	ID         int64     `json:"id" example:"3"`
	Amount     float64   `json:"amount" example:"20"`
	PointsCost int64     `json:"points_cost" example:"20000"`
	Status     string    `json:"status" example:"PENDING"`
	CreatedAt  time.Time `json:"created_at" example:"2024-11-05T16:09:57+03:00"`
	UpdatedAt  time.Time `json:"updated_at" example:"2024-11-05T16:09:57+03:00"`
}
