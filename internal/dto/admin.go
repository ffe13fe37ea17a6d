package dto

type AdminDecisionRequestDTO struct {
	// Reason for a rejection, payout proof for a paid mark.
	Note string `json:"note" example:"chargeback risk"`
}

type AdminWithdrawalResponseDTO struct {
	ID        int64  `json:"id" example:"3"`
	UserID    int    `json:"user_id" example:"1"`
	Status    string `json:"status" example:"APPROVED"`
	AdminNote string `json:"admin_note,omitempty"`
}

type AdminAccountResponseDTO struct {
	UserID  int   `json:"user_id" example:"1"`
	Blocked bool  `json:"blocked" example:"true"`
	Balance int64 `json:"balance" example:"50000"`
}

type AdminAuditResponseDTO struct {
	UserID     int   `json:"user_id" example:"1"`
	Balance    int64 `json:"balance" example:"50000"`
	LedgerSum  int64 `json:"ledger_sum" example:"50000"`
	Consistent bool  `json:"consistent" example:"true"`
}
