package dto

type StartSessionRequestDTO struct {
	GameID string `json:"game_id" example:"runner-3d"`
}

type StartSessionResponseDTO struct {
	SessionID string `json:"session_id" example:"8a9f0b44-91c5-4f0e-9c4e-6a9c1d3e5b77"`
}

type HeartbeatRequestDTO struct {
	// Active carries the client interaction signal (mouse/touch/focus).
	Active bool `json:"active" example:"true"`
}

type HeartbeatResponseDTO struct {
	ApprovedMinutes int `json:"approved_minutes" example:"12"`
	HeartbeatCount  int `json:"heartbeat_count" example:"13"`
}

type SubmitSessionResponseDTO struct {
	PointsEarned int64 `json:"points_earned" example:"48"`
	NewBalance   int64 `json:"new_balance" example:"1048"`
}
