package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type createAccountRequest struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Balance decimal.Decimal `json:"balance"`
}

type transferRequest struct {
	FromID int64           `json:"from_id"`
	ToID   int64           `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
}

type transferResponse struct {
	TransferID    string          `json:"transfer_id"`
	Message       string          `json:"message"`
	SourceBalance decimal.Decimal `json:"source_balance"`
	DestBalance   decimal.Decimal `json:"dest_balance"`
}

type homeResponse struct {
	Message string `json:"message"`
}
