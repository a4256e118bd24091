package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
)

// WalletService exposes the wallet read surface over the ledger.
type WalletService struct {
	ledger *LedgerService
}

func NewWalletService(db *sql.DB) *WalletService {
	return &WalletService{ledger: NewLedgerService(db)}
}

// GetBalance returns the authenticated user's wallet
// @Summary Get wallet balance
// @Description Current balance, available and blocked funds for the authenticated user
// @Tags wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Wallet "Wallet"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 404 {object} ErrorResponse "Wallet not found"
// @Router /wallet [get]
func (s *WalletService) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int)
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	wallet, err := s.ledger.GetWallet(userID)
	if err != nil {
		if err == ErrWalletNotFound {
			SendErrorResponse(w, "Wallet not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[WALLET] Balance query failed for user %d: %v", userID, err)
		SendErrorResponse(w, "Failed to fetch wallet", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(wallet)
}
