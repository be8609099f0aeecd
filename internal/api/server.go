package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"omerta/internal/auth"
	"omerta/internal/config"
	"omerta/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const callerContextKey contextKey = "caller"

type CallerContext struct {
	Address string
	Token   string
}

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	tokens  *auth.TokenService
	game    *game.Service
	metrics *metrics
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, tokens *auth.TokenService, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		tokens:  tokens,
		game:    gameSvc,
		metrics: newMetrics(),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.metrics.middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/token", s.handleIssueToken)
		r.Get("/stats", s.handleStats)
		r.Get("/rates", s.handleRates)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/players", s.handleRegister)
			r.Get("/dashboard", s.handleDashboard)

			r.Post("/slots/{index}/unlock", s.handleUnlockSlot)
			r.Post("/slots/{index}/tier", s.handleBuyTierSlot)

			r.Post("/businesses", s.handleCreateBusiness)
			r.Post("/businesses/{index}/upgrade", s.handleUpgradeBusiness)
			r.Post("/businesses/{index}/sell", s.handleSellBusiness)

			r.Post("/earnings/update", s.handleUpdateEarnings)
			r.Post("/earnings/claim", s.handleClaimEarnings)

			r.Get("/nfts/{serial}", s.handleNFTDetail)
			r.Post("/nfts/{serial}/transfer", s.handleTransferNFT)
			r.Post("/nfts/{serial}/burn", s.handleBurnNFT)
			r.Post("/nfts/{serial}/sync", s.handleSyncOwner)
			r.Post("/nfts/{serial}/deactivate", s.handleDeactivateBurned)

			r.Post("/admin/pause", s.handleSetPaused)
			r.Post("/admin/treasury-fee", s.handleSetTreasuryFee)
			r.Post("/admin/rates", s.handleSetBusinessRate)
			r.Post("/admin/referrals", s.handleCreditReferral)
		})
	})
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		address, err := s.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), callerContextKey, CallerContext{
			Address: address,
			Token:   token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) (CallerContext, error) {
	v := ctx.Value(callerContextKey)
	caller, ok := v.(CallerContext)
	if !ok || caller.Address == "" {
		return CallerContext{}, errors.New("missing auth context")
	}
	return caller, nil
}

// handleIssueToken exchanges a wallet address for a bearer token. Signature
// verification against the wallet key is out of scope for the demo surface;
// the address just has to be well formed.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	address := strings.TrimSpace(in.Address)
	if err := game.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token, expires, err := s.tokens.Issue(address)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.Unix(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.RegisterPlayer(r.Context(), game.RegisterPlayerInput{
		Address:        caller.Address,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.Dashboard(r.Context(), caller.Address)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func slotIndexParam(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("invalid slot index")
	}
	return idx, nil
}

func serialParam(r *http.Request) (int64, error) {
	serial, err := strconv.ParseInt(chi.URLParam(r, "serial"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid nft serial")
	}
	return serial, nil
}

func (s *Server) handleUnlockSlot(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	idx, err := slotIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.UnlockSlot(r.Context(), game.UnlockSlotInput{
		Address:        caller.Address,
		SlotIndex:      idx,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuyTierSlot(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	idx, err := slotIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		Tier int32 `json:"tier"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.BuyTierSlot(r.Context(), game.BuyTierSlotInput{
		Address:        caller.Address,
		SlotIndex:      idx,
		TierIndex:      in.Tier,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		SlotIndex      int   `json:"slot_index"`
		TypeIndex      int32 `json:"type_index"`
		AmountLamports int64 `json:"amount_lamports"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateBusiness(r.Context(), game.CreateBusinessInput{
		Address:        caller.Address,
		SlotIndex:      in.SlotIndex,
		TypeIndex:      in.TypeIndex,
		AmountLamports: in.AmountLamports,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpgradeBusiness(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	idx, err := slotIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.UpgradeBusiness(r.Context(), game.UpgradeBusinessInput{
		Address:        caller.Address,
		SlotIndex:      idx,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSellBusiness(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	idx, err := slotIndexParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SellBusiness(r.Context(), game.SellBusinessInput{
		Address:        caller.Address,
		SlotIndex:      idx,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleUpdateEarnings cranks accrual for any player, not just the caller.
// The body is optional; with no address it targets the caller.
func (s *Server) handleUpdateEarnings(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	target := caller.Address
	if r.ContentLength > 0 {
		var in struct {
			Address string `json:"address"`
		}
		if err := decodeJSON(r, &in); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(in.Address) != "" {
			target = strings.TrimSpace(in.Address)
		}
	}
	out, err := s.game.UpdateEarnings(r.Context(), game.UpdateEarningsInput{PlayerAddress: target})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleClaimEarnings(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.game.ClaimEarnings(r.Context(), game.ClaimEarningsInput{
		Address:        caller.Address,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNFTDetail(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.NFT(r.Context(), serial)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransferNFT(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	serial, err := serialParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var in struct {
		NewOwner string `json:"new_owner"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.game.TransferNFT(r.Context(), game.TransferNFTInput{
		CallerAddress:  caller.Address,
		Serial:         serial,
		NewOwner:       strings.TrimSpace(in.NewOwner),
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBurnNFT(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	serial, err := serialParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.game.BurnNFT(r.Context(), game.BurnNFTInput{
		CallerAddress:  caller.Address,
		Serial:         serial,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSyncOwner(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SyncBusinessOwner(r.Context(), game.SyncOwnerInput{
		Serial:         serial,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeactivateBurned(w http.ResponseWriter, r *http.Request) {
	serial, err := serialParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.DeactivateBurned(r.Context(), serial); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Rates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": out})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	out, err := s.game.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": out})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Paused bool `json:"paused"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetPaused(r.Context(), caller.Address, in.Paused); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": in.Paused})
}

func (s *Server) handleSetTreasuryFee(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		FeeBp int64 `json:"fee_bp"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetTreasuryFee(r.Context(), caller.Address, in.FeeBp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"fee_bp": in.FeeBp})
}

func (s *Server) handleSetBusinessRate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		TypeIndex   int32 `json:"type_index"`
		DailyRateBp int64 `json:"daily_rate_bp"`
		MinDeposit  int64 `json:"min_deposit"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetBusinessRate(r.Context(), caller.Address, in.TypeIndex, in.DailyRateBp, in.MinDeposit); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCreditReferral(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		Address        string `json:"address"`
		AmountLamports int64  `json:"amount_lamports"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.game.CreditReferral(r.Context(), game.CreditReferralInput{
		AuthorityAddress: caller.Address,
		PlayerAddress:    strings.TrimSpace(in.Address),
		AmountLamports:   in.AmountLamports,
		IdempotencyKey:   idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrDuplicateIdempotency), errors.Is(err, game.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrPlayerExists), errors.Is(err, game.ErrOwnerInSync):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrPlayerNotFound), errors.Is(err, game.ErrNFTNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, game.ErrGamePaused):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, game.ErrUpdateThrottled):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds),
		errors.Is(err, game.ErrDepositTooSmall),
		errors.Is(err, game.ErrInvalidBusinessType),
		errors.Is(err, game.ErrInvalidTier),
		errors.Is(err, game.ErrInvalidLevel),
		errors.Is(err, game.ErrSlotOutOfRange),
		errors.Is(err, game.ErrSlotLocked),
		errors.Is(err, game.ErrSlotOccupied),
		errors.Is(err, game.ErrSlotEmpty),
		errors.Is(err, game.ErrSlotUnlocked),
		errors.Is(err, game.ErrMaxLevel),
		errors.Is(err, game.ErrMaxBusinesses),
		errors.Is(err, game.ErrEntryFeeUnpaid),
		errors.Is(err, game.ErrNothingToClaim),
		errors.Is(err, game.ErrClaimBelowFee),
		errors.Is(err, game.ErrBusinessInactive),
		errors.Is(err, game.ErrNFTBurned),
		errors.Is(err, game.ErrNFTAlive),
		errors.Is(err, game.ErrNoFreeSlot),
		errors.Is(err, game.ErrAmountOverflow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrPoolUnderfunded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
