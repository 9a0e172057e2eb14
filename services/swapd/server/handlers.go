package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"smartswap/native/loyalty"
	"smartswap/observability/logging"
	"smartswap/services/swapd/executor"
	"smartswap/services/swapd/quote"
	"smartswap/services/swapd/tokens"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Error("health check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	campaigns := s.registry.Campaigns()
	views := make([]loyalty.View, 0, len(campaigns))
	for _, c := range campaigns {
		views = append(views, loyalty.NewView(c, now))
	}
	active := ""
	if c, err := s.registry.ActiveOrDefault(now); err == nil {
		active = c.ID
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": views, "active": active})
}

func (s *Server) handleActiveCampaign(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	c, err := s.registry.ActiveOrDefault(now)
	if err != nil {
		writeError(w, r, errorStatus(w, err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loyalty.NewView(c, now))
}

func (s *Server) handleCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, errorStatus(w, err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loyalty.NewView(c, s.now()))
}

func (s *Server) handleFee(w http.ResponseWriter, r *http.Request) {
	fee, err := s.swaps.Fee(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		writeError(w, r, errorStatus(w, err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req executor.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := s.swaps.Quote(r.Context(), req)
	if err != nil {
		writeError(w, r, errorStatus(w, err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleSwap answers 200 for confirmed swaps. Uncertain and failed attempts
// still return the audited result alongside the error.
func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req executor.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}
	res, err := s.swaps.Execute(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case res != nil:
		writeJSON(w, errorStatus(w, err), map[string]any{"result": res, "error": err.Error()})
	default:
		s.logger.Warn("swap rejected before signing", logging.Wallet(req.Wallet), slog.Any("error", err))
		writeError(w, r, errorStatus(w, err), err.Error())
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotImplemented, "history not configured")
		return
	}
	records, err := s.history.List(r.Context(), chi.URLParam(r, "wallet"))
	if err != nil {
		s.logger.Error("history list failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"swaps": records})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, r, http.StatusNotImplemented, "history not configured")
		return
	}
	if err := s.history.Clear(r.Context(), chi.URLParam(r, "wallet")); err != nil {
		s.logger.Error("history clear failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "history unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, r, http.StatusNotImplemented, "token store not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mints": s.tokens.Favorites(r.Context(), chi.URLParam(r, "wallet"))})
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	s.updateFavorite(w, r, s.tokens.AddFavorite)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	s.updateFavorite(w, r, s.tokens.RemoveFavorite)
}

func (s *Server) updateFavorite(w http.ResponseWriter, r *http.Request, update func(ctx context.Context, wallet, mint string) error) {
	if s.tokens == nil {
		writeError(w, r, http.StatusNotImplemented, "token store not configured")
		return
	}
	wallet := strings.TrimSpace(chi.URLParam(r, "wallet"))
	mint := strings.TrimSpace(chi.URLParam(r, "mint"))
	if wallet == "" {
		writeError(w, r, http.StatusBadRequest, "wallet required")
		return
	}
	if err := quote.ValidateMint("mint", mint); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := update(r.Context(), wallet, mint); err != nil {
		s.logger.Error("favorites update failed", logging.Wallet(wallet), slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "favorites unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mints": s.tokens.Favorites(r.Context(), wallet)})
}

func (s *Server) handleCustomTokens(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, r, http.StatusNotImplemented, "token store not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": s.tokens.CustomTokens(r.Context())})
}

func (s *Server) handleAddCustomTokens(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, r, http.StatusNotImplemented, "token store not configured")
		return
	}
	var list []tokens.Info
	if err := decodeJSON(w, r, &list); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid payload")
		return
	}
	for _, token := range list {
		if err := quote.ValidateMint("address", token.Address); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.tokens.AddCustomTokens(r.Context(), list...); err != nil {
		s.logger.Error("custom token cache update failed", slog.Any("error", err))
		writeError(w, r, http.StatusInternalServerError, "token cache unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": s.tokens.CustomTokens(r.Context())})
}
