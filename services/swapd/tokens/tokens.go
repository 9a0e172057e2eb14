package tokens

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"smartswap/storage"
)

const (
	// CustomTokenTTL bounds how long the custom token cache stays valid.
	CustomTokenTTL = 24 * time.Hour
	// MaxCustomTokens caps the custom token cache.
	MaxCustomTokens = 100

	favoritesKey    = "favorite_tokens"
	customTokensKey = "custom_tokens"
)

// Well-known mints.
const (
	MintSOL  = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
	MintBONK = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	MintJUP  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
	MintWIF  = "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"
	MintRAY  = "4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"
)

// DefaultFavorites is returned until a wallet saves its own list.
func DefaultFavorites() []string {
	return []string{MintSOL, MintUSDC, MintUSDT, MintBONK, MintJUP, MintWIF, MintRAY}
}

// Info describes a token as listed by the token API.
type Info struct {
	Address         string   `json:"address"`
	Symbol          string   `json:"symbol"`
	Name            string   `json:"name"`
	Decimals        int      `json:"decimals"`
	LogoURI         string   `json:"logoURI,omitempty"`
	IsVerified      bool     `json:"isVerified,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	FreezeAuthority *string  `json:"freezeAuthority,omitempty"`
	MintAuthority   *string  `json:"mintAuthority,omitempty"`
}

type favoriteList struct {
	Mints []string `json:"mints"`
}

type customCache struct {
	Tokens    []Info `json:"tokens"`
	UpdatedAt int64  `json:"updatedAt"`
}

// Store keeps per-wallet favourites and the shared custom token cache.
type Store struct {
	db     storage.Database
	now    func() time.Time
	logger *slog.Logger
	mu     sync.Mutex
}

// New constructs a Store over db.
func New(db storage.Database, now func() time.Time, logger *slog.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, now: now, logger: logger}
}

func favoritesKeyFor(wallet string) string {
	return fmt.Sprintf("%s:%s", favoritesKey, wallet)
}

// Favorites returns the wallet's favourite mints, or the defaults.
func (s *Store) Favorites(ctx context.Context, wallet string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.favorites(ctx, wallet)
}

func (s *Store) favorites(ctx context.Context, wallet string) []string {
	if ctx.Err() != nil {
		return DefaultFavorites()
	}
	var list favoriteList
	ok, err := storage.GetJSON(s.db, favoritesKeyFor(wallet), &list)
	if err != nil {
		s.logger.Warn("favorites unreadable", slog.Any("error", err))
	}
	if !ok || list.Mints == nil {
		return DefaultFavorites()
	}
	return list.Mints
}

// AddFavorite appends mint to the wallet's favourites if absent.
func (s *Store) AddFavorite(ctx context.Context, wallet, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mints := s.favorites(ctx, wallet)
	if slices.Contains(mints, mint) {
		return nil
	}
	return storage.PutJSON(s.db, favoritesKeyFor(wallet), favoriteList{Mints: append(mints, mint)})
}

// RemoveFavorite drops mint from the wallet's favourites.
func (s *Store) RemoveFavorite(ctx context.Context, wallet, mint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mints := slices.DeleteFunc(s.favorites(ctx, wallet), func(m string) bool { return m == mint })
	return storage.PutJSON(s.db, favoritesKeyFor(wallet), favoriteList{Mints: mints})
}

// CustomTokens returns cached tokens newest-first. An expired or unreadable
// cache reads as empty.
func (s *Store) CustomTokens(ctx context.Context) []Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customTokens(ctx)
}

func (s *Store) customTokens(ctx context.Context) []Info {
	if ctx.Err() != nil {
		return []Info{}
	}
	var cache customCache
	ok, err := storage.GetJSON(s.db, customTokensKey, &cache)
	if err != nil {
		s.logger.Warn("custom token cache unreadable", slog.Any("error", err))
	}
	if !ok {
		return []Info{}
	}
	if s.now().UnixMilli()-cache.UpdatedAt > CustomTokenTTL.Milliseconds() {
		return []Info{}
	}
	if cache.Tokens == nil {
		return []Info{}
	}
	return cache.Tokens
}

// AddCustomTokens prepends tokens not already cached and refreshes the TTL.
// Adding only known tokens is a no-op.
func (s *Store) AddCustomTokens(ctx context.Context, tokens ...Info) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.customTokens(ctx)
	seen := make(map[string]struct{}, len(existing)+len(tokens))
	for _, token := range existing {
		seen[token.Address] = struct{}{}
	}
	fresh := make([]Info, 0, len(tokens))
	for _, token := range tokens {
		if _, dup := seen[token.Address]; dup {
			continue
		}
		seen[token.Address] = struct{}{}
		fresh = append(fresh, token)
	}
	if len(fresh) == 0 {
		return nil
	}
	updated := append(fresh, existing...)
	if len(updated) > MaxCustomTokens {
		updated = updated[:MaxCustomTokens]
	}
	return storage.PutJSON(s.db, customTokensKey, customCache{Tokens: updated, UpdatedAt: s.now().UnixMilli()})
}
