package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultNonceTTL bounds how long a login challenge can be answered
const DefaultNonceTTL = 5 * time.Minute

const loginPrefix = "Sign this message to authenticate with the market"

// LoginMessage is the text a wallet signs to redeem nonce for a token
func LoginMessage(nonce string) string {
	return loginPrefix + "\nNonce: " + nonce
}

// NonceStore issues single-use login challenges bound to a wallet. Consume
// reports true at most once per issued nonce, and never after it expires.
type NonceStore interface {
	Issue(ctx context.Context, wallet string) (nonce string, expiresAt time.Time, err error)
	Consume(ctx context.Context, wallet, nonce string) (bool, error)
}

type nonceKey struct {
	wallet string
	nonce  string
}

// MemoryNonceStore keeps challenges in process memory
type MemoryNonceStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[nonceKey]time.Time
	now     func() time.Time
}

func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &MemoryNonceStore{
		ttl:     ttl,
		pending: make(map[nonceKey]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryNonceStore) Issue(_ context.Context, wallet string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, exp := range s.pending {
		if !now.Before(exp) {
			delete(s.pending, k)
		}
	}
	nonce := uuid.NewString()
	exp := now.Add(s.ttl)
	s.pending[nonceKey{wallet: wallet, nonce: nonce}] = exp
	return nonce, exp, nil
}

func (s *MemoryNonceStore) Consume(_ context.Context, wallet, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := nonceKey{wallet: wallet, nonce: nonce}
	exp, ok := s.pending[k]
	if !ok {
		return false, nil
	}
	delete(s.pending, k)
	return s.now().Before(exp), nil
}
