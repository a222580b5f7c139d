package blockchain

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"amm-market/internal/config"
	"amm-market/internal/fixedpoint"
	"amm-market/internal/models"
)

// LedgerBalance is the book balance a market's escrow should hold
type LedgerBalance interface {
	SettlementBalance(ctx context.Context, market *models.Market) (fixedpoint.U128, error)
}

// SolanaClient reads SPL token balances of the escrow wallet
type SolanaClient struct {
	rpcClient *rpc.Client
}

// RPCURL returns the public endpoint for a cluster name
func RPCURL(network string) string {
	switch network {
	case "mainnet-beta":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	case "localnet":
		return "http://127.0.0.1:8899"
	}
	return "https://api.devnet.solana.com"
}

// NewSolanaClient creates a client for cfg.RPCURL, or the public endpoint of
// cfg.Network when no URL is set.
func NewSolanaClient(cfg config.SolanaConfig) *SolanaClient {
	url := cfg.RPCURL
	if url == "" {
		url = RPCURL(cfg.Network)
	}
	return &SolanaClient{rpcClient: rpc.New(url)}
}

// ValidateWalletAddress reports whether address is a base58 ed25519 public key
func ValidateWalletAddress(address string) bool {
	_, err := solana.PublicKeyFromBase58(address)
	return err == nil
}

// GetTokenAccountBalance sums the mint's token accounts owned by ownerAddress
func (s *SolanaClient) GetTokenAccountBalance(ctx context.Context, ownerAddress, mintAddress string) (uint64, error) {
	owner, err := solana.PublicKeyFromBase58(ownerAddress)
	if err != nil {
		return 0, fmt.Errorf("invalid owner address: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(mintAddress)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}

	resp, err := s.rpcClient.GetTokenAccountsByOwner(
		ctx,
		owner,
		&rpc.GetTokenAccountsConfig{Mint: &mint},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to get token accounts: %w", err)
	}

	var total uint64
	for _, account := range resp.Value {
		amount, err := decodeTokenAmount(account.Account.Data.GetBinary())
		if err != nil {
			return 0, fmt.Errorf("decode token account %s: %w", account.Pubkey, err)
		}
		total += amount
	}
	return total, nil
}

func decodeTokenAmount(data []byte) (uint64, error) {
	var acct token.Account
	if err := acct.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// SolanaBalances reports a market's settlement balance as the smaller of its
// book balance and what the escrow wallet actually holds on chain. Markets
// share one escrow wallet, so the on-chain amount is only an upper bound.
type SolanaBalances struct {
	ledger LedgerBalance
	owner  string
	mint   string
	fetch  func(ctx context.Context, owner, mint string) (uint64, error)
	log    *zap.Logger
}

func NewSolanaBalances(client *SolanaClient, cfg config.SolanaConfig, ledger LedgerBalance, log *zap.Logger) *SolanaBalances {
	return &SolanaBalances{
		ledger: ledger,
		owner:  cfg.EscrowOwner,
		mint:   cfg.Mint,
		fetch:  client.GetTokenAccountBalance,
		log:    log.Named("solana"),
	}
}

// mintFor returns the market's denom when it is a mint address, else the
// configured default mint.
func (b *SolanaBalances) mintFor(market *models.Market) string {
	if ValidateWalletAddress(market.SettlementDenom) {
		return market.SettlementDenom
	}
	return b.mint
}

// SettlementBalance implements the engine's BalanceQuerier
func (b *SolanaBalances) SettlementBalance(ctx context.Context, market *models.Market) (fixedpoint.U128, error) {
	book, err := b.ledger.SettlementBalance(ctx, market)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	held, err := b.fetch(ctx, b.owner, b.mintFor(market))
	if err != nil {
		return fixedpoint.Zero(), fmt.Errorf("query escrow token balance: %w", err)
	}
	onChain := fixedpoint.New(held)
	if onChain.Lt(book) {
		b.log.Warn("escrow holds less than the book balance",
			zap.String("market", market.ID),
			zap.Stringer("book", book),
			zap.Uint64("on_chain", held),
		)
	}
	return fixedpoint.Min(book, onChain), nil
}
