package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/scimarket/scimarketd/internal/domain"
)

// Submitter implements domain.CommandSubmitter: it builds EIP-1559
// transactions against the NFT and marketplace contracts, signs them with the
// service wallet, and blocks until the transaction is mined.
type Submitter struct {
	client     *ethclient.Client
	chainID    *big.Int
	key        *ecdsa.PrivateKey
	from       common.Address
	nftAddr    common.Address
	marketAddr common.Address
	logger     *slog.Logger
}

var _ domain.CommandSubmitter = (*Submitter)(nil)

// NewSubmitter dials the RPC endpoint and returns a Submitter signing as the
// address derived from key.
func NewSubmitter(ctx context.Context, rpcURL string, chainID int64, key *ecdsa.PrivateKey, from common.Address, nftAddr, marketAddr common.Address, logger *slog.Logger) (*Submitter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dialing %s: %w", rpcURL, err)
	}
	return &Submitter{
		client:     client,
		chainID:    big.NewInt(chainID),
		key:        key,
		from:       from,
		nftAddr:    nftAddr,
		marketAddr: marketAddr,
		logger:     logger.With(slog.String("component", "ledger_submitter")),
	}, nil
}

// Close releases the underlying RPC connection.
func (s *Submitter) Close() {
	s.client.Close()
}

// Actor returns the address this submitter signs as.
func (s *Submitter) Actor() common.Address {
	return s.from
}

// send packs, signs, and submits one contract call, then waits for the
// receipt. A transaction that mines but reverts returns ErrCommandReverted
// alongside the receipt details.
func (s *Submitter) send(ctx context.Context, to common.Address, contract abi.ABI, method string, value *big.Int, args ...any) (domain.Receipt, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: packing %s: %w", method, err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: %s: nonce: %w: %v", method, domain.ErrLedgerUnreachable, err)
	}
	tip, err := s.client.SuggestGasTipCap(ctx)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: %s: gas tip: %w: %v", method, domain.ErrLedgerUnreachable, err)
	}
	head, err := s.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: %s: head: %w: %v", method, domain.ErrLedgerUnreachable, err)
	}
	// feeCap = 2*baseFee + tip leaves headroom for base-fee growth while the
	// transaction waits in the pool.
	feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)

	msg := ethereum.CallMsg{From: s.from, To: &to, Value: value, Data: data}
	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		// Estimation simulates the call; failure here means it would revert.
		return domain.Receipt{}, fmt.Errorf("ledger: %s: %w: %v", method, domain.ErrCommandReverted, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas + gas/5,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: %s: signing: %w", method, err)
	}

	start := time.Now()
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return domain.Receipt{}, fmt.Errorf("ledger: %s: sending: %w: %v", method, domain.ErrLedgerUnreachable, err)
	}
	s.logger.Info("transaction submitted",
		slog.String("method", method),
		slog.String("tx_hash", signed.Hash().Hex()),
	)

	receipt, err := s.waitMined(ctx, signed.Hash())
	if err != nil {
		return domain.Receipt{TxHash: signed.Hash()}, fmt.Errorf("ledger: %s: waiting for receipt: %w", method, err)
	}

	out := domain.Receipt{
		TxHash:      signed.Hash(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
		Success:     receipt.Status == types.ReceiptStatusSuccessful,
	}
	s.logger.Info("transaction mined",
		slog.String("method", method),
		slog.String("tx_hash", out.TxHash.Hex()),
		slog.Uint64("block", out.BlockNumber),
		slog.Bool("success", out.Success),
		slog.Duration("elapsed", time.Since(start)),
	)
	if !out.Success {
		return out, fmt.Errorf("ledger: %s: %w", method, domain.ErrCommandReverted)
	}
	return out, nil
}

// waitMined polls for the transaction receipt until it appears or the
// context expires.
func (s *Submitter) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			s.logger.Debug("receipt not available yet",
				slog.String("tx_hash", txHash.Hex()),
				slog.String("error", err.Error()),
			)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Submitter) ListForSale(ctx context.Context, tokenID uint64, price *big.Int) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "listNFT", nil, new(big.Int).SetUint64(tokenID), price)
}

func (s *Submitter) RemoveFromSale(ctx context.Context, tokenID uint64) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "cancelListing", nil, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) StartAuction(ctx context.Context, tokenID uint64, minPrice *big.Int, duration time.Duration) (domain.Receipt, error) {
	secs := new(big.Int).SetInt64(int64(duration / time.Second))
	return s.send(ctx, s.marketAddr, marketplaceABI, "startAuction", nil, new(big.Int).SetUint64(tokenID), minPrice, secs)
}

func (s *Submitter) PlaceBid(ctx context.Context, tokenID uint64, amount *big.Int) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "placeBid", amount, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) Purchase(ctx context.Context, tokenID uint64, price *big.Int) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "buyNFT", price, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) ClaimAuction(ctx context.Context, tokenID uint64) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "claimAuction", nil, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) ClaimRefund(ctx context.Context, tokenID uint64) (domain.Receipt, error) {
	return s.send(ctx, s.marketAddr, marketplaceABI, "claimRefund", nil, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) Transfer(ctx context.Context, tokenID uint64, to common.Address) (domain.Receipt, error) {
	return s.send(ctx, s.nftAddr, nftABI, "transferFrom", nil, s.from, to, new(big.Int).SetUint64(tokenID))
}

func (s *Submitter) SetApprovalForAll(ctx context.Context, approved bool) (domain.Receipt, error) {
	return s.send(ctx, s.nftAddr, nftABI, "setApprovalForAll", nil, s.marketAddr, approved)
}
