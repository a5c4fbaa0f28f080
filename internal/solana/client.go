package solana

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	confirm "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// Client wraps the Solana RPC client and, when a websocket endpoint is
// configured, a subscription client for confirmations.
type Client struct {
	rpc          *rpc.Client
	wsEndpoint   string
	commitment   rpc.CommitmentType
	pollInterval time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithWebsocket confirms transactions over a signature subscription.
func WithWebsocket(endpoint string) ClientOption {
	return func(c *Client) { c.wsEndpoint = endpoint }
}

// WithCommitment sets the commitment used for reads and confirmations.
func WithCommitment(commitment string) ClientOption {
	return func(c *Client) {
		if commitment != "" {
			c.commitment = rpc.CommitmentType(commitment)
		}
	}
}

// NewClient creates a new Solana client
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		rpc:          rpc.New(endpoint),
		commitment:   rpc.CommitmentConfirmed,
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RPC exposes the underlying client.
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// GetBalance returns the balance of an account in lamports
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return result.Value, nil
}

// GetTokenBalance returns the raw amount and decimals of an SPL token account.
func (c *Client) GetTokenBalance(ctx context.Context, account solana.PublicKey) (amount string, decimals uint8, err error) {
	result, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get token balance: %w", err)
	}
	if result.Value == nil {
		return "", 0, fmt.Errorf("token account %s has no balance", account)
	}
	return result.Value.Amount, result.Value.Decimals, nil
}

// GetLatestBlockhash returns the latest blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	return result.Value.Blockhash, nil
}

// GetAccountData returns the data of an account, or nil when it does not exist.
func (c *Client) GetAccountData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err == rpc.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account info: %w", err)
	}
	if result.Value == nil {
		return nil, nil
	}
	return result.Value.Data.GetBinary(), nil
}

// RequestAirdrop requests an airdrop of SOL (only works on devnet/testnet)
func (c *Client) RequestAirdrop(ctx context.Context, pubkey solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, pubkey, lamports, c.commitment)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to request airdrop: %w", err)
	}
	return sig, nil
}

// GetTransaction returns transaction details
func (c *Client) GetTransaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return result, nil
}

// BuildTransaction assembles and signs a transaction paid for by payer.
// Every signer the instructions require must be among signers.
func (c *Client) BuildTransaction(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey, signers ...solana.PrivateKey) (*solana.Transaction, error) {
	blockhash, err := c.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return tx, nil
}

// SendAndConfirm submits tx and waits until it reaches the client's commitment.
// A transaction that lands but fails is returned with its error value, which
// the caller parses.
func (c *Client) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if c.wsEndpoint != "" {
		wsClient, err := ws.Connect(ctx, c.wsEndpoint)
		if err != nil {
			return solana.Signature{}, fmt.Errorf("failed to connect websocket: %w", err)
		}
		defer wsClient.Close()
		return confirm.SendAndConfirmTransaction(ctx, c.rpc, wsClient, tx)
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, err
	}
	return sig, c.pollConfirmation(ctx, sig)
}

// TransactionFailedError carries the error value of a landed transaction.
type TransactionFailedError struct {
	Signature solana.Signature
	Err       any
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Signature, e.Err)
}

func (c *Client) pollConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return &TransactionFailedError{Signature: sig, Err: status.Err}
			}
			if reached(status.ConfirmationStatus, c.commitment) {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch want {
	case rpc.CommitmentFinalized:
		return status == rpc.ConfirmationStatusFinalized
	case rpc.CommitmentProcessed:
		return status != ""
	default:
		return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
	}
}

// Simulate runs tx through simulateTransaction.
func (c *Client) Simulate(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	result, err := c.rpc.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to simulate transaction: %w", err)
	}
	return result, nil
}
