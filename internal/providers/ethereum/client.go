package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/block"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// erc721ABI holds the ERC-721 view functions the marketplace reads
var erc721ABI = mustParseABI(`[{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// EthereumClient is the ledger client of one EVM chain
//
//go:generate mockgen -source=client.go -destination=../../mocks/ethereum_client.go -package=mocks -mock_names=EthereumClient=MockEthereumClient
type EthereumClient interface {
	// Chain returns the chain the client is connected to
	Chain() domain.Chain

	// SubscribeFilterLogs subscribes to filter logs
	SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)

	// FilterTransferLogs returns the Transfer logs of a block range, paginating around provider limits.
	// Logs are limited to the given contracts unless the list is empty.
	FilterTransferLogs(ctx context.Context, contracts []string, fromBlock, toBlock uint64) ([]types.Log, error)

	// ParseTransferLog converts an ERC-721 Transfer log into a transfer event.
	// It returns nil for logs that are not ERC-721 transfers (e.g. ERC-20 transfers share the signature).
	ParseTransferLog(ctx context.Context, vLog types.Log) (*domain.TransferEvent, error)

	// GetLatestBlock returns the latest block number, potentially from cache
	GetLatestBlock(ctx context.Context) (uint64, error)

	// HeadBlock returns the latest block number straight from the node
	HeadBlock(ctx context.Context) (uint64, error)

	// ERC721OwnerOf returns the owner of a token at the given block
	ERC721OwnerOf(ctx context.Context, contractAddress, tokenID string, blockNumber uint64) (string, error)

	// GetTransactionOutcome returns the receipt outcome of a transaction.
	// It returns nil while the transaction is pending and domain.ErrTransactionNotFound if the node does not know it.
	GetTransactionOutcome(ctx context.Context, txHash string) (*domain.TransactionOutcome, error)

	// Close closes the connection
	Close()
}

type ethereumClient struct {
	chainID domain.Chain
	client  adapter.EthClient
	blocks  block.BlockProvider
}

// NewClient creates a ledger client for a chain
func NewClient(chainID domain.Chain, client adapter.EthClient, blocks block.BlockProvider) EthereumClient {
	return &ethereumClient{chainID: chainID, client: client, blocks: blocks}
}

func (c *ethereumClient) Chain() domain.Chain {
	return c.chainID
}

// SubscribeFilterLogs subscribes to filter logs
func (c *ethereumClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.client.SubscribeFilterLogs(ctx, query, ch)
}

// transferQuery returns the filter of ERC-721/ERC-20 Transfer logs emitted by contracts
func transferQuery(contracts []string, fromBlock, toBlock *big.Int) ethereum.FilterQuery {
	var addresses []common.Address
	for _, contract := range contracts {
		addresses = append(addresses, common.HexToAddress(contract))
	}
	return ethereum.FilterQuery{
		FromBlock: fromBlock,
		ToBlock:   toBlock,
		Addresses: addresses,
		Topics:    [][]common.Hash{{transferEventSignature}},
	}
}

// FilterTransferLogs returns the Transfer logs between fromBlock and toBlock inclusive
func (c *ethereumClient) FilterTransferLogs(ctx context.Context, contracts []string, fromBlock, toBlock uint64) ([]types.Log, error) {
	if fromBlock > toBlock {
		return nil, nil
	}

	var allLogs []types.Log
	stepSize := uint64(10000)
	currentFrom := fromBlock

	for currentFrom <= toBlock {
		currentTo := currentFrom + stepSize - 1
		if currentTo > toBlock {
			currentTo = toBlock
		}

		logs, err := c.client.FilterLogs(ctx, transferQuery(
			contracts,
			new(big.Int).SetUint64(currentFrom),
			new(big.Int).SetUint64(currentTo),
		))
		if err == nil {
			allLogs = append(allLogs, logs...)
			currentFrom = currentTo + 1
			continue
		}

		if !isTooManyResultsError(err) || stepSize == 1 {
			return nil, fmt.Errorf("failed to get logs for range %d-%d: %w", currentFrom, currentTo, err)
		}

		stepSize = stepSize / 2
		logger.WarnCtx(ctx, "Too many results, reducing step size",
			zap.Uint64("newStepSize", stepSize),
			zap.Uint64("fromBlock", currentFrom),
			zap.Uint64("toBlock", currentTo))
	}

	return allLogs, nil
}

// isTooManyResultsError checks if the error is related to too many results
func isTooManyResultsError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()
	return strings.Contains(errStr, "query returned more than 10000 results") ||
		strings.Contains(errStr, "query timeout exceeded") ||
		strings.Contains(errStr, "too many results") ||
		strings.Contains(errStr, "exceeded maximum")
}

// ParseTransferLog converts an ERC-721 Transfer log into a transfer event
func (c *ethereumClient) ParseTransferLog(ctx context.Context, vLog types.Log) (*domain.TransferEvent, error) {
	if len(vLog.Topics) == 0 || vLog.Topics[0] != transferEventSignature {
		return nil, nil
	}

	// ERC-20 Transfer has 3 topics (signature, from, to) with value in data
	// ERC-721 Transfer has 4 topics (signature, from, to, tokenId) with no data
	if len(vLog.Topics) == 3 {
		return nil, nil
	}
	if len(vLog.Topics) != 4 {
		return nil, fmt.Errorf("invalid Transfer event: expected 3 or 4 topics, got %d", len(vLog.Topics))
	}

	timestamp, err := c.blocks.GetBlockTimestamp(ctx, vLog.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get block timestamp: %w", err)
	}

	return &domain.TransferEvent{
		Chain:           c.chainID,
		ContractAddress: domain.NormalizeAddress(vLog.Address.Hex()),
		TokenID:         new(big.Int).SetBytes(vLog.Topics[3].Bytes()).String(),
		FromAddress:     domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[1].Bytes()).Hex()),
		ToAddress:       domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex()),
		TxHash:          vLog.TxHash.Hex(),
		BlockNumber:     vLog.BlockNumber,
		LogIndex:        vLog.Index,
		Timestamp:       timestamp,
	}, nil
}

// GetLatestBlock returns the latest block number, potentially from cache
func (c *ethereumClient) GetLatestBlock(ctx context.Context) (uint64, error) {
	return c.blocks.GetLatestBlock(ctx)
}

// HeadBlock returns the latest block number straight from the node
func (c *ethereumClient) HeadBlock(ctx context.Context) (uint64, error) {
	number, err := c.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return number, nil
}

// ERC721OwnerOf returns the owner of a token at the given block, 0 meaning the latest block
func (c *ethereumClient) ERC721OwnerOf(ctx context.Context, contractAddress, tokenID string, blockNumber uint64) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token id: %s", tokenID)
	}

	data, err := erc721ABI.Pack("ownerOf", id)
	if err != nil {
		return "", fmt.Errorf("failed to pack data: %w", err)
	}

	var atBlock *big.Int
	if blockNumber > 0 {
		atBlock = new(big.Int).SetUint64(blockNumber)
	}

	contractAddr := common.HexToAddress(contractAddress)
	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contractAddr,
		Data: data,
	}, atBlock)
	if err != nil {
		return "", fmt.Errorf("failed to call contract: %w", err)
	}

	var owner common.Address
	if err := erc721ABI.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return "", fmt.Errorf("failed to unpack result: %w", err)
	}

	return domain.NormalizeAddress(owner.Hex()), nil
}

// GetTransactionOutcome returns the receipt outcome of a transaction
func (c *ethereumClient) GetTransactionOutcome(ctx context.Context, txHash string) (*domain.TransactionOutcome, error) {
	hash := common.HexToHash(txHash)

	tx, pending, err := c.client.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if pending {
		return nil, nil
	}

	receipt, err := c.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	outcome := &domain.TransactionOutcome{
		Success:   receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed:   receipt.GasUsed,
		Transfers: receiptTransfers(receipt.Logs),
	}
	if receipt.BlockNumber != nil {
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if tx.To() != nil {
		outcome.To = domain.NormalizeAddress(tx.To().Hex())
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		outcome.From = domain.NormalizeAddress(from.Hex())
	} else {
		logger.WarnCtx(ctx, "Failed to recover transaction sender", zap.String("txHash", txHash), zap.Error(err))
	}

	return outcome, nil
}

// receiptTransfers collects the ERC-721 transfers of a receipt
func receiptTransfers(logs []*types.Log) []domain.TransferLog {
	var transfers []domain.TransferLog
	for _, vLog := range logs {
		if vLog == nil || len(vLog.Topics) != 4 || vLog.Topics[0] != transferEventSignature {
			continue
		}
		transfers = append(transfers, domain.TransferLog{
			ContractAddress: domain.NormalizeAddress(vLog.Address.Hex()),
			TokenID:         new(big.Int).SetBytes(vLog.Topics[3].Bytes()).String(),
			FromAddress:     domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[1].Bytes()).Hex()),
			ToAddress:       domain.NormalizeAddress(common.BytesToAddress(vLog.Topics[2].Bytes()).Hex()),
			LogIndex:        vLog.Index,
		})
	}
	return transfers
}

// Close closes the connection
func (c *ethereumClient) Close() {
	c.client.Close()
}

// blockFetcher implements block.BlockFetcher on top of the node connection
type blockFetcher struct {
	client adapter.EthClient
}

// NewBlockFetcher creates a block fetcher for the block provider
func NewBlockFetcher(client adapter.EthClient) block.BlockFetcher {
	return &blockFetcher{client: client}
}

// FetchLatestBlock fetches the latest block number
func (f *blockFetcher) FetchLatestBlock(ctx context.Context) (uint64, error) {
	return f.client.BlockNumber(ctx)
}

// FetchBlockTimestamp fetches the timestamp of a block from its header
func (f *blockFetcher) FetchBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	header, err := f.client.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get header %d: %w", blockNumber, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil //nolint:gosec,G115
}
