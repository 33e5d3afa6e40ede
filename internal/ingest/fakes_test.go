package ingest

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/raubrey2014/tempo-explorer/internal/chain/rpc"
	"github.com/raubrey2014/tempo-explorer/internal/domain/model"
)

// fakeChain implements rpc.ChainClient with per-method hooks. Unset hooks
// return errNotStubbed so a test fails loudly when it hits an unexpected call.
type fakeChain struct {
	blockNumberFn func(ctx context.Context) (int64, error)
	blockByNumFn  func(ctx context.Context, n int64, full bool) (*rpc.Block, error)
	blockByHashFn func(ctx context.Context, hash string, full bool) (*rpc.Block, error)
	txByHashFn    func(ctx context.Context, hash string) (*rpc.Transaction, error)
	receiptFn     func(ctx context.Context, hash string) (*rpc.TransactionReceipt, error)
	getCodeFn     func(ctx context.Context, address string) (string, error)
	callFn        func(ctx context.Context, to, data string) (string, error)
}

var errNotStubbed = errors.New("not stubbed")

func (f *fakeChain) GetBlockNumber(ctx context.Context) (int64, error) {
	if f.blockNumberFn == nil {
		return 0, errNotStubbed
	}
	return f.blockNumberFn(ctx)
}

func (f *fakeChain) GetBlockByNumber(ctx context.Context, n int64, full bool) (*rpc.Block, error) {
	if f.blockByNumFn == nil {
		return nil, errNotStubbed
	}
	return f.blockByNumFn(ctx, n, full)
}

func (f *fakeChain) GetBlockByHash(ctx context.Context, hash string, full bool) (*rpc.Block, error) {
	if f.blockByHashFn == nil {
		return nil, errNotStubbed
	}
	return f.blockByHashFn(ctx, hash, full)
}

func (f *fakeChain) GetTransactionByHash(ctx context.Context, hash string) (*rpc.Transaction, error) {
	if f.txByHashFn == nil {
		return nil, errNotStubbed
	}
	return f.txByHashFn(ctx, hash)
}

func (f *fakeChain) GetTransactionReceipt(ctx context.Context, hash string) (*rpc.TransactionReceipt, error) {
	if f.receiptFn == nil {
		return nil, errNotStubbed
	}
	return f.receiptFn(ctx, hash)
}

func (f *fakeChain) GetCode(ctx context.Context, address string) (string, error) {
	if f.getCodeFn == nil {
		return "", errNotStubbed
	}
	return f.getCodeFn(ctx, address)
}

func (f *fakeChain) Call(ctx context.Context, to, data string) (string, error) {
	if f.callFn == nil {
		return "", errNotStubbed
	}
	return f.callFn(ctx, to, data)
}

// fakeStableRepo is an in-memory store.StablecoinRepository.
type fakeStableRepo struct {
	mu        sync.Mutex
	coins     map[string]*model.Stablecoin
	existsErr error
	insertErr error
	listErr   error
	applied   []appliedStats
}

type appliedStats struct {
	address     string
	stats       *model.BlockStablecoinStats
	blockNumber int64
}

func newFakeStableRepo(addresses ...string) *fakeStableRepo {
	coins := make(map[string]*model.Stablecoin, len(addresses))
	for _, a := range addresses {
		coins[a] = &model.Stablecoin{Address: a}
	}
	return &fakeStableRepo{coins: coins}
}

func (f *fakeStableRepo) InsertIfAbsent(ctx context.Context, sc *model.Stablecoin) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.coins[sc.Address]; ok {
		return false, nil
	}
	f.coins[sc.Address] = sc
	return true, nil
}

func (f *fakeStableRepo) Exists(ctx context.Context, address string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.coins[address]
	return ok, nil
}

func (f *fakeStableRepo) FindByAddress(ctx context.Context, address string) (*model.Stablecoin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.coins[address], nil
}

func (f *fakeStableRepo) ListAddresses(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	addrs := make([]string, 0, len(f.coins))
	for a := range f.coins {
		addrs = append(addrs, a)
	}
	return addrs, nil
}

func (f *fakeStableRepo) ApplyStatsTx(ctx context.Context, tx *sql.Tx, address string, stats *model.BlockStablecoinStats, blockNumber int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, appliedStats{address: address, stats: stats, blockNumber: blockNumber})
	return nil
}

// fakeTxRepo is an in-memory store.TransactionRepository.
type fakeTxRepo struct {
	mu         sync.Mutex
	upserted   []*model.Transaction
	upsertErr  error
	deleteFn   func(cutoff int64, limit int) (int64, error)
	deleteArgs []int64
}

func (f *fakeTxRepo) UpsertTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	return nil
}

func (f *fakeTxRepo) UpsertBatch(ctx context.Context, records []*model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, records...)
	return nil
}

func (f *fakeTxRepo) FindByHash(ctx context.Context, hash string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.upserted {
		if t.Hash == hash {
			return t, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeTxRepo) DeleteExpiredBatch(ctx context.Context, cutoff int64, limit int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteArgs = append(f.deleteArgs, cutoff)
	if f.deleteFn == nil {
		return 0, nil
	}
	return f.deleteFn(cutoff, limit)
}
