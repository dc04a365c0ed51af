package weighted

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"mevAMM/internal/bmath"
	"mevAMM/internal/bnum"
	"mevAMM/internal/model"
	"mevAMM/internal/order"
	"mevAMM/internal/poolerr"
)

// MagicValue is returned by IsValidSignature for an accepted order (EIP-1271).
var MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

// Commit records the hash of the order the settler is about to settle.
func (p *Pool) Commit(sender common.Address, orderHash common.Hash) error {
	if sender != p.settler {
		return poolerr.ErrNotSolutionSettler
	}
	p.commitment = orderHash
	p.emit(model.EventCommit, model.CommitEventData{Sender: sender.Hex(), OrderHash: orderHash.Hex()})
	p.logger.Debug("order committed", zap.String("hash", orderHash.Hex()))
	return nil
}

// Commitment returns the last committed order hash.
func (p *Pool) Commitment() common.Hash {
	return p.commitment
}

// IsValidSignature accepts the abi-encoded order in signature when it hashes to hash, matches
// the commitment and passes Verify.
func (p *Pool) IsValidSignature(ctx context.Context, hash common.Hash, signature []byte) ([4]byte, error) {
	o, err := order.Decode(signature)
	if err != nil {
		return [4]byte{}, err
	}
	if o.AppData != p.appData {
		return [4]byte{}, poolerr.ErrAppDataMismatch
	}
	orderHash, err := o.Hash(p.domainSeparator)
	if err != nil {
		return [4]byte{}, err
	}
	if orderHash != hash {
		return [4]byte{}, poolerr.ErrOrderHashMismatch
	}
	if orderHash != p.commitment {
		return [4]byte{}, poolerr.ErrOrderNotCommitted
	}
	if err := p.Verify(ctx, o); err != nil {
		return [4]byte{}, err
	}
	return MagicValue, nil
}

// Verify checks that the pool is willing to trade o at its current balances.
func (p *Pool) Verify(ctx context.Context, o order.Order) error {
	inRecord, err := p.record(o.BuyToken)
	if err != nil {
		return err
	}
	outRecord, err := p.record(o.SellToken)
	if err != nil {
		return err
	}

	if o.Receiver != order.ReceiverSameAsOwner {
		return poolerr.ErrReceiverIsNotPool
	}
	if uint64(o.ValidTo) > uint64(p.now().Unix())+order.MaxOrderDuration {
		return poolerr.ErrOrderValidityTooLong
	}
	if o.FeeAmount != nil && !o.FeeAmount.IsZero() {
		return poolerr.ErrFeeMustBeZero
	}
	if o.Kind != order.KindSell {
		return poolerr.ErrInvalidOperation
	}
	if o.BuyTokenBalance != order.BalanceERC20 || o.SellTokenBalance != order.BalanceERC20 {
		return poolerr.ErrInvalidBalanceMarker
	}

	buyBalance, err := p.erc20.BalanceOf(ctx, o.BuyToken, p.address)
	if err != nil {
		return err
	}
	sellBalance, err := p.erc20.BalanceOf(ctx, o.SellToken, p.address)
	if err != nil {
		return err
	}

	maxIn, err := bnum.Mul(buyBalance, MaxInRatio)
	if err != nil {
		return err
	}
	if o.BuyAmount.Gt(maxIn) {
		return poolerr.ErrTokenAmountInAboveMaxRatio
	}
	amountOut, err := bmath.CalcOutGivenIn(buyBalance, inRecord.Denorm, sellBalance, outRecord.Denorm, o.BuyAmount, bnum.Zero())
	if err != nil {
		return err
	}
	if amountOut.Lt(o.SellAmount) {
		return fmt.Errorf("pool pays %s for %s requested: %w", amountOut, o.SellAmount, poolerr.ErrTokenAmountOutBelowMinOut)
	}
	return nil
}
