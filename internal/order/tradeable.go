package order

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"mevAMM/internal/bnum"
)

// TradeableParams describes an equal-weight two-token pool and a target price
// PriceNumerator/PriceDenominator of token0 in token1.
type TradeableParams struct {
	Pool             common.Address
	Token0           common.Address
	Token1           common.Address
	PriceNumerator   *uint256.Int
	PriceDenominator *uint256.Int
	AppData          common.Hash
}

// GetTradeableOrder returns the order that moves the pool halfway from its reserves to the
// target price. The side with excess value is sold. Amounts round in the pool's favor.
func GetTradeableOrder(params TradeableParams, reserve0, reserve1 *uint256.Int, now time.Time) (Order, error) {
	num, den := params.PriceNumerator, params.PriceDenominator

	lhs, err := bnum.MulInt(num, reserve1)
	if err != nil {
		return Order{}, err
	}
	rhs, err := bnum.MulInt(den, reserve0)
	if err != nil {
		return Order{}, err
	}

	var (
		sellToken, buyToken common.Address
		sellAmount          *uint256.Int
		buyAmount           *uint256.Int
	)
	if lhs.Lt(rhs) {
		sellToken, buyToken = params.Token0, params.Token1
		sellAmount, buyAmount, err = halfExcess(reserve0, reserve1, num, den)
	} else {
		sellToken, buyToken = params.Token1, params.Token0
		sellAmount, buyAmount, err = halfExcess(reserve1, reserve0, den, num)
	}
	if err != nil {
		return Order{}, fmt.Errorf("tradeable amounts: %w", err)
	}

	return Order{
		SellToken:         sellToken,
		BuyToken:          buyToken,
		Receiver:          ReceiverSameAsOwner,
		SellAmount:        sellAmount,
		BuyAmount:         buyAmount,
		ValidTo:           uint32(now.Unix()) + MaxOrderDuration,
		AppData:           params.AppData,
		FeeAmount:         new(uint256.Int),
		Kind:              KindSell,
		PartiallyFillable: true,
		SellTokenBalance:  BalanceERC20,
		BuyTokenBalance:   BalanceERC20,
	}, nil
}

// halfExcess prices the sold reserve against the bought one at num/den:
//
//	sell = sellReserve/2 - ceil(num*buyReserve / (2*den))
//	buy  = ceil(sell * buyReserve*num / (den*sellReserve))
func halfExcess(sellReserve, buyReserve, num, den *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	target, err := bnum.MulInt(num, buyReserve)
	if err != nil {
		return nil, nil, err
	}
	twiceDen, err := bnum.MulInt(den, uint256.NewInt(2))
	if err != nil {
		return nil, nil, err
	}
	half, err := bnum.CeilDiv(target, twiceDen)
	if err != nil {
		return nil, nil, err
	}
	sell, err := bnum.Sub(new(uint256.Int).Rsh(sellReserve, 1), half)
	if err != nil {
		return nil, nil, err
	}

	buyNum, err := bnum.MulInt(buyReserve, num)
	if err != nil {
		return nil, nil, err
	}
	buyDen, err := bnum.MulInt(den, sellReserve)
	if err != nil {
		return nil, nil, err
	}
	buy, err := bnum.MulDivUp(sell, buyNum, buyDen)
	if err != nil {
		return nil, nil, err
	}
	return sell, buy, nil
}
