// Package order builds, hashes and encodes settlement-protocol limit orders for weighted pools.
package order

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"mevAMM/internal/poolerr"
)

// MaxOrderDuration bounds how far in the future an order may expire, in seconds.
const MaxOrderDuration = 300

const typeString = "Order(address sellToken,address buyToken,address receiver,uint256 sellAmount,uint256 buyAmount,uint32 validTo,bytes32 appData,uint256 feeAmount,string kind,bool partiallyFillable,string sellTokenBalance,string buyTokenBalance)"

var (
	// TypeHash is the EIP-712 type hash of Order.
	TypeHash = crypto.Keccak256Hash([]byte(typeString))

	KindSell = crypto.Keccak256Hash([]byte("sell"))
	KindBuy  = crypto.Keccak256Hash([]byte("buy"))

	BalanceERC20    = crypto.Keccak256Hash([]byte("erc20"))
	BalanceExternal = crypto.Keccak256Hash([]byte("external"))
	BalanceInternal = crypto.Keccak256Hash([]byte("internal"))

	// ReceiverSameAsOwner sends bought tokens to the order owner.
	ReceiverSameAsOwner = common.Address{}

	domainTypeHash = crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	domainName     = crypto.Keccak256Hash([]byte("Gnosis Protocol"))
	domainVersion  = crypto.Keccak256Hash([]byte("v2"))

	eip712Prefix = []byte{0x19, 0x01}
)

// Order is a settlement-protocol order. Amounts are token base units.
type Order struct {
	SellToken         common.Address
	BuyToken          common.Address
	Receiver          common.Address
	SellAmount        *uint256.Int
	BuyAmount         *uint256.Int
	ValidTo           uint32
	AppData           common.Hash
	FeeAmount         *uint256.Int
	Kind              common.Hash
	PartiallyFillable bool
	SellTokenBalance  common.Hash
	BuyTokenBalance   common.Hash
}

// Interaction is a call the settlement contract makes around a settlement.
type Interaction struct {
	Target   common.Address
	Value    *uint256.Int
	CallData []byte
}

var (
	orderArgs     abi.Arguments
	domainArgs    abi.Arguments
	argumentsOnce sync.Once
	argumentsErr  error
)

func arguments() (abi.Arguments, abi.Arguments, error) {
	argumentsOnce.Do(func() {
		orderArgs, argumentsErr = newArguments(
			"address", "address", "address", "uint256", "uint256", "uint32",
			"bytes32", "uint256", "bytes32", "bool", "bytes32", "bytes32",
		)
		if argumentsErr != nil {
			return
		}
		domainArgs, argumentsErr = newArguments("bytes32", "bytes32", "bytes32", "uint256", "address")
	})
	return orderArgs, domainArgs, argumentsErr
}

func newArguments(types ...string) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(types))
	for _, t := range types {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("abi type %s: %w", t, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	return args, nil
}

// Encode returns abi.encode(order) as a static tuple.
func (o Order) Encode() ([]byte, error) {
	args, _, err := arguments()
	if err != nil {
		return nil, err
	}
	return args.Pack(
		o.SellToken,
		o.BuyToken,
		o.Receiver,
		toBig(o.SellAmount),
		toBig(o.BuyAmount),
		o.ValidTo,
		[32]byte(o.AppData),
		toBig(o.FeeAmount),
		[32]byte(o.Kind),
		o.PartiallyFillable,
		[32]byte(o.SellTokenBalance),
		[32]byte(o.BuyTokenBalance),
	)
}

// Decode parses an abi-encoded order.
func Decode(data []byte) (Order, error) {
	args, _, err := arguments()
	if err != nil {
		return Order{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", poolerr.ErrMalformedOrder, err)
	}
	if len(values) != len(args) {
		return Order{}, fmt.Errorf("%w: %d fields", poolerr.ErrMalformedOrder, len(values))
	}

	var o Order
	var ok bool
	if o.SellToken, ok = values[0].(common.Address); !ok {
		return Order{}, fieldError("sellToken", values[0])
	}
	if o.BuyToken, ok = values[1].(common.Address); !ok {
		return Order{}, fieldError("buyToken", values[1])
	}
	if o.Receiver, ok = values[2].(common.Address); !ok {
		return Order{}, fieldError("receiver", values[2])
	}
	if o.SellAmount, err = fromBig("sellAmount", values[3]); err != nil {
		return Order{}, err
	}
	if o.BuyAmount, err = fromBig("buyAmount", values[4]); err != nil {
		return Order{}, err
	}
	if o.ValidTo, ok = values[5].(uint32); !ok {
		return Order{}, fieldError("validTo", values[5])
	}
	if o.AppData, err = asHash("appData", values[6]); err != nil {
		return Order{}, err
	}
	if o.FeeAmount, err = fromBig("feeAmount", values[7]); err != nil {
		return Order{}, err
	}
	if o.Kind, err = asHash("kind", values[8]); err != nil {
		return Order{}, err
	}
	if o.PartiallyFillable, ok = values[9].(bool); !ok {
		return Order{}, fieldError("partiallyFillable", values[9])
	}
	if o.SellTokenBalance, err = asHash("sellTokenBalance", values[10]); err != nil {
		return Order{}, err
	}
	if o.BuyTokenBalance, err = asHash("buyTokenBalance", values[11]); err != nil {
		return Order{}, err
	}
	return o, nil
}

// StructHash returns keccak256(TypeHash || abi.encode(order)).
func (o Order) StructHash() (common.Hash, error) {
	encoded, err := o.Encode()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(TypeHash.Bytes(), encoded), nil
}

// Hash returns the EIP-712 digest of the order under domainSeparator.
func (o Order) Hash(domainSeparator common.Hash) (common.Hash, error) {
	structHash, err := o.StructHash()
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(eip712Prefix, domainSeparator.Bytes(), structHash.Bytes()), nil
}

// DomainSeparator returns the settlement contract's EIP-712 domain separator.
func DomainSeparator(chainID *big.Int, settlement common.Address) (common.Hash, error) {
	_, args, err := arguments()
	if err != nil {
		return common.Hash{}, err
	}
	encoded, err := args.Pack([32]byte(domainTypeHash), [32]byte(domainName), [32]byte(domainVersion), chainID, settlement)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack domain: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// EncodeSignature returns the contract-signature payload: owner (20 bytes) || abi.encode(order).
func EncodeSignature(owner common.Address, o Order) ([]byte, error) {
	encoded, err := o.Encode()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, common.AddressLength+len(encoded))
	out = append(out, owner.Bytes()...)
	return append(out, encoded...), nil
}

// SplitSignature separates the owner prefix from an encoded contract signature.
func SplitSignature(signature []byte) (common.Address, []byte, error) {
	if len(signature) < common.AddressLength {
		return common.Address{}, nil, fmt.Errorf("%w: signature of %d bytes", poolerr.ErrMalformedOrder, len(signature))
	}
	return common.BytesToAddress(signature[:common.AddressLength]), signature[common.AddressLength:], nil
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(field string, value interface{}) (*uint256.Int, error) {
	raw, ok := value.(*big.Int)
	if !ok {
		return nil, fieldError(field, value)
	}
	out, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("%w: %s overflows", poolerr.ErrMalformedOrder, field)
	}
	return out, nil
}

func asHash(field string, value interface{}) (common.Hash, error) {
	v, ok := value.([32]byte)
	if !ok {
		return common.Hash{}, fieldError(field, value)
	}
	return common.Hash(v), nil
}

func fieldError(field string, value interface{}) error {
	return fmt.Errorf("%w: %s has type %T", poolerr.ErrMalformedOrder, field, value)
}
