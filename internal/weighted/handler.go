package weighted

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"mevAMM/internal/contracts"
)

// Handle serves pool calls addressed to the pool's account: the read-only order-building
// views plus commit and isValidSignature.
func (p *Pool) Handle(ctx context.Context, from common.Address, data []byte) ([]byte, error) {
	parsed, err := contracts.PoolABI()
	if err != nil {
		return nil, err
	}
	name, args, err := contracts.UnpackPoolCall(data)
	if err != nil {
		return nil, err
	}
	method := parsed.Methods[name]

	switch name {
	case "getFinalTokens":
		tokens, err := p.FinalTokens()
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(tokens)
	case "getNormalizedWeight":
		weight, err := p.NormalizedWeight(args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(weight.ToBig())
	case "SOLUTION_SETTLER_DOMAIN_SEPARATOR":
		return method.Outputs.Pack([32]byte(p.domainSeparator))
	case "commit":
		hash, err := contracts.AsHash(args[0])
		if err != nil {
			return nil, err
		}
		return nil, p.Commit(from, hash)
	case "isValidSignature":
		hash, err := contracts.AsHash(args[0])
		if err != nil {
			return nil, err
		}
		signature, ok := args[1].([]byte)
		if !ok {
			return nil, fmt.Errorf("isValidSignature: unexpected signature type %T", args[1])
		}
		magic, err := p.IsValidSignature(ctx, hash, signature)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(magic)
	default:
		return nil, fmt.Errorf("unsupported pool method %s", name)
	}
}
