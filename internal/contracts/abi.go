package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const chronicleABIJSON = `[
  {"inputs": [], "name": "read", "outputs": [{"internalType": "uint256", "name": "value", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "readWithAge", "outputs": [{"internalType": "uint256", "name": "value", "type": "uint256"}, {"internalType": "uint256", "name": "age", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const factoryABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "bPool", "type": "address"}], "name": "isBPool", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "APP_DATA", "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const poolABIJSON = `[
  {"inputs": [], "name": "getFinalTokens", "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "token", "type": "address"}], "name": "getNormalizedWeight", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "SOLUTION_SETTLER_DOMAIN_SEPARATOR", "outputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "orderHash", "type": "bytes32"}], "name": "commit", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "bytes32", "name": "hash", "type": "bytes32"}, {"internalType": "bytes", "name": "signature", "type": "bytes"}], "name": "isValidSignature", "outputs": [{"internalType": "bytes4", "name": "", "type": "bytes4"}], "stateMutability": "view", "type": "function"}
]`

const erc20MetaStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`

const erc20MetaBytes32JSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

var (
	chronicleABI     abi.ABI
	chronicleABIOnce sync.Once
	chronicleABIErr  error

	factoryABI     abi.ABI
	factoryABIOnce sync.Once
	factoryABIErr  error

	poolABI     abi.ABI
	poolABIOnce sync.Once
	poolABIErr  error

	erc20MetaString      abi.ABI
	erc20MetaStringOnce  sync.Once
	erc20MetaStringErr   error
	erc20MetaBytes32     abi.ABI
	erc20MetaBytes32Once sync.Once
	erc20MetaBytes32Err  error
)

// ChronicleABI returns the parsed Chronicle oracle read interface.
func ChronicleABI() (abi.ABI, error) {
	chronicleABIOnce.Do(func() {
		chronicleABI, chronicleABIErr = abi.JSON(strings.NewReader(chronicleABIJSON))
	})
	return chronicleABI, chronicleABIErr
}

// FactoryABI returns the parsed pool factory interface.
func FactoryABI() (abi.ABI, error) {
	factoryABIOnce.Do(func() {
		factoryABI, factoryABIErr = abi.JSON(strings.NewReader(factoryABIJSON))
	})
	return factoryABI, factoryABIErr
}

// PoolABI returns the parsed weighted pool interface used for order building and settlement.
func PoolABI() (abi.ABI, error) {
	poolABIOnce.Do(func() {
		poolABI, poolABIErr = abi.JSON(strings.NewReader(poolABIJSON))
	})
	return poolABI, poolABIErr
}

func erc20MetaStringInstance() (abi.ABI, error) {
	erc20MetaStringOnce.Do(func() {
		erc20MetaString, erc20MetaStringErr = abi.JSON(strings.NewReader(erc20MetaStringJSON))
	})
	return erc20MetaString, erc20MetaStringErr
}

func erc20MetaBytes32Instance() (abi.ABI, error) {
	erc20MetaBytes32Once.Do(func() {
		erc20MetaBytes32, erc20MetaBytes32Err = abi.JSON(strings.NewReader(erc20MetaBytes32JSON))
	})
	return erc20MetaBytes32, erc20MetaBytes32Err
}
