//  Copyright (C) 2021-2023 Chronicle Labs, Inc.
//
//  This program is free software: you can redistribute it and/or modify
//  it under the terms of the GNU Affero General Public License as
//  published by the Free Software Foundation, either version 3 of the
//  License, or (at your option) any later version.
//
//  This program is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU Affero General Public License for more details.
//
//  You should have received a copy of the GNU Affero General Public License
//  along with this program.  If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Block is the normalized form of a backend block payload.
type Block struct {
	Number        *big.Int // nil for pending blocks
	Hash          common.Hash
	ParentHash    common.Hash
	Timestamp     uint64
	Miner         common.Address
	GasLimit      uint64
	GasUsed       uint64
	BaseFeePerGas *big.Int // nil on pre-london chains
	ExtraData     []byte

	// Transactions always holds the hashes. FullTransactions is populated
	// only when the block was fetched with transaction bodies.
	Transactions     []common.Hash
	FullTransactions []*Transaction
}

// Transaction is the normalized form of a backend transaction payload.
type Transaction struct {
	Hash                 common.Hash
	From                 common.Address
	To                   *common.Address // nil for contract creation
	Nonce                uint64
	Gas                  uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Value                *big.Int
	Data                 []byte
	ChainID              *big.Int
	Type                 uint64

	// nil while the transaction is pending.
	BlockHash        *common.Hash
	BlockNumber      *big.Int
	TransactionIndex *uint64
}

// Receipt is the normalized form of a backend receipt payload.
type Receipt struct {
	TransactionHash   common.Hash
	TransactionIndex  uint64
	BlockHash         common.Hash
	BlockNumber       *big.Int
	From              common.Address
	To                *common.Address
	ContractAddress   *common.Address // set for contract creations only
	GasUsed           uint64
	CumulativeGasUsed uint64
	EffectiveGasPrice *big.Int
	Status            uint64
	Logs              []*Log
}

// Log is the normalized form of a backend log payload.
type Log struct {
	Address          common.Address
	Topics           []common.Hash
	Data             []byte
	BlockNumber      uint64
	BlockHash        common.Hash
	TransactionHash  common.Hash
	TransactionIndex uint64
	Index            uint64
	Removed          bool
}

// Formatter normalizes raw backend payloads into structured domain objects.
// Implementations must accept any well-formed backend output.
type Formatter interface {
	Block(raw json.RawMessage) (*Block, error)
	Transaction(raw json.RawMessage) (*Transaction, error)
	Receipt(raw json.RawMessage) (*Receipt, error)
	Log(raw json.RawMessage) (*Log, error)
}

type rawBlock struct {
	Number        *hexutil.Big      `json:"number"`
	Hash          common.Hash       `json:"hash"`
	ParentHash    common.Hash       `json:"parentHash"`
	Timestamp     hexutil.Uint64    `json:"timestamp"`
	Miner         common.Address    `json:"miner"`
	GasLimit      hexutil.Uint64    `json:"gasLimit"`
	GasUsed       hexutil.Uint64    `json:"gasUsed"`
	BaseFeePerGas *hexutil.Big      `json:"baseFeePerGas"`
	ExtraData     hexutil.Bytes     `json:"extraData"`
	Transactions  []json.RawMessage `json:"transactions"`
}

type rawTransaction struct {
	Hash                 common.Hash     `json:"hash"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	Value                *hexutil.Big    `json:"value"`
	Input                hexutil.Bytes   `json:"input"`
	ChainID              *hexutil.Big    `json:"chainId"`
	Type                 *hexutil.Uint64 `json:"type"`
	BlockHash            *common.Hash    `json:"blockHash"`
	BlockNumber          *hexutil.Big    `json:"blockNumber"`
	TransactionIndex     *hexutil.Uint64 `json:"transactionIndex"`
}

type rawReceipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       *hexutil.Big    `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	ContractAddress   *common.Address `json:"contractAddress"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	Status            hexutil.Uint64  `json:"status"`
	Logs              []*rawLog       `json:"logs"`
}

type rawLog struct {
	Address          common.Address `json:"address"`
	Topics           []common.Hash  `json:"topics"`
	Data             hexutil.Bytes  `json:"data"`
	BlockNumber      hexutil.Uint64 `json:"blockNumber"`
	BlockHash        common.Hash    `json:"blockHash"`
	TransactionHash  common.Hash    `json:"transactionHash"`
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	LogIndex         hexutil.Uint64 `json:"logIndex"`
	Removed          bool           `json:"removed"`
}

// JSONFormatter is the default Formatter. It decodes standard JSON-RPC
// payloads with quantities as big integers and hashes as canonical hex.
type JSONFormatter struct{}

func (JSONFormatter) Block(raw json.RawMessage) (*Block, error) {
	var dto rawBlock
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode block payload: %v", err)
	}
	b := &Block{
		Number:        (*big.Int)(dto.Number),
		Hash:          dto.Hash,
		ParentHash:    dto.ParentHash,
		Timestamp:     uint64(dto.Timestamp),
		Miner:         dto.Miner,
		GasLimit:      uint64(dto.GasLimit),
		GasUsed:       uint64(dto.GasUsed),
		BaseFeePerGas: (*big.Int)(dto.BaseFeePerGas),
		ExtraData:     dto.ExtraData,
	}
	for _, entry := range dto.Transactions {
		// Entries are either bare hash strings or full transaction objects,
		// depending on how the block was requested.
		if len(entry) > 0 && entry[0] == '"' {
			var h common.Hash
			if err := json.Unmarshal(entry, &h); err != nil {
				return nil, fmt.Errorf("failed to decode block transaction hash: %v", err)
			}
			b.Transactions = append(b.Transactions, h)
			continue
		}
		tx, err := JSONFormatter{}.Transaction(entry)
		if err != nil {
			return nil, err
		}
		b.Transactions = append(b.Transactions, tx.Hash)
		b.FullTransactions = append(b.FullTransactions, tx)
	}
	return b, nil
}

func (JSONFormatter) Transaction(raw json.RawMessage) (*Transaction, error) {
	var dto rawTransaction
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode transaction payload: %v", err)
	}
	tx := &Transaction{
		Hash:                 dto.Hash,
		From:                 dto.From,
		To:                   dto.To,
		Nonce:                uint64(dto.Nonce),
		Gas:                  uint64(dto.Gas),
		GasPrice:             (*big.Int)(dto.GasPrice),
		MaxFeePerGas:         (*big.Int)(dto.MaxFeePerGas),
		MaxPriorityFeePerGas: (*big.Int)(dto.MaxPriorityFeePerGas),
		Value:                (*big.Int)(dto.Value),
		Data:                 dto.Input,
		ChainID:              (*big.Int)(dto.ChainID),
		BlockHash:            dto.BlockHash,
		BlockNumber:          (*big.Int)(dto.BlockNumber),
	}
	if dto.Type != nil {
		tx.Type = uint64(*dto.Type)
	}
	if dto.TransactionIndex != nil {
		idx := uint64(*dto.TransactionIndex)
		tx.TransactionIndex = &idx
	}
	return tx, nil
}

func (JSONFormatter) Receipt(raw json.RawMessage) (*Receipt, error) {
	var dto rawReceipt
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode receipt payload: %v", err)
	}
	r := &Receipt{
		TransactionHash:   dto.TransactionHash,
		TransactionIndex:  uint64(dto.TransactionIndex),
		BlockHash:         dto.BlockHash,
		BlockNumber:       (*big.Int)(dto.BlockNumber),
		From:              dto.From,
		To:                dto.To,
		ContractAddress:   dto.ContractAddress,
		GasUsed:           uint64(dto.GasUsed),
		CumulativeGasUsed: uint64(dto.CumulativeGasUsed),
		EffectiveGasPrice: (*big.Int)(dto.EffectiveGasPrice),
		Status:            uint64(dto.Status),
	}
	for _, l := range dto.Logs {
		r.Logs = append(r.Logs, l.normalize())
	}
	return r, nil
}

func (JSONFormatter) Log(raw json.RawMessage) (*Log, error) {
	var dto rawLog
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("failed to decode log payload: %v", err)
	}
	return dto.normalize(), nil
}

func (l *rawLog) normalize() *Log {
	return &Log{
		Address:          l.Address,
		Topics:           l.Topics,
		Data:             l.Data,
		BlockNumber:      uint64(l.BlockNumber),
		BlockHash:        l.BlockHash,
		TransactionHash:  l.TransactionHash,
		TransactionIndex: uint64(l.TransactionIndex),
		Index:            uint64(l.LogIndex),
		Removed:          l.Removed,
	}
}
