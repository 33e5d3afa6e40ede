package rpc

import "encoding/json"

type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

type Block struct {
	Number       string `json:"number"`
	Hash         string `json:"hash"`
	ParentHash   string `json:"parentHash"`
	Timestamp    string `json:"timestamp"`
	Transactions TxList `json:"transactions"`
}

// TxList accepts both representations a node may return for a block's
// transactions: an array of hash strings, or an array of full objects.
type TxList struct {
	Hashes []string
	Full   []*Transaction
}

func (l *TxList) UnmarshalJSON(data []byte) error {
	var hashes []string
	if err := json.Unmarshal(data, &hashes); err == nil {
		l.Hashes = hashes
		l.Full = nil
		return nil
	}

	var full []*Transaction
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	l.Full = full
	l.Hashes = nil
	return nil
}

func (l TxList) MarshalJSON() ([]byte, error) {
	if l.Full != nil {
		return json.Marshal(l.Full)
	}
	if l.Hashes != nil {
		return json.Marshal(l.Hashes)
	}
	return []byte("[]"), nil
}

// TxHashes returns the hashes referenced by the block regardless of which
// representation the node returned. Empty entries are skipped.
func (l TxList) TxHashes() []string {
	if l.Full != nil {
		hashes := make([]string, 0, len(l.Full))
		for _, tx := range l.Full {
			if tx != nil && tx.Hash != "" {
				hashes = append(hashes, tx.Hash)
			}
		}
		return hashes
	}
	hashes := make([]string, 0, len(l.Hashes))
	for _, h := range l.Hashes {
		if h != "" {
			hashes = append(hashes, h)
		}
	}
	return hashes
}

// Transaction mirrors the wire form of a transaction: every numeric field
// is a 0x-prefixed hex string, and fields absent for a given transaction
// type variant decode as the empty string.
type Transaction struct {
	Hash             string `json:"hash"`
	BlockNumber      string `json:"blockNumber"`
	BlockHash        string `json:"blockHash"`
	TransactionIndex string `json:"transactionIndex"`
	From             string `json:"from"`
	To               string `json:"to"`
	Value            string `json:"value"`
	Input            string `json:"input"`
	Nonce            string `json:"nonce"`
	Gas              string `json:"gas"`
	GasPrice         string `json:"gasPrice"`
}

type TransactionReceipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockNumber       string `json:"blockNumber"`
	BlockHash         string `json:"blockHash"`
	TransactionIndex  string `json:"transactionIndex"`
	Status            string `json:"status"`
	From              string `json:"from"`
	To                string `json:"to"`
	ContractAddress   string `json:"contractAddress"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
	FeeToken          string `json:"feeToken"` // token the gas fee was paid in, when non-native
	Logs              []*Log `json:"logs"`
}

type Log struct {
	Address  string   `json:"address"`
	Topics   []string `json:"topics"`
	Data     string   `json:"data"`
	LogIndex string   `json:"logIndex"`
	Removed  bool     `json:"removed"`
}
