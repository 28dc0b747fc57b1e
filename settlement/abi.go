package settlement

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const executorABIJSON = `[
	{"type":"function","name":"executeArbitrage","stateMutability":"nonpayable","inputs":[
		{"name":"tokenA","type":"address"},
		{"name":"path1","type":"address[]"},
		{"name":"path2","type":"address[]"},
		{"name":"path3","type":"address[]"},
		{"name":"loanAmount","type":"uint256"},
		{"name":"minOuts","type":"uint256[]"}
	],"outputs":[]}
]`

const executeArbitrageMethod = "executeArbitrage"

// ExecutorABI is the settlement contract interface.
var ExecutorABI = mustParse(executorABIJSON)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
