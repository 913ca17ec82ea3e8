package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABIJSON = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const eTokenABIJSON = `[
  {"name":"interestRateModel","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"totalBorrows","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"getBorrowingPower","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"isDelegateApproved","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"delegate","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"setDelegateApproval","type":"function","stateMutability":"nonpayable","inputs":[{"name":"delegate","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]},
  {"name":"borrowFor","type":"function","stateMutability":"nonpayable","inputs":[{"name":"account","type":"address"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const pTokenABIJSON = `[
  {"name":"balanceOfUnderlying","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"isDelegateApproved","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"delegate","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"setDelegateApproval","type":"function","stateMutability":"nonpayable","inputs":[{"name":"delegate","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]}
]`

const universalBalanceABIJSON = `[
  {"name":"depositFor","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"lendingDeposit","type":"bool"},{"name":"account","type":"address"}],"outputs":[]},
  {"name":"withdrawFor","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"lendingRedemption","type":"bool"},{"name":"recipient","type":"address"},{"name":"account","type":"address"}],"outputs":[]},
  {"name":"isDelegateApproved","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"delegate","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"setDelegateApproval","type":"function","stateMutability":"nonpayable","inputs":[{"name":"delegate","type":"address"},{"name":"approved","type":"bool"}],"outputs":[]}
]`

var (
	abiOnce          sync.Once
	erc20ABI         abi.ABI
	eTokenABI        abi.ABI
	pTokenABI        abi.ABI
	universalBalABI  abi.ABI
)

func loadABIs() {
	abiOnce.Do(func() {
		erc20ABI = mustParseABI(erc20ABIJSON)
		eTokenABI = mustParseABI(eTokenABIJSON)
		pTokenABI = mustParseABI(pTokenABIJSON)
		universalBalABI = mustParseABI(universalBalanceABIJSON)
	})
}

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic("invalid embedded ABI: " + err.Error())
	}
	return parsed
}
