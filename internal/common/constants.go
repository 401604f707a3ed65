// Package common contains common constants and variables used across services
package common

import ethcommon "github.com/ethereum/go-ethereum/common"

var (
	WETHAddress = ethcommon.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = ethcommon.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	UniswapV2Factory      = ethcommon.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	UniswapV2InitCodeHash = ethcommon.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")
)
