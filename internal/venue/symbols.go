package venue

// Symbol-mapping tables are maintained by hand, never inferred. A venue
// listing a token whose ticker merely shares a prefix with another asset
// (a perpetual's settlement token vs. a similarly named stablecoin) must
// not be aliased to it; an instrument missing from a table is reported as
// symbol_not_found and the resolver moves on to the next venue.

// orderlySymbols maps canonical instruments to Orderly perpetual codes.
var orderlySymbols = map[string]string{
	"BTC-USD": "PERP_BTC_USDC",
	"ETH-USD": "PERP_ETH_USDC",
	"SOL-USD": "PERP_SOL_USDC",
	"S-USD":   "PERP_S_USDC",
	"ARB-USD": "PERP_ARB_USDC",
	"OP-USD":  "PERP_OP_USDC",
}

// dexScreenerContracts maps canonical instruments to on-chain token
// contract addresses queried through the DexScreener search API.
var dexScreenerContracts = map[string]string{
	"ETH-USD": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"SOL-USD": "So11111111111111111111111111111111111111112",
	"ARB-USD": "0x912CE59144191C1204E64559FE8253a0e49E6548",
	"OP-USD":  "0x4200000000000000000000000000000000000042",
	// S (Sonic) intentionally unmapped: the only indexed pairs alias the
	// bridged stablecoin, which trades at a different price.
}

// coinDeskInstruments maps canonical instruments to CoinDesk index codes.
var coinDeskInstruments = map[string]string{
	"BTC-USD": "BTC-USD",
	"ETH-USD": "ETH-USD",
	"SOL-USD": "SOL-USD",
	"S-USD":   "S-USD",
	"ARB-USD": "ARB-USD",
	"OP-USD":  "OP-USD",
}
