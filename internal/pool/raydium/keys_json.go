package raydium

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/tidwall/gjson"
)

// ParsePoolKeysJSON reads one pool entry from Raydium's liquidity JSON
// (the objects listed under "official" and "unOfficial" in liquidity/mainnet.json).
// A missing marketProgramId defaults to the Serum v3 program.
func ParsePoolKeysJSON(data []byte) (*PoolKeys, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid pool json")
	}
	doc := gjson.ParseBytes(data)

	keys := &PoolKeys{SerumProgram: SerumProgramID}
	fields := []struct {
		path string
		dst  *solana.PublicKey
	}{
		{"id", &keys.Amm},
		{"authority", &keys.AmmAuthority},
		{"openOrders", &keys.AmmOpenOrders},
		{"targetOrders", &keys.AmmTargetOrders},
		{"baseVault", &keys.PoolCoinVault},
		{"quoteVault", &keys.PoolPcVault},
		{"marketProgramId", &keys.SerumProgram},
		{"marketId", &keys.SerumMarket},
		{"marketBids", &keys.SerumBids},
		{"marketAsks", &keys.SerumAsks},
		{"marketEventQueue", &keys.SerumEventQueue},
		{"marketBaseVault", &keys.SerumCoinVault},
		{"marketQuoteVault", &keys.SerumPcVault},
		{"marketAuthority", &keys.SerumVaultSigner},
	}
	for _, f := range fields {
		v := doc.Get(f.path)
		if !v.Exists() || v.String() == "" {
			continue
		}
		pk, err := solana.PublicKeyFromBase58(v.String())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.path, err)
		}
		*f.dst = pk
	}

	if err := keys.Validate(); err != nil {
		return nil, err
	}
	return keys, nil
}

// FindPoolKeysJSON scans a full liquidity list for the pool with the given AMM id.
func FindPoolKeysJSON(data []byte, amm solana.PublicKey) (*PoolKeys, error) {
	target := amm.String()
	for _, group := range []string{"official", "unOfficial"} {
		var found string
		gjson.GetBytes(data, group).ForEach(func(_, v gjson.Result) bool {
			if v.Get("id").String() == target {
				found = v.Raw
				return false
			}
			return true
		})
		if found != "" {
			return ParsePoolKeysJSON([]byte(found))
		}
	}
	return nil, fmt.Errorf("pool %s not found", target)
}
