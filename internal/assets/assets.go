/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package assets

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Kind is the closed set of asset classes the engine moves. External token
// contracts are represented by their contract address plus a kind; there is no
// open-ended dispatch beyond these four variants.
type Kind int

const (
	Native Kind = iota
	Fungible
	NonFungible
	SemiFungible
)

func (k Kind) String() string {
	switch k {
	case Native:
		return "native"
	case Fungible:
		return "erc20"
	case NonFungible:
		return "erc721"
	case SemiFungible:
		return "erc1155"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Asset identifies one transferable asset. Contract is unset for Native;
// TokenId is set for NonFungible and SemiFungible.
type Asset struct {
	Kind     Kind
	Contract common.Address
	TokenId  string
}

func NativeAsset() Asset {
	return Asset{Kind: Native}
}

func FungibleAsset(contract common.Address) Asset {
	return Asset{Kind: Fungible, Contract: contract}
}

func NonFungibleAsset(contract common.Address, tokenId string) Asset {
	return Asset{Kind: NonFungible, Contract: contract, TokenId: tokenId}
}

func SemiFungibleAsset(contract common.Address, tokenId string) Asset {
	return Asset{Kind: SemiFungible, Contract: contract, TokenId: tokenId}
}

// Id returns the subledger asset identifier, e.g. "native",
// "erc20:0xabc...", "erc721:0xabc...:42".
func (a Asset) Id() string {
	switch a.Kind {
	case Native:
		return "native"
	case Fungible:
		return fmt.Sprintf("erc20:%s", strings.ToLower(a.Contract.Hex()))
	case NonFungible:
		return fmt.Sprintf("erc721:%s:%s", strings.ToLower(a.Contract.Hex()), a.TokenId)
	case SemiFungible:
		return fmt.Sprintf("erc1155:%s:%s", strings.ToLower(a.Contract.Hex()), a.TokenId)
	default:
		return a.Kind.String()
	}
}

// VaultAccount is the subledger account holding a vault's distributable assets.
func VaultAccount(vaultId string) string {
	return "vault:" + vaultId
}

// FeeReserveAccount is the segregated subledger account holding a vault's
// NFT fee deposit. Kept apart from VaultAccount so the reserve can never be
// spent as distributable balance.
func FeeReserveAccount(vaultId string) string {
	return "vaultfee:" + vaultId
}

// AddressAccount is the subledger account for an externally owned address.
func AddressAccount(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
