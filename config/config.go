// Package config loads deployment parameters from .env-style files, one file
// per network. Process-level knobs (listen addresses, log flags) stay on the
// command line; everything describing the deployment itself lives here.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/interfaces"
	"github.com/soulname/soulstore-backend/store"
)

// Deployment is one network's parameter set.
type Deployment struct {
	Admin        common.Address
	StoreAddress common.Address

	ProjectFeeReceiver    common.Address
	ProtocolFeeReceiver   common.Address
	ProtocolFeeAmount     *big.Int
	ProtocolFeePercent    uint64
	ProtocolFeePercentSub uint64

	// Authorities and PaymentMethods are space-delimited address lists in the
	// file.
	Authorities    []common.Address
	PaymentMethods []common.Address

	StableCoin common.Address

	// SwapRouter is the on-chain router the price oracle queries. Zero means
	// fixed-rate quoting only.
	SwapRouter common.Address

	// IdentityContract is the deployed identity token to read identities
	// from. Zero means identities are issued in-process.
	IdentityContract common.Address

	ChainID       int64
	DomainVersion string

	Extension       string
	MetadataBaseURI string

	// StorageLocations are backend URIs, space-delimited, combined into one
	// redundant multi-backend.
	StorageLocations []interfaces.StorageBackendLocation

	Prices store.PriceTable
}

// Load reads a deployment file, e.g. .env.alfajores. Environment variables
// override file values key by key.
func Load(path string) (*Deployment, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("DOMAIN_VERSION", "1")
	v.SetDefault("NAME_EXTENSION", ".soul")
	v.SetDefault("STORAGE_LOCATIONS", "memory://")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	d := &Deployment{
		ProtocolFeePercent:    v.GetUint64("PROTOCOL_FEE_PERCENT"),
		ProtocolFeePercentSub: v.GetUint64("PROTOCOL_FEE_PERCENT_SUB"),
		ChainID:               v.GetInt64("CHAIN_ID"),
		DomainVersion:         v.GetString("DOMAIN_VERSION"),
		Extension:             v.GetString("NAME_EXTENSION"),
		MetadataBaseURI:       v.GetString("METADATA_BASE_URI"),
	}

	var err error
	if d.Admin, err = requireAddress(v, "ADMIN_ADDRESS"); err != nil {
		return nil, err
	}
	if d.StoreAddress, err = requireAddress(v, "STORE_ADDRESS"); err != nil {
		return nil, err
	}
	if d.ProjectFeeReceiver, err = requireAddress(v, "PROJECT_FEE_RECEIVER"); err != nil {
		return nil, err
	}
	if d.ProtocolFeeReceiver, err = requireAddress(v, "PROTOCOL_FEE_RECEIVER"); err != nil {
		return nil, err
	}
	if d.StableCoin, err = requireAddress(v, "STABLE_COIN"); err != nil {
		return nil, err
	}
	if d.SwapRouter, err = optionalAddress(v, "SWAP_ROUTER"); err != nil {
		return nil, err
	}
	if d.IdentityContract, err = optionalAddress(v, "IDENTITY_CONTRACT"); err != nil {
		return nil, err
	}

	if d.ProtocolFeeAmount, err = optionalAmount(v, "PROTOCOL_FEE_AMOUNT"); err != nil {
		return nil, err
	}

	if d.Authorities, err = addressList(v, "AUTHORITIES"); err != nil {
		return nil, err
	}
	if d.PaymentMethods, err = addressList(v, "PAYMENT_METHODS"); err != nil {
		return nil, err
	}

	for _, location := range strings.Fields(v.GetString("STORAGE_LOCATIONS")) {
		d.StorageLocations = append(d.StorageLocations, interfaces.StorageBackendLocation(location))
	}

	if d.Prices, err = priceTable(v); err != nil {
		return nil, err
	}

	return d, nil
}

// Domain returns the signature domain of this deployment.
func (d *Deployment) Domain() authz.Domain {
	return authz.Domain{
		Version:           d.DomainVersion,
		ChainID:           d.ChainID,
		VerifyingContract: d.StoreAddress,
	}
}

// Fees returns the storefront fee policy.
func (d *Deployment) Fees() store.FeeConfig {
	return store.FeeConfig{
		ProjectFeeReceiver:    d.ProjectFeeReceiver,
		ProtocolFeeReceiver:   d.ProtocolFeeReceiver,
		ProtocolFeeAmount:     d.ProtocolFeeAmount,
		ProtocolFeePercent:    d.ProtocolFeePercent,
		ProtocolFeePercentSub: d.ProtocolFeePercentSub,
	}
}

func requireAddress(v *viper.Viper, key string) (common.Address, error) {
	raw := v.GetString(key)
	if raw == "" {
		return common.Address{}, fmt.Errorf("missing required config key %s", key)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: not a hex address: %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}

func optionalAddress(v *viper.Viper, key string) (common.Address, error) {
	raw := v.GetString(key)
	if raw == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%s: not a hex address: %q", key, raw)
	}
	return common.HexToAddress(raw), nil
}

func optionalAmount(v *viper.Viper, key string) (*big.Int, error) {
	raw := v.GetString(key)
	if raw == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%s: not a decimal amount: %q", key, raw)
	}
	return amount, nil
}

func addressList(v *viper.Viper, key string) ([]common.Address, error) {
	var out []common.Address
	for _, raw := range strings.Fields(v.GetString(key)) {
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%s: not a hex address: %q", key, raw)
		}
		out = append(out, common.HexToAddress(raw))
	}
	return out, nil
}

func priceTable(v *viper.Viper) (store.PriceTable, error) {
	prices := make(map[string]*big.Int, 5)
	for _, key := range []string{"PRICE_1_LETTER", "PRICE_2_LETTER", "PRICE_3_LETTER", "PRICE_4_LETTER", "PRICE_DEFAULT"} {
		amount, err := optionalAmount(v, key)
		if err != nil {
			return store.PriceTable{}, err
		}
		prices[key] = amount
	}
	return store.PriceTable{
		Length1: prices["PRICE_1_LETTER"],
		Length2: prices["PRICE_2_LETTER"],
		Length3: prices["PRICE_3_LETTER"],
		Length4: prices["PRICE_4_LETTER"],
		Default: prices["PRICE_DEFAULT"],
	}, nil
}
