package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/cmd/flags"
	"github.com/soulname/soulstore-backend/config"
)

var (
	keyFlag = &cli.StringFlag{
		Name:    "key",
		Usage:   "hex-encoded authority private key",
		EnvVars: []string{"AUTHORITY_KEY"},
	}
	seedFlag = &cli.StringFlag{
		Name:    "seed",
		Usage:   "derive the authority key from a seed phrase instead of --key",
		EnvVars: []string{"AUTHORITY_SEED"},
	}
	toFlag = &cli.StringFlag{
		Name:     "to",
		Required: true,
		Usage:    "recipient address",
	}
	nameFlag = &cli.StringFlag{
		Name:     "name",
		Required: true,
		Usage:    "name to authorize, without extension",
	}
	yearsFlag = &cli.Uint64Flag{
		Name:  "years",
		Value: 1,
		Usage: "registration period in years",
	}
	tokenURIFlag = &cli.StringFlag{
		Name:  "token-uri",
		Usage: "metadata URI included in the mint terms",
	}
)

func main() {
	app := &cli.App{
		Name:  "authority",
		Usage: "Sign purchase authorizations with an authority key",
		Flags: []cli.Flag{flags.DeploymentFlag, keyFlag, seedFlag},
		Commands: []*cli.Command{
			{
				Name:   "mint",
				Usage:  "sign a mint authorization",
				Flags:  []cli.Flag{toFlag, nameFlag, yearsFlag, tokenURIFlag},
				Action: signMint,
			},
			{
				Name:   "renew",
				Usage:  "sign a renewal authorization",
				Flags:  []cli.Flag{toFlag, nameFlag, yearsFlag},
				Action: signRenewal,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func signMint(cCtx *cli.Context) error {
	domain, key, err := loadSigner(cCtx)
	if err != nil {
		return err
	}

	payload := authz.MintPayload{
		To:          ethAddress(cCtx.String(toFlag.Name)),
		Name:        cCtx.String(nameFlag.Name),
		NameLength:  uint64(len(cCtx.String(nameFlag.Name))),
		YearsPeriod: cCtx.Uint64(yearsFlag.Name),
		TokenURI:    cCtx.String(tokenURIFlag.Name),
	}
	sig, err := authz.SignMint(domain, payload, key)
	if err != nil {
		return err
	}
	return printSignature(key, payload.NameLength, sig)
}

func signRenewal(cCtx *cli.Context) error {
	domain, key, err := loadSigner(cCtx)
	if err != nil {
		return err
	}

	payload := authz.RenewalPayload{
		To:          ethAddress(cCtx.String(toFlag.Name)),
		Name:        cCtx.String(nameFlag.Name),
		NameLength:  uint64(len(cCtx.String(nameFlag.Name))),
		YearsPeriod: cCtx.Uint64(yearsFlag.Name),
	}
	sig, err := authz.SignRenewal(domain, payload, key)
	if err != nil {
		return err
	}
	return printSignature(key, payload.NameLength, sig)
}

func ethAddress(raw string) common.Address {
	return common.HexToAddress(raw)
}

func loadSigner(cCtx *cli.Context) (authz.Domain, *ecdsa.PrivateKey, error) {
	deployment, err := config.Load(cCtx.String(flags.DeploymentFlag.Name))
	if err != nil {
		return authz.Domain{}, nil, err
	}

	key, err := authorityKey(cCtx)
	if err != nil {
		return authz.Domain{}, nil, err
	}
	return deployment.Domain(), key, nil
}

func authorityKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	if hexKey := cCtx.String(keyFlag.Name); hexKey != "" {
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, fmt.Errorf("parsing authority key: %w", err)
		}
		return key, nil
	}
	if seed := cCtx.String(seedFlag.Name); seed != "" {
		key, err := crypto.ToECDSA(crypto.Keccak256([]byte(seed)))
		if err != nil {
			return nil, fmt.Errorf("deriving authority key from seed: %w", err)
		}
		return key, nil
	}
	return nil, fmt.Errorf("one of --%s or --%s is required", keyFlag.Name, seedFlag.Name)
}

func printSignature(key *ecdsa.PrivateKey, nameLength uint64, sig []byte) error {
	out, err := json.Marshal(map[string]any{
		"authority":  crypto.PubkeyToAddress(key.PublicKey).Hex(),
		"nameLength": nameLength,
		"signature":  hexutil.Encode(sig),
	})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
