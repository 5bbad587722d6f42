package main

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli/v2"

	"github.com/soulname/soulstore-backend/authz"
	"github.com/soulname/soulstore-backend/httpserver"
)

var (
	serverFlag = &cli.StringFlag{
		Name:  "server",
		Value: "http://127.0.0.1:8080",
		Usage: "storefront API base URL",
	}
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Required: true,
		Usage:    "hex-encoded admin private key",
		EnvVars:  []string{"SOULSTORE_ADMIN_KEY"},
	}
	addressFlag = &cli.StringFlag{
		Name:     "address",
		Required: true,
		Usage:    "subject address",
	}
	flatFlag = &cli.StringFlag{
		Name:  "flat",
		Value: "0",
		Usage: "flat protocol fee in stable units",
	}
	percentFlag = &cli.Uint64Flag{
		Name:  "percent",
		Usage: "additive protocol fee percent",
	}
	percentSubFlag = &cli.Uint64Flag{
		Name:  "percent-sub",
		Usage: "subtractive protocol fee percent",
	}
	projectReceiverFlag = &cli.StringFlag{
		Name:     "project-receiver",
		Required: true,
		Usage:    "project fee receiver address",
	}
	protocolReceiverFlag = &cli.StringFlag{
		Name:     "protocol-receiver",
		Required: true,
		Usage:    "protocol fee receiver address",
	}
)

func main() {
	app := &cli.App{
		Name:  "admin",
		Usage: "Manage a running storefront over its admin API",
		Flags: []cli.Flag{serverFlag, keyFlag},
		Commands: []*cli.Command{
			{
				Name:  "add-authority",
				Flags: []cli.Flag{addressFlag},
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/authorities",
						map[string]string{"action": "add", "authority": cCtx.String(addressFlag.Name)})
				},
			},
			{
				Name:  "remove-authority",
				Flags: []cli.Flag{addressFlag},
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/authorities",
						map[string]string{"action": "remove", "authority": cCtx.String(addressFlag.Name)})
				},
			},
			{
				Name:  "enable-method",
				Flags: []cli.Flag{addressFlag},
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/payment-methods",
						map[string]string{"action": "enable", "token": cCtx.String(addressFlag.Name)})
				},
			},
			{
				Name:  "disable-method",
				Flags: []cli.Flag{addressFlag},
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/payment-methods",
						map[string]string{"action": "disable", "token": cCtx.String(addressFlag.Name)})
				},
			},
			{
				Name:  "set-fees",
				Flags: []cli.Flag{projectReceiverFlag, protocolReceiverFlag, flatFlag, percentFlag, percentSubFlag},
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/fees", map[string]any{
						"projectFeeReceiver":    cCtx.String(projectReceiverFlag.Name),
						"protocolFeeReceiver":   cCtx.String(protocolReceiverFlag.Name),
						"protocolFeeAmount":     cCtx.String(flatFlag.Name),
						"protocolFeePercent":    cCtx.Uint64(percentFlag.Name),
						"protocolFeePercentSub": cCtx.Uint64(percentSubFlag.Name),
					})
				},
			},
			{
				Name: "snapshot",
				Action: func(cCtx *cli.Context) error {
					return post(cCtx, "/api/admin/snapshot", map[string]string{})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func post(cCtx *cli.Context, path string, payload any) error {
	key, err := adminKey(cCtx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	sig, err := authz.SignAdminRequest(http.MethodPost, path, body, key)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(cCtx.Context, http.MethodPost, cCtx.String(serverFlag.Name)+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpserver.AdminSignatureHeader, hexutil.Encode(sig))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(bytes.TrimSpace(out)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func adminKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(cCtx.String(keyFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("parsing admin key: %w", err)
	}
	return key, nil
}
